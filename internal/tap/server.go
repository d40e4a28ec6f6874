// ABOUTME: Monitor tap server streaming the recorded PCM to websocket listeners
// ABOUTME: Acts as a recorder sink, serves /tap, /status and /metrics, advertises via mDNS
package tap

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/harperreed/liveeffect-go/internal/discovery"
	"github.com/harperreed/liveeffect-go/pkg/audio"
	"github.com/harperreed/liveeffect-go/pkg/audio/encode"
)

const (
	// DefaultSendBuffer is the per-listener frame backlog
	DefaultSendBuffer = 64

	writeDeadline     = 10 * time.Second
	handshakeDeadline = 5 * time.Second
	pingInterval      = 30 * time.Second
)

// ErrServerClosed is returned by WriteSamples after Close
var ErrServerClosed = errors.New("tap server closed")

// Config holds tap server configuration
type Config struct {
	Port       int
	Name       string
	Codec      string // "pcm" or "opus"
	SampleRate int
	Channels   int
	Advertise  bool
	SendBuffer int

	// Metrics is mounted at /metrics when set
	Metrics http.Handler
}

// Stats counts tap activity
type Stats struct {
	Listeners int    `json:"listeners"`
	Frames    uint64 `json:"frames"`
	Bytes     uint64 `json:"bytes"`
	Dropped   uint64 `json:"dropped"`
}

// Server represents the tap server
type Server struct {
	config   Config
	serverID string
	format   audio.Format
	encoder  encode.Encoder

	upgrader websocket.Upgrader
	mux      *http.ServeMux

	httpServer *http.Server
	listener   net.Listener
	mdns       *discovery.Manager

	// Listener management
	mu         sync.RWMutex
	listeners  map[string]*Listener
	isShutdown bool
	wg         sync.WaitGroup

	// Owned by the WriteSamples caller
	pending      []int16
	frameSamples int
	sequence     uint64

	frames  atomic.Uint64
	bytes   atomic.Uint64
	dropped atomic.Uint64

	closeOnce sync.Once
}

// Listener represents a connected listener
type Listener struct {
	ID      string
	Name    string
	Conn    *websocket.Conn
	dropped atomic.Uint64

	// Output channel for messages
	sendChan chan interface{}
}

// New creates a tap server. An opus codec the sample rate cannot carry
// falls back to pcm.
func New(config Config) (*Server, error) {
	if config.SendBuffer <= 0 {
		config.SendBuffer = DefaultSendBuffer
	}
	if config.Codec == "" {
		config.Codec = "pcm"
	}
	if config.Codec == "opus" && !encode.SupportsOpus(config.SampleRate) {
		log.Printf("Opus does not support %d Hz, tap falling back to pcm", config.SampleRate)
		config.Codec = "pcm"
	}

	format := audio.Format{
		Codec:      config.Codec,
		SampleRate: config.SampleRate,
		Channels:   config.Channels,
		BitDepth:   audio.BitsPerSample,
	}
	encoder, err := encode.New(format)
	if err != nil {
		return nil, fmt.Errorf("failed to create tap encoder: %w", err)
	}

	s := &Server{
		config:    config,
		serverID:  uuid.New().String(),
		format:    format,
		encoder:   encoder,
		mux:       http.NewServeMux(),
		listeners: make(map[string]*Listener),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				// Taps are meant for trusted local networks
				return true
			},
		},
	}
	if config.Codec == "opus" {
		s.frameSamples = encode.OpusFrameSamples(config.SampleRate, config.Channels)
	}

	s.mux.HandleFunc("/tap", s.handleWebSocket)
	s.mux.HandleFunc("/status", s.handleStatus)
	if config.Metrics != nil {
		s.mux.Handle("/metrics", config.Metrics)
	}
	return s, nil
}

// ID returns the server id sent in tap/hello
func (s *Server) ID() string {
	return s.serverID
}

// Format returns the negotiated stream format
func (s *Server) Format() audio.Format {
	return s.format
}

// Handler returns the HTTP handler serving every tap endpoint
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Start listens on the configured port and starts mDNS advertisement
func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.config.Port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("tap listen on %s: %w", addr, err)
	}
	s.listener = ln
	s.httpServer = &http.Server{Handler: s.mux}

	go func() {
		if err := s.httpServer.Serve(ln); err != nil && err != http.ErrServerClosed {
			log.Printf("Tap HTTP server error: %v", err)
		}
	}()
	log.Printf("Tap server %s listening on %s (codec: %s)", s.config.Name, ln.Addr(), s.format.Codec)

	if s.config.Advertise {
		s.mdns = discovery.NewManager(discovery.Config{
			ServiceName: s.config.Name,
			Port:        s.config.Port,
			TXT: []string{
				"codec=" + s.format.Codec,
				fmt.Sprintf("rate=%d", s.format.SampleRate),
				fmt.Sprintf("channels=%d", s.format.Channels),
			},
		})
		if err := s.mdns.Advertise(); err != nil {
			log.Printf("Failed to start mDNS advertisement: %v", err)
		}
	}
	return nil
}

// Addr returns the bound address once started
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// WriteSamples encodes samples and broadcasts them. It never blocks on a
// listener: a full backlog drops the frame for that listener.
func (s *Server) WriteSamples(samples []int16) error {
	s.mu.RLock()
	shutdown := s.isShutdown
	listeners := len(s.listeners)
	s.mu.RUnlock()

	if shutdown {
		return ErrServerClosed
	}
	if listeners == 0 {
		s.pending = s.pending[:0]
		return nil
	}

	if s.frameSamples == 0 {
		return s.encodeAndBroadcast(samples)
	}

	s.pending = append(s.pending, samples...)
	consumed := 0
	for len(s.pending)-consumed >= s.frameSamples {
		if err := s.encodeAndBroadcast(s.pending[consumed : consumed+s.frameSamples]); err != nil {
			return err
		}
		consumed += s.frameSamples
	}
	s.pending = s.pending[:copy(s.pending, s.pending[consumed:])]
	return nil
}

func (s *Server) encodeAndBroadcast(samples []int16) error {
	payload, err := s.encoder.Encode(samples)
	if err != nil {
		return fmt.Errorf("tap encode: %w", err)
	}
	s.sequence++
	s.broadcast(EncodeFrame(s.sequence, payload))
	return nil
}

// broadcast queues msg on every listener without blocking
func (s *Server) broadcast(msg []byte) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	s.frames.Add(1)
	for _, l := range s.listeners {
		select {
		case l.sendChan <- msg:
			s.bytes.Add(uint64(len(msg)))
		default:
			l.dropped.Add(1)
			s.dropped.Add(1)
		}
	}
}

// Stats returns the tap counters
func (s *Server) Stats() Stats {
	s.mu.RLock()
	n := len(s.listeners)
	s.mu.RUnlock()

	return Stats{
		Listeners: n,
		Frames:    s.frames.Load(),
		Bytes:     s.bytes.Load(),
		Dropped:   s.dropped.Load(),
	}
}

// Close disconnects every listener, stops advertising and shuts the HTTP
// server down. Safe to call more than once.
func (s *Server) Close() error {
	var err error
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.isShutdown = true
		for _, l := range s.listeners {
			l.Conn.Close()
		}
		s.mu.Unlock()

		if s.mdns != nil {
			s.mdns.Stop()
		}

		if s.httpServer != nil {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if shutdownErr := s.httpServer.Shutdown(ctx); shutdownErr != nil {
				err = fmt.Errorf("tap shutdown: %w", shutdownErr)
			}
		}

		s.wg.Wait()
		if encErr := s.encoder.Close(); encErr != nil && err == nil {
			err = encErr
		}
		log.Printf("Tap server stopped")
	})
	return err
}

// handleStatus serves tap stats as JSON
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	type listenerStatus struct {
		ID      string `json:"id"`
		Name    string `json:"name"`
		Dropped uint64 `json:"dropped"`
	}

	s.mu.RLock()
	listeners := make([]listenerStatus, 0, len(s.listeners))
	for _, l := range s.listeners {
		listeners = append(listeners, listenerStatus{ID: l.ID, Name: l.Name, Dropped: l.dropped.Load()})
	}
	s.mu.RUnlock()

	status := struct {
		ServerID   string           `json:"server_id"`
		Name       string           `json:"name"`
		Codec      string           `json:"codec"`
		SampleRate int              `json:"sample_rate"`
		Channels   int              `json:"channels"`
		Stats      Stats            `json:"stats"`
		Listeners  []listenerStatus `json:"listeners"`
	}{
		ServerID:   s.serverID,
		Name:       s.config.Name,
		Codec:      s.format.Codec,
		SampleRate: s.format.SampleRate,
		Channels:   s.format.Channels,
		Stats:      s.Stats(),
		Listeners:  listeners,
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(status); err != nil {
		log.Printf("Error writing tap status: %v", err)
	}
}

// handleWebSocket upgrades and serves a listener connection
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	if s.isShutdown {
		s.mu.Unlock()
		http.Error(w, "tap server shutting down", http.StatusServiceUnavailable)
		return
	}
	s.wg.Add(1)
	s.mu.Unlock()
	defer s.wg.Done()

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade error: %v", err)
		return
	}

	log.Printf("New tap connection from %s", r.RemoteAddr)
	s.handleConnection(conn)
}

// handleConnection runs the handshake then pumps frames until disconnect
func (s *Server) handleConnection(conn *websocket.Conn) {
	defer conn.Close()

	hello, err := readHello(conn)
	if err != nil {
		log.Printf("Tap handshake failed: %v", err)
		return
	}

	l := &Listener{
		ID:       hello.ListenerID,
		Name:     hello.Name,
		Conn:     conn,
		sendChan: make(chan interface{}, s.config.SendBuffer),
	}

	// tap/hello is queued before registration so it precedes every frame
	l.sendChan <- Message{
		Type: TypeTapHello,
		Payload: TapHello{
			ServerID:   s.serverID,
			Name:       s.config.Name,
			Version:    ProtocolVersion,
			Codec:      s.format.Codec,
			SampleRate: s.format.SampleRate,
			Channels:   s.format.Channels,
			BitDepth:   s.format.BitDepth,
		},
	}

	s.mu.Lock()
	if existing, exists := s.listeners[l.ID]; exists {
		s.mu.Unlock()
		log.Printf("Listener ID %s already connected (name: %s), rejecting duplicate", l.ID, existing.Name)
		writeJSON(conn, Message{
			Type:    TypeServerError,
			Payload: ServerError{Error: "duplicate_listener_id", Message: "Listener ID already connected"},
		})
		return
	}
	if s.isShutdown {
		s.mu.Unlock()
		return
	}
	s.listeners[l.ID] = l
	s.wg.Add(1)
	s.mu.Unlock()

	log.Printf("Listener connected: %s (ID: %s)", l.Name, l.ID)

	writerDone := make(chan struct{})
	go func() {
		defer s.wg.Done()
		defer close(writerDone)
		s.listenerWriter(l)
	}()

	// Listeners send nothing after hello; reads detect disconnects
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("Tap WebSocket error: %v", err)
			}
			break
		}
	}

	s.mu.Lock()
	delete(s.listeners, l.ID)
	close(l.sendChan)
	s.mu.Unlock()
	<-writerDone

	log.Printf("Listener disconnected: %s (dropped %d frames)", l.Name, l.dropped.Load())
}

func readHello(conn *websocket.Conn) (ListenerHello, error) {
	var hello ListenerHello

	conn.SetReadDeadline(time.Now().Add(handshakeDeadline))
	_, data, err := conn.ReadMessage()
	if err != nil {
		return hello, fmt.Errorf("error reading hello: %w", err)
	}
	conn.SetReadDeadline(time.Time{})

	var msg struct {
		Type    string          `json:"type"`
		Payload json.RawMessage `json:"payload"`
	}
	if err := json.Unmarshal(data, &msg); err != nil {
		return hello, fmt.Errorf("error unmarshaling message: %w", err)
	}
	if msg.Type != TypeListenerHello {
		return hello, fmt.Errorf("expected %s, got %s", TypeListenerHello, msg.Type)
	}
	if err := json.Unmarshal(msg.Payload, &hello); err != nil {
		return hello, fmt.Errorf("error unmarshaling listener hello: %w", err)
	}
	if hello.ListenerID == "" {
		return hello, errors.New("listener hello missing listener_id")
	}
	if hello.Name == "" {
		return hello, errors.New("listener hello missing name")
	}
	return hello, nil
}

// listenerWriter sends queued messages to the listener
func (s *Server) listenerWriter(l *Listener) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-l.sendChan:
			if !ok {
				return
			}

			switch v := msg.(type) {
			case []byte:
				l.Conn.SetWriteDeadline(time.Now().Add(writeDeadline))
				if err := l.Conn.WriteMessage(websocket.BinaryMessage, v); err != nil {
					log.Printf("Error writing tap frame: %v", err)
					l.Conn.Close()
					drain(l.sendChan)
					return
				}
			default:
				if err := writeJSON(l.Conn, v); err != nil {
					log.Printf("Error writing tap message: %v", err)
					l.Conn.Close()
					drain(l.sendChan)
					return
				}
			}

		case <-ticker.C:
			if err := l.Conn.WriteControl(websocket.PingMessage, []byte{}, time.Now().Add(writeDeadline)); err != nil {
				l.Conn.Close()
				drain(l.sendChan)
				return
			}
		}
	}
}

// drain empties ch until it is closed
func drain(ch <-chan interface{}) {
	for range ch {
	}
}

func writeJSON(conn *websocket.Conn, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("error marshaling message: %w", err)
	}
	conn.SetWriteDeadline(time.Now().Add(writeDeadline))
	return conn.WriteMessage(websocket.TextMessage, data)
}
