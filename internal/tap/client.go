// ABOUTME: WebSocket client for monitor tap listeners
// ABOUTME: Handles connection, handshake, and frame delivery
package tap

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/harperreed/liveeffect-go/internal/version"
	"github.com/harperreed/liveeffect-go/pkg/audio"
)

// ClientConfig holds listener configuration
type ClientConfig struct {
	ServerAddr string
	ListenerID string
	Name       string
	FrameQueue int
}

// Client is a connected tap listener
type Client struct {
	config ClientConfig
	conn   *websocket.Conn
	hello  TapHello
	frames chan Frame

	mu        sync.Mutex
	connected bool
	ctx       context.Context
	cancel    context.CancelFunc
}

// NewClient creates a listener. An empty ListenerID gets a fresh uuid.
func NewClient(config ClientConfig) *Client {
	if config.ListenerID == "" {
		config.ListenerID = uuid.New().String()
	}
	if config.FrameQueue <= 0 {
		config.FrameQueue = 100
	}
	ctx, cancel := context.WithCancel(context.Background())

	return &Client{
		config: config,
		frames: make(chan Frame, config.FrameQueue),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Connect dials the server and performs the handshake
func (c *Client) Connect(ctx context.Context) error {
	u := url.URL{Scheme: "ws", Host: c.config.ServerAddr, Path: "/tap"}
	log.Printf("Connecting to %s", u.String())

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return fmt.Errorf("dial failed: %w", err)
	}

	c.mu.Lock()
	c.conn = conn
	c.connected = true
	c.mu.Unlock()

	if err := c.handshake(); err != nil {
		c.Close()
		return fmt.Errorf("handshake failed: %w", err)
	}

	go c.readMessages()
	return nil
}

// handshake sends listener/hello and waits for tap/hello
func (c *Client) handshake() error {
	hello := Message{
		Type: TypeListenerHello,
		Payload: ListenerHello{
			ListenerID: c.config.ListenerID,
			Name:       c.config.Name,
			Version:    ProtocolVersion,
			DeviceInfo: &DeviceInfo{
				ProductName:     version.Product,
				Manufacturer:    version.Manufacturer,
				SoftwareVersion: version.Version,
			},
		},
	}
	if err := c.conn.WriteJSON(hello); err != nil {
		return fmt.Errorf("failed to send %s: %w", TypeListenerHello, err)
	}

	c.conn.SetReadDeadline(time.Now().Add(handshakeDeadline))
	_, data, err := c.conn.ReadMessage()
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", TypeTapHello, err)
	}
	c.conn.SetReadDeadline(time.Time{})

	var msg struct {
		Type    string          `json:"type"`
		Payload json.RawMessage `json:"payload"`
	}
	if err := json.Unmarshal(data, &msg); err != nil {
		return fmt.Errorf("failed to parse %s: %w", TypeTapHello, err)
	}

	switch msg.Type {
	case TypeTapHello:
	case TypeServerError:
		var serr ServerError
		json.Unmarshal(msg.Payload, &serr)
		return fmt.Errorf("server rejected listener: %s", serr.Message)
	default:
		return fmt.Errorf("expected %s, got %s", TypeTapHello, msg.Type)
	}

	if err := json.Unmarshal(msg.Payload, &c.hello); err != nil {
		return fmt.Errorf("failed to parse %s: %w", TypeTapHello, err)
	}

	log.Printf("Handshake complete with tap %s (%s, %d Hz, %d ch)",
		c.hello.Name, c.hello.Codec, c.hello.SampleRate, c.hello.Channels)
	return nil
}

// readMessages delivers frames until the connection ends, then closes Frames
func (c *Client) readMessages() {
	defer close(c.frames)
	defer c.Close()

	for {
		messageType, data, err := c.conn.ReadMessage()
		if err != nil {
			select {
			case <-c.ctx.Done():
			default:
				log.Printf("Tap read error: %v", err)
			}
			return
		}

		if messageType != websocket.BinaryMessage {
			continue
		}

		frame, err := DecodeFrame(data)
		if err != nil {
			log.Printf("Invalid tap frame: %v", err)
			continue
		}

		select {
		case c.frames <- frame:
		case <-c.ctx.Done():
			return
		}
	}
}

// Frames delivers audio frames in order. It is closed when the connection ends.
func (c *Client) Frames() <-chan Frame {
	return c.frames
}

// Format returns the stream format announced by the server
func (c *Client) Format() audio.Format {
	return audio.Format{
		Codec:      c.hello.Codec,
		SampleRate: c.hello.SampleRate,
		Channels:   c.hello.Channels,
		BitDepth:   c.hello.BitDepth,
	}
}

// ServerID returns the id from tap/hello
func (c *Client) ServerID() string {
	return c.hello.ServerID
}

// Close closes the connection
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.connected {
		c.connected = false
		c.cancel()
		c.conn.Close()
		log.Printf("Tap connection closed")
	}
}
