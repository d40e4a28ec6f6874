// ABOUTME: Tests for the monitor tap server, client and frame codec
// ABOUTME: Runs the websocket handshake and frame delivery over httptest
package tap

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/harperreed/liveeffect-go/pkg/audio/decode"
)

func newTestServer(t *testing.T, cfg Config) (*Server, string) {
	t.Helper()
	s, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(func() {
		s.Close()
		ts.Close()
	})
	return s, strings.TrimPrefix(ts.URL, "http://")
}

func waitForListeners(t *testing.T, s *Server, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if s.Stats().Listeners == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("listeners = %d, want %d", s.Stats().Listeners, want)
}

func TestFrameEncoding(t *testing.T) {
	tests := []struct {
		name     string
		sequence uint64
		payload  []byte
	}{
		{"empty payload", 1, nil},
		{"small payload", 42, []byte{1, 2, 3}},
		{"large sequence", 1 << 40, []byte{0xff}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := EncodeFrame(tt.sequence, tt.payload)
			if msg[0] != FrameMessageType {
				t.Errorf("type byte = %d, want %d", msg[0], FrameMessageType)
			}
			f, err := DecodeFrame(msg)
			if err != nil {
				t.Fatalf("DecodeFrame: %v", err)
			}
			if f.Sequence != tt.sequence {
				t.Errorf("sequence = %d, want %d", f.Sequence, tt.sequence)
			}
			if string(f.Data) != string(tt.payload) {
				t.Errorf("payload = %v, want %v", f.Data, tt.payload)
			}
		})
	}
}

func TestDecodeFrameErrors(t *testing.T) {
	if _, err := DecodeFrame([]byte{1, 2}); !errors.Is(err, ErrShortFrame) {
		t.Errorf("short frame error = %v, want ErrShortFrame", err)
	}
	bad := EncodeFrame(1, nil)
	bad[0] = 7
	if _, err := DecodeFrame(bad); err == nil {
		t.Error("expected error for unknown message type")
	}
}

func TestNewCodecSelection(t *testing.T) {
	tests := []struct {
		name      string
		codec     string
		rate      int
		wantCodec string
	}{
		{"default is pcm", "", 48000, "pcm"},
		{"opus at 48k", "opus", 48000, "opus"},
		{"opus at 44.1k falls back", "opus", 44100, "pcm"},
		{"pcm stays pcm", "pcm", 44100, "pcm"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := New(Config{Name: "test", Codec: tt.codec, SampleRate: tt.rate, Channels: 2})
			if err != nil {
				t.Fatalf("New: %v", err)
			}
			if got := s.Format().Codec; got != tt.wantCodec {
				t.Errorf("codec = %q, want %q", got, tt.wantCodec)
			}
			if s.Format().BitDepth != 16 {
				t.Errorf("bit depth = %d, want 16", s.Format().BitDepth)
			}
		})
	}
}

func TestNewRejectsUnknownCodec(t *testing.T) {
	if _, err := New(Config{Codec: "flac", SampleRate: 48000, Channels: 2}); err == nil {
		t.Error("expected error for unknown codec")
	}
}

func TestHandshakeAndFrameDelivery(t *testing.T) {
	s, addr := newTestServer(t, Config{Name: "Studio", Codec: "pcm", SampleRate: 48000, Channels: 2})

	c := NewClient(ClientConfig{ServerAddr: addr, Name: "Headphones"})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := c.Connect(ctx); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer c.Close()

	if c.ServerID() != s.ID() {
		t.Errorf("server id = %q, want %q", c.ServerID(), s.ID())
	}
	f := c.Format()
	if f.Codec != "pcm" || f.SampleRate != 48000 || f.Channels != 2 || f.BitDepth != 16 {
		t.Errorf("format = %+v", f)
	}

	waitForListeners(t, s, 1)

	chunks := [][]int16{{1, -2, 3, -4}, {32767, -32768}}
	for _, chunk := range chunks {
		if err := s.WriteSamples(chunk); err != nil {
			t.Fatalf("WriteSamples: %v", err)
		}
	}

	dec, err := decode.New(f)
	if err != nil {
		t.Fatalf("decode.New: %v", err)
	}

	for i, want := range chunks {
		select {
		case frame := <-c.Frames():
			if frame.Sequence != uint64(i+1) {
				t.Errorf("frame %d sequence = %d", i, frame.Sequence)
			}
			got, err := dec.Decode(frame.Data)
			if err != nil {
				t.Fatalf("Decode: %v", err)
			}
			if len(got) != len(want) {
				t.Fatalf("frame %d: got %d samples, want %d", i, len(got), len(want))
			}
			for j := range want {
				if got[j] != want[j] {
					t.Errorf("frame %d sample %d: got %d, want %d", i, j, got[j], want[j])
				}
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for frame %d", i)
		}
	}

	stats := s.Stats()
	if stats.Frames != 2 || stats.Dropped != 0 {
		t.Errorf("stats = %+v", stats)
	}
}

func TestDuplicateListenerRejected(t *testing.T) {
	s, addr := newTestServer(t, Config{Name: "Studio", SampleRate: 48000, Channels: 2})
	ctx := context.Background()

	first := NewClient(ClientConfig{ServerAddr: addr, ListenerID: "same", Name: "one"})
	if err := first.Connect(ctx); err != nil {
		t.Fatalf("first Connect: %v", err)
	}
	defer first.Close()
	waitForListeners(t, s, 1)

	second := NewClient(ClientConfig{ServerAddr: addr, ListenerID: "same", Name: "two"})
	if err := second.Connect(ctx); err == nil {
		second.Close()
		t.Fatal("expected duplicate listener to be rejected")
	}
}

func TestBadHelloClosesConnection(t *testing.T) {
	_, addr := newTestServer(t, Config{Name: "Studio", SampleRate: 48000, Channels: 2})

	conn, _, err := websocket.DefaultDialer.Dial("ws://"+addr+"/tap", nil)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer conn.Close()

	if err := conn.WriteJSON(Message{Type: "player/update", Payload: map[string]string{}}); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Error("expected connection to close after bad hello")
	}
}

func TestListenerDisconnectUnregisters(t *testing.T) {
	s, addr := newTestServer(t, Config{Name: "Studio", SampleRate: 48000, Channels: 2})

	c := NewClient(ClientConfig{ServerAddr: addr, Name: "brief"})
	if err := c.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	waitForListeners(t, s, 1)

	c.Close()
	waitForListeners(t, s, 0)

	select {
	case _, ok := <-c.Frames():
		if ok {
			t.Error("expected no frames after close")
		}
	case <-time.After(2 * time.Second):
		t.Error("Frames channel not closed after Close")
	}
}

func TestOpusFraming(t *testing.T) {
	s, err := New(Config{Name: "opus", Codec: "opus", SampleRate: 48000, Channels: 1})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	l := &Listener{ID: "fake", Name: "fake", sendChan: make(chan interface{}, 8)}
	s.listeners[l.ID] = l

	if err := s.WriteSamples(make([]int16, 500)); err != nil {
		t.Fatalf("WriteSamples: %v", err)
	}
	if got := len(l.sendChan); got != 0 {
		t.Fatalf("frames after 500 samples = %d, want 0", got)
	}

	if err := s.WriteSamples(make([]int16, 1500)); err != nil {
		t.Fatalf("WriteSamples: %v", err)
	}
	if got := len(l.sendChan); got != 2 {
		t.Fatalf("frames after 2000 samples = %d, want 2", got)
	}
	if got := len(s.pending); got != 80 {
		t.Errorf("pending = %d, want 80", got)
	}
}

func TestSlowListenerDropsFrames(t *testing.T) {
	s, err := New(Config{Name: "slow", SampleRate: 48000, Channels: 2, SendBuffer: 1})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	l := &Listener{ID: "slow", Name: "slow", sendChan: make(chan interface{}, 1)}
	s.listeners[l.ID] = l

	for i := 0; i < 3; i++ {
		if err := s.WriteSamples([]int16{1, 2}); err != nil {
			t.Fatalf("WriteSamples: %v", err)
		}
	}

	stats := s.Stats()
	if stats.Frames != 3 {
		t.Errorf("Frames = %d, want 3", stats.Frames)
	}
	if stats.Dropped != 2 {
		t.Errorf("Dropped = %d, want 2", stats.Dropped)
	}
	if l.dropped.Load() != 2 {
		t.Errorf("listener dropped = %d, want 2", l.dropped.Load())
	}
}

func TestNoListenersSkipsEncoding(t *testing.T) {
	s, err := New(Config{Name: "idle", SampleRate: 48000, Channels: 2})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := s.WriteSamples([]int16{1, 2, 3, 4}); err != nil {
		t.Fatalf("WriteSamples: %v", err)
	}
	if got := s.Stats().Frames; got != 0 {
		t.Errorf("Frames = %d, want 0", got)
	}
}

func TestWriteAfterClose(t *testing.T) {
	s, err := New(Config{Name: "closed", SampleRate: 48000, Channels: 2})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
	if err := s.WriteSamples([]int16{1}); !errors.Is(err, ErrServerClosed) {
		t.Errorf("WriteSamples after Close = %v, want ErrServerClosed", err)
	}
}

func TestStatusAndMetricsEndpoints(t *testing.T) {
	metrics := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "liveeffect_up 1\n")
	})
	_, addr := newTestServer(t, Config{Name: "Studio", Codec: "pcm", SampleRate: 44100, Channels: 1, Metrics: metrics})

	resp, err := http.Get("http://" + addr + "/status")
	if err != nil {
		t.Fatalf("GET /status: %v", err)
	}
	defer resp.Body.Close()

	var status struct {
		Name       string `json:"name"`
		Codec      string `json:"codec"`
		SampleRate int    `json:"sample_rate"`
		Channels   int    `json:"channels"`
		Stats      Stats  `json:"stats"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	if status.Name != "Studio" || status.Codec != "pcm" || status.SampleRate != 44100 || status.Channels != 1 {
		t.Errorf("status = %+v", status)
	}

	mresp, err := http.Get("http://" + addr + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics: %v", err)
	}
	defer mresp.Body.Close()
	body, _ := io.ReadAll(mresp.Body)
	if !strings.Contains(string(body), "liveeffect_up 1") {
		t.Errorf("metrics body = %q", body)
	}
}
