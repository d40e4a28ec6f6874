// ABOUTME: Monitor tap wire message definitions
// ABOUTME: JSON handshake structs plus the binary audio frame layout
package tap

import (
	"encoding/binary"
	"errors"
	"fmt"
)

const (
	// ProtocolVersion is sent in both hello messages
	ProtocolVersion = 1

	// FrameMessageType tags binary audio frames
	FrameMessageType = 1

	// frameHeaderSize is [type:1][sequence:8]
	frameHeaderSize = 9
)

// Message types
const (
	TypeListenerHello = "listener/hello"
	TypeTapHello      = "tap/hello"
	TypeServerError   = "server/error"
)

// ErrShortFrame is returned for binary messages without a full header
var ErrShortFrame = errors.New("tap frame too short")

// Message is the top-level wrapper for all JSON messages
type Message struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// ListenerHello is sent by listeners to initiate the handshake
type ListenerHello struct {
	ListenerID string      `json:"listener_id"`
	Name       string      `json:"name"`
	Version    int         `json:"version"`
	DeviceInfo *DeviceInfo `json:"device_info,omitempty"`
}

// DeviceInfo contains device identification
type DeviceInfo struct {
	ProductName     string `json:"product_name"`
	Manufacturer    string `json:"manufacturer"`
	SoftwareVersion string `json:"software_version"`
}

// TapHello is the server's response to listener/hello
type TapHello struct {
	ServerID   string `json:"server_id"`
	Name       string `json:"name"`
	Version    int    `json:"version"`
	Codec      string `json:"codec"`
	SampleRate int    `json:"sample_rate"`
	Channels   int    `json:"channels"`
	BitDepth   int    `json:"bit_depth"`
}

// ServerError rejects a listener
type ServerError struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// Frame is one decoded binary audio message
type Frame struct {
	Sequence uint64
	Data     []byte
}

// EncodeFrame builds a binary audio message
func EncodeFrame(sequence uint64, payload []byte) []byte {
	// Binary format: [message_type:1][sequence:8][payload:N]
	msg := make([]byte, frameHeaderSize+len(payload))
	msg[0] = FrameMessageType
	binary.BigEndian.PutUint64(msg[1:frameHeaderSize], sequence)
	copy(msg[frameHeaderSize:], payload)
	return msg
}

// DecodeFrame parses a binary audio message. Data aliases msg.
func DecodeFrame(msg []byte) (Frame, error) {
	if len(msg) < frameHeaderSize {
		return Frame{}, ErrShortFrame
	}
	if msg[0] != FrameMessageType {
		return Frame{}, fmt.Errorf("unknown binary message type: %d", msg[0])
	}
	return Frame{
		Sequence: binary.BigEndian.Uint64(msg[1:frameHeaderSize]),
		Data:     msg[frameHeaderSize:],
	}, nil
}
