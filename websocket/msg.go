package websocket

import (
	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/segmentio/encoding/json"
	"golang.org/x/net/websocket"
)

const (
	ErrTypeMalformedMsg = "malformed_msg"
	ErrTypeUnknownMsg   = "unknown_msg"
)

// MsgType identifies a stream message.
type MsgType string

const (
	MsgTypePing            MsgType = "ping"
	MsgTypePong            MsgType = "pong"
	MsgTypeCoverageRequest MsgType = "coverage_request"
	MsgTypeCoverageBatch   MsgType = "coverage_batch"
	MsgTypeCoverageDone    MsgType = "coverage_done"
	MsgTypeError           MsgType = "error"
)

// Msg is a JSON message exchanged on a coverage stream. Fields are set
// depending on the message type.
type Msg struct {
	Type      MsgType `json:"type"`
	RequestID uint32  `json:"request_id,omitempty"`
	RegionID  uint32  `json:"region_id,omitempty"`

	// The requested depth. The server default is used when nil.
	Depth *int `json:"depth,omitempty"`

	// The triangles of a coverage batch, as x, y, z vertex coordinates.
	Triangles [][3][3]float64 `json:"triangles,omitempty"`

	// The index of the first triangle of a coverage batch.
	Offset int `json:"offset,omitempty"`

	// The number of triangles of a completed coverage.
	Total int `json:"total,omitempty"`

	Error     string `json:"error,omitempty"`
	ErrorType string `json:"error_type,omitempty"`
}

// TypeString returns the message type as a string, or "unknown" when not set.
func (m Msg) TypeString() string {
	if m.Type == "" {
		return "unknown"
	}
	return string(m.Type)
}

// ErrorMsg returns an error message answering the given request.
func ErrorMsg(requestID uint32, errType, message string) Msg {
	return Msg{
		Type:      MsgTypeError,
		RequestID: requestID,
		Error:     message,
		ErrorType: errType,
	}
}

// Receiver receives a message. It returns the number of bytes read.
type Receiver func() (Msg, int, error)

// Sender sends a message. It returns the number of bytes written.
type Sender func(Msg) (int, error)

// ResponseSender queues messages to be sent to the connected client.
type ResponseSender interface {
	Send(Msg)
}

// Receive reads a JSON message from conn.
func Receive(conn *websocket.Conn) (Msg, int, error) {
	var b []byte
	if err := websocket.Message.Receive(conn, &b); err != nil {
		return Msg{}, 0, err
	}

	var msg Msg
	if err := json.Unmarshal(b, &msg); err != nil {
		return Msg{}, len(b), errors.New("decoding message failed").
			WithType(ErrTypeMalformedMsg).
			Wrap(err)
	}
	return msg, len(b), nil
}

// Send writes msg as a JSON text frame to conn.
func Send(conn *websocket.Conn, msg Msg) (int, error) {
	b, err := json.Marshal(msg)
	if err != nil {
		return 0, errors.New("encoding message failed").
			WithTag("msg_type", msg.Type).
			Wrap(err)
	}

	if err := websocket.Message.Send(conn, string(b)); err != nil {
		return 0, err
	}
	return len(b), nil
}
