package wire

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"

	"github.com/gorilla/websocket"
	"github.com/vmihailenco/msgpack/v5"
)

// Format selects the frame encoding negotiated at connect time. JSON payloads
// travel in text frames, msgpack payloads in binary frames.
type Format uint8

const (
	FormatJSON Format = iota
	FormatMsgpack
)

// DefaultVersion is the protocol version assumed when the client does not
// specify one in the handshake query string.
const DefaultVersion = 1

// ParseFormat parses the format query parameter. The empty string maps to
// FormatJSON.
func ParseFormat(s string) (Format, error) {
	switch s {
	case "", "json":
		return FormatJSON, nil
	case "msgpack":
		return FormatMsgpack, nil
	default:
		return FormatJSON, fmt.Errorf("wire: unknown format %q", s)
	}
}

// String returns the query-parameter spelling of the format.
func (f Format) String() string {
	if f == FormatMsgpack {
		return "msgpack"
	}
	return "json"
}

// MessageType returns the WebSocket message type frames of this format
// travel in.
func (f Format) MessageType() int {
	if f == FormatMsgpack {
		return websocket.BinaryMessage
	}
	return websocket.TextMessage
}

// Settings are the per-connection options negotiated via handshake query
// parameters, e.g. wss://gateway/?version=1&format=msgpack.
type Settings struct {
	Version uint8
	Format  Format
}

// DefaultSettings returns version 1 with JSON framing.
func DefaultSettings() Settings {
	return Settings{Version: DefaultVersion, Format: FormatJSON}
}

// SettingsFromQuery derives connection settings from handshake query
// parameters. Unparseable values fall back to the defaults, matching the
// lenient behavior clients rely on.
func SettingsFromQuery(q url.Values) Settings {
	s := DefaultSettings()
	if v := q.Get("version"); v != "" {
		if n, err := strconv.ParseUint(v, 10, 8); err == nil {
			s.Version = uint8(n)
		}
	}
	if f, err := ParseFormat(q.Get("format")); err == nil {
		s.Format = f
	}
	return s
}

// Query renders the settings as a handshake query string.
func (s Settings) Query() url.Values {
	q := url.Values{}
	q.Set("version", strconv.Itoa(int(s.Version)))
	q.Set("format", s.Format.String())
	return q
}

// EncodeOutbound serialises an outbound message in the connection's format.
// Models are always serialisable, so an encode error indicates a bug and is
// returned rather than swallowed.
func (s Settings) EncodeOutbound(m *Outbound) ([]byte, error) {
	return s.encode(m)
}

// EncodeInbound serialises an inbound message in the connection's format.
func (s Settings) EncodeInbound(m *Inbound) ([]byte, error) {
	return s.encode(m)
}

func (s Settings) encode(v any) ([]byte, error) {
	if s.Format == FormatMsgpack {
		data, err := msgpack.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("wire: encode msgpack: %w", err)
		}
		return data, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("wire: encode json: %w", err)
	}
	return data, nil
}

// DecodeInbound parses a client frame. JSON must arrive in text frames and
// msgpack in binary frames; a frame of any other type yields ErrIgnore. A
// payload that fails to parse yields a CloseError with code 1003.
func (s Settings) DecodeInbound(messageType int, data []byte) (*Inbound, error) {
	var m Inbound
	if err := s.decode(messageType, data, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// DecodeOutbound parses a gateway frame on the client side.
func (s Settings) DecodeOutbound(messageType int, data []byte) (*Outbound, error) {
	var m Outbound
	if err := s.decode(messageType, data, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

func (s Settings) decode(messageType int, data []byte, v any) error {
	if messageType != s.Format.MessageType() {
		return ErrIgnore
	}
	if s.Format == FormatMsgpack {
		if err := msgpack.Unmarshal(data, v); err != nil {
			return Closef(CloseInvalidData, "invalid msgpack payload: %v", err)
		}
		return nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return Closef(CloseInvalidData, "invalid json payload: %v", err)
	}
	return nil
}
