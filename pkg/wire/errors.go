package wire

import (
	"errors"
	"fmt"
)

// ErrIgnore marks a frame the caller should skip without closing the
// connection, e.g. a text frame on a msgpack connection or a stray control
// payload.
var ErrIgnore = errors.New("wire: ignorable frame")

// CloseError carries a close code and reason to send to the peer before
// terminating the connection.
type CloseError struct {
	Code   int
	Reason string
}

func (e *CloseError) Error() string {
	return fmt.Sprintf("wire: close %d: %s", e.Code, e.Reason)
}

// Closef builds a CloseError with a formatted reason.
func Closef(code int, format string, args ...any) error {
	return &CloseError{Code: code, Reason: fmt.Sprintf(format, args...)}
}

// AsClose extracts a CloseError from err, if present.
func AsClose(err error) (*CloseError, bool) {
	var ce *CloseError
	if errors.As(err, &ce) {
		return ce, true
	}
	return nil, false
}
