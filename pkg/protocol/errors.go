package protocol

import "fmt"

// ErrorCode is the numeric code carried by an 'error' message.
type ErrorCode int

const (
	// CodeNotSupported indicates the message type has no handler.
	CodeNotSupported ErrorCode = 10
	// CodeCrash indicates the handler failed unexpectedly.
	CodeCrash ErrorCode = 13
	// CodeProtocolError indicates a malformed envelope or body, a missing
	// or mistyped field, or a message received in the wrong phase.
	CodeProtocolError ErrorCode = 1000
	// CodeBadTopology indicates the topology did not contain a valid
	// neighbour list for the node.
	CodeBadTopology ErrorCode = 1001
)

func (c ErrorCode) String() string {
	switch c {
	case CodeNotSupported:
		return "not-supported"
	case CodeCrash:
		return "crash"
	case CodeProtocolError:
		return "protocol-error"
	case CodeBadTopology:
		return "bad-topology"
	default:
		return "unknown"
	}
}

// Error is a recoverable failure handling a request, which is returned to
// the sender as an 'error' message when the request can be correlated.
type Error struct {
	Code ErrorCode
	Text string
}

// Errorf creates an Error with the given code and formatted text.
func Errorf(code ErrorCode, format string, args ...any) *Error {
	return &Error{
		Code: code,
		Text: fmt.Sprintf(format, args...),
	}
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s (%d): %s", e.Code, int(e.Code), e.Text)
}
