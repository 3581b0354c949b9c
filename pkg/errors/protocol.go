package errors

import stdErrors "errors"

// ProtocolError is a specialized error type for the Memcached ASCII frame
// layer. It distinguishes malformed-but-recoverable frames from the
// connection-terminating I/O failures reported as plain wrapped errors.
type ProtocolError struct {
	*baseError
	verb string // Command verb being parsed, if one was recognized.
	line string // Raw line that failed to parse, truncated by the caller if huge.
}

// NewProtocolError creates a new protocol-specific error.
func NewProtocolError(err error, code ErrorCode, msg string) *ProtocolError {
	return &ProtocolError{baseError: NewBaseError(err, code, msg)}
}

// WithVerb records which command verb was being parsed.
func (pe *ProtocolError) WithVerb(verb string) *ProtocolError {
	pe.verb = verb
	return pe
}

// WithLine records the raw line that failed to parse.
func (pe *ProtocolError) WithLine(line string) *ProtocolError {
	pe.line = line
	return pe
}

// Verb returns the command verb being parsed when the error occurred.
func (pe *ProtocolError) Verb() string {
	return pe.verb
}

// Line returns the raw line that failed to parse.
func (pe *ProtocolError) Line() string {
	return pe.line
}

// IsProtocolError reports whether err is a *ProtocolError, recoverable by
// replying with an error line and continuing to read from the connection.
func IsProtocolError(err error) bool {
	_, ok := AsProtocolError(err)
	return ok
}

// AsProtocolError extracts a *ProtocolError from an error chain.
func AsProtocolError(err error) (*ProtocolError, bool) {
	var pe *ProtocolError
	if stdErrors.As(err, &pe) {
		return pe, true
	}
	return nil, false
}
