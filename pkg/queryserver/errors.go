package queryserver

import "fmt"

// WireError is a protocol-level error tagged with the wire reason it must be
// reported under. Reason is one of "parse_error", "unsupported_command",
// "processing_failed" or "output_error"; cause carries the underlying detail
// that becomes the wire message.
type WireError struct {
	Reason string
	cause  error
}

func (e *WireError) Error() string { return fmt.Sprintf("%s: %v", e.Reason, e.cause) }

func (e *WireError) Unwrap() error { return e.cause }

// NewParseError reports a request line that could not be parsed or did not
// have the expected command shape.
func NewParseError(err error) error {
	return &WireError{Reason: "parse_error", cause: err}
}

// NewUnsupportedCommandError reports a command tag this engine does not
// recognize.
func NewUnsupportedCommandError(cmd string) error {
	return &WireError{Reason: "unsupported_command", cause: fmt.Errorf("unrecognized command %q", cmd)}
}

// NewProcessingFailedError reports a recognized command that failed while
// being carried out (a bad argument shape, a compile error, a backend error).
func NewProcessingFailedError(err error) error {
	return &WireError{Reason: "processing_failed", cause: err}
}

// NewOutputError reports a response that could not be written back to the
// host, e.g. because it failed to serialize.
func NewOutputError(err error) error {
	return &WireError{Reason: "output_error", cause: err}
}
