package recognizer

import "fmt"

// ErrorKind identifies the failure mode of a recognizer call.
type ErrorKind string

const (
	KindAPIConnectionFailed ErrorKind = "ApiConnectionFailed"
	KindTimeout             ErrorKind = "Timeout"
	KindInvalidResponse     ErrorKind = "InvalidResponse"
	KindNoPlateDetected     ErrorKind = "NoPlateDetected"
	KindParseError          ErrorKind = "ParseError"
)

// Error is a recognizer failure tagged retryable or terminal.
// The retry orchestrator branches on the tag, not on the error type:
// connection failures and timeouts are transient, while malformed
// responses and undetected plates cannot succeed unchanged.
type Error struct {
	Kind      ErrorKind
	Retryable bool
	Message   string
	Err       error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// IsRetryable implements retry.Classifier.
func (e *Error) IsRetryable() bool { return e.Retryable }

func connectionFailed(message string, err error) *Error {
	return &Error{Kind: KindAPIConnectionFailed, Retryable: true, Message: message, Err: err}
}

func timeout(message string, err error) *Error {
	return &Error{Kind: KindTimeout, Retryable: true, Message: message, Err: err}
}

func invalidResponse(message string) *Error {
	return &Error{Kind: KindInvalidResponse, Retryable: false, Message: message}
}

func noPlateDetected(message string) *Error {
	return &Error{Kind: KindNoPlateDetected, Retryable: false, Message: message}
}

func parseError(message string, err error) *Error {
	return &Error{Kind: KindParseError, Retryable: false, Message: message, Err: err}
}
