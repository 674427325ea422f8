package email

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Kind classifies a failed send.
type Kind string

const (
	KindValidation       Kind = "validation"
	KindNotConfigured    Kind = "not_configured"
	KindRenderTimeout    Kind = "render_timeout"
	KindTimeout          Kind = "send_timeout"
	KindCanceled         Kind = "canceled"
	KindProviderRejected Kind = "provider_rejected"
)

// ErrNotConfigured matches (via errors.Is) any SendError of KindNotConfigured.
var ErrNotConfigured = errors.New("No email service configured")

// SendError is returned by the Dispatcher and the backends.
type SendError struct {
	Kind    Kind
	Backend string
	Message string
	Elapsed time.Duration
	Cause   error
}

func (e *SendError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Kind == KindNotConfigured {
		return ErrNotConfigured.Error()
	}

	parts := make([]string, 0, 4)
	if e.Backend != "" {
		parts = append(parts, e.Backend)
	}
	parts = append(parts, string(e.Kind))
	if msg := strings.TrimSpace(e.Message); msg != "" {
		parts = append(parts, msg)
	}
	if e.Elapsed > 0 {
		parts = append(parts, fmt.Sprintf("after %s", e.Elapsed.Round(time.Millisecond)))
	}
	if e.Cause != nil {
		parts = append(parts, e.Cause.Error())
	}
	return strings.Join(parts, ": ")
}

func (e *SendError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

func (e *SendError) Is(target error) bool {
	return e != nil && e.Kind == KindNotConfigured && target == ErrNotConfigured
}

// KindOf returns the Kind of err, or "" when err is not a SendError.
func KindOf(err error) Kind {
	var sendErr *SendError
	if errors.As(err, &sendErr) {
		return sendErr.Kind
	}
	return ""
}

func rejected(backend, message string, cause error) *SendError {
	return &SendError{Kind: KindProviderRejected, Backend: backend, Message: message, Cause: cause}
}
