package notifier

import "fmt"

// APIError is returned when the notifier API responds with a non-success status.
type APIError struct {
	StatusCode int
	Message    string
	// Kind is the email failure class for template sends, e.g. "send_timeout".
	Kind string
}

func (e *APIError) Error() string {
	if e.Kind != "" {
		return fmt.Sprintf("notifier: HTTP %d (%s): %s", e.StatusCode, e.Kind, e.Message)
	}
	return fmt.Sprintf("notifier: HTTP %d: %s", e.StatusCode, e.Message)
}
