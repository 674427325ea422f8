package email

import "context"

// Attachment is a file sent with a message. It is owned by the caller for
// the duration of one Send call and is not retained afterwards.
type Attachment struct {
	Filename    string `json:"filename"`
	Content     []byte `json:"content"`
	ContentType string `json:"contentType"`
}

// TemplateBody names a registered template and the data to render it with.
// It is used in place of literal HTML.
type TemplateBody struct {
	Name string         `json:"name"`
	Data map[string]any `json:"data"`
}

// Envelope holds the fields needed to send one message to one recipient.
type Envelope struct {
	To          string        `json:"to"`
	Subject     string        `json:"subject"`
	HTML        string        `json:"html"`
	Text        string        `json:"text"`
	Template    *TemplateBody `json:"template,omitempty"`
	Attachments []Attachment  `json:"attachments,omitempty"`
}

// Backend is one outbound transport. The Dispatcher picks the first backend
// in its list whose Configured reports true.
type Backend interface {
	Name() string
	Configured() bool
	// Send delivers env and returns the provider's message id, if any.
	Send(ctx context.Context, env Envelope) (string, error)
}
