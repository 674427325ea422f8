package email

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

const (
	defaultResendEndpoint = "https://api.resend.com/emails"
	defaultResendTimeout  = 30 * time.Second

	// ResendPlaceholderKey is the demo key shipped in sample env files; it
	// never counts as configured.
	ResendPlaceholderKey = "re_demo"
)

// ResendConfig holds credentials for the Resend HTTP API.
type ResendConfig struct {
	APIKey   string
	From     string
	Endpoint string
	Timeout  time.Duration
}

type resendAttachment struct {
	Filename string `json:"filename"`
	Content  string `json:"content"`
}

type resendRequest struct {
	From        string             `json:"from"`
	To          []string           `json:"to"`
	Subject     string             `json:"subject"`
	HTML        string             `json:"html,omitempty"`
	Text        string             `json:"text,omitempty"`
	Attachments []resendAttachment `json:"attachments,omitempty"`
}

type resendResponse struct {
	ID string `json:"id"`
}

type resendErrorBody struct {
	Name       string `json:"name"`
	Message    string `json:"message"`
	StatusCode int    `json:"statusCode"`
}

// ResendBackend sends mail via the Resend email API.
type ResendBackend struct {
	cfg    ResendConfig
	client *resty.Client
}

func NewResendBackend(cfg ResendConfig) *ResendBackend {
	client := resty.New()
	client.SetRetryCount(0)
	return NewResendBackendWithClient(cfg, client)
}

func NewResendBackendWithClient(cfg ResendConfig, client *resty.Client) *ResendBackend {
	if cfg.Endpoint == "" {
		cfg.Endpoint = defaultResendEndpoint
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultResendTimeout
	}
	if client.GetClient().Timeout == 0 {
		client.SetTimeout(cfg.Timeout)
	}
	client.SetRetryCount(0)
	return &ResendBackend{cfg: cfg, client: client}
}

func (p *ResendBackend) Name() string { return "resend" }

// Configured reports whether a real (non-placeholder) API key is set.
func (p *ResendBackend) Configured() bool {
	key := strings.TrimSpace(p.cfg.APIKey)
	return key != "" && key != ResendPlaceholderKey
}

func (p *ResendBackend) Send(ctx context.Context, env Envelope) (string, error) {
	payload := resendRequest{
		From:    p.cfg.From,
		To:      []string{env.To},
		Subject: env.Subject,
		HTML:    env.HTML,
		Text:    env.Text,
	}
	for _, a := range env.Attachments {
		payload.Attachments = append(payload.Attachments, resendAttachment{
			Filename: a.Filename,
			Content:  base64.StdEncoding.EncodeToString(a.Content),
		})
	}

	var result resendResponse
	var apiErr resendErrorBody
	resp, err := p.client.R().
		SetContext(ctx).
		SetAuthToken(p.cfg.APIKey).
		SetHeader("Content-Type", "application/json").
		SetBody(payload).
		SetResult(&result).
		SetError(&apiErr).
		Post(p.cfg.Endpoint)
	if err != nil {
		switch {
		case errors.Is(err, context.DeadlineExceeded):
			return "", &SendError{Kind: KindTimeout, Backend: p.Name(), Message: "request", Cause: err}
		case errors.Is(err, context.Canceled):
			return "", &SendError{Kind: KindCanceled, Backend: p.Name(), Message: "request", Cause: err}
		}
		return "", rejected(p.Name(), "request failed", err)
	}

	status := resp.StatusCode()
	if status < http.StatusOK || status >= http.StatusMultipleChoices {
		msg := strings.TrimSpace(apiErr.Message)
		if msg == "" {
			msg = fmt.Sprintf("provider returned status %d", status)
		}
		return "", rejected(p.Name(), msg, nil)
	}
	return result.ID, nil
}
