package email_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/bataryakit/notifier/internal/email"
)

// stubBackend implements email.Backend for dispatcher tests.
type stubBackend struct {
	name       string
	configured bool
	calls      atomic.Int32
	sendFn     func(ctx context.Context, env email.Envelope) (string, error)
}

func (s *stubBackend) Name() string     { return s.name }
func (s *stubBackend) Configured() bool { return s.configured }
func (s *stubBackend) Send(ctx context.Context, env email.Envelope) (string, error) {
	s.calls.Add(1)
	if s.sendFn != nil {
		return s.sendFn(ctx, env)
	}
	return s.name + "-id", nil
}

var _ email.Backend = (*stubBackend)(nil)

func envelope() email.Envelope {
	return email.Envelope{To: "ada@example.com", Subject: "Hi", HTML: "<p>Hi</p>", Text: "Hi"}
}

func TestDispatcher_PrefersSMTPWhenBothConfigured(t *testing.T) {
	smtp := &stubBackend{name: "smtp", configured: true}
	resend := &stubBackend{name: "resend", configured: true}
	d := email.NewDispatcher([]email.Backend{smtp, resend})

	id, err := d.Send(context.Background(), envelope())
	require.NoError(t, err)

	assert.Equal(t, "smtp-id", id)
	assert.EqualValues(t, 1, smtp.calls.Load())
	assert.EqualValues(t, 0, resend.calls.Load())
}

func TestDispatcher_FallsBackToHostedAPI(t *testing.T) {
	smtp := &stubBackend{name: "smtp"}
	resend := &stubBackend{name: "resend", configured: true}
	d := email.NewDispatcher([]email.Backend{smtp, resend})

	id, err := d.Send(context.Background(), envelope())
	require.NoError(t, err)
	assert.Equal(t, "resend-id", id)
	assert.EqualValues(t, 0, smtp.calls.Load())
}

func TestDispatcher_NotConfigured(t *testing.T) {
	smtp := &stubBackend{name: "smtp"}
	resend := &stubBackend{name: "resend"}
	d := email.NewDispatcher([]email.Backend{smtp, resend})

	_, err := d.Send(context.Background(), envelope())

	require.Error(t, err)
	assert.Equal(t, email.KindNotConfigured, email.KindOf(err))
	assert.ErrorIs(t, err, email.ErrNotConfigured)
	assert.Equal(t, "No email service configured", err.Error())
	assert.EqualValues(t, 0, smtp.calls.Load()+resend.calls.Load())
}

func TestDispatcher_RejectsInvalidRecipientBeforeBackend(t *testing.T) {
	smtp := &stubBackend{name: "smtp", configured: true}
	d := email.NewDispatcher([]email.Backend{smtp})

	for _, to := range []string{"", "ada", "ada@example", "ada @example.com", "@example.com"} {
		env := envelope()
		env.To = to
		_, err := d.Send(context.Background(), env)
		assert.Equal(t, email.KindValidation, email.KindOf(err), to)
	}
	assert.EqualValues(t, 0, smtp.calls.Load())
}

func TestDispatcher_StalledBackendTimesOut(t *testing.T) {
	release := make(chan struct{})
	defer close(release)
	stalled := &stubBackend{
		name:       "smtp",
		configured: true,
		sendFn: func(_ context.Context, _ email.Envelope) (string, error) {
			<-release // ignores ctx on purpose
			return "late", nil
		},
	}
	deadline := 100 * time.Millisecond
	d := email.NewDispatcher([]email.Backend{stalled}, email.WithSendTimeout(deadline))

	start := time.Now()
	_, err := d.Send(context.Background(), envelope())
	elapsed := time.Since(start)

	require.Error(t, err)
	assert.Equal(t, email.KindTimeout, email.KindOf(err))
	assert.Less(t, elapsed, deadline+200*time.Millisecond)
}

func TestDispatcher_ParentCancellation(t *testing.T) {
	blocking := &stubBackend{
		name:       "smtp",
		configured: true,
		sendFn: func(ctx context.Context, _ email.Envelope) (string, error) {
			<-ctx.Done()
			return "", ctx.Err()
		},
	}
	d := email.NewDispatcher([]email.Backend{blocking})

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(20*time.Millisecond, cancel)

	_, err := d.Send(ctx, envelope())
	assert.Equal(t, email.KindCanceled, email.KindOf(err))
}

func TestDispatcher_ProviderRejectionPassesThrough(t *testing.T) {
	failing := &stubBackend{
		name:       "resend",
		configured: true,
		sendFn: func(_ context.Context, _ email.Envelope) (string, error) {
			return "", &email.SendError{Kind: email.KindProviderRejected, Backend: "resend", Message: "quota exceeded"}
		},
	}
	core, logs := observer.New(zap.ErrorLevel)
	d := email.NewDispatcher([]email.Backend{failing}, email.WithLogger(zap.New(core)))

	_, err := d.Send(context.Background(), envelope())

	assert.Equal(t, email.KindProviderRejected, email.KindOf(err))
	assert.Contains(t, err.Error(), "quota exceeded")
	assert.Equal(t, 1, logs.FilterMessage("email send failed").Len())
}

func TestDispatcher_PlainErrorBecomesProviderRejected(t *testing.T) {
	failing := &stubBackend{
		name:       "smtp",
		configured: true,
		sendFn: func(_ context.Context, _ email.Envelope) (string, error) {
			return "", errors.New("535 authentication failed")
		},
	}
	d := email.NewDispatcher([]email.Backend{failing})

	_, err := d.Send(context.Background(), envelope())
	assert.Equal(t, email.KindProviderRejected, email.KindOf(err))
}

func TestDispatcher_RendersTemplateBody(t *testing.T) {
	var got email.Envelope
	backend := &stubBackend{
		name:       "smtp",
		configured: true,
		sendFn: func(_ context.Context, env email.Envelope) (string, error) {
			got = env
			return "id", nil
		},
	}
	d := email.NewDispatcher([]email.Backend{backend})

	_, err := d.Send(context.Background(), email.Envelope{
		To: "ada@example.com",
		Template: &email.TemplateBody{
			Name: "back_in_stock",
			Data: map[string]any{"Name": "Ada", "Product": "18650 Pack", "URL": "https://shop.example.com/p/1"},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, "18650 Pack is back in stock", got.Subject)
	assert.Contains(t, got.HTML, "<strong>18650 Pack</strong>")
	assert.Contains(t, got.Text, "Hello Ada")
	assert.Nil(t, got.Template)
}

func TestDispatcher_TemplateRenderTimeout(t *testing.T) {
	backend := &stubBackend{name: "smtp", configured: true}
	slow := func(_ email.TemplateDefinition, _ map[string]any) (email.RenderedTemplate, error) {
		time.Sleep(500 * time.Millisecond)
		return email.RenderedTemplate{}, nil
	}
	d := email.NewDispatcher([]email.Backend{backend},
		email.WithRenderTimeout(50*time.Millisecond),
		email.WithTemplateRenderer(slow),
	)

	start := time.Now()
	_, err := d.Send(context.Background(), email.Envelope{
		To:       "ada@example.com",
		Template: &email.TemplateBody{Name: "contact_reply"},
	})

	assert.Equal(t, email.KindRenderTimeout, email.KindOf(err))
	assert.Less(t, time.Since(start), 300*time.Millisecond)
	assert.EqualValues(t, 0, backend.calls.Load())
}

func TestDispatcher_UnknownTemplate(t *testing.T) {
	d := email.NewDispatcher([]email.Backend{&stubBackend{name: "smtp", configured: true}})

	_, err := d.Send(context.Background(), email.Envelope{
		To:       "ada@example.com",
		Template: &email.TemplateBody{Name: "nope"},
	})
	assert.Equal(t, email.KindValidation, email.KindOf(err))
}

type closingBackend struct {
	stubBackend
	closed bool
}

func (c *closingBackend) Close() error {
	c.closed = true
	return nil
}

func TestDispatcher_CloseClosesBackends(t *testing.T) {
	b := &closingBackend{stubBackend: stubBackend{name: "smtp"}}
	d := email.NewDispatcher([]email.Backend{b})

	require.NoError(t, d.Close())
	assert.True(t, b.closed)
}

func TestValidAddress(t *testing.T) {
	assert.True(t, email.ValidAddress("ada@example.com"))
	assert.True(t, email.ValidAddress("a.b+c@mail.example.co.uk"))
	assert.False(t, email.ValidAddress("ada@localhost"))
	assert.False(t, email.ValidAddress("ada@@example.com"))
	assert.False(t, email.ValidAddress("ada example@x.com"))
}

func TestValidateTemplate(t *testing.T) {
	for name, def := range email.DefaultTemplates {
		assert.NoError(t, email.ValidateTemplate(def), name)
	}
	assert.Error(t, email.ValidateTemplate(email.TemplateDefinition{Subject: "{{.Broken"}))
}
