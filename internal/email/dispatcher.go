package email

import (
	"context"
	"errors"
	"io"
	"time"

	"go.uber.org/zap"

	"github.com/bataryakit/notifier/internal/observability"
)

const (
	DefaultSendTimeout   = 30 * time.Second
	DefaultRenderTimeout = 5 * time.Second
)

// TemplateRenderFunc renders a structured template body.
type TemplateRenderFunc func(def TemplateDefinition, vars map[string]any) (RenderedTemplate, error)

// Dispatcher sends envelopes through the first configured Backend. Selection
// happens on every call; no message ids are cached, so a retried timeout may
// deliver twice.
type Dispatcher struct {
	backends      []Backend
	templates     map[string]TemplateDefinition
	renderFn      TemplateRenderFunc
	sendTimeout   time.Duration
	renderTimeout time.Duration
	logger        *zap.Logger
	metrics       *observability.Metrics
}

type DispatcherOption func(*Dispatcher)

func WithSendTimeout(d time.Duration) DispatcherOption {
	return func(x *Dispatcher) {
		if d > 0 {
			x.sendTimeout = d
		}
	}
}

func WithRenderTimeout(d time.Duration) DispatcherOption {
	return func(x *Dispatcher) {
		if d > 0 {
			x.renderTimeout = d
		}
	}
}

func WithTemplates(templates map[string]TemplateDefinition) DispatcherOption {
	return func(x *Dispatcher) { x.templates = templates }
}

func WithTemplateRenderer(fn TemplateRenderFunc) DispatcherOption {
	return func(x *Dispatcher) { x.renderFn = fn }
}

func WithLogger(logger *zap.Logger) DispatcherOption {
	return func(x *Dispatcher) { x.logger = observability.OrNop(logger) }
}

func WithMetrics(m *observability.Metrics) DispatcherOption {
	return func(x *Dispatcher) { x.metrics = m }
}

// NewDispatcher builds a Dispatcher over backends in precedence order.
func NewDispatcher(backends []Backend, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		backends:      backends,
		templates:     DefaultTemplates,
		renderFn:      RenderTemplate,
		sendTimeout:   DefaultSendTimeout,
		renderTimeout: DefaultRenderTimeout,
		logger:        zap.NewNop(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Active returns the backend that would serve a send right now.
func (d *Dispatcher) Active() (Backend, bool) {
	for _, b := range d.backends {
		if b.Configured() {
			return b, true
		}
	}
	return nil, false
}

type sendResult struct {
	id  string
	err error
}

// Send validates env, selects a backend and delivers env within the send
// deadline. It returns the provider message id or a *SendError.
func (d *Dispatcher) Send(ctx context.Context, env Envelope) (string, error) {
	if !ValidAddress(env.To) {
		return "", &SendError{Kind: KindValidation, Message: "invalid recipient address " + env.To}
	}

	backend, ok := d.Active()
	if !ok {
		d.logger.Warn("no email backend configured", zap.String("to", env.To))
		return "", &SendError{Kind: KindNotConfigured}
	}

	if env.Template != nil {
		rendered, err := d.renderTemplate(ctx, *env.Template)
		if err != nil {
			return "", err
		}
		if env.Subject == "" {
			env.Subject = rendered.Subject
		}
		env.HTML = rendered.HTML
		env.Text = rendered.Body
		env.Template = nil
	}

	sendCtx, cancel := context.WithTimeout(ctx, d.sendTimeout)
	defer cancel()

	start := time.Now()
	done := make(chan sendResult, 1)
	go func() {
		id, err := backend.Send(sendCtx, env)
		done <- sendResult{id: id, err: err}
	}()

	var res sendResult
	select {
	case res = <-done:
	case <-sendCtx.Done():
		res = sendResult{err: sendCtx.Err()}
	}
	elapsed := time.Since(start)
	d.metrics.ObserveSend(backend.Name(), elapsed)

	if res.err != nil {
		err := d.classify(ctx, backend.Name(), res.err, elapsed)
		d.metrics.ObserveSendFailure(backend.Name(), string(KindOf(err)))
		d.logger.Error("email send failed",
			zap.String("backend", backend.Name()),
			zap.String("to", env.To),
			zap.Duration("elapsed", elapsed),
			zap.Error(err),
		)
		return "", err
	}

	d.logger.Info("email sent",
		zap.String("backend", backend.Name()),
		zap.String("to", env.To),
		zap.String("messageId", res.id),
		zap.Int("attachments", len(env.Attachments)),
		zap.Duration("elapsed", elapsed),
	)
	return res.id, nil
}

// Close releases cached backend resources such as the SMTP pool.
func (d *Dispatcher) Close() error {
	var errs []error
	for _, b := range d.backends {
		if c, ok := b.(io.Closer); ok {
			if err := c.Close(); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

func (d *Dispatcher) classify(parent context.Context, backend string, err error, elapsed time.Duration) error {
	var sendErr *SendError
	if errors.As(err, &sendErr) {
		if sendErr.Elapsed == 0 {
			sendErr.Elapsed = elapsed
		}
		return sendErr
	}
	if errors.Is(err, context.Canceled) || errors.Is(parent.Err(), context.Canceled) {
		return &SendError{Kind: KindCanceled, Backend: backend, Elapsed: elapsed, Cause: err}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &SendError{Kind: KindTimeout, Backend: backend, Elapsed: elapsed, Cause: err}
	}
	return &SendError{Kind: KindProviderRejected, Backend: backend, Elapsed: elapsed, Cause: err}
}

// renderTemplate runs the template in its own goroutine bounded by the render
// deadline. On timeout the render is abandoned, not interrupted: it finishes
// in the background and its result is dropped. Rendering has no side effects,
// so nothing is sent twice.
func (d *Dispatcher) renderTemplate(ctx context.Context, body TemplateBody) (RenderedTemplate, error) {
	def, ok := d.templates[body.Name]
	if !ok {
		return RenderedTemplate{}, &SendError{Kind: KindValidation, Message: "unknown template " + body.Name}
	}

	renderCtx, cancel := context.WithTimeout(ctx, d.renderTimeout)
	defer cancel()

	type renderResult struct {
		out RenderedTemplate
		err error
	}
	start := time.Now()
	done := make(chan renderResult, 1)
	go func() {
		out, err := d.renderFn(def, body.Data)
		done <- renderResult{out: out, err: err}
	}()

	select {
	case r := <-done:
		if r.err != nil {
			return RenderedTemplate{}, &SendError{Kind: KindValidation, Message: "render template " + body.Name, Cause: r.err}
		}
		return r.out, nil
	case <-renderCtx.Done():
		elapsed := time.Since(start)
		d.logger.Warn("template render timed out",
			zap.String("template", body.Name),
			zap.Duration("elapsed", elapsed),
		)
		if errors.Is(ctx.Err(), context.Canceled) {
			return RenderedTemplate{}, &SendError{Kind: KindCanceled, Message: "render " + body.Name, Elapsed: elapsed, Cause: ctx.Err()}
		}
		return RenderedTemplate{}, &SendError{Kind: KindRenderTimeout, Message: "render " + body.Name, Elapsed: elapsed, Cause: renderCtx.Err()}
	}
}
