// Package notify runs business events through rendering, invoicing and
// delivery. It is the only layer that turns delivery errors into results;
// nothing it calls can fail the caller's business flow.
package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/bataryakit/notifier/internal/email"
	"github.com/bataryakit/notifier/internal/invoice"
	"github.com/bataryakit/notifier/internal/observability"
	"github.com/bataryakit/notifier/internal/order"
	"github.com/bataryakit/notifier/internal/render"
	"github.com/bataryakit/notifier/internal/storage"
)

const DefaultUploadTimeout = 15 * time.Second

// ArchivePolicy decides what a failed invoice upload means for delivery.
type ArchivePolicy int

const (
	// ArchiveBestEffort logs a failed upload and sends anyway with the PDF
	// attached inline. A missing durable URL is an accepted degradation.
	ArchiveBestEffort ArchivePolicy = iota
	// ArchiveRequired fails the notification when the upload fails.
	ArchiveRequired
)

// Renderer builds messages from events.
type Renderer interface {
	Render(ev render.Event) (render.Message, error)
}

// Sender delivers a message; *email.Dispatcher is the production Sender.
type Sender interface {
	Send(ctx context.Context, env email.Envelope) (string, error)
}

// PDFGenerator renders invoice records.
type PDFGenerator interface {
	Generate(invoiceID string, rec invoice.Record) ([]byte, error)
}

// Archiver persists generated invoices; *storage.Uploader is the production
// Archiver.
type Archiver interface {
	Upload(ctx context.Context, category string, data []byte, filename string) (string, error)
}

// Result is the outcome of one notification.
type Result struct {
	Sent       bool   `json:"sent"`
	MessageID  string `json:"messageId,omitempty"`
	InvoiceURL string `json:"invoiceUrl,omitempty"`
	Error      string `json:"error,omitempty"`
	// Degraded is set when an intended attachment was left out.
	Degraded bool `json:"degraded,omitempty"`
}

// OrderResults holds the two notifications sent for a new order.
type OrderResults struct {
	Customer Result `json:"customer"`
	Admin    Result `json:"admin"`
}

type Notifier struct {
	renderer      Renderer
	sender        Sender
	pdf           PDFGenerator
	archive       Archiver
	archivePolicy ArchivePolicy
	uploadTimeout time.Duration
	logger        *zap.Logger
	metrics       *observability.Metrics
}

type Option func(*Notifier)

func WithPDFGenerator(g PDFGenerator) Option {
	return func(n *Notifier) { n.pdf = g }
}

func WithArchiver(a Archiver) Option {
	return func(n *Notifier) { n.archive = a }
}

func WithArchivePolicy(p ArchivePolicy) Option {
	return func(n *Notifier) { n.archivePolicy = p }
}

func WithUploadTimeout(d time.Duration) Option {
	return func(n *Notifier) {
		if d > 0 {
			n.uploadTimeout = d
		}
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(n *Notifier) { n.logger = observability.OrNop(logger) }
}

func WithMetrics(m *observability.Metrics) Option {
	return func(n *Notifier) { n.metrics = m }
}

func New(renderer Renderer, sender Sender, opts ...Option) *Notifier {
	n := &Notifier{
		renderer:      renderer,
		sender:        sender,
		archivePolicy: ArchiveBestEffort,
		uploadTimeout: DefaultUploadTimeout,
		logger:        zap.NewNop(),
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Notify renders ev, attaches an invoice when the event asks for one and
// sends the message once. It never panics and never retries.
func (n *Notifier) Notify(ctx context.Context, ev render.Event) (res Result) {
	kind := "unknown"
	if ev != nil {
		kind = string(ev.Kind())
	}
	defer n.observe(kind, &res)
	defer n.recoverInto(kind, &res)

	msg, err := n.renderer.Render(ev)
	if err != nil {
		n.logger.Warn("notification not rendered", zap.String("kind", kind), zap.Error(err))
		return Result{Error: err.Error()}
	}

	orderID, rec, wantInvoice := invoiceFor(ev)
	if !wantInvoice {
		return n.dispatch(ctx, kind, msg, nil, Result{})
	}

	att, res, err := n.invoiceAttachment(ctx, orderID, rec)
	if err != nil {
		return res
	}
	return n.dispatch(ctx, kind, msg, att, res)
}

// SendInvoiceNotification emails the invoice for orderID to to, or to the
// record's customer when to is empty. The PDF is attached when it can be
// generated; a generation failure degrades to a plain notification.
func (n *Notifier) SendInvoiceNotification(ctx context.Context, orderID string, rec invoice.Record, to string) (res Result) {
	kind := string(render.KindInvoiceIssued)
	defer n.observe(kind, &res)
	defer n.recoverInto(kind, &res)

	if to == "" {
		to = rec.Customer.Email
	}
	ev := render.InvoiceIssued{
		OrderID:       orderID,
		CustomerName:  rec.Customer.Name,
		CustomerEmail: to,
		Total:         rec.Pricing.Total,
		Currency:      rec.Pricing.Currency,
	}
	msg, err := n.renderer.Render(ev)
	if err != nil {
		n.logger.Warn("invoice notification not rendered", zap.String("orderId", orderID), zap.Error(err))
		return Result{Error: err.Error()}
	}

	att, res, err := n.invoiceAttachment(ctx, orderID, rec)
	if err != nil {
		return res
	}
	if res.InvoiceURL != "" {
		// Re-render so the message links to the archived copy.
		ev.InvoiceURL = res.InvoiceURL
		if withLink, err := n.renderer.Render(ev); err == nil {
			msg = withLink
		}
	}
	return n.dispatch(ctx, kind, msg, att, res)
}

// NotifyOrderPlaced sends the customer confirmation and the admin notice for
// o concurrently. Neither result affects the other.
func (n *Notifier) NotifyOrderPlaced(ctx context.Context, o order.Order, attachInvoice bool) OrderResults {
	var (
		out OrderResults
		g   errgroup.Group
	)
	g.Go(func() error {
		out.Customer = n.Notify(ctx, render.OrderConfirmed{Order: o, AttachInvoice: attachInvoice})
		return nil
	})
	g.Go(func() error {
		out.Admin = n.Notify(ctx, render.AdminNewOrder{Order: o})
		return nil
	})
	_ = g.Wait()
	return out
}

func invoiceFor(ev render.Event) (string, invoice.Record, bool) {
	switch e := ev.(type) {
	case render.OrderConfirmed:
		if e.AttachInvoice {
			return e.Order.ID, invoice.FromOrder(e.Order), true
		}
	case render.PaymentConfirmed:
		if e.AttachInvoice {
			return e.Order.ID, invoice.FromOrder(e.Order), true
		}
	}
	return "", invoice.Record{}, false
}

// invoiceAttachment generates and archives the invoice PDF. PDF failures
// degrade the result; archive failures follow the archive policy. A non-nil
// error means the notification must not be sent.
func (n *Notifier) invoiceAttachment(ctx context.Context, orderID string, rec invoice.Record) ([]email.Attachment, Result, error) {
	var res Result
	log := n.logger.With(zap.String("orderId", orderID))

	if n.pdf == nil {
		log.Warn("no invoice generator configured, sending without attachment")
		n.metrics.ObserveDegraded("pdf_unavailable")
		res.Degraded = true
		return nil, res, nil
	}

	pdf, err := n.pdf.Generate(orderID, rec)
	if err != nil {
		log.Warn("invoice pdf generation failed, sending without attachment", zap.Error(err))
		n.metrics.ObserveDegraded("pdf_failed")
		res.Degraded = true
		return nil, res, nil
	}
	att := []email.Attachment{{
		Filename:    "invoice-" + orderID + ".pdf",
		Content:     pdf,
		ContentType: "application/pdf",
	}}

	if n.archive == nil {
		return att, res, nil
	}

	uploadCtx, cancel := context.WithTimeout(ctx, n.uploadTimeout)
	defer cancel()
	url, err := n.archive.Upload(uploadCtx, string(storage.CategoryInvoices), pdf, orderID+".pdf")
	if err != nil {
		if n.archivePolicy == ArchiveRequired {
			log.Error("invoice upload failed, notification dropped", zap.Error(err))
			res.Error = err.Error()
			return nil, res, err
		}
		log.Warn("invoice upload failed, attaching pdf inline only", zap.Error(err))
		n.metrics.ObserveDegraded("archive_failed")
		return att, res, nil
	}
	res.InvoiceURL = url
	return att, res, nil
}

func (n *Notifier) dispatch(ctx context.Context, kind string, msg render.Message, att []email.Attachment, res Result) Result {
	id, err := n.sender.Send(ctx, email.Envelope{
		To:          msg.To,
		Subject:     msg.Subject,
		HTML:        msg.HTML,
		Text:        msg.Text,
		Attachments: att,
	})
	if err != nil {
		res.Error = describe(err)
		n.logger.Error("notification not delivered",
			zap.String("kind", kind),
			zap.String("to", msg.To),
			zap.String("errorKind", string(email.KindOf(err))),
			zap.Error(err),
		)
		return res
	}

	res.Sent = true
	res.MessageID = id
	n.logger.Info("notification delivered",
		zap.String("kind", kind),
		zap.String("to", msg.To),
		zap.String("messageId", id),
		zap.Bool("degraded", res.Degraded),
	)
	return res
}

func describe(err error) string {
	if errors.Is(err, email.ErrNotConfigured) {
		return email.ErrNotConfigured.Error()
	}
	return err.Error()
}

func (n *Notifier) recoverInto(kind string, res *Result) {
	if r := recover(); r != nil {
		n.logger.Error("notification panicked", zap.String("kind", kind), zap.Any("panic", r), zap.Stack("stack"))
		*res = Result{Error: fmt.Sprintf("internal error: %v", r)}
	}
}

func (n *Notifier) observe(kind string, res *Result) {
	outcome := "failed"
	if res.Sent {
		outcome = "sent"
	}
	n.metrics.ObserveNotification(kind, outcome)
}
