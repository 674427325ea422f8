package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/bataryakit/notifier/internal/email"
	"github.com/bataryakit/notifier/internal/invoice"
	"github.com/bataryakit/notifier/internal/notify"
	"github.com/bataryakit/notifier/internal/observability"
	"github.com/bataryakit/notifier/internal/order"
	"github.com/bataryakit/notifier/internal/render"
)

// Notifier is the orchestrator surface the handlers call.
type Notifier interface {
	Notify(ctx context.Context, ev render.Event) notify.Result
	NotifyOrderPlaced(ctx context.Context, o order.Order, attachInvoice bool) notify.OrderResults
	SendInvoiceNotification(ctx context.Context, orderID string, rec invoice.Record, to string) notify.Result
}

// Uploader is the storage surface the upload handlers call.
type Uploader interface {
	Upload(ctx context.Context, category string, data []byte, filename string) (string, error)
	Delete(ctx context.Context, url string) bool
	FileSize(ctx context.Context, url string) int64
}

// Mailer sends a raw or templated envelope.
type Mailer interface {
	Send(ctx context.Context, env email.Envelope) (string, error)
}

type Handler struct {
	notifier Notifier
	orders   order.Store
	uploads  Uploader
	mailer   Mailer
	logger   *zap.Logger
}

func NewHandler(n Notifier, orders order.Store, uploads Uploader, mailer Mailer, logger *zap.Logger) *Handler {
	return &Handler{
		notifier: n,
		orders:   orders,
		uploads:  uploads,
		mailer:   mailer,
		logger:   observability.OrNop(logger),
	}
}

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Notify decodes a {kind, payload} event and runs it through the pipeline.
// Delivery failures are reported in the body with status 200; only malformed
// requests are HTTP errors.
func (h *Handler) Notify(c *gin.Context) {
	var body struct {
		Kind    string          `json:"kind" binding:"required"`
		Payload json.RawMessage `json:"payload" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ev, err := render.DecodeEvent(body.Kind, body.Payload)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, h.notifier.Notify(c.Request.Context(), ev))
}

// NotifyOrder sends the customer confirmation and admin notice for a stored
// order.
func (h *Handler) NotifyOrder(c *gin.Context) {
	var body struct {
		AttachInvoice bool `json:"attachInvoice"`
	}
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&body); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	o, ok := h.loadOrder(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, h.notifier.NotifyOrderPlaced(c.Request.Context(), o, body.AttachInvoice))
}

// SendInvoice emails the invoice for an order. The body may carry a
// document-store invoice record and a recipient; without a record the stored
// order is used.
func (h *Handler) SendInvoice(c *gin.Context) {
	var body struct {
		Email  string         `json:"email"`
		Record map[string]any `json:"record"`
	}
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&body); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	orderID := c.Param("id")
	var rec invoice.Record
	if body.Record != nil {
		rec = invoice.FromDocument(body.Record)
	} else {
		o, ok := h.loadOrder(c)
		if !ok {
			return
		}
		rec = invoice.FromOrder(o)
	}

	c.JSON(http.StatusOK, h.notifier.SendInvoiceNotification(c.Request.Context(), orderID, rec, body.Email))
}

func (h *Handler) loadOrder(c *gin.Context) (order.Order, bool) {
	id := c.Param("id")
	o, err := h.orders.GetOrder(c.Request.Context(), id)
	if errors.Is(err, order.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "order not found"})
		return order.Order{}, false
	}
	if err != nil {
		h.logger.Error("load order failed", zap.String("orderId", id), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load order"})
		return order.Order{}, false
	}
	return o, true
}
