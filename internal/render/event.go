// Package render turns notification events into email messages.
package render

import (
	"time"

	"github.com/bataryakit/notifier/internal/order"
)

// Kind identifies a notification event.
type Kind string

const (
	KindOrderConfirmed          Kind = "order_confirmed"
	KindAdminNewOrder           Kind = "admin_new_order"
	KindShipped                 Kind = "shipped"
	KindStatusChanged           Kind = "status_changed"
	KindPaymentConfirmed        Kind = "payment_confirmed"
	KindPaymentFailed           Kind = "payment_failed"
	KindRefundIssued            Kind = "refund_issued"
	KindLowStock                Kind = "low_stock"
	KindSystemError             Kind = "system_error"
	KindRFQAdminNotice          Kind = "rfq_admin_notice"
	KindRFQCustomerConfirmation Kind = "rfq_customer_confirmation"
	KindQuoteReady              Kind = "quote_ready"
	KindInvoiceIssued           Kind = "invoice_issued"
)

// Kinds lists every event kind in a stable order.
var Kinds = []Kind{
	KindOrderConfirmed,
	KindAdminNewOrder,
	KindShipped,
	KindStatusChanged,
	KindPaymentConfirmed,
	KindPaymentFailed,
	KindRefundIssued,
	KindLowStock,
	KindSystemError,
	KindRFQAdminNotice,
	KindRFQCustomerConfirmation,
	KindQuoteReady,
	KindInvoiceIssued,
}

// AdminFacing reports whether events of kind k go to the admin mailbox.
func (k Kind) AdminFacing() bool {
	switch k {
	case KindAdminNewOrder, KindLowStock, KindSystemError, KindRFQAdminNotice:
		return true
	}
	return false
}

// Event is one business event. Implementations are plain values and are
// never mutated after construction.
type Event interface {
	Kind() Kind
}

type OrderConfirmed struct {
	Order order.Order `json:"order"`
	// AttachInvoice asks the orchestrator to attach a PDF invoice.
	AttachInvoice bool `json:"attachInvoice,omitempty"`
}

type AdminNewOrder struct {
	Order order.Order `json:"order"`
}

type Shipped struct {
	OrderID        string `json:"orderId"`
	CustomerName   string `json:"customerName"`
	CustomerEmail  string `json:"customerEmail"`
	Carrier        string `json:"carrier,omitempty"`
	TrackingNumber string `json:"trackingNumber"`
	TrackingURL    string `json:"trackingUrl,omitempty"`
}

type StatusChanged struct {
	OrderID       string `json:"orderId"`
	CustomerName  string `json:"customerName"`
	CustomerEmail string `json:"customerEmail"`
	OldStatus     string `json:"oldStatus,omitempty"`
	NewStatus     string `json:"newStatus"`
}

type PaymentConfirmed struct {
	Order         order.Order `json:"order"`
	AttachInvoice bool        `json:"attachInvoice,omitempty"`
}

type PaymentFailed struct {
	OrderID       string  `json:"orderId"`
	CustomerName  string  `json:"customerName"`
	CustomerEmail string  `json:"customerEmail"`
	Amount        float64 `json:"amount"`
	Currency      string  `json:"currency,omitempty"`
	Reason        string  `json:"reason,omitempty"`
}

type RefundIssued struct {
	OrderID       string  `json:"orderId"`
	CustomerName  string  `json:"customerName"`
	CustomerEmail string  `json:"customerEmail"`
	Amount        float64 `json:"amount"`
	Currency      string  `json:"currency,omitempty"`
	Reason        string  `json:"reason,omitempty"`
}

type LowStock struct {
	SKU       string `json:"sku"`
	Title     string `json:"title"`
	Stock     int    `json:"stock"`
	Threshold int    `json:"threshold"`
}

type SystemError struct {
	Source     string    `json:"source"`
	Message    string    `json:"message"`
	OrderID    string    `json:"orderId,omitempty"`
	OccurredAt time.Time `json:"occurredAt"`
}

// RFQItem is one product line of a request for quotation.
type RFQItem struct {
	SKU      string `json:"sku,omitempty"`
	Title    string `json:"title"`
	Quantity int    `json:"quantity"`
}

// RFQ is a B2B request for quotation.
type RFQ struct {
	ID          string    `json:"id"`
	CompanyName string    `json:"companyName,omitempty"`
	ContactName string    `json:"contactName"`
	Email       string    `json:"email"`
	Phone       string    `json:"phone,omitempty"`
	Message     string    `json:"message,omitempty"`
	Items       []RFQItem `json:"items"`
}

type RFQAdminNotice struct {
	RFQ RFQ `json:"rfq"`
}

type RFQCustomerConfirmation struct {
	RFQ RFQ `json:"rfq"`
}

type QuoteReady struct {
	RFQ        RFQ       `json:"rfq"`
	Total      float64   `json:"total"`
	Currency   string    `json:"currency,omitempty"`
	ValidUntil time.Time `json:"validUntil,omitempty"`
	QuoteURL   string    `json:"quoteUrl,omitempty"`
}

// InvoiceIssued announces an invoice for an order; the PDF itself is attached
// by the orchestrator.
type InvoiceIssued struct {
	OrderID       string  `json:"orderId"`
	CustomerName  string  `json:"customerName"`
	CustomerEmail string  `json:"customerEmail"`
	Total         float64 `json:"total"`
	Currency      string  `json:"currency,omitempty"`
	InvoiceURL    string  `json:"invoiceUrl,omitempty"`
}

func (OrderConfirmed) Kind() Kind          { return KindOrderConfirmed }
func (AdminNewOrder) Kind() Kind           { return KindAdminNewOrder }
func (Shipped) Kind() Kind                 { return KindShipped }
func (StatusChanged) Kind() Kind           { return KindStatusChanged }
func (PaymentConfirmed) Kind() Kind        { return KindPaymentConfirmed }
func (PaymentFailed) Kind() Kind           { return KindPaymentFailed }
func (RefundIssued) Kind() Kind            { return KindRefundIssued }
func (LowStock) Kind() Kind                { return KindLowStock }
func (SystemError) Kind() Kind             { return KindSystemError }
func (RFQAdminNotice) Kind() Kind          { return KindRFQAdminNotice }
func (RFQCustomerConfirmation) Kind() Kind { return KindRFQCustomerConfirmation }
func (QuoteReady) Kind() Kind              { return KindQuoteReady }
func (InvoiceIssued) Kind() Kind           { return KindInvoiceIssued }
