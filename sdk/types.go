package notifier

// HealthResponse is returned by the /healthz endpoint.
type HealthResponse struct {
	Status string `json:"status"`
}

// --- Notifications ---

// Event kinds accepted by POST /notifications.
const (
	KindOrderConfirmed          = "order_confirmed"
	KindAdminNewOrder           = "admin_new_order"
	KindShipped                 = "shipped"
	KindStatusChanged           = "status_changed"
	KindPaymentConfirmed        = "payment_confirmed"
	KindPaymentFailed           = "payment_failed"
	KindRefundIssued            = "refund_issued"
	KindLowStock                = "low_stock"
	KindSystemError             = "system_error"
	KindRFQAdminNotice          = "rfq_admin_notice"
	KindRFQCustomerConfirmation = "rfq_customer_confirmation"
	KindQuoteReady              = "quote_ready"
	KindInvoiceIssued           = "invoice_issued"
)

// Result is the outcome of one notification. Delivery failures are reported
// here with Sent false, not as an error.
type Result struct {
	Sent       bool   `json:"sent"`
	MessageID  string `json:"messageId,omitempty"`
	InvoiceURL string `json:"invoiceUrl,omitempty"`
	Error      string `json:"error,omitempty"`
	Degraded   bool   `json:"degraded,omitempty"`
}

// OrderResults holds the customer and admin outcomes for a new order.
type OrderResults struct {
	Customer Result `json:"customer"`
	Admin    Result `json:"admin"`
}

type notificationRequest struct {
	Kind    string `json:"kind"`
	Payload any    `json:"payload"`
}

type notifyOrderRequest struct {
	AttachInvoice bool `json:"attachInvoice"`
}

// SendInvoiceRequest overrides the stored order for an invoice send. Record is
// an invoice document in any of the shapes the server accepts; leave it nil
// to use the stored order.
type SendInvoiceRequest struct {
	Email  string         `json:"email,omitempty"`
	Record map[string]any `json:"record,omitempty"`
}

// --- Emails ---

// TemplateListItem is one entry from GET /emails/templates.
type TemplateListItem struct {
	Name    string `json:"name"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
	HTML    string `json:"html"`
}

// SendTemplateRequest sends a built-in template.
type SendTemplateRequest struct {
	Template  string         `json:"template"`
	To        string         `json:"to"`
	Subject   string         `json:"subject,omitempty"`
	Variables map[string]any `json:"variables,omitempty"`
}

// SendTemplateResponse is returned by POST /emails/template.
type SendTemplateResponse struct {
	Status    string `json:"status"`
	MessageID string `json:"messageId"`
}

// --- Uploads ---

// UploadResponse is returned by POST /uploads/:category.
type UploadResponse struct {
	URL  string `json:"url"`
	Size int    `json:"size"`
}

type deleteResponse struct {
	Deleted bool `json:"deleted"`
}

type sizeResponse struct {
	Size int64 `json:"size"`
}
