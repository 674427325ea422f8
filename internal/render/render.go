package render

import (
	"bytes"
	"fmt"
	"html/template"
	"strconv"
	"strings"

	"github.com/bataryakit/notifier/internal/email"
	"github.com/bataryakit/notifier/internal/money"
	"github.com/bataryakit/notifier/internal/order"
)

const (
	DefaultAdminEmail = "admin@bataryakit.com"
	DefaultBrand      = "Batarya Kit"
	DefaultSiteURL    = "http://localhost:3000"
)

// Message is a rendered email ready for the transport.
type Message struct {
	To      string
	Subject string
	HTML    string
	Text    string
}

// ValidationError reports an event that cannot be rendered.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Renderer renders events with the storefront's branded layout. A Renderer
// holds no mutable state and is safe for concurrent use.
type Renderer struct {
	adminEmail string
	siteURL    string
	brand      string
	money      money.Formatter
}

type Option func(*Renderer)

func WithAdminEmail(addr string) Option {
	return func(r *Renderer) {
		if addr != "" {
			r.adminEmail = addr
		}
	}
}

func WithSiteURL(u string) Option {
	return func(r *Renderer) {
		if u != "" {
			r.siteURL = strings.TrimRight(u, "/")
		}
	}
}

func WithBrand(brand string) Option {
	return func(r *Renderer) {
		if brand != "" {
			r.brand = brand
		}
	}
}

func WithLocale(locale string) Option {
	return func(r *Renderer) { r.money = money.NewFormatter(locale) }
}

func New(opts ...Option) *Renderer {
	r := &Renderer{
		adminEmail: DefaultAdminEmail,
		siteURL:    DefaultSiteURL,
		brand:      DefaultBrand,
		money:      money.NewFormatter("tr"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Recipient returns the address ev would be sent to, without validating it.
func (r *Renderer) Recipient(ev Event) string {
	if ev.Kind().AdminFacing() {
		return r.adminEmail
	}
	switch e := ev.(type) {
	case OrderConfirmed:
		return e.Order.CustomerEmail
	case PaymentConfirmed:
		return e.Order.CustomerEmail
	case Shipped:
		return e.CustomerEmail
	case StatusChanged:
		return e.CustomerEmail
	case PaymentFailed:
		return e.CustomerEmail
	case RefundIssued:
		return e.CustomerEmail
	case RFQCustomerConfirmation:
		return e.RFQ.Email
	case QuoteReady:
		return e.RFQ.Email
	case InvoiceIssued:
		return e.CustomerEmail
	}
	return ""
}

// Render builds the message for ev. It performs no I/O and returns identical
// output for identical input.
func (r *Renderer) Render(ev Event) (Message, error) {
	if ev == nil {
		return Message{}, &ValidationError{Field: "event", Reason: "is required"}
	}

	to := strings.TrimSpace(r.Recipient(ev))
	if !email.ValidAddress(to) {
		return Message{}, &ValidationError{Field: "recipient", Reason: fmt.Sprintf("%q is not a valid email address", to)}
	}

	c, err := r.content(ev)
	if err != nil {
		return Message{}, err
	}
	c.Brand = r.brand
	c.SiteURL = r.siteURL

	var buf bytes.Buffer
	if err := layout.Execute(&buf, c); err != nil {
		return Message{}, fmt.Errorf("render %s: %w", ev.Kind(), err)
	}
	body := buf.String()

	return Message{
		To:      to,
		Subject: c.Subject,
		HTML:    body,
		Text:    PlainText(body),
	}, nil
}

type row struct {
	Label string
	Value string
}

type itemRow struct {
	Title    string
	Quantity string
	Unit     string
	Total    string
}

type link struct {
	Label string
	URL   string
}

type content struct {
	Subject    string
	Heading    string
	Paragraphs []string
	Rows       []row
	Items      []itemRow
	Totals     []row
	Action     *link
	Brand      string
	SiteURL    string
}

func required(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return &ValidationError{Field: field, Reason: "is required"}
	}
	return nil
}

func (r *Renderer) content(ev Event) (content, error) {
	switch e := ev.(type) {
	case OrderConfirmed:
		return r.orderConfirmed(e.Order)
	case AdminNewOrder:
		return r.adminNewOrder(e.Order)
	case Shipped:
		if err := required("orderId", e.OrderID); err != nil {
			return content{}, err
		}
		if err := required("trackingNumber", e.TrackingNumber); err != nil {
			return content{}, err
		}
		c := content{
			Subject:    fmt.Sprintf("Siparişiniz kargoya verildi - #%s", e.OrderID),
			Heading:    "Siparişiniz yolda",
			Paragraphs: []string{greeting(e.CustomerName), fmt.Sprintf("#%s numaralı siparişiniz kargoya verildi.", e.OrderID)},
			Rows: []row{
				{Label: "Kargo firması", Value: orDash(e.Carrier)},
				{Label: "Takip numarası", Value: e.TrackingNumber},
			},
		}
		if e.TrackingURL != "" {
			c.Action = &link{Label: "Kargomu takip et", URL: e.TrackingURL}
		}
		return c, nil
	case StatusChanged:
		if err := required("orderId", e.OrderID); err != nil {
			return content{}, err
		}
		if err := required("newStatus", e.NewStatus); err != nil {
			return content{}, err
		}
		c := content{
			Subject:    fmt.Sprintf("Sipariş durumu güncellendi - #%s", e.OrderID),
			Heading:    "Sipariş durumu güncellendi",
			Paragraphs: []string{greeting(e.CustomerName)},
			Rows:       []row{{Label: "Yeni durum", Value: statusLabel(e.NewStatus)}},
			Action:     r.orderLink(e.OrderID),
		}
		if e.OldStatus != "" {
			c.Rows = append([]row{{Label: "Önceki durum", Value: statusLabel(e.OldStatus)}}, c.Rows...)
		}
		return c, nil
	case PaymentConfirmed:
		if err := required("order.id", e.Order.ID); err != nil {
			return content{}, err
		}
		return content{
			Subject:    fmt.Sprintf("Ödemeniz alındı - #%s", e.Order.ID),
			Heading:    "Ödemeniz alındı",
			Paragraphs: []string{greeting(e.Order.CustomerName), fmt.Sprintf("#%s numaralı siparişinizin ödemesi onaylandı.", e.Order.ID)},
			Rows: []row{
				{Label: "Tutar", Value: r.money.Format(e.Order.Total, e.Order.Currency)},
				{Label: "Ödeme yöntemi", Value: orDash(e.Order.PaymentMethod)},
			},
			Action: r.orderLink(e.Order.ID),
		}, nil
	case PaymentFailed:
		if err := required("orderId", e.OrderID); err != nil {
			return content{}, err
		}
		return content{
			Subject:    fmt.Sprintf("Ödeme başarısız - #%s", e.OrderID),
			Heading:    "Ödemeniz tamamlanamadı",
			Paragraphs: []string{greeting(e.CustomerName), "Ödemeniz bankanız tarafından onaylanmadı. Lütfen bilgilerinizi kontrol edip tekrar deneyin."},
			Rows: []row{
				{Label: "Tutar", Value: r.money.Format(e.Amount, e.Currency)},
				{Label: "Sebep", Value: orDash(e.Reason)},
			},
			Action: r.orderLink(e.OrderID),
		}, nil
	case RefundIssued:
		if err := required("orderId", e.OrderID); err != nil {
			return content{}, err
		}
		return content{
			Subject:    fmt.Sprintf("İade işleminiz başlatıldı - #%s", e.OrderID),
			Heading:    "İade işleminiz başlatıldı",
			Paragraphs: []string{greeting(e.CustomerName), "İade tutarı 3-10 iş günü içinde hesabınıza yansıyacaktır."},
			Rows: []row{
				{Label: "İade tutarı", Value: r.money.Format(e.Amount, e.Currency)},
				{Label: "Sebep", Value: orDash(e.Reason)},
			},
		}, nil
	case LowStock:
		if err := required("sku", e.SKU); err != nil {
			return content{}, err
		}
		return content{
			Subject: fmt.Sprintf("Düşük stok uyarısı: %s", e.SKU),
			Heading: "Düşük stok uyarısı",
			Rows: []row{
				{Label: "Ürün", Value: orDash(e.Title)},
				{Label: "SKU", Value: e.SKU},
				{Label: "Kalan stok", Value: strconv.Itoa(e.Stock)},
				{Label: "Eşik", Value: strconv.Itoa(e.Threshold)},
			},
		}, nil
	case SystemError:
		if err := required("message", e.Message); err != nil {
			return content{}, err
		}
		c := content{
			Subject:    fmt.Sprintf("Sistem hatası: %s", orDash(e.Source)),
			Heading:    "Sistem hatası",
			Paragraphs: []string{e.Message},
			Rows:       []row{{Label: "Kaynak", Value: orDash(e.Source)}},
		}
		if e.OrderID != "" {
			c.Rows = append(c.Rows, row{Label: "Sipariş", Value: "#" + e.OrderID})
		}
		if !e.OccurredAt.IsZero() {
			c.Rows = append(c.Rows, row{Label: "Zaman", Value: e.OccurredAt.UTC().Format("2006-01-02 15:04:05 UTC")})
		}
		return c, nil
	case RFQAdminNotice:
		if err := required("rfq.id", e.RFQ.ID); err != nil {
			return content{}, err
		}
		c := content{
			Subject: fmt.Sprintf("Yeni teklif talebi - %s", orDash(firstNonEmpty(e.RFQ.CompanyName, e.RFQ.ContactName))),
			Heading: "Yeni teklif talebi",
			Rows: []row{
				{Label: "Talep no", Value: e.RFQ.ID},
				{Label: "Firma", Value: orDash(e.RFQ.CompanyName)},
				{Label: "İletişim", Value: orDash(e.RFQ.ContactName)},
				{Label: "E-posta", Value: orDash(e.RFQ.Email)},
				{Label: "Telefon", Value: orDash(e.RFQ.Phone)},
			},
			Items: rfqItems(e.RFQ.Items),
		}
		if e.RFQ.Message != "" {
			c.Paragraphs = []string{e.RFQ.Message}
		}
		return c, nil
	case RFQCustomerConfirmation:
		if err := required("rfq.id", e.RFQ.ID); err != nil {
			return content{}, err
		}
		return content{
			Subject:    fmt.Sprintf("Teklif talebiniz alındı - %s", e.RFQ.ID),
			Heading:    "Teklif talebiniz alındı",
			Paragraphs: []string{greeting(e.RFQ.ContactName), "Talebinizi aldık. Satış ekibimiz en kısa sürede size dönüş yapacaktır."},
			Items:      rfqItems(e.RFQ.Items),
		}, nil
	case QuoteReady:
		if err := required("rfq.id", e.RFQ.ID); err != nil {
			return content{}, err
		}
		quoteURL := e.QuoteURL
		if quoteURL == "" {
			quoteURL = r.siteURL + "/quotes/" + e.RFQ.ID
		}
		c := content{
			Subject:    fmt.Sprintf("Teklifiniz hazır - %s", e.RFQ.ID),
			Heading:    "Teklifiniz hazır",
			Paragraphs: []string{greeting(e.RFQ.ContactName), "Talebiniz için hazırladığımız teklifi aşağıda bulabilirsiniz."},
			Items:      rfqItems(e.RFQ.Items),
			Totals:     []row{{Label: "Teklif tutarı", Value: r.money.Format(e.Total, e.Currency)}},
			Action:     &link{Label: "Teklifi görüntüle", URL: quoteURL},
		}
		if !e.ValidUntil.IsZero() {
			c.Rows = []row{{Label: "Geçerlilik", Value: e.ValidUntil.UTC().Format("02.01.2006")}}
		}
		return c, nil
	case InvoiceIssued:
		if err := required("orderId", e.OrderID); err != nil {
			return content{}, err
		}
		c := content{
			Subject:    fmt.Sprintf("Faturanız - #%s", e.OrderID),
			Heading:    "Faturanız hazır",
			Paragraphs: []string{greeting(e.CustomerName), fmt.Sprintf("#%s numaralı siparişinizin faturası ektedir.", e.OrderID)},
			Totals:     []row{{Label: "Toplam", Value: r.money.Format(e.Total, e.Currency)}},
		}
		if e.InvoiceURL != "" {
			c.Action = &link{Label: "Faturayı indir", URL: e.InvoiceURL}
		}
		return c, nil
	}
	return content{}, &ValidationError{Field: "kind", Reason: fmt.Sprintf("unsupported event %T", ev)}
}

func (r *Renderer) orderConfirmed(o order.Order) (content, error) {
	if err := required("order.id", o.ID); err != nil {
		return content{}, err
	}
	return content{
		Subject:    fmt.Sprintf("Siparişiniz alındı - #%s", o.ID),
		Heading:    "Siparişiniz için teşekkürler",
		Paragraphs: []string{greeting(o.CustomerName), fmt.Sprintf("#%s numaralı siparişiniz alındı ve hazırlanıyor.", o.ID)},
		Items:      r.orderItems(o),
		Totals:     r.orderTotals(o),
		Action:     r.orderLink(o.ID),
	}, nil
}

func (r *Renderer) adminNewOrder(o order.Order) (content, error) {
	if err := required("order.id", o.ID); err != nil {
		return content{}, err
	}
	return content{
		Subject: fmt.Sprintf("Yeni sipariş - #%s", o.ID),
		Heading: "Yeni sipariş",
		Rows: []row{
			{Label: "Müşteri", Value: orDash(o.CustomerName)},
			{Label: "E-posta", Value: orDash(o.CustomerEmail)},
			{Label: "Telefon", Value: orDash(o.CustomerPhone)},
			{Label: "Firma", Value: orDash(o.Company)},
			{Label: "Adres", Value: orDash(formatAddress(o.Shipping))},
			{Label: "Ödeme", Value: orDash(o.PaymentMethod)},
		},
		Items:  r.orderItems(o),
		Totals: r.orderTotals(o),
		Action: &link{Label: "Siparişi yönet", URL: r.siteURL + "/admin/orders/" + o.ID},
	}, nil
}

func (r *Renderer) orderItems(o order.Order) []itemRow {
	items := make([]itemRow, 0, len(o.Lines))
	for _, l := range o.Lines {
		items = append(items, itemRow{
			Title:    l.Title,
			Quantity: strconv.Itoa(l.Quantity),
			Unit:     r.money.Format(l.UnitPrice, o.Currency),
			Total:    r.money.Format(l.Total(), o.Currency),
		})
	}
	return items
}

func (r *Renderer) orderTotals(o order.Order) []row {
	totals := []row{
		{Label: "Ara toplam", Value: r.money.Format(o.Subtotal, o.Currency)},
		{Label: "KDV", Value: r.money.Format(o.Tax, o.Currency)},
		{Label: "Kargo", Value: r.money.Format(o.ShippingCost, o.Currency)},
	}
	if o.Discount > 0 {
		totals = append(totals, row{Label: "İndirim", Value: "-" + r.money.Format(o.Discount, o.Currency)})
	}
	return append(totals, row{Label: "Toplam", Value: r.money.Format(o.Total, o.Currency)})
}

func (r *Renderer) orderLink(orderID string) *link {
	return &link{Label: "Siparişimi görüntüle", URL: r.siteURL + "/account/orders/" + orderID}
}

func rfqItems(items []RFQItem) []itemRow {
	rows := make([]itemRow, 0, len(items))
	for _, it := range items {
		rows = append(rows, itemRow{Title: it.Title, Quantity: strconv.Itoa(it.Quantity)})
	}
	return rows
}

var statusLabels = map[string]string{
	"pending":    "Beklemede",
	"processing": "Hazırlanıyor",
	"shipped":    "Kargoda",
	"delivered":  "Teslim edildi",
	"cancelled":  "İptal edildi",
	"refunded":   "İade edildi",
}

func statusLabel(s string) string {
	if label, ok := statusLabels[strings.ToLower(s)]; ok {
		return label
	}
	return s
}

func greeting(name string) string {
	if strings.TrimSpace(name) == "" {
		return "Merhaba,"
	}
	return fmt.Sprintf("Merhaba %s,", name)
}

func formatAddress(a order.Address) string {
	parts := make([]string, 0, 5)
	for _, p := range []string{a.Line1, a.District, a.City, a.PostalCode, a.Country} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

var layout = template.Must(template.New("layout").Parse(`<!DOCTYPE html>
<html lang="tr">
<head>
<meta charset="utf-8">
<title>{{.Subject}}</title>
</head>
<body style="margin:0;padding:0;background:#f4f4f5;font-family:Arial,Helvetica,sans-serif;color:#18181b;">
<div style="max-width:600px;margin:0 auto;background:#ffffff;">
<div style="background:#0f766e;color:#ffffff;padding:20px 24px;">
<h1 style="margin:0;font-size:22px;">{{.Brand}}</h1>
</div>
<div style="padding:24px;">
<h2 style="margin-top:0;font-size:18px;">{{.Heading}}</h2>
{{range .Paragraphs}}<p>{{.}}</p>
{{end}}{{if .Rows}}<table style="width:100%;border-collapse:collapse;margin:16px 0;">
{{range .Rows}}<tr><th style="text-align:left;padding:6px;border-bottom:1px solid #e4e4e7;">{{.Label}}</th><td style="padding:6px;border-bottom:1px solid #e4e4e7;">{{.Value}}</td></tr>
{{end}}</table>
{{end}}{{if .Items}}<table style="width:100%;border-collapse:collapse;margin:16px 0;">
<tr><th style="text-align:left;padding:6px;">Ürün</th><th style="padding:6px;">Adet</th><th style="padding:6px;">Birim</th><th style="padding:6px;">Tutar</th></tr>
{{range .Items}}<tr><td style="padding:6px;">{{.Title}}</td><td style="padding:6px;text-align:center;">{{.Quantity}}</td><td style="padding:6px;text-align:right;">{{.Unit}}</td><td style="padding:6px;text-align:right;">{{.Total}}</td></tr>
{{end}}</table>
{{end}}{{if .Totals}}<table style="width:100%;border-collapse:collapse;margin:16px 0;">
{{range .Totals}}<tr><td style="padding:4px 6px;text-align:right;">{{.Label}}</td><td style="padding:4px 6px;text-align:right;width:140px;"><strong>{{.Value}}</strong></td></tr>
{{end}}</table>
{{end}}{{with .Action}}<p style="margin:24px 0;"><a href="{{.URL}}" style="background:#0f766e;color:#ffffff;padding:10px 18px;text-decoration:none;border-radius:4px;">{{.Label}}</a></p>
{{end}}</div>
<div style="padding:16px 24px;font-size:12px;color:#71717a;border-top:1px solid #e4e4e7;">
<p>{{.Brand}} &middot; <a href="{{.SiteURL}}" style="color:#71717a;">{{.SiteURL}}</a></p>
</div>
</div>
</body>
</html>
`))
