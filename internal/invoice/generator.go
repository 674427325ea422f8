package invoice

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"

	"github.com/bataryakit/notifier/internal/money"
)

// RenderError is returned when an invoice cannot be laid out. Callers treat
// it as recoverable and send without the PDF.
type RenderError struct {
	InvoiceID string
	Err       error
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("render invoice %s: %v", e.InvoiceID, e.Err)
}

func (e *RenderError) Unwrap() error { return e.Err }

// Company is the invoice letterhead.
type Company struct {
	Name    string
	Address string
	TaxID   string
	Phone   string
	Email   string
}

// Generator renders Records as A4 PDF invoices using the PDF core fonts.
// It does no I/O and is safe for concurrent use.
type Generator struct {
	company Company
	money   money.Formatter
	now     func() time.Time
}

type GeneratorOption func(*Generator)

func WithLocale(locale string) GeneratorOption {
	return func(g *Generator) { g.money = money.NewFormatter(locale) }
}

// WithClock sets the source of the invoice and document dates.
func WithClock(now func() time.Time) GeneratorOption {
	return func(g *Generator) {
		if now != nil {
			g.now = now
		}
	}
}

func NewGenerator(company Company, opts ...GeneratorOption) *Generator {
	g := &Generator{
		company: company,
		money:   money.NewFormatter("tr"),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// KeywordsFor is the metadata keyword that declares the number of line items
// in a generated invoice.
func KeywordsFor(rec Record) string {
	return fmt.Sprintf("line-items:%d", len(rec.Pricing.Items))
}

// Turkish letters outside Windows-1252; the rest of the alphabet is covered.
var transliterate = strings.NewReplacer(
	"ş", "s", "Ş", "S",
	"ğ", "g", "Ğ", "G",
	"ı", "i", "İ", "I",
)

// textEncoder converts UTF-8 to the core fonts' Windows-1252 encoding and
// remembers the first rune it could not encode.
type textEncoder struct {
	enc *encoding.Encoder
	err error
}

func (t *textEncoder) text(s string) string {
	out, err := t.enc.String(transliterate.Replace(s))
	if err != nil {
		if t.err == nil {
			t.err = fmt.Errorf("unencodable text %q: %w", s, err)
		}
		return ""
	}
	return out
}

const (
	colSKU   = 28.0
	colTitle = 72.0
	colQty   = 20.0
	colUnit  = 35.0
	colTotal = 35.0
	lineH    = 7.0
)

// Generate lays out rec as a PDF and returns its bytes.
func (g *Generator) Generate(invoiceID string, rec Record) (out []byte, err error) {
	defer func() {
		if r := recover(); r != nil {
			out = nil
			err = &RenderError{InvoiceID: invoiceID, Err: fmt.Errorf("layout: %v", r)}
		}
	}()

	if strings.TrimSpace(invoiceID) == "" {
		return nil, &RenderError{Err: fmt.Errorf("invoice id is required")}
	}

	t := &textEncoder{enc: charmap.Windows1252.NewEncoder()}
	cur := rec.Pricing.Currency
	now := g.now()

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(10, 12, 10)
	pdf.SetAutoPageBreak(true, 15)
	pdf.SetCreationDate(now)
	pdf.SetModificationDate(now)
	pdf.SetTitle(t.text("Fatura "+invoiceID), false)
	pdf.SetAuthor(t.text(g.company.Name), false)
	pdf.SetCreator("bataryakit-notifier", false)
	pdf.SetKeywords(KeywordsFor(rec), false)
	pdf.AddPage()

	// Letterhead.
	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(120, 8, t.text(g.company.Name), "", 0, "L", false, 0, "")
	pdf.SetFont("Helvetica", "B", 18)
	pdf.CellFormat(70, 8, "FATURA", "", 1, "R", false, 0, "")
	pdf.SetFont("Helvetica", "", 9)
	for _, line := range []string{
		g.company.Address,
		labeled("Vergi No", g.company.TaxID),
		labeled("Tel", g.company.Phone),
		g.company.Email,
	} {
		if line != "" {
			pdf.CellFormat(120, 5, t.text(line), "", 1, "L", false, 0, "")
		}
	}
	pdf.Ln(2)
	pdf.CellFormat(0, 5, t.text("Fatura No: "+invoiceID), "", 1, "R", false, 0, "")
	pdf.CellFormat(0, 5, t.text("Tarih: "+now.Format("02.01.2006")), "", 1, "R", false, 0, "")
	if rec.Status != "" {
		pdf.CellFormat(0, 5, t.text("Durum: "+rec.Status), "", 1, "R", false, 0, "")
	}
	pdf.Ln(4)

	// Customer.
	c := rec.Customer
	pdf.SetFont("Helvetica", "B", 11)
	pdf.CellFormat(0, 6, t.text("Sayın"), "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	for _, line := range []string{
		c.Name,
		c.Company,
		joinNonEmpty(", ", c.Address, c.District, c.City, c.PostalCode, c.Country),
		joinNonEmpty(" / ", labeled("Vergi Dairesi", c.TaxOffice), labeled("Vergi No", c.TaxID)),
		c.Email,
		c.Phone,
	} {
		if line != "" {
			pdf.CellFormat(0, 5, t.text(line), "", 1, "L", false, 0, "")
		}
	}
	pdf.Ln(6)

	// Items.
	pdf.SetFont("Helvetica", "B", 10)
	pdf.SetFillColor(230, 240, 238)
	pdf.CellFormat(colSKU, lineH, "SKU", "1", 0, "L", true, 0, "")
	pdf.CellFormat(colTitle, lineH, t.text("Ürün"), "1", 0, "L", true, 0, "")
	pdf.CellFormat(colQty, lineH, "Adet", "1", 0, "C", true, 0, "")
	pdf.CellFormat(colUnit, lineH, "Birim Fiyat", "1", 0, "R", true, 0, "")
	pdf.CellFormat(colTotal, lineH, "Tutar", "1", 1, "R", true, 0, "")

	pdf.SetFont("Helvetica", "", 9)
	for _, it := range rec.Pricing.Items {
		pdf.CellFormat(colSKU, lineH, t.text(clip(it.SKU, 14)), "1", 0, "L", false, 0, "")
		pdf.CellFormat(colTitle, lineH, t.text(clip(it.Title, 40)), "1", 0, "L", false, 0, "")
		pdf.CellFormat(colQty, lineH, fmt.Sprintf("%d", it.Quantity), "1", 0, "C", false, 0, "")
		pdf.CellFormat(colUnit, lineH, t.text(g.money.Format(it.UnitPrice, cur)), "1", 0, "R", false, 0, "")
		pdf.CellFormat(colTotal, lineH, t.text(g.money.Format(it.LineTotal, cur)), "1", 1, "R", false, 0, "")
	}
	pdf.Ln(4)

	// Totals.
	totals := [][2]string{
		{"Ara Toplam", g.money.Format(rec.Pricing.Subtotal, cur)},
		{"KDV", g.money.Format(rec.Pricing.Tax, cur)},
		{"Kargo", g.money.Format(rec.Pricing.Shipping, cur)},
	}
	if rec.Pricing.Discount > 0 {
		totals = append(totals, [2]string{"İndirim", "-" + g.money.Format(rec.Pricing.Discount, cur)})
	}
	totals = append(totals, [2]string{"Genel Toplam", g.money.Format(rec.Pricing.Total, cur)})

	labelW := colSKU + colTitle + colQty + colUnit
	for i, row := range totals {
		style := ""
		if i == len(totals)-1 {
			style = "B"
		}
		pdf.SetFont("Helvetica", style, 10)
		pdf.CellFormat(labelW, 6, t.text(row[0]), "", 0, "R", false, 0, "")
		pdf.CellFormat(colTotal, 6, t.text(row[1]), "", 1, "R", false, 0, "")
	}

	pdf.Ln(10)
	pdf.SetFont("Helvetica", "I", 8)
	pdf.CellFormat(0, 5, t.text("Bu belge elektronik ortamda oluşturulmuştur."), "", 1, "C", false, 0, "")

	if t.err != nil {
		return nil, &RenderError{InvoiceID: invoiceID, Err: t.err}
	}
	if pdf.Err() {
		return nil, &RenderError{InvoiceID: invoiceID, Err: pdf.Error()}
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, &RenderError{InvoiceID: invoiceID, Err: err}
	}
	return buf.Bytes(), nil
}

func labeled(label, value string) string {
	if strings.TrimSpace(value) == "" {
		return ""
	}
	return label + ": " + value
}

func joinNonEmpty(sep string, parts ...string) string {
	kept := parts[:0:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, sep)
}

func clip(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
