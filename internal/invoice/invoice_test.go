package invoice_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"regexp"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bataryakit/notifier/internal/invoice"
	"github.com/bataryakit/notifier/internal/order"
)

var keywordsRe = regexp.MustCompile(`/Keywords \(line-items:(\d+)\)`)

func declaredItems(t *testing.T, pdf []byte) int {
	t.Helper()
	m := keywordsRe.FindSubmatch(pdf)
	require.NotNil(t, m, "pdf has no line-items keyword")
	n, err := strconv.Atoi(string(m[1]))
	require.NoError(t, err)
	return n
}

func fixedClock() time.Time { return time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC) }

func newGenerator() *invoice.Generator {
	return invoice.NewGenerator(invoice.Company{
		Name:    "Batarya Kit",
		Address: "Kadıköy, İstanbul",
		TaxID:   "1234567890",
		Phone:   "+90 216 000 00 00",
		Email:   "info@bataryakit.com",
	}, invoice.WithClock(fixedClock))
}

func adaDocument() map[string]any {
	return map[string]any{
		"customer": map[string]any{"name": "Ada", "email": "ada@example.com"},
		"pricing": map[string]any{
			"subtotal": 100.0, "tax": 20.0, "shipping": 10.0, "total": 130.0,
			"items": []any{
				map[string]any{"sku": "X1", "title": "Pack", "qty": 1.0, "unitPrice": 100.0, "total": 100.0},
			},
		},
	}
}

func TestFromDocument_Ada(t *testing.T) {
	rec := invoice.FromDocument(adaDocument())

	assert.Equal(t, "Ada", rec.Customer.Name)
	assert.Equal(t, "ada@example.com", rec.Customer.Email)
	assert.Equal(t, 100.0, rec.Pricing.Subtotal)
	assert.Equal(t, 20.0, rec.Pricing.Tax)
	assert.Equal(t, 10.0, rec.Pricing.Shipping)
	assert.Equal(t, 130.0, rec.Pricing.Total)
	require.Len(t, rec.Pricing.Items, 1)
	assert.Equal(t, invoice.LineItem{SKU: "X1", Title: "Pack", Quantity: 1, UnitPrice: 100, LineTotal: 100}, rec.Pricing.Items[0])
}

func TestFromDocument_AlternateKeysAndCoercion(t *testing.T) {
	doc := map[string]any{
		"customerName":  "Grace",
		"customerEmail": "grace@example.com",
		"currency":      "USD",
		"subtotal":      "42.5",
		"total":         json.Number("50"),
		"items": []any{
			map[string]any{"name": "Cell", "quantity": 3, "price": "2.5"},
			map[string]any{"title": "BMS", "qty": 2.9, "unitPrice": 10, "lineTotal": 15},
			"garbage",
			map[string]any{"title": "Neg", "qty": -4, "price": -1},
		},
	}
	rec := invoice.FromDocument(doc)

	assert.Equal(t, "Grace", rec.Customer.Name)
	assert.Equal(t, "grace@example.com", rec.Customer.Email)
	assert.Equal(t, "USD", rec.Pricing.Currency)
	assert.Equal(t, 42.5, rec.Pricing.Subtotal)
	assert.Equal(t, 50.0, rec.Pricing.Total)
	require.Len(t, rec.Pricing.Items, 3)

	assert.Equal(t, invoice.LineItem{Title: "Cell", Quantity: 3, UnitPrice: 2.5, LineTotal: 7.5}, rec.Pricing.Items[0])
	assert.Equal(t, invoice.LineItem{Title: "BMS", Quantity: 2, UnitPrice: 10, LineTotal: 15}, rec.Pricing.Items[1])
	assert.Equal(t, invoice.LineItem{Title: "Neg"}, rec.Pricing.Items[2])
}

func TestFromDocument_Total(t *testing.T) {
	inputs := []map[string]any{
		nil,
		{},
		{"customer": "not a map", "pricing": 12, "items": "nope"},
		{"pricing": map[string]any{"items": []any{nil, 1, map[string]any{"qty": "x"}}}},
		{"customer": map[string]any{"address": map[string]any{"city": 34}}},
	}
	for _, in := range inputs {
		assert.NotPanics(t, func() { invoice.FromDocument(in) })
	}
}

func TestFromDocument_NestedAddressAndBilling(t *testing.T) {
	rec := invoice.FromDocument(map[string]any{
		"customer": map[string]any{
			"name":    "Ada",
			"address": map[string]any{"line1": "Bağdat Cd. 1", "city": "İstanbul", "district": "Kadıköy"},
			"billing": map[string]any{"companyName": "Acme", "taxNumber": "987", "taxOffice": "Kadıköy"},
		},
	})
	assert.Equal(t, "Bağdat Cd. 1", rec.Customer.Address)
	assert.Equal(t, "İstanbul", rec.Customer.City)
	assert.Equal(t, "Acme", rec.Customer.Company)
	assert.Equal(t, "987", rec.Customer.TaxID)
	assert.Equal(t, "Kadıköy", rec.Customer.TaxOffice)
}

func TestFromOrder(t *testing.T) {
	override := 15.0
	o := order.Order{
		ID:            "ORD-1",
		CustomerName:  "Ada",
		CustomerEmail: "ada@example.com",
		Shipping:      order.Address{Line1: "Ship St", City: "Ankara"},
		Billing:       &order.Address{Line1: "Bill St", City: "İzmir"},
		Lines: []order.Line{
			{SKU: "A", Title: "Pack", Quantity: 2, UnitPrice: 50},
			{SKU: "B", Title: "BMS", Quantity: 3, UnitPrice: 10, LineTotal: &override},
			{SKU: "C", Title: "Bad", Quantity: -1, UnitPrice: -5},
		},
		Subtotal: 115, Tax: 23, ShippingCost: 10, Total: 148,
		Status: "paid",
	}
	rec := invoice.FromOrder(o)

	assert.Equal(t, "Bill St", rec.Customer.Address)
	assert.Equal(t, "İzmir", rec.Customer.City)
	assert.Equal(t, "paid", rec.Status)
	require.Len(t, rec.Pricing.Items, 3)
	assert.Equal(t, 100.0, rec.Pricing.Items[0].LineTotal)
	assert.Equal(t, 15.0, rec.Pricing.Items[1].LineTotal)
	assert.Equal(t, invoice.LineItem{SKU: "C", Title: "Bad"}, rec.Pricing.Items[2])
	assert.Equal(t, 148.0, rec.Pricing.Total)
}

func TestGenerate_RoundTripItemCount(t *testing.T) {
	g := newGenerator()

	fromDoc := invoice.FromDocument(adaDocument())
	fromOrder := invoice.FromOrder(order.Order{
		ID:            "ORD-2",
		CustomerName:  "Şükrü Ağaoğlu",
		CustomerEmail: "sukru@example.com",
		Lines: []order.Line{
			{SKU: "A", Title: "Lityum İyon Pil", Quantity: 4, UnitPrice: 25},
			{SKU: "B", Title: "Şarj Cihazı", Quantity: 1, UnitPrice: 300},
		},
		Subtotal: 400, Tax: 80, Total: 480,
	})

	for name, rec := range map[string]invoice.Record{"document": fromDoc, "order": fromOrder} {
		t.Run(name, func(t *testing.T) {
			pdf, err := g.Generate("INV-1", rec)
			require.NoError(t, err)
			require.NotEmpty(t, pdf)
			assert.True(t, bytes.HasPrefix(pdf, []byte("%PDF-")))
			assert.Equal(t, len(rec.Pricing.Items), declaredItems(t, pdf))
		})
	}
}

func TestGenerate_EmptyRecord(t *testing.T) {
	pdf, err := newGenerator().Generate("INV-0", invoice.Record{})
	require.NoError(t, err)
	assert.Equal(t, 0, declaredItems(t, pdf))
}

func TestGenerate_UnrenderableGlyph(t *testing.T) {
	rec := invoice.FromDocument(adaDocument())
	rec.Customer.Name = "李雷"

	pdf, err := newGenerator().Generate("INV-2", rec)

	assert.Nil(t, pdf)
	var rErr *invoice.RenderError
	require.True(t, errors.As(err, &rErr))
	assert.Equal(t, "INV-2", rErr.InvoiceID)
}

func TestGenerate_RequiresID(t *testing.T) {
	_, err := newGenerator().Generate(" ", invoice.Record{})
	var rErr *invoice.RenderError
	assert.ErrorAs(t, err, &rErr)
}
