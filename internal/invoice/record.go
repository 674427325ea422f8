// Package invoice normalizes order data into invoice records and renders
// them as PDF documents.
package invoice

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/bataryakit/notifier/internal/order"
)

// Customer is the billed party.
type Customer struct {
	Name       string `json:"name"`
	Email      string `json:"email"`
	Phone      string `json:"phone,omitempty"`
	Address    string `json:"address,omitempty"`
	City       string `json:"city,omitempty"`
	District   string `json:"district,omitempty"`
	PostalCode string `json:"postalCode,omitempty"`
	Country    string `json:"country,omitempty"`
	Company    string `json:"company,omitempty"`
	TaxID      string `json:"taxId,omitempty"`
	TaxOffice  string `json:"taxOffice,omitempty"`
}

// LineItem is one invoiced product. Quantity and amounts are never negative.
type LineItem struct {
	SKU       string  `json:"sku"`
	Title     string  `json:"title"`
	Quantity  int     `json:"quantity"`
	UnitPrice float64 `json:"unitPrice"`
	LineTotal float64 `json:"lineTotal"`
}

type Pricing struct {
	Subtotal float64    `json:"subtotal"`
	Tax      float64    `json:"tax"`
	Shipping float64    `json:"shipping"`
	Discount float64    `json:"discount,omitempty"`
	Total    float64    `json:"total"`
	Currency string     `json:"currency,omitempty"`
	Items    []LineItem `json:"items"`
}

// Record is the single normalized shape every invoice is built from.
type Record struct {
	Customer Customer `json:"customer"`
	Pricing  Pricing  `json:"pricing"`
	Status   string   `json:"status,omitempty"`
}

// FromOrder maps an order with its lines into a Record. The billing address
// is used when present, otherwise the shipping address.
func FromOrder(o order.Order) Record {
	addr := o.Shipping
	if o.Billing != nil {
		addr = *o.Billing
	}

	items := make([]LineItem, 0, len(o.Lines))
	for _, l := range o.Lines {
		qty := l.Quantity
		if qty < 0 {
			qty = 0
		}
		unit := nonNegative(l.UnitPrice)
		total := unit * float64(qty)
		if l.LineTotal != nil {
			total = nonNegative(*l.LineTotal)
		}
		items = append(items, LineItem{
			SKU:       l.SKU,
			Title:     l.Title,
			Quantity:  qty,
			UnitPrice: unit,
			LineTotal: total,
		})
	}

	return Record{
		Customer: Customer{
			Name:       o.CustomerName,
			Email:      o.CustomerEmail,
			Phone:      o.CustomerPhone,
			Address:    addr.Line1,
			City:       addr.City,
			District:   addr.District,
			PostalCode: addr.PostalCode,
			Country:    addr.Country,
			Company:    o.Company,
			TaxID:      o.TaxID,
			TaxOffice:  o.TaxOffice,
		},
		Pricing: Pricing{
			Subtotal: nonNegative(o.Subtotal),
			Tax:      nonNegative(o.Tax),
			Shipping: nonNegative(o.ShippingCost),
			Discount: nonNegative(o.Discount),
			Total:    nonNegative(o.Total),
			Currency: o.Currency,
			Items:    items,
		},
		Status: o.Status,
	}
}

// FromDocument maps a loosely typed document-store record into a Record.
// It accepts numbers as float64, ints, json.Number or numeric strings and
// the storefront's alternate field names. Anything missing or malformed
// becomes a zero value; it never fails.
func FromDocument(doc map[string]any) Record {
	cust := object(doc["customer"])
	if cust == nil {
		cust = map[string]any{}
	}
	pricing := object(doc["pricing"])
	if pricing == nil {
		pricing = doc
	}

	rec := Record{
		Customer: Customer{
			Name:      str(cust, "name", "fullName", "displayName"),
			Email:     str(cust, "email"),
			Phone:     str(cust, "phone", "phoneNumber"),
			Company:   str(cust, "company", "companyName"),
			TaxID:     str(cust, "taxId", "taxNumber"),
			TaxOffice: str(cust, "taxOffice"),
		},
		Status: str(doc, "status"),
	}
	if rec.Customer.Name == "" {
		rec.Customer.Name = str(doc, "customerName")
	}
	if rec.Customer.Email == "" {
		rec.Customer.Email = str(doc, "customerEmail", "email")
	}

	if addr := object(cust["address"]); addr != nil {
		rec.Customer.Address = str(addr, "line1", "address", "street")
		rec.Customer.City = str(addr, "city")
		rec.Customer.District = str(addr, "district")
		rec.Customer.PostalCode = str(addr, "postalCode", "zip")
		rec.Customer.Country = str(addr, "country")
	} else {
		rec.Customer.Address = str(cust, "address")
		rec.Customer.City = str(cust, "city")
		rec.Customer.District = str(cust, "district")
		rec.Customer.PostalCode = str(cust, "postalCode")
		rec.Customer.Country = str(cust, "country")
	}
	if billing := object(cust["billing"]); billing != nil {
		if v := str(billing, "company", "companyName"); v != "" {
			rec.Customer.Company = v
		}
		if v := str(billing, "taxId", "taxNumber"); v != "" {
			rec.Customer.TaxID = v
		}
		if v := str(billing, "taxOffice"); v != "" {
			rec.Customer.TaxOffice = v
		}
	}

	rec.Pricing.Subtotal = nonNegative(num(pricing, "subtotal"))
	rec.Pricing.Tax = nonNegative(num(pricing, "tax", "vat"))
	rec.Pricing.Shipping = nonNegative(num(pricing, "shipping", "shippingCost"))
	rec.Pricing.Discount = nonNegative(num(pricing, "discount"))
	rec.Pricing.Total = nonNegative(num(pricing, "total"))
	rec.Pricing.Currency = str(pricing, "currency")
	if rec.Pricing.Currency == "" {
		rec.Pricing.Currency = str(doc, "currency")
	}

	rawItems, ok := pricing["items"].([]any)
	if !ok {
		rawItems, _ = doc["items"].([]any)
	}
	rec.Pricing.Items = make([]LineItem, 0, len(rawItems))
	for _, raw := range rawItems {
		m := object(raw)
		if m == nil {
			continue
		}
		rec.Pricing.Items = append(rec.Pricing.Items, lineItem(m))
	}
	return rec
}

func lineItem(m map[string]any) LineItem {
	qty := math.Trunc(num(m, "qty", "quantity"))
	if qty < 0 || qty > math.MaxInt32 {
		qty = 0
	}
	unit := nonNegative(num(m, "unitPrice", "price"))
	total := unit * qty
	if v, ok := lookupNum(m, "total", "lineTotal"); ok {
		total = nonNegative(v)
	}
	return LineItem{
		SKU:       str(m, "sku", "id"),
		Title:     str(m, "title", "name"),
		Quantity:  int(qty),
		UnitPrice: unit,
		LineTotal: total,
	}
}

func object(v any) map[string]any {
	m, _ := v.(map[string]any)
	return m
}

func str(m map[string]any, keys ...string) string {
	for _, k := range keys {
		switch v := m[k].(type) {
		case string:
			if s := strings.TrimSpace(v); s != "" {
				return s
			}
		case json.Number:
			return v.String()
		case float64:
			return strconv.FormatFloat(v, 'f', -1, 64)
		case int:
			return strconv.Itoa(v)
		case int64:
			return strconv.FormatInt(v, 10)
		}
	}
	return ""
}

func num(m map[string]any, keys ...string) float64 {
	v, _ := lookupNum(m, keys...)
	return v
}

// lookupNum returns the first key holding a usable number.
func lookupNum(m map[string]any, keys ...string) (float64, bool) {
	for _, k := range keys {
		if f, ok := toFloat(m[k]); ok {
			return f, true
		}
	}
	return 0, false
}

func toFloat(v any) (float64, bool) {
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int32:
		f = float64(n)
	case int64:
		f = float64(n)
	case uint:
		f = float64(n)
	case uint64:
		f = float64(n)
	case json.Number:
		parsed, err := n.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func nonNegative(f float64) float64 {
	if f < 0 || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}
