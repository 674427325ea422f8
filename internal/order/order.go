// Package order holds the storefront order shape consumed by notifications
// and the stores it is loaded from.
package order

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by a Store when no order has the requested id.
var ErrNotFound = errors.New("order not found")

// Address is a postal address attached to an order.
type Address struct {
	Line1      string `json:"line1"`
	City       string `json:"city"`
	District   string `json:"district,omitempty"`
	PostalCode string `json:"postalCode,omitempty"`
	Country    string `json:"country,omitempty"`
}

// Line is one order line. LineTotal, when set, overrides UnitPrice*Quantity.
type Line struct {
	SKU       string   `json:"sku"`
	Title     string   `json:"title"`
	Quantity  int      `json:"quantity"`
	UnitPrice float64  `json:"unitPrice"`
	LineTotal *float64 `json:"lineTotal,omitempty"`
}

// Total returns the authoritative line total.
func (l Line) Total() float64 {
	if l.LineTotal != nil {
		return *l.LineTotal
	}
	return l.UnitPrice * float64(l.Quantity)
}

// Order is an order together with its lines.
type Order struct {
	ID            string    `json:"id"`
	CustomerName  string    `json:"customerName"`
	CustomerEmail string    `json:"customerEmail"`
	CustomerPhone string    `json:"customerPhone,omitempty"`
	Company       string    `json:"company,omitempty"`
	TaxID         string    `json:"taxId,omitempty"`
	TaxOffice     string    `json:"taxOffice,omitempty"`
	Shipping      Address   `json:"shippingAddress"`
	Billing       *Address  `json:"billingAddress,omitempty"`
	Lines         []Line    `json:"lines"`
	Subtotal      float64   `json:"subtotal"`
	Tax           float64   `json:"tax"`
	ShippingCost  float64   `json:"shippingCost"`
	Discount      float64   `json:"discount,omitempty"`
	Total         float64   `json:"total"`
	Currency      string    `json:"currency,omitempty"`
	Status        string    `json:"status"`
	PaymentMethod string    `json:"paymentMethod,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
}

// Store loads orders by id.
type Store interface {
	GetOrder(ctx context.Context, id string) (Order, error)
}
