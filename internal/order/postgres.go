package order

import (
	"context"
	_ "embed"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed schema.sql
var schema string

// PostgresStore reads orders and their lines from PostgreSQL.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Migrate creates the orders tables if they do not exist.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("apply order schema: %w", err)
	}
	return nil
}

const getOrderSQL = `
SELECT id, customer_name, customer_email, customer_phone, company, tax_id, tax_office,
       ship_line1, ship_city, ship_district, ship_postal_code, ship_country,
       subtotal, tax, shipping_cost, discount, total, currency, status, payment_method, created_at
FROM orders
WHERE id = $1`

const listLinesSQL = `
SELECT sku, title, quantity, unit_price, line_total
FROM order_lines
WHERE order_id = $1
ORDER BY position`

func (s *PostgresStore) GetOrder(ctx context.Context, id string) (Order, error) {
	var o Order
	var phone, company, taxID, taxOffice, district, postal, country, payment *string
	err := s.pool.QueryRow(ctx, getOrderSQL, id).Scan(
		&o.ID, &o.CustomerName, &o.CustomerEmail, &phone, &company, &taxID, &taxOffice,
		&o.Shipping.Line1, &o.Shipping.City, &district, &postal, &country,
		&o.Subtotal, &o.Tax, &o.ShippingCost, &o.Discount, &o.Total, &o.Currency, &o.Status, &payment, &o.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Order{}, ErrNotFound
		}
		return Order{}, fmt.Errorf("query order %s: %w", id, err)
	}
	o.CustomerPhone = deref(phone)
	o.Company = deref(company)
	o.TaxID = deref(taxID)
	o.TaxOffice = deref(taxOffice)
	o.Shipping.District = deref(district)
	o.Shipping.PostalCode = deref(postal)
	o.Shipping.Country = deref(country)
	o.PaymentMethod = deref(payment)

	rows, err := s.pool.Query(ctx, listLinesSQL, id)
	if err != nil {
		return Order{}, fmt.Errorf("query order lines %s: %w", id, err)
	}
	defer rows.Close()

	for rows.Next() {
		var l Line
		if err := rows.Scan(&l.SKU, &l.Title, &l.Quantity, &l.UnitPrice, &l.LineTotal); err != nil {
			return Order{}, fmt.Errorf("scan order line: %w", err)
		}
		o.Lines = append(o.Lines, l)
	}
	if err := rows.Err(); err != nil {
		return Order{}, fmt.Errorf("iterate order lines: %w", err)
	}
	return o, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
