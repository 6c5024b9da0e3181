// Package model defines domain types used by the service.
package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product represents the current state of a catalog product.
type Product struct {
	ID       int             `json:"id"`
	Name     string          `json:"name"`
	Stock    int             `json:"stock"`
	Price    decimal.Decimal `json:"price"`
	Sold     int             `json:"sold"`
	Category string          `json:"category"`
	Rating   float64         `json:"rating"`
}

// CartLine is a stock reservation for one product pending checkout.
type CartLine struct {
	ProductID int             `json:"product_id"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Quantity  int             `json:"quantity"`
}

// Subtotal returns price times quantity.
func (l CartLine) Subtotal() decimal.Decimal {
	return l.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Counters are the cumulative sales figures of a session.
type Counters struct {
	TotalSales decimal.Decimal `json:"total_sales"`
	TodaySales decimal.Decimal `json:"today_sales"`
	Customers  int             `json:"customers"`
}

// SalesDay is one bar of the static weekly sales chart.
type SalesDay struct {
	Name   string          `json:"name"`
	Value  decimal.Decimal `json:"value"`
	Target decimal.Decimal `json:"target"`
}

// Receipt describes a settled checkout.
type Receipt struct {
	ID        string          `json:"id"`
	Lines     []CartLine      `json:"lines"`
	Total     decimal.Decimal `json:"total"`
	Payment   string          `json:"payment"`
	SettledAt time.Time       `json:"settled_at"`
}

// Snapshot is the read-only view of a session rendered by clients.
type Snapshot struct {
	SessionID string          `json:"session_id"`
	Version   uint64          `json:"version"`
	Products  []Product       `json:"products"`
	Cart      []CartLine      `json:"cart"`
	CartTotal decimal.Decimal `json:"cart_total"`
	Counters  Counters        `json:"counters"`
}
