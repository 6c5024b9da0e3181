// Package catalog holds the sample data a new session starts from and the
// read-side helpers used to browse it.
package catalog

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/fairyhunter13/toko-sayur-pos/internal/model"
)

// Payment methods accepted at checkout.
const (
	PaymentCash     = "Cash"
	PaymentTransfer = "Transfer"
	PaymentQRIS     = "QRIS"
)

// Products returns a fresh copy of the seeded product list.
func Products() []model.Product {
	return []model.Product{
		{ID: 1, Name: "Tomat", Stock: 50, Price: decimal.NewFromInt(3000), Sold: 25, Category: "Buah", Rating: 4.5},
		{ID: 2, Name: "Wortel", Stock: 30, Price: decimal.NewFromInt(4000), Sold: 18, Category: "Sayur", Rating: 4.8},
		{ID: 3, Name: "Kangkung", Stock: 40, Price: decimal.NewFromInt(2500), Sold: 35, Category: "Sayur", Rating: 4.3},
		{ID: 4, Name: "Bayam", Stock: 25, Price: decimal.NewFromInt(3500), Sold: 22, Category: "Sayur", Rating: 4.6},
		{ID: 5, Name: "Cabai", Stock: 60, Price: decimal.NewFromInt(8000), Sold: 40, Category: "Bumbu", Rating: 4.9},
	}
}

// Counters returns the sales figures a session opens with.
func Counters() model.Counters {
	return model.Counters{
		TotalSales: decimal.NewFromInt(2450000),
		TodaySales: decimal.NewFromInt(320000),
		Customers:  28,
	}
}

// WeeklySales returns the static Monday..Sunday chart data.
func WeeklySales() []model.SalesDay {
	target := decimal.NewFromInt(50000)
	days := []struct {
		name  string
		value int64
	}{
		{"Sen", 45000}, {"Sel", 52000}, {"Rab", 48000}, {"Kam", 61000},
		{"Jum", 55000}, {"Sab", 72000}, {"Min", 38000},
	}
	out := make([]model.SalesDay, 0, len(days))
	for _, d := range days {
		out = append(out, model.SalesDay{Name: d.name, Value: decimal.NewFromInt(d.value), Target: target})
	}
	return out
}

// ValidPayment reports whether method is an accepted payment method.
func ValidPayment(method string) bool {
	switch method {
	case PaymentCash, PaymentTransfer, PaymentQRIS:
		return true
	}
	return false
}

// Search returns the products whose name contains query, ignoring case.
// The query is matched as typed, so an empty query matches everything and a
// whitespace-only one matches nothing.
func Search(products []model.Product, query string) []model.Product {
	q := strings.ToLower(query)
	out := make([]model.Product, 0, len(products))
	for _, p := range products {
		if q == "" || strings.Contains(strings.ToLower(p.Name), q) {
			out = append(out, p)
		}
	}
	return out
}
