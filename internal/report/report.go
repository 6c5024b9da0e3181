// Package report derives the dashboard's summary figures and charts from a
// session snapshot and the static weekly series.
package report

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/fairyhunter13/toko-sayur-pos/internal/model"
)

var hundred = decimal.NewFromInt(100)

// TopSellerLimit is how many products the reports tab ranks.
const TopSellerLimit = 5

// Overview holds the headline stat cards.
type Overview struct {
	TotalSales   decimal.Decimal `json:"total_sales"`
	TodaySales   decimal.Decimal `json:"today_sales"`
	ProductCount int             `json:"product_count"`
	Customers    int             `json:"customers"`
}

// DayBar is one day of the weekly chart, scaled for rendering.
type DayBar struct {
	model.SalesDay
	HeightPct      float64 `json:"height_pct"`
	TargetLinePct  float64 `json:"target_line_pct"`
	AchievementPct int64   `json:"achievement_pct"`
	Met            bool    `json:"met"`
}

// Ranked is a product with its position in the best-seller list.
type Ranked struct {
	Rank int `json:"rank"`
	model.Product
	Revenue        decimal.Decimal `json:"revenue"`
	PerformancePct int             `json:"performance_pct"`
}

// Report is everything the reports tab renders.
type Report struct {
	Overview   Overview `json:"overview"`
	Weekly     []DayBar `json:"weekly"`
	TopSellers []Ranked `json:"top_sellers"`
}

// Build assembles the full report.
func Build(snap model.Snapshot, week []model.SalesDay) Report {
	return Report{
		Overview:   Summarize(snap),
		Weekly:     Weekly(week),
		TopSellers: TopSellers(snap.Products, TopSellerLimit),
	}
}

// Summarize returns the headline figures of a snapshot.
func Summarize(snap model.Snapshot) Overview {
	return Overview{
		TotalSales:   snap.Counters.TotalSales,
		TodaySales:   snap.Counters.TodaySales,
		ProductCount: len(snap.Products),
		Customers:    snap.Counters.Customers,
	}
}

// Weekly scales each day against the week's highest value.
func Weekly(week []model.SalesDay) []DayBar {
	maxValue := decimal.Zero
	for _, d := range week {
		maxValue = decimal.Max(maxValue, d.Value)
	}
	out := make([]DayBar, 0, len(week))
	for _, d := range week {
		bar := DayBar{SalesDay: d, Met: d.Value.GreaterThanOrEqual(d.Target)}
		if maxValue.IsPositive() {
			bar.HeightPct = pct(d.Value, maxValue)
			bar.TargetLinePct = pct(d.Target, maxValue)
		}
		if d.Target.IsPositive() {
			bar.AchievementPct = d.Value.Div(d.Target).Mul(hundred).Round(0).IntPart()
		}
		out = append(out, bar)
	}
	return out
}

// TopSellers orders products by units sold, highest first, and keeps the
// first limit of them. Ties keep catalog order. A limit of zero or less
// keeps every product.
func TopSellers(products []model.Product, limit int) []Ranked {
	sorted := make([]model.Product, len(products))
	copy(sorted, products)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Sold > sorted[j].Sold })
	if limit > 0 && len(sorted) > limit {
		sorted = sorted[:limit]
	}

	out := make([]Ranked, 0, len(sorted))
	for i, p := range sorted {
		out = append(out, Ranked{
			Rank:           i + 1,
			Product:        p,
			Revenue:        p.Price.Mul(decimal.NewFromInt(int64(p.Sold))),
			PerformancePct: Performance(p),
		})
	}
	return out
}

// Performance is the share of a product's units that have been sold, as a
// whole percentage capped at 100.
func Performance(p model.Product) int {
	total := p.Sold + p.Stock
	if total <= 0 {
		return 0
	}
	v := decimal.NewFromInt(int64(p.Sold)).Div(decimal.NewFromInt(int64(total))).Mul(hundred).Round(0).IntPart()
	if v > 100 {
		return 100
	}
	if v < 0 {
		return 0
	}
	return int(v)
}

func pct(v, of decimal.Decimal) float64 {
	f, _ := v.Div(of).Mul(hundred).Round(2).Float64()
	return f
}
