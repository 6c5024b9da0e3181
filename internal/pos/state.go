// Package pos implements the cart and stock reconciliation of a single
// register session.
//
// All transitions go through Apply, which takes the full State and an
// Action and returns either a new State or the unchanged input together with
// a rejection. Apply never mutates its input, so the cart and the catalog
// stock can not be observed out of step with each other.
package pos

import (
	"github.com/shopspring/decimal"

	"github.com/fairyhunter13/toko-sayur-pos/internal/catalog"
	"github.com/fairyhunter13/toko-sayur-pos/internal/model"
)

// State is the complete mutable state of one session.
type State struct {
	Products []model.Product
	Cart     []model.CartLine
	Counters model.Counters
}

// NewState returns a state seeded with the sample catalog and counters.
func NewState() State {
	return State{
		Products: catalog.Products(),
		Cart:     []model.CartLine{},
		Counters: catalog.Counters(),
	}
}

// Product returns the product with the given id.
func (s State) Product(id int) (model.Product, bool) {
	i := s.productIndex(id)
	if i < 0 {
		return model.Product{}, false
	}
	return s.Products[i], true
}

// Line returns the cart line for the given product id.
func (s State) Line(id int) (model.CartLine, bool) {
	i := s.lineIndex(id)
	if i < 0 {
		return model.CartLine{}, false
	}
	return s.Cart[i], true
}

// Reserved returns the quantity held in the cart for a product.
func (s State) Reserved(id int) int {
	if l, ok := s.Line(id); ok {
		return l.Quantity
	}
	return 0
}

// CartTotal sums price times quantity over the cart.
func (s State) CartTotal() decimal.Decimal {
	total := decimal.Zero
	for _, l := range s.Cart {
		total = total.Add(l.Subtotal())
	}
	return total
}

// Units returns stock plus reserved quantity per product id. It stays
// constant under every cart operation and only shrinks at checkout.
func (s State) Units() map[int]int {
	out := make(map[int]int, len(s.Products))
	for _, p := range s.Products {
		out[p.ID] = p.Stock
	}
	for _, l := range s.Cart {
		out[l.ProductID] += l.Quantity
	}
	return out
}

// Clone returns a deep copy of the state's slices.
func (s State) Clone() State {
	c := State{
		Products: make([]model.Product, len(s.Products)),
		Cart:     make([]model.CartLine, len(s.Cart)),
		Counters: s.Counters,
	}
	copy(c.Products, s.Products)
	copy(c.Cart, s.Cart)
	return c
}

func (s State) productIndex(id int) int {
	for i := range s.Products {
		if s.Products[i].ID == id {
			return i
		}
	}
	return -1
}

func (s State) lineIndex(id int) int {
	for i := range s.Cart {
		if s.Cart[i].ProductID == id {
			return i
		}
	}
	return -1
}
