package pos

import (
	"github.com/shopspring/decimal"

	"github.com/fairyhunter13/toko-sayur-pos/internal/model"
)

// Kind enumerates the actions a register can perform.
type Kind int

const (
	KindAdd Kind = iota + 1
	KindRemove
	KindUpdate
	KindCheckout
)

func (k Kind) String() string {
	switch k {
	case KindAdd:
		return "add_to_cart"
	case KindRemove:
		return "remove_from_cart"
	case KindUpdate:
		return "update_cart_quantity"
	case KindCheckout:
		return "checkout"
	default:
		return "unknown"
	}
}

// Action is a single state transition request.
type Action struct {
	Kind      Kind
	ProductID int
	Quantity  int
}

// AddToCart reserves quantity units of a product.
func AddToCart(productID, quantity int) Action {
	return Action{Kind: KindAdd, ProductID: productID, Quantity: quantity}
}

// RemoveFromCart releases a product's whole reservation.
func RemoveFromCart(productID int) Action {
	return Action{Kind: KindRemove, ProductID: productID}
}

// UpdateCartQuantity sets a product's reservation to quantity.
func UpdateCartQuantity(productID, quantity int) Action {
	return Action{Kind: KindUpdate, ProductID: productID, Quantity: quantity}
}

// Checkout settles the cart.
func Checkout() Action {
	return Action{Kind: KindCheckout}
}

// Result reports what Apply did.
type Result struct {
	Outcome Outcome
	// Settled and Total are set by an applied checkout.
	Settled []model.CartLine
	Total   decimal.Decimal

	err *RejectionError
}

// Err returns the rejection, or nil when the action was accepted.
func (r Result) Err() error {
	if r.err == nil {
		return nil
	}
	return r.err
}

func applied() Result   { return Result{Outcome: Applied} }
func unchanged() Result { return Result{Outcome: Unchanged} }

func rejected(e *RejectionError) Result {
	return Result{Outcome: e.Code, err: e}
}

// Apply performs a on s and returns the resulting state. On rejection or
// no-op the returned state is s itself.
func Apply(s State, a Action) (State, Result) {
	switch a.Kind {
	case KindAdd:
		return addToCart(s, a.ProductID, a.Quantity)
	case KindRemove:
		return removeFromCart(s, a.ProductID)
	case KindUpdate:
		return updateCartQuantity(s, a.ProductID, a.Quantity)
	case KindCheckout:
		return checkout(s)
	default:
		return s, rejected(ErrInvalidAction)
	}
}

func addToCart(s State, id, qty int) (State, Result) {
	if qty <= 0 {
		return s, rejected(rejectf(InvalidQuantity, "quantity must be positive, got %d", qty))
	}
	pi := s.productIndex(id)
	if pi < 0 {
		return s, rejected(rejectf(UnknownProduct, "product %d does not exist", id))
	}
	if p := s.Products[pi]; p.Stock < qty {
		return s, rejected(rejectf(InsufficientStock, "%s: requested %d, %d in stock", p.Name, qty, p.Stock))
	}

	next := s.Clone()
	p := &next.Products[pi]
	p.Stock -= qty
	if li := next.lineIndex(id); li >= 0 {
		next.Cart[li].Quantity += qty
	} else {
		next.Cart = append(next.Cart, model.CartLine{
			ProductID: p.ID,
			Name:      p.Name,
			Price:     p.Price,
			Quantity:  qty,
		})
	}
	return next, applied()
}

func removeFromCart(s State, id int) (State, Result) {
	li := s.lineIndex(id)
	if li < 0 {
		return s, unchanged()
	}
	pi := s.productIndex(id)
	if pi < 0 {
		// a line always refers to a catalog product
		return s, rejected(rejectf(UnknownProduct, "product %d does not exist", id))
	}

	next := s.Clone()
	next.Products[pi].Stock += next.Cart[li].Quantity
	next.Cart = append(next.Cart[:li], next.Cart[li+1:]...)
	return next, applied()
}

func updateCartQuantity(s State, id, qty int) (State, Result) {
	if qty <= 0 {
		return removeFromCart(s, id)
	}
	pi := s.productIndex(id)
	if pi < 0 {
		return s, rejected(rejectf(UnknownProduct, "product %d does not exist", id))
	}
	li := s.lineIndex(id)
	if li < 0 {
		return s, rejected(rejectf(NotInCart, "%s is not in the cart", s.Products[pi].Name))
	}

	delta := qty - s.Cart[li].Quantity
	if delta == 0 {
		return s, unchanged()
	}
	if p := s.Products[pi]; p.Stock < delta {
		return s, rejected(rejectf(InsufficientStock, "%s: need %d more, %d in stock", p.Name, delta, p.Stock))
	}

	next := s.Clone()
	next.Cart[li].Quantity = qty
	next.Products[pi].Stock -= delta
	return next, applied()
}

func checkout(s State) (State, Result) {
	if len(s.Cart) == 0 {
		return s, unchanged()
	}
	total := s.CartTotal()

	next := s.Clone()
	next.Counters.TotalSales = next.Counters.TotalSales.Add(total)
	next.Counters.TodaySales = next.Counters.TodaySales.Add(total)
	next.Counters.Customers++
	settled := next.Cart
	next.Cart = []model.CartLine{}

	res := applied()
	res.Settled = settled
	res.Total = total
	return next, res
}
