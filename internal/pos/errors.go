package pos

import "fmt"

// Outcome classifies the result of applying an action.
type Outcome string

const (
	// Applied means the state changed.
	Applied Outcome = "applied"
	// Unchanged means the action was valid but nothing needed to happen.
	Unchanged Outcome = "unchanged"

	InvalidQuantity   Outcome = "invalid_quantity"
	UnknownProduct    Outcome = "unknown_product"
	InsufficientStock Outcome = "insufficient_stock"
	NotInCart         Outcome = "not_in_cart"
	InvalidAction     Outcome = "invalid_action"
)

// Rejected reports whether the outcome is a rejection.
func (o Outcome) Rejected() bool {
	return o != Applied && o != Unchanged
}

// RejectionError describes why an action was refused.
type RejectionError struct {
	Code    Outcome
	Message string
}

func (e *RejectionError) Error() string {
	return e.Message
}

// Is matches any RejectionError with the same code, so callers can test
// against the sentinels below with errors.Is.
func (e *RejectionError) Is(target error) bool {
	t, ok := target.(*RejectionError)
	return ok && t.Code == e.Code
}

var (
	ErrInvalidQuantity   = &RejectionError{Code: InvalidQuantity, Message: "quantity must be positive"}
	ErrUnknownProduct    = &RejectionError{Code: UnknownProduct, Message: "product does not exist"}
	ErrInsufficientStock = &RejectionError{Code: InsufficientStock, Message: "not enough stock"}
	ErrNotInCart         = &RejectionError{Code: NotInCart, Message: "product is not in the cart"}
	ErrInvalidAction     = &RejectionError{Code: InvalidAction, Message: "unknown action"}
)

func rejectf(code Outcome, format string, args ...any) *RejectionError {
	return &RejectionError{Code: code, Message: fmt.Sprintf(format, args...)}
}
