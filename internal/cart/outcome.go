package cart

import "fmt"

// Reason explains why a cart mutation was rejected.
type Reason string

const (
	ReasonNone              Reason = ""
	ReasonOutOfStock        Reason = "out_of_stock"
	ReasonInsufficientStock Reason = "insufficient_stock"
	ReasonExceedsStock      Reason = "exceeds_stock"
	ReasonNotInCart         Reason = "not_in_cart"
)

// Outcome is the result of a stock-checked mutation. Rejections are values, not errors.
type Outcome struct {
	Accepted  bool   `json:"accepted"`
	Reason    Reason `json:"reason,omitempty"`
	Remaining int    `json:"remaining"` // units still addable, or the stock ceiling for updates
	Message   string `json:"message,omitempty"`
}

func accepted() Outcome { return Outcome{Accepted: true} }

func outOfStock(name string) Outcome {
	return Outcome{
		Reason:  ReasonOutOfStock,
		Message: fmt.Sprintf("%s is out of stock", displayName(name)),
	}
}

func insufficientStock(name string, remaining int) Outcome {
	return Outcome{
		Reason:    ReasonInsufficientStock,
		Remaining: remaining,
		Message:   fmt.Sprintf("Only %d more of %s can be added", remaining, displayName(name)),
	}
}

func exceedsStock(name string, ceiling int) Outcome {
	return Outcome{
		Reason:    ReasonExceedsStock,
		Remaining: ceiling,
		Message:   fmt.Sprintf("Only %d of %s in stock", ceiling, displayName(name)),
	}
}

func notInCart() Outcome {
	return Outcome{Reason: ReasonNotInCart, Message: "Item is not in the cart"}
}

func displayName(name string) string {
	if name == "" {
		return "this item"
	}
	return name
}

// Level is the severity of a shopper-facing notification.
type Level string

const (
	LevelSuccess Level = "success"
	LevelError   Level = "error"
)

// Notification is a shopper-facing message, the toast of the original storefront.
type Notification struct {
	Level   Level  `json:"level"`
	Message string `json:"message"`
}

// Notifier delivers notifications. Implementations must not call back into the Store.
type Notifier interface {
	Notify(n Notification)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(Notification)

func (f NotifierFunc) Notify(n Notification) { f(n) }

type discardNotifier struct{}

func (discardNotifier) Notify(Notification) {}
