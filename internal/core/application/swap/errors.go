package swap

import "fmt"

// OrderSubmissionError is returned when the order book refuses or fails to
// store an order. No order exists in this case.
type OrderSubmissionError struct {
	Err error
}

func (e *OrderSubmissionError) Error() string {
	return fmt.Sprintf("order submission failed: %s", e.Err)
}

func (e *OrderSubmissionError) Unwrap() error {
	return e.Err
}

// SigningError is returned when the order was created but its presign
// transaction could not be proposed or signed. The order can be signed
// later with its OrderID.
type SigningError struct {
	OrderID string
	Err     error
}

func (e *SigningError) Error() string {
	return fmt.Sprintf("signing of order %s failed: %s", e.OrderID, e.Err)
}

func (e *SigningError) Unwrap() error {
	return e.Err
}
