package domain

// OrderStatus tracks the review lifecycle of a booking.
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusApproved  OrderStatus = "approved"
	OrderStatusRefunding OrderStatus = "refunding"
)

// Order is a customer record plus its review status.
type Order struct {
	Customer
	Status OrderStatus `json:"status"`
}
