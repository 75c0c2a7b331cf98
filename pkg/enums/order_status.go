package enums

import "slices"

// OrderStatus is the order lifecycle state.
type OrderStatus string

const (
	OrderStatusPendingPayment OrderStatus = "PENDING_PAYMENT"
	OrderStatusProcessing     OrderStatus = "PROCESSING"
	OrderStatusShipped        OrderStatus = "SHIPPED"
	OrderStatusCompleted      OrderStatus = "COMPLETED"
	OrderStatusCancelled      OrderStatus = "CANCELLED"
)

var orderStatuses = newSet("order status",
	OrderStatusPendingPayment,
	OrderStatusProcessing,
	OrderStatusShipped,
	OrderStatusCompleted,
	OrderStatusCancelled,
)

func (o OrderStatus) String() string { return string(o) }

func (o OrderStatus) IsValid() bool { return orderStatuses.has(o) }

// ParseOrderStatus accepts only the exact wire spelling.
func ParseOrderStatus(value string) (OrderStatus, error) {
	return orderStatuses.parse(value)
}

// OrderStatuses lists every order status in declaration order.
func OrderStatuses() []OrderStatus { return orderStatuses.all() }

var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPendingPayment: {OrderStatusProcessing, OrderStatusCancelled},
	OrderStatusProcessing:     {OrderStatusShipped, OrderStatusCancelled},
	OrderStatusShipped:        {OrderStatusCompleted},
}

// CanTransitionTo reports whether an admin may move the order to next.
func (o OrderStatus) CanTransitionTo(next OrderStatus) bool {
	return slices.Contains(orderTransitions[o], next)
}

// IsCancellable reports whether the order has not shipped yet.
func (o OrderStatus) IsCancellable() bool {
	return o == OrderStatusPendingPayment || o == OrderStatusProcessing
}
