package enums

// PaymentStatus tracks a recorded payment.
type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "PENDING"
	PaymentStatusCompleted PaymentStatus = "COMPLETED"
	PaymentStatusRejected  PaymentStatus = "REJECTED"
)

var paymentStatuses = newSet("payment status",
	PaymentStatusPending,
	PaymentStatusCompleted,
	PaymentStatusRejected,
)

func (p PaymentStatus) String() string { return string(p) }

func (p PaymentStatus) IsValid() bool { return paymentStatuses.has(p) }

// ParsePaymentStatus accepts only the exact wire spelling.
func ParsePaymentStatus(value string) (PaymentStatus, error) {
	return paymentStatuses.parse(value)
}

// PaymentStatuses lists every payment status in declaration order.
func PaymentStatuses() []PaymentStatus { return paymentStatuses.all() }
