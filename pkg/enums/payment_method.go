package enums

// PaymentMethod is how the buyer paid.
type PaymentMethod string

const (
	PaymentMethodWireTransfer PaymentMethod = "WIRE_TRANSFER"
	PaymentMethodCreditCard   PaymentMethod = "CREDIT_CARD"
	PaymentMethodPayPal       PaymentMethod = "PAYPAL"
	PaymentMethodOther        PaymentMethod = "OTHER"
)

var paymentMethods = newSet("payment method",
	PaymentMethodWireTransfer,
	PaymentMethodCreditCard,
	PaymentMethodPayPal,
	PaymentMethodOther,
)

func (p PaymentMethod) String() string { return string(p) }

func (p PaymentMethod) IsValid() bool { return paymentMethods.has(p) }

// ParsePaymentMethod accepts only the exact wire spelling.
func ParsePaymentMethod(value string) (PaymentMethod, error) {
	return paymentMethods.parse(value)
}

// RequiresApproval reports whether payments by this method wait for an admin.
func (p PaymentMethod) RequiresApproval() bool {
	return p == PaymentMethodWireTransfer
}
