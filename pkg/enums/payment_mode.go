package enums

// PaymentMode describes how a meal order is settled.
type PaymentMode string

const (
	PaymentModeDeductFromCredit PaymentMode = "dfc"
	PaymentModeGateway          PaymentMode = "pg"
	PaymentModeAskEachTime      PaymentMode = "etq"
)

var validPaymentModes = []PaymentMode{
	PaymentModeDeductFromCredit,
	PaymentModeGateway,
	PaymentModeAskEachTime,
}

// String implements fmt.Stringer.
func (p PaymentMode) String() string {
	return string(p)
}

// IsValid reports whether the value is a known PaymentMode.
func (p PaymentMode) IsValid() bool {
	return known(validPaymentModes, p)
}

// ParsePaymentMode converts raw input into a PaymentMode.
func ParsePaymentMode(value string) (PaymentMode, error) {
	return parse(validPaymentModes, value, "payment mode")
}

// IsOrderMode reports whether the mode can be stamped on an order. Ask-each-time
// is a profile preference only.
func (p PaymentMode) IsOrderMode() bool {
	return p == PaymentModeDeductFromCredit || p == PaymentModeGateway
}
