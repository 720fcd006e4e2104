package domain

type PaymentKind string

const (
	PaymentKindCard PaymentKind = "card"
	PaymentKindCash PaymentKind = "cash"
)

// CashMethodID identifies the built-in cash on delivery method.
const CashMethodID = "cash-1"

// PaymentMethod is a stored way to pay. Exactly one cash method exists at all times.
type PaymentMethod struct {
	ID        string      `json:"id"`
	Kind      PaymentKind `json:"kind" validate:"required,oneof=card cash"`
	Label     string      `json:"label" validate:"required"`
	Last4     string      `json:"last4,omitempty" validate:"omitempty,len=4,numeric"`
	Expiry    string      `json:"expiry,omitempty" validate:"omitempty,len=5"`
	IsDefault bool        `json:"isDefault"`
}

// CashOnDelivery returns the protected fallback method seeded into an empty registry.
func CashOnDelivery() PaymentMethod {
	return PaymentMethod{
		ID:        CashMethodID,
		Kind:      PaymentKindCash,
		Label:     "Cash on Delivery",
		IsDefault: true,
	}
}

// PaymentMethodPatch carries the editable fields of a payment method.
type PaymentMethodPatch struct {
	Label  *string `json:"label,omitempty"`
	Last4  *string `json:"last4,omitempty"`
	Expiry *string `json:"expiry,omitempty"`
}

// Apply merges the patch into m.
func (p PaymentMethodPatch) Apply(m *PaymentMethod) {
	if p.Label != nil {
		m.Label = *p.Label
	}
	if p.Last4 != nil {
		m.Last4 = *p.Last4
	}
	if p.Expiry != nil {
		m.Expiry = *p.Expiry
	}
}
