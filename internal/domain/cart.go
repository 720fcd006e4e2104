package domain

import "github.com/shopspring/decimal"

// CartLine is one product entry in the active cart, keyed by product id.
type CartLine struct {
	ID             string          `json:"id" validate:"required"`
	Name           string          `json:"name"`
	UnitPrice      decimal.Decimal `json:"unitPrice"`
	Quantity       int             `json:"quantity" validate:"gt=0"`
	VendorID       string          `json:"vendorId" validate:"required"`
	VendorName     string          `json:"vendorName,omitempty"`
	Image          string          `json:"image,omitempty"`
	Customizations []string        `json:"customizations,omitempty"`
}

// LineTotal is unitPrice × quantity.
func (l CartLine) LineTotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Cart is the derived view over the current lines. Total is always recomputed.
type Cart struct {
	Lines       []CartLine      `json:"lines"`
	Total       decimal.Decimal `json:"total"`
	ItemCount   int             `json:"itemCount"`
	MultiVendor bool            `json:"multiVendorNotice"`
}

// VendorGroup holds the cart lines that belong to one vendor.
type VendorGroup struct {
	VendorID   string          `json:"vendorId"`
	VendorName string          `json:"vendorName,omitempty"`
	Lines      []CartLine      `json:"lines"`
	Subtotal   decimal.Decimal `json:"subtotal"`
}

// CloneLines returns a deep copy so later cart mutations cannot leak into the copy.
func CloneLines(lines []CartLine) []CartLine {
	out := make([]CartLine, len(lines))
	for i, l := range lines {
		out[i] = l
		if l.Customizations != nil {
			out[i].Customizations = append([]string(nil), l.Customizations...)
		}
	}
	return out
}
