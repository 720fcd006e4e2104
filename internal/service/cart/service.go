package cart

import (
	"strings"

	"storefront-engine/internal/domain"

	"github.com/shopspring/decimal"
)

// Service owns the session cart. It is not safe for concurrent use; the engine serializes calls.
type Service struct {
	lines       []domain.CartLine
	total       decimal.Decimal
	itemCount   int
	multiVendor bool
}

func New() *Service {
	return &Service{total: decimal.Zero}
}

// Add merges line into the cart by product id. An existing line keeps its price and
// metadata and only grows by line.Quantity. Adding a vendor the cart does not hold yet
// raises the multi-vendor notice without blocking the add.
func (s *Service) Add(line domain.CartLine) error {
	line.ID = strings.TrimSpace(line.ID)
	line.VendorID = strings.TrimSpace(line.VendorID)
	if err := domain.Validate(line); err != nil {
		return err
	}
	if line.UnitPrice.IsNegative() {
		return domain.Invalid("unitPrice", "must not be negative")
	}

	if len(s.lines) > 0 && !s.hasVendor(line.VendorID) {
		s.multiVendor = true
	}

	if idx := s.indexOf(line.ID); idx >= 0 {
		s.lines[idx].Quantity += line.Quantity
	} else {
		s.lines = append(s.lines, domain.CloneLines([]domain.CartLine{line})...)
	}
	s.recompute()
	return nil
}

// Remove deletes the line with the given id. Unknown ids are ignored.
func (s *Service) Remove(id string) {
	idx := s.indexOf(id)
	if idx < 0 {
		return
	}
	s.lines = append(s.lines[:idx], s.lines[idx+1:]...)
	s.recompute()
}

// UpdateQuantity sets the quantity of a line. Zero or less removes it.
func (s *Service) UpdateQuantity(id string, qty int) {
	if qty <= 0 {
		s.Remove(id)
		return
	}
	idx := s.indexOf(id)
	if idx < 0 {
		return
	}
	s.lines[idx].Quantity = qty
	s.recompute()
}

// Clear empties the cart and drops the multi-vendor notice.
func (s *Service) Clear() {
	s.lines = nil
	s.multiVendor = false
	s.recompute()
}

// Cart returns a copy of the current cart view.
func (s *Service) Cart() domain.Cart {
	return domain.Cart{
		Lines:       domain.CloneLines(s.lines),
		Total:       s.total,
		ItemCount:   s.itemCount,
		MultiVendor: s.multiVendor,
	}
}

// Snapshot returns a deep copy of the lines for order placement.
func (s *Service) Snapshot() []domain.CartLine {
	return domain.CloneLines(s.lines)
}

func (s *Service) Total() decimal.Decimal {
	return s.total
}

func (s *Service) IsEmpty() bool {
	return len(s.lines) == 0
}

// VendorGroups partitions the lines by vendor in order of first appearance.
func (s *Service) VendorGroups() []domain.VendorGroup {
	var groups []domain.VendorGroup
	index := make(map[string]int)
	for _, line := range s.lines {
		i, ok := index[line.VendorID]
		if !ok {
			i = len(groups)
			index[line.VendorID] = i
			groups = append(groups, domain.VendorGroup{
				VendorID:   line.VendorID,
				VendorName: line.VendorName,
				Subtotal:   decimal.Zero,
			})
		}
		groups[i].Lines = append(groups[i].Lines, domain.CloneLines([]domain.CartLine{line})...)
		groups[i].Subtotal = groups[i].Subtotal.Add(line.LineTotal())
	}
	return groups
}

func (s *Service) MultiVendorNotice() bool {
	return s.multiVendor
}

// DismissMultiVendorNotice hides the notice. Cart contents are unchanged.
func (s *Service) DismissMultiVendorNotice() {
	s.multiVendor = false
}

func (s *Service) indexOf(id string) int {
	for i, l := range s.lines {
		if l.ID == id {
			return i
		}
	}
	return -1
}

func (s *Service) hasVendor(vendorID string) bool {
	for _, l := range s.lines {
		if l.VendorID == vendorID {
			return true
		}
	}
	return false
}

func (s *Service) recompute() {
	total := decimal.Zero
	count := 0
	for _, l := range s.lines {
		total = total.Add(l.LineTotal())
		count += l.Quantity
	}
	s.total = total
	s.itemCount = count
}
