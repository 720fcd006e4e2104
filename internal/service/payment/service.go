package payment

import (
	"fmt"

	"storefront-engine/internal/domain"
	"storefront-engine/internal/service/persistence"

	"github.com/google/uuid"
)

type Persister interface {
	Save(key string, value any)
}

// Registry owns the payment methods. It always holds exactly one cash method, which
// cannot be removed, and exactly one default. It is not safe for concurrent use.
type Registry struct {
	items   []domain.PaymentMethod
	persist Persister
}

// New returns a registry seeded with the cash on delivery method.
func New(persist Persister) *Registry {
	return &Registry{
		items:   []domain.PaymentMethod{domain.CashOnDelivery()},
		persist: persist,
	}
}

// Replace swaps in a loaded collection. A nil or empty collection, or one missing the
// cash method, is re-seeded with cash on delivery. It does not persist.
func (r *Registry) Replace(items []domain.PaymentMethod) {
	out := make([]domain.PaymentMethod, 0, len(items)+1)
	hasCash := false
	for _, m := range items {
		if m.Kind == domain.PaymentKindCash {
			if hasCash {
				continue
			}
			hasCash = true
		}
		out = append(out, m)
	}
	if !hasCash {
		cash := domain.CashOnDelivery()
		cash.IsDefault = false
		out = append([]domain.PaymentMethod{cash}, out...)
	}
	normalizeDefault(out)
	r.items = out
}

// Add registers a card. The first method of an empty registry becomes the default.
func (r *Registry) Add(m domain.PaymentMethod) (domain.PaymentMethod, error) {
	if err := domain.Validate(m); err != nil {
		return domain.PaymentMethod{}, err
	}
	if m.Kind == domain.PaymentKindCash {
		return domain.PaymentMethod{}, domain.Invalid("kind", "a cash method already exists")
	}
	if m.Last4 == "" {
		return domain.PaymentMethod{}, domain.Invalid("last4", "is required for cards")
	}
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if r.indexOf(m.ID) >= 0 {
		return domain.PaymentMethod{}, domain.Invalid("id", "already exists")
	}
	m.IsDefault = len(r.items) == 0
	r.items = append(r.items, m)
	r.save()
	return m, nil
}

func (r *Registry) Update(id string, patch domain.PaymentMethodPatch) (domain.PaymentMethod, error) {
	idx := r.indexOf(id)
	if idx < 0 {
		return domain.PaymentMethod{}, domain.ErrNotFound
	}
	updated := r.items[idx]
	patch.Apply(&updated)
	if err := domain.Validate(updated); err != nil {
		return domain.PaymentMethod{}, err
	}
	if updated.Kind == domain.PaymentKindCard && updated.Last4 == "" {
		return domain.PaymentMethod{}, domain.Invalid("last4", "is required for cards")
	}
	r.items[idx] = updated
	r.save()
	return updated, nil
}

// Remove deletes a card. The cash method is protected and rejected without mutation.
// Unknown ids are a no-op. Removing the default promotes the first remaining method.
func (r *Registry) Remove(id string) error {
	idx := r.indexOf(id)
	if idx < 0 {
		return nil
	}
	if r.items[idx].Kind == domain.PaymentKindCash {
		return fmt.Errorf("remove payment method %s: %w", id, domain.ErrProtectedEntity)
	}
	wasDefault := r.items[idx].IsDefault
	r.items = append(r.items[:idx], r.items[idx+1:]...)
	if wasDefault && len(r.items) > 0 {
		r.items[0].IsDefault = true
	}
	r.save()
	return nil
}

func (r *Registry) SetDefault(id string) error {
	idx := r.indexOf(id)
	if idx < 0 {
		return domain.ErrNotFound
	}
	for i := range r.items {
		r.items[i].IsDefault = i == idx
	}
	r.save()
	return nil
}

func (r *Registry) Get(id string) (domain.PaymentMethod, error) {
	idx := r.indexOf(id)
	if idx < 0 {
		return domain.PaymentMethod{}, domain.ErrNotFound
	}
	return r.items[idx], nil
}

func (r *Registry) Default() (domain.PaymentMethod, bool) {
	for _, m := range r.items {
		if m.IsDefault {
			return m, true
		}
	}
	return domain.PaymentMethod{}, false
}

func (r *Registry) List() []domain.PaymentMethod {
	return append([]domain.PaymentMethod(nil), r.items...)
}

func (r *Registry) indexOf(id string) int {
	for i, m := range r.items {
		if m.ID == id {
			return i
		}
	}
	return -1
}

func (r *Registry) save() {
	if r.persist == nil {
		return
	}
	r.persist.Save(persistence.KeyPaymentMethods, r.List())
}

func normalizeDefault(items []domain.PaymentMethod) {
	seen := false
	for i := range items {
		if items[i].IsDefault {
			if seen {
				items[i].IsDefault = false
			}
			seen = true
		}
	}
	if !seen && len(items) > 0 {
		items[0].IsDefault = true
	}
}
