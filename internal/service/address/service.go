package address

import (
	"storefront-engine/internal/domain"
	"storefront-engine/internal/service/persistence"

	"github.com/google/uuid"
)

// Persister receives a full copy of the collection after every mutation.
type Persister interface {
	Save(key string, value any)
}

// Book owns the delivery addresses and keeps exactly one default while non-empty.
// It is not safe for concurrent use.
type Book struct {
	items   []domain.Address
	persist Persister
}

func New(persist Persister) *Book {
	return &Book{persist: persist}
}

// Replace swaps in a loaded collection, repairing the default flag if needed. It does not persist.
func (b *Book) Replace(items []domain.Address) {
	b.items = cloneAll(items)
	normalizeDefault(b.items)
}

// Add appends a, making it the default when the book was empty.
func (b *Book) Add(a domain.Address) (domain.Address, error) {
	if err := domain.Validate(a); err != nil {
		return domain.Address{}, err
	}
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if b.indexOf(a.ID) >= 0 {
		return domain.Address{}, domain.Invalid("id", "already exists")
	}
	a.IsDefault = len(b.items) == 0
	b.items = append(b.items, a.Clone())
	b.save()
	return a.Clone(), nil
}

// Update merges patch into the address with the given id.
func (b *Book) Update(id string, patch domain.AddressPatch) (domain.Address, error) {
	idx := b.indexOf(id)
	if idx < 0 {
		return domain.Address{}, domain.ErrNotFound
	}
	updated := b.items[idx].Clone()
	patch.Apply(&updated)
	if err := domain.Validate(updated); err != nil {
		return domain.Address{}, err
	}
	b.items[idx] = updated
	b.save()
	return updated.Clone(), nil
}

// Remove deletes the address. Unknown ids are a no-op. Removing the default promotes
// the first remaining address.
func (b *Book) Remove(id string) {
	idx := b.indexOf(id)
	if idx < 0 {
		return
	}
	wasDefault := b.items[idx].IsDefault
	b.items = append(b.items[:idx], b.items[idx+1:]...)
	if wasDefault && len(b.items) > 0 {
		b.items[0].IsDefault = true
	}
	b.save()
}

// SetDefault makes id the only default address.
func (b *Book) SetDefault(id string) error {
	idx := b.indexOf(id)
	if idx < 0 {
		return domain.ErrNotFound
	}
	for i := range b.items {
		b.items[i].IsDefault = i == idx
	}
	b.save()
	return nil
}

func (b *Book) Get(id string) (domain.Address, error) {
	idx := b.indexOf(id)
	if idx < 0 {
		return domain.Address{}, domain.ErrNotFound
	}
	return b.items[idx].Clone(), nil
}

// Default returns the default address, if any.
func (b *Book) Default() (domain.Address, bool) {
	for _, a := range b.items {
		if a.IsDefault {
			return a.Clone(), true
		}
	}
	return domain.Address{}, false
}

func (b *Book) List() []domain.Address {
	return cloneAll(b.items)
}

func (b *Book) indexOf(id string) int {
	for i, a := range b.items {
		if a.ID == id {
			return i
		}
	}
	return -1
}

func (b *Book) save() {
	if b.persist == nil {
		return
	}
	b.persist.Save(persistence.KeyAddresses, cloneAll(b.items))
}

func normalizeDefault(items []domain.Address) {
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

func cloneAll(items []domain.Address) []domain.Address {
	out := make([]domain.Address, len(items))
	for i, a := range items {
		out[i] = a.Clone()
	}
	return out
}
