package address

import (
	"errors"
	"fmt"
	"math/rand"
	"testing"

	"storefront-engine/internal/domain"
	"storefront-engine/internal/service/persistence"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingPersister struct {
	keys  []string
	last  []domain.Address
	saves int
}

func (r *recordingPersister) Save(key string, value any) {
	r.keys = append(r.keys, key)
	r.last = value.([]domain.Address)
	r.saves++
}

func addr(id string) domain.Address {
	return domain.Address{ID: id, Label: "label " + id, Street: "Street 1", City: "Town", PostalCode: "12345"}
}

func defaultCount(items []domain.Address) int {
	n := 0
	for _, a := range items {
		if a.IsDefault {
			n++
		}
	}
	return n
}

func TestAddFirstBecomesDefault(t *testing.T) {
	p := &recordingPersister{}
	book := New(p)

	first, err := book.Add(addr("a"))
	require.NoError(t, err)
	assert.True(t, first.IsDefault)

	second, err := book.Add(domain.Address{Label: "Work", Street: "Office 2", City: "Town", IsDefault: true})
	require.NoError(t, err)
	assert.False(t, second.IsDefault, "isDefault from input must be ignored")
	assert.NotEmpty(t, second.ID)

	assert.Equal(t, 1, defaultCount(book.List()))
	assert.Equal(t, 2, p.saves)
	assert.Equal(t, []string{persistence.KeyAddresses, persistence.KeyAddresses}, p.keys)
	assert.Len(t, p.last, 2, "persist receives the whole collection")
}

func TestAddValidation(t *testing.T) {
	p := &recordingPersister{}
	book := New(p)
	_, err := book.Add(domain.Address{Label: "Home", City: "Town"})
	assert.ErrorIs(t, err, domain.ErrValidation)
	assert.Empty(t, book.List())
	assert.Zero(t, p.saves)
}

func TestRemoveDefaultPromotesFirstRemaining(t *testing.T) {
	book := New(&recordingPersister{})
	for _, id := range []string{"A", "B", "C"} {
		_, err := book.Add(addr(id))
		require.NoError(t, err)
	}

	book.Remove("A")

	items := book.List()
	require.Len(t, items, 2)
	assert.True(t, items[0].IsDefault)
	assert.Equal(t, "B", items[0].ID)
	assert.False(t, items[1].IsDefault)
}

func TestRemoveUnknownIsNoop(t *testing.T) {
	p := &recordingPersister{}
	book := New(p)
	_, _ = book.Add(addr("a"))
	book.Remove("zzz")
	assert.Len(t, book.List(), 1)
	assert.Equal(t, 1, p.saves)
}

func TestRemoveLastLeavesNoDefault(t *testing.T) {
	book := New(&recordingPersister{})
	_, _ = book.Add(addr("a"))
	book.Remove("a")
	_, ok := book.Default()
	assert.False(t, ok)
}

func TestSetDefault(t *testing.T) {
	book := New(&recordingPersister{})
	_, _ = book.Add(addr("a"))
	_, _ = book.Add(addr("b"))

	require.NoError(t, book.SetDefault("b"))
	def, ok := book.Default()
	require.True(t, ok)
	assert.Equal(t, "b", def.ID)
	assert.Equal(t, 1, defaultCount(book.List()))

	assert.ErrorIs(t, book.SetDefault("missing"), domain.ErrNotFound)
	def, _ = book.Default()
	assert.Equal(t, "b", def.ID)
}

func TestUpdateMergesFields(t *testing.T) {
	book := New(&recordingPersister{})
	_, _ = book.Add(addr("a"))

	street := "New Street 9"
	updated, err := book.Update("a", domain.AddressPatch{Street: &street})
	require.NoError(t, err)
	assert.Equal(t, "New Street 9", updated.Street)
	assert.Equal(t, "label a", updated.Label)
	assert.True(t, updated.IsDefault)

	empty := ""
	_, err = book.Update("a", domain.AddressPatch{City: &empty})
	assert.ErrorIs(t, err, domain.ErrValidation)
	got, _ := book.Get("a")
	assert.Equal(t, "Town", got.City)

	_, err = book.Update("missing", domain.AddressPatch{})
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestReplaceRepairsDefault(t *testing.T) {
	book := New(nil)
	a, b := addr("a"), addr("b")
	a.IsDefault, b.IsDefault = true, true
	book.Replace([]domain.Address{a, b})
	assert.Equal(t, 1, defaultCount(book.List()))

	book.Replace([]domain.Address{addr("x"), addr("y")})
	def, ok := book.Default()
	require.True(t, ok)
	assert.Equal(t, "x", def.ID)
}

func TestSingleDefaultInvariant(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	book := New(&recordingPersister{})
	next := 0
	for i := 0; i < 400; i++ {
		items := book.List()
		switch op := rng.Intn(3); {
		case op == 0 || len(items) == 0:
			next++
			_, err := book.Add(addr(fmt.Sprintf("id-%d", next)))
			require.NoError(t, err)
		case op == 1:
			book.Remove(items[rng.Intn(len(items))].ID)
		default:
			require.NoError(t, book.SetDefault(items[rng.Intn(len(items))].ID))
		}

		items = book.List()
		if len(items) == 0 {
			assert.Equal(t, 0, defaultCount(items))
		} else {
			assert.Equal(t, 1, defaultCount(items), "step %d", i)
		}
	}
}
