package rating

import (
	"math"
	"time"

	"storefront-engine/internal/domain"
)

// Aggregator stores product ratings and derives product and vendor scores from them.
// It is not safe for concurrent use.
type Aggregator struct {
	ratings []domain.ProductRating
	now     func() time.Time
}

func New() *Aggregator {
	return &Aggregator{now: time.Now}
}

// FallbackRating maps an id onto [3.5, 5.0] in steps of 0.1: the byte sum of the id
// modulo 16 is added, in tenths, to 3.5. The same id always yields the same value.
func FallbackRating(id string) float64 {
	sum := 0
	for i := 0; i < len(id); i++ {
		sum += int(id[i])
	}
	return round1(3.5 + float64(sum%16)/10)
}

// Submit stores r, replacing an earlier rating by the same customer for the same product.
func (a *Aggregator) Submit(r domain.ProductRating) error {
	if err := domain.Validate(r); err != nil {
		return err
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = a.now().UTC()
	}
	for i, existing := range a.ratings {
		if existing.ProductID == r.ProductID && existing.CustomerID == r.CustomerID {
			a.ratings[i] = r
			return nil
		}
	}
	a.ratings = append(a.ratings, r)
	return nil
}

// ProductRating averages the stored ratings for productID, or falls back to
// FallbackRating when there are none.
func (a *Aggregator) ProductRating(productID string) float64 {
	sum, n := a.sum(map[string]struct{}{productID: {}})
	if n == 0 {
		return FallbackRating(productID)
	}
	return round1(float64(sum) / float64(n))
}

// VendorRating averages the real ratings of productIDs. When none of them has a real
// rating it averages their fallbacks instead; the two are never mixed.
func (a *Aggregator) VendorRating(vendorID string, productIDs []string) float64 {
	if len(productIDs) == 0 {
		return FallbackRating(vendorID)
	}
	set := make(map[string]struct{}, len(productIDs))
	for _, id := range productIDs {
		set[id] = struct{}{}
	}
	if sum, n := a.sum(set); n > 0 {
		return round1(float64(sum) / float64(n))
	}
	total := 0.0
	for _, id := range productIDs {
		total += FallbackRating(id)
	}
	return round1(total / float64(len(productIDs)))
}

// Count returns the number of real ratings for productID.
func (a *Aggregator) Count(productID string) int {
	_, n := a.sum(map[string]struct{}{productID: {}})
	return n
}

// Ratings returns the stored ratings for productID.
func (a *Aggregator) Ratings(productID string) []domain.ProductRating {
	var out []domain.ProductRating
	for _, r := range a.ratings {
		if r.ProductID == productID {
			out = append(out, r)
		}
	}
	return out
}

// CanRate reports whether customerID has a delivered order containing productID.
func CanRate(productID, customerID string, orders []domain.Order) bool {
	for _, o := range orders {
		if o.CustomerID == customerID && o.Status == domain.OrderStatusDelivered && o.Contains(productID) {
			return true
		}
	}
	return false
}

func (a *Aggregator) sum(products map[string]struct{}) (int, int) {
	sum, n := 0, 0
	for _, r := range a.ratings {
		if _, ok := products[r.ProductID]; ok {
			sum += r.Rating
			n++
		}
	}
	return sum, n
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
