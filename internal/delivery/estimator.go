package delivery

import (
	"math"

	"storefront-engine/internal/domain"

	"github.com/shopspring/decimal"
)

const earthRadiusKm = 6371.0

// Quote is the delivery cost and travel estimate for one vendor/customer pair.
type Quote struct {
	Cost                 decimal.Decimal `json:"cost"`
	EstimatedTimeMinutes int             `json:"estimatedTimeMinutes"`
}

// DistanceEstimator prices delivery by great-circle distance.
type DistanceEstimator struct {
	BaseFee      decimal.Decimal
	PerKm        decimal.Decimal
	BaseMinutes  int
	MinutesPerKm float64
}

func NewDistanceEstimator() DistanceEstimator {
	return DistanceEstimator{
		BaseFee:      decimal.RequireFromString("1.99"),
		PerKm:        decimal.RequireFromString("0.50"),
		BaseMinutes:  15,
		MinutesPerKm: 3,
	}
}

// Estimate returns the fee and minutes for delivering from vendor to customer.
func (e DistanceEstimator) Estimate(vendor, customer domain.Coordinates) Quote {
	km := DistanceKm(vendor, customer)
	cost := e.BaseFee.Add(e.PerKm.Mul(decimal.NewFromFloat(km))).Round(2)
	return Quote{
		Cost:                 cost,
		EstimatedTimeMinutes: e.BaseMinutes + int(math.Ceil(e.MinutesPerKm*km)),
	}
}

// PreparationOnly is the quote used when distance is unknown or the order is picked up.
func (e DistanceEstimator) PreparationOnly() Quote {
	return Quote{Cost: decimal.Zero, EstimatedTimeMinutes: e.BaseMinutes}
}

// DistanceKm is the haversine distance between two points.
func DistanceKm(a, b domain.Coordinates) float64 {
	lat1, lat2 := radians(a.Latitude), radians(b.Latitude)
	dLat := lat2 - lat1
	dLng := radians(b.Longitude - a.Longitude)
	h := math.Sin(dLat/2)*math.Sin(dLat/2) + math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * earthRadiusKm * math.Asin(math.Min(1, math.Sqrt(h)))
}

func radians(deg float64) float64 {
	return deg * math.Pi / 180
}
