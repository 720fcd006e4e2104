package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type Coordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type Vendor struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	CreatedAt time.Time `json:"createdAt"`
}

func (v Vendor) Coordinates() Coordinates {
	return Coordinates{Latitude: v.Latitude, Longitude: v.Longitude}
}

type Product struct {
	ID          string          `json:"id"`
	VendorID    string          `json:"vendorId"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Price       decimal.Decimal `json:"price"`
	Image       string          `json:"image,omitempty"`
	CreatedAt   time.Time       `json:"createdAt"`
}
