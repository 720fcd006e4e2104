package domain

import "time"

// ProductRating is one customer's score for a product, unique by (ProductID, CustomerID).
type ProductRating struct {
	ProductID  string    `json:"productId" validate:"required"`
	CustomerID string    `json:"customerId" validate:"required"`
	Rating     int       `json:"rating" validate:"min=1,max=5"`
	OrderID    string    `json:"orderId,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
}
