package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusConfirmed  OrderStatus = "confirmed"
	OrderStatusPreparing  OrderStatus = "preparing"
	OrderStatusReady      OrderStatus = "ready"
	OrderStatusPicked     OrderStatus = "picked"
	OrderStatusDelivering OrderStatus = "delivering"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusCancelled  OrderStatus = "cancelled"
)

// lifecycle is the forward-only delivery sequence. Cancelled sits outside it.
var lifecycle = []OrderStatus{
	OrderStatusPending,
	OrderStatusConfirmed,
	OrderStatusPreparing,
	OrderStatusReady,
	OrderStatusPicked,
	OrderStatusDelivering,
	OrderStatusDelivered,
}

// ParseOrderStatus converts a wire value into an OrderStatus.
func ParseOrderStatus(v string) (OrderStatus, error) {
	s := OrderStatus(v)
	if s == OrderStatusCancelled || s.rank() >= 0 {
		return s, nil
	}
	return "", Invalid("status", fmt.Sprintf("unknown order status %q", v))
}

func (s OrderStatus) rank() int {
	for i, st := range lifecycle {
		if st == s {
			return i
		}
	}
	return -1
}

// Terminal reports whether no further transition is possible.
func (s OrderStatus) Terminal() bool {
	return s == OrderStatusDelivered || s == OrderStatusCancelled
}

// Next returns the immediate successor in the delivery sequence.
func (s OrderStatus) Next() (OrderStatus, bool) {
	r := s.rank()
	if r < 0 || r+1 >= len(lifecycle) {
		return "", false
	}
	return lifecycle[r+1], true
}

// CanMoveTo reports whether to is the successor of s, or a cancellation of a live order.
func (s OrderStatus) CanMoveTo(to OrderStatus) bool {
	if s.Terminal() {
		return false
	}
	if to == OrderStatusCancelled {
		return true
	}
	next, ok := s.Next()
	return ok && next == to
}

func (s OrderStatus) String() string {
	return string(s)
}

type PaymentStatus string

const (
	PaymentStatusPending  PaymentStatus = "pending"
	PaymentStatusPaid     PaymentStatus = "paid"
	PaymentStatusRefunded PaymentStatus = "refunded"
)

type DeliveryType string

const (
	DeliveryTypeDelivery DeliveryType = "delivery"
	DeliveryTypePickup   DeliveryType = "pickup"
)

// Order is an immutable snapshot of the cart taken at checkout plus its delivery state.
type Order struct {
	ID                string          `json:"id"`
	CustomerID        string          `json:"customerId"`
	// VendorID names the vendor of the first line. A multi-vendor cart still becomes one
	// order, and its delivery quote is taken from that vendor.
	VendorID          string          `json:"vendorId"`
	DriverID          string          `json:"driverId,omitempty"`
	Items             []CartLine      `json:"items"`
	Subtotal          decimal.Decimal `json:"subtotal"`
	DeliveryFee       decimal.Decimal `json:"deliveryFee"`
	Total             decimal.Decimal `json:"total"`
	Status            OrderStatus     `json:"status"`
	CreatedAt         time.Time       `json:"createdAt"`
	UpdatedAt         time.Time       `json:"updatedAt"`
	EstimatedDelivery *time.Time      `json:"estimatedDelivery,omitempty"`
	DeliveryAddress   Address         `json:"deliveryAddress"`
	ContactPhone      string          `json:"contactPhone"`
	PaymentMethodID   string          `json:"paymentMethodId"`
	PaymentStatus     PaymentStatus   `json:"paymentStatus"`
	DeliveryType      DeliveryType    `json:"deliveryType"`
}

// Contains reports whether the order includes the given product.
func (o Order) Contains(productID string) bool {
	for _, item := range o.Items {
		if item.ID == productID {
			return true
		}
	}
	return false
}

// OrderPatch carries backend-originated field updates. Status is changed through transitions only.
type OrderPatch struct {
	DriverID          *string        `json:"driverId,omitempty"`
	EstimatedDelivery *time.Time     `json:"estimatedDelivery,omitempty"`
	PaymentStatus     *PaymentStatus `json:"paymentStatus,omitempty"`
}
