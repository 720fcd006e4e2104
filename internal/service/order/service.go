package order

import (
	"strings"
	"time"

	"storefront-engine/internal/domain"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PlaceInput is everything checkout hands to the ledger.
type PlaceInput struct {
	CustomerID        string
	Items             []domain.CartLine
	Address           *domain.Address
	ContactPhone      string
	PaymentMethod     *domain.PaymentMethod
	DeliveryType      domain.DeliveryType
	DeliveryFee       decimal.Decimal
	EstimatedDelivery *time.Time
}

// Ledger accumulates orders most-recent-first and drives their status lifecycle.
// Orders are never deleted. It is not safe for concurrent use.
type Ledger struct {
	orders []domain.Order
	now    func() time.Time
	newID  func() string
}

func New() *Ledger {
	return &Ledger{now: time.Now, newID: uuid.NewString}
}

// Place validates the checkout preconditions and records a pending order built from a
// private copy of the items.
func (l *Ledger) Place(in PlaceInput) (domain.Order, error) {
	if len(in.Items) == 0 {
		return domain.Order{}, domain.Invalid("cart", "is empty")
	}
	if in.Address == nil || strings.TrimSpace(in.Address.Street) == "" {
		return domain.Order{}, domain.Invalid("deliveryAddress", "is required")
	}
	if strings.TrimSpace(in.ContactPhone) == "" {
		return domain.Order{}, domain.Invalid("contactPhone", "is required")
	}
	if in.PaymentMethod == nil {
		return domain.Order{}, domain.Invalid("paymentMethod", "could not be resolved")
	}
	if in.PaymentMethod.Kind == domain.PaymentKindCard && in.PaymentMethod.ID == "" {
		return domain.Order{}, domain.Invalid("paymentMethod", "card could not be resolved")
	}

	deliveryType := in.DeliveryType
	if deliveryType == "" {
		deliveryType = domain.DeliveryTypeDelivery
	}
	fee := in.DeliveryFee
	if deliveryType == domain.DeliveryTypePickup {
		fee = decimal.Zero
	}

	items := domain.CloneLines(in.Items)
	subtotal := decimal.Zero
	for _, item := range items {
		subtotal = subtotal.Add(item.LineTotal())
	}

	now := l.now().UTC()
	o := domain.Order{
		ID:                l.newID(),
		CustomerID:        in.CustomerID,
		VendorID:          items[0].VendorID,
		Items:             items,
		Subtotal:          subtotal,
		DeliveryFee:       fee,
		Total:             subtotal.Add(fee),
		Status:            domain.OrderStatusPending,
		CreatedAt:         now,
		UpdatedAt:         now,
		EstimatedDelivery: copyTime(in.EstimatedDelivery),
		DeliveryAddress:   in.Address.Clone(),
		ContactPhone:      strings.TrimSpace(in.ContactPhone),
		PaymentMethodID:   in.PaymentMethod.ID,
		PaymentStatus:     domain.PaymentStatusPending,
		DeliveryType:      deliveryType,
	}
	l.orders = append([]domain.Order{o}, l.orders...)
	return clone(o), nil
}

// Advance moves an order to status. Only the immediate successor in the lifecycle, or
// cancellation of a non-terminal order, is accepted.
func (l *Ledger) Advance(orderID string, status domain.OrderStatus) (domain.Order, error) {
	idx := l.indexOf(orderID)
	if idx < 0 {
		return domain.Order{}, domain.ErrNotFound
	}
	current := l.orders[idx].Status
	if !current.CanMoveTo(status) {
		return domain.Order{}, &domain.TransitionError{OrderID: orderID, From: current, To: status}
	}
	l.orders[idx].Status = status
	l.orders[idx].UpdatedAt = l.now().UTC()
	return clone(l.orders[idx]), nil
}

// Complete marks a delivering order as delivered. Any other current state is rejected.
func (l *Ledger) Complete(orderID string) (domain.Order, error) {
	idx := l.indexOf(orderID)
	if idx < 0 {
		return domain.Order{}, domain.ErrNotFound
	}
	if current := l.orders[idx].Status; current != domain.OrderStatusDelivering {
		return domain.Order{}, &domain.TransitionError{OrderID: orderID, From: current, To: domain.OrderStatusDelivered}
	}
	return l.Advance(orderID, domain.OrderStatusDelivered)
}

func (l *Ledger) Cancel(orderID string) (domain.Order, error) {
	return l.Advance(orderID, domain.OrderStatusCancelled)
}

// Update applies backend-originated field changes.
func (l *Ledger) Update(orderID string, patch domain.OrderPatch) (domain.Order, error) {
	idx := l.indexOf(orderID)
	if idx < 0 {
		return domain.Order{}, domain.ErrNotFound
	}
	if patch.PaymentStatus != nil {
		switch *patch.PaymentStatus {
		case domain.PaymentStatusPending, domain.PaymentStatusPaid, domain.PaymentStatusRefunded:
		default:
			return domain.Order{}, domain.Invalid("paymentStatus", "unknown value")
		}
	}
	o := &l.orders[idx]
	if patch.DriverID != nil {
		o.DriverID = *patch.DriverID
	}
	if patch.EstimatedDelivery != nil {
		o.EstimatedDelivery = copyTime(patch.EstimatedDelivery)
	}
	if patch.PaymentStatus != nil {
		o.PaymentStatus = *patch.PaymentStatus
	}
	o.UpdatedAt = l.now().UTC()
	return clone(*o), nil
}

func (l *Ledger) Get(orderID string) (domain.Order, error) {
	idx := l.indexOf(orderID)
	if idx < 0 {
		return domain.Order{}, domain.ErrNotFound
	}
	return clone(l.orders[idx]), nil
}

// All returns every order, most recent first.
func (l *Ledger) All() []domain.Order {
	return l.filter(func(domain.Order) bool { return true })
}

// Current returns orders that are still on their way.
func (l *Ledger) Current() []domain.Order {
	return l.filter(func(o domain.Order) bool { return !o.Status.Terminal() })
}

// Past returns delivered and cancelled orders.
func (l *Ledger) Past() []domain.Order {
	return l.filter(func(o domain.Order) bool { return o.Status.Terminal() })
}

func (l *Ledger) filter(keep func(domain.Order) bool) []domain.Order {
	out := make([]domain.Order, 0, len(l.orders))
	for _, o := range l.orders {
		if keep(o) {
			out = append(out, clone(o))
		}
	}
	return out
}

func (l *Ledger) indexOf(orderID string) int {
	for i, o := range l.orders {
		if o.ID == orderID {
			return i
		}
	}
	return -1
}

func clone(o domain.Order) domain.Order {
	o.Items = domain.CloneLines(o.Items)
	o.DeliveryAddress = o.DeliveryAddress.Clone()
	o.EstimatedDelivery = copyTime(o.EstimatedDelivery)
	return o
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
