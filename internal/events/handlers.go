package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"storefront-engine/internal/domain"

	"go.uber.org/zap"
)

// Queue names of the backend feed.
const (
	QueueOrderStatus   = "storefront.order.status"
	QueueRatingFetched = "storefront.rating.fetched"
)

// OrderStatusUpdate is a backend notification about an order's delivery progress.
type OrderStatusUpdate struct {
	OrderID           string     `json:"orderId"`
	Status            string     `json:"status,omitempty"`
	DriverID          *string    `json:"driverId,omitempty"`
	EstimatedDelivery *time.Time `json:"estimatedDelivery,omitempty"`
}

// OrderUpdater is the part of the engine the order feed drives.
type OrderUpdater interface {
	Order(id string) (domain.Order, error)
	AdvanceOrder(id string, status domain.OrderStatus) (domain.Order, error)
	UpdateOrder(id string, patch domain.OrderPatch) (domain.Order, error)
}

// RatingRecorder stores ratings fetched from the backend.
type RatingRecorder interface {
	RecordRating(r domain.ProductRating) error
}

// OrderStatusHandler checks the announced status against the order's current one,
// applies field updates, and then moves the order. A rejected transition leaves the
// order untouched. Repeated notifications for the current status are ignored.
func OrderStatusHandler(orders OrderUpdater, logger *zap.Logger) HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(ctx context.Context, body []byte) error {
		var ev OrderStatusUpdate
		if err := json.Unmarshal(body, &ev); err != nil {
			return fmt.Errorf("%w: unmarshal OrderStatusUpdate: %v", ErrMalformed, err)
		}
		if ev.OrderID == "" {
			return fmt.Errorf("%w: orderId is required", ErrMalformed)
		}
		var status domain.OrderStatus
		if ev.Status != "" {
			s, err := domain.ParseOrderStatus(ev.Status)
			if err != nil {
				return fmt.Errorf("%w: %v", ErrMalformed, err)
			}
			status = s
		}

		var from domain.OrderStatus
		if status != "" {
			current, err := orders.Order(ev.OrderID)
			if err != nil {
				return fmt.Errorf("get order %s: %w", ev.OrderID, err)
			}
			if current.Status == status {
				return nil
			}
			if !current.Status.CanMoveTo(status) {
				return fmt.Errorf("advance order %s: %w", ev.OrderID,
					&domain.TransitionError{OrderID: ev.OrderID, From: current.Status, To: status})
			}
			from = current.Status
		}

		if ev.DriverID != nil || ev.EstimatedDelivery != nil {
			patch := domain.OrderPatch{DriverID: ev.DriverID, EstimatedDelivery: ev.EstimatedDelivery}
			if _, err := orders.UpdateOrder(ev.OrderID, patch); err != nil {
				return fmt.Errorf("update order %s: %w", ev.OrderID, err)
			}
		}
		if status == "" {
			return nil
		}

		if _, err := orders.AdvanceOrder(ev.OrderID, status); err != nil {
			return fmt.Errorf("advance order %s: %w", ev.OrderID, err)
		}
		logger.Info("order status updated",
			zap.String("order_id", ev.OrderID),
			zap.String("from", from.String()),
			zap.String("to", status.String()),
		)
		return nil
	}
}

// RatingHandler records a fetched ProductRating.
func RatingHandler(ratings RatingRecorder, logger *zap.Logger) HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(ctx context.Context, body []byte) error {
		var r domain.ProductRating
		if err := json.Unmarshal(body, &r); err != nil {
			return fmt.Errorf("%w: unmarshal ProductRating: %v", ErrMalformed, err)
		}
		if err := ratings.RecordRating(r); err != nil {
			return fmt.Errorf("record rating for %s: %w", r.ProductID, err)
		}
		logger.Debug("rating recorded", zap.String("product_id", r.ProductID), zap.Int("rating", r.Rating))
		return nil
	}
}
