package engine

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"storefront-engine/internal/delivery"
	"storefront-engine/internal/domain"
	"storefront-engine/internal/repository/catalog"
	"storefront-engine/internal/service/address"
	"storefront-engine/internal/service/cart"
	"storefront-engine/internal/service/order"
	"storefront-engine/internal/service/payment"
	"storefront-engine/internal/service/persistence"
	"storefront-engine/internal/service/rating"

	"go.uber.org/zap"
)

// Persister is the durable side of the address book and payment registry.
type Persister interface {
	Save(key string, value any)
	Load(ctx context.Context, key string, dst any) (bool, error)
}

// Estimator quotes delivery cost and time.
type Estimator interface {
	Estimate(vendor, customer domain.Coordinates) delivery.Quote
	PreparationOnly() delivery.Quote
}

// Engine is the single store instance shared by every caller. All operations are
// serialized by one mutex so callers observe the effects of each call in order.
type Engine struct {
	mu sync.Mutex

	logger    *zap.Logger
	catalog   catalog.Repository
	persist   Persister
	estimator Estimator
	now       func() time.Time

	cart      *cart.Service
	addresses *address.Book
	payments  *payment.Registry
	orders    *order.Ledger
	ratings   *rating.Aggregator

	user          *domain.User
	authenticated bool
}

func New(cat catalog.Repository, persist Persister, estimator Estimator, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		logger:    logger,
		catalog:   cat,
		persist:   persist,
		estimator: estimator,
		now:       time.Now,
		cart:      cart.New(),
		addresses: address.New(persist),
		payments:  payment.New(persist),
		orders:    order.New(),
		ratings:   rating.New(),
	}
}

// Load replaces the address book and payment registry with their durable copies.
// Missing or unreadable records leave an empty book and a cash-only registry.
func (e *Engine) Load(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	var addrs []domain.Address
	addrsFound, err := e.persist.Load(ctx, persistence.KeyAddresses, &addrs)
	if err != nil {
		if ctx.Err() != nil {
			return err
		}
		e.logger.Warn("discarding stored addresses", zap.Error(err))
		addrs, addrsFound = nil, false
	}
	e.addresses.Replace(addrs)

	var methods []domain.PaymentMethod
	methodsFound, err := e.persist.Load(ctx, persistence.KeyPaymentMethods, &methods)
	if err != nil {
		if ctx.Err() != nil {
			return err
		}
		e.logger.Warn("discarding stored payment methods", zap.Error(err))
		methods, methodsFound = nil, false
	}
	e.payments.Replace(methods)

	e.logger.Info("engine state loaded",
		zap.Bool("addresses_found", addrsFound),
		zap.Int("addresses", len(e.addresses.List())),
		zap.Bool("payment_methods_found", methodsFound),
		zap.Int("payment_methods", len(e.payments.List())),
	)
	return nil
}

// Session

func (e *Engine) SetUser(u *domain.User) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if u == nil {
		e.user = nil
		return
	}
	cp := *u
	e.user = &cp
}

func (e *Engine) SetAuthenticated(v bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.authenticated = v
}

// User returns the session user and whether the session is authenticated.
func (e *Engine) User() (*domain.User, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.user == nil {
		return nil, e.authenticated
	}
	cp := *e.user
	return &cp, e.authenticated
}

func (e *Engine) customerID() string {
	if e.user == nil {
		return ""
	}
	return e.user.ID
}

// Cart

func (e *Engine) AddToCart(line domain.CartLine) (domain.Cart, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.cart.Add(line); err != nil {
		return domain.Cart{}, err
	}
	return e.cart.Cart(), nil
}

// AddProduct resolves productID and its vendor through the catalog and adds qty units.
func (e *Engine) AddProduct(ctx context.Context, productID string, qty int, customizations []string) (domain.Cart, error) {
	if qty <= 0 {
		return domain.Cart{}, domain.Invalid("quantity", "must be greater than 0")
	}
	p, err := e.catalog.GetProduct(ctx, productID)
	if err != nil {
		return domain.Cart{}, err
	}
	v, err := e.catalog.GetVendor(ctx, p.VendorID)
	if err != nil {
		return domain.Cart{}, err
	}
	return e.AddToCart(domain.CartLine{
		ID:             p.ID,
		Name:           p.Name,
		UnitPrice:      p.Price,
		Quantity:       qty,
		VendorID:       v.ID,
		VendorName:     v.Name,
		Image:          p.Image,
		Customizations: customizations,
	})
}

func (e *Engine) RemoveFromCart(id string) domain.Cart {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cart.Remove(id)
	return e.cart.Cart()
}

func (e *Engine) UpdateQuantity(id string, qty int) domain.Cart {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cart.UpdateQuantity(id, qty)
	return e.cart.Cart()
}

func (e *Engine) ClearCart() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cart.Clear()
}

func (e *Engine) Cart() domain.Cart {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cart.Cart()
}

func (e *Engine) VendorGroups() []domain.VendorGroup {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cart.VendorGroups()
}

func (e *Engine) DismissMultiVendorNotice() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cart.DismissMultiVendorNotice()
}

// Addresses

func (e *Engine) AddAddress(a domain.Address) (domain.Address, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.addresses.Add(a)
}

func (e *Engine) UpdateAddress(id string, patch domain.AddressPatch) (domain.Address, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.addresses.Update(id, patch)
}

func (e *Engine) RemoveAddress(id string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.addresses.Remove(id)
}

func (e *Engine) SetDefaultAddress(id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.addresses.SetDefault(id)
}

func (e *Engine) Addresses() []domain.Address {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.addresses.List()
}

// Payment methods

func (e *Engine) AddPaymentMethod(m domain.PaymentMethod) (domain.PaymentMethod, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.payments.Add(m)
}

func (e *Engine) UpdatePaymentMethod(id string, patch domain.PaymentMethodPatch) (domain.PaymentMethod, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.payments.Update(id, patch)
}

func (e *Engine) RemovePaymentMethod(id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.payments.Remove(id)
}

func (e *Engine) SetDefaultPaymentMethod(id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.payments.SetDefault(id)
}

func (e *Engine) PaymentMethods() []domain.PaymentMethod {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.payments.List()
}

// Checkout

// CheckoutInput selects what the order is placed with. Empty ids pick the defaults and an
// empty phone falls back to the session user's phone.
type CheckoutInput struct {
	AddressID       string              `json:"addressId,omitempty"`
	PaymentMethodID string              `json:"paymentMethodId,omitempty"`
	DeliveryType    domain.DeliveryType `json:"deliveryType,omitempty"`
	ContactPhone    string              `json:"contactPhone,omitempty"`
}

// Checkout places an order from the current cart and clears the cart on success.
func (e *Engine) Checkout(ctx context.Context, in CheckoutInput) (domain.Order, error) {
	if in.DeliveryType != "" && in.DeliveryType != domain.DeliveryTypeDelivery && in.DeliveryType != domain.DeliveryTypePickup {
		return domain.Order{}, domain.Invalid("deliveryType", "must be delivery or pickup")
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	items := e.cart.Snapshot()
	addr := e.resolveAddress(in.AddressID)
	method := e.resolvePayment(in.PaymentMethodID)
	phone := strings.TrimSpace(in.ContactPhone)
	if phone == "" && e.user != nil {
		phone = e.user.Phone
	}

	quote := e.estimator.PreparationOnly()
	if len(items) > 0 && addr != nil && in.DeliveryType != domain.DeliveryTypePickup {
		quote = e.quote(ctx, items[0].VendorID, *addr)
	}
	eta := e.now().UTC().Add(time.Duration(quote.EstimatedTimeMinutes) * time.Minute)

	placed, err := e.orders.Place(order.PlaceInput{
		CustomerID:        e.customerID(),
		Items:             items,
		Address:           addr,
		ContactPhone:      phone,
		PaymentMethod:     method,
		DeliveryType:      in.DeliveryType,
		DeliveryFee:       quote.Cost,
		EstimatedDelivery: &eta,
	})
	if err != nil {
		return domain.Order{}, err
	}
	e.cart.Clear()
	e.logger.Info("order placed",
		zap.String("order_id", placed.ID),
		zap.String("vendor_id", placed.VendorID),
		zap.String("total", placed.Total.StringFixed(2)),
	)
	return placed, nil
}

func (e *Engine) resolveAddress(id string) *domain.Address {
	if id == "" {
		if a, ok := e.addresses.Default(); ok {
			return &a
		}
		return nil
	}
	a, err := e.addresses.Get(id)
	if err != nil {
		return nil
	}
	return &a
}

func (e *Engine) resolvePayment(id string) *domain.PaymentMethod {
	if id == "" {
		if m, ok := e.payments.Default(); ok {
			return &m
		}
		return nil
	}
	m, err := e.payments.Get(id)
	if err != nil {
		return nil
	}
	return &m
}

func (e *Engine) quote(ctx context.Context, vendorID string, addr domain.Address) delivery.Quote {
	to, ok := addr.Coordinates()
	if !ok {
		return e.estimator.PreparationOnly()
	}
	v, err := e.catalog.GetVendor(ctx, vendorID)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			e.logger.Warn("vendor lookup for delivery quote", zap.String("vendor_id", vendorID), zap.Error(err))
		}
		return e.estimator.PreparationOnly()
	}
	return e.estimator.Estimate(v.Coordinates(), to)
}

// Orders

func (e *Engine) AdvanceOrder(id string, status domain.OrderStatus) (domain.Order, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.orders.Advance(id, status)
}

func (e *Engine) CompleteOrder(id string) (domain.Order, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.orders.Complete(id)
}

func (e *Engine) CancelOrder(id string) (domain.Order, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.orders.Cancel(id)
}

func (e *Engine) UpdateOrder(id string, patch domain.OrderPatch) (domain.Order, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.orders.Update(id, patch)
}

func (e *Engine) Order(id string) (domain.Order, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.orders.Get(id)
}

func (e *Engine) Orders() []domain.Order {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.orders.All()
}

func (e *Engine) CurrentOrders() []domain.Order {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.orders.Current()
}

func (e *Engine) PastOrders() []domain.Order {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.orders.Past()
}

// Ratings

// SubmitRating records a rating from the session customer. The customer must have a
// delivered order containing the product. A rating naming another customer is rejected.
func (e *Engine) SubmitRating(r domain.ProductRating) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	self := e.customerID()
	if r.CustomerID != "" && r.CustomerID != self {
		return domain.Invalid("customerId", "does not match the session customer")
	}
	r.CustomerID = self
	if !rating.CanRate(r.ProductID, r.CustomerID, e.orders.All()) {
		return domain.Invalid("productId", "no delivered order contains this product")
	}
	return e.ratings.Submit(r)
}

// RecordRating stores a rating fetched from the backend without the delivered-order check.
func (e *Engine) RecordRating(r domain.ProductRating) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ratings.Submit(r)
}

// CanRate reports whether the session customer may rate productID.
func (e *Engine) CanRate(productID string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return rating.CanRate(productID, e.customerID(), e.orders.All())
}

// ProductRating returns the displayed rating and the number of real ratings behind it.
func (e *Engine) ProductRating(productID string) (float64, int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ratings.ProductRating(productID), e.ratings.Count(productID)
}

// VendorRating rates vendorID over the products the catalog lists for it.
func (e *Engine) VendorRating(ctx context.Context, vendorID string) (float64, error) {
	products, err := e.catalog.ListProductsByVendor(ctx, vendorID)
	if err != nil {
		return 0, err
	}
	ids := make([]string, 0, len(products))
	for _, p := range products {
		ids = append(ids, p.ID)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ratings.VendorRating(vendorID, ids), nil
}
