package engine

import (
	"context"
	"testing"
	"time"

	"storefront-engine/internal/delivery"
	"storefront-engine/internal/domain"
	"storefront-engine/internal/repository/catalog"
	"storefront-engine/internal/repository/kv"
	"storefront-engine/internal/service/persistence"
	"storefront-engine/internal/service/rating"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fixture struct {
	engine  *Engine
	store   *kv.Memory
	writer  *persistence.Writer
	catalog *catalog.Memory
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := kv.NewMemory()
	return newFixtureWithStore(t, store)
}

func newFixtureWithStore(t *testing.T, store *kv.Memory) *fixture {
	t.Helper()
	writer := persistence.NewWriter(store, zap.NewNop())
	t.Cleanup(func() { _ = writer.Close(context.Background()) })

	cat := catalog.NewMemory()
	seedCatalog(t, cat)

	eng := New(cat, writer, delivery.NewDistanceEstimator(), zap.NewNop())
	eng.now = func() time.Time { return time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC) }
	require.NoError(t, eng.Load(context.Background()))
	return &fixture{engine: eng, store: store, writer: writer, catalog: cat}
}

func seedCatalog(t *testing.T, cat *catalog.Memory) {
	t.Helper()
	ctx := context.Background()
	_, err := cat.UpsertVendor(ctx, domain.Vendor{ID: "v-1", Name: "Luigi's", Latitude: 52.5200, Longitude: 13.4050})
	require.NoError(t, err)
	_, err = cat.UpsertVendor(ctx, domain.Vendor{ID: "v-2", Name: "Corner Bakery", Latitude: 52.5300, Longitude: 13.4100})
	require.NoError(t, err)
	_, err = cat.UpsertProduct(ctx, domain.Product{ID: "p-1", VendorID: "v-1", Name: "Margherita", Price: decimal.RequireFromString("3.99")})
	require.NoError(t, err)
	_, err = cat.UpsertProduct(ctx, domain.Product{ID: "p-2", VendorID: "v-2", Name: "Croissant", Price: decimal.RequireFromString("2.49")})
	require.NoError(t, err)
	_, err = cat.UpsertProduct(ctx, domain.Product{ID: "p-3", VendorID: "v-1", Name: "Diavola", Price: decimal.RequireFromString("5.50")})
	require.NoError(t, err)
}

func (f *fixture) signIn(t *testing.T) {
	t.Helper()
	f.engine.SetUser(&domain.User{ID: "cust-1", Name: "Ada", Phone: "+49 30 1234"})
	f.engine.SetAuthenticated(true)
}

func (f *fixture) addHome(t *testing.T, withCoords bool) domain.Address {
	t.Helper()
	a := domain.Address{Label: "Home", Street: "Main St 1", City: "Berlin", PostalCode: "10115"}
	if withCoords {
		lat, lng := 52.5100, 13.3900
		a.Latitude, a.Longitude = &lat, &lng
	}
	out, err := f.engine.AddAddress(a)
	require.NoError(t, err)
	return out
}

func TestLoadSeedsCashWhenStoreIsEmpty(t *testing.T) {
	f := newFixture(t)

	methods := f.engine.PaymentMethods()
	require.Len(t, methods, 1)
	assert.Equal(t, domain.CashMethodID, methods[0].ID)
	assert.True(t, methods[0].IsDefault)
	assert.Empty(t, f.engine.Addresses())
}

func TestLoadRestoresPersistedCollections(t *testing.T) {
	store := kv.NewMemory()
	first := newFixtureWithStore(t, store)
	home := first.addHome(t, false)
	card, err := first.engine.AddPaymentMethod(domain.PaymentMethod{Kind: domain.PaymentKindCard, Label: "Visa", Last4: "4242", Expiry: "12/27"})
	require.NoError(t, err)
	require.NoError(t, first.engine.SetDefaultPaymentMethod(card.ID))
	require.NoError(t, first.writer.Flush(context.Background()))

	second := newFixtureWithStore(t, store)
	assert.Equal(t, first.engine.Addresses(), second.engine.Addresses())
	assert.Equal(t, first.engine.PaymentMethods(), second.engine.PaymentMethods())
	assert.Equal(t, home.ID, second.engine.Addresses()[0].ID)
}

func TestLoadTreatsCorruptRecordsAsMissing(t *testing.T) {
	store := kv.NewMemory()
	ctx := context.Background()
	require.NoError(t, store.Put(ctx, persistence.KeyAddresses, []byte(`{not json`)))
	require.NoError(t, store.Put(ctx, persistence.KeyPaymentMethods, []byte(`"oops"`)))

	f := newFixtureWithStore(t, store)
	assert.Empty(t, f.engine.Addresses())
	require.Len(t, f.engine.PaymentMethods(), 1)
	assert.Equal(t, domain.CashMethodID, f.engine.PaymentMethods()[0].ID)
}

func TestAddProductResolvesCatalog(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	c, err := f.engine.AddProduct(ctx, "p-1", 3, nil)
	require.NoError(t, err)
	assert.Equal(t, "11.97", c.Total.StringFixed(2))
	assert.False(t, c.MultiVendor)
	assert.Equal(t, "Luigi's", c.Lines[0].VendorName)

	c, err = f.engine.AddProduct(ctx, "p-2", 1, nil)
	require.NoError(t, err)
	assert.Equal(t, "14.46", c.Total.StringFixed(2))
	assert.True(t, c.MultiVendor)

	_, err = f.engine.AddProduct(ctx, "missing", 1, nil)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = f.engine.AddProduct(ctx, "p-1", 0, nil)
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestCheckoutPlacesOrderAndClearsCart(t *testing.T) {
	f := newFixture(t)
	f.signIn(t)
	ctx := context.Background()
	home := f.addHome(t, false)

	_, err := f.engine.AddProduct(ctx, "p-1", 3, nil)
	require.NoError(t, err)
	_, err = f.engine.AddProduct(ctx, "p-2", 1, nil)
	require.NoError(t, err)

	o, err := f.engine.Checkout(ctx, CheckoutInput{})
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusPending, o.Status)
	assert.Equal(t, "cust-1", o.CustomerID)
	assert.Equal(t, "v-1", o.VendorID)
	assert.Equal(t, home.ID, o.DeliveryAddress.ID)
	assert.Equal(t, domain.CashMethodID, o.PaymentMethodID)
	assert.Equal(t, "+49 30 1234", o.ContactPhone)
	assert.Equal(t, "14.46", o.Total.StringFixed(2))
	require.NotNil(t, o.EstimatedDelivery)
	assert.Equal(t, f.engine.now().Add(15*time.Minute), *o.EstimatedDelivery)

	c := f.engine.Cart()
	assert.Empty(t, c.Lines)
	assert.True(t, c.Total.IsZero())
	assert.False(t, c.MultiVendor)
	assert.Len(t, f.engine.CurrentOrders(), 1)
}

func TestCheckoutQuotesDistanceWhenCoordinatesKnown(t *testing.T) {
	f := newFixture(t)
	f.signIn(t)
	ctx := context.Background()
	f.addHome(t, true)
	_, err := f.engine.AddProduct(ctx, "p-1", 1, nil)
	require.NoError(t, err)

	o, err := f.engine.Checkout(ctx, CheckoutInput{})
	require.NoError(t, err)
	assert.True(t, o.DeliveryFee.GreaterThan(decimal.RequireFromString("1.99")), "fee %s", o.DeliveryFee)
	assert.True(t, o.Total.Equal(o.Subtotal.Add(o.DeliveryFee)))
}

func TestCheckoutPickupHasNoFee(t *testing.T) {
	f := newFixture(t)
	f.signIn(t)
	ctx := context.Background()
	f.addHome(t, true)
	_, err := f.engine.AddProduct(ctx, "p-1", 2, nil)
	require.NoError(t, err)

	o, err := f.engine.Checkout(ctx, CheckoutInput{DeliveryType: domain.DeliveryTypePickup})
	require.NoError(t, err)
	assert.True(t, o.DeliveryFee.IsZero())
	assert.Equal(t, "7.98", o.Total.StringFixed(2))
}

func TestCheckoutPreconditions(t *testing.T) {
	ctx := context.Background()

	t.Run("empty cart", func(t *testing.T) {
		f := newFixture(t)
		f.signIn(t)
		f.addHome(t, false)
		_, err := f.engine.Checkout(ctx, CheckoutInput{})
		assert.ErrorIs(t, err, domain.ErrValidation)
	})

	t.Run("no address keeps cart", func(t *testing.T) {
		f := newFixture(t)
		f.signIn(t)
		_, err := f.engine.AddProduct(ctx, "p-1", 1, nil)
		require.NoError(t, err)
		_, err = f.engine.Checkout(ctx, CheckoutInput{})
		assert.ErrorIs(t, err, domain.ErrValidation)
		assert.Len(t, f.engine.Cart().Lines, 1)
		assert.Empty(t, f.engine.Orders())
	})

	t.Run("no phone", func(t *testing.T) {
		f := newFixture(t)
		f.addHome(t, false)
		_, err := f.engine.AddProduct(ctx, "p-1", 1, nil)
		require.NoError(t, err)
		_, err = f.engine.Checkout(ctx, CheckoutInput{})
		assert.ErrorIs(t, err, domain.ErrValidation)
	})

	t.Run("unknown card", func(t *testing.T) {
		f := newFixture(t)
		f.signIn(t)
		f.addHome(t, false)
		_, err := f.engine.AddProduct(ctx, "p-1", 1, nil)
		require.NoError(t, err)
		_, err = f.engine.Checkout(ctx, CheckoutInput{PaymentMethodID: "card-x"})
		assert.ErrorIs(t, err, domain.ErrValidation)
	})

	t.Run("bad delivery type", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.engine.Checkout(ctx, CheckoutInput{DeliveryType: "drone"})
		assert.ErrorIs(t, err, domain.ErrValidation)
	})
}

func TestRatingRequiresDeliveredOrder(t *testing.T) {
	f := newFixture(t)
	f.signIn(t)
	ctx := context.Background()
	f.addHome(t, false)
	_, err := f.engine.AddProduct(ctx, "p-1", 1, nil)
	require.NoError(t, err)
	o, err := f.engine.Checkout(ctx, CheckoutInput{})
	require.NoError(t, err)

	err = f.engine.SubmitRating(domain.ProductRating{ProductID: "p-1", Rating: 5, OrderID: o.ID})
	assert.ErrorIs(t, err, domain.ErrValidation)
	assert.False(t, f.engine.CanRate("p-1"))

	for _, s := range []domain.OrderStatus{
		domain.OrderStatusConfirmed, domain.OrderStatusPreparing, domain.OrderStatusReady,
		domain.OrderStatusPicked, domain.OrderStatusDelivering,
	} {
		_, err = f.engine.AdvanceOrder(o.ID, s)
		require.NoError(t, err)
	}
	done, err := f.engine.CompleteOrder(o.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusDelivered, done.Status)
	assert.Len(t, f.engine.PastOrders(), 1)

	require.True(t, f.engine.CanRate("p-1"))
	require.NoError(t, f.engine.SubmitRating(domain.ProductRating{ProductID: "p-1", Rating: 4, OrderID: o.ID}))
	got, count := f.engine.ProductRating("p-1")
	assert.Equal(t, 4.0, got)
	assert.Equal(t, 1, count)
}

func TestSubmitRatingUsesSessionCustomer(t *testing.T) {
	f := newFixture(t)
	f.signIn(t)
	ctx := context.Background()
	f.addHome(t, false)
	_, err := f.engine.AddProduct(ctx, "p-1", 1, nil)
	require.NoError(t, err)
	o, err := f.engine.Checkout(ctx, CheckoutInput{})
	require.NoError(t, err)
	for _, s := range []domain.OrderStatus{
		domain.OrderStatusConfirmed, domain.OrderStatusPreparing, domain.OrderStatusReady,
		domain.OrderStatusPicked, domain.OrderStatusDelivering,
	} {
		_, err = f.engine.AdvanceOrder(o.ID, s)
		require.NoError(t, err)
	}
	_, err = f.engine.CompleteOrder(o.ID)
	require.NoError(t, err)
	require.NoError(t, f.engine.SubmitRating(domain.ProductRating{ProductID: "p-1", CustomerID: "cust-1", Rating: 5}))

	f.engine.SetUser(&domain.User{ID: "cust-2", Name: "Grace"})
	assert.False(t, f.engine.CanRate("p-1"))

	err = f.engine.SubmitRating(domain.ProductRating{ProductID: "p-1", CustomerID: "cust-1", Rating: 1})
	assert.ErrorIs(t, err, domain.ErrValidation)
	err = f.engine.SubmitRating(domain.ProductRating{ProductID: "p-1", Rating: 1})
	assert.ErrorIs(t, err, domain.ErrValidation)

	got, count := f.engine.ProductRating("p-1")
	assert.Equal(t, 5.0, got)
	assert.Equal(t, 1, count)
}

func TestVendorRatingUsesCatalogProducts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	got, err := f.engine.VendorRating(ctx, "v-1")
	require.NoError(t, err)
	want := (rating.FallbackRating("p-1") + rating.FallbackRating("p-3")) / 2
	assert.InDelta(t, want, got, 0.051)

	require.NoError(t, f.engine.RecordRating(domain.ProductRating{ProductID: "p-3", CustomerID: "c-9", Rating: 2}))
	got, err = f.engine.VendorRating(ctx, "v-1")
	require.NoError(t, err)
	assert.Equal(t, 2.0, got)

	got, err = f.engine.VendorRating(ctx, "v-empty")
	require.NoError(t, err)
	assert.Equal(t, rating.FallbackRating("v-empty"), got)
}

func TestCashMethodSurvivesRemove(t *testing.T) {
	f := newFixture(t)
	err := f.engine.RemovePaymentMethod(domain.CashMethodID)
	assert.ErrorIs(t, err, domain.ErrProtectedEntity)
	assert.Len(t, f.engine.PaymentMethods(), 1)
}

func TestSessionUserIsCopied(t *testing.T) {
	f := newFixture(t)
	u := &domain.User{ID: "cust-1", Phone: "1"}
	f.engine.SetUser(u)
	u.Phone = "2"

	got, authed := f.engine.User()
	require.NotNil(t, got)
	assert.Equal(t, "1", got.Phone)
	assert.False(t, authed)

	f.engine.SetUser(nil)
	got, _ = f.engine.User()
	assert.Nil(t, got)
}
