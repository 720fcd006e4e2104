package httpserver

import (
	"errors"
	"io"
	"net/http"

	"storefront-engine/internal/domain"
	"storefront-engine/internal/engine"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type handlers struct {
	engine *engine.Engine
	logger *zap.Logger
}

type sessionRequest struct {
	User          *domain.User `json:"user"`
	Authenticated bool         `json:"authenticated"`
}

type sessionResponse struct {
	User          *domain.User `json:"user"`
	Authenticated bool         `json:"authenticated"`
}

// addLineRequest is either a product reference resolved through the catalog or a fully
// described cart line.
type addLineRequest struct {
	ProductID string `json:"productId"`
	domain.CartLine
}

type quantityRequest struct {
	Quantity *int `json:"quantity"`
}

type statusRequest struct {
	Status string `json:"status"`
}

type productRatingResponse struct {
	ProductID string  `json:"productId"`
	Rating    float64 `json:"rating"`
	Count     int     `json:"count"`
	CanRate   bool    `json:"canRate"`
}

type vendorRatingResponse struct {
	VendorID string  `json:"vendorId"`
	Rating   float64 `json:"rating"`
}

func (h *handlers) putSession(c *gin.Context) {
	var req sessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid session body")
		return
	}
	h.engine.SetUser(req.User)
	h.engine.SetAuthenticated(req.Authenticated)
	u, authed := h.engine.User()
	c.JSON(http.StatusOK, sessionResponse{User: u, Authenticated: authed})
}

// Cart

func (h *handlers) getCart(c *gin.Context) {
	c.JSON(http.StatusOK, h.engine.Cart())
}

func (h *handlers) clearCart(c *gin.Context) {
	h.engine.ClearCart()
	c.Status(http.StatusNoContent)
}

func (h *handlers) addCartLine(c *gin.Context) {
	var req addLineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid cart line body")
		return
	}
	var (
		cart domain.Cart
		err  error
	)
	if req.ProductID != "" {
		cart, err = h.engine.AddProduct(c.Request.Context(), req.ProductID, req.Quantity, req.Customizations)
	} else {
		cart, err = h.engine.AddToCart(req.CartLine)
	}
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, cart)
}

func (h *handlers) updateCartLine(c *gin.Context) {
	var req quantityRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Quantity == nil {
		badRequest(c, "quantity is required")
		return
	}
	c.JSON(http.StatusOK, h.engine.UpdateQuantity(c.Param("id"), *req.Quantity))
}

func (h *handlers) removeCartLine(c *gin.Context) {
	c.JSON(http.StatusOK, h.engine.RemoveFromCart(c.Param("id")))
}

func (h *handlers) cartVendors(c *gin.Context) {
	groups := h.engine.VendorGroups()
	if groups == nil {
		groups = []domain.VendorGroup{}
	}
	c.JSON(http.StatusOK, groups)
}

func (h *handlers) dismissNotice(c *gin.Context) {
	h.engine.DismissMultiVendorNotice()
	c.Status(http.StatusNoContent)
}

// Addresses

func (h *handlers) listAddresses(c *gin.Context) {
	items := h.engine.Addresses()
	if items == nil {
		items = []domain.Address{}
	}
	c.JSON(http.StatusOK, items)
}

func (h *handlers) addAddress(c *gin.Context) {
	var req domain.Address
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid address body")
		return
	}
	a, err := h.engine.AddAddress(req)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, a)
}

func (h *handlers) updateAddress(c *gin.Context) {
	var patch domain.AddressPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		badRequest(c, "invalid address patch")
		return
	}
	a, err := h.engine.UpdateAddress(c.Param("id"), patch)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, a)
}

func (h *handlers) removeAddress(c *gin.Context) {
	h.engine.RemoveAddress(c.Param("id"))
	c.Status(http.StatusNoContent)
}

func (h *handlers) setDefaultAddress(c *gin.Context) {
	if err := h.engine.SetDefaultAddress(c.Param("id")); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, h.engine.Addresses())
}

// Payment methods

func (h *handlers) listPaymentMethods(c *gin.Context) {
	c.JSON(http.StatusOK, h.engine.PaymentMethods())
}

func (h *handlers) addPaymentMethod(c *gin.Context) {
	var req domain.PaymentMethod
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid payment method body")
		return
	}
	m, err := h.engine.AddPaymentMethod(req)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, m)
}

func (h *handlers) updatePaymentMethod(c *gin.Context) {
	var patch domain.PaymentMethodPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		badRequest(c, "invalid payment method patch")
		return
	}
	m, err := h.engine.UpdatePaymentMethod(c.Param("id"), patch)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, m)
}

func (h *handlers) removePaymentMethod(c *gin.Context) {
	if err := h.engine.RemovePaymentMethod(c.Param("id")); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *handlers) setDefaultPaymentMethod(c *gin.Context) {
	if err := h.engine.SetDefaultPaymentMethod(c.Param("id")); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, h.engine.PaymentMethods())
}

// Orders

func (h *handlers) checkout(c *gin.Context) {
	var in engine.CheckoutInput
	if err := c.ShouldBindJSON(&in); err != nil && !errors.Is(err, io.EOF) {
		badRequest(c, "invalid checkout body")
		return
	}
	o, err := h.engine.Checkout(c.Request.Context(), in)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, o)
}

func (h *handlers) listOrders(c *gin.Context) {
	var orders []domain.Order
	switch scope := c.Query("scope"); scope {
	case "":
		orders = h.engine.Orders()
	case "current":
		orders = h.engine.CurrentOrders()
	case "past":
		orders = h.engine.PastOrders()
	default:
		badRequest(c, "scope must be current or past")
		return
	}
	if orders == nil {
		orders = []domain.Order{}
	}
	c.JSON(http.StatusOK, orders)
}

func (h *handlers) getOrder(c *gin.Context) {
	o, err := h.engine.Order(c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, o)
}

func (h *handlers) updateOrder(c *gin.Context) {
	var patch domain.OrderPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		badRequest(c, "invalid order patch")
		return
	}
	o, err := h.engine.UpdateOrder(c.Param("id"), patch)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, o)
}

func (h *handlers) advanceOrder(c *gin.Context) {
	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid status body")
		return
	}
	status, err := domain.ParseOrderStatus(req.Status)
	if err != nil {
		h.fail(c, err)
		return
	}
	o, err := h.engine.AdvanceOrder(c.Param("id"), status)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, o)
}

func (h *handlers) completeOrder(c *gin.Context) {
	o, err := h.engine.CompleteOrder(c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, o)
}

func (h *handlers) cancelOrder(c *gin.Context) {
	o, err := h.engine.CancelOrder(c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, o)
}

// Ratings

func (h *handlers) submitRating(c *gin.Context) {
	var req domain.ProductRating
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid rating body")
		return
	}
	if err := h.engine.SubmitRating(req); err != nil {
		h.fail(c, err)
		return
	}
	h.respondProductRating(c, http.StatusCreated, req.ProductID)
}

func (h *handlers) productRating(c *gin.Context) {
	h.respondProductRating(c, http.StatusOK, c.Param("id"))
}

func (h *handlers) respondProductRating(c *gin.Context, status int, productID string) {
	value, count := h.engine.ProductRating(productID)
	c.JSON(status, productRatingResponse{
		ProductID: productID,
		Rating:    value,
		Count:     count,
		CanRate:   h.engine.CanRate(productID),
	})
}

func (h *handlers) vendorRating(c *gin.Context) {
	vendorID := c.Param("id")
	value, err := h.engine.VendorRating(c.Request.Context(), vendorID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, vendorRatingResponse{VendorID: vendorID, Rating: value})
}
