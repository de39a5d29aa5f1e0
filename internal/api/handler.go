package api

import (
	"context"
	"errors"
	"math/big"
	"net/http"
	"strconv"
	"time"

	"storefront-service/internal/backend"
	"storefront-service/internal/cart"
	"storefront-service/internal/catalog"
	"storefront-service/internal/checkout"
	"storefront-service/internal/models"
	"storefront-service/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// CatalogBackend is the slice of the remote client the HTTP layer needs.
type CatalogBackend interface {
	GetAllProducts(ctx context.Context) ([]models.Product, error)
	GetProduct(ctx context.Context, id models.BigInt) (*models.Product, error)
}

// Handler contains HTTP handlers
type Handler struct {
	backend  CatalogBackend
	cart     *cart.Service
	checkout *checkout.Service
}

// NewHandler creates a new HTTP handler
func NewHandler(backendClient CatalogBackend, cartSvc *cart.Service, checkoutSvc *checkout.Service) *Handler {
	return &Handler{
		backend:  backendClient,
		cart:     cartSvc,
		checkout: checkoutSvc,
	}
}

// SetupRoutes sets up HTTP routes
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.Use(gin.Recovery())
	router.Use(prometheusMiddleware())
	router.Use(gin.Logger())

	router.GET("/health", h.healthCheck)
	router.GET("/ready", h.readinessCheck)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	shop := router.Group("/", SessionMiddleware())
	{
		shop.GET("/", h.getCatalog)
		shop.GET("/cart", h.getCart)
		shop.POST("/cart/items", h.addCartItem)
		shop.PATCH("/cart/items/:id", h.updateCartItem)
		shop.DELETE("/cart/items/:id", h.removeCartItem)
		shop.DELETE("/cart", h.clearCart)
		shop.GET("/checkout", h.getCheckout)
		shop.POST("/checkout", h.postCheckout)
		shop.GET("/confirmation", h.getConfirmation)
	}
}

// healthCheck handles health check requests
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().Unix(),
	})
}

// readinessCheck handles readiness check requests
func (h *Handler) readinessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
		"time":   time.Now().Unix(),
	})
}

type productView struct {
	models.Product
	PriceFormatted string `json:"priceFormatted"`
	CanAdd         bool   `json:"canAdd"`
}

type cartItemView struct {
	models.CartItem
	LineTotal          models.BigInt `json:"lineTotal"`
	LineTotalFormatted string        `json:"lineTotalFormatted"`
}

type cartView struct {
	Items             []cartItemView `json:"items"`
	TotalItems        int            `json:"totalItems"`
	Subtotal          models.BigInt  `json:"subtotal"`
	SubtotalFormatted string         `json:"subtotalFormatted"`
}

// getCatalog serves the product listing with search and category filters
// applied client-side over the cached list.
func (h *Handler) getCatalog(c *gin.Context) {
	search := c.Query("search")
	category := c.DefaultQuery("category", catalog.AllCategories)

	products, err := h.backend.GetAllProducts(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{
			"error": "Failed to load products. Please try again later.",
		})
		return
	}

	filtered := catalog.Filter(products, search, category)
	views := make([]productView, 0, len(filtered))
	for _, p := range filtered {
		views = append(views, productView{
			Product:        p,
			PriceFormatted: models.FormatMinorUnits(p.Price),
			CanAdd:         p.InStock(),
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"products":   views,
		"categories": catalog.Categories(products),
		"search":     search,
		"category":   category,
	})
}

// getCart serves the cart view
func (h *Handler) getCart(c *gin.Context) {
	state := h.cart.Get(c.Request.Context(), sessionID(c))
	c.JSON(http.StatusOK, h.renderCart(state))
}

type addItemRequest struct {
	ProductID string `json:"productId" binding:"required"`
}

// addCartItem adds one unit of a product, snapshotting name, price and
// category at add time.
func (h *Handler) addCartItem(c *gin.Context) {
	var req addItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	productID, err := models.ParseBigInt(req.ProductID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid product ID"})
		return
	}

	product, err := h.backend.GetProduct(c.Request.Context(), productID)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to load product"})
		return
	}
	if product == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Product not found"})
		return
	}
	if !product.InStock() {
		c.JSON(http.StatusConflict, gin.H{"error": "Product is out of stock"})
		return
	}

	state := h.cart.AddItem(c.Request.Context(), sessionID(c), models.CartItem{
		ProductID: product.ID,
		Name:      product.Name,
		Price:     product.Price,
		Category:  product.Category,
	})
	c.JSON(http.StatusOK, h.renderCart(state))
}

type updateQuantityRequest struct {
	Quantity *int `json:"quantity" binding:"required"`
}

// updateCartItem sets a line's quantity; zero or negative removes it.
func (h *Handler) updateCartItem(c *gin.Context) {
	productID, err := models.ParseBigInt(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid product ID"})
		return
	}

	var req updateQuantityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	state := h.cart.UpdateQuantity(c.Request.Context(), sessionID(c), productID, *req.Quantity)
	c.JSON(http.StatusOK, h.renderCart(state))
}

// removeCartItem deletes a cart line
func (h *Handler) removeCartItem(c *gin.Context) {
	productID, err := models.ParseBigInt(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid product ID"})
		return
	}

	state := h.cart.RemoveItem(c.Request.Context(), sessionID(c), productID)
	c.JSON(http.StatusOK, h.renderCart(state))
}

// clearCart empties the cart
func (h *Handler) clearCart(c *gin.Context) {
	h.cart.Clear(c.Request.Context(), sessionID(c))
	c.JSON(http.StatusOK, h.renderCart(models.CartState{Items: []models.CartItem{}}))
}

// getCheckout serves the checkout summary. An empty cart redirects back to
// the cart screen.
func (h *Handler) getCheckout(c *gin.Context) {
	state := h.cart.Get(c.Request.Context(), sessionID(c))
	if len(state.Items) == 0 {
		c.Redirect(http.StatusSeeOther, "/cart")
		return
	}
	c.JSON(http.StatusOK, h.renderCart(state))
}

// postCheckout submits the order
func (h *Handler) postCheckout(c *gin.Context) {
	var req checkout.SubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	snapshot, err := h.checkout.Submit(c.Request.Context(), sessionID(c), req)
	switch {
	case err == nil:
		c.JSON(http.StatusCreated, gin.H{
			"orderId": snapshot.ID,
			"next":    "/confirmation",
		})
	case errors.Is(err, checkout.ErrEmptyCart):
		c.Redirect(http.StatusSeeOther, "/cart")
	case errors.Is(err, checkout.ErrValidation):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	case errors.Is(err, checkout.ErrSubmitInFlight):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, backend.ErrOrderRejected):
		c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to place order. Please try again."})
	default:
		c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to place order. Please try again."})
	}
}

// getConfirmation serves the one-shot order confirmation. Visiting without
// a stored snapshot redirects to the catalog.
func (h *Handler) getConfirmation(c *gin.Context) {
	snapshot, err := h.checkout.Consume(c.Request.Context(), sessionID(c))
	if err != nil || snapshot == nil {
		c.Redirect(http.StatusSeeOther, "/")
		return
	}

	items := make([]cartItemView, 0, len(snapshot.Items))
	for _, item := range snapshot.Items {
		items = append(items, renderCartItem(item))
	}

	c.JSON(http.StatusOK, gin.H{
		"orderId":         snapshot.ID,
		"items":           items,
		"total":           snapshot.Total,
		"totalFormatted":  models.FormatMinorUnits(snapshot.Total),
		"customerName":    snapshot.CustomerName,
		"shippingAddress": snapshot.ShippingAddress,
		"timestamp":       snapshot.Timestamp,
	})
}

func (h *Handler) renderCart(state models.CartState) cartView {
	items := make([]cartItemView, 0, len(state.Items))
	totalItems := 0
	for _, item := range state.Items {
		items = append(items, renderCartItem(item))
		totalItems += item.Quantity
	}
	subtotal := cart.SubtotalOf(state)
	return cartView{
		Items:             items,
		TotalItems:        totalItems,
		Subtotal:          subtotal,
		SubtotalFormatted: models.FormatMinorUnits(subtotal),
	}
}

func renderCartItem(item models.CartItem) cartItemView {
	var lineTotal models.BigInt
	lineTotal.Mul(&item.Price.Int, big.NewInt(int64(item.Quantity)))
	return cartItemView{
		CartItem:           item,
		LineTotal:          lineTotal,
		LineTotalFormatted: models.FormatMinorUnits(lineTotal),
	}
}

// prometheusMiddleware collects HTTP metrics
func prometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())

		util.HTTPRequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Observe(duration)

		util.HTTPRequestsTotal.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Inc()
	}
}
