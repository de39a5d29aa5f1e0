// Package backend implements the typed client for the remote catalog/order
// backend. The storefront consumes the backend contract; it never owns
// product or order data itself.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"storefront-service/internal/models"
	"storefront-service/internal/util"

	"go.uber.org/zap"
)

// ErrOrderRejected signals that the backend declined to create an order,
// e.g. insufficient stock or an unknown product. The caller renders it as
// an error state; no retry is attempted.
var ErrOrderRejected = errors.New("order placement failed")

// Cache holds the client-side product list under a stable key.
type Cache interface {
	GetProducts(ctx context.Context) ([]models.Product, bool, error)
	SetProducts(ctx context.Context, products []models.Product) error
	InvalidateProducts(ctx context.Context) error
}

// Client wraps the backend's typed operations over HTTP/JSON.
type Client struct {
	baseURL string
	httpc   *http.Client
	cache   Cache
	logger  *zap.Logger
}

// NewClient creates a backend client. cache may not be nil.
func NewClient(baseURL string, timeout time.Duration, cache Cache) *Client {
	return &Client{
		baseURL: baseURL,
		httpc:   &http.Client{Timeout: timeout},
		cache:   cache,
		logger:  util.GetLogger(),
	}
}

type placeOrderRequest struct {
	ProductID       models.BigInt `json:"productId"`
	Quantity        models.BigInt `json:"quantity"`
	CustomerName    string        `json:"customerName"`
	ShippingAddress string        `json:"shippingAddress"`
}

type addProductRequest struct {
	Name        string        `json:"name"`
	Description string        `json:"description"`
	Price       models.BigInt `json:"price"`
	Category    string        `json:"category"`
	Stock       models.BigInt `json:"stock"`
}

type addProductResponse struct {
	ID models.BigInt `json:"id"`
}

// GetAllProducts returns the full catalog, serving from the cache when it
// is warm. Cache failures are logged and treated as a miss.
func (c *Client) GetAllProducts(ctx context.Context) ([]models.Product, error) {
	ctx, span := util.StartSpan(ctx, "backend.GetAllProducts")
	defer span.End()

	products, hit, err := c.cache.GetProducts(ctx)
	if err != nil {
		c.logger.Warn("Product cache read failed, fetching from backend", zap.Error(err))
	} else if hit {
		util.CatalogFetchesTotal.WithLabelValues("cache").Inc()
		return products, nil
	}

	if err := c.getJSON(ctx, "getAllProducts", "/api/v1/products", nil, &products); err != nil {
		return nil, err
	}
	util.CatalogFetchesTotal.WithLabelValues("backend").Inc()

	if err := c.cache.SetProducts(ctx, products); err != nil {
		c.logger.Warn("Product cache write failed", zap.Error(err))
	}
	return products, nil
}

// GetProductsByCategory returns products in an exact category.
func (c *Client) GetProductsByCategory(ctx context.Context, category string) ([]models.Product, error) {
	var products []models.Product
	query := url.Values{"category": {category}}
	if err := c.getJSON(ctx, "getProductsByCategory", "/api/v1/products", query, &products); err != nil {
		return nil, err
	}
	return products, nil
}

// SearchProductsByName returns products whose name matches the term.
func (c *Client) SearchProductsByName(ctx context.Context, term string) ([]models.Product, error) {
	var products []models.Product
	query := url.Values{"name": {term}}
	if err := c.getJSON(ctx, "searchProductsByName", "/api/v1/products/search", query, &products); err != nil {
		return nil, err
	}
	return products, nil
}

// GetProduct returns a product by ID, or (nil, nil) when absent.
func (c *Client) GetProduct(ctx context.Context, id models.BigInt) (*models.Product, error) {
	var product models.Product
	found, err := c.getJSONMaybe(ctx, "getProduct", "/api/v1/products/"+id.String(), &product)
	if err != nil || !found {
		return nil, err
	}
	return &product, nil
}

// GetOrder returns an order by ID, or (nil, nil) when absent.
func (c *Client) GetOrder(ctx context.Context, id models.BigInt) (*models.Order, error) {
	var order models.Order
	found, err := c.getJSONMaybe(ctx, "getOrder", "/api/v1/orders/"+id.String(), &order)
	if err != nil || !found {
		return nil, err
	}
	return &order, nil
}

// PlaceOrder submits a single-line order. A backend rejection (no order
// returned) surfaces as ErrOrderRejected.
func (c *Client) PlaceOrder(ctx context.Context, productID, quantity models.BigInt, customerName, shippingAddress string) (*models.Order, error) {
	ctx, span := util.StartSpan(ctx, "backend.PlaceOrder")
	defer span.End()

	start := time.Now()
	defer func() {
		util.BackendRequestDuration.WithLabelValues("placeOrder").Observe(time.Since(start).Seconds())
	}()

	body, err := json.Marshal(placeOrderRequest{
		ProductID:       productID,
		Quantity:        quantity,
		CustomerName:    customerName,
		ShippingAddress: shippingAddress,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode order request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/v1/orders", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build order request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("order request failed: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusCreated:
	case resp.StatusCode == http.StatusNotFound,
		resp.StatusCode == http.StatusConflict,
		resp.StatusCode == http.StatusUnprocessableEntity:
		return nil, ErrOrderRejected
	default:
		return nil, fmt.Errorf("placeOrder: unexpected status %d", resp.StatusCode)
	}

	var order models.Order
	if err := json.NewDecoder(resp.Body).Decode(&order); err != nil {
		return nil, fmt.Errorf("failed to decode order response: %w", err)
	}
	return &order, nil
}

// AddProduct registers a new catalog product. Administrative; not used by
// the shopper-facing flow.
func (c *Client) AddProduct(ctx context.Context, name, description string, price models.BigInt, category string, stock models.BigInt) (models.BigInt, error) {
	body, err := json.Marshal(addProductRequest{
		Name:        name,
		Description: description,
		Price:       price,
		Category:    category,
		Stock:       stock,
	})
	if err != nil {
		return models.BigInt{}, fmt.Errorf("failed to encode product request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/v1/products", bytes.NewReader(body))
	if err != nil {
		return models.BigInt{}, fmt.Errorf("failed to build product request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return models.BigInt{}, fmt.Errorf("product request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return models.BigInt{}, fmt.Errorf("addProduct: unexpected status %d", resp.StatusCode)
	}

	var created addProductResponse
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		return models.BigInt{}, fmt.Errorf("failed to decode product response: %w", err)
	}
	return created.ID, nil
}

// InvalidateProducts drops the cached product list.
func (c *Client) InvalidateProducts(ctx context.Context) error {
	return c.cache.InvalidateProducts(ctx)
}

func (c *Client) getJSON(ctx context.Context, operation, path string, query url.Values, out interface{}) error {
	found, err := c.do(ctx, operation, path, query, out)
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("%s: unexpected status 404", operation)
	}
	return nil
}

// getJSONMaybe is getJSON for operations where 404 means "absent" rather
// than an error.
func (c *Client) getJSONMaybe(ctx context.Context, operation, path string, out interface{}) (bool, error) {
	return c.do(ctx, operation, path, nil, out)
}

func (c *Client) do(ctx context.Context, operation, path string, query url.Values, out interface{}) (bool, error) {
	start := time.Now()
	defer func() {
		util.BackendRequestDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
	}()

	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return false, fmt.Errorf("failed to build %s request: %w", operation, err)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return false, fmt.Errorf("%s request failed: %w", operation, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		_, _ = io.Copy(io.Discard, resp.Body)
		return false, nil
	}
	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("%s: unexpected status %d", operation, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return false, fmt.Errorf("failed to decode %s response: %w", operation, err)
	}
	return true, nil
}
