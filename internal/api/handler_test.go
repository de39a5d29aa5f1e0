package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"storefront-service/internal/backend"
	"storefront-service/internal/cart"
	"storefront-service/internal/checkout"
	"storefront-service/internal/models"
	"storefront-service/internal/sessionstore"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBackend struct {
	products   []models.Product
	listErr    error
	placeErr   error
	placeCalls int
}

func (f *fakeBackend) GetAllProducts(context.Context) ([]models.Product, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.products, nil
}

func (f *fakeBackend) GetProduct(_ context.Context, id models.BigInt) (*models.Product, error) {
	for i := range f.products {
		if f.products[i].ID.Equal(id) {
			p := f.products[i]
			return &p, nil
		}
	}
	return nil, nil
}

func (f *fakeBackend) PlaceOrder(_ context.Context, productID, quantity models.BigInt, customerName, shippingAddress string) (*models.Order, error) {
	f.placeCalls++
	if f.placeErr != nil {
		return nil, f.placeErr
	}
	return &models.Order{
		ID:              models.NewBigInt(321),
		CustomerName:    customerName,
		ProductID:       productID,
		Quantity:        quantity,
		ShippingAddress: shippingAddress,
	}, nil
}

func (f *fakeBackend) InvalidateProducts(context.Context) error { return nil }

func fixtureProducts() []models.Product {
	return []models.Product{
		{ID: models.NewBigInt(1), Name: "Mop", Category: "Cleaning", Price: models.NewBigInt(1999), Stock: models.NewBigInt(5)},
		{ID: models.NewBigInt(2), Name: "Broom", Category: "Cleaning", Price: models.NewBigInt(999), Stock: models.NewBigInt(0)},
		{ID: models.NewBigInt(3), Name: "Apples", Category: "Groceries", Price: models.NewBigInt(350), Stock: models.NewBigInt(12)},
	}
}

type fixture struct {
	router  *gin.Engine
	backend *fakeBackend
	cookies []*http.Cookie
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	storage := sessionstore.NewMemory()
	be := &fakeBackend{products: fixtureProducts()}
	cartSvc := cart.NewService(storage)
	checkoutSvc := checkout.NewService(cartSvc, be, storage, nil)

	router := gin.New()
	NewHandler(be, cartSvc, checkoutSvc).SetupRoutes(router)

	return &fixture{router: router, backend: be}
}

// do performs a request, carrying the session cookie across calls.
func (f *fixture) do(t *testing.T, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()

	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	for _, c := range f.cookies {
		req.AddCookie(c)
	}

	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)

	if set := w.Result().Cookies(); len(set) > 0 {
		f.cookies = set
	}
	return w
}

func TestCatalogFiltering(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodGet, "/?search=mop", "")
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Products []struct {
			Name   string `json:"name"`
			CanAdd bool   `json:"canAdd"`
		} `json:"products"`
		Categories []string `json:"categories"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))

	require.Len(t, resp.Products, 1)
	assert.Equal(t, "Mop", resp.Products[0].Name)
	assert.True(t, resp.Products[0].CanAdd)
	assert.Equal(t, []string{"Cleaning", "Groceries"}, resp.Categories)
}

func TestCatalogListsOutOfStockDisabled(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodGet, "/", "")
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Products []struct {
			Name   string `json:"name"`
			CanAdd bool   `json:"canAdd"`
		} `json:"products"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Products, 3, "out-of-stock products are still listed")

	for _, p := range resp.Products {
		if p.Name == "Broom" {
			assert.False(t, p.CanAdd)
		}
	}
}

func TestCatalogBackendError(t *testing.T) {
	f := newFixture(t)
	f.backend.listErr = errors.New("backend down")

	w := f.do(t, http.MethodGet, "/", "")
	assert.Equal(t, http.StatusBadGateway, w.Code)
}

func TestAddToCart(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodPost, "/cart/items", `{"productId":"1"}`)
	require.Equal(t, http.StatusOK, w.Code)

	w = f.do(t, http.MethodPost, "/cart/items", `{"productId":"1"}`)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		TotalItems        int    `json:"totalItems"`
		SubtotalFormatted string `json:"subtotalFormatted"`
		Items             []struct {
			Quantity int `json:"quantity"`
		} `json:"items"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Items, 1)
	assert.Equal(t, 2, resp.Items[0].Quantity)
	assert.Equal(t, 2, resp.TotalItems)
	assert.Equal(t, "39.98", resp.SubtotalFormatted)
}

func TestAddOutOfStockProduct(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodPost, "/cart/items", `{"productId":"2"}`)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestAddUnknownProduct(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodPost, "/cart/items", `{"productId":"999"}`)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestUpdateQuantityToZeroRemovesLine(t *testing.T) {
	f := newFixture(t)

	f.do(t, http.MethodPost, "/cart/items", `{"productId":"1"}`)
	w := f.do(t, http.MethodPatch, "/cart/items/1", `{"quantity":0}`)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Items []json.RawMessage `json:"items"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Empty(t, resp.Items)
}

func TestCheckoutGuardEmptyCart(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodGet, "/checkout", "")
	require.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/cart", w.Header().Get("Location"))

	w = f.do(t, http.MethodPost, "/checkout", `{"customerName":"Jane","shippingAddress":"1 Main St"}`)
	require.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/cart", w.Header().Get("Location"))
	assert.Zero(t, f.backend.placeCalls)
}

func TestCheckoutValidation(t *testing.T) {
	f := newFixture(t)

	f.do(t, http.MethodPost, "/cart/items", `{"productId":"1"}`)
	w := f.do(t, http.MethodPost, "/checkout", `{"customerName":"Jane","shippingAddress":"  "}`)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Zero(t, f.backend.placeCalls, "blocked submission must not reach the backend")
}

func TestCheckoutRejection(t *testing.T) {
	f := newFixture(t)
	f.backend.placeErr = backend.ErrOrderRejected

	f.do(t, http.MethodPost, "/cart/items", `{"productId":"1"}`)
	w := f.do(t, http.MethodPost, "/checkout", `{"customerName":"Jane","shippingAddress":"1 Main St"}`)
	assert.Equal(t, http.StatusBadGateway, w.Code)

	// Cart is untouched, checkout stays reachable.
	w = f.do(t, http.MethodGet, "/checkout", "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestFullCheckoutFlow(t *testing.T) {
	f := newFixture(t)

	f.do(t, http.MethodPost, "/cart/items", `{"productId":"1"}`)
	f.do(t, http.MethodPost, "/cart/items", `{"productId":"3"}`)

	w := f.do(t, http.MethodPost, "/checkout", `{"customerName":"Jane","shippingAddress":"1 Main St"}`)
	require.Equal(t, http.StatusCreated, w.Code)

	var created struct {
		OrderID string `json:"orderId"`
		Next    string `json:"next"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.Equal(t, "321", created.OrderID)
	assert.Equal(t, "/confirmation", created.Next)

	w = f.do(t, http.MethodGet, "/confirmation", "")
	require.Equal(t, http.StatusOK, w.Code)

	var conf struct {
		OrderID        string            `json:"orderId"`
		Items          []json.RawMessage `json:"items"`
		TotalFormatted string            `json:"totalFormatted"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &conf))
	assert.Equal(t, "321", conf.OrderID)
	assert.Len(t, conf.Items, 2, "confirmation shows the full pre-submission cart")
	assert.Equal(t, "23.49", conf.TotalFormatted)

	// Snapshot is consumed: a revisit redirects to the catalog.
	w = f.do(t, http.MethodGet, "/confirmation", "")
	require.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/", w.Header().Get("Location"))

	// And the cart is empty.
	w = f.do(t, http.MethodGet, "/cart", "")
	var cartResp struct {
		Items []json.RawMessage `json:"items"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &cartResp))
	assert.Empty(t, cartResp.Items)
}

func TestConfirmationWithoutSnapshotRedirects(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodGet, "/confirmation", "")
	require.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/", w.Header().Get("Location"))
}

func TestSessionCookieIssued(t *testing.T) {
	f := newFixture(t)

	f.do(t, http.MethodGet, "/", "")
	require.NotEmpty(t, f.cookies)

	found := false
	for _, c := range f.cookies {
		if c.Name == sessionCookie {
			found = true
			assert.True(t, c.HttpOnly)
		}
	}
	assert.True(t, found)
}
