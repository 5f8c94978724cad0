package cart

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/judithshaven/storefront/internal/config"
	"github.com/judithshaven/storefront/internal/models"
	"github.com/judithshaven/storefront/internal/mykafka"
	"github.com/judithshaven/storefront/internal/validation"
)

func newCartHandler(t *testing.T) (*CartHandler, *gorm.DB, *echo.Echo) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, config.Migrate(db))

	e := echo.New()
	e.Validator = validation.New()

	return &CartHandler{DB: db, Producer: &mykafka.Producer{}}, db, e
}

func doRequest(t *testing.T, e *echo.Echo, method, path string, body interface{}, userID uint) (*httptest.ResponseRecorder, echo.Context) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.Set("userID", userID)
	c.Set("role", "user")
	return rec, c
}

func cartCount(t *testing.T, db *gorm.DB, userID uint) int64 {
	var n int64
	require.NoError(t, db.Model(&models.CartItem{}).Where("user_id = ?", userID).Count(&n).Error)
	return n
}

func TestAddToCart(t *testing.T) {
	h, db, e := newCartHandler(t)

	p := models.Product{Name: "Tote Bag", Price: 30, Count: 10}
	require.NoError(t, db.Create(&p).Error)

	rec, c := doRequest(t, e, http.MethodPost, "/api/v1/cart", map[string]any{
		"product_id": p.ID, "quantity": 2,
	}, 1)
	require.NoError(t, h.AddToCart(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var items []models.CartItem
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &items))
	require.Len(t, items, 1)
	require.EqualValues(t, 2, items[0].Quantity)
}

func TestAddToCartMergesLines(t *testing.T) {
	h, db, e := newCartHandler(t)

	p := models.Product{Name: "Tote Bag", Price: 30, Count: 10}
	require.NoError(t, db.Create(&p).Error)

	for i := 0; i < 2; i++ {
		_, c := doRequest(t, e, http.MethodPost, "/api/v1/cart", map[string]any{
			"product_id": p.ID, "quantity": 2,
		}, 1)
		require.NoError(t, h.AddToCart(c))
	}

	// One merged line, not two.
	require.EqualValues(t, 1, cartCount(t, db, 1))

	var item models.CartItem
	require.NoError(t, db.Where("user_id = ?", 1).First(&item).Error)
	require.EqualValues(t, 4, item.Quantity)
}

func TestCartLineUniquePerUserAndProduct(t *testing.T) {
	_, db, _ := newCartHandler(t)

	p := models.Product{Name: "Tote Bag", Price: 30, Count: 10}
	require.NoError(t, db.Create(&p).Error)

	require.NoError(t, db.Create(&models.CartItem{UserID: 1, ProductID: p.ID, Quantity: 1}).Error)
	// A second line for the same (user, product) pair is rejected at the
	// database, not just by the merge in AddToCart.
	err := db.Create(&models.CartItem{UserID: 1, ProductID: p.ID, Quantity: 1}).Error
	require.Error(t, err)

	// Same product in another user's cart is fine.
	require.NoError(t, db.Create(&models.CartItem{UserID: 2, ProductID: p.ID, Quantity: 1}).Error)
}

func TestAddToCartRejectsOverStock(t *testing.T) {
	h, db, e := newCartHandler(t)

	p := models.Product{Name: "Limited", Price: 99, Count: 2}
	require.NoError(t, db.Create(&p).Error)

	_, c := doRequest(t, e, http.MethodPost, "/api/v1/cart", map[string]any{
		"product_id": p.ID, "quantity": 3,
	}, 1)
	err := h.AddToCart(c)
	require.Error(t, err)
	he, ok := err.(*echo.HTTPError)
	require.True(t, ok)
	require.Equal(t, http.StatusConflict, he.Code)
	require.EqualValues(t, 0, cartCount(t, db, 1))
}

func TestAddToCartUnknownProduct(t *testing.T) {
	h, _, e := newCartHandler(t)

	_, c := doRequest(t, e, http.MethodPost, "/api/v1/cart", map[string]any{
		"product_id": 42, "quantity": 1,
	}, 1)
	err := h.AddToCart(c)
	require.Error(t, err)
	he, ok := err.(*echo.HTTPError)
	require.True(t, ok)
	require.Equal(t, http.StatusNotFound, he.Code)
}

func TestUpdateQuantity(t *testing.T) {
	h, db, e := newCartHandler(t)

	p := models.Product{Name: "Tote Bag", Price: 30, Count: 5}
	require.NoError(t, db.Create(&p).Error)
	item := models.CartItem{UserID: 1, ProductID: p.ID, Quantity: 1}
	require.NoError(t, db.Create(&item).Error)

	rec, c := doRequest(t, e, http.MethodPatch, "/api/v1/cart/1", map[string]any{"quantity": 4}, 1)
	c.SetParamNames("id")
	c.SetParamValues(fmt.Sprint(item.ID))
	require.NoError(t, h.UpdateQuantity(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var fresh models.CartItem
	require.NoError(t, db.First(&fresh, item.ID).Error)
	require.EqualValues(t, 4, fresh.Quantity)

	// Raising past stock conflicts.
	_, c2 := doRequest(t, e, http.MethodPatch, "/api/v1/cart/1", map[string]any{"quantity": 6}, 1)
	c2.SetParamNames("id")
	c2.SetParamValues(fmt.Sprint(item.ID))
	err := h.UpdateQuantity(c2)
	require.Error(t, err)
	he, ok := err.(*echo.HTTPError)
	require.True(t, ok)
	require.Equal(t, http.StatusConflict, he.Code)
}

func TestUpdateQuantityOtherUsersItem(t *testing.T) {
	h, db, e := newCartHandler(t)

	p := models.Product{Name: "Tote Bag", Price: 30, Count: 5}
	require.NoError(t, db.Create(&p).Error)
	item := models.CartItem{UserID: 2, ProductID: p.ID, Quantity: 1}
	require.NoError(t, db.Create(&item).Error)

	_, c := doRequest(t, e, http.MethodPatch, "/api/v1/cart/1", map[string]any{"quantity": 2}, 1)
	c.SetParamNames("id")
	c.SetParamValues(fmt.Sprint(item.ID))
	err := h.UpdateQuantity(c)
	require.Error(t, err)
	he, ok := err.(*echo.HTTPError)
	require.True(t, ok)
	require.Equal(t, http.StatusNotFound, he.Code)
}

func TestDeleteOneFromCart(t *testing.T) {
	h, db, e := newCartHandler(t)

	p := models.Product{Name: "Tote Bag", Price: 30, Count: 5}
	require.NoError(t, db.Create(&p).Error)
	item := models.CartItem{UserID: 1, ProductID: p.ID, Quantity: 2}
	require.NoError(t, db.Create(&item).Error)

	_, c := doRequest(t, e, http.MethodDelete, "/api/v1/cart/1/one", nil, 1)
	c.SetParamNames("id")
	c.SetParamValues(fmt.Sprint(item.ID))
	require.NoError(t, h.DeleteOneFromCart(c))

	var fresh models.CartItem
	require.NoError(t, db.First(&fresh, item.ID).Error)
	require.EqualValues(t, 1, fresh.Quantity)

	// Second decrement removes the line entirely.
	_, c2 := doRequest(t, e, http.MethodDelete, "/api/v1/cart/1/one", nil, 1)
	c2.SetParamNames("id")
	c2.SetParamValues(fmt.Sprint(item.ID))
	require.NoError(t, h.DeleteOneFromCart(c2))
	require.EqualValues(t, 0, cartCount(t, db, 1))
}

func TestDeleteAllFromCart(t *testing.T) {
	h, db, e := newCartHandler(t)

	p := models.Product{Name: "Tote Bag", Price: 30, Count: 5}
	require.NoError(t, db.Create(&p).Error)
	item := models.CartItem{UserID: 1, ProductID: p.ID, Quantity: 3}
	require.NoError(t, db.Create(&item).Error)

	rec, c := doRequest(t, e, http.MethodDelete, "/api/v1/cart/1", nil, 1)
	c.SetParamNames("id")
	c.SetParamValues(fmt.Sprint(item.ID))
	require.NoError(t, h.DeleteAllFromCart(c))
	require.Equal(t, http.StatusOK, rec.Code)
	require.EqualValues(t, 0, cartCount(t, db, 1))
}

func TestClearCart(t *testing.T) {
	h, db, e := newCartHandler(t)

	p := models.Product{Name: "Tote Bag", Price: 30, Count: 5}
	q := models.Product{Name: "Scarf", Price: 15, Count: 5}
	require.NoError(t, db.Create(&p).Error)
	require.NoError(t, db.Create(&q).Error)
	require.NoError(t, db.Create(&models.CartItem{UserID: 1, ProductID: p.ID, Quantity: 1}).Error)
	require.NoError(t, db.Create(&models.CartItem{UserID: 1, ProductID: q.ID, Quantity: 2}).Error)
	require.NoError(t, db.Create(&models.CartItem{UserID: 2, ProductID: p.ID, Quantity: 1}).Error)

	rec, c := doRequest(t, e, http.MethodDelete, "/api/v1/cart", nil, 1)
	require.NoError(t, h.ClearCart(c))
	require.Equal(t, http.StatusOK, rec.Code)

	require.EqualValues(t, 0, cartCount(t, db, 1))
	// Other carts are untouched.
	require.EqualValues(t, 1, cartCount(t, db, 2))
}
