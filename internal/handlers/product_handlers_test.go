package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/judithshaven/storefront/internal/audit"
	"github.com/judithshaven/storefront/internal/models"
	"github.com/judithshaven/storefront/internal/mykafka"
)

func newProductHandler(t *testing.T) (*ProductHandler, *gorm.DB) {
	db := InitTestDB(t)
	h := &ProductHandler{
		DB:       db,
		Producer: &mykafka.Producer{},
		Audit:    &audit.Recorder{DB: db},
	}
	return h, db
}

func TestCreateProduct(t *testing.T) {
	h, db := newProductHandler(t)
	e := newTestEcho()

	rec, c := doJSONRequest(t, e, http.MethodPost, "/admin/products", map[string]any{
		"name":           "Wool Coat",
		"price":          120.5,
		"count_in_stock": 7,
		"brand":          "Haven",
		"gender":         "women",
		"images":         []string{"coat.jpg"},
		"sizes":          []string{"S", "M"},
	})
	asUser(c, 9, "admin")
	require.NoError(t, h.CreateProduct(c))
	require.Equal(t, http.StatusCreated, rec.Code)

	var p models.Product
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &p))
	require.NotZero(t, p.ID)
	require.Equal(t, "Wool Coat", p.Name)
	require.Equal(t, []string{"S", "M"}, p.Sizes)

	// Admin mutations land in the audit trail.
	var logs int64
	require.NoError(t, db.Model(&models.AuditLog{}).Where("entity = ?", "product").Count(&logs).Error)
	require.EqualValues(t, 1, logs)
}

func TestCreateProductRequiresName(t *testing.T) {
	h, _ := newProductHandler(t)
	e := newTestEcho()

	_, c := doJSONRequest(t, e, http.MethodPost, "/admin/products", map[string]any{"price": 10})
	asUser(c, 9, "admin")

	err := h.CreateProduct(c)
	require.Error(t, err)
	require.Equal(t, http.StatusBadRequest, httpCode(t, err))
}

func TestGetProduct(t *testing.T) {
	h, db := newProductHandler(t)
	e := newTestEcho()

	p := models.Product{Name: "Belt", Price: 9.99, Count: 3}
	require.NoError(t, db.Create(&p).Error)

	rec, c := doJSONRequest(t, e, http.MethodGet, "/api/v1/products/1", nil)
	c.SetParamNames("id")
	c.SetParamValues(fmt.Sprint(p.ID))
	require.NoError(t, h.GetProduct(c))
	require.Equal(t, http.StatusOK, rec.Code)

	_, c2 := doJSONRequest(t, e, http.MethodGet, "/api/v1/products/999", nil)
	c2.SetParamNames("id")
	c2.SetParamValues("999")
	err := h.GetProduct(c2)
	require.Error(t, err)
	require.Equal(t, http.StatusNotFound, httpCode(t, err))
}

func TestGetProductsFiltersAndPaginates(t *testing.T) {
	h, db := newProductHandler(t)
	e := newTestEcho()

	for i := 0; i < 12; i++ {
		gender := "men"
		if i%2 == 0 {
			gender = "women"
		}
		require.NoError(t, db.Create(&models.Product{
			Name:   fmt.Sprintf("Item %d", i),
			Price:  10,
			Gender: gender,
			Brand:  "Haven",
		}).Error)
	}

	rec, c := doJSONRequest(t, e, http.MethodGet, "/api/v1/products?gender=men&page=1&size=5", nil)
	require.NoError(t, h.GetProducts(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Data []models.Product `json:"data"`
		Meta struct {
			Page       int   `json:"page"`
			Size       int   `json:"size"`
			Total      int64 `json:"total"`
			TotalPages int64 `json:"total_pages"`
			HasNext    bool  `json:"has_next"`
		} `json:"meta"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Data, 5)
	require.EqualValues(t, 6, resp.Meta.Total)
	require.EqualValues(t, 2, resp.Meta.TotalPages)
	require.True(t, resp.Meta.HasNext)
	for _, p := range resp.Data {
		require.Equal(t, "men", p.Gender)
	}
}

func TestPatchProduct(t *testing.T) {
	h, db := newProductHandler(t)
	e := newTestEcho()

	p := models.Product{Name: "Hat", Price: 20, Count: 4, Brand: "Haven"}
	require.NoError(t, db.Create(&p).Error)

	rec, c := doJSONRequest(t, e, http.MethodPatch, "/admin/products/1", map[string]any{
		"price":    25.0,
		"featured": true,
	})
	c.SetParamNames("id")
	c.SetParamValues(fmt.Sprint(p.ID))
	asUser(c, 9, "admin")
	require.NoError(t, h.PatchProduct(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var fresh models.Product
	require.NoError(t, db.First(&fresh, p.ID).Error)
	require.Equal(t, 25.0, fresh.Price)
	require.True(t, fresh.Featured)
	// Untouched fields survive the patch.
	require.Equal(t, "Hat", fresh.Name)
	require.Equal(t, "Haven", fresh.Brand)
}

func TestDeleteProduct(t *testing.T) {
	h, db := newProductHandler(t)
	e := newTestEcho()

	p := models.Product{Name: "Socks", Price: 5}
	require.NoError(t, db.Create(&p).Error)

	rec, c := doJSONRequest(t, e, http.MethodDelete, "/admin/products/1", nil)
	c.SetParamNames("id")
	c.SetParamValues(fmt.Sprint(p.ID))
	asUser(c, 9, "admin")
	require.NoError(t, h.DeleteProduct(c))
	require.Equal(t, http.StatusNoContent, rec.Code)

	_, c2 := doJSONRequest(t, e, http.MethodDelete, "/admin/products/1", nil)
	c2.SetParamNames("id")
	c2.SetParamValues(fmt.Sprint(p.ID))
	asUser(c2, 9, "admin")
	err := h.DeleteProduct(c2)
	require.Error(t, err)
	require.Equal(t, http.StatusNotFound, httpCode(t, err))
}

func TestProductBulkDeletePartialFailure(t *testing.T) {
	h, db := newProductHandler(t)
	e := newTestEcho()

	p := models.Product{Name: "Gloves", Price: 12}
	require.NoError(t, db.Create(&p).Error)

	rec, c := doJSONRequest(t, e, http.MethodPost, "/admin/products/bulk-delete", map[string]any{
		"ids": []uint{p.ID, 404},
	})
	asUser(c, 9, "admin")
	require.NoError(t, h.BulkDelete(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var res bulkResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	require.Equal(t, []uint{p.ID}, res.Succeeded)
	require.Len(t, res.Failed, 1)
	require.Equal(t, "not found", res.Failed[0].Reason)
}

func TestProductBulkUpdate(t *testing.T) {
	h, db := newProductHandler(t)
	e := newTestEcho()

	a := models.Product{Name: "A", Price: 10}
	b := models.Product{Name: "B", Price: 10}
	require.NoError(t, db.Create(&a).Error)
	require.NoError(t, db.Create(&b).Error)

	rec, c := doJSONRequest(t, e, http.MethodPost, "/admin/products/bulk-update", map[string]any{
		"ids":   []uint{a.ID, b.ID, 404},
		"patch": map[string]any{"discount": 15.0},
	})
	asUser(c, 9, "admin")
	require.NoError(t, h.BulkUpdate(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var res bulkResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	require.Len(t, res.Succeeded, 2)
	require.Len(t, res.Failed, 1)

	var fresh models.Product
	require.NoError(t, db.First(&fresh, a.ID).Error)
	require.Equal(t, 15.0, fresh.Discount)
}

func TestProductExportCSV(t *testing.T) {
	h, db := newProductHandler(t)
	e := newTestEcho()

	require.NoError(t, db.Create(&models.Product{Name: "Export Me", Price: 42, Brand: "Haven"}).Error)

	rec, c := doJSONRequest(t, e, http.MethodGet, "/admin/products/export", nil)
	asUser(c, 9, "admin")
	require.NoError(t, h.Export(c))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "text/csv", rec.Header().Get(echo.HeaderContentType))
	require.Contains(t, rec.Header().Get(echo.HeaderContentDisposition), ".csv")
	require.True(t, strings.Contains(rec.Body.String(), "Export Me"))
}
