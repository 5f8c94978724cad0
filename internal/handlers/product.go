package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/judithshaven/storefront/internal/audit"
	"github.com/judithshaven/storefront/internal/cache"
	"github.com/judithshaven/storefront/internal/es"
	"github.com/judithshaven/storefront/internal/export"
	"github.com/judithshaven/storefront/internal/middleware"
	"github.com/judithshaven/storefront/internal/models"
	"github.com/judithshaven/storefront/internal/mykafka"
	"github.com/judithshaven/storefront/internal/util"
)

type Response struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

func errorResponse(c echo.Context, code int, err error) error {
	return c.JSON(code, Response{
		Status:  "error",
		Message: err.Error(),
	})
}

type ProductHandler struct {
	DB       *gorm.DB
	Producer *mykafka.Producer
	Cache    *cache.ProductCache
	Indexer  *es.Indexer
	Audit    *audit.Recorder
}

func (h *ProductHandler) publish(c echo.Context, event map[string]any) {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	if err := h.Producer.PublishEvent(ctx, mykafka.TopicProductEvents, fmt.Sprint(event["productID"]), event); err != nil {
		c.Logger().Errorf("Kafka publish error: %v", err)
	}
}

// syncProduct keeps the search index and cache in step with a mutation.
// Failures are logged, never surfaced.
func (h *ProductHandler) syncProduct(c echo.Context, p *models.Product, deleted bool) {
	ctx := c.Request().Context()
	if deleted {
		if err := h.Indexer.DeleteProduct(ctx, p.ID); err != nil {
			c.Logger().Errorf("ES delete error: %v", err)
		}
	} else {
		if err := h.Indexer.IndexProduct(ctx, p); err != nil {
			c.Logger().Errorf("ES index error: %v", err)
		}
	}
	if err := h.Cache.Invalidate(ctx, p.ID); err != nil {
		c.Logger().Errorf("cache invalidate error: %v", err)
	}
}

func (h *ProductHandler) GetProduct(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errorResponse(c, http.StatusBadRequest, err)
	}

	ctx := c.Request().Context()
	if p, ok := h.Cache.Get(ctx, uint(id)); ok {
		return c.JSON(http.StatusOK, p)
	}

	var product models.Product
	if err := h.DB.First(&product, id).Error; err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "product not found")
	}

	if err := h.Cache.Set(ctx, &product); err != nil {
		c.Logger().Errorf("cache set error: %v", err)
	}
	return c.JSON(http.StatusOK, product)
}

func (h *ProductHandler) GetProducts(c echo.Context) error {
	page := util.ParseIntDefault(c.QueryParam("page"), 1)
	size := util.ParseIntDefault(c.QueryParam("size"), util.DefaultPageSize)
	offset, limit := util.Calculate(page, size)

	q := h.DB.Model(&models.Product{})
	if v := c.QueryParam("category"); v != "" {
		q = q.Where("category_id = ?", util.ParseIntDefault(v, 0))
	}
	if v := c.QueryParam("gender"); v != "" {
		q = q.Where("gender = ?", v)
	}
	if v := c.QueryParam("brand"); v != "" {
		q = q.Where("brand = ?", v)
	}
	if c.QueryParam("featured") == "true" {
		q = q.Where("featured = ?", true)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	var items []models.Product
	if err := q.Order("id ASC").Offset(offset).Limit(limit).Find(&items).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, map[string]any{
		"data": items,
		"meta": map[string]any{
			"page":        page,
			"size":        limit,
			"total":       total,
			"total_pages": (total + int64(limit) - 1) / int64(limit),
			"has_prev":    page > 1,
			"has_next":    int64(offset+limit) < total,
		},
	})
}

type productRequest struct {
	Name        string   `json:"name" validate:"required"`
	Description string   `json:"description"`
	Price       float64  `json:"price" validate:"gte=0"`
	Count       uint     `json:"count_in_stock"`
	CategoryID  uint     `json:"category_id"`
	Brand       string   `json:"brand"`
	Gender      string   `json:"gender"`
	Featured    bool     `json:"featured"`
	Discount    float64  `json:"discount" validate:"gte=0,lte=100"`
	Images      []string `json:"images"`
	Sizes       []string `json:"sizes"`
	Colors      []string `json:"colors"`
	Features    []string `json:"features"`
}

func (h *ProductHandler) CreateProduct(c echo.Context) error {
	var req productRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err)
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	prod := models.Product{
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		Count:       req.Count,
		CategoryID:  req.CategoryID,
		Brand:       req.Brand,
		Gender:      req.Gender,
		Featured:    req.Featured,
		Discount:    req.Discount,
		Images:      req.Images,
		Sizes:       req.Sizes,
		Colors:      req.Colors,
		Features:    req.Features,
	}

	if err := h.DB.Create(&prod).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	actorID, _ := middleware.UserID(c)
	h.Audit.Record(c.Request().Context(), actorID, "create", "product", fmt.Sprint(prod.ID), prod.Name)
	h.publish(c, map[string]any{"type": "product_created", "productID": prod.ID, "name": prod.Name})
	h.syncProduct(c, &prod, false)

	return c.JSON(http.StatusCreated, prod)
}

type patchProductRequest struct {
	Name        *string   `json:"name"`
	Description *string   `json:"description"`
	Price       *float64  `json:"price" validate:"omitempty,gte=0"`
	Count       *uint     `json:"count_in_stock"`
	CategoryID  *uint     `json:"category_id"`
	Brand       *string   `json:"brand"`
	Gender      *string   `json:"gender"`
	Featured    *bool     `json:"featured"`
	Discount    *float64  `json:"discount" validate:"omitempty,gte=0,lte=100"`
	Images      *[]string `json:"images"`
	Sizes       *[]string `json:"sizes"`
	Colors      *[]string `json:"colors"`
	Features    *[]string `json:"features"`
}

func applyPatch(prod *models.Product, req *patchProductRequest) {
	if req.Name != nil {
		prod.Name = *req.Name
	}
	if req.Description != nil {
		prod.Description = *req.Description
	}
	if req.Price != nil {
		prod.Price = *req.Price
	}
	if req.Count != nil {
		prod.Count = *req.Count
	}
	if req.CategoryID != nil {
		prod.CategoryID = *req.CategoryID
	}
	if req.Brand != nil {
		prod.Brand = *req.Brand
	}
	if req.Gender != nil {
		prod.Gender = *req.Gender
	}
	if req.Featured != nil {
		prod.Featured = *req.Featured
	}
	if req.Discount != nil {
		prod.Discount = *req.Discount
	}
	if req.Images != nil {
		prod.Images = *req.Images
	}
	if req.Sizes != nil {
		prod.Sizes = *req.Sizes
	}
	if req.Colors != nil {
		prod.Colors = *req.Colors
	}
	if req.Features != nil {
		prod.Features = *req.Features
	}
}

func (h *ProductHandler) PatchProduct(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errorResponse(c, http.StatusBadRequest, err)
	}

	var req patchProductRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err)
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	var prod models.Product
	if err := h.DB.First(&prod, id).Error; err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "product not found")
	}

	applyPatch(&prod, &req)

	if err := h.DB.Save(&prod).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	actorID, _ := middleware.UserID(c)
	h.Audit.Record(c.Request().Context(), actorID, "update", "product", fmt.Sprint(prod.ID), prod.Name)
	h.publish(c, map[string]any{"type": "product_updated", "productID": prod.ID, "name": prod.Name})
	h.syncProduct(c, &prod, false)

	return c.JSON(http.StatusOK, prod)
}

func (h *ProductHandler) DeleteProduct(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errorResponse(c, http.StatusBadRequest, err)
	}

	res := h.DB.Delete(&models.Product{}, id)
	if res.Error != nil {
		return errorResponse(c, http.StatusInternalServerError, res.Error)
	}
	if res.RowsAffected == 0 {
		return echo.NewHTTPError(http.StatusNotFound, "product not found")
	}

	actorID, _ := middleware.UserID(c)
	h.Audit.Record(c.Request().Context(), actorID, "delete", "product", fmt.Sprint(id), "")
	h.publish(c, map[string]any{"type": "product_deleted", "productID": id})
	h.syncProduct(c, &models.Product{ID: uint(id)}, true)

	return c.NoContent(http.StatusNoContent)
}

// BulkFailure reports one failed id in a bulk operation.
type BulkFailure struct {
	ID     uint   `json:"id"`
	Reason string `json:"reason"`
}

type bulkResult struct {
	Succeeded []uint        `json:"succeeded"`
	Failed    []BulkFailure `json:"failed,omitempty"`
}

func (h *ProductHandler) BulkDelete(c echo.Context) error {
	var req struct {
		IDs []uint `json:"ids" validate:"required,min=1"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err)
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	result := bulkResult{}
	for _, id := range req.IDs {
		res := h.DB.Delete(&models.Product{}, id)
		switch {
		case res.Error != nil:
			result.Failed = append(result.Failed, BulkFailure{ID: id, Reason: res.Error.Error()})
		case res.RowsAffected == 0:
			result.Failed = append(result.Failed, BulkFailure{ID: id, Reason: "not found"})
		default:
			result.Succeeded = append(result.Succeeded, id)
			h.syncProduct(c, &models.Product{ID: id}, true)
		}
	}

	actorID, _ := middleware.UserID(c)
	h.Audit.Record(c.Request().Context(), actorID, "bulk_delete", "product", "", fmt.Sprintf("%d of %d deleted", len(result.Succeeded), len(req.IDs)))
	h.publish(c, map[string]any{"type": "products_bulk_deleted", "productID": "", "ids": result.Succeeded})

	return c.JSON(http.StatusOK, result)
}

func (h *ProductHandler) BulkUpdate(c echo.Context) error {
	var req struct {
		IDs   []uint              `json:"ids" validate:"required,min=1"`
		Patch patchProductRequest `json:"patch"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err)
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	result := bulkResult{}
	for _, id := range req.IDs {
		var prod models.Product
		if err := h.DB.First(&prod, id).Error; err != nil {
			result.Failed = append(result.Failed, BulkFailure{ID: id, Reason: "not found"})
			continue
		}
		applyPatch(&prod, &req.Patch)
		if err := h.DB.Save(&prod).Error; err != nil {
			result.Failed = append(result.Failed, BulkFailure{ID: id, Reason: err.Error()})
			continue
		}
		result.Succeeded = append(result.Succeeded, id)
		h.syncProduct(c, &prod, false)
	}

	actorID, _ := middleware.UserID(c)
	h.Audit.Record(c.Request().Context(), actorID, "bulk_update", "product", "", fmt.Sprintf("%d of %d updated", len(result.Succeeded), len(req.IDs)))

	return c.JSON(http.StatusOK, result)
}

func (h *ProductHandler) Export(c echo.Context) error {
	var products []models.Product
	if err := h.DB.Order("id ASC").Find(&products).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return writeExport(c, export.ProductsTable(products))
}

// writeExport streams a table as csv (default) or xlsx.
func writeExport(c echo.Context, t export.Table) error {
	switch c.QueryParam("format") {
	case "xlsx":
		c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%s.xlsx", t.Name))
		c.Response().Header().Set(echo.HeaderContentType, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		c.Response().WriteHeader(http.StatusOK)
		return export.WriteXLSX(c.Response(), t)
	default:
		c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%s.csv", t.Name))
		c.Response().Header().Set(echo.HeaderContentType, "text/csv")
		c.Response().WriteHeader(http.StatusOK)
		return export.WriteCSV(c.Response(), t)
	}
}
