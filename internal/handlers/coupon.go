package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/judithshaven/storefront/internal/audit"
	"github.com/judithshaven/storefront/internal/middleware"
	"github.com/judithshaven/storefront/internal/models"
	"github.com/judithshaven/storefront/internal/pricing"
)

type CouponHandler struct {
	DB    *gorm.DB
	Audit *audit.Recorder
}

// Validate checks a code for the checkout preview without consuming it, and
// reports the discount it would take off the caller's current cart.
func (h *CouponHandler) Validate(c echo.Context) error {
	userID, err := middleware.UserID(c)
	if err != nil {
		return err
	}

	var req struct {
		Code string `json:"code" validate:"required"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err)
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	var coupon models.Coupon
	if err := h.DB.Where("code = ?", req.Code).First(&coupon).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "coupon not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	if err := pricing.ValidateCoupon(&coupon, time.Now()); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	var items []models.CartItem
	if err := h.DB.Where("user_id = ?", userID).Find(&items).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	lines := make([]pricing.Line, 0, len(items))
	for _, it := range items {
		var p models.Product
		if err := h.DB.First(&p, it.ProductID).Error; err != nil {
			continue
		}
		lines = append(lines, pricing.Line{Price: pricing.EffectivePrice(&p), Quantity: it.Quantity})
	}
	quote := pricing.Compute(lines, &coupon, pricing.Rates{})

	return c.JSON(http.StatusOK, echo.Map{
		"code":     coupon.Code,
		"type":     coupon.Type,
		"value":    coupon.Value,
		"discount": quote.Discount,
	})
}

func (h *CouponHandler) List(c echo.Context) error {
	var coupons []models.Coupon
	if err := h.DB.Order("id DESC").Find(&coupons).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, coupons)
}

func (h *CouponHandler) Create(c echo.Context) error {
	var req struct {
		Code      string     `json:"code"`
		Type      string     `json:"type" validate:"required,oneof=percent fixed"`
		Value     float64    `json:"value" validate:"required,gt=0"`
		ExpiresAt *time.Time `json:"expires_at"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err)
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	code := strings.ToUpper(req.Code)
	if code == "" {
		code = strings.ToUpper(uuid.NewString()[:8])
	}

	coupon := models.Coupon{
		Code:      code,
		Type:      req.Type,
		Value:     req.Value,
		ExpiresAt: req.ExpiresAt,
	}
	if err := h.DB.Create(&coupon).Error; err != nil {
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	}

	actorID, _ := middleware.UserID(c)
	h.Audit.Record(c.Request().Context(), actorID, "create", "coupon", fmt.Sprint(coupon.ID), coupon.Code)

	return c.JSON(http.StatusCreated, coupon)
}

func (h *CouponHandler) Delete(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	res := h.DB.Delete(&models.Coupon{}, id)
	if res.Error != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, res.Error.Error())
	}
	if res.RowsAffected == 0 {
		return echo.NewHTTPError(http.StatusNotFound, "coupon not found")
	}

	actorID, _ := middleware.UserID(c)
	h.Audit.Record(c.Request().Context(), actorID, "delete", "coupon", fmt.Sprint(id), "")

	return c.NoContent(http.StatusNoContent)
}
