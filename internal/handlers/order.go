package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/judithshaven/storefront/internal/audit"
	"github.com/judithshaven/storefront/internal/cache"
	"github.com/judithshaven/storefront/internal/mail"
	"github.com/judithshaven/storefront/internal/middleware"
	"github.com/judithshaven/storefront/internal/models"
	"github.com/judithshaven/storefront/internal/mykafka"
	"github.com/judithshaven/storefront/internal/orders"
	"github.com/judithshaven/storefront/internal/pricing"
	"github.com/judithshaven/storefront/internal/util"
	"github.com/judithshaven/storefront/internal/ws"
)

type OrderHandler struct {
	DB       *gorm.DB
	Producer *mykafka.Producer
	Cache    *cache.ProductCache
	Hub      *ws.Hub
	Mailer   *mail.Mailer
	Audit    *audit.Recorder
	Rates    pricing.Rates
}

// invalidateProducts drops cached product entries whose stock just changed.
func (h *OrderHandler) invalidateProducts(c echo.Context, items []models.OrderItem) {
	ctx := c.Request().Context()
	for _, it := range items {
		if err := h.Cache.Invalidate(ctx, it.ProductID); err != nil {
			c.Logger().Errorf("cache invalidate error: %v", err)
		}
	}
}

func (h *OrderHandler) publish(c echo.Context, orderID uint, event map[string]any) {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	if err := h.Producer.PublishEvent(ctx, mykafka.TopicOrderEvents, fmt.Sprint(orderID), event); err != nil {
		c.Logger().Errorf("Kafka publish error: %v", err)
	}
}

type checkoutRequest struct {
	ShippingAddress models.ShippingAddress `json:"shipping_address"`
	PaymentMethod   string                 `json:"payment_method"`
	CouponCode      string                 `json:"coupon_code"`
}

// cartLines loads the user's cart and resolves each line's effective price.
func (h *OrderHandler) cartLines(db *gorm.DB, userID uint) ([]models.CartItem, []pricing.Line, []models.Product, error) {
	var items []models.CartItem
	if err := db.Where("user_id = ?", userID).Order("id ASC").Find(&items).Error; err != nil {
		return nil, nil, nil, err
	}

	lines := make([]pricing.Line, 0, len(items))
	products := make([]models.Product, 0, len(items))
	for _, it := range items {
		var p models.Product
		if err := db.First(&p, it.ProductID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, nil, nil, echo.NewHTTPError(http.StatusConflict, fmt.Sprintf("product %d no longer available", it.ProductID))
			}
			return nil, nil, nil, err
		}
		lines = append(lines, pricing.Line{Price: pricing.EffectivePrice(&p), Quantity: it.Quantity})
		products = append(products, p)
	}
	return items, lines, products, nil
}

func (h *OrderHandler) findCoupon(db *gorm.DB, code string) (*models.Coupon, error) {
	if code == "" {
		return nil, nil
	}
	var coupon models.Coupon
	if err := db.Where("code = ?", code).First(&coupon).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, echo.NewHTTPError(http.StatusNotFound, "coupon not found")
		}
		return nil, err
	}
	if err := pricing.ValidateCoupon(&coupon, time.Now()); err != nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return &coupon, nil
}

// Quote computes checkout totals without touching the cart, coupon, or stock.
func (h *OrderHandler) Quote(c echo.Context) error {
	userID, err := middleware.UserID(c)
	if err != nil {
		return err
	}

	var req checkoutRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err)
	}

	items, lines, _, err := h.cartLines(h.DB, userID)
	if err != nil {
		if he, ok := err.(*echo.HTTPError); ok {
			return he
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if len(items) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "no items in cart")
	}

	coupon, err := h.findCoupon(h.DB, req.CouponCode)
	if err != nil {
		if he, ok := err.(*echo.HTTPError); ok {
			return he
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	quote := pricing.Compute(lines, coupon, h.Rates)
	return c.JSON(http.StatusOK, quote)
}

type placeOrderRequest struct {
	checkoutRequest
	Size  string `json:"size"`
	Color string `json:"color"`
}

// PlaceOrder turns the cart into an order in one transaction: stock is checked
// and decremented, line prices snapshotted, the coupon consumed, and the cart
// cleared. On insufficient stock the whole transaction rolls back with 409.
func (h *OrderHandler) PlaceOrder(c echo.Context) error {
	userID, err := middleware.UserID(c)
	if err != nil {
		return err
	}

	var req placeOrderRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err)
	}
	if req.PaymentMethod == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "payment_method required")
	}

	var order models.Order

	txErr := h.DB.Transaction(func(tx *gorm.DB) error {
		items, lines, products, err := h.cartLines(tx, userID)
		if err != nil {
			if he, ok := err.(*echo.HTTPError); ok {
				return he
			}
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
		if len(items) == 0 {
			return echo.NewHTTPError(http.StatusBadRequest, "no items in cart")
		}

		orderItems := make([]models.OrderItem, 0, len(items))
		for i, it := range items {
			p := products[i]
			if p.Count < it.Quantity {
				return echo.NewHTTPError(http.StatusConflict, fmt.Sprintf("not enough stock for %q", p.Name))
			}
			p.Count -= it.Quantity
			if err := tx.Save(&p).Error; err != nil {
				return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
			}

			image := ""
			if len(p.Images) > 0 {
				image = p.Images[0]
			}
			orderItems = append(orderItems, models.OrderItem{
				UserID:    userID,
				ProductID: p.ID,
				Name:      p.Name,
				Image:     image,
				Price:     lines[i].Price,
				Quantity:  it.Quantity,
				Size:      req.Size,
				Color:     req.Color,
			})
		}

		coupon, err := h.findCoupon(tx, req.CouponCode)
		if err != nil {
			if he, ok := err.(*echo.HTTPError); ok {
				return he
			}
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
		if coupon != nil {
			coupon.IsUsed = true
			if err := tx.Save(coupon).Error; err != nil {
				return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
			}
		}

		quote := pricing.Compute(lines, coupon, h.Rates)

		estimated := time.Now().Add(5 * 24 * time.Hour)
		order = models.Order{
			UserID:            userID,
			Status:            orders.StatusPending,
			Items:             orderItems,
			ShippingAddress:   req.ShippingAddress,
			PaymentMethod:     req.PaymentMethod,
			CouponCode:        req.CouponCode,
			ItemsPrice:        quote.ItemsPrice,
			ShippingPrice:     quote.ShippingPrice,
			TaxPrice:          quote.TaxPrice,
			Discount:          quote.Discount,
			TotalPrice:        quote.TotalPrice,
			EstimatedDelivery: &estimated,
		}
		if err := tx.Create(&order).Error; err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}

		if err := tx.Where("user_id = ?", userID).Delete(&models.CartItem{}).Error; err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
		return nil
	})

	if txErr != nil {
		if he, ok := txErr.(*echo.HTTPError); ok {
			return he
		}
		return echo.NewHTTPError(http.StatusInternalServerError, txErr.Error())
	}

	h.invalidateProducts(c, order.Items)
	h.publish(c, order.ID, map[string]any{
		"type":    "order_created",
		"userID":  userID,
		"orderID": order.ID,
		"total":   order.TotalPrice,
	})

	var user models.User
	if err := h.DB.First(&user, userID).Error; err == nil {
		if err := h.Mailer.SendOrderConfirmation(user.Email, &order); err != nil {
			c.Logger().Errorf("order confirmation mail error: %v", err)
		}
	}

	return c.JSON(http.StatusCreated, order)
}

func (h *OrderHandler) ListMine(c echo.Context) error {
	userID, err := middleware.UserID(c)
	if err != nil {
		return err
	}

	page := util.ParseIntDefault(c.QueryParam("page"), 1)
	size := util.ParseIntDefault(c.QueryParam("size"), util.DefaultPageSize)
	offset, limit := util.Calculate(page, size)

	var list []models.Order
	if err := h.DB.Preload("Items").
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Offset(offset).Limit(limit).
		Find(&list).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, list)
}

// loadOwned fetches an order visible to the caller: the owner, or any admin.
func (h *OrderHandler) loadOwned(c echo.Context) (*models.Order, error) {
	userID, err := middleware.UserID(c)
	if err != nil {
		return nil, err
	}

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	var order models.Order
	if err := h.DB.Preload("Items").First(&order, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, echo.NewHTTPError(http.StatusNotFound, "order not found")
		}
		return nil, echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	if order.UserID != userID && middleware.Role(c) != "admin" {
		return nil, echo.NewHTTPError(http.StatusForbidden, "not your order")
	}
	return &order, nil
}

func (h *OrderHandler) GetOrder(c echo.Context) error {
	order, err := h.loadOwned(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, order)
}

func (h *OrderHandler) CancelRequest(c echo.Context) error {
	order, err := h.loadOwned(c)
	if err != nil {
		return err
	}

	if !orders.CancelAllowed(order.Status) {
		return echo.NewHTTPError(http.StatusConflict, "order can no longer be cancelled")
	}

	order.CancelRequested = true
	if err := h.DB.Save(order).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	h.publish(c, order.ID, map[string]any{"type": "order_cancel_requested", "orderID": order.ID})

	return c.JSON(http.StatusOK, order)
}

func (h *OrderHandler) ReturnRequest(c echo.Context) error {
	order, err := h.loadOwned(c)
	if err != nil {
		return err
	}

	if !order.IsDelivered || !orders.ReturnAllowed(order.DeliveredAt, time.Now()) {
		return echo.NewHTTPError(http.StatusConflict, "return window closed")
	}

	order.ReturnRequested = true
	if err := h.DB.Save(order).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	h.publish(c, order.ID, map[string]any{"type": "order_return_requested", "orderID": order.ID})

	return c.JSON(http.StatusOK, order)
}
