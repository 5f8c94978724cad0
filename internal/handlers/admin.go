package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/judithshaven/storefront/internal/audit"
	"github.com/judithshaven/storefront/internal/export"
	"github.com/judithshaven/storefront/internal/middleware"
	"github.com/judithshaven/storefront/internal/models"
	"github.com/judithshaven/storefront/internal/orders"
	"github.com/judithshaven/storefront/internal/util"
)

// Admin order operations live on OrderHandler so they share the publish/hub
// wiring with the customer endpoints.

func (h *OrderHandler) ListAll(c echo.Context) error {
	page := util.ParseIntDefault(c.QueryParam("page"), 1)
	size := util.ParseIntDefault(c.QueryParam("size"), util.DefaultPageSize)
	offset, limit := util.Calculate(page, size)

	q := h.DB.Model(&models.Order{})
	if v := c.QueryParam("status"); v != "" {
		q = q.Where("status = ?", v)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	var list []models.Order
	if err := q.Preload("Items").
		Order("created_at DESC").
		Offset(offset).Limit(limit).
		Find(&list).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, map[string]any{
		"data": list,
		"meta": map[string]any{
			"page":  page,
			"size":  limit,
			"total": total,
		},
	})
}

// UpdateStatus applies an admin status change through the transition table,
// then notifies the order room and the event stream.
func (h *OrderHandler) UpdateStatus(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	var req struct {
		Status         string `json:"status" validate:"required"`
		TrackingNumber string `json:"tracking_number"`
		Notes          string `json:"notes"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err)
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	var order models.Order
	txErr := h.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Preload("Items").First(&order, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return echo.NewHTTPError(http.StatusNotFound, "order not found")
			}
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}

		if err := orders.Transition(order.Status, req.Status); err != nil {
			return echo.NewHTTPError(http.StatusConflict, err.Error())
		}

		order.Status = req.Status
		if req.TrackingNumber != "" {
			order.TrackingNumber = req.TrackingNumber
		}
		if req.Notes != "" {
			order.Notes = req.Notes
		}

		switch req.Status {
		case orders.StatusDelivered:
			now := time.Now()
			order.IsDelivered = true
			order.DeliveredAt = &now
		case orders.StatusCancelled:
			// Cancelled stock goes back on the shelf.
			for _, it := range order.Items {
				if err := tx.Model(&models.Product{}).
					Where("id = ?", it.ProductID).
					Update("count", gorm.Expr("count + ?", it.Quantity)).Error; err != nil {
					return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
				}
			}
		}

		if err := tx.Save(&order).Error; err != nil {
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

	if order.Status == orders.StatusCancelled {
		h.invalidateProducts(c, order.Items)
	}

	actorID, _ := middleware.UserID(c)
	h.Audit.Record(c.Request().Context(), actorID, "status_update", "order", fmt.Sprint(order.ID), order.Status)
	h.publish(c, order.ID, map[string]any{
		"type":    "order_status_changed",
		"orderID": order.ID,
		"status":  order.Status,
	})
	h.Hub.BroadcastStatus(&order)

	return c.JSON(http.StatusOK, order)
}

func (h *OrderHandler) MarkPaid(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	var order models.Order
	if err := h.DB.First(&order, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "order not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if order.IsPaid {
		return echo.NewHTTPError(http.StatusConflict, "order already paid")
	}

	now := time.Now()
	order.IsPaid = true
	order.PaidAt = &now
	if err := h.DB.Save(&order).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	actorID, _ := middleware.UserID(c)
	h.Audit.Record(c.Request().Context(), actorID, "mark_paid", "order", fmt.Sprint(order.ID), "")
	h.publish(c, order.ID, map[string]any{"type": "order_paid", "orderID": order.ID})

	return c.JSON(http.StatusOK, order)
}

func (h *OrderHandler) BulkDelete(c echo.Context) error {
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
		err := h.DB.Transaction(func(tx *gorm.DB) error {
			res := tx.Delete(&models.Order{}, id)
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return gorm.ErrRecordNotFound
			}
			return tx.Where("order_id = ?", id).Delete(&models.OrderItem{}).Error
		})
		if err != nil {
			result.Failed = append(result.Failed, BulkFailure{ID: id, Reason: err.Error()})
			continue
		}
		result.Succeeded = append(result.Succeeded, id)
	}

	actorID, _ := middleware.UserID(c)
	h.Audit.Record(c.Request().Context(), actorID, "bulk_delete", "order", "", fmt.Sprintf("%d of %d deleted", len(result.Succeeded), len(req.IDs)))

	return c.JSON(http.StatusOK, result)
}

func (h *OrderHandler) Export(c echo.Context) error {
	var list []models.Order
	if err := h.DB.Order("id ASC").Find(&list).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return writeExport(c, export.OrdersTable(list))
}

// AdminUserHandler covers the admin user screens: listing, role changes,
// deletion, export.
type AdminUserHandler struct {
	DB    *gorm.DB
	Audit *audit.Recorder
}

func (h *AdminUserHandler) ListUsers(c echo.Context) error {
	page := util.ParseIntDefault(c.QueryParam("page"), 1)
	size := util.ParseIntDefault(c.QueryParam("size"), util.DefaultPageSize)
	offset, limit := util.Calculate(page, size)

	var total int64
	if err := h.DB.Model(&models.User{}).Count(&total).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	var users []models.User
	if err := h.DB.Order("id ASC").Offset(offset).Limit(limit).Find(&users).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, map[string]any{
		"data": users,
		"meta": map[string]any{
			"page":  page,
			"size":  limit,
			"total": total,
		},
	})
}

func (h *AdminUserHandler) UpdateRole(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	var req struct {
		Role string `json:"role" validate:"required,oneof=user admin"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err)
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	var user models.User
	if err := h.DB.First(&user, id).Error; err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "user not found")
	}

	user.Role = req.Role
	if err := h.DB.Save(&user).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	actorID, _ := middleware.UserID(c)
	h.Audit.Record(c.Request().Context(), actorID, "role_update", "user", fmt.Sprint(user.ID), user.Role)

	return c.JSON(http.StatusOK, user)
}

func (h *AdminUserHandler) DeleteUser(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	actorID, _ := middleware.UserID(c)
	if uint(id) == actorID {
		return echo.NewHTTPError(http.StatusConflict, "cannot delete yourself")
	}

	res := h.DB.Delete(&models.User{}, id)
	if res.Error != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, res.Error.Error())
	}
	if res.RowsAffected == 0 {
		return echo.NewHTTPError(http.StatusNotFound, "user not found")
	}

	h.Audit.Record(c.Request().Context(), actorID, "delete", "user", fmt.Sprint(id), "")

	return c.NoContent(http.StatusNoContent)
}

func (h *AdminUserHandler) BulkDelete(c echo.Context) error {
	var req struct {
		IDs []uint `json:"ids" validate:"required,min=1"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err)
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	actorID, _ := middleware.UserID(c)

	result := bulkResult{}
	for _, id := range req.IDs {
		if id == actorID {
			result.Failed = append(result.Failed, BulkFailure{ID: id, Reason: "cannot delete yourself"})
			continue
		}
		res := h.DB.Delete(&models.User{}, id)
		switch {
		case res.Error != nil:
			result.Failed = append(result.Failed, BulkFailure{ID: id, Reason: res.Error.Error()})
		case res.RowsAffected == 0:
			result.Failed = append(result.Failed, BulkFailure{ID: id, Reason: "not found"})
		default:
			result.Succeeded = append(result.Succeeded, id)
		}
	}

	h.Audit.Record(c.Request().Context(), actorID, "bulk_delete", "user", "", fmt.Sprintf("%d of %d deleted", len(result.Succeeded), len(req.IDs)))

	return c.JSON(http.StatusOK, result)
}

func (h *AdminUserHandler) Export(c echo.Context) error {
	var users []models.User
	if err := h.DB.Order("id ASC").Find(&users).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return writeExport(c, export.UsersTable(users))
}

// AuditLogHandler exposes the append-only audit trail to admins.
type AuditLogHandler struct {
	DB *gorm.DB
}

func (h *AuditLogHandler) List(c echo.Context) error {
	page := util.ParseIntDefault(c.QueryParam("page"), 1)
	size := util.ParseIntDefault(c.QueryParam("size"), util.DefaultPageSize)
	offset, limit := util.Calculate(page, size)

	q := h.DB.Model(&models.AuditLog{})
	if v := c.QueryParam("entity"); v != "" {
		q = q.Where("entity = ?", v)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	var logs []models.AuditLog
	if err := q.Order("id DESC").Offset(offset).Limit(limit).Find(&logs).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, map[string]any{
		"data": logs,
		"meta": map[string]any{
			"page":  page,
			"size":  limit,
			"total": total,
		},
	})
}
