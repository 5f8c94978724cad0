package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"golang.org/x/net/websocket"
	"gorm.io/gorm"

	"github.com/judithshaven/storefront/internal/middleware"
	"github.com/judithshaven/storefront/internal/models"
	"github.com/judithshaven/storefront/internal/ws"
)

type WSHandler struct {
	DB  *gorm.DB
	Hub *ws.Hub
}

// OrderRoom upgrades the connection and parks it in the order's room until the
// client goes away. The client only listens; inbound frames are drained and
// dropped.
func (h *WSHandler) OrderRoom(c echo.Context) error {
	userID, err := middleware.UserID(c)
	if err != nil {
		return err
	}

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
	if order.UserID != userID && middleware.Role(c) != "admin" {
		return echo.NewHTTPError(http.StatusForbidden, "not your order")
	}

	websocket.Handler(func(conn *websocket.Conn) {
		h.Hub.Join(order.ID, conn)
		defer h.Hub.Leave(order.ID, conn)
		defer conn.Close()

		for {
			var discard string
			if err := websocket.Message.Receive(conn, &discard); err != nil {
				break
			}
		}
	}).ServeHTTP(c.Response(), c.Request())

	return nil
}
