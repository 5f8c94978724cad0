package cart

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/judithshaven/storefront/internal/models"
	"github.com/judithshaven/storefront/internal/mykafka"
)

func (h *CartHandler) publish(c echo.Context, event map[string]any) {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	if err := h.Producer.PublishEvent(ctx, mykafka.TopicCartEvents, fmt.Sprint(event["userID"]), event); err != nil {
		c.Logger().Errorf("Kafka publish error: %v", err)
	}
}

func (h *CartHandler) loadCart(userID uint) ([]models.CartItem, error) {
	items := []models.CartItem{}
	if err := h.DB.Where("user_id = ?", userID).Order("id ASC").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// respondWithCart returns the full refreshed cart after a mutation, so the
// client resyncs its local state with one payload.
func (h *CartHandler) respondWithCart(c echo.Context, userID uint) error {
	items, err := h.loadCart(userID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, items)
}
