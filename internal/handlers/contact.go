package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/judithshaven/storefront/internal/mail"
	"github.com/judithshaven/storefront/internal/models"
	"github.com/judithshaven/storefront/internal/util"
)

type ContactHandler struct {
	DB     *gorm.DB
	Mailer *mail.Mailer
}

func (h *ContactHandler) Create(c echo.Context) error {
	var req struct {
		Name    string `json:"name" validate:"required"`
		Email   string `json:"email" validate:"required,email"`
		Subject string `json:"subject"`
		Body    string `json:"body" validate:"required"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err)
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	msg := models.ContactMessage{
		Name:    req.Name,
		Email:   req.Email,
		Subject: req.Subject,
		Body:    req.Body,
	}
	if err := h.DB.Create(&msg).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	if err := h.Mailer.ForwardContactMessage(&msg); err != nil {
		c.Logger().Errorf("contact mail error: %v", err)
	}

	return c.JSON(http.StatusCreated, msg)
}

func (h *ContactHandler) List(c echo.Context) error {
	page := util.ParseIntDefault(c.QueryParam("page"), 1)
	size := util.ParseIntDefault(c.QueryParam("size"), util.DefaultPageSize)
	offset, limit := util.Calculate(page, size)

	var messages []models.ContactMessage
	if err := h.DB.Order("id DESC").Offset(offset).Limit(limit).Find(&messages).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, messages)
}
