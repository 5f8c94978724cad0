package handlers

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/judithshaven/storefront/internal/models"
)

func TestContactCreate(t *testing.T) {
	db := InitTestDB(t)
	h := &ContactHandler{DB: db}
	e := newTestEcho()

	rec, c := doJSONRequest(t, e, http.MethodPost, "/api/v1/contact", map[string]any{
		"name":    "Jane",
		"email":   "jane@example.com",
		"subject": "Sizing",
		"body":    "Does the wool coat run small?",
	})
	require.NoError(t, h.Create(c))
	require.Equal(t, http.StatusCreated, rec.Code)

	var msg models.ContactMessage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &msg))
	require.NotZero(t, msg.ID)
	require.Equal(t, "Sizing", msg.Subject)
}

func TestContactCreateValidation(t *testing.T) {
	db := InitTestDB(t)
	h := &ContactHandler{DB: db}
	e := newTestEcho()

	_, c := doJSONRequest(t, e, http.MethodPost, "/api/v1/contact", map[string]any{
		"name": "Jane", "email": "not-an-email", "body": "hi",
	})
	err := h.Create(c)
	require.Error(t, err)
	require.Equal(t, http.StatusBadRequest, httpCode(t, err))

	var count int64
	require.NoError(t, db.Model(&models.ContactMessage{}).Count(&count).Error)
	require.EqualValues(t, 0, count)
}

func TestContactAdminList(t *testing.T) {
	db := InitTestDB(t)
	h := &ContactHandler{DB: db}
	e := newTestEcho()

	require.NoError(t, db.Create(&models.ContactMessage{Name: "A", Email: "a@example.com", Body: "first"}).Error)
	require.NoError(t, db.Create(&models.ContactMessage{Name: "B", Email: "b@example.com", Body: "second"}).Error)

	rec, c := doJSONRequest(t, e, http.MethodGet, "/admin/contact", nil)
	asUser(c, 9, "admin")
	require.NoError(t, h.List(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var messages []models.ContactMessage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &messages))
	require.Len(t, messages, 2)
	// Newest first.
	require.Equal(t, "second", messages[0].Body)
}
