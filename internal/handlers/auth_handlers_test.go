package handlers

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/judithshaven/storefront/internal/models"
	"github.com/judithshaven/storefront/internal/mykafka"
	"github.com/judithshaven/storefront/internal/service"
)

func newAuthHandler(t *testing.T) *AuthHandler {
	db := InitTestDB(t)
	tokens := &service.TokenService{
		DB:            db,
		JWTSecret:     []byte("test_jwt_secret"),
		RefreshSecret: []byte("test_refresh_secret"),
	}
	return &AuthHandler{DB: db, Tokens: tokens, Producer: &mykafka.Producer{}}
}

func TestRegister(t *testing.T) {
	h := newAuthHandler(t)
	e := newTestEcho()

	payload := map[string]string{
		"username": "test_user",
		"email":    "test@example.com",
		"password": "password123",
	}

	rec, c := doJSONRequest(t, e, http.MethodPost, "/register", payload)
	require.NoError(t, h.Register(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var user models.User
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &user))
	require.Equal(t, "test_user", user.Username)
	require.Equal(t, "user", user.Role)
	require.NotEmpty(t, user.ID)

	var stored models.User
	require.NoError(t, h.DB.First(&stored, user.ID).Error)
	require.NotEqual(t, "password123", stored.PasswordHash)

	// duplicate registration
	_, cDup := doJSONRequest(t, e, http.MethodPost, "/register", payload)
	err := h.Register(cDup)
	require.Error(t, err)
}

func TestRegisterRejectsShortPassword(t *testing.T) {
	h := newAuthHandler(t)
	e := newTestEcho()

	payload := map[string]string{
		"username": "test_user",
		"email":    "test@example.com",
		"password": "short",
	}

	_, c := doJSONRequest(t, e, http.MethodPost, "/register", payload)
	require.Error(t, h.Register(c))
}

func TestLoginIssuesTokenPair(t *testing.T) {
	h := newAuthHandler(t)
	e := newTestEcho()

	register := map[string]string{
		"username": "test_user",
		"email":    "test@example.com",
		"password": "password123",
	}
	_, cReg := doJSONRequest(t, e, http.MethodPost, "/register", register)
	require.NoError(t, h.Register(cReg))

	login := map[string]string{"username": "test_user", "password": "password123"}
	rec, c := doJSONRequest(t, e, http.MethodPost, "/login", login)
	require.NoError(t, h.Login(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
		IsAdmin      bool   `json:"is_admin"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.AccessToken)
	require.NotEmpty(t, resp.RefreshToken)
	require.False(t, resp.IsAdmin)

	var stored models.RefreshToken
	require.NoError(t, h.DB.Where("token = ?", resp.RefreshToken).First(&stored).Error)
	require.False(t, stored.Revoked)
}

func TestLoginRejectsBadPassword(t *testing.T) {
	h := newAuthHandler(t)
	e := newTestEcho()

	register := map[string]string{
		"username": "test_user",
		"email":    "test@example.com",
		"password": "password123",
	}
	_, cReg := doJSONRequest(t, e, http.MethodPost, "/register", register)
	require.NoError(t, h.Register(cReg))

	login := map[string]string{"username": "test_user", "password": "wrong_password"}
	_, c := doJSONRequest(t, e, http.MethodPost, "/login", login)
	require.Error(t, h.Login(c))
}

func TestRefreshRotatesAndRevokes(t *testing.T) {
	h := newAuthHandler(t)
	e := newTestEcho()

	register := map[string]string{
		"username": "test_user",
		"email":    "test@example.com",
		"password": "password123",
	}
	_, cReg := doJSONRequest(t, e, http.MethodPost, "/register", register)
	require.NoError(t, h.Register(cReg))

	login := map[string]string{"username": "test_user", "password": "password123"}
	recLogin, cLogin := doJSONRequest(t, e, http.MethodPost, "/login", login)
	require.NoError(t, h.Login(cLogin))

	var loginResp struct {
		RefreshToken string `json:"refresh_token"`
	}
	require.NoError(t, json.Unmarshal(recLogin.Body.Bytes(), &loginResp))

	body := map[string]string{"refresh_token": loginResp.RefreshToken}
	rec, c := doJSONRequest(t, e, http.MethodPost, "/refresh", body)
	require.NoError(t, h.Refresh(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.AccessToken)
	require.NotEqual(t, loginResp.RefreshToken, resp.RefreshToken)

	// old refresh token is single-use
	var old models.RefreshToken
	require.NoError(t, h.DB.Where("token = ?", loginResp.RefreshToken).First(&old).Error)
	require.True(t, old.Revoked)

	_, cAgain := doJSONRequest(t, e, http.MethodPost, "/refresh", body)
	require.Error(t, h.Refresh(cAgain))
}
