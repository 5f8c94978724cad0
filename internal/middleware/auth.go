package middleware

import (
	"net/http"
	"strconv"

	"github.com/golang-jwt/jwt/v5"
	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"

	"github.com/judithshaven/storefront/internal/service"
)

// RequireLogin authenticates the Bearer header (or the accessToken cookie the
// web client keeps) and puts userID/role into the echo context.
func RequireLogin(jwtSecret []byte) echo.MiddlewareFunc {
	return echojwt.WithConfig(echojwt.Config{
		SigningMethod: "HS256",
		SigningKey:    jwtSecret,
		TokenLookup:   "header:Authorization:Bearer ,cookie:accessToken",
		NewClaimsFunc: func(c echo.Context) jwt.Claims {
			return new(service.AccessClaims)
		},
		SuccessHandler: func(c echo.Context) {
			token, ok := c.Get("user").(*jwt.Token)
			if !ok {
				return
			}
			claims, ok := token.Claims.(*service.AccessClaims)
			if !ok {
				return
			}
			if id, err := strconv.Atoi(claims.Subject); err == nil {
				c.Set("userID", uint(id))
			}
			c.Set("role", claims.Role)
		},
	})
}

func RequireAdmin(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if Role(c) != "admin" {
			return echo.NewHTTPError(http.StatusForbidden, "admin only")
		}
		return next(c)
	}
}

func UserID(c echo.Context) (uint, error) {
	id, ok := c.Get("userID").(uint)
	if !ok {
		return 0, echo.NewHTTPError(http.StatusUnauthorized, "missing user identity")
	}
	return id, nil
}

func Role(c echo.Context) string {
	role, _ := c.Get("role").(string)
	return role
}
