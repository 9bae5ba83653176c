package middlewares

import (
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/c14220110/hospital-backend/pkg/apperror"
	"github.com/c14220110/hospital-backend/pkg/utils"
)

// ContextKeyClaims adalah key echo.Context tempat *utils.Claims disimpan.
const ContextKeyClaims = "claims"

// JWTMiddleware memvalidasi header Authorization: Bearer <token>.
// Untuk koneksi WebSocket token boleh dikirim lewat query ?token= karena browser tidak bisa set header.
func JWTMiddleware(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			tokenStr, err := bearerToken(c)
			if err != nil {
				return err
			}
			claims, err := utils.ValidateJWTToken(secret, tokenStr)
			if err != nil {
				return apperror.Unauthorized("Invalid or expired token")
			}
			c.Set(ContextKeyClaims, claims)
			return next(c)
		}
	}
}

func bearerToken(c echo.Context) (string, error) {
	authHeader := c.Request().Header.Get(echo.HeaderAuthorization)
	if authHeader == "" {
		if q := c.QueryParam("token"); q != "" {
			return q, nil
		}
		return "", apperror.Unauthorized("Authorization header missing")
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
		return "", apperror.Unauthorized("Invalid authorization header")
	}
	return strings.TrimSpace(parts[1]), nil
}

// ClaimsFrom mengambil klaim yang disimpan JWTMiddleware.
func ClaimsFrom(c echo.Context) (*utils.Claims, error) {
	claims, ok := c.Get(ContextKeyClaims).(*utils.Claims)
	if !ok || claims == nil {
		return nil, apperror.Unauthorized("Missing or invalid JWT claims")
	}
	return claims, nil
}
