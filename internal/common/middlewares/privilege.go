package middlewares

import (
	"github.com/labstack/echo/v4"

	"github.com/c14220110/hospital-backend/pkg/apperror"
)

// Role user yang dikenal sistem.
const (
	RoleAdmin        = "admin"
	RoleDoctor       = "doctor"
	RolePatient      = "patient"
	RoleReceptionist = "receptionist"
	RoleLabTech      = "lab_tech"
)

// RequireRole memeriksa apakah role pada klaim JWT termasuk salah satu role yang diizinkan.
func RequireRole(roles ...string) echo.MiddlewareFunc {
	allowed := make(map[string]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			claims, err := ClaimsFrom(c)
			if err != nil {
				return err
			}
			if !allowed[claims.Role] {
				return apperror.Forbidden("Anda tidak memiliki hak akses")
			}
			return next(c)
		}
	}
}
