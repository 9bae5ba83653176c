package routes

import (
	"github.com/labstack/echo/v4"

	"github.com/c14220110/hospital-backend/internal/common/middlewares"
	"github.com/c14220110/hospital-backend/internal/users/controllers"
)

// RegisterUserRoutes: login bersifat publik, sisanya di bawah group JWT.
func RegisterUserRoutes(public *echo.Group, api *echo.Group, uc *controllers.UserController) {
	public.POST("/auth/login", uc.Login)

	api.GET("/users/me", uc.Me)
	api.POST("/users", uc.CreateUser, middlewares.RequireRole(middlewares.RoleAdmin))
}
