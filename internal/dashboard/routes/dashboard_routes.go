package routes

import (
	"github.com/labstack/echo/v4"

	"github.com/c14220110/hospital-backend/internal/common/middlewares"
	"github.com/c14220110/hospital-backend/internal/dashboard/controllers"
)

func RegisterDashboardRoutes(api *echo.Group, dc *controllers.DashboardController) {
	api.GET("/dashboard", dc.Summary, middlewares.RequireRole(middlewares.RoleAdmin))
}
