package routes

import (
	"github.com/labstack/echo/v4"

	"github.com/c14220110/hospital-backend/internal/common/middlewares"
	"github.com/c14220110/hospital-backend/internal/tokens/controllers"
)

// RegisterTokenRoutes: resepsionis membuat token, dokter/resepsionis memanggil dan menyelesaikan.
func RegisterTokenRoutes(api *echo.Group, tc *controllers.TokenController) {
	desk := middlewares.RequireRole(middlewares.RoleAdmin, middlewares.RoleReceptionist)
	queue := middlewares.RequireRole(middlewares.RoleAdmin, middlewares.RoleReceptionist, middlewares.RoleDoctor)

	g := api.Group("/tokens")
	g.POST("", tc.Generate, desk)
	g.GET("", tc.List)
	g.POST("/call-next", tc.CallNext, queue)
	g.GET("/:id", tc.Get)
	g.POST("/:id/call", tc.Call, queue)
	g.POST("/:id/complete", tc.Complete, queue)
}
