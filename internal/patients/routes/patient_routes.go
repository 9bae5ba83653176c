package routes

import (
	"github.com/labstack/echo/v4"

	"github.com/c14220110/hospital-backend/internal/common/middlewares"
	"github.com/c14220110/hospital-backend/internal/patients/controllers"
)

// RegisterPatientRoutes: registrasi mandiri publik, data pasien lain hanya untuk staf.
func RegisterPatientRoutes(public *echo.Group, api *echo.Group, pc *controllers.PatientController) {
	staff := middlewares.RequireRole(middlewares.RoleAdmin, middlewares.RoleReceptionist,
		middlewares.RoleDoctor, middlewares.RoleLabTech)

	public.POST("/auth/register", pc.Register)

	g := api.Group("/patients")
	g.GET("/me", pc.Me, middlewares.RequireRole(middlewares.RolePatient))
	g.GET("", pc.Search, staff)
	g.POST("", pc.RegisterWalkIn, middlewares.RequireRole(middlewares.RoleAdmin, middlewares.RoleReceptionist))
	g.GET("/:id", pc.Get, staff)
}
