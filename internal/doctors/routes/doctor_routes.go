package routes

import (
	"github.com/labstack/echo/v4"

	"github.com/c14220110/hospital-backend/internal/common/middlewares"
	"github.com/c14220110/hospital-backend/internal/doctors/controllers"
)

// RegisterDoctorRoutes: daftar dokter dan department terbuka untuk semua user yang login.
func RegisterDoctorRoutes(api *echo.Group, dc *controllers.DoctorController) {
	admin := middlewares.RequireRole(middlewares.RoleAdmin)
	self := middlewares.RequireRole(middlewares.RoleAdmin, middlewares.RoleDoctor)

	api.GET("/departments", dc.ListDepartments)
	api.POST("/departments", dc.CreateDepartment, admin)

	g := api.Group("/doctors")
	g.GET("", dc.ListDoctors)
	g.POST("", dc.CreateDoctor, admin)
	g.GET("/:id", dc.GetDoctor)
	g.PUT("/:id/availability", dc.SetAvailability, self)
	g.POST("/:id/image", dc.UploadImage, self)
}
