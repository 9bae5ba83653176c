package routes

import (
	"github.com/labstack/echo/v4"

	"github.com/c14220110/hospital-backend/internal/appointments/controllers"
	"github.com/c14220110/hospital-backend/internal/common/middlewares"
)

// RegisterAppointmentRoutes: approve/reject oleh dokter atau staf, cancel/reschedule juga oleh pasien pemilik.
func RegisterAppointmentRoutes(api *echo.Group, ac *controllers.AppointmentController) {
	reviewers := middlewares.RequireRole(middlewares.RoleAdmin, middlewares.RoleReceptionist, middlewares.RoleDoctor)

	g := api.Group("/appointments")
	g.POST("", ac.Book)
	g.GET("", ac.List)
	g.GET("/:id", ac.Get)
	g.POST("/:id/approve", ac.Approve, reviewers)
	g.POST("/:id/reject", ac.Reject, reviewers)
	g.POST("/:id/complete", ac.Complete, reviewers)
	g.POST("/:id/cancel", ac.Cancel)
	g.POST("/:id/reschedule", ac.Reschedule)
}
