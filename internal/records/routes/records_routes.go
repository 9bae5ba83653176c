package routes

import (
	"github.com/labstack/echo/v4"

	"github.com/c14220110/hospital-backend/internal/common/middlewares"
	"github.com/c14220110/hospital-backend/internal/records/controllers"
)

func RegisterRecordsRoutes(api *echo.Group, rc *controllers.RecordsController) {
	prescribers := middlewares.RequireRole(middlewares.RoleAdmin, middlewares.RoleDoctor)
	lab := middlewares.RequireRole(middlewares.RoleAdmin, middlewares.RoleLabTech)

	api.GET("/medicines", rc.ListMedicines)
	api.POST("/medicines", rc.CreateMedicine, middlewares.RequireRole(middlewares.RoleAdmin))

	api.POST("/appointments/:id/prescriptions", rc.Prescribe, prescribers)
	api.GET("/appointments/:id/prescriptions", rc.ListPrescriptions)

	api.POST("/lab-reports", rc.OrderLab, middlewares.RequireRole(middlewares.RoleAdmin, middlewares.RoleDoctor, middlewares.RoleLabTech))
	api.PUT("/lab-reports/:id/result", rc.RecordLabResult, lab)
	api.GET("/patients/:id/lab-reports", rc.ListLabReports)
}
