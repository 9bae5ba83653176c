package controllers

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/c14220110/hospital-backend/internal/dashboard/services"
	"github.com/c14220110/hospital-backend/pkg/response"
)

type DashboardController struct {
	Service *services.DashboardService
	Loc     *time.Location
}

func NewDashboardController(service *services.DashboardService, loc *time.Location) *DashboardController {
	if loc == nil {
		loc = time.UTC
	}
	return &DashboardController{Service: service, Loc: loc}
}

// Summary: GET /api/dashboard?from=YYYY-MM-DD&to=YYYY-MM-DD
func (dc *DashboardController) Summary(c echo.Context) error {
	from, to, err := services.ParseRange(c.QueryParam("from"), c.QueryParam("to"), time.Now().In(dc.Loc))
	if err != nil {
		return err
	}
	sum, err := dc.Service.Summary(c.Request().Context(), from, to)
	if err != nil {
		return err
	}
	return response.JSON(c, http.StatusOK, "Dashboard data retrieved successfully", sum)
}
