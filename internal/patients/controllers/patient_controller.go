package controllers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/c14220110/hospital-backend/internal/common/middlewares"
	"github.com/c14220110/hospital-backend/internal/patients/models"
	"github.com/c14220110/hospital-backend/internal/patients/services"
	"github.com/c14220110/hospital-backend/pkg/apperror"
	"github.com/c14220110/hospital-backend/pkg/response"
	"github.com/c14220110/hospital-backend/pkg/utils"
)

type PatientController struct {
	Service *services.PatientService
}

func NewPatientController(service *services.PatientService) *PatientController {
	return &PatientController{Service: service}
}

func (pc *PatientController) Register(c echo.Context) error {
	var req models.SelfRegisterRequest
	if err := c.Bind(&req); err != nil {
		return apperror.Validation("Invalid request body")
	}
	p, err := pc.Service.SelfRegister(c.Request().Context(), req)
	if err != nil {
		return err
	}
	return response.JSON(c, http.StatusCreated, "Patient registered successfully", p)
}

func (pc *PatientController) RegisterWalkIn(c echo.Context) error {
	claims, err := middlewares.ClaimsFrom(c)
	if err != nil {
		return err
	}
	var req models.Profile
	if err := c.Bind(&req); err != nil {
		return apperror.Validation("Invalid request body")
	}
	p, err := pc.Service.RegisterWalkIn(c.Request().Context(), req, claims.UserID)
	if err != nil {
		return err
	}
	return response.JSON(c, http.StatusCreated, "Patient registered successfully", p)
}

func (pc *PatientController) Me(c echo.Context) error {
	claims, err := middlewares.ClaimsFrom(c)
	if err != nil {
		return err
	}
	p, err := pc.Service.GetByUser(c.Request().Context(), claims.UserID)
	if err != nil {
		return err
	}
	return response.JSON(c, http.StatusOK, "Patient retrieved successfully", p)
}

func (pc *PatientController) Get(c echo.Context) error {
	id, err := utils.ParseID(c.Param("id"), "id")
	if err != nil {
		return err
	}
	p, err := pc.Service.Get(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return response.JSON(c, http.StatusOK, "Patient retrieved successfully", p)
}

// Search: GET /api/patients?q=
func (pc *PatientController) Search(c echo.Context) error {
	list, err := pc.Service.Search(c.Request().Context(), c.QueryParam("q"))
	if err != nil {
		return err
	}
	return response.JSON(c, http.StatusOK, "Patients retrieved successfully", list)
}
