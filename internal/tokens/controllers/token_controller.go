package controllers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/c14220110/hospital-backend/internal/tokens/models"
	"github.com/c14220110/hospital-backend/internal/tokens/services"
	"github.com/c14220110/hospital-backend/pkg/apperror"
	"github.com/c14220110/hospital-backend/pkg/response"
	"github.com/c14220110/hospital-backend/pkg/utils"
)

type TokenController struct {
	Service *services.TokenService
}

func NewTokenController(service *services.TokenService) *TokenController {
	return &TokenController{Service: service}
}

func (tc *TokenController) Generate(c echo.Context) error {
	var req models.GenerateRequest
	if err := c.Bind(&req); err != nil {
		return apperror.Validation("Invalid request body")
	}
	tok, err := tc.Service.Generate(c.Request().Context(), req)
	if err != nil {
		return err
	}
	return response.JSON(c, http.StatusCreated, "Token generated successfully", tok)
}

// List: GET /api/tokens?doctor_id=&date=&status=
// Filter status menerima kosakata lama (Pending, In Queue).
func (tc *TokenController) List(c echo.Context) error {
	doctorID, err := utils.ParseID(c.QueryParam("doctor_id"), "doctor_id")
	if err != nil {
		return err
	}
	items, err := tc.Service.List(c.Request().Context(), doctorID, c.QueryParam("date"))
	if err != nil {
		return err
	}
	if raw := c.QueryParam("status"); raw != "" {
		status, err := models.ParseStatus(raw)
		if err != nil {
			return apperror.Validation(err.Error())
		}
		filtered := []models.Token{}
		for _, t := range items {
			if t.Status == status {
				filtered = append(filtered, t)
			}
		}
		items = filtered
	}
	return response.JSON(c, http.StatusOK, "Tokens retrieved successfully", items)
}

func (tc *TokenController) Get(c echo.Context) error {
	id, err := utils.ParseID(c.Param("id"), "token id")
	if err != nil {
		return err
	}
	tok, err := tc.Service.Get(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return response.JSON(c, http.StatusOK, "Token retrieved successfully", tok)
}

func (tc *TokenController) CallNext(c echo.Context) error {
	var req models.CallNextRequest
	if err := c.Bind(&req); err != nil {
		return apperror.Validation("Invalid request body")
	}
	version, err := utils.ExpectedVersion(c)
	if err != nil {
		return err
	}
	tok, err := tc.Service.CallNext(c.Request().Context(), req, version)
	if err != nil {
		return err
	}
	return response.JSON(c, http.StatusOK, "Token called successfully", tok)
}

func (tc *TokenController) Call(c echo.Context) error {
	id, version, err := idAndVersion(c)
	if err != nil {
		return err
	}
	tok, err := tc.Service.Call(c.Request().Context(), id, version)
	if err != nil {
		return err
	}
	return response.JSON(c, http.StatusOK, "Token called successfully", tok)
}

func (tc *TokenController) Complete(c echo.Context) error {
	id, version, err := idAndVersion(c)
	if err != nil {
		return err
	}
	tok, err := tc.Service.Complete(c.Request().Context(), id, version)
	if err != nil {
		return err
	}
	return response.JSON(c, http.StatusOK, "Token completed successfully", tok)
}

func idAndVersion(c echo.Context) (int64, *int, error) {
	id, err := utils.ParseID(c.Param("id"), "token id")
	if err != nil {
		return 0, nil, err
	}
	version, err := utils.ExpectedVersion(c)
	if err != nil {
		return 0, nil, err
	}
	return id, version, nil
}
