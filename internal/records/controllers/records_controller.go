package controllers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/c14220110/hospital-backend/internal/common/middlewares"
	"github.com/c14220110/hospital-backend/internal/records/models"
	"github.com/c14220110/hospital-backend/internal/records/services"
	"github.com/c14220110/hospital-backend/pkg/apperror"
	"github.com/c14220110/hospital-backend/pkg/response"
	"github.com/c14220110/hospital-backend/pkg/utils"
)

type RecordsController struct {
	Service *services.RecordsService
}

func NewRecordsController(service *services.RecordsService) *RecordsController {
	return &RecordsController{Service: service}
}

// ensurePatient: role patient hanya boleh membaca data miliknya sendiri.
func (rc *RecordsController) ensurePatient(c echo.Context, patientID int64) error {
	claims, err := middlewares.ClaimsFrom(c)
	if err != nil {
		return err
	}
	if claims.Role != middlewares.RolePatient {
		return nil
	}
	own, err := rc.Service.PatientIDForUser(c.Request().Context(), claims.UserID)
	if err != nil {
		return err
	}
	if own != patientID {
		return apperror.Forbidden("Anda tidak memiliki hak akses")
	}
	return nil
}

func (rc *RecordsController) ListMedicines(c echo.Context) error {
	list, err := rc.Service.ListMedicines(c.Request().Context())
	if err != nil {
		return err
	}
	return response.JSON(c, http.StatusOK, "Medicines retrieved successfully", list)
}

func (rc *RecordsController) CreateMedicine(c echo.Context) error {
	var req models.Medicine
	if err := c.Bind(&req); err != nil {
		return apperror.Validation("Invalid request body")
	}
	m, err := rc.Service.CreateMedicine(c.Request().Context(), req)
	if err != nil {
		return err
	}
	return response.JSON(c, http.StatusCreated, "Medicine created successfully", m)
}

func (rc *RecordsController) Prescribe(c echo.Context) error {
	id, err := utils.ParseID(c.Param("id"), "id")
	if err != nil {
		return err
	}
	var req models.PrescribeRequest
	if err := c.Bind(&req); err != nil {
		return apperror.Validation("Invalid request body")
	}
	list, err := rc.Service.Prescribe(c.Request().Context(), id, req)
	if err != nil {
		return err
	}
	return response.JSON(c, http.StatusCreated, "Prescription saved successfully", list)
}

func (rc *RecordsController) ListPrescriptions(c echo.Context) error {
	id, err := utils.ParseID(c.Param("id"), "id")
	if err != nil {
		return err
	}
	patientID, err := rc.Service.AppointmentPatient(c.Request().Context(), id)
	if err != nil {
		return err
	}
	if err := rc.ensurePatient(c, patientID); err != nil {
		return err
	}
	list, err := rc.Service.ListPrescriptions(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return response.JSON(c, http.StatusOK, "Prescriptions retrieved successfully", list)
}

func (rc *RecordsController) OrderLab(c echo.Context) error {
	var req models.LabOrderRequest
	if err := c.Bind(&req); err != nil {
		return apperror.Validation("Invalid request body")
	}
	r, err := rc.Service.OrderLab(c.Request().Context(), req)
	if err != nil {
		return err
	}
	return response.JSON(c, http.StatusCreated, "Lab test ordered successfully", r)
}

func (rc *RecordsController) RecordLabResult(c echo.Context) error {
	id, err := utils.ParseID(c.Param("id"), "id")
	if err != nil {
		return err
	}
	var req models.LabResultRequest
	if err := c.Bind(&req); err != nil {
		return apperror.Validation("Invalid request body")
	}
	r, err := rc.Service.RecordLabResult(c.Request().Context(), id, req.Result)
	if err != nil {
		return err
	}
	return response.JSON(c, http.StatusOK, "Lab result recorded successfully", r)
}

// ListLabReports: GET /api/patients/:id/lab-reports
func (rc *RecordsController) ListLabReports(c echo.Context) error {
	id, err := utils.ParseID(c.Param("id"), "id")
	if err != nil {
		return err
	}
	if err := rc.ensurePatient(c, id); err != nil {
		return err
	}
	list, err := rc.Service.ListLabReports(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return response.JSON(c, http.StatusOK, "Lab reports retrieved successfully", list)
}
