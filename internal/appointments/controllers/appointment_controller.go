package controllers

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/c14220110/hospital-backend/internal/appointments/models"
	"github.com/c14220110/hospital-backend/internal/appointments/services"
	"github.com/c14220110/hospital-backend/internal/common/middlewares"
	"github.com/c14220110/hospital-backend/pkg/apperror"
	"github.com/c14220110/hospital-backend/pkg/response"
	"github.com/c14220110/hospital-backend/pkg/utils"
)

type AppointmentController struct {
	Service *services.AppointmentService
}

func NewAppointmentController(service *services.AppointmentService) *AppointmentController {
	return &AppointmentController{Service: service}
}

// ownPatientID mengembalikan id pasien milik user bila role-nya patient, selain itu 0.
func (ac *AppointmentController) ownPatientID(c echo.Context) (int64, error) {
	claims, err := middlewares.ClaimsFrom(c)
	if err != nil {
		return 0, err
	}
	if claims.Role != middlewares.RolePatient {
		return 0, nil
	}
	return ac.Service.PatientIDForUser(c.Request().Context(), claims.UserID)
}

// Book: pasien hanya boleh membuat appointment untuk dirinya sendiri.
func (ac *AppointmentController) Book(c echo.Context) error {
	var req models.BookRequest
	if err := c.Bind(&req); err != nil {
		return apperror.Validation("Invalid request body")
	}
	own, err := ac.ownPatientID(c)
	if err != nil {
		return err
	}
	if own > 0 {
		req.PatientID = own
	}
	appt, err := ac.Service.Book(c.Request().Context(), req)
	if err != nil {
		return err
	}
	return response.JSON(c, http.StatusCreated, "Appointment booked successfully", appt)
}

// List: GET /api/appointments?patient_id=&doctor_id=&status=&date=
func (ac *AppointmentController) List(c echo.Context) error {
	var f models.Filter
	var err error
	if f.PatientID, err = utils.OptionalID(c.QueryParam("patient_id"), "patient_id"); err != nil {
		return err
	}
	if f.DoctorID, err = utils.OptionalID(c.QueryParam("doctor_id"), "doctor_id"); err != nil {
		return err
	}
	if raw := c.QueryParam("status"); raw != "" {
		if f.Status, err = models.ParseStatus(raw); err != nil {
			return apperror.Validation(err.Error())
		}
	}
	f.Date = c.QueryParam("date")

	own, err := ac.ownPatientID(c)
	if err != nil {
		return err
	}
	if own > 0 {
		f.PatientID = own
	}

	data, err := ac.Service.List(c.Request().Context(), f)
	if err != nil {
		return err
	}
	return response.JSON(c, http.StatusOK, "Appointments retrieved successfully", data)
}

func (ac *AppointmentController) Get(c echo.Context) error {
	id, err := utils.ParseID(c.Param("id"), "appointment id")
	if err != nil {
		return err
	}
	appt, err := ac.Service.Get(c.Request().Context(), id)
	if err != nil {
		return err
	}
	own, err := ac.ownPatientID(c)
	if err != nil {
		return err
	}
	if own > 0 && appt.PatientID != own {
		return apperror.NotFound("appointment")
	}
	return response.JSON(c, http.StatusOK, "Appointment retrieved successfully", appt)
}

type transitionFunc func(ctx context.Context, id int64, expectedVersion *int) (*models.Appointment, error)

func (ac *AppointmentController) runTransition(c echo.Context, fn transitionFunc, message string) error {
	id, err := utils.ParseID(c.Param("id"), "appointment id")
	if err != nil {
		return err
	}
	version, err := utils.ExpectedVersion(c)
	if err != nil {
		return err
	}
	appt, err := fn(c.Request().Context(), id, version)
	if err != nil {
		return err
	}
	return response.JSON(c, http.StatusOK, message, appt)
}

func (ac *AppointmentController) Approve(c echo.Context) error {
	return ac.runTransition(c, ac.Service.Approve, "Appointment approved successfully")
}

func (ac *AppointmentController) Reject(c echo.Context) error {
	return ac.runTransition(c, ac.Service.Reject, "Appointment rejected successfully")
}

// Cancel: pasien hanya boleh membatalkan appointment miliknya.
func (ac *AppointmentController) Cancel(c echo.Context) error {
	if err := ac.ensureOwner(c); err != nil {
		return err
	}
	return ac.runTransition(c, ac.Service.Cancel, "Appointment cancelled successfully")
}

func (ac *AppointmentController) Complete(c echo.Context) error {
	return ac.runTransition(c, ac.Service.Complete, "Appointment completed successfully")
}

func (ac *AppointmentController) Reschedule(c echo.Context) error {
	if err := ac.ensureOwner(c); err != nil {
		return err
	}
	id, err := utils.ParseID(c.Param("id"), "appointment id")
	if err != nil {
		return err
	}
	version, err := utils.ExpectedVersion(c)
	if err != nil {
		return err
	}
	var req models.RescheduleRequest
	if err := c.Bind(&req); err != nil {
		return apperror.Validation("Invalid request body")
	}
	appt, err := ac.Service.Reschedule(c.Request().Context(), id, req, version)
	if err != nil {
		return err
	}
	return response.JSON(c, http.StatusCreated, "Appointment rescheduled successfully", appt)
}

func (ac *AppointmentController) ensureOwner(c echo.Context) error {
	own, err := ac.ownPatientID(c)
	if err != nil || own == 0 {
		return err
	}
	id, err := utils.ParseID(c.Param("id"), "appointment id")
	if err != nil {
		return err
	}
	appt, err := ac.Service.Get(c.Request().Context(), id)
	if err != nil {
		return err
	}
	if appt.PatientID != own {
		return apperror.NotFound("appointment")
	}
	return nil
}
