package controllers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/c14220110/hospital-backend/internal/common/middlewares"
	"github.com/c14220110/hospital-backend/internal/doctors/models"
	"github.com/c14220110/hospital-backend/internal/doctors/services"
	"github.com/c14220110/hospital-backend/pkg/apperror"
	"github.com/c14220110/hospital-backend/pkg/response"
	"github.com/c14220110/hospital-backend/pkg/utils"
)

type DoctorController struct {
	Service *services.DoctorService
}

func NewDoctorController(service *services.DoctorService) *DoctorController {
	return &DoctorController{Service: service}
}

func (dc *DoctorController) CreateDepartment(c echo.Context) error {
	var req models.Department
	if err := c.Bind(&req); err != nil {
		return apperror.Validation("Invalid request body")
	}
	d, err := dc.Service.CreateDepartment(c.Request().Context(), req)
	if err != nil {
		return err
	}
	return response.JSON(c, http.StatusCreated, "Department created successfully", d)
}

func (dc *DoctorController) ListDepartments(c echo.Context) error {
	list, err := dc.Service.ListDepartments(c.Request().Context())
	if err != nil {
		return err
	}
	return response.JSON(c, http.StatusOK, "Departments retrieved successfully", list)
}

func (dc *DoctorController) CreateDoctor(c echo.Context) error {
	var req models.CreateDoctorRequest
	if err := c.Bind(&req); err != nil {
		return apperror.Validation("Invalid request body")
	}
	doc, err := dc.Service.CreateDoctor(c.Request().Context(), req)
	if err != nil {
		return err
	}
	return response.JSON(c, http.StatusCreated, "Doctor created successfully", doc)
}

// ListDoctors: GET /api/doctors?department_id=&status=
func (dc *DoctorController) ListDoctors(c echo.Context) error {
	deptID, err := utils.OptionalID(c.QueryParam("department_id"), "department_id")
	if err != nil {
		return err
	}
	list, err := dc.Service.ListDoctors(c.Request().Context(), deptID, c.QueryParam("status"))
	if err != nil {
		return err
	}
	return response.JSON(c, http.StatusOK, "Doctors retrieved successfully", list)
}

func (dc *DoctorController) GetDoctor(c echo.Context) error {
	id, err := utils.ParseID(c.Param("id"), "id")
	if err != nil {
		return err
	}
	doc, err := dc.Service.GetDoctor(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return response.JSON(c, http.StatusOK, "Doctor retrieved successfully", doc)
}

// ensureSelf: dokter hanya boleh mengubah profilnya sendiri, admin bebas.
func (dc *DoctorController) ensureSelf(c echo.Context, id int64) error {
	claims, err := middlewares.ClaimsFrom(c)
	if err != nil {
		return err
	}
	if claims.Role != middlewares.RoleDoctor {
		return nil
	}
	own, err := dc.Service.DoctorIDForUser(c.Request().Context(), claims.UserID)
	if err != nil {
		return err
	}
	if own != id {
		return apperror.Forbidden("Anda tidak memiliki hak akses")
	}
	return nil
}

func (dc *DoctorController) SetAvailability(c echo.Context) error {
	id, err := utils.ParseID(c.Param("id"), "id")
	if err != nil {
		return err
	}
	if err := dc.ensureSelf(c, id); err != nil {
		return err
	}
	var req models.AvailabilityRequest
	if err := c.Bind(&req); err != nil {
		return apperror.Validation("Invalid request body")
	}
	doc, err := dc.Service.SetAvailability(c.Request().Context(), id, req.Availability)
	if err != nil {
		return err
	}
	return response.JSON(c, http.StatusOK, "Availability updated successfully", doc)
}

// UploadImage menerima multipart form dengan field "image".
func (dc *DoctorController) UploadImage(c echo.Context) error {
	id, err := utils.ParseID(c.Param("id"), "id")
	if err != nil {
		return err
	}
	if err := dc.ensureSelf(c, id); err != nil {
		return err
	}
	file, err := c.FormFile("image")
	if err != nil {
		return apperror.Validation("image file is required")
	}
	if file.Size > services.MaxImageSize {
		return apperror.Validation("image must not exceed 5MB")
	}
	src, err := file.Open()
	if err != nil {
		return apperror.Validation("failed to open image")
	}
	defer src.Close()

	doc, err := dc.Service.StoreImage(c.Request().Context(), id, src)
	if err != nil {
		return err
	}
	return response.JSON(c, http.StatusOK, "Image uploaded successfully", doc)
}
