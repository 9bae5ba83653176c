package controllers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/c14220110/hospital-backend/internal/common/middlewares"
	"github.com/c14220110/hospital-backend/internal/users/models"
	"github.com/c14220110/hospital-backend/internal/users/services"
	"github.com/c14220110/hospital-backend/pkg/apperror"
	"github.com/c14220110/hospital-backend/pkg/response"
)

type UserController struct {
	Service *services.UserService
}

func NewUserController(service *services.UserService) *UserController {
	return &UserController{Service: service}
}

func (uc *UserController) Login(c echo.Context) error {
	var req models.LoginRequest
	if err := c.Bind(&req); err != nil {
		return apperror.Validation("Invalid request body")
	}
	res, err := uc.Service.Authenticate(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		return err
	}
	return response.JSON(c, http.StatusOK, "Login successful", res)
}

func (uc *UserController) CreateUser(c echo.Context) error {
	var req models.CreateUserRequest
	if err := c.Bind(&req); err != nil {
		return apperror.Validation("Invalid request body")
	}
	u, err := uc.Service.CreateUser(c.Request().Context(), req)
	if err != nil {
		return err
	}
	return response.JSON(c, http.StatusCreated, "User created successfully", u)
}

func (uc *UserController) Me(c echo.Context) error {
	claims, err := middlewares.ClaimsFrom(c)
	if err != nil {
		return err
	}
	u, err := uc.Service.Get(c.Request().Context(), claims.UserID)
	if err != nil {
		return err
	}
	return response.JSON(c, http.StatusOK, "User retrieved successfully", u)
}
