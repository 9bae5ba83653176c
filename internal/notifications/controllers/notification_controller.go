package controllers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/c14220110/hospital-backend/internal/common/middlewares"
	"github.com/c14220110/hospital-backend/internal/notifications/services"
	"github.com/c14220110/hospital-backend/pkg/response"
	"github.com/c14220110/hospital-backend/pkg/utils"
)

type NotificationController struct {
	Service *services.NotificationService
}

func NewNotificationController(service *services.NotificationService) *NotificationController {
	return &NotificationController{Service: service}
}

// ListMine: GET /api/notifications?unread=true
func (nc *NotificationController) ListMine(c echo.Context) error {
	claims, err := middlewares.ClaimsFrom(c)
	if err != nil {
		return err
	}
	data, err := nc.Service.ListForUser(c.Request().Context(), claims.UserID, c.QueryParam("unread") == "true")
	if err != nil {
		return err
	}
	return response.JSON(c, http.StatusOK, "Notifications retrieved successfully", data)
}

func (nc *NotificationController) MarkRead(c echo.Context) error {
	claims, err := middlewares.ClaimsFrom(c)
	if err != nil {
		return err
	}
	id, err := utils.ParseID(c.Param("id"), "notification id")
	if err != nil {
		return err
	}
	if err := nc.Service.MarkRead(c.Request().Context(), id, claims.UserID); err != nil {
		return err
	}
	return response.JSON(c, http.StatusOK, "Notification marked as read", nil)
}
