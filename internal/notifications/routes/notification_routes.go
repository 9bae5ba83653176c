package routes

import (
	"github.com/labstack/echo/v4"

	"github.com/c14220110/hospital-backend/internal/notifications/controllers"
)

func RegisterNotificationRoutes(api *echo.Group, nc *controllers.NotificationController) {
	g := api.Group("/notifications")
	g.GET("", nc.ListMine)
	g.POST("/:id/read", nc.MarkRead)
}
