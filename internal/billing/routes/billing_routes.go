package routes

import (
	"github.com/labstack/echo/v4"

	"github.com/c14220110/hospital-backend/internal/billing/controllers"
	"github.com/c14220110/hospital-backend/internal/common/middlewares"
)

// RegisterBillingRoutes mendaftarkan endpoint billing pada group yang sudah dilindungi JWT.
// Route statis didaftarkan sebelum /:id. Invoice dan pembayaran hanya dibaca staf administrasi.
func RegisterBillingRoutes(api *echo.Group, bc *controllers.BillingController) {
	staff := middlewares.RequireRole(middlewares.RoleAdmin, middlewares.RoleReceptionist)

	g := api.Group("/billing")
	g.POST("/create", bc.CreateInvoice, staff)
	g.POST("/compute", bc.Compute)
	g.GET("/search/query", bc.SearchInvoices, staff)
	g.GET("/service-prices", bc.ListServicePrices)
	g.PUT("/service-prices", bc.UpsertServicePrice, middlewares.RequireRole(middlewares.RoleAdmin))
	g.GET("", bc.ListInvoices, staff)
	g.GET("/:id", bc.GetInvoice, staff)
	g.POST("/:id/payments", bc.RecordPayment, staff)
	g.GET("/:id/payments", bc.ListPayments, staff)
}
