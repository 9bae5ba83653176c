package controllers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/c14220110/hospital-backend/internal/billing/models"
	"github.com/c14220110/hospital-backend/internal/billing/services"
	"github.com/c14220110/hospital-backend/pkg/apperror"
	"github.com/c14220110/hospital-backend/pkg/response"
	"github.com/c14220110/hospital-backend/pkg/utils"
)

// BillingController menangani permintaan terkait invoice dan pembayaran.
type BillingController struct {
	Service *services.BillingService
}

func NewBillingController(service *services.BillingService) *BillingController {
	return &BillingController{Service: service}
}

// CreateInvoice: POST /api/billing/create -> 201 { "invoiceId": id }
func (bc *BillingController) CreateInvoice(c echo.Context) error {
	var req models.CreateInvoiceRequest
	if err := c.Bind(&req); err != nil {
		return apperror.Validation("Invalid request body")
	}
	id, err := bc.Service.CreateInvoice(c.Request().Context(), req)
	if err != nil {
		return err
	}
	return response.JSON(c, http.StatusCreated, "Invoice created successfully", map[string]interface{}{
		"invoiceId": id,
	})
}

func (bc *BillingController) GetInvoice(c echo.Context) error {
	inv, err := bc.Service.GetInvoiceByID(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return response.JSON(c, http.StatusOK, "Invoice retrieved successfully", inv)
}

func (bc *BillingController) SearchInvoices(c echo.Context) error {
	data, err := bc.Service.SearchInvoices(c.Request().Context(), c.QueryParam("term"))
	if err != nil {
		return err
	}
	return response.JSON(c, http.StatusOK, "Invoices retrieved successfully", data)
}

// ListInvoices mendukung filter ?status=Pending|Paid
func (bc *BillingController) ListInvoices(c echo.Context) error {
	data, err := bc.Service.ListInvoices(c.Request().Context(), c.QueryParam("status"))
	if err != nil {
		return err
	}
	return response.JSON(c, http.StatusOK, "Invoices retrieved successfully", data)
}

// Compute mengembalikan rincian perhitungan tanpa menyimpan apa pun.
func (bc *BillingController) Compute(c echo.Context) error {
	var in models.InvoiceInput
	if err := c.Bind(&in); err != nil {
		return apperror.Validation("Invalid request body")
	}
	b, err := services.Compute(in)
	if err != nil {
		return err
	}
	return response.JSON(c, http.StatusOK, "Invoice computed successfully", b)
}

func (bc *BillingController) RecordPayment(c echo.Context) error {
	id, err := utils.ParseID(c.Param("id"), "invoice id")
	if err != nil {
		return err
	}
	var req models.RecordPaymentRequest
	if err := c.Bind(&req); err != nil {
		return apperror.Validation("Invalid request body")
	}
	p, err := bc.Service.RecordPayment(c.Request().Context(), id, req)
	if err != nil {
		return err
	}
	return response.JSON(c, http.StatusCreated, "Payment recorded successfully", p)
}

func (bc *BillingController) ListPayments(c echo.Context) error {
	id, err := utils.ParseID(c.Param("id"), "invoice id")
	if err != nil {
		return err
	}
	data, err := bc.Service.ListPayments(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return response.JSON(c, http.StatusOK, "Payments retrieved successfully", data)
}

func (bc *BillingController) ListServicePrices(c echo.Context) error {
	data, err := bc.Service.ListServicePrices(c.Request().Context())
	if err != nil {
		return err
	}
	return response.JSON(c, http.StatusOK, "Service prices retrieved successfully", data)
}

func (bc *BillingController) UpsertServicePrice(c echo.Context) error {
	var sp models.ServicePrice
	if err := c.Bind(&sp); err != nil {
		return apperror.Validation("Invalid request body")
	}
	if err := bc.Service.UpsertServicePrice(c.Request().Context(), sp); err != nil {
		return err
	}
	return response.JSON(c, http.StatusOK, "Service price saved successfully", sp)
}
