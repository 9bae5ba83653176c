package services

import (
	"math"

	"github.com/c14220110/hospital-backend/internal/billing/models"
	"github.com/c14220110/hospital-backend/pkg/apperror"
)

// GSTRate adalah tarif GST tetap 18%.
const GSTRate = 0.18

// RoundCurrency membulatkan ke 2 desimal, half away from zero.
// Nilai seperti 0.225 tersimpan sebagai 0.22499999...; geser relatif 1e-9 agar tetap naik ke 0.23.
func RoundCurrency(v float64) float64 {
	cents := v * 100
	return math.Round(cents+math.Copysign(math.Max(1, math.Abs(cents))*1e-9, cents)) / 100
}

// Compute menghitung rincian invoice. Subtotal, diskon, dan taxable tidak dibulatkan;
// tax dibulatkan dulu lalu total = round(taxable + tax) sehingga angka yang dilaporkan selalu konsisten.
func Compute(in models.InvoiceInput) (models.Breakdown, error) {
	if err := validateInput(in); err != nil {
		return models.Breakdown{}, err
	}

	var lines float64
	for _, it := range in.Items {
		lines += it.UnitCharge * float64(quantityOf(it))
	}

	subtotal := lines + in.ConsultationFee + in.LabCharges + in.MedicineCharges
	discount := subtotal * in.DiscountPercent / 100
	taxable := subtotal - discount
	tax := RoundCurrency(taxable * GSTRate)

	return models.Breakdown{
		Subtotal:       subtotal,
		DiscountAmount: discount,
		TaxableAmount:  taxable,
		Tax:            tax,
		Total:          RoundCurrency(taxable + tax),
	}, nil
}

func quantityOf(it models.InvoiceItem) int {
	if it.Quantity <= 0 {
		return 1
	}
	return it.Quantity
}

func validateInput(in models.InvoiceInput) error {
	if in.DiscountPercent < 0 || in.DiscountPercent > 100 {
		return apperror.Validation("discount_percent must be between 0 and 100")
	}
	if in.ConsultationFee < 0 || in.LabCharges < 0 || in.MedicineCharges < 0 {
		return apperror.Validation("charges must not be negative")
	}
	for _, it := range in.Items {
		if it.UnitCharge < 0 {
			return apperror.Validation("item charges must not be negative")
		}
		if it.Quantity < 0 {
			return apperror.Validation("item quantity must not be negative")
		}
	}
	return nil
}
