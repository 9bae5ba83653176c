package models

import "time"

const (
	PaymentPending = "Pending"
	PaymentPaid    = "Paid"
)

// Invoice: Amount = subtotal sebelum diskon dan pajak, Total = nilai akhir yang harus dibayar.
type Invoice struct {
	ID            int64         `json:"id"`
	AppointmentID int64         `json:"appointment_id"`
	PatientID     int64         `json:"patient_id"`
	PatientName   string        `json:"patient_name"`
	Amount        float64       `json:"amount"`
	Discount      float64       `json:"discount"`
	Tax           float64       `json:"tax"`
	Total         float64       `json:"total"`
	PaymentStatus string        `json:"payment_status"`
	IssuedDate    time.Time     `json:"issued_date"`
	Items         []InvoiceItem `json:"items"`
}

type InvoiceItem struct {
	Description string  `json:"description"`
	UnitCharge  float64 `json:"unit_charge"`
	Quantity    int     `json:"quantity"`
	ServiceCode string  `json:"service_code,omitempty"`
}

type Payment struct {
	ID            int64     `json:"id"`
	InvoiceID     int64     `json:"invoice_id"`
	Amount        float64   `json:"amount"`
	Method        string    `json:"method"`
	TransactionID string    `json:"transaction_id"`
	Status        string    `json:"status"`
	PaidAt        time.Time `json:"paid_at"`
}

type ServicePrice struct {
	Code  string  `json:"code"`
	Name  string  `json:"name"`
	Price float64 `json:"price"`
}

// CreateInvoiceRequest adalah body POST /api/billing/create.
// ConsultationFee nil berarti pakai tarif konsultasi dokter pada appointment.
type CreateInvoiceRequest struct {
	AppointmentID   int64         `json:"appointment_id"`
	PatientID       int64         `json:"patient_id"`
	Items           []InvoiceItem `json:"items"`
	ConsultationFee *float64      `json:"consultation_fee"`
	LabCharges      float64       `json:"lab_charges"`
	MedicineCharges float64       `json:"medicine_charges"`
	DiscountPercent float64       `json:"discount_percent"`
}

type RecordPaymentRequest struct {
	Amount        float64 `json:"amount"`
	Method        string  `json:"method"`
	TransactionID string  `json:"transaction_id"`
}

// InvoiceInput adalah masukan kalkulasi invoice.
type InvoiceInput struct {
	Items           []InvoiceItem `json:"items"`
	ConsultationFee float64       `json:"consultation_fee"`
	LabCharges      float64       `json:"lab_charges"`
	MedicineCharges float64       `json:"medicine_charges"`
	DiscountPercent float64       `json:"discount_percent"`
}

// Breakdown adalah hasil kalkulasi. Tax dan Total dibulatkan 2 desimal, sisanya tidak.
type Breakdown struct {
	Subtotal       float64 `json:"subtotal"`
	DiscountAmount float64 `json:"discount_amount"`
	TaxableAmount  float64 `json:"taxable_amount"`
	Tax            float64 `json:"tax"`
	Total          float64 `json:"total"`
}
