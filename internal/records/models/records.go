package models

import "time"

type Medicine struct {
	ID        int64   `json:"id"`
	Name      string  `json:"name"`
	UnitPrice float64 `json:"unit_price"`
	Stock     int     `json:"stock"`
}

type Prescription struct {
	ID            int64     `json:"id"`
	AppointmentID int64     `json:"appointment_id"`
	MedicineID    *int64    `json:"medicine_id"`
	MedicineName  *string   `json:"medicine_name"`
	Dosage        string    `json:"dosage"`
	Instructions  string    `json:"instructions"`
	CreatedAt     time.Time `json:"created_at"`
}

type PrescriptionLine struct {
	MedicineID   int64  `json:"medicine_id"`
	Dosage       string `json:"dosage"`
	Instructions string `json:"instructions"`
}

type PrescribeRequest struct {
	Lines []PrescriptionLine `json:"lines"`
}

// Status lab report: Pending sampai hasil diisi, lalu Completed (final).
const (
	LabPending   = "Pending"
	LabCompleted = "Completed"
)

type LabReport struct {
	ID            int64     `json:"id"`
	PatientID     int64     `json:"patient_id"`
	AppointmentID *int64    `json:"appointment_id"`
	TestName      string    `json:"test_name"`
	Result        *string   `json:"result"`
	Status        string    `json:"status"`
	CreatedAt     time.Time `json:"created_at"`
}

type LabOrderRequest struct {
	PatientID     int64  `json:"patient_id"`
	AppointmentID *int64 `json:"appointment_id"`
	TestName      string `json:"test_name"`
}

type LabResultRequest struct {
	Result string `json:"result"`
}
