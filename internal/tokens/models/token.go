package models

import (
	"fmt"
	"strings"
	"time"
)

// Status adalah status token antrian. Satu-satunya alur yang sah: Waiting -> Calling -> Done.
type Status string

const (
	StatusWaiting Status = "Waiting"
	StatusCalling Status = "Calling"
	StatusDone    Status = "Done"
)

var transitions = map[Status]Status{
	StatusWaiting: StatusCalling,
	StatusCalling: StatusDone,
}

// CanTransition bernilai true hanya untuk Waiting->Calling dan Calling->Done. Done bersifat final.
func CanTransition(from, to Status) bool {
	next, ok := transitions[from]
	return ok && next == to
}

// ParseStatus menerima kosakata lama (Pending, In Queue) dan memetakannya ke status kanonik.
func ParseStatus(raw string) (Status, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "waiting", "pending", "in queue", "in_queue":
		return StatusWaiting, nil
	case "calling":
		return StatusCalling, nil
	case "done":
		return StatusDone, nil
	}
	return "", fmt.Errorf("unknown token status %q", raw)
}

// Token adalah tiket antrian walk-in. Satu daftar antrian = (SessionDate, DoctorID).
type Token struct {
	ID           int64      `json:"id"`
	TokenNo      int        `json:"token_no"`
	SessionDate  string     `json:"session_date"`
	PatientID    int64      `json:"patient_id"`
	PatientName  string     `json:"patient_name"`
	DoctorID     int64      `json:"doctor_id"`
	DoctorName   string     `json:"doctor_name"`
	DepartmentID *int64     `json:"department_id"`
	Status       Status     `json:"status"`
	Version      int        `json:"version"`
	CreatedAt    time.Time  `json:"created_at"`
	CalledAt     *time.Time `json:"called_at"`
	CompletedAt  *time.Time `json:"completed_at"`
}

type GenerateRequest struct {
	PatientID int64 `json:"patient_id"`
	DoctorID  int64 `json:"doctor_id"`
}

type CallNextRequest struct {
	DoctorID int64  `json:"doctor_id"`
	Date     string `json:"date"`
}

// Snapshot adalah isi broadcast "token_update": seluruh daftar antrian dalam urutan token_no.
type Snapshot struct {
	DoctorID    int64   `json:"doctor_id"`
	SessionDate string  `json:"session_date"`
	Tokens      []Token `json:"tokens"`
}
