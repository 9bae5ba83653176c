package models

import (
	"fmt"
	"strings"
	"time"
)

// Status appointment. Alur: pending -> approved|rejected|cancelled, approved -> completed|cancelled.
type Status string

const (
	StatusPending   Status = "pending"
	StatusApproved  Status = "approved"
	StatusRejected  Status = "rejected"
	StatusCancelled Status = "cancelled"
	StatusCompleted Status = "completed"
)

var transitions = map[Status][]Status{
	StatusPending:  {StatusApproved, StatusRejected, StatusCancelled},
	StatusApproved: {StatusCompleted, StatusCancelled},
}

func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Terminal bernilai true untuk status yang tidak punya transisi keluar.
func (s Status) Terminal() bool {
	return len(transitions[s]) == 0
}

// ParseStatus menerima "Scheduled" (kosakata lama) sebagai pending.
func ParseStatus(raw string) (Status, error) {
	s := Status(strings.ToLower(strings.TrimSpace(raw)))
	switch s {
	case "scheduled":
		return StatusPending, nil
	case StatusPending, StatusApproved, StatusRejected, StatusCancelled, StatusCompleted:
		return s, nil
	}
	return "", fmt.Errorf("unknown appointment status %q", raw)
}

type Appointment struct {
	ID              int64     `json:"id"`
	PatientID       int64     `json:"patient_id"`
	PatientName     string    `json:"patient_name"`
	DoctorID        int64     `json:"doctor_id"`
	DoctorName      string    `json:"doctor_name"`
	Date            string    `json:"date"`
	Time            string    `json:"time"`
	Type            string    `json:"type"`
	Status          Status    `json:"status"`
	RescheduledFrom *int64    `json:"rescheduled_from"`
	Version         int       `json:"version"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

type BookRequest struct {
	PatientID int64  `json:"patient_id"`
	DoctorID  int64  `json:"doctor_id"`
	Date      string `json:"date"`
	Time      string `json:"time"`
	Type      string `json:"type"`
}

type RescheduleRequest struct {
	Date string `json:"date"`
	Time string `json:"time"`
}

// Filter untuk List; nilai nol berarti tidak difilter.
type Filter struct {
	PatientID int64
	DoctorID  int64
	Status    Status
	Date      string
}
