package models

import "time"

type Patient struct {
	ID           int64     `json:"id"`
	UserID       *int64    `json:"user_id"`
	RegisteredBy *int64    `json:"registered_by"`
	Name         string    `json:"name"`
	Gender       string    `json:"gender"`
	DateOfBirth  *string   `json:"date_of_birth"`
	Phone        string    `json:"phone"`
	Address      string    `json:"address"`
	BloodGroup   string    `json:"blood_group"`
	CreatedAt    time.Time `json:"created_at"`
}

// Profile adalah data demografis pasien yang sama untuk registrasi mandiri maupun walk-in.
type Profile struct {
	Name        string `json:"name"`
	Gender      string `json:"gender"`
	DateOfBirth string `json:"date_of_birth"` // YYYY-MM-DD, opsional
	Phone       string `json:"phone"`
	Address     string `json:"address"`
	BloodGroup  string `json:"blood_group"`
}

type SelfRegisterRequest struct {
	Profile
	Email    string `json:"email"`
	Password string `json:"password"`
}
