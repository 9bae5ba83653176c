package models

const (
	AvailabilityActive   = "active"
	AvailabilityInactive = "inactive"
)

type Department struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

type Doctor struct {
	ID              int64   `json:"id"`
	UserID          int64   `json:"user_id"`
	Name            string  `json:"name"`
	Email           string  `json:"email"`
	DepartmentID    *int64  `json:"department_id"`
	DepartmentName  *string `json:"department_name"`
	Specialization  string  `json:"specialization"`
	ExperienceYears int     `json:"experience_years"`
	ConsultationFee float64 `json:"consultation_fee"`
	Qualification   string  `json:"qualification"`
	Availability    string  `json:"availability"`
	ImagePath       *string `json:"image_path"`
}

type CreateDoctorRequest struct {
	Name            string  `json:"name"`
	Email           string  `json:"email"`
	Password        string  `json:"password"`
	DepartmentID    *int64  `json:"department_id"`
	Specialization  string  `json:"specialization"`
	ExperienceYears int     `json:"experience_years"`
	ConsultationFee float64 `json:"consultation_fee"`
	Qualification   string  `json:"qualification"`
}

type AvailabilityRequest struct {
	Availability string `json:"availability"`
}
