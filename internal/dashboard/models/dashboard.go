package models

// Summary adalah agregat untuk dashboard admin pada rentang tanggal tertentu.
type Summary struct {
	From string `json:"from"`
	To   string `json:"to"`

	AppointmentsByStatus map[string]int `json:"appointments_by_status"`
	TokensByStatus       map[string]int `json:"tokens_by_status"`
	NewPatients          int            `json:"new_patients"`
	ActiveDoctors        int            `json:"active_doctors"`
	InactiveDoctors      int            `json:"inactive_doctors"`

	Revenue        float64 `json:"revenue"`
	AverageInvoice float64 `json:"average_invoice"`
	UnpaidInvoices int     `json:"unpaid_invoices"`

	BusiestDepartments []DepartmentCount `json:"busiest_departments"`
	DailyAppointments  []DayCount        `json:"daily_appointments"`
}

type DepartmentCount struct {
	DepartmentID int64  `json:"department_id"`
	Name         string `json:"name"`
	Count        int    `json:"count"`
}

type DayCount struct {
	Day   string `json:"day"`
	Count int    `json:"count"`
}
