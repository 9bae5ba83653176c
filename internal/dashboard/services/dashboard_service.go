package services

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	billing "github.com/c14220110/hospital-backend/internal/billing/services"
	"github.com/c14220110/hospital-backend/internal/dashboard/models"
	"github.com/c14220110/hospital-backend/pkg/apperror"
)

const dateLayout = "2006-01-02"

type DashboardService struct {
	DB  *sql.DB
	Log logrus.FieldLogger
}

func NewDashboardService(db *sql.DB, log logrus.FieldLogger) *DashboardService {
	return &DashboardService{DB: db, Log: log}
}

// ParseRange membaca from/to (YYYY-MM-DD, inklusif). Default: 30 hari terakhir sampai today.
func ParseRange(rawFrom, rawTo string, today time.Time) (time.Time, time.Time, error) {
	to := time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, time.UTC)
	if rawTo != "" {
		t, err := time.Parse(dateLayout, rawTo)
		if err != nil {
			return time.Time{}, time.Time{}, apperror.Validation("to must use YYYY-MM-DD")
		}
		to = t
	}
	from := to.AddDate(0, 0, -29)
	if rawFrom != "" {
		f, err := time.Parse(dateLayout, rawFrom)
		if err != nil {
			return time.Time{}, time.Time{}, apperror.Validation("from must use YYYY-MM-DD")
		}
		from = f
	}
	if from.After(to) {
		return time.Time{}, time.Time{}, apperror.Validation("from must not be after to")
	}
	return from, to, nil
}

// Summary menghitung semua metrik dashboard. Batas atas dibuat eksklusif (to + 1 hari).
func (s *DashboardService) Summary(ctx context.Context, from, to time.Time) (*models.Summary, error) {
	start := from.Format(dateLayout)
	end := to.AddDate(0, 0, 1).Format(dateLayout)
	sum := &models.Summary{From: start, To: to.Format(dateLayout)}

	var err error
	if sum.AppointmentsByStatus, err = s.countBy(ctx,
		`SELECT status, COUNT(*) FROM appointments WHERE appointment_date >= ? AND appointment_date < ? GROUP BY status`,
		start, end); err != nil {
		return nil, err
	}
	if sum.TokensByStatus, err = s.countBy(ctx,
		`SELECT status, COUNT(*) FROM tokens WHERE session_date >= ? AND session_date < ? GROUP BY status`,
		start, end); err != nil {
		return nil, err
	}
	doctors, err := s.countBy(ctx, `SELECT availability, COUNT(*) FROM doctors GROUP BY availability`)
	if err != nil {
		return nil, err
	}
	sum.ActiveDoctors, sum.InactiveDoctors = doctors["active"], doctors["inactive"]

	if err := s.DB.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM patients WHERE created_at >= ? AND created_at < ?`, start, end).
		Scan(&sum.NewPatients); err != nil {
		return nil, s.fail("count patients", err)
	}
	if err := s.DB.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(amount), 0) FROM payments WHERE status = 'Success' AND paid_at >= ? AND paid_at < ?`, start, end).
		Scan(&sum.Revenue); err != nil {
		return nil, s.fail("sum revenue", err)
	}
	if err := s.DB.QueryRowContext(ctx,
		`SELECT COALESCE(AVG(total), 0), COALESCE(SUM(payment_status = 'Pending'), 0) FROM invoices WHERE issued_date >= ? AND issued_date < ?`, start, end).
		Scan(&sum.AverageInvoice, &sum.UnpaidInvoices); err != nil {
		return nil, s.fail("invoice stats", err)
	}
	sum.AverageInvoice = billing.RoundCurrency(sum.AverageInvoice)

	if sum.BusiestDepartments, err = s.busiestDepartments(ctx, start, end); err != nil {
		return nil, err
	}
	if sum.DailyAppointments, err = s.daily(ctx, start, end); err != nil {
		return nil, err
	}
	return sum, nil
}

func (s *DashboardService) fail(op string, err error) error {
	s.Log.WithError(err).WithField("op", op).Error("dashboard query failed")
	return apperror.Internal(fmt.Errorf("%s: %w", op, err))
}

func (s *DashboardService) countBy(ctx context.Context, query string, args ...interface{}) (map[string]int, error) {
	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, s.fail("count by", err)
	}
	defer rows.Close()

	result := map[string]int{}
	for rows.Next() {
		var key string
		var n int
		if err := rows.Scan(&key, &n); err != nil {
			return nil, s.fail("scan count", err)
		}
		result[key] = n
	}
	if err := rows.Err(); err != nil {
		return nil, s.fail("count by", err)
	}
	return result, nil
}

func (s *DashboardService) busiestDepartments(ctx context.Context, start, end string) ([]models.DepartmentCount, error) {
	rows, err := s.DB.QueryContext(ctx, `
		SELECT dep.id, dep.name, COUNT(*) AS n
		FROM appointments a
		JOIN doctors d ON d.id = a.doctor_id
		JOIN departments dep ON dep.id = d.department_id
		WHERE a.appointment_date >= ? AND a.appointment_date < ?
		GROUP BY dep.id, dep.name
		ORDER BY n DESC, dep.name
		LIMIT 5`, start, end)
	if err != nil {
		return nil, s.fail("busiest departments", err)
	}
	defer rows.Close()

	result := []models.DepartmentCount{}
	for rows.Next() {
		var dc models.DepartmentCount
		if err := rows.Scan(&dc.DepartmentID, &dc.Name, &dc.Count); err != nil {
			return nil, s.fail("scan department", err)
		}
		result = append(result, dc)
	}
	if err := rows.Err(); err != nil {
		return nil, s.fail("busiest departments", err)
	}
	return result, nil
}

func (s *DashboardService) daily(ctx context.Context, start, end string) ([]models.DayCount, error) {
	rows, err := s.DB.QueryContext(ctx, `
		SELECT DATE_FORMAT(appointment_date, '%Y-%m-%d') AS day, COUNT(*)
		FROM appointments
		WHERE appointment_date >= ? AND appointment_date < ?
		GROUP BY day
		ORDER BY day`, start, end)
	if err != nil {
		return nil, s.fail("daily appointments", err)
	}
	defer rows.Close()

	result := []models.DayCount{}
	for rows.Next() {
		var dc models.DayCount
		if err := rows.Scan(&dc.Day, &dc.Count); err != nil {
			return nil, s.fail("scan day", err)
		}
		result = append(result, dc)
	}
	if err := rows.Err(); err != nil {
		return nil, s.fail("daily appointments", err)
	}
	return result, nil
}
