package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/c14220110/hospital-backend/internal/appointments/models"
	"github.com/c14220110/hospital-backend/pkg/apperror"
	"github.com/c14220110/hospital-backend/pkg/events"
	"github.com/c14220110/hospital-backend/pkg/storage/mariadb"
)

const dateLayout = "2006-01-02"

type Broadcaster interface {
	Publish(resource string, data interface{})
}

// Notifier menyimpan notifikasi untuk user (notifications.NotificationService).
type Notifier interface {
	Notify(ctx context.Context, userID int64, kind, message string, referenceID int64) error
}

// AppointmentService menjalankan alur persetujuan appointment.
// Status hanya berubah lewat tabel transisi di models.CanTransition.
type AppointmentService struct {
	DB       *sql.DB
	Notifier Notifier
	Events   events.Publisher
	Hub      Broadcaster
	Log      logrus.FieldLogger
}

func NewAppointmentService(db *sql.DB, notifier Notifier, pub events.Publisher, hub Broadcaster, log logrus.FieldLogger) *AppointmentService {
	return &AppointmentService{DB: db, Notifier: notifier, Events: pub, Hub: hub, Log: log}
}

const appointmentColumns = `
	SELECT a.id, a.patient_id, p.name, a.doctor_id, u.name, a.appointment_date, a.appointment_time, a.type,
	       a.status, a.rescheduled_from, a.version, a.created_at, a.updated_at
	FROM appointments a
	JOIN patients p ON p.id = a.patient_id
	JOIN doctors d ON d.id = a.doctor_id
	JOIN users u ON u.id = d.user_id`

func parseDate(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if _, err := time.Parse(dateLayout, raw); err != nil {
		return "", apperror.Validation("date must be in YYYY-MM-DD format")
	}
	return raw, nil
}

// Book membuat appointment baru berstatus pending.
func (s *AppointmentService) Book(ctx context.Context, req models.BookRequest) (*models.Appointment, error) {
	if req.PatientID <= 0 || req.DoctorID <= 0 {
		return nil, apperror.Validation("patient_id and doctor_id are required")
	}
	date, err := parseDate(req.Date)
	if err != nil {
		return nil, err
	}
	kind := strings.TrimSpace(req.Type)
	if kind == "" {
		kind = "consultation"
	}

	res, err := s.DB.ExecContext(ctx,
		`INSERT INTO appointments (patient_id, doctor_id, appointment_date, appointment_time, type, status) VALUES (?, ?, ?, ?, ?, ?)`,
		req.PatientID, req.DoctorID, date, strings.TrimSpace(req.Time), kind, string(models.StatusPending))
	if err != nil {
		if mariadb.IsForeignKeyViolation(err) {
			return nil, apperror.Validation("patient or doctor does not exist")
		}
		return nil, apperror.Internal(fmt.Errorf("book appointment: %w", err))
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, apperror.Internal(err)
	}

	appt, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	s.Hub.Publish("appointment", appt)
	return appt, nil
}

func (s *AppointmentService) Get(ctx context.Context, id int64) (*models.Appointment, error) {
	items, err := s.query(ctx, appointmentColumns+` WHERE a.id = ?`, id)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, apperror.NotFound("appointment")
	}
	return &items[0], nil
}

func (s *AppointmentService) List(ctx context.Context, f models.Filter) ([]models.Appointment, error) {
	var conds []string
	var args []interface{}
	if f.PatientID > 0 {
		conds = append(conds, "a.patient_id = ?")
		args = append(args, f.PatientID)
	}
	if f.DoctorID > 0 {
		conds = append(conds, "a.doctor_id = ?")
		args = append(args, f.DoctorID)
	}
	if f.Status != "" {
		conds = append(conds, "a.status = ?")
		args = append(args, string(f.Status))
	}
	if f.Date != "" {
		date, err := parseDate(f.Date)
		if err != nil {
			return nil, err
		}
		conds = append(conds, "a.appointment_date = ?")
		args = append(args, date)
	}

	query := appointmentColumns
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY a.appointment_date DESC, a.id DESC"
	return s.query(ctx, query, args...)
}

func (s *AppointmentService) query(ctx context.Context, query string, args ...interface{}) ([]models.Appointment, error) {
	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperror.Internal(fmt.Errorf("query appointments: %w", err))
	}
	defer rows.Close()

	result := []models.Appointment{}
	for rows.Next() {
		var a models.Appointment
		var date time.Time
		var status string
		var from sql.NullInt64
		if err := rows.Scan(&a.ID, &a.PatientID, &a.PatientName, &a.DoctorID, &a.DoctorName, &date, &a.Time, &a.Type,
			&status, &from, &a.Version, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, apperror.Internal(err)
		}
		a.Date = date.Format(dateLayout)
		a.Status = models.Status(status)
		if from.Valid {
			a.RescheduledFrom = &from.Int64
		}
		result = append(result, a)
	}
	if err := rows.Err(); err != nil {
		return nil, apperror.Internal(err)
	}
	return result, nil
}

// lockedAppointment adalah baris appointment yang dikunci FOR UPDATE beserta data dokter dan pasien.
type lockedAppointment struct {
	id            int64
	patientID     int64
	doctorID      int64
	date          string
	kind          string
	status        models.Status
	version       int
	availability  string
	patientUserID sql.NullInt64
}

func lockAppointment(ctx context.Context, tx *sql.Tx, id int64) (*lockedAppointment, error) {
	la := &lockedAppointment{id: id}
	var date time.Time
	var status string
	err := tx.QueryRowContext(ctx, `
		SELECT a.patient_id, a.doctor_id, a.appointment_date, a.type, a.status, a.version, d.availability, p.user_id
		FROM appointments a
		JOIN doctors d ON d.id = a.doctor_id
		JOIN patients p ON p.id = a.patient_id
		WHERE a.id = ? FOR UPDATE`, id).
		Scan(&la.patientID, &la.doctorID, &date, &la.kind, &status, &la.version, &la.availability, &la.patientUserID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.NotFound("appointment")
	}
	if err != nil {
		return nil, err
	}
	la.date = date.Format(dateLayout)
	la.status = models.Status(status)
	return la, nil
}

func checkTransition(la *lockedAppointment, to models.Status, expectedVersion *int) error {
	if expectedVersion != nil && *expectedVersion != la.version {
		return apperror.VersionConflict("appointment")
	}
	if !models.CanTransition(la.status, to) {
		return apperror.Conflict(fmt.Sprintf("appointment cannot move from %s to %s", la.status, to))
	}
	return nil
}

func setStatus(ctx context.Context, tx *sql.Tx, la *lockedAppointment, to models.Status) error {
	res, err := tx.ExecContext(ctx,
		`UPDATE appointments SET status = ?, version = version + 1 WHERE id = ? AND version = ?`,
		string(to), la.id, la.version)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return apperror.VersionConflict("appointment")
	}
	return nil
}

func mapTxError(err error, op string) error {
	switch {
	case err == nil:
		return nil
	case mariadb.IsForeignKeyViolation(err):
		return apperror.Validation("patient or doctor does not exist")
	case apperror.KindOf(err) != apperror.KindInternal:
		return err
	default:
		return apperror.Internal(fmt.Errorf("%s: %w", op, err))
	}
}

// transition menjalankan satu perubahan status. precheck dijalankan setelah transisi
// dinyatakan sah dan sebelum UPDATE; error dari precheck membatalkan transaksi.
func (s *AppointmentService) transition(ctx context.Context, id int64, to models.Status, expectedVersion *int,
	precheck func(*lockedAppointment) error) (*models.Appointment, *lockedAppointment, error) {
	var locked *lockedAppointment
	err := mariadb.WithTx(ctx, s.DB, func(tx *sql.Tx) error {
		la, err := lockAppointment(ctx, tx, id)
		if err != nil {
			return err
		}
		if err := checkTransition(la, to, expectedVersion); err != nil {
			return err
		}
		if precheck != nil {
			if err := precheck(la); err != nil {
				return err
			}
		}
		if err := setStatus(ctx, tx, la, to); err != nil {
			return err
		}
		locked = la
		return nil
	})
	if err = mapTxError(err, "appointment "+string(to)); err != nil {
		return nil, nil, err
	}

	appt, err := s.Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	s.Log.WithFields(logrus.Fields{"appointment_id": id, "from": locked.status, "to": to}).Info("appointment status changed")
	s.Hub.Publish("appointment", appt)
	return appt, locked, nil
}

// notify menulis notifikasi untuk akun user pasien (bila pasien punya akun).
func (s *AppointmentService) notify(ctx context.Context, la *lockedAppointment, kind, message string) {
	if !la.patientUserID.Valid {
		return
	}
	if err := s.Notifier.Notify(ctx, la.patientUserID.Int64, kind, message, la.id); err != nil {
		s.Log.WithError(err).WithField("appointment_id", la.id).Warn("failed to store notification")
	}
}

func (s *AppointmentService) emit(eventType string, la *lockedAppointment) {
	events.Emit(s.Events, s.Log, events.New(eventType, la.id, map[string]interface{}{
		"patient_id": la.patientID,
		"doctor_id":  la.doctorID,
		"date":       la.date,
	}))
}

// Approve menyetujui appointment pending. Dokter harus berstatus active; bila tidak,
// PreconditionFailed dan status tetap pending.
func (s *AppointmentService) Approve(ctx context.Context, id int64, expectedVersion *int) (*models.Appointment, error) {
	appt, la, err := s.transition(ctx, id, models.StatusApproved, expectedVersion, func(la *lockedAppointment) error {
		if la.availability != "active" {
			return apperror.Precondition("doctor not available")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.notify(ctx, la, "appointment_approved", fmt.Sprintf("Your appointment on %s has been approved", la.date))
	s.emit(events.AppointmentApproved, la)
	return appt, nil
}

func (s *AppointmentService) Reject(ctx context.Context, id int64, expectedVersion *int) (*models.Appointment, error) {
	appt, la, err := s.transition(ctx, id, models.StatusRejected, expectedVersion, nil)
	if err != nil {
		return nil, err
	}
	s.notify(ctx, la, "appointment_rejected", fmt.Sprintf("Your appointment on %s has been rejected", la.date))
	s.emit(events.AppointmentRejected, la)
	return appt, nil
}

func (s *AppointmentService) Cancel(ctx context.Context, id int64, expectedVersion *int) (*models.Appointment, error) {
	appt, la, err := s.transition(ctx, id, models.StatusCancelled, expectedVersion, nil)
	if err != nil {
		return nil, err
	}
	s.notify(ctx, la, "appointment_cancelled", fmt.Sprintf("Your appointment on %s has been cancelled", la.date))
	s.emit(events.AppointmentCancelled, la)
	return appt, nil
}

func (s *AppointmentService) Complete(ctx context.Context, id int64, expectedVersion *int) (*models.Appointment, error) {
	appt, la, err := s.transition(ctx, id, models.StatusCompleted, expectedVersion, nil)
	if err != nil {
		return nil, err
	}
	s.emit(events.AppointmentCompleted, la)
	return appt, nil
}

// Reschedule membatalkan appointment lama dan membuat appointment pending baru yang
// merujuk ke appointment lama, dalam satu transaksi. Status lama tidak pernah dikembalikan ke pending.
func (s *AppointmentService) Reschedule(ctx context.Context, id int64, req models.RescheduleRequest, expectedVersion *int) (*models.Appointment, error) {
	date, err := parseDate(req.Date)
	if err != nil {
		return nil, err
	}

	var newID int64
	var source *lockedAppointment
	err = mariadb.WithTx(ctx, s.DB, func(tx *sql.Tx) error {
		la, err := lockAppointment(ctx, tx, id)
		if err != nil {
			return err
		}
		if err := checkTransition(la, models.StatusCancelled, expectedVersion); err != nil {
			return err
		}
		if err := setStatus(ctx, tx, la, models.StatusCancelled); err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx,
			`INSERT INTO appointments (patient_id, doctor_id, appointment_date, appointment_time, type, status, rescheduled_from) VALUES (?, ?, ?, ?, ?, ?, ?)`,
			la.patientID, la.doctorID, date, strings.TrimSpace(req.Time), la.kind, string(models.StatusPending), la.id)
		if err != nil {
			return err
		}
		newID, err = res.LastInsertId()
		source = la
		return err
	})
	if err = mapTxError(err, "reschedule appointment"); err != nil {
		return nil, err
	}

	appt, err := s.Get(ctx, newID)
	if err != nil {
		return nil, err
	}
	s.Log.WithFields(logrus.Fields{"appointment_id": id, "new_appointment_id": newID}).Info("appointment rescheduled")
	s.notify(ctx, source, "appointment_rescheduled", fmt.Sprintf("Your appointment has been moved to %s", date))

	// appointment lama sudah cancelled; subscriber perlu melihat keduanya.
	if cancelled, err := s.Get(ctx, id); err != nil {
		s.Log.WithError(err).WithField("appointment_id", id).Warn("failed to load rescheduled source")
	} else {
		s.Hub.Publish("appointment", cancelled)
	}
	s.emit(events.AppointmentCancelled, source)
	s.Hub.Publish("appointment", appt)
	return appt, nil
}

// PatientIDForUser mencari data pasien milik akun user (role patient).
func (s *AppointmentService) PatientIDForUser(ctx context.Context, userID int64) (int64, error) {
	var id int64
	err := s.DB.QueryRowContext(ctx, `SELECT id FROM patients WHERE user_id = ?`, userID).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, apperror.Forbidden("no patient record is linked to this account")
	}
	if err != nil {
		return 0, apperror.Internal(err)
	}
	return id, nil
}
