package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	apptModels "github.com/c14220110/hospital-backend/internal/appointments/models"
	"github.com/c14220110/hospital-backend/internal/records/models"
	"github.com/c14220110/hospital-backend/pkg/apperror"
	"github.com/c14220110/hospital-backend/pkg/storage/mariadb"
)

type Broadcaster interface {
	Publish(resource string, data interface{})
}

// RecordsService mengelola katalog obat, resep per appointment, dan lab report pasien.
type RecordsService struct {
	DB  *sql.DB
	Hub Broadcaster
	Log logrus.FieldLogger
}

func NewRecordsService(db *sql.DB, hub Broadcaster, log logrus.FieldLogger) *RecordsService {
	return &RecordsService{DB: db, Hub: hub, Log: log}
}

func mapTxError(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case mariadb.IsForeignKeyViolation(err):
		return apperror.Validation("referenced record does not exist")
	case apperror.KindOf(err) != apperror.KindInternal:
		return err
	default:
		return apperror.Internal(fmt.Errorf("%s: %w", op, err))
	}
}

func (s *RecordsService) CreateMedicine(ctx context.Context, m models.Medicine) (*models.Medicine, error) {
	m.Name = strings.TrimSpace(m.Name)
	if m.Name == "" {
		return nil, apperror.Validation("medicine name is required")
	}
	if m.UnitPrice < 0 || m.Stock < 0 {
		return nil, apperror.Validation("unit_price and stock must not be negative")
	}
	res, err := s.DB.ExecContext(ctx, `INSERT INTO medicines (name, unit_price, stock) VALUES (?, ?, ?)`, m.Name, m.UnitPrice, m.Stock)
	if err != nil {
		return nil, apperror.Internal(fmt.Errorf("insert medicine: %w", err))
	}
	if m.ID, err = res.LastInsertId(); err != nil {
		return nil, apperror.Internal(err)
	}
	return &m, nil
}

func (s *RecordsService) ListMedicines(ctx context.Context) ([]models.Medicine, error) {
	rows, err := s.DB.QueryContext(ctx, `SELECT id, name, unit_price, stock FROM medicines ORDER BY name`)
	if err != nil {
		return nil, apperror.Internal(fmt.Errorf("list medicines: %w", err))
	}
	defer rows.Close()

	result := []models.Medicine{}
	for rows.Next() {
		var m models.Medicine
		if err := rows.Scan(&m.ID, &m.Name, &m.UnitPrice, &m.Stock); err != nil {
			return nil, apperror.Internal(err)
		}
		result = append(result, m)
	}
	if err := rows.Err(); err != nil {
		return nil, apperror.Internal(err)
	}
	return result, nil
}

// Prescribe menulis semua baris resep dalam satu transaksi.
// Resep hanya boleh ditulis untuk appointment yang approved atau completed.
func (s *RecordsService) Prescribe(ctx context.Context, appointmentID int64, req models.PrescribeRequest) ([]models.Prescription, error) {
	if len(req.Lines) == 0 {
		return nil, apperror.Validation("at least one prescription line is required")
	}
	for i := range req.Lines {
		l := &req.Lines[i]
		l.Dosage = strings.TrimSpace(l.Dosage)
		l.Instructions = strings.TrimSpace(l.Instructions)
		if l.MedicineID <= 0 {
			return nil, apperror.Validation("medicine_id must be a positive integer")
		}
		if l.Dosage == "" {
			return nil, apperror.Validation("dosage is required")
		}
	}

	err := mariadb.WithTx(ctx, s.DB, func(tx *sql.Tx) error {
		var raw string
		err := tx.QueryRowContext(ctx, `SELECT status FROM appointments WHERE id = ? FOR UPDATE`, appointmentID).Scan(&raw)
		if errors.Is(err, sql.ErrNoRows) {
			return apperror.NotFound("appointment")
		}
		if err != nil {
			return err
		}
		status := apptModels.Status(raw)
		if status != apptModels.StatusApproved && status != apptModels.StatusCompleted {
			return apperror.Precondition("prescriptions require an approved appointment")
		}
		for _, l := range req.Lines {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO prescriptions (appointment_id, medicine_id, dosage, instructions) VALUES (?, ?, ?, ?)`,
				appointmentID, l.MedicineID, l.Dosage, l.Instructions); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, mapTxError("prescribe", err)
	}

	list, err := s.ListPrescriptions(ctx, appointmentID)
	if err != nil {
		return nil, err
	}
	s.Log.WithFields(logrus.Fields{"appointment_id": appointmentID, "lines": len(req.Lines)}).Info("prescription written")
	s.Hub.Publish("prescription", map[string]interface{}{"appointment_id": appointmentID, "items": list})
	return list, nil
}

func (s *RecordsService) ListPrescriptions(ctx context.Context, appointmentID int64) ([]models.Prescription, error) {
	rows, err := s.DB.QueryContext(ctx, `
		SELECT pr.id, pr.appointment_id, pr.medicine_id, m.name, pr.dosage, pr.instructions, pr.created_at
		FROM prescriptions pr
		LEFT JOIN medicines m ON m.id = pr.medicine_id
		WHERE pr.appointment_id = ?
		ORDER BY pr.id`, appointmentID)
	if err != nil {
		return nil, apperror.Internal(fmt.Errorf("list prescriptions: %w", err))
	}
	defer rows.Close()

	result := []models.Prescription{}
	for rows.Next() {
		var p models.Prescription
		var medID sql.NullInt64
		var medName sql.NullString
		if err := rows.Scan(&p.ID, &p.AppointmentID, &medID, &medName, &p.Dosage, &p.Instructions, &p.CreatedAt); err != nil {
			return nil, apperror.Internal(err)
		}
		if medID.Valid {
			p.MedicineID = &medID.Int64
		}
		if medName.Valid {
			p.MedicineName = &medName.String
		}
		result = append(result, p)
	}
	if err := rows.Err(); err != nil {
		return nil, apperror.Internal(err)
	}
	return result, nil
}

// AppointmentPatient mengembalikan patient_id pemilik appointment.
func (s *RecordsService) AppointmentPatient(ctx context.Context, appointmentID int64) (int64, error) {
	var patientID int64
	err := s.DB.QueryRowContext(ctx, `SELECT patient_id FROM appointments WHERE id = ?`, appointmentID).Scan(&patientID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, apperror.NotFound("appointment")
	}
	if err != nil {
		return 0, apperror.Internal(err)
	}
	return patientID, nil
}

func (s *RecordsService) PatientIDForUser(ctx context.Context, userID int64) (int64, error) {
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
