package services

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/c14220110/hospital-backend/internal/common/middlewares"
	"github.com/c14220110/hospital-backend/internal/patients/models"
	userModels "github.com/c14220110/hospital-backend/internal/users/models"
	userServices "github.com/c14220110/hospital-backend/internal/users/services"
	"github.com/c14220110/hospital-backend/pkg/apperror"
	"github.com/c14220110/hospital-backend/pkg/storage/mariadb"
	"github.com/c14220110/hospital-backend/pkg/utils"
)

type Broadcaster interface {
	Publish(resource string, data interface{})
}

type PatientService struct {
	DB  *sql.DB
	Hub Broadcaster
	Log logrus.FieldLogger
}

func NewPatientService(db *sql.DB, hub Broadcaster, log logrus.FieldLogger) *PatientService {
	return &PatientService{DB: db, Hub: hub, Log: log}
}

const searchLimit = 100

func normalizeProfile(p *models.Profile) (sql.NullString, error) {
	p.Name = strings.TrimSpace(p.Name)
	p.Gender = strings.TrimSpace(p.Gender)
	p.Phone = strings.TrimSpace(p.Phone)
	p.Address = strings.TrimSpace(p.Address)
	p.BloodGroup = strings.ToUpper(strings.TrimSpace(p.BloodGroup))
	if p.Name == "" {
		return sql.NullString{}, apperror.Validation("name is required")
	}
	raw := strings.TrimSpace(p.DateOfBirth)
	if raw == "" {
		return sql.NullString{}, nil
	}
	dob, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return sql.NullString{}, apperror.Validation("date_of_birth must use YYYY-MM-DD")
	}
	if dob.After(time.Now()) {
		return sql.NullString{}, apperror.Validation("date_of_birth must not be in the future")
	}
	return sql.NullString{String: raw, Valid: true}, nil
}

func insertPatient(ctx context.Context, tx *sql.Tx, userID, registeredBy sql.NullInt64, p models.Profile, dob sql.NullString) (int64, error) {
	res, err := tx.ExecContext(ctx,
		`INSERT INTO patients (user_id, registered_by, name, gender, date_of_birth, phone, address, blood_group) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		userID, registeredBy, p.Name, p.Gender, dob, p.Phone, p.Address, p.BloodGroup)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// SelfRegister membuat akun login pasien beserta rekam pasiennya dalam satu transaksi.
func (s *PatientService) SelfRegister(ctx context.Context, req models.SelfRegisterRequest) (*models.Patient, error) {
	dob, err := normalizeProfile(&req.Profile)
	if err != nil {
		return nil, err
	}

	var id int64
	err = mariadb.WithTx(ctx, s.DB, func(tx *sql.Tx) error {
		userID, err := userServices.InsertUser(ctx, tx, userModels.CreateUserRequest{
			Name: req.Name, Email: req.Email, Password: req.Password, Role: middlewares.RolePatient,
		})
		if err != nil {
			return err
		}
		id, err = insertPatient(ctx, tx, sql.NullInt64{Int64: userID, Valid: true}, sql.NullInt64{}, req.Profile, dob)
		return err
	})
	if err != nil {
		return nil, mapTxError("self register", err)
	}
	return s.afterCreate(ctx, id, "self")
}

// RegisterWalkIn dipakai resepsionis untuk pasien tanpa akun; registered_by diisi dari user yang login.
func (s *PatientService) RegisterWalkIn(ctx context.Context, p models.Profile, registeredBy int64) (*models.Patient, error) {
	dob, err := normalizeProfile(&p)
	if err != nil {
		return nil, err
	}

	var id int64
	err = mariadb.WithTx(ctx, s.DB, func(tx *sql.Tx) error {
		var err error
		id, err = insertPatient(ctx, tx, sql.NullInt64{}, sql.NullInt64{Int64: registeredBy, Valid: registeredBy > 0}, p, dob)
		return err
	})
	if err != nil {
		return nil, mapTxError("register walk-in", err)
	}
	return s.afterCreate(ctx, id, "walk_in")
}

func (s *PatientService) afterCreate(ctx context.Context, id int64, channel string) (*models.Patient, error) {
	p, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	s.Log.WithFields(logrus.Fields{"patient_id": id, "channel": channel}).Info("patient registered")
	s.Hub.Publish("patient", p)
	return p, nil
}

func mapTxError(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case mariadb.IsDuplicate(err):
		return apperror.Conflict("patient already registered")
	case apperror.KindOf(err) != apperror.KindInternal:
		return err
	default:
		return apperror.Internal(fmt.Errorf("%s: %w", op, err))
	}
}

const patientColumns = `
	SELECT id, user_id, registered_by, name, gender, date_of_birth, phone, address, blood_group, created_at
	FROM patients`

func (s *PatientService) Get(ctx context.Context, id int64) (*models.Patient, error) {
	list, err := s.query(ctx, patientColumns+` WHERE id = ?`, id)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, apperror.NotFound("patient")
	}
	return &list[0], nil
}

// GetByUser mengembalikan rekam pasien milik akun yang login.
func (s *PatientService) GetByUser(ctx context.Context, userID int64) (*models.Patient, error) {
	list, err := s.query(ctx, patientColumns+` WHERE user_id = ?`, userID)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, apperror.NotFound("patient")
	}
	return &list[0], nil
}

// Search mencari berdasarkan nama atau nomor telepon; term kosong mengembalikan pasien terbaru.
func (s *PatientService) Search(ctx context.Context, term string) ([]models.Patient, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return s.query(ctx, patientColumns+` ORDER BY id DESC LIMIT ?`, searchLimit)
	}
	like := "%" + utils.EscapeLike(term) + "%"
	return s.query(ctx, patientColumns+` WHERE name LIKE ? OR phone LIKE ? ORDER BY name LIMIT ?`, like, like, searchLimit)
}

func (s *PatientService) query(ctx context.Context, query string, args ...interface{}) ([]models.Patient, error) {
	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperror.Internal(fmt.Errorf("query patients: %w", err))
	}
	defer rows.Close()

	result := []models.Patient{}
	for rows.Next() {
		var p models.Patient
		var userID, registeredBy sql.NullInt64
		var dob sql.NullTime
		if err := rows.Scan(&p.ID, &userID, &registeredBy, &p.Name, &p.Gender, &dob,
			&p.Phone, &p.Address, &p.BloodGroup, &p.CreatedAt); err != nil {
			return nil, apperror.Internal(err)
		}
		if userID.Valid {
			p.UserID = &userID.Int64
		}
		if registeredBy.Valid {
			p.RegisteredBy = &registeredBy.Int64
		}
		if dob.Valid {
			d := dob.Time.Format("2006-01-02")
			p.DateOfBirth = &d
		}
		result = append(result, p)
	}
	if err := rows.Err(); err != nil {
		return nil, apperror.Internal(err)
	}
	return result, nil
}
