package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/c14220110/hospital-backend/internal/common/middlewares"
	"github.com/c14220110/hospital-backend/internal/doctors/models"
	userModels "github.com/c14220110/hospital-backend/internal/users/models"
	userServices "github.com/c14220110/hospital-backend/internal/users/services"
	"github.com/c14220110/hospital-backend/pkg/apperror"
	"github.com/c14220110/hospital-backend/pkg/storage/mariadb"
)

type Broadcaster interface {
	Publish(resource string, data interface{})
}

type DoctorService struct {
	DB        *sql.DB
	Hub       Broadcaster
	Log       logrus.FieldLogger
	UploadDir string
}

func NewDoctorService(db *sql.DB, hub Broadcaster, log logrus.FieldLogger, uploadDir string) *DoctorService {
	return &DoctorService{DB: db, Hub: hub, Log: log, UploadDir: uploadDir}
}

func (s *DoctorService) CreateDepartment(ctx context.Context, d models.Department) (*models.Department, error) {
	d.Name = strings.TrimSpace(d.Name)
	if d.Name == "" {
		return nil, apperror.Validation("department name is required")
	}
	res, err := s.DB.ExecContext(ctx, `INSERT INTO departments (name, description) VALUES (?, ?)`, d.Name, strings.TrimSpace(d.Description))
	if err != nil {
		if mariadb.IsDuplicate(err) {
			return nil, apperror.Conflict("department already exists")
		}
		return nil, apperror.Internal(fmt.Errorf("insert department: %w", err))
	}
	if d.ID, err = res.LastInsertId(); err != nil {
		return nil, apperror.Internal(err)
	}
	s.Hub.Publish("department", d)
	return &d, nil
}

func (s *DoctorService) ListDepartments(ctx context.Context) ([]models.Department, error) {
	rows, err := s.DB.QueryContext(ctx, `SELECT id, name, description FROM departments ORDER BY name`)
	if err != nil {
		return nil, apperror.Internal(fmt.Errorf("list departments: %w", err))
	}
	defer rows.Close()

	result := []models.Department{}
	for rows.Next() {
		var d models.Department
		if err := rows.Scan(&d.ID, &d.Name, &d.Description); err != nil {
			return nil, apperror.Internal(err)
		}
		result = append(result, d)
	}
	if err := rows.Err(); err != nil {
		return nil, apperror.Internal(err)
	}
	return result, nil
}

// CreateDoctor membuat akun user (role doctor) dan profil dokter dalam satu transaksi.
func (s *DoctorService) CreateDoctor(ctx context.Context, req models.CreateDoctorRequest) (*models.Doctor, error) {
	if req.ConsultationFee < 0 || req.ExperienceYears < 0 {
		return nil, apperror.Validation("consultation_fee and experience_years must not be negative")
	}

	var doctorID int64
	err := mariadb.WithTx(ctx, s.DB, func(tx *sql.Tx) error {
		userID, err := userServices.InsertUser(ctx, tx, userModels.CreateUserRequest{
			Name: req.Name, Email: req.Email, Password: req.Password, Role: middlewares.RoleDoctor,
		})
		if err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx,
			`INSERT INTO doctors (user_id, department_id, specialization, experience_years, consultation_fee, qualification, availability) VALUES (?, ?, ?, ?, ?, ?, ?)`,
			userID, nullableID(req.DepartmentID), strings.TrimSpace(req.Specialization), req.ExperienceYears,
			req.ConsultationFee, strings.TrimSpace(req.Qualification), models.AvailabilityActive)
		if err != nil {
			return err
		}
		doctorID, err = res.LastInsertId()
		return err
	})
	switch {
	case err == nil:
	case mariadb.IsForeignKeyViolation(err):
		return nil, apperror.Validation("department does not exist")
	case apperror.KindOf(err) != apperror.KindInternal:
		return nil, err
	default:
		return nil, apperror.Internal(fmt.Errorf("create doctor: %w", err))
	}

	doc, err := s.GetDoctor(ctx, doctorID)
	if err != nil {
		return nil, err
	}
	s.Log.WithField("doctor_id", doctorID).Info("doctor created")
	s.Hub.Publish("doctor", doc)
	return doc, nil
}

func nullableID(id *int64) sql.NullInt64 {
	if id == nil || *id <= 0 {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *id, Valid: true}
}

const doctorColumns = `
	SELECT d.id, d.user_id, u.name, u.email, d.department_id, dep.name, d.specialization, d.experience_years,
	       d.consultation_fee, d.qualification, d.availability, d.image_path
	FROM doctors d
	JOIN users u ON u.id = d.user_id
	LEFT JOIN departments dep ON dep.id = d.department_id`

func (s *DoctorService) GetDoctor(ctx context.Context, id int64) (*models.Doctor, error) {
	items, err := s.query(ctx, doctorColumns+` WHERE d.id = ?`, id)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, apperror.NotFound("doctor")
	}
	return &items[0], nil
}

// ListDoctors mendukung filter department dan availability (kosong = semua).
func (s *DoctorService) ListDoctors(ctx context.Context, departmentID int64, availability string) ([]models.Doctor, error) {
	var conds []string
	var args []interface{}
	if departmentID > 0 {
		conds = append(conds, "d.department_id = ?")
		args = append(args, departmentID)
	}
	if availability != "" {
		if availability != models.AvailabilityActive && availability != models.AvailabilityInactive {
			return nil, apperror.Validation("status must be active or inactive")
		}
		conds = append(conds, "d.availability = ?")
		args = append(args, availability)
	}
	query := doctorColumns
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY u.name"
	return s.query(ctx, query, args...)
}

func (s *DoctorService) query(ctx context.Context, query string, args ...interface{}) ([]models.Doctor, error) {
	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperror.Internal(fmt.Errorf("query doctors: %w", err))
	}
	defer rows.Close()

	result := []models.Doctor{}
	for rows.Next() {
		var d models.Doctor
		var deptID sql.NullInt64
		var deptName, image sql.NullString
		if err := rows.Scan(&d.ID, &d.UserID, &d.Name, &d.Email, &deptID, &deptName, &d.Specialization,
			&d.ExperienceYears, &d.ConsultationFee, &d.Qualification, &d.Availability, &image); err != nil {
			return nil, apperror.Internal(err)
		}
		if deptID.Valid {
			d.DepartmentID = &deptID.Int64
		}
		if deptName.Valid {
			d.DepartmentName = &deptName.String
		}
		if image.Valid {
			d.ImagePath = &image.String
		}
		result = append(result, d)
	}
	if err := rows.Err(); err != nil {
		return nil, apperror.Internal(err)
	}
	return result, nil
}

// SetAvailability mengubah status active/inactive dokter. Appointment hanya bisa disetujui
// untuk dokter active.
func (s *DoctorService) SetAvailability(ctx context.Context, id int64, availability string) (*models.Doctor, error) {
	availability = strings.ToLower(strings.TrimSpace(availability))
	if availability != models.AvailabilityActive && availability != models.AvailabilityInactive {
		return nil, apperror.Validation("availability must be active or inactive")
	}
	if _, err := s.DB.ExecContext(ctx, `UPDATE doctors SET availability = ? WHERE id = ?`, availability, id); err != nil {
		return nil, apperror.Internal(fmt.Errorf("update availability: %w", err))
	}
	doc, err := s.GetDoctor(ctx, id)
	if err != nil {
		return nil, err
	}
	s.Log.WithFields(logrus.Fields{"doctor_id": id, "availability": availability}).Info("doctor availability changed")
	s.Hub.Publish("doctor", doc)
	return doc, nil
}

// DoctorIDForUser dipakai untuk membatasi dokter pada datanya sendiri.
func (s *DoctorService) DoctorIDForUser(ctx context.Context, userID int64) (int64, error) {
	var id int64
	err := s.DB.QueryRowContext(ctx, `SELECT id FROM doctors WHERE user_id = ?`, userID).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, apperror.Forbidden("no doctor profile is linked to this account")
	}
	if err != nil {
		return 0, apperror.Internal(err)
	}
	return id, nil
}
