package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/c14220110/hospital-backend/internal/common/middlewares"
	"github.com/c14220110/hospital-backend/internal/users/models"
	"github.com/c14220110/hospital-backend/pkg/apperror"
	"github.com/c14220110/hospital-backend/pkg/storage/mariadb"
	"github.com/c14220110/hospital-backend/pkg/utils"
)

// UserService menangani login dan akun user. Login yang gagal selalu error, tidak ada user pengganti.
type UserService struct {
	DB     *sql.DB
	Secret string
	TTL    time.Duration
	Log    logrus.FieldLogger

	now func() time.Time
}

func NewUserService(db *sql.DB, secret string, ttl time.Duration, log logrus.FieldLogger) *UserService {
	return &UserService{DB: db, Secret: secret, TTL: ttl, Log: log, now: time.Now}
}

var validRoles = map[string]bool{
	middlewares.RoleAdmin:        true,
	middlewares.RoleDoctor:       true,
	middlewares.RolePatient:      true,
	middlewares.RoleReceptionist: true,
	middlewares.RoleLabTech:      true,
}

// Execer dipenuhi *sql.DB dan *sql.Tx.
type Execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// InsertUser memvalidasi lalu menyimpan user baru dengan password bcrypt.
// Dipakai juga oleh registrasi dokter dan pasien di dalam transaksi mereka.
func InsertUser(ctx context.Context, db Execer, req models.CreateUserRequest) (int64, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Name == "" {
		return 0, apperror.Validation("name is required")
	}
	if !strings.Contains(req.Email, "@") {
		return 0, apperror.Validation("a valid email is required")
	}
	if len(req.Password) < 8 {
		return 0, apperror.Validation("password must be at least 8 characters")
	}
	if !validRoles[req.Role] {
		return 0, apperror.Validation("unknown role: " + req.Role)
	}

	hash, err := utils.HashPassword(req.Password)
	if err != nil {
		return 0, apperror.Internal(err)
	}
	res, err := db.ExecContext(ctx,
		`INSERT INTO users (name, email, password_hash, role, status) VALUES (?, ?, ?, ?, ?)`,
		req.Name, req.Email, hash, req.Role, models.StatusActive)
	if err != nil {
		if mariadb.IsDuplicate(err) {
			return 0, apperror.Conflict("email already registered")
		}
		return 0, apperror.Internal(fmt.Errorf("insert user: %w", err))
	}
	return res.LastInsertId()
}

// Authenticate memvalidasi email dan password lalu menerbitkan JWT.
func (s *UserService) Authenticate(ctx context.Context, email, password string) (*models.LoginResponse, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, apperror.Validation("email and password are required")
	}

	var u models.User
	var hash string
	err := s.DB.QueryRowContext(ctx,
		`SELECT id, name, email, password_hash, role, status, created_at FROM users WHERE email = ?`, email).
		Scan(&u.ID, &u.Name, &u.Email, &hash, &u.Role, &u.Status, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.Unauthorized("invalid email or password")
	}
	if err != nil {
		return nil, apperror.Internal(fmt.Errorf("load user: %w", err))
	}
	if !utils.CheckPasswordHash(password, hash) {
		return nil, apperror.Unauthorized("invalid email or password")
	}
	if u.Status != models.StatusActive {
		return nil, apperror.Forbidden("account is inactive")
	}

	exp := s.now().Add(s.TTL)
	token, err := utils.GenerateJWTToken(s.Secret, u.ID, u.Role, u.Name, exp)
	if err != nil {
		return nil, apperror.Internal(err)
	}
	s.Log.WithFields(logrus.Fields{"user_id": u.ID, "role": u.Role}).Info("user logged in")
	return &models.LoginResponse{Token: token, ExpiresAt: exp, User: u}, nil
}

// CreateUser membuat akun staf (hanya admin).
func (s *UserService) CreateUser(ctx context.Context, req models.CreateUserRequest) (*models.User, error) {
	id, err := InsertUser(ctx, s.DB, req)
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, id)
}

func (s *UserService) Get(ctx context.Context, id int64) (*models.User, error) {
	var u models.User
	err := s.DB.QueryRowContext(ctx,
		`SELECT id, name, email, role, status, created_at FROM users WHERE id = ?`, id).
		Scan(&u.ID, &u.Name, &u.Email, &u.Role, &u.Status, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.NotFound("user")
	}
	if err != nil {
		return nil, apperror.Internal(err)
	}
	return &u, nil
}

// SeedAdmin membuat akun admin pertama dari ADMIN_EMAIL/ADMIN_PASSWORD bila belum ada admin.
func (s *UserService) SeedAdmin(ctx context.Context, email, password string) error {
	if email == "" || password == "" {
		return nil
	}
	var count int
	if err := s.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM users WHERE role = ?`, middlewares.RoleAdmin).Scan(&count); err != nil {
		return fmt.Errorf("count admins: %w", err)
	}
	if count > 0 {
		return nil
	}
	if _, err := InsertUser(ctx, s.DB, models.CreateUserRequest{
		Name: "Administrator", Email: email, Password: password, Role: middlewares.RoleAdmin,
	}); err != nil {
		return err
	}
	s.Log.WithField("email", email).Info("seeded initial admin account")
	return nil
}
