package services

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c14220110/hospital-backend/internal/users/models"
	"github.com/c14220110/hospital-backend/pkg/apperror"
	"github.com/c14220110/hospital-backend/pkg/utils"
)

const secret = "unit-test-secret"

func newService(t *testing.T) (*UserService, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	log, _ := test.NewNullLogger()
	return NewUserService(db, secret, time.Hour, log), mock
}

func userRow(hash, status string) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "name", "email", "password_hash", "role", "status", "created_at"}).
		AddRow(4, "Nisha", "nisha@example.com", hash, "receptionist", status, time.Now())
}

func TestAuthenticateIssuesToken(t *testing.T) {
	svc, mock := newService(t)
	hash, err := utils.HashPassword("s3cret-pass")
	require.NoError(t, err)
	mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE email = ?")).WithArgs("nisha@example.com").
		WillReturnRows(userRow(hash, "Active"))

	res, err := svc.Authenticate(context.Background(), " Nisha@Example.com ", "s3cret-pass")
	require.NoError(t, err)
	assert.Equal(t, int64(4), res.User.ID)

	claims, err := utils.ValidateJWTToken(secret, res.Token)
	require.NoError(t, err)
	assert.Equal(t, int64(4), claims.UserID)
	assert.Equal(t, "receptionist", claims.Role)
}

func TestAuthenticateFailuresNeverFabricateUser(t *testing.T) {
	svc, mock := newService(t)
	hash, err := utils.HashPassword("s3cret-pass")
	require.NoError(t, err)

	mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE email = ?")).WillReturnRows(userRow(hash, "Active"))
	res, err := svc.Authenticate(context.Background(), "nisha@example.com", "wrong-pass")
	assert.Nil(t, res)
	assert.True(t, apperror.Is(err, apperror.KindUnauthorized))

	mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE email = ?")).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	res, err = svc.Authenticate(context.Background(), "ghost@example.com", "whatever")
	assert.Nil(t, res)
	assert.True(t, apperror.Is(err, apperror.KindUnauthorized))

	mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE email = ?")).WillReturnError(assert.AnError)
	res, err = svc.Authenticate(context.Background(), "nisha@example.com", "s3cret-pass")
	assert.Nil(t, res)
	assert.Equal(t, apperror.KindInternal, apperror.KindOf(err))

	mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE email = ?")).WillReturnRows(userRow(hash, "Inactive"))
	res, err = svc.Authenticate(context.Background(), "nisha@example.com", "s3cret-pass")
	assert.Nil(t, res)
	assert.True(t, apperror.Is(err, apperror.KindForbidden))

	_, err = svc.Authenticate(context.Background(), "", "")
	assert.True(t, apperror.Is(err, apperror.KindValidation))
}

func TestInsertUserValidation(t *testing.T) {
	svc, mock := newService(t)
	bad := []models.CreateUserRequest{
		{Email: "a@b.c", Password: "longenough", Role: "admin"},
		{Name: "A", Email: "nope", Password: "longenough", Role: "admin"},
		{Name: "A", Email: "a@b.c", Password: "short", Role: "admin"},
		{Name: "A", Email: "a@b.c", Password: "longenough", Role: "janitor"},
	}
	for _, req := range bad {
		_, err := InsertUser(context.Background(), svc.DB, req)
		assert.True(t, apperror.Is(err, apperror.KindValidation), "%+v", req)
	}

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO users")).
		WithArgs("A", "a@b.c", sqlmock.AnyArg(), "doctor", "Active").
		WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry"})
	_, err := InsertUser(context.Background(), svc.DB, models.CreateUserRequest{
		Name: "A", Email: "A@B.c", Password: "longenough", Role: "doctor",
	})
	assert.True(t, apperror.Is(err, apperror.KindConflict))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSeedAdmin(t *testing.T) {
	svc, mock := newService(t)
	require.NoError(t, svc.SeedAdmin(context.Background(), "", ""))

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM users WHERE role = ?")).WithArgs("admin").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	require.NoError(t, svc.SeedAdmin(context.Background(), "root@example.com", "changeme123"))

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM users")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO users")).
		WithArgs("Administrator", "root@example.com", sqlmock.AnyArg(), "admin", "Active").
		WillReturnResult(sqlmock.NewResult(1, 1))
	require.NoError(t, svc.SeedAdmin(context.Background(), "root@example.com", "changeme123"))
	assert.NoError(t, mock.ExpectationsWereMet())
}
