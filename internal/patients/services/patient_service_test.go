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

	"github.com/c14220110/hospital-backend/internal/patients/models"
	"github.com/c14220110/hospital-backend/pkg/apperror"
)

type recordingHub struct{ resources []string }

func (h *recordingHub) Publish(resource string, _ interface{}) {
	h.resources = append(h.resources, resource)
}

func newService(t *testing.T) (*PatientService, sqlmock.Sqlmock, *recordingHub) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	log, _ := test.NewNullLogger()
	hub := &recordingHub{}
	return NewPatientService(db, hub, log), mock, hub
}

var patientCols = []string{"id", "user_id", "registered_by", "name", "gender", "date_of_birth",
	"phone", "address", "blood_group", "created_at"}

func TestSelfRegisterCreatesAccountAndRecord(t *testing.T) {
	svc, mock, hub := newService(t)
	dob := time.Date(1990, 5, 17, 0, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO users")).
		WithArgs("Asha Verma", "asha@example.com", sqlmock.AnyArg(), "patient", "Active").
		WillReturnResult(sqlmock.NewResult(30, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO patients")).
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), "Asha Verma", "F", sqlmock.AnyArg(), "98100", "", "O+").
		WillReturnResult(sqlmock.NewResult(12, 1))
	mock.ExpectCommit()
	mock.ExpectQuery(regexp.QuoteMeta("FROM patients WHERE id = ?")).WithArgs(int64(12)).
		WillReturnRows(sqlmock.NewRows(patientCols).
			AddRow(12, 30, nil, "Asha Verma", "F", dob, "98100", "", "O+", time.Now()))

	p, err := svc.SelfRegister(context.Background(), models.SelfRegisterRequest{
		Profile: models.Profile{Name: " Asha Verma ", Gender: "F", DateOfBirth: "1990-05-17", Phone: "98100", BloodGroup: "o+"},
		Email:   "asha@example.com", Password: "patient-pass",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(30), *p.UserID)
	assert.Nil(t, p.RegisteredBy)
	assert.Equal(t, "1990-05-17", *p.DateOfBirth)
	assert.Equal(t, []string{"patient"}, hub.resources)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSelfRegisterDuplicateEmail(t *testing.T) {
	svc, mock, hub := newService(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO users")).WillReturnError(&mysql.MySQLError{Number: 1062})
	mock.ExpectRollback()

	_, err := svc.SelfRegister(context.Background(), models.SelfRegisterRequest{
		Profile: models.Profile{Name: "Asha"}, Email: "asha@example.com", Password: "patient-pass",
	})
	require.Error(t, err)
	assert.True(t, apperror.Is(err, apperror.KindConflict))
	assert.Empty(t, hub.resources)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProfileValidation(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()

	_, err := svc.RegisterWalkIn(ctx, models.Profile{Name: "  "}, 4)
	assert.True(t, apperror.Is(err, apperror.KindValidation))

	_, err = svc.RegisterWalkIn(ctx, models.Profile{Name: "Ravi", DateOfBirth: "17/05/1990"}, 4)
	assert.True(t, apperror.Is(err, apperror.KindValidation))

	future := time.Now().AddDate(1, 0, 0).Format("2006-01-02")
	_, err = svc.RegisterWalkIn(ctx, models.Profile{Name: "Ravi", DateOfBirth: future}, 4)
	assert.True(t, apperror.Is(err, apperror.KindValidation))
}

func TestRegisterWalkInRecordsReceptionist(t *testing.T) {
	svc, mock, _ := newService(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO patients")).
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), "Ravi", "", sqlmock.AnyArg(), "", "", "").
		WillReturnResult(sqlmock.NewResult(13, 1))
	mock.ExpectCommit()
	mock.ExpectQuery(regexp.QuoteMeta("FROM patients WHERE id = ?")).WithArgs(int64(13)).
		WillReturnRows(sqlmock.NewRows(patientCols).
			AddRow(13, nil, 4, "Ravi", "", nil, "", "", "", time.Now()))

	p, err := svc.RegisterWalkIn(context.Background(), models.Profile{Name: "Ravi"}, 4)
	require.NoError(t, err)
	assert.Nil(t, p.UserID)
	assert.Equal(t, int64(4), *p.RegisteredBy)
	assert.Nil(t, p.DateOfBirth)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSearchEscapesWildcards(t *testing.T) {
	svc, mock, _ := newService(t)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE name LIKE ? OR phone LIKE ?")).
		WithArgs(`%50\%%`, `%50\%%`, searchLimit).
		WillReturnRows(sqlmock.NewRows(patientCols))
	list, err := svc.Search(context.Background(), " 50% ")
	require.NoError(t, err)
	assert.Empty(t, list)

	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY id DESC LIMIT ?")).WithArgs(searchLimit).
		WillReturnRows(sqlmock.NewRows(patientCols))
	_, err = svc.Search(context.Background(), "")
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetByUserNotFound(t *testing.T) {
	svc, mock, _ := newService(t)
	mock.ExpectQuery(regexp.QuoteMeta("FROM patients WHERE user_id = ?")).WithArgs(int64(99)).
		WillReturnRows(sqlmock.NewRows(patientCols))

	_, err := svc.GetByUser(context.Background(), 99)
	assert.True(t, apperror.Is(err, apperror.KindNotFound))
}
