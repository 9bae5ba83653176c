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

	"github.com/c14220110/hospital-backend/internal/records/models"
	"github.com/c14220110/hospital-backend/pkg/apperror"
)

type recordingHub struct{ resources []string }

func (h *recordingHub) Publish(resource string, _ interface{}) {
	h.resources = append(h.resources, resource)
}

func newService(t *testing.T) (*RecordsService, sqlmock.Sqlmock, *recordingHub) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	log, _ := test.NewNullLogger()
	hub := &recordingHub{}
	return NewRecordsService(db, hub, log), mock, hub
}

var (
	prescriptionCols = []string{"id", "appointment_id", "medicine_id", "name", "dosage", "instructions", "created_at"}
	labCols          = []string{"id", "patient_id", "appointment_id", "test_name", "result", "status", "created_at"}
)

func TestPrescribeRequiresApprovedAppointment(t *testing.T) {
	svc, mock, hub := newService(t)
	req := models.PrescribeRequest{Lines: []models.PrescriptionLine{{MedicineID: 3, Dosage: "1-0-1"}}}

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT status FROM appointments WHERE id = ? FOR UPDATE")).
		WithArgs(int64(5)).WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("pending"))
	mock.ExpectRollback()

	_, err := svc.Prescribe(context.Background(), 5, req)
	assert.True(t, apperror.Is(err, apperror.KindPrecondition))
	assert.Empty(t, hub.resources)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPrescribeWritesAllLines(t *testing.T) {
	svc, mock, hub := newService(t)
	req := models.PrescribeRequest{Lines: []models.PrescriptionLine{
		{MedicineID: 3, Dosage: " 1-0-1 ", Instructions: "after food"},
		{MedicineID: 4, Dosage: "0-0-1"},
	}}

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FROM appointments WHERE id = ? FOR UPDATE")).
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("approved"))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO prescriptions")).
		WithArgs(int64(5), int64(3), "1-0-1", "after food").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO prescriptions")).
		WithArgs(int64(5), int64(4), "0-0-1", "").WillReturnResult(sqlmock.NewResult(2, 1))
	mock.ExpectCommit()
	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("WHERE pr.appointment_id = ?")).WithArgs(int64(5)).
		WillReturnRows(sqlmock.NewRows(prescriptionCols).
			AddRow(1, 5, 3, "Paracetamol", "1-0-1", "after food", now).
			AddRow(2, 5, nil, nil, "0-0-1", "", now))

	list, err := svc.Prescribe(context.Background(), 5, req)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Paracetamol", *list[0].MedicineName)
	assert.Nil(t, list[1].MedicineID)
	assert.Equal(t, []string{"prescription"}, hub.resources)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPrescribeUnknownMedicine(t *testing.T) {
	svc, mock, _ := newService(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FROM appointments WHERE id = ? FOR UPDATE")).
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("completed"))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO prescriptions")).WillReturnError(&mysql.MySQLError{Number: 1452})
	mock.ExpectRollback()

	_, err := svc.Prescribe(context.Background(), 5, models.PrescribeRequest{
		Lines: []models.PrescriptionLine{{MedicineID: 99, Dosage: "1-1-1"}},
	})
	assert.True(t, apperror.Is(err, apperror.KindValidation))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPrescribeValidatesLines(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()

	_, err := svc.Prescribe(ctx, 5, models.PrescribeRequest{})
	assert.True(t, apperror.Is(err, apperror.KindValidation))
	_, err = svc.Prescribe(ctx, 5, models.PrescribeRequest{Lines: []models.PrescriptionLine{{MedicineID: 3}}})
	assert.True(t, apperror.Is(err, apperror.KindValidation))
}

func TestRecordLabResultIsFinal(t *testing.T) {
	svc, mock, hub := newService(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT status FROM lab_reports WHERE id = ? FOR UPDATE")).
		WithArgs(int64(8)).WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("Pending"))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE lab_reports SET result = ?, status = ? WHERE id = ?")).
		WithArgs("Hb 13.5", "Completed", int64(8)).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()
	mock.ExpectQuery(regexp.QuoteMeta("FROM lab_reports WHERE id = ?")).WithArgs(int64(8)).
		WillReturnRows(sqlmock.NewRows(labCols).AddRow(8, 2, nil, "CBC", "Hb 13.5", "Completed", time.Now()))

	r, err := svc.RecordLabResult(context.Background(), 8, "Hb 13.5")
	require.NoError(t, err)
	assert.Equal(t, models.LabCompleted, r.Status)
	assert.Equal(t, []string{"lab_report"}, hub.resources)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FROM lab_reports WHERE id = ? FOR UPDATE")).
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("Completed"))
	mock.ExpectRollback()

	_, err = svc.RecordLabResult(context.Background(), 8, "Hb 14")
	assert.True(t, apperror.Is(err, apperror.KindConflict))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderLabUnknownPatient(t *testing.T) {
	svc, mock, _ := newService(t)

	_, err := svc.OrderLab(context.Background(), models.LabOrderRequest{PatientID: 2})
	assert.True(t, apperror.Is(err, apperror.KindValidation))

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO lab_reports")).
		WithArgs(int64(404), sqlmock.AnyArg(), "CBC", "Pending").
		WillReturnError(&mysql.MySQLError{Number: 1452})
	_, err = svc.OrderLab(context.Background(), models.LabOrderRequest{PatientID: 404, TestName: "CBC"})
	assert.True(t, apperror.Is(err, apperror.KindValidation))
	assert.NoError(t, mock.ExpectationsWereMet())
}
