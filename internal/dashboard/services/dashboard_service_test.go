package services

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c14220110/hospital-backend/pkg/apperror"
)

func TestParseRange(t *testing.T) {
	today := time.Date(2024, 3, 31, 15, 0, 0, 0, time.UTC)

	from, to, err := ParseRange("", "", today)
	require.NoError(t, err)
	assert.Equal(t, "2024-03-02", from.Format(dateLayout))
	assert.Equal(t, "2024-03-31", to.Format(dateLayout))

	from, to, err = ParseRange("2024-01-01", "2024-01-31", today)
	require.NoError(t, err)
	assert.Equal(t, "2024-01-01", from.Format(dateLayout))
	assert.Equal(t, "2024-01-31", to.Format(dateLayout))

	_, _, err = ParseRange("2024-02-01", "2024-01-31", today)
	assert.True(t, apperror.Is(err, apperror.KindValidation))
	_, _, err = ParseRange("01/02/2024", "", today)
	assert.True(t, apperror.Is(err, apperror.KindValidation))
}

func TestSummaryAggregates(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	log, _ := test.NewNullLogger()
	svc := NewDashboardService(db, log)

	from := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC)
	kv := []string{"k", "n"}

	mock.ExpectQuery(regexp.QuoteMeta("FROM appointments WHERE appointment_date >= ? AND appointment_date < ? GROUP BY status")).
		WithArgs("2024-03-01", "2024-04-01").
		WillReturnRows(sqlmock.NewRows(kv).AddRow("pending", 4).AddRow("approved", 6))
	mock.ExpectQuery(regexp.QuoteMeta("FROM tokens WHERE session_date >= ?")).
		WillReturnRows(sqlmock.NewRows(kv).AddRow("Done", 12))
	mock.ExpectQuery(regexp.QuoteMeta("FROM doctors GROUP BY availability")).
		WillReturnRows(sqlmock.NewRows(kv).AddRow("active", 3).AddRow("inactive", 1))
	mock.ExpectQuery(regexp.QuoteMeta("FROM patients WHERE created_at >= ?")).
		WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(9))
	mock.ExpectQuery(regexp.QuoteMeta("FROM payments WHERE status = 'Success'")).
		WillReturnRows(sqlmock.NewRows([]string{"s"}).AddRow(1569.4))
	mock.ExpectQuery(regexp.QuoteMeta("FROM invoices WHERE issued_date >= ?")).
		WillReturnRows(sqlmock.NewRows([]string{"avg", "unpaid"}).AddRow(784.7049, 2))
	mock.ExpectQuery(regexp.QuoteMeta("GROUP BY dep.id, dep.name")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "n"}).AddRow(2, "Cardiology", 7))
	mock.ExpectQuery(regexp.QuoteMeta("GROUP BY day")).
		WillReturnRows(sqlmock.NewRows([]string{"day", "n"}).AddRow("2024-03-04", 10))

	sum, err := svc.Summary(context.Background(), from, to)
	require.NoError(t, err)
	assert.Equal(t, 6, sum.AppointmentsByStatus["approved"])
	assert.Equal(t, 12, sum.TokensByStatus["Done"])
	assert.Equal(t, 3, sum.ActiveDoctors)
	assert.Equal(t, 1, sum.InactiveDoctors)
	assert.Equal(t, 9, sum.NewPatients)
	assert.InDelta(t, 1569.4, sum.Revenue, 1e-9)
	assert.Equal(t, 784.7, sum.AverageInvoice)
	assert.Equal(t, 2, sum.UnpaidInvoices)
	require.Len(t, sum.BusiestDepartments, 1)
	assert.Equal(t, "Cardiology", sum.BusiestDepartments[0].Name)
	assert.Equal(t, "2024-03-31", sum.To)
	assert.NoError(t, mock.ExpectationsWereMet())
}
