package services

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c14220110/hospital-backend/pkg/apperror"
)

type recordingHub struct {
	resources []string
}

func (h *recordingHub) Publish(resource string, _ interface{}) {
	h.resources = append(h.resources, resource)
}

func newService(t *testing.T) (*NotificationService, sqlmock.Sqlmock, *recordingHub) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	log, _ := test.NewNullLogger()
	hub := &recordingHub{}
	return NewNotificationService(db, hub, log), mock, hub
}

func TestNotifyStoresAndBroadcasts(t *testing.T) {
	svc, mock, hub := newService(t)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO notifications")).
		WithArgs(int64(4), "appointment_approved", "approved", sql.NullInt64{Int64: 10, Valid: true}).
		WillReturnResult(sqlmock.NewResult(1, 1))

	require.NoError(t, svc.Notify(context.Background(), 4, "appointment_approved", "approved", 10))
	assert.Equal(t, []string{"notification"}, hub.resources)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListForUserUnreadOnly(t *testing.T) {
	svc, mock, _ := newService(t)
	mock.ExpectQuery(regexp.QuoteMeta("WHERE user_id = ? AND is_read = FALSE")).WithArgs(int64(4)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "type", "message", "reference_id", "is_read", "created_at"}).
			AddRow(2, 4, "appointment_approved", "ok", 10, false, time.Now()).
			AddRow(1, 4, "system", "hello", nil, false, time.Now()))

	got, err := svc.ListForUser(context.Background(), 4, true)
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.NotNil(t, got[0].ReferenceID)
	assert.Equal(t, int64(10), *got[0].ReferenceID)
	assert.Nil(t, got[1].ReferenceID)
}

func TestMarkRead(t *testing.T) {
	svc, mock, hub := newService(t)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT is_read FROM notifications")).WithArgs(int64(9), int64(4)).
		WillReturnRows(sqlmock.NewRows([]string{"is_read"}))
	err := svc.MarkRead(context.Background(), 9, 4)
	assert.True(t, apperror.Is(err, apperror.KindNotFound))

	mock.ExpectQuery(regexp.QuoteMeta("SELECT is_read FROM notifications")).
		WillReturnRows(sqlmock.NewRows([]string{"is_read"}).AddRow(false))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE notifications SET is_read = TRUE")).WithArgs(int64(2)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, svc.MarkRead(context.Background(), 2, 4))

	mock.ExpectQuery(regexp.QuoteMeta("SELECT is_read FROM notifications")).
		WillReturnRows(sqlmock.NewRows([]string{"is_read"}).AddRow(true))
	require.NoError(t, svc.MarkRead(context.Background(), 2, 4))

	assert.Len(t, hub.resources, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}
