package services

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"

	"github.com/c14220110/hospital-backend/pkg/events"
)

type recordingHub struct {
	mu        sync.Mutex
	resources []string
	payloads  []interface{}
}

func (h *recordingHub) Publish(resource string, data interface{}) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.resources = append(h.resources, resource)
	h.payloads = append(h.payloads, data)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *recordingPublisher) Publish(_ context.Context, e events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

type mapCache struct {
	mu   sync.Mutex
	data map[string][]byte
}

func (m *mapCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *mapCache) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func (m *mapCache) Delete(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.data, k)
	}
	return nil
}

var (
	fixedNow    = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	sessionDay  = time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	tokenFields = []string{"id", "token_no", "session_date", "patient_id", "p_name", "doctor_id", "u_name",
		"department_id", "status", "version", "created_at", "called_at", "completed_at"}
)

type fixture struct {
	svc  *TokenService
	mock sqlmock.Sqlmock
	hub  *recordingHub
	pub  *recordingPublisher
	c    *mapCache
}

func newFixture(t *testing.T, callTimeout time.Duration) *fixture {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	log, _ := test.NewNullLogger()
	f := &fixture{
		mock: mock,
		hub:  &recordingHub{},
		pub:  &recordingPublisher{},
		c:    &mapCache{data: map[string][]byte{}},
	}
	f.svc = NewTokenService(db, f.c, time.Minute, f.pub, f.hub, log, time.UTC, callTimeout)
	f.svc.now = func() time.Time { return fixedNow }
	t.Cleanup(f.svc.Timer.Stop)
	return f
}

// tokenRow: id, token_no, status, version
type tokenRow struct {
	id      int64
	no      int
	status  string
	version int
}

func tokenRows(rows ...tokenRow) *sqlmock.Rows {
	r := sqlmock.NewRows(tokenFields)
	for _, tr := range rows {
		var called interface{}
		if tr.status != "Waiting" {
			called = fixedNow
		}
		r.AddRow(tr.id, tr.no, sessionDay, 9+tr.id, "Patient", 3, "Dr. Rao", 2, tr.status, tr.version, fixedNow, called, nil)
	}
	return r
}

func lockRow(status string, version int) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"doctor_id", "session_date", "status", "version"}).AddRow(3, sessionDay, status, version)
}

func mustEncode(t *testing.T, v interface{}) []byte {
	t.Helper()
	raw, err := json.Marshal(v)
	require.NoError(t, err)
	return raw
}
