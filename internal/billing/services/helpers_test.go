package services

import (
	"context"
	"database/sql"
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
	events []events.Event
}

func (p *recordingPublisher) Publish(_ context.Context, e events.Event) error {
	p.events = append(p.events, e)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

type mapCache struct {
	data map[string][]byte
}

func (m *mapCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *mapCache) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	m.data[key] = value
	return nil
}

func (m *mapCache) Delete(_ context.Context, keys ...string) error {
	for _, k := range keys {
		delete(m.data, k)
	}
	return nil
}

type fixture struct {
	svc  *BillingService
	db   *sql.DB
	mock sqlmock.Sqlmock
	hub  *recordingHub
	pub  *recordingPublisher
	c    *mapCache
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	log, _ := test.NewNullLogger()
	f := &fixture{
		db:   db,
		mock: mock,
		hub:  &recordingHub{},
		pub:  &recordingPublisher{},
		c:    &mapCache{data: map[string][]byte{}},
	}
	f.svc = NewBillingService(db, f.c, time.Minute, f.pub, f.hub, log)
	return f
}
