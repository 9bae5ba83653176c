package routes

import (
	"net/http"
	"net/http/httptest"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c14220110/hospital-backend/internal/billing/controllers"
	"github.com/c14220110/hospital-backend/internal/billing/services"
	"github.com/c14220110/hospital-backend/internal/common/middlewares"
	"github.com/c14220110/hospital-backend/pkg/cache"
	"github.com/c14220110/hospital-backend/pkg/events"
	"github.com/c14220110/hospital-backend/pkg/response"
	"github.com/c14220110/hospital-backend/pkg/utils"
)

type nopHub struct{}

func (nopHub) Publish(string, interface{}) {}

func setup(t *testing.T, role string) (*echo.Echo, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	log, _ := test.NewNullLogger()
	svc := services.NewBillingService(db, cache.Noop{}, time.Minute, events.Noop{}, nopHub{}, log)

	e := echo.New()
	e.HTTPErrorHandler = response.ErrorHandler(log)
	api := e.Group("/api", func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			c.Set(middlewares.ContextKeyClaims, &utils.Claims{UserID: 30, Role: role})
			return next(c)
		}
	})
	RegisterBillingRoutes(api, controllers.NewBillingController(svc))
	return e, mock
}

func status(e *echo.Echo, target string) int {
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec.Code
}

func TestInvoiceReadsAreStaffOnly(t *testing.T) {
	for _, role := range []string{middlewares.RolePatient, middlewares.RoleDoctor, middlewares.RoleLabTech} {
		t.Run(role, func(t *testing.T) {
			e, mock := setup(t, role)
			assert.Equal(t, http.StatusForbidden, status(e, "/api/billing/5"))
			assert.Equal(t, http.StatusForbidden, status(e, "/api/billing/5/payments"))
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestInvoiceReadsReachHandlerForReceptionist(t *testing.T) {
	e, mock := setup(t, middlewares.RoleReceptionist)
	mock.ExpectQuery(regexp.QuoteMeta("WHERE i.id = ?")).WithArgs(int64(5)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	assert.Equal(t, http.StatusNotFound, status(e, "/api/billing/5"))
	assert.NoError(t, mock.ExpectationsWereMet())
}
