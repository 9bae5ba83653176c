package apperror

import (
	"database/sql"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOfWrapped(t *testing.T) {
	err := fmt.Errorf("create invoice: %w", Conflict("duplicate"))
	assert.Equal(t, KindConflict, KindOf(err))
	assert.True(t, Is(err, KindConflict))
	assert.False(t, Is(nil, KindConflict))
}

func TestKindOfPlainErrorIsInternal(t *testing.T) {
	assert.Equal(t, KindInternal, KindOf(sql.ErrConnDone))
}

func TestInternalHidesCause(t *testing.T) {
	err := Internal(sql.ErrConnDone)
	assert.Equal(t, "internal server error", err.Message)
	assert.ErrorIs(t, err, sql.ErrConnDone)
}

func TestHTTPStatus(t *testing.T) {
	cases := map[Kind]int{
		KindValidation:   http.StatusBadRequest,
		KindNotFound:     http.StatusNotFound,
		KindConflict:     http.StatusConflict,
		KindPrecondition: http.StatusPreconditionFailed,
		KindUnauthorized: http.StatusUnauthorized,
		KindForbidden:    http.StatusForbidden,
		KindInternal:     http.StatusInternalServerError,
	}
	for kind, want := range cases {
		assert.Equal(t, want, HTTPStatus(kind))
	}
}

func TestVersionConflictCode(t *testing.T) {
	err := VersionConflict("token")
	assert.Equal(t, CodeVersionConflict, err.Code)
	assert.Equal(t, KindConflict, err.Kind)
}
