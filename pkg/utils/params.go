package utils

import (
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/c14220110/hospital-backend/pkg/apperror"
)

// ParseID mem-parse parameter path/query menjadi id positif.
func ParseID(raw, name string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperror.Validation(name + " must be a positive integer")
	}
	return id, nil
}

// OptionalID mengembalikan 0 bila parameter kosong.
func OptionalID(raw, name string) (int64, error) {
	if strings.TrimSpace(raw) == "" {
		return 0, nil
	}
	return ParseID(raw, name)
}

// ExpectedVersion membaca versi optimistic dari header If-Match (boleh ber-quote).
// Nil berarti client tidak meminta pengecekan versi.
func ExpectedVersion(c echo.Context) (*int, error) {
	raw := strings.Trim(strings.TrimSpace(c.Request().Header.Get("If-Match")), `"`)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		return nil, apperror.Validation("If-Match must carry a positive version number")
	}
	return &v, nil
}

// EscapeLike meng-escape wildcard LIKE agar input user dicocokkan apa adanya.
func EscapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
