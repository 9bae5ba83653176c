package mariadb

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c14220110/hospital-backend/config"
)

func TestDSN(t *testing.T) {
	cfg := &config.Config{
		DBUser: "app", DBPassword: "pw", DBHost: "db", DBPort: "3306", DBName: "hospital",
		Timezone: "UTC",
	}
	dsn := DSN(cfg)
	assert.True(t, strings.HasPrefix(dsn, "app:pw@tcp(db:3306)/hospital?"), dsn)
	assert.Contains(t, dsn, "parseTime=true")
}

func TestStatementsCoverEveryTable(t *testing.T) {
	stmts := Statements()
	tables := []string{
		"users", "departments", "doctors", "patients", "appointments", "medicines", "prescriptions",
		"lab_reports", "invoices", "invoice_items", "payments", "tokens", "notifications", "service_prices",
	}
	require.Len(t, stmts, len(tables))
	for i, table := range tables {
		assert.Contains(t, stmts[i], "CREATE TABLE IF NOT EXISTS "+table+" (")
		assert.NotContains(t, stmts[i], "--")
	}
}

func TestEnsureSchemaStopsOnError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS users")).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS departments")).WillReturnError(errors.New("boom"))

	err = EnsureSchema(context.Background(), db)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "departments")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithTxCommitAndRollback(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectCommit()
	require.NoError(t, WithTx(context.Background(), db, func(tx *sql.Tx) error { return nil }))

	mock.ExpectBegin()
	mock.ExpectRollback()
	sentinel := errors.New("fail")
	err = WithTx(context.Background(), db, func(tx *sql.Tx) error { return sentinel })
	assert.ErrorIs(t, err, sentinel)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestErrorClassification(t *testing.T) {
	dup := &mysql.MySQLError{Number: 1062, Message: "Duplicate entry '5' for key 'uq_invoices_appointment'"}
	fk := &mysql.MySQLError{Number: 1452, Message: "Cannot add or update a child row"}
	ref := &mysql.MySQLError{Number: 1451, Message: "Cannot delete or update a parent row"}

	assert.True(t, IsDuplicate(dup))
	assert.False(t, IsDuplicate(fk))
	assert.True(t, IsForeignKeyViolation(fk))
	assert.False(t, IsForeignKeyViolation(ref))
	assert.False(t, IsDuplicate(errors.New("Duplicate entry")))
}

// MySQL 8 menolak CASCADE/SET NULL pada foreign key di atas base column generated column STORED.
func TestTokensGeneratedColumnBaseHasNoCascadingForeignKey(t *testing.T) {
	var tokens string
	for _, stmt := range Statements() {
		if strings.Contains(stmt, "CREATE TABLE IF NOT EXISTS tokens (") {
			tokens = stmt
		}
	}
	require.NotEmpty(t, tokens)
	require.Contains(t, tokens, "GENERATED ALWAYS AS")

	for _, base := range []string{"doctor_id", "session_date", "status"} {
		for _, line := range strings.Split(tokens, "\n") {
			if !strings.Contains(line, "FOREIGN KEY ("+base+")") {
				continue
			}
			assert.NotContains(t, line, "CASCADE", line)
			assert.NotContains(t, line, "SET NULL", line)
		}
	}
	assert.Contains(t, tokens, "FOREIGN KEY (doctor_id) REFERENCES doctors (id) ON DELETE RESTRICT")
}
