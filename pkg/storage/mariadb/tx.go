package mariadb

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-sql-driver/mysql"
)

// WithTx menjalankan fn di dalam transaksi: rollback bila fn error, commit bila sukses.
func WithTx(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

// Nomor error MySQL yang dipetakan ke error domain.
const (
	errDuplicateEntry   = 1062
	errNoReferencedRow  = 1452
	errNoReferencedRow1 = 1216
)

// IsDuplicate bernilai true untuk pelanggaran unique constraint.
func IsDuplicate(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == errDuplicateEntry
}

// IsForeignKeyViolation bernilai true bila baris yang direferensikan tidak ada.
func IsForeignKeyViolation(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && (me.Number == errNoReferencedRow || me.Number == errNoReferencedRow1)
}
