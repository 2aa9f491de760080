// Package repository implements the service stores on MySQL. Every store
// reports missing rows as model.ErrNotFound and a lost status
// compare-and-swap as model.ErrAlreadyDecided so handlers never see
// driver errors for expected outcomes.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"

	"github.com/iliyamo/venue-reservation/internal/model"
)

const (
	errDuplicateEntry = 1062
	errNoReferenced   = 1452
)

func mysqlCode(err error) uint16 {
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		return me.Number
	}
	return 0
}

func isDuplicate(err error) bool { return mysqlCode(err) == errDuplicateEntry }

// notFound maps sql.ErrNoRows and dangling foreign keys to model.ErrNotFound.
func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) || mysqlCode(err) == errNoReferenced {
		return model.ErrNotFound
	}
	return err
}

// withTx runs fn inside a transaction, committing when it returns nil.
func withTx(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) (err error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		} else {
			err = tx.Commit()
		}
	}()
	return fn(tx)
}

// placeholders returns "?,?,?" for n arguments.
func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.Repeat("?,", n-1) + "?"
}

func idArgs(ids []uint64) []any {
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return args
}

type scanner interface {
	Scan(dest ...any) error
}
