package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/bloghut/backend/internal/models"
	"github.com/go-sql-driver/mysql"
)

// MySQL server error numbers mapped to domain errors
const (
	mysqlErrDuplicateEntry  = 1062
	mysqlErrRowIsReferenced = 1451
	mysqlErrNoReferencedRow = 1452
	mysqlErrLockDeadlock    = 1213
)

// querier is satisfied by both *sql.DB and *sql.Tx
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type txKey struct{}

// conn returns the transaction stored in ctx, or db when there is none
func conn(ctx context.Context, db *sql.DB) querier {
	if tx, ok := ctx.Value(txKey{}).(*sql.Tx); ok {
		return tx
	}
	return db
}

// inTx reports whether ctx carries a transaction
func inTx(ctx context.Context) bool {
	_, ok := ctx.Value(txKey{}).(*sql.Tx)
	return ok
}

// transactor implements Transactor
type transactor struct {
	db *sql.DB
}

// NewTransactor creates a transaction runner over db
func NewTransactor(db *sql.DB) *transactor {
	return &transactor{db: db}
}

// WithTx runs fn inside a transaction. Repository calls made with the ctx passed to fn
// join the transaction. A nested call reuses the outer transaction.
// The transaction is rolled back when fn returns an error or panics.
func (t *transactor) WithTx(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	if _, ok := ctx.Value(txKey{}).(*sql.Tx); ok {
		return fn(ctx)
	}

	tx, err := t.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
		if err != nil {
			tx.Rollback()
		}
	}()

	if err = fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// mysqlErrorNumber returns the server error number of err, or 0
func mysqlErrorNumber(err error) uint16 {
	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) {
		return mysqlErr.Number
	}
	return 0
}

// likeEscaper escapes the LIKE wildcards with the default escape character
var likeEscaper = strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`)

// containsPattern returns a LIKE pattern matching term literally anywhere in a column
func containsPattern(term string) string {
	return "%" + likeEscaper.Replace(term) + "%"
}

func isDuplicateEntry(err error) bool {
	return mysqlErrorNumber(err) == mysqlErrDuplicateEntry
}

// requireAffected returns "<thing> not found" when the statement touched no rows
func requireAffected(result sql.Result, thing string) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("%s %w", thing, models.ErrNotFound)
	}

	return nil
}
