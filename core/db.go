package core

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
)

type (
	// DBExecutor is satisfied by both *sqlx.DB and *sqlx.Tx so repositories
	// can run inside or outside a transaction transparently.
	DBExecutor interface {
		ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
		GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
		SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
		QueryxContext(ctx context.Context, query string, args ...interface{}) (*sqlx.Rows, error)
	}

	// AtomicFunc runs with a transaction executor; all repo calls made with
	// it commit or roll back as one unit.
	AtomicFunc func(tx DBExecutor) error

	// TxRunner runs multi-record writes that must hold an invariant together
	// (payment confirmation, commission totals) as one atomic unit.
	TxRunner interface {
		Atomic(ctx context.Context, fn AtomicFunc) error
	}
)

type DBOrdering struct {
	Field     string
	Ascending bool
}

func (ord DBOrdering) String() string {
	direction := "DESC"
	if ord.Ascending {
		direction = "ASC"
	}
	return ord.Field + " " + direction
}
