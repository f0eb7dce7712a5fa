package core

import (
	"context"

	"github.com/jmoiron/sqlx"
)

type (
	// DBExecutor is satisfied by both *sqlx.DB and *sqlx.Tx.
	DBExecutor interface {
		sqlx.ExtContext

		GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
		SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	}

	// TxRunner runs fn inside a single transaction. Any error returned by fn rolls the transaction back.
	// Repositories given the executor passed to fn take part in the transaction.
	TxRunner interface {
		RunInTx(ctx context.Context, fn func(exec DBExecutor) error) error
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

// FirstExec returns the first executor of exec or def if exec is empty.
func FirstExec(def DBExecutor, exec []DBExecutor) DBExecutor {
	if len(exec) > 0 && exec[0] != nil {
		return exec[0]
	}
	return def
}
