package pagedstore

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// TxBeginner is the part of *sqlx.DB a fetch needs.
type TxBeginner interface {
	BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error)
	DriverName() string
}

// Fetch reads the rows of query pageSize at a time. Each page is the base
// query followed by a window clause whose limit and offset are bound as
// parameters, so query itself must not carry LIMIT/OFFSET.
//
// All pages are read in one transaction begun here. It is committed when a
// page comes back empty and rolled back on error or on Close. Canceling ctx
// also rolls it back. The connection stays checked out until then.
func Fetch(ctx context.Context, db TxBeginner, query string, pageSize int, options ...FetchOption) (*PageIterator[Row], error) {
	opt := newFetchOption(options)
	return fetchSQL(ctx, db, query, pageSize, opt, mapScanner(opt.keyMapper))
}

// FetchInto is Fetch with each row struct scanned into a T.
func FetchInto[T any](ctx context.Context, db TxBeginner, query string, pageSize int, options ...FetchOption) (*PageIterator[T], error) {
	opt := newFetchOption(options)
	return fetchSQL(ctx, db, query, pageSize, opt, structScanner[T])
}

func fetchSQL[T any](ctx context.Context, db TxBeginner, query string, pageSize int, opt *fetchOption, scan func(*sqlx.Rows) (T, error)) (*PageIterator[T], error) {
	if pageSize <= 0 {
		return nil, fmt.Errorf("%w, got %d", ErrInvalidPageSize, pageSize)
	}

	query = normalizeQuery(query)
	if query == "" {
		return nil, ErrEmptyQuery
	}

	dialect := opt.dialect
	if dialect == nil {
		dialect = DialectFor(db.DriverName())
	}

	tx, err := db.BeginTxx(ctx, opt.txOptions)
	if err != nil {
		return nil, wrapDataSourceError(OpBegin, Window{Limit: pageSize}, err)
	}

	src := &sqlSource[T]{
		sqlTransaction: sqlTransaction{Tx: tx},
		query:          query,
		args:           opt.args,
		dialect:        dialect,
		scan:           scan,
	}

	return newPageIterator[T](ctx, src, pageSize, opt.logger), nil
}
