package pagedstore

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
)

type sqlTransaction struct {
	Tx *sqlx.Tx
}

func (st *sqlTransaction) Rollback(_ context.Context) error {
	// database/sql has already rolled back when the begin context was canceled
	if err := st.Tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return err
	}

	return nil
}

func (st *sqlTransaction) Commit(_ context.Context) error {
	return st.Tx.Commit()
}

// sqlSource runs query + window clause on its transaction and scans each
// page with scan.
type sqlSource[T any] struct {
	sqlTransaction
	query   string
	args    []any
	dialect Dialect
	scan    func(rows *sqlx.Rows) (T, error)
}

func (s *sqlSource[T]) fetchPage(ctx context.Context, w Window) ([]T, error) {
	clause, windowArgs := s.dialect.WindowClause(w)
	qry := s.Tx.Rebind(s.query + " " + clause)

	args := make([]any, 0, len(s.args)+len(windowArgs))
	args = append(args, s.args...)
	args = append(args, windowArgs...)

	rows, err := s.Tx.QueryxContext(ctx, qry, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var page []T
	for rows.Next() {
		item, err := s.scan(rows)
		if err != nil {
			return nil, err
		}
		page = append(page, item)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return page, nil
}

func mapScanner(fn KeyMapper) func(rows *sqlx.Rows) (Row, error) {
	return func(rows *sqlx.Rows) (Row, error) {
		row := make(map[string]any)
		if err := rows.MapScan(row); err != nil {
			return nil, err
		}

		return mapRowKeys(row, fn), nil
	}
}

func structScanner[T any](rows *sqlx.Rows) (T, error) {
	var item T
	err := rows.StructScan(&item)
	return item, err
}
