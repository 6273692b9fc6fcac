package pagedstore

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"go.mongodb.org/mongo-driver/mongo"
)

var (
	ErrInvalidPageSize = errors.New("page size must be greater than zero")
	ErrEmptyQuery      = errors.New("query is empty")
	ErrIteratorClosed  = errors.New("iterator closed")
)

// Op names the data source step that failed.
type Op string

const (
	OpBegin    Op = "begin"
	OpFetch    Op = "fetch"
	OpCommit   Op = "commit"
	OpRollback Op = "rollback"
)

// DataSourceError reports a failure of the underlying data source while
// paging. Code holds the SQLSTATE when the driver exposes one.
type DataSourceError struct {
	Op     Op
	Window Window
	Code   string
	Err    error
}

func (e *DataSourceError) Error() string {
	msg := string(e.Op)
	if e.Op == OpFetch {
		msg = fmt.Sprintf("fetch page (limit %d, offset %d)", e.Window.Limit, e.Window.Offset)
	}

	var detail []string
	if e.Code != "" {
		detail = append(detail, "["+e.Code+"]")
	}

	if e.Err != nil {
		detail = append(detail, e.Err.Error())
	}

	if len(detail) == 0 {
		return msg
	}

	return msg + ": " + strings.Join(detail, " ")
}

func (e *DataSourceError) Unwrap() error {
	return e.Err
}

func wrapDataSourceError(op Op, w Window, err error) error {
	if err == nil {
		return nil
	}

	return &DataSourceError{
		Op:     op,
		Window: w,
		Code:   sqlState(err),
		Err:    err,
	}
}

func sqlState(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code)
	}

	return ""
}

// IsTransient reports whether err is a failure that may succeed when the
// whole fetch is started again: lost connections, serialization failures,
// deadlocks, and transient mongo transaction errors. Nothing in this package
// retries on its own.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	if code := sqlState(err); code != "" {
		return pgerrcode.IsConnectionException(code) || pgerrcode.IsTransactionRollback(code)
	}

	if mongo.IsNetworkError(err) || mongo.IsTimeout(err) {
		return true
	}

	var se mongo.ServerError
	if errors.As(err, &se) {
		return se.HasErrorLabel("TransientTransactionError")
	}

	return false
}

// IsQueryError reports whether err was caused by the statement itself
// (syntax error, unknown column, missing privilege).
func IsQueryError(err error) bool {
	code := sqlState(err)
	if code == "" {
		return false
	}

	return pgerrcode.IsSyntaxErrororAccessRuleViolation(code)
}
