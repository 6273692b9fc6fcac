package pagedstore

import "context"

// Row is one retrieved record keyed by column name.
type Row map[string]any

// Window is the limit/offset pair selecting one page of a result set.
type Window struct {
	Limit  int
	Offset int64
}

// Next returns the window of the page following w.
func (w Window) Next() Window {
	return Window{
		Limit:  w.Limit,
		Offset: w.Offset + int64(w.Limit),
	}
}

type Transaction interface {
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// RowIterator is a pull iterator over a paged result set.
type RowIterator[T any] interface {
	Next() (T, error)
	Close() error
}

// pageSource fetches pages inside a transaction it owns.
type pageSource[T any] interface {
	Transaction
	fetchPage(ctx context.Context, w Window) ([]T, error)
}
