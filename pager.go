// Package pagedstore reads large result sets page by page with offset-based
// pagination, keeping the whole read inside one transaction.
//
// Offset pagination has no isolation of its own: rows inserted or deleted by
// other sessions while a fetch is in progress may be skipped or returned
// twice, unless the transaction isolation level prevents it.
package pagedstore

import (
	"context"
	"errors"
	"iter"
	"log/slog"

	"google.golang.org/api/iterator"
)

type iterState int

const (
	stateOpen iterState = iota
	stateDone
	stateFailed
	stateClosed
)

// PageIterator yields the items of a paged read one at a time. The next page
// is fetched only when the buffered one is used up. The transaction is
// committed when an empty page comes back, and rolled back on the first
// error or when the iterator is closed before that.
//
// A PageIterator owns its transaction and is not safe for concurrent use.
type PageIterator[T any] struct {
	ctx    context.Context
	src    pageSource[T]
	window Window
	buf    []T
	pages  int
	state  iterState
	err    error
	logger *slog.Logger
}

func newPageIterator[T any](ctx context.Context, src pageSource[T], pageSize int, logger *slog.Logger) *PageIterator[T] {
	return &PageIterator[T]{
		ctx:    ctx,
		src:    src,
		window: Window{Limit: pageSize},
		logger: logger,
	}
}

// Next returns the next item. It returns iterator.Done once the read is
// exhausted and committed. Any other error is final and repeated on every
// later call.
func (it *PageIterator[T]) Next() (T, error) {
	var zero T
	for len(it.buf) == 0 {
		switch it.state {
		case stateDone:
			return zero, iterator.Done
		case stateFailed:
			return zero, it.err
		case stateClosed:
			return zero, ErrIteratorClosed
		}

		it.fetch()
	}

	item := it.buf[0]
	it.buf[0] = zero
	it.buf = it.buf[1:]

	return item, nil
}

// Close rolls the transaction back if the read has not finished yet. It is
// safe to call more than once and after the iterator is exhausted.
func (it *PageIterator[T]) Close() error {
	if it.state != stateOpen {
		return nil
	}

	it.state = stateClosed
	it.buf = nil

	if err := it.src.Rollback(context.WithoutCancel(it.ctx)); err != nil {
		return wrapDataSourceError(OpRollback, it.window, err)
	}

	it.logger.Debug("transaction rolled back", "reason", "closed", "pages", it.pages)
	return nil
}

// All adapts the iterator to a range-over-func sequence. Leaving the loop
// early closes the iterator. An error is yielded once and ends the sequence.
func (it *PageIterator[T]) All() iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		defer func() {
			if err := it.Close(); err != nil {
				it.logger.Warn("rollback failed", "pages", it.pages, "error", err)
			}
		}()

		for {
			item, err := it.Next()
			if err == iterator.Done {
				return
			}

			if err != nil {
				var zero T
				yield(zero, err)
				return
			}

			if !yield(item, nil) {
				return
			}
		}
	}
}

// Window returns the window of the next page to fetch.
func (it *PageIterator[T]) Window() Window {
	return it.window
}

// Pages returns the number of page fetches issued so far, including the
// terminating empty one.
func (it *PageIterator[T]) Pages() int {
	return it.pages
}

func (it *PageIterator[T]) fetch() {
	w := it.window
	page, err := it.src.fetchPage(it.ctx, w)
	it.pages++
	if err != nil {
		it.fail(wrapDataSourceError(OpFetch, w, err))
		return
	}

	it.logger.Debug("page fetched", "limit", w.Limit, "offset", w.Offset, "rows", len(page))

	if len(page) == 0 {
		if err := it.src.Commit(context.WithoutCancel(it.ctx)); err != nil {
			it.state = stateFailed
			it.err = wrapDataSourceError(OpCommit, w, err)
			it.logger.Warn("commit failed", "pages", it.pages, "error", err)
			return
		}

		it.state = stateDone
		it.logger.Debug("transaction committed", "pages", it.pages)
		return
	}

	it.buf = page
	it.window = w.Next()
}

func (it *PageIterator[T]) fail(err error) {
	if rerr := it.src.Rollback(context.WithoutCancel(it.ctx)); rerr != nil {
		err = errors.Join(err, wrapDataSourceError(OpRollback, it.window, rerr))
	}

	it.state = stateFailed
	it.err = err
	it.buf = nil
	it.logger.Warn("transaction rolled back", "offset", it.window.Offset, "pages", it.pages, "error", err)
}
