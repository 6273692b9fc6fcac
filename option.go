package pagedstore

import (
	"database/sql"
	"io"
	"log/slog"
)

type FetchOption func(o *fetchOption)

type fetchOption struct {
	args      []any
	dialect   Dialect
	txOptions *sql.TxOptions
	keyMapper KeyMapper
	logger    *slog.Logger
}

func newFetchOption(options []FetchOption) *fetchOption {
	opt := &fetchOption{}
	for _, op := range options {
		op(opt)
	}

	if opt.logger == nil {
		opt.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return opt
}

// WithArgs sets the arguments bound to the placeholders of the base query.
// They are passed before the window arguments.
func WithArgs(args ...any) FetchOption {
	return func(o *fetchOption) {
		o.args = args
	}
}

// WithDialect overrides the window clause dialect guessed from the driver name.
func WithDialect(d Dialect) FetchOption {
	return func(o *fetchOption) {
		o.dialect = d
	}
}

// WithTxOptions sets the isolation level and read-only flag of the
// transaction spanning the fetch.
func WithTxOptions(txOptions *sql.TxOptions) FetchOption {
	return func(o *fetchOption) {
		o.txOptions = txOptions
	}
}

func WithReadOnly() FetchOption {
	return func(o *fetchOption) {
		txOptions := sql.TxOptions{}
		if o.txOptions != nil {
			txOptions = *o.txOptions
		}
		txOptions.ReadOnly = true
		o.txOptions = &txOptions
	}
}

// WithKeyMapper renames the keys of every Row produced by the fetch.
func WithKeyMapper(fn KeyMapper) FetchOption {
	return func(o *fetchOption) {
		o.keyMapper = fn
	}
}

func WithLogger(logger *slog.Logger) FetchOption {
	return func(o *fetchOption) {
		o.logger = logger
	}
}
