package pagedstore

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	mongoOptions "go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readconcern"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.mongodb.org/mongo-driver/mongo/writeconcern"
)

// MongoQuery is the base query of a paged collection read. A nil Filter
// matches every document. Without Sort the order is the server's natural
// order.
type MongoQuery struct {
	Filter     any
	Sort       any
	Projection any
}

func (q MongoQuery) filter() any {
	if q.Filter == nil {
		return bson.D{}
	}

	return q.Filter
}

func mongoFindOptions(q MongoQuery, w Window) *mongoOptions.FindOptions {
	opts := mongoOptions.Find().
		SetSkip(w.Offset).
		SetLimit(int64(w.Limit))

	if q.Sort != nil {
		opts.SetSort(q.Sort)
	}

	if q.Projection != nil {
		opts.SetProjection(q.Projection)
	}

	return opts
}

type mongoSource[T any] struct {
	session    mongo.Session
	collection *mongo.Collection
	query      MongoQuery
	decode     func(cur *mongo.Cursor) (T, error)
}

func (s *mongoSource[T]) fetchPage(ctx context.Context, w Window) ([]T, error) {
	sctx := mongo.NewSessionContext(ctx, s.session)

	cur, err := s.collection.Find(sctx, s.query.filter(), mongoFindOptions(s.query, w))
	if err != nil {
		return nil, err
	}
	defer cur.Close(sctx)

	var page []T
	for cur.Next(sctx) {
		item, err := s.decode(cur)
		if err != nil {
			return nil, err
		}
		page = append(page, item)
	}

	if err := cur.Err(); err != nil {
		return nil, err
	}

	return page, nil
}

func (s *mongoSource[T]) Commit(ctx context.Context) error {
	defer s.session.EndSession(ctx)
	return s.session.CommitTransaction(mongo.NewSessionContext(ctx, s.session))
}

func (s *mongoSource[T]) Rollback(ctx context.Context) error {
	defer s.session.EndSession(ctx)
	return s.session.AbortTransaction(mongo.NewSessionContext(ctx, s.session))
}

// FetchDocuments reads the documents of a collection pageSize at a time, each
// page a Find with skip and limit, inside one snapshot transaction that is
// committed when a page comes back empty and aborted on error or Close.
// Transactions require a replica set or sharded cluster.
func FetchDocuments(ctx context.Context, db *mongo.Database, collection string, q MongoQuery, pageSize int, options ...FetchOption) (*PageIterator[Row], error) {
	opt := newFetchOption(options)
	return fetchMongo(ctx, db, collection, q, pageSize, opt, documentDecoder(opt.keyMapper))
}

// FetchDocumentsInto is FetchDocuments with each document decoded into a T.
func FetchDocumentsInto[T any](ctx context.Context, db *mongo.Database, collection string, q MongoQuery, pageSize int, options ...FetchOption) (*PageIterator[T], error) {
	opt := newFetchOption(options)
	return fetchMongo(ctx, db, collection, q, pageSize, opt, func(cur *mongo.Cursor) (T, error) {
		var item T
		err := cur.Decode(&item)
		return item, err
	})
}

func documentDecoder(fn KeyMapper) func(cur *mongo.Cursor) (Row, error) {
	return func(cur *mongo.Cursor) (Row, error) {
		var doc bson.M
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}

		return mapRowKeys(Row(doc), fn), nil
	}
}

func fetchMongo[T any](ctx context.Context, db *mongo.Database, collection string, q MongoQuery, pageSize int, opt *fetchOption, decode func(*mongo.Cursor) (T, error)) (*PageIterator[T], error) {
	if pageSize <= 0 {
		return nil, fmt.Errorf("%w, got %d", ErrInvalidPageSize, pageSize)
	}

	if collection == "" {
		return nil, ErrEmptyQuery
	}

	session, err := db.Client().StartSession()
	if err != nil {
		return nil, wrapDataSourceError(OpBegin, Window{Limit: pageSize}, fmt.Errorf("failed to create mongodb session. %w", err))
	}

	wc := writeconcern.New(writeconcern.WMajority())
	rc := readconcern.Snapshot()
	txnOpts := mongoOptions.Transaction().
		SetWriteConcern(wc).
		SetReadConcern(rc).
		SetReadPreference(readpref.Primary())

	if err := session.StartTransaction(txnOpts); err != nil {
		session.EndSession(ctx)
		return nil, wrapDataSourceError(OpBegin, Window{Limit: pageSize}, err)
	}

	src := &mongoSource[T]{
		session:    session,
		collection: db.Collection(collection),
		query:      q,
		decode:     decode,
	}

	return newPageIterator[T](ctx, src, pageSize, opt.logger), nil
}
