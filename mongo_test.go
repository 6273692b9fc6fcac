package pagedstore

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
	"google.golang.org/api/iterator"
)

func TestMongoFindOptions(t *testing.T) {
	t.Parallel()

	opts := mongoFindOptions(MongoQuery{}, Window{Limit: 1000, Offset: 2000})
	require.NotNil(t, opts.Skip)
	require.NotNil(t, opts.Limit)
	assert.Equal(t, int64(2000), *opts.Skip)
	assert.Equal(t, int64(1000), *opts.Limit)
	assert.Nil(t, opts.Sort)
	assert.Nil(t, opts.Projection)

	sort := bson.D{{Key: "_id", Value: 1}}
	projection := bson.D{{Key: "name", Value: 1}}
	opts = mongoFindOptions(MongoQuery{Sort: sort, Projection: projection}, Window{Limit: 10})
	assert.Equal(t, sort, opts.Sort)
	assert.Equal(t, projection, opts.Projection)
}

func TestMongoQueryFilter(t *testing.T) {
	t.Parallel()

	assert.Equal(t, bson.D{}, MongoQuery{}.filter())

	filter := bson.M{"status": "open"}
	assert.Equal(t, filter, MongoQuery{Filter: filter}.filter())
}

func TestFetchDocumentsRejectsInvalidPageSize(t *testing.T) {
	t.Parallel()

	// validation happens before the database is touched
	_, err := FetchDocuments(context.Background(), nil, "orders", MongoQuery{}, 0)
	assert.ErrorIs(t, err, ErrInvalidPageSize)

	_, err = FetchDocuments(context.Background(), nil, "", MongoQuery{}, 10)
	assert.ErrorIs(t, err, ErrEmptyQuery)
}

func orderDocs(from, count int) []bson.D {
	docs := make([]bson.D, 0, count)
	for i := from; i < from+count; i++ {
		docs = append(docs, bson.D{
			{Key: "_id", Value: int32(i)},
			{Key: "name", Value: fmt.Sprintf("order-%d", i)},
		})
	}

	return docs
}

func orderPage(mt *mtest.T, from, count int) bson.D {
	ns := mt.Coll.Database().Name() + "." + mt.Coll.Name()
	return mtest.CreateCursorResponse(0, ns, mtest.FirstBatch, orderDocs(from, count)...)
}

func commandNames(mt *mtest.T) []string {
	var names []string
	for _, evt := range mt.GetAllStartedEvents() {
		names = append(names, evt.CommandName)
	}

	return names
}

func findSkips(mt *mtest.T) []int64 {
	var skips []int64
	for _, evt := range mt.GetAllStartedEvents() {
		if evt.CommandName != "find" {
			continue
		}

		v := evt.Command.Lookup("skip")
		switch v.Type {
		case bsontype.Int32:
			skips = append(skips, int64(v.Int32()))
		case bsontype.Int64:
			skips = append(skips, v.Int64())
		}
	}

	return skips
}

func TestFetchDocumentsTransaction(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	defer mt.Close()

	mt.Run("commit on empty page", func(mt *mtest.T) {
		mt.AddMockResponses(
			orderPage(mt, 0, 2),
			orderPage(mt, 2, 1),
			orderPage(mt, 3, 0),
			mtest.CreateSuccessResponse(),
		)
		mt.ClearEvents()

		it, err := FetchDocuments(context.Background(), mt.DB, mt.Coll.Name(), MongoQuery{}, 2)
		require.NoError(mt, err)

		var ids []int32
		for row, err := range it.All() {
			require.NoError(mt, err)
			ids = append(ids, row["_id"].(int32))
		}

		assert.Equal(mt, []int32{0, 1, 2}, ids)
		assert.Equal(mt, 3, it.Pages())
		assert.Equal(mt, []string{"find", "find", "find", "commitTransaction"}, commandNames(mt))
		assert.Equal(mt, []int64{0, 2, 4}, findSkips(mt))

		// nothing is sent once the read has ended
		_, err = it.Next()
		assert.Equal(mt, iterator.Done, err)
		assert.Len(mt, mt.GetAllStartedEvents(), 4)
	})

	mt.Run("abort on find error", func(mt *mtest.T) {
		mt.AddMockResponses(
			orderPage(mt, 0, 2),
			mtest.CreateCommandErrorResponse(mtest.CommandError{
				Code:    251,
				Name:    "NoSuchTransaction",
				Message: "transaction aborted",
				Labels:  []string{"TransientTransactionError"},
			}),
			mtest.CreateSuccessResponse(),
		)
		mt.ClearEvents()

		it, err := FetchDocuments(context.Background(), mt.DB, mt.Coll.Name(), MongoQuery{}, 2)
		require.NoError(mt, err)

		n := 0
		var fetchErr error
		for _, err := range it.All() {
			if err != nil {
				fetchErr = err
				break
			}
			n++
		}

		assert.Equal(mt, 2, n)
		require.Error(mt, fetchErr)
		assert.True(mt, IsTransient(fetchErr))

		var dsErr *DataSourceError
		require.ErrorAs(mt, fetchErr, &dsErr)
		assert.Equal(mt, OpFetch, dsErr.Op)
		assert.Equal(mt, int64(2), dsErr.Window.Offset)

		assert.Equal(mt, []string{"find", "find", "abortTransaction"}, commandNames(mt))

		_, again := it.Next()
		assert.Equal(mt, fetchErr, again)
		assert.Len(mt, mt.GetAllStartedEvents(), 3)
	})

	mt.Run("abort on close", func(mt *mtest.T) {
		mt.AddMockResponses(
			orderPage(mt, 0, 2),
			mtest.CreateSuccessResponse(),
		)
		mt.ClearEvents()

		it, err := FetchDocuments(context.Background(), mt.DB, mt.Coll.Name(), MongoQuery{}, 2)
		require.NoError(mt, err)

		row, err := it.Next()
		require.NoError(mt, err)
		assert.Equal(mt, "order-0", row["name"])

		require.NoError(mt, it.Close())
		assert.Equal(mt, []string{"find", "abortTransaction"}, commandNames(mt))

		_, err = it.Next()
		assert.ErrorIs(mt, err, ErrIteratorClosed)
		assert.Len(mt, mt.GetAllStartedEvents(), 2)
	})

	mt.Run("decode into struct", func(mt *mtest.T) {
		type order struct {
			ID   int32  `bson:"_id"`
			Name string `bson:"name"`
		}

		mt.AddMockResponses(
			orderPage(mt, 0, 1),
			orderPage(mt, 1, 0),
			mtest.CreateSuccessResponse(),
		)

		it, err := FetchDocumentsInto[order](context.Background(), mt.DB, mt.Coll.Name(), MongoQuery{}, 1)
		require.NoError(mt, err)

		var orders []order
		for v, err := range it.All() {
			require.NoError(mt, err)
			orders = append(orders, v)
		}

		assert.Equal(mt, []order{{ID: 0, Name: "order-0"}}, orders)
	})
}
