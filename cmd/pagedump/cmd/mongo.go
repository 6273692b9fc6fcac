package cmd

import (
	"fmt"
	"os"

	"github.com/likearthian/pagedstore"
	"github.com/spf13/cobra"
	"go.mongodb.org/mongo-driver/bson"
)

var (
	MongoURI        string
	MongoDatabase   string
	MongoCollection string
	MongoFilter     string
	MongoSort       string
	MongoProjection string
)

var mongoCmd = &cobra.Command{
	Use:   "mongo",
	Short: "Page through a MongoDB collection",
	Long: `Run a find repeatedly with skip/limit inside a snapshot transaction until a
page comes back empty. Filter, sort and projection are MongoDB extended JSON.
Transactions need a replica set.

The URI falls back to $PAGEDUMP_MONGO_URI.`,
	Args: cobra.NoArgs,
	RunE: runMongo,
}

func runMongo(cmd *cobra.Command, args []string) error {
	keyMapper, ok := pagedstore.KeyMapperByName(KeyCase)
	if !ok {
		return fmt.Errorf("unknown key case %q", KeyCase)
	}

	query, err := parseMongoQuery(MongoFilter, MongoSort, MongoProjection)
	if err != nil {
		return err
	}

	uri := MongoURI
	if uri == "" {
		uri = os.Getenv("PAGEDUMP_MONGO_URI")
	}

	ctx := cmd.Context()
	client, err := pagedstore.ConnectMongo(ctx, uri)
	if err != nil {
		return err
	}
	defer client.Disconnect(ctx)

	logger := newLogger()
	it, err := pagedstore.FetchDocuments(ctx, client.Database(MongoDatabase), MongoCollection, query, PageSize,
		pagedstore.WithLogger(logger),
		pagedstore.WithKeyMapper(keyMapper),
	)
	if err != nil {
		return err
	}

	n, err := dumpRows(cmd.OutOrStdout(), it.All())
	if err != nil {
		return err
	}

	logger.Info("dump finished", "rows", n, "pages", it.Pages())
	return nil
}

func parseMongoQuery(filter, sort, projection string) (pagedstore.MongoQuery, error) {
	var q pagedstore.MongoQuery
	for _, part := range []struct {
		name string
		src  string
		dest *any
	}{
		{"filter", filter, &q.Filter},
		{"sort", sort, &q.Sort},
		{"projection", projection, &q.Projection},
	} {
		if part.src == "" {
			continue
		}

		var doc bson.D
		if err := bson.UnmarshalExtJSON([]byte(part.src), false, &doc); err != nil {
			return q, fmt.Errorf("invalid %s: %w", part.name, err)
		}
		*part.dest = doc
	}

	return q, nil
}

func init() {
	mongoCmd.Flags().StringVar(&MongoURI, "uri", "", "MongoDB connection string")
	mongoCmd.Flags().StringVarP(&MongoDatabase, "database", "d", "", "Database name")
	mongoCmd.Flags().StringVarP(&MongoCollection, "collection", "c", "", "Collection name")
	mongoCmd.Flags().StringVar(&MongoFilter, "filter", "", "Filter document")
	mongoCmd.Flags().StringVar(&MongoSort, "sort", "", "Sort document")
	mongoCmd.Flags().StringVar(&MongoProjection, "projection", "", "Projection document")
	mongoCmd.MarkFlagRequired("database")
	mongoCmd.MarkFlagRequired("collection")
}
