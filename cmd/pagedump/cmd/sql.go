package cmd

import (
	"fmt"
	"os"

	"github.com/likearthian/pagedstore"
	"github.com/spf13/cobra"
)

var (
	SQLDriver   string
	SQLDSN      string
	SQLHost     string
	SQLPort     string
	SQLDatabase string
	SQLUser     string
	SQLPassword string
	SQLQuery    string
	SQLArgs     []string
	SQLReadOnly bool
)

var sqlCmd = &cobra.Command{
	Use:   "sql",
	Short: "Page through a SQL query",
	Long: `Run the query repeatedly with a LIMIT/OFFSET window until a page comes back
empty. The query must not contain its own LIMIT or OFFSET. Add an ORDER BY to
get a stable order across pages.

The DSN falls back to $PAGEDUMP_DSN.`,
	Args: cobra.NoArgs,
	RunE: runSQL,
}

func runSQL(cmd *cobra.Command, args []string) error {
	keyMapper, ok := pagedstore.KeyMapperByName(KeyCase)
	if !ok {
		return fmt.Errorf("unknown key case %q", KeyCase)
	}

	dsn := SQLDSN
	if dsn == "" {
		dsn = os.Getenv("PAGEDUMP_DSN")
	}

	db, err := pagedstore.Connect(pagedstore.Config{
		Driver:   SQLDriver,
		DSN:      dsn,
		Host:     SQLHost,
		Port:     SQLPort,
		Database: SQLDatabase,
		User:     SQLUser,
		Password: SQLPassword,
	})
	if err != nil {
		return err
	}
	defer db.Close()

	queryArgs := make([]any, len(SQLArgs))
	for i, a := range SQLArgs {
		queryArgs[i] = a
	}

	logger := newLogger()
	options := []pagedstore.FetchOption{
		pagedstore.WithLogger(logger),
		pagedstore.WithKeyMapper(keyMapper),
		pagedstore.WithArgs(queryArgs...),
	}
	if SQLReadOnly {
		options = append(options, pagedstore.WithReadOnly())
	}

	it, err := pagedstore.Fetch(cmd.Context(), db, SQLQuery, PageSize, options...)
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

func init() {
	sqlCmd.Flags().StringVar(&SQLDriver, "driver", pagedstore.DriverPgx, "Database driver: pgx, postgres or sqlite")
	sqlCmd.Flags().StringVar(&SQLDSN, "dsn", "", "Data source name, overrides the connection flags")
	sqlCmd.Flags().StringVar(&SQLHost, "host", "localhost", "Database host")
	sqlCmd.Flags().StringVar(&SQLPort, "port", "5432", "Database port")
	sqlCmd.Flags().StringVarP(&SQLDatabase, "database", "d", "", "Database name, or file path for sqlite")
	sqlCmd.Flags().StringVarP(&SQLUser, "user", "u", "", "Database user")
	sqlCmd.Flags().StringVar(&SQLPassword, "password", "", "Database password")
	sqlCmd.Flags().StringVarP(&SQLQuery, "query", "q", "", "Base query, without LIMIT/OFFSET")
	sqlCmd.Flags().StringArrayVar(&SQLArgs, "arg", nil, "Query argument, repeat for each placeholder")
	sqlCmd.Flags().BoolVar(&SQLReadOnly, "read-only", false, "Run the read in a read-only transaction")
	sqlCmd.MarkFlagRequired("query")
}
