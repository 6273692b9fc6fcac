package pagedstore

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/iancoleman/strcase"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"go.mongodb.org/mongo-driver/mongo"
	mongoOptions "go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	_ "modernc.org/sqlite"
)

const (
	DriverPgx      = "pgx"
	DriverPostgres = "postgres"
	DriverSqlite   = "sqlite"
)

type Config struct {
	Driver   string
	Host     string
	Port     string
	Database string
	User     string
	Password string
	SSLMode  string

	// DSN is passed to the driver as is when set.
	DSN string

	// SnakeCaseFields maps struct fields without a db tag to snake_case
	// column names in FetchInto.
	SnakeCaseFields bool

	MaxOpenConns int
}

type PGConfig struct {
	Host     string
	Port     string
	Database string
	User     string
	Password string
}

func ConnectPostgresql(config PGConfig) (*sqlx.DB, error) {
	return Connect(Config{
		Driver:   DriverPgx,
		Host:     config.Host,
		Port:     config.Port,
		Database: config.Database,
		User:     config.User,
		Password: config.Password,
	})
}

func Connect(config Config) (*sqlx.DB, error) {
	driver := config.Driver
	if driver == "" {
		driver = DriverPgx
	}

	dsn, err := config.dataSourceName(driver)
	if err != nil {
		return nil, err
	}

	db, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, err
	}

	if config.SnakeCaseFields {
		db.MapperFunc(strcase.ToSnake)
	}

	if config.MaxOpenConns > 0 {
		db.SetMaxOpenConns(config.MaxOpenConns)
	} else if driver == DriverSqlite && dsn == ":memory:" {
		// every connection would open its own empty database
		db.SetMaxOpenConns(1)
	}

	return db, nil
}

func (c Config) dataSourceName(driver string) (string, error) {
	if c.DSN != "" {
		return c.DSN, nil
	}

	sslMode := c.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}

	switch driver {
	case DriverPgx:
		u := url.URL{
			Scheme:   "postgres",
			User:     url.UserPassword(c.User, c.Password),
			Host:     c.Host + ":" + c.Port,
			Path:     "/" + c.Database,
			RawQuery: "sslmode=" + url.QueryEscape(sslMode),
		}
		return u.String(), nil
	case DriverPostgres:
		var parts []string
		for _, kv := range [][2]string{
			{"host", c.Host},
			{"port", c.Port},
			{"dbname", c.Database},
			{"user", c.User},
			{"password", c.Password},
			{"sslmode", sslMode},
		} {
			if kv[1] == "" {
				continue
			}
			parts = append(parts, fmt.Sprintf("%s='%s'", kv[0], pqQuoter.Replace(kv[1])))
		}
		return strings.Join(parts, " "), nil
	case DriverSqlite:
		if c.Database == "" {
			return ":memory:", nil
		}
		return c.Database, nil
	}

	return "", fmt.Errorf("unsupported driver %q, set DSN to connect with it", driver)
}

var pqQuoter = strings.NewReplacer(`\`, `\\`, `'`, `\'`)

func ConnectMongo(ctx context.Context, uri string) (*mongo.Client, error) {
	client, err := mongo.Connect(ctx, mongoOptions.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb. %w", err)
	}

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping mongodb. %w", err)
	}

	return client, nil
}
