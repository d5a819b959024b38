// Package postgresdb provides the PostgreSQL storage of users and tweets.
// The schema is managed by goose migrations embedded in the binary.
package postgresdb

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/patric-chuzhbe/twitoff/internal/db/migrations"
	"github.com/patric-chuzhbe/twitoff/internal/db/sqlstore"
)

// PostgresDB is the PostgreSQL-backed storage.
type PostgresDB struct {
	*sqlstore.Store
}

type initOptions struct {
	DBPreReset bool
}

// InitOption defines a functional option for configuring database initialization.
type InitOption func(*initOptions)

// WithDBPreReset drops every table before the migrations run.
// It is meant for test setups.
func WithDBPreReset(value bool) InitOption {
	return func(options *initOptions) {
		options.DBPreReset = value
	}
}

var queries = sqlstore.Queries{
	UpsertUser: `
		INSERT INTO users (id, name, newest_tweet_id)
			VALUES ($1, $2, $3)
			ON CONFLICT (id) DO UPDATE
			SET
				name = EXCLUDED.name,
				newest_tweet_id = GREATEST(users.newest_tweet_id, EXCLUDED.newest_tweet_id)
	`,
	InsertTweet: `
		INSERT INTO tweets (id, user_id, text, embedding)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (id) DO NOTHING
	`,
	GetUserByID: `SELECT id, name, newest_tweet_id FROM users WHERE id = $1`,
	GetUserByName: `
		SELECT id, name, newest_tweet_id
			FROM users
			WHERE lower(name) = lower($1)
			ORDER BY id
			LIMIT 1
	`,
	GetUserTweets: `
		SELECT id, user_id, text, embedding
			FROM tweets
			WHERE user_id = $1
			ORDER BY id DESC
	`,
}

// New connects to PostgreSQL, runs the migrations and returns the storage.
func New(
	ctx context.Context,
	databaseDSN string,
	connectionTimeout time.Duration,
	optionsProto ...InitOption,
) (*PostgresDB, error) {
	options := &initOptions{
		DBPreReset: false,
	}
	for _, protoOption := range optionsProto {
		protoOption(options)
	}

	database, err := sql.Open("pgx", databaseDSN)
	if err != nil {
		return nil, err
	}

	result := &PostgresDB{
		Store: sqlstore.New(database, connectionTimeout, queries),
	}

	if err := result.Ping(ctx); err != nil {
		_ = database.Close()
		return nil,
			fmt.Errorf(
				"in internal/db/postgresdb/postgresdb.go/New(): error while `result.Ping()` calling: %w",
				err,
			)
	}

	if options.DBPreReset {
		if err := result.resetDB(ctx); err != nil {
			_ = database.Close()
			return nil,
				fmt.Errorf(
					"in internal/db/postgresdb/postgresdb.go/New(): error while `result.resetDB()` calling: %w",
					err,
				)
		}
	}

	if err := migrate(database); err != nil {
		_ = database.Close()
		return nil, err
	}

	return result, nil
}

func migrate(database *sql.DB) error {
	migrationsFS, err := fs.Sub(migrations.FS, migrations.PostgresDir)
	if err != nil {
		return err
	}
	goose.SetBaseFS(migrationsFS)

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf(
			"in internal/db/postgresdb/postgresdb.go/migrate(): error while `goose.SetDialect()` calling: %w",
			err,
		)
	}

	if err := goose.Up(database, "."); err != nil {
		return fmt.Errorf(
			"in internal/db/postgresdb/postgresdb.go/migrate(): error while `goose.Up()` calling: %w",
			err,
		)
	}

	return nil
}

func (db *PostgresDB) resetDB(ctx context.Context) error {
	_, err := db.DB().ExecContext(
		ctx,
		`
			DO $$
			DECLARE
				r RECORD;
			BEGIN
				FOR r IN (SELECT tablename FROM pg_tables WHERE schemaname = 'public') LOOP
					EXECUTE 'DROP TABLE IF EXISTS ' || quote_ident(r.tablename) || ' CASCADE';
				END LOOP;
			END $$;
		`,
	)
	if err != nil {
		return fmt.Errorf(
			"in internal/db/postgresdb/postgresdb.go/resetDB(): error while `db.DB().ExecContext()` calling: %w",
			err,
		)
	}
	return nil
}
