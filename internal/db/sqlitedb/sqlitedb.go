// Package sqlitedb provides the single-file SQLite storage of users and tweets,
// using the pure Go modernc.org/sqlite driver.
package sqlitedb

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"time"

	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"

	"github.com/patric-chuzhbe/twitoff/internal/db/migrations"
	"github.com/patric-chuzhbe/twitoff/internal/db/sqlstore"
)

// SQLiteDB is the SQLite-backed storage.
type SQLiteDB struct {
	*sqlstore.Store
}

var queries = sqlstore.Queries{
	UpsertUser: `
		INSERT INTO users (id, name, newest_tweet_id)
			VALUES (?, ?, ?)
			ON CONFLICT (id) DO UPDATE
			SET
				name = excluded.name,
				newest_tweet_id = MAX(users.newest_tweet_id, excluded.newest_tweet_id)
	`,
	InsertTweet: `
		INSERT INTO tweets (id, user_id, text, embedding)
			VALUES (?, ?, ?, ?)
			ON CONFLICT (id) DO NOTHING
	`,
	GetUserByID: `SELECT id, name, newest_tweet_id FROM users WHERE id = ?`,
	GetUserByName: `
		SELECT id, name, newest_tweet_id
			FROM users
			WHERE lower(name) = lower(?)
			ORDER BY id
			LIMIT 1
	`,
	GetUserTweets: `
		SELECT id, user_id, text, embedding
			FROM tweets
			WHERE user_id = ?
			ORDER BY id DESC
	`,
}

// New opens (creating if needed) the database file at path, enables WAL mode
// and foreign keys, runs the migrations and returns the storage.
// The special path ":memory:" gives a private in-memory database.
func New(ctx context.Context, path string, connectionTimeout time.Duration) (*SQLiteDB, error) {
	database, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("in internal/db/sqlitedb/sqlitedb.go/New(): error while `sql.Open()` calling: %w", err)
	}

	// SQLite serializes writers; one connection also keeps ":memory:" databases alive.
	database.SetMaxOpenConns(1)

	for _, pragma := range []string{`PRAGMA journal_mode=WAL`, `PRAGMA foreign_keys=ON`} {
		if _, err := database.ExecContext(ctx, pragma); err != nil {
			_ = database.Close()
			return nil, fmt.Errorf("in internal/db/sqlitedb/sqlitedb.go/New(): error while `%s` calling: %w", pragma, err)
		}
	}

	result := &SQLiteDB{
		Store: sqlstore.New(database, connectionTimeout, queries),
	}

	if err := migrate(database); err != nil {
		_ = database.Close()
		return nil, err
	}

	return result, nil
}

func migrate(database *sql.DB) error {
	migrationsFS, err := fs.Sub(migrations.FS, migrations.SQLiteDir)
	if err != nil {
		return err
	}
	goose.SetBaseFS(migrationsFS)

	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("in internal/db/sqlitedb/sqlitedb.go/migrate(): error while `goose.SetDialect()` calling: %w", err)
	}

	if err := goose.Up(database, "."); err != nil {
		return fmt.Errorf("in internal/db/sqlitedb/sqlitedb.go/migrate(): error while `goose.Up()` calling: %w", err)
	}

	return nil
}
