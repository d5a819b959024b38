// Package sqlstore implements the User/Tweet storage on top of database/sql.
// The PostgreSQL and SQLite backends share it and only differ in the driver,
// the migrations and the dialect-specific statements passed in Queries.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/patric-chuzhbe/twitoff/internal/models"
	"github.com/patric-chuzhbe/twitoff/internal/user"
	"github.com/patric-chuzhbe/twitoff/internal/vector"
)

// Queries holds the dialect-specific statements of a backend.
type Queries struct {
	// UpsertUser takes (id, name, newest_tweet_id). On conflict it must update the
	// name and keep the greater of the stored and the given cursor.
	UpsertUser string

	// InsertTweet takes (id, user_id, text, embedding) and must ignore existing ids.
	InsertTweet string

	// GetUserByID takes (id) and selects (id, name, newest_tweet_id).
	GetUserByID string

	// GetUserByName takes (name) and selects (id, name, newest_tweet_id), matching case-insensitively.
	GetUserByName string

	// GetUserTweets takes (user_id) and selects (id, user_id, text, embedding).
	GetUserTweets string
}

// Store is a database/sql backed storage.
type Store struct {
	database          *sql.DB
	connectionTimeout time.Duration
	queries           Queries
}

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type executor interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// New wraps an opened and migrated database.
func New(database *sql.DB, connectionTimeout time.Duration, queries Queries) *Store {
	return &Store{
		database:          database,
		connectionTimeout: connectionTimeout,
		queries:           queries,
	}
}

// DB exposes the underlying connection pool to the backend packages.
func (s *Store) DB() *sql.DB {
	return s.database
}

func (s *Store) queryer(transaction *sql.Tx) queryer {
	if transaction == nil {
		return s.database
	}

	return transaction
}

func (s *Store) executor(transaction *sql.Tx) executor {
	if transaction == nil {
		return s.database
	}

	return transaction
}

// BeginTransaction starts a new SQL transaction.
// The caller is responsible for committing or rolling it back.
func (s *Store) BeginTransaction(ctx context.Context) (*sql.Tx, error) {
	return s.database.BeginTx(ctx, nil)
}

// CommitTransaction commits the given SQL transaction.
func (s *Store) CommitTransaction(transaction *sql.Tx) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic occurred while committing transaction: %v", r)
		}
	}()

	return transaction.Commit()
}

// RollbackTransaction rolls back the given SQL transaction.
// Rolling back an already committed transaction is not an error.
func (s *Store) RollbackTransaction(transaction *sql.Tx) error {
	err := transaction.Rollback()
	if errors.Is(err, sql.ErrTxDone) {
		return nil
	}

	return err
}

// UpsertUser inserts the user or, when the id is known, renames it and moves
// its cursor forward. The stored cursor never decreases.
func (s *Store) UpsertUser(ctx context.Context, usr *user.User, transaction *sql.Tx) error {
	_, err := s.executor(transaction).ExecContext(
		ctx,
		s.queries.UpsertUser,
		usr.ID,
		usr.Name,
		usr.NewestTweetID,
	)
	if err != nil {
		return fmt.Errorf("in internal/db/sqlstore/sqlstore.go/UpsertUser(): error while `ExecContext()` calling: %w", err)
	}

	return nil
}

// SaveTweets inserts the tweets. Tweets whose id is already stored are left unchanged.
func (s *Store) SaveTweets(ctx context.Context, tweets []models.Tweet, transaction *sql.Tx) error {
	database := s.executor(transaction)
	for _, tweet := range tweets {
		_, err := database.ExecContext(
			ctx,
			s.queries.InsertTweet,
			tweet.ID,
			tweet.UserID,
			models.TruncateText(tweet.Text, models.MaxStoredTextLength),
			vector.Encode(tweet.Embedding),
		)
		if err != nil {
			return fmt.Errorf("in internal/db/sqlstore/sqlstore.go/SaveTweets(): error while `ExecContext()` calling: %w", err)
		}
	}

	return nil
}

// GetUserByID fetches a user by its Twitter id.
func (s *Store) GetUserByID(ctx context.Context, userID int64, transaction *sql.Tx) (*user.User, bool, error) {
	return s.getUser(ctx, s.queries.GetUserByID, userID, transaction)
}

// GetUserByName fetches a user by screen name, ignoring case.
func (s *Store) GetUserByName(ctx context.Context, name string, transaction *sql.Tx) (*user.User, bool, error) {
	return s.getUser(ctx, s.queries.GetUserByName, name, transaction)
}

func (s *Store) getUser(ctx context.Context, query string, arg any, transaction *sql.Tx) (*user.User, bool, error) {
	row := s.queryer(transaction).QueryRowContext(ctx, query, arg)

	usr := &user.User{}
	err := row.Scan(&usr.ID, &usr.Name, &usr.NewestTweetID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("in internal/db/sqlstore/sqlstore.go/getUser(): error while `row.Scan()` calling: %w", err)
	}

	return usr, true, nil
}

// GetUsers lists every registered user ordered by name.
func (s *Store) GetUsers(ctx context.Context) ([]user.User, error) {
	rows, err := s.database.QueryContext(
		ctx,
		`SELECT id, name, newest_tweet_id FROM users ORDER BY lower(name), id`,
	)
	if err != nil {
		return nil, fmt.Errorf("in internal/db/sqlstore/sqlstore.go/GetUsers(): error while `QueryContext()` calling: %w", err)
	}
	defer rows.Close()

	result := []user.User{}
	for rows.Next() {
		var usr user.User
		if err := rows.Scan(&usr.ID, &usr.Name, &usr.NewestTweetID); err != nil {
			return nil, err
		}
		result = append(result, usr)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

// GetUserTweets lists the stored tweets of a user, newest first.
func (s *Store) GetUserTweets(ctx context.Context, userID int64) ([]models.Tweet, error) {
	rows, err := s.database.QueryContext(ctx, s.queries.GetUserTweets, userID)
	if err != nil {
		return nil, fmt.Errorf("in internal/db/sqlstore/sqlstore.go/GetUserTweets(): error while `QueryContext()` calling: %w", err)
	}
	defer rows.Close()

	result := []models.Tweet{}
	for rows.Next() {
		var tweet models.Tweet
		var blob []byte
		if err := rows.Scan(&tweet.ID, &tweet.UserID, &tweet.Text, &blob); err != nil {
			return nil, err
		}
		tweet.Embedding, err = vector.Decode(blob)
		if err != nil {
			return nil, err
		}
		result = append(result, tweet)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

// Reset deletes every tweet and user in one transaction.
func (s *Store) Reset(ctx context.Context) error {
	transaction, err := s.BeginTransaction(ctx)
	if err != nil {
		return err
	}
	defer func() {
		_ = s.RollbackTransaction(transaction)
	}()

	for _, statement := range []string{`DELETE FROM tweets`, `DELETE FROM users`} {
		if _, err := transaction.ExecContext(ctx, statement); err != nil {
			return fmt.Errorf("in internal/db/sqlstore/sqlstore.go/Reset(): error while `ExecContext()` calling: %w", err)
		}
	}

	return s.CommitTransaction(transaction)
}

// Ping verifies connectivity with the database within the configured timeout.
func (s *Store) Ping(ctx context.Context) error {
	ctxWithTimeout, cancel := context.WithTimeout(ctx, s.connectionTimeout)
	defer cancel()

	return s.database.PingContext(ctxWithTimeout)
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.database.Close()
}
