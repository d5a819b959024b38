package sqlitedb

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/patric-chuzhbe/twitoff/internal/models"
	"github.com/patric-chuzhbe/twitoff/internal/user"
)

func newTestDB(t *testing.T) *SQLiteDB {
	t.Helper()
	db, err := New(context.Background(), filepath.Join(t.TempDir(), "twitoff.db"), time.Second)
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, db.Close())
	})
	return db
}

func TestNewRunsMigrations(t *testing.T) {
	db := newTestDB(t)
	require.NoError(t, db.Ping(context.Background()))

	var tables int
	err := db.DB().QueryRow(
		`SELECT count(*) FROM sqlite_master WHERE type = 'table' AND name IN ('users', 'tweets')`,
	).Scan(&tables)
	require.NoError(t, err)
	assert.Equal(t, 2, tables)
}

func TestReopenKeepsData(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "twitoff.db")

	db, err := New(ctx, path, time.Second)
	require.NoError(t, err)
	require.NoError(t, db.UpsertUser(ctx, &user.User{ID: 1, Name: "nasa", NewestTweetID: 5}, nil))
	require.NoError(t, db.Close())

	db, err = New(ctx, path, time.Second)
	require.NoError(t, err)
	defer db.Close()

	usr, found, err := db.GetUserByName(ctx, "NASA", nil)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, int64(5), usr.NewestTweetID)
}

func TestUpsertInTransaction(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)

	tx, err := db.BeginTransaction(ctx)
	require.NoError(t, err)
	require.NoError(t, db.UpsertUser(ctx, &user.User{ID: 1, Name: "nasa", NewestTweetID: 100}, tx))
	require.NoError(t, db.SaveTweets(ctx, []models.Tweet{
		{ID: 100, UserID: 1, Text: strings.Repeat("x", 400), Embedding: []float32{0.5, -1.25}},
		{ID: 99, UserID: 1, Text: "older", Embedding: []float32{1, 1}},
	}, tx))
	require.NoError(t, db.CommitTransaction(tx))
	require.NoError(t, db.RollbackTransaction(tx), "rollback after commit is not an error")

	require.NoError(t, db.UpsertUser(ctx, &user.User{ID: 1, Name: "nasa", NewestTweetID: 10}, nil))
	require.NoError(t, db.SaveTweets(ctx, []models.Tweet{{ID: 100, UserID: 1, Text: "dup", Embedding: []float32{0}}}, nil))

	users, err := db.GetUsers(ctx)
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, int64(100), users[0].NewestTweetID)

	tweets, err := db.GetUserTweets(ctx, 1)
	require.NoError(t, err)
	require.Len(t, tweets, 2)
	assert.Equal(t, int64(100), tweets[0].ID)
	assert.Len(t, tweets[0].Text, models.MaxStoredTextLength)
	assert.Equal(t, []float32{0.5, -1.25}, tweets[0].Embedding)
}

func TestRollbackDiscardsWrites(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)

	tx, err := db.BeginTransaction(ctx)
	require.NoError(t, err)
	require.NoError(t, db.UpsertUser(ctx, &user.User{ID: 1, Name: "nasa"}, tx))
	require.NoError(t, db.RollbackTransaction(tx))

	_, found, err := db.GetUserByID(ctx, 1, nil)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestReset(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	require.NoError(t, db.UpsertUser(ctx, &user.User{ID: 1, Name: "nasa"}, nil))
	require.NoError(t, db.SaveTweets(ctx, []models.Tweet{{ID: 10, UserID: 1, Text: "hi", Embedding: []float32{1}}}, nil))

	require.NoError(t, db.Reset(ctx))

	users, err := db.GetUsers(ctx)
	require.NoError(t, err)
	assert.Empty(t, users)
	tweets, err := db.GetUserTweets(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, tweets)
}
