// Package memorystorage keeps users and tweets in process memory.
// It is the default storage when neither PostgreSQL nor SQLite is configured
// and backs most tests. Transactions are accepted but are always nil.
package memorystorage

import (
	"context"
	"database/sql"
	"sort"
	"strings"
	"sync"

	"github.com/patric-chuzhbe/twitoff/internal/models"
	"github.com/patric-chuzhbe/twitoff/internal/user"
)

// MemoryStorage is a map-based storage safe for concurrent use.
type MemoryStorage struct {
	mu     sync.RWMutex
	users  map[int64]user.User
	tweets map[int64]models.Tweet
}

// New returns an empty storage.
func New() (*MemoryStorage, error) {
	return &MemoryStorage{
		users:  map[int64]user.User{},
		tweets: map[int64]models.Tweet{},
	}, nil
}

func (m *MemoryStorage) BeginTransaction(ctx context.Context) (*sql.Tx, error) {
	return nil, nil
}

func (m *MemoryStorage) CommitTransaction(transaction *sql.Tx) error {
	return nil
}

func (m *MemoryStorage) RollbackTransaction(transaction *sql.Tx) error {
	return nil
}

// UpsertUser inserts the user or renames it, keeping the greater cursor.
func (m *MemoryStorage) UpsertUser(ctx context.Context, usr *user.User, transaction *sql.Tx) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored, found := m.users[usr.ID]
	if !found {
		m.users[usr.ID] = *usr
		return nil
	}

	stored.Name = usr.Name
	stored.AdvanceCursor(usr.NewestTweetID)
	m.users[usr.ID] = stored

	return nil
}

// SaveTweets stores tweets whose id is not known yet.
func (m *MemoryStorage) SaveTweets(ctx context.Context, tweets []models.Tweet, transaction *sql.Tx) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, tweet := range tweets {
		if _, found := m.tweets[tweet.ID]; found {
			continue
		}
		tweet.Text = models.TruncateText(tweet.Text, models.MaxStoredTextLength)
		tweet.Embedding = append([]float32(nil), tweet.Embedding...)
		m.tweets[tweet.ID] = tweet
	}

	return nil
}

func (m *MemoryStorage) GetUserByID(ctx context.Context, userID int64, transaction *sql.Tx) (*user.User, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	usr, found := m.users[userID]
	if !found {
		return nil, false, nil
	}

	return &usr, true, nil
}

// GetUserByName finds a user by screen name, ignoring case.
// Among equal names the smallest id wins, as in the SQL backends.
func (m *MemoryStorage) GetUserByName(ctx context.Context, name string, transaction *sql.Tx) (*user.User, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result *user.User
	for _, usr := range m.users {
		if !strings.EqualFold(usr.Name, name) {
			continue
		}
		if result == nil || usr.ID < result.ID {
			found := usr
			result = &found
		}
	}

	return result, result != nil, nil
}

func (m *MemoryStorage) GetUsers(ctx context.Context) ([]user.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]user.User, 0, len(m.users))
	for _, usr := range m.users {
		result = append(result, usr)
	}
	sort.Slice(result, func(i, j int) bool {
		left, right := strings.ToLower(result[i].Name), strings.ToLower(result[j].Name)
		if left != right {
			return left < right
		}
		return result[i].ID < result[j].ID
	})

	return result, nil
}

// GetUserTweets lists the tweets of a user, newest first.
func (m *MemoryStorage) GetUserTweets(ctx context.Context, userID int64) ([]models.Tweet, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := []models.Tweet{}
	for _, tweet := range m.tweets {
		if tweet.UserID == userID {
			result = append(result, tweet)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].ID > result[j].ID
	})

	return result, nil
}

// Reset drops every user and tweet.
func (m *MemoryStorage) Reset(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.users = map[int64]user.User{}
	m.tweets = map[int64]models.Tweet{}

	return nil
}

func (m *MemoryStorage) Close() error {
	return nil
}

func (m *MemoryStorage) Ping(ctx context.Context) error {
	return nil
}
