// Package mockstorage provides a testify-based mock implementation
// of the storage interfaces used by the service and router packages.
package mockstorage

import (
	"context"
	"database/sql"

	"github.com/stretchr/testify/mock"

	"github.com/patric-chuzhbe/twitoff/internal/models"
	"github.com/patric-chuzhbe/twitoff/internal/user"
)

// StorageMock is a testify mock of the user and tweet storage.
type StorageMock struct {
	mock.Mock
}

// Ping mocks the pinger interface to simulate a health check.
func (m *StorageMock) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// BeginTransaction mocks the beginning of a transaction.
func (m *StorageMock) BeginTransaction(ctx context.Context) (*sql.Tx, error) {
	args := m.Called(ctx)
	tx, _ := args.Get(0).(*sql.Tx)
	return tx, args.Error(1)
}

// CommitTransaction mocks committing a transaction.
func (m *StorageMock) CommitTransaction(tx *sql.Tx) error {
	args := m.Called(tx)
	return args.Error(0)
}

// RollbackTransaction mocks rolling back a transaction.
func (m *StorageMock) RollbackTransaction(tx *sql.Tx) error {
	args := m.Called(tx)
	return args.Error(0)
}

func (m *StorageMock) UpsertUser(ctx context.Context, usr *user.User, tx *sql.Tx) error {
	args := m.Called(ctx, usr, tx)
	return args.Error(0)
}

func (m *StorageMock) SaveTweets(ctx context.Context, tweets []models.Tweet, tx *sql.Tx) error {
	args := m.Called(ctx, tweets, tx)
	return args.Error(0)
}

// GetUserByID mocks fetching a user by its Twitter id.
func (m *StorageMock) GetUserByID(ctx context.Context, userID int64, tx *sql.Tx) (*user.User, bool, error) {
	args := m.Called(ctx, userID, tx)
	usr, _ := args.Get(0).(*user.User)
	return usr, args.Bool(1), args.Error(2)
}

// GetUserByName mocks fetching a user by screen name.
func (m *StorageMock) GetUserByName(ctx context.Context, name string, tx *sql.Tx) (*user.User, bool, error) {
	args := m.Called(ctx, name, tx)
	usr, _ := args.Get(0).(*user.User)
	return usr, args.Bool(1), args.Error(2)
}

func (m *StorageMock) GetUsers(ctx context.Context) ([]user.User, error) {
	args := m.Called(ctx)
	users, _ := args.Get(0).([]user.User)
	return users, args.Error(1)
}

func (m *StorageMock) GetUserTweets(ctx context.Context, userID int64) ([]models.Tweet, error) {
	args := m.Called(ctx, userID)
	tweets, _ := args.Get(0).([]models.Tweet)
	return tweets, args.Error(1)
}

// Reset mocks wiping the storage.
func (m *StorageMock) Reset(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// Close mocks closing the storage and releasing resources.
func (m *StorageMock) Close() error {
	args := m.Called()
	return args.Error(0)
}
