// Package service implements the TwitOff use cases: ingesting Twitter users
// with their embedded tweets, and predicting which of two users is more
// likely to have written a text.
package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/thoas/go-funk"

	"github.com/patric-chuzhbe/twitoff/internal/logger"
	"github.com/patric-chuzhbe/twitoff/internal/metrics"
	"github.com/patric-chuzhbe/twitoff/internal/models"
	"github.com/patric-chuzhbe/twitoff/internal/twitter"
	"github.com/patric-chuzhbe/twitoff/internal/user"
)

// SelfComparisonMessage is returned by Compare when both names are the same user.
const SelfComparisonMessage = "Cannot compare a user to themselves!"

type transactioner interface {
	BeginTransaction(ctx context.Context) (*sql.Tx, error)

	RollbackTransaction(transaction *sql.Tx) error

	CommitTransaction(transaction *sql.Tx) error
}

type userKeeper interface {
	UpsertUser(ctx context.Context, usr *user.User, transaction *sql.Tx) error

	GetUserByID(ctx context.Context, userID int64, transaction *sql.Tx) (*user.User, bool, error)

	GetUserByName(ctx context.Context, name string, transaction *sql.Tx) (*user.User, bool, error)

	GetUsers(ctx context.Context) ([]user.User, error)
}

type tweetKeeper interface {
	SaveTweets(ctx context.Context, tweets []models.Tweet, transaction *sql.Tx) error

	GetUserTweets(ctx context.Context, userID int64) ([]models.Tweet, error)
}

type resetter interface {
	Reset(ctx context.Context) error
}

type pinger interface {
	Ping(ctx context.Context) error
}

// Storage is everything the service needs from a storage backend.
type Storage interface {
	transactioner
	userKeeper
	tweetKeeper
	resetter
	pinger
}

type twitterClient interface {
	GetUserByUsername(ctx context.Context, username string) (*twitter.Account, error)

	GetUserTweets(ctx context.Context, userID, sinceID int64) ([]twitter.Tweet, error)
}

type embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

type predictor interface {
	Predict(first, second [][]float32, query []float32) (float64, error)
}

type Service struct {
	db        Storage
	twitter   twitterClient
	embedder  embedder
	predictor predictor
}

func New(
	db Storage,
	twitter twitterClient,
	embedder embedder,
	predictor predictor,
) *Service {
	return &Service{
		db:        db,
		twitter:   twitter,
		embedder:  embedder,
		predictor: predictor,
	}
}

// AddOrUpdateUser registers the Twitter account name, or refreshes it when it
// is already known, and stores its original posts newer than the stored cursor.
// The account, tweets and embeddings are all fetched before anything is written,
// so an upstream failure leaves the store untouched.
func (s *Service) AddOrUpdateUser(ctx context.Context, name string) (usr *user.User, err error) {
	start := time.Now()
	fetched := 0
	defer func() {
		metrics.ObserveIngest(start, fetched, err)
	}()

	account, err := s.twitter.GetUserByUsername(ctx, name)
	if err != nil {
		return nil, err
	}

	stored, found, err := s.db.GetUserByID(ctx, account.ID, nil)
	if err != nil {
		return nil, fmt.Errorf("in internal/service/service.go/AddOrUpdateUser(): error while `s.db.GetUserByID()` calling: %w", err)
	}

	usr = &user.User{ID: account.ID, Name: account.Username}
	if found {
		usr.NewestTweetID = stored.NewestTweetID
	}

	posts, err := s.twitter.GetUserTweets(ctx, account.ID, usr.NewestTweetID)
	if err != nil {
		return nil, err
	}
	fetched = len(posts)

	tweets := make([]models.Tweet, 0, len(posts))
	for _, post := range posts {
		embedding, err := s.embedder.Embed(ctx, post.Text)
		if err != nil {
			return nil, fmt.Errorf("embedding tweet %d: %w", post.ID, err)
		}
		tweets = append(tweets, models.NewTweet(post.ID, account.ID, post.Text, embedding))
		usr.AdvanceCursor(post.ID)
	}

	if err := s.save(ctx, usr, tweets); err != nil {
		return nil, err
	}

	logger.Log.Infow("user ingested", "user", usr.Name, "id", usr.ID, "tweets", len(tweets), "cursor", usr.NewestTweetID)

	return usr, nil
}

func (s *Service) save(ctx context.Context, usr *user.User, tweets []models.Tweet) error {
	tx, err := s.db.BeginTransaction(ctx)
	if err != nil {
		return fmt.Errorf("in internal/service/service.go/save(): error while `s.db.BeginTransaction()` calling: %w", err)
	}
	defer func() {
		_ = s.db.RollbackTransaction(tx)
	}()

	if err := s.db.UpsertUser(ctx, usr, tx); err != nil {
		return fmt.Errorf("in internal/service/service.go/save(): error while `s.db.UpsertUser()` calling: %w", err)
	}

	if err := s.db.SaveTweets(ctx, tweets, tx); err != nil {
		return fmt.Errorf("in internal/service/service.go/save(): error while `s.db.SaveTweets()` calling: %w", err)
	}

	if err := s.db.CommitTransaction(tx); err != nil {
		return fmt.Errorf("in internal/service/service.go/save(): error while `s.db.CommitTransaction()` calling: %w", err)
	}

	return nil
}

// UpdateAllUsers refreshes every stored user, one after another.
// It stops at the first failure.
func (s *Service) UpdateAllUsers(ctx context.Context) ([]user.User, error) {
	users, err := s.db.GetUsers(ctx)
	if err != nil {
		return nil, err
	}

	for _, usr := range users {
		if _, err := s.AddOrUpdateUser(ctx, usr.Name); err != nil {
			return nil, fmt.Errorf("updating %s: %w", usr.Name, err)
		}
	}

	return s.db.GetUsers(ctx)
}

// AddUsers registers every name. A failing name does not stop the others;
// the failures are joined into the returned error.
func (s *Service) AddUsers(ctx context.Context, names []string) error {
	var errs []error
	for _, name := range funk.UniqString(names) {
		if _, err := s.AddOrUpdateUser(ctx, name); err != nil {
			logger.Log.Errorw("seeding user failed", "user", name, "error", err)
			errs = append(errs, fmt.Errorf("adding %s: %w", name, err))
		}
	}

	return errors.Join(errs...)
}

// GetUsers lists the registered users ordered by name.
func (s *Service) GetUsers(ctx context.Context) ([]user.User, error) {
	return s.db.GetUsers(ctx)
}

// GetUserTweets lists the stored tweets of the user called name, newest first.
func (s *Service) GetUserTweets(ctx context.Context, name string) ([]models.Tweet, error) {
	usr, err := s.getUserByName(ctx, name)
	if err != nil {
		return nil, err
	}

	return s.db.GetUserTweets(ctx, usr.ID)
}

// Compare predicts which of the two users is more likely to have written text
// and returns the sentence shown to the user.
func (s *Service) Compare(ctx context.Context, name1, name2, text string) (message string, err error) {
	user1, user2 := name1, name2
	if strings.ToLower(user2) < strings.ToLower(user1) {
		user1, user2 = user2, user1
	}
	if strings.EqualFold(user1, user2) {
		return SelfComparisonMessage, nil
	}

	start := time.Now()
	defer func() {
		metrics.ObserveCompare(start, err)
	}()

	probability, err := s.PredictUser(ctx, user1, user2, text)
	if err != nil {
		return "", err
	}

	confidence := int(probability * 100)
	if confidence >= 50 {
		return fmt.Sprintf("\"%s\" is more likely to be said by %s than %s, with %d%% confidence",
			text, user2, user1, confidence), nil
	}

	return fmt.Sprintf("\"%s\" is more likely to be said by %s than %s, with %d%% confidence",
		text, user1, user2, 100-confidence), nil
}

// PredictUser returns the probability that text was written by user2 rather than user1.
func (s *Service) PredictUser(ctx context.Context, user1, user2, text string) (float64, error) {
	first, err := s.getUserEmbeddings(ctx, user1)
	if err != nil {
		return 0, err
	}

	second, err := s.getUserEmbeddings(ctx, user2)
	if err != nil {
		return 0, err
	}

	query, err := s.embedder.Embed(ctx, text)
	if err != nil {
		return 0, fmt.Errorf("embedding text: %w", err)
	}

	return s.predictor.Predict(first, second, query)
}

func (s *Service) getUserEmbeddings(ctx context.Context, name string) ([][]float32, error) {
	tweets, err := s.GetUserTweets(ctx, name)
	if err != nil {
		return nil, err
	}
	if len(tweets) == 0 {
		return nil, fmt.Errorf("%w: %s", models.ErrNoTweets, name)
	}

	return funk.Map(tweets, func(tweet models.Tweet) []float32 {
		return tweet.Embedding
	}).([][]float32), nil
}

func (s *Service) getUserByName(ctx context.Context, name string) (*user.User, error) {
	usr, found, err := s.db.GetUserByName(ctx, name, nil)
	if err != nil {
		return nil, fmt.Errorf("in internal/service/service.go/getUserByName(): error while `s.db.GetUserByName()` calling: %w", err)
	}
	if !found {
		return nil, fmt.Errorf("%w: %s", models.ErrUserNotFound, name)
	}

	return usr, nil
}

// Reset deletes every user and tweet.
func (s *Service) Reset(ctx context.Context) error {
	if err := s.db.Reset(ctx); err != nil {
		return fmt.Errorf("in internal/service/service.go/Reset(): error while `s.db.Reset()` calling: %w", err)
	}
	logger.Log.Infow("storage reset")

	return nil
}

// Ping checks the health of the storage layer.
func (s *Service) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}
