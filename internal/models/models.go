// Package models holds the domain records, view models and sentinel errors
// exchanged between the storage, service and router packages.
package models

import (
	"errors"

	"github.com/patric-chuzhbe/twitoff/internal/user"
)

// MaxStoredTextLength is the number of characters of a tweet kept in storage.
// Embeddings are always computed on the full text.
const MaxStoredTextLength = 300

// Tweet is an ingested original post together with its embedding.
type Tweet struct {
	ID        int64
	UserID    int64
	Text      string
	Embedding []float32
}

// NewTweet builds a Tweet whose Text is truncated to MaxStoredTextLength characters.
func NewTweet(id, userID int64, fullText string, embedding []float32) Tweet {
	return Tweet{
		ID:        id,
		UserID:    userID,
		Text:      TruncateText(fullText, MaxStoredTextLength),
		Embedding: embedding,
	}
}

// TruncateText returns at most limit characters (runes) of text.
func TruncateText(text string, limit int) string {
	if limit <= 0 {
		return ""
	}
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}

	return string(runes[:limit])
}

const (
	StorageTypeUnknown = iota
	StorageTypePostgresql
	StorageTypeSQLite
	StorageTypeMemory
)

// CompareRequest is the form posted to /compare.
type CompareRequest struct {
	User1     string `validate:"required"`
	User2     string `validate:"required"`
	TweetText string `validate:"required"`
}

// UserPage is the view model of the user page.
type UserPage struct {
	Title   string
	Message string
	Tweets  []Tweet
}

// HomePage is the view model of the root, reset and update pages.
type HomePage struct {
	Title   string
	Message string
	Users   []user.User
}

// PredictionPage is the view model of the prediction page.
type PredictionPage struct {
	Title   string
	Message string
}

var (
	// ErrUserNotFound is returned when a user name is not registered in the store.
	ErrUserNotFound = errors.New("user not found")

	// ErrNoTweets is returned when a comparison involves a user without stored tweets.
	ErrNoTweets = errors.New("user has no stored tweets")

	// ErrDimensionMismatch is returned when embeddings of different lengths are mixed.
	ErrDimensionMismatch = errors.New("embedding dimensions do not match")
)
