// Package user defines the registered Twitter account record shared by
// the storage backends, the ingestion service and the HTTP layer.
package user

// User represents a registered Twitter account.
type User struct {
	// ID is the Twitter user id. It is the primary key of the users table.
	ID int64

	// Name is the screen name the account was registered under.
	Name string

	// NewestTweetID is the id of the newest tweet already ingested for the user.
	// It is used as the `since_id` watermark of the next ingestion and only moves forward.
	NewestTweetID int64
}

// AdvanceCursor moves NewestTweetID forward to tweetID.
// An older or equal id leaves the cursor untouched. It reports whether the cursor moved.
func (u *User) AdvanceCursor(tweetID int64) bool {
	if tweetID <= u.NewestTweetID {
		return false
	}
	u.NewestTweetID = tweetID

	return true
}
