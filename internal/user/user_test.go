package user

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAdvanceCursor(t *testing.T) {
	usr := &User{ID: 1, Name: "nasa", NewestTweetID: 100}

	assert.False(t, usr.AdvanceCursor(50), "an older id should not move the cursor")
	assert.Equal(t, int64(100), usr.NewestTweetID)

	assert.False(t, usr.AdvanceCursor(100))
	assert.Equal(t, int64(100), usr.NewestTweetID)

	assert.True(t, usr.AdvanceCursor(150))
	assert.Equal(t, int64(150), usr.NewestTweetID)
}
