package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/patric-chuzhbe/twitoff/internal/db/memorystorage"
	"github.com/patric-chuzhbe/twitoff/internal/mockstorage"
	"github.com/patric-chuzhbe/twitoff/internal/models"
	"github.com/patric-chuzhbe/twitoff/internal/predict"
	"github.com/patric-chuzhbe/twitoff/internal/twitter"
	"github.com/patric-chuzhbe/twitoff/internal/user"
)

type fakeTwitter struct {
	accounts  map[string]twitter.Account
	timelines map[int64][]twitter.Tweet
	sinceIDs  []int64
	err       error
}

func newFakeTwitter() *fakeTwitter {
	return &fakeTwitter{
		accounts: map[string]twitter.Account{
			"nasa": {ID: 11, Username: "nasa", Name: "NASA"},
			"chef": {ID: 22, Username: "chef", Name: "Chef"},
			"mute": {ID: 33, Username: "mute", Name: "Silent"},
		},
		timelines: map[int64][]twitter.Tweet{
			11: {
				{ID: 105, Text: "rocket launch to orbit"},
				{ID: 104, Text: "space station orbit"},
				{ID: 103, Text: "rocket engines test"},
			},
			22: {
				{ID: 205, Text: "pasta recipe tonight"},
				{ID: 204, Text: "oven baked pasta"},
				{ID: 203, Text: "new recipe for the oven"},
			},
		},
	}
}

func (f *fakeTwitter) GetUserByUsername(ctx context.Context, username string) (*twitter.Account, error) {
	account, found := f.accounts[strings.ToLower(username)]
	if !found {
		return nil, fmt.Errorf("%w: %s", twitter.ErrUserNotFound, username)
	}
	return &account, nil
}

func (f *fakeTwitter) GetUserTweets(ctx context.Context, userID, sinceID int64) ([]twitter.Tweet, error) {
	f.sinceIDs = append(f.sinceIDs, sinceID)
	if f.err != nil {
		return nil, f.err
	}
	result := []twitter.Tweet{}
	for _, tweet := range f.timelines[userID] {
		if tweet.ID > sinceID {
			result = append(result, tweet)
		}
	}
	return result, nil
}

type keywordEmbedder struct {
	texts []string
	err   error
}

func (k *keywordEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if k.err != nil {
		return nil, k.err
	}
	k.texts = append(k.texts, text)
	lower := strings.ToLower(text)
	space := strings.Count(lower, "rocket") + strings.Count(lower, "orbit") + strings.Count(lower, "space")
	food := strings.Count(lower, "pasta") + strings.Count(lower, "recipe") + strings.Count(lower, "oven")
	return []float32{float32(space), float32(food), 1}, nil
}

type fixture struct {
	db       *memorystorage.MemoryStorage
	twitter  *fakeTwitter
	embedder *keywordEmbedder
	service  *Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := memorystorage.New()
	require.NoError(t, err)

	f := &fixture{
		db:       db,
		twitter:  newFakeTwitter(),
		embedder: &keywordEmbedder{},
	}
	f.service = New(f.db, f.twitter, f.embedder, predict.NewPredictor())
	return f
}

func TestAddOrUpdateUser(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	usr, err := f.service.AddOrUpdateUser(ctx, "NASA")
	require.NoError(t, err)
	assert.Equal(t, &user.User{ID: 11, Name: "nasa", NewestTweetID: 105}, usr)

	tweets, err := f.service.GetUserTweets(ctx, "nasa")
	require.NoError(t, err)
	require.Len(t, tweets, 3)
	assert.Equal(t, int64(105), tweets[0].ID)
	assert.Equal(t, []float32{2, 0, 1}, tweets[0].Embedding)
}

func TestAddOrUpdateUserTwiceAdvancesCursor(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.service.AddOrUpdateUser(ctx, "nasa")
	require.NoError(t, err)

	f.twitter.timelines[11] = append([]twitter.Tweet{{ID: 106, Text: "orbit insertion"}}, f.twitter.timelines[11]...)
	usr, err := f.service.AddOrUpdateUser(ctx, "nasa")
	require.NoError(t, err)

	assert.Equal(t, []int64{0, 105}, f.twitter.sinceIDs)
	assert.Equal(t, int64(106), usr.NewestTweetID)

	users, err := f.service.GetUsers(ctx)
	require.NoError(t, err)
	require.Len(t, users, 1, "the user row must not be duplicated")

	tweets, err := f.service.GetUserTweets(ctx, "nasa")
	require.NoError(t, err)
	assert.Len(t, tweets, 4)
}

func TestAddOrUpdateUserWithoutNewTweetsKeepsCursor(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.service.AddOrUpdateUser(ctx, "nasa")
	require.NoError(t, err)
	usr, err := f.service.AddOrUpdateUser(ctx, "nasa")
	require.NoError(t, err)

	assert.Equal(t, int64(105), usr.NewestTweetID)
}

func TestAddOrUpdateUserTruncatesStoredText(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	longText := strings.Repeat("rocket ", 100)
	f.twitter.timelines[11] = []twitter.Tweet{{ID: 300, Text: longText}}

	_, err := f.service.AddOrUpdateUser(ctx, "nasa")
	require.NoError(t, err)

	tweets, err := f.service.GetUserTweets(ctx, "nasa")
	require.NoError(t, err)
	require.Len(t, tweets, 1)
	assert.Len(t, []rune(tweets[0].Text), models.MaxStoredTextLength)
	assert.Equal(t, []string{longText}, f.embedder.texts, "embeddings use the full text")
	assert.Equal(t, float32(100), tweets[0].Embedding[0])
}

func TestAddOrUpdateUserUpstreamFailureWritesNothing(t *testing.T) {
	ctx := context.Background()

	t.Run("unknown account", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.service.AddOrUpdateUser(ctx, "ghost")
		assert.ErrorIs(t, err, twitter.ErrUserNotFound)
	})

	t.Run("timeline failure", func(t *testing.T) {
		f := newFixture(t)
		f.twitter.err = &twitter.APIError{Status: 503, Body: "over capacity"}
		_, err := f.service.AddOrUpdateUser(ctx, "nasa")
		var apiErr *twitter.APIError
		assert.ErrorAs(t, err, &apiErr)

		users, err := f.db.GetUsers(ctx)
		require.NoError(t, err)
		assert.Empty(t, users)
	})

	t.Run("embedding failure", func(t *testing.T) {
		f := newFixture(t)
		embedErr := errors.New("quota exceeded")
		f.embedder.err = embedErr
		_, err := f.service.AddOrUpdateUser(ctx, "nasa")
		assert.ErrorIs(t, err, embedErr)

		users, err := f.db.GetUsers(ctx)
		require.NoError(t, err)
		assert.Empty(t, users)
	})
}

func TestAddOrUpdateUserRollsBackOnStorageFailure(t *testing.T) {
	db := new(mockstorage.StorageMock)
	storageErr := errors.New("disk full")
	db.On("GetUserByID", mock.Anything, int64(11), mock.Anything).Return(nil, false, nil)
	db.On("BeginTransaction", mock.Anything).Return(nil, nil)
	db.On("UpsertUser", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	db.On("SaveTweets", mock.Anything, mock.Anything, mock.Anything).Return(storageErr)
	db.On("RollbackTransaction", mock.Anything).Return(nil)

	s := New(db, newFakeTwitter(), &keywordEmbedder{}, predict.NewPredictor())
	_, err := s.AddOrUpdateUser(context.Background(), "nasa")

	assert.ErrorIs(t, err, storageErr)
	db.AssertCalled(t, "RollbackTransaction", mock.Anything)
	db.AssertNotCalled(t, "CommitTransaction", mock.Anything)
}

func TestUpdateAllUsers(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	require.NoError(t, f.service.AddUsers(ctx, []string{"nasa", "chef"}))

	f.twitter.timelines[22] = append([]twitter.Tweet{{ID: 206, Text: "pasta again"}}, f.twitter.timelines[22]...)
	users, err := f.service.UpdateAllUsers(ctx)
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, "chef", users[0].Name)
	assert.Equal(t, int64(206), users[0].NewestTweetID)
	assert.Equal(t, int64(105), users[1].NewestTweetID)
}

func TestUpdateAllUsersStopsAtFirstError(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	require.NoError(t, f.service.AddUsers(ctx, []string{"nasa", "chef"}))

	f.twitter.err = errors.New("network down")
	_, err := f.service.UpdateAllUsers(ctx)
	require.Error(t, err)
	assert.Len(t, f.twitter.sinceIDs, 3, "two seeds and one failed update")
}

func TestAddUsersJoinsErrors(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	err := f.service.AddUsers(ctx, []string{"nasa", "ghost", "nasa", "chef"})
	require.Error(t, err)
	assert.ErrorIs(t, err, twitter.ErrUserNotFound)
	assert.Contains(t, err.Error(), "ghost")

	users, err := f.service.GetUsers(ctx)
	require.NoError(t, err)
	assert.Len(t, users, 2)
}

func TestCompareSelfNeverTouchesStorage(t *testing.T) {
	db := new(mockstorage.StorageMock)
	s := New(db, newFakeTwitter(), &keywordEmbedder{}, predict.NewPredictor())

	message, err := s.Compare(context.Background(), "nasa", "NASA", "rocket")
	require.NoError(t, err)
	assert.Equal(t, SelfComparisonMessage, message)
	db.AssertExpectations(t)
	assert.Empty(t, db.Calls)
}

func TestCompareSeparableUsers(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	require.NoError(t, f.service.AddUsers(ctx, []string{"nasa", "chef"}))

	tests := []struct {
		name     string
		text     string
		expected string
	}{
		{name: "space text", text: "rocket to orbit", expected: `"rocket to orbit" is more likely to be said by nasa than chef`},
		{name: "food text", text: "pasta recipe", expected: `"pasta recipe" is more likely to be said by chef than nasa`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, order := range [][2]string{{"nasa", "chef"}, {"chef", "nasa"}} {
				message, err := f.service.Compare(ctx, order[0], order[1], tt.text)
				require.NoError(t, err)
				assert.Contains(t, message, tt.expected)

				var confidence int
				_, err = fmt.Sscanf(message[strings.LastIndex(message, "with ")+len("with "):], "%d%% confidence", &confidence)
				require.NoError(t, err)
				assert.Greater(t, confidence, 50)
			}
		})
	}
}

func TestPredictUserIsProbabilityOfSecondUser(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	require.NoError(t, f.service.AddUsers(ctx, []string{"nasa", "chef"}))

	p, err := f.service.PredictUser(ctx, "chef", "nasa", "rocket rocket orbit")
	require.NoError(t, err)
	assert.Greater(t, p, 0.5)
}

func TestCompareErrors(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	require.NoError(t, f.service.AddUsers(ctx, []string{"nasa", "mute"}))

	_, err := f.service.Compare(ctx, "nasa", "ghost", "rocket")
	assert.ErrorIs(t, err, models.ErrUserNotFound)

	_, err = f.service.Compare(ctx, "nasa", "mute", "rocket")
	assert.ErrorIs(t, err, models.ErrNoTweets)
	assert.Contains(t, err.Error(), "mute")
}

func TestResetAndPing(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	require.NoError(t, f.service.AddUsers(ctx, []string{"nasa"}))

	require.NoError(t, f.service.Reset(ctx))
	require.NoError(t, f.service.Ping(ctx))

	users, err := f.service.GetUsers(ctx)
	require.NoError(t, err)
	assert.Empty(t, users)

	_, err = f.service.GetUserTweets(ctx, "nasa")
	assert.ErrorIs(t, err, models.ErrUserNotFound)
}

func TestResetFailure(t *testing.T) {
	db := new(mockstorage.StorageMock)
	db.On("Reset", mock.Anything).Return(errors.New("locked"))

	err := New(db, newFakeTwitter(), &keywordEmbedder{}, predict.NewPredictor()).Reset(context.Background())
	assert.Error(t, err)
	db.AssertExpectations(t)
}
