// Package twitter is a small client of the Twitter (X) API v2 limited to what
// ingestion needs: resolving a screen name and listing a user's recent
// original posts. Every request goes through a shared rate limiter.
package twitter

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"

	"github.com/patric-chuzhbe/twitoff/internal/metrics"
)

const (
	// MaxTweets is the number of posts a single ingestion fetches at most.
	MaxTweets = 200

	pageSize = 100

	endpointUserByName = "users_by_username"
	endpointUserTweets = "users_tweets"
)

// ErrUserNotFound is returned when the API does not know the screen name.
var ErrUserNotFound = errors.New("twitter user not found")

// APIError is a non-successful API response.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("twitter api responded with status %d: %s", e.Status, e.Body)
}

// Account is a resolved Twitter account.
type Account struct {
	ID       int64
	Username string
	Name     string
}

// Tweet is an original post as returned by the API. Text is not truncated.
type Tweet struct {
	ID   int64
	Text string
}

type apiError struct {
	Title  string `json:"title"`
	Detail string `json:"detail"`
}

type userResponse struct {
	Data *struct {
		ID       string `json:"id"`
		Name     string `json:"name"`
		Username string `json:"username"`
	} `json:"data"`
	Errors []apiError `json:"errors"`
}

type tweetsResponse struct {
	Data []struct {
		ID   string `json:"id"`
		Text string `json:"text"`
	} `json:"data"`
	Meta struct {
		ResultCount int    `json:"result_count"`
		NextToken   string `json:"next_token"`
	} `json:"meta"`
	Errors []apiError `json:"errors"`
}

// Client talks to the API with a bearer token.
type Client struct {
	http    *resty.Client
	limiter *rate.Limiter
}

type initOptions struct {
	retryCount    int
	retryWaitTime time.Duration
	timeout       time.Duration
}

// InitOption customizes New.
type InitOption func(*initOptions)

// WithRetry sets how many times a request answered with 429 or 5xx is retried
// and the initial wait between attempts.
func WithRetry(count int, waitTime time.Duration) InitOption {
	return func(options *initOptions) {
		options.retryCount = count
		options.retryWaitTime = waitTime
	}
}

// WithTimeout sets the timeout of a single request.
func WithTimeout(timeout time.Duration) InitOption {
	return func(options *initOptions) {
		options.timeout = timeout
	}
}

// New returns a client of the API rooted at baseURL (for example https://api.twitter.com/2).
// rps and burst configure the outbound limiter.
func New(baseURL, bearerToken string, rps float64, burst int, optionsProto ...InitOption) *Client {
	options := &initOptions{
		retryCount:    3,
		retryWaitTime: 500 * time.Millisecond,
		timeout:       15 * time.Second,
	}
	for _, protoOption := range optionsProto {
		protoOption(options)
	}

	client := &Client{
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
	}

	client.http = resty.New().
		SetBaseURL(baseURL).
		SetAuthToken(bearerToken).
		SetHeader("Accept", "application/json").
		SetTimeout(options.timeout).
		SetRetryCount(options.retryCount).
		SetRetryWaitTime(options.retryWaitTime).
		SetRetryMaxWaitTime(10 * options.retryWaitTime).
		AddRetryCondition(func(response *resty.Response, err error) bool {
			if response == nil {
				return false
			}
			status := response.StatusCode()
			return status == 429 || status >= 500
		}).
		OnBeforeRequest(func(_ *resty.Client, request *resty.Request) error {
			return client.limiter.Wait(request.Context())
		})

	return client
}

// GetUserByUsername resolves a screen name.
func (c *Client) GetUserByUsername(ctx context.Context, username string) (*Account, error) {
	if username == "" {
		return nil, fmt.Errorf("%w: empty username", ErrUserNotFound)
	}

	result := &userResponse{}
	response, err := c.http.R().
		SetContext(ctx).
		SetPathParam("username", username).
		SetResult(result).
		Get("/users/by/username/{username}")
	if err != nil {
		metrics.ObserveAPIRequest(endpointUserByName, "transport_error")
		return nil, fmt.Errorf("resolving user %q: %w", username, err)
	}
	metrics.ObserveAPIRequest(endpointUserByName, strconv.Itoa(response.StatusCode()))

	if response.StatusCode() == 404 {
		return nil, fmt.Errorf("%w: %s", ErrUserNotFound, username)
	}
	if response.IsError() {
		return nil, &APIError{Status: response.StatusCode(), Body: response.String()}
	}
	if result.Data == nil {
		if len(result.Errors) > 0 {
			return nil, fmt.Errorf("%w: %s: %s", ErrUserNotFound, username, result.Errors[0].Detail)
		}
		return nil, fmt.Errorf("%w: %s", ErrUserNotFound, username)
	}

	id, err := strconv.ParseInt(result.Data.ID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("parsing id of user %q: %w", username, err)
	}

	return &Account{
		ID:       id,
		Username: result.Data.Username,
		Name:     result.Data.Name,
	}, nil
}

// GetUserTweets lists at most MaxTweets of the newest original posts of a user,
// that is without replies and retweets, newer than sinceID. A zero sinceID
// means no lower bound. Pages are fetched sequentially.
func (c *Client) GetUserTweets(ctx context.Context, userID, sinceID int64) ([]Tweet, error) {
	result := make([]Tweet, 0, pageSize)
	paginationToken := ""

	for len(result) < MaxTweets {
		page, err := c.getTweetsPage(ctx, userID, sinceID, paginationToken)
		if err != nil {
			return nil, err
		}

		for _, item := range page.Data {
			id, err := strconv.ParseInt(item.ID, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("parsing tweet id %q: %w", item.ID, err)
			}
			result = append(result, Tweet{ID: id, Text: item.Text})
			if len(result) == MaxTweets {
				break
			}
		}

		if page.Meta.NextToken == "" || len(page.Data) == 0 {
			break
		}
		paginationToken = page.Meta.NextToken
	}

	return result, nil
}

func (c *Client) getTweetsPage(ctx context.Context, userID, sinceID int64, paginationToken string) (*tweetsResponse, error) {
	request := c.http.R().
		SetContext(ctx).
		SetPathParam("id", strconv.FormatInt(userID, 10)).
		SetQueryParam("max_results", strconv.Itoa(pageSize)).
		SetQueryParam("exclude", "replies,retweets").
		SetQueryParam("tweet.fields", "id,text")
	if sinceID > 0 {
		request.SetQueryParam("since_id", strconv.FormatInt(sinceID, 10))
	}
	if paginationToken != "" {
		request.SetQueryParam("pagination_token", paginationToken)
	}

	page := &tweetsResponse{}
	response, err := request.SetResult(page).Get("/users/{id}/tweets")
	if err != nil {
		metrics.ObserveAPIRequest(endpointUserTweets, "transport_error")
		return nil, fmt.Errorf("listing tweets of user %d: %w", userID, err)
	}
	metrics.ObserveAPIRequest(endpointUserTweets, strconv.Itoa(response.StatusCode()))

	if response.StatusCode() == 404 {
		return nil, fmt.Errorf("%w: id %d", ErrUserNotFound, userID)
	}
	if response.IsError() {
		return nil, &APIError{Status: response.StatusCode(), Body: response.String()}
	}
	if len(page.Data) == 0 && len(page.Errors) > 0 {
		return nil, fmt.Errorf("%w: id %d: %s", ErrUserNotFound, userID, page.Errors[0].Detail)
	}

	return page, nil
}
