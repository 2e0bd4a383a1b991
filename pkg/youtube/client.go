// Package youtube provides a client for the YouTube Data API: fetching a
// video's comment threads and posting replies.
package youtube

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"
)

const defaultBaseURL = "https://www.googleapis.com/youtube/v3"

// maxReplyLength is the YouTube API's cap on comment text.
const maxReplyLength = 10000

// Client performs YouTube Data API operations.
type Client interface {
	// ListComments fetches up to 100 newest top-level comments for a video.
	ListComments(ctx context.Context, videoID string) (*CommentPage, error)
	// InsertReply posts a reply under the given parent comment and returns
	// the new comment's id.
	InsertReply(ctx context.Context, parentID, text string) (string, error)
}

// Comment is one top-level comment from a thread.
type Comment struct {
	ID          string
	Author      string
	AvatarURL   string
	Text        string
	PublishedAt time.Time
	Likes       int
}

// CommentPage holds one page of comments for a video.
type CommentPage struct {
	Comments      []Comment
	TotalResults  int
	NextPageToken string
}

// APIError is a YouTube API failure with the upstream reason preserved.
type APIError struct {
	StatusCode int
	Reason     string
	Message    string
}

func (e *APIError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("youtube: %s (%d): %s", e.Reason, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("youtube: status %d: %s", e.StatusCode, e.Message)
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the default API base URL.
func WithBaseURL(u string) Option {
	return func(c *httpClient) {
		c.baseURL = u
	}
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithRateLimit sets the requests-per-second limit for API calls.
func WithRateLimit(rps float64) Option {
	return func(c *httpClient) {
		c.limiter = rate.NewLimiter(rate.Limit(rps), int(rps))
	}
}

type httpClient struct {
	apiKey  string
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
}

// NewClient creates a YouTube Data API client authenticated by API key.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		http: &http.Client{
			Timeout: 30 * time.Second,
		},
		limiter: rate.NewLimiter(10, 10),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Wire types for the commentThreads endpoint.
type commentSnippet struct {
	TextDisplay           string    `json:"textDisplay"`
	AuthorDisplayName     string    `json:"authorDisplayName"`
	AuthorProfileImageURL string    `json:"authorProfileImageUrl"`
	LikeCount             int       `json:"likeCount"`
	PublishedAt           time.Time `json:"publishedAt"`
}

type commentThread struct {
	ID      string `json:"id"`
	Snippet struct {
		TopLevelComment struct {
			Snippet commentSnippet `json:"snippet"`
		} `json:"topLevelComment"`
	} `json:"snippet"`
}

type commentThreadsResponse struct {
	Items         []commentThread `json:"items"`
	NextPageToken string          `json:"nextPageToken"`
	PageInfo      struct {
		TotalResults int `json:"totalResults"`
	} `json:"pageInfo"`
}

type apiErrorBody struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Errors  []struct {
			Reason string `json:"reason"`
		} `json:"errors"`
	} `json:"error"`
}

func (c *httpClient) ListComments(ctx context.Context, videoID string) (*CommentPage, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "youtube: rate limit wait")
	}

	q := url.Values{}
	q.Set("part", "snippet,replies")
	q.Set("videoId", videoID)
	q.Set("maxResults", "100")
	q.Set("order", "time")
	q.Set("textFormat", "plainText")
	q.Set("key", c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/commentThreads?"+q.Encode(), nil)
	if err != nil {
		return nil, eris.Wrap(err, "youtube: create request")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "youtube: send request")
	}
	defer resp.Body.Close() //nolint:errcheck

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "youtube: read response")
	}

	if resp.StatusCode != http.StatusOK {
		return nil, apiErrorFrom(resp, respBody)
	}

	var data commentThreadsResponse
	if err := json.Unmarshal(respBody, &data); err != nil {
		return nil, eris.Wrap(err, "youtube: unmarshal response")
	}

	page := &CommentPage{
		TotalResults:  data.PageInfo.TotalResults,
		NextPageToken: data.NextPageToken,
	}
	for i, item := range data.Items {
		s := item.Snippet.TopLevelComment.Snippet
		id := item.ID
		if id == "" {
			id = fmt.Sprintf("comment-%d", i)
		}
		page.Comments = append(page.Comments, Comment{
			ID:          id,
			Author:      s.AuthorDisplayName,
			AvatarURL:   s.AuthorProfileImageURL,
			Text:        s.TextDisplay,
			PublishedAt: s.PublishedAt,
			Likes:       s.LikeCount,
		})
	}
	if page.TotalResults == 0 {
		page.TotalResults = len(page.Comments)
	}

	return page, nil
}

type insertReplyRequest struct {
	Snippet struct {
		TextOriginal string `json:"textOriginal"`
		ParentID     string `json:"parentId"`
	} `json:"snippet"`
}

type insertReplyResponse struct {
	ID string `json:"id"`
}

// replyErrorMessages maps known comments.insert failure reasons to messages
// suitable for showing to the user.
var replyErrorMessages = map[string]string{
	"commentTextTooLong":     "Reply text is too long.",
	"parentCommentNotFound":  "The comment you are replying to no longer exists.",
	"operationNotSupported":  "Replies are not supported for this comment.",
	"parentCommentIsPrivate": "The comment you are replying to is private.",
	"commentsDisabled":       "Comments are disabled for this video.",
	"quotaExceeded":          "YouTube API quota exceeded. Try again later.",
}

func (c *httpClient) InsertReply(ctx context.Context, parentID, text string) (string, error) {
	text = strings.TrimSpace(text)
	if parentID == "" {
		return "", eris.New("youtube: parent comment id is required")
	}
	if text == "" {
		return "", eris.New("youtube: reply text cannot be empty")
	}
	if utf8.RuneCountInString(text) > maxReplyLength {
		return "", eris.Errorf("youtube: reply text exceeds %d characters", maxReplyLength)
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return "", eris.Wrap(err, "youtube: rate limit wait")
	}

	var reqBody insertReplyRequest
	reqBody.Snippet.TextOriginal = text
	reqBody.Snippet.ParentID = parentID

	body, err := json.Marshal(reqBody)
	if err != nil {
		return "", eris.Wrap(err, "youtube: marshal request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/comments?part=snippet&key="+url.QueryEscape(c.apiKey), bytes.NewReader(body))
	if err != nil {
		return "", eris.Wrap(err, "youtube: create request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", eris.Wrap(err, "youtube: send request")
	}
	defer resp.Body.Close() //nolint:errcheck

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", eris.Wrap(err, "youtube: read response")
	}

	if resp.StatusCode != http.StatusOK {
		apiErr := apiErrorFrom(resp, respBody)
		if msg, ok := replyErrorMessages[apiErr.Reason]; ok {
			apiErr.Message = msg
		}
		return "", apiErr
	}

	var data insertReplyResponse
	if err := json.Unmarshal(respBody, &data); err != nil {
		return "", eris.Wrap(err, "youtube: unmarshal response")
	}
	if data.ID == "" {
		return "", eris.New("youtube: no comment id returned for reply")
	}

	return data.ID, nil
}

// apiErrorFrom builds an APIError from a non-2xx response, preferring the
// structured error body when present.
func apiErrorFrom(resp *http.Response, body []byte) *APIError {
	apiErr := &APIError{
		StatusCode: resp.StatusCode,
		Message:    resp.Status,
	}
	var parsed apiErrorBody
	if json.Unmarshal(body, &parsed) == nil && parsed.Error.Message != "" {
		apiErr.Message = parsed.Error.Message
		if len(parsed.Error.Errors) > 0 {
			apiErr.Reason = parsed.Error.Errors[0].Reason
		}
	}
	return apiErr
}
