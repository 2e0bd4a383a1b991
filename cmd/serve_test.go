package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sells-group/leadpulse/internal/classifier"
	"github.com/sells-group/leadpulse/internal/leads"
	"github.com/sells-group/leadpulse/internal/model"
	"github.com/sells-group/leadpulse/internal/store"
	"github.com/sells-group/leadpulse/pkg/gemini"
	"github.com/sells-group/leadpulse/pkg/youtube"
)

type stubYouTube struct {
	page     *youtube.CommentPage
	listErr  error
	replyID  string
	replyErr error
}

func (s *stubYouTube) ListComments(_ context.Context, _ string) (*youtube.CommentPage, error) {
	return s.page, s.listErr
}

func (s *stubYouTube) InsertReply(_ context.Context, _, _ string) (string, error) {
	return s.replyID, s.replyErr
}

type stubGemini struct {
	fn func(ctx context.Context, req gemini.GenerateContentRequest) (*gemini.GenerateContentResponse, error)
}

func (s *stubGemini) GenerateContent(ctx context.Context, req gemini.GenerateContentRequest) (*gemini.GenerateContentResponse, error) {
	return s.fn(ctx, req)
}

var idPattern = regexp.MustCompile(`\[ID: ([^\]]+)\]`)

func gradeAll(leadType string) *stubGemini {
	return &stubGemini{fn: func(_ context.Context, req gemini.GenerateContentRequest) (*gemini.GenerateContentResponse, error) {
		var results []model.ClassificationResult
		for _, m := range idPattern.FindAllStringSubmatch(req.Contents[0].Parts[0].Text, -1) {
			results = append(results, model.ClassificationResult{
				ID: m[1], LeadType: model.LeadType(leadType), LeadReason: "r", Reply: "ok",
			})
		}
		body, _ := json.Marshal(results)
		return &gemini.GenerateContentResponse{
			Candidates: []gemini.Candidate{
				{Content: gemini.Content{Parts: []gemini.Part{{Text: string(body)}}}},
			},
		}, nil
	}}
}

func newTestServer(t *testing.T, yt youtube.Client, gm gemini.Client) *httptest.Server {
	t.Helper()

	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "api.db"))
	require.NoError(t, err)
	require.NoError(t, st.Migrate(context.Background()))
	t.Cleanup(func() { st.Close() })

	cls := classifier.New(gm,
		classifier.WithLogger(zap.NewNop()),
		classifier.WithTimeout(2*time.Second),
	)
	svc := leads.NewService(yt, cls,
		leads.WithStore(st),
		leads.WithLogger(zap.NewNop()),
	)

	srv := httptest.NewServer(newRouter(svc, []string{"*"}))
	t.Cleanup(srv.Close)
	return srv
}

func doRequest(t *testing.T, method, url string, body any, userID string) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, url, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if userID != "" {
		req.Header.Set("X-User-ID", userID)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func TestHealthOpen(t *testing.T) {
	srv := newTestServer(t, &stubYouTube{}, gradeAll("cold"))

	resp := doRequest(t, http.MethodGet, srv.URL+"/health", nil, "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestAPIRequiresUser(t *testing.T) {
	srv := newTestServer(t, &stubYouTube{}, gradeAll("cold"))

	resp := doRequest(t, http.MethodGet, srv.URL+"/api/analyses/last", nil, "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestGetComments(t *testing.T) {
	yt := &stubYouTube{page: &youtube.CommentPage{
		Comments: []youtube.Comment{
			{ID: "c1", Author: "alice", Text: "price?", PublishedAt: time.Now().Add(-time.Hour)},
		},
		TotalResults: 1,
	}}
	srv := newTestServer(t, yt, gradeAll("cold"))

	resp := doRequest(t, http.MethodGet,
		srv.URL+"/api/comments?url=https://youtu.be/dQw4w9WgXcQ", nil, "user-1")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body := decode[map[string]any](t, resp)
	assert.Equal(t, "dQw4w9WgXcQ", body["video_id"])
	assert.Equal(t, float64(1), body["total"])
}

func TestGetComments_MissingURL(t *testing.T) {
	srv := newTestServer(t, &stubYouTube{}, gradeAll("cold"))

	resp := doRequest(t, http.MethodGet, srv.URL+"/api/comments", nil, "user-1")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestGetComments_BadURL(t *testing.T) {
	srv := newTestServer(t, &stubYouTube{}, gradeAll("cold"))

	resp := doRequest(t, http.MethodGet,
		srv.URL+"/api/comments?url=https://vimeo.com/99", nil, "user-1")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestGetComments_QuotaMapped(t *testing.T) {
	yt := &stubYouTube{listErr: &youtube.APIError{StatusCode: 403, Reason: "quotaExceeded", Message: "quota exceeded"}}
	srv := newTestServer(t, yt, gradeAll("cold"))

	resp := doRequest(t, http.MethodGet,
		srv.URL+"/api/comments?url=https://youtu.be/dQw4w9WgXcQ", nil, "user-1")
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestClassify(t *testing.T) {
	srv := newTestServer(t, &stubYouTube{}, gradeAll("hot"))

	body := map[string]any{"comments": []model.Comment{
		{ID: "c1", Text: "how much?"},
		{ID: "c2", Text: "where to buy?"},
	}}
	resp := doRequest(t, http.MethodPost, srv.URL+"/api/classify", body, "user-1")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	outcome := decode[classifier.Outcome](t, resp)
	require.Len(t, outcome.Comments, 2)
	assert.Equal(t, model.LeadHot, outcome.Comments[0].LeadType)
	assert.Equal(t, 1, outcome.BatchesProcessed)
}

func TestClassify_EmptyBody(t *testing.T) {
	srv := newTestServer(t, &stubYouTube{}, gradeAll("hot"))

	resp := doRequest(t, http.MethodPost, srv.URL+"/api/classify",
		map[string]any{"comments": []model.Comment{}}, "user-1")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestClassify_UpstreamGarbage(t *testing.T) {
	gm := &stubGemini{fn: func(_ context.Context, _ gemini.GenerateContentRequest) (*gemini.GenerateContentResponse, error) {
		return &gemini.GenerateContentResponse{
			Candidates: []gemini.Candidate{
				{Content: gemini.Content{Parts: []gemini.Part{{Text: "no json here"}}}},
			},
		}, nil
	}}
	srv := newTestServer(t, &stubYouTube{}, gm)

	resp := doRequest(t, http.MethodPost, srv.URL+"/api/classify",
		map[string]any{"comments": []model.Comment{{ID: "c1", Text: "?"}}}, "user-1")
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
}

func TestClassify_Timeout(t *testing.T) {
	gm := &stubGemini{fn: func(ctx context.Context, _ gemini.GenerateContentRequest) (*gemini.GenerateContentResponse, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}}

	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "timeout.db"))
	require.NoError(t, err)
	require.NoError(t, st.Migrate(context.Background()))
	t.Cleanup(func() { st.Close() })

	cls := classifier.New(gm,
		classifier.WithLogger(zap.NewNop()),
		classifier.WithTimeout(50*time.Millisecond),
	)
	svc := leads.NewService(&stubYouTube{}, cls, leads.WithStore(st), leads.WithLogger(zap.NewNop()))
	srv := httptest.NewServer(newRouter(svc, []string{"*"}))
	t.Cleanup(srv.Close)

	resp := doRequest(t, http.MethodPost, srv.URL+"/api/classify",
		map[string]any{"comments": []model.Comment{{ID: "c1", Text: "?"}}}, "user-1")
	assert.Equal(t, http.StatusRequestTimeout, resp.StatusCode)

	body := decode[map[string]any](t, resp)
	assert.Contains(t, body, "elapsedTime")
}

func TestStatsAccumulate(t *testing.T) {
	srv := newTestServer(t, &stubYouTube{}, gradeAll("hot"))

	body := map[string]any{"comments": []model.Comment{{ID: "c1", Text: "?"}}}
	resp := doRequest(t, http.MethodPost, srv.URL+"/api/classify", body, "user-1")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = doRequest(t, http.MethodGet, srv.URL+"/api/stats", nil, "user-1")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	stats := decode[map[string]any](t, resp)
	assert.Equal(t, float64(1), stats["runs_total"])
	assert.Equal(t, float64(1), stats["hot_leads"])
	assert.Equal(t, float64(0), stats["runs_failed"])
}

func TestSaveAndGetLastAnalysis(t *testing.T) {
	srv := newTestServer(t, &stubYouTube{}, gradeAll("warm"))

	save := map[string]any{
		"video_url": "https://youtu.be/dQw4w9WgXcQ",
		"video_id":  "dQw4w9WgXcQ",
		"results": []model.ClassifiedComment{
			{
				Comment:    model.Comment{ID: "c1", Username: "alice", Text: "?"},
				LeadType:   model.LeadWarm,
				LeadReason: "curious",
				Reply:      "thanks",
			},
		},
	}
	resp := doRequest(t, http.MethodPost, srv.URL+"/api/analyses", save, "user-1")
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	created := decode[model.Analysis](t, resp)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, model.LeadCounts{Warm: 1}, created.Counts)

	resp = doRequest(t, http.MethodGet, srv.URL+"/api/analyses/last", nil, "user-1")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	last := decode[model.Analysis](t, resp)
	assert.Equal(t, created.ID, last.ID)

	// Another user sees nothing.
	resp = doRequest(t, http.MethodGet, srv.URL+"/api/analyses/last", nil, "user-2")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestSaveAnalysis_Invalid(t *testing.T) {
	srv := newTestServer(t, &stubYouTube{}, gradeAll("warm"))

	resp := doRequest(t, http.MethodPost, srv.URL+"/api/analyses",
		map[string]any{"video_url": ""}, "user-1")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestFeedbackFlow(t *testing.T) {
	srv := newTestServer(t, &stubYouTube{}, gradeAll("hot"))

	save := map[string]any{
		"video_url": "https://youtu.be/dQw4w9WgXcQ",
		"results": []model.ClassifiedComment{
			{Comment: model.Comment{ID: "c1", Text: "?"}, LeadType: model.LeadHot},
		},
	}
	resp := doRequest(t, http.MethodPost, srv.URL+"/api/analyses", save, "user-1")
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	created := decode[model.Analysis](t, resp)

	resp = doRequest(t, http.MethodPost, srv.URL+"/api/feedback",
		map[string]any{"analysis_id": created.ID, "rating": 5, "comment": "great"}, "user-1")
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	// Rating out of range.
	resp = doRequest(t, http.MethodPost, srv.URL+"/api/feedback",
		map[string]any{"analysis_id": created.ID, "rating": 9}, "user-1")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// Someone else's analysis.
	resp = doRequest(t, http.MethodPost, srv.URL+"/api/feedback",
		map[string]any{"analysis_id": created.ID, "rating": 3}, "user-2")
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	// Unknown analysis.
	resp = doRequest(t, http.MethodPost, srv.URL+"/api/feedback",
		map[string]any{"analysis_id": "missing", "rating": 3}, "user-1")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestReplyEndpoint(t *testing.T) {
	yt := &stubYouTube{replyID: "reply-1"}
	srv := newTestServer(t, yt, gradeAll("cold"))

	resp := doRequest(t, http.MethodPost, srv.URL+"/api/reply",
		map[string]any{"comment_id": "c1", "text": "thanks!"}, "user-1")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body := decode[map[string]string](t, resp)
	assert.Equal(t, "reply-1", body["reply_id"])
}

func TestReplyEndpoint_Invalid(t *testing.T) {
	srv := newTestServer(t, &stubYouTube{}, gradeAll("cold"))

	resp := doRequest(t, http.MethodPost, srv.URL+"/api/reply",
		map[string]any{"comment_id": "", "text": "hi"}, "user-1")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
