package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/leadpulse/internal/classifier"
	"github.com/sells-group/leadpulse/internal/leads"
	"github.com/sells-group/leadpulse/internal/model"
	"github.com/sells-group/leadpulse/internal/monitoring"
	"github.com/sells-group/leadpulse/internal/store"
	"github.com/sells-group/leadpulse/pkg/youtube"
)

type ctxKey string

const userIDKey ctxKey = "user_id"

// requireUser rejects requests without an X-User-ID header and stashes the
// id in the request context for handlers.
func requireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID := r.Header.Get("X-User-ID")
		if userID == "" {
			respondError(w, http.StatusUnauthorized, "X-User-ID header is required")
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userIDKey, userID)))
	})
}

func userID(r *http.Request) string {
	id, _ := r.Context().Value(userIDKey).(string)
	return id
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		zap.L().Debug("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Duration("duration", time.Since(start)))
	})
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func handleComments(svc *leads.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rawURL := r.URL.Query().Get("url")
		if rawURL == "" {
			respondError(w, http.StatusBadRequest, "url query parameter is required")
			return
		}

		videoID, comments, err := svc.FetchComments(r.Context(), rawURL)
		if err != nil {
			respondMappedError(w, err)
			return
		}

		respondJSON(w, http.StatusOK, map[string]any{
			"video_id": videoID,
			"comments": comments,
			"total":    len(comments),
		})
	}
}

func handleStats(metrics *monitoring.Collector) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		respondJSON(w, http.StatusOK, metrics.Snapshot())
	}
}

func handleClassify(svc *leads.Service, metrics *monitoring.Collector) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Comments []model.Comment `json:"comments"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if len(req.Comments) == 0 {
			respondError(w, http.StatusBadRequest, "Invalid request. Expected an array of comments.")
			return
		}

		outcome, err := svc.Classify(r.Context(), req.Comments)
		if err != nil {
			metrics.RecordFailure(err)
			respondMappedError(w, err)
			return
		}
		metrics.RecordSuccess(outcome)

		respondJSON(w, http.StatusOK, outcome)
	}
}

func handleSaveAnalysis(svc *leads.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			VideoURL string                    `json:"video_url"`
			VideoID  string                    `json:"video_id"`
			Results  []model.ClassifiedComment `json:"results"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if req.VideoURL == "" || len(req.Results) == 0 {
			respondError(w, http.StatusBadRequest, "video_url and results are required")
			return
		}

		analysis := &model.Analysis{
			UserID:   userID(r),
			VideoURL: req.VideoURL,
			VideoID:  req.VideoID,
			Results:  req.Results,
		}
		if err := svc.SaveAnalysis(r.Context(), analysis); err != nil {
			respondMappedError(w, err)
			return
		}

		respondJSON(w, http.StatusCreated, analysis)
	}
}

func handleLastAnalysis(svc *leads.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		analysis, err := svc.LastAnalysis(r.Context(), userID(r))
		if err != nil {
			respondMappedError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, analysis)
	}
}

func handleFeedback(svc *leads.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			AnalysisID string `json:"analysis_id"`
			Rating     int    `json:"rating"`
			Comment    string `json:"comment"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if req.AnalysisID == "" {
			respondError(w, http.StatusBadRequest, "analysis_id is required")
			return
		}
		if req.Rating < 1 || req.Rating > 5 {
			respondError(w, http.StatusBadRequest, "rating must be between 1 and 5")
			return
		}

		f := &model.Feedback{
			UserID:     userID(r),
			AnalysisID: req.AnalysisID,
			Rating:     req.Rating,
			Comment:    req.Comment,
		}
		if err := svc.RecordFeedback(r.Context(), f); err != nil {
			respondMappedError(w, err)
			return
		}

		respondJSON(w, http.StatusCreated, f)
	}
}

func handleReply(svc *leads.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			CommentID string `json:"comment_id"`
			Text      string `json:"text"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if req.CommentID == "" || req.Text == "" {
			respondError(w, http.StatusBadRequest, "comment_id and text are required")
			return
		}

		id, err := svc.Reply(r.Context(), req.CommentID, req.Text)
		if err != nil {
			respondMappedError(w, err)
			return
		}

		respondJSON(w, http.StatusOK, map[string]string{"reply_id": id})
	}
}

// respondMappedError translates domain errors into HTTP status codes.
func respondMappedError(w http.ResponseWriter, err error) {
	var (
		invalidErr *classifier.InvalidInputError
		timeoutErr *classifier.TimeoutError
		batchErr   *classifier.BatchError
		parseErr   *classifier.ParseError
		ytErr      *youtube.APIError
	)

	switch {
	case errors.Is(err, youtube.ErrInvalidVideoURL):
		respondError(w, http.StatusBadRequest, "not a recognized YouTube video URL")
	case errors.As(err, &invalidErr):
		respondError(w, http.StatusBadRequest, invalidErr.Error())
	case errors.As(err, &timeoutErr):
		respondJSON(w, http.StatusRequestTimeout, map[string]any{
			"error":       "Processing timeout. The request took too long.",
			"suggestion":  "Try processing fewer comments or check API response times.",
			"elapsedTime": timeoutErr.Elapsed,
		})
	case errors.As(err, &batchErr), errors.As(err, &parseErr):
		respondError(w, http.StatusBadGateway, "Failed to classify comments. Please try again later.")
	case errors.Is(err, store.ErrNotFound):
		respondError(w, http.StatusNotFound, "not found")
	case errors.Is(err, store.ErrForbidden):
		respondError(w, http.StatusForbidden, "analysis belongs to another user")
	case errors.As(err, &ytErr):
		status := http.StatusBadGateway
		if ytErr.StatusCode >= 400 && ytErr.StatusCode < 500 {
			status = ytErr.StatusCode
		}
		respondError(w, status, ytErr.Message)
	default:
		zap.L().Error("request failed", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "internal error")
	}
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Error("encode response", zap.Error(err))
	}
}

func respondError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, map[string]string{"error": msg})
}
