package main

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/leadpulse/internal/classifier"
	"github.com/sells-group/leadpulse/internal/leads"
	"github.com/sells-group/leadpulse/internal/store"
	"github.com/sells-group/leadpulse/pkg/gemini"
	"github.com/sells-group/leadpulse/pkg/youtube"
)

// env bundles the wired pipeline dependencies for a command invocation.
type env struct {
	service *leads.Service
	store   store.Store
}

// initEnv validates config for the given mode and wires the YouTube client,
// classifier, and (when withStore) the persistence layer.
func initEnv(ctx context.Context, mode string, withStore bool) (*env, error) {
	if err := cfg.Validate(mode); err != nil {
		return nil, err
	}

	ytOpts := []youtube.Option{youtube.WithRateLimit(cfg.YouTube.RatePerSecond)}
	if cfg.YouTube.BaseURL != "" {
		ytOpts = append(ytOpts, youtube.WithBaseURL(cfg.YouTube.BaseURL))
	}
	yt := youtube.NewClient(cfg.YouTube.Key, ytOpts...)

	var gmOpts []gemini.Option
	if cfg.Gemini.BaseURL != "" {
		gmOpts = append(gmOpts, gemini.WithBaseURL(cfg.Gemini.BaseURL))
	}
	if cfg.Gemini.Model != "" {
		gmOpts = append(gmOpts, gemini.WithModel(cfg.Gemini.Model))
	}
	gm := gemini.NewClient(cfg.Gemini.Key, gmOpts...)

	rubric := classifier.DefaultRubric()
	if cfg.Classify.RubricPath != "" {
		r, err := classifier.LoadRubric(cfg.Classify.RubricPath)
		if err != nil {
			return nil, err
		}
		rubric = r
		zap.L().Info("loaded rubric", zap.String("path", cfg.Classify.RubricPath))
	}

	cls := classifier.New(gm,
		classifier.WithRubric(rubric),
		classifier.WithTimeout(time.Duration(cfg.Classify.TimeoutSecs)*time.Second),
	)

	svcOpts := []leads.Option{leads.WithMaxComments(cfg.YouTube.MaxComments)}

	e := &env{}
	if withStore {
		st, err := store.Open(ctx, cfg.Store.Driver, cfg.Store.DatabaseURL)
		if err != nil {
			return nil, err
		}
		if err := st.Migrate(ctx); err != nil {
			st.Close()
			return nil, err
		}
		e.store = st
		svcOpts = append(svcOpts, leads.WithStore(st))
	}

	e.service = leads.NewService(yt, cls, svcOpts...)
	return e, nil
}

func (e *env) Close() {
	if e.store != nil {
		if err := e.store.Close(); err != nil {
			zap.L().Warn("close store", zap.Error(err))
		}
	}
}
