package main

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/go-chi/render"

	httpapi "github.com/yourorg/vehicle-search/http"
	"github.com/yourorg/vehicle-search/internal/config"
	"github.com/yourorg/vehicle-search/internal/indexer"
	"github.com/yourorg/vehicle-search/internal/logging"
	"github.com/yourorg/vehicle-search/internal/notify"
	"github.com/yourorg/vehicle-search/internal/search"
)

type RouterDeps struct {
	Searcher    search.Searcher
	Syncer      *indexer.Syncer
	Sweeper     *indexer.Sweeper
	Coordinator *indexer.Coordinator
	Publisher   notify.Publisher
	Topics      notify.Topics
	Background  context.Context
	Logger      *slog.Logger
}

func BuildRouter(cfg config.HTTPConfig, deps RouterDeps) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(logging.Middleware(deps.Logger))
	r.Use(middleware.Recoverer)
	if cfg.RateLimit > 0 {
		r.Use(httprate.LimitByIP(cfg.RateLimit, 1*time.Minute))
	}
	r.Use(render.SetContentType(render.ContentTypeJSON))
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) { _, _ = w.Write([]byte(`{"ok":true}`)) })

	httpapi.RegisterSearch(r, httpapi.SearchDeps{Searcher: deps.Searcher, Logger: deps.Logger})
	httpapi.RegisterIndex(r, httpapi.IndexDeps{
		Syncer:      deps.Syncer,
		Sweeper:     deps.Sweeper,
		Coordinator: deps.Coordinator,
		Background:  deps.Background,
		Logger:      deps.Logger,
	})

	httpapi.RegisterNotify(r, httpapi.NotifyDeps{Publisher: deps.Publisher, Topics: deps.Topics, Logger: deps.Logger})

	return r
}
