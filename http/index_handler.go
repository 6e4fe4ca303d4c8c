package httpapi

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/yourorg/vehicle-search/internal/indexer"
	"github.com/yourorg/vehicle-search/internal/notify"
	"github.com/yourorg/vehicle-search/internal/vehicle"
)

// IndexDeps backs the admin routes. Sweeper and Coordinator are optional;
// routes that need a missing one are not mounted.
type IndexDeps struct {
	Syncer      *indexer.Syncer
	Sweeper     *indexer.Sweeper
	Coordinator *indexer.Coordinator
	// Background is the parent of sweeps started over HTTP. It should be
	// cancelled on shutdown.
	Background context.Context
	Logger     *slog.Logger
}

func RegisterIndex(r chi.Router, d IndexDeps) {
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}
	bg := d.Background
	if bg == nil {
		bg = context.Background()
	}

	if d.Syncer != nil {
		r.Post("/v1/index/vehicles/{id}/sync", func(w http.ResponseWriter, req *http.Request) {
			id, ok := parseID(w, req)
			if !ok {
				return
			}
			outcome, err := d.Syncer.Sync(req.Context(), id)
			writeOutcome(w, req, id, outcome, err)
		})

		r.Delete("/v1/index/vehicles/{id}", func(w http.ResponseWriter, req *http.Request) {
			id, ok := parseID(w, req)
			if !ok {
				return
			}
			outcome, err := d.Syncer.Remove(req.Context(), id)
			writeOutcome(w, req, id, outcome, err)
		})
	}

	if d.Sweeper != nil {
		r.Post("/v1/index/reindex", func(w http.ResponseWriter, req *http.Request) {
			if d.Sweeper.Running() {
				render.Status(req, http.StatusConflict)
				render.JSON(w, req, map[string]any{"error": "reindex_running"})
				return
			}
			go func() {
				report, err := d.Sweeper.RunOnce(bg)
				switch {
				case errors.Is(err, indexer.ErrSweepRunning):
				case err != nil:
					logger.Error("manual reindex finished with errors", "seen", report.Seen, "failed", report.Failed, "error", err)
				default:
					logger.Info("manual reindex finished", "seen", report.Seen, "indexed", report.Indexed, "took", report.Took)
				}
			}()
			render.Status(req, http.StatusAccepted)
			render.JSON(w, req, map[string]any{"ok": true})
		})
	}

	if d.Coordinator != nil {
		r.Get("/v1/indexer/stats", func(w http.ResponseWriter, req *http.Request) {
			render.JSON(w, req, map[string]any{
				"counters": d.Coordinator.Stats(),
				"subscriptions": map[string]indexer.State{
					string(notify.TopicUpserted): d.Coordinator.State(notify.TopicUpserted),
					string(notify.TopicDeleted):  d.Coordinator.State(notify.TopicDeleted),
				},
			})
		})
	}
}

func parseID(w http.ResponseWriter, req *http.Request) (vehicle.ID, bool) {
	id, err := vehicle.ParseID(chi.URLParam(req, "id"))
	if err != nil {
		render.Status(req, http.StatusBadRequest)
		render.JSON(w, req, map[string]any{"error": "invalid_id", "detail": err.Error()})
		return vehicle.ID{}, false
	}
	return id, true
}

func writeOutcome(w http.ResponseWriter, req *http.Request, id vehicle.ID, outcome indexer.Outcome, err error) {
	body := map[string]any{"id": id.String(), "outcome": outcome}
	switch {
	case err != nil:
		body["detail"] = err.Error()
		render.Status(req, http.StatusBadGateway)
	case outcome == indexer.OutcomeNotFound:
		render.Status(req, http.StatusNotFound)
	}
	render.JSON(w, req, body)
}
