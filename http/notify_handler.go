package httpapi

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/yourorg/vehicle-search/internal/notify"
)

// NotifyDeps backs the publish route of the in-process transport. With
// redis or nats the catalog publishes directly and the route is absent.
type NotifyDeps struct {
	Publisher notify.Publisher
	Topics    notify.Topics
	Logger    *slog.Logger
}

// RegisterNotify mounts POST /v1/notifications/{topic} with body {"id": ...}.
// The id is published as-is; the coordinator decides whether it is valid.
func RegisterNotify(r chi.Router, d NotifyDeps) {
	if d.Publisher == nil {
		return
	}
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r.Post("/v1/notifications/{topic}", func(w http.ResponseWriter, req *http.Request) {
		topic := notify.Topic(chi.URLParam(req, "topic"))
		channel := d.Topics.Channel(topic)
		if channel == "" {
			render.Status(req, http.StatusNotFound)
			render.JSON(w, req, map[string]any{"error": "unknown_topic", "detail": string(topic)})
			return
		}
		var body struct {
			ID string `json:"id"`
		}
		if err := render.DecodeJSON(req.Body, &body); err != nil {
			render.Status(req, http.StatusBadRequest)
			render.JSON(w, req, map[string]any{"error": "invalid_json", "detail": err.Error()})
			return
		}
		if err := d.Publisher.Publish(req.Context(), channel, body.ID); err != nil {
			logger.Error("publish failed", "topic", topic, "channel", channel, "error", err)
			render.Status(req, http.StatusServiceUnavailable)
			render.JSON(w, req, map[string]any{"error": "publish_failed", "detail": err.Error()})
			return
		}
		render.Status(req, http.StatusAccepted)
		render.JSON(w, req, map[string]any{"ok": true})
	})
}
