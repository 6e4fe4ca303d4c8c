package httpapi

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/yourorg/vehicle-search/internal/search"
)

type SearchDeps struct {
	Searcher search.Searcher
	Logger   *slog.Logger
}

type VehicleResponse struct {
	ID            string            `json:"id"`
	Brand         string            `json:"brand"`
	Model         string            `json:"model"`
	Year          int               `json:"year"`
	Price         *float64          `json:"price"`
	Mileage       int               `json:"mileage"`
	Status        int               `json:"status"`
	CoverImageURL *string           `json:"coverImageUrl"`
	Images        []ImageResponse   `json:"images"`
	VehicleType   int               `json:"vehicleType"`
	Features      []FeatureResponse `json:"features"`
}

type ImageResponse struct {
	URL      string `json:"url"`
	Position int    `json:"position"`
}

type FeatureResponse struct {
	Name string `json:"name"`
}

func toResponse(doc search.Document) VehicleResponse {
	out := VehicleResponse{
		ID:            doc.ID,
		Brand:         doc.Brand,
		Model:         doc.Model,
		Year:          doc.Year,
		Price:         doc.Price,
		Mileage:       doc.Mileage,
		Status:        doc.Status,
		CoverImageURL: doc.CoverImageURL,
		VehicleType:   doc.VehicleType,
		Images:        make([]ImageResponse, 0, len(doc.Images)),
		Features:      make([]FeatureResponse, 0, len(doc.Features)),
	}
	for _, img := range doc.Images {
		out.Images = append(out.Images, ImageResponse{URL: img.URL, Position: img.Position})
	}
	for _, name := range doc.Features {
		out.Features = append(out.Features, FeatureResponse{Name: name})
	}
	return out
}

// RegisterSearch mounts GET /api/search. It is a no-op when the configured
// index cannot be queried.
func RegisterSearch(r chi.Router, d SearchDeps) {
	if d.Searcher == nil {
		return
	}
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r.Get("/api/search", func(w http.ResponseWriter, req *http.Request) {
		q := req.URL.Query()
		query := search.Query{Text: q.Get("query"), Filter: q.Get("filter")}
		if v := q.Get("limit"); v != "" {
			if i, err := strconv.Atoi(v); err == nil && i > 0 {
				query.Limit = i
			}
		}

		res, err := d.Searcher.Search(req.Context(), query)
		if err != nil {
			logger.Error("search failed", "query", query.Text, "filter", query.Filter, "error", err)
			render.Status(req, http.StatusInternalServerError)
			render.JSON(w, req, map[string]any{"error": "search_error", "detail": err.Error()})
			return
		}

		out := make([]VehicleResponse, 0, len(res.Hits))
		for _, doc := range res.Hits {
			out = append(out, toResponse(doc))
		}
		logger.Debug("search completed", "query", query.Text, "filter", query.Filter, "hits", len(out))
		render.JSON(w, req, out)
	})
}
