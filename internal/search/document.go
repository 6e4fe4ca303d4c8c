package search

import (
	"github.com/yourorg/vehicle-search/internal/vehicle"
)

// Document is what the index stores for one vehicle. Field names are the
// camelCase attribute names the storefront filters and searches on.
type Document struct {
	ID            string          `json:"id"`
	Brand         string          `json:"brand"`
	Model         string          `json:"model"`
	Year          int             `json:"year"`
	Price         *float64        `json:"price"`
	VehicleType   int             `json:"vehicleType"`
	Features      []string        `json:"features"`
	Mileage       int             `json:"mileage"`
	CoverImageURL *string         `json:"coverImageUrl"`
	Status        int             `json:"status"`
	Images        []ImageDocument `json:"images"`
}

type ImageDocument struct {
	URL      string `json:"url"`
	Position int    `json:"position"`
}

// FromProjection maps a fetched projection to its index document. It has no
// side effects and never fails; the fetcher owns well-formedness.
func FromProjection(p vehicle.Projection) Document {
	doc := Document{
		ID:          p.ID.String(),
		Brand:       p.Brand,
		Model:       p.Model,
		Year:        p.Year,
		Mileage:     p.Mileage,
		VehicleType: int(p.Type),
		Status:      int(p.Status),
		Features:    make([]string, 0, len(p.Features)),
		Images:      make([]ImageDocument, 0, len(p.Images)),
	}
	if p.Price != nil {
		price := *p.Price
		doc.Price = &price
	}
	if p.CoverImageURL != nil {
		cover := *p.CoverImageURL
		doc.CoverImageURL = &cover
	}
	for _, f := range p.Features {
		doc.Features = append(doc.Features, f.Name)
	}
	for _, img := range p.Images {
		doc.Images = append(doc.Images, ImageDocument{URL: img.URL, Position: img.Position})
	}
	return doc
}
