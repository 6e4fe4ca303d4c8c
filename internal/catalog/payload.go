package catalog

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/yourorg/vehicle-search/internal/vehicle"
)

// flexEnum accepts an enum sent either as its ordinal or as its name. The
// catalog serializes ordinals by default; a string-enum converter on its
// side would send names.
type flexEnum struct {
	ord  int
	name string
}

func (f *flexEnum) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*f = flexEnum{}
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexEnum{name: strings.TrimSpace(s)}
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	i, err := n.Int64()
	if err != nil {
		return fmt.Errorf("enum %s: %w", n, err)
	}
	*f = flexEnum{ord: int(i)}
	return nil
}

type imagePayload struct {
	URL      string `json:"url"`
	Position int    `json:"position"`
}

type featurePayload struct {
	Name     string `json:"name"`
	Category string `json:"category"`
}

// vehiclePayload is the catalog's GET /api/vehicles/{id} body. Entity-only
// fields (color, description, createdAt, ...) are ignored.
type vehiclePayload struct {
	ID            string           `json:"id"`
	Brand         string           `json:"brand"`
	Model         string           `json:"model"`
	Year          int              `json:"year"`
	Price         *float64         `json:"price"`
	Mileage       int              `json:"mileage"`
	Status        flexEnum         `json:"status"`
	CoverImageURL *string          `json:"coverImageUrl"`
	Images        []imagePayload   `json:"images"`
	VehicleType   flexEnum         `json:"vehicleType"`
	Features      []featurePayload `json:"features"`
}

type pagePayload struct {
	Items []struct {
		ID string `json:"id"`
	} `json:"items"`
	TotalCount int `json:"totalCount"`
	PageNumber int `json:"pageNumber"`
	PageSize   int `json:"pageSize"`
}

func (p vehiclePayload) projection() (vehicle.Projection, error) {
	id, err := vehicle.ParseID(p.ID)
	if err != nil {
		return vehicle.Projection{}, fmt.Errorf("payload id %q: %w", p.ID, err)
	}
	status, err := decodeStatus(p.Status)
	if err != nil {
		return vehicle.Projection{}, err
	}
	vt, err := decodeType(p.VehicleType)
	if err != nil {
		return vehicle.Projection{}, err
	}

	out := vehicle.Projection{
		ID:            id,
		Brand:         p.Brand,
		Model:         p.Model,
		Year:          p.Year,
		Price:         p.Price,
		Mileage:       p.Mileage,
		Status:        status,
		CoverImageURL: p.CoverImageURL,
		Type:          vt,
		Images:        make([]vehicle.Image, 0, len(p.Images)),
		Features:      make([]vehicle.Feature, 0, len(p.Features)),
	}
	for _, img := range p.Images {
		out.Images = append(out.Images, vehicle.Image{URL: img.URL, Position: img.Position})
	}
	vehicle.SortImages(out.Images)
	for _, f := range p.Features {
		if f.Name == "" {
			continue
		}
		out.Features = append(out.Features, vehicle.Feature{Name: f.Name, Category: f.Category})
	}
	return out, nil
}

// errUnknownEnum is only returned for names. Ordinals pass through as-is.
var errUnknownEnum = errors.New("unknown enum value")

func decodeStatus(f flexEnum) (vehicle.Status, error) {
	if f.name != "" {
		s, ok := vehicle.ParseStatus(f.name)
		if !ok {
			return 0, fmt.Errorf("status %q: %w", f.name, errUnknownEnum)
		}
		return s, nil
	}
	return vehicle.Status(f.ord), nil
}

func decodeType(f flexEnum) (vehicle.Type, error) {
	if f.name != "" {
		t, ok := vehicle.ParseType(f.name)
		if !ok {
			return 0, fmt.Errorf("vehicleType %q: %w", f.name, errUnknownEnum)
		}
		return t, nil
	}
	return vehicle.Type(f.ord), nil
}
