// Package vehicle holds the authoritative vehicle projection as the catalog
// serves it, plus the identifier rules every notification is checked against.
package vehicle

import (
	"errors"
	"sort"

	"github.com/google/uuid"
)

// ErrNotFound is returned by every fetcher when the catalog has no record
// for the requested id.
var ErrNotFound = errors.New("vehicle not found")

// ID identifies a vehicle. It is assigned once by the catalog and never
// changes across updates.
type ID = uuid.UUID

// Status mirrors the catalog's VehicleStatus ordinals.
type Status int

const (
	StatusAvailable Status = iota
	StatusReserved
	StatusSold
)

var statusNames = [...]string{"Available", "Reserved", "Sold"}

func (s Status) Valid() bool { return s >= StatusAvailable && s <= StatusSold }

func (s Status) String() string {
	if !s.Valid() {
		return "Unknown"
	}
	return statusNames[s]
}

// Type mirrors the catalog's VehicleType ordinals. The numbers are what the
// storefront filters on (vehicleType = 0), so they must not be renumbered.
type Type int

const (
	TypeAuto Type = iota
	TypePickup
	TypeSUV
	TypeUtilitario
	TypeFurgon
	TypeMoto
	TypeCuatriciclo
	TypeCamioneta
)

var typeNames = [...]string{"Auto", "Pickup", "SUV", "Utilitario", "Furgon", "Moto", "Cuatriciclo", "Camioneta"}

// Valid reports whether t is a known type. Unknown ordinals are still
// indexed as they come from the catalog.
func (t Type) Valid() bool { return t >= TypeAuto && t <= TypeCamioneta }

func (t Type) String() string {
	if !t.Valid() {
		return "Unknown"
	}
	return typeNames[t]
}

// ParseStatus resolves a status name, case-sensitively, to its ordinal.
func ParseStatus(name string) (Status, bool) {
	for i, n := range statusNames {
		if n == name {
			return Status(i), true
		}
	}
	return 0, false
}

// ParseType resolves a vehicle type name to its ordinal.
func ParseType(name string) (Type, bool) {
	for i, n := range typeNames {
		if n == name {
			return Type(i), true
		}
	}
	return 0, false
}

type Image struct {
	URL      string
	Position int
}

type Feature struct {
	Name     string
	Category string
}

// Projection is the denormalized, read-only view of a vehicle returned by
// a fetcher. Images are in position order.
type Projection struct {
	ID            ID
	Brand         string
	Model         string
	Year          int
	Price         *float64
	Mileage       int
	Status        Status
	CoverImageURL *string
	Images        []Image
	Type          Type
	Features      []Feature
}

// SortImages orders images by position. Equal positions keep their fetched
// order.
func SortImages(images []Image) {
	sort.SliceStable(images, func(i, j int) bool { return images[i].Position < images[j].Position })
}
