package vehicle

import (
	"errors"
	"strings"

	"github.com/google/uuid"
)

// ErrInvalidID marks a payload that can never name a vehicle.
var ErrInvalidID = errors.New("invalid vehicle id")

// ParseID canonicalizes a notification payload into an ID. Surrounding
// whitespace is ignored; hyphenated, braced, urn:uuid: and bare 32-hex forms
// are accepted. The nil UUID is rejected because the catalog never assigns it.
func ParseID(raw string) (ID, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return uuid.Nil, ErrInvalidID
	}
	id, err := uuid.Parse(s)
	if err != nil || id == uuid.Nil {
		return uuid.Nil, ErrInvalidID
	}
	return id, nil
}
