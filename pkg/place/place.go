// Package place searches the geo provider and turns its listings into
// canonical place records.
package place

import (
	"strings"

	"github.com/google/uuid"
	"github.com/samber/lo"
)

// DefaultDescription is used when the provider has no description.
const DefaultDescription = "No description available."

// Place is the canonical record held in selection documents.
type Place struct {
	ID          string   `json:"id" bson:"id"`
	Title       string   `json:"title" bson:"title"`
	Rating      *float64 `json:"rating" bson:"rating"`
	Address     string   `json:"address" bson:"address"`
	Latitude    float64  `json:"latitude" bson:"latitude"`
	Longitude   float64  `json:"longitude" bson:"longitude"`
	Description string   `json:"description" bson:"description"`
	Price       string   `json:"price,omitempty" bson:"price,omitempty"`
	Date        *string  `json:"date" bson:"date"`
	Time        *string  `json:"time" bson:"time"`
}

// LatLng is a (latitude, longitude) pair, encoded as a two element array.
type LatLng [2]float64

// Lat returns the latitude.
func (c LatLng) Lat() float64 { return c[0] }

// Lng returns the longitude.
func (c LatLng) Lng() float64 { return c[1] }

// RawPlace is one provider listing before validation. Optional fields are
// pointers or empty strings.
type RawPlace struct {
	PlaceID     string
	Title       string
	Rating      *float64
	Address     string
	Latitude    *float64
	Longitude   *float64
	Description string
	Price       string
}

// Usable reports whether the listing has an address and both coordinates.
func (r RawPlace) Usable() bool {
	return strings.TrimSpace(r.Address) != "" && r.Latitude != nil && r.Longitude != nil
}

// Normalize converts usable listings into places and silently drops the rest.
func Normalize(raws []RawPlace) []Place {
	return lo.FilterMap(raws, func(r RawPlace, _ int) (Place, bool) {
		if !r.Usable() {
			return Place{}, false
		}
		return toPlace(r), true
	})
}

func toPlace(r RawPlace) Place {
	id := r.PlaceID
	if id == "" {
		id = uuid.NewString()
	}
	desc := strings.TrimSpace(r.Description)
	if desc == "" {
		desc = DefaultDescription
	}
	return Place{
		ID:          id,
		Title:       strings.TrimSpace(r.Title),
		Rating:      r.Rating,
		Address:     strings.TrimSpace(r.Address),
		Latitude:    *r.Latitude,
		Longitude:   *r.Longitude,
		Description: desc,
		Price:       strings.TrimSpace(r.Price),
	}
}

// Coordinates lists the (lat, lon) of each place in order.
func Coordinates(places []Place) []LatLng {
	return lo.Map(places, func(p Place, _ int) LatLng {
		return LatLng{p.Latitude, p.Longitude}
	})
}
