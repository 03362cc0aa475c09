package domain

import "context"

// Geocoder resolves a postal code to its representative coordinate through an
// external lookup service. The boolean return distinguishes a valid no-match
// response (false, nil error) from a transport or service error.
type Geocoder interface {
	Geocode(ctx context.Context, postalCode string) (Coordinate, bool, error)
}
