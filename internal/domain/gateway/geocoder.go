package gateway

import (
	"context"
	"errors"

	"github.com/hisiddique/bloodathome/internal/geo"
)

var (
	ErrPostcodeNotFound = errors.New("postcode not found")
	ErrGeocoderFailed   = errors.New("geocoding service unavailable")
)

// Geocoder resolves a postcode to coordinates
type Geocoder interface {
	GeocodePostcode(ctx context.Context, postcode string) (geo.Point, error)
}
