package geocoding

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/hisiddique/bloodathome/config"
	"github.com/hisiddique/bloodathome/internal/domain/gateway"
	"github.com/hisiddique/bloodathome/internal/geo"
	"github.com/hisiddique/bloodathome/internal/infrastructure/cache"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryCache struct {
	values map[string]geo.Point
}

func (c *memoryCache) Get(_ context.Context, key string, dst any) error {
	p, ok := c.values[key]
	if !ok {
		return cache.ErrCacheMiss
	}
	*(dst.(*geo.Point)) = p
	return nil
}

func (c *memoryCache) Set(_ context.Context, key string, value any, _ time.Duration) error {
	c.values[key] = value.(geo.Point)
	return nil
}

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func TestGeocodePostcode(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		switch r.URL.Path {
		case "/postcodes/SW1A 1AA":
			w.Write([]byte(`{"status":200,"result":{"postcode":"SW1A 1AA","latitude":51.501009,"longitude":-0.141588}}`))
		case "/postcodes/BF1 1AA":
			w.Write([]byte(`{"status":200,"result":{"postcode":"BF1 1AA","latitude":null,"longitude":null}}`))
		case "/postcodes/ZZ1 1ZZ":
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"status":404,"error":"Postcode not found"}`))
		default:
			w.WriteHeader(http.StatusInternalServerError)
		}
	}))
	defer srv.Close()

	mem := &memoryCache{values: map[string]geo.Point{}}
	g := NewPostcodesIOGeocoder(config.GeocoderConfig{BaseURL: srv.URL, CacheTTL: time.Hour}, mem, quietLogger())

	t.Run("resolves and caches", func(t *testing.T) {
		p, err := g.GeocodePostcode(context.Background(), " sw1a  1aa ")
		require.NoError(t, err)
		assert.InDelta(t, 51.501009, p.Lat, 1e-9)
		assert.InDelta(t, -0.141588, p.Lng, 1e-9)
		assert.Contains(t, mem.values, "SW1A1AA")

		before := calls
		_, err = g.GeocodePostcode(context.Background(), "SW1A 1AA")
		require.NoError(t, err)
		assert.Equal(t, before, calls)
	})

	t.Run("unknown postcode", func(t *testing.T) {
		_, err := g.GeocodePostcode(context.Background(), "ZZ1 1ZZ")
		assert.ErrorIs(t, err, gateway.ErrPostcodeNotFound)
	})

	t.Run("postcode without coordinates", func(t *testing.T) {
		_, err := g.GeocodePostcode(context.Background(), "BF1 1AA")
		assert.ErrorIs(t, err, gateway.ErrPostcodeNotFound)
	})

	t.Run("upstream failure", func(t *testing.T) {
		_, err := g.GeocodePostcode(context.Background(), "AB1 2CD")
		assert.ErrorIs(t, err, gateway.ErrGeocoderFailed)
	})
}
