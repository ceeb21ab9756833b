package geocoding

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hisiddique/bloodathome/config"
	"github.com/hisiddique/bloodathome/internal/domain/entity"
	"github.com/hisiddique/bloodathome/internal/domain/gateway"
	"github.com/hisiddique/bloodathome/internal/geo"
	"github.com/hisiddique/bloodathome/internal/infrastructure/cache"

	"github.com/sirupsen/logrus"
)

const defaultBaseURL = "https://api.postcodes.io"

// Cache is the subset of cache.JSONCache the geocoder needs
type Cache interface {
	Get(ctx context.Context, key string, dst any) error
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
}

// PostcodesIOGeocoder resolves UK postcodes through the postcodes.io API.
// Results are cached; a cache failure never fails a lookup.
type PostcodesIOGeocoder struct {
	baseURL    string
	httpClient *http.Client
	cache      Cache
	cacheTTL   time.Duration
	log        *logrus.Logger
}

func NewPostcodesIOGeocoder(cfg config.GeocoderConfig, c Cache, log *logrus.Logger) gateway.Geocoder {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &PostcodesIOGeocoder{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		cache:      c,
		cacheTTL:   cfg.CacheTTL,
		log:        log,
	}
}

type postcodeResponse struct {
	Status int `json:"status"`
	Result *struct {
		Postcode  string   `json:"postcode"`
		Latitude  *float64 `json:"latitude"`
		Longitude *float64 `json:"longitude"`
	} `json:"result"`
}

func (g *PostcodesIOGeocoder) GeocodePostcode(ctx context.Context, postcode string) (geo.Point, error) {
	pc := entity.NormalizePostcode(postcode)
	if pc == "" {
		return geo.Point{}, gateway.ErrPostcodeNotFound
	}
	cacheKey := strings.ReplaceAll(pc, " ", "")

	if g.cache != nil {
		var cached geo.Point
		err := g.cache.Get(ctx, cacheKey, &cached)
		if err == nil && cached.Validate() == nil {
			return cached, nil
		}
		if err != nil && !errors.Is(err, cache.ErrCacheMiss) {
			g.log.Warnf("Failed to read geocode cache for %s: %+v", pc, err)
		}
	}

	reqURL := fmt.Sprintf("%s/postcodes/%s", g.baseURL, url.PathEscape(pc))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return geo.Point{}, fmt.Errorf("%w: %v", gateway.ErrGeocoderFailed, err)
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return geo.Point{}, fmt.Errorf("%w: %v", gateway.ErrGeocoderFailed, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return geo.Point{}, gateway.ErrPostcodeNotFound
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return geo.Point{}, fmt.Errorf("%w: status %d", gateway.ErrGeocoderFailed, resp.StatusCode)
	}

	var body postcodeResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return geo.Point{}, fmt.Errorf("%w: %v", gateway.ErrGeocoderFailed, err)
	}
	// Some postcodes (e.g. PO boxes) exist but have no coordinates.
	if body.Result == nil || body.Result.Latitude == nil || body.Result.Longitude == nil {
		return geo.Point{}, gateway.ErrPostcodeNotFound
	}

	p := geo.Point{Lat: *body.Result.Latitude, Lng: *body.Result.Longitude}
	if err := p.Validate(); err != nil {
		return geo.Point{}, gateway.ErrPostcodeNotFound
	}

	if g.cache != nil {
		if err := g.cache.Set(ctx, cacheKey, p, g.cacheTTL); err != nil {
			g.log.Warnf("Failed to cache geocode for %s: %+v", pc, err)
		}
	}
	return p, nil
}
