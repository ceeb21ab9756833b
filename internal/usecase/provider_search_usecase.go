package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hisiddique/bloodathome/config"
	"github.com/hisiddique/bloodathome/internal/converter"
	"github.com/hisiddique/bloodathome/internal/delivery/dto"
	"github.com/hisiddique/bloodathome/internal/domain/entity"
	"github.com/hisiddique/bloodathome/internal/domain/gateway"
	"github.com/hisiddique/bloodathome/internal/domain/repository"
	"github.com/hisiddique/bloodathome/internal/geo"
	"github.com/hisiddique/bloodathome/internal/infrastructure/telemetry"
	"github.com/hisiddique/bloodathome/internal/matching"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
)

var (
	ErrInvalidQuery     = errors.New("invalid search query")
	ErrNoProvidersFound = errors.New("no providers found in the search area, try a wider radius")
)

type ProviderSearchUsecase interface {
	Search(ctx context.Context, req *dto.ProviderSearchRequest) (*dto.ProviderSearchResponse, error)
	// SearchMap runs Search and lays the results out as map clusters for zoom.
	// The selected provider is never clustered.
	SearchMap(ctx context.Context, req *dto.ProviderSearchRequest, zoom int, selectedProviderID string) (*dto.ProviderMapResponse, error)
}

type providerSearchUsecase struct {
	log      *logrus.Logger
	cfg      config.GeoConfig
	unit     geo.Unit
	geocoder gateway.Geocoder
	metrics  *telemetry.Metrics
	loader   *candidateLoader
	now      func() time.Time
}

func NewProviderSearchUsecase(
	transactor repository.Transactor,
	log *logrus.Logger,
	cfg config.GeoConfig,
	providerRepo repository.ProviderRepository,
	offerRepo repository.ProviderServiceRepository,
	availabilityRepo repository.ProviderAvailabilityRepository,
	geocoder gateway.Geocoder,
	metrics *telemetry.Metrics,
) ProviderSearchUsecase {
	return &providerSearchUsecase{
		log:      log,
		cfg:      cfg,
		unit:     geo.ParseUnit(cfg.DistanceUnit),
		geocoder: geocoder,
		metrics:  metrics,
		loader: &candidateLoader{
			transactor:       transactor,
			offerRepo:        offerRepo,
			availabilityRepo: availabilityRepo,
			providerRepo:     providerRepo,
		},
		now: time.Now,
	}
}

// searchResult is a sorted search before conversion
type searchResult struct {
	matches []matching.Match
	sortBy  matching.SortBy
	radius  float64
	widened bool
}

func (u *providerSearchUsecase) Search(ctx context.Context, req *dto.ProviderSearchRequest) (*dto.ProviderSearchResponse, error) {
	res, err := u.search(ctx, req)
	if err != nil {
		return nil, err
	}
	return u.toResponse(res), nil
}

func (u *providerSearchUsecase) SearchMap(ctx context.Context, req *dto.ProviderSearchRequest, zoom int, selectedProviderID string) (*dto.ProviderMapResponse, error) {
	res, err := u.search(ctx, req)
	if err != nil {
		return nil, err
	}

	layout := geo.Layout(converter.MatchesToClusterItems(res.matches), zoom, selectedProviderID, u.unit)
	return &dto.ProviderMapResponse{
		ProviderSearchResponse: *u.toResponse(res),
		Zoom:                   layout.Zoom,
		Threshold:              layout.Threshold,
		Selected:               layout.Selected,
		Clusters:               converter.LayoutToClusters(layout),
	}, nil
}

// search loads candidates once for the widest radius it may need and then
// filters in memory, first at the default radius and, if nothing matches,
// at the fallback radius. An explicit radius gets a single pass.
func (u *providerSearchUsecase) search(ctx context.Context, req *dto.ProviderSearchRequest) (*searchResult, error) {
	ctx, span := telemetry.Tracer().Start(ctx, "ProviderSearch.Search")
	defer span.End()

	criteria, sortBy, err := u.criteria(ctx, req)
	if err != nil {
		u.metrics.Search(ctx, "invalid", false)
		return nil, err
	}

	radii := []float64{u.cfg.DefaultRadius, u.cfg.FallbackRadius}
	if req.Radius != nil {
		radii = []float64{*req.Radius}
	}
	maxRadius := radii[len(radii)-1]
	span.SetAttributes(attribute.Float64("search.max_radius", maxRadius), attribute.Int("search.services", len(criteria.ServiceIDs)))

	lo, hi := geo.BoundingBox(criteria.Point, maxRadius, u.unit)
	filter := &entity.ProviderFilter{Min: lo, Max: hi}
	for _, t := range req.ProviderTypes {
		filter.Types = append(filter.Types, entity.ProviderType(t))
	}

	providers, err := u.loader.providerRepo.FindCandidates(u.loader.transactor.DB(ctx), filter)
	if err != nil {
		u.log.Warnf("Failed to find candidate providers: %+v", err)
		return nil, err
	}
	candidates, err := u.loader.load(ctx, providers, criteria.ServiceIDs)
	if err != nil {
		u.log.Warnf("Failed to load provider offers and availability: %+v", err)
		return nil, err
	}

	for i, radius := range radii {
		criteria.Radius = radius
		matches := matching.Filter(candidates, criteria)
		if len(matches) == 0 {
			continue
		}
		matching.Sort(matches, sortBy)
		widened := i > 0
		u.metrics.Search(ctx, "found", widened)
		span.SetAttributes(attribute.Int("search.results", len(matches)), attribute.Bool("search.widened", widened))
		return &searchResult{matches: matches, sortBy: sortBy, radius: radius, widened: widened}, nil
	}

	u.metrics.Search(ctx, "empty", len(radii) > 1)
	return nil, ErrNoProvidersFound
}

func (u *providerSearchUsecase) criteria(ctx context.Context, req *dto.ProviderSearchRequest) (matching.Criteria, matching.SortBy, error) {
	var cr matching.Criteria

	if len(req.ServiceIDs) == 0 {
		return cr, "", fmt.Errorf("%w: at least one service is required", ErrInvalidQuery)
	}
	seen := make(map[uuid.UUID]struct{}, len(req.ServiceIDs))
	for _, id := range req.ServiceIDs {
		if _, dup := seen[id]; dup || id == uuid.Nil {
			continue
		}
		seen[id] = struct{}{}
		cr.ServiceIDs = append(cr.ServiceIDs, id)
	}
	if len(cr.ServiceIDs) == 0 {
		return cr, "", fmt.Errorf("%w: at least one service is required", ErrInvalidQuery)
	}

	sortBy, err := matching.ParseSort(req.SortBy)
	if err != nil {
		return cr, "", fmt.Errorf("%w: %w", ErrInvalidQuery, err)
	}

	point, err := u.resolvePoint(ctx, req)
	if err != nil {
		return cr, "", err
	}
	cr.Point = point

	if req.Date != "" {
		d, err := time.Parse("2006-01-02", req.Date)
		if err != nil {
			return cr, "", fmt.Errorf("%w: date must be YYYY-MM-DD", ErrInvalidQuery)
		}
		cr.Date = &d
	}
	switch entity.CollectionType(req.CollectionType) {
	case "", entity.CollectionHome, entity.CollectionClinic:
		cr.CollectionType = entity.CollectionType(req.CollectionType)
	default:
		return cr, "", fmt.Errorf("%w: unknown collection type", ErrInvalidQuery)
	}

	cr.AsOf = entity.DateOnly(u.now().UTC())
	cr.Unit = u.unit
	return cr, sortBy, nil
}

func (u *providerSearchUsecase) resolvePoint(ctx context.Context, req *dto.ProviderSearchRequest) (geo.Point, error) {
	if req.Lat != nil && req.Lng != nil {
		p := geo.Point{Lat: *req.Lat, Lng: *req.Lng}
		if err := p.Validate(); err != nil {
			return geo.Point{}, err
		}
		return p, nil
	}
	postcode := entity.NormalizePostcode(req.Postcode)
	if postcode == "" {
		return geo.Point{}, geo.ErrInvalidLocation
	}
	if u.geocoder == nil {
		return geo.Point{}, fmt.Errorf("%w: coordinates are required", ErrInvalidQuery)
	}
	p, err := u.geocoder.GeocodePostcode(ctx, postcode)
	if err != nil {
		if !errors.Is(err, gateway.ErrPostcodeNotFound) {
			u.log.Warnf("Failed to geocode postcode %s: %+v", postcode, err)
		}
		return geo.Point{}, err
	}
	return p, nil
}

func (u *providerSearchUsecase) toResponse(res *searchResult) *dto.ProviderSearchResponse {
	return &dto.ProviderSearchResponse{
		Providers:     converter.MatchesToResponses(res.matches),
		Total:         len(res.matches),
		SortBy:        string(res.sortBy),
		RadiusUsed:    res.radius,
		WidenedRadius: res.widened,
		Unit:          string(u.unit),
	}
}
