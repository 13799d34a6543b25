package places

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/patrickmn/go-cache"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"googlemaps.github.io/maps"

	"github.com/Quekzhengseng/ggdotcom/internal/types"
)

const (
	geocodeCacheTTL = 15 * time.Minute
	// Radius used when the caller asks for a radius scan instead of
	// distance ranking.
	scanRadiusMeters  = 500
	defaultPhotoWidth = 400
)

// DefaultPlaceTypes is the attraction filter the walking tour scans for. The
// nearby search API honors a single type restriction, so the first entry is
// the one sent upstream.
var DefaultPlaceTypes = []string{
	"tourist_attraction", "museum", "art_gallery", "park", "shopping_mall",
	"hindu_temple", "church", "mosque", "place_of_worship",
	"amusement_park", "aquarium", "zoo",
	"restaurant", "cafe",
}

var _ Service = (*ServiceImpl)(nil)

// Service is the black-box coordinate lookup the tour service depends on.
type Service interface {
	// ReverseGeocode resolves coordinates to a formatted address. Callers
	// fall back to the raw "lat,lng" string when this fails.
	ReverseGeocode(ctx context.Context, lat, lng float64) (string, error)

	// Nearby returns distance-ordered candidates around the point. byRadius
	// swaps distance ranking for a fixed-radius lookup.
	Nearby(ctx context.Context, lat, lng float64, byRadius bool) ([]types.PlaceCandidate, error)

	// Photo fetches the image bytes behind a places photo reference.
	Photo(ctx context.Context, photoRef string, maxWidth int) ([]byte, error)
}

type ServiceImpl struct {
	logger    *slog.Logger
	client    *maps.Client
	placeType maps.PlaceType
	geoCache  *cache.Cache
}

// NewServiceImpl wraps the Google Maps client. baseURL and httpc are
// overridable for tests; pass "" and nil in production.
func NewServiceImpl(apiKey, baseURL string, placeTypes []string, httpc *http.Client, logger *slog.Logger) (*ServiceImpl, error) {
	opts := []maps.ClientOption{maps.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, maps.WithBaseURL(baseURL))
	}
	if httpc != nil {
		opts = append(opts, maps.WithHTTPClient(httpc))
	}
	client, err := maps.NewClient(opts...)
	if err != nil {
		return nil, fmt.Errorf("creating maps client: %w", err)
	}

	if len(placeTypes) == 0 {
		placeTypes = DefaultPlaceTypes
	}
	placeType, err := maps.ParsePlaceType(placeTypes[0])
	if err != nil {
		return nil, fmt.Errorf("invalid place type %q: %w", placeTypes[0], err)
	}

	return &ServiceImpl{
		logger:    logger,
		client:    client,
		placeType: placeType,
		geoCache:  cache.New(geocodeCacheTTL, 2*geocodeCacheTTL),
	}, nil
}

func (s *ServiceImpl) ReverseGeocode(ctx context.Context, lat, lng float64) (string, error) {
	ctx, span := otel.Tracer("PlacesService").Start(ctx, "ReverseGeocode", trace.WithAttributes(
		attribute.Float64("lat", lat),
		attribute.Float64("lng", lng),
	))
	defer span.End()

	latlng := fmt.Sprintf("%f,%f", lat, lng)
	if hit, ok := s.geoCache.Get(latlng); ok {
		span.SetStatus(codes.Ok, "Address served from cache")
		return hit.(string), nil
	}

	results, err := s.client.ReverseGeocode(ctx, &maps.GeocodingRequest{
		LatLng:   &maps.LatLng{Lat: lat, Lng: lng},
		Language: "en",
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Geocode request failed")
		return "", fmt.Errorf("reverse geocoding %s: %w: %w", latlng, types.ErrUnavailable, err)
	}
	if len(results) == 0 {
		err := fmt.Errorf("geocode returned no address: %w", types.ErrUnavailable)
		span.RecordError(err)
		span.SetStatus(codes.Error, "Geocode returned no address")
		return "", err
	}

	address := results[0].FormattedAddress
	s.geoCache.Set(latlng, address, cache.DefaultExpiration)
	span.SetStatus(codes.Ok, "Address resolved")
	return address, nil
}

func (s *ServiceImpl) Nearby(ctx context.Context, lat, lng float64, byRadius bool) ([]types.PlaceCandidate, error) {
	ctx, span := otel.Tracer("PlacesService").Start(ctx, "Nearby", trace.WithAttributes(
		attribute.Float64("lat", lat),
		attribute.Float64("lng", lng),
		attribute.Bool("by_radius", byRadius),
	))
	defer span.End()

	req := &maps.NearbySearchRequest{
		Location: &maps.LatLng{Lat: lat, Lng: lng},
		Type:     s.placeType,
		Language: "en",
	}
	// Distance ranking and a radius are mutually exclusive upstream.
	if byRadius {
		req.Radius = scanRadiusMeters
	} else {
		req.RankBy = maps.RankByDistance
	}

	resp, err := s.client.NearbySearch(ctx, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Nearby request failed")
		return nil, fmt.Errorf("nearby search: %w: %w", types.ErrUnavailable, err)
	}

	candidates := make([]types.PlaceCandidate, 0, len(resp.Results))
	for _, res := range resp.Results {
		candidate := types.PlaceCandidate{
			Name: res.Name,
			Coordinates: types.Coordinates{
				Lat: res.Geometry.Location.Lat,
				Lng: res.Geometry.Location.Lng,
			},
		}
		if len(res.Photos) > 0 {
			candidate.PhotoRef = res.Photos[0].PhotoReference
		}
		candidates = append(candidates, candidate)
	}

	span.SetAttributes(attribute.Int("candidates.count", len(candidates)))
	span.SetStatus(codes.Ok, "Nearby candidates retrieved")
	return candidates, nil
}

func (s *ServiceImpl) Photo(ctx context.Context, photoRef string, maxWidth int) ([]byte, error) {
	ctx, span := otel.Tracer("PlacesService").Start(ctx, "Photo")
	defer span.End()

	if maxWidth <= 0 {
		maxWidth = defaultPhotoWidth
	}

	resp, err := s.client.PlacePhoto(ctx, &maps.PlacePhotoRequest{
		PhotoReference: photoRef,
		MaxWidth:       uint(maxWidth),
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Photo request failed")
		return nil, fmt.Errorf("fetching photo: %w: %w", types.ErrUnavailable, err)
	}
	defer resp.Data.Close()

	data, err := io.ReadAll(resp.Data)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("reading photo body: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("photo fetch returned no data: %w", types.ErrNotFound)
	}

	span.SetAttributes(attribute.Int("photo.bytes", len(data)))
	span.SetStatus(codes.Ok, "Photo fetched")
	return data, nil
}
