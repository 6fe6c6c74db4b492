// Package proximity finds online providers near a requester.
package proximity

import (
    "context"
    "errors"
    "fmt"
    "math"
    "sort"
    "time"

    "marketplace.engine/internal/directory"
)

var ErrInvalidQuery = errors.New("invalid proximity query")

// LocationSource lists provider location snapshots of one kind. It may
// prefilter on online/KYC status; the Matcher drops offline entries anyway.
type LocationSource interface {
    ListLocations(ctx context.Context, kind directory.Kind) ([]directory.ProviderLocation, error)
}

type Match struct {
    ProviderID string    `json:"provider_id"`
    DistanceKm float64   `json:"distance_km"`
    Lat        float64   `json:"lat"`
    Lng        float64   `json:"lng"`
    UpdatedAt  time.Time `json:"updated_at"`
}

type Query struct {
    Kind     directory.Kind
    Lat      float64
    Lng      float64
    RadiusKm float64
}

func (q Query) Validate() error {
    if _, err := directory.ParseKind(string(q.Kind)); err != nil {
        return fmt.Errorf("%w: %v", ErrInvalidQuery, err)
    }
    if !validCoordinates(q.Lat, q.Lng) {
        return fmt.Errorf("%w: coordinates out of range", ErrInvalidQuery)
    }
    if !(q.RadiusKm > 0) || math.IsInf(q.RadiusKm, 0) {
        return fmt.Errorf("%w: radius must be positive", ErrInvalidQuery)
    }
    return nil
}

// Matcher is stateless; each call works on a fresh snapshot.
type Matcher struct {
    source LocationSource
}

func NewMatcher(source LocationSource) *Matcher {
    return &Matcher{source: source}
}

func (m *Matcher) FindNearby(ctx context.Context, kind directory.Kind, lat, lng, radiusKm float64) ([]Match, error) {
    return m.Find(ctx, Query{Kind: kind, Lat: lat, Lng: lng, RadiusKm: radiusKm})
}

func (m *Matcher) Find(ctx context.Context, q Query) ([]Match, error) {
    if err := q.Validate(); err != nil {
        return nil, err
    }

    locs, err := m.source.ListLocations(ctx, q.Kind)
    if err != nil {
        return nil, fmt.Errorf("list %s locations: %w", q.Kind, err)
    }

    matches := make([]Match, 0, len(locs))
    for _, loc := range locs {
        if !loc.IsOnline || !validCoordinates(loc.Lat, loc.Lng) {
            continue
        }
        d := HaversineKm(q.Lat, q.Lng, loc.Lat, loc.Lng)
        if d > q.RadiusKm {
            continue
        }
        matches = append(matches, Match{
            ProviderID: loc.ProviderID,
            DistanceKm: d,
            Lat:        loc.Lat,
            Lng:        loc.Lng,
            UpdatedAt:  loc.UpdatedAt,
        })
    }

    sort.Slice(matches, func(i, j int) bool {
        if matches[i].DistanceKm != matches[j].DistanceKm {
            return matches[i].DistanceKm < matches[j].DistanceKm
        }
        return matches[i].ProviderID < matches[j].ProviderID
    })
    return matches, nil
}
