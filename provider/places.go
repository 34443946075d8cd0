package provider

import (
	"context"
	"fmt"
	"strings"

	"go-termgps/nav"
)

// minQueryLength is the shortest query any geocoder answers.
const minQueryLength = 2

// maxResults caps the results of a MultiGeocoder.
const maxResults = 8

// Catalog is an in-memory list of quick places.
type Catalog []Place

// DefaultCatalog returns the built-in quick places.
func DefaultCatalog() Catalog {
	return Catalog{
		{Name: "Chennai", Point: nav.GeoPoint{Latitude: 13.0827, Longitude: 80.2707}},
		{Name: "Coimbatore", Point: nav.GeoPoint{Latitude: 11.0168, Longitude: 76.9558}},
		{Name: "Madurai", Point: nav.GeoPoint{Latitude: 9.9252, Longitude: 78.1198}},
		{Name: "Bangalore", Point: nav.GeoPoint{Latitude: 12.9716, Longitude: 77.5946}},
		{Name: "Mumbai", Point: nav.GeoPoint{Latitude: 19.0760, Longitude: 72.8777}},
		{Name: "Delhi", Point: nav.GeoPoint{Latitude: 28.6139, Longitude: 77.2090}},
	}
}

// Search matches names case-insensitively by substring.
func (c Catalog) Search(ctx context.Context, query string) ([]Place, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	q := strings.ToLower(strings.TrimSpace(query))
	if len(q) < minQueryLength {
		return nil, nil
	}

	var out []Place
	for _, p := range c {
		if strings.Contains(strings.ToLower(p.Name), q) {
			out = append(out, p)
		}
	}
	return out, nil
}

// MultiGeocoder merges the results of several geocoders in order, skipping
// duplicate names. A failing geocoder does not hide the others' results.
type MultiGeocoder []Geocoder

// Search queries every geocoder and returns at most eight places. It fails
// only when every geocoder failed.
func (m MultiGeocoder) Search(ctx context.Context, query string) ([]Place, error) {
	var (
		out      []Place
		seen     = map[string]struct{}{}
		failures int
		lastErr  error
	)

	for _, g := range m {
		places, err := g.Search(ctx, query)
		if err != nil {
			failures++
			lastErr = err
			continue
		}
		for _, p := range places {
			key := strings.ToLower(p.Name)
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			out = append(out, p)
			if len(out) == maxResults {
				return out, nil
			}
		}
	}

	if len(m) > 0 && failures == len(m) {
		return nil, fmt.Errorf("search %q: %w", query, lastErr)
	}
	return out, nil
}
