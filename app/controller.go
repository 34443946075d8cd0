// Package app maps user commands onto the navigator and its collaborators.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"go-termgps/nav"
	"go-termgps/provider"
)

// ErrNoPlaceStore is returned when saving a place without a store configured.
var ErrNoPlaceStore = errors.New("no place store configured")

// PlaceStore persists named places.
type PlaceStore interface {
	Save(ctx context.Context, p provider.Place) error
	Delete(ctx context.Context, name string) error
}

// Options wires the collaborators of a Controller. Locator, Router and
// Geocoder are required; Places is optional.
type Options struct {
	Locator  provider.Locator
	Router   provider.Router
	Geocoder provider.Geocoder
	Places   PlaceStore
	Logger   *slog.Logger
}

// Controller executes presentation commands. A failing collaborator never
// clears the last known good state: the previous fix and route stay in
// place and the error is returned to the caller.
type Controller struct {
	nav      *nav.Navigator
	locator  provider.Locator
	router   provider.Router
	geocoder provider.Geocoder
	places   PlaceStore
	logger   *slog.Logger

	routeMu sync.Mutex // serializes route calculations
}

// New creates a controller for n.
func New(n *nav.Navigator, opts Options) (*Controller, error) {
	if n == nil {
		return nil, errors.New("new controller: navigator is nil")
	}
	if opts.Locator == nil || opts.Router == nil || opts.Geocoder == nil {
		return nil, errors.New("new controller: locator, router and geocoder are required")
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	return &Controller{
		nav:      n,
		locator:  opts.Locator,
		router:   opts.Router,
		geocoder: opts.Geocoder,
		places:   opts.Places,
		logger:   opts.Logger,
	}, nil
}

// Navigator returns the navigator driven by c.
func (c *Controller) Navigator() *nav.Navigator {
	return c.nav
}

// RefreshLocation probes the locator once and applies the fix.
func (c *Controller) RefreshLocation(ctx context.Context) (nav.Update, error) {
	fix, err := c.locator.Locate(ctx)
	if err != nil {
		c.logger.Warn("refresh location failed", slog.Any("error", err))
		return nav.Update{}, fmt.Errorf("refresh location: %w", err)
	}

	u, err := c.nav.Refresh(fix)
	if err != nil {
		return nav.Update{}, fmt.Errorf("refresh location: %w", err)
	}
	c.logger.Info("location refreshed",
		slog.String("point", fix.Point.String()),
		slog.String("source", fix.Source.String()),
		slog.String("accuracy", fix.AccuracyLabel()))
	return u, nil
}

// ToggleTracking flips periodic tracking and returns the new setting.
func (c *Controller) ToggleTracking() bool {
	return c.nav.ToggleTracking()
}

// Search looks up places by name.
func (c *Controller) Search(ctx context.Context, query string) ([]provider.Place, error) {
	places, err := c.geocoder.Search(ctx, query)
	if err != nil {
		c.logger.Warn("place search failed", slog.String("query", query), slog.Any("error", err))
		return nil, fmt.Errorf("search: %w", err)
	}
	return places, nil
}

// SetDestination calculates a route from the current position to dest and
// makes it the active route. It needs a fix; on any failure the previous
// route and step stay active.
func (c *Controller) SetDestination(ctx context.Context, dest nav.GeoPoint) (*nav.RouteModel, error) {
	if !dest.Valid() {
		return nil, fmt.Errorf("set destination %v: %w", dest, nav.ErrInvalidRoute)
	}
	origin, ok := c.nav.Position().Point()
	if !ok {
		return nil, fmt.Errorf("set destination: %w", nav.ErrNoFix)
	}

	c.routeMu.Lock()
	defer c.routeMu.Unlock()

	route, err := c.router.Route(ctx, origin, dest)
	if err != nil {
		c.logger.Warn("route calculation failed",
			slog.String("destination", dest.String()), slog.Any("error", err))
		return nil, fmt.Errorf("set destination: %w", err)
	}
	if err := c.nav.SetRoute(route); err != nil {
		return nil, fmt.Errorf("set destination: %w", err)
	}
	return route, nil
}

// SavePlace stores p so that later searches find it.
func (c *Controller) SavePlace(ctx context.Context, p provider.Place) error {
	if c.places == nil {
		return ErrNoPlaceStore
	}
	if err := c.places.Save(ctx, p); err != nil {
		return fmt.Errorf("save place: %w", err)
	}
	c.purgeSearches()
	c.logger.Info("place saved", slog.String("name", p.Name))
	return nil
}

// DeletePlace removes a saved place. Deleting an unknown name is not an error.
func (c *Controller) DeletePlace(ctx context.Context, name string) error {
	if c.places == nil {
		return ErrNoPlaceStore
	}
	if err := c.places.Delete(ctx, name); err != nil {
		return fmt.Errorf("delete place: %w", err)
	}
	c.purgeSearches()
	c.logger.Info("place deleted", slog.String("name", name))
	return nil
}

// purgeSearches drops cached search results after the saved places changed.
func (c *Controller) purgeSearches() {
	if pg, ok := c.geocoder.(interface{ Purge() }); ok {
		pg.Purge()
	}
}

// Advance moves to the next step.
func (c *Controller) Advance() error {
	return c.nav.Advance()
}

// Retreat moves to the previous step.
func (c *Controller) Retreat() error {
	return c.nav.Retreat()
}

// Clear drops the route and stops tracking.
func (c *Controller) Clear() {
	c.nav.ClearRoute()
	c.nav.SetTracking(false)
}

// Pan shifts the radar view; a zero shift recenters it.
func (c *Controller) Pan(dx, dy int) nav.Cell {
	if dx == 0 && dy == 0 {
		c.nav.ResetPan()
		return nav.Cell{}
	}
	return c.nav.Pan(dx, dy)
}
