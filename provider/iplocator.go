package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"go-termgps/nav"
)

const (
	// DefaultIPLocatorURL is the ip-api.com JSON endpoint.
	DefaultIPLocatorURL = "http://ip-api.com/json/"
	// ipAccuracyMeters is the nominal accuracy of IP geolocation.
	ipAccuracyMeters = 10000
)

type httpStatusError struct {
	Code int
	Body string
}

func (e *httpStatusError) Error() string {
	return fmt.Sprintf("Code %d: %s", e.Code, e.Body)
}

// IPLocator estimates the position from the public IP address.
type IPLocator struct {
	url     string
	session *http.Client
	now     func() time.Time
	// MaxAttempts bounds retries of transient failures.
	MaxAttempts int
	Backoff     time.Duration
}

// NewIPLocator creates a locator querying url; an empty url uses
// DefaultIPLocatorURL.
func NewIPLocator(url string) *IPLocator {
	if url == "" {
		url = DefaultIPLocatorURL
	}
	return &IPLocator{
		url:         url,
		session:     &http.Client{Timeout: 4 * time.Second},
		now:         time.Now,
		MaxAttempts: 3,
		Backoff:     200 * time.Millisecond,
	}
}

type ipAPIResponse struct {
	Status  string   `json:"status"`
	Message string   `json:"message"`
	Lat     *float64 `json:"lat"`
	Lon     *float64 `json:"lon"`
	City    string   `json:"city"`
}

// Locate queries the service once, retrying transient failures.
func (l *IPLocator) Locate(ctx context.Context) (nav.Fix, error) {
	resp, err := l.doWithRetry(ctx, func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.url, nil)
		if err != nil {
			return nil, fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("Accept", "application/json")
		return req, nil
	})
	if err != nil {
		return nav.Fix{}, fmt.Errorf("ip locate: %w", err)
	}
	defer resp.Body.Close()

	var body ipAPIResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nav.Fix{}, fmt.Errorf("ip locate: decode response: %w", err)
	}
	if body.Status != "" && body.Status != "success" {
		return nav.Fix{}, fmt.Errorf("ip locate: %s: %w", body.Message, ErrNoPosition)
	}
	if body.Lat == nil || body.Lon == nil {
		return nav.Fix{}, fmt.Errorf("ip locate: response without coordinates: %w", ErrNoPosition)
	}

	p := nav.GeoPoint{Latitude: *body.Lat, Longitude: *body.Lon}
	if !p.Valid() {
		return nav.Fix{}, fmt.Errorf("ip locate: %v: %w", p, nav.ErrInvalidFix)
	}
	return nav.Fix{
		Point:          p,
		AccuracyMeters: ipAccuracyMeters,
		Source:         nav.SourceIPFallback,
		Timestamp:      l.now(),
	}, nil
}

func (l *IPLocator) do(req *http.Request) (*http.Response, error) {
	resp, err := l.session.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 400 {
		b, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		return nil, &httpStatusError{
			Code: resp.StatusCode,
			Body: strings.TrimSpace(string(b)),
		}
	}
	return resp, nil
}

// doWithRetry retries transient failures (network errors, 429 and 5xx
// responses) with exponential backoff while respecting ctx.
func (l *IPLocator) doWithRetry(
	ctx context.Context,
	makeReq func() (*http.Request, error),
) (*http.Response, error) {
	maxAttempts := l.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	backoff := l.Backoff

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		req, err := makeReq()
		if err != nil {
			return nil, err
		}

		resp, err := l.do(req)
		if err == nil {
			return resp, nil
		}
		lastErr = err

		retry := false
		var he *httpStatusError
		if errors.As(err, &he) {
			switch he.Code {
			case 429, 500, 502, 503, 504:
				retry = true
			}
		}

		var netErr net.Error
		if !retry && errors.As(err, &netErr) {
			retry = true
		}

		if !retry || attempt == maxAttempts {
			return nil, lastErr
		}

		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}

		backoff *= 2
	}

	return nil, lastErr
}
