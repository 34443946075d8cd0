package web

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"go-termgps/app"
	"go-termgps/nav"
	"go-termgps/provider"
)

var origin = nav.GeoPoint{Latitude: 13.08, Longitude: 80.27}

type stubLocator struct {
	mu  sync.Mutex
	fix nav.Fix
}

func (s *stubLocator) Locate(ctx context.Context) (nav.Fix, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fix.Timestamp.IsZero() {
		return nav.Fix{}, provider.ErrNoPosition
	}
	return s.fix, nil
}

// Helper function to start a test server with a fresh navigator
func setupServer(t *testing.T) (*httptest.Server, *stubLocator, *Server) {
	t.Helper()
	return setupServerWithPlaces(t, nil)
}

func setupServerWithPlaces(t *testing.T, places app.PlaceStore) (*httptest.Server, *stubLocator, *Server) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	n, err := nav.NewNavigator(nav.DefaultConfig(), logger)
	if err != nil {
		t.Fatal(err)
	}
	loc := &stubLocator{}
	var geocoder provider.Geocoder = provider.DefaultCatalog()
	if g, ok := places.(provider.Geocoder); ok {
		geocoder = provider.MultiGeocoder{g, provider.DefaultCatalog()}
	}
	ctrl, err := app.New(n, app.Options{
		Locator:  loc,
		Router:   provider.DirectRouter{},
		Geocoder: geocoder,
		Places:   places,
		Logger:   logger,
	})
	if err != nil {
		t.Fatal(err)
	}

	s := NewServer(ctrl, logger)
	ctx, cancel := context.WithCancel(context.Background())
	go s.Run(ctx)

	srv := httptest.NewServer(s.Router())
	t.Cleanup(func() {
		srv.Close()
		cancel()
	})
	return srv, loc, s
}

func setFix(loc *stubLocator, p nav.GeoPoint) {
	loc.mu.Lock()
	defer loc.mu.Unlock()
	loc.fix = nav.Fix{
		Point:          p,
		AccuracyMeters: 5,
		Source:         nav.SourceNativeGPS,
		Timestamp:      time.Now(),
	}
}

func post(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	resp, err := http.Post(url, "application/json", &buf)
	if err != nil {
		t.Fatalf("POST %s failed: %v", url, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func get(t *testing.T, url string) *http.Response {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s failed: %v", url, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("Decoding response failed: %v", err)
	}
}

func TestStatusWithoutFix(t *testing.T) {
	srv, _, _ := setupServer(t)

	resp := get(t, srv.URL+"/api/status")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200, got %d", resp.StatusCode)
	}
	var body struct {
		Status struct {
			Kind   string `json:"kind"`
			HasFix bool   `json:"has_fix"`
		} `json:"status"`
	}
	decode(t, resp, &body)
	if body.Status.HasFix {
		t.Error("Expected no fix")
	}
	if body.Status.Kind != nav.StatusIdle.String() {
		t.Errorf("Expected idle status, got %q", body.Status.Kind)
	}
}

func TestRefreshAndNavigate(t *testing.T) {
	srv, loc, _ := setupServer(t)

	if resp := post(t, srv.URL+"/api/destination", origin); resp.StatusCode != http.StatusConflict {
		t.Errorf("Expected 409 without a fix, got %d", resp.StatusCode)
	}
	if resp := post(t, srv.URL+"/api/refresh", nil); resp.StatusCode != http.StatusBadGateway {
		t.Errorf("Expected 502 when the locator fails, got %d", resp.StatusCode)
	}

	setFix(loc, origin)
	if resp := post(t, srv.URL+"/api/refresh", nil); resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200 on refresh, got %d", resp.StatusCode)
	}

	dest := nav.Destination(origin, 3000, 90)
	resp := post(t, srv.URL+"/api/destination", dest)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200 on destination, got %d", resp.StatusCode)
	}
	var route struct {
		Steps []json.RawMessage `json:"steps"`
	}
	decode(t, resp, &route)
	if len(route.Steps) != 2 {
		t.Errorf("Expected 2 steps, got %d", len(route.Steps))
	}

	if resp := post(t, srv.URL+"/api/prev", nil); resp.StatusCode != http.StatusConflict {
		t.Errorf("Expected 409 at the first step, got %d", resp.StatusCode)
	}
	if resp := post(t, srv.URL+"/api/next", nil); resp.StatusCode != http.StatusOK {
		t.Errorf("Expected 200 on next, got %d", resp.StatusCode)
	}
	if resp := post(t, srv.URL+"/api/next", nil); resp.StatusCode != http.StatusConflict {
		t.Errorf("Expected 409 at the last step, got %d", resp.StatusCode)
	}

	resp = post(t, srv.URL+"/api/clear", nil)
	var status struct {
		StepIndex int `json:"step_index"`
	}
	decode(t, resp, &status)
	if status.StepIndex != -1 {
		t.Errorf("Expected no step after clear, got %d", status.StepIndex)
	}
}

func TestFrame(t *testing.T) {
	srv, loc, _ := setupServer(t)

	if resp := get(t, srv.URL+"/api/frame"); resp.StatusCode != http.StatusConflict {
		t.Errorf("Expected 409 without a fix, got %d", resp.StatusCode)
	}

	setFix(loc, origin)
	post(t, srv.URL+"/api/refresh", nil)
	post(t, srv.URL+"/api/destination", nav.Destination(origin, 200, 0))

	resp := get(t, srv.URL+"/api/frame?scale=20&radius=12")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200, got %d", resp.StatusCode)
	}
	var frame nav.RadarFrame
	decode(t, resp, &frame)
	if frame.GridRadius != 12 || frame.Scale != 20 {
		t.Errorf("Unexpected frame geometry %+v", frame)
	}
	if frame.Destination == nil || *frame.Destination != (nav.Cell{X: 0, Y: -10}) {
		t.Errorf("Expected destination at (0,-10), got %v", frame.Destination)
	}

	tests := []string{"scale=abc", "radius=x", "scale=0"}
	for _, q := range tests {
		if resp := get(t, srv.URL+"/api/frame?"+q); resp.StatusCode != http.StatusBadRequest {
			t.Errorf("%s: expected 400, got %d", q, resp.StatusCode)
		}
	}
}

func TestPanAndTrack(t *testing.T) {
	srv, _, _ := setupServer(t)

	resp := post(t, srv.URL+"/api/pan", panRequest{DX: 3, DY: -1})
	var cell nav.Cell
	decode(t, resp, &cell)
	if cell != (nav.Cell{X: 3, Y: -1}) {
		t.Errorf("Expected (3,-1), got %v", cell)
	}

	resp = post(t, srv.URL+"/api/track", nil)
	var tracking map[string]bool
	decode(t, resp, &tracking)
	if !tracking["tracking"] {
		t.Error("Expected tracking to be on")
	}

	badResp, err := http.Post(srv.URL+"/api/pan", "application/json", strings.NewReader("{"))
	if err != nil {
		t.Fatal(err)
	}
	badResp.Body.Close()
	if badResp.StatusCode != http.StatusBadRequest {
		t.Errorf("Expected 400 for bad JSON, got %d", badResp.StatusCode)
	}
}

func TestSearchAndPlaces(t *testing.T) {
	srv, _, _ := setupServer(t)

	resp := get(t, srv.URL+"/api/search?q=del")
	var places []provider.Place
	decode(t, resp, &places)
	if len(places) != 1 || places[0].Name != "Delhi" {
		t.Errorf("Expected Delhi, got %+v", places)
	}

	resp = get(t, srv.URL+"/api/search?q=d")
	places = nil
	decode(t, resp, &places)
	if places == nil || len(places) != 0 {
		t.Errorf("Expected an empty list, got %+v", places)
	}

	if resp := post(t, srv.URL+"/api/places", provider.Place{Name: "Home", Point: origin}); resp.StatusCode != http.StatusNotImplemented {
		t.Errorf("Expected 501 without a place store, got %d", resp.StatusCode)
	}
	if resp := del(t, srv.URL+"/api/places/Home"); resp.StatusCode != http.StatusNotImplemented {
		t.Errorf("Expected 501 deleting without a place store, got %d", resp.StatusCode)
	}
}

func del(t *testing.T, url string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodDelete, url, nil)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("DELETE %s failed: %v", url, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestSaveAndDeletePlace(t *testing.T) {
	store, err := provider.OpenPlaceStore(context.Background(), filepath.Join(t.TempDir(), "places.db"))
	if err != nil {
		t.Fatalf("OpenPlaceStore failed: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	srv, _, s := setupServerWithPlaces(t, store)

	if resp := post(t, srv.URL+"/api/places", provider.Place{Name: "Home", Point: origin}); resp.StatusCode != http.StatusCreated {
		t.Fatalf("Expected 201, got %d", resp.StatusCode)
	}
	places, err := s.ctrl.Search(context.Background(), "home")
	if err != nil || len(places) != 1 {
		t.Fatalf("Expected Home saved, got %+v (%v)", places, err)
	}

	resp := del(t, srv.URL+"/api/places/Home")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200, got %d", resp.StatusCode)
	}
	var body map[string]string
	decode(t, resp, &body)
	if body["deleted"] != "Home" {
		t.Errorf("Expected deleted Home, got %v", body)
	}
	if places, _ := s.ctrl.Search(context.Background(), "home"); len(places) != 0 {
		t.Errorf("Expected Home gone, got %+v", places)
	}
}

func TestListenAndServeBindFailure(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer ln.Close()

	_, _, s := setupServer(t)
	done := make(chan error, 1)
	go func() {
		done <- s.ListenAndServe(context.Background(), ln.Addr().String())
	}()

	// ListenAndServe only returns once its broadcast loop has stopped.
	select {
	case err := <-done:
		if err == nil {
			t.Error("Expected an error for an address in use")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("ListenAndServe did not return after failing to bind")
	}
}

func TestNMEA(t *testing.T) {
	srv, loc, _ := setupServer(t)

	if resp := get(t, srv.URL+"/api/nmea"); resp.StatusCode != http.StatusConflict {
		t.Errorf("Expected 409 without a fix, got %d", resp.StatusCode)
	}

	setFix(loc, origin)
	post(t, srv.URL+"/api/refresh", nil)

	resp := get(t, srv.URL+"/api/nmea")
	var sentences map[string]string
	decode(t, resp, &sentences)
	for _, key := range []string{"gga", "rmc"} {
		s, err := provider.ParseSentence(sentences[key])
		if err != nil {
			t.Errorf("%s does not parse: %v", key, err)
			continue
		}
		if nav.Distance(s.Point, origin) > 1 {
			t.Errorf("%s is %f m off", key, nav.Distance(s.Point, origin))
		}
	}
}

func TestWebSocketBroadcast(t *testing.T) {
	srv, loc, _ := setupServer(t)

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	defer conn.Close()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	var msg struct {
		Type string          `json:"type"`
		Data json.RawMessage `json:"data"`
	}
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("Reading initial status failed: %v", err)
	}
	if msg.Type != "status" {
		t.Errorf("Expected status message first, got %q", msg.Type)
	}

	setFix(loc, origin)
	post(t, srv.URL+"/api/refresh", nil)

	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("Reading update failed: %v", err)
	}
	if msg.Type != "update" {
		t.Fatalf("Expected update message, got %q", msg.Type)
	}
	var u struct {
		Fix struct {
			Point nav.GeoPoint `json:"point"`
		} `json:"fix"`
	}
	if err := json.Unmarshal(msg.Data, &u); err != nil {
		t.Fatal(err)
	}
	if u.Fix.Point != origin {
		t.Errorf("Expected broadcast of %v, got %v", origin, u.Fix.Point)
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err      error
		expected int
	}{
		{nav.ErrNoFix, http.StatusConflict},
		{nav.ErrAtLastStep, http.StatusConflict},
		{nav.ErrInvalidRoute, http.StatusBadRequest},
		{app.ErrNoPlaceStore, http.StatusNotImplemented},
		{context.DeadlineExceeded, http.StatusGatewayTimeout},
		{provider.ErrNoPosition, http.StatusBadGateway},
	}

	for _, tt := range tests {
		if got := statusFor(tt.err); got != tt.expected {
			t.Errorf("statusFor(%v) = %d, want %d", tt.err, got, tt.expected)
		}
	}
}
