// Package web exposes the navigator over HTTP/JSON and pushes every
// applied fix to WebSocket clients.
package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"go-termgps/app"
	"go-termgps/nav"
	"go-termgps/provider"
)

// nmeaSatellites is reported in encoded GGA sentences.
const nmeaSatellites = 8

// Server serves the navigation API.
type Server struct {
	ctrl      *app.Controller
	upgrader  websocket.Upgrader
	mu        sync.Mutex // guards clients
	clients   map[*websocket.Conn]bool
	broadcast chan nav.Update
	logger    *slog.Logger
}

// NewServer creates a server and subscribes it to the navigator's fixes.
// Run must be called to deliver them to WebSocket clients.
func NewServer(ctrl *app.Controller, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		ctrl: ctrl,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		clients:   make(map[*websocket.Conn]bool),
		broadcast: make(chan nav.Update, 16),
		logger:    logger,
	}

	ctrl.Navigator().OnFix(func(u nav.Update) {
		select {
		case s.broadcast <- u:
		default:
			// Channel full, skip this update
		}
	})
	return s
}

// Router returns the HTTP handler.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/status", s.handleStatus).Methods(http.MethodGet)
	api.HandleFunc("/frame", s.handleFrame).Methods(http.MethodGet)
	api.HandleFunc("/nmea", s.handleNMEA).Methods(http.MethodGet)
	api.HandleFunc("/search", s.handleSearch).Methods(http.MethodGet)
	api.HandleFunc("/refresh", s.handleRefresh).Methods(http.MethodPost)
	api.HandleFunc("/track", s.handleTrack).Methods(http.MethodPost)
	api.HandleFunc("/next", s.handleNext).Methods(http.MethodPost)
	api.HandleFunc("/prev", s.handlePrev).Methods(http.MethodPost)
	api.HandleFunc("/clear", s.handleClear).Methods(http.MethodPost)
	api.HandleFunc("/pan", s.handlePan).Methods(http.MethodPost)
	api.HandleFunc("/destination", s.handleDestination).Methods(http.MethodPost)
	api.HandleFunc("/places", s.handleSavePlace).Methods(http.MethodPost)
	api.HandleFunc("/places/{name}", s.handleDeletePlace).Methods(http.MethodDelete)
	api.HandleFunc("/ws", s.handleWebSocket)

	r.HandleFunc("/favicon.ico", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	return r
}

// ListenAndServe serves on addr until ctx is done, then shuts down. The
// WebSocket broadcast loop runs for as long as the listener does.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	server := &http.Server{
		Addr:         addr,
		Handler:      s.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	runCtx, stopRun := context.WithCancel(ctx)
	runDone := make(chan struct{})
	go func() {
		defer close(runDone)
		s.Run(runCtx)
	}()
	defer func() {
		stopRun()
		<-runDone
	}()

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("web server listening", slog.String("addr", addr))
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown web server: %w", err)
		}
		return nil
	}
}

// Run forwards navigator updates to all WebSocket clients until ctx is done.
func (s *Server) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			s.closeClients()
			return
		case u := <-s.broadcast:
			s.broadcastToClients(message{Type: "update", Data: u})
		}
	}
}

type message struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

func (s *Server) broadcastToClients(msg message) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for client := range s.clients {
		client.SetWriteDeadline(time.Now().Add(5 * time.Second))
		if err := client.WriteJSON(msg); err != nil {
			s.logger.Warn("websocket write failed", slog.Any("error", err))
			client.Close()
			delete(s.clients, client)
		}
	}
}

func (s *Server) closeClients() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for client := range s.clients {
		client.Close()
		delete(s.clients, client)
	}
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", slog.Any("error", err))
		return
	}
	defer conn.Close()

	// Send current status immediately, under the lock so that it is
	// ordered before any broadcast.
	s.mu.Lock()
	err = conn.WriteJSON(message{Type: "status", Data: s.ctrl.Navigator().Status()})
	if err == nil {
		s.clients[conn] = true
	}
	n := len(s.clients)
	s.mu.Unlock()
	if err != nil {
		s.logger.Warn("sending status failed", slog.Any("error", err))
		return
	}
	s.logger.Info("client connected", slog.Int("clients", n))

	// Incoming messages are ignored; reading detects the disconnect.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	s.mu.Lock()
	delete(s.clients, conn)
	n = len(s.clients)
	s.mu.Unlock()
	s.logger.Info("client disconnected", slog.Int("clients", n))
}

type statusResponse struct {
	Status   nav.Status        `json:"status"`
	Position nav.PositionState `json:"position"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	n := s.ctrl.Navigator()
	writeJSON(w, http.StatusOK, statusResponse{Status: n.Status(), Position: n.Position()})
}

func (s *Server) handleFrame(w http.ResponseWriter, r *http.Request) {
	cfg := s.ctrl.Navigator().Config()
	scale, radius := cfg.RadarScale, cfg.RadarRadius

	q := r.URL.Query()
	if v := q.Get("scale"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			s.writeError(w, fmt.Errorf("scale %q: %w", v, nav.ErrInvalidScale))
			return
		}
		scale = f
	}
	if v := q.Get("radius"); v != "" {
		i, err := strconv.Atoi(v)
		if err != nil {
			s.writeError(w, fmt.Errorf("radius %q: %w", v, nav.ErrInvalidScale))
			return
		}
		radius = i
	}

	frame, err := s.ctrl.Navigator().FrameAt(scale, radius)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, frame)
}

// handleNMEA renders the last fix as GGA and RMC sentences, so that NMEA
// consumers can follow the navigator.
func (s *Server) handleNMEA(w http.ResponseWriter, r *http.Request) {
	state := s.ctrl.Navigator().Position()
	if state.LastFix == nil {
		s.writeError(w, nav.ErrNoFix)
		return
	}

	speed, _ := state.SpeedEstimate()
	course, _ := state.Heading()
	writeJSON(w, http.StatusOK, map[string]string{
		"gga": strings.TrimSpace(provider.EncodeGGA(*state.LastFix, nmeaSatellites)),
		"rmc": strings.TrimSpace(provider.EncodeRMC(*state.LastFix, speed/1.852, course)),
	})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	places, err := s.ctrl.Search(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	if places == nil {
		places = []provider.Place{}
	}
	writeJSON(w, http.StatusOK, places)
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	u, err := s.ctrl.RefreshLocation(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (s *Server) handleTrack(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{"tracking": s.ctrl.ToggleTracking()})
}

func (s *Server) handleNext(w http.ResponseWriter, r *http.Request) {
	s.stepResponse(w, s.ctrl.Advance())
}

func (s *Server) handlePrev(w http.ResponseWriter, r *http.Request) {
	s.stepResponse(w, s.ctrl.Retreat())
}

func (s *Server) stepResponse(w http.ResponseWriter, err error) {
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.ctrl.Navigator().Status())
}

func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	s.ctrl.Clear()
	writeJSON(w, http.StatusOK, s.ctrl.Navigator().Status())
}

type panRequest struct {
	DX int `json:"dx"`
	DY int `json:"dy"`
}

func (s *Server) handlePan(w http.ResponseWriter, r *http.Request) {
	var req panRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, fmt.Sprintf("Invalid JSON: %v", err), http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, s.ctrl.Pan(req.DX, req.DY))
}

func (s *Server) handleDestination(w http.ResponseWriter, r *http.Request) {
	var dest nav.GeoPoint
	if err := json.NewDecoder(r.Body).Decode(&dest); err != nil {
		http.Error(w, fmt.Sprintf("Invalid JSON: %v", err), http.StatusBadRequest)
		return
	}

	route, err := s.ctrl.SetDestination(r.Context(), dest)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, route)
}

func (s *Server) handleSavePlace(w http.ResponseWriter, r *http.Request) {
	var p provider.Place
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		http.Error(w, fmt.Sprintf("Invalid JSON: %v", err), http.StatusBadRequest)
		return
	}
	if err := s.ctrl.SavePlace(r.Context(), p); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (s *Server) handleDeletePlace(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	if err := s.ctrl.DeletePlace(r.Context(), name); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"deleted": name})
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, nav.ErrNoFix),
		errors.Is(err, nav.ErrNoRoute),
		errors.Is(err, nav.ErrAtFirstStep),
		errors.Is(err, nav.ErrAtLastStep),
		errors.Is(err, nav.ErrStaleFix):
		return http.StatusConflict
	case errors.Is(err, nav.ErrInvalidRoute),
		errors.Is(err, nav.ErrInvalidScale),
		errors.Is(err, nav.ErrInvalidFix):
		return http.StatusBadRequest
	case errors.Is(err, app.ErrNoPlaceStore):
		return http.StatusNotImplemented
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusBadGateway
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	code := statusFor(err)
	if code >= http.StatusInternalServerError {
		s.logger.Warn("request failed", slog.Int("code", code), slog.Any("error", err))
	}
	writeJSON(w, code, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}
