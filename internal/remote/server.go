// Package remote exposes the presenter over HTTP so a phone or a second
// terminal can drive it. Mutations are forwarded to the presenter loop
// through a Driver; the server only ever reads published snapshots.
package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"postdeck/internal/logging"
	"postdeck/internal/nav"

	"github.com/gorilla/mux"
)

// Command is a navigation request.
type Command struct {
	Op   Op
	Flat int // Target for OpGoto
}

// Op names a navigation operation.
type Op string

const (
	OpNext     Op = "next"
	OpPrevious Op = "previous"
	OpGoto     Op = "goto"
)

// Driver applies commands on the goroutine that owns the controller and
// returns the resulting snapshot.
type Driver interface {
	Apply(ctx context.Context, cmd Command) (Snapshot, error)
}

// ErrNoDeck is returned before the presenter has published anything.
var ErrNoDeck = errors.New("no deck is being presented")

// Server is the presenter remote.
type Server struct {
	driver  Driver
	router  *mux.Router
	hub     *hub
	timeout time.Duration

	mu      sync.RWMutex
	snap    Snapshot
	hasSnap bool

	srv *http.Server
}

// NewServer returns a server forwarding commands to driver.
func NewServer(driver Driver) *Server {
	s := &Server{
		driver:  driver,
		hub:     newHub(),
		timeout: 5 * time.Second,
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() *mux.Router {
	r := mux.NewRouter()
	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/deck", s.GetDeck).Methods(http.MethodGet)
	api.HandleFunc("/position", s.GetPosition).Methods(http.MethodGet)
	api.HandleFunc("/next", s.command(func(*http.Request) (Command, error) {
		return Command{Op: OpNext}, nil
	})).Methods(http.MethodPost)
	api.HandleFunc("/previous", s.command(func(*http.Request) (Command, error) {
		return Command{Op: OpPrevious}, nil
	})).Methods(http.MethodPost)
	api.HandleFunc("/goto/{flat}", s.command(parseGoto)).Methods(http.MethodPost)
	r.HandleFunc("/ws", s.ServeWS).Methods(http.MethodGet)
	return r
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Publish records the presenter state and pushes it to stream clients.
func (s *Server) Publish(snap Snapshot) {
	s.mu.Lock()
	s.snap = snap
	s.hasSnap = true
	s.mu.Unlock()
	s.hub.broadcast(snap)
}

// Snapshot returns the last published state.
func (s *Server) Snapshot() (Snapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap, s.hasSnap
}

// ListenAndServe serves on addr until Shutdown.
func (s *Server) ListenAndServe(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("remote listen: %w", err)
	}
	return s.Serve(ln)
}

// Serve serves on ln until Shutdown.
func (s *Server) Serve(ln net.Listener) error {
	s.mu.Lock()
	s.srv = &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	srv := s.srv
	s.mu.Unlock()

	logging.Remote("remote listening on %s", ln.Addr())
	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops the HTTP server and disconnects stream clients.
func (s *Server) Shutdown(ctx context.Context) error {
	s.hub.closeAll()
	s.mu.RLock()
	srv := s.srv
	s.mu.RUnlock()
	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}

// GetDeck returns the deck shape and position.
// GET /api/deck
func (s *Server) GetDeck(w http.ResponseWriter, r *http.Request) {
	snap, ok := s.Snapshot()
	if !ok {
		http.Error(w, ErrNoDeck.Error(), http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// GetPosition returns the current position only.
// GET /api/position
func (s *Server) GetPosition(w http.ResponseWriter, r *http.Request) {
	snap, ok := s.Snapshot()
	if !ok {
		http.Error(w, ErrNoDeck.Error(), http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, http.StatusOK, snap.Position)
}

func parseGoto(r *http.Request) (Command, error) {
	raw := mux.Vars(r)["flat"]
	flat, err := strconv.Atoi(raw)
	if err != nil {
		return Command{}, fmt.Errorf("%w: %q is not a segment number", nav.ErrOutOfRange, raw)
	}
	return Command{Op: OpGoto, Flat: flat}, nil
}

// command wraps a navigation endpoint.
// POST /api/next, /api/previous, /api/goto/{flat}
func (s *Server) command(parse func(*http.Request) (Command, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cmd, err := parse(r)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if _, ok := s.Snapshot(); !ok {
			http.Error(w, ErrNoDeck.Error(), http.StatusServiceUnavailable)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), s.timeout)
		defer cancel()
		snap, err := s.driver.Apply(ctx, cmd)
		if err != nil {
			logging.Get(logging.CategoryRemote).Warn("%s rejected: %v", cmd.Op, err)
			http.Error(w, err.Error(), statusFor(err))
			return
		}
		logging.Get(logging.CategoryRemote).Debug("%s -> %s", cmd.Op, snap.Position)
		writeJSON(w, http.StatusOK, snap)
	}
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, nav.ErrPrecondition):
		return http.StatusConflict
	case errors.Is(err, nav.ErrOutOfRange):
		return http.StatusBadRequest
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled), errors.Is(err, ErrNoDeck):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Get(logging.CategoryRemote).Warn("failed to write response: %v", err)
	}
}
