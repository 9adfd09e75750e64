// Package admin serves a small operator console over HTTP. Every action is
// submitted to the dispatcher like any other inbound event.
package admin

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"html/template"
	"net"
	"net/http"
	"time"

	"robotnav/internal/event"
	"robotnav/internal/logging"
	"robotnav/internal/nav"
)

// Source tags events submitted from the console.
const Source = "admin"

// Dispatcher is the part of event.Dispatcher the console needs.
type Dispatcher interface {
	Submit(ctx context.Context, ev event.Event) error
	Controller() *nav.Controller
}

type Server struct {
	disp Dispatcher
	tpl  *template.Template
}

//go:embed templates/index.html
var content embed.FS

func NewServer(d Dispatcher) *Server {
	tpl := template.Must(template.New("index.html").ParseFS(content, "templates/index.html"))
	return &Server{disp: d, tpl: tpl}
}

// Handler returns the console routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /state", s.handleState)
	mux.HandleFunc("POST /mode", s.handleMode)
	mux.HandleFunc("POST /command", s.handleCommand)
	mux.HandleFunc("POST /target", s.handleTarget)
	return mux
}

// Start serves on addr until ctx is cancelled.
func (s *Server) Start(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		BaseContext:       func(_ net.Listener) context.Context { return ctx },
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	logging.FromContext(ctx).Info("admin console listening", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// stateView is the JSON shape of GET /state.
type stateView struct {
	nav.State
	Phase     nav.Phase       `json:"phase"`
	FreeSpace map[string]bool `json:"free_space,omitempty"`
	Targets   []string        `json:"targets"`
}

func (s *Server) view() stateView {
	ctrl := s.disp.Controller()
	st := ctrl.Snapshot()
	v := stateView{State: st, Phase: st.Phase(), Targets: ctrl.TargetIDs()}
	if len(st.FreeSpace) > 0 {
		v.FreeSpace = make(map[string]bool, len(st.FreeSpace))
		for d, free := range st.FreeSpace {
			v.FreeSpace[d.String()] = free
		}
	}
	return v
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if err := s.tpl.Execute(w, s.view()); err != nil {
		logging.FromContext(r.Context()).Error("render index", "err", err)
	}
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(s.view())
}

func (s *Server) submit(w http.ResponseWriter, r *http.Request, ev event.Event) {
	ev.Source = Source
	if err := s.disp.Submit(r.Context(), ev); err != nil {
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (s *Server) handleMode(w http.ResponseWriter, r *http.Request) {
	m, err := nav.ParseMode(r.URL.Query().Get("mode"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	s.submit(w, r, event.Mode(m))
}

func (s *Server) handleCommand(w http.ResponseWriter, r *http.Request) {
	c, err := nav.ParseCommand(r.URL.Query().Get("code"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	s.submit(w, r, event.Manual(c))
}

func (s *Server) handleTarget(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("id")
	if _, ok := s.disp.Controller().Target(id); !ok && id != nav.StopTarget {
		http.Error(w, "unknown target "+id, http.StatusBadRequest)
		return
	}
	s.submit(w, r, event.Target(id))
}
