// Package server serves the live view of a run: an svg page, a websocket
// pushing element updates to it, and the latest snapshot as json.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"io"
	"log"
	"net/http"
	"sync"
	"time"

	"kybernaut/reinforcement"
	"kybernaut/server/cell_views"
	"kybernaut/server/fastview"
	"kybernaut/server/root_view"

	"github.com/gorilla/mux"
)

const shutdownGracePeriod = 5 * time.Second

// Server serves a single page, updated over a websocket. The ele-update
// channel has a single consumer, so only one page receives updates at a time.
type Server struct {
	addr     string
	rootView *root_view.RootView
	router   *mux.Router

	mu   sync.RWMutex
	last *reinforcement.Snapshot
	// Holds at most the latest undelivered snapshot.
	snapshots chan *reinforcement.Snapshot
}

// NewServer builds the views for the world of @initial and the routes.
// The views stop when @ctx is cancelled.
func NewServer(
	ctx context.Context,
	addr string,
	initial *reinforcement.Snapshot,
) (*Server, error) {
	snapshots := make(chan *reinforcement.Snapshot, 1)
	rootView, err := root_view.NewRootView(ctx, initial.Dim, snapshots)
	if err != nil {
		return nil, fmt.Errorf("build views: %w", err)
	}

	server := &Server{
		addr:      addr,
		rootView:  rootView,
		snapshots: snapshots,
	}
	server.Publish(initial)

	router := mux.NewRouter()
	router.HandleFunc("/", server.serveIndex).Methods(http.MethodGet)
	router.HandleFunc("/ws", server.serveWebsocket)
	router.HandleFunc("/snapshot", server.serveSnapshot).Methods(http.MethodGet)
	server.router = router

	return server, nil
}

// Handler returns the server's routes.
func (server *Server) Handler() http.Handler {
	return server.router
}

// Publish records @snap as the latest state and hands it to the views. It never
// blocks: an undelivered older snapshot is replaced. Publish must be called
// from a single goroutine.
func (server *Server) Publish(snap *reinforcement.Snapshot) {
	server.mu.Lock()
	server.last = snap
	server.mu.Unlock()

	select {
	case server.snapshots <- snap:
		return
	default:
	}
	select {
	case <-server.snapshots:
	default:
	}
	select {
	case server.snapshots <- snap:
	default:
	}
}

func (server *Server) latest() *reinforcement.Snapshot {
	server.mu.RLock()
	defer server.mu.RUnlock()
	return server.last
}

// Serve listens until @ctx is cancelled.
func (server *Server) Serve(ctx context.Context) error {
	srv := &http.Server{
		Addr:    server.addr,
		Handler: server.router,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGracePeriod)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Printf("live view at http://%s/\n", server.addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve: %w", err)
	}
	return nil
}

// serveWebsocket publishes view updates to the client until it disconnects.
func (server *Server) serveWebsocket(w http.ResponseWriter, r *http.Request) {
	cli, err := fastview.NewClient(server.rootView.Updates(), w, r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		log.Println(err)
		return
	}
	defer cli.Close()

	if err = cli.Sync(); err != nil {
		log.Println("sync:", err)
	}
}

func (server *Server) serveIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html")
	cells := cell_views.Convert(server.latest())
	if err := renderTemplate(w, server.rootView, cells); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (server *Server) serveSnapshot(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(server.latest()); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func renderTemplate(
	w io.Writer,
	vc fastview.ViewComponent,
	data interface{},
) (err error) {
	t := template.New("index.html")
	var tname string
	if tname, err = vc.Parse(t); err != nil {
		return
	}
	if _, err = t.Parse(`{{ template "` + tname + `" . }}`); err != nil {
		return
	}
	return t.Execute(w, data)
}
