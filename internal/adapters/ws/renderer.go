// Package ws serves scene records to browser viewers over websockets.
package ws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/bft-labs/toiopose/internal/domain"
	"github.com/bft-labs/toiopose/internal/ports"
)

// Renderer implements ports.Renderer by broadcasting domain.Envelope JSON
// to websocket clients on /ws. The latest pose is also served on /api/pose.
type Renderer struct {
	addr        string
	logger      ports.Logger
	broadcaster *Broadcaster

	mu       sync.RWMutex
	scene    string
	lastPose *domain.Envelope
	server   *http.Server
	listener net.Listener
}

// NewRenderer creates a renderer that listens on addr once Init is called.
// An empty addr serves only through Handler.
func NewRenderer(addr string, logger ports.Logger) *Renderer {
	return &Renderer{
		addr:        addr,
		logger:      logger,
		broadcaster: NewBroadcaster(logger),
	}
}

// Handler returns the HTTP routes of the viewer endpoint.
func (r *Renderer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", r.handleWS)
	mux.HandleFunc("/api/pose", r.handlePose)
	return mux
}

// Init records the scene name and starts the HTTP server.
func (r *Renderer) Init(ctx context.Context, scene string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.scene = scene

	if r.addr == "" || r.server != nil {
		return nil
	}
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", r.addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", r.addr, err)
	}
	r.listener = ln
	r.server = &http.Server{
		Handler:           r.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func(srv *http.Server) {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			r.logger.Error("ws server stopped", ports.Err(err))
		}
	}(r.server)
	r.logger.Info("ws viewer listening", ports.String("addr", ln.Addr().String()))
	return nil
}

// Addr returns the listening address, or "" before Init.
func (r *Renderer) Addr() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.listener == nil {
		return ""
	}
	return r.listener.Addr().String()
}

// Log broadcasts rec at path.
func (r *Renderer) Log(path string, rec domain.Record) error {
	env, data, err := r.encode(path, rec, false)
	if err != nil {
		return err
	}
	if _, ok := rec.(domain.PoseUpdate); ok {
		r.mu.Lock()
		r.lastPose = &env
		r.mu.Unlock()
	}
	r.broadcaster.Broadcast(data)
	return nil
}

// LogStatic broadcasts rec at path and replays it to later clients.
func (r *Renderer) LogStatic(path string, rec domain.Record) error {
	_, data, err := r.encode(path, rec, true)
	if err != nil {
		return err
	}
	r.broadcaster.Retain(path, data)
	return nil
}

// Close disconnects clients and stops the server.
func (r *Renderer) Close() error {
	r.broadcaster.CloseAll()

	r.mu.Lock()
	srv := r.server
	r.server = nil
	r.mu.Unlock()
	if srv == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	return srv.Shutdown(ctx)
}

func (r *Renderer) encode(path string, rec domain.Record, static bool) (domain.Envelope, []byte, error) {
	r.mu.RLock()
	scene := r.scene
	r.mu.RUnlock()

	env := domain.NewEnvelope(scene, path, rec, static)
	data, err := json.Marshal(env)
	if err != nil {
		return env, nil, fmt.Errorf("marshal %s record: %w", rec.Kind(), err)
	}
	return env, data, nil
}

func (r *Renderer) handleWS(w http.ResponseWriter, req *http.Request) {
	upgrader := websocket.Upgrader{
		CheckOrigin: func(*http.Request) bool { return true },
	}
	conn, err := upgrader.Upgrade(w, req, nil)
	if err != nil {
		r.logger.Warn("ws upgrade failed", ports.Err(err))
		return
	}

	r.logger.Info("ws client connected", ports.String("remote", req.RemoteAddr))
	c := r.broadcaster.AddClient(conn)

	go func() {
		defer func() {
			r.broadcaster.RemoveClient(c)
			r.logger.Info("ws client disconnected", ports.String("remote", req.RemoteAddr))
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

func (r *Renderer) handlePose(w http.ResponseWriter, req *http.Request) {
	r.mu.RLock()
	pose := r.lastPose
	r.mu.RUnlock()

	if pose == nil {
		http.Error(w, "no data yet", http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(pose); err != nil {
		r.logger.Debug("pose encode failed", ports.Err(err))
	}
}
