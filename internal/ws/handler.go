package ws

import (
	"context"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"go.uber.org/zap"

	"github.com/trashytalk/piwardrive-go/internal/auth"
	"github.com/trashytalk/piwardrive-go/internal/health"
	"github.com/trashytalk/piwardrive-go/internal/store"
	"github.com/trashytalk/piwardrive-go/internal/stream"
)

// DefaultFeedInterval is how often the periodic aps/status feeds
// recompute and broadcast their snapshot.
const DefaultFeedInterval = 5 * time.Second

// Handler serves the three live WebSocket feeds: /ws/aps (AP cache
// snapshots), /ws/status (resource/health snapshots), and
// /stream/ws/detections (the raw stream-processor fan-out).
type Handler struct {
	apsHub        *Hub
	statusHub     *Hub
	detectionsHub *Hub

	auth    *auth.Service
	store   *store.Store
	sampler *health.Sampler
	stream  *stream.Processor
	logger  *zap.Logger

	feedInterval time.Duration
}

// NewHandler creates a WebSocket handler wired to the persistence
// layer, the health sampler, and the stream processor.
func NewHandler(authSvc *auth.Service, st *store.Store, sampler *health.Sampler, proc *stream.Processor, logger *zap.Logger) *Handler {
	return &Handler{
		apsHub:        NewHub(logger),
		statusHub:     NewHub(logger),
		detectionsHub: NewHub(logger),
		auth:          authSvc,
		store:         st,
		sampler:       sampler,
		stream:        proc,
		logger:        logger,
		feedInterval:  DefaultFeedInterval,
	}
}

// RegisterRoutes registers the WebSocket routes on the server mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /ws/aps", h.handleAPs)
	mux.HandleFunc("GET /ws/status", h.handleStatus)
	mux.HandleFunc("GET /stream/ws/detections", h.handleDetections)
}

// Run drives the periodic aps/status broadcasts and relays the stream
// processor's fan-out onto the detections feed. It blocks until ctx
// is canceled.
func (h *Handler) Run(ctx context.Context) {
	sub := h.stream.Subscribe("ws-detections")
	defer h.stream.Unsubscribe(sub)

	apsTicker := time.NewTicker(h.feedInterval)
	defer apsTicker.Stop()
	statusTicker := time.NewTicker(h.feedInterval)
	defer statusTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-apsTicker.C:
			h.broadcastAPs(ctx)
		case <-statusTicker.C:
			h.broadcastStatus(ctx)
		case msg, ok := <-sub.C:
			if !ok {
				return
			}
			h.detectionsHub.Broadcast(msg.Records, 0)
		}
	}
}

func (h *Handler) broadcastAPs(ctx context.Context) {
	start := time.Now()
	entries, err := h.store.ListAPCache(ctx)
	if err != nil {
		h.logger.Warn("ws: failed to list ap cache for broadcast", zap.Error(err))
		return
	}
	h.apsHub.Broadcast(entries, time.Since(start))
}

func (h *Handler) broadcastStatus(ctx context.Context) {
	start := time.Now()
	sample := h.sampler.Sample(ctx)
	h.statusHub.Broadcast(sample, time.Since(start))
}

func (h *Handler) handleAPs(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, h.apsHub)
}

func (h *Handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, h.statusHub)
}

func (h *Handler) handleDetections(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, h.detectionsHub)
}

// serve authenticates the connection via a query-string bearer token
// (the browser WebSocket API cannot set an Authorization header),
// upgrades it, and pumps hub broadcasts to the client until it
// disconnects.
func (h *Handler) serve(w http.ResponseWriter, r *http.Request, hub *Hub) {
	token := r.URL.Query().Get("token")
	if token == "" {
		http.Error(w, "missing token parameter", http.StatusUnauthorized)
		return
	}

	user, err := h.auth.Authenticate(r.Context(), token)
	if err != nil {
		http.Error(w, "invalid or expired token", http.StatusUnauthorized)
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		h.logger.Error("websocket accept failed", zap.Error(err))
		return
	}

	client := &Client{
		conn:   conn,
		userID: user.ID,
		send:   make(chan Message, 256),
		logger: h.logger,
	}

	hub.Register(client)

	ctx := r.Context()
	done := make(chan struct{})
	go func() {
		client.writePump(ctx)
		close(done)
	}()

	client.readPump(ctx)

	hub.Unregister(client)
	conn.Close(websocket.StatusNormalClosure, "")
	<-done
}
