// Package httpapi is the C11 HTTP service: the authenticated REST surface
// that sits in front of the persistence layer, the scheduler, the stream
// processor, and the tile/remote-sync subsystems. WebSocket and SSE feeds
// share the same mux; the WebSocket handlers themselves live in
// internal/ws, registered alongside this package's routes.
package httpapi

import (
	"context"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/trashytalk/piwardrive-go/internal/config"
	"github.com/trashytalk/piwardrive-go/internal/health"
	"github.com/trashytalk/piwardrive-go/internal/remotesync"
	"github.com/trashytalk/piwardrive-go/internal/schedule"
	"github.com/trashytalk/piwardrive-go/internal/sensor"
	"github.com/trashytalk/piwardrive-go/internal/store"
	"github.com/trashytalk/piwardrive-go/internal/stream"
	"github.com/trashytalk/piwardrive-go/internal/taskqueue"
	"github.com/trashytalk/piwardrive-go/internal/webhook"
)

// Services bundles every core component the HTTP surface depends on.
// None of these depend back on httpapi (§9 design note: no component
// imports from C11).
type Services struct {
	Store            *store.Store
	Config           *config.Manager
	Health           *health.Sampler
	GPS              sensor.GPSReader
	Webhooks         *webhook.Notifier
	Jobs             *schedule.JobScheduler
	Widgets          *schedule.WidgetScheduler
	RemoteSync       *remotesync.Client
	Stream           *stream.Processor
	Tasks            *taskqueue.Queue
	ScanTriggers     map[string]func(ctx context.Context) // scan type -> immediate on-demand scan
	WidgetIDs        []string
	LogAllowlist     map[string]bool // normalized absolute paths /logs may tail
	ServiceAllowlist map[string]bool // systemd unit names that /service may query/act on
}

// Server holds the wired dependencies behind every REST handler.
type Server struct {
	svc      Services
	logger   *zap.Logger
	validate *validator.Validate

	sseAPsSeq      atomic.Uint64
	sseAPsErrs     atomic.Int64
	sseStatusSeq   atomic.Uint64
	sseStatusErrs  atomic.Int64
	sseHistorySeq  atomic.Uint64
	sseHistoryErrs atomic.Int64
}

// NewServer creates the C11 HTTP service.
func NewServer(svc Services, logger *zap.Logger) *Server {
	return &Server{svc: svc, logger: logger, validate: validator.New()}
}

// RegisterRoutes mounts every REST endpoint on mux, plus the Swagger UI.
// Callers still need to separately mount internal/auth.Handler (for
// /token) and internal/ws.Handler (for the WebSocket feeds);
// RegisterRoutes covers everything else in §6's endpoint table.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	s.registerDocs(mux)

	mux.HandleFunc("GET /status", s.handleStatus)
	mux.HandleFunc("GET /cpu", s.handleCPU)
	mux.HandleFunc("GET /ram", s.handleRAM)
	mux.HandleFunc("GET /storage", s.handleStorage)
	mux.HandleFunc("GET /gps", s.handleGPS)
	mux.HandleFunc("GET /logs", s.handleLogs)

	mux.HandleFunc("GET /config", s.handleGetConfig)
	mux.HandleFunc("POST /config", s.handlePostConfig)

	mux.HandleFunc("GET /webhooks", s.handleGetWebhooks)
	mux.HandleFunc("POST /webhooks", s.handlePostWebhooks)

	mux.HandleFunc("GET /geofences", s.handleListGeofences)
	mux.HandleFunc("GET /geofences/{name}", s.handleGetGeofence)
	mux.HandleFunc("POST /geofences", s.handleCreateGeofence)
	mux.HandleFunc("PUT /geofences/{name}", s.handlePutGeofence)
	mux.HandleFunc("DELETE /geofences/{name}", s.handleDeleteGeofence)

	mux.HandleFunc("GET /export/aps", s.handleExportAPs)

	mux.HandleFunc("GET /service/{name}", s.handleServiceStatus)
	mux.HandleFunc("POST /service/{name}/{action}", s.handleServiceAction)

	mux.HandleFunc("POST /sync", s.handleSync)

	mux.HandleFunc("POST /scan/{type}", s.handleTriggerScan)

	mux.HandleFunc("GET /api/widgets", s.handleListWidgets)
	mux.HandleFunc("GET /dashboard-settings", s.handleGetDashboardSettings)
	mux.HandleFunc("POST /dashboard-settings", s.handlePostDashboardSettings)

	mux.HandleFunc("GET /sse/aps", s.handleSSEAPs)
	mux.HandleFunc("GET /sse/status", s.handleSSEStatus)
	mux.HandleFunc("GET /stream/sse/detections", s.handleSSEDetections)
	mux.HandleFunc("GET /sse/history", s.handleSSEHistory)

	mux.Handle("GET /metrics", s.MetricsHandler())
}

// sendTimeout is the 5s per-send ceiling of §5's WebSocket feeds. The SSE
// handlers in this package do not reference it; their writes carry no
// deadline.
const sendTimeout = 5 * time.Second
