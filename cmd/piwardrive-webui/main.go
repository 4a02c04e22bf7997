// Command piwardrive-webui is the field appliance's composition root: it
// wires the persistence layer, sensors, scan executors, the stream
// processor, the scheduler, and the HTTP/WebSocket/SSE surface into a
// single running service.
package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/viper"
	"github.com/trashytalk/piwardrive-go/internal/analytics"
	"github.com/trashytalk/piwardrive-go/internal/auth"
	"github.com/trashytalk/piwardrive-go/internal/config"
	"github.com/trashytalk/piwardrive-go/internal/health"
	"github.com/trashytalk/piwardrive-go/internal/httpapi"
	"github.com/trashytalk/piwardrive-go/internal/oui"
	"github.com/trashytalk/piwardrive-go/internal/remotesync"
	"github.com/trashytalk/piwardrive-go/internal/scan"
	"github.com/trashytalk/piwardrive-go/internal/schedule"
	"github.com/trashytalk/piwardrive-go/internal/sensor"
	"github.com/trashytalk/piwardrive-go/internal/store"
	"github.com/trashytalk/piwardrive-go/internal/stream"
	"github.com/trashytalk/piwardrive-go/internal/taskqueue"
	"github.com/trashytalk/piwardrive-go/internal/tilecache"
	"github.com/trashytalk/piwardrive-go/internal/webhook"
	"github.com/trashytalk/piwardrive-go/internal/ws"
	"github.com/trashytalk/piwardrive-go/pkg/models"
	"go.uber.org/zap"
)

// sessionID identifies this process's scan session in the detection
// tables. One process, one session, for its entire lifetime.
func sessionID() string {
	return fmt.Sprintf("session-%d", os.Getpid())
}

func main() {
	configPath := flag.String("config", "", "path to configuration file")
	addr := flag.String("addr", "", "listen address (overrides server_addr / PW_ADDR)")
	showVersion := flag.Bool("version", false, "print version information and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println("piwardrive-webui (dev)")
		return
	}

	v, err := config.New(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := config.NewLogger(v)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	cfgManager, err := config.NewManager(v)
	if err != nil {
		logger.Fatal("failed to initialize config manager", zap.Error(err))
	}
	cfg := cfgManager.Current()

	logger.Info("piwardrive starting")
	if f := v.ConfigFileUsed(); f != "" {
		logger.Info("configuration loaded", zap.String("source", f))
	} else {
		logger.Warn("no configuration file found, using defaults")
	}

	dbPath := v.GetString("db_path")
	if dbPath == "" {
		dbPath = "piwardrive.db"
	}
	st, err := store.Open(dbPath)
	if err != nil {
		logger.Fatal("failed to open database", zap.Error(err))
	}
	defer st.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := st.Migrate(ctx, store.CoreMigrations); err != nil {
		logger.Fatal("database migration failed", zap.Error(err))
	}
	logger.Info("database ready", zap.String("path", dbPath))

	ouiPath := v.GetString("oui_path")
	vendor := oui.New(ouiPath, logger.Named("oui"))

	rules := schedule.NewRuleEvaluator(convertScanRules(cfg.ScanRules))

	gpsReader := buildGPSReader(v, logger)
	if gpsReader != nil {
		defer gpsReader.Close()
	}
	orientReader := sensor.NewDBusOrientationReader(logger.Named("orientation"))
	defer orientReader.Close()

	// The batch writer returned by Store.Batch() already drains itself
	// on its own ticker; scan executors push enriched detections to it
	// directly so writes never block a scan's caller.
	batch := st.Batch()

	proc := stream.NewProcessor(stream.DefaultIngestCapacity, stream.DefaultSubscriberCapacity, stream.DefaultRateLimit, logger.Named("stream"))
	proc.Start(ctx)
	defer proc.Stop()

	wifiExec := scan.NewWifiExecutor(sessionID(), rules, logger.Named("scan.wifi"), gpsReader, orientReader, vendor)
	btExec := scan.NewBluetoothExecutor(sessionID(), rules, logger.Named("scan.bt"), gpsReader, orientReader, vendor)
	cellExec := scan.NewCellularExecutor(sessionID(), scan.CommandSpec{Template: []string{"mmcli", "-m", "0"}}, rules, logger.Named("scan.cell"), gpsReader, orientReader)

	wifiExec.RegisterPostProcessor(func(d *models.WifiDetection) {
		if err := batch.AddWifi(ctx, *d); err != nil {
			logger.Warn("batch: failed to queue wifi detection", zap.Error(err))
		}
	})
	btExec.RegisterPostProcessor(func(d *models.BluetoothDetection) {
		if err := batch.AddBluetooth(ctx, *d); err != nil {
			logger.Warn("batch: failed to queue bluetooth detection", zap.Error(err))
		}
	})
	cellExec.RegisterPostProcessor(func(d *models.CellularDetection) {
		if err := batch.AddCellular(ctx, *d); err != nil {
			logger.Warn("batch: failed to queue cellular detection", zap.Error(err))
		}
	})

	// Auth.
	userStore := auth.NewUserStore(st)
	authService := auth.NewService(userStore, logger.Named("auth"))
	authHandler := auth.NewHandler(authService, logger.Named("auth"))
	bootstrapAdmin(ctx, v, authService, userStore, logger)

	healthSampler := health.NewSampler(cfg.ReportsDir, logger.Named("health"))

	notifier := webhook.NewNotifier(logger.Named("webhook"))
	if urls, err := st.ListWebhooks(ctx); err != nil {
		logger.Warn("failed to load stored webhooks", zap.Error(err))
	} else if len(urls) > 0 {
		notifier.SetURLs(urls)
	} else {
		notifier.SetURLs(cfg.NotificationWebhooks)
	}

	var syncClient *remotesync.Client
	if cfg.RemoteSyncURL != "" {
		syncClient = remotesync.New(cfg.RemoteSyncURL, cfg.RemoteSyncToken,
			time.Duration(cfg.RemoteSyncTimeout)*time.Second, cfg.RemoteSyncRetries, logger.Named("remotesync"))
	}

	var tileMaintainer *tilecache.Maintainer
	if cfg.MapUseOffline && cfg.OfflineTilePath != "" {
		tileMaintainer = tilecache.NewMaintainer(tilecache.Config{
			Dir: cfg.OfflineTilePath,
		}, logger.Named("tilecache"))
		go func() {
			if err := tileMaintainer.Watch(ctx); err != nil && ctx.Err() == nil {
				logger.Warn("tile cache watch stopped", zap.Error(err))
			}
		}()
	}

	widgets := schedule.NewWidgetScheduler()
	widgets.Start(ctx)
	defer widgets.Stop()

	wifiIface := v.GetString("wifi_iface")
	if wifiIface == "" {
		wifiIface = "wlan0"
	}
	btIface := v.GetString("bt_iface")
	if btIface == "" {
		btIface = "hci0"
	}

	jobs := schedule.NewJobScheduler(logger.Named("schedule"))
	registerScanJobs(jobs, cfg, wifiIface, btIface, wifiExec, btExec, cellExec, proc)
	registerMaintenanceJobs(jobs, cfg, st, tileMaintainer, syncClient, logger)
	jobs.Start(ctx)
	defer jobs.Stop()

	// Suspicious-activity findings ride the stream fan-out to a priority
	// queue that dispatches the most severe findings first, then out to
	// the configured webhooks.
	alertQueue := taskqueue.NewPriorityQueue(logger.Named("taskqueue.alerts"))
	alertQueue.Start(ctx, 1)
	defer alertQueue.Stop()
	go relaySuspiciousActivity(ctx, proc, alertQueue, notifier)

	wsHandler := ws.NewHandler(authService, st, healthSampler, proc, logger.Named("ws"))
	go wsHandler.Run(ctx)

	tasks := taskqueue.NewQueue(2, 8, logger.Named("taskqueue"))
	tasks.Start(ctx, 2)
	defer tasks.Stop()

	scanTriggers := map[string]func(ctx context.Context){
		"wifi": func(ctx context.Context) {
			dets := wifiExec.Scan(ctx, scan.Options{Iface: wifiIface, WithLocation: true})
			proc.PublishWifi(dets)
		},
		"bluetooth": func(ctx context.Context) {
			dets := btExec.Scan(ctx, scan.Options{Iface: btIface, WithLocation: true})
			proc.PublishBluetooth(dets)
		},
		"cellular": func(ctx context.Context) {
			dets := cellExec.Scan(ctx, scan.Options{WithLocation: true})
			proc.PublishCellular(dets)
		},
	}

	apiServer := httpapi.NewServer(httpapi.Services{
		Store:            st,
		Config:           cfgManager,
		Health:           healthSampler,
		GPS:              gpsReader,
		Webhooks:         notifier,
		Jobs:             jobs,
		Widgets:          widgets,
		RemoteSync:       syncClient,
		Stream:           proc,
		Tasks:            tasks,
		ScanTriggers:     scanTriggers,
		WidgetIDs:        v.GetStringSlice("widget_ids"),
		LogAllowlist:     buildLogAllowlist(v),
		ServiceAllowlist: buildServiceAllowlist(v),
	}, logger.Named("httpapi"))

	mux := http.NewServeMux()
	authHandler.RegisterRoutes(mux)
	wsHandler.RegisterRoutes(mux)
	apiServer.RegisterRoutes(mux)
	registerStaticUI(mux, v.GetString("webui_dist"))

	handler := withAuthExemptions(authHandler.Middleware(), mux)

	listenAddr := *addr
	if listenAddr == "" {
		listenAddr = v.GetString("server_addr")
	}
	if listenAddr == "" {
		listenAddr = "0.0.0.0:8080"
	}

	srv := &http.Server{
		Addr:    listenAddr,
		Handler: handler,
	}

	go func() {
		logger.Info("http server listening", zap.String("addr", listenAddr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("http server error", zap.Error(err))
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logger.Info("received shutdown signal", zap.String("signal", sig.String()))

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", zap.Error(err))
	}
	cancel()
	batch.Flush(shutdownCtx)

	logger.Info("piwardrive stopped")
}

// withAuthExemptions wraps handler with mw, except for the routes an
// unauthenticated caller must be able to reach: issuing a token, and the
// Swagger UI used to discover the API in the first place.
func withAuthExemptions(mw func(http.Handler) http.Handler, handler http.Handler) http.Handler {
	protected := mw(handler)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/token" || strings.HasPrefix(r.URL.Path, "/swagger/") {
			handler.ServeHTTP(w, r)
			return
		}
		protected.ServeHTTP(w, r)
	})
}

func registerStaticUI(mux *http.ServeMux, dist string) {
	if dist == "" {
		return
	}
	mux.Handle("GET /", http.FileServer(http.Dir(dist)))
}

func buildGPSReader(v *viper.Viper, logger *zap.Logger) sensor.GPSReader {
	if host := v.GetString("gpsd_host"); host != "" {
		port := v.GetString("gpsd_port")
		if port == "" {
			port = "2947"
		}
		return sensor.NewGPSDReader(host+":"+port, logger.Named("gps.gpsd"))
	}
	if dev := v.GetString("gps_serial_device"); dev != "" {
		baud := v.GetInt("gps_serial_baud")
		if baud == 0 {
			baud = 9600
		}
		return sensor.NewSerialGPSReader(dev, baud, logger.Named("gps.serial"))
	}
	return nil
}

func buildLogAllowlist(v *viper.Viper) map[string]bool {
	out := make(map[string]bool)
	for _, p := range v.GetStringSlice("log_allowlist") {
		out[filepath.Clean(p)] = true
	}
	return out
}

func buildServiceAllowlist(v *viper.Viper) map[string]bool {
	out := make(map[string]bool)
	for _, name := range v.GetStringSlice("service_allowlist") {
		out[name] = true
	}
	return out
}

func convertScanRules(rules map[string]config.ScanRule) map[string]schedule.Rule {
	out := make(map[string]schedule.Rule, len(rules))
	for scanType, r := range rules {
		out[scanType] = schedule.Rule{
			Enabled:   r.Enabled,
			StartTime: r.StartTime,
			EndTime:   r.EndTime,
			Days:      parseWeekdays(r.Days),
		}
	}
	return out
}

func parseWeekdays(days []string) []time.Weekday {
	names := map[string]time.Weekday{
		"sunday": time.Sunday, "monday": time.Monday, "tuesday": time.Tuesday,
		"wednesday": time.Wednesday, "thursday": time.Thursday, "friday": time.Friday,
		"saturday": time.Saturday,
	}
	out := make([]time.Weekday, 0, len(days))
	for _, d := range days {
		if w, ok := names[strings.ToLower(d)]; ok {
			out = append(out, w)
		}
	}
	return out
}

// randomPassword generates a 32-byte, hex-encoded one-time credential
// for the bootstrap admin account when no password hash is configured.
func randomPassword() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

func bootstrapAdmin(ctx context.Context, v *viper.Viper, svc *auth.Service, userStore *auth.UserStore, logger *zap.Logger) {
	username := v.GetString("api_user")
	if username == "" {
		username = "admin"
	}
	if _, err := userStore.ByUsername(ctx, username); err == nil {
		return
	}

	if passwordHash := v.GetString("api_password_hash"); passwordHash != "" {
		err := userStore.Create(ctx, auth.User{
			ID:           username,
			Username:     username,
			PasswordHash: passwordHash,
			Role:         auth.RoleAdmin,
			CreatedAt:    time.Now().UTC(),
		})
		if err != nil {
			logger.Error("failed to bootstrap admin from configured hash", zap.Error(err))
		}
		return
	}

	password, err := randomPassword()
	if err != nil {
		logger.Error("failed to generate bootstrap admin password", zap.Error(err))
		return
	}
	if _, err := svc.CreateUser(ctx, username, password, auth.RoleAdmin); err != nil {
		logger.Error("failed to bootstrap admin account", zap.Error(err))
		return
	}
	logger.Warn("bootstrapped admin account with a generated password; set PW_API_PASSWORD_HASH to persist credentials across restarts",
		zap.String("username", username), zap.String("password", password))
}

// registerScanJobs schedules the periodic Wi-Fi, Bluetooth, and cellular
// scans at the intervals configured for each; each job publishes its
// batch onto the stream processor in addition to the post-processor
// hooks that queue it for persistence.
func registerScanJobs(jobs *schedule.JobScheduler, cfg config.Config, wifiIface, btIface string, wifiExec *scan.WifiExecutor, btExec *scan.BluetoothExecutor, cellExec *scan.CellularExecutor, proc *stream.Processor) {
	if n := cfg.MapPollAPs; n > 0 {
		jobs.AddJob(schedule.Job{
			Name:     "scan.wifi",
			Interval: time.Duration(n) * time.Second,
			Run: func(ctx context.Context) error {
				dets := wifiExec.Scan(ctx, scan.Options{Iface: wifiIface, WithLocation: true})
				proc.PublishWifi(dets)
				return nil
			},
		})
	}
	if n := cfg.MapPollBT; n > 0 {
		jobs.AddJob(schedule.Job{
			Name:     "scan.bluetooth",
			Interval: time.Duration(n) * time.Second,
			Run: func(ctx context.Context) error {
				dets := btExec.Scan(ctx, scan.Options{Iface: btIface, WithLocation: true})
				proc.PublishBluetooth(dets)
				return nil
			},
		})
	}
	jobs.AddJob(schedule.Job{
		Name:     "scan.cellular",
		Interval: 5 * time.Minute,
		Run: func(ctx context.Context) error {
			dets := cellExec.Scan(ctx, scan.Options{WithLocation: true})
			proc.PublishCellular(dets)
			return nil
		},
	})
}

// registerMaintenanceJobs schedules the background upkeep work that
// isn't driven by a live sensor: analytics rollups, AP localization,
// tile cache maintenance, and the outbound remote sync push.
func registerMaintenanceJobs(jobs *schedule.JobScheduler, cfg config.Config, st *store.Store, tiles *tilecache.Maintainer, syncClient *remotesync.Client, logger *zap.Logger) {
	jobs.AddJob(schedule.Job{
		Name:     "analytics.daily_aggregate",
		Interval: 1 * time.Hour,
		Run: func(ctx context.Context) error {
			date := time.Now().UTC().Format("2006-01-02")
			samples, err := st.WifiDetectionSamplesByBSSID(ctx, date)
			if err != nil {
				return fmt.Errorf("load samples: %w", err)
			}
			for bssid, s := range samples {
				result := analytics.AggregateDay(bssid, date, s)
				if err := st.UpsertNetworkAnalytics(ctx, result); err != nil {
					logger.Warn("failed to store network analytics", zap.String("bssid", bssid), zap.Error(err))
				}
			}
			return nil
		},
	})

	jobs.AddJob(schedule.Job{
		Name:     "analytics.localize",
		Interval: 30 * time.Minute,
		Run: func(ctx context.Context) error {
			since := time.Now().UTC().Add(-7 * 24 * time.Hour)
			observations, err := st.WifiObservationsSince(ctx, since)
			if err != nil {
				return fmt.Errorf("load observations: %w", err)
			}
			localizeCfg := analytics.DefaultLocalizeConfig()
			for bssid, obs := range observations {
				loc, ok := analytics.Localize(bssid, obs, localizeCfg)
				if !ok {
					continue
				}
				if err := st.UpdateAPLocation(ctx, loc.BSSID, loc.Lat, loc.Lon); err != nil {
					logger.Warn("failed to store localized AP", zap.String("bssid", bssid), zap.Error(err))
				}
			}
			return nil
		},
	})

	if n := cfg.TileMaintenanceInterval; n > 0 && tiles != nil {
		jobs.AddJob(schedule.Job{
			Name:     "tilecache.maintain",
			Interval: time.Duration(n) * time.Second,
			Run: func(ctx context.Context) error {
				tiles.Run(ctx)
				return nil
			},
		})
	}

	if syncClient != nil {
		jobs.AddJob(schedule.Job{
			Name:     "remotesync.push",
			Interval: 5 * time.Minute,
			Run: func(ctx context.Context) error {
				return syncClient.SyncNewRecords(ctx, st)
			},
		})
	}

	jobs.AddJob(schedule.Job{
		Name:     "store.refresh_views",
		Interval: 10 * time.Minute,
		Run: func(ctx context.Context) error {
			return st.RefreshMaterializedViews(ctx)
		},
	})
}

// alertPriority maps a finding's severity to the priority queue's
// ascending-runs-first ordering, so high-severity alerts reach their
// webhooks ahead of low-severity ones queued around the same time.
func alertPriority(sev models.Severity) int {
	switch sev {
	case models.SeverityHigh:
		return 0
	case models.SeverityMedium:
		return 1
	default:
		return 2
	}
}

// relaySuspiciousActivity forwards every suspicious-activity finding
// produced from Wi-Fi batches through the alert priority queue to the
// configured webhooks.
func relaySuspiciousActivity(ctx context.Context, proc *stream.Processor, alerts *taskqueue.PriorityQueue, notifier *webhook.Notifier) {
	sub := proc.Subscribe("webhook-suspicious")
	defer proc.Unsubscribe(sub)

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-sub.C:
			if !ok {
				return
			}
			result, ok := msg.Records.(stream.WifiResult)
			if !ok || len(result.Suspicious) == 0 {
				continue
			}
			for _, finding := range result.Suspicious {
				finding := finding
				alerts.Enqueue(alertPriority(finding.Severity), func(jobCtx context.Context) {
					notifier.Notify(jobCtx, "suspicious_activity", finding)
				})
			}
		}
	}
}
