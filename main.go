package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"time"

	apihttp "energy-balance/internal/api/http"
	"energy-balance/internal/audit"
	"energy-balance/internal/auth"
	"energy-balance/internal/border"
	"energy-balance/internal/collector"
	collectorpg "energy-balance/internal/collector/postgres"
	"energy-balance/internal/feed/replay"
	"energy-balance/internal/feed/transelectrica"
	"energy-balance/internal/interval/application"
	intervalpg "energy-balance/internal/interval/infrastructure/postgres"
	marketapp "energy-balance/internal/market/application"
	marketpg "energy-balance/internal/market/infrastructure/postgres"
	"energy-balance/internal/observability/metrics"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	cfg := loadConfig()
	logger := log.New(os.Stdout, "", log.LstdFlags)

	db, err := sql.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		logger.Fatalf("db open error: %v", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		logger.Fatalf("db ping error: %v", err)
	}

	metrics.Init(db, logger)
	auditRepo := audit.NewRepository(db)

	roster := border.DefaultRoster()
	if cfg.RosterPath != "" {
		roster, err = border.LoadRoster(cfg.RosterPath)
		if err != nil {
			logger.Fatalf("roster load error: %v", err)
		}
	}
	logger.Printf("border roster loaded: %d units", roster.Size())

	intervalRepo := intervalpg.NewRepository(db)
	reconciler, err := application.NewReconciler(intervalRepo, roster, application.SystemClock{}, logger)
	if err != nil {
		logger.Fatalf("reconciler error: %v", err)
	}

	if dropped, err := reconciler.SweepDuplicates(context.Background()); err != nil {
		logger.Printf("duplicate sweep error: %v", err)
	} else if dropped > 0 {
		logger.Printf("duplicate sweep dropped %d rows", dropped)
	}

	rawStore := replay.NewPostgresStore(db)
	historical, err := replay.NewSource(rawStore, transelectrica.ParseDefault)
	if err != nil {
		logger.Fatalf("replay source error: %v", err)
	}

	marketRepo := marketpg.NewRepository(db)
	projector, err := marketapp.NewProjector(marketRepo, logger)
	if err != nil {
		logger.Fatalf("market projector error: %v", err)
	}

	feedClient, err := transelectrica.NewClient(cfg.FeedURL)
	if err != nil {
		logger.Fatalf("feed client error: %v", err)
	}
	cycleLog := collectorpg.NewCycleLog(db)
	liveCollector, err := collector.NewCollector(feedClient, reconciler, rawStore, projector, cycleLog, application.SystemClock{}, logger)
	if err != nil {
		logger.Fatalf("collector error: %v", err)
	}
	scheduler := collector.NewScheduler(liveCollector, cfg.CollectInterval, logger)
	go scheduler.Start(context.Background())

	rederiveHandler, err := apihttp.NewRederiveHandler(reconciler, historical, auditRepo, logger)
	if err != nil {
		logger.Fatalf("rederive handler error: %v", err)
	}
	purgeHandler, err := apihttp.NewPurgeHandler(intervalRepo, auditRepo, logger)
	if err != nil {
		logger.Fatalf("purge handler error: %v", err)
	}
	collectHandler, err := apihttp.NewCollectRunHandler(liveCollector, logger)
	if err != nil {
		logger.Fatalf("collect handler error: %v", err)
	}

	policy := auth.NewDefaultPolicy([]string{"/healthz", "/metrics"}, nil)
	authMiddleware := auth.NewMiddleware([]byte(cfg.JWTSecret), policy)

	intervalsHandler := apihttp.NewIntervalsHandler(intervalRepo)
	mux := http.NewServeMux()
	mux.Handle("/api/v1/intervals", intervalsHandler)
	mux.Handle("/api/v1/intervals/", purgeHandler)
	mux.Handle("/api/v1/intervals/gaps", apihttp.NewGapsHandler(reconciler))
	mux.Handle("/api/v1/intervals/rederive", rederiveHandler)
	mux.Handle("/api/v1/imbalance", apihttp.NewImbalanceHandler(projector))
	mux.Handle("/api/v1/collect/run", collectHandler)
	mux.Handle("/api/v1/exports/balance.csv", apihttp.NewExportBalanceHandler(intervalRepo, reconciler, projector, "csv"))
	mux.Handle("/api/v1/exports/balance.xlsx", apihttp.NewExportBalanceHandler(intervalRepo, reconciler, projector, "xlsx"))
	mux.Handle("/api/v1/exports/balance.pdf", apihttp.NewExportBalanceHandler(intervalRepo, reconciler, projector, "pdf"))
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	server := &http.Server{Addr: cfg.HTTPAddr, Handler: loggingMiddleware(authMiddleware.Wrap(mux), logger)}
	logger.Printf("http listening on %s", cfg.HTTPAddr)
	logger.Fatal(server.ListenAndServe())
}

type config struct {
	DatabaseURL     string
	HTTPAddr        string
	FeedURL         string
	RosterPath      string
	CollectInterval time.Duration
	JWTSecret       string
}

func loadConfig() config {
	cfg := config{
		DatabaseURL:     getenvDefault("DATABASE_URL", getenvDefault("PG_DSN", "")),
		HTTPAddr:        getenvDefault("HTTP_ADDR", ":8080"),
		FeedURL:         getenvDefault("FEED_URL", ""),
		RosterPath:      getenvDefault("ROSTER_PATH", ""),
		CollectInterval: getenvDuration("COLLECT_INTERVAL", time.Minute),
		JWTSecret:       getenvDefault("AUTH_JWT_SECRET", getenvDefault("JWT_SECRET", "")),
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL or PG_DSN is required")
	}
	if cfg.JWTSecret == "" {
		log.Fatal("AUTH_JWT_SECRET is required")
	}
	return cfg
}

func getenvDefault(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getenvDuration(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func loggingMiddleware(next http.Handler, logger *log.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		resp := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(resp, r)
		logger.Printf("http %s %s %d %s", r.Method, r.URL.Path, resp.status, time.Since(start))
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}
