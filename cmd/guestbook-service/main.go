package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/pribylovaa/wedding-guestbook/internal/auth"
	"github.com/pribylovaa/wedding-guestbook/internal/config"
	gbhttp "github.com/pribylovaa/wedding-guestbook/internal/http"
	"github.com/pribylovaa/wedding-guestbook/internal/http/handlers"
	"github.com/pribylovaa/wedding-guestbook/internal/metrics"
	"github.com/pribylovaa/wedding-guestbook/internal/ratelimit"
	"github.com/pribylovaa/wedding-guestbook/internal/service"
	"github.com/pribylovaa/wedding-guestbook/internal/storage"
	"github.com/pribylovaa/wedding-guestbook/internal/storage/memory"
	"github.com/pribylovaa/wedding-guestbook/internal/storage/mongo"
	"github.com/pribylovaa/wedding-guestbook/internal/storage/postgres"
	"github.com/pribylovaa/wedding-guestbook/migrations"
)

// Константы для определения окружения.
const (
	envLocal = "local"
	envDev   = "dev"
	envProd  = "prod"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "", "path to config file (overrides CONFIG_PATH env)")
	flag.Parse()

	// .env необязателен: переменные окружения процесса имеют приоритет.
	_ = godotenv.Load()

	cfg := config.MustLoad(configPath)

	log := setupLogger(cfg.Env)
	slog.SetDefault(log)
	log.Info("starting guestbook-service", "env", cfg.Env, "db_driver", cfg.DB.Driver)

	rootCtx, rootCancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer rootCancel()

	dbCtx, dbCancel := context.WithTimeout(rootCtx, 10*time.Second)
	store, err := openStorage(dbCtx, cfg)
	dbCancel()
	if err != nil {
		log.Error("storage_connect_failed", slog.String("driver", cfg.DB.Driver), slog.String("err", err.Error()))
		os.Exit(1)
	}
	log.Info("storage_connected", slog.String("driver", cfg.DB.Driver))

	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if cerr := store.Close(closeCtx); cerr != nil {
			log.Warn("storage_close_failed", slog.String("err", cerr.Error()))
		}
	}()

	var rdb *redis.Client
	if cfg.Redis.URL != "" {
		redisCtx, redisCancel := context.WithTimeout(rootCtx, 5*time.Second)
		rdb, err = ratelimit.NewRedisClient(redisCtx, cfg.Redis.URL)
		redisCancel()
		if err != nil {
			log.Error("redis_connect_failed", slog.String("err", err.Error()))
			os.Exit(1)
		}
		defer func() { _ = rdb.Close() }()
		log.Info("redis_connected")
	} else {
		log.Info("redis_not_configured, using in-process rate limiter")
	}

	m := metrics.New(prometheus.DefaultRegisterer)

	svc := service.New(store, cfg.Limits, service.WithMetrics(m))
	tokens := auth.NewTokenManager(cfg.Auth)
	h := handlers.New(svc, auth.NewAuthenticator(cfg.Auth.Operators, tokens))
	log.Info("service_initialized", slog.Int("operators", len(cfg.Auth.Operators)))

	apiHandler := gbhttp.NewRouter(h, gbhttp.Options{
		Logger:         log,
		Timeout:        cfg.Timeouts.Service,
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		TrustProxy:     cfg.HTTP.TrustProxy,
		Verifier:       tokens,
		Metrics:        m,
		Limiters: map[string]ratelimit.Limiter{
			gbhttp.PolicySubmit:   ratelimit.New(gbhttp.PolicySubmit, cfg.RateLimit.Submit, rdb, cfg.Redis.Prefix),
			gbhttp.PolicyLike:     ratelimit.New(gbhttp.PolicyLike, cfg.RateLimit.Like, rdb, cfg.Redis.Prefix),
			gbhttp.PolicyModerate: ratelimit.New(gbhttp.PolicyModerate, cfg.RateLimit.Moderate, rdb, cfg.Redis.Prefix),
			gbhttp.PolicyLogin:    ratelimit.New(gbhttp.PolicyLogin, cfg.RateLimit.Login, rdb, cfg.Redis.Prefix),
		},
	})

	var ready int32 // 0 — not ready; 1 — ready

	mux := http.NewServeMux()
	mux.HandleFunc("/livez", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if atomic.LoadInt32(&ready) != 1 {
			http.Error(w, "not ready", http.StatusServiceUnavailable)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := store.Ping(ctx); err != nil {
			log.Warn("healthz_storage_unavailable", slog.String("err", err.Error()))
			http.Error(w, "storage unavailable", http.StatusServiceUnavailable)
			return
		}

		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	mux.Handle("/metrics", promhttp.Handler())

	mux.Handle("/", apiHandler)

	httpAddr := cfg.HTTP.Addr()
	httpSrv := &http.Server{
		Addr:              httpAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	ln, err := net.Listen("tcp", httpAddr)
	if err != nil {
		log.Error("http_listen_failed", slog.String("addr", httpAddr), slog.String("err", err.Error()))
		os.Exit(1)
	}

	log.Info("http_listen_start", slog.String("addr", httpAddr))

	serveErrCh := make(chan error, 1)
	go func() {
		if err := httpSrv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErrCh <- err
		}
		close(serveErrCh)
	}()

	atomic.StoreInt32(&ready, 1)
	log.Info("guestbook_ready")

	select {
	case <-rootCtx.Done():
		log.Info("shutdown_requested")
	case err := <-serveErrCh:
		if err != nil {
			log.Error("http_serve_failed", slog.String("err", err.Error()))
		}
	}

	atomic.StoreInt32(&ready, 0)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Warn("http_shutdown_incomplete", slog.String("err", err.Error()))
	} else {
		log.Info("http_stopped")
	}

	log.Info("service_stopped")
}

// openStorage выбирает бэкенд по db.driver; для postgres применяет схему (идемпотентно).
func openStorage(ctx context.Context, cfg *config.Config) (storage.Storage, error) {
	switch cfg.DB.Driver {
	case config.DriverPostgres:
		st, err := postgres.New(ctx, cfg.DB.URL)
		if err != nil {
			return nil, err
		}

		if err := st.Migrate(ctx, migrations.InitUp); err != nil {
			_ = st.Close(ctx)
			return nil, err
		}

		return st, nil
	case config.DriverMemory:
		return memory.New(), nil
	default:
		return mongo.New(ctx, cfg)
	}
}

func setupLogger(env string) *slog.Logger {
	switch env {
	case envLocal:
		return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	case envDev:
		return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	case envProd:
		return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	default:
		return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}
}
