package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	goredis "github.com/redis/go-redis/v9"

	"github.com/ovaphlow/pitchfork/service-trophy-proxy/internal/auth"
	authrepo "github.com/ovaphlow/pitchfork/service-trophy-proxy/internal/auth/repo"
	"github.com/ovaphlow/pitchfork/service-trophy-proxy/internal/catalog"
	catalogentity "github.com/ovaphlow/pitchfork/service-trophy-proxy/internal/catalog/entity"
	catalogrepo "github.com/ovaphlow/pitchfork/service-trophy-proxy/internal/catalog/repo"
	"github.com/ovaphlow/pitchfork/service-trophy-proxy/internal/metrics"
	"github.com/ovaphlow/pitchfork/service-trophy-proxy/internal/psn"
	"github.com/ovaphlow/pitchfork/service-trophy-proxy/internal/router"
	"github.com/ovaphlow/pitchfork/service-trophy-proxy/internal/trophy"
	"github.com/ovaphlow/pitchfork/service-trophy-proxy/internal/watchdog"
	watchdogrepo "github.com/ovaphlow/pitchfork/service-trophy-proxy/internal/watchdog/repo"
	"github.com/ovaphlow/pitchfork/service-trophy-proxy/pkg/database"
	"github.com/ovaphlow/pitchfork/service-trophy-proxy/pkg/utilities"
)

func main() {
	// load .env file if present so os.Getenv picks values from it
	_ = godotenv.Load()

	lg, err := utilities.Init(utilities.ConfigFromEnv())
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer lg.Sync()

	sugar := lg.Sugar()
	sugar.Info("starting trophy proxy")

	metrics.Init(prometheus.DefaultRegisterer)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// session store
	var db *sqlx.DB
	var store authrepo.SessionStore
	switch kind := strings.ToLower(os.Getenv("SESSION_STORE")); kind {
	case "", "memory":
		store = authrepo.NewMemoryStore()
	case "postgres":
		db, err = database.Connect(database.ConfigFromEnv())
		if err != nil {
			sugar.Fatalf("db connect: %v", err)
		}
		defer db.Close()
		pg := authrepo.NewPostgresStore(db)
		if err := pg.EnsureTable(ctx); err != nil {
			sugar.Fatalf("ensure sessions table: %v", err)
		}
		store = pg
	case "redis":
		opts, err := goredis.ParseURL(os.Getenv("REDIS_URL"))
		if err != nil {
			sugar.Fatalf("parse REDIS_URL: %v", err)
		}
		rdb := goredis.NewClient(opts)
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			sugar.Fatalf("redis ping: %v", err)
		}
		store = authrepo.NewRedisStore(rdb)
	default:
		sugar.Fatalf("unknown SESSION_STORE %q", kind)
	}
	sugar.Infow("session store ready", "kind", fmt.Sprintf("%T", store))

	// vendor client and token broker
	client := psn.NewClient(psn.ConfigFromEnv(), sugar)
	secret := auth.SecretFromEnv()
	if secret == "" {
		sugar.Warn("NPSSO is not set; only a stored session can be used")
	}
	broker := auth.NewBroker(secret, client, sugar, auth.WithStore(store))
	if err := broker.Restore(ctx); err != nil {
		sugar.Warnw("restore session failed", "err", err)
	}
	requester := psn.NewRequester(client, broker, sugar)
	trophySvc := trophy.NewService(requester, client, sugar)

	// master catalog
	master, err := catalogrepo.NewCatalogRepo(catalogrepo.PathFromEnv()).Load()
	switch {
	case errors.Is(err, fs.ErrNotExist):
		sugar.Warnw("master catalog not found, continuing with an empty catalog", "path", catalogrepo.PathFromEnv())
		master = []catalogentity.MasterGameEntry{}
	case err != nil:
		sugar.Fatalf("load master catalog: %v", err)
	}
	unifier := catalog.NewUnifier(master)
	sugar.Infow("master catalog loaded", "entries", unifier.Size())

	deps := router.Deps{
		Auth:       auth.NewHandler(broker, sugar),
		Trophy:     trophy.NewHandler(trophySvc, sugar),
		Catalog:    catalog.NewHandler(unifier, trophySvc, sugar),
		APIKeyHash: router.APIKeyHashFromEnv(),
	}

	// watchdog
	if wcfg := watchdog.ConfigFromEnv(); wcfg.AccountID != "" {
		wd := watchdog.New(trophySvc.Summary, wcfg, sugar)
		wd.Subscribe(watchdog.LogSubscriber(sugar))
		wd.Subscribe(watchdog.MetricsSubscriber())
		var history watchdog.History
		if db != nil {
			events := watchdogrepo.NewEventRepo(db)
			if err := events.EnsureTable(ctx); err != nil {
				sugar.Fatalf("ensure trophy_events table: %v", err)
			}
			wd.Subscribe(watchdog.PersistSubscriber(events, sugar))
			history = events
		}
		deps.Watchdog = watchdog.NewHandler(wd, history, sugar)
		go wd.Run(ctx)
	}

	addr := os.Getenv("HTTP_ADDR")
	if addr == "" {
		addr = "0.0.0.0:8431"
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           router.RegisterRoutes(sugar, deps),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		sugar.Infow("http server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			sugar.Fatalf("http server failed: %v", err)
		}
	}()

	<-ctx.Done()

	sugar.Info("shutting down")

	doneCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(doneCtx); err != nil {
		sugar.Warnf("http server shutdown failed: %v", err)
	}
	sugar.Info("goodbye")
}
