package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"
	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"

	"careers-engine/internal/blob"
	"careers-engine/internal/config"
	"careers-engine/internal/events"
	"careers-engine/internal/feed"
	"careers-engine/internal/httpapi"
	"careers-engine/internal/intake"
	"careers-engine/internal/secrets"
	"careers-engine/internal/store"
)

// warmLangs are the feed languages kept hot by the background warmer: the
// default serving language plus the canonical one the intake lookup uses.
var warmLangs = []string{feed.DefaultLang, "en"}

func main() {
	// .env before anything reads the environment.
	_ = godotenv.Load()

	dataDir := os.Getenv("CAREERS_DATA_DIR")
	if dataDir == "" {
		dataDir = "."
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		log.Fatal(err)
	}

	// One engine per data dir: the sqlite file wants a single writer.
	dirLock := flock.New(filepath.Join(dataDir, "engine.lock"))
	locked, err := dirLock.TryLock()
	if err != nil {
		log.Fatalf("data dir lock failed: %v", err)
	}
	if !locked {
		log.Fatalf("data dir %s is in use by another engine instance", dataDir)
	}
	defer func() { _ = dirLock.Unlock() }()

	userCfgPath, err := config.EnsureUserConfig(dataDir, filepath.Join("config", "config.yml"))
	if err != nil {
		log.Fatalf("config bootstrap failed: %v", err)
	}

	// Load config and keep it reloadable; env always wins over the file.
	var cfgVal atomic.Value // stores config.Config
	loadCfg := func() (config.Config, error) {
		cfg, err := config.Load(userCfgPath)
		if err != nil {
			return cfg, err
		}
		config.OverlayEnv(&cfg)
		return cfg, nil
	}
	cfg, err := loadCfg()
	if err != nil {
		log.Fatalf("config load failed (%s): %v", userCfgPath, err)
	}
	cfgVal.Store(cfg)

	dbPath := filepath.Join(dataDir, "careers.db")
	db, err := store.Open(dbPath)
	if err != nil {
		log.Fatal(err)
	}
	defer db.Close()
	if err := store.Migrate(db.Pool); err != nil {
		log.Fatal(err)
	}

	timeout := time.Duration(cfg.Feed.TimeoutSec * float64(time.Second))

	// Shared outbound clients, created once and reused for every request.
	client := feed.NewClient(func() string {
		return cfgVal.Load().(config.Config).Feed.URL
	}, timeout, cfg.Feed.RatePerSec)
	cache := feed.NewCache(client, time.Duration(cfg.Feed.CacheTTLSec)*time.Second)

	blobs := blob.NewClient(func() blob.Settings {
		c := cfgVal.Load().(config.Config)
		return blob.Settings{
			URL:        c.Storage.URL,
			ServiceKey: secrets.ResolveStorageKey(c),
			Bucket:     c.Storage.Bucket,
			Public:     c.Storage.PublicBucket,
		}
	}, timeout)

	hub := events.NewHub()

	pipeline := &intake.Pipeline{
		Jobs:  cache,
		Rows:  store.NewGateway(db.Pool),
		Blobs: blobs,
		Publish: func(appID string) {
			hub.Publish(events.MakeEvent("", events.TypeApplicationReceived, 1,
				map[string]any{"application_id": appID}))
		},
	}

	// Background warmer: keep the canonical feed keys from going cold, one
	// errgroup fetch per language. Skips silently while the feed URL is unset.
	warm := func() {
		if cfgVal.Load().(config.Config).Feed.URL == "" {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), timeout+5*time.Second)
		defer cancel()

		var g errgroup.Group
		for _, lang := range warmLangs {
			g.Go(func() error {
				_, err := cache.Get(ctx, feed.Key{Lang: lang})
				return err
			})
		}
		if err := g.Wait(); err != nil {
			log.Printf("level=warn msg=\"feed warm failed\" err=%v", err)
			return
		}
		hub.Publish(events.MakeEvent("", events.TypeFeedRefreshed, 1, nil))
	}

	warmEvery := cfg.Feed.CacheTTLSec
	if warmEvery < 5 {
		warmEvery = 5
	}
	cr := cron.New()
	if _, err := cr.AddFunc(fmt.Sprintf("@every %ds", warmEvery), warm); err != nil {
		log.Fatalf("cron: %v", err)
	}
	cr.Start()
	defer cr.Stop()
	go warm() // populate immediately, non-blocking

	mux := httpapi.NewMux(httpapi.Deps{
		DB:          db.Pool,
		Cache:       cache,
		Pipeline:    pipeline,
		Hub:         hub,
		CfgVal:      &cfgVal,
		UserCfgPath: userCfgPath,
		LoadCfg:     loadCfg,
	})

	handler := httpapi.Chain(mux,
		httpapi.RequestID,
		httpapi.Recover,
		httpapi.AccessLog,
		httpapi.Cors(func() []string {
			return cfgVal.Load().(config.Config).CORS.Origins
		}),
	)

	log.Printf("startup env=%s", cfg.App.Env)
	log.Printf("GOOGLE_JOBS_FEED_URL=%s", setOrMissing(cfg.Feed.URL))
	log.Printf("SUPABASE_URL=%s", setOrMissing(cfg.Storage.URL))
	log.Printf("CORS_ORIGINS=%v", cfg.CORS.Origins)
	log.Printf("JOBS_CACHE_TTL_SEC=%d", cfg.Feed.CacheTTLSec)

	addr := fmt.Sprintf(":%d", cfg.App.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}
	log.Printf("engine listening on %s (db=%s)", addr, dbPath)
	log.Fatal(srv.ListenAndServe())
}

func setOrMissing(v string) string {
	if v == "" {
		return "missing"
	}
	return "set"
}
