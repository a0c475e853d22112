package config

import (
	"os"
	"strconv"
	"strings"
)

// OverlayEnv applies the original deployment's environment variables on top of
// the file config. Env wins so a containerized install needs no yaml edits.
// Missing feed/storage settings are NOT an error here: the dependent clients
// re-check on every call and fail with a descriptive message on first use.
func OverlayEnv(cfg *Config) {
	if v := strings.TrimSpace(os.Getenv("APP_ENV")); v != "" {
		cfg.App.Env = v
	}
	if v := strings.TrimSpace(os.Getenv("APP_PORT")); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			cfg.App.Port = p
		}
	}
	if v := os.Getenv("CORS_ORIGINS"); v != "" {
		var origins []string
		for _, o := range strings.Split(v, ",") {
			if o = strings.TrimSpace(o); o != "" {
				origins = append(origins, o)
			}
		}
		if len(origins) > 0 {
			cfg.CORS.Origins = origins
		}
	}

	if v := strings.TrimSpace(os.Getenv("GOOGLE_JOBS_FEED_URL")); v != "" {
		cfg.Feed.URL = v
	}
	if v := strings.TrimSpace(os.Getenv("JOBS_CACHE_TTL_SEC")); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Feed.CacheTTLSec = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("HTTP_TIMEOUT")); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Feed.TimeoutSec = f
		}
	}

	if v := strings.TrimSpace(os.Getenv("SUPABASE_URL")); v != "" {
		cfg.Storage.URL = v
	}
	if v := strings.TrimSpace(os.Getenv("SUPABASE_SERVICE_ROLE_KEY")); v != "" {
		cfg.Storage.ServiceKey = v
	}
	if v := strings.TrimSpace(os.Getenv("SUPABASE_BUCKET")); v != "" {
		cfg.Storage.Bucket = v
	}
	if v := strings.TrimSpace(os.Getenv("SUPABASE_PUBLIC_BUCKET")); v != "" {
		cfg.Storage.PublicBucket = v == "1" || strings.EqualFold(v, "true")
	}
}
