package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

type ValidationResult struct {
	Errors []string `json:"errors"`
}

func (vr ValidationResult) OK() bool { return len(vr.Errors) == 0 }

// NormalizeAndValidate trims and range-checks a config. Feed and storage
// addresses may legitimately be empty: those surface on first use of the
// dependent client, not at startup.
func NormalizeAndValidate(cfg Config) (Config, ValidationResult) {
	var vr ValidationResult

	cfg.Feed.URL = strings.TrimSpace(cfg.Feed.URL)
	cfg.Storage.URL = strings.TrimSpace(cfg.Storage.URL)
	cfg.Storage.Bucket = strings.TrimSpace(cfg.Storage.Bucket)

	if cfg.App.Port <= 0 || cfg.App.Port > 65535 {
		vr.Errors = append(vr.Errors, "app.port must be 1..65535")
	}
	if cfg.Feed.CacheTTLSec < 0 {
		vr.Errors = append(vr.Errors, "feed.cache_ttl_sec must be >= 0")
	}
	if cfg.Feed.TimeoutSec <= 0 {
		vr.Errors = append(vr.Errors, "feed.timeout_sec must be > 0")
	}
	if cfg.Feed.RatePerSec <= 0 {
		vr.Errors = append(vr.Errors, "feed.rate_per_sec must be > 0")
	}
	for i, o := range cfg.CORS.Origins {
		if strings.TrimSpace(o) == "" {
			vr.Errors = append(vr.Errors, fmt.Sprintf("cors.origins[%d] cannot be empty", i))
		}
	}

	return cfg, vr
}

func SaveAtomic(path string, cfg Config) error {
	if _, vr := NormalizeAndValidate(cfg); !vr.OK() {
		return fmt.Errorf("config validation failed:\n- %s", strings.Join(vr.Errors, "\n- "))
	}

	b, err := yaml.Marshal(&cfg)
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	tmp := path + ".tmp"
	bak := path + ".bak"

	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return err
	}

	_ = os.Remove(bak)
	_ = os.Rename(path, bak)

	return os.Rename(tmp, path)
}
