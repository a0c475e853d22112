package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	App struct {
		Port    int    `yaml:"port"`
		DataDir string `yaml:"data_dir"`
		Env     string `yaml:"env"`
	} `yaml:"app"`

	CORS struct {
		Origins []string `yaml:"origins"`
	} `yaml:"cors"`

	Feed struct {
		URL         string  `yaml:"url"`
		CacheTTLSec int     `yaml:"cache_ttl_sec"`
		TimeoutSec  float64 `yaml:"timeout_sec"`
		RatePerSec  float64 `yaml:"rate_per_sec"`
	} `yaml:"feed"`

	Storage struct {
		URL          string `yaml:"url"`
		Bucket       string `yaml:"bucket"`
		PublicBucket bool   `yaml:"public_bucket"`

		// ServiceKey never touches the yaml file: env var or OS keychain only.
		ServiceKey string `yaml:"-" json:"-"`
	} `yaml:"storage"`
}

// Defaults mirror the original deployment: 60s feed TTL, 25s outbound timeout,
// local Vite dev server allowed for CORS.
func Default() Config {
	var cfg Config
	cfg.App.Port = 8080
	cfg.App.DataDir = "."
	cfg.App.Env = "local"
	cfg.CORS.Origins = []string{"http://localhost:5173"}
	cfg.Feed.CacheTTLSec = 60
	cfg.Feed.TimeoutSec = 25
	cfg.Feed.RatePerSec = 5
	cfg.Storage.Bucket = "careers"
	return cfg
}

func Load(path string) (Config, error) {
	cfg := Default()
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}
