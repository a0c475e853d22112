package httpapi

import (
	"net/http"
	"sync/atomic"
	"time"

	"careers-engine/internal/config"
)

type HealthHandler struct {
	CfgVal *atomic.Value // stores config.Config
}

func (h HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	cfg := h.CfgVal.Load().(config.Config)
	writeJSON(w, map[string]any{
		"ok":   true,
		"env":  cfg.App.Env,
		"time": time.Now().UTC().Format(time.RFC3339),
	})
}
