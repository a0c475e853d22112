package httpapi

import (
	"encoding/json"
	"net/http"
	"sync/atomic"

	"careers-engine/internal/config"
	"careers-engine/internal/secrets"
)

type SecretsHandler struct {
	CfgVal *atomic.Value // stores config.Config
}

type setStorageKeyReq struct {
	ServiceKey string `json:"service_key"`
}

// SetStorageKey stores the object-store service key in the OS keychain. The
// env var, when set, still wins at resolution time.
func (h SecretsHandler) SetStorageKey(w http.ResponseWriter, r *http.Request) {
	var req setStorageKeyReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}

	cfg := h.CfgVal.Load().(config.Config)
	if err := secrets.SetStorageKey(secrets.StorageKeyringAccount(cfg), req.ServiceKey); err != nil {
		http.Error(w, "failed to store service key: "+err.Error(), http.StatusBadRequest)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
