package httpapi

import (
	"net/http"
	"sort"
	"sync/atomic"

	"careers-engine/internal/config"
	"careers-engine/internal/feed"
)

// CacheHandler exposes read-only feed/cache introspection for operators.
type CacheHandler struct {
	Cache  *feed.Cache
	CfgVal *atomic.Value // stores config.Config
}

// Feed serves GET /debug/jobs-feed: one live fetch-or-hit plus a row sample.
func (h CacheHandler) Feed(w http.ResponseWriter, r *http.Request) {
	cfg := h.CfgVal.Load().(config.Config)

	doc, err := h.Cache.Get(r.Context(), feed.Key{Lang: r.URL.Query().Get("lang")})
	if err != nil {
		WriteDomainError(w, r, err)
		return
	}

	sample := doc.Rows
	if len(sample) > 3 {
		sample = sample[:3]
	}
	writeJSON(w, map[string]any{
		"ok":           true,
		"env":          cfg.App.Env,
		"feed_url_set": cfg.Feed.URL != "",
		"version":      doc.Version,
		"total":        doc.Total,
		"sample":       sample,
	})
}

// Keys serves GET /debug/jobs-cache: every cached key with remaining TTL.
func (h CacheHandler) Keys(w http.ResponseWriter, r *http.Request) {
	cfg := h.CfgVal.Load().(config.Config)

	keys := h.Cache.Snapshot()
	sort.Slice(keys, func(i, j int) bool { return keys[i].Key < keys[j].Key })

	writeJSON(w, map[string]any{
		"ok":      true,
		"ttl_sec": cfg.Feed.CacheTTLSec,
		"keys":    keys,
	})
}
