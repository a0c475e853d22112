package httpapi

import "net/http"

// NewMux wires every route; main() wraps the result in the middleware chain.
func NewMux(d Deps) *http.ServeMux {
	mux := http.NewServeMux()

	// Health (both paths, matching the original deploy's probes)
	hh := HealthHandler{CfgVal: d.CfgVal}
	mux.HandleFunc("/health", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: hh.Health,
	}))
	mux.HandleFunc("/api/health", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: hh.Health,
	}))

	// Jobs
	jh := JobsHandler{Cache: d.Cache}
	mux.HandleFunc("/jobs", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: jh.List,
	}))
	mux.HandleFunc("/jobs/", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: jh.DetailByPath, // expects /jobs/{id}
	}))

	// Applications
	ah := ApplyHandler{Pipeline: d.Pipeline}
	mux.HandleFunc("/apply/", methodMux(map[string]http.HandlerFunc{
		http.MethodPost: ah.SubmitByPath, // expects /apply/{job_id}
	}))

	// Cache introspection
	ch := CacheHandler{Cache: d.Cache, CfgVal: d.CfgVal}
	mux.HandleFunc("/debug/jobs-feed", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: ch.Feed,
	}))
	mux.HandleFunc("/debug/jobs-cache", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: ch.Keys,
	}))

	// Config
	cfgH := ConfigHandler{
		CfgVal:      d.CfgVal,
		UserCfgPath: d.UserCfgPath,
		LoadCfg:     d.LoadCfg,
	}
	mux.HandleFunc("/config", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: cfgH.Get,
		http.MethodPut: cfgH.Put,
	}))
	mux.HandleFunc("/config/path", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: cfgH.Path,
	}))

	// Secrets (use CfgVal, NOT a snapshot cfg)
	sh := SecretsHandler{CfgVal: d.CfgVal}
	mux.HandleFunc("/api/secrets/storage", methodMux(map[string]http.HandlerFunc{
		http.MethodPost: sh.SetStorageKey,
	}))

	// SSE events
	eh := EventsHandler{Hub: d.Hub}
	mux.HandleFunc("/events", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: eh.ServeSSE,
	}))

	// DB maintenance (localhost only)
	dh := DBHandler{DB: d.DB}
	mux.HandleFunc("/db/checkpoint", methodMux(map[string]http.HandlerFunc{
		http.MethodPost: dh.Checkpoint,
	}))

	return mux
}
