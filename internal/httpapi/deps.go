package httpapi

import (
	"database/sql"
	"sync/atomic"

	"careers-engine/internal/config"
	"careers-engine/internal/events"
	"careers-engine/internal/feed"
	"careers-engine/internal/intake"
)

type Deps struct {
	DB *sql.DB

	Cache    *feed.Cache
	Pipeline *intake.Pipeline

	Hub *events.Hub

	// Atomic store; re-read per request so PUT /config applies live.
	CfgVal *atomic.Value // stores config.Config

	// Config persistence
	UserCfgPath string
	LoadCfg     func() (config.Config, error)
}
