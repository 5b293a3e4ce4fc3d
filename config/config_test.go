package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("ROOM_CLOSE_DELAY", "")
	t.Setenv("PROXIMITY_RADIUS_KM", "")

	Load()

	assert.Equal(t, ":8080", Cfg.ServerAddr)
	assert.Equal(t, 30*time.Second, Cfg.RoomCloseDelay)
	assert.Equal(t, 2.0, Cfg.ProximityRadiusKm)
	assert.Equal(t, "@every 1m", Cfg.SweepSchedule)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("STORE_DRIVER", "memory")
	t.Setenv("ROOM_CLOSE_DELAY", "5s")
	t.Setenv("PROXIMITY_RADIUS_KM", "3.5")
	t.Setenv("LOG_MAX_SIZE", "12")
	t.Setenv("CORS_ALLOWED_ORIGINS", "*")
	t.Setenv("DASHBOARD_KEY_HASH", "$2a$04$abc")

	Load()

	assert.Equal(t, ":9090", Cfg.ServerAddr)
	assert.Equal(t, "memory", Cfg.StoreDriver)
	assert.Equal(t, 5*time.Second, Cfg.RoomCloseDelay)
	assert.Equal(t, 3.5, Cfg.ProximityRadiusKm)
	assert.Equal(t, 12, Cfg.Log.MaxSize)
	assert.Equal(t, "*", Cfg.CORSOrigins)
	assert.Equal(t, "$2a$04$abc", Cfg.DashboardKeyHash)
}
