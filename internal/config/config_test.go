package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	for _, k := range []string{"DB_DRIVER", "MATCH_THRESHOLD", "MIN_REFERENCE_EMBEDDINGS", "STATUS_RECENT_LIMIT", "QUEUE_BACKEND", "ACCESS_TTL", "FACE_SKIP", "REDIS_DB", "REDIS_READ_TIMEOUT"} {
		t.Setenv(k, "")
	}
	cfg := Load()
	assert.Equal(t, "pgx", cfg.DBDriver)
	assert.Equal(t, 0.4, cfg.MatchThreshold)
	assert.Equal(t, 4, cfg.MinReferenceEmbeddings)
	assert.Equal(t, 10, cfg.StatusRecentLimit)
	assert.Equal(t, "memory", cfg.QueueBackend)
	assert.Equal(t, 15*time.Minute, cfg.AccessTTL)
	assert.True(t, cfg.FaceSkip)
	assert.Equal(t, 0, cfg.Redis().DB)
	assert.Equal(t, time.Second, cfg.Redis().ReadTimeout)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("DB_DRIVER", "sqlite3")
	t.Setenv("MATCH_THRESHOLD", "0.35")
	t.Setenv("MIN_REFERENCE_EMBEDDINGS", "6")
	t.Setenv("FACE_SKIP", "false")
	t.Setenv("ACCESS_TTL", "1h")
	t.Setenv("STATUS_RECENT_LIMIT", "nope")
	t.Setenv("APP_ENV", "prod")
	t.Setenv("REDIS_ADDR", "redis:6380")
	t.Setenv("REDIS_DB", "2")
	t.Setenv("REDIS_READ_TIMEOUT", "5s")
	t.Setenv("FACE_MIN_QUALITY", "0.6")

	cfg := Load()
	assert.Equal(t, "sqlite3", cfg.DBDriver)
	assert.Equal(t, 0.35, cfg.MatchThreshold)
	assert.Equal(t, 6, cfg.MinReferenceEmbeddings)
	assert.False(t, cfg.FaceSkip)
	assert.Equal(t, time.Hour, cfg.AccessTTL)
	assert.Equal(t, 10, cfg.StatusRecentLimit)
	assert.True(t, cfg.Production())
	assert.Equal(t, 0.6, cfg.FaceMinQuality)

	r := cfg.Redis()
	assert.Equal(t, "redis:6380", r.Addr)
	assert.Equal(t, 2, r.DB)
	assert.Equal(t, 5*time.Second, r.ReadTimeout)
	assert.Equal(t, 2*time.Second, r.DialTimeout)
}

func TestLocation(t *testing.T) {
	loc, err := App{Timezone: "UTC"}.Location()
	require.NoError(t, err)
	assert.Equal(t, time.UTC, loc)

	loc, err = App{}.Location()
	require.NoError(t, err)
	assert.Equal(t, time.Local, loc)

	_, err = App{Timezone: "Mars/Olympus"}.Location()
	assert.Error(t, err)
}
