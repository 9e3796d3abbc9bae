package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseEnv_OverlaysOnlySetVariables(t *testing.T) {
	t.Setenv("FEATUREBOARD_DATABASE_DSN", "postgres://board@db/board")
	t.Setenv("FEATUREBOARD_LOGIN_MAX_ATTEMPTS", "7")
	t.Setenv("FEATUREBOARD_LOGIN_WINDOW", "30m")
	t.Setenv("FEATUREBOARD_METRICS_ADDR", "")
	t.Setenv("FEATUREBOARD_TRUST_PROXY_HEADERS", "true")

	var c Config
	c.LoadDefaults()
	parseEnv(&c)

	assert.Equal(t, "postgres://board@db/board", c.DatabaseDSN)
	assert.Equal(t, 7, c.LoginMaxAttempts)
	assert.Equal(t, 30*time.Minute, c.LoginWindow)
	assert.True(t, c.TrustProxyHeaders)
	assert.Equal(t, "", c.MetricsAddr, "an explicitly empty variable disables metrics")
	assert.Equal(t, ":50051", c.EndpointAddrGRPC, "unset variables keep the previous value")
	assert.Equal(t, "system@featureboard.local", c.SystemUserEmail)
}

func TestParseEnv_MalformedValuePanics(t *testing.T) {
	t.Setenv("FEATUREBOARD_LOGIN_MAX_ATTEMPTS", "five")

	var c Config
	c.LoadDefaults()
	require.Panics(t, func() { parseEnv(&c) })
}
