package config

import (
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/ThinkOS-Cognitive-Superchain/thinkos-cognitive-superchain/internal/aifa"
	"github.com/ThinkOS-Cognitive-Superchain/thinkos-cognitive-superchain/internal/cmps"
)

func writeYAML(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	return p
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	c, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "A", c.Node.ID)
	assert.Equal(t, "neutral", c.Node.MarketMode)
	assert.Equal(t, 80, c.Node.Ticks)
	assert.Equal(t, 3*time.Second, c.Node.Period)
	assert.Equal(t, "http://127.0.0.1:8081", c.AIFA.URL)
	assert.Equal(t, 10*time.Second, c.AIFA.Timeout)
	assert.Equal(t, 0, c.AIFA.BreakerFailures)
	assert.Equal(t, "state/nodes", c.State.Root)
	assert.Equal(t, aifa.DefaultTelemetry, c.Telemetry)
	assert.Equal(t, cmps.DefaultScores, c.Scores)
	assert.Len(t, c.P2P.Peers, 5)
	assert.Equal(t, time.Second, c.P2P.Interval)
	assert.Empty(t, c.Status.Addr)
	assert.Empty(t, c.Sinks.Redis.Addr)
	assert.Empty(t, c.Sinks.Postgres.DSN)
	assert.NoError(t, c.Validate())
}

func TestLoad_YAML(t *testing.T) {
	p := writeYAML(t, `
node:
  id: C
  market_mode: bull
  ticks: 5
  period: 250ms
aifa:
  url: http://aifa:9000
  breaker_failures: 3
telemetry:
  volatility: 0.5
scores:
  continuity: 1
  cognition: 1
  synergy: 1
  adaptation: 1
  integrity: 1
p2p:
  peers: ["127.0.0.1:9001"]
sinks:
  redis:
    addr: localhost:6379
`)
	c, err := Load(p)
	require.NoError(t, err)

	assert.Equal(t, "C", c.Node.ID)
	assert.Equal(t, "bull", c.Node.MarketMode)
	assert.Equal(t, 5, c.Node.Ticks)
	assert.Equal(t, 250*time.Millisecond, c.Node.Period)
	assert.Equal(t, "http://aifa:9000", c.AIFA.URL)
	assert.Equal(t, 3, c.AIFA.BreakerFailures)
	assert.Equal(t, 0.5, c.Telemetry.Volatility)
	// campos no mencionados conservan el default
	assert.Equal(t, 0.18, c.Telemetry.Congestion)
	assert.Equal(t, 1.0, c.Scores.Integrity)
	assert.Equal(t, []string{"127.0.0.1:9001"}, c.P2P.Peers)
	assert.Equal(t, "localhost:6379", c.Sinks.Redis.Addr)
	assert.Equal(t, "thinkos:", c.Sinks.Redis.Prefix)
}

func TestLoad_MalformedYAMLFails(t *testing.T) {
	_, err := Load(writeYAML(t, "node: [unterminated"))
	require.Error(t, err)
}

func TestLoad_EnvOverridesYAML(t *testing.T) {
	p := writeYAML(t, "node:\n  id: C\n  ticks: 5\n")
	t.Setenv("NODE_ID", "B")
	t.Setenv("ITERS", "0")
	t.Setenv("PERIOD_MS", "1500")
	t.Setenv("MARKET_MODE", "bear")
	t.Setenv("AIFA_URL", "http://other:8081/")
	t.Setenv("STATE_DIR", "/tmp/thinkos")
	t.Setenv("TELEMETRY_TREASURY_HEALTH", "0.5")
	t.Setenv("P2P_PEERS", "127.0.0.1:9001, 127.0.0.1:9003")
	t.Setenv("P2P_INTERVAL_MS", "200")
	t.Setenv("STATUS_ADDR", ":9090")
	t.Setenv("SNAPSHOT_PG_DSN", "postgres://x")

	c, err := Load(p)
	require.NoError(t, err)

	assert.Equal(t, "B", c.Node.ID)
	assert.Equal(t, 0, c.Node.Ticks)
	assert.Equal(t, 1500*time.Millisecond, c.Node.Period)
	assert.Equal(t, "bear", c.Node.MarketMode)
	assert.Equal(t, "http://other:8081", c.AIFA.URL)
	assert.Equal(t, "/tmp/thinkos", c.State.Root)
	assert.Equal(t, 0.5, c.Telemetry.TreasuryHealth)
	assert.Equal(t, []string{"127.0.0.1:9001", "127.0.0.1:9003"}, c.P2P.Peers)
	assert.Equal(t, 200*time.Millisecond, c.P2P.Interval)
	assert.Equal(t, ":9090", c.Status.Addr)
	assert.Equal(t, "postgres://x", c.Sinks.Postgres.DSN)
}

func TestLoad_InvalidEnvFallsBack(t *testing.T) {
	t.Setenv("ITERS", "many")
	t.Setenv("PERIOD_MS", "-5")
	t.Setenv("TELEMETRY_VOLATILITY", "NaN")
	t.Setenv("TELEMETRY_CONGESTION", "high")
	t.Setenv("AIFA_TIMEOUT", "soon")
	t.Setenv("P2P_INTERVAL_MS", "0")

	c, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 80, c.Node.Ticks)
	assert.Equal(t, 3*time.Second, c.Node.Period)
	assert.Equal(t, 0.23, c.Telemetry.Volatility)
	assert.Equal(t, 0.18, c.Telemetry.Congestion)
	assert.Equal(t, 10*time.Second, c.AIFA.Timeout)
	assert.Equal(t, time.Second, c.P2P.Interval)
}

func TestValidate_RejectsNonFinite(t *testing.T) {
	c := Default()
	c.Telemetry.Congestion = math.Inf(1)
	assert.Error(t, c.Validate())

	c = Default()
	c.Scores.Synergy = math.NaN()
	assert.Error(t, c.Validate())
}

func TestMarshal_RoundTripsDurationsAsText(t *testing.T) {
	b, err := Default().Marshal()
	require.NoError(t, err)
	assert.Contains(t, string(b), "period: 3s")

	var back Config
	require.NoError(t, yaml.Unmarshal(b, &back))
	assert.Equal(t, 3*time.Second, back.Node.Period)
	assert.Equal(t, "A", back.Node.ID)
}
