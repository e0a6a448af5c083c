package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ThinkOS-Cognitive-Superchain/thinkos-cognitive-superchain/internal/aifa"
	"github.com/ThinkOS-Cognitive-Superchain/thinkos-cognitive-superchain/internal/cmps"
	"github.com/ThinkOS-Cognitive-Superchain/thinkos-cognitive-superchain/internal/p2p"
)

// DefaultPath es el archivo que se intenta leer si no viene --config ni CONFIG_PATH.
const DefaultPath = "config.yaml"

type Config struct {
	App struct {
		// dev | prod
		Env string `yaml:"env"`
	} `yaml:"app"`

	Log struct {
		Level string `yaml:"level"`
	} `yaml:"log"`

	Node struct {
		ID         string        `yaml:"id"`
		MarketMode string        `yaml:"market_mode"`
		Ticks      int           `yaml:"ticks"` // 0 = sin límite
		Period     time.Duration `yaml:"period"`
	} `yaml:"node"`

	AIFA struct {
		URL             string        `yaml:"url"`
		Timeout         time.Duration `yaml:"timeout"`
		BreakerFailures int           `yaml:"breaker_failures"` // 0 = sin breaker
		BreakerCooldown time.Duration `yaml:"breaker_cooldown"`
	} `yaml:"aifa"`

	State struct {
		Root string `yaml:"root"`
	} `yaml:"state"`

	Telemetry aifa.Telemetry `yaml:"telemetry"`
	Scores    cmps.Scores    `yaml:"scores"`

	P2P struct {
		Peers      []string      `yaml:"peers"`
		ListenAddr string        `yaml:"listen_addr"`
		Interval   time.Duration `yaml:"interval"`
	} `yaml:"p2p"`

	Status struct {
		Addr string `yaml:"addr"` // vacío = deshabilitado
	} `yaml:"status"`

	Sinks struct {
		Redis struct {
			Addr   string `yaml:"addr"`
			DB     int    `yaml:"db"`
			Prefix string `yaml:"prefix"`
		} `yaml:"redis"`
		Postgres struct {
			DSN string `yaml:"dsn"`
		} `yaml:"postgres"`
	} `yaml:"sinks"`
}

// Default devuelve la configuración sin archivo ni entorno.
func Default() *Config {
	var c Config
	c.App.Env = "dev"
	c.Log.Level = "info"
	c.Node.ID = "A"
	c.Node.MarketMode = "neutral"
	c.Node.Ticks = 80
	c.Node.Period = 3 * time.Second
	c.AIFA.URL = "http://127.0.0.1:8081"
	c.AIFA.Timeout = 10 * time.Second
	c.AIFA.BreakerCooldown = 30 * time.Second
	c.State.Root = "state/nodes"
	c.Telemetry = aifa.DefaultTelemetry
	c.Scores = cmps.DefaultScores
	c.P2P.Peers = p2p.DefaultPeers()
	c.P2P.Interval = p2p.DefaultInterval
	c.Sinks.Redis.Prefix = "thinkos:"
	return &c
}

// Load arma la config: defaults, luego YAML (si existe), luego env.
// Un archivo ausente no es error; uno mal formado sí.
func Load(path string) (*Config, error) {
	c := Default()
	if path != "" {
		b, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(b, c); err != nil {
				return nil, fmt.Errorf("parse %s: %w", path, err)
			}
		case errors.Is(err, os.ErrNotExist):
		default:
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
	}
	c.applyEnvOverrides()
	c.fillDefaults()
	return c, nil
}

// fillDefaults repone lo que el YAML haya dejado en cero o inválido.
func (c *Config) fillDefaults() {
	d := Default()
	c.Node.ID = strings.TrimSpace(c.Node.ID)
	if c.Node.ID == "" {
		c.Node.ID = d.Node.ID
	}
	if c.Node.MarketMode == "" {
		c.Node.MarketMode = d.Node.MarketMode
	}
	if c.Node.Ticks < 0 {
		c.Node.Ticks = d.Node.Ticks
	}
	if c.Node.Period < 0 {
		c.Node.Period = d.Node.Period
	}
	if c.AIFA.URL == "" {
		c.AIFA.URL = d.AIFA.URL
	}
	if c.AIFA.Timeout <= 0 {
		c.AIFA.Timeout = d.AIFA.Timeout
	}
	if c.AIFA.BreakerFailures < 0 {
		c.AIFA.BreakerFailures = 0
	}
	if c.AIFA.BreakerCooldown <= 0 {
		c.AIFA.BreakerCooldown = d.AIFA.BreakerCooldown
	}
	if c.State.Root == "" {
		c.State.Root = d.State.Root
	}
	if c.P2P.Interval <= 0 {
		c.P2P.Interval = d.P2P.Interval
	}
	if c.P2P.Peers == nil {
		c.P2P.Peers = d.P2P.Peers
	}
	if c.Sinks.Redis.Prefix == "" {
		c.Sinks.Redis.Prefix = d.Sinks.Redis.Prefix
	}
	if c.App.Env == "" {
		c.App.Env = d.App.Env
	}
	if c.Log.Level == "" {
		c.Log.Level = d.Log.Level
	}
}

// ---- Helpers env ----

func getEnvStr(key string) (string, bool) {
	v := os.Getenv(key)
	return v, v != ""
}
func getEnvInt(key string) (int, bool) {
	if s, ok := getEnvStr(key); ok {
		if i, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
			return i, true
		}
	}
	return 0, false
}
func getEnvFloat(key string) (float64, bool) {
	if s, ok := getEnvStr(key); ok {
		if f, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil && !math.IsNaN(f) && !math.IsInf(f, 0) {
			return f, true
		}
	}
	return 0, false
}
func getEnvDur(key string) (time.Duration, bool) {
	if s, ok := getEnvStr(key); ok {
		if d, err := time.ParseDuration(strings.TrimSpace(s)); err == nil {
			return d, true
		}
	}
	return 0, false
}

// getEnvMillis lee un entero de milisegundos (PERIOD_MS y similares).
func getEnvMillis(key string) (time.Duration, bool) {
	if ms, ok := getEnvInt(key); ok && ms >= 0 {
		return time.Duration(ms) * time.Millisecond, true
	}
	return 0, false
}
func getEnvCSV(key string) ([]string, bool) {
	if s, ok := getEnvStr(key); ok {
		if strings.TrimSpace(s) == "" {
			return []string{}, true
		}
		parts := strings.Split(s, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				out = append(out, p)
			}
		}
		return out, true
	}
	return nil, false
}

// applyEnvOverrides: pisa config.yaml con variables de entorno.
// Valores que no parsean se ignoran y queda lo anterior.
func (c *Config) applyEnvOverrides() {
	// APP / LOG
	if v, ok := getEnvStr("APP_ENV"); ok {
		c.App.Env = strings.ToLower(v)
	}
	if v, ok := getEnvStr("LOG_LEVEL"); ok {
		c.Log.Level = strings.ToLower(v)
	}

	// NODE
	if v, ok := getEnvStr("NODE_ID"); ok {
		c.Node.ID = strings.TrimSpace(v)
	}
	if v, ok := getEnvStr("MARKET_MODE"); ok {
		c.Node.MarketMode = strings.TrimSpace(v)
	}
	if v, ok := getEnvInt("ITERS"); ok && v >= 0 {
		c.Node.Ticks = v
	}
	if v, ok := getEnvMillis("PERIOD_MS"); ok {
		c.Node.Period = v
	}

	// AIFA
	if v, ok := getEnvStr("AIFA_URL"); ok {
		c.AIFA.URL = strings.TrimRight(strings.TrimSpace(v), "/")
	}
	if v, ok := getEnvDur("AIFA_TIMEOUT"); ok && v > 0 {
		c.AIFA.Timeout = v
	}
	if v, ok := getEnvInt("AIFA_BREAKER_FAILURES"); ok && v >= 0 {
		c.AIFA.BreakerFailures = v
	}
	if v, ok := getEnvDur("AIFA_BREAKER_COOLDOWN"); ok && v > 0 {
		c.AIFA.BreakerCooldown = v
	}

	// STATE
	if v, ok := getEnvStr("STATE_DIR"); ok {
		c.State.Root = v
	}

	// TELEMETRY
	if v, ok := getEnvFloat("TELEMETRY_VOLATILITY"); ok {
		c.Telemetry.Volatility = v
	}
	if v, ok := getEnvFloat("TELEMETRY_CONGESTION"); ok {
		c.Telemetry.Congestion = v
	}
	if v, ok := getEnvFloat("TELEMETRY_UPTIME_VARIANCE"); ok {
		c.Telemetry.UptimeVariance = v
	}
	if v, ok := getEnvFloat("TELEMETRY_TREASURY_HEALTH"); ok {
		c.Telemetry.TreasuryHealth = v
	}

	// P2P
	if v, ok := getEnvCSV("P2P_PEERS"); ok {
		c.P2P.Peers = v
	}
	if v, ok := getEnvStr("P2P_LISTEN_ADDR"); ok {
		c.P2P.ListenAddr = strings.TrimSpace(v)
	}
	if v, ok := getEnvMillis("P2P_INTERVAL_MS"); ok && v > 0 {
		c.P2P.Interval = v
	}

	// STATUS API
	if v, ok := getEnvStr("STATUS_ADDR"); ok {
		c.Status.Addr = v
	}

	// SINKS
	if v, ok := getEnvStr("REDIS_ADDR"); ok {
		c.Sinks.Redis.Addr = v
	}
	if v, ok := getEnvInt("REDIS_DB"); ok && v >= 0 {
		c.Sinks.Redis.DB = v
	}
	if v, ok := getEnvStr("REDIS_PREFIX"); ok {
		c.Sinks.Redis.Prefix = v
	}
	if v, ok := getEnvStr("SNAPSHOT_PG_DSN"); ok {
		c.Sinks.Postgres.DSN = v
	}
}

// Validate revisa lo que no tiene default razonable.
func (c *Config) Validate() error {
	if c.Node.ID == "" {
		return errors.New("node.id is required")
	}
	t := c.Telemetry
	for _, f := range []float64{t.Volatility, t.Congestion, t.UptimeVariance, t.TreasuryHealth} {
		if !cmps.Valid(f) {
			return errors.New("telemetry values must be finite")
		}
	}
	for _, f := range c.Scores.Vector() {
		if !cmps.Valid(f) {
			return errors.New("scores must be finite")
		}
	}
	return nil
}

// Marshal devuelve la config efectiva en YAML (para `thinkos-node config`).
func (c *Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}
