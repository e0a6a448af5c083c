package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zapcore.DebugLevel, parseLevel("DEBUG"))
	assert.Equal(t, zapcore.WarnLevel, parseLevel(" warning "))
	assert.Equal(t, zapcore.ErrorLevel, parseLevel("error"))
	assert.Equal(t, zapcore.InfoLevel, parseLevel(""))
	assert.Equal(t, zapcore.InfoLevel, parseLevel("nope"))
}

func TestBuild_RespectsLevel(t *testing.T) {
	l := build(Config{Env: "prod", Level: "warn", NodeID: "B"})
	assert.False(t, l.Core().Enabled(zapcore.InfoLevel))
	assert.True(t, l.Core().Enabled(zapcore.WarnLevel))

	d := build(Config{Env: "dev", Level: "debug"})
	assert.True(t, d.Core().Enabled(zapcore.DebugLevel))
}

func TestL_DefaultsWithoutInit(t *testing.T) {
	assert.NotNil(t, L())
	assert.NotNil(t, Named("p2p"))
}

func TestFields_Keys(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	zap.New(core).Info("x",
		NodeID("A"), Tick(3), Op("save"), String("boot_id", "b1"), Int("ticks", 80), Kind("split"),
	)

	ctx := logs.All()[0].ContextMap()
	assert.Equal(t, "A", ctx["node"])
	assert.EqualValues(t, 3, ctx["tick"])
	assert.Equal(t, "save", ctx["op"])
	assert.Equal(t, "b1", ctx["boot_id"])
	assert.EqualValues(t, 80, ctx["ticks"])
	assert.Equal(t, "split", ctx["kind"])
}
