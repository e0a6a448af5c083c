package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/joho/godotenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ThinkOS-Cognitive-Superchain/thinkos-cognitive-superchain/internal/config"
)

func TestConfigPath_FlagWins(t *testing.T) {
	t.Setenv("CONFIG_PATH", "/etc/thinkos/env.yaml")
	assert.Equal(t, "flag.yaml", configPath("flag.yaml", true))
	assert.Equal(t, "/etc/thinkos/env.yaml", configPath(config.DefaultPath, false))
}

func TestConfigPath_DefaultWithoutEnv(t *testing.T) {
	t.Setenv("CONFIG_PATH", "")
	assert.Equal(t, config.DefaultPath, configPath(config.DefaultPath, false))
}

func TestConfigPath_FromDotEnv(t *testing.T) {
	// t.Setenv restaura el valor original al terminar; después se borra para
	// que godotenv pueda setearla.
	t.Setenv("CONFIG_PATH", "")
	require.NoError(t, os.Unsetenv("CONFIG_PATH"))

	dotenv := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(dotenv, []byte("CONFIG_PATH=/srv/node-b.yaml\n"), 0o644))
	require.NoError(t, godotenv.Load(dotenv))

	assert.Equal(t, "/srv/node-b.yaml", configPath(config.DefaultPath, false))
	assert.Equal(t, "other.yaml", configPath("other.yaml", true))
}
