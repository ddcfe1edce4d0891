package configs

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfiguration(t *testing.T) {
	defer func() {
		Config = Defaults()
	}()

	t.Run("defaults", func(t *testing.T) {
		Config = Defaults()
		require.NoError(t, LoadConfiguration(""))
		assert.Equal(t, "sepiaTone", Config.Filters.Default)
		assert.Equal(t, 0.5, Config.Filters.Intensity)
		assert.Equal(t, 30*time.Minute, Config.Server.SessionTTLDuration())
	})

	t.Run("load", func(t *testing.T) {
		Config = Defaults()
		name := filepath.Join(t.TempDir(), "config.toml")
		require.NoError(t, os.WriteFile(name, []byte(`
[main]
log_level = "debug"

[server]
port = 8080
session_ttl = 60

[filters]
default = "vignette"
intensity = 0.25
`), 0600))

		require.NoError(t, LoadConfiguration(name))
		assert.Equal(t, "debug", Config.Main.LogLevel)
		assert.Equal(t, 8080, Config.Server.Port)
		assert.Equal(t, time.Minute, Config.Server.SessionTTLDuration())
		assert.Equal(t, "vignette", Config.Filters.Default)
		assert.Equal(t, 0.25, Config.Filters.Intensity)

		// Untouched values keep their defaults
		assert.Equal(t, "127.0.0.1", Config.Server.Host)
		assert.Equal(t, 85, Config.Images.Quality)
	})

	t.Run("errors", func(t *testing.T) {
		Config = Defaults()
		assert.Error(t, LoadConfiguration(filepath.Join(t.TempDir(), "nope.toml")))

		name := filepath.Join(t.TempDir(), "bad.toml")
		require.NoError(t, os.WriteFile(name, []byte("[main\nlog_level="), 0600))
		assert.Error(t, LoadConfiguration(name))
	})

	t.Run("write", func(t *testing.T) {
		Config = Defaults()
		Config.Images.Format = "png"
		Config.Filters.Intensity = 0.75

		b := &bytes.Buffer{}
		require.NoError(t, Encode(b))
		assert.Contains(t, b.String(), "[filters]")
		assert.Contains(t, b.String(), `format = "png"`)

		name := filepath.Join(t.TempDir(), "config.toml")
		require.NoError(t, WriteConfig(name))

		Config = Defaults()
		require.NoError(t, LoadConfiguration(name))
		assert.Equal(t, "png", Config.Images.Format)
		assert.Equal(t, 0.75, Config.Filters.Intensity)
	})
}
