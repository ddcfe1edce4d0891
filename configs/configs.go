package configs

import (
	"io"
	"os"
	"time"

	"github.com/pelletier/go-toml"
)

// Because we don't need viper's mess for just storing configuration from
// a source.
type config struct {
	Main    configMain    `toml:"main"`
	Server  configServer  `toml:"server"`
	Images  configImages  `toml:"images"`
	Filters configFilters `toml:"filters"`
}

type configMain struct {
	LogLevel string `toml:"log_level"`
	DevMode  bool   `toml:"dev_mode"`
}

type configServer struct {
	Host       string `toml:"host"`
	Port       int    `toml:"port"`
	SessionTTL int    `toml:"session_ttl" comment:"idle session lifetime, in seconds"`
	MaxUpload  int64  `toml:"max_upload" comment:"maximum upload size, in bytes"`
}

type configImages struct {
	MaxPixels     int    `toml:"max_pixels"`
	Format        string `toml:"format"`
	Quality       int    `toml:"quality"`
	ThumbnailSize int    `toml:"thumbnail_size"`
}

type configFilters struct {
	Default   string  `toml:"default"`
	Intensity float64 `toml:"intensity"`
}

// SessionTTLDuration returns the idle session lifetime.
func (c configServer) SessionTTLDuration() time.Duration {
	return time.Duration(c.SessionTTL) * time.Second
}

// Config holds the configuration data from configuration files
// or flags.
//
// This variable sets some default values that might be overwritten
// by a configuration file.
var Config = Defaults()

// Defaults returns the default configuration.
func Defaults() config {
	return config{
		Main: configMain{
			LogLevel: "info",
			DevMode:  false,
		},
		Server: configServer{
			Host:       "127.0.0.1",
			Port:       5000,
			SessionTTL: 1800,
			MaxUpload:  32 << 20,
		},
		Images: configImages{
			MaxPixels:     30000000,
			Format:        "jpeg",
			Quality:       85,
			ThumbnailSize: 256,
		},
		Filters: configFilters{
			Default:   "sepiaTone",
			Intensity: 0.5,
		},
	}
}

// LoadConfiguration loads the configuration file.
func LoadConfiguration(configPath string) error {
	if configPath == "" {
		return nil
	}

	fd, err := os.Open(configPath)
	if err != nil {
		return err
	}
	defer fd.Close()

	dec := toml.NewDecoder(fd)
	if err := dec.Decode(&Config); err != nil {
		return err
	}

	return nil
}

// Encode writes the configuration as TOML.
func Encode(w io.Writer) error {
	enc := toml.NewEncoder(w).
		ArraysWithOneElementPerLine(true).
		Indentation("  ").
		Order(toml.OrderPreserve)

	return enc.Encode(Config)
}

// WriteConfig writes configuration to a file.
func WriteConfig(filename string) error {
	fd, err := os.OpenFile(filename, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}

	if err = Encode(fd); err != nil {
		defer fd.Close()
		return err
	}

	return fd.Close()
}
