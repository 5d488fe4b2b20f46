// Package config provides configuration loading and management for goalpath.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes environment overrides, e.g. GOALPATH_WEB_ADDR.
const EnvPrefix = "GOALPATH"

// DefaultPath is the config file looked up when none is given.
var DefaultPath = filepath.Join(".goalpath", "config.yaml")

// Config is the root configuration.
type Config struct {
	UserID        string        `json:"user_id"       mapstructure:"user_id"`
	Database      Database      `json:"database"      mapstructure:"database"`
	Web           Web           `json:"web"           mapstructure:"web"`
	Notifications Notifications `json:"notifications" mapstructure:"notifications"`
	Log           Log           `json:"log"           mapstructure:"log"`
}

// Database locates the SQLite file.
type Database struct {
	Path string `json:"path" mapstructure:"path"`
}

// Web configures the HTTP server.
type Web struct {
	Addr string `json:"addr" mapstructure:"addr"`
}

// Notifications configures completion event delivery.
type Notifications struct {
	InboxSize int `json:"inbox_size" mapstructure:"inbox_size"`
}

// Log configures the global logger.
type Log struct {
	Debug  bool   `json:"debug"  mapstructure:"debug"`
	Format string `json:"format" mapstructure:"format"`
}

// Defaults returns the configuration used when nothing is set.
func Defaults() Config {
	return Config{
		UserID:        "local",
		Database:      Database{Path: filepath.Join(".goalpath", "goalpath.db")},
		Web:           Web{Addr: ":8080"},
		Notifications: Notifications{InboxSize: 32},
		Log:           Log{Format: "console"},
	}
}

// Settings returns the configuration as a generic map keyed like the file.
func (c Config) Settings() (map[string]any, error) {
	data, err := json.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return out, nil
}

// Load reads path (optional when missing and optional is true), applies
// GOALPATH_* environment overrides on top of defaults and validates the result.
func Load(path string, optional bool) (Config, error) {
	v := viper.New()
	setDefaults(v, Defaults())
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			if !optional || !errors.Is(err, fs.ErrNotExist) {
				return Config{}, fmt.Errorf("read config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, func(dc *mapstructure.DecoderConfig) {
		dc.ErrorUnused = true
	}); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	settings, err := cfg.Settings()
	if err != nil {
		return Config{}, err
	}
	if err := ValidateSettings(settings); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper, d Config) {
	v.SetDefault("user_id", d.UserID)
	v.SetDefault("database.path", d.Database.Path)
	v.SetDefault("web.addr", d.Web.Addr)
	v.SetDefault("notifications.inbox_size", d.Notifications.InboxSize)
	v.SetDefault("log.debug", d.Log.Debug)
	v.SetDefault("log.format", d.Log.Format)
}
