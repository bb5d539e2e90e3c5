// Package config loads server settings from the environment.
//
// Every key can be set as TABULA_<KEY> (TABULA_STORE_URI, TABULA_PORT, ...),
// mirroring the deployment contract of the system this replaces: one
// connection string selecting the backing store, one port for the listener.
package config

import (
	"fmt"

	"github.com/spf13/viper"
)

// Config holds the server configuration.
type Config struct {
	// StoreURI selects the backing store: a SQLite file path, or a
	// mongodb:// / mongodb+srv:// connection string.
	StoreURI string
	// Port is the HTTP listen port.
	Port int
	// EditableFields, when non-empty, makes the server enforce the editable
	// whitelist on PUT bodies. Empty (the default) leaves whitelisting to
	// clients, matching the historical contract.
	EditableFields []string
	// AllowedOrigins configures CORS. "*" by default.
	AllowedOrigins []string
	// Debug switches logging to development output.
	Debug bool
}

// Load reads configuration from the environment. List-valued keys are
// whitespace-separated in the environment (TABULA_EDITABLE_FIELDS="Status
// Duration").
func Load() (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("TABULA")
	v.AutomaticEnv()

	v.SetDefault("store_uri", "tabula.db")
	v.SetDefault("port", 5000)
	v.SetDefault("allowed_origins", []string{"*"})

	cfg := &Config{
		StoreURI:       v.GetString("store_uri"),
		Port:           v.GetInt("port"),
		EditableFields: v.GetStringSlice("editable_fields"),
		AllowedOrigins: v.GetStringSlice("allowed_origins"),
		Debug:          v.GetBool("debug"),
	}
	if cfg.Port <= 0 || cfg.Port > 65535 {
		return nil, fmt.Errorf("invalid port %d", cfg.Port)
	}
	return cfg, nil
}
