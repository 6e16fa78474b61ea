package config

import (
	"encoding/json"
	"fmt"
	"os"
)

// Config represents the service configuration
type Config struct {
	Port          int      `json:"port"`
	Host          string   `json:"host"`
	LogLevel      string   `json:"logLevel"`
	SigningSecret string   `json:"signingSecret"`
	GeoEndpoint   string   `json:"geoEndpoint"`
	GeoDatabase   string   `json:"geoDatabase"`
	Datadir       string   `json:"datadir"`
	CORSOrigins   []string `json:"corsOrigins"`
}

// Default returns the built-in defaults. The signing secret has no
// default; the server refuses to start without one.
func Default() *Config {
	return &Config{
		Port:     3550,
		Host:     "localhost",
		LogLevel: "info",
	}
}

// Load loads configuration from a file, over the defaults.
func Load(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	config := Default()
	if err := json.NewDecoder(file).Decode(config); err != nil {
		return nil, fmt.Errorf("failed to decode config file: %w", err)
	}

	return config, nil
}

// Sanitized returns the config for the /config endpoint, without the
// signing secret.
func (c *Config) Sanitized() map[string]interface{} {
	return map[string]interface{}{
		"port":        c.Port,
		"host":        c.Host,
		"logLevel":    c.LogLevel,
		"geoEndpoint": c.GeoEndpoint,
		"geoDatabase": c.GeoDatabase,
		"datadir":     c.Datadir,
		"corsOrigins": c.CORSOrigins,
	}
}
