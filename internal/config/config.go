package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Default configuration values.
const (
	DefaultListen       = ":8080"
	DefaultRoomName     = "family-room"
	DefaultHistoryLimit = 20
)

// DefaultRoles are the two participant identifiers recognized by the
// room when none are configured.
var DefaultRoles = []string{"Вова", "Таня"}

// Config holds the server settings.
type Config struct {
	// Listen is the HTTP listen address.
	Listen string `yaml:"listen"`

	// RoomName is the static name of the single shared room.
	RoomName string `yaml:"room_name"`

	// Roles are the exactly two recognized participant identifiers.
	Roles []string `yaml:"roles"`

	// HistoryLimit is the default number of balance-history entries
	// returned when the client does not ask for a specific count.
	HistoryLimit int `yaml:"history_limit"`

	// PushEndpoint is the notification gateway webhook URL. Empty
	// means notifications are only logged.
	PushEndpoint string `yaml:"push_endpoint"`

	// CORSOrigins lists allowed origins. Empty allows any origin,
	// matching the trust-the-client model of the application.
	CORSOrigins []string `yaml:"cors_origins"`
}

// Load reads and parses a YAML config file. A missing file yields the
// defaults. Environment variables LISTEN_ADDR and PUSH_ENDPOINT
// override the file.
func Load(path string) (Config, error) {
	var cfg Config

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		// Defaults only.
	case err != nil:
		return Config{}, err
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, err
		}
	}

	applyEnv(&cfg)
	ApplyDefaults(&cfg)
	return cfg, Validate(cfg)
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("LISTEN_ADDR"); v != "" {
		cfg.Listen = v
	}
	if v := os.Getenv("PUSH_ENDPOINT"); v != "" {
		cfg.PushEndpoint = v
	}
}

// ApplyDefaults fills in default values when empty.
func ApplyDefaults(cfg *Config) {
	if cfg.Listen == "" {
		cfg.Listen = DefaultListen
	}
	if cfg.RoomName == "" {
		cfg.RoomName = DefaultRoomName
	}
	if len(cfg.Roles) == 0 {
		cfg.Roles = append([]string(nil), DefaultRoles...)
	}
	if cfg.HistoryLimit == 0 {
		cfg.HistoryLimit = DefaultHistoryLimit
	}
}

// Validate performs minimal validation of required fields.
func Validate(cfg Config) error {
	if len(cfg.Roles) != 2 {
		return fmt.Errorf("config: exactly two roles required, got %d", len(cfg.Roles))
	}
	if cfg.Roles[0] == "" || cfg.Roles[1] == "" {
		return fmt.Errorf("config: roles must be non-empty")
	}
	if cfg.Roles[0] == cfg.Roles[1] {
		return fmt.Errorf("config: roles must be distinct")
	}
	if cfg.HistoryLimit < 1 {
		return fmt.Errorf("config: history_limit must be positive")
	}
	return nil
}

// RolePair returns the configured roles as a fixed pair.
func (c Config) RolePair() [2]string {
	return [2]string{c.Roles[0], c.Roles[1]}
}
