// Package config handles configuration loading, validation, and persistence
// for the Crossfire client.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog/log"
)

const (
	DefaultConfigDir  = "config"
	DefaultConfigFile = "config.json"
	DefaultServerPort = 13327
	DefaultAPIPort    = 5080
)

// Config is the root configuration structure of the client.
type Config struct {
	mu   sync.RWMutex
	path string

	Server          ServerConfig    `json:"server"`
	Client          ClientConfig    `json:"client"`
	ApplicationData ApplicationData `json:"application_data"`
}

// ServerConfig selects the game server and the account to play.
type ServerConfig struct {
	Host string `json:"host"`
	Port int    `json:"port"`

	AccountLogin    string `json:"account_login"`
	AccountPassword string `json:"account_password"`
	Character       string `json:"character"`

	// StrictCommands ends the connection on an unrecognized command instead
	// of dropping the frame.
	StrictCommands bool `json:"strict_commands"`

	DialTimeoutSec  int `json:"dial_timeout_sec"`
	WriteTimeoutSec int `json:"write_timeout_sec"`
}

// ClientConfig holds the protocol parameters the client negotiates.
type ClientConfig struct {
	ClientName string `json:"client_name"`

	MapWidth       int `json:"map_width"`
	MapHeight      int `json:"map_height"`
	NumLookObjects int `json:"num_look_objects"`

	// NcomSequenceModulus is the wrap of the ncom packet counter.
	NcomSequenceModulus  int `json:"ncom_sequence_modulus"`
	MaxNegotiationRounds int `json:"max_negotiation_rounds"`

	FaceCacheSize int `json:"face_cache_size"`
}

// ApplicationData contains settings of the supporting services.
type ApplicationData struct {
	Timers  TimerConfig   `json:"timers"`
	Capture CaptureConfig `json:"capture"`
	API     APIConfig     `json:"api"`
	MQTT    MQTTConfig    `json:"mqtt"`
	Logging LoggingConfig `json:"logging"`
}

// TimerConfig holds watchdog and task interval settings.
type TimerConfig struct {
	HealthCheckInterval   int `json:"health_check_interval_sec"`
	IdleWarn              int `json:"idle_warn_sec"`
	NegotiationWarn       int `json:"negotiation_warn_sec"`
	StatsSnapshotInterval int `json:"stats_snapshot_interval_sec"`
	CapturePruneInterval  int `json:"capture_prune_interval_sec"`
}

// CaptureConfig holds packet capture settings.
type CaptureConfig struct {
	Enabled        bool   `json:"enabled"`
	DatabasePath   string `json:"database_path"`
	RetentionHours int    `json:"retention_hours"`
	MaxArgBytes    int    `json:"max_arg_bytes"`
}

// APIConfig holds debug API settings.
type APIConfig struct {
	Enabled        bool     `json:"enabled"`
	Listen         string   `json:"listen"`
	Port           int      `json:"port"`
	AllowedOrigins []string `json:"allowed_origins"`
	AllowSend      bool     `json:"allow_send"`
}

// MQTTConfig holds MQTT telemetry settings.
type MQTTConfig struct {
	Enabled     bool   `json:"enabled"`
	BrokerURL   string `json:"broker_url"`
	Port        int    `json:"port"`
	UseTLS      bool   `json:"use_tls"`
	ClientID    string `json:"client_id"`
	TopicPrefix string `json:"topic_prefix"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level      string `json:"level"`
	Directory  string `json:"directory"`
	MaxSizeMB  int    `json:"max_size_mb"`
	MaxBackups int    `json:"max_backups"`
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "localhost",
			Port:            DefaultServerPort,
			DialTimeoutSec:  10,
			WriteTimeoutSec: 10,
		},
		Client: ClientConfig{
			ClientName:           "cfclient-go",
			MapWidth:             17,
			MapHeight:            13,
			NumLookObjects:       50,
			NcomSequenceModulus:  256,
			MaxNegotiationRounds: 16,
			FaceCacheSize:        4096,
		},
		ApplicationData: ApplicationData{
			Timers: TimerConfig{
				HealthCheckInterval:   15,
				IdleWarn:              120,
				NegotiationWarn:       30,
				StatsSnapshotInterval: 60,
				CapturePruneInterval:  900,
			},
			Capture: CaptureConfig{
				Enabled:        false,
				DatabasePath:   "data/capture.db",
				RetentionHours: 24,
				MaxArgBytes:    4096,
			},
			API: APIConfig{
				Enabled:        true,
				Listen:         "127.0.0.1",
				Port:           DefaultAPIPort,
				AllowedOrigins: []string{"http://localhost:3000"},
			},
			MQTT: MQTTConfig{
				Enabled:     false,
				BrokerURL:   "localhost",
				Port:        1883,
				TopicPrefix: "cfclient",
			},
			Logging: LoggingConfig{
				Level:      "info",
				Directory:  "logs",
				MaxSizeMB:  10,
				MaxBackups: 5,
			},
		},
	}
}

// Load reads configuration from a JSON file.
func Load(configDir string) (*Config, error) {
	configPath := filepath.Join(configDir, DefaultConfigFile)

	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			log.Info().Str("path", configPath).Msg("config file not found, creating default")
			cfg := DefaultConfig()
			cfg.path = configPath
			if saveErr := cfg.Save(); saveErr != nil {
				return nil, fmt.Errorf("failed to save default config: %w", saveErr)
			}
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
	}

	cfg := DefaultConfig() // Start with defaults, then overlay
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", configPath, err)
	}

	cfg.path = configPath
	log.Info().Str("path", configPath).Msg("configuration loaded")

	// Re-save so that options added since the file was written show up in it.
	if saveErr := cfg.Save(); saveErr != nil {
		log.Warn().Err(saveErr).Msg("failed to re-save config with updated defaults")
	}

	return cfg, nil
}

// Save writes the current configuration to disk.
func (c *Config) Save() error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	dir := filepath.Dir(c.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	// The file holds the account password.
	if err := os.WriteFile(c.path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	log.Debug().Str("path", c.path).Msg("configuration saved")
	return nil
}

// GetServer returns a copy of the server configuration.
func (c *Config) GetServer() ServerConfig {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.Server
}

// SetServer updates the server configuration.
func (c *Config) SetServer(s ServerConfig) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Server = s
}

// GetClient returns a copy of the client configuration.
func (c *Config) GetClient() ClientConfig {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.Client
}

// SetClient updates the client configuration.
func (c *Config) SetClient(cl ClientConfig) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Client = cl
}

// GetApplicationData returns a copy of the application data configuration.
func (c *Config) GetApplicationData() ApplicationData {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.ApplicationData
}

// SetApplicationData updates the application data configuration.
func (c *Config) SetApplicationData(data ApplicationData) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ApplicationData = data
}

// UpdateClientField updates a single client option by its JSON name.
func (c *Config) UpdateClientField(key string, value interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	data, _ := json.Marshal(c.Client)
	m := make(map[string]interface{})
	json.Unmarshal(data, &m)

	if _, ok := m[key]; !ok {
		return fmt.Errorf("unknown client option %s", key)
	}
	m[key] = value

	updated, _ := json.Marshal(m)
	var cl ClientConfig
	if err := json.Unmarshal(updated, &cl); err != nil {
		return fmt.Errorf("failed to update field %s: %w", key, err)
	}
	c.Client = cl

	return nil
}

// Path returns the config file path.
func (c *Config) Path() string {
	return c.path
}

// IsFirstRun returns true if the configuration needs initial setup.
func (c *Config) IsFirstRun() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.Server.Host == "" || c.Server.Port == 0
}
