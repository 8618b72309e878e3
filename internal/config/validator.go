package config

import (
	"fmt"
	"strings"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("config validation error [%s]: %s", e.Field, e.Message)
}

// ValidationResult holds the results of configuration validation.
type ValidationResult struct {
	Errors   []ValidationError
	Warnings []ValidationError
}

// IsValid returns true if there are no validation errors.
func (r *ValidationResult) IsValid() bool {
	return len(r.Errors) == 0
}

// AddError adds a validation error.
func (r *ValidationResult) AddError(field, message string) {
	r.Errors = append(r.Errors, ValidationError{Field: field, Message: message})
}

// AddWarning adds a validation warning.
func (r *ValidationResult) AddWarning(field, message string) {
	r.Warnings = append(r.Warnings, ValidationError{Field: field, Message: message})
}

// Map size limits accepted by Crossfire servers.
const (
	MinMapSize = 3
	MaxMapSize = 63
)

// Validate performs comprehensive validation of the configuration.
func Validate(cfg *Config) *ValidationResult {
	result := &ValidationResult{}

	validateServer(&cfg.Server, result)
	validateClient(&cfg.Client, result)
	validateApplicationData(&cfg.ApplicationData, result)

	return result
}

func validateServer(s *ServerConfig, result *ValidationResult) {
	if strings.TrimSpace(s.Host) == "" {
		result.AddError("server.host", "server host is required")
	}
	validatePort(s.Port, "server.port", result)

	if s.AccountLogin != "" && s.AccountPassword == "" {
		result.AddWarning("server.account_password", "account login is set without a password")
	}
	if s.Character != "" && s.AccountLogin == "" {
		result.AddWarning("server.character", "a character is selected but no account login is set")
	}

	if s.DialTimeoutSec < 1 {
		result.AddError("server.dial_timeout_sec", "dial timeout must be at least 1 second")
	}
	if s.WriteTimeoutSec < 0 {
		result.AddError("server.write_timeout_sec", "write timeout must not be negative")
	}
}

func validateClient(c *ClientConfig, result *ValidationResult) {
	if strings.TrimSpace(c.ClientName) == "" {
		result.AddError("client.client_name", "client name is required")
	}

	validateMapDimension(c.MapWidth, "client.map_width", result)
	validateMapDimension(c.MapHeight, "client.map_height", result)

	if c.NumLookObjects < 1 || c.NumLookObjects > 255 {
		result.AddError("client.num_look_objects",
			fmt.Sprintf("invalid look object count: %d (must be 1-255)", c.NumLookObjects))
	}

	if c.NcomSequenceModulus != 256 && c.NcomSequenceModulus != 65536 {
		result.AddError("client.ncom_sequence_modulus",
			fmt.Sprintf("invalid sequence modulus: %d (must be 256 or 65536)", c.NcomSequenceModulus))
	}

	if c.MaxNegotiationRounds < 1 {
		result.AddError("client.max_negotiation_rounds", "at least one negotiation round is required")
	} else if c.MaxNegotiationRounds > 64 {
		result.AddWarning("client.max_negotiation_rounds",
			fmt.Sprintf("a cap of %d rounds lets a misbehaving server stall the login", c.MaxNegotiationRounds))
	}

	if c.FaceCacheSize < 1 {
		result.AddWarning("client.face_cache_size", "face cache size not set, the default is used")
	}
}

func validateMapDimension(v int, field string, result *ValidationResult) {
	if v < MinMapSize || v > MaxMapSize {
		result.AddError(field, fmt.Sprintf("invalid map dimension: %d (must be %d-%d)", v, MinMapSize, MaxMapSize))
		return
	}
	if v%2 == 0 {
		result.AddWarning(field, fmt.Sprintf("map dimension %d is even, servers only accept odd sizes", v))
	}
}

func validateApplicationData(data *ApplicationData, result *ValidationResult) {
	validateTimers(&data.Timers, result)

	if data.Capture.Enabled {
		if strings.TrimSpace(data.Capture.DatabasePath) == "" {
			result.AddError("application_data.capture.database_path",
				"capture database path is required when capture is enabled")
		}
		if data.Capture.RetentionHours < 1 {
			result.AddError("application_data.capture.retention_hours",
				"retention hours must be at least 1")
		}
	}

	if data.API.Enabled {
		validatePort(data.API.Port, "application_data.api.port", result)
		if data.API.AllowSend && data.API.Listen != "127.0.0.1" && data.API.Listen != "localhost" {
			result.AddWarning("application_data.api.allow_send",
				"the send endpoint is reachable from other hosts")
		}
	}

	if data.MQTT.Enabled {
		if strings.TrimSpace(data.MQTT.BrokerURL) == "" {
			result.AddError("application_data.mqtt.broker_url", "MQTT broker URL is required when enabled")
		}
		if data.MQTT.Port < 1 || data.MQTT.Port > 65535 {
			result.AddError("application_data.mqtt.port", "invalid MQTT port")
		}
	}
}

func validateTimers(timers *TimerConfig, result *ValidationResult) {
	if timers.HealthCheckInterval < 1 {
		result.AddError("timers.health_check_interval", "health check interval must be at least 1 second")
	}
	if timers.IdleWarn > 0 && timers.IdleWarn < timers.HealthCheckInterval {
		result.AddWarning("timers.idle_warn",
			"idle warning is shorter than the health check interval")
	}
	if timers.StatsSnapshotInterval > 0 && timers.StatsSnapshotInterval < 5 {
		result.AddWarning("timers.stats_snapshot_interval",
			"stats snapshot interval less than 5s may cause excessive traffic")
	}
}

func validatePort(port int, field string, result *ValidationResult) {
	if port < 1 || port > 65535 {
		result.AddError(field, fmt.Sprintf("invalid port number: %d (must be 1-65535)", port))
		return
	}
	if port < 1024 {
		result.AddWarning(field,
			fmt.Sprintf("port %d is a privileged port, may require elevated permissions", port))
	}
}
