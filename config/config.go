// Copyright (C) 2025 trustedge-labs
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.

// SPDX-License-Identifier: LGPL-3.0-or-later

package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
	"lukechampine.com/blake3"
)

// Config is the top-level configuration for a trustedge client or
// server process: device identity, the active key backend, transport
// timeouts/limits, and the usual ambient concerns (logging, metrics,
// health).
type Config struct {
	Environment string           `yaml:"environment" json:"environment"`
	Device      *DeviceConfig    `yaml:"device" json:"device"`
	Backend     *BackendConfig   `yaml:"backend" json:"backend"`
	Transport   *TransportConfig `yaml:"transport" json:"transport"`
	Logging     *LoggingConfig   `yaml:"logging" json:"logging"`
	Metrics     *MetricsConfig   `yaml:"metrics" json:"metrics"`
	Health      *HealthConfig    `yaml:"health" json:"health"`
}

// DeviceConfig carries the device identity bound into every stream
// header's device_id_hash field. Absence is non-fatal: a zero-value
// ID/Salt still produces a deterministic (if unidentifying) hash, per
// the header's documented defaults.
type DeviceConfig struct {
	ID   string `yaml:"id" json:"id"`
	Salt string `yaml:"salt" json:"salt"`
}

// Hash returns BLAKE3(id ∥ salt), the value bound into a stream
// header's device_id_hash field (§3.1). A zero-value DeviceConfig
// still yields a well-defined 32-byte hash.
func (d DeviceConfig) Hash() [32]byte {
	return blake3.Sum256([]byte(d.ID + d.Salt))
}

// BackendConfig selects and configures the active key backend.
type BackendConfig struct {
	Type          string `yaml:"type" json:"type"` // software-hsm, piv
	Directory     string `yaml:"directory" json:"directory"`
	PassphraseEnv string `yaml:"passphrase_env" json:"passphrase_env"`
}

// TransportConfig holds the cancellation/timeout and resource-cap
// defaults for the session client and server.
type TransportConfig struct {
	ConnectTimeout    time.Duration `yaml:"connect_timeout" json:"connect_timeout"`
	ConnectRetries    int           `yaml:"connect_retries" json:"connect_retries"`
	RetryInterval     time.Duration `yaml:"retry_interval" json:"retry_interval"`
	ChunkSendTimeout  time.Duration `yaml:"chunk_send_timeout" json:"chunk_send_timeout"`
	AckReadTimeout    time.Duration `yaml:"ack_read_timeout" json:"ack_read_timeout"`
	ServerIdleTimeout time.Duration `yaml:"server_idle_timeout" json:"server_idle_timeout"`
	MaxChunksPerConn  int           `yaml:"max_chunks_per_conn" json:"max_chunks_per_conn"`
	MaxBytesPerConn   int64         `yaml:"max_bytes_per_conn" json:"max_bytes_per_conn"`
	HandshakeMaxBytes int           `yaml:"handshake_max_bytes" json:"handshake_max_bytes"`
	SessionTTL        time.Duration `yaml:"session_ttl" json:"session_ttl"`
	MaxRecordsPerRun  int64         `yaml:"max_records_per_stream" json:"max_records_per_stream"`
	MaxStreamBytes    int64         `yaml:"max_stream_size_bytes" json:"max_stream_size_bytes"`
}

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	Level    string `yaml:"level" json:"level"`
	Format   string `yaml:"format" json:"format"`
	Output   string `yaml:"output" json:"output"`
	FilePath string `yaml:"file_path" json:"file_path"`
}

// MetricsConfig represents metrics configuration
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	Port    int    `yaml:"port" json:"port"`
	Path    string `yaml:"path" json:"path"`
}

// HealthConfig represents health check configuration
type HealthConfig struct {
	Enabled bool     `yaml:"enabled" json:"enabled"`
	Port    int      `yaml:"port" json:"port"`
	Path    string   `yaml:"path" json:"path"`
	Checks  []string `yaml:"checks" json:"checks"`
}

// LoadFromFile loads configuration from a file
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := &Config{}

	// Try to parse as YAML first
	if err := yaml.Unmarshal(data, cfg); err != nil {
		// Try JSON if YAML fails
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file (tried YAML and JSON): %w", err)
		}
	}

	// Set defaults
	setDefaults(cfg)

	return cfg, nil
}

// SaveToFile saves configuration to a file
func SaveToFile(cfg *Config, path string) error {
	// Determine format by extension
	var data []byte
	var err error

	if len(path) > 5 && path[len(path)-5:] == ".json" {
		data, err = json.MarshalIndent(cfg, "", "  ")
	} else {
		data, err = yaml.Marshal(cfg)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// setDefaults sets default values for configuration, matching the
// cancellation/timeout and resource-cap defaults.
func setDefaults(cfg *Config) {
	if cfg.Environment == "" {
		cfg.Environment = "development"
	}

	if cfg.Device == nil {
		cfg.Device = &DeviceConfig{}
	}

	if cfg.Backend == nil {
		cfg.Backend = &BackendConfig{}
	}
	if cfg.Backend.Type == "" {
		cfg.Backend.Type = "software-hsm"
	}
	if cfg.Backend.Directory == "" {
		cfg.Backend.Directory = ".trustedge/keys"
	}

	if cfg.Transport == nil {
		cfg.Transport = &TransportConfig{}
	}
	t := cfg.Transport
	if t.ConnectTimeout == 0 {
		t.ConnectTimeout = 10 * time.Second
	}
	if t.ConnectRetries == 0 {
		t.ConnectRetries = 3
	}
	if t.RetryInterval == 0 {
		t.RetryInterval = 2 * time.Second
	}
	if t.ChunkSendTimeout == 0 {
		t.ChunkSendTimeout = 30 * time.Second
	}
	if t.AckReadTimeout == 0 {
		t.AckReadTimeout = 10 * time.Second
	}
	if t.ServerIdleTimeout == 0 {
		t.ServerIdleTimeout = 30 * time.Second
	}
	if t.MaxChunksPerConn == 0 {
		t.MaxChunksPerConn = 10_000
	}
	if t.MaxBytesPerConn == 0 {
		t.MaxBytesPerConn = 1 << 30 // 1 GiB
	}
	if t.HandshakeMaxBytes == 0 {
		t.HandshakeMaxBytes = 8192
	}
	if t.SessionTTL == 0 {
		t.SessionTTL = 30 * time.Minute
	}
	if t.MaxRecordsPerRun == 0 {
		t.MaxRecordsPerRun = 1_000_000
	}
	if t.MaxStreamBytes == 0 {
		t.MaxStreamBytes = 10 << 30 // 10 GiB
	}

	if cfg.Logging != nil {
		if cfg.Logging.Level == "" {
			cfg.Logging.Level = "info"
		}
		if cfg.Logging.Format == "" {
			cfg.Logging.Format = "json"
		}
		if cfg.Logging.Output == "" {
			cfg.Logging.Output = "stdout"
		}
	}
}
