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
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad(t *testing.T) {
	cfg, err := Load(LoaderOptions{
		ConfigDir:      ".",
		Environment:    "development",
		SkipValidation: true,
	})
	if err != nil {
		t.Fatalf("Failed to load development config: %v", err)
	}

	if cfg.Environment != "development" {
		t.Errorf("Environment = %q, want %q", cfg.Environment, "development")
	}

	if cfg.Transport == nil || cfg.Transport.SessionTTL != 30*time.Minute {
		t.Error("Transport SessionTTL should have its default value")
	}
}

func TestLoadForEnvironment(t *testing.T) {
	tests := []string{"development", "staging", "production", "local"}

	for _, env := range tests {
		t.Run(env, func(t *testing.T) {
			cfg, err := Load(LoaderOptions{
				ConfigDir:      ".",
				Environment:    env,
				SkipValidation: true,
			})
			if err != nil {
				t.Fatalf("Failed to load %s config: %v", env, err)
			}

			if cfg.Environment != env {
				t.Errorf("Environment = %q, want %q", cfg.Environment, env)
			}
		})
	}
}

func TestLoadWithEnvOverrides(t *testing.T) {
	os.Setenv("TRUSTEDGE_DEVICE_ID", "override-device")
	os.Setenv("TRUSTEDGE_LOG_LEVEL", "debug")
	defer os.Unsetenv("TRUSTEDGE_DEVICE_ID")
	defer os.Unsetenv("TRUSTEDGE_LOG_LEVEL")

	cfg, err := Load(LoaderOptions{
		ConfigDir:      ".",
		Environment:    "development",
		SkipValidation: true,
	})
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Device.ID != "override-device" {
		t.Errorf("Device.ID = %q, want %q", cfg.Device.ID, "override-device")
	}

	if cfg.Logging.Level != "debug" {
		t.Errorf("LogLevel = %q, want %q", cfg.Logging.Level, "debug")
	}
}

func TestLoadWithCustomConfigDir(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "test.yaml")

	testConfig := `
environment: test
logging:
  level: info
  format: json
`
	if err := os.WriteFile(configPath, []byte(testConfig), 0644); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}

	cfg, err := Load(LoaderOptions{
		ConfigDir:      tmpDir,
		Environment:    "test",
		SkipValidation: true,
	})
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}
	if cfg == nil {
		t.Fatal("Config should not be nil")
	}
}

func TestDefaultLoaderOptions(t *testing.T) {
	opts := DefaultLoaderOptions()

	if opts.ConfigDir != "config" {
		t.Errorf("ConfigDir = %q, want %q", opts.ConfigDir, "config")
	}
	if opts.SkipEnvSubstitution {
		t.Error("SkipEnvSubstitution should be false by default")
	}
	if opts.SkipValidation {
		t.Error("SkipValidation should be false by default")
	}
}

func TestConfigDefaults(t *testing.T) {
	cfg := &Config{}
	setDefaults(cfg)

	if cfg.Environment != "development" {
		t.Errorf("Default environment = %q, want %q", cfg.Environment, "development")
	}
	if cfg.Backend.Type != "software-hsm" {
		t.Errorf("Default backend type = %q, want %q", cfg.Backend.Type, "software-hsm")
	}
}

func TestTransportConfigDefaults(t *testing.T) {
	cfg := &Config{
		Transport: &TransportConfig{},
	}
	setDefaults(cfg)

	tr := cfg.Transport
	if tr.ConnectTimeout != 10*time.Second {
		t.Errorf("ConnectTimeout = %v, want %v", tr.ConnectTimeout, 10*time.Second)
	}
	if tr.ConnectRetries != 3 {
		t.Errorf("ConnectRetries = %d, want %d", tr.ConnectRetries, 3)
	}
	if tr.RetryInterval != 2*time.Second {
		t.Errorf("RetryInterval = %v, want %v", tr.RetryInterval, 2*time.Second)
	}
	if tr.ChunkSendTimeout != 30*time.Second {
		t.Errorf("ChunkSendTimeout = %v, want %v", tr.ChunkSendTimeout, 30*time.Second)
	}
	if tr.AckReadTimeout != 10*time.Second {
		t.Errorf("AckReadTimeout = %v, want %v", tr.AckReadTimeout, 10*time.Second)
	}
	if tr.ServerIdleTimeout != 30*time.Second {
		t.Errorf("ServerIdleTimeout = %v, want %v", tr.ServerIdleTimeout, 30*time.Second)
	}
	if tr.MaxChunksPerConn != 10_000 {
		t.Errorf("MaxChunksPerConn = %d, want %d", tr.MaxChunksPerConn, 10_000)
	}
	if tr.MaxBytesPerConn != 1<<30 {
		t.Errorf("MaxBytesPerConn = %d, want %d", tr.MaxBytesPerConn, int64(1<<30))
	}
	if tr.HandshakeMaxBytes != 8192 {
		t.Errorf("HandshakeMaxBytes = %d, want %d", tr.HandshakeMaxBytes, 8192)
	}
	if tr.SessionTTL != 30*time.Minute {
		t.Errorf("SessionTTL = %v, want %v", tr.SessionTTL, 30*time.Minute)
	}
	if tr.MaxRecordsPerRun != 1_000_000 {
		t.Errorf("MaxRecordsPerRun = %d, want %d", tr.MaxRecordsPerRun, 1_000_000)
	}
	if tr.MaxStreamBytes != 10<<30 {
		t.Errorf("MaxStreamBytes = %d, want %d", tr.MaxStreamBytes, int64(10<<30))
	}
}

func TestValidateConfiguration_RejectsUnknownBackend(t *testing.T) {
	cfg := &Config{Backend: &BackendConfig{Type: "quantum-vault"}}
	issues := ValidateConfiguration(cfg)

	found := false
	for _, i := range issues {
		if i.Field == "backend.type" && i.Level == "error" {
			found = true
		}
	}
	if !found {
		t.Error("expected an error-level issue for an unknown backend type")
	}
}
