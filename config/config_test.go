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

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFromFile_YAML(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "trustedge.yaml")

	content := `environment: staging
device:
  id: edge-7
  salt: c2FsdA==
backend:
  type: piv
logging:
  level: debug
  format: text
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, "staging", cfg.Environment)
	assert.Equal(t, "edge-7", cfg.Device.ID)
	assert.Equal(t, "piv", cfg.Backend.Type)
	assert.Equal(t, "debug", cfg.Logging.Level)
	// Transport defaults still get filled in even though the file omits them.
	require.NotNil(t, cfg.Transport)
	assert.Equal(t, int64(1_000_000), cfg.Transport.MaxRecordsPerRun)
}

func TestSaveToFile_RoundTrip(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "out.yaml")

	cfg := &Config{
		Environment: "production",
		Device:      &DeviceConfig{ID: "dev-a", Salt: "s"},
		Backend:     &BackendConfig{Type: "software-hsm", Directory: "/keys"},
	}
	require.NoError(t, SaveToFile(cfg, path))

	loaded, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "production", loaded.Environment)
	assert.Equal(t, "dev-a", loaded.Device.ID)
	assert.Equal(t, "/keys", loaded.Backend.Directory)
}

func TestSaveToFile_JSON(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "out.json")

	cfg := &Config{Environment: "test", Backend: &BackendConfig{Type: "piv"}}
	require.NoError(t, SaveToFile(cfg, path))

	loaded, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "test", loaded.Environment)
	assert.Equal(t, "piv", loaded.Backend.Type)
}

func TestSetDefaults_DeviceConfigNeverNil(t *testing.T) {
	cfg := &Config{}
	setDefaults(cfg)
	require.NotNil(t, cfg.Device)
	assert.Equal(t, "", cfg.Device.ID)
}
