// TrustEdge
// Copyright (C) 2025 TrustEdge-Labs
//
// This file is part of TrustEdge.
//
// TrustEdge is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// TrustEdge is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with TrustEdge. If not, see <https://www.gnu.org/licenses/>.

// Command trustedge is the canonical CLI surface over the core
// chunked-stream, sealed-envelope, and key-backend packages: encrypt,
// decrypt, inspect, list-backends, list-audio-devices, set-passphrase.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/trustedge-labs/trustedge-go/backend"
	"github.com/trustedge-labs/trustedge-go/backend/softwarehsm"
	"github.com/trustedge-labs/trustedge-go/config"
	"github.com/trustedge-labs/trustedge-go/internal/logger"
)

var (
	configPath string
	backendDir string
	cfg        *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "trustedge",
	Short: "TrustEdge CLI - chunked authenticated encryption and key management",
	Long: `trustedge drives the core chunked-stream and sealed-envelope
constructs: authenticated encryption with algorithm-agile framing,
signed per-record manifests, and pluggable key backends (software HSM,
hardware PIV).`,
	SilenceUsage:      true,
	PersistentPreRunE: loadConfiguration,
}

func main() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to a YAML/JSON config file (optional)")
	rootCmd.PersistentFlags().StringVar(&backendDir, "backend-dir", "", "Software HSM directory (overrides config/backend.directory)")
}

// loadConfiguration loads process configuration once, before any
// subcommand runs, and wires the key backends named in it into the
// process-wide backend registry.
func loadConfiguration(cmd *cobra.Command, args []string) error {
	_ = config.LoadDotEnv(".env")

	var loaded *config.Config
	var err error
	if configPath != "" {
		loaded, err = config.LoadFromFile(configPath)
	} else {
		loaded, err = config.Load()
	}
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	config.SubstituteEnvVarsInConfig(loaded)
	if backendDir != "" {
		loaded.Backend.Directory = backendDir
	}
	cfg = loaded

	logLevel := "info"
	if cfg.Logging != nil {
		logLevel = cfg.Logging.Level
	}
	logger.SetDefaultLogger(logger.NewLogger(os.Stderr, parseLevel(logLevel)))

	softwarehsm.RegisterWithDir(cfg.Backend.Directory)
	registerPIV()
	return nil
}

func parseLevel(s string) logger.Level {
	switch s {
	case "debug":
		return logger.DebugLevel
	case "warn":
		return logger.WarnLevel
	case "error":
		return logger.ErrorLevel
	default:
		return logger.InfoLevel
	}
}

// resolveBackend instantiates the named key backend, falling back to
// the configured default when name is empty.
func resolveBackend(name string) (backend.Backend, error) {
	if name == "" {
		name = cfg.Backend.Type
	}
	return backend.Create(name)
}
