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

package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

var setPassphraseCmd = &cobra.Command{
	Use:   "set-passphrase PASSPHRASE",
	Short: "Store the keyring passphrase used by --use-keyring",
	Long: `A CLI process can't durably export an environment variable into
its parent shell, so set-passphrase writes the passphrase to a
0600 file under the backend directory instead. --use-keyring reads
that same file whenever the passphrase env var named by
backend.passphrase_env is unset.`,
	Args: cobra.ExactArgs(1),
	RunE: runSetPassphrase,
}

func init() {
	rootCmd.AddCommand(setPassphraseCmd)
}

func passphraseFilePath() string {
	return filepath.Join(cfg.Backend.Directory, "passphrase")
}

func runSetPassphrase(cmd *cobra.Command, args []string) error {
	if err := os.MkdirAll(cfg.Backend.Directory, 0o700); err != nil {
		return fmt.Errorf("creating backend directory: %w", err)
	}
	path := passphraseFilePath()
	if err := os.WriteFile(path, []byte(args[0]), 0o600); err != nil {
		return fmt.Errorf("writing passphrase file: %w", err)
	}
	fmt.Printf("Passphrase stored at %s\n", path)
	return nil
}
