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

	"github.com/spf13/cobra"
)

var listAudioDevicesCmd = &cobra.Command{
	Use:   "list-audio-devices",
	Short: "List capture devices (not implemented: capture is out of scope)",
	Long: `Audio/video capture is out of scope for this toolkit: it encrypts
and authenticates whatever bytes a caller hands it, and has no opinion
on where those bytes came from. This subcommand exists only so a
script invoking the full historical flag surface gets a clear message
instead of "unknown command".`,
	RunE: runListAudioDevices,
}

func init() {
	rootCmd.AddCommand(listAudioDevicesCmd)
}

func runListAudioDevices(cmd *cobra.Command, args []string) error {
	fmt.Fprintln(cmd.OutOrStdout(), "No audio devices: capture is out of scope for this toolkit.")
	return nil
}
