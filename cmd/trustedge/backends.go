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
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/trustedge-labs/trustedge-go/backend"
)

var listBackendsCmd = &cobra.Command{
	Use:   "list-backends",
	Short: "List the key backends registered in this process",
	RunE:  runListBackends,
}

func init() {
	rootCmd.AddCommand(listBackendsCmd)
}

func runListBackends(cmd *cobra.Command, args []string) error {
	names := backend.Names()
	if len(names) == 0 {
		fmt.Println("No backends registered")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "NAME\tAVAILABLE\tDERIVATION\n")
	for _, name := range names {
		b, err := backend.Create(name)
		if err != nil {
			fmt.Fprintf(w, "%s\t<error>\t%v\n", name, err)
			continue
		}
		info := b.BackendInfo()
		caps := b.GetCapabilities()
		fmt.Fprintf(w, "%s\t%t\t%t\n", info.Name, info.Available, caps.SupportsDerivation)
	}
	return w.Flush()
}
