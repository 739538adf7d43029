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
	"os"
	"strconv"

	"github.com/trustedge-labs/trustedge-go/backend"
	"github.com/trustedge-labs/trustedge-go/backend/piv"
)

// registerPIV wires a "piv" factory into the backend registry. The
// token isn't opened until the factory runs (at backend.Create time),
// so this is safe to register unconditionally; BackendInfo().Available
// reports false with no card present and backend.Create rejects it.
func registerPIV() {
	backend.Register("piv", func() (backend.Backend, error) {
		maxRetries := 3
		if v := os.Getenv("TRUSTEDGE_PIV_MAX_RETRIES"); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				maxRetries = n
			}
		}
		return piv.New(piv.Config{
			Card:       os.Getenv("TRUSTEDGE_PIV_CARD"),
			PIN:        os.Getenv("TRUSTEDGE_PIV_PIN"),
			MaxRetries: maxRetries,
			Slots:      pivSlotsFromEnv(),
		}), nil
	})
}

// pivSlotsFromEnv maps the key id the CLI derives for the "piv" backend
// (defaultKeyID("piv"), see keyid.go) onto the PIV authentication slot;
// a single-slot mapping is all the CLI's one-signing-key model needs.
func pivSlotsFromEnv() map[[16]byte]piv.SlotID {
	return map[[16]byte]piv.SlotID{
		defaultKeyID("piv"): piv.SlotAuthentication,
	}
}
