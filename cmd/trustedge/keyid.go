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

import "lukechampine.com/blake3"

// defaultKeyID derives a stable 16-byte key id from a human-readable
// label, so the CLI doesn't need a separate --key-id flag for the
// common case of "the one signing key this backend holds".
func defaultKeyID(label string) [16]byte {
	sum := blake3.Sum256([]byte("trustedge.cli.key_id." + label))
	var id [16]byte
	copy(id[:], sum[:16])
	return id
}
