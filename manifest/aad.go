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

package manifest

import "encoding/binary"

// AADLen is the fixed width of every record's Additional Authenticated Data.
const AADLen = 32 + 8 + 12 + 32 + 4

// BuildAAD constructs the 88-byte tuple
// header_hash(32) || seq_be(8) || nonce(12) || manifest_hash(32) || chunk_len_be(4).
// It is total and deterministic: any well-typed input produces exactly
// one output, with no partial or fallible path.
func BuildAAD(headerHash [32]byte, seq uint64, nonce [12]byte, manifestHash [32]byte, chunkLen uint32) [AADLen]byte {
	var aad [AADLen]byte
	off := 0
	copy(aad[off:], headerHash[:])
	off += 32
	binary.BigEndian.PutUint64(aad[off:], seq)
	off += 8
	copy(aad[off:], nonce[:])
	off += 12
	copy(aad[off:], manifestHash[:])
	off += 32
	binary.BigEndian.PutUint32(aad[off:], chunkLen)
	return aad
}
