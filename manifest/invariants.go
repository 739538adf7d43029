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

import (
	"encoding/binary"

	"github.com/trustedge-labs/trustedge-go/internal/errs"
)

// CheckRecordInvariants enforces M1-M4 given the observed record and
// manifest, the stream's locked header_hash, and the chunk_size
// ceiling taken from the stream header.
func CheckRecordInvariants(rec Record, m Manifest, lockedHeaderHash [32]byte, keyID [16]byte, noncePrefix [4]byte, chunkSize uint32) error {
	if m.Seq != rec.Seq {
		return errs.Wrap(errs.KindSequenceMismatch, "manifest.seq != record.seq", nil)
	}
	if m.KeyID != keyID {
		return errs.New(errs.KindHeaderMismatch, "manifest.key_id != header.key_id")
	}
	if m.HeaderHash != lockedHeaderHash {
		return errs.ErrHeaderMismatch
	}
	if m.ChunkLen > chunkSize {
		return errs.ErrChunkLenOutOfBounds
	}
	var noncePrefixObserved [4]byte
	copy(noncePrefixObserved[:], rec.Nonce[:4])
	if noncePrefixObserved != noncePrefix {
		return errs.ErrHeaderMismatch
	}
	var seqBE [8]byte
	binary.BigEndian.PutUint64(seqBE[:], rec.Seq)
	for i := 0; i < 8; i++ {
		if rec.Nonce[4+i] != seqBE[i] {
			return errs.New(errs.KindSequenceMismatch, "nonce sequence suffix mismatch")
		}
	}
	return nil
}
