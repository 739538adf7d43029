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

package transport

import (
	"time"

	"github.com/trustedge-labs/trustedge-go/internal/errs"
)

// ConnLimits holds the per-connection caps enforced once a session
// reaches the Active state (§5): idle read timeout and hard ceilings
// on chunk count and cumulative bytes.
type ConnLimits struct {
	IdleTimeout time.Duration
	MaxChunks   uint64
	MaxBytes    uint64
}

// DefaultConnLimits matches the spec's defaults: 30s idle, 10^4
// chunks, 1 GiB.
func DefaultConnLimits() ConnLimits {
	return ConnLimits{
		IdleTimeout: 30 * time.Second,
		MaxChunks:   10_000,
		MaxBytes:    1 << 30,
	}
}

// ActivityGuard tracks chunk/byte/idle usage for one Active session
// and rejects further activity once any cap is exceeded.
type ActivityGuard struct {
	limits     ConnLimits
	chunks     uint64
	bytes      uint64
	lastActive time.Time
}

// NewActivityGuard starts a guard with the clock running from now.
func NewActivityGuard(limits ConnLimits) *ActivityGuard {
	return &ActivityGuard{limits: limits, lastActive: time.Now()}
}

// Admit records one chunk of n bytes, returning an error if doing so
// would exceed the configured caps, or if the connection has been
// idle longer than IdleTimeout.
func (g *ActivityGuard) Admit(n int) error {
	now := time.Now()
	if now.Sub(g.lastActive) > g.limits.IdleTimeout {
		return errs.New(errs.KindTimeout, "connection idle timeout exceeded")
	}
	if g.chunks+1 > g.limits.MaxChunks {
		return errs.New(errs.KindLimitExceeded, "connection chunk cap exceeded")
	}
	if g.bytes+uint64(n) > g.limits.MaxBytes {
		return errs.New(errs.KindLimitExceeded, "connection byte cap exceeded")
	}
	g.chunks++
	g.bytes += uint64(n)
	g.lastActive = now
	return nil
}
