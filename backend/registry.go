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

package backend

import (
	"sync"

	"github.com/trustedge-labs/trustedge-go/internal/errs"
)

// Factory constructs a Backend instance on demand.
type Factory func() (Backend, error)

var (
	registryMu sync.RWMutex
	factories  = map[string]Factory{}
)

// Register adds a named factory to the process-wide registry. The
// backend packages do not self-register; cmd/trustedge calls Register
// for each backend it wires in at startup.
func Register(name string, f Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	factories[name] = f
}

// Create instantiates the named backend and requires it to report
// BackendInfo().Available == true. Selection is always an explicit
// caller choice; there is no silent fallback to a different backend.
func Create(name string) (Backend, error) {
	registryMu.RLock()
	f, ok := factories[name]
	registryMu.RUnlock()
	if !ok {
		return nil, errs.Wrap(errs.KindKeyNotFound, "no backend registered with name "+name, nil)
	}
	b, err := f()
	if err != nil {
		return nil, err
	}
	if !b.BackendInfo().Available {
		return nil, errs.New(errs.KindHardwareError, "backend "+name+" reports not available")
	}
	return b, nil
}

// Names lists every registered backend name.
func Names() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(factories))
	for name := range factories {
		names = append(names, name)
	}
	return names
}
