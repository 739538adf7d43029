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

package metrics

import "github.com/prometheus/client_golang/prometheus"

// namespace prefixes every metric registered in this package, e.g.
// trustedge_handshakes_initiated_total.
const namespace = "trustedge"

// Registry is the Prometheus registry every metric in this package is
// registered against; Handler/StartServer serve exactly this set,
// independent of prometheus.DefaultRegisterer so tests can spin up a
// disposable collector.
var Registry = prometheus.NewRegistry()
