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

package config

import "fmt"

// ValidationIssue is one finding from ValidateConfiguration. Level is
// either "error" (Load fails) or "warning" (Load proceeds).
type ValidationIssue struct {
	Field   string
	Message string
	Level   string
}

// ValidateConfiguration checks a loaded Config for values that would
// make the transport or backend layers misbehave, without requiring a
// live connection or backend to find out.
func ValidateConfiguration(cfg *Config) []ValidationIssue {
	var issues []ValidationIssue

	if cfg.Backend != nil {
		switch cfg.Backend.Type {
		case "software-hsm", "piv":
		default:
			issues = append(issues, ValidationIssue{
				Field:   "backend.type",
				Message: fmt.Sprintf("unknown backend type %q", cfg.Backend.Type),
				Level:   "error",
			})
		}
	}

	if t := cfg.Transport; t != nil {
		if t.ConnectRetries < 0 {
			issues = append(issues, ValidationIssue{
				Field: "transport.connect_retries", Message: "must not be negative", Level: "error",
			})
		}
		if t.MaxChunksPerConn <= 0 {
			issues = append(issues, ValidationIssue{
				Field: "transport.max_chunks_per_conn", Message: "must be positive", Level: "error",
			})
		}
		if t.HandshakeMaxBytes > 8192 {
			issues = append(issues, ValidationIssue{
				Field:   "transport.handshake_max_bytes",
				Message: "exceeds the 8 KiB handshake frame ceiling",
				Level:   "warning",
			})
		}
	}

	if cfg.Logging != nil {
		switch cfg.Logging.Level {
		case "debug", "info", "warn", "error":
		default:
			issues = append(issues, ValidationIssue{
				Field:   "logging.level",
				Message: fmt.Sprintf("unrecognized level %q", cfg.Logging.Level),
				Level:   "warning",
			})
		}
	}

	return issues
}
