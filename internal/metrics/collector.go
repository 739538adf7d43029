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

import (
	"sync"
	"time"
)

// MetricsCollector collects in-process metrics for crypto and backend
// operations, independent of the Prometheus registry used elsewhere
// in this package — useful for callers (CLI subcommands, tests) that
// want a quick in-memory snapshot without scraping /metrics.
type MetricsCollector struct {
	mu sync.RWMutex

	// Counters
	SignatureCount     int64
	VerificationCount  int64
	SuccessfulVerifies int64
	FailedVerifies     int64
	BackendOperations  int64
	CacheHits          int64
	CacheMisses        int64
	HardwareCalls      int64
	HardwareErrors     int64

	// Timing metrics (in microseconds)
	SignatureTimes        []int64
	VerificationTimes     []int64
	HardwareLatencies     []int64
	BackendOperationTimes []int64

	// Start time for uptime calculation
	startTime time.Time

	// Configuration
	maxTimingSamples int
}

// NewMetricsCollector creates a new metrics collector
func NewMetricsCollector() *MetricsCollector {
	return &MetricsCollector{
		startTime:        time.Now(),
		maxTimingSamples: 1000, // Keep last 1000 samples for each timing metric
	}
}

// RecordSignature records a signature operation
func (mc *MetricsCollector) RecordSignature(duration time.Duration) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	mc.SignatureCount++
	mc.recordTiming(&mc.SignatureTimes, duration)
}

// RecordVerification records a verification operation
func (mc *MetricsCollector) RecordVerification(success bool, duration time.Duration) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	mc.VerificationCount++
	if success {
		mc.SuccessfulVerifies++
	} else {
		mc.FailedVerifies++
	}
	mc.recordTiming(&mc.VerificationTimes, duration)
}

// RecordBackendOperation records a key-backend lookup (ListKeys,
// GetPublicKey, metadata reads), distinguishing a cached answer (e.g.
// the software-HSM metadata index already in memory) from one that
// required touching the backing store or hardware.
func (mc *MetricsCollector) RecordBackendOperation(cached bool, duration time.Duration) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	mc.BackendOperations++
	if cached {
		mc.CacheHits++
	} else {
		mc.CacheMisses++
	}
	mc.recordTiming(&mc.BackendOperationTimes, duration)
}

// RecordHardwareCall records a call into the PIV/hardware token
// (Sign, GetPublicKey, SelfSignedCertificate).
func (mc *MetricsCollector) RecordHardwareCall(success bool, duration time.Duration) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	mc.HardwareCalls++
	if !success {
		mc.HardwareErrors++
	}
	mc.recordTiming(&mc.HardwareLatencies, duration)
}

// recordTiming records a timing sample
func (mc *MetricsCollector) recordTiming(timings *[]int64, duration time.Duration) {
	microseconds := duration.Microseconds()
	*timings = append(*timings, microseconds)

	// Keep only last N samples
	if len(*timings) > mc.maxTimingSamples {
		*timings = (*timings)[len(*timings)-mc.maxTimingSamples:]
	}
}

// GetSnapshot returns a snapshot of current metrics
func (mc *MetricsCollector) GetSnapshot() *MetricsSnapshot {
	mc.mu.RLock()
	defer mc.mu.RUnlock()

	return &MetricsSnapshot{
		Timestamp:               time.Now(),
		Uptime:                  time.Since(mc.startTime),
		SignatureCount:          mc.SignatureCount,
		VerificationCount:       mc.VerificationCount,
		SuccessfulVerifies:      mc.SuccessfulVerifies,
		FailedVerifies:          mc.FailedVerifies,
		BackendOperations:       mc.BackendOperations,
		CacheHits:               mc.CacheHits,
		CacheMisses:             mc.CacheMisses,
		HardwareCalls:           mc.HardwareCalls,
		HardwareErrors:          mc.HardwareErrors,
		AvgSignatureTime:        calculateAverage(mc.SignatureTimes),
		AvgVerificationTime:     calculateAverage(mc.VerificationTimes),
		AvgHardwareTime:         calculateAverage(mc.HardwareLatencies),
		AvgBackendOperationTime: calculateAverage(mc.BackendOperationTimes),
		P95SignatureTime:        calculatePercentile(mc.SignatureTimes, 95),
		P95VerificationTime:     calculatePercentile(mc.VerificationTimes, 95),
		P95HardwareTime:         calculatePercentile(mc.HardwareLatencies, 95),
		P95BackendOperationTime: calculatePercentile(mc.BackendOperationTimes, 95),
	}
}

// Reset resets all metrics
func (mc *MetricsCollector) Reset() {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	mc.SignatureCount = 0
	mc.VerificationCount = 0
	mc.SuccessfulVerifies = 0
	mc.FailedVerifies = 0
	mc.BackendOperations = 0
	mc.CacheHits = 0
	mc.CacheMisses = 0
	mc.HardwareCalls = 0
	mc.HardwareErrors = 0

	mc.SignatureTimes = nil
	mc.VerificationTimes = nil
	mc.HardwareLatencies = nil
	mc.BackendOperationTimes = nil

	mc.startTime = time.Now()
}

// MetricsSnapshot represents a point-in-time snapshot of metrics
type MetricsSnapshot struct {
	Timestamp time.Time
	Uptime    time.Duration

	// Counters
	SignatureCount     int64
	VerificationCount  int64
	SuccessfulVerifies int64
	FailedVerifies     int64
	BackendOperations  int64
	CacheHits          int64
	CacheMisses        int64
	HardwareCalls      int64
	HardwareErrors     int64

	// Timing averages (microseconds)
	AvgSignatureTime        float64
	AvgVerificationTime     float64
	AvgHardwareTime         float64
	AvgBackendOperationTime float64

	// 95th percentile timings (microseconds)
	P95SignatureTime        int64
	P95VerificationTime     int64
	P95HardwareTime         int64
	P95BackendOperationTime int64
}

// GetCacheHitRate returns the cache hit rate as a percentage
func (ms *MetricsSnapshot) GetCacheHitRate() float64 {
	total := ms.CacheHits + ms.CacheMisses
	if total == 0 {
		return 0
	}
	return float64(ms.CacheHits) / float64(total) * 100
}

// GetVerificationSuccessRate returns the verification success rate as a percentage
func (ms *MetricsSnapshot) GetVerificationSuccessRate() float64 {
	if ms.VerificationCount == 0 {
		return 0
	}
	return float64(ms.SuccessfulVerifies) / float64(ms.VerificationCount) * 100
}

// GetHardwareErrorRate returns the hardware-token call error rate as a percentage
func (ms *MetricsSnapshot) GetHardwareErrorRate() float64 {
	if ms.HardwareCalls == 0 {
		return 0
	}
	return float64(ms.HardwareErrors) / float64(ms.HardwareCalls) * 100
}

// Helper functions

func calculateAverage(values []int64) float64 {
	if len(values) == 0 {
		return 0
	}

	var sum int64
	for _, v := range values {
		sum += v
	}
	return float64(sum) / float64(len(values))
}

func calculatePercentile(values []int64, percentile int) int64 {
	if len(values) == 0 {
		return 0
	}

	// Simple implementation - for production, use a proper percentile algorithm
	// This is an approximation
	index := len(values) * percentile / 100
	if index >= len(values) {
		index = len(values) - 1
	}

	// Create a copy and sort (simple bubble sort for small datasets)
	sorted := make([]int64, len(values))
	copy(sorted, values)

	for i := 0; i < len(sorted)-1; i++ {
		for j := 0; j < len(sorted)-i-1; j++ {
			if sorted[j] > sorted[j+1] {
				sorted[j], sorted[j+1] = sorted[j+1], sorted[j]
			}
		}
	}

	return sorted[index]
}

// Global metrics collector instance
var globalCollector = NewMetricsCollector()

// GetGlobalCollector returns the global metrics collector
func GetGlobalCollector() *MetricsCollector {
	return globalCollector
}
