// Package utils provides logging, rate limiting, worker pool and text helpers
// shared by the tour scraping service.
package utils

import (
	"sync"
	"time"
)

// PerformanceSnapshot is a point-in-time copy of PerformanceMetrics
type PerformanceSnapshot struct {
	TotalOperations   int64         `json:"total_operations"`
	SuccessfulOps     int64         `json:"successful_operations"`
	FailedOps         int64         `json:"failed_operations"`
	AverageLatency    time.Duration `json:"average_latency"`
	MinLatency        time.Duration `json:"min_latency"`
	MaxLatency        time.Duration `json:"max_latency"`
	StartTime         time.Time     `json:"start_time"`
	LastOperationTime time.Time     `json:"last_operation_time"`
}

// PerformanceMetrics tracks performance statistics
type PerformanceMetrics struct {
	snapshot     PerformanceSnapshot
	totalLatency time.Duration
	mutex        sync.RWMutex
}

// NewPerformanceMetrics creates a new performance metrics tracker
func NewPerformanceMetrics() *PerformanceMetrics {
	now := time.Now()
	return &PerformanceMetrics{
		snapshot: PerformanceSnapshot{
			StartTime:         now,
			LastOperationTime: now,
		},
	}
}

// RecordOperation records the result of an operation
func (pm *PerformanceMetrics) RecordOperation(duration time.Duration, success bool) {
	pm.mutex.Lock()
	defer pm.mutex.Unlock()

	s := &pm.snapshot
	s.TotalOperations++
	if success {
		s.SuccessfulOps++
	} else {
		s.FailedOps++
	}

	pm.totalLatency += duration
	if s.TotalOperations == 1 || duration < s.MinLatency {
		s.MinLatency = duration
	}
	if duration > s.MaxLatency {
		s.MaxLatency = duration
	}
	s.AverageLatency = pm.totalLatency / time.Duration(s.TotalOperations)
	s.LastOperationTime = time.Now()
}

// GetSnapshot returns a copy of current metrics
func (pm *PerformanceMetrics) GetSnapshot() PerformanceSnapshot {
	pm.mutex.RLock()
	defer pm.mutex.RUnlock()
	return pm.snapshot
}
