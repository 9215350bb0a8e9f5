package logging

import (
	"sync"
	"time"
)

// DefaultCollectorCapacity is the number of diagnostics kept when no capacity is given.
const DefaultCollectorCapacity = 100

// LogEntry represents a single log record with structured data.
type LogEntry struct {
	Time       time.Time              `json:"time"`
	Level      string                 `json:"level"` // "DEBUG", "INFO", "WARN", "ERROR"
	Message    string                 `json:"message"`
	Attributes map[string]interface{} `json:"attributes"` // Structured fields
}

// LogCollector keeps the most recent diagnostic log entries (thread-safe).
// When full, the oldest entry is dropped.
type LogCollector struct {
	mu       sync.RWMutex
	logs     []LogEntry
	capacity int
}

// NewLogCollector creates a LogCollector holding up to capacity entries.
// A capacity <= 0 uses DefaultCollectorCapacity.
func NewLogCollector(capacity int) *LogCollector {
	if capacity <= 0 {
		capacity = DefaultCollectorCapacity
	}
	return &LogCollector{
		logs:     make([]LogEntry, 0, capacity),
		capacity: capacity,
	}
}

// AddLog appends a log entry, evicting the oldest one if the collector is full.
func (c *LogCollector) AddLog(entry LogEntry) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.logs) == c.capacity {
		copy(c.logs, c.logs[1:])
		c.logs = c.logs[:len(c.logs)-1]
	}
	c.logs = append(c.logs, entry)
}

// GetLogs returns a copy of the collected entries, oldest first.
func (c *LogCollector) GetLogs() []LogEntry {
	c.mu.RLock()
	defer c.mu.RUnlock()

	result := make([]LogEntry, len(c.logs))
	copy(result, c.logs)
	return result
}

// Clear removes all stored entries.
func (c *LogCollector) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.logs = c.logs[:0]
}
