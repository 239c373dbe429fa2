package observability

import (
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Metrics provides basic in-memory counters.
type Metrics struct {
	mu            sync.Mutex
	requestCount  map[string]int64
	errorCount    map[string]int64
	totalDuration map[string]time.Duration
	startedAt     time.Time
}

// RouteStats aggregates the requests observed for one method, path and status.
type RouteStats struct {
	Method          string  `json:"method"`
	Path            string  `json:"path"`
	Status          int     `json:"status"`
	Count           int64   `json:"count"`
	AvgDurationMsec float64 `json:"avg_duration_ms"`
}

// ErrorStats counts error responses per route and error code.
type ErrorStats struct {
	Method string `json:"method"`
	Path   string `json:"path"`
	Code   string `json:"code"`
	Count  int64  `json:"count"`
}

// Snapshot is a point-in-time copy of the counters.
type Snapshot struct {
	UptimeSeconds int64        `json:"uptime_seconds"`
	Requests      []RouteStats `json:"requests"`
	Errors        []ErrorStats `json:"errors"`
}

// NewMetrics initializes metrics storage.
func NewMetrics() *Metrics {
	return &Metrics{
		requestCount:  make(map[string]int64),
		errorCount:    make(map[string]int64),
		totalDuration: make(map[string]time.Duration),
		startedAt:     time.Now(),
	}
}

// RecordRequest increments counters for requests.
func (m *Metrics) RecordRequest(path, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	key := pathKey(path, method, strconv.Itoa(status))
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requestCount[key]++
	m.totalDuration[key] += duration
}

// RecordError increments error counters.
func (m *Metrics) RecordError(path, method, code string) {
	if m == nil {
		return
	}
	key := pathKey(path, method, code)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errorCount[key]++
}

// Snapshot copies the counters sorted by path, method and status.
func (m *Metrics) Snapshot() Snapshot {
	snap := Snapshot{Requests: []RouteStats{}, Errors: []ErrorStats{}}
	if m == nil {
		return snap
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	snap.UptimeSeconds = int64(time.Since(m.startedAt).Seconds())
	for key, count := range m.requestCount {
		path, method, status := splitKey(key)
		code, _ := strconv.Atoi(status)
		avg := float64(m.totalDuration[key]) / float64(count) / float64(time.Millisecond)
		snap.Requests = append(snap.Requests, RouteStats{
			Method:          method,
			Path:            path,
			Status:          code,
			Count:           count,
			AvgDurationMsec: avg,
		})
	}
	for key, count := range m.errorCount {
		path, method, code := splitKey(key)
		snap.Errors = append(snap.Errors, ErrorStats{Method: method, Path: path, Code: code, Count: count})
	}

	sort.Slice(snap.Requests, func(i, j int) bool {
		a, b := snap.Requests[i], snap.Requests[j]
		if a.Path != b.Path {
			return a.Path < b.Path
		}
		if a.Method != b.Method {
			return a.Method < b.Method
		}
		return a.Status < b.Status
	})
	sort.Slice(snap.Errors, func(i, j int) bool {
		a, b := snap.Errors[i], snap.Errors[j]
		if a.Path != b.Path {
			return a.Path < b.Path
		}
		if a.Method != b.Method {
			return a.Method < b.Method
		}
		return a.Code < b.Code
	})
	return snap
}

func pathKey(path, method, suffix string) string {
	return path + "|" + method + "|" + suffix
}

func splitKey(key string) (path, method, suffix string) {
	parts := strings.SplitN(key, "|", 3)
	for len(parts) < 3 {
		parts = append(parts, "")
	}
	return parts[0], parts[1], parts[2]
}
