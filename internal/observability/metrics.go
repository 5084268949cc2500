package observability

import (
	"strconv"
	"sync"
	"time"
)

// Metrics provides basic in-memory counters. All methods are safe on a
// nil receiver so instrumentation points never need guards.
type Metrics struct {
	mu              sync.Mutex
	requestCount    map[string]int64
	requestDuration map[string]time.Duration
	errorCount      map[string]int64
	deliveryCount   map[string]int64
	claimConflicts  int64
	appendRetries   int64
	appendFailures  int64
	staleDrops      int64
	evictions       int64
}

// NewMetrics initializes metrics storage.
func NewMetrics() *Metrics {
	return &Metrics{
		requestCount:    make(map[string]int64),
		requestDuration: make(map[string]time.Duration),
		errorCount:      make(map[string]int64),
		deliveryCount:   make(map[string]int64),
	}
}

// RecordRequest counts the request and accumulates its latency; average
// latency per route is the duration sum over the count.
func (m *Metrics) RecordRequest(path, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	key := pathKey(path, method, status)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requestCount[key]++
	m.requestDuration[key] += duration
}

// RecordError increments error counters.
func (m *Metrics) RecordError(path, method, code string) {
	if m == nil {
		return
	}
	key := path + "|" + method + "|" + code
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errorCount[key]++
}

// RecordClaimConflict counts claim attempts rejected by the store.
func (m *Metrics) RecordClaimConflict() {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.claimConflicts++
}

// RecordAppendRetry counts append attempts that hit a version conflict
// and were retried.
func (m *Metrics) RecordAppendRetry() {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.appendRetries++
}

// RecordAppendExhausted counts appends that spent their retry budget.
func (m *Metrics) RecordAppendExhausted() {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.appendFailures++
}

// RecordDelivery counts fan-out notifications by kind.
func (m *Metrics) RecordDelivery(kind string) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deliveryCount[kind]++
}

// RecordStaleDrop counts notifications discarded by the monotonic
// version gate.
func (m *Metrics) RecordStaleDrop() {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.staleDrops++
}

// RecordEviction counts subscribers dropped for lagging.
func (m *Metrics) RecordEviction() {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.evictions++
}

func pathKey(path, method string, status int) string {
	return path + "|" + method + "|" + strconv.Itoa(status)
}
