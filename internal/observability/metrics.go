package observability

import (
	"strconv"
	"sync"
	"time"
)

// Metrics provides basic in-memory counters. Dispatch counters exist so a
// delayed or lost notification is operationally visible even though
// dispatch failures are never raised back to the reply-write path.
type Metrics struct {
	mu               sync.Mutex
	requestCount     map[string]int64
	errorCount       map[string]int64
	dispatchSent     int64
	dispatchRetried  int64
	dispatchFailed   int64
	dispatchEnqueued int64
	dispatchDropped  int64
}

// NewMetrics initializes metrics storage.
func NewMetrics() *Metrics {
	return &Metrics{
		requestCount: make(map[string]int64),
		errorCount:   make(map[string]int64),
	}
}

// RecordRequest increments counters for requests.
func (m *Metrics) RecordRequest(path, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	key := pathKey(path, method, status)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requestCount[key]++
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

// RecordDispatchEnqueued counts jobs handed to the dispatch queue.
func (m *Metrics) RecordDispatchEnqueued() {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dispatchEnqueued++
}

// RecordDispatchDropped counts jobs rejected by a full queue. The durable
// pending record means the sweeper picks these up later.
func (m *Metrics) RecordDispatchDropped() {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dispatchDropped++
}

// RecordDispatchSent counts successful transport deliveries.
func (m *Metrics) RecordDispatchSent() {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dispatchSent++
}

// RecordDispatchRetry counts transient transport failures that will be retried.
func (m *Metrics) RecordDispatchRetry() {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dispatchRetried++
}

// RecordDispatchFailure counts terminal dispatch failures.
func (m *Metrics) RecordDispatchFailure() {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dispatchFailed++
}

// DispatchSnapshot is a point-in-time view of dispatch counters.
type DispatchSnapshot struct {
	Enqueued int64 `json:"enqueued"`
	Dropped  int64 `json:"dropped"`
	Sent     int64 `json:"sent"`
	Retried  int64 `json:"retried"`
	Failed   int64 `json:"failed"`
}

// Dispatch returns the current dispatch counters.
func (m *Metrics) Dispatch() DispatchSnapshot {
	if m == nil {
		return DispatchSnapshot{}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return DispatchSnapshot{
		Enqueued: m.dispatchEnqueued,
		Dropped:  m.dispatchDropped,
		Sent:     m.dispatchSent,
		Retried:  m.dispatchRetried,
		Failed:   m.dispatchFailed,
	}
}

func pathKey(path, method string, status int) string {
	return path + "|" + method + "|" + strconv.Itoa(status)
}
