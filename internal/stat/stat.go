// Package stat accumulates per-model serving statistics. Inserts are
// decoupled from request handling by a buffered channel and a single
// aggregation goroutine.
package stat

import (
	"errors"
	"sync"

	"github.com/ishiev/rtiles/pkg/logger"
)

var ErrQueueFull = errors.New("stat queue full")

// Key addresses one row of the table. The zero Key is the roll-up total
// across all models.
type Key struct {
	Model string `json:"model,omitempty"`
}

type Metrics struct {
	Hits  uint64 `json:"hits"`
	Bytes uint64 `json:"bytes"`
}

func (m *Metrics) add(o Metrics) {
	m.Hits += o.Hits
	m.Bytes += o.Bytes
}

type record struct {
	key Key
	m   Metrics
	ack chan struct{}
}

const queueDepth = 500

// Stat owns the aggregate table. Insert never blocks a request: when the
// queue is full the sample is dropped and ErrQueueFull returned.
type Stat struct {
	mu     sync.RWMutex
	table  map[Key]Metrics
	queue  chan record
	done   chan struct{}
	logger logger.Logger
}

func New(l logger.Logger) *Stat {
	s := &Stat{
		table:  make(map[Key]Metrics),
		queue:  make(chan record, queueDepth),
		done:   make(chan struct{}),
		logger: l,
	}
	go s.run()
	return s
}

func (s *Stat) run() {
	defer close(s.done)
	for rec := range s.queue {
		if rec.ack != nil {
			close(rec.ack)
			continue
		}
		s.apply(rec)
	}
}

func (s *Stat) apply(rec record) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// every sample also rolls up into the zero-key total
	total := s.table[Key{}]
	total.add(rec.m)
	s.table[Key{}] = total

	if rec.key != (Key{}) {
		cur := s.table[rec.key]
		cur.add(rec.m)
		s.table[rec.key] = cur
	}
}

func (s *Stat) Insert(key Key, m Metrics) error {
	select {
	case s.queue <- record{key: key, m: m}:
		return nil
	default:
		s.logger.Warn("stat sample dropped", "model", key.Model)
		return ErrQueueFull
	}
}

// Get returns the metrics for key; the zero Key returns the total.
func (s *Stat) Get(key Key) (Metrics, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.table[key]
	return m, ok
}

// All returns a snapshot of the whole table.
func (s *Stat) All() map[Key]Metrics {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[Key]Metrics, len(s.table))
	for k, v := range s.table {
		out[k] = v
	}
	return out
}

// Flush blocks until every sample inserted before the call has been
// applied to the table. The queue is FIFO, so a barrier record suffices.
func (s *Stat) Flush() {
	ack := make(chan struct{})
	s.queue <- record{ack: ack}
	<-ack
}

func (s *Stat) Close() {
	close(s.queue)
	<-s.done
}
