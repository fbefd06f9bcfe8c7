/*
Copyright (c) Facebook, Inc. and its affiliates.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package store holds the bounded, FIFO-evicting buffer of Captured
// Records and fans them out to subscribers on a best-effort basis.
package store

import (
	"sync"
	"sync/atomic"

	"github.com/hwkim3330/tsnobs/capture/frame"
	"github.com/hwkim3330/tsnobs/capture/tsn"
	"github.com/sirupsen/logrus"
)

const (
	// DefaultCapacity is MAX_BUFFER from the spec.
	DefaultCapacity = 100_000
	broadcastBuffer = 10_000
)

// Stats are the running aggregates maintained alongside the ring.
type Stats struct {
	Packets  uint64
	Bytes    uint64
	TSNCount uint64
	PTPCount uint64
}

// Store is a bounded single-writer, many-reader FIFO of Captured Records.
type Store struct {
	mu       sync.RWMutex
	records  []frame.Record
	head     int // index of the oldest record
	size     int
	capacity int
	nextID   uint64
	stats    Stats

	capturing atomic.Bool
	iface     string

	subMu sync.Mutex
	subs  map[chan frame.Record]struct{}

	log *logrus.Logger
}

// New creates a Store with the given capacity (DefaultCapacity if zero).
func New(capacity int) *Store {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Store{
		records:  make([]frame.Record, capacity),
		capacity: capacity,
		subs:     make(map[chan frame.Record]struct{}),
		log:      logrus.StandardLogger(),
	}
}

// NextID returns the next monotonically increasing record id.
func (s *Store) NextID() uint64 {
	return atomic.AddUint64(&s.nextID, 1) - 1
}

// Add inserts a record, evicting the oldest on overflow, updates the
// running aggregates, and publishes to subscribers without blocking.
func (s *Store) Add(rec frame.Record) {
	s.mu.Lock()
	idx := (s.head + s.size) % s.capacity
	if s.size == s.capacity {
		// full: overwrite oldest, advance head
		s.records[idx] = rec
		s.head = (s.head + 1) % s.capacity
	} else {
		s.records[idx] = rec
		s.size++
	}

	s.stats.Packets++
	s.stats.Bytes += uint64(rec.Length)
	if _, ok := rec.Annotation.(*tsn.Annotation); ok {
		s.stats.TSNCount++
	}
	if rec.Headers.IsPTP {
		s.stats.PTPCount++
	}
	s.mu.Unlock()

	s.publish(rec)
}

func (s *Store) publish(rec frame.Record) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	for ch := range s.subs {
		select {
		case ch <- rec:
		default:
			s.log.WithField("component", "store").Debug("subscriber lagging, dropping record")
		}
	}
}

// Snapshot returns up to limit cloned records starting at offset, oldest
// first, within the currently retained window.
func (s *Store) Snapshot(offset, limit int) []frame.Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if offset < 0 || offset >= s.size || limit <= 0 {
		return nil
	}
	if offset+limit > s.size {
		limit = s.size - offset
	}
	out := make([]frame.Record, limit)
	for i := 0; i < limit; i++ {
		idx := (s.head + offset + i) % s.capacity
		out[i] = s.records[idx]
	}
	return out
}

// Count returns the number of records currently retained (≤ capacity).
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.size
}

// Clear empties the ring without affecting the monotonic id counter.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.head, s.size = 0, 0
	s.stats = Stats{}
}

// StatsSnapshot returns the current aggregate counters.
func (s *Store) StatsSnapshot() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stats
}

// Subscribe registers a new broadcast channel; the caller owns closing its
// consumption loop but Unsubscribe should be called to release resources.
func (s *Store) Subscribe() chan frame.Record {
	ch := make(chan frame.Record, broadcastBuffer)
	s.subMu.Lock()
	s.subs[ch] = struct{}{}
	s.subMu.Unlock()
	return ch
}

// Unsubscribe removes and closes a previously subscribed channel.
func (s *Store) Unsubscribe(ch chan frame.Record) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	if _, ok := s.subs[ch]; ok {
		delete(s.subs, ch)
		close(ch)
	}
}

// SetInterface records the configured capture interface name. Rejected
// while capture is active.
func (s *Store) SetInterface(name string) bool {
	if s.IsCapturing() {
		return false
	}
	s.mu.Lock()
	s.iface = name
	s.mu.Unlock()
	return true
}

// Interface returns the configured capture interface name.
func (s *Store) Interface() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.iface
}

// IsCapturing reports the process-wide capture flag.
func (s *Store) IsCapturing() bool { return s.capturing.Load() }

// SetCapturing toggles the process-wide capture flag.
func (s *Store) SetCapturing(v bool) { s.capturing.Store(v) }
