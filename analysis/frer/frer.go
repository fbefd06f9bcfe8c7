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

// Package frer tracks per-stream sequence numbers to detect duplication,
// elimination, and replication behavior on Frame Replication and
// Elimination for Reliability streams.
package frer

import (
	"fmt"
	"sync"
	"time"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

const seenSequenceCap = 1000

// Stream is one FRER stream's duplication and replication statistics.
type Stream struct {
	StreamID            string
	Packets             uint64
	Duplicates          uint64
	SequenceErrors      uint64
	ReplicationFactor   int
	EliminationRatePct   float64
	LastSeen            time.Time
}

// Stats are the FRER analyzer's published aggregates.
type Stats struct {
	Streams []Stream
}

type streamTracker struct {
	packets, duplicates, seqErrors uint64
	lastSeq                        *uint32
	seenSequences                  []uint32
	pathsSeen                      map[string]uint64
	lastSeen                       time.Time
}

func (tr *streamTracker) hasSeen(seq uint32) bool {
	for _, s := range tr.seenSequences {
		if s == seq {
			return true
		}
	}
	return false
}

func (tr *streamTracker) remember(seq uint32) {
	tr.seenSequences = append(tr.seenSequences, seq)
	if len(tr.seenSequences) > seenSequenceCap {
		tr.seenSequences = tr.seenSequences[1:]
	}
}

// Analyzer owns the per-stream FRER trackers.
type Analyzer struct {
	mu       sync.Mutex
	trackers map[string]*streamTracker
}

// New creates an empty FRER Analyzer.
func New() *Analyzer {
	return &Analyzer{trackers: make(map[string]*streamTracker)}
}

// StreamID derives the stream identifier used to key a FRER tracker when
// no explicit stream id was carried by the annotation: source MAC plus
// VLAN id, defaulting the VLAN id to 0 when the frame is untagged.
func StreamID(srcMAC string, vlanID *uint16) string {
	v := uint16(0)
	if vlanID != nil {
		v = *vlanID
	}
	return fmt.Sprintf("%s:%d", srcMAC, v)
}

// Process ingests one observed sequence number for a stream, destined to
// dstMAC, at capture time now. A repeated sequence number is always
// classified as a duplicate and never additionally as a sequence error;
// sequence errors are only evaluated on the non-duplicate branch,
// matching the teacher-original's branching.
func (a *Analyzer) Process(streamID string, seq uint32, dstMAC string, now time.Time) {
	a.mu.Lock()
	defer a.mu.Unlock()

	tr, ok := a.trackers[streamID]
	if !ok {
		tr = &streamTracker{pathsSeen: make(map[string]uint64)}
		a.trackers[streamID] = tr
	}
	tr.packets++
	tr.lastSeen = now
	if dstMAC != "" {
		tr.pathsSeen[dstMAC]++
	}

	if tr.hasSeen(seq) {
		tr.duplicates++
	} else {
		if tr.lastSeq != nil && seq != *tr.lastSeq+1 && seq != *tr.lastSeq {
			tr.seqErrors++
		}
		tr.remember(seq)
		s := seq
		tr.lastSeq = &s
	}
}

// StatsSnapshot returns the analyzer's current aggregates, streams sorted
// by stream id.
func (a *Analyzer) StatsSnapshot() Stats {
	a.mu.Lock()
	defer a.mu.Unlock()

	ids := maps.Keys(a.trackers)
	slices.Sort(ids)

	var out Stats
	for _, id := range ids {
		tr := a.trackers[id]
		elim := 0.0
		if tr.packets > 0 {
			elim = float64(tr.duplicates) / float64(tr.packets) * 100
		}
		out.Streams = append(out.Streams, Stream{
			StreamID:          id,
			Packets:           tr.packets,
			Duplicates:        tr.duplicates,
			SequenceErrors:    tr.seqErrors,
			ReplicationFactor: len(tr.pathsSeen),
			EliminationRatePct: elim,
			LastSeen:          tr.lastSeen,
		})
	}
	return out
}
