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

// Package ptp tracks per-message-type counters, offset/delay samples, and
// the latched grandmaster identity across observed PTP traffic.
package ptp

import (
	"sync"
	"time"

	"github.com/eclesh/welford"
	"github.com/hwkim3330/tsnobs/capture/tsn"
)

const (
	sampleCap       = 1000
	syncIntervalCap = 100
	maxSyncGapMs    = 10_000
)

// Clock is a per-source-port-identity PTP clock record.
type Clock struct {
	SourcePortIdentity string
	Domain             uint8
	SyncCount          uint64
	AnnounceCount      uint64
	LastSeen           time.Time
	IsGrandmaster      bool
}

// Stats are the PTP analyzer's published aggregates.
type Stats struct {
	SyncCount              uint64
	FollowUpCount          uint64
	DelayReqCount          uint64
	DelayRespCount         uint64
	AnnounceCount          uint64
	PdelayReqCount         uint64
	PdelayRespCount        uint64
	GrandmasterID          string
	Domain                 uint8
	AvgOffsetNs            float64
	AvgDelayNs             float64
	SyncIntervalMs         float64
	Clocks                 map[string]Clock
}

type syncPair struct {
	syncTime time.Time
	syncSeq  uint16
}

// Analyzer owns all PTP rolling aggregates.
type Analyzer struct {
	mu sync.Mutex

	clocks         map[string]*Clock
	syncPairs      map[uint16]syncPair
	offsetSamples  *welford.Stats
	delaySamples   *welford.Stats
	lastSyncTime   time.Time
	haveLastSync   bool
	syncIntervals  []float64

	grandmasterID string
	domainSet     bool
	domain        uint8

	counts Stats
}

// New creates an empty PTP Analyzer.
func New() *Analyzer {
	return &Analyzer{
		clocks:        make(map[string]*Clock),
		syncPairs:     make(map[uint16]syncPair),
		offsetSamples: welford.New(),
		delaySamples:  welford.New(),
	}
}

// Process ingests one PTP annotation observed at capture time now.
func (a *Analyzer) Process(info *tsn.PTPInfo, now time.Time) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.domainSet {
		a.domain = info.Domain
		a.domainSet = true
	}

	switch info.MessageType {
	case tsn.MsgSync:
		a.counts.SyncCount++
		a.processSync(info, now)
	case tsn.MsgFollowUp:
		a.counts.FollowUpCount++
		a.processFollowUp(info)
	case tsn.MsgDelayReq:
		a.counts.DelayReqCount++
	case tsn.MsgDelayResp:
		a.counts.DelayRespCount++
		a.processDelayResp(info)
	case tsn.MsgAnnounce:
		a.counts.AnnounceCount++
		a.processAnnounce(info)
	case tsn.MsgPdelayReq:
		a.counts.PdelayReqCount++
	case tsn.MsgPdelayResp:
		a.counts.PdelayRespCount++
	}

	a.updateClock(info, now)
}

func (a *Analyzer) processSync(info *tsn.PTPInfo, now time.Time) {
	a.syncPairs[info.SequenceID] = syncPair{syncTime: now, syncSeq: info.SequenceID}

	if a.haveLastSync {
		gapMs := float64(now.Sub(a.lastSyncTime).Milliseconds())
		if gapMs > 0 && gapMs < maxSyncGapMs {
			a.syncIntervals = append(a.syncIntervals, gapMs)
			if len(a.syncIntervals) > syncIntervalCap {
				a.syncIntervals = a.syncIntervals[1:]
			}
		}
	}
	a.lastSyncTime = now
	a.haveLastSync = true

	if len(a.syncIntervals) > 0 {
		var sum float64
		for _, v := range a.syncIntervals {
			sum += v
		}
		a.counts.SyncIntervalMs = sum / float64(len(a.syncIntervals))
	}
}

func (a *Analyzer) processFollowUp(info *tsn.PTPInfo) {
	// No sign-based abs here, matching the teacher-original's offset calc.
	offsetNs := tsn.CorrectionNanos(info.CorrectionField)
	a.offsetSamples.Add(offsetNs)
	a.counts.AvgOffsetNs = a.offsetSamples.Mean()
}

func (a *Analyzer) processDelayResp(info *tsn.PTPInfo) {
	delayNs := tsn.CorrectionNanos(info.CorrectionField)
	if delayNs < 0 {
		delayNs = -delayNs
	}
	if delayNs > 0 && delayNs < 1e9 {
		a.delaySamples.Add(delayNs)
		a.counts.AvgDelayNs = a.delaySamples.Mean()
	}
}

func (a *Analyzer) processAnnounce(info *tsn.PTPInfo) {
	if a.grandmasterID == "" {
		a.grandmasterID = info.SourcePortIdentity
		a.counts.GrandmasterID = a.grandmasterID
	}
}

func (a *Analyzer) updateClock(info *tsn.PTPInfo, now time.Time) {
	c, ok := a.clocks[info.SourcePortIdentity]
	if !ok {
		c = &Clock{SourcePortIdentity: info.SourcePortIdentity, Domain: info.Domain}
		a.clocks[info.SourcePortIdentity] = c
	}
	c.LastSeen = now
	if info.MessageType == tsn.MsgSync {
		c.SyncCount++
	}
	if info.MessageType == tsn.MsgAnnounce {
		c.AnnounceCount++
		c.IsGrandmaster = a.grandmasterID != "" && c.SourcePortIdentity == a.grandmasterID
	}
}

// StatsSnapshot returns a copy of the analyzer's current aggregates.
func (a *Analyzer) StatsSnapshot() Stats {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := a.counts
	out.Domain = a.domain
	out.Clocks = make(map[string]Clock, len(a.clocks))
	for k, v := range a.clocks {
		out.Clocks[k] = *v
	}
	return out
}
