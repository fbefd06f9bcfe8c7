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

package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/hwkim3330/tsnobs/analysis/cbs"
	"github.com/hwkim3330/tsnobs/analysis/frer"
	"github.com/hwkim3330/tsnobs/analysis/ptp"
	"github.com/hwkim3330/tsnobs/analysis/tas"
	"github.com/hwkim3330/tsnobs/capture/store"
	"github.com/hwkim3330/tsnobs/topology"
)

// Snapshot is a point-in-time dump of everything the CLI's display
// subcommands need, independent of the running process that produced
// it.
type Snapshot struct {
	Generated time.Time `json:"generated"`

	Store    store.Stats      `json:"store"`
	Nodes    []topology.Node  `json:"nodes"`
	Links    []topology.Link  `json:"links"`
	Topology topology.Stats   `json:"topology"`

	PTP  ptp.Stats  `json:"ptp"`
	CBS  cbs.Stats  `json:"cbs"`
	TAS  tas.Stats  `json:"tas"`
	FRER frer.Stats `json:"frer"`
}

// Snapshot captures the engine's current state.
func (e *Engine) Snapshot() Snapshot {
	return Snapshot{
		Generated: time.Now(),
		Store:     e.Store.StatsSnapshot(),
		Nodes:     e.Topology.Nodes(),
		Links:     e.Topology.Links(),
		Topology:  e.Topology.StatsSnapshot(),
		PTP:       e.PTP.StatsSnapshot(),
		CBS:       e.CBS.StatsSnapshot(),
		TAS:       e.TAS.StatsSnapshot(),
		FRER:      e.FRER.StatsSnapshot(),
	}
}

// WriteSnapshot marshals the engine's current state to path as JSON.
func (e *Engine) WriteSnapshot(path string) error {
	data, err := json.MarshalIndent(e.Snapshot(), "", "  ")
	if err != nil {
		return fmt.Errorf("engine: marshal snapshot: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("engine: write snapshot: %w", err)
	}
	return os.Rename(tmp, path)
}

// ReadSnapshot loads a Snapshot previously written by WriteSnapshot,
// for use by a separate process such as the CLI.
func ReadSnapshot(path string) (Snapshot, error) {
	var snap Snapshot
	data, err := os.ReadFile(path)
	if err != nil {
		return snap, fmt.Errorf("engine: read snapshot: %w", err)
	}
	if err := json.Unmarshal(data, &snap); err != nil {
		return snap, fmt.Errorf("engine: parse snapshot: %w", err)
	}
	return snap, nil
}

func (e *Engine) writeSnapshotPeriodically(ctx context.Context) {
	if e.cfg.SnapshotPath == "" {
		return
	}
	interval := e.cfg.SnapshotInterval
	if interval <= 0 {
		interval = 5 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := e.WriteSnapshot(e.cfg.SnapshotPath); err != nil {
				log.Warnf("engine: snapshot write failed: %v", err)
			}
		}
	}
}
