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

// Package worker runs the long-lived capture loop: open the interface,
// pull frames, classify and route them to the topology builder and the
// capture store, and stay responsive to stop requests.
package worker

import (
	"fmt"
	"time"

	"github.com/google/gopacket/pcap"
	"github.com/hwkim3330/tsnobs/capture/frame"
	"github.com/hwkim3330/tsnobs/capture/store"
	"github.com/hwkim3330/tsnobs/capture/tsn"
	"github.com/sirupsen/logrus"
)

const readTimeout = 100 * time.Millisecond

// Topology is the subset of the topology builder the worker depends on;
// defined here to avoid an import cycle with package topology.
type Topology interface {
	ProcessPacket(rec *frame.Record)
}

// Dispatcher feeds a classified record into the interval tracker and
// protocol analyzers. Run calls it synchronously, once per packet, ahead
// of the store's subscriber broadcast, so these core aggregates are never
// subject to the broadcast channel's drop-on-full behavior.
type Dispatcher interface {
	Dispatch(rec *frame.Record)
}

// Config configures one capture session.
type Config struct {
	Interface    string
	Promiscuous  bool
	SnapshotLen  int32
	BufferSizeMB int
}

// DefaultConfig matches the spec's documented defaults.
func DefaultConfig(iface string) Config {
	return Config{
		Interface:    iface,
		Promiscuous:  true,
		SnapshotLen:  65535,
		BufferSizeMB: 64,
	}
}

// Worker owns the capture handle for a running session; record ids come
// from the store's NextID counter.
type Worker struct {
	store      *store.Store
	topology   Topology
	dispatcher Dispatcher
	log        *logrus.Logger
}

// New builds a Worker writing into store, topology, and the analyzer
// dispatcher. dispatcher may be nil if no analyzers are attached.
func New(st *store.Store, topo Topology, d Dispatcher) *Worker {
	return &Worker{store: st, topology: topo, dispatcher: d, log: logrus.StandardLogger()}
}

// Run loops until stop is closed or a read fails; the store's capturing
// flag is not consulted. stop is checked between reads, and each read
// returns within the 100ms read timeout, so a frame already read is
// always processed before Run returns.
func (w *Worker) Run(cfg Config, stop <-chan struct{}) error {
	handle, err := pcap.OpenLive(cfg.Interface, cfg.SnapshotLen, cfg.Promiscuous, readTimeout)
	if err != nil {
		return fmt.Errorf("open capture interface %q: %w", cfg.Interface, err)
	}
	defer handle.Close()

	w.log.WithField("interface", cfg.Interface).Info("capture started")
	defer w.log.WithField("interface", cfg.Interface).Info("capture stopped")

	for {
		select {
		case <-stop:
			return nil
		default:
		}

		data, ci, err := handle.ReadPacketData()
		if err == pcap.NextErrorTimeoutExpired {
			continue
		}
		if err != nil {
			w.log.WithError(err).Warn("capture read error, resetting session")
			return err
		}

		id := w.store.NextID()
		rec := frame.NewRecord(id, ci.Timestamp, ci.Length, data)
		if ann := tsn.Classify(rec.Headers, rec.Data); ann != nil {
			rec.Annotation = ann
		}

		if w.topology != nil {
			w.topology.ProcessPacket(&rec)
		}
		if w.dispatcher != nil {
			w.dispatcher.Dispatch(&rec)
		}
		w.store.Add(rec)
	}
}
