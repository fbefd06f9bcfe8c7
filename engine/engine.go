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

// Package engine wires the capture, analysis, and topology components
// into a single running observation instance.
package engine

import (
	"context"
	"time"

	"github.com/coreos/go-systemd/daemon"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/hwkim3330/tsnobs/analysis/cbs"
	"github.com/hwkim3330/tsnobs/analysis/frer"
	"github.com/hwkim3330/tsnobs/analysis/interval"
	"github.com/hwkim3330/tsnobs/analysis/ptp"
	"github.com/hwkim3330/tsnobs/analysis/tas"
	"github.com/hwkim3330/tsnobs/capture/frame"
	"github.com/hwkim3330/tsnobs/capture/store"
	"github.com/hwkim3330/tsnobs/capture/tsn"
	"github.com/hwkim3330/tsnobs/capture/worker"
	"github.com/hwkim3330/tsnobs/topology"
)

const metricsReportInterval = 15 * time.Second

// Engine owns every running component and exposes read access to their
// current state for the CLI and API surfaces.
type Engine struct {
	cfg Config

	Store    *store.Store
	Topology *topology.Builder
	Interval *interval.Tracker
	PTP      *ptp.Analyzer
	CBS      *cbs.Analyzer
	TAS      *tas.Analyzer
	FRER     *frer.Analyzer

	worker  *worker.Worker
	metrics *metricsExporter
}

// New builds an Engine from cfg without starting capture.
func New(cfg Config) (*Engine, error) {
	st := store.New(cfg.StoreCapacity)
	topo := topology.New(nil)

	e := &Engine{
		cfg:      cfg,
		Store:    st,
		Topology: topo,
		Interval: interval.New(),
		PTP:      ptp.New(),
		CBS:      cbs.New(),
		TAS:      tas.New(),
		FRER:     frer.New(),
		metrics:  newMetricsExporter(),
	}
	e.worker = worker.New(st, topo, e)

	if cfg.CBSAlertExpr != "" {
		if err := e.CBS.SetAlertExpression(cfg.CBSAlertExpr); err != nil {
			return nil, err
		}
	}

	return e, nil
}

// Dispatch feeds one classified record into the interval tracker and every
// protocol analyzer. Called synchronously from the capture loop (see
// capture/worker.Dispatcher) so these core aggregates are never dropped,
// unlike the store's best-effort subscriber broadcast.
func (e *Engine) Dispatch(rec *frame.Record) {
	e.dispatch(rec)
}

func (e *Engine) dispatch(rec *frame.Record) {
	e.Interval.Process(rec.Headers, rec.Length, rec.Timestamp)

	ann, ok := rec.Annotation.(*tsn.Annotation)
	if !ok || ann == nil {
		return
	}

	if ann.PTP != nil {
		e.PTP.Process(ann.PTP, rec.Timestamp)
	}

	pcp := ann.Priority
	e.CBS.Process(pcp, rec.Length, rec.Timestamp)
	e.TAS.Process(pcp, rec.Length, rec.Timestamp)

	if ann.SequenceNumber != nil {
		streamID := ann.StreamID
		if streamID == "" {
			streamID = frer.StreamID(rec.Headers.SrcMAC, rec.Headers.VLANID)
		}
		e.FRER.Process(streamID, *ann.SequenceNumber, rec.Headers.DstMAC, rec.Timestamp)
	}
}

// Run starts live capture on the configured interface and blocks until
// ctx is cancelled.
func (e *Engine) Run(ctx context.Context) error {
	if e.cfg.MetricsAddr != "" {
		go e.metrics.serve(e.cfg.MetricsAddr)
	}
	go e.reportMetricsPeriodically(ctx)
	go e.writeSnapshotPeriodically(ctx)

	if supported, err := daemon.SdNotify(false, daemon.SdNotifyReady); err != nil {
		log.Warnf("engine: sd_notify ready failed: %v", err)
	} else if supported {
		log.Debug("engine: notified systemd readiness")
	}

	cfg := worker.DefaultConfig(e.cfg.Interface)
	cfg.Promiscuous = e.cfg.Promiscuous
	cfg.SnapshotLen = e.cfg.SnapshotLen
	cfg.BufferSizeMB = e.cfg.BufferSizeMB

	stop := make(chan struct{})
	eg, _ := errgroup.WithContext(ctx)
	eg.Go(func() error { return e.worker.Run(cfg, stop) })

	<-ctx.Done()
	_, _ = daemon.SdNotify(false, daemon.SdNotifyStopping)
	close(stop)
	return eg.Wait()
}

func (e *Engine) reportMetricsPeriodically(ctx context.Context) {
	ticker := time.NewTicker(metricsReportInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			stats := e.Store.StatsSnapshot()
			topoStats := e.Topology.StatsSnapshot()
			e.metrics.update(stats.Packets, stats.Bytes, stats.TSNCount, stats.PTPCount, topoStats.NodeCount, topoStats.LinkCount)
			log.Debugf("engine: %d packets, %d nodes, %d links", stats.Packets, topoStats.NodeCount, topoStats.LinkCount)
		}
	}
}
