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
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
)

// metricsExporter serves capture/analysis counters as Prometheus gauges.
type metricsExporter struct {
	registry *prometheus.Registry

	packets   prometheus.Gauge
	bytes     prometheus.Gauge
	tsnFrames prometheus.Gauge
	ptpFrames prometheus.Gauge
	nodeCount prometheus.Gauge
	linkCount prometheus.Gauge
}

func newMetricsExporter() *metricsExporter {
	registry := prometheus.NewRegistry()
	e := &metricsExporter{
		registry:  registry,
		packets:   prometheus.NewGauge(prometheus.GaugeOpts{Name: "tsnobs_packets_total", Help: "Packets observed since capture start"}),
		bytes:     prometheus.NewGauge(prometheus.GaugeOpts{Name: "tsnobs_bytes_total", Help: "Bytes observed since capture start"}),
		tsnFrames: prometheus.NewGauge(prometheus.GaugeOpts{Name: "tsnobs_tsn_frames_total", Help: "TSN-classified frames observed"}),
		ptpFrames: prometheus.NewGauge(prometheus.GaugeOpts{Name: "tsnobs_ptp_frames_total", Help: "PTP frames observed"}),
		nodeCount: prometheus.NewGauge(prometheus.GaugeOpts{Name: "tsnobs_topology_nodes", Help: "Distinct nodes in the topology graph"}),
		linkCount: prometheus.NewGauge(prometheus.GaugeOpts{Name: "tsnobs_topology_links", Help: "Distinct links in the topology graph"}),
	}
	registry.MustRegister(e.packets, e.bytes, e.tsnFrames, e.ptpFrames, e.nodeCount, e.linkCount)
	return e
}

func (e *metricsExporter) serve(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(e.registry, promhttp.HandlerOpts{}))
	log.Infof("serving metrics on %s/metrics", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Errorf("metrics server stopped: %v", err)
	}
}

func (e *metricsExporter) update(packets, bytes, tsn, ptp uint64, nodes, links int) {
	e.packets.Set(float64(packets))
	e.bytes.Set(float64(bytes))
	e.tsnFrames.Set(float64(tsn))
	e.ptpFrames.Set(float64(ptp))
	e.nodeCount.Set(float64(nodes))
	e.linkCount.Set(float64(links))
}
