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
	"fmt"
	"os"
	"time"

	yaml "gopkg.in/yaml.v2"
)

// Config is the engine's static configuration, loadable from a YAML file
// or populated directly from CLI flags.
type Config struct {
	Interface    string `yaml:"interface"`
	Promiscuous  bool   `yaml:"promiscuous"`
	SnapshotLen  int    `yaml:"snapshot_len"`
	BufferSizeMB int    `yaml:"buffer_size_mb"`

	StoreCapacity int `yaml:"store_capacity"`

	MetricsAddr string `yaml:"metrics_addr"`
	LogLevel    string `yaml:"log_level"`

	CBSAlertExpr string `yaml:"cbs_alert_expr"`

	HWEchoTarget     string `yaml:"hwecho_target"`
	UDPEchoTarget    string `yaml:"udpecho_target"`
	ThroughputTarget string `yaml:"throughput_target"`
	ICMPTarget       string `yaml:"icmp_target"`
	ProbeDSCP        int    `yaml:"probe_dscp"`

	// SnapshotPath, when non-empty, is where Run periodically writes a
	// JSON snapshot of topology and analyzer state for offline display
	// by the CLI's stats/topology subcommands.
	SnapshotPath     string        `yaml:"snapshot_path"`
	SnapshotInterval time.Duration `yaml:"snapshot_interval"`
}

// DefaultConfig returns a Config with reasonable defaults for observing
// traffic on iface.
func DefaultConfig(iface string) Config {
	return Config{
		Interface:     iface,
		Promiscuous:   true,
		SnapshotLen:   65535,
		BufferSizeMB:  64,
		StoreCapacity: 100_000,
		MetricsAddr:   ":9108",
		LogLevel:      "info",

		SnapshotInterval: 5 * time.Second,
	}
}

// LoadConfig reads and parses a YAML config file, starting from
// DefaultConfig(iface) so unset fields keep sane defaults.
func LoadConfig(path, iface string) (Config, error) {
	cfg := DefaultConfig(iface)
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("engine: read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("engine: parse config: %w", err)
	}
	return cfg, nil
}
