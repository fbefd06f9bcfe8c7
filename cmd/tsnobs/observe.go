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

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/hwkim3330/tsnobs/engine"
)

var (
	observeIface       string
	observePromiscuous bool
	observeSnapLen     int
	observeBufferMB    int
	observeMetricsAddr string
	observeConfigFile  string
	observeCBSAlert    string
	observeSnapshotOut string
)

var observeCmd = &cobra.Command{
	Use:   "observe",
	Short: "Capture and analyze live traffic on a network interface",
	Run:   runObserveCmd,
}

func init() {
	RootCmd.AddCommand(observeCmd)
	flags := observeCmd.Flags()
	flags.StringVarP(&observeIface, "interface", "i", "eth0", "Network interface to capture on")
	flags.BoolVar(&observePromiscuous, "promiscuous", true, "Capture in promiscuous mode")
	flags.IntVar(&observeSnapLen, "snaplen", 65535, "Capture snapshot length")
	flags.IntVar(&observeBufferMB, "buffer-size", 64, "Capture ring buffer size, in MB")
	flags.StringVar(&observeMetricsAddr, "metrics-addr", ":9108", "Address to serve Prometheus metrics on, empty to disable")
	flags.StringVar(&observeConfigFile, "config", "", "Path to a YAML config file overriding these flags")
	flags.StringVar(&observeCBSAlert, "cbs-alert", "", "govaluate expression evaluated against bandwidth_mbps per traffic class")
	flags.StringVar(&observeSnapshotOut, "snapshot-path", "", "write a periodic JSON state snapshot here for 'tsnobs stats'/'tsnobs topology' to read")
}

func runObserveCmd(cmd *cobra.Command, args []string) {
	ConfigureVerbosity()

	var cfg engine.Config
	if observeConfigFile != "" {
		loaded, err := engine.LoadConfig(observeConfigFile, observeIface)
		if err != nil {
			log.Fatalf("failed to load config: %v", err)
		}
		cfg = loaded
	} else {
		cfg = engine.DefaultConfig(observeIface)
		cfg.Promiscuous = observePromiscuous
		cfg.SnapshotLen = observeSnapLen
		cfg.BufferSizeMB = observeBufferMB
		cfg.MetricsAddr = observeMetricsAddr
		cfg.CBSAlertExpr = observeCBSAlert
	}
	if observeSnapshotOut != "" {
		cfg.SnapshotPath = observeSnapshotOut
	}

	e, err := engine.New(cfg)
	if err != nil {
		log.Fatalf("failed to build engine: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Info("shutting down")
		cancel()
	}()

	log.Infof("observing on %s", cfg.Interface)
	if err := e.Run(ctx); err != nil {
		log.Fatalf("engine stopped: %v", err)
	}
}
