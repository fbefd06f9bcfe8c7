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
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/hwkim3330/tsnobs/engine"
)

var statsSnapshotPath string

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print CBS/TAS/FRER/PTP analyzer stats from a running observe command's state snapshot",
	Run:   runStatsCmd,
}

func init() {
	RootCmd.AddCommand(statsCmd)
	statsCmd.Flags().StringVar(&statsSnapshotPath, "snapshot-path", "", "path written by 'tsnobs observe --snapshot-path'")
	statsCmd.MarkFlagRequired("snapshot-path")
}

func runStatsCmd(cmd *cobra.Command, args []string) {
	ConfigureVerbosity()

	snap, err := engine.ReadSnapshot(statsSnapshotPath)
	if err != nil {
		log.Fatalf("failed to read snapshot: %v", err)
	}

	bold := func(s string) string { return color.New(color.Bold).Sprint(s) }

	fmt.Println(bold("store"))
	fmt.Printf("packets=%d bytes=%d tsn=%d ptp=%d\n\n", snap.Store.Packets, snap.Store.Bytes, snap.Store.TSNCount, snap.Store.PTPCount)

	fmt.Println(bold("cbs traffic classes"))
	cbsTable := tablewriter.NewWriter(os.Stdout)
	cbsTable.SetColWidth(18)
	cbsTable.SetHeader([]string{"tc", "packets", "bytes", "bandwidth mbps", "max burst"})
	for _, tc := range snap.CBS.TrafficClasses {
		cbsTable.Append([]string{
			fmt.Sprintf("%d", tc.TC),
			fmt.Sprintf("%d", tc.Packets),
			fmt.Sprintf("%d", tc.Bytes),
			fmt.Sprintf("%.3f", tc.BandwidthMbps),
			fmt.Sprintf("%d", tc.MaxBurstSize),
		})
	}
	cbsTable.Render()

	fmt.Println()
	fmt.Println(bold("tas queues"))
	tasTable := tablewriter.NewWriter(os.Stdout)
	tasTable.SetColWidth(18)
	tasTable.SetHeader([]string{"pcp", "packets", "cycle detected", "cycle us"})
	for _, q := range snap.TAS.Queues {
		detected := "-"
		if q.CycleDetected {
			detected = color.GreenString("yes")
		}
		tasTable.Append([]string{
			fmt.Sprintf("%d", q.PCP),
			fmt.Sprintf("%d", q.Packets),
			detected,
			fmt.Sprintf("%.1f", q.CycleTimeUs),
		})
	}
	tasTable.Render()

	fmt.Println()
	fmt.Println(bold("frer streams"))
	frerTable := tablewriter.NewWriter(os.Stdout)
	frerTable.SetColWidth(18)
	frerTable.SetHeader([]string{"stream", "packets", "duplicates", "seq errors", "replication", "elimination %"})
	for _, s := range snap.FRER.Streams {
		seqCol := fmt.Sprintf("%d", s.SequenceErrors)
		if s.SequenceErrors > 0 {
			seqCol = color.RedString(seqCol)
		}
		frerTable.Append([]string{
			s.StreamID,
			fmt.Sprintf("%d", s.Packets),
			fmt.Sprintf("%d", s.Duplicates),
			seqCol,
			fmt.Sprintf("%d", s.ReplicationFactor),
			fmt.Sprintf("%.2f", s.EliminationRatePct),
		})
	}
	frerTable.Render()

	fmt.Println()
	fmt.Println(bold("ptp"))
	gmCol := snap.PTP.GrandmasterID
	if gmCol == "" {
		gmCol = "-"
	}
	fmt.Printf("grandmaster=%s domain=%d sync-interval=%.1fms avg-offset=%.0fns avg-delay=%.0fns\n",
		gmCol, snap.PTP.Domain, snap.PTP.SyncIntervalMs, snap.PTP.AvgOffsetNs, snap.PTP.AvgDelayNs)
}
