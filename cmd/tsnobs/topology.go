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
	"github.com/hwkim3330/tsnobs/topology"
)

var topologySnapshotPath string

var topologyCmd = &cobra.Command{
	Use:   "topology",
	Short: "Print the nodes and links from a running observe command's state snapshot",
	Run:   runTopologyCmd,
}

func init() {
	RootCmd.AddCommand(topologyCmd)
	topologyCmd.Flags().StringVar(&topologySnapshotPath, "snapshot-path", "", "path written by 'tsnobs observe --snapshot-path'")
	topologyCmd.MarkFlagRequired("snapshot-path")
}

// printNodes renders a topology snapshot as a table, highlighting PTP
// grandmasters and TSN-capable nodes.
func printNodes(nodes []topology.Node) {
	table := tablewriter.NewWriter(os.Stdout)
	table.SetColWidth(24)
	table.SetHeader([]string{"mac", "type", "vendor", "ips", "tsn", "ptp role"})

	for _, n := range nodes {
		tsnCol := "-"
		if n.TSNCapable {
			tsnCol = color.GreenString("yes")
		}
		typeCol := n.Type.String()
		if n.Type == topology.NodePtpGrandmaster {
			typeCol = color.YellowString(typeCol)
		}
		table.Append([]string{
			n.MAC, typeCol, n.Vendor, fmt.Sprintf("%v", n.IPs), tsnCol, n.PTPRole.String(),
		})
	}
	table.Render()
}

func printLinks(links []topology.Link) {
	table := tablewriter.NewWriter(os.Stdout)
	table.SetColWidth(24)
	table.SetHeader([]string{"src", "dst", "packets", "bytes"})
	for _, l := range links {
		table.Append([]string{
			l.Src, l.Dst,
			fmt.Sprintf("%d", l.Packets), fmt.Sprintf("%d", l.Bytes),
		})
	}
	table.Render()
}

func runTopologyCmd(cmd *cobra.Command, args []string) {
	ConfigureVerbosity()

	snap, err := engine.ReadSnapshot(topologySnapshotPath)
	if err != nil {
		log.Fatalf("failed to read snapshot: %v", err)
	}

	fmt.Printf("snapshot generated %s\n", snap.Generated.Format("15:04:05"))
	fmt.Printf("%d nodes, %d links, %d TSN-capable\n\n", snap.Topology.NodeCount, snap.Topology.LinkCount, snap.Topology.TSNNodeCount)
	printNodes(snap.Nodes)
	fmt.Println()
	printLinks(snap.Links)
}
