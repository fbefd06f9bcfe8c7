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
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/shirou/gopsutil/net"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var interfacesCmd = &cobra.Command{
	Use:   "interfaces",
	Short: "List network interfaces available as an observe --interface target",
	Run:   runInterfacesCmd,
}

func init() {
	RootCmd.AddCommand(interfacesCmd)
}

func runInterfacesCmd(cmd *cobra.Command, args []string) {
	ConfigureVerbosity()

	ifaces, err := net.Interfaces()
	if err != nil {
		log.Fatalf("failed to enumerate interfaces: %v", err)
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.SetColWidth(24)
	table.SetHeader([]string{"name", "mac", "flags", "addrs"})
	for _, iface := range ifaces {
		addrs := make([]string, 0, len(iface.Addrs))
		for _, a := range iface.Addrs {
			addrs = append(addrs, a.Addr)
		}
		table.Append([]string{
			iface.Name, iface.HardwareAddr,
			strings.Join(iface.Flags, ","),
			strings.Join(addrs, ","),
		})
	}
	table.Render()
	fmt.Printf("\n%d interfaces\n", len(ifaces))
}
