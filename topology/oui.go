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

package topology

import "strings"

// ouiVendors is a built-in MAC-vendor-prefix table, grounded on the OUI
// database carried by original_source/src/topology/mod.rs. Keys are
// lowercase "xx:xx:xx" prefixes.
var ouiVendors = map[string]string{
	"00:1b:19": "Microchip",
	"00:1c:73": "Intel",
	"00:50:56": "VMware",
	"00:0c:29": "VMware",
	"00:15:5d": "Microsoft Hyper-V",
	"08:00:27": "VirtualBox",
	"00:1c:b3": "Apple",
	"3c:22:fb": "Apple",
	"00:26:b0": "Apple",
	"00:00:0c": "Cisco",
	"00:1b:d4": "Cisco",
	"00:05:85": "Juniper",
	"74:83:c2": "Juniper",
	"44:4c:a8": "Arista",
	"00:1f:29": "Hewlett Packard",
	"00:25:b3": "Hewlett Packard",
	"24:de:c6": "Aruba Networks",
	"94:b4:0f": "Aruba Networks",
	"00:50:f2": "Microsoft",
	"52:54:00": "Realtek/QEMU",
	"01:00:5e": "IPv4 Multicast",
	"33:33:00": "IPv6 Multicast",
	"00:00:5e": "IANA VRRP/HSRP",
	"01:1b:19": "PTP/IEEE1588",
	"01:80:c2": "IEEE 802.1 Protocols",
	"00:1a:8c": "Samsung",
	"00:0a:f4": "Texas Instruments",
	"00:04:9f": "NXP/Freescale",
	"00:50:43": "Marvell",
	"00:19:99": "Renesas",
}

// lookupVendor matches the lowercase 8-character ("xx:xx:xx") OUI prefix
// of a MAC against the built-in table.
func lookupVendor(mac string) string {
	lower := strings.ToLower(mac)
	if len(lower) < 8 {
		return ""
	}
	prefix := lower[:8]
	return ouiVendors[prefix]
}
