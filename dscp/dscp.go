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

// Package dscp sets the DSCP/TClass marking on a socket's outgoing
// packets, so active probes can be sent at a chosen traffic class.
package dscp

import (
	"net"

	"golang.org/x/sys/unix"
)

// Enable sets the DSCP (IPv4 ToS / IPv6 TClass) field on a connection's
// outgoing packets, selecting the IPv4 or IPv6 socket option based on
// localAddr's family.
func Enable(fd int, localAddr net.IP, dscp int) error {
	if localAddr.To4() == nil {
		return unix.SetsockoptInt(fd, unix.IPPROTO_IPV6, unix.IPV6_TCLASS, dscp<<2)
	}
	return unix.SetsockoptInt(fd, unix.IPPROTO_IP, unix.IP_TOS, dscp<<2)
}
