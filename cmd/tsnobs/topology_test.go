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
	"testing"

	"github.com/hwkim3330/tsnobs/topology"
)

func TestPrintNodesDoesNotPanicOnEmpty(t *testing.T) {
	printNodes(nil)
}

func TestPrintNodesWithGrandmasterDoesNotPanic(t *testing.T) {
	nodes := []topology.Node{
		{MAC: "aa:bb:cc:dd:ee:ff", Type: topology.NodePtpGrandmaster, TSNCapable: true},
		{MAC: "11:22:33:44:55:66", Type: topology.NodeUnknown},
	}
	printNodes(nodes)
}

func TestPrintLinksDoesNotPanicOnEmpty(t *testing.T) {
	printLinks(nil)
}
