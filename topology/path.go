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

import "container/heap"

// ShortestPath runs Dijkstra with unit hop weights over the undirected
// neighbor view (a link in either direction counts as adjacency) and
// returns the full ordered path from src to dst, reconstructed via
// predecessor tracking. ok is false when no path exists.
//
// This replaces the teacher-original's get_path, which returned only the
// two endpoints — see DESIGN.md's Open Question decision.
func (b *Builder) ShortestPath(src, dst string) ([]string, bool) {
	b.mu.RLock()
	adjacency := b.undirectedAdjacency()
	b.mu.RUnlock()

	if _, ok := adjacency[src]; !ok {
		return nil, false
	}
	if src == dst {
		return []string{src}, true
	}

	dist := map[string]int{src: 0}
	prev := map[string]string{}
	visited := map[string]bool{}

	pq := &priorityQueue{{node: src, dist: 0}}
	heap.Init(pq)

	for pq.Len() > 0 {
		cur := heap.Pop(pq).(pqItem)
		if visited[cur.node] {
			continue
		}
		visited[cur.node] = true
		if cur.node == dst {
			break
		}
		for _, next := range adjacency[cur.node] {
			nd := dist[cur.node] + 1
			if existing, ok := dist[next]; !ok || nd < existing {
				dist[next] = nd
				prev[next] = cur.node
				heap.Push(pq, pqItem{node: next, dist: nd})
			}
		}
	}

	if _, ok := dist[dst]; !ok {
		return nil, false
	}

	var path []string
	for at := dst; ; {
		path = append([]string{at}, path...)
		if at == src {
			break
		}
		at = prev[at]
	}
	return path, true
}

func (b *Builder) undirectedAdjacency() map[string][]string {
	adj := make(map[string][]string)
	for mac := range b.nodes {
		adj[mac] = nil
	}
	for key := range b.links {
		adj[key.Src] = append(adj[key.Src], key.Dst)
		adj[key.Dst] = append(adj[key.Dst], key.Src)
	}
	return adj
}

type pqItem struct {
	node string
	dist int
}

type priorityQueue []pqItem

func (pq priorityQueue) Len() int            { return len(pq) }
func (pq priorityQueue) Less(i, j int) bool  { return pq[i].dist < pq[j].dist }
func (pq priorityQueue) Swap(i, j int)       { pq[i], pq[j] = pq[j], pq[i] }
func (pq *priorityQueue) Push(x any)         { *pq = append(*pq, x.(pqItem)) }
func (pq *priorityQueue) Pop() any {
	old := *pq
	n := len(old)
	item := old[n-1]
	*pq = old[:n-1]
	return item
}
