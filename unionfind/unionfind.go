// Package unionfind implements a disjoint-set forest whose roots carry an
// aggregated payload, as used by cluster Monte Carlo updates.
//
// Payloads are combined by a merge function fixed at construction time.
// After Clusterize, every node resolves to its root in one step, clusters are
// numbered 0..NumClusters-1 in order of first appearance, and each cluster
// carries an independently drawn ±1 flip.
package unionfind

import (
	"fmt"
	"math/rand/v2"
)

type Set[T any] struct {
	merge   func(T, T) T
	parent  []int32
	size    []int32
	payload []T

	clustered bool
	clusterID []int32
	flip      []int8
	csize     []int32
	cpayload  []T
}

func New[T any](merge func(T, T) T) *Set[T] {
	return &Set[T]{merge: merge}
}

// Reset empties the set while keeping allocated capacity for reuse.
func (s *Set[T]) Reset() {
	s.parent = s.parent[:0]
	s.size = s.size[:0]
	s.payload = s.payload[:0]
	s.clustered = false
	s.clusterID = s.clusterID[:0]
	s.flip = s.flip[:0]
	s.csize = s.csize[:0]
	s.cpayload = s.cpayload[:0]
}

// AddNode appends a singleton node with the given payload and returns its id.
func (s *Set[T]) AddNode(payload T) int {
	id := int32(len(s.parent))
	s.parent = append(s.parent, id)
	s.size = append(s.size, 1)
	s.payload = append(s.payload, payload)
	return int(id)
}

func (s *Set[T]) NumNodes() int { return len(s.parent) }

// Find returns the root of x, compressing the path by halving.
func (s *Set[T]) Find(x int) int {
	i := int32(x)
	for s.parent[i] != i {
		s.parent[i] = s.parent[s.parent[i]]
		i = s.parent[i]
	}
	return int(i)
}

// Unify merges the sets containing a and b by size,
// combining the root payloads. Merging a set with itself is a no-op.
func (s *Set[T]) Unify(a, b int) {
	ra, rb := int32(s.Find(a)), int32(s.Find(b))
	if ra == rb {
		return
	}
	if s.size[ra] < s.size[rb] {
		ra, rb = rb, ra
	}
	s.parent[rb] = ra
	s.size[ra] += s.size[rb]
	s.payload[ra] = s.merge(s.payload[ra], s.payload[rb])
}

// Clusterize compresses every node onto its root, numbers the clusters in
// node order, and draws an independent ±1 flip per cluster.
func (s *Set[T]) Clusterize(rng *rand.Rand) {
	n := len(s.parent)
	s.clusterID = s.clusterID[:0]
	s.flip = s.flip[:0]
	s.csize = s.csize[:0]
	s.cpayload = s.cpayload[:0]
	for i := 0; i < n; i++ {
		s.clusterID = append(s.clusterID, -1)
	}

	for i := 0; i < n; i++ {
		root := int32(s.Find(i))
		s.parent[i] = root
		if s.clusterID[root] < 0 {
			s.clusterID[root] = int32(len(s.csize))
			s.csize = append(s.csize, s.size[root])
			s.cpayload = append(s.cpayload, s.payload[root])
			flip := int8(1)
			if rng.IntN(2) == 0 {
				flip = -1
			}
			s.flip = append(s.flip, flip)
		}
		s.clusterID[i] = s.clusterID[root]
	}
	s.clustered = true
}

func (s *Set[T]) NumClusters() int {
	s.mustClustered()
	return len(s.csize)
}

// ClusterID returns the 0-based cluster id of node x.
func (s *Set[T]) ClusterID(x int) int {
	s.mustClustered()
	return int(s.clusterID[x])
}

func (s *Set[T]) ClusterSize(c int) int {
	s.mustClustered()
	return int(s.csize[c])
}

// ClusterFlip returns the ±1 flip drawn for cluster c.
func (s *Set[T]) ClusterFlip(c int) int {
	s.mustClustered()
	return int(s.flip[c])
}

// ClusterPayload returns the consolidated payload of cluster c.
func (s *Set[T]) ClusterPayload(c int) T {
	s.mustClustered()
	return s.cpayload[c]
}

func (s *Set[T]) mustClustered() {
	if !s.clustered {
		panic(fmt.Sprintf("not clustered, %d nodes", len(s.parent)))
	}
}
