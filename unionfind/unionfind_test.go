package unionfind

import (
	"fmt"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/require"
)

func add(a, b float64) float64 { return a + b }

func TestUnify(t *testing.T) {
	t.Parallel()
	s := New(add)
	for i := 0; i < 6; i++ {
		require.Equal(t, i, s.AddNode(float64(i)))
	}

	s.Unify(0, 1)
	s.Unify(2, 3)
	require.Equal(t, s.Find(0), s.Find(1))
	require.Equal(t, s.Find(2), s.Find(3))
	require.NotEqual(t, s.Find(0), s.Find(2))
	require.NotEqual(t, s.Find(4), s.Find(5))

	// Unifying within the same cluster is a no-op.
	s.Unify(1, 0)
	s.Unify(0, 3)
	require.Equal(t, s.Find(1), s.Find(3))

	rng := rand.New(rand.NewPCG(0, 1))
	s.Clusterize(rng)
	require.Equal(t, 3, s.NumClusters())
	require.Equal(t, 4, s.ClusterSize(s.ClusterID(0)))
	require.Equal(t, 1, s.ClusterSize(s.ClusterID(4)))
	// The payload of a cluster is the sum over its merge history.
	require.Equal(t, 0.0+1+2+3, s.ClusterPayload(s.ClusterID(3)))
	require.Equal(t, 5.0, s.ClusterPayload(s.ClusterID(5)))
}

// TestClusterize checks that after Clusterize every node resolves to its
// root in one step, that cluster ids are stable under repeated calls, and
// that flips are ±1.
func TestClusterize(t *testing.T) {
	t.Parallel()
	rng := rand.New(rand.NewPCG(42, 43))
	s := New(add)
	const n = 1000
	for i := 0; i < n; i++ {
		s.AddNode(1)
	}
	for i := 0; i < n; i++ {
		s.Unify(rng.IntN(n), rng.IntN(n))
	}

	s.Clusterize(rng)
	ids := make([]int, n)
	sizeSum := 0
	for c := 0; c < s.NumClusters(); c++ {
		sizeSum += s.ClusterSize(c)
		f := s.ClusterFlip(c)
		if f != 1 && f != -1 {
			t.Fatalf("flip %d", f)
		}
	}
	require.Equal(t, n, sizeSum)
	for i := 0; i < n; i++ {
		ids[i] = s.ClusterID(i)
	}

	s.Clusterize(rng)
	for i := 0; i < n; i++ {
		require.Equal(t, ids[i], s.ClusterID(i), fmt.Sprintf("node %d", i))
	}
}

// naive is the reference quadratic disjoint-set implementation.
type naive struct {
	id []int
}

func (r *naive) add() {
	r.id = append(r.id, len(r.id))
}

func (r *naive) unify(a, b int) {
	ra, rb := r.id[a], r.id[b]
	if ra == rb {
		return
	}
	for i := range r.id {
		if r.id[i] == rb {
			r.id[i] = ra
		}
	}
}

func (r *naive) connected(a, b int) bool { return r.id[a] == r.id[b] }

// TestTorture replays a long random operation sequence against the
// reference quadratic implementation.
func TestTorture(t *testing.T) {
	t.Parallel()
	rng := rand.New(rand.NewPCG(7, 8))
	s := New(add)
	ref := &naive{}

	const ops = 100000
	for i := 0; i < ops; i++ {
		switch {
		case len(ref.id) < 2 || rng.Float64() < 0.2:
			s.AddNode(0)
			ref.add()
		default:
			a, b := rng.IntN(len(ref.id)), rng.IntN(len(ref.id))
			s.Unify(a, b)
			ref.unify(a, b)
		}

		if i%1000 == 0 {
			a, b := rng.IntN(len(ref.id)), rng.IntN(len(ref.id))
			if got, want := s.Find(a) == s.Find(b), ref.connected(a, b); got != want {
				t.Fatalf("op %d: connected(%d, %d) = %v, expected %v", i, a, b, got, want)
			}
		}
	}

	// The final partitions must agree exactly.
	n := len(ref.id)
	for i := 1; i < n; i++ {
		a, b := rng.IntN(n), rng.IntN(n)
		if got, want := s.Find(a) == s.Find(b), ref.connected(a, b); got != want {
			t.Fatalf("connected(%d, %d) = %v, expected %v", a, b, got, want)
		}
	}

	// Cluster sizes agree with the reference partition.
	rng2 := rand.New(rand.NewPCG(9, 10))
	s.Clusterize(rng2)
	refSize := make(map[int]int)
	for i := 0; i < n; i++ {
		refSize[ref.id[i]]++
	}
	for i := 0; i < n; i++ {
		require.Equal(t, refSize[ref.id[i]], s.ClusterSize(s.ClusterID(i)))
	}
}

func TestReset(t *testing.T) {
	t.Parallel()
	s := New(add)
	rng := rand.New(rand.NewPCG(1, 2))
	for sweep := 0; sweep < 3; sweep++ {
		s.Reset()
		for i := 0; i < 10; i++ {
			s.AddNode(1)
		}
		s.Unify(0, 9)
		s.Clusterize(rng)
		require.Equal(t, 9, s.NumClusters())
		require.Equal(t, 2.0, s.ClusterPayload(s.ClusterID(9)))
	}
}
