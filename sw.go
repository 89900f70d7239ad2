package spinmc

import (
	"math"
	"math/rand/v2"

	"github.com/pkg/errors"

	"github.com/fumin/spinmc/lattice"
	"github.com/fumin/spinmc/unionfind"
)

// SweepInfo is the per-sweep byproduct of a cluster update,
// consumed by the improved estimators.
type SweepInfo interface {
	sweepInfo()
}

// SWInfo is the cluster decomposition produced by a Swendsen-Wang or Wolff
// sweep. Cluster sizes, flips and signed projection sums are read from UF.
type SWInfo struct {
	UF *unionfind.Set[float64]
	// Activated counts the activated bonds per bond type.
	Activated []int
	// AxisIndex is the reflection axis of a Clock sweep.
	AxisIndex int
	// Axis is the reflection direction of an XY sweep, as an angle in [0,1).
	Axis float64
	// SingleCluster marks a Wolff sweep, whose decomposition does not
	// produce usable aggregate statistics.
	SingleCluster bool
	// Degenerate counts clamped bond probabilities.
	Degenerate int
}

func (*SWInfo) sweepInfo() {}

// Sweep performs one full Monte Carlo update: Swendsen-Wang for classical
// models, a loop update for quantum models.
func Sweep(m Model, T float64, cp Couplings) (SweepInfo, error) {
	switch m := m.(type) {
	case *Ising:
		return m.sweepSW(T, cp)
	case *Potts:
		return m.sweepSW(T, cp)
	case *Clock:
		return m.sweepSW(T, cp)
	case *XY:
		return m.sweepSW(T, cp)
	case *QuantumXXZ:
		return m.sweepLoop(T, cp)
	case *TFIsing:
		return m.QuantumXXZ.sweepLoop(T, tfiCouplings(cp))
	}
	return nil, errors.Wrapf(ErrInvalidParameter, "model %T", m)
}

// WolffSweep performs one single-cluster update. It applies to classical
// models only; quantum models are updated by Sweep.
func WolffSweep(m Model, T float64, cp Couplings) (SweepInfo, error) {
	switch m := m.(type) {
	case *Ising:
		return m.sweepWolff(T, cp)
	case *Potts:
		return m.sweepWolff(T, cp)
	case *Clock:
		return m.sweepWolff(T, cp)
	case *XY:
		return m.sweepWolff(T, cp)
	}
	return nil, errors.Wrapf(ErrInvalidParameter, "Wolff update on model %T", m)
}

// tfiCouplings maps the transverse field Ising couplings onto the XXZ
// representation: ferromagnetic J > 0 becomes Jz = -J with Jxy = 0.
func tfiCouplings(cp Couplings) Couplings {
	js := make([]float64, len(cp.Js))
	for i, j := range cp.Js {
		js[i] = -math.Abs(j)
	}
	return Couplings{Js: js, Jxys: make([]float64, len(cp.Js)), Gs: cp.Gs}
}

// bondProb returns 1-exp(-x) clamped to [0,1].
// x <= 0 means the bond is not satisfied and never activates.
func bondProb(x float64, degen *int) float64 {
	if !(x > 0) {
		if math.IsNaN(x) {
			*degen++
		}
		return 0
	}
	p := -math.Expm1(-x)
	if p > 1 || math.IsNaN(p) {
		*degen++
		return 1
	}
	return p
}

// buildClusters runs the Swendsen-Wang bond activation over the projected
// spins in sc.proj and decomposes the lattice into clusters.
func buildClusters(lat *lattice.Lattice, rng *rand.Rand, sc *swScratch, beta float64, js []float64) {
	uf := sc.uf
	uf.Reset()
	for s := 0; s < lat.NumSites(); s++ {
		uf.AddNode(sc.proj[s])
	}
	for t := range sc.activated {
		sc.activated[t] = 0
	}

	for b := 0; b < lat.NumBonds(); b++ {
		t := lat.BondType(b)
		src, tgt := lat.Source(b), lat.Target(b)
		p := bondProb(2*beta*js[t]*sc.proj[src]*sc.proj[tgt], &sc.degen)
		if rng.Float64() < p {
			uf.Unify(src, tgt)
			sc.activated[t]++
		}
	}
	uf.Clusterize(rng)
}

// growCluster grows a single Wolff cluster from a uniformly chosen seed site
// over the projected spins. The grown cluster is the one non-singleton
// cluster of sc.uf; the returned mask marks its sites.
func growCluster(lat *lattice.Lattice, rng *rand.Rand, sc *swScratch, beta float64, js []float64) []bool {
	uf := sc.uf
	uf.Reset()
	for s := 0; s < lat.NumSites(); s++ {
		uf.AddNode(sc.proj[s])
	}
	for t := range sc.activated {
		sc.activated[t] = 0
	}
	if sc.visited == nil || len(sc.visited) < lat.NumSites() {
		sc.visited = make([]bool, lat.NumSites())
	}
	visited := sc.visited[:lat.NumSites()]
	for i := range visited {
		visited[i] = false
	}

	seed := rng.IntN(lat.NumSites())
	visited[seed] = true
	sc.stack = append(sc.stack[:0], int32(seed))
	for len(sc.stack) > 0 {
		s := int(sc.stack[len(sc.stack)-1])
		sc.stack = sc.stack[:len(sc.stack)-1]
		neighbors, bonds := lat.Neighbors(s)
		for i, nb := range neighbors {
			n := int(nb)
			if visited[n] {
				continue
			}
			t := lat.BondType(int(bonds[i]))
			p := bondProb(2*beta*js[t]*sc.proj[s]*sc.proj[n], &sc.degen)
			if rng.Float64() < p {
				visited[n] = true
				uf.Unify(s, n)
				sc.activated[t]++
				sc.stack = append(sc.stack, nb)
			}
		}
	}
	uf.Clusterize(rng)
	return visited
}

func (m *Ising) sweepSW(T float64, cp Couplings) (*SWInfo, error) {
	sc := &m.scratch
	for s, spin := range m.Spins {
		sc.proj[s] = float64(spin)
	}
	buildClusters(m.Lat, m.rng, sc, 1/T, cp.Js)

	for s := range m.Spins {
		if sc.uf.ClusterFlip(sc.uf.ClusterID(s)) < 0 {
			m.Spins[s] = -m.Spins[s]
		}
	}
	return m.swInfo(), nil
}

func (m *Ising) sweepWolff(T float64, cp Couplings) (*SWInfo, error) {
	sc := &m.scratch
	for s, spin := range m.Spins {
		sc.proj[s] = float64(spin)
	}
	visited := growCluster(m.Lat, m.rng, sc, 1/T, cp.Js)

	for s := range m.Spins {
		if visited[s] {
			m.Spins[s] = -m.Spins[s]
		}
	}
	info := m.swInfo()
	info.SingleCluster = true
	return info, nil
}

func (m *Ising) swInfo() *SWInfo {
	sc := &m.scratch
	info := &SWInfo{UF: sc.uf, Activated: sc.activated, Degenerate: sc.degen}
	sc.degen = 0
	return info
}

func (m *Potts) sweepSW(T float64, cp Couplings) (*SWInfo, error) {
	sc := &m.scratch
	beta := 1 / T
	uf := sc.uf
	uf.Reset()
	lat := m.Lat
	for s := 0; s < lat.NumSites(); s++ {
		uf.AddNode(1)
	}
	for t := range sc.activated {
		sc.activated[t] = 0
	}

	for b := 0; b < lat.NumBonds(); b++ {
		t := lat.BondType(b)
		if cp.Js[t] < 0 {
			return nil, errors.Wrapf(ErrInvalidParameter, "antiferromagnetic Potts coupling %f", cp.Js[t])
		}
		src, tgt := lat.Source(b), lat.Target(b)
		if m.Spins[src] != m.Spins[tgt] {
			continue
		}
		p := bondProb(beta*cp.Js[t], &sc.degen)
		if m.rng.Float64() < p {
			uf.Unify(src, tgt)
			sc.activated[t]++
		}
	}
	uf.Clusterize(m.rng)

	// Remap every cluster to a fresh uniformly drawn state.
	states := sc.stack[:0]
	for c := 0; c < uf.NumClusters(); c++ {
		states = append(states, int32(m.rng.IntN(m.Q)))
	}
	sc.stack = states
	for s := range m.Spins {
		m.Spins[s] = int8(states[uf.ClusterID(s)])
	}

	info := &SWInfo{UF: uf, Activated: sc.activated, Degenerate: sc.degen}
	sc.degen = 0
	return info, nil
}

func (m *Potts) sweepWolff(T float64, cp Couplings) (*SWInfo, error) {
	sc := &m.scratch
	beta := 1 / T
	uf := sc.uf
	uf.Reset()
	lat := m.Lat
	for s := 0; s < lat.NumSites(); s++ {
		uf.AddNode(1)
	}
	for t := range sc.activated {
		sc.activated[t] = 0
	}
	if sc.visited == nil || len(sc.visited) < lat.NumSites() {
		sc.visited = make([]bool, lat.NumSites())
	}
	visited := sc.visited[:lat.NumSites()]
	for i := range visited {
		visited[i] = false
	}

	seed := m.rng.IntN(lat.NumSites())
	visited[seed] = true
	sc.stack = append(sc.stack[:0], int32(seed))
	for len(sc.stack) > 0 {
		s := int(sc.stack[len(sc.stack)-1])
		sc.stack = sc.stack[:len(sc.stack)-1]
		neighbors, bonds := lat.Neighbors(s)
		for i, nb := range neighbors {
			n := int(nb)
			if visited[n] || m.Spins[n] != m.Spins[s] {
				continue
			}
			t := lat.BondType(int(bonds[i]))
			if cp.Js[t] < 0 {
				return nil, errors.Wrapf(ErrInvalidParameter, "antiferromagnetic Potts coupling %f", cp.Js[t])
			}
			p := bondProb(beta*cp.Js[t], &sc.degen)
			if m.rng.Float64() < p {
				visited[n] = true
				uf.Unify(s, n)
				sc.activated[t]++
				sc.stack = append(sc.stack, nb)
			}
		}
	}
	uf.Clusterize(m.rng)

	// Remap the grown cluster to a fresh state different from the seed's.
	old := m.Spins[seed]
	next := int8(m.rng.IntN(m.Q - 1))
	if next >= old {
		next++
	}
	for s := range m.Spins {
		if visited[s] {
			m.Spins[s] = next
		}
	}

	info := &SWInfo{UF: uf, Activated: sc.activated, SingleCluster: true, Degenerate: sc.degen}
	sc.degen = 0
	return info, nil
}

// clockAxis projects the clock spins onto the reflection axis m.
// The projection of spin k is a half-shifted sine, -sin(pi*(2k-m)/Q),
// and the reflection maps k to (m-k) mod Q.
func (m *Clock) clockAxis(axis int) {
	q := m.Q
	for s, k := range m.Spins {
		j := (2*int(k) - axis) % (2 * q)
		if j < 0 {
			j += 2 * q
		}
		m.scratch.proj[s] = -m.sinHalf[j]
	}
}

func (m *Clock) sweepSW(T float64, cp Couplings) (*SWInfo, error) {
	axis := m.rng.IntN(m.Q)
	m.clockAxis(axis)
	sc := &m.scratch
	buildClusters(m.Lat, m.rng, sc, 1/T, cp.Js)

	for s := range m.Spins {
		if sc.uf.ClusterFlip(sc.uf.ClusterID(s)) < 0 {
			k := (axis - int(m.Spins[s])) % m.Q
			if k < 0 {
				k += m.Q
			}
			m.Spins[s] = int8(k)
		}
	}
	info := &SWInfo{UF: sc.uf, Activated: sc.activated, AxisIndex: axis, Degenerate: sc.degen}
	sc.degen = 0
	return info, nil
}

func (m *Clock) sweepWolff(T float64, cp Couplings) (*SWInfo, error) {
	axis := m.rng.IntN(m.Q)
	m.clockAxis(axis)
	sc := &m.scratch
	visited := growCluster(m.Lat, m.rng, sc, 1/T, cp.Js)

	for s := range m.Spins {
		if visited[s] {
			k := (axis - int(m.Spins[s])) % m.Q
			if k < 0 {
				k += m.Q
			}
			m.Spins[s] = int8(k)
		}
	}
	info := &SWInfo{UF: sc.uf, Activated: sc.activated, AxisIndex: axis, SingleCluster: true, Degenerate: sc.degen}
	sc.degen = 0
	return info, nil
}

// xyAxis projects the XY spins onto the reflection direction at angle
// 2*pi*axis. The reflection maps x to 2*axis + 1/2 - x mod 1.
func (m *XY) xyAxis(axis float64) {
	for s, x := range m.Spins {
		m.scratch.proj[s] = math.Cos(2 * math.Pi * (x - axis))
	}
}

func xyReflect(x, axis float64) float64 {
	y := math.Mod(2*axis+0.5-x, 1)
	if y < 0 {
		y++
	}
	return y
}

func (m *XY) sweepSW(T float64, cp Couplings) (*SWInfo, error) {
	axis := m.rng.Float64()
	m.xyAxis(axis)
	sc := &m.scratch
	buildClusters(m.Lat, m.rng, sc, 1/T, cp.Js)

	for s := range m.Spins {
		if sc.uf.ClusterFlip(sc.uf.ClusterID(s)) < 0 {
			m.Spins[s] = xyReflect(m.Spins[s], axis)
		}
	}
	info := &SWInfo{UF: sc.uf, Activated: sc.activated, Axis: axis, Degenerate: sc.degen}
	sc.degen = 0
	return info, nil
}

func (m *XY) sweepWolff(T float64, cp Couplings) (*SWInfo, error) {
	axis := m.rng.Float64()
	m.xyAxis(axis)
	sc := &m.scratch
	visited := growCluster(m.Lat, m.rng, sc, 1/T, cp.Js)

	for s := range m.Spins {
		if visited[s] {
			m.Spins[s] = xyReflect(m.Spins[s], axis)
		}
	}
	info := &SWInfo{UF: sc.uf, Activated: sc.activated, Axis: axis, SingleCluster: true, Degenerate: sc.degen}
	sc.degen = 0
	return info, nil
}
