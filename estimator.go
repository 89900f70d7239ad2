package spinmc

import (
	"math"

	"github.com/pkg/errors"

	"github.com/fumin/spinmc/lattice"
	"github.com/fumin/spinmc/unionfind"
)

// Obs are the observables of one sweep, as densities per site:
// the first, second and fourth moments of the magnetization,
// and the first and second moments of the energy.
type Obs struct {
	M  float64
	M2 float64
	M4 float64
	E  float64
	E2 float64
}

// ImprovedEstimate computes the sweep observables from the cluster
// decomposition. Moments computed over cluster labels have lower variance
// than the plug-in estimator over spin configurations.
//
// Wolff sweeps produce a single cluster without usable aggregate statistics;
// for those the direct estimator is used instead.
func ImprovedEstimate(m Model, T float64, cp Couplings, info SweepInfo) (Obs, error) {
	if sw, ok := info.(*SWInfo); ok && sw.SingleCluster {
		return Measure(m, T, cp)
	}

	switch m := m.(type) {
	case *Ising:
		sw, ok := info.(*SWInfo)
		if !ok {
			return Obs{}, errors.Wrapf(ErrInternalConsistency, "sweep info %T", info)
		}
		return m.improved(T, cp, sw)
	case *Potts:
		sw, ok := info.(*SWInfo)
		if !ok {
			return Obs{}, errors.Wrapf(ErrInternalConsistency, "sweep info %T", info)
		}
		return m.improved(T, cp, sw)
	case *Clock:
		sw, ok := info.(*SWInfo)
		if !ok {
			return Obs{}, errors.Wrapf(ErrInternalConsistency, "sweep info %T", info)
		}
		return m.improved(T, cp, sw)
	case *XY:
		sw, ok := info.(*SWInfo)
		if !ok {
			return Obs{}, errors.Wrapf(ErrInternalConsistency, "sweep info %T", info)
		}
		return m.improved(T, cp, sw)
	case *QuantumXXZ:
		loop, ok := info.(*LoopInfo)
		if !ok {
			return Obs{}, errors.Wrapf(ErrInternalConsistency, "sweep info %T", info)
		}
		return m.improved(T, cp, loop)
	case *TFIsing:
		loop, ok := info.(*LoopInfo)
		if !ok {
			return Obs{}, errors.Wrapf(ErrInternalConsistency, "sweep info %T", info)
		}
		return m.QuantumXXZ.improved(T, tfiCouplings(cp), loop)
	}
	return Obs{}, errors.Wrapf(ErrInvalidParameter, "model %T", m)
}

// clusterMoments accumulates the magnetization moments over clusters.
// The quartic cross pairs are picked up in a single pass through the
// running second moment.
func clusterMoments(uf *unionfind.Set[float64], n float64) (mm, m2, m4 float64) {
	for c := 0; c < uf.NumClusters(); c++ {
		x := uf.ClusterPayload(c) / n
		s := float64(uf.ClusterFlip(c))
		mm += x * s
		m4 += x*x*x*x + 6*m2*x*x
		m2 += x * x
	}
	return mm, m2, m4
}

// bondEnergy accumulates the energy moments from the activated bond counts.
// The per-type updates are not commutative; the iteration order is fixed by
// the bond type index. e0 is the constant energy shift:
// sum(a_t/2 * numbonds(t)) for Ising, 0 for Potts.
func bondEnergy(lat *lattice.Lattice, beta, e0 float64, as []float64, activated []int) (e, e2 float64) {
	for t, a := range as {
		if a == 0 {
			continue
		}
		A := a / (-math.Expm1(-beta * a))
		n := float64(activated[t])
		e2 += (a-2*e0)*n*A + n*(n-1)*A*A + 2*n*A*e
		e += n * A
	}
	n := float64(lat.NumSites())
	eDen := (e0 - e) / n
	e2Den := e2/(n*n) + (e0/n)*(e0/n)
	return eDen, e2Den
}

func (m *Ising) improved(T float64, cp Couplings, sw *SWInfo) (Obs, error) {
	lat := m.Lat
	n := float64(lat.NumSites())
	var obs Obs
	obs.M, obs.M2, obs.M4 = clusterMoments(sw.UF, n)

	e0 := 0.0
	as := make([]float64, lat.NumBondTypes())
	for t := range as {
		as[t] = 2 * math.Abs(cp.Js[t])
		e0 += math.Abs(cp.Js[t]) * float64(lat.NumBondsOfType(t))
	}
	obs.E, obs.E2 = bondEnergy(lat, 1/T, e0, as, sw.Activated)
	return obs, nil
}

func (m *Potts) improved(T float64, cp Couplings, sw *SWInfo) (Obs, error) {
	lat := m.Lat
	n := float64(lat.NumSites())
	q := float64(m.Q)
	i2 := (q - 1) / (q * q)
	i4 := (q - 1) * ((q-1)*(q-1)*(q-1) + 1) / (q * q * q * q * q)

	var obs Obs
	uf := sw.UF
	for c := 0; c < uf.NumClusters(); c++ {
		x := float64(uf.ClusterSize(c)) / n
		x2 := x * x
		obs.M4 += i4*x2*x2 + 6*obs.M2*i2*x2
		obs.M2 += i2 * x2
	}

	as := make([]float64, lat.NumBondTypes())
	for t := range as {
		as[t] = math.Abs(cp.Js[t])
	}
	obs.E, obs.E2 = bondEnergy(lat, 1/T, 0, as, sw.Activated)
	return obs, nil
}

// improved computes the Clock magnetization moments along the sweep's
// reflection axis from the per-cluster projection sums. No fixed per-type
// energy quantum exists for continuous projections, so the energy moments
// come from the direct estimator.
func (m *Clock) improved(T float64, cp Couplings, sw *SWInfo) (Obs, error) {
	n := float64(m.Lat.NumSites())
	var obs Obs
	obs.M, obs.M2, obs.M4 = clusterMoments(sw.UF, n)

	direct, err := Measure(m, T, cp)
	if err != nil {
		return Obs{}, errors.Wrap(err, "")
	}
	obs.E, obs.E2 = direct.E, direct.E2
	return obs, nil
}

func (m *XY) improved(T float64, cp Couplings, sw *SWInfo) (Obs, error) {
	n := float64(m.Lat.NumSites())
	var obs Obs
	obs.M, obs.M2, obs.M4 = clusterMoments(sw.UF, n)

	direct, err := Measure(m, T, cp)
	if err != nil {
		return Obs{}, errors.Wrap(err, "")
	}
	obs.E, obs.E2 = direct.E, direct.E2
	return obs, nil
}

func (m *QuantumXXZ) improved(T float64, cp Couplings, info *LoopInfo) (Obs, error) {
	lat := m.Lat
	n := float64(lat.NumSites())

	var obs Obs
	uf := info.UF
	for c := 0; c < uf.NumClusters(); c++ {
		x := uf.ClusterPayload(c) * 0.5 / n
		s := float64(uf.ClusterFlip(c))
		obs.M += x * s
		obs.M4 += x*x*x*x + 6*obs.M2*x*x
		obs.M2 += x * x
	}

	_, _, e0, err := loopWeights(m, cp)
	if err != nil {
		return Obs{}, errors.Wrap(err, "")
	}
	nop := float64(info.NumOperators)
	obs.E = (e0 - nop*T) / n
	obs.E2 = (nop*(nop-1)*T*T - 2*e0*T*nop + 2*e0*e0) / (n * n)
	return obs, nil
}

// Measure evaluates the plug-in estimator on the current configuration.
func Measure(m Model, T float64, cp Couplings) (Obs, error) {
	switch m := m.(type) {
	case *Ising:
		return m.measure(cp), nil
	case *Potts:
		return m.measure(cp), nil
	case *Clock:
		return m.measure(cp), nil
	case *XY:
		return m.measure(cp), nil
	case *QuantumXXZ:
		return m.measure(T, cp)
	case *TFIsing:
		return m.QuantumXXZ.measure(T, tfiCouplings(cp))
	}
	return Obs{}, errors.Wrapf(ErrInvalidParameter, "model %T", m)
}

func (m *Ising) measure(cp Couplings) Obs {
	lat := m.Lat
	n := float64(lat.NumSites())

	var mag float64
	for _, s := range m.Spins {
		mag += float64(s)
	}
	mag /= n

	var energy float64
	for b := 0; b < lat.NumBonds(); b++ {
		j := cp.Js[lat.BondType(b)]
		energy -= j * float64(m.Spins[lat.Source(b)]) * float64(m.Spins[lat.Target(b)])
	}
	energy /= n

	return Obs{M: mag, M2: mag * mag, M4: mag * mag * mag * mag, E: energy, E2: energy * energy}
}

func (m *Potts) measure(cp Couplings) Obs {
	lat := m.Lat
	n := float64(lat.NumSites())
	q := float64(m.Q)

	var mag float64
	for _, s := range m.Spins {
		if s == 0 {
			mag += 1 - 1/q
		} else {
			mag -= 1 / q
		}
	}
	mag /= n

	var energy float64
	for b := 0; b < lat.NumBonds(); b++ {
		if m.Spins[lat.Source(b)] == m.Spins[lat.Target(b)] {
			energy -= cp.Js[lat.BondType(b)]
		}
	}
	energy /= n

	return Obs{M: mag, M2: mag * mag, M4: mag * mag * mag * mag, E: energy, E2: energy * energy}
}

func (m *Clock) measure(cp Couplings) Obs {
	lat := m.Lat
	n := float64(lat.NumSites())

	var mx, my float64
	for _, k := range m.Spins {
		mx += m.cosines[k]
		my += m.sines[k]
	}
	mag := math.Sqrt(mx*mx+my*my) / n

	var energy float64
	for b := 0; b < lat.NumBonds(); b++ {
		ki, kj := m.Spins[lat.Source(b)], m.Spins[lat.Target(b)]
		cos := m.cosines[ki]*m.cosines[kj] + m.sines[ki]*m.sines[kj]
		energy -= cp.Js[lat.BondType(b)] * cos
	}
	energy /= n

	return Obs{M: mag, M2: mag * mag, M4: mag * mag * mag * mag, E: energy, E2: energy * energy}
}

func (m *XY) measure(cp Couplings) Obs {
	lat := m.Lat
	n := float64(lat.NumSites())

	var mx, my float64
	for _, x := range m.Spins {
		mx += math.Cos(2 * math.Pi * x)
		my += math.Sin(2 * math.Pi * x)
	}
	mag := math.Sqrt(mx*mx+my*my) / n

	var energy float64
	for b := 0; b < lat.NumBonds(); b++ {
		xi, xj := m.Spins[lat.Source(b)], m.Spins[lat.Target(b)]
		energy -= cp.Js[lat.BondType(b)] * math.Cos(2*math.Pi*(xi-xj))
	}
	energy /= n

	return Obs{M: mag, M2: mag * mag, M4: mag * mag * mag * mag, E: energy, E2: energy * energy}
}

func (m *QuantumXXZ) measure(T float64, cp Couplings) (Obs, error) {
	lat := m.Lat
	n := float64(lat.NumSites())

	var mag float64
	for _, s := range m.Spins {
		mag += float64(s)
	}
	mag = mag * 0.5 / n

	_, _, e0, err := loopWeights(m, cp)
	if err != nil {
		return Obs{}, errors.Wrap(err, "")
	}
	nop := float64(len(m.Ops))
	energy := (e0 - nop*T) / n

	return Obs{M: mag, M2: mag * mag, M4: mag * mag * mag * mag, E: energy, E2: energy * energy}, nil
}
