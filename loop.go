package spinmc

import (
	"fmt"
	"math"

	"github.com/pkg/errors"

	"github.com/fumin/spinmc/unionfind"
)

// LoopElementType identifies one of the five loop graph fragments.
// Each fragment joins two incoming and two outgoing time legs in a fixed way.
type LoopElementType uint8

const (
	// Cut separates the loop below the operator from the loop above it.
	Cut LoopElementType = iota
	// FMLink pairs the two lower legs and the two upper legs,
	// and acts on parallel sub-spins.
	FMLink
	// AFLink pairs the two lower legs and the two upper legs,
	// and acts on anti-parallel sub-spins.
	AFLink
	// Vertex fuses all four legs into a single loop.
	Vertex
	// Cross swaps which upper leg continues which lower leg.
	Cross
)

func (t LoopElementType) String() string {
	switch t {
	case Cut:
		return "Cut"
	case FMLink:
		return "FMLink"
	case AFLink:
		return "AFLink"
	case Vertex:
		return "Vertex"
	case Cross:
		return "Cross"
	}
	return fmt.Sprintf("LoopElementType(%d)", uint8(t))
}

// LoopOperator is one local loop operator in the time-ordered operator string.
type LoopOperator struct {
	Type       LoopElementType
	IsDiagonal bool
	// Tau is the imaginary time of the operator in [0, 1).
	Tau float64
	// Space is the bond of a link operator, or the site of a cut operator.
	Space int32
	// U and V are the sub-spins the operator acts on. V is -1 for cuts.
	U, V int32
	// BottomID and TopID are the union-find nodes of the loop endpoints
	// below and above the operator, assigned during graph decomposition.
	BottomID, TopID int32
}

// LoopInfo is the loop decomposition produced by a quantum sweep.
type LoopInfo struct {
	UF *unionfind.Set[float64]
	// NumOperators is the length of the operator string.
	NumOperators int
	// Activated counts the link and vertex operators per bond type.
	Activated []int
	// Degenerate counts clamped insertion rates.
	Degenerate int
}

func (*LoopInfo) sweepInfo() {}

// graphWeight is the insertion density of one graph fragment
// per sub-spin pair (or per sub-spin for cuts) and unit of beta.
type graphWeight struct {
	typ    LoopElementType
	weight float64
	// parallel is +1 if the fragment requires parallel legs,
	// -1 if anti-parallel, 0 if any.
	parallel int8
}

// loopWeights decomposes the bond Hamiltonian of every bond type into graph
// fragments. The decomposition has three regimes; the returned offset is the
// total diagonal shift E0 making all fragment densities non-negative.
func loopWeights(m *QuantumXXZ, cp Couplings) (bond [][]graphWeight, site []float64, offset float64, err error) {
	lat := m.Lat
	s2 := float64(m.S2)

	bond = make([][]graphWeight, lat.NumBondTypes())
	for t := 0; t < lat.NumBondTypes(); t++ {
		jz, jxy := cp.Js[t], cp.Jxys[t]
		if math.IsNaN(jz) || math.IsNaN(jxy) {
			return nil, nil, 0, errors.Wrapf(ErrInvalidParameter, "couplings %f %f", jz, jxy)
		}
		axy := math.Abs(jxy)
		nb := float64(lat.NumBondsOfType(t))
		switch {
		case jz > axy:
			// Antiferromagnetic Ising regime.
			bond[t] = []graphWeight{
				{typ: AFLink, weight: axy / 2, parallel: -1},
				{typ: Vertex, weight: (jz - axy) / 2, parallel: -1},
			}
			offset += jz / 4 * s2 * s2 * nb
		case jz < -axy:
			// Ferromagnetic Ising regime.
			bond[t] = []graphWeight{
				{typ: FMLink, weight: axy / 2, parallel: 1},
				{typ: Vertex, weight: (-jz - axy) / 2, parallel: 1},
			}
			offset += -jz / 4 * s2 * s2 * nb
		default:
			// XY regime.
			bond[t] = []graphWeight{
				{typ: AFLink, weight: (axy + jz) / 4, parallel: -1},
				{typ: FMLink, weight: (axy - jz) / 4, parallel: 1},
			}
			offset += axy / 4 * s2 * s2 * nb
		}
	}

	site = make([]float64, lat.NumSiteTypes())
	for t := 0; t < lat.NumSiteTypes(); t++ {
		g := math.Abs(cp.Gs[t])
		site[t] = g / 2
		offset += g / 2 * s2 * float64(lat.NumSitesOfType(t))
	}
	return bond, site, offset, nil
}

// insertion is one entry of the flattened candidate table used to pick a
// local term proportionally to its total rate.
type insertion struct {
	bondType int
	graph    graphWeight
	siteType int
	isSite   bool
	// cum is the cumulative rate up to and including this entry.
	cum float64
}

func (m *QuantumXXZ) insertionTable(bond [][]graphWeight, site []float64) ([]insertion, float64) {
	lat := m.Lat
	s2 := float64(m.S2)
	table := make([]insertion, 0, 8)
	cum := 0.0
	for t, ws := range bond {
		for _, w := range ws {
			if w.weight <= 0 {
				continue
			}
			cum += w.weight * s2 * s2 * float64(lat.NumBondsOfType(t))
			table = append(table, insertion{bondType: t, graph: w, cum: cum})
		}
	}
	for t, w := range site {
		if w <= 0 {
			continue
		}
		cum += w * s2 * float64(lat.NumSitesOfType(t))
		table = append(table, insertion{siteType: t, isSite: true, graph: graphWeight{typ: Cut, weight: w}, cum: cum})
	}
	return table, cum
}

// sweepLoop performs one loop update: a diagonal update of the operator
// string, a graph decomposition into loops, and per-loop flips.
func (m *QuantumXXZ) sweepLoop(T float64, cp Couplings) (*LoopInfo, error) {
	bond, site, _, err := loopWeights(m, cp)
	if err != nil {
		return nil, errors.Wrap(err, "")
	}
	if err := m.diagonalUpdate(T, bond, site); err != nil {
		return nil, errors.Wrap(err, "")
	}
	info := m.decompose()
	m.flip(info)
	return info, nil
}

// diagonalUpdate removes every diagonal operator and re-inserts diagonal
// operators from a Poisson process of rate beta times the fragment density,
// thinned by compatibility with the propagated sub-spin state.
// Off-diagonal operators are kept and applied during propagation.
func (m *QuantumXXZ) diagonalUpdate(T float64, bond [][]graphWeight, site []float64) error {
	sc := &m.scratch
	beta := 1 / T

	table, totalRate := m.insertionTable(bond, site)
	rate := beta * totalRate
	if math.IsInf(rate, 0) || math.IsNaN(rate) {
		return errors.Wrapf(ErrInvalidParameter, "insertion rate %f at T=%f", rate, T)
	}

	state := sc.state[:len(m.Spins)]
	copy(state, m.Spins)
	newOps := sc.ops[:0]

	tau := math.Inf(1)
	if rate > 0 {
		tau = m.rng.ExpFloat64() / rate
	}
	prevTau := 0.0
	for i := 0; i <= len(m.Ops); i++ {
		opTau := 1.0
		if i < len(m.Ops) {
			opTau = m.Ops[i].Tau
		}
		if !(opTau >= prevTau && opTau <= 1) {
			panic(fmt.Sprintf("operator string out of order: %f after %f", opTau, prevTau))
		}
		prevTau = opTau

		for tau < opTau {
			if op, ok := m.tryInsert(table, totalRate, tau, state); ok {
				newOps = append(newOps, op)
			}
			tau += m.rng.ExpFloat64() / rate
		}
		if i == len(m.Ops) {
			break
		}

		op := m.Ops[i]
		if op.IsDiagonal {
			continue
		}
		// Keep the off-diagonal operator and apply its spin flips.
		switch op.Type {
		case Cut:
			state[op.U] = -state[op.U]
		case FMLink, AFLink:
			state[op.U] = -state[op.U]
			state[op.V] = -state[op.V]
		default:
			panic(fmt.Sprintf("off-diagonal %v operator", op.Type))
		}
		newOps = append(newOps, op)
	}

	sc.ops = m.Ops
	m.Ops = newOps
	return nil
}

// tryInsert draws a candidate local term proportionally to its rate and
// inserts a diagonal operator if the sub-spin state at tau is compatible.
func (m *QuantumXXZ) tryInsert(table []insertion, totalRate, tau float64, state []int8) (LoopOperator, bool) {
	lat := m.Lat
	x := m.rng.Float64() * totalRate
	var ins insertion
	for _, in := range table {
		if x < in.cum {
			ins = in
			break
		}
		ins = in
	}

	if ins.isSite {
		sites := lat.SitesOfType(ins.siteType)
		s := sites[m.rng.IntN(len(sites))]
		u := s*int32(m.S2) + int32(m.rng.IntN(m.S2))
		return LoopOperator{Type: Cut, IsDiagonal: true, Tau: tau, Space: s, U: u, V: -1}, true
	}

	bonds := lat.BondsOfType(ins.bondType)
	b := bonds[m.rng.IntN(len(bonds))]
	src, tgt := lat.Source(int(b)), lat.Target(int(b))
	u := int32(src)*int32(m.S2) + int32(m.rng.IntN(m.S2))
	v := int32(tgt)*int32(m.S2) + int32(m.rng.IntN(m.S2))
	switch ins.graph.parallel {
	case 1:
		if state[u] != state[v] {
			return LoopOperator{}, false
		}
	case -1:
		if state[u] == state[v] {
			return LoopOperator{}, false
		}
	}
	return LoopOperator{Type: ins.graph.typ, IsDiagonal: true, Tau: tau, Space: b, U: u, V: v}, true
}

// decompose walks the operator string in time order and builds the loop
// union-find: one node per sub-spin at tau=0 carrying its spin value, and
// two nodes per operator for the loop endpoints below and above it.
func (m *QuantumXXZ) decompose() *LoopInfo {
	sc := &m.scratch
	uf := sc.uf
	uf.Reset()
	nspins := len(m.Spins)
	for s := 0; s < nspins; s++ {
		uf.AddNode(float64(m.Spins[s]))
	}
	current := sc.current[:nspins]
	for s := range current {
		current[s] = int32(s)
	}
	for t := range sc.activated {
		sc.activated[t] = 0
	}

	for i := range m.Ops {
		op := &m.Ops[i]
		bottom := int32(uf.AddNode(0))
		top := int32(uf.AddNode(0))
		op.BottomID, op.TopID = bottom, top

		switch op.Type {
		case Cut:
			uf.Unify(int(bottom), int(current[op.U]))
			current[op.U] = top
		case FMLink, AFLink:
			uf.Unify(int(bottom), int(current[op.U]))
			uf.Unify(int(bottom), int(current[op.V]))
			current[op.U], current[op.V] = top, top
			sc.activated[m.Lat.BondType(int(op.Space))]++
		case Vertex:
			uf.Unify(int(bottom), int(current[op.U]))
			uf.Unify(int(bottom), int(current[op.V]))
			uf.Unify(int(bottom), int(top))
			current[op.U], current[op.V] = top, top
			sc.activated[m.Lat.BondType(int(op.Space))]++
		case Cross:
			uf.Unify(int(bottom), int(current[op.U]))
			uf.Unify(int(top), int(current[op.V]))
			current[op.U], current[op.V] = top, bottom
			sc.activated[m.Lat.BondType(int(op.Space))]++
		}
	}

	// Close the loops across the periodic time boundary.
	for s := 0; s < nspins; s++ {
		uf.Unify(int(current[s]), s)
	}
	uf.Clusterize(m.rng)

	return &LoopInfo{UF: uf, NumOperators: len(m.Ops), Activated: sc.activated, Degenerate: sc.degen}
}

// flip applies the per-loop flips to the tau=0 state and updates the
// diagonality of every operator whose endpoints landed in opposite loops.
func (m *QuantumXXZ) flip(info *LoopInfo) {
	uf := info.UF
	for s := range m.Spins {
		if uf.ClusterFlip(uf.ClusterID(s)) < 0 {
			m.Spins[s] = -m.Spins[s]
		}
	}

	for i := range m.Ops {
		op := &m.Ops[i]
		switch op.Type {
		case Cut, FMLink, AFLink:
			bottom := uf.ClusterFlip(uf.ClusterID(int(op.BottomID)))
			top := uf.ClusterFlip(uf.ClusterID(int(op.TopID)))
			if bottom != top {
				op.IsDiagonal = !op.IsDiagonal
			}
		case Vertex, Cross:
			// Diagonality is invariant under loop flips.
		}
	}
}
