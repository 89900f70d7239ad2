// Package spinmc implements cluster Monte Carlo simulations of classical and
// quantum lattice spin models.
//
// Classical models (Ising, Potts, Clock, XY) are updated by the
// Swendsen-Wang and Wolff cluster algorithms, quantum models (spin-S XXZ,
// transverse field Ising) by the continuous time loop algorithm.
// Observables are measured with cluster improved estimators.
//
// Sign conventions: classical Hamiltonians are ferromagnetic for positive
// couplings, H = -sum J s*s (Ising), H = -sum J delta (Potts). The quantum
// XXZ Hamiltonian is antiferromagnetic for positive couplings,
// H = sum Jz Sz*Sz + Jxy/2 (S+S- + S-S+) - sum G*Sx.
//
// References:
//   - Swendsen and Wang, Phys. Rev. Lett. 58, 86 (1987)
//   - Wolff, Phys. Rev. Lett. 62, 361 (1989)
//   - Evertz, The loop algorithm, Adv. Phys. 52, 1 (2003)
package spinmc

import (
	"math"
	"math/rand/v2"

	"github.com/pkg/errors"

	"github.com/fumin/spinmc/lattice"
	"github.com/fumin/spinmc/unionfind"
)

var (
	// ErrInvalidParameter reports a missing or malformed parameter.
	// It is fatal to the run.
	ErrInvalidParameter = errors.New("invalid parameter")
	// ErrInternalConsistency reports a broken internal invariant.
	ErrInternalConsistency = errors.New("internal consistency")
)

// Param is a flat map of run parameters. Recognized keys are
// "Model", "Lattice", "L", "W", "H", "T", "J", "Js", "Jxy", "Jxys",
// "G", "Gs", "Q", "S", "UpdateMethod", "MCS", "Thermalization", "Seed".
type Param map[string]any

func (p Param) Str(key string) (string, error) {
	v, ok := p[key]
	if !ok {
		return "", errors.Wrap(ErrInvalidParameter, key+" missing")
	}
	s, ok := v.(string)
	if !ok {
		return "", errors.Wrapf(ErrInvalidParameter, "%s: %#v", key, v)
	}
	return s, nil
}

func (p Param) Int(key string) (int, error) {
	f, err := p.Float(key)
	if err != nil {
		return 0, err
	}
	i := int(f)
	if float64(i) != f {
		return 0, errors.Wrapf(ErrInvalidParameter, "%s: %f not an integer", key, f)
	}
	return i, nil
}

func (p Param) IntOr(key string, def int) (int, error) {
	if _, ok := p[key]; !ok {
		return def, nil
	}
	return p.Int(key)
}

func (p Param) Float(key string) (float64, error) {
	v, ok := p[key]
	if !ok {
		return 0, errors.Wrap(ErrInvalidParameter, key+" missing")
	}
	switch f := v.(type) {
	case float64:
		return f, nil
	case float32:
		return float64(f), nil
	case int:
		return float64(f), nil
	case int64:
		return float64(f), nil
	}
	return 0, errors.Wrapf(ErrInvalidParameter, "%s: %#v", key, v)
}

// Floats reads key as a scalar or a slice of numbers.
func (p Param) Floats(key string) ([]float64, error) {
	v, ok := p[key]
	if !ok {
		return nil, errors.Wrap(ErrInvalidParameter, key+" missing")
	}
	switch fs := v.(type) {
	case []float64:
		return fs, nil
	case []int:
		out := make([]float64, len(fs))
		for i, f := range fs {
			out[i] = float64(f)
		}
		return out, nil
	}
	f, err := p.Float(key)
	if err != nil {
		return nil, err
	}
	return []float64{f}, nil
}

// Couplings are the resolved per-type coupling constants of a run.
type Couplings struct {
	// Js are the per-bond-type couplings: exchange couplings for classical
	// models, Jz for quantum models.
	Js []float64
	// Jxys are the per-bond-type quantum transverse couplings.
	Jxys []float64
	// Gs are the per-site-type transverse fields.
	Gs []float64
}

// Model is a lattice spin model together with its Monte Carlo state.
// The concrete types are Ising, Potts, Clock, XY, QuantumXXZ and TFIsing.
type Model interface {
	Lattice() *lattice.Lattice
	RNG() *rand.Rand
}

// Ising is the classical Ising model with spins in {+1, -1}.
type Ising struct {
	Lat   *lattice.Lattice
	Spins []int8

	rng     *rand.Rand
	scratch swScratch
}

// Potts is the Q-state Potts model with spins in {0, ..., Q-1}.
type Potts struct {
	Lat   *lattice.Lattice
	Q     int
	Spins []int8

	rng     *rand.Rand
	scratch swScratch
}

// Clock is the Q-state clock model. A spin k represents the angle 2*pi*k/Q.
// The sine table at half steps drives the Swendsen-Wang projection.
type Clock struct {
	Lat   *lattice.Lattice
	Q     int
	Spins []int8

	// cosines[k], sines[k] are cos and sin of 2*pi*k/Q.
	// sinHalf[j] is sin(pi*j/Q) for j in [0, 2Q).
	cosines []float64
	sines   []float64
	sinHalf []float64

	rng     *rand.Rand
	scratch swScratch
}

// XY is the classical XY model. A spin x in [0,1) represents the angle 2*pi*x.
type XY struct {
	Lat   *lattice.Lattice
	Spins []float64

	rng     *rand.Rand
	scratch swScratch
}

// QuantumXXZ is the spin-S XXZ model in the continuous imaginary time
// representation. Each site carries S2 = 2S sub-spins; sub-spin k of site i
// has index i*S2+k. Spins holds the tau=0 basis state and Ops the
// time-ordered operator string.
type QuantumXXZ struct {
	Lat   *lattice.Lattice
	S2    int
	Spins []int8
	Ops   []LoopOperator

	rng     *rand.Rand
	scratch loopScratch
}

// TFIsing is the ferromagnetic transverse field Ising model,
// H = -sum J Sz*Sz - sum G*Sx, simulated as an XXZ model with Jxy = 0.
type TFIsing struct {
	QuantumXXZ
}

type swScratch struct {
	uf        *unionfind.Set[float64]
	proj      []float64
	activated []int
	stack     []int32
	visited   []bool
	degen     int
}

type loopScratch struct {
	uf        *unionfind.Set[float64]
	state     []int8
	current   []int32
	ops       []LoopOperator
	activated []int
	degen     int
}

func (m *Ising) Lattice() *lattice.Lattice      { return m.Lat }
func (m *Potts) Lattice() *lattice.Lattice      { return m.Lat }
func (m *Clock) Lattice() *lattice.Lattice      { return m.Lat }
func (m *XY) Lattice() *lattice.Lattice         { return m.Lat }
func (m *QuantumXXZ) Lattice() *lattice.Lattice { return m.Lat }

func (m *Ising) RNG() *rand.Rand      { return m.rng }
func (m *Potts) RNG() *rand.Rand      { return m.rng }
func (m *Clock) RNG() *rand.Rand      { return m.rng }
func (m *XY) RNG() *rand.Rand         { return m.rng }
func (m *QuantumXXZ) RNG() *rand.Rand { return m.rng }

func newRNG(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed+1))
}

func newSWScratch(lat *lattice.Lattice) swScratch {
	return swScratch{
		uf:        unionfind.New(func(a, b float64) float64 { return a + b }),
		proj:      make([]float64, lat.NumSites()),
		activated: make([]int, lat.NumBondTypes()),
	}
}

// NewIsing creates an Ising model with a random initial configuration.
func NewIsing(lat *lattice.Lattice, seed uint64) *Ising {
	m := &Ising{Lat: lat, rng: newRNG(seed), scratch: newSWScratch(lat)}
	m.Spins = make([]int8, lat.NumSites())
	for i := range m.Spins {
		m.Spins[i] = int8(2*m.rng.IntN(2) - 1)
	}
	return m
}

// NewPotts creates a Q-state Potts model with a random initial configuration.
func NewPotts(lat *lattice.Lattice, q int, seed uint64) *Potts {
	m := &Potts{Lat: lat, Q: q, rng: newRNG(seed), scratch: newSWScratch(lat)}
	m.Spins = make([]int8, lat.NumSites())
	for i := range m.Spins {
		m.Spins[i] = int8(m.rng.IntN(q))
	}
	return m
}

// NewClock creates a Q-state clock model with a random initial configuration.
func NewClock(lat *lattice.Lattice, q int, seed uint64) *Clock {
	m := &Clock{Lat: lat, Q: q, rng: newRNG(seed), scratch: newSWScratch(lat)}
	m.Spins = make([]int8, lat.NumSites())
	for i := range m.Spins {
		m.Spins[i] = int8(m.rng.IntN(q))
	}
	m.cosines = make([]float64, q)
	m.sines = make([]float64, q)
	for k := 0; k < q; k++ {
		m.cosines[k] = math.Cos(2 * math.Pi * float64(k) / float64(q))
		m.sines[k] = math.Sin(2 * math.Pi * float64(k) / float64(q))
	}
	m.sinHalf = make([]float64, 2*q)
	for j := 0; j < 2*q; j++ {
		m.sinHalf[j] = math.Sin(math.Pi * float64(j) / float64(q))
	}
	return m
}

// NewXY creates an XY model with a random initial configuration.
func NewXY(lat *lattice.Lattice, seed uint64) *XY {
	m := &XY{Lat: lat, rng: newRNG(seed), scratch: newSWScratch(lat)}
	m.Spins = make([]float64, lat.NumSites())
	for i := range m.Spins {
		m.Spins[i] = m.rng.Float64()
	}
	return m
}

// NewQuantumXXZ creates a spin-S XXZ model in a random basis state with an
// empty operator string. s2 is the sub-spin multiplicity 2S.
func NewQuantumXXZ(lat *lattice.Lattice, s2 int, seed uint64) *QuantumXXZ {
	m := &QuantumXXZ{Lat: lat, S2: s2, rng: newRNG(seed)}
	nspins := lat.NumSites() * s2
	m.Spins = make([]int8, nspins)
	for i := range m.Spins {
		m.Spins[i] = int8(2*m.rng.IntN(2) - 1)
	}
	m.Ops = make([]LoopOperator, 0)
	m.scratch = loopScratch{
		uf:        unionfind.New(func(a, b float64) float64 { return a + b }),
		state:     make([]int8, nspins),
		current:   make([]int32, nspins),
		activated: make([]int, lat.NumBondTypes()),
	}
	return m
}

// NewTFIsing creates a transverse field Ising model.
func NewTFIsing(lat *lattice.Lattice, seed uint64) *TFIsing {
	return &TFIsing{QuantumXXZ: *NewQuantumXXZ(lat, 1, seed)}
}

// BuildModel constructs a model from the parameter map.
func BuildModel(p Param) (Model, error) {
	lat, err := buildLattice(p)
	if err != nil {
		return nil, errors.Wrap(err, "")
	}
	seed := uint64(0)
	if _, ok := p["Seed"]; ok {
		s, err := p.Int("Seed")
		if err != nil {
			return nil, errors.Wrap(err, "")
		}
		seed = uint64(s)
	}

	model, err := p.Str("Model")
	if err != nil {
		return nil, errors.Wrap(err, "")
	}
	switch model {
	case "Ising":
		return NewIsing(lat, seed), nil
	case "Potts":
		q, err := p.Int("Q")
		if err != nil {
			return nil, errors.Wrap(err, "")
		}
		if q < 2 {
			return nil, errors.Wrapf(ErrInvalidParameter, "Q: %d", q)
		}
		return NewPotts(lat, q, seed), nil
	case "Clock":
		q, err := p.Int("Q")
		if err != nil {
			return nil, errors.Wrap(err, "")
		}
		if q < 2 {
			return nil, errors.Wrapf(ErrInvalidParameter, "Q: %d", q)
		}
		return NewClock(lat, q, seed), nil
	case "XY":
		return NewXY(lat, seed), nil
	case "QuantumXXZ":
		s2, err := spinMultiplicity(p)
		if err != nil {
			return nil, errors.Wrap(err, "")
		}
		return NewQuantumXXZ(lat, s2, seed), nil
	case "TransverseFieldIsing":
		return NewTFIsing(lat, seed), nil
	}
	return nil, errors.Wrapf(ErrInvalidParameter, "Model: %q", model)
}

// spinMultiplicity reads the spin length S, which must be a positive integer
// or half-integer, and returns 2S.
func spinMultiplicity(p Param) (int, error) {
	if _, ok := p["S"]; !ok {
		return 1, nil
	}
	s, err := p.Float("S")
	if err != nil {
		return 0, err
	}
	s2 := math.Round(2 * s)
	if s2 < 1 || math.Abs(2*s-s2) > 1e-9 {
		return 0, errors.Wrapf(ErrInvalidParameter, "S: %f not a half-integer", s)
	}
	return int(s2), nil
}

func buildLattice(p Param) (*lattice.Lattice, error) {
	name, err := p.Str("Lattice")
	if err != nil {
		return nil, errors.Wrap(err, "")
	}
	l, err := p.Int("L")
	if err != nil {
		return nil, errors.Wrap(err, "")
	}
	w, err := p.IntOr("W", l)
	if err != nil {
		return nil, errors.Wrap(err, "")
	}
	h, err := p.IntOr("H", l)
	if err != nil {
		return nil, errors.Wrap(err, "")
	}

	switch name {
	case "chain":
		return lattice.Chain(l), nil
	case "square":
		return lattice.Square(l, w), nil
	case "triangular":
		return lattice.Triangular(l, w), nil
	case "cubic":
		return lattice.Cubic(l, w, h), nil
	}
	return nil, errors.Wrapf(ErrInvalidParameter, "Lattice: %q", name)
}

// BuildCouplings resolves the coupling parameters of a model,
// expanding scalars over the lattice's bond and site types.
func BuildCouplings(p Param, m Model) (Couplings, error) {
	lat := m.Lattice()
	var cp Couplings
	var err error

	cp.Js, err = perType(p, "J", "Js", lat.NumBondTypes(), 1)
	if err != nil {
		return Couplings{}, errors.Wrap(err, "")
	}
	cp.Jxys, err = perType(p, "Jxy", "Jxys", lat.NumBondTypes(), 0)
	if err != nil {
		return Couplings{}, errors.Wrap(err, "")
	}
	cp.Gs, err = perType(p, "G", "Gs", lat.NumSiteTypes(), 0)
	if err != nil {
		return Couplings{}, errors.Wrap(err, "")
	}
	return cp, nil
}

func perType(p Param, scalar, plural string, n int, def float64) ([]float64, error) {
	key := ""
	if _, ok := p[scalar]; ok {
		key = scalar
	}
	if _, ok := p[plural]; ok {
		key = plural
	}
	if key == "" {
		out := make([]float64, n)
		for i := range out {
			out[i] = def
		}
		return out, nil
	}

	vs, err := p.Floats(key)
	if err != nil {
		return nil, err
	}
	switch {
	case len(vs) == 1:
		out := make([]float64, n)
		for i := range out {
			out[i] = vs[0]
		}
		return out, nil
	case len(vs) == n:
		return vs, nil
	}
	return nil, errors.Wrapf(ErrInvalidParameter, "%s: %d values for %d types", key, len(vs), n)
}
