package exactdiag

import (
	"flag"
	"log"
	"math"
	"slices"
	"testing"

	"github.com/fumin/spinmc/lattice"
)

func TestXXZ(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name  string
		lat   *lattice.Lattice
		jz    float64
		jxy   float64
		g     float64
		evals []float64
	}{
		{
			// A periodic 2 site chain doubles its single bond.
			// The Heisenberg pair has a singlet at -3/4 and a triplet
			// at 1/4 per bond.
			name: "heisenberg pair",
			lat:  lattice.Chain(2),
			jz:   1, jxy: 1,
			evals: []float64{-1.5, 0.5, 0.5, 0.5},
		},
		{
			// Three spins on a ring couple every pair:
			// E = (Stot(Stot+1) - 9/4)/2.
			name: "heisenberg triangle",
			lat:  lattice.Chain(3),
			jz:   1, jxy: 1,
			evals: []float64{-0.75, -0.75, -0.75, -0.75, 0.75, 0.75, 0.75, 0.75},
		},
		{
			// A pure transverse field splits each site into +-g/2.
			name: "field only",
			lat:  lattice.Chain(2),
			g:    1,
			evals: []float64{-1, 0, 0, 1},
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()
			h := XXZ(test.lat, test.jz, test.jxy, test.g)
			evals := Spectrum(h)
			slices.Sort(evals)
			if len(evals) != len(test.evals) {
				t.Fatalf("%d eigenvalues, expected %d", len(evals), len(test.evals))
			}
			for i, want := range test.evals {
				if math.Abs(evals[i]-want) > 1e-9 {
					t.Fatalf("%d: %f, expected %f", i, evals[i], want)
				}
			}
		})
	}
}

func TestThermalEnergy(t *testing.T) {
	t.Parallel()
	// Two levels at 0 and 1: E(T) = 1/(1+exp(beta)).
	evals := []float64{0, 1}
	for _, T := range []float64{0.1, 0.5, 1, 10} {
		beta := 1 / T
		want := 1 / (1 + math.Exp(beta))
		got := ThermalEnergy(evals, T)
		if math.Abs(got-want) > 1e-12 {
			t.Fatalf("T=%f: %f, expected %f", T, got, want)
		}
	}

	// At low temperature the energy approaches the ground state.
	h := XXZ(lattice.Chain(4), 1, 1, 0)
	evals = Spectrum(h)
	slices.Sort(evals)
	e := ThermalEnergy(evals, 0.01)
	if math.Abs(e-evals[0]) > 1e-6 {
		t.Fatalf("%f, expected %f", e, evals[0])
	}
}

func TestMain(m *testing.M) {
	flag.Parse()
	log.SetFlags(log.Lmicroseconds | log.Llongfile | log.LstdFlags)

	m.Run()
}
