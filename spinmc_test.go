package spinmc

import (
	"flag"
	"log"
	"testing"

	"github.com/pkg/errors"
)

func TestBuildModel(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name   string
		params Param
		ok     bool
	}{
		{
			name:   "ising",
			params: Param{"Model": "Ising", "Lattice": "square", "L": 4},
			ok:     true,
		},
		{
			name:   "potts",
			params: Param{"Model": "Potts", "Lattice": "triangular", "L": 4, "Q": 3},
			ok:     true,
		},
		{
			name:   "xxz spin 1",
			params: Param{"Model": "QuantumXXZ", "Lattice": "chain", "L": 4, "S": 1.0},
			ok:     true,
		},
		{
			name:   "xxz spin 3/2",
			params: Param{"Model": "QuantumXXZ", "Lattice": "chain", "L": 4, "S": 1.5},
			ok:     true,
		},
		{
			name:   "missing model",
			params: Param{"Lattice": "square", "L": 4},
		},
		{
			name:   "unknown lattice",
			params: Param{"Model": "Ising", "Lattice": "kagome", "L": 4},
		},
		{
			name:   "potts without Q",
			params: Param{"Model": "Potts", "Lattice": "square", "L": 4},
		},
		{
			name:   "bad spin length",
			params: Param{"Model": "QuantumXXZ", "Lattice": "chain", "L": 4, "S": 0.3},
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()
			m, err := BuildModel(test.params)
			if test.ok {
				if err != nil {
					t.Fatalf("%+v", err)
				}
				if m.Lattice().NumSites() == 0 {
					t.Fatalf("empty lattice")
				}
				return
			}
			if !errors.Is(err, ErrInvalidParameter) {
				t.Fatalf("%+v, expected ErrInvalidParameter", err)
			}
		})
	}
}

func TestBuildModelSpinMultiplicity(t *testing.T) {
	t.Parallel()
	m, err := BuildModel(Param{"Model": "QuantumXXZ", "Lattice": "chain", "L": 6, "S": 1.5})
	if err != nil {
		t.Fatalf("%+v", err)
	}
	xxz := m.(*QuantumXXZ)
	if xxz.S2 != 3 {
		t.Fatalf("%d, expected 3", xxz.S2)
	}
	if len(xxz.Spins) != 6*3 {
		t.Fatalf("%d sub-spins", len(xxz.Spins))
	}
}

func TestBuildCouplings(t *testing.T) {
	t.Parallel()
	m, err := BuildModel(Param{"Model": "Ising", "Lattice": "square", "L": 4})
	if err != nil {
		t.Fatalf("%+v", err)
	}

	// A scalar J expands over both bond types of the square lattice.
	cp, err := BuildCouplings(Param{"J": 2.0}, m)
	if err != nil {
		t.Fatalf("%+v", err)
	}
	if len(cp.Js) != 2 || cp.Js[0] != 2 || cp.Js[1] != 2 {
		t.Fatalf("%#v", cp.Js)
	}

	// Per-type couplings are passed through.
	cp, err = BuildCouplings(Param{"Js": []float64{1, -1}}, m)
	if err != nil {
		t.Fatalf("%+v", err)
	}
	if len(cp.Js) != 2 || cp.Js[0] != 1 || cp.Js[1] != -1 {
		t.Fatalf("%#v", cp.Js)
	}

	// A wrong shape is an invalid parameter.
	if _, err := BuildCouplings(Param{"Js": []float64{1, 2, 3}}, m); !errors.Is(err, ErrInvalidParameter) {
		t.Fatalf("%+v, expected ErrInvalidParameter", err)
	}
}

func TestMain(m *testing.M) {
	flag.Parse()
	log.SetFlags(log.Lmicroseconds | log.Llongfile | log.LstdFlags)

	m.Run()
}
