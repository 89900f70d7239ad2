package spinmc

import (
	"log"
	"math"

	"github.com/pkg/errors"

	"github.com/fumin/spinmc/stats"
)

// Result is one observable of a finished run.
type Result struct {
	Name   string
	Mean   float64
	StdErr float64
}

// RunResult holds all observables of a run together with its diagnostics.
type RunResult struct {
	Results []Result
	// DroppedSweeps counts sweeps whose estimator produced NaN;
	// their contribution was substituted with zero.
	DroppedSweeps int
	// Degenerate counts clamped bond probabilities over the whole run.
	Degenerate int
}

// Get returns the named observable.
func (r *RunResult) Get(name string) (Result, error) {
	for _, res := range r.Results {
		if res.Name == name {
			return res, nil
		}
	}
	return Result{}, errors.Errorf("no observable %q", name)
}

// Run performs a full simulation: thermalization sweeps followed by
// measurement sweeps, feeding the improved estimator output of every sweep
// into the accumulators.
func Run(p Param) (*RunResult, error) {
	m, err := BuildModel(p)
	if err != nil {
		return nil, errors.Wrap(err, "")
	}
	cp, err := BuildCouplings(p, m)
	if err != nil {
		return nil, errors.Wrap(err, "")
	}
	T, err := p.Float("T")
	if err != nil {
		return nil, errors.Wrap(err, "")
	}
	if !(T > 0) {
		return nil, errors.Wrapf(ErrInvalidParameter, "T: %f", T)
	}
	mcs, err := p.IntOr("MCS", 8192)
	if err != nil {
		return nil, errors.Wrap(err, "")
	}
	therm, err := p.IntOr("Thermalization", mcs/8)
	if err != nil {
		return nil, errors.Wrap(err, "")
	}

	sweep, err := sweepFunc(p, m)
	if err != nil {
		return nil, errors.Wrap(err, "")
	}

	for i := 0; i < therm; i++ {
		if _, err := sweep(m, T, cp); err != nil {
			return nil, errors.Wrap(err, "")
		}
	}

	accums := []*stats.Accumulator{
		stats.New("Magnetization"),
		stats.New("|Magnetization|"),
		stats.New("Magnetization^2"),
		stats.New("Magnetization^4"),
		stats.New("Energy"),
		stats.New("Energy^2"),
	}
	run := &RunResult{}
	for i := 0; i < mcs; i++ {
		info, err := sweep(m, T, cp)
		if err != nil {
			return nil, errors.Wrap(err, "")
		}
		obs, err := ImprovedEstimate(m, T, cp, info)
		if err != nil {
			return nil, errors.Wrap(err, "")
		}
		switch sw := info.(type) {
		case *SWInfo:
			run.Degenerate += sw.Degenerate
		case *LoopInfo:
			run.Degenerate += sw.Degenerate
		}

		vs := []float64{obs.M, math.Abs(obs.M), obs.M2, obs.M4, obs.E, obs.E2}
		nan := false
		for _, v := range vs {
			if math.IsNaN(v) {
				nan = true
				break
			}
		}
		if nan {
			run.DroppedSweeps++
			for i := range vs {
				vs[i] = 0
			}
		}
		for i, a := range accums {
			a.Push(vs[i])
		}
	}
	if run.Degenerate > 0 {
		log.Printf("%d degenerate bond probabilities clamped", run.Degenerate)
	}

	for _, a := range accums {
		run.Results = append(run.Results, Result{Name: a.Name, Mean: a.Mean(), StdErr: a.StdErr()})
	}

	// Derived observables through jackknife over the pushed series.
	nsites := float64(m.Lattice().NumSites())
	beta := 1 / T
	m2s := accums[2].Series()
	m4s := accums[3].Series()
	es := accums[4].Series()
	e2s := accums[5].Series()

	c, cErr := stats.Jackknife(func(v []float64) float64 {
		return beta * beta * nsites * (v[1] - v[0]*v[0])
	}, es, e2s)
	run.Results = append(run.Results, Result{Name: "Specific Heat", Mean: c, StdErr: cErr})

	chi, chiErr := stats.Jackknife(func(v []float64) float64 {
		return beta * nsites * v[0]
	}, m2s)
	run.Results = append(run.Results, Result{Name: "Susceptibility", Mean: chi, StdErr: chiErr})

	binder, binderErr := stats.Jackknife(func(v []float64) float64 {
		return v[1] / (v[0] * v[0])
	}, m2s, m4s)
	run.Results = append(run.Results, Result{Name: "Binder Ratio", Mean: binder, StdErr: binderErr})

	return run, nil
}

type sweeper func(Model, float64, Couplings) (SweepInfo, error)

func sweepFunc(p Param, m Model) (sweeper, error) {
	method := ""
	if _, ok := p["UpdateMethod"]; ok {
		var err error
		method, err = p.Str("UpdateMethod")
		if err != nil {
			return nil, errors.Wrap(err, "")
		}
	}

	quantum := false
	switch m.(type) {
	case *QuantumXXZ, *TFIsing:
		quantum = true
	}

	switch method {
	case "":
		return Sweep, nil
	case "SW", "Loop":
		return Sweep, nil
	case "Wolff":
		if quantum {
			return nil, errors.Wrapf(ErrInvalidParameter, "UpdateMethod: %q on quantum model", method)
		}
		return WolffSweep, nil
	}
	return nil, errors.Wrapf(ErrInvalidParameter, "UpdateMethod: %q", method)
}
