// Command run performs temperature scans of lattice spin models and prints
// the gathered observables as CSV. Finished runs are recorded in a sqlite
// database, so an interrupted scan resumes where it left off.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"sync"

	"github.com/pkg/errors"

	"github.com/fumin/spinmc"
	"github.com/fumin/spinmc/runstore"
)

const fnameResults = "results.db"

var (
	runDir = flag.String("d", filepath.Join("runs", "spinmc"), "run directory")
	mcs    = flag.Int("mcs", 8192, "measurement sweeps per run")
	therm  = flag.Int("therm", 1024, "thermalization sweeps per run")
)

type config struct {
	key    runstore.Key
	params spinmc.Param
}

func configs() []config {
	cs := make([]config, 0)

	// Ising on the square lattice across the critical region.
	for i := 0; i < 33; i++ {
		t := 1.6 + 0.05*float64(i)
		cs = append(cs, config{
			key: runstore.Key{Model: "Ising", Lattice: "square", L: 16, W: 16, T: t},
			params: spinmc.Param{
				"Model": "Ising", "Lattice": "square", "L": 16,
				"J": 1.0, "T": t, "UpdateMethod": "SW",
			},
		})
	}

	// Antiferromagnetic Heisenberg chain.
	for i := 0; i < 16; i++ {
		t := 0.1 + 0.1*float64(i)
		cs = append(cs, config{
			key: runstore.Key{Model: "QuantumXXZ", Lattice: "chain", L: 16, T: t},
			params: spinmc.Param{
				"Model": "QuantumXXZ", "Lattice": "chain", "L": 16,
				"J": 1.0, "Jxy": 1.0, "T": t,
			},
		})
	}

	// Transverse field Ising chain across the quantum critical point.
	for i := 0; i < 13; i++ {
		g := 0.25 * float64(i)
		cs = append(cs, config{
			key: runstore.Key{Model: "TransverseFieldIsing", Lattice: "chain", L: 16, T: 0.05, Seed: int64(i)},
			params: spinmc.Param{
				"Model": "TransverseFieldIsing", "Lattice": "chain", "L": 16,
				"J": 1.0, "G": g, "T": 0.05, "Seed": i,
			},
		})
	}

	for i := range cs {
		cs[i].params["MCS"] = *mcs
		cs[i].params["Thermalization"] = *therm
		cs[i].params["Seed"] = int(cs[i].key.Seed)
	}
	return cs
}

func solve(store *runstore.Store, c config) error {
	done, err := store.Done(c.key)
	if err != nil {
		return errors.Wrap(err, "")
	}
	if done {
		return nil
	}

	run, err := spinmc.Run(c.params)
	if err != nil {
		return errors.Wrap(err, fmt.Sprintf("%#v", c.key))
	}
	if run.DroppedSweeps > 0 {
		log.Printf("%#v: %d dropped sweeps", c.key, run.DroppedSweeps)
	}

	if err := store.Save(c.key, run.Results); err != nil {
		return errors.Wrap(err, "")
	}
	return nil
}

func gather(store *runstore.Store, cs []config) error {
	fmt.Printf("model,lattice,l,t,seed,energy,energy_err,m2,m2_err,specific_heat,specific_heat_err\n")
	for _, c := range cs {
		results, err := store.Load(c.key)
		if err != nil {
			return errors.Wrap(err, "")
		}
		byName := make(map[string]spinmc.Result, len(results))
		for _, r := range results {
			byName[r.Name] = r
		}
		e := byName["Energy"]
		m2 := byName["Magnetization^2"]
		sh := byName["Specific Heat"]
		fmt.Printf("%s,%s,%d,%f,%d,%f,%f,%f,%f,%f,%f\n",
			c.key.Model, c.key.Lattice, c.key.L, c.key.T, c.key.Seed,
			e.Mean, e.StdErr, m2.Mean, m2.StdErr, sh.Mean, sh.StdErr)
	}
	return nil
}

func main() {
	flag.Parse()
	log.SetFlags(log.Lmicroseconds | log.Llongfile | log.LstdFlags)

	if err := mainWithErr(); err != nil {
		log.Fatalf("%+v", err)
	}
}

func mainWithErr() error {
	if err := os.MkdirAll(*runDir, os.ModePerm); err != nil {
		return errors.Wrap(err, "")
	}
	store, err := runstore.Open(filepath.Join(*runDir, fnameResults))
	if err != nil {
		return errors.Wrap(err, "")
	}
	defer store.Close()

	cs := configs()

	// Runs are independent and share no mutable state;
	// scan them in parallel with one worker per CPU.
	work := make(chan config, len(cs))
	for _, c := range cs {
		work <- c
	}
	close(work)

	var mu sync.Mutex
	var firstErr error
	var wg sync.WaitGroup
	for w := 0; w < runtime.NumCPU(); w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for c := range work {
				if err := solve(store, c); err != nil {
					mu.Lock()
					if firstErr == nil {
						firstErr = err
					}
					mu.Unlock()
					return
				}
				log.Printf("%s %s T=%f done", c.key.Model, c.key.Lattice, c.key.T)
			}
		}()
	}
	wg.Wait()
	if firstErr != nil {
		return firstErr
	}

	return gather(store, cs)
}
