package runstore

import (
	"path/filepath"
	"testing"

	"github.com/fumin/spinmc"
)

func TestStore(t *testing.T) {
	t.Parallel()
	store, err := Open(filepath.Join(t.TempDir(), "results.db"))
	if err != nil {
		t.Fatalf("%+v", err)
	}
	defer store.Close()

	key := Key{Model: "Ising", Lattice: "square", L: 16, W: 16, T: 2.269185, Seed: 0}
	done, err := store.Done(key)
	if err != nil {
		t.Fatalf("%+v", err)
	}
	if done {
		t.Fatalf("unexpectedly done")
	}

	results := []spinmc.Result{
		{Name: "Energy", Mean: -1.453, StdErr: 0.002},
		{Name: "Specific Heat", Mean: 1.498, StdErr: 0.03},
	}
	if err := store.Save(key, results); err != nil {
		t.Fatalf("%+v", err)
	}

	done, err = store.Done(key)
	if err != nil {
		t.Fatalf("%+v", err)
	}
	if !done {
		t.Fatalf("not done")
	}

	loaded, err := store.Load(key)
	if err != nil {
		t.Fatalf("%+v", err)
	}
	if len(loaded) != len(results) {
		t.Fatalf("%d results, expected %d", len(loaded), len(results))
	}
	for i, r := range results {
		if loaded[i] != r {
			t.Fatalf("%d: %#v, expected %#v", i, loaded[i], r)
		}
	}

	// A different key is independent.
	other := key
	other.T = 2.0
	done, err = store.Done(other)
	if err != nil {
		t.Fatalf("%+v", err)
	}
	if done {
		t.Fatalf("unexpectedly done")
	}
}
