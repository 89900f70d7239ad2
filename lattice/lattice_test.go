package lattice

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLattices(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name      string
		lat       *Lattice
		sites     int
		bonds     int
		bondTypes int
		coord     int
	}{
		{name: "chain", lat: Chain(8), sites: 8, bonds: 8, bondTypes: 1, coord: 2},
		{name: "square", lat: Square(4, 6), sites: 24, bonds: 48, bondTypes: 2, coord: 4},
		{name: "triangular", lat: Triangular(4, 4), sites: 16, bonds: 48, bondTypes: 3, coord: 6},
		{name: "cubic", lat: Cubic(3, 4, 5), sites: 60, bonds: 180, bondTypes: 3, coord: 6},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()
			lat := test.lat
			require.Equal(t, test.sites, lat.NumSites())
			require.Equal(t, test.bonds, lat.NumBonds())
			require.Equal(t, test.bondTypes, lat.NumBondTypes())
			require.Equal(t, 1, lat.NumSiteTypes())
			require.Equal(t, test.sites, lat.NumSitesOfType(0))

			for s := 0; s < lat.NumSites(); s++ {
				neighbors, bonds := lat.Neighbors(s)
				require.Len(t, neighbors, test.coord)
				require.Len(t, bonds, test.coord)
			}

			totalOfType := 0
			for bt := 0; bt < lat.NumBondTypes(); bt++ {
				totalOfType += lat.NumBondsOfType(bt)
				for _, b := range lat.BondsOfType(bt) {
					require.Equal(t, bt, lat.BondType(int(b)))
				}
			}
			require.Equal(t, test.bonds, totalOfType)
		})
	}
}

// TestBondTables checks that every bond appears exactly once in the
// source/target tables and that the neighbor tables are consistent with them.
func TestBondTables(t *testing.T) {
	t.Parallel()
	lats := map[string]*Lattice{
		"chain":      Chain(5),
		"square":     Square(4, 4),
		"triangular": Triangular(4, 6),
		"cubic":      Cubic(3, 3, 3),
	}
	for name, lat := range lats {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			// Each bond connects valid sites and is listed by both endpoints.
			for b := 0; b < lat.NumBonds(); b++ {
				src, tgt := lat.Source(b), lat.Target(b)
				require.GreaterOrEqual(t, src, 0)
				require.Less(t, src, lat.NumSites())
				require.GreaterOrEqual(t, tgt, 0)
				require.Less(t, tgt, lat.NumSites())
				require.Contains(t, neighborBondIDs(lat, src), int32(b))
				require.Contains(t, neighborBondIDs(lat, tgt), int32(b))
			}

			// Each bond id appears exactly twice over all neighbor tables,
			// once from each endpoint.
			counts := make(map[int32]int)
			for s := 0; s < lat.NumSites(); s++ {
				neighbors, bonds := lat.Neighbors(s)
				for i, b := range bonds {
					counts[b]++
					other := lat.Source(int(b)) + lat.Target(int(b)) - s
					require.Equal(t, int32(other), neighbors[i], fmt.Sprintf("site %d bond %d", s, b))
				}
			}
			require.Len(t, counts, lat.NumBonds())
			for b, c := range counts {
				require.Equal(t, 2, c, fmt.Sprintf("bond %d", b))
			}
		})
	}
}

func neighborBondIDs(lat *Lattice, s int) []int32 {
	_, bonds := lat.Neighbors(s)
	return bonds
}
