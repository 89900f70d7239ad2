// Package lattice provides finite periodic lattices for spin models.
//
// A lattice is immutable after construction. Sites are indexed row-major
// over the extent vector, bonds are indexed in construction order, and both
// carry a type index identifying the lattice direction they belong to.
package lattice

import (
	"fmt"
)

type Lattice struct {
	dim    int
	extent []int

	neighbors     [][]int32
	neighborBonds [][]int32
	source        []int32
	target        []int32

	siteType []int32
	bondType []int32

	numSiteTypes int
	numBondTypes int
	sitesByType  [][]int32
	bondsByType  [][]int32
}

// Chain is a one dimensional periodic chain of l sites.
func Chain(l int) *Lattice {
	return build([]int{l}, [][]int{{1}})
}

// Square is a periodic square lattice.
// Horizontal and vertical bonds carry distinct bond types.
func Square(l, w int) *Lattice {
	return build([]int{l, w}, [][]int{{1, 0}, {0, 1}})
}

// Triangular is a periodic triangular lattice with coordination number 6,
// realized as a square lattice with one additional diagonal per plaquette.
func Triangular(l, w int) *Lattice {
	return build([]int{l, w}, [][]int{{1, 0}, {0, 1}, {1, 1}})
}

// Cubic is a periodic simple cubic lattice.
func Cubic(l, w, h int) *Lattice {
	return build([]int{l, w, h}, [][]int{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}})
}

func build(extent []int, dirs [][]int) *Lattice {
	for _, l := range extent {
		if l < 2 {
			panic(fmt.Sprintf("extent %d < 2", l))
		}
	}

	lat := &Lattice{dim: len(extent), extent: extent}
	nsites := 1
	for _, l := range extent {
		nsites *= l
	}

	lat.neighbors = make([][]int32, nsites)
	lat.neighborBonds = make([][]int32, nsites)
	lat.siteType = make([]int32, nsites)
	lat.numSiteTypes = 1
	lat.sitesByType = make([][]int32, 1)
	for s := 0; s < nsites; s++ {
		lat.sitesByType[0] = append(lat.sitesByType[0], int32(s))
	}

	lat.numBondTypes = len(dirs)
	lat.bondsByType = make([][]int32, len(dirs))

	coord := make([]int, lat.dim)
	for s := 0; s < nsites; s++ {
		lat.siteCoord(s, coord)
		for d, dir := range dirs {
			t := 0
			stride := 1
			for i := lat.dim - 1; i >= 0; i-- {
				c := (coord[i] + dir[i]) % extent[i]
				t += c * stride
				stride *= extent[i]
			}
			lat.addBond(int32(s), int32(t), int32(d))
		}
	}
	return lat
}

func (lat *Lattice) addBond(s, t, typ int32) {
	b := int32(len(lat.source))
	lat.source = append(lat.source, s)
	lat.target = append(lat.target, t)
	lat.bondType = append(lat.bondType, typ)
	lat.bondsByType[typ] = append(lat.bondsByType[typ], b)

	lat.neighbors[s] = append(lat.neighbors[s], t)
	lat.neighborBonds[s] = append(lat.neighborBonds[s], b)
	lat.neighbors[t] = append(lat.neighbors[t], s)
	lat.neighborBonds[t] = append(lat.neighborBonds[t], b)
}

// siteCoord writes the coordinates of site s into coord,
// with the last dimension varying fastest.
func (lat *Lattice) siteCoord(s int, coord []int) {
	for i := lat.dim - 1; i >= 0; i-- {
		coord[i] = s % lat.extent[i]
		s /= lat.extent[i]
	}
}

func (lat *Lattice) Dim() int      { return lat.dim }
func (lat *Lattice) Extent() []int { return lat.extent }
func (lat *Lattice) NumSites() int { return len(lat.neighbors) }
func (lat *Lattice) NumBonds() int { return len(lat.source) }

// Neighbors returns the neighboring sites of s and the bonds leading to them.
func (lat *Lattice) Neighbors(s int) ([]int32, []int32) {
	return lat.neighbors[s], lat.neighborBonds[s]
}

func (lat *Lattice) Source(b int) int   { return int(lat.source[b]) }
func (lat *Lattice) Target(b int) int   { return int(lat.target[b]) }
func (lat *Lattice) SiteType(s int) int { return int(lat.siteType[s]) }
func (lat *Lattice) BondType(b int) int { return int(lat.bondType[b]) }

func (lat *Lattice) NumSiteTypes() int        { return lat.numSiteTypes }
func (lat *Lattice) NumBondTypes() int        { return lat.numBondTypes }
func (lat *Lattice) NumSitesOfType(t int) int { return len(lat.sitesByType[t]) }
func (lat *Lattice) NumBondsOfType(t int) int { return len(lat.bondsByType[t]) }

// SitesOfType returns the sites of type t.
func (lat *Lattice) SitesOfType(t int) []int32 { return lat.sitesByType[t] }

// BondsOfType returns the bonds of type t.
func (lat *Lattice) BondsOfType(t int) []int32 { return lat.bondsByType[t] }
