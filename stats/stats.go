// Package stats provides the statistics accumulator used by Monte Carlo runs.
package stats

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// Accumulator accumulates a series of measurements and reports their mean
// and standard error. The standard error is computed over bins of roughly
// sqrt(n) consecutive samples, which absorbs short autocorrelations.
type Accumulator struct {
	Name string
	xs   []float64
	bins []float64
}

func New(name string) *Accumulator {
	return &Accumulator{Name: name}
}

func (a *Accumulator) Push(x float64) {
	a.xs = append(a.xs, x)
}

func (a *Accumulator) Count() int { return len(a.xs) }

// Series returns the accumulated samples.
func (a *Accumulator) Series() []float64 { return a.xs }

func (a *Accumulator) Mean() float64 {
	if len(a.xs) == 0 {
		return math.NaN()
	}
	return stat.Mean(a.xs, nil)
}

func (a *Accumulator) StdErr() float64 {
	bins := binMeans(a.bins[:0], a.xs)
	a.bins = bins
	if len(bins) < 2 {
		return math.NaN()
	}
	return math.Sqrt(stat.Variance(bins, nil) / float64(len(bins)))
}

// binMeans reduces xs to about sqrt(len(xs)) bin means, appending to dst.
// Leftover samples beyond a whole number of bins are dropped.
func binMeans(dst, xs []float64) []float64 {
	n := len(xs)
	if n == 0 {
		return dst
	}
	nbins := int(math.Sqrt(float64(n)))
	if nbins < 2 {
		nbins = 1
	}
	size := n / nbins
	if size < 1 {
		size = 1
		nbins = n
	}
	for k := 0; k < nbins; k++ {
		dst = append(dst, stat.Mean(xs[k*size:(k+1)*size], nil))
	}
	return dst
}

// Jackknife estimates f evaluated at the means of the given series, with a
// leave-one-bin-out jackknife standard error. All series must have equal
// length; they are binned jointly so cross correlations are preserved.
// The means are taken over whole bins, so samples left over beyond a whole
// number of bins are excluded, as in binMeans.
func Jackknife(f func(means []float64) float64, series ...[]float64) (float64, float64) {
	if len(series) == 0 {
		return math.NaN(), math.NaN()
	}
	n := len(series[0])
	for _, s := range series {
		if len(s) != n {
			return math.NaN(), math.NaN()
		}
	}

	binned := make([][]float64, len(series))
	for i, s := range series {
		binned[i] = binMeans(nil, s)
	}
	nbins := len(binned[0])

	means := make([]float64, len(series))
	for i, b := range binned {
		means[i] = stat.Mean(b, nil)
	}
	center := f(means)
	if nbins < 2 {
		return center, math.NaN()
	}

	// Leave-one-out estimates.
	loo := make([]float64, nbins)
	looMeans := make([]float64, len(series))
	for k := 0; k < nbins; k++ {
		for i, b := range binned {
			looMeans[i] = (means[i]*float64(nbins) - b[k]) / float64(nbins-1)
		}
		loo[k] = f(looMeans)
	}

	looBar := stat.Mean(loo, nil)
	var ss float64
	for _, v := range loo {
		ss += (v - looBar) * (v - looBar)
	}
	stderr := math.Sqrt(float64(nbins-1) / float64(nbins) * ss)
	return center, stderr
}
