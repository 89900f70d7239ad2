package stats

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAccumulator(t *testing.T) {
	t.Parallel()
	a := New("x")
	for i := 1; i <= 4; i++ {
		a.Push(float64(i))
	}
	require.Equal(t, 4, a.Count())
	require.InDelta(t, 2.5, a.Mean(), 1e-12)

	// Two bins of two samples, means 1.5 and 3.5.
	// Standard error is sqrt(var/2) = sqrt(2)/sqrt(2)... = 1.
	require.InDelta(t, math.Sqrt(2.0/2), a.StdErr(), 1e-12)
}

func TestAccumulatorGaussian(t *testing.T) {
	t.Parallel()
	rng := rand.New(rand.NewPCG(3, 4))
	a := New("g")
	const n = 10000
	for i := 0; i < n; i++ {
		a.Push(rng.NormFloat64())
	}
	require.InDelta(t, 0, a.Mean(), 5.0/math.Sqrt(n))
	// The standard error of n standard normals is about 1/sqrt(n).
	require.InDelta(t, 1/math.Sqrt(n), a.StdErr(), 0.5/math.Sqrt(n))
}

func TestJackknife(t *testing.T) {
	t.Parallel()
	rng := rand.New(rand.NewPCG(5, 6))
	const n = 4096
	xs := make([]float64, n)
	x2s := make([]float64, n)
	for i := range xs {
		v := 1 + 0.1*rng.NormFloat64()
		xs[i] = v
		x2s[i] = v * v
	}

	// Variance through the jackknife of the nonlinear function m2 - m^2.
	v, vErr := Jackknife(func(means []float64) float64 {
		return means[1] - means[0]*means[0]
	}, xs, x2s)
	require.InDelta(t, 0.01, v, 0.002)
	require.Greater(t, vErr, 0.0)
	require.Less(t, vErr, 0.004)

	// A linear function reproduces the plain mean.
	m, _ := Jackknife(func(means []float64) float64 { return means[0] }, xs)
	a := New("x")
	for _, x := range xs {
		a.Push(x)
	}
	require.InDelta(t, a.Mean(), m, 1e-9)
}
