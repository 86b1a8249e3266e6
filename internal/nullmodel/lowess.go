package nullmodel

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// DefaultSpan is the fraction of points in each local regression.
const DefaultSpan = 0.6

// Lowess evaluates a locally weighted linear fit of y on x at the point at.
// The nearest ceil(span*n) points (at least 3) are weighted with the tricube
// kernel.
func Lowess(x, y []float64, at, span float64) float64 {
	n := len(x)
	switch n {
	case 0:
		return math.NaN()
	case 1:
		return y[0]
	}

	q := max(int(math.Ceil(span*float64(n))), 3)
	q = min(q, n)

	dist := make([]float64, n)
	for i, xi := range x {
		dist[i] = math.Abs(xi - at)
	}
	sorted := append([]float64(nil), dist...)
	sort.Float64s(sorted)
	h := sorted[q-1] * 1.000001
	if h == 0 {
		h = 1
	}

	var xs, ys, ws []float64
	for i, d := range dist {
		u := d / h
		if u >= 1 {
			continue
		}
		w := 1 - u*u*u
		xs = append(xs, x[i])
		ys = append(ys, y[i])
		ws = append(ws, w*w*w)
	}

	alpha, beta := stat.LinearRegression(xs, ys, ws, false)
	v := alpha + beta*at
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return stat.Mean(ys, ws)
	}
	return v
}
