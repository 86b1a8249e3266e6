package nullmodel

import (
	"math"
	"slices"

	"github.com/maayanlab/turbogsea/internal/gammafit"
)

// DefaultAnchors is the default number of anchor sizes.
const DefaultAnchors = 12

// Anchors returns up to count sizes spaced geometrically from minSize to
// maxSize, both included.
func Anchors(minSize, maxSize, count int) []int {
	if minSize < 2 {
		minSize = 2
	}
	if maxSize <= minSize || count < 2 {
		return []int{minSize}
	}
	ratio := math.Pow(float64(maxSize)/float64(minSize), 1/float64(count-1))
	out := make([]int, 0, count)
	for i := range count {
		s := int(math.Round(float64(minSize) * math.Pow(ratio, float64(i))))
		out = append(out, min(max(s, minSize), maxSize))
	}
	out[len(out)-1] = maxSize
	return slices.Compact(out)
}

// Interpolate builds the null fit for size from fits at anchor sizes.
// Gamma parameters are smoothed on log scales across the converged anchors;
// the nearest anchor supplies the null sample used for empirical fallback.
func Interpolate(anchors []gammafit.NullFit, size int) gammafit.NullFit {
	nearest := anchors[0]
	for _, a := range anchors[1:] {
		if absInt(a.Size-size) < absInt(nearest.Size-size) {
			nearest = a
		}
	}
	if nearest.Size == size {
		return nearest
	}

	at := math.Log(float64(size))
	pos := smoothTail(anchors, at, nearest.Positive.Params, func(nf gammafit.NullFit) gammafit.Tail { return nf.Positive })
	neg := smoothTail(anchors, at, nearest.Negative.Params, func(nf gammafit.NullFit) gammafit.Tail { return nf.Negative })
	return nearest.WithParams(size, pos, neg)
}

func smoothTail(anchors []gammafit.NullFit, at float64, fallback gammafit.Params, side func(gammafit.NullFit) gammafit.Tail) gammafit.Params {
	var xs, shapes, scales []float64
	for _, a := range anchors {
		t := side(a)
		if !t.Converged {
			continue
		}
		xs = append(xs, math.Log(float64(a.Size)))
		shapes = append(shapes, math.Log(t.Params.Shape))
		scales = append(scales, math.Log(t.Params.Scale))
	}
	if len(xs) < 3 {
		return fallback
	}
	return gammafit.Params{
		Shape: math.Exp(Lowess(xs, shapes, at, DefaultSpan)),
		Scale: math.Exp(Lowess(xs, scales, at, DefaultSpan)),
	}
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
