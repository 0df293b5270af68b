package svm

import (
	"math"
	"math/rand"
)

// kernelCache lazily computes rows of the Gram matrix. Sub-problems from
// one-vs-one training are small enough that most rows stay resident; when
// the bound is hit the cache is flushed rather than evicted per-row.
type kernelCache struct {
	x       [][]float64
	kernel  kernelFunc
	rows    map[int][]float64
	maxRows int
}

func newKernelCache(x [][]float64, kernel kernelFunc, maxRows int) *kernelCache {
	if maxRows < 2 {
		maxRows = 2
	}
	return &kernelCache{
		x:       x,
		kernel:  kernel,
		rows:    make(map[int][]float64),
		maxRows: maxRows,
	}
}

func (c *kernelCache) row(i int) []float64 {
	if row, ok := c.rows[i]; ok {
		return row
	}
	if len(c.rows) >= c.maxRows {
		c.rows = make(map[int][]float64)
	}
	row := make([]float64, len(c.x))
	for j := range c.x {
		row[j] = c.kernel(c.x[i], c.x[j])
	}
	c.rows[i] = row
	return row
}

func (c *kernelCache) at(i, j int) float64 {
	if row, ok := c.rows[i]; ok {
		return row[j]
	}
	if row, ok := c.rows[j]; ok {
		return row[i]
	}
	return c.kernel(c.x[i], c.x[j])
}

// smoSolver solves the binary soft-margin dual problem with sequential
// minimal optimization (Platt's algorithm with an incrementally maintained
// decision-value cache).
type smoSolver struct {
	x       [][]float64
	y       []float64 // labels in {-1, +1}
	c       float64
	tol     float64
	maxIter int
	cache   *kernelCache
	rng     *rand.Rand

	alpha []float64
	b     float64
	f     []float64 // current decision values f(x_k)
}

// minAlphaStep is the smallest alpha change counted as progress.
const minAlphaStep = 1e-8

// quietPasses is the number of consecutive full passes without any alpha
// update required before declaring convergence.
const quietPasses = 3

func newSMOSolver(x [][]float64, y []float64, kernel kernelFunc, c, tol float64, maxIter int, cacheRows int, rng *rand.Rand) *smoSolver {
	n := len(x)
	return &smoSolver{
		x:       x,
		y:       y,
		c:       c,
		tol:     tol,
		maxIter: maxIter,
		cache:   newKernelCache(x, kernel, cacheRows),
		rng:     rng,
		alpha:   make([]float64, n),
		f:       make([]float64, n),
	}
}

// solve runs SMO passes until the KKT conditions hold within tol or
// maxIter passes have been made. It returns the number of full passes
// and whether the solver converged.
func (s *smoSolver) solve() (iterations int, converged bool) {
	passes := 0
	iter := 0
	for passes < quietPasses {
		if s.maxIter > 0 && iter >= s.maxIter {
			return iter, false
		}

		numChanged := 0
		for i := range s.x {
			ei := s.f[i] - s.y[i]
			ri := ei * s.y[i]
			// KKT violation: the margin is too small for a non-bound alpha
			// or too large for a non-zero alpha.
			if (ri < -s.tol && s.alpha[i] < s.c) || (ri > s.tol && s.alpha[i] > 0) {
				if s.examine(i, ei) {
					numChanged++
				}
			}
		}

		iter++
		if numChanged == 0 {
			passes++
		} else {
			passes = 0
		}
	}
	return iter, true
}

// examine picks a second index for i and attempts a joint optimization
// step. The first candidate maximizes |Ei - Ej| (Platt's second-choice
// heuristic); if that step makes no progress the remaining indices are
// tried in seeded-random order.
func (s *smoSolver) examine(i int, ei float64) bool {
	n := len(s.x)

	best := -1
	bestGap := 0.0
	for j := 0; j < n; j++ {
		if j == i {
			continue
		}
		gap := math.Abs(ei - (s.f[j] - s.y[j]))
		if gap > bestGap {
			bestGap = gap
			best = j
		}
	}
	if best >= 0 && s.step(i, best, ei) {
		return true
	}

	for _, j := range s.rng.Perm(n) {
		if j == i || j == best {
			continue
		}
		if s.step(i, j, ei) {
			return true
		}
	}
	return false
}

// step jointly optimizes alpha[i] and alpha[j], keeping the equality
// constraint sum(alpha*y) = 0 intact. Returns false when the pair allows
// no progress.
func (s *smoSolver) step(i, j int, ei float64) bool {
	if i == j {
		return false
	}

	ej := s.f[j] - s.y[j]
	aiOld := s.alpha[i]
	ajOld := s.alpha[j]

	var low, high float64
	if s.y[i] != s.y[j] {
		low = math.Max(0, ajOld-aiOld)
		high = math.Min(s.c, s.c+ajOld-aiOld)
	} else {
		low = math.Max(0, aiOld+ajOld-s.c)
		high = math.Min(s.c, aiOld+ajOld)
	}
	if low >= high {
		return false
	}

	kii := s.cache.at(i, i)
	kjj := s.cache.at(j, j)
	kij := s.cache.at(i, j)
	eta := kii + kjj - 2*kij
	if eta <= 0 {
		// Non-positive curvature happens only in degenerate cases
		// (duplicate points); skip the pair.
		return false
	}

	ajNew := ajOld + s.y[j]*(ei-ej)/eta
	if ajNew < low {
		ajNew = low
	} else if ajNew > high {
		ajNew = high
	}
	if math.Abs(ajNew-ajOld) < minAlphaStep*(ajNew+ajOld+minAlphaStep) {
		return false
	}

	aiNew := aiOld + s.y[i]*s.y[j]*(ajOld-ajNew)

	// Recompute the threshold so a KKT-interior point has zero error.
	b1 := s.b - ei - s.y[i]*(aiNew-aiOld)*kii - s.y[j]*(ajNew-ajOld)*kij
	b2 := s.b - ej - s.y[i]*(aiNew-aiOld)*kij - s.y[j]*(ajNew-ajOld)*kjj
	var bNew float64
	switch {
	case aiNew > 0 && aiNew < s.c:
		bNew = b1
	case ajNew > 0 && ajNew < s.c:
		bNew = b2
	default:
		bNew = (b1 + b2) / 2
	}
	deltaB := bNew - s.b

	dAlphaI := (aiNew - aiOld) * s.y[i]
	dAlphaJ := (ajNew - ajOld) * s.y[j]
	rowI := s.cache.row(i)
	rowJ := s.cache.row(j)
	for k := range s.f {
		s.f[k] += dAlphaI*rowI[k] + dAlphaJ*rowJ[k] + deltaB
	}

	s.alpha[i] = aiNew
	s.alpha[j] = ajNew
	s.b = bNew
	return true
}
