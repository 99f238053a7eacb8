package svm

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

const tau = 1e-12

// Native is the built-in SMO solver.
type Native struct {
	// MaxIter bounds the number of SMO iterations. Zero selects
	// max(10_000_000, 100*l).
	MaxIter int
}

// Train fits a one-class boundary around samples.
func (n *Native) Train(samples [][]float64, opts Options) (Model, error) {
	dim, err := checkSamples(samples)
	if err != nil {
		return nil, err
	}

	p, err := parseParams(opts, dim)
	if err != nil {
		return nil, err
	}

	maxIter := n.MaxIter
	if maxIter <= 0 {
		maxIter = 10_000_000
		if 100*len(samples) > maxIter {
			maxIter = 100 * len(samples)
		}
	}

	s := newSolver(samples, p)
	if err := s.solve(maxIter); err != nil {
		return nil, err
	}

	return newModel(samples, s.alpha, s.rho(), p.kernel), nil
}

// solver minimizes ½αᵀQα subject to 0 ≤ αᵢ ≤ 1 and Σα = νl. Every label is
// +1 in the one-class problem, which removes the yᵢ terms from the update.
type solver struct {
	l         int
	eps       float64
	shrinking bool

	q     *columnCache
	qd    []float64
	alpha []float64
	grad  []float64

	active []int
}

func newSolver(samples [][]float64, p params) *solver {
	l := len(samples)
	s := &solver{
		l:         l,
		eps:       p.eps,
		shrinking: p.shrinking,
		qd:        make([]float64, l),
		alpha:     make([]float64, l),
		grad:      make([]float64, l),
	}

	s.q = newColumnCache(l, p.cacheSize, func(i int, col []float64) {
		for k := range col {
			col[k] = p.kernel.eval(samples[i], samples[k])
		}
	})

	for i := range samples {
		s.qd[i] = p.kernel.eval(samples[i], samples[i])
	}

	// The first ⌊νl⌋ multipliers start at the upper bound and one more takes
	// the remainder so that Σα = νl holds from the start.
	bound := int(p.nu * float64(l))
	for i := 0; i < bound; i++ {
		s.alpha[i] = 1
	}
	if bound < l {
		s.alpha[bound] = p.nu*float64(l) - float64(bound)
	}

	for j := 0; j < l; j++ {
		if s.alpha[j] == 0 {
			continue
		}
		qj := s.q.column(j)
		for k := 0; k < l; k++ {
			s.grad[k] += s.alpha[j] * qj[k]
		}
	}

	s.resetActive()
	return s
}

func (s *solver) upper(i int) bool { return s.alpha[i] >= 1 }
func (s *solver) lower(i int) bool { return s.alpha[i] <= 0 }

func (s *solver) resetActive() {
	s.active = s.active[:0]
	for i := 0; i < s.l; i++ {
		s.active = append(s.active, i)
	}
}

func (s *solver) solve(maxIter int) error {
	counter := min(s.l, 1000) + 1

	for iter := 0; ; iter++ {
		if iter >= maxIter {
			return fmt.Errorf("%w after %d iterations", ErrNotConverged, iter)
		}

		if s.shrinking {
			counter--
			if counter == 0 {
				counter = min(s.l, 1000)
				s.shrink()
			}
		}

		i, j, ok := s.selectWorkingSet()
		if !ok {
			if len(s.active) == s.l {
				return nil
			}
			// Optimal on the shrunken problem; verify against every variable.
			s.resetActive()
			counter = min(s.l, 1000)
			if i, j, ok = s.selectWorkingSet(); !ok {
				return nil
			}
		}

		s.update(i, j)
	}
}

// selectWorkingSet picks the maximal violating pair using second order
// information. ok is false when the KKT conditions hold within eps.
func (s *solver) selectWorkingSet() (i, j int, ok bool) {
	gmax, gmax2 := math.Inf(-1), math.Inf(-1)
	i, j = -1, -1

	for _, t := range s.active {
		if !s.upper(t) && -s.grad[t] >= gmax {
			gmax = -s.grad[t]
			i = t
		}
	}
	if i == -1 {
		return -1, -1, false
	}

	qi := s.q.column(i)
	objMin := math.Inf(1)

	for _, t := range s.active {
		if s.lower(t) {
			continue
		}
		if s.grad[t] >= gmax2 {
			gmax2 = s.grad[t]
		}
		diff := gmax + s.grad[t]
		if diff <= 0 {
			continue
		}
		quad := s.qd[i] + s.qd[t] - 2*qi[t]
		if quad <= 0 {
			quad = tau
		}
		if obj := -(diff * diff) / quad; obj <= objMin {
			objMin = obj
			j = t
		}
	}

	if gmax+gmax2 < s.eps || j == -1 {
		return -1, -1, false
	}
	return i, j, true
}

func (s *solver) update(i, j int) {
	qi := s.q.column(i)
	qj := s.q.column(j)

	oldI, oldJ := s.alpha[i], s.alpha[j]

	quad := s.qd[i] + s.qd[j] - 2*qi[j]
	if quad <= 0 {
		quad = tau
	}
	delta := (s.grad[i] - s.grad[j]) / quad
	sum := oldI + oldJ

	ai, aj := oldI-delta, oldJ+delta

	if sum > 1 {
		if ai > 1 {
			ai, aj = 1, sum-1
		}
	} else if aj < 0 {
		aj, ai = 0, sum
	}
	if sum > 1 {
		if aj > 1 {
			aj, ai = 1, sum-1
		}
	} else if ai < 0 {
		ai, aj = 0, sum
	}

	s.alpha[i], s.alpha[j] = ai, aj

	di, dj := ai-oldI, aj-oldJ
	for k := 0; k < s.l; k++ {
		s.grad[k] += qi[k]*di + qj[k]*dj
	}
}

// shrink drops bounded variables that are unlikely to move from the
// working set search. Gradients stay current for every variable, so
// reactivating them needs no reconstruction.
func (s *solver) shrink() {
	gmax1, gmax2 := math.Inf(-1), math.Inf(-1)
	for _, t := range s.active {
		if !s.upper(t) && -s.grad[t] >= gmax1 {
			gmax1 = -s.grad[t]
		}
		if !s.lower(t) && s.grad[t] >= gmax2 {
			gmax2 = s.grad[t]
		}
	}

	kept := s.active[:0]
	for _, t := range s.active {
		switch {
		case s.upper(t) && -s.grad[t] > gmax1:
		case s.lower(t) && s.grad[t] > gmax2:
		default:
			kept = append(kept, t)
		}
	}
	s.active = kept
}

// rho is the offset of the decision function: the mean gradient over free
// support vectors, or the midpoint of the feasible interval when none exist.
func (s *solver) rho() float64 {
	ub, lb := math.Inf(1), math.Inf(-1)
	var sumFree float64
	var nFree int

	for i := 0; i < s.l; i++ {
		g := s.grad[i]
		switch {
		case s.upper(i):
			lb = math.Max(lb, g)
		case s.lower(i):
			ub = math.Min(ub, g)
		default:
			nFree++
			sumFree += g
		}
	}

	switch {
	case nFree > 0:
		return sumFree / float64(nFree)
	case math.IsInf(ub, 1):
		return lb
	case math.IsInf(lb, -1):
		return ub
	default:
		return (ub + lb) / 2
	}
}

// model is the fitted decision function Σαᵢk(xᵢ, x) − ρ.
type model struct {
	sv     *mat.Dense
	coef   []float64
	rho    float64
	kernel kernelFunc
}

func newModel(samples [][]float64, alpha []float64, rho float64, k kernelFunc) *model {
	dim := len(samples[0])

	var data, coef []float64
	for i, a := range alpha {
		if a > 0 {
			data = append(data, samples[i]...)
			coef = append(coef, a)
		}
	}

	return &model{
		sv:     mat.NewDense(len(coef), dim, data),
		coef:   coef,
		rho:    rho,
		kernel: k,
	}
}

func (m *model) Decision(sample []float64) float64 {
	var sum float64
	for i, c := range m.coef {
		sum += c * m.kernel.eval(m.sv.RawRowView(i), sample)
	}
	return sum - m.rho
}

func (m *model) Predict(sample []float64) float64 {
	if m.Decision(sample) > 0 {
		return InlierLabel
	}
	return OutlierLabel
}

func (m *model) Dim() int {
	_, c := m.sv.Dims()
	return c
}

func (m *model) NumSupportVectors() int { return len(m.coef) }
