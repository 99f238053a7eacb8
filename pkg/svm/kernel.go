package svm

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

type kernelFunc struct {
	typ    KernelType
	gamma  float64
	degree int
	coef0  float64
}

func (k kernelFunc) eval(x, y []float64) float64 {
	switch k.typ {
	case Linear:
		return floats.Dot(x, y)
	case Polynomial:
		return powi(k.gamma*floats.Dot(x, y)+k.coef0, k.degree)
	case Sigmoid:
		return math.Tanh(k.gamma*floats.Dot(x, y) + k.coef0)
	default:
		d := floats.Distance(x, y, 2)
		return math.Exp(-k.gamma * d * d)
	}
}

// powi raises base to a non-negative integer power by squaring.
func powi(base float64, times int) float64 {
	ret := 1.0
	for t := times; t > 0; t /= 2 {
		if t%2 == 1 {
			ret *= base
		}
		base *= base
	}
	return ret
}
