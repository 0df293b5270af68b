package svm

import (
	"math"

	"github.com/YuminosukeSato/mnistlab/pkg/errors"
)

// Kernel identifiers accepted by SVC, matching scikit-learn's names.
const (
	KernelRBF    = "rbf"
	KernelLinear = "linear"
	KernelPoly   = "poly"
)

// kernelFunc computes the kernel value for two feature vectors of equal length.
type kernelFunc func(a, b []float64) float64

// makeKernel resolves a kernel name and its hyperparameters into a concrete
// kernel function. gamma must already be resolved to a numeric value.
func makeKernel(kernel string, gamma, coef0 float64, degree int) (kernelFunc, error) {
	switch kernel {
	case KernelLinear:
		return dot, nil
	case KernelRBF:
		if gamma <= 0 {
			return nil, errors.NewValidationError("gamma", "must be positive for rbf kernel", gamma)
		}
		return func(a, b []float64) float64 {
			// K(a, b) = exp(-gamma * ||a - b||²)
			sum := 0.0
			for i := range a {
				d := a[i] - b[i]
				sum += d * d
			}
			return math.Exp(-gamma * sum)
		}, nil
	case KernelPoly:
		if gamma <= 0 {
			return nil, errors.NewValidationError("gamma", "must be positive for poly kernel", gamma)
		}
		if degree < 1 {
			return nil, errors.NewValidationError("degree", "must be at least 1", degree)
		}
		return func(a, b []float64) float64 {
			// K(a, b) = (gamma * <a, b> + coef0)^degree
			return math.Pow(gamma*dot(a, b)+coef0, float64(degree))
		}, nil
	default:
		return nil, errors.NewValidationError("kernel", "must be one of rbf, linear, poly", kernel)
	}
}

func dot(a, b []float64) float64 {
	sum := 0.0
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}
