// Package model_selection provides deterministic data partitioning
// utilities compatible with scikit-learn's model_selection module.
package model_selection

import (
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/mnistlab/pkg/errors"
)

// TrainTestSplit partitions samples and labels into disjoint train and test
// sets. The split is a deterministic function of the seed: identical inputs
// and seed always produce identical partitions.
//
// testSize is the fraction of samples assigned to the test partition and
// must lie in (0, 1). Both partitions are guaranteed non-empty and together
// cover the input exactly once.
func TrainTestSplit(X mat.Matrix, y []int, testSize float64, seed int64) (XTrain, XTest *mat.Dense, yTrain, yTest []int, err error) {
	n, c := X.Dims()
	if n == 0 || c == 0 {
		return nil, nil, nil, nil, errors.NewModelError("TrainTestSplit", "empty data", errors.ErrEmptyData)
	}
	if len(y) != n {
		return nil, nil, nil, nil, errors.NewDimensionError("TrainTestSplit", n, len(y), 0)
	}
	if testSize <= 0 || testSize >= 1 {
		return nil, nil, nil, nil, errors.NewValidationError("test_size", "must be in (0, 1)", testSize)
	}

	nTest := int(math.Round(float64(n) * testSize))
	if nTest < 1 {
		nTest = 1
	}
	if nTest >= n {
		nTest = n - 1
	}
	nTrain := n - nTest

	rng := rand.New(rand.NewSource(seed))
	perm := rng.Perm(n)

	XTrain = mat.NewDense(nTrain, c, nil)
	XTest = mat.NewDense(nTest, c, nil)
	yTrain = make([]int, nTrain)
	yTest = make([]int, nTest)

	for i, idx := range perm[:nTest] {
		for j := 0; j < c; j++ {
			XTest.Set(i, j, X.At(idx, j))
		}
		yTest[i] = y[idx]
	}
	for i, idx := range perm[nTest:] {
		for j := 0; j < c; j++ {
			XTrain.Set(i, j, X.At(idx, j))
		}
		yTrain[i] = y[idx]
	}

	return XTrain, XTest, yTrain, yTest, nil
}

// Subsample draws n rows without replacement, deterministically for a given
// seed. Passing n equal to the row count returns a shuffled copy.
func Subsample(X mat.Matrix, y []int, n int, seed int64) (*mat.Dense, []int, error) {
	rows, c := X.Dims()
	if rows == 0 || c == 0 {
		return nil, nil, errors.NewModelError("Subsample", "empty data", errors.ErrEmptyData)
	}
	if len(y) != rows {
		return nil, nil, errors.NewDimensionError("Subsample", rows, len(y), 0)
	}
	if n <= 0 || n > rows {
		return nil, nil, errors.NewValidationError("n", "must be in [1, rows]", n)
	}

	rng := rand.New(rand.NewSource(seed))
	perm := rng.Perm(rows)

	XSub := mat.NewDense(n, c, nil)
	ySub := make([]int, n)
	for i, idx := range perm[:n] {
		for j := 0; j < c; j++ {
			XSub.Set(i, j, X.At(idx, j))
		}
		ySub[i] = y[idx]
	}

	return XSub, ySub, nil
}
