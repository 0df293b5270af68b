// Package svm implements C-support vector classification compatible with
// scikit-learn's SVC. Binary sub-problems are solved with sequential
// minimal optimization; multiclass problems use one-vs-one voting.
package svm

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"math/rand"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/mnistlab/core/model"
	"github.com/YuminosukeSato/mnistlab/core/parallel"
	"github.com/YuminosukeSato/mnistlab/metrics"
	"github.com/YuminosukeSato/mnistlab/pkg/errors"
)

// kernelCacheRows bounds the number of Gram matrix rows kept per binary
// sub-problem.
const kernelCacheRows = 1024

// predictParallelThreshold is the sample count above which prediction
// fans out across CPU cores. Each goroutine works on a disjoint row
// range of the output.
const predictParallelThreshold = 64

// SVC implements C-support vector classification.
type SVC struct {
	state *model.StateManager // State management (composition)

	// Hyperparameters
	kernel      string  // Kernel: "rbf", "linear", "poly"
	c           float64 // Regularization strength
	gamma       float64 // Explicit kernel coefficient, ignored when gammaScale is set
	gammaScale  bool    // Use the scikit-learn "scale" heuristic instead of gamma
	degree      int     // Degree for the poly kernel
	coef0       float64 // Independent term for the poly kernel
	tol         float64 // Tolerance for the KKT stopping criterion
	maxIter     int     // Maximum SMO passes per binary sub-problem (0 = no limit)
	randomState int64   // Random seed

	// Model parameters
	classes_    []int       // Unique class labels, sorted
	pairs_      []pairModel // One binary model per class pair
	gammaValue_ float64     // Resolved numeric gamma
	nFeatures_  int         // Number of features seen during fit

	// Internal state
	rng      *rand.Rand
	kernelFn kernelFunc // resolved kernel, rebuilt on load
}

// pairModel is one fitted one-vs-one binary classifier. A positive decision
// value votes for ClassA, a negative one for ClassB.
type pairModel struct {
	ClassA   int
	ClassB   int
	SupportX [][]float64 // Support vectors
	DualCoef []float64   // alpha_i * y_i for each support vector
	B        float64     // Threshold
}

// SVCOption is a functional option for SVC
type SVCOption func(*SVC)

// NewSVC creates a new support vector classifier with scikit-learn's
// default hyperparameters (rbf kernel, C=1, gamma="scale").
func NewSVC(opts ...SVCOption) *SVC {
	clf := &SVC{
		state:       model.NewStateManager(),
		kernel:      KernelRBF,
		c:           1.0,
		gammaScale:  true,
		degree:      3,
		coef0:       0.0,
		tol:         1e-3,
		maxIter:     1000,
		randomState: -1,
	}

	for _, opt := range opts {
		opt(clf)
	}

	if clf.randomState >= 0 {
		clf.rng = rand.New(rand.NewSource(clf.randomState))
	} else {
		clf.rng = rand.New(rand.NewSource(rand.Int63()))
	}

	return clf
}

// WithKernel sets the kernel family ("rbf", "linear", "poly")
func WithKernel(kernel string) SVCOption {
	return func(clf *SVC) {
		clf.kernel = kernel
	}
}

// WithC sets the regularization strength
func WithC(c float64) SVCOption {
	return func(clf *SVC) {
		clf.c = c
	}
}

// WithGamma sets the kernel coefficient to an explicit value. Non-positive
// values are rejected at fit time; use WithGammaScale for the heuristic.
func WithGamma(gamma float64) SVCOption {
	return func(clf *SVC) {
		clf.gamma = gamma
		clf.gammaScale = false
	}
}

// WithGammaScale selects the scikit-learn "scale" heuristic
// gamma = 1 / (n_features * Var(X)), resolved at fit time. This is the
// default.
func WithGammaScale() SVCOption {
	return func(clf *SVC) {
		clf.gammaScale = true
	}
}

// WithDegree sets the degree of the poly kernel
func WithDegree(degree int) SVCOption {
	return func(clf *SVC) {
		clf.degree = degree
	}
}

// WithCoef0 sets the independent term of the poly kernel
func WithCoef0(coef0 float64) SVCOption {
	return func(clf *SVC) {
		clf.coef0 = coef0
	}
}

// WithTol sets the tolerance of the KKT stopping criterion
func WithTol(tol float64) SVCOption {
	return func(clf *SVC) {
		clf.tol = tol
	}
}

// WithMaxIter sets the maximum number of SMO passes per binary sub-problem
func WithMaxIter(maxIter int) SVCOption {
	return func(clf *SVC) {
		clf.maxIter = maxIter
	}
}

// WithRandomState sets the random seed used for SMO tie-breaking
func WithRandomState(seed int64) SVCOption {
	return func(clf *SVC) {
		clf.randomState = seed
		if seed >= 0 {
			clf.rng = rand.New(rand.NewSource(seed))
		}
	}
}

// Fit trains the classifier on the given samples and labels. y must be a
// single-column matrix of integral class labels aligned with the rows of X.
func (clf *SVC) Fit(X, y mat.Matrix) error {
	nSamples, nFeatures := X.Dims()
	yRows, yCols := y.Dims()

	if nSamples == 0 || nFeatures == 0 {
		return errors.NewModelError("SVC.Fit", "empty data", errors.ErrEmptyData)
	}
	if yCols != 1 {
		return errors.NewDimensionError("SVC.Fit", 1, yCols, 1)
	}
	if yRows != nSamples {
		return errors.NewDimensionError("SVC.Fit", nSamples, yRows, 0)
	}
	if clf.c <= 0 {
		return errors.NewValidationError("C", "must be positive", clf.c)
	}

	rows := matrixToRows(X)
	labels := make([]int, nSamples)
	for i := 0; i < nSamples; i++ {
		labels[i] = int(y.At(i, 0))
	}

	clf.gammaValue_ = clf.resolveGamma(rows, nFeatures)
	kernel, err := makeKernel(clf.kernel, clf.gammaValue_, clf.coef0, clf.degree)
	if err != nil {
		return err
	}
	clf.kernelFn = kernel

	clf.classes_ = uniqueSorted(labels)
	if len(clf.classes_) < 2 {
		return errors.NewValueError("SVC.Fit", "need at least 2 classes in the data")
	}

	byClass := make(map[int][]int, len(clf.classes_))
	for i, label := range labels {
		byClass[label] = append(byClass[label], i)
	}

	clf.pairs_ = clf.pairs_[:0]
	for ai := 0; ai < len(clf.classes_); ai++ {
		for bi := ai + 1; bi < len(clf.classes_); bi++ {
			a := clf.classes_[ai]
			b := clf.classes_[bi]
			pair, err := clf.fitPair(rows, byClass[a], byClass[b], a, b, kernel)
			if err != nil {
				return err
			}
			clf.pairs_ = append(clf.pairs_, pair)
		}
	}

	clf.nFeatures_ = nFeatures
	clf.state.SetDimensions(nFeatures, nSamples)
	clf.state.SetFitted()
	return nil
}

// fitPair trains one one-vs-one binary sub-problem. Samples of class a get
// label +1, samples of class b get label -1.
func (clf *SVC) fitPair(rows [][]float64, idxA, idxB []int, a, b int, kernel kernelFunc) (pairModel, error) {
	n := len(idxA) + len(idxB)
	x := make([][]float64, 0, n)
	y := make([]float64, 0, n)
	for _, i := range idxA {
		x = append(x, rows[i])
		y = append(y, 1)
	}
	for _, i := range idxB {
		x = append(x, rows[i])
		y = append(y, -1)
	}

	solver := newSMOSolver(x, y, kernel, clf.c, clf.tol, clf.maxIter, kernelCacheRows, clf.rng)
	iterations, converged := solver.solve()
	if !converged {
		errors.Warn(errors.NewConvergenceWarning("SMO", iterations,
			fmt.Sprintf("class pair (%d, %d): KKT violations remain within tol=%g", a, b, clf.tol)))
	}

	if err := errors.CheckScalar("smo_threshold", solver.b, iterations); err != nil {
		return pairModel{}, err
	}

	pair := pairModel{ClassA: a, ClassB: b, B: solver.b}
	for i, alpha := range solver.alpha {
		if alpha > minAlphaStep {
			pair.SupportX = append(pair.SupportX, x[i])
			pair.DualCoef = append(pair.DualCoef, alpha*y[i])
		}
	}
	return pair, nil
}

// resolveGamma turns the configured gamma into a numeric value. The scale
// heuristic uses 1 / (n_features * Var(X)) over the full training matrix.
func (clf *SVC) resolveGamma(rows [][]float64, nFeatures int) float64 {
	if !clf.gammaScale {
		return clf.gamma
	}

	count := 0
	sum := 0.0
	sumSq := 0.0
	for _, row := range rows {
		for _, v := range row {
			sum += v
			sumSq += v * v
			count++
		}
	}
	if count == 0 {
		return 1.0
	}
	mean := sum / float64(count)
	variance := sumSq/float64(count) - mean*mean
	if variance <= 0 {
		return 1.0
	}
	return 1.0 / (float64(nFeatures) * variance)
}

// Predict returns the predicted class label for each row of X as a
// single-column matrix.
func (clf *SVC) Predict(X mat.Matrix) (mat.Matrix, error) {
	labels, err := clf.PredictLabels(X)
	if err != nil {
		return nil, err
	}

	result := mat.NewDense(len(labels), 1, nil)
	for i, label := range labels {
		result.Set(i, 0, float64(label))
	}
	return result, nil
}

// PredictLabels returns the predicted class label for each row of X.
func (clf *SVC) PredictLabels(X mat.Matrix) ([]int, error) {
	if !clf.state.IsFitted() {
		return nil, errors.NewNotFittedError("SVC", "Predict")
	}

	n, c := X.Dims()
	if c != clf.nFeatures_ {
		return nil, errors.NewDimensionError("SVC.Predict", clf.nFeatures_, c, 1)
	}

	classIndex := make(map[int]int, len(clf.classes_))
	for i, class := range clf.classes_ {
		classIndex[class] = i
	}

	labels := make([]int, n)
	parallel.ParallelizeWithThreshold(n, predictParallelThreshold, func(start, end int) {
		sample := make([]float64, c)
		votes := make([]int, len(clf.classes_))
		scores := make([]float64, len(clf.classes_))

		for i := start; i < end; i++ {
			for j := 0; j < c; j++ {
				sample[j] = X.At(i, j)
			}
			for k := range votes {
				votes[k] = 0
				scores[k] = 0
			}

			for p := range clf.pairs_ {
				pair := &clf.pairs_[p]
				d := clf.pairDecision(pair, sample)
				if d > 0 {
					votes[classIndex[pair.ClassA]]++
				} else {
					votes[classIndex[pair.ClassB]]++
				}
				scores[classIndex[pair.ClassA]] += d
				scores[classIndex[pair.ClassB]] -= d
			}

			// Majority vote; ties break on the aggregate decision value and
			// then on the lowest class label, keeping prediction deterministic.
			best := 0
			for k := 1; k < len(votes); k++ {
				if votes[k] > votes[best] ||
					(votes[k] == votes[best] && scores[k] > scores[best]) {
					best = k
				}
			}
			labels[i] = clf.classes_[best]
		}
	})

	return labels, nil
}

// DecisionFunction returns the one-vs-one decision values, one column per
// class pair in (classA, classB) order.
func (clf *SVC) DecisionFunction(X mat.Matrix) (mat.Matrix, error) {
	if !clf.state.IsFitted() {
		return nil, errors.NewNotFittedError("SVC", "DecisionFunction")
	}

	n, c := X.Dims()
	if c != clf.nFeatures_ {
		return nil, errors.NewDimensionError("SVC.DecisionFunction", clf.nFeatures_, c, 1)
	}

	result := mat.NewDense(n, len(clf.pairs_), nil)
	parallel.ParallelizeWithThreshold(n, predictParallelThreshold, func(start, end int) {
		sample := make([]float64, c)
		for i := start; i < end; i++ {
			for j := 0; j < c; j++ {
				sample[j] = X.At(i, j)
			}
			for p := range clf.pairs_ {
				result.Set(i, p, clf.pairDecision(&clf.pairs_[p], sample))
			}
		}
	})
	return result, nil
}

// pairDecision evaluates one binary decision function for one sample.
func (clf *SVC) pairDecision(p *pairModel, sample []float64) float64 {
	d := p.B
	for i, sv := range p.SupportX {
		d += p.DualCoef[i] * clf.kernelFn(sv, sample)
	}
	return d
}

// Score returns the mean accuracy of the predictions on X against y.
func (clf *SVC) Score(X, y mat.Matrix) (float64, error) {
	predicted, err := clf.PredictLabels(X)
	if err != nil {
		return 0, err
	}

	yRows, yCols := y.Dims()
	if yCols != 1 {
		return 0, errors.NewDimensionError("SVC.Score", 1, yCols, 1)
	}
	if yRows != len(predicted) {
		return 0, errors.NewDimensionError("SVC.Score", len(predicted), yRows, 0)
	}

	truth := make([]int, yRows)
	for i := 0; i < yRows; i++ {
		truth[i] = int(y.At(i, 0))
	}
	return metrics.AccuracyLabels(truth, predicted)
}

// Classes returns the unique class labels seen during fitting.
func (clf *SVC) Classes() []int {
	return clf.classes_
}

// IsFitted returns whether the model has been fitted.
func (clf *SVC) IsFitted() bool {
	return clf.state.IsFitted()
}

// TotalSupportVectors returns the summed support vector count over all
// one-vs-one sub-problems.
func (clf *SVC) TotalSupportVectors() int {
	total := 0
	for _, pair := range clf.pairs_ {
		total += len(pair.SupportX)
	}
	return total
}

// GetParams returns the classifier's hyperparameters.
func (clf *SVC) GetParams() map[string]interface{} {
	gamma := interface{}(clf.gamma)
	if clf.gammaScale {
		gamma = "scale"
	}
	return map[string]interface{}{
		"kernel":       clf.kernel,
		"C":            clf.c,
		"gamma":        gamma,
		"degree":       clf.degree,
		"coef0":        clf.coef0,
		"tol":          clf.tol,
		"max_iter":     clf.maxIter,
		"random_state": clf.randomState,
	}
}

// String returns a representation of the classifier and its key parameters.
func (clf *SVC) String() string {
	return fmt.Sprintf("SVC(kernel=%q, C=%g, gamma=%g)", clf.kernel, clf.c, clf.gammaValue_)
}

func matrixToRows(X mat.Matrix) [][]float64 {
	n, c := X.Dims()
	rows := make([][]float64, n)
	for i := 0; i < n; i++ {
		row := make([]float64, c)
		for j := 0; j < c; j++ {
			row[j] = X.At(i, j)
		}
		rows[i] = row
	}
	return rows
}

func uniqueSorted(labels []int) []int {
	seen := make(map[int]bool)
	var unique []int
	for _, label := range labels {
		if !seen[label] {
			seen[label] = true
			unique = append(unique, label)
		}
	}
	sort.Ints(unique)
	return unique
}

// svcState is the gob wire format for a fitted SVC.
type svcState struct {
	Kernel      string
	C           float64
	Gamma       float64
	GammaScale  bool
	Degree      int
	Coef0       float64
	Tol         float64
	MaxIter     int
	RandomState int64
	GammaValue  float64
	NFeatures   int
	Classes     []int
	Pairs       []pairModel
	Fitted      bool
}

// Save writes the classifier to path in gob format, including its fitted
// parameters.
func (clf *SVC) Save(path string) error {
	return model.SaveModel(clf, path)
}

// Load restores a classifier previously written by Save.
func (clf *SVC) Load(path string) error {
	return model.LoadModel(clf, path)
}

// GobEncode serializes the classifier including its fitted parameters, so
// a trained model can be stored with model.SaveModel and reloaded later.
func (clf *SVC) GobEncode() ([]byte, error) {
	state := svcState{
		Kernel:      clf.kernel,
		C:           clf.c,
		Gamma:       clf.gamma,
		GammaScale:  clf.gammaScale,
		Degree:      clf.degree,
		Coef0:       clf.coef0,
		Tol:         clf.tol,
		MaxIter:     clf.maxIter,
		RandomState: clf.randomState,
		GammaValue:  clf.gammaValue_,
		NFeatures:   clf.nFeatures_,
		Classes:     clf.classes_,
		Pairs:       clf.pairs_,
		Fitted:      clf.state.IsFitted(),
	}
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(state); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// GobDecode restores a classifier serialized by GobEncode.
func (clf *SVC) GobDecode(data []byte) error {
	var state svcState
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&state); err != nil {
		return err
	}

	clf.kernel = state.Kernel
	clf.c = state.C
	clf.gamma = state.Gamma
	clf.gammaScale = state.GammaScale
	clf.degree = state.Degree
	clf.coef0 = state.Coef0
	clf.tol = state.Tol
	clf.maxIter = state.MaxIter
	clf.randomState = state.RandomState
	clf.gammaValue_ = state.GammaValue
	clf.nFeatures_ = state.NFeatures
	clf.classes_ = state.Classes
	clf.pairs_ = state.Pairs

	clf.state = model.NewStateManager()
	if state.Fitted {
		kernel, err := makeKernel(state.Kernel, state.GammaValue, state.Coef0, state.Degree)
		if err != nil {
			return err
		}
		clf.kernelFn = kernel
		clf.state.SetDimensions(state.NFeatures, 0)
		clf.state.SetFitted()
	}
	if state.RandomState >= 0 {
		clf.rng = rand.New(rand.NewSource(state.RandomState))
	} else {
		clf.rng = rand.New(rand.NewSource(rand.Int63()))
	}
	return nil
}
