// Package pipeline runs the end-to-end digit classification experiment:
// subsample, split, standardize, optionally reduce dimensionality, train
// an RBF-kernel SVC, and score both partitions.
//
// One Config drives both arms of the raw-versus-reduced comparison; the
// caller invokes Run twice, flipping UseReduction, instead of maintaining
// two near-identical code paths.
package pipeline

import (
	"fmt"
	"log/slog"
	"math"
	"path/filepath"
	"strings"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/mnistlab/decomposition"
	"github.com/YuminosukeSato/mnistlab/metrics"
	"github.com/YuminosukeSato/mnistlab/model_selection"
	"github.com/YuminosukeSato/mnistlab/pkg/errors"
	mllog "github.com/YuminosukeSato/mnistlab/pkg/log"
	"github.com/YuminosukeSato/mnistlab/preprocessing"
	"github.com/YuminosukeSato/mnistlab/svm"
	"github.com/YuminosukeSato/mnistlab/visualize"
)

// Config holds every knob of one experiment run.
type Config struct {
	// SampleSize caps the number of samples drawn from the input before
	// splitting. Zero means use everything.
	SampleSize int

	// TestFraction is the share of samples held out for testing,
	// strictly between 0 and 1.
	TestFraction float64

	// Seed drives the subsample, the split, and the classifier's
	// internal randomness, making a run reproducible end to end.
	Seed int64

	// UseReduction inserts a PCA step between standardization and the
	// classifier. NComponents is the retained dimensionality and must be
	// positive when UseReduction is set.
	UseReduction bool
	NComponents  int

	// Classifier hyperparameters. An empty Kernel means RBF; a zero
	// Gamma resolves to the scale heuristic 1/(nFeatures*Var(X)).
	Kernel  string
	C       float64
	Gamma   float64
	MaxIter int

	// ReconstructionPNG, when non-empty and UseReduction is set, is the
	// path of a PNG figure of test digits reconstructed from the reduced
	// space. A companion figure of the untouched originals is written
	// next to it with an "_original" suffix. Rendering failures are
	// logged as warnings and never fail the run.
	ReconstructionPNG   string
	ReconstructionCount int
}

// Result reports the scored outcome of one run.
type Result struct {
	TrainAccuracy float64
	TestAccuracy  float64

	TrainSamples int
	TestSamples  int
	Features     int

	// ReducedFeatures is the post-PCA dimensionality, equal to Features
	// when no reduction ran.
	ReducedFeatures int

	// ExplainedVarianceRatio is the share of training variance the
	// retained components carry, zero when no reduction ran.
	ExplainedVarianceRatio float64

	SupportVectors int
	TrainDuration  time.Duration
}

const defaultReconstructionCount = 8

// Run executes one experiment over the given samples and labels.
//
// The scaler and, when enabled, the reducer are fit on the training
// partition only and then applied to both partitions, so no statistic of
// the held-out data leaks into the model.
func Run(X mat.Matrix, y []int, cfg Config) (*Result, error) {
	if err := validate(X, y, cfg); err != nil {
		return nil, err
	}

	logger := slog.With(
		mllog.ComponentKey, "pipeline",
		"use_reduction", cfg.UseReduction,
	)

	if cfg.SampleSize > 0 {
		n, _ := X.Dims()
		if cfg.SampleSize < n {
			var err error
			X, y, err = model_selection.Subsample(X, y, cfg.SampleSize, cfg.Seed)
			if err != nil {
				return nil, err
			}
		}
	}

	XTrain, XTest, yTrain, yTest, err := model_selection.TrainTestSplit(X, y, cfg.TestFraction, cfg.Seed)
	if err != nil {
		return nil, err
	}

	nTrain, nFeatures := XTrain.Dims()
	nTest, _ := XTest.Dims()
	logger.Info("Partitioned dataset",
		mllog.PhaseKey, "split",
		mllog.SamplesKey, nTrain+nTest,
		mllog.FeaturesKey, nFeatures,
		"train_samples", nTrain,
		"test_samples", nTest,
	)

	result := &Result{
		TrainSamples:    nTrain,
		TestSamples:     nTest,
		Features:        nFeatures,
		ReducedFeatures: nFeatures,
	}

	scaler := preprocessing.NewStandardScalerDefault()
	if err := scaler.Fit(XTrain); err != nil {
		return nil, err
	}
	trainFeatures, err := scaler.Transform(XTrain)
	if err != nil {
		return nil, err
	}
	testFeatures, err := scaler.Transform(XTest)
	if err != nil {
		return nil, err
	}

	var reducer *decomposition.PCA
	if cfg.UseReduction {
		reducer = decomposition.NewPCA(cfg.NComponents)
		if err := reducer.Fit(trainFeatures); err != nil {
			return nil, err
		}
		trainFeatures, err = reducer.Transform(trainFeatures)
		if err != nil {
			return nil, err
		}
		testFeatures, err = reducer.Transform(testFeatures)
		if err != nil {
			return nil, err
		}
		result.ReducedFeatures = cfg.NComponents
		result.ExplainedVarianceRatio = reducer.TotalExplainedVarianceRatio()
		logger.Info("Reduced dimensionality",
			mllog.PhaseKey, "reduction",
			mllog.ComponentsKey, cfg.NComponents,
			mllog.ExplainedVarianceKey, result.ExplainedVarianceRatio,
		)
	}

	clf := newClassifier(cfg)
	start := time.Now()
	if err := clf.Fit(trainFeatures, labelColumn(yTrain)); err != nil {
		return nil, err
	}
	result.TrainDuration = time.Since(start)
	result.SupportVectors = clf.TotalSupportVectors()
	logger.Info("Trained classifier",
		mllog.PhaseKey, "training",
		mllog.OperationKey, "fit",
		mllog.ModelNameKey, "SVC",
		mllog.ClassesKey, len(clf.Classes()),
		mllog.SupportVectorsKey, result.SupportVectors,
		mllog.DurationSecondsKey, result.TrainDuration.Seconds(),
	)

	scoreStart := time.Now()
	result.TrainAccuracy, err = score(clf, trainFeatures, yTrain)
	if err != nil {
		return nil, err
	}
	result.TestAccuracy, err = score(clf, testFeatures, yTest)
	if err != nil {
		return nil, err
	}
	logger.Info("Scored classifier",
		mllog.PhaseKey, "evaluation",
		mllog.OperationKey, "score",
		mllog.AccuracyKey, result.TestAccuracy,
		"train_accuracy", result.TrainAccuracy,
		mllog.DurationMsKey, time.Since(scoreStart).Milliseconds(),
	)

	if cfg.UseReduction && cfg.ReconstructionPNG != "" {
		renderReconstruction(XTest, testFeatures, scaler, reducer, cfg)
	}

	return result, nil
}

func validate(X mat.Matrix, y []int, cfg Config) error {
	n, _ := X.Dims()
	if n != len(y) {
		return errors.NewDimensionError("pipeline.Run", n, len(y), 0)
	}
	if cfg.TestFraction <= 0 || cfg.TestFraction >= 1 {
		return errors.NewValidationError("TestFraction", "must be strictly between 0 and 1", cfg.TestFraction)
	}
	if cfg.UseReduction && cfg.NComponents <= 0 {
		return errors.NewValidationError("NComponents", "must be positive when UseReduction is set", cfg.NComponents)
	}
	if cfg.C <= 0 {
		return errors.NewValidationError("C", "must be positive", cfg.C)
	}
	return nil
}

func newClassifier(cfg Config) *svm.SVC {
	kernel := cfg.Kernel
	if kernel == "" {
		kernel = svm.KernelRBF
	}
	opts := []svm.SVCOption{
		svm.WithKernel(kernel),
		svm.WithC(cfg.C),
		svm.WithRandomState(cfg.Seed),
	}
	if cfg.Gamma != 0 {
		opts = append(opts, svm.WithGamma(cfg.Gamma))
	} else {
		opts = append(opts, svm.WithGammaScale())
	}
	if cfg.MaxIter > 0 {
		opts = append(opts, svm.WithMaxIter(cfg.MaxIter))
	}
	return svm.NewSVC(opts...)
}

func score(clf *svm.SVC, X mat.Matrix, y []int) (float64, error) {
	pred, err := clf.PredictLabels(X)
	if err != nil {
		return 0, err
	}
	return metrics.AccuracyLabels(y, pred)
}

// renderReconstruction maps a handful of reduced test samples back to
// pixel space and saves them beside the untouched originals. Any failure
// is reported through the warning system; the scored result is already
// complete by the time this runs.
func renderReconstruction(original mat.Matrix, reduced mat.Matrix, scaler *preprocessing.StandardScaler, reducer *decomposition.PCA, cfg Config) {
	err := errors.SafeExecute("pipeline.renderReconstruction", func() error {
		_, nFeatures := original.Dims()
		side := int(math.Round(math.Sqrt(float64(nFeatures))))
		if side*side != nFeatures {
			return errors.NewValidationError("features", "not a square image size", nFeatures)
		}

		count := cfg.ReconstructionCount
		if count <= 0 {
			count = defaultReconstructionCount
		}
		n, _ := original.Dims()
		if count > n {
			count = n
		}

		restored, err := reducer.InverseTransform(firstRows(reduced, count))
		if err != nil {
			return err
		}
		restored, err = scaler.InverseTransform(restored)
		if err != nil {
			return err
		}

		return visualize.SaveComparison(
			firstRows(original, count), restored, side,
			suffixPath(cfg.ReconstructionPNG, "_original"), cfg.ReconstructionPNG,
		)
	})
	if err != nil {
		errors.Warn(errors.NewVisualizationWarning(cfg.ReconstructionPNG, err.Error()))
	}
}

func firstRows(X mat.Matrix, n int) mat.Matrix {
	if d, ok := X.(*mat.Dense); ok {
		_, c := d.Dims()
		return d.Slice(0, n, 0, c)
	}
	r, c := X.Dims()
	out := mat.NewDense(n, c, nil)
	for i := 0; i < n && i < r; i++ {
		for j := 0; j < c; j++ {
			out.Set(i, j, X.At(i, j))
		}
	}
	return out
}

func suffixPath(path, suffix string) string {
	ext := filepath.Ext(path)
	return strings.TrimSuffix(path, ext) + suffix + ext
}

func labelColumn(y []int) *mat.Dense {
	data := make([]float64, len(y))
	for i, v := range y {
		data[i] = float64(v)
	}
	return mat.NewDense(len(y), 1, data)
}

// Describe formats a result as a short human-readable report line.
func (r *Result) Describe(name string) string {
	return fmt.Sprintf("%s: train %.2f%%, test %.2f%% (%d features, %d support vectors)",
		name, r.TrainAccuracy*100, r.TestAccuracy*100, r.ReducedFeatures, r.SupportVectors)
}
