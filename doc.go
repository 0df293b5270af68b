// Package mnistlab compares support vector machine classification on raw
// versus PCA-reduced MNIST digit images.
//
// The repository is organized as a small scikit-learn-like toolkit:
//
//   - dataset: MNIST download, caching and idx parsing
//   - preprocessing: StandardScaler
//   - decomposition: PCA with inverse transform for reconstruction
//   - model_selection: deterministic subsampling and train/test splitting
//   - svm: C-support vector classification (SMO solver, one-vs-one)
//   - metrics: accuracy and confusion matrix
//   - visualize: reconstructed-digit heatmap grids
//   - pipeline: the parameterized raw-vs-reduced experiment
//
// # Quick Start
//
//	X, y, err := dataset.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	res, err := pipeline.Run(X, y, pipeline.Config{
//	    SampleSize:   70000,
//	    TestFraction: 0.2,
//	    Seed:         42,
//	    UseReduction: true,
//	    NComponents:  100,
//	    Kernel:       "rbf",
//	    C:            5,
//	    Gamma:        0.05,
//	})
//
// All estimators follow the Fit/Transform/Predict lifecycle: a model is
// created unfitted, fit exactly once, and only then used for transforms
// or predictions. Misuse is reported through the structured errors in
// pkg/errors.
package mnistlab
