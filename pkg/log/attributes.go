// Package log defines standard attribute keys for machine learning operations.
//
// Using these keys consistently across the pipeline enables structured log
// analysis and filtering, e.g. comparing fit durations between the raw and
// the PCA-reduced runs.

package log

// Model and Operation Context
// These attributes identify the model type, instance, and operation being performed.
const (
	// ModelNameKey identifies the type of machine learning model.
	// Examples: "SVC", "PCA", "StandardScaler"
	ModelNameKey = "model.name"

	// OperationKey specifies the machine learning operation being performed.
	// Standard values: "fit", "predict", "transform", "fit_transform", "score"
	OperationKey = "ml.operation"

	// ComponentKey identifies which component or package is performing the operation.
	// Examples: "svm", "preprocessing", "decomposition", "dataset"
	ComponentKey = "ml.component"

	// PhaseKey indicates the phase of the experiment.
	// Examples: "load", "preprocessing", "training", "evaluation", "visualization"
	PhaseKey = "ml.phase"
)

// Data Shape and Characteristics
// These attributes describe the structure of data flowing through the pipeline.
const (
	// SamplesKey indicates the number of samples (rows) in the dataset.
	SamplesKey = "data.samples"

	// FeaturesKey indicates the number of features (columns) in the dataset.
	// Important for tracking the raw (784) versus reduced (100) representations.
	FeaturesKey = "data.features"

	// ComponentsKey indicates the number of retained principal components.
	ComponentsKey = "data.components"

	// ClassesKey indicates the number of distinct class labels.
	ClassesKey = "data.classes"
)

// Performance Metrics
const (
	// DurationMsKey records the execution time of an operation in milliseconds.
	DurationMsKey = "perf.duration_ms"

	// DurationSecondsKey records the execution time in seconds for longer
	// operations such as SVM training.
	DurationSecondsKey = "perf.duration_seconds"

	// AccuracyKey records classification accuracy, in [0.0, 1.0].
	AccuracyKey = "metrics.accuracy"

	// SupportVectorsKey records the number of support vectors of a fitted SVC.
	SupportVectorsKey = "model.support_vectors"

	// ExplainedVarianceKey records the total explained variance ratio of a
	// fitted PCA.
	ExplainedVarianceKey = "model.explained_variance_ratio"
)
