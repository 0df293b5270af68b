package model_selection

import (
	"testing"

	"gonum.org/v1/gonum/mat"
)

func makeData(n, c int) (*mat.Dense, []int) {
	X := mat.NewDense(n, c, nil)
	y := make([]int, n)
	for i := 0; i < n; i++ {
		for j := 0; j < c; j++ {
			// Encode the row index so partitions can be traced back.
			X.Set(i, j, float64(i*c+j))
		}
		y[i] = i % 10
	}
	return X, y
}

func TestTrainTestSplit_Sizes(t *testing.T) {
	X, y := makeData(100, 3)

	XTrain, XTest, yTrain, yTest, err := TrainTestSplit(X, y, 0.2, 42)
	if err != nil {
		t.Fatalf("TrainTestSplit failed: %v", err)
	}

	trainRows, _ := XTrain.Dims()
	testRows, _ := XTest.Dims()
	if trainRows != 80 || testRows != 20 {
		t.Errorf("Expected 80/20 split, got %d/%d", trainRows, testRows)
	}
	if len(yTrain) != 80 || len(yTest) != 20 {
		t.Errorf("Expected label split 80/20, got %d/%d", len(yTrain), len(yTest))
	}
}

func TestTrainTestSplit_Deterministic(t *testing.T) {
	X, y := makeData(50, 2)

	XTrain1, XTest1, yTrain1, _, err := TrainTestSplit(X, y, 0.3, 7)
	if err != nil {
		t.Fatalf("TrainTestSplit failed: %v", err)
	}
	XTrain2, XTest2, yTrain2, _, err := TrainTestSplit(X, y, 0.3, 7)
	if err != nil {
		t.Fatalf("TrainTestSplit failed: %v", err)
	}

	if !mat.Equal(XTrain1, XTrain2) || !mat.Equal(XTest1, XTest2) {
		t.Error("Identical seeds must produce identical partitions")
	}
	for i := range yTrain1 {
		if yTrain1[i] != yTrain2[i] {
			t.Fatalf("Label partitions differ at %d: %d vs %d", i, yTrain1[i], yTrain2[i])
		}
	}

	// A different seed should almost surely shuffle differently.
	XTrain3, _, _, _, err := TrainTestSplit(X, y, 0.3, 8)
	if err != nil {
		t.Fatalf("TrainTestSplit failed: %v", err)
	}
	if mat.Equal(XTrain1, XTrain3) {
		t.Error("Different seeds produced identical partitions")
	}
}

func TestTrainTestSplit_DisjointCover(t *testing.T) {
	X, y := makeData(30, 1)

	XTrain, XTest, _, _, err := TrainTestSplit(X, y, 0.25, 1)
	if err != nil {
		t.Fatalf("TrainTestSplit failed: %v", err)
	}

	// Column 0 holds the original row index; the union of both partitions
	// must be exactly the input rows, each exactly once.
	seen := make(map[float64]int)
	trainRows, _ := XTrain.Dims()
	for i := 0; i < trainRows; i++ {
		seen[XTrain.At(i, 0)]++
	}
	testRows, _ := XTest.Dims()
	for i := 0; i < testRows; i++ {
		seen[XTest.At(i, 0)]++
	}

	if len(seen) != 30 {
		t.Fatalf("Expected 30 distinct rows across partitions, got %d", len(seen))
	}
	for v, count := range seen {
		if count != 1 {
			t.Errorf("Row %v appears %d times across partitions", v, count)
		}
	}
}

func TestTrainTestSplit_Validation(t *testing.T) {
	X, y := makeData(10, 2)

	if _, _, _, _, err := TrainTestSplit(X, y, 0, 1); err == nil {
		t.Error("Expected error for test_size = 0")
	}
	if _, _, _, _, err := TrainTestSplit(X, y, 1, 1); err == nil {
		t.Error("Expected error for test_size = 1")
	}
	if _, _, _, _, err := TrainTestSplit(X, y[:5], 0.2, 1); err == nil {
		t.Error("Expected error for X/y length mismatch")
	}
}

func TestSubsample(t *testing.T) {
	X, y := makeData(40, 2)

	XSub, ySub, err := Subsample(X, y, 15, 42)
	if err != nil {
		t.Fatalf("Subsample failed: %v", err)
	}

	rows, cols := XSub.Dims()
	if rows != 15 || cols != 2 {
		t.Errorf("Expected 15x2 subsample, got %dx%d", rows, cols)
	}
	if len(ySub) != 15 {
		t.Errorf("Expected 15 labels, got %d", len(ySub))
	}

	// Deterministic for the same seed.
	XSub2, _, err := Subsample(X, y, 15, 42)
	if err != nil {
		t.Fatalf("Subsample failed: %v", err)
	}
	if !mat.Equal(XSub, XSub2) {
		t.Error("Identical seeds must produce identical subsamples")
	}

	// No row drawn twice.
	seen := make(map[float64]bool)
	for i := 0; i < rows; i++ {
		v := XSub.At(i, 0)
		if seen[v] {
			t.Errorf("Row %v drawn more than once", v)
		}
		seen[v] = true
	}
}

func TestSubsample_Validation(t *testing.T) {
	X, y := makeData(10, 2)

	if _, _, err := Subsample(X, y, 0, 1); err == nil {
		t.Error("Expected error for n = 0")
	}
	if _, _, err := Subsample(X, y, 11, 1); err == nil {
		t.Error("Expected error for n > rows")
	}
}
