package metrics

import (
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/mnistlab/pkg/errors"
)

// Accuracy は正解率（一致したラベルの割合）を計算する
//
// パラメータ:
//   - yTrue: 正解ラベル
//   - yPred: 予測ラベル
//
// 戻り値:
//   - float64: [0, 1] の正解率
//   - error: 長さ不一致または空ベクトルの場合
func Accuracy(yTrue, yPred *mat.VecDense) (float64, error) {
	// 入力検証
	n := yTrue.Len()
	if n == 0 {
		return 0, errors.NewValueError("Accuracy", "empty vector")
	}

	if yPred.Len() != n {
		return 0, errors.NewDimensionError("Accuracy", n, yPred.Len(), 0)
	}

	// Accuracy = (1/n) * Σ 1{yTrue == yPred}
	matches := 0
	for i := 0; i < n; i++ {
		if yTrue.AtVec(i) == yPred.AtVec(i) {
			matches++
		}
	}

	return float64(matches) / float64(n), nil
}

// AccuracyLabels は整数ラベルのスライスに対して正解率を計算する
func AccuracyLabels(yTrue, yPred []int) (float64, error) {
	n := len(yTrue)
	if n == 0 {
		return 0, errors.NewValueError("AccuracyLabels", "empty slice")
	}
	if len(yPred) != n {
		return 0, errors.NewDimensionError("AccuracyLabels", n, len(yPred), 0)
	}

	matches := 0
	for i := 0; i < n; i++ {
		if yTrue[i] == yPred[i] {
			matches++
		}
	}
	return float64(matches) / float64(n), nil
}

// ConfusionMatrix は混同行列を計算する
//
// 戻り値の行列は classes[i] が正解で classes[j] と予測されたサンプル数を
// (i, j) 要素に持つ。classes はソート済みの一意なラベル集合。
func ConfusionMatrix(yTrue, yPred []int) (*mat.Dense, []int, error) {
	n := len(yTrue)
	if n == 0 {
		return nil, nil, errors.NewValueError("ConfusionMatrix", "empty slice")
	}
	if len(yPred) != n {
		return nil, nil, errors.NewDimensionError("ConfusionMatrix", n, len(yPred), 0)
	}

	// 一意なクラスを収集
	seen := make(map[int]bool)
	for i := 0; i < n; i++ {
		seen[yTrue[i]] = true
		seen[yPred[i]] = true
	}
	classes := make([]int, 0, len(seen))
	for c := range seen {
		classes = append(classes, c)
	}
	// ソート（クラス数は高々10程度なので挿入ソートで十分）
	for i := 1; i < len(classes); i++ {
		for j := i; j > 0 && classes[j-1] > classes[j]; j-- {
			classes[j-1], classes[j] = classes[j], classes[j-1]
		}
	}

	index := make(map[int]int, len(classes))
	for i, c := range classes {
		index[c] = i
	}

	cm := mat.NewDense(len(classes), len(classes), nil)
	for i := 0; i < n; i++ {
		r := index[yTrue[i]]
		c := index[yPred[i]]
		cm.Set(r, c, cm.At(r, c)+1)
	}

	return cm, classes, nil
}
