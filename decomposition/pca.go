// Package decomposition はscikit-learn互換の次元削減アルゴリズムを提供します。
package decomposition

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/mnistlab/core/model"
	"github.com/YuminosukeSato/mnistlab/pkg/errors"
)

// PCA は主成分分析による次元削減を行う
//
// Fitで中心化したデータの特異値分解を計算し、分散が最大になる
// 上位NComponents本の直交基底を学習する。同じ基底がTransformと
// InverseTransformの両方で使われるため、訓練データでFitした後は
// 任意のパーティションに同一の射影を適用できる。
type PCA struct {
	model.BaseEstimator

	// NComponents は保持する主成分の数
	NComponents int

	// Components は主成分基底 (NComponents × NFeatures)、各行が単位ベクトル
	Components *mat.Dense

	// Mean は各特徴量の平均値（中心化に使用）
	Mean []float64

	// ExplainedVariance は各主成分が説明する分散
	ExplainedVariance []float64

	// ExplainedVarianceRatio は各主成分が説明する分散の全分散に対する割合
	ExplainedVarianceRatio []float64

	// NFeatures はFit時の特徴量数
	NFeatures int

	// NSamplesFit はFit時のサンプル数
	NSamplesFit int
}

// NewPCA は指定した成分数のPCAを作成する
//
// 使用例:
//
//	pca := decomposition.NewPCA(100)
//	err := pca.Fit(XTrain)
//	XReduced, err := pca.Transform(XTest)
func NewPCA(nComponents int) *PCA {
	return &PCA{
		NComponents: nComponents,
	}
}

// Fit は中心化したデータのSVDから主成分基底を学習する
//
// NComponentsがmin(サンプル数, 特徴量数)を超える場合はValidationError、
// 分解が収束しない場合はModelErrorを返す。
func (p *PCA) Fit(X mat.Matrix) error {
	n, c := X.Dims()
	if n == 0 || c == 0 {
		return errors.NewModelError("PCA.Fit", "empty data", errors.ErrEmptyData)
	}

	maxComponents := n
	if c < n {
		maxComponents = c
	}
	if p.NComponents < 1 || p.NComponents > maxComponents {
		return errors.NewValidationError("n_components",
			fmt.Sprintf("must be in [1, min(n_samples, n_features)] = [1, %d]", maxComponents),
			p.NComponents)
	}

	// NaNやInfが混入したままSVDに渡すと黙って壊れた基底が返るため先に検査する
	if err := errors.CheckMatrix("PCA.Fit", X, n, c, 0); err != nil {
		return err
	}

	// 平均を計算して中心化
	p.Mean = make([]float64, c)
	for j := 0; j < c; j++ {
		sum := 0.0
		for i := 0; i < n; i++ {
			sum += X.At(i, j)
		}
		p.Mean[j] = sum / float64(n)
	}

	centered := mat.NewDense(n, c, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < c; j++ {
			centered.Set(i, j, X.At(i, j)-p.Mean[j])
		}
	}

	// 薄いSVD: centered = U Σ V^T、Vの列が主成分方向
	var svd mat.SVD
	if ok := svd.Factorize(centered, mat.SVDThin); !ok {
		return errors.NewModelError("PCA.Fit", "svd factorization failed", errors.ErrSingularMatrix)
	}

	values := svd.Values(nil)
	var v mat.Dense
	svd.VTo(&v)

	// 特異値から分散を計算: λ_i = σ_i² / (n - 1)
	denom := float64(n - 1)
	if n == 1 {
		denom = 1
	}
	totalVariance := 0.0
	allVariances := make([]float64, len(values))
	for i, s := range values {
		allVariances[i] = s * s / denom
		totalVariance += allVariances[i]
	}

	p.Components = mat.NewDense(p.NComponents, c, nil)
	p.ExplainedVariance = make([]float64, p.NComponents)
	p.ExplainedVarianceRatio = make([]float64, p.NComponents)
	for k := 0; k < p.NComponents; k++ {
		for j := 0; j < c; j++ {
			p.Components.Set(k, j, v.At(j, k))
		}
		p.ExplainedVariance[k] = allVariances[k]
		if totalVariance > 0 {
			p.ExplainedVarianceRatio[k] = allVariances[k] / totalVariance
		}
	}

	// 条件の悪い入力では特異値の二乗が発散しうる
	if err := errors.CheckNumericalStability("PCA.Fit", p.ExplainedVariance, 0); err != nil {
		return err
	}

	p.NFeatures = c
	p.NSamplesFit = n
	p.SetFitted()
	return nil
}

// Transform は学習済みの基底にデータを射影する
//
// 出力は常にNComponents列になる。
func (p *PCA) Transform(X mat.Matrix) (mat.Matrix, error) {
	if !p.IsFitted() {
		return nil, errors.NewNotFittedError("PCA", "Transform")
	}

	n, c := X.Dims()
	if c != p.NFeatures {
		return nil, errors.NewDimensionError("PCA.Transform", p.NFeatures, c, 1)
	}

	centered := mat.NewDense(n, c, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < c; j++ {
			centered.Set(i, j, X.At(i, j)-p.Mean[j])
		}
	}

	// 射影: (n × c) × (c × k)
	result := mat.NewDense(n, p.NComponents, nil)
	result.Mul(centered, p.Components.T())

	return result, nil
}

// FitTransform は学習と変換を同時に行う
func (p *PCA) FitTransform(X mat.Matrix) (mat.Matrix, error) {
	if err := p.Fit(X); err != nil {
		return nil, err
	}
	return p.Transform(X)
}

// InverseTransform は削減された表現を元の特徴量空間に復元する
//
// 復元は近似であり、保持しなかった成分の情報は失われる（非可逆）。
// 出力の列数は常にFit時の特徴量数に一致する。
func (p *PCA) InverseTransform(X mat.Matrix) (mat.Matrix, error) {
	if !p.IsFitted() {
		return nil, errors.NewNotFittedError("PCA", "InverseTransform")
	}

	n, c := X.Dims()
	if c != p.NComponents {
		return nil, errors.NewDimensionError("PCA.InverseTransform", p.NComponents, c, 1)
	}

	// 復元: (n × k) × (k × c) + 平均
	result := mat.NewDense(n, p.NFeatures, nil)
	result.Mul(X, p.Components)
	for i := 0; i < n; i++ {
		for j := 0; j < p.NFeatures; j++ {
			result.Set(i, j, result.At(i, j)+p.Mean[j])
		}
	}

	return result, nil
}

// TotalExplainedVarianceRatio は保持した成分が説明する分散の合計割合を返す
func (p *PCA) TotalExplainedVarianceRatio() float64 {
	total := 0.0
	for _, r := range p.ExplainedVarianceRatio {
		total += r
	}
	return total
}

// GetParams はPCAのパラメータを取得する
func (p *PCA) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"n_components": p.NComponents,
	}
}

// String はPCAの文字列表現を返す
func (p *PCA) String() string {
	if !p.IsFitted() {
		return fmt.Sprintf("PCA(n_components=%d)", p.NComponents)
	}
	return fmt.Sprintf("PCA(n_components=%d, n_features=%d)", p.NComponents, p.NFeatures)
}
