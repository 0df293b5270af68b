package visualize

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func gradientImages(n, side int) *mat.Dense {
	X := mat.NewDense(n, side*side, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < side*side; j++ {
			X.Set(i, j, float64((i+1)*j))
		}
	}
	return X
}

func TestSaveDigitRow(t *testing.T) {
	path := filepath.Join(t.TempDir(), "digits.png")

	err := SaveDigitRow(gradientImages(5, 28), 28, path)
	require.NoError(t, err)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))
}

func TestSaveDigitRow_ConstantImage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "flat.png")

	X := mat.NewDense(1, 4, []float64{3, 3, 3, 3})
	err := SaveDigitRow(X, 2, path)
	require.NoError(t, err)

	_, err = os.Stat(path)
	assert.NoError(t, err)
}

func TestSaveDigitRow_WrongWidth(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.png")

	err := SaveDigitRow(gradientImages(2, 5), 28, path)
	assert.Error(t, err)

	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr))
}

func TestSaveDigitRow_InvalidSide(t *testing.T) {
	err := SaveDigitRow(gradientImages(1, 3), 0, filepath.Join(t.TempDir(), "x.png"))
	assert.Error(t, err)
}

func TestSaveComparison(t *testing.T) {
	dir := t.TempDir()
	orig := filepath.Join(dir, "original.png")
	recon := filepath.Join(dir, "reconstructed.png")

	X := gradientImages(3, 8)
	err := SaveComparison(X, X, 8, orig, recon)
	require.NoError(t, err)

	for _, p := range []string{orig, recon} {
		info, err := os.Stat(p)
		require.NoError(t, err)
		assert.Greater(t, info.Size(), int64(0))
	}
}

func TestDigitGrid_Orientation(t *testing.T) {
	// One 2x2 image: top row {1, 2}, bottom row {3, 4}.
	X := mat.NewDense(1, 4, []float64{1, 2, 3, 4})
	g := digitGrid{images: X, side: 2}

	c, r := g.Dims()
	assert.Equal(t, 2, c)
	assert.Equal(t, 2, r)

	// r=0 is the bottom of the plot, so it carries the image's last row.
	assert.Equal(t, 3.0, g.Z(0, 0))
	assert.Equal(t, 4.0, g.Z(1, 0))
	assert.Equal(t, 1.0, g.Z(0, 1))
	assert.Equal(t, 2.0, g.Z(1, 1))
}
