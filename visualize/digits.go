// Package visualize renders digit images reconstructed from a reduced
// feature space into PNG figures for side-by-side inspection.
package visualize

import (
	"image/color"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/YuminosukeSato/mnistlab/pkg/errors"
)

// grayPalette is a linear grayscale palette for heatmap rendering.
type grayPalette struct {
	colors []color.Color
}

func newGrayPalette(n int) palette.Palette {
	p := grayPalette{colors: make([]color.Color, n)}
	for i := range p.colors {
		v := uint8(i * 255 / (n - 1))
		p.colors[i] = color.Gray{Y: v}
	}
	return p
}

func (p grayPalette) Colors() []color.Color { return p.colors }

// digitGrid lays flattened square images out side by side as one
// plotter.GridXYZ. Row i of the matrix becomes the i-th tile from the
// left; within a tile, pixel (r, c) of the source image maps to grid
// coordinates so that the digit appears upright.
type digitGrid struct {
	images mat.Matrix
	side   int
}

func (g digitGrid) Dims() (c, r int) {
	n, _ := g.images.Dims()
	return n * g.side, g.side
}

func (g digitGrid) Z(c, r int) float64 {
	tile := c / g.side
	col := c % g.side
	// plotter.HeatMap draws r=0 at the bottom; image row 0 is the top.
	row := g.side - 1 - r
	return g.images.At(tile, row*g.side+col)
}

func (g digitGrid) X(c int) float64 { return float64(c) }
func (g digitGrid) Y(r int) float64 { return float64(r) }

// SaveDigitRow renders each row of images as one square grayscale tile
// and saves all tiles side by side into a single PNG at path.
//
// Every row must hold side*side values. Pixel values may lie in any
// range (reconstructions routinely overshoot [0, 255]); the heatmap
// normalizes over the observed min and max.
func SaveDigitRow(images mat.Matrix, side int, path string) error {
	n, d := images.Dims()
	if n == 0 {
		return errors.NewValidationError("images", "must contain at least one image", n)
	}
	if side <= 0 {
		return errors.NewValidationError("side", "must be positive", side)
	}
	if d != side*side {
		return errors.NewDimensionError("SaveDigitRow", side*side, d, 1)
	}

	p := plot.New()
	p.HideAxes()

	h := plotter.NewHeatMap(digitGrid{images: images, side: side}, newGrayPalette(256))
	if h.Min == h.Max {
		// Constant image; widen the range so the palette lookup is defined.
		h.Max = h.Min + 1
	}
	p.Add(h)

	tile := 1.2 * vg.Inch
	width := vg.Length(math.Max(1, float64(n))) * tile
	if err := p.Save(width, tile, path); err != nil {
		return errors.Wrapf(err, "failed to save digit figure to %s", path)
	}
	return nil
}

// SaveComparison renders a row of original images and a matching row of
// their reconstructions into two PNG files, one per row.
func SaveComparison(original, reconstructed mat.Matrix, side int, pathOriginal, pathReconstructed string) error {
	if err := SaveDigitRow(original, side, pathOriginal); err != nil {
		return err
	}
	return SaveDigitRow(reconstructed, side, pathReconstructed)
}
