// Package dataset fetches and parses the MNIST handwritten digit dataset.
//
// The four classic idx-format files are downloaded once from a public
// mirror and cached under ~/.mnistlab/dataset. Parsing validates the idx
// magic numbers and the agreement between image and label counts; any
// mismatch aborts the load with the offending shapes.
package dataset

import (
	"compress/gzip"
	"encoding/binary"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/user"
	"path/filepath"

	"github.com/schollz/progressbar/v3"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/mnistlab/pkg/errors"
)

const baseURL = "https://storage.googleapis.com/cvdf-datasets/mnist/"

const (
	trainImagesFile = "train-images-idx3-ubyte.gz"
	trainLabelsFile = "train-labels-idx1-ubyte.gz"
	testImagesFile  = "t10k-images-idx3-ubyte.gz"
	testLabelsFile  = "t10k-labels-idx1-ubyte.gz"
)

// idx magic numbers (big endian).
const (
	imagesMagic = 2051
	labelsMagic = 2049
)

// ImageSide is the pixel width and height of one MNIST digit.
const ImageSide = 28

// NumFeatures is the flattened feature count of one MNIST digit.
const NumFeatures = ImageSide * ImageSide

var datasetDir string

func init() {
	usr, err := user.Current()
	if err != nil {
		datasetDir = filepath.Join(os.TempDir(), "mnistlab", "dataset")
		return
	}
	datasetDir = filepath.Join(usr.HomeDir, ".mnistlab", "dataset")
}

// Load returns the full MNIST dataset: the 70000x784 sample matrix with
// pixel values in [0, 255] and the parallel label slice of digits 0-9.
// The native training and test halves are concatenated in order.
func Load() (*mat.Dense, []int, error) {
	XTrain, yTrain, err := LoadTrain()
	if err != nil {
		return nil, nil, err
	}
	XTest, yTest, err := LoadTest()
	if err != nil {
		return nil, nil, err
	}

	nTrain, c := XTrain.Dims()
	nTest, _ := XTest.Dims()
	X := mat.NewDense(nTrain+nTest, c, nil)
	for i := 0; i < nTrain; i++ {
		for j := 0; j < c; j++ {
			X.Set(i, j, XTrain.At(i, j))
		}
	}
	for i := 0; i < nTest; i++ {
		for j := 0; j < c; j++ {
			X.Set(nTrain+i, j, XTest.At(i, j))
		}
	}

	y := make([]int, 0, nTrain+nTest)
	y = append(y, yTrain...)
	y = append(y, yTest...)
	return X, y, nil
}

// LoadTrain returns the 60000-sample MNIST training half.
func LoadTrain() (*mat.Dense, []int, error) {
	imagesPath, err := fetch(trainImagesFile)
	if err != nil {
		return nil, nil, err
	}
	labelsPath, err := fetch(trainLabelsFile)
	if err != nil {
		return nil, nil, err
	}
	return loadIDXPair(imagesPath, labelsPath)
}

// LoadTest returns the 10000-sample MNIST test half.
func LoadTest() (*mat.Dense, []int, error) {
	imagesPath, err := fetch(testImagesFile)
	if err != nil {
		return nil, nil, err
	}
	labelsPath, err := fetch(testLabelsFile)
	if err != nil {
		return nil, nil, err
	}
	return loadIDXPair(imagesPath, labelsPath)
}

// fetch downloads one dataset file into the cache directory unless it is
// already present, and returns its local path. Download failures are fatal
// to the caller; there is no retry.
func fetch(name string) (string, error) {
	path := filepath.Join(datasetDir, name)
	if _, err := os.Stat(path); err == nil {
		return path, nil
	}

	src := baseURL + name
	slog.Info("Downloading dataset file", "source", src, "destination", path)

	if err := os.MkdirAll(datasetDir, os.ModePerm); err != nil {
		return "", errors.Wrapf(err, "failed to create dataset directory %s", datasetDir)
	}

	resp, err := http.Get(src)
	if err != nil {
		return "", errors.Wrapf(err, "failed to download %s", src)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", errors.Newf("failed to download %s: status %s", src, resp.Status)
	}

	// Write to a temp file first so a partial download never poisons the cache.
	tmp, err := os.CreateTemp(datasetDir, name+".tmp*")
	if err != nil {
		return "", errors.Wrap(err, "failed to create temp file")
	}
	defer os.Remove(tmp.Name())

	bar := progressbar.DefaultBytes(resp.ContentLength, "downloading "+name)
	if _, err := io.Copy(io.MultiWriter(tmp, bar), resp.Body); err != nil {
		tmp.Close()
		return "", errors.Wrapf(err, "failed to download %s", src)
	}
	if err := tmp.Close(); err != nil {
		return "", errors.Wrap(err, "failed to close temp file")
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", errors.Wrap(err, "failed to move downloaded file into cache")
	}
	return path, nil
}

// loadIDXPair parses a gzip-compressed idx image file and its companion
// label file, and validates that their sample counts agree.
func loadIDXPair(imagesPath, labelsPath string) (*mat.Dense, []int, error) {
	X, err := readGzip(imagesPath, parseImages)
	if err != nil {
		return nil, nil, err
	}
	y, err := readGzip(labelsPath, parseLabels)
	if err != nil {
		return nil, nil, err
	}

	n, _ := X.Dims()
	if len(y) != n {
		return nil, nil, errors.NewInputShapeError("load", []int{n}, []int{len(y)})
	}
	return X, y, nil
}

func readGzip[T any](path string, parse func(io.Reader) (T, error)) (T, error) {
	var zero T
	f, err := os.Open(path)
	if err != nil {
		return zero, errors.Wrapf(err, "failed to open %s", path)
	}
	defer f.Close()

	gz, err := gzip.NewReader(f)
	if err != nil {
		return zero, errors.Wrapf(err, "failed to decompress %s", path)
	}
	defer gz.Close()

	return parse(gz)
}

// parseImages reads an idx3-ubyte image stream into an n x 784 matrix.
func parseImages(r io.Reader) (*mat.Dense, error) {
	var header struct {
		Magic int32
		Count int32
		Rows  int32
		Cols  int32
	}
	if err := binary.Read(r, binary.BigEndian, &header); err != nil {
		return nil, errors.Wrap(err, "failed to read idx image header")
	}
	if header.Magic != imagesMagic {
		return nil, errors.Newf("invalid idx image magic: expected %d, got %d", imagesMagic, header.Magic)
	}
	if header.Rows != ImageSide || header.Cols != ImageSide {
		return nil, errors.NewInputShapeError("load",
			[]int{ImageSide, ImageSide}, []int{int(header.Rows), int(header.Cols)})
	}

	n := int(header.Count)
	pixels := make([]byte, n*NumFeatures)
	if _, err := io.ReadFull(r, pixels); err != nil {
		return nil, errors.Wrap(err, "failed to read idx image data")
	}

	data := make([]float64, len(pixels))
	for i, p := range pixels {
		data[i] = float64(p)
	}
	return mat.NewDense(n, NumFeatures, data), nil
}

// parseLabels reads an idx1-ubyte label stream into an int slice.
func parseLabels(r io.Reader) ([]int, error) {
	var header struct {
		Magic int32
		Count int32
	}
	if err := binary.Read(r, binary.BigEndian, &header); err != nil {
		return nil, errors.Wrap(err, "failed to read idx label header")
	}
	if header.Magic != labelsMagic {
		return nil, errors.Newf("invalid idx label magic: expected %d, got %d", labelsMagic, header.Magic)
	}

	n := int(header.Count)
	raw := make([]byte, n)
	if _, err := io.ReadFull(r, raw); err != nil {
		return nil, errors.Wrap(err, "failed to read idx label data")
	}

	labels := make([]int, n)
	for i, b := range raw {
		labels[i] = int(b)
	}
	return labels, nil
}
