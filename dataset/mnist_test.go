package dataset

import (
	"bytes"
	"compress/gzip"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func encodeImages(t *testing.T, magic int32, pixels [][]byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, binary.Write(&buf, binary.BigEndian, magic))
	require.NoError(t, binary.Write(&buf, binary.BigEndian, int32(len(pixels))))
	require.NoError(t, binary.Write(&buf, binary.BigEndian, int32(ImageSide)))
	require.NoError(t, binary.Write(&buf, binary.BigEndian, int32(ImageSide)))
	for _, img := range pixels {
		buf.Write(img)
	}
	return buf.Bytes()
}

func encodeLabels(t *testing.T, magic int32, labels []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, binary.Write(&buf, binary.BigEndian, magic))
	require.NoError(t, binary.Write(&buf, binary.BigEndian, int32(len(labels))))
	buf.Write(labels)
	return buf.Bytes()
}

func writeGzipFile(t *testing.T, dir, name string, raw []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	require.NoError(t, err)
	gz := gzip.NewWriter(f)
	_, err = gz.Write(raw)
	require.NoError(t, err)
	require.NoError(t, gz.Close())
	require.NoError(t, f.Close())
	return path
}

func syntheticImage(fill byte) []byte {
	img := make([]byte, NumFeatures)
	for i := range img {
		img[i] = fill
	}
	return img
}

func TestParseImages(t *testing.T) {
	raw := encodeImages(t, imagesMagic, [][]byte{
		syntheticImage(0),
		syntheticImage(128),
		syntheticImage(255),
	})

	X, err := parseImages(bytes.NewReader(raw))
	require.NoError(t, err)

	n, c := X.Dims()
	assert.Equal(t, 3, n)
	assert.Equal(t, NumFeatures, c)
	assert.Equal(t, 0.0, X.At(0, 0))
	assert.Equal(t, 128.0, X.At(1, 100))
	assert.Equal(t, 255.0, X.At(2, NumFeatures-1))
}

func TestParseImages_BadMagic(t *testing.T) {
	raw := encodeImages(t, 1234, [][]byte{syntheticImage(0)})
	_, err := parseImages(bytes.NewReader(raw))
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "magic")
}

func TestParseImages_Truncated(t *testing.T) {
	raw := encodeImages(t, imagesMagic, [][]byte{syntheticImage(7)})
	_, err := parseImages(bytes.NewReader(raw[:len(raw)-10]))
	assert.Error(t, err)
}

func TestParseLabels(t *testing.T) {
	raw := encodeLabels(t, labelsMagic, []byte{5, 0, 4, 1, 9})

	y, err := parseLabels(bytes.NewReader(raw))
	require.NoError(t, err)
	assert.Equal(t, []int{5, 0, 4, 1, 9}, y)
}

func TestParseLabels_BadMagic(t *testing.T) {
	raw := encodeLabels(t, 42, []byte{1})
	_, err := parseLabels(bytes.NewReader(raw))
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "magic")
}

func TestLoadIDXPair(t *testing.T) {
	dir := t.TempDir()
	imagesPath := writeGzipFile(t, dir, "images.gz",
		encodeImages(t, imagesMagic, [][]byte{syntheticImage(10), syntheticImage(20)}))
	labelsPath := writeGzipFile(t, dir, "labels.gz",
		encodeLabels(t, labelsMagic, []byte{3, 8}))

	X, y, err := loadIDXPair(imagesPath, labelsPath)
	require.NoError(t, err)

	n, c := X.Dims()
	assert.Equal(t, 2, n)
	assert.Equal(t, NumFeatures, c)
	assert.Equal(t, []int{3, 8}, y)
	assert.Equal(t, 10.0, X.At(0, 0))
	assert.Equal(t, 20.0, X.At(1, 0))
}

func TestLoadIDXPair_CountMismatch(t *testing.T) {
	dir := t.TempDir()
	imagesPath := writeGzipFile(t, dir, "images.gz",
		encodeImages(t, imagesMagic, [][]byte{syntheticImage(1), syntheticImage(2)}))
	labelsPath := writeGzipFile(t, dir, "labels.gz",
		encodeLabels(t, labelsMagic, []byte{0, 1, 2}))

	_, _, err := loadIDXPair(imagesPath, labelsPath)
	assert.Error(t, err)
}

func TestLoadIDXPair_MissingFile(t *testing.T) {
	dir := t.TempDir()
	labelsPath := writeGzipFile(t, dir, "labels.gz",
		encodeLabels(t, labelsMagic, []byte{0}))

	_, _, err := loadIDXPair(filepath.Join(dir, "absent.gz"), labelsPath)
	assert.Error(t, err)
}
