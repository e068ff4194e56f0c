package render

import (
	"errors"
	"image"
	"image/jpeg"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/acsql/acsql/internal/fits"
	"github.com/acsql/acsql/internal/fits/fitstest"
	"github.com/acsql/acsql/internal/logging"
	"github.com/acsql/acsql/internal/models"
)

func writeSource(t *testing.T, root, filetype string, hdus ...fitstest.HDU) models.DataFile {
	t.Helper()
	path := filepath.Join(root, "jbm1", "jbm110u2q", "jbm110u2q_"+filetype+".fits")
	fitstest.Write(t, path, hdus...)
	mtime := time.Now().Add(-time.Hour).Truncate(time.Second)
	fitstest.Touch(t, path, mtime)
	return models.DataFile{ProposalID: "jbm1", Rootname: "jbm110u2q", Filetype: filetype, Path: path, ModTime: mtime}
}

func science(width, height int) []fitstest.HDU {
	return []fitstest.HDU{
		{Keywords: []fitstest.Keyword{{Name: "DETECTOR", Value: "HRC"}}},
		{Keywords: []fitstest.Keyword{{Name: "EXTNAME", Value: "SCI"}}, Width: width, Height: height, Pixels: fitstest.Gradient(width, height)},
	}
}

func decode(t *testing.T, path string) image.Image {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	img, err := jpeg.Decode(f)
	require.NoError(t, err)
	return img
}

func TestScale(t *testing.T) {
	data := &fits.Image{Width: 10, Height: 10, Pix: make([]float64, 100)}
	for i := range data.Pix {
		data.Pix[i] = float64(i)
	}

	gray := Scale(data)

	// First FITS row is drawn at the bottom.
	assert.Equal(t, uint8(0), gray.GrayAt(0, 9).Y)
	assert.Equal(t, uint8(255), gray.GrayAt(9, 0).Y)
	assert.Greater(t, gray.GrayAt(5, 4).Y, gray.GrayAt(5, 5).Y)
}

func TestScaleConstantImage(t *testing.T) {
	data := &fits.Image{Width: 3, Height: 2, Pix: []float64{7, 7, 7, 7, 7, 7}}
	gray := Scale(data)
	for _, p := range gray.Pix {
		assert.Equal(t, uint8(0), p)
	}
}

func TestThumbnailKeepsAspectRatio(t *testing.T) {
	thumb := Thumbnail(image.NewGray(image.Rect(0, 0, 512, 256)))
	assert.Equal(t, image.Rect(0, 0, 128, 64), thumb.Bounds())

	small := Thumbnail(image.NewGray(image.Rect(0, 0, 40, 90)))
	assert.Equal(t, image.Rect(0, 0, 40, 90), small.Bounds())

	tall := Thumbnail(image.NewGray(image.Rect(0, 0, 300, 600)))
	assert.Equal(t, image.Rect(0, 0, 64, 128), tall.Bounds())
}

func TestGenerator_Generate(t *testing.T) {
	root := t.TempDir()
	jpegDir := filepath.Join(root, "jpegs")
	thumbDir := filepath.Join(root, "thumbnails")
	g := New(jpegDir, thumbDir, logging.Discard())

	file := writeSource(t, root, "flt", science(300, 200)...)

	t.Run("Expect: jpeg and thumbnail are written", func(t *testing.T) {
		artifacts, err := g.Generate(file)
		require.NoError(t, err)
		assert.True(t, artifacts.Rendered)
		assert.Equal(t, filepath.Join(jpegDir, "jbm1", "jbm110u2q_flt.jpg"), artifacts.JPEGPath)
		assert.Equal(t, filepath.Join(thumbDir, "jbm1", "jbm110u2q_flt.thumb"), artifacts.ThumbnailPath)

		assert.Equal(t, image.Rect(0, 0, 300, 200), decode(t, artifacts.JPEGPath).Bounds())
		assert.Equal(t, image.Rect(0, 0, 128, 85), decode(t, artifacts.ThumbnailPath).Bounds())
		assert.True(t, g.Fresh(file))
	})

	t.Run("Expect: fresh artifacts are not regenerated", func(t *testing.T) {
		before, err := os.Stat(g.Paths(file).JPEGPath)
		require.NoError(t, err)

		artifacts, err := g.Generate(file)
		require.NoError(t, err)
		assert.False(t, artifacts.Rendered)

		after, err := os.Stat(artifacts.JPEGPath)
		require.NoError(t, err)
		assert.Equal(t, before.ModTime(), after.ModTime())
	})

	t.Run("Expect: newer source triggers regeneration", func(t *testing.T) {
		newer := file
		newer.ModTime = time.Now().Add(time.Minute)
		fitstest.Touch(t, file.Path, newer.ModTime)
		assert.False(t, g.Fresh(newer))

		artifacts, err := g.Generate(newer)
		require.NoError(t, err)
		assert.True(t, artifacts.Rendered)
	})

	t.Run("Expect: missing thumbnail is rebuilt from the jpeg", func(t *testing.T) {
		paths := g.Paths(file)
		require.NoError(t, os.Remove(paths.ThumbnailPath))
		stale := file
		stale.ModTime = time.Now().Add(-2 * time.Hour)

		artifacts, err := g.Generate(stale)
		require.NoError(t, err)
		assert.True(t, artifacts.Rendered)
		assert.FileExists(t, paths.ThumbnailPath)
	})
}

func TestGenerator_FiletypePolicy(t *testing.T) {
	root := t.TempDir()
	g := New(filepath.Join(root, "jpegs"), filepath.Join(root, "thumbnails"), logging.Discard())

	raw := g.Paths(models.DataFile{ProposalID: "jbm1", Rootname: "jbm110u2q", Filetype: "raw"})
	assert.NotEmpty(t, raw.JPEGPath)
	assert.Empty(t, raw.ThumbnailPath)

	spt := writeSource(t, root, "spt", fitstest.HDU{Keywords: []fitstest.Keyword{{Name: "DETECTOR", Value: "WFC"}}})
	artifacts, err := g.Generate(spt)
	require.NoError(t, err)
	assert.Equal(t, models.Artifacts{}, artifacts)
	assert.True(t, g.Fresh(spt))
}

func TestRenderFileStacksWFCChips(t *testing.T) {
	root := t.TempDir()
	chip := func() fitstest.HDU {
		return fitstest.HDU{Keywords: []fitstest.Keyword{{Name: "EXTNAME", Value: "SCI"}}, Width: 16, Height: 8, Pixels: fitstest.Gradient(16, 8)}
	}
	aux := func(name string) fitstest.HDU {
		return fitstest.HDU{Keywords: []fitstest.Keyword{{Name: "EXTNAME", Value: name}}, Width: 16, Height: 8, Pixels: make([]float32, 128)}
	}
	file := writeSource(t, root, "flt",
		fitstest.HDU{Keywords: []fitstest.Keyword{{Name: "DETECTOR", Value: "WFC"}}},
		chip(), aux("ERR"), aux("DQ"), chip(), aux("ERR"), aux("DQ"),
	)

	img, err := RenderFile(file.Path)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 16, 16), img.Bounds())
}

func TestGenerator_CorruptImageIsRenderError(t *testing.T) {
	root := t.TempDir()
	g := New(filepath.Join(root, "jpegs"), filepath.Join(root, "thumbnails"), logging.Discard())
	file := writeSource(t, root, "flt", fitstest.HDU{Keywords: []fitstest.Keyword{{Name: "DETECTOR", Value: "WFC"}}})

	_, err := g.Generate(file)

	var renderErr *models.RenderError
	require.Error(t, err)
	assert.True(t, errors.As(err, &renderErr))
	assert.Equal(t, "jbm110u2q_flt", renderErr.Identifier)
	assert.NoFileExists(t, g.Paths(file).JPEGPath)
}

func TestRenderFile_OverflowingAxesFail(t *testing.T) {
	path := filepath.Join(t.TempDir(), "jbm110u2q_flt.fits")
	data := fitstest.Header("SIMPLE  =                    T", "BITPIX  =                    8", "NAXIS   =                    0")
	data = append(data, fitstest.Header(
		"XTENSION= 'IMAGE   '",
		"BITPIX  =                  -32",
		"NAXIS   =                    2",
		"NAXIS1  =  4611686018427387904",
		"NAXIS2  =                    3",
		"PCOUNT  =                    0",
		"GCOUNT  =                    1",
	)...)
	data = append(data, make([]byte, 2880)...)
	require.NoError(t, os.WriteFile(path, data, 0o600))

	assert.NotPanics(t, func() {
		_, err := RenderFile(path)
		assert.Error(t, err)
	})
}
