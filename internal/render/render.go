// Package render produces the JPEG and thumbnail previews of FITS images.
package render

import (
	"image"
	"image/jpeg"
	"io"
	"math"
	"os"
	"sort"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/image/draw"

	"github.com/acsql/acsql/internal/filesystem"
	"github.com/acsql/acsql/internal/fits"
	"github.com/acsql/acsql/internal/models"
)

const (
	// ThumbnailSize bounds both thumbnail dimensions.
	ThumbnailSize = 128
	jpegQuality   = 90
	clipFraction  = 0.01
)

var (
	jpegFiletypes      = map[string]bool{"raw": true, "flt": true, "flc": true}
	thumbnailFiletypes = map[string]bool{"flt": true}
)

// Generator writes artifacts under a JPEG and a thumbnail directory.
type Generator struct {
	jpegDir      string
	thumbnailDir string
	log          logrus.FieldLogger
}

// New creates a Generator.
func New(jpegDir, thumbnailDir string, logger logrus.FieldLogger) *Generator {
	return &Generator{jpegDir: jpegDir, thumbnailDir: thumbnailDir, log: logger}
}

// Paths returns where the artifacts of file live. Filetypes without
// previews get empty paths.
func (g *Generator) Paths(file models.DataFile) models.Artifacts {
	var a models.Artifacts
	if jpegFiletypes[file.Filetype] {
		a.JPEGPath = filesystem.ArtifactPath(g.jpegDir, file.ProposalID, file.Rootname, file.Filetype, "jpg")
	}
	if thumbnailFiletypes[file.Filetype] {
		a.ThumbnailPath = filesystem.ArtifactPath(g.thumbnailDir, file.ProposalID, file.Rootname, file.Filetype, "thumb")
	}
	return a
}

// Fresh reports whether every artifact of file exists and is newer than the source.
func (g *Generator) Fresh(file models.DataFile) bool {
	a := g.Paths(file)
	if a.JPEGPath != "" && !filesystem.IsFresh(a.JPEGPath, file.ModTime) {
		return false
	}
	if a.ThumbnailPath != "" && !filesystem.IsFresh(a.ThumbnailPath, file.ModTime) {
		return false
	}
	return true
}

// Generate renders whatever artifacts of file are missing or stale.
// Failures are returned as *models.RenderError.
func (g *Generator) Generate(file models.DataFile) (models.Artifacts, error) {
	artifacts := g.Paths(file)
	if artifacts.JPEGPath == "" {
		return artifacts, nil
	}

	needJPEG := !filesystem.IsFresh(artifacts.JPEGPath, file.ModTime)
	needThumb := artifacts.ThumbnailPath != "" && !filesystem.IsFresh(artifacts.ThumbnailPath, file.ModTime)
	if !needJPEG && !needThumb {
		return artifacts, nil
	}

	fail := func(err error) (models.Artifacts, error) {
		return models.Artifacts{}, &models.RenderError{Identifier: file.Identifier(), Path: file.Path, Err: err}
	}

	var preview *image.Gray
	if needJPEG {
		g.log.Infof("%s: Creating JPEG", file.Rootname)
		img, err := RenderFile(file.Path)
		if err != nil {
			return fail(err)
		}
		if err := writeJPEG(artifacts.JPEGPath, img); err != nil {
			return fail(err)
		}
		preview = img
	}

	if needThumb {
		g.log.Infof("%s: Creating Thumbnail", file.Rootname)
		if preview == nil {
			img, err := readJPEG(artifacts.JPEGPath)
			if err != nil {
				return fail(err)
			}
			preview = img
		}
		if err := writeJPEG(artifacts.ThumbnailPath, Thumbnail(preview)); err != nil {
			return fail(err)
		}
	}

	artifacts.Rendered = true
	return artifacts, nil
}

// RenderFile reads the science image of a FITS file and scales it to 8 bits.
// Full-frame WFC exposures have both chips stacked.
func RenderFile(path string) (*image.Gray, error) {
	f, err := fits.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	index := 1
	if len(f.HDUs) < 2 || !f.HDUs[1].HasImage() {
		index = 0
	}
	data, err := f.ReadImage(index)
	if err != nil {
		return nil, err
	}

	if len(f.HDUs) > 4 && f.Primary().Header.String("DETECTOR") == "WFC" && f.HDUs[4].ExtName() == "SCI" {
		chip, err := f.ReadImage(4)
		if err != nil {
			return nil, err
		}
		if data, err = fits.StackRows(data, chip); err != nil {
			return nil, err
		}
	}

	return Scale(data), nil
}

// Scale clips data to its 1st/99th percentiles, stretches it to 0-255 and
// flips it so the first FITS row is at the bottom of the image.
func Scale(data *fits.Image) *image.Gray {
	sorted := make([]float64, 0, len(data.Pix))
	for _, v := range data.Pix {
		if !math.IsNaN(v) {
			sorted = append(sorted, v)
		}
	}
	sort.Float64s(sorted)

	var bottom, top float64
	if n := len(sorted); n > 0 {
		bottom = sorted[int(float64(n)*clipFraction)]
		top = sorted[int(float64(n)*(1-clipFraction))]
	}
	span := top - bottom

	out := image.NewGray(image.Rect(0, 0, data.Width, data.Height))
	for y := 0; y < data.Height; y++ {
		row := data.Height - 1 - y
		for x := 0; x < data.Width; x++ {
			v := data.At(x, row)
			var level uint8
			if !math.IsNaN(v) && span > 0 {
				v = math.Min(math.Max(v, bottom), top)
				level = uint8((v - bottom) / span * 255)
			}
			out.Pix[y*out.Stride+x] = level
		}
	}
	return out
}

// Thumbnail shrinks img to fit within ThumbnailSize x ThumbnailSize,
// keeping the aspect ratio. Smaller images are returned unchanged.
func Thumbnail(img image.Image) *image.Gray {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w > ThumbnailSize || h > ThumbnailSize {
		if w >= h {
			h = max(1, h*ThumbnailSize/w)
			w = ThumbnailSize
		} else {
			w = max(1, w*ThumbnailSize/h)
			h = ThumbnailSize
		}
	}

	dst := image.NewGray(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	return dst
}

func writeJPEG(path string, img image.Image) error {
	return filesystem.WriteFileAtomic(path, func(w io.Writer) error {
		return errors.Wrap(jpeg.Encode(w, img, &jpeg.Options{Quality: jpegQuality}), "encoding jpeg")
	})
}

func readJPEG(path string) (*image.Gray, error) {
	//nolint:gosec // G304: artifact path is derived from configuration
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	defer func() { _ = f.Close() }()

	img, err := jpeg.Decode(f)
	if err != nil {
		return nil, errors.Wrapf(err, "decoding %s", path)
	}
	if gray, ok := img.(*image.Gray); ok {
		return gray, nil
	}
	gray := image.NewGray(img.Bounds())
	draw.Draw(gray, gray.Bounds(), img, img.Bounds().Min, draw.Src)
	return gray, nil
}
