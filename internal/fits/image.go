package fits

import (
	"github.com/astrogo/fitsio"
	"github.com/pkg/errors"
)

// Image is a 2-D pixel array. Row 0 is the first row stored in the file,
// which FITS viewers display at the bottom.
type Image struct {
	Width  int
	Height int
	Pix    []float64
}

// At returns the physical value at (x, y).
func (im *Image) At(x, y int) float64 {
	return im.Pix[y*im.Width+x]
}

// ReadImage decodes the image array of HDU index, applying BSCALE/BZERO.
// Cubes are reduced to their first plane.
func (f *File) ReadImage(index int) (*Image, error) {
	if index < 0 || index >= len(f.HDUs) {
		return nil, errors.Errorf("hdu %d out of range (file has %d)", index, len(f.HDUs))
	}
	hdu := f.HDUs[index]
	if !hdu.HasImage() {
		return nil, errors.Errorf("hdu %d has no image data", index)
	}
	img := hdu.hdu.(fitsio.Image)

	axes := hdu.Axes()
	width := axes[0]
	height := 1
	if len(axes) > 1 {
		height = axes[1]
	}
	if width <= 0 || height <= 0 {
		return nil, errors.Errorf("hdu %d has empty image axes %v", index, axes)
	}

	bitpix := img.Header().Bitpix()
	bytesPer := int64(bitpix / 8)
	if bytesPer < 0 {
		bytesPer = -bytesPer
	}
	total := int64(1)
	for _, n := range axes {
		var ok bool
		if total, ok = mul(total, int64(n)); !ok {
			return nil, errors.Errorf("hdu %d axes %v overflow", index, axes)
		}
	}
	if size, ok := mul(total, bytesPer); !ok || size > hdu.dataSize {
		return nil, errors.Errorf("hdu %d axes %v exceed its %d data bytes", index, axes, hdu.dataSize)
	}

	scale, hasScale, err := hdu.Header.Float("BSCALE")
	if err != nil {
		return nil, err
	}
	if !hasScale {
		scale = 1
	}
	zero, _, err := hdu.Header.Float("BZERO")
	if err != nil {
		return nil, err
	}

	values, err := readValues(img, bitpix, int(total))
	if err != nil {
		return nil, errors.Wrapf(err, "reading hdu %d data", index)
	}

	n := width * height
	pix := make([]float64, n)
	for i := range pix {
		pix[i] = values(i)*scale + zero
	}
	return &Image{Width: width, Height: height, Pix: pix}, nil
}

// readValues reads n elements in the Go type matching bitpix and returns an
// accessor for the raw value of element i.
func readValues(img fitsio.Image, bitpix, n int) (func(int) float64, error) {
	switch bitpix {
	case 8:
		data := make([]uint8, n)
		return func(i int) float64 { return float64(data[i]) }, img.Read(&data)
	case 16:
		data := make([]int16, n)
		return func(i int) float64 { return float64(data[i]) }, img.Read(&data)
	case 32:
		data := make([]int32, n)
		return func(i int) float64 { return float64(data[i]) }, img.Read(&data)
	case 64:
		data := make([]int64, n)
		return func(i int) float64 { return float64(data[i]) }, img.Read(&data)
	case -32:
		data := make([]float32, n)
		return func(i int) float64 { return float64(data[i]) }, img.Read(&data)
	case -64:
		data := make([]float64, n)
		return func(i int) float64 { return data[i] }, img.Read(&data)
	default:
		return nil, errors.Errorf("unsupported BITPIX %d", bitpix)
	}
}

// StackRows returns a new image with b's rows appended after a's.
func StackRows(a, b *Image) (*Image, error) {
	if a.Width != b.Width {
		return nil, errors.Errorf("cannot stack images of width %d and %d", a.Width, b.Width)
	}
	pix := make([]float64, 0, len(a.Pix)+len(b.Pix))
	pix = append(pix, a.Pix...)
	pix = append(pix, b.Pix...)
	return &Image{Width: a.Width, Height: a.Height + b.Height, Pix: pix}, nil
}
