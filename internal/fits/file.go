package fits

import (
	"bufio"
	"io"
	"os"

	"github.com/astrogo/fitsio"
	"github.com/pkg/errors"
)

var (
	// ErrNotFITS is returned when the primary header does not start with SIMPLE = T.
	ErrNotFITS = errors.New("not a FITS file")
	// ErrTruncated is returned when a header or data unit runs past the end of the file.
	ErrTruncated = errors.New("truncated FITS file")
)

// HDU is one header/data unit.
type HDU struct {
	Index  int
	Header *Header

	hdu      fitsio.HDU
	dataSize int64
}

// ExtName returns the EXTNAME keyword, or "PRIMARY" for HDU 0.
func (h HDU) ExtName() string {
	if name := h.Header.String("EXTNAME"); name != "" {
		return name
	}
	if h.Index == 0 {
		return "PRIMARY"
	}
	return ""
}

// Axes returns NAXISn in order.
func (h HDU) Axes() []int {
	return h.hdu.Header().Axes()
}

// HasImage reports whether the HDU carries a non-empty image array.
func (h HDU) HasImage() bool {
	if h.dataSize == 0 || h.hdu.Type() != fitsio.IMAGE_HDU {
		return false
	}
	_, ok := h.hdu.(fitsio.Image)
	return ok && len(h.Axes()) >= 1
}

// File is an opened FITS file with all headers parsed.
type File struct {
	HDUs []HDU

	fits   *fitsio.File
	closer io.Closer
}

// Open reads every HDU of the file at path.
func Open(path string) (*File, error) {
	//nolint:gosec // G304: path comes from the discoverer
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, errors.WithStack(err)
	}

	file, err := Parse(f, info.Size())
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	file.closer = f
	return file, nil
}

// Parse decodes a FITS stream of the given size. The HDU layout is checked
// against size before any data array is read.
func Parse(r io.ReaderAt, size int64) (*File, error) {
	sizes, end, err := scanLayout(r, size)
	if err != nil {
		return nil, err
	}

	decoded, err := fitsio.Open(bufio.NewReader(io.NewSectionReader(r, 0, end)))
	if err != nil {
		return nil, errors.Wrap(err, "decoding FITS")
	}
	hdus := decoded.HDUs()
	if len(hdus) != len(sizes) {
		_ = decoded.Close()
		return nil, errors.Errorf("decoded %d HDUs, expected %d", len(hdus), len(sizes))
	}

	file := &File{fits: decoded, HDUs: make([]HDU, len(hdus))}
	for i, hdu := range hdus {
		file.HDUs[i] = HDU{
			Index:    i,
			Header:   headerOf(hdu.Header()),
			hdu:      hdu,
			dataSize: sizes[i],
		}
	}
	return file, nil
}

// Close releases the decoded HDUs and the underlying file.
func (f *File) Close() error {
	err := f.fits.Close()
	if f.closer != nil {
		if cerr := f.closer.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

// Primary returns HDU 0.
func (f *File) Primary() HDU {
	return f.HDUs[0]
}
