package fits

import (
	"bytes"
	"errors"
	"path/filepath"
	"testing"

	"github.com/acsql/acsql/internal/fits/fitstest"
)

func TestFormatValue(t *testing.T) {
	cases := []struct {
		value any
		want  string
	}{
		{value: "WFC     ", want: "WFC"},
		{value: true, want: "T"},
		{value: false, want: "F"},
		{value: 10325, want: "10325"},
		{value: int64(-32), want: "-32"},
		{value: 350.0, want: "350"},
		{value: 53901.3125, want: "53901.3125"},
		{value: nil, want: ""},
	}
	for _, tc := range cases {
		if got := formatValue(tc.value); got != tc.want {
			t.Fatalf("formatValue(%#v) = %q, want %q", tc.value, got, tc.want)
		}
	}
}

func TestHeaderAccessors(t *testing.T) {
	h := newHeader()
	h.add(Card{Keyword: "TARGNAME", Value: "O'BRIEN"})
	h.add(Card{Keyword: "EXPTIME", Value: "1.5D2"})
	h.add(Card{Keyword: "EXPFLAG", Value: "long"})
	h.add(Card{Keyword: "SIMPLE", Value: "T"})
	h.add(Card{Keyword: "EXPTIME", Value: "7"})

	if got := h.String("targname"); got != "O'BRIEN" {
		t.Fatalf("expected O'BRIEN, got %q", got)
	}
	if v, ok, err := h.Float("EXPTIME"); err != nil || !ok || v != 150 {
		t.Fatalf("expected first EXPTIME 150, got %v ok=%v err=%v", v, ok, err)
	}
	if _, ok, err := h.Float("EXPFLAG"); err == nil || !ok {
		t.Fatalf("expected a parse error for a non-numeric value, got ok=%v err=%v", ok, err)
	}
	if _, ok, err := h.Float("RA_TARG"); err != nil || ok {
		t.Fatalf("absent keyword should be ok=false, got ok=%v err=%v", ok, err)
	}
	if v, ok := h.Bool("SIMPLE"); !ok || !v {
		t.Fatalf("expected SIMPLE = T")
	}
	if len(h.Cards()) != 5 {
		t.Fatalf("expected 5 cards in order, got %d", len(h.Cards()))
	}
}

func TestOpenReadsAllHeaders(t *testing.T) {
	path := filepath.Join(t.TempDir(), "jbm110u2q_flt.fits")
	fitstest.Write(t, path,
		fitstest.HDU{Keywords: []fitstest.Keyword{
			{Name: "DETECTOR", Value: "WFC"},
			{Name: "EXPTIME", Value: 350.0},
			{Name: "PROPOSID", Value: 10325},
		}},
		fitstest.HDU{
			Keywords: []fitstest.Keyword{{Name: "EXTNAME", Value: "SCI"}},
			Width:    4, Height: 3, Pixels: fitstest.Gradient(4, 3),
		},
	)

	f, err := Open(path)
	if err != nil {
		t.Fatalf("Open error: %v", err)
	}
	defer func() { _ = f.Close() }()

	if len(f.HDUs) != 2 {
		t.Fatalf("expected 2 HDUs, got %d", len(f.HDUs))
	}

	primary := f.Primary().Header
	if got := primary.String("detector"); got != "WFC" {
		t.Fatalf("expected detector WFC, got %q", got)
	}
	exptime, ok, err := primary.Float("EXPTIME")
	if err != nil || !ok || exptime != 350.0 {
		t.Fatalf("expected exptime 350.0, got %v ok=%v err=%v", exptime, ok, err)
	}
	proposid, ok, err := primary.Int("PROPOSID")
	if err != nil || !ok || proposid != 10325 {
		t.Fatalf("expected proposid 10325, got %v ok=%v err=%v", proposid, ok, err)
	}

	if f.HDUs[1].ExtName() != "SCI" {
		t.Fatalf("expected EXTNAME SCI, got %q", f.HDUs[1].ExtName())
	}
	if !f.HDUs[1].HasImage() || f.HDUs[0].HasImage() {
		t.Fatalf("unexpected HasImage: primary=%v sci=%v", f.HDUs[0].HasImage(), f.HDUs[1].HasImage())
	}

	img, err := f.ReadImage(1)
	if err != nil {
		t.Fatalf("ReadImage error: %v", err)
	}
	if img.Width != 4 || img.Height != 3 {
		t.Fatalf("expected 4x3 image, got %dx%d", img.Width, img.Height)
	}
	if img.At(3, 2) != 11 {
		t.Fatalf("expected last pixel 11, got %v", img.At(3, 2))
	}
}

func TestParseRejectsNonFITS(t *testing.T) {
	data := bytes.Repeat([]byte(" "), BlockSize)
	copy(data, padCard("NOTFITS =                    T")+padCard("END"))

	if _, err := Parse(bytes.NewReader(data), int64(len(data))); !errors.Is(err, ErrNotFITS) {
		t.Fatalf("expected ErrNotFITS, got %v", err)
	}
}

func TestParseDetectsTruncation(t *testing.T) {
	full := fitstest.Encode(
		fitstest.HDU{Keywords: []fitstest.Keyword{{Name: "DETECTOR", Value: "HRC"}}},
		fitstest.HDU{Width: 64, Height: 64, Pixels: fitstest.Gradient(64, 64)},
	)

	truncated := full[:BlockSize*3]
	if _, err := Parse(bytes.NewReader(truncated), int64(len(truncated))); !errors.Is(err, ErrTruncated) {
		t.Fatalf("expected ErrTruncated for data cut short, got %v", err)
	}

	headerOnly := full[:CardSize*2]
	if _, err := Parse(bytes.NewReader(headerOnly), int64(len(headerOnly))); !errors.Is(err, ErrTruncated) {
		t.Fatalf("expected ErrTruncated for partial header, got %v", err)
	}
}

// rawFITS builds a primary HDU without data followed by an image extension
// with the given cards and one block of data.
func rawFITS(extension ...string) []byte {
	data := fitstest.Header("SIMPLE  =                    T", "BITPIX  =                    8", "NAXIS   =                    0")
	data = append(data, fitstest.Header(extension...)...)
	return append(data, make([]byte, BlockSize)...)
}

func TestParseRejectsOversizedAxes(t *testing.T) {
	overflow := rawFITS(
		"XTENSION= 'IMAGE   '",
		"BITPIX  =                  -32",
		"NAXIS   =                    2",
		"NAXIS1  =  4611686018427387904",
		"NAXIS2  =                    3",
		"PCOUNT  =                    0",
		"GCOUNT  =                    1",
	)
	if _, err := Parse(bytes.NewReader(overflow), int64(len(overflow))); err == nil {
		t.Fatalf("expected error for NAXIS1 * NAXIS2 overflowing the data size")
	}

	tooLarge := rawFITS(
		"XTENSION= 'IMAGE   '",
		"BITPIX  =                  -32",
		"NAXIS   =                    2",
		"NAXIS1  =        1099511627776",
		"NAXIS2  =                    1",
		"PCOUNT  =                    0",
		"GCOUNT  =                    1",
	)
	if _, err := Parse(bytes.NewReader(tooLarge), int64(len(tooLarge))); !errors.Is(err, ErrTruncated) {
		t.Fatalf("expected ErrTruncated for data larger than the file, got %v", err)
	}

	good := rawFITS(
		"XTENSION= 'IMAGE   '",
		"BITPIX  =                   16",
		"NAXIS   =                    2",
		"NAXIS1  =                   20",
		"NAXIS2  =                   10",
		"PCOUNT  =                    0",
		"GCOUNT  =                    1",
		"BZERO   =                32768",
	)
	f, err := Parse(bytes.NewReader(good), int64(len(good)))
	if err != nil {
		t.Fatalf("Parse error for a well-formed 16-bit image: %v", err)
	}
	img, err := f.ReadImage(1)
	if err != nil {
		t.Fatalf("ReadImage error: %v", err)
	}
	if img.Width != 20 || img.Height != 10 || img.At(0, 0) != 32768 {
		t.Fatalf("expected 20x10 image offset by BZERO, got %dx%d first=%v", img.Width, img.Height, img.At(0, 0))
	}
}

func TestStackRows(t *testing.T) {
	a := &Image{Width: 2, Height: 1, Pix: []float64{1, 2}}
	b := &Image{Width: 2, Height: 2, Pix: []float64{3, 4, 5, 6}}

	stacked, err := StackRows(a, b)
	if err != nil {
		t.Fatalf("StackRows error: %v", err)
	}
	if stacked.Height != 3 || stacked.At(0, 1) != 3 || stacked.At(1, 2) != 6 {
		t.Fatalf("unexpected stacked image %#v", stacked)
	}

	if _, err := StackRows(a, &Image{Width: 3, Height: 1, Pix: []float64{1, 2, 3}}); err == nil {
		t.Fatalf("expected width mismatch error")
	}
}

func padCard(s string) string {
	for len(s) < CardSize {
		s += " "
	}
	return s
}
