// Package fitstest builds small FITS files for tests.
package fitstest

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"
)

// Keyword is a header card to write. Value may be string, bool, int,
// int64, float64 or float32.
type Keyword struct {
	Name  string
	Value any
}

// HDU describes one header/data unit. Pixels, when set, must hold
// Width*Height values and are written as BITPIX = -32.
type HDU struct {
	Keywords []Keyword
	Width    int
	Height   int
	Pixels   []float32
}

// Gradient returns a width*height ramp so percentile clipping has something to do.
func Gradient(width, height int) []float32 {
	pix := make([]float32, width*height)
	for i := range pix {
		pix[i] = float32(i)
	}
	return pix
}

// Encode serialises hdus into a FITS byte stream. The first HDU is the primary.
func Encode(hdus ...HDU) []byte {
	var buf bytes.Buffer
	for i, hdu := range hdus {
		var cards []string
		if i == 0 {
			cards = append(cards, card("SIMPLE", true))
		} else {
			cards = append(cards, card("XTENSION", "IMAGE"))
		}
		cards = append(cards, card("BITPIX", -32))
		if hdu.Pixels != nil {
			cards = append(cards,
				card("NAXIS", 2),
				card("NAXIS1", hdu.Width),
				card("NAXIS2", hdu.Height),
			)
		} else {
			cards = append(cards, card("NAXIS", 0))
		}
		if i > 0 {
			cards = append(cards, card("PCOUNT", 0), card("GCOUNT", 1))
		}
		for _, kw := range hdu.Keywords {
			cards = append(cards, card(kw.Name, kw.Value))
		}
		cards = append(cards, fmt.Sprintf("%-80s", "END"))

		header := strings.Join(cards, "")
		buf.WriteString(header)
		pad(&buf, ' ')

		if hdu.Pixels != nil {
			for _, v := range hdu.Pixels {
				var b [4]byte
				binary.BigEndian.PutUint32(b[:], math.Float32bits(v))
				buf.Write(b[:])
			}
			pad(&buf, 0)
		}
	}
	return buf.Bytes()
}

// Header pads raw 80-column cards into header blocks ending with END, for
// headers Encode would refuse to produce.
func Header(cards ...string) []byte {
	var buf bytes.Buffer
	for _, c := range cards {
		buf.WriteString(fmt.Sprintf("%-80s", c))
	}
	buf.WriteString(fmt.Sprintf("%-80s", "END"))
	pad(&buf, ' ')
	return buf.Bytes()
}

// Write encodes hdus to path, creating parent directories.
func Write(t testing.TB, path string, hdus ...HDU) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		t.Fatalf("fitstest: mkdir: %v", err)
	}
	if err := os.WriteFile(path, Encode(hdus...), 0o600); err != nil {
		t.Fatalf("fitstest: write %s: %v", path, err)
	}
}

// Touch sets the modification time of path.
func Touch(t testing.TB, path string, mtime time.Time) {
	t.Helper()
	if err := os.Chtimes(path, mtime, mtime); err != nil {
		t.Fatalf("fitstest: chtimes %s: %v", path, err)
	}
}

func card(name string, value any) string {
	var v string
	switch x := value.(type) {
	case string:
		quoted := "'" + strings.ReplaceAll(x, "'", "''")
		for len(quoted) < 9 {
			quoted += " "
		}
		v = fmt.Sprintf("%-20s", quoted+"'")
	case bool:
		if x {
			v = fmt.Sprintf("%20s", "T")
		} else {
			v = fmt.Sprintf("%20s", "F")
		}
	case int:
		v = fmt.Sprintf("%20d", x)
	case int64:
		v = fmt.Sprintf("%20d", x)
	case float32:
		v = fmt.Sprintf("%20s", formatFloat(float64(x)))
	case float64:
		v = fmt.Sprintf("%20s", formatFloat(x))
	default:
		panic(fmt.Sprintf("fitstest: unsupported value type %T", value))
	}
	line := fmt.Sprintf("%-8s= %s", name, v)
	if len(line) > 80 {
		line = line[:80]
	}
	return fmt.Sprintf("%-80s", line)
}

func formatFloat(f float64) string {
	s := strconv.FormatFloat(f, 'G', -1, 64)
	if !strings.ContainsAny(s, ".E") {
		s += ".0"
	}
	return s
}

func pad(buf *bytes.Buffer, fill byte) {
	if rem := buf.Len() % 2880; rem != 0 {
		buf.Write(bytes.Repeat([]byte{fill}, 2880-rem))
	}
}
