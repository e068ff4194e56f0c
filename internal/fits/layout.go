package fits

import (
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

const (
	// BlockSize is the FITS logical record length.
	BlockSize = 2880
	// CardSize is the length of one header card.
	CardSize = 80
)

// scanLayout walks the HDUs of a stream of the given size using only the
// structural keywords. It returns the data size of every HDU and the offset
// where the last one ends; bytes after that which do not start an extension are
// ignored.
func scanLayout(r io.ReaderAt, size int64) ([]int64, int64, error) {
	var (
		sizes  []int64
		offset int64
	)
	for index := 0; offset < size; index++ {
		if index > 0 && !startsExtension(r, offset, size) {
			break
		}
		keys, headerLen, err := readStructure(r, offset, size)
		if err != nil {
			if errors.Is(err, io.EOF) {
				err = ErrTruncated
			}
			return nil, 0, errors.Wrapf(err, "hdu %d", index)
		}
		if index == 0 && keys["SIMPLE"] != "T" {
			return nil, 0, ErrNotFITS
		}

		dataSize, err := dataLength(keys)
		if err != nil {
			return nil, 0, errors.Wrapf(err, "hdu %d", index)
		}
		dataOffset := offset + headerLen
		if dataSize > size-dataOffset {
			return nil, 0, errors.Wrapf(ErrTruncated, "hdu %d data needs %d bytes", index, dataSize)
		}

		sizes = append(sizes, dataSize)
		offset = dataOffset + padded(dataSize)
	}

	if len(sizes) == 0 {
		return nil, 0, ErrNotFITS
	}
	return sizes, min(offset, size), nil
}

func startsExtension(r io.ReaderAt, offset, size int64) bool {
	if offset+CardSize > size {
		return false
	}
	prefix := make([]byte, 8)
	if _, err := r.ReadAt(prefix, offset); err != nil {
		return false
	}
	return string(prefix) == "XTENSION"
}

// readStructure returns the first value of every keyword card up to END,
// and the header length in bytes.
func readStructure(r io.ReaderAt, offset, size int64) (map[string]string, int64, error) {
	keys := make(map[string]string)
	block := make([]byte, BlockSize)
	var read int64

	for {
		if offset+read+BlockSize > size {
			if read == 0 {
				return nil, 0, io.EOF
			}
			return nil, 0, errors.Wrap(ErrTruncated, "header has no END card")
		}
		if _, err := r.ReadAt(block, offset+read); err != nil {
			return nil, 0, errors.WithStack(err)
		}
		read += BlockSize

		for i := 0; i < BlockSize; i += CardSize {
			line := string(block[i : i+CardSize])
			keyword := strings.TrimSpace(line[:8])
			if keyword == "END" {
				return keys, read, nil
			}
			if line[8:10] != "= " {
				continue
			}
			if _, seen := keys[keyword]; seen {
				continue
			}
			value := line[10:]
			if !strings.HasPrefix(strings.TrimLeft(value, " "), "'") {
				if slash := strings.IndexByte(value, '/'); slash >= 0 {
					value = value[:slash]
				}
			}
			keys[keyword] = strings.TrimSpace(value)
		}
	}
}

func dataLength(keys map[string]string) (int64, error) {
	bitpix, ok, err := intKey(keys, "BITPIX")
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, errors.New("missing BITPIX")
	}
	switch bitpix {
	case 8, 16, 32, 64, -32, -64:
	default:
		return 0, errors.Errorf("invalid BITPIX %d", bitpix)
	}

	naxis, _, err := intKey(keys, "NAXIS")
	if err != nil {
		return 0, err
	}
	if naxis < 0 || naxis > 999 {
		return 0, errors.Errorf("invalid NAXIS %d", naxis)
	}
	if naxis == 0 {
		return 0, nil
	}

	elements := int64(1)
	for i := int64(1); i <= naxis; i++ {
		name := "NAXIS" + strconv.FormatInt(i, 10)
		n, ok, err := intKey(keys, name)
		if err != nil {
			return 0, err
		}
		if !ok || n < 0 {
			return 0, errors.Errorf("invalid %s", name)
		}
		if elements, ok = mul(elements, n); !ok {
			return 0, errors.Errorf("%s = %d overflows the data size", name, n)
		}
	}

	pcount, _, err := intKey(keys, "PCOUNT")
	if err != nil {
		return 0, err
	}
	gcount, ok, err := intKey(keys, "GCOUNT")
	if err != nil {
		return 0, err
	}
	if !ok {
		gcount = 1
	}
	if pcount < 0 || gcount < 0 || pcount > math.MaxInt64-elements {
		return 0, errors.Errorf("invalid PCOUNT %d or GCOUNT %d", pcount, gcount)
	}

	bytesPer := bitpix / 8
	if bytesPer < 0 {
		bytesPer = -bytesPer
	}
	size, ok := mul(pcount+elements, gcount)
	if ok {
		size, ok = mul(size, bytesPer)
	}
	if !ok {
		return 0, errors.New("data size overflows")
	}
	return size, nil
}

func intKey(keys map[string]string, keyword string) (int64, bool, error) {
	raw, ok := keys[keyword]
	if !ok || raw == "" {
		return 0, false, nil
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, true, errors.Errorf("keyword %s: %q is not an integer", keyword, raw)
	}
	return n, true, nil
}

// mul multiplies two non-negative sizes, reporting false on overflow.
func mul(a, b int64) (int64, bool) {
	if a == 0 || b == 0 {
		return 0, true
	}
	if a > math.MaxInt64/b {
		return 0, false
	}
	return a * b, true
}

func padded(n int64) int64 {
	if rem := n % BlockSize; rem != 0 {
		return n + BlockSize - rem
	}
	return n
}
