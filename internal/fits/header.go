// Package fits reads FITS headers and image data on top of fitsio, after
// checking that every header/data unit fits inside the file.
package fits

import (
	"fmt"
	"math/big"
	"strconv"
	"strings"

	"github.com/astrogo/fitsio"
	"github.com/pkg/errors"
)

// Card is a single header record with its value in FITS text form:
// strings unquoted, logicals as T or F.
type Card struct {
	Keyword string
	Value   string
	Comment string
}

// Header is the ordered list of cards of one HDU.
type Header struct {
	cards []Card
	index map[string]int
}

func newHeader() *Header {
	return &Header{index: make(map[string]int)}
}

// headerOf copies the keyword cards of a decoded fitsio header. Commentary
// cards (COMMENT, HISTORY, blank) are not kept.
func headerOf(fh *fitsio.Header) *Header {
	h := newHeader()
	for _, key := range fh.Keys() {
		switch key {
		case "", "COMMENT", "HISTORY", "END":
			continue
		}
		if h.Has(key) {
			continue
		}
		c := fh.Get(key)
		if c == nil {
			continue
		}
		h.add(Card{Keyword: c.Name, Value: formatValue(c.Value), Comment: c.Comment})
	}
	return h
}

func formatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimRight(x, " ")
	case bool:
		if x {
			return "T"
		}
		return "F"
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'G', -1, 64)
	case *big.Int:
		return x.String()
	default:
		return fmt.Sprint(x)
	}
}

func (h *Header) add(c Card) {
	if c.Keyword != "" && c.Keyword != "HISTORY" && c.Keyword != "COMMENT" {
		if _, exists := h.index[c.Keyword]; !exists {
			h.index[c.Keyword] = len(h.cards)
		}
	}
	h.cards = append(h.cards, c)
}

// Cards returns every card in file order, END excluded.
func (h *Header) Cards() []Card {
	return h.cards
}

// Has reports whether keyword is present.
func (h *Header) Has(keyword string) bool {
	_, ok := h.index[strings.ToUpper(keyword)]
	return ok
}

// Get returns the raw value of keyword with string quoting removed.
func (h *Header) Get(keyword string) (string, bool) {
	idx, ok := h.index[strings.ToUpper(keyword)]
	if !ok {
		return "", false
	}
	return h.cards[idx].Value, true
}

// String returns the value of keyword or "" when absent.
func (h *Header) String(keyword string) string {
	v, _ := h.Get(keyword)
	return v
}

// Float parses keyword as a real number. ok is false when the keyword is
// absent or blank; err is set when it is present but not numeric.
func (h *Header) Float(keyword string) (value float64, ok bool, err error) {
	raw, found := h.Get(keyword)
	if !found || raw == "" {
		return 0, false, nil
	}
	// Fortran exponents are legal in FITS.
	normalized := strings.NewReplacer("D", "E", "d", "e").Replace(raw)
	value, err = strconv.ParseFloat(normalized, 64)
	if err != nil {
		return 0, true, errors.Errorf("keyword %s: %q is not a number", keyword, raw)
	}
	return value, true, nil
}

// Int parses keyword as an integer.
func (h *Header) Int(keyword string) (value int64, ok bool, err error) {
	raw, found := h.Get(keyword)
	if !found || raw == "" {
		return 0, false, nil
	}
	value, err = strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, true, errors.Errorf("keyword %s: %q is not an integer", keyword, raw)
	}
	return value, true, nil
}

// Bool parses a logical keyword.
func (h *Header) Bool(keyword string) (value bool, ok bool) {
	raw, found := h.Get(keyword)
	if !found {
		return false, false
	}
	switch raw {
	case "T":
		return true, true
	case "F":
		return false, true
	default:
		return false, false
	}
}
