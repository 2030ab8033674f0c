// Package rle implements the run-length encoded bitmap format used by the
// inference service for segmentation masks.
//
// A bitmap is a sequence of `<decimal run length><delimiter>` tokens, e.g.
// "5Z3N2Z". Each delimiter is a single character whose bit value is given by
// an EncodingMap such as {"Z": 0, "N": 1}.
package rle

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"
)

// DefaultEncodingMap is the map used by the inference service when a
// response does not carry its own.
var DefaultEncodingMap = EncodingMap{"Z": 0, "N": 1}

// EncodingMap maps single-character delimiters to bit values.
type EncodingMap map[string]uint8

// Validate checks that every key is a single non-digit character and every
// value is 0 or 1.
func (m EncodingMap) Validate() error {
	if len(m) == 0 {
		return fmt.Errorf("%w: empty encoding map", ErrMalformedBitmap)
	}
	for k, v := range m {
		if utf8.RuneCountInString(k) != 1 {
			return fmt.Errorf("%w: delimiter %q is not a single character", ErrMalformedBitmap, k)
		}
		if r, _ := utf8.DecodeRuneInString(k); r >= '0' && r <= '9' {
			return fmt.Errorf("%w: delimiter %q is a digit", ErrMalformedBitmap, k)
		}
		if v > 1 {
			return fmt.Errorf("%w: delimiter %q maps to %d, want 0 or 1", ErrMalformedBitmap, k, v)
		}
	}
	return nil
}

// symbol returns the delimiter for bit b. When several delimiters share a
// value the smallest one wins so encoding is deterministic.
func (m EncodingMap) symbol(b uint8) (string, bool) {
	keys := make([]string, 0, len(m))
	for k, v := range m {
		if v == b {
			keys = append(keys, k)
		}
	}
	if len(keys) == 0 {
		return "", false
	}
	sort.Strings(keys)
	return keys[0], true
}

// Run is a single token of a bitmap: Len repetitions of Bit.
type Run struct {
	Len int
	Bit uint8
}

// Runs is a parsed bitmap.
type Runs []Run

// Len returns the number of bits the runs expand to, saturating at
// math.MaxInt.
func (rs Runs) Len() int {
	n := 0
	for _, r := range rs {
		if r.Len > math.MaxInt-n {
			return math.MaxInt
		}
		n += r.Len
	}
	return n
}

// MaxDecodedLen is the largest number of bits Decode expands a bitmap to.
const MaxDecodedLen = math.MaxInt32

// Expand returns the flat bit sequence. Callers check Len against
// MaxDecodedLen first; Decode does.
func (rs Runs) Expand() []uint8 {
	out := make([]uint8, 0, rs.Len())
	for _, r := range rs {
		for i := 0; i < r.Len; i++ {
			out = append(out, r.Bit)
		}
	}
	return out
}

// Parse splits bitmap into runs. The delimiters are exactly the keys of m.
func Parse(bitmap string, m EncodingMap) (Runs, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}

	var runs Runs
	start := 0
	for i, r := range bitmap {
		if r >= '0' && r <= '9' {
			continue
		}
		delim := string(r)
		bit, ok := m[delim]
		if !ok {
			return nil, fmt.Errorf("%w: unknown delimiter %q at offset %d", ErrMalformedBitmap, delim, i)
		}
		count := bitmap[start:i]
		if count == "" {
			return nil, fmt.Errorf("%w: missing run length before %q at offset %d", ErrMalformedBitmap, delim, i)
		}
		n, err := strconv.Atoi(count)
		if err != nil {
			return nil, fmt.Errorf("%w: run length %q at offset %d: %v", ErrMalformedBitmap, count, start, err)
		}
		runs = append(runs, Run{Len: n, Bit: bit})
		start = i + utf8.RuneLen(r)
	}
	if start != len(bitmap) {
		return nil, fmt.Errorf("%w: trailing run length %q has no delimiter", ErrMalformedBitmap, bitmap[start:])
	}

	return runs, nil
}

// Decode returns the flat bit sequence encoded by bitmap. An empty bitmap
// decodes to an empty sequence. Bitmaps expanding to more than
// MaxDecodedLen bits are malformed.
func Decode(bitmap string, m EncodingMap) ([]uint8, error) {
	runs, err := Parse(bitmap, m)
	if err != nil {
		return nil, err
	}
	if n := runs.Len(); n > MaxDecodedLen {
		return nil, fmt.Errorf("%w: bitmap expands to more than %d bits", ErrMalformedBitmap, MaxDecodedLen)
	}
	return runs.Expand(), nil
}

// Encode is the inverse of Decode. Adjacent equal bits are merged into a
// single run.
func Encode(bits []uint8, m EncodingMap) (string, error) {
	if err := m.Validate(); err != nil {
		return "", err
	}

	var syms [2]string
	var found [2]bool
	syms[0], found[0] = m.symbol(0)
	syms[1], found[1] = m.symbol(1)

	var sb strings.Builder
	for i := 0; i < len(bits); {
		b := bits[i]
		if b > 1 {
			return "", fmt.Errorf("%w: value %d at index %d is not a bit", ErrMalformedBitmap, b, i)
		}
		if !found[b] {
			return "", fmt.Errorf("%w: no delimiter for bit %d", ErrMalformedBitmap, b)
		}
		sym := syms[b]
		j := i
		for j < len(bits) && bits[j] == b {
			j++
		}
		sb.WriteString(strconv.Itoa(j - i))
		sb.WriteString(sym)
		i = j
	}
	return sb.String(), nil
}
