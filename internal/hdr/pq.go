// Package hdr implements the per-frame HDR analysis: PQ linearisation,
// luminance extraction and gamut classification of decoded plane buffers.
package hdr

import (
	"fmt"
	"math"
)

// SMPTE ST 2084 (PQ) constants.
const (
	pqM1 = 2610.0 / 16384.0
	pqM2 = 2523.0 / 4096.0 * 128.0
	pqC1 = 3424.0 / 4096.0
	pqC2 = 2413.0 / 4096.0 * 32.0
	pqC3 = 2392.0 / 4096.0 * 32.0
)

// ReferenceWhiteNits is the absolute luminance of a linear PQ value of 1.0.
const ReferenceWhiteNits = 10000.0

// PQEOTF converts a normalised PQ code value (0-1) to linear light (0-1).
// The result is not clamped.
func PQEOTF(norm float64) float64 {
	v := math.Pow(math.Max(norm, 0), 1.0/pqM2)
	num := math.Max(v-pqC1, 0)
	if num == 0 {
		return 0
	}
	den := pqC2 - pqC3*v
	return math.Pow(num/den, 1.0/pqM1)
}

// PQInverse converts linear light (0-1) to a normalised PQ code value.
// Input is clamped to [1e-10, 1]; it is meant for axis labelling.
func PQInverse(linear float64) float64 {
	y := math.Min(math.Max(linear, 1e-10), 1.0)
	v := math.Pow(y, pqM1)
	return math.Pow((pqC1+pqC2*v)/(1+pqC3*v), pqM2)
}

// NitsToPQ maps absolute luminance to a PQ code value in [0,1].
func NitsToPQ(nits float64) float64 {
	return PQInverse(nits / ReferenceWhiteNits)
}

// PQTable holds the EOTF output for every integer code of a bit depth.
type PQTable struct {
	bitDepth int
	maxCode  uint16
	values   []float64
}

// NewPQTable precomputes PQEOTF(code / (2^bitDepth - 1)) for all codes.
func NewPQTable(bitDepth int) (*PQTable, error) {
	if bitDepth < 1 || bitDepth > 16 {
		return nil, fmt.Errorf("bit depth must be between 1 and 16, got %d", bitDepth)
	}
	maxCode := uint16((1 << bitDepth) - 1)
	values := make([]float64, int(maxCode)+1)
	for code := range values {
		values[code] = PQEOTF(float64(code) / float64(maxCode))
	}
	return &PQTable{bitDepth: bitDepth, maxCode: maxCode, values: values}, nil
}

// BitDepth returns the bit depth the table was built for.
func (t *PQTable) BitDepth() int {
	return t.bitDepth
}

// Lookup returns linear light for a sample. Codes above the maximum are
// saturated; upstream padding bits must be zero.
func (t *PQTable) Lookup(code uint16) float64 {
	if code > t.maxCode {
		code = t.maxCode
	}
	return t.values[code]
}

// Linearize converts a canonical plane buffer into linear light.
func (t *PQTable) Linearize(buf *PlaneBuffer) (*LinearFrame, error) {
	if buf.Order != OrderRGB {
		return nil, fmt.Errorf("linearize requires canonical RGB order, got %s", buf.Order)
	}
	if buf.BitDepth != t.bitDepth {
		return nil, fmt.Errorf("buffer bit depth %d does not match table bit depth %d", buf.BitDepth, t.bitDepth)
	}
	n := buf.Pixels()
	frame := newLinearFrame(buf.Width, buf.Height)
	for ch := range 3 {
		src := buf.Planes[ch][:n]
		dst := frame.plane(ch)
		for i, code := range src {
			dst[i] = t.Lookup(code)
		}
	}
	return frame, nil
}

// LinearFrame holds linear-light RGB samples in contiguous planes.
type LinearFrame struct {
	Width  int
	Height int
	R      []float64
	G      []float64
	B      []float64
}

func newLinearFrame(width, height int) *LinearFrame {
	n := width * height
	arena := make([]float64, 3*n)
	return &LinearFrame{
		Width:  width,
		Height: height,
		R:      arena[0:n:n],
		G:      arena[n : 2*n : 2*n],
		B:      arena[2*n : 3*n : 3*n],
	}
}

// NewLinearFrame builds a frame from existing planes of equal length.
func NewLinearFrame(width, height int, r, g, b []float64) (*LinearFrame, error) {
	n := width * height
	if len(r) != n || len(g) != n || len(b) != n {
		return nil, fmt.Errorf("%w: expected %d samples per plane", ErrFrameSize, n)
	}
	return &LinearFrame{Width: width, Height: height, R: r, G: g, B: b}, nil
}

// Pixels returns the number of pixels in the frame.
func (f *LinearFrame) Pixels() int {
	return len(f.R)
}

func (f *LinearFrame) plane(ch int) []float64 {
	switch ch {
	case 0:
		return f.R
	case 1:
		return f.G
	default:
		return f.B
	}
}
