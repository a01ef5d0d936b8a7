package hdr

import (
	"encoding/binary"
	"testing"
)

// newTestBuffer builds a plane buffer from explicit planes in storage order.
func newTestBuffer(t *testing.T, width, height int, order ChannelOrder, planes [3][]uint16) *PlaneBuffer {
	t.Helper()
	buf, err := DecodePlanes(encodePlanes(planes), width, height, 10, order)
	if err != nil {
		t.Fatalf("DecodePlanes() error = %v", err)
	}
	return buf
}

// encodePlanes serialises planes as little-endian 16-bit samples.
func encodePlanes(planes [3][]uint16) []byte {
	var out []byte
	for _, p := range planes {
		for _, v := range p {
			out = binary.LittleEndian.AppendUint16(out, v)
		}
	}
	return out
}

// uniformPlanes returns width*height copies of code in every plane.
func uniformPlanes(n int, r, g, b uint16) [3][]uint16 {
	var planes [3][]uint16
	for i, v := range []uint16{r, g, b} {
		planes[i] = make([]uint16, n)
		for j := range planes[i] {
			planes[i][j] = v
		}
	}
	return planes
}

// linearFromXY returns the linear Rec.2020 RGB with chromaticity (x, y) and
// relative luminance lum.
func linearFromXY(x, y, lum float64) (r, g, b float64) {
	bigX := x / y * lum
	bigZ := (1 - x - y) / y * lum
	inv := invert3(rec2020ToXYZ)
	r = inv[0][0]*bigX + inv[0][1]*lum + inv[0][2]*bigZ
	g = inv[1][0]*bigX + inv[1][1]*lum + inv[1][2]*bigZ
	b = inv[2][0]*bigX + inv[2][1]*lum + inv[2][2]*bigZ
	return r, g, b
}

func invert3(m [3][3]float64) [3][3]float64 {
	det := m[0][0]*(m[1][1]*m[2][2]-m[1][2]*m[2][1]) -
		m[0][1]*(m[1][0]*m[2][2]-m[1][2]*m[2][0]) +
		m[0][2]*(m[1][0]*m[2][1]-m[1][1]*m[2][0])
	return [3][3]float64{
		{
			(m[1][1]*m[2][2] - m[1][2]*m[2][1]) / det,
			(m[0][2]*m[2][1] - m[0][1]*m[2][2]) / det,
			(m[0][1]*m[1][2] - m[0][2]*m[1][1]) / det,
		},
		{
			(m[1][2]*m[2][0] - m[1][0]*m[2][2]) / det,
			(m[0][0]*m[2][2] - m[0][2]*m[2][0]) / det,
			(m[0][2]*m[1][0] - m[0][0]*m[1][2]) / det,
		},
		{
			(m[1][0]*m[2][1] - m[1][1]*m[2][0]) / det,
			(m[0][1]*m[2][0] - m[0][0]*m[2][1]) / det,
			(m[0][0]*m[1][1] - m[0][1]*m[1][0]) / det,
		},
	}
}

// uniformFrame returns a linear frame where every pixel is (r, g, b).
func uniformFrame(t *testing.T, n int, r, g, b float64) *LinearFrame {
	t.Helper()
	rs, gs, bs := make([]float64, n), make([]float64, n), make([]float64, n)
	for i := range n {
		rs[i], gs[i], bs[i] = r, g, b
	}
	frame, err := NewLinearFrame(n, 1, rs, gs, bs)
	if err != nil {
		t.Fatalf("NewLinearFrame() error = %v", err)
	}
	return frame
}
