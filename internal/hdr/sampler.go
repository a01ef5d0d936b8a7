package hdr

import "fmt"

// Decimate keeps every stride-th sample along both axes, starting at 0.
// No filtering is applied, so sample values pass through unchanged.
func Decimate(buf *PlaneBuffer, stride int) (*PlaneBuffer, error) {
	if stride < 1 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidStride, stride)
	}
	if stride == 1 {
		return buf, nil
	}

	w := (buf.Width + stride - 1) / stride
	h := (buf.Height + stride - 1) / stride
	n := w * h
	arena := make([]uint16, 3*n)
	out := &PlaneBuffer{
		Width:    w,
		Height:   h,
		BitDepth: buf.BitDepth,
		Order:    buf.Order,
		Planes:   [3][]uint16{arena[0:n:n], arena[n : 2*n : 2*n], arena[2*n : 3*n : 3*n]},
	}
	for p := range 3 {
		src, dst := buf.Planes[p], out.Planes[p]
		i := 0
		for y := 0; y < buf.Height; y += stride {
			row := src[y*buf.Width : (y+1)*buf.Width]
			for x := 0; x < buf.Width; x += stride {
				dst[i] = row[x]
				i++
			}
		}
	}
	return out, nil
}
