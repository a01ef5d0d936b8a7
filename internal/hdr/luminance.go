package hdr

// Rec.2020 luma coefficients; identical to the Y row of the XYZ matrix.
const (
	lumaR = 0.262700
	lumaG = 0.677998
	lumaB = 0.059302
)

// Luminance writes per-pixel luminance in nits into dst, growing it when
// needed, and returns the slice.
func Luminance(frame *LinearFrame, dst []float64) []float64 {
	n := frame.Pixels()
	if cap(dst) < n {
		dst = make([]float64, n)
	}
	dst = dst[:n]
	r, g, b := frame.R[:n], frame.G[:n], frame.B[:n]
	for i := range dst {
		dst[i] = (lumaR*r[i] + lumaG*g[i] + lumaB*b[i]) * ReferenceWhiteNits
	}
	return dst
}

// PeakAverage returns the maximum and arithmetic mean of nits.
// Every sample counts towards the mean, including letterbox padding.
func PeakAverage(nits []float64) (peak, avg float64) {
	if len(nits) == 0 {
		return 0, 0
	}
	peak = nits[0]
	sum := 0.0
	for _, v := range nits {
		if v > peak {
			peak = v
		}
		sum += v
	}
	avg = sum / float64(len(nits))
	// Mean of values can exceed the max by an ulp.
	if avg > peak {
		avg = peak
	}
	return peak, avg
}
