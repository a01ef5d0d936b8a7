package hdr

import (
	"fmt"
	"math"
)

// GamutClass is the gamut bucket a pixel is assigned to.
type GamutClass uint8

const (
	// GamutRec709 covers pixels inside Rec.709 and all gated pixels.
	GamutRec709 GamutClass = iota
	// GamutP3 covers pixels inside DCI-P3 but outside Rec.709.
	GamutP3
	// GamutRec2020 covers everything outside DCI-P3.
	GamutRec2020
)

// String returns the gamut name.
func (c GamutClass) String() string {
	switch c {
	case GamutRec709:
		return "Rec.709"
	case GamutP3:
		return "P3"
	case GamutRec2020:
		return "Rec.2020"
	default:
		return fmt.Sprintf("GamutClass(%d)", uint8(c))
	}
}

// Rec.2020 linear RGB to CIE XYZ (D65).
var rec2020ToXYZ = [3][3]float64{
	{0.636958, 0.144617, 0.168881},
	{0.262700, 0.677998, 0.059302},
	{0.049461, 0.028665, 1.092973},
}

const (
	// energyEpsilon replaces a zero X+Y+Z before perspective division.
	energyEpsilon = 1e-6
	// denomEpsilon floors a degenerate triangle denominator.
	denomEpsilon = 1e-12
	// containTolerance absorbs float round-off on triangle edges.
	containTolerance = 1e-9
)

// Point is a CIE xy chromaticity coordinate.
type Point struct {
	X, Y float64
}

// Triangle is a gamut triangle with its barycentric terms precomputed.
type Triangle struct {
	A, B, C Point

	v0, v1   Point
	dot00    float64
	dot01    float64
	dot11    float64
	invDenom float64
}

// NewTriangle precomputes the barycentric denominator for a, b, c.
func NewTriangle(a, b, c Point) Triangle {
	t := Triangle{A: a, B: b, C: c}
	t.v0 = Point{c.X - a.X, c.Y - a.Y}
	t.v1 = Point{b.X - a.X, b.Y - a.Y}
	t.dot00 = t.v0.X*t.v0.X + t.v0.Y*t.v0.Y
	t.dot01 = t.v0.X*t.v1.X + t.v0.Y*t.v1.Y
	t.dot11 = t.v1.X*t.v1.X + t.v1.Y*t.v1.Y
	denom := t.dot00*t.dot11 - t.dot01*t.dot01
	if math.Abs(denom) < denomEpsilon {
		denom = math.Copysign(denomEpsilon, denom)
	}
	t.invDenom = 1 / denom
	return t
}

// Contains reports whether (x, y) lies inside or on the triangle: both
// barycentric coordinates u, v >= 0 and u+v <= 1, each bound relaxed by
// 1e-9 so that points on an edge or vertex stay inside under round-off.
func (t *Triangle) Contains(x, y float64) bool {
	v2x, v2y := x-t.A.X, y-t.A.Y
	dot02 := t.v0.X*v2x + t.v0.Y*v2y
	dot12 := t.v1.X*v2x + t.v1.Y*v2y
	u := (t.dot11*dot02 - t.dot01*dot12) * t.invDenom
	v := (t.dot00*dot12 - t.dot01*dot02) * t.invDenom
	return u >= -containTolerance && v >= -containTolerance && u+v <= 1+containTolerance
}

var (
	rec709Triangle = NewTriangle(Point{0.64, 0.33}, Point{0.30, 0.60}, Point{0.15, 0.06})
	p3Triangle     = NewTriangle(Point{0.68, 0.32}, Point{0.265, 0.69}, Point{0.15, 0.06})
)

// Rec709Gamut returns the Rec.709 primaries triangle.
func Rec709Gamut() Triangle { return rec709Triangle }

// P3Gamut returns the DCI-P3 primaries triangle.
func P3Gamut() Triangle { return p3Triangle }

// GamutCounts is the number of pixels in each gamut bucket.
type GamutCounts struct {
	Rec709  int
	P3      int
	Rec2020 int
}

// Total returns the number of classified pixels.
func (c GamutCounts) Total() int {
	return c.Rec709 + c.P3 + c.Rec2020
}

// Ratios returns the area fraction of each bucket. An empty frame is
// reported as fully Rec.709.
func (c GamutCounts) Ratios() (r709, rp3, r2020 float64) {
	total := c.Total()
	if total == 0 {
		return 1, 0, 0
	}
	t := float64(total)
	return float64(c.Rec709) / t, float64(c.P3) / t, float64(c.Rec2020) / t
}

func (c *GamutCounts) add(class GamutClass) {
	switch class {
	case GamutP3:
		c.P3++
	case GamutRec2020:
		c.Rec2020++
	default:
		c.Rec709++
	}
}

// Classifier buckets linear Rec.2020 pixels into gamut classes.
//
// Pixels darker than BrightnessGateNits, or whose X+Y+Z does not exceed
// EnergyFloor, have unreliable chromaticity and are counted as Rec.709.
type Classifier struct {
	BrightnessGateNits float64
	EnergyFloor        float64
}

// ClassifyChromaticity assigns a chromaticity to the first gamut containing
// it, checking Rec.709 before DCI-P3.
func ClassifyChromaticity(x, y float64) GamutClass {
	switch {
	case rec709Triangle.Contains(x, y):
		return GamutRec709
	case p3Triangle.Contains(x, y):
		return GamutP3
	default:
		return GamutRec2020
	}
}

// ClassifyPixel classifies one linear RGB pixel with known luminance.
func (c Classifier) ClassifyPixel(r, g, b, nits float64) GamutClass {
	if nits < c.BrightnessGateNits {
		return GamutRec709
	}
	m := &rec2020ToXYZ
	x := m[0][0]*r + m[0][1]*g + m[0][2]*b
	y := m[1][0]*r + m[1][1]*g + m[1][2]*b
	z := m[2][0]*r + m[2][1]*g + m[2][2]*b
	s := x + y + z
	if !(s > c.EnergyFloor) {
		return GamutRec709
	}
	if s == 0 {
		s = energyEpsilon
	}
	return ClassifyChromaticity(x/s, y/s)
}

// Count classifies every pixel of frame and returns the bucket sizes.
// nits must hold the frame's per-pixel luminance.
func (c Classifier) Count(frame *LinearFrame, nits []float64) GamutCounts {
	var counts GamutCounts
	n := frame.Pixels()
	r, g, b, l := frame.R[:n], frame.G[:n], frame.B[:n], nits[:n]
	for i := range l {
		counts.add(c.ClassifyPixel(r[i], g[i], b[i], l[i]))
	}
	return counts
}

// CountClasses tallies per-pixel classes as produced by ClassifyInto.
func CountClasses(classes []GamutClass) GamutCounts {
	var counts GamutCounts
	for _, class := range classes {
		counts.add(class)
	}
	return counts
}

// ClassifyInto writes the class of each pixel into dst, growing it when
// needed, and returns the slice.
func (c Classifier) ClassifyInto(frame *LinearFrame, nits []float64, dst []GamutClass) []GamutClass {
	n := frame.Pixels()
	if cap(dst) < n {
		dst = make([]GamutClass, n)
	}
	dst = dst[:n]
	r, g, b, l := frame.R[:n], frame.G[:n], frame.B[:n], nits[:n]
	for i := range dst {
		dst[i] = c.ClassifyPixel(r[i], g[i], b[i], l[i])
	}
	return dst
}

// Chromaticity returns the xy coordinate of a linear Rec.2020 pixel.
// ok is false when the pixel has no energy.
func Chromaticity(r, g, b float64) (p Point, ok bool) {
	m := &rec2020ToXYZ
	x := m[0][0]*r + m[0][1]*g + m[0][2]*b
	y := m[1][0]*r + m[1][1]*g + m[1][2]*b
	z := m[2][0]*r + m[2][1]*g + m[2][2]*b
	s := x + y + z
	if s == 0 {
		return Point{}, false
	}
	return Point{X: x / s, Y: y / s}, true
}
