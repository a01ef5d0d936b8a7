package hdr

import (
	"math"
	"testing"
)

func TestTriangleContainsVertices(t *testing.T) {
	rec709 := Rec709Gamut()
	p3 := P3Gamut()
	for _, tri := range []Triangle{rec709, p3} {
		for _, v := range []Point{tri.A, tri.B, tri.C} {
			if !tri.Contains(v.X, v.Y) {
				t.Errorf("Contains(%v) = false, vertices are inside", v)
			}
		}
	}
}

func TestTriangleContainsEdgeTolerance(t *testing.T) {
	tri := Rec709Gamut()
	// Midpoint of the red-green edge, then pushed outward along the normal.
	mid := Point{(tri.A.X + tri.B.X) / 2, (tri.A.Y + tri.B.Y) / 2}
	normal := Point{tri.B.Y - tri.A.Y, tri.A.X - tri.B.X}

	tests := []struct {
		name  string
		scale float64
		want  bool
	}{
		{name: "on edge", scale: 0, want: true},
		{name: "within round-off", scale: 1e-12, want: true},
		{name: "just outside", scale: 1e-3, want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			x, y := mid.X+normal.X*tt.scale, mid.Y+normal.Y*tt.scale
			if got := tri.Contains(x, y); got != tt.want {
				t.Errorf("Contains(%g, %g) = %v, want %v", x, y, got, tt.want)
			}
		})
	}
}

func TestClassifyChromaticity(t *testing.T) {
	tests := []struct {
		name string
		p    Point
		want GamutClass
	}{
		{name: "D65 white", p: Point{0.3127, 0.3290}, want: GamutRec709},
		{name: "709 red primary", p: Point{0.64, 0.33}, want: GamutRec709},
		{name: "709 green primary", p: Point{0.30, 0.60}, want: GamutRec709},
		{name: "shared blue primary", p: Point{0.15, 0.06}, want: GamutRec709},
		{name: "between 709 and P3 red", p: Point{0.66, 0.32}, want: GamutP3},
		{name: "P3 green primary", p: Point{0.265, 0.69}, want: GamutP3},
		{name: "2020 green primary", p: Point{0.170, 0.797}, want: GamutRec2020},
		{name: "2020 red primary", p: Point{0.708, 0.292}, want: GamutRec2020},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ClassifyChromaticity(tt.p.X, tt.p.Y); got != tt.want {
				t.Errorf("ClassifyChromaticity(%v) = %s, want %s", tt.p, got, tt.want)
			}
		})
	}
}

func TestClassifierGates(t *testing.T) {
	wideR, wideG, wideB := linearFromXY(0.170, 0.797, 0.05)
	c := Classifier{BrightnessGateNits: 1.0}

	tests := []struct {
		name       string
		classifier Classifier
		r, g, b    float64
		nits       float64
		want       GamutClass
	}{
		{name: "bright wide gamut", classifier: c, r: wideR, g: wideG, b: wideB, nits: 500, want: GamutRec2020},
		{name: "dark wide gamut", classifier: c, r: wideR, g: wideG, b: wideB, nits: 0.99, want: GamutRec709},
		{name: "gate is inclusive", classifier: c, r: wideR, g: wideG, b: wideB, nits: 1.0, want: GamutRec2020},
		{name: "zero energy", classifier: Classifier{}, r: 0, g: 0, b: 0, nits: 0, want: GamutRec709},
		{
			name:       "below energy floor",
			classifier: Classifier{BrightnessGateNits: 1.0, EnergyFloor: 1.0},
			r:          wideR, g: wideG, b: wideB, nits: 500,
			want: GamutRec709,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.classifier.ClassifyPixel(tt.r, tt.g, tt.b, tt.nits); got != tt.want {
				t.Errorf("ClassifyPixel() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestCountRec709RedFrame(t *testing.T) {
	r, g, b := linearFromXY(0.64, 0.33, 0.05)
	frame := uniformFrame(t, 16, r, g, b)
	nits := Luminance(frame, nil)
	if nits[0] < 1 {
		t.Fatalf("test pixel luminance = %g nits, want >= 1", nits[0])
	}

	counts := Classifier{BrightnessGateNits: 1.0}.Count(frame, nits)
	r709, rp3, r2020 := counts.Ratios()
	if r709 != 1 || rp3 != 0 || r2020 != 0 {
		t.Errorf("Ratios() = (%g, %g, %g), want (1, 0, 0)", r709, rp3, r2020)
	}
}

func TestCountP3ExclusiveFrame(t *testing.T) {
	r, g, b := linearFromXY(0.66, 0.32, 0.05)
	frame := uniformFrame(t, 9, r, g, b)
	nits := Luminance(frame, nil)

	counts := Classifier{BrightnessGateNits: 1.0}.Count(frame, nits)
	if counts.P3 != 9 || counts.Total() != 9 {
		t.Errorf("Count() = %+v, want all 9 pixels in P3", counts)
	}
}

func TestCountPartitionsMixedFrame(t *testing.T) {
	r0, g0, b0 := linearFromXY(0.3127, 0.3290, 0.02) // white
	r1, g1, b1 := linearFromXY(0.66, 0.32, 0.02)     // P3
	r2, g2, b2 := linearFromXY(0.170, 0.797, 0.02)   // 2020
	r3, g3, b3 := linearFromXY(0.170, 0.797, 1e-6)   // dark 2020
	frame, err := NewLinearFrame(4, 1,
		[]float64{r0, r1, r2, r3},
		[]float64{g0, g1, g2, g3},
		[]float64{b0, b1, b2, b3},
	)
	if err != nil {
		t.Fatalf("NewLinearFrame() error = %v", err)
	}
	nits := Luminance(frame, nil)
	c := Classifier{BrightnessGateNits: 1.0}

	counts := c.Count(frame, nits)
	want := GamutCounts{Rec709: 2, P3: 1, Rec2020: 1}
	if counts != want {
		t.Errorf("Count() = %+v, want %+v", counts, want)
	}

	classes := c.ClassifyInto(frame, nits, nil)
	wantClasses := []GamutClass{GamutRec709, GamutP3, GamutRec2020, GamutRec709}
	for i, w := range wantClasses {
		if classes[i] != w {
			t.Errorf("ClassifyInto()[%d] = %s, want %s", i, classes[i], w)
		}
	}
	if got := CountClasses(classes); got != counts {
		t.Errorf("CountClasses() = %+v, want %+v", got, counts)
	}

	r709, rp3, r2020 := counts.Ratios()
	if math.Abs(r709+rp3+r2020-1) > 1e-12 {
		t.Errorf("ratios sum to %g, want 1", r709+rp3+r2020)
	}
}

func TestEmptyCountsRatios(t *testing.T) {
	r709, rp3, r2020 := GamutCounts{}.Ratios()
	if r709 != 1 || rp3 != 0 || r2020 != 0 {
		t.Errorf("Ratios() = (%g, %g, %g), want (1, 0, 0)", r709, rp3, r2020)
	}
}

func TestChromaticity(t *testing.T) {
	p, ok := Chromaticity(1, 1, 1)
	if !ok {
		t.Fatal("Chromaticity(1,1,1) ok = false")
	}
	// Equal-energy Rec.2020 RGB is D65 white.
	if math.Abs(p.X-0.3127) > 1e-3 || math.Abs(p.Y-0.3290) > 1e-3 {
		t.Errorf("Chromaticity(1,1,1) = %v, want about D65", p)
	}
	if _, ok := Chromaticity(0, 0, 0); ok {
		t.Error("Chromaticity(0,0,0) ok = true, want false")
	}
}

func TestGamutClassString(t *testing.T) {
	if GamutP3.String() != "P3" || GamutRec2020.String() != "Rec.2020" || GamutRec709.String() != "Rec.709" {
		t.Error("unexpected GamutClass names")
	}
}
