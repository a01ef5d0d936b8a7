package report

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"math"
	"os"
	"strconv"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"golang.org/x/image/vector"

	"github.com/jmylchreest/hdrprobe/internal/hdr"
)

// Chart colours.
var (
	colourPeak     = color.RGBA{0xFF, 0x8C, 0x00, 0xFF}
	colourAvg      = color.RGBA{0x1E, 0x90, 0xFF, 0xFF}
	colour709      = color.RGBA{0xBB, 0xBB, 0xBB, 0xFF}
	colourP3       = color.RGBA{0xF4, 0xD0, 0x3F, 0xFF}
	colour2020     = color.RGBA{0xE7, 0x4C, 0x3C, 0xFF}
	colourAxis     = color.RGBA{0x33, 0x33, 0x33, 0xFF}
	colourGrid     = color.RGBA{0xDD, 0xDD, 0xDD, 0xFF}
	colourText     = color.Black
	colourBackdrop = color.White
)

// LuminanceTicks are the nits labelled on the PQ-scaled luminance axis.
var LuminanceTicks = []float64{0, 0.1, 1, 10, 50, 100, 203, 500, 1000, 4000, 10000}

// ChartOptions controls chart rendering.
type ChartOptions struct {
	Width     int
	Height    int
	Title     string
	LineWidth float32
}

// DefaultChartOptions returns a 1400x1000 layout.
func DefaultChartOptions() ChartOptions {
	return ChartOptions{Width: 1400, Height: 1000, LineWidth: 1.2}
}

// panel is a plotting area in image coordinates.
type panel struct {
	rect       image.Rectangle
	xMin, xMax float64
}

func (p panel) x(t float64) float32 {
	return float32(float64(p.rect.Min.X) + (t-p.xMin)/(p.xMax-p.xMin)*float64(p.rect.Dx()))
}

// y maps a value in [0,1] to the panel, 1 at the top.
func (p panel) y(v float64) float32 {
	return float32(float64(p.rect.Max.Y) - v*float64(p.rect.Dy()))
}

// RenderChart draws luminance (top, PQ axis) and stacked gamut ratios
// (bottom) against time.
func RenderChart(s *hdr.Series, opts ChartOptions) (*image.RGBA, error) {
	if s.Len() == 0 {
		return nil, ErrEmptySeries
	}
	if opts.Width < 200 || opts.Height < 200 {
		return nil, fmt.Errorf("chart size %dx%d too small", opts.Width, opts.Height)
	}
	if opts.LineWidth <= 0 {
		opts.LineWidth = 1
	}

	img := image.NewRGBA(image.Rect(0, 0, opts.Width, opts.Height))
	draw.Draw(img, img.Bounds(), image.NewUniform(colourBackdrop), image.Point{}, draw.Src)

	const (
		left, right, top, bottom = 80, 30, 50, 60
		gap                      = 12
	)
	xMin, xMax := s.At(0).Time, s.At(s.Len()-1).Time
	if xMax <= xMin {
		xMax = xMin + 1
	}
	plotH := (opts.Height - top - bottom - gap) / 2
	lum := panel{rect: image.Rect(left, top, opts.Width-right, top+plotH), xMin: xMin, xMax: xMax}
	gam := panel{rect: image.Rect(left, top+plotH+gap, opts.Width-right, top+2*plotH+gap), xMin: xMin, xMax: xMax}

	drawText(img, opts.Title, opts.Width/2-measure(opts.Title)/2, 30)

	// Luminance panel.
	for _, nits := range LuminanceTicks {
		y := int(lum.y(hdr.NitsToPQ(nits)))
		hline(img, lum.rect.Min.X, lum.rect.Max.X, y, colourGrid)
		label := strconv.FormatFloat(nits, 'f', -1, 64)
		drawText(img, label, lum.rect.Min.X-8-measure(label), y+4)
	}
	strokeSeries(img, lum, s, opts.LineWidth, colourPeak, func(m hdr.FrameMetrics) float64 { return hdr.NitsToPQ(m.PeakNits) })
	strokeSeries(img, lum, s, opts.LineWidth, colourAvg, func(m hdr.FrameMetrics) float64 { return hdr.NitsToPQ(m.AvgNits) })
	drawText(img, "Brightness (Nits)", lum.rect.Min.X+6, lum.rect.Min.Y+16)
	legend(img, lum.rect.Max.X-170, lum.rect.Min.Y+10, []legendEntry{
		{"Peak (Nits)", colourPeak},
		{"Avg (Nits)", colourAvg},
	})
	frame(img, lum.rect)

	// Gamut panel, stacked bottom-up: 709, P3, 2020.
	fillBand(img, gam, s, colour709,
		func(hdr.FrameMetrics) float64 { return 0 },
		func(m hdr.FrameMetrics) float64 { return m.Ratio709 })
	fillBand(img, gam, s, colourP3,
		func(m hdr.FrameMetrics) float64 { return m.Ratio709 },
		func(m hdr.FrameMetrics) float64 { return m.Ratio709 + m.RatioP3 })
	fillBand(img, gam, s, colour2020,
		func(m hdr.FrameMetrics) float64 { return m.Ratio709 + m.RatioP3 },
		func(m hdr.FrameMetrics) float64 { return m.Ratio709 + m.RatioP3 + m.Ratio2020 })
	for _, v := range []float64{0, 0.25, 0.5, 0.75, 1} {
		y := int(gam.y(v))
		label := strconv.FormatFloat(v, 'f', -1, 64)
		drawText(img, label, gam.rect.Min.X-8-measure(label), y+4)
	}
	drawText(img, "Gamut Ratio", gam.rect.Min.X+6, gam.rect.Min.Y+16)
	legend(img, gam.rect.Min.X+10, gam.rect.Max.Y-60, []legendEntry{
		{"Rec.709", colour709},
		{"P3 (outside 709)", colourP3},
		{"Rec.2020 (outside P3)", colour2020},
	})
	frame(img, gam.rect)

	// Shared time axis.
	step := niceStep((xMax - xMin) / 10)
	for t := math.Ceil(xMin/step) * step; t <= xMax+step*1e-9; t += step {
		x := int(gam.x(t))
		vline(img, x, gam.rect.Max.Y, gam.rect.Max.Y+5, colourAxis)
		label := strconv.FormatFloat(t, 'f', -1, 64)
		drawText(img, label, x-measure(label)/2, gam.rect.Max.Y+20)
	}
	drawText(img, "Time (s)", opts.Width/2-measure("Time (s)")/2, opts.Height-15)

	return img, nil
}

// SavePNG encodes img to path.
func SavePNG(path string, img image.Image) error {
	f, err := os.Create(path) // #nosec G304 - User-specified output path
	if err != nil {
		return fmt.Errorf("failed to create image file: %w", err)
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return fmt.Errorf("failed to encode PNG: %w", err)
	}
	return f.Close()
}

// strokeSeries draws a polyline of value(m) in [0,1] for every record.
func strokeSeries(dst *image.RGBA, p panel, s *hdr.Series, width float32, c color.Color, value func(hdr.FrameMetrics) float64) {
	b := dst.Bounds()
	z := vector.NewRasterizer(b.Dx(), b.Dy())
	half := width / 2
	if s.Len() == 1 {
		m := s.At(0)
		x, y := p.x(m.Time), p.y(value(m))
		addQuad(z, x-half, y-half, x+half, y-half, x+half, y+half, x-half, y+half)
	}
	for i := 1; i < s.Len(); i++ {
		a, bm := s.At(i-1), s.At(i)
		x0, y0 := p.x(a.Time), p.y(value(a))
		x1, y1 := p.x(bm.Time), p.y(value(bm))
		dx, dy := x1-x0, y1-y0
		l := float32(math.Hypot(float64(dx), float64(dy)))
		if l == 0 {
			continue
		}
		// Left normal scaled to half the line width.
		nx, ny := -dy/l*half, dx/l*half
		addQuad(z, x0+nx, y0+ny, x1+nx, y1+ny, x1-nx, y1-ny, x0-nx, y0-ny)
	}
	z.Draw(dst, b, image.NewUniform(c), image.Point{})
}

func addQuad(z *vector.Rasterizer, ax, ay, bx, by, cx, cy, dx, dy float32) {
	z.MoveTo(ax, ay)
	z.LineTo(bx, by)
	z.LineTo(cx, cy)
	z.LineTo(dx, dy)
	z.ClosePath()
}

// fillBand fills the area between lower(m) and upper(m).
func fillBand(dst *image.RGBA, p panel, s *hdr.Series, c color.Color, lower, upper func(hdr.FrameMetrics) float64) {
	b := dst.Bounds()
	z := vector.NewRasterizer(b.Dx(), b.Dy())
	n := s.Len()
	if n == 1 {
		m := s.At(0)
		x0, x1 := float32(p.rect.Min.X), float32(p.rect.Max.X)
		addQuad(z, x0, p.y(upper(m)), x1, p.y(upper(m)), x1, p.y(lower(m)), x0, p.y(lower(m)))
		z.Draw(dst, b, image.NewUniform(c), image.Point{})
		return
	}
	first := s.At(0)
	z.MoveTo(p.x(first.Time), p.y(upper(first)))
	for i := 1; i < n; i++ {
		m := s.At(i)
		z.LineTo(p.x(m.Time), p.y(upper(m)))
	}
	for i := n - 1; i >= 0; i-- {
		m := s.At(i)
		z.LineTo(p.x(m.Time), p.y(lower(m)))
	}
	z.ClosePath()
	z.Draw(dst, b, image.NewUniform(c), image.Point{})
}

type legendEntry struct {
	label  string
	colour color.Color
}

func legend(dst *image.RGBA, x, y int, entries []legendEntry) {
	for i, e := range entries {
		row := y + i*18
		draw.Draw(dst, image.Rect(x, row, x+14, row+10), image.NewUniform(e.colour), image.Point{}, draw.Src)
		drawText(dst, e.label, x+20, row+10)
	}
}

func frame(dst *image.RGBA, r image.Rectangle) {
	hline(dst, r.Min.X, r.Max.X, r.Min.Y, colourAxis)
	hline(dst, r.Min.X, r.Max.X, r.Max.Y, colourAxis)
	vline(dst, r.Min.X, r.Min.Y, r.Max.Y, colourAxis)
	vline(dst, r.Max.X, r.Min.Y, r.Max.Y, colourAxis)
}

func hline(dst *image.RGBA, x0, x1, y int, c color.Color) {
	draw.Draw(dst, image.Rect(x0, y, x1+1, y+1), image.NewUniform(c), image.Point{}, draw.Src)
}

func vline(dst *image.RGBA, x, y0, y1 int, c color.Color) {
	draw.Draw(dst, image.Rect(x, y0, x+1, y1+1), image.NewUniform(c), image.Point{}, draw.Src)
}

func drawText(dst *image.RGBA, s string, x, y int) {
	d := font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(colourText),
		Face: basicfont.Face7x13,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(s)
}

func measure(s string) int {
	return font.MeasureString(basicfont.Face7x13, s).Ceil()
}

// niceStep rounds raw up to 1, 2 or 5 times a power of ten.
func niceStep(raw float64) float64 {
	if raw <= 0 || math.IsNaN(raw) || math.IsInf(raw, 0) {
		return 1
	}
	exp := math.Pow(10, math.Floor(math.Log10(raw)))
	switch f := raw / exp; {
	case f <= 1:
		return exp
	case f <= 2:
		return 2 * exp
	case f <= 5:
		return 5 * exp
	default:
		return 10 * exp
	}
}
