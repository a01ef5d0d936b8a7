package hdr

import (
	"math"
	"math/rand/v2"
	"testing"
)

func testConfig(width, height, stride int) Config {
	config := DefaultConfig()
	config.Width = width
	config.Height = height
	config.Stride = stride
	return config
}

func newTestAnalyser(t *testing.T, config Config) *Analyser {
	t.Helper()
	a, err := NewAnalyser(config)
	if err != nil {
		t.Fatalf("NewAnalyser() error = %v", err)
	}
	return a
}

func randomRaw(rng *rand.Rand, width, height int) []byte {
	var planes [3][]uint16
	for p := range planes {
		planes[p] = make([]uint16, width*height)
		for i := range planes[p] {
			planes[p][i] = uint16(rng.IntN(1024))
		}
	}
	return encodePlanes(planes)
}

func TestAnalyseBlackFrame(t *testing.T) {
	a := newTestAnalyser(t, testConfig(8, 4, 1))
	res, err := a.AnalyseRaw(make([]byte, FrameBytes(8, 4)))
	if err != nil {
		t.Fatalf("AnalyseRaw() error = %v", err)
	}
	m := res.Metrics(0)
	if m.PeakNits != 0 || m.AvgNits != 0 {
		t.Errorf("black frame peak/avg = %g/%g, want 0/0", m.PeakNits, m.AvgNits)
	}
	if m.Ratio709 != 1 || m.RatioP3 != 0 || m.Ratio2020 != 0 {
		t.Errorf("black frame ratios = (%g, %g, %g), want (1, 0, 0)", m.Ratio709, m.RatioP3, m.Ratio2020)
	}
}

func TestAnalyseWhiteFrame(t *testing.T) {
	a := newTestAnalyser(t, testConfig(2, 2, 1))
	buf := newTestBuffer(t, 2, 2, OrderGBR, uniformPlanes(4, 1023, 1023, 1023))
	res, err := a.Analyse(buf)
	if err != nil {
		t.Fatalf("Analyse() error = %v", err)
	}
	if math.Abs(res.PeakNits-10000) > 1e-6 || math.Abs(res.AvgNits-10000) > 1e-6 {
		t.Errorf("white frame peak/avg = %g/%g, want 10000/10000", res.PeakNits, res.AvgNits)
	}
	if res.Counts.Rec709 != 4 {
		t.Errorf("white frame counts = %+v, want all Rec.709", res.Counts)
	}
}

func TestAnalyseInvariantsOnRandomFrames(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	for _, stride := range []int{1, 2} {
		a := newTestAnalyser(t, testConfig(16, 9, stride))
		for range 20 {
			res, err := a.AnalyseRaw(randomRaw(rng, 16, 9))
			if err != nil {
				t.Fatalf("AnalyseRaw() error = %v", err)
			}
			m := res.Metrics(0)
			if sum := m.Ratio709 + m.RatioP3 + m.Ratio2020; math.Abs(sum-1) > 1e-6 {
				t.Errorf("stride %d: ratios sum to %g, want 1", stride, sum)
			}
			if m.Ratio709 < 0 || m.RatioP3 < 0 || m.Ratio2020 < 0 {
				t.Errorf("stride %d: negative ratio in %+v", stride, m)
			}
			if !(m.PeakNits >= m.AvgNits && m.AvgNits >= 0) {
				t.Errorf("stride %d: peak %g, avg %g violate peak >= avg >= 0", stride, m.PeakNits, m.AvgNits)
			}
		}
	}
}

func TestAnalyseDecimatedPeakNotAboveFull(t *testing.T) {
	rng := rand.New(rand.NewPCG(3, 4))
	full := newTestAnalyser(t, testConfig(15, 7, 1))
	half := newTestAnalyser(t, testConfig(15, 7, 2))
	for range 10 {
		raw := randomRaw(rng, 15, 7)
		fr, err := full.AnalyseRaw(raw)
		if err != nil {
			t.Fatalf("full AnalyseRaw() error = %v", err)
		}
		hr, err := half.AnalyseRaw(raw)
		if err != nil {
			t.Fatalf("half AnalyseRaw() error = %v", err)
		}
		if hr.PeakNits > fr.PeakNits {
			t.Errorf("decimated peak %g above full peak %g", hr.PeakNits, fr.PeakNits)
		}
		if got, want := hr.Counts.Total(), 8*4; got != want {
			t.Errorf("decimated pixel count = %d, want %d", got, want)
		}
	}
}

func TestAnalyseDecimationDropsOddSamples(t *testing.T) {
	// One bright pixel at (1,1) is skipped by stride 2.
	planes := uniformPlanes(16, 0, 0, 0)
	for p := range planes {
		planes[p][1*4+1] = 1023
	}
	raw := encodePlanes(planes)

	full, err := newTestAnalyser(t, testConfig(4, 4, 1)).AnalyseRaw(raw)
	if err != nil {
		t.Fatalf("AnalyseRaw() error = %v", err)
	}
	half, err := newTestAnalyser(t, testConfig(4, 4, 2)).AnalyseRaw(raw)
	if err != nil {
		t.Fatalf("AnalyseRaw() error = %v", err)
	}
	if full.PeakNits <= 0 {
		t.Errorf("full peak = %g, want > 0", full.PeakNits)
	}
	if half.PeakNits != 0 {
		t.Errorf("decimated peak = %g, want 0", half.PeakNits)
	}
}

func TestAnalyseRawWrongSize(t *testing.T) {
	a := newTestAnalyser(t, testConfig(4, 4, 1))
	if _, err := a.AnalyseRaw(make([]byte, 7)); err == nil {
		t.Error("AnalyseRaw() with short buffer expected error")
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "default", mutate: func(*Config) {}},
		{name: "zero width", mutate: func(c *Config) { c.Width = 0 }, wantErr: true},
		{name: "bit depth", mutate: func(c *Config) { c.BitDepth = 20 }, wantErr: true},
		{name: "stride", mutate: func(c *Config) { c.Stride = 0 }, wantErr: true},
		{name: "order", mutate: func(c *Config) { c.Order = ChannelOrder{} }, wantErr: true},
		{name: "negative gate", mutate: func(c *Config) { c.BrightnessGateNits = -1 }, wantErr: true},
		{name: "negative floor", mutate: func(c *Config) { c.EnergyFloor = -0.1 }, wantErr: true},
		{name: "intended floor", mutate: func(c *Config) { c.EnergyFloor = 0.005 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := DefaultConfig()
			tt.mutate(&c)
			if err := c.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
