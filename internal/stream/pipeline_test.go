package stream

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/jmylchreest/hdrprobe/internal/hdr"
)

const (
	testWidth  = 4
	testHeight = 2
)

func newTestAnalyser(t *testing.T) *hdr.Analyser {
	t.Helper()
	config := hdr.DefaultConfig()
	config.Width = testWidth
	config.Height = testHeight
	a, err := hdr.NewAnalyser(config)
	if err != nil {
		t.Fatalf("NewAnalyser() error = %v", err)
	}
	return a
}

// grayFrame returns a raw frame with every sample set to code.
func grayFrame(code uint16) []byte {
	n := testWidth * testHeight * 3
	out := make([]byte, 0, n*2)
	for range n {
		out = binary.LittleEndian.AppendUint16(out, code)
	}
	return out
}

func grayStream(codes ...uint16) []byte {
	var buf bytes.Buffer
	for _, c := range codes {
		buf.Write(grayFrame(c))
	}
	return buf.Bytes()
}

func TestRunPreservesOrderAndTimestamps(t *testing.T) {
	a := newTestAnalyser(t)
	p, err := New(a, 0.5, WithWorkers(3))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	series, err := p.Run(context.Background(), bytes.NewReader(grayStream(200, 600, 400)))
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if series.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", series.Len())
	}

	wantPeaks := []float64{
		hdr.PQEOTF(200.0/1023) * hdr.ReferenceWhiteNits,
		hdr.PQEOTF(600.0/1023) * hdr.ReferenceWhiteNits,
		hdr.PQEOTF(400.0/1023) * hdr.ReferenceWhiteNits,
	}
	for i, m := range series.All() {
		if want := float64(i) * 0.5; m.Time != want {
			t.Errorf("record %d Time = %g, want %g", i, m.Time, want)
		}
		if diff := m.PeakNits - wantPeaks[i]; diff > 1e-6 || diff < -1e-6 {
			t.Errorf("record %d PeakNits = %g, want %g", i, m.PeakNits, wantPeaks[i])
		}
	}
}

func TestRunManyFramesManyWorkers(t *testing.T) {
	codes := make([]uint16, 64)
	for i := range codes {
		codes[i] = uint16(10 * (i + 1))
	}
	p, err := New(newTestAnalyser(t), 1, WithWorkers(8))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	var order []int
	p.onFrame = func(index int, _ hdr.FrameMetrics) { order = append(order, index) }

	series, err := p.Run(context.Background(), bytes.NewReader(grayStream(codes...)))
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if series.Len() != len(codes) {
		t.Fatalf("Len() = %d, want %d", series.Len(), len(codes))
	}
	for i := 1; i < series.Len(); i++ {
		if series.At(i).PeakNits <= series.At(i-1).PeakNits {
			t.Errorf("record %d out of order: peak %g after %g", i, series.At(i).PeakNits, series.At(i-1).PeakNits)
		}
	}
	for i, idx := range order {
		if idx != i {
			t.Fatalf("callback %d received index %d", i, idx)
		}
	}
}

func TestRunDiscardsPartialFrame(t *testing.T) {
	data := grayStream(100, 200)
	data = append(data, grayFrame(300)[:7]...)

	p, err := New(newTestAnalyser(t), 1, WithWorkers(1))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	series, err := p.Run(context.Background(), bytes.NewReader(data))
	if err != nil {
		t.Fatalf("Run() error = %v, want nil for truncated stream", err)
	}
	if series.Len() != 2 {
		t.Errorf("Len() = %d, want 2", series.Len())
	}
}

func TestRunEmptyStream(t *testing.T) {
	p, err := New(newTestAnalyser(t), 1)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	series, err := p.Run(context.Background(), bytes.NewReader(nil))
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if series.Len() != 0 {
		t.Errorf("Len() = %d, want 0", series.Len())
	}
}

type failingReader struct {
	r   io.Reader
	err error
}

func (f *failingReader) Read(p []byte) (int, error) {
	n, err := f.r.Read(p)
	if errors.Is(err, io.EOF) {
		return n, f.err
	}
	return n, err
}

func TestRunReadError(t *testing.T) {
	boom := errors.New("decoder crashed")
	r := &failingReader{r: bytes.NewReader(grayStream(100)), err: boom}

	p, err := New(newTestAnalyser(t), 1, WithWorkers(2))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	series, err := p.Run(context.Background(), r)
	if !errors.Is(err, boom) {
		t.Errorf("Run() error = %v, want %v", err, boom)
	}
	if series.Len() != 1 {
		t.Errorf("Len() = %d, want 1", series.Len())
	}
}

func TestRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p, err := New(newTestAnalyser(t), 1, WithWorkers(2))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	_, err = p.Run(ctx, bytes.NewReader(grayStream(1, 2, 3, 4)))
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Run() error = %v, want context.Canceled", err)
	}
}

func TestRunCancelledWhileReadBlocked(t *testing.T) {
	pr, pw := io.Pipe()
	t.Cleanup(func() { pw.Close() })

	p, err := New(newTestAnalyser(t), 1, WithWorkers(2))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	type outcome struct {
		series *hdr.Series
		err    error
	}
	done := make(chan outcome, 1)
	go func() {
		series, err := p.Run(ctx, pr)
		done <- outcome{series, err}
	}()

	// One complete frame, then the writer goes idle with the pipe open.
	if _, err := pw.Write(grayFrame(300)); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case got := <-done:
		if !errors.Is(got.err, context.Canceled) {
			t.Errorf("Run() error = %v, want context.Canceled", got.err)
		}
		if got.series == nil || got.series.Len() > 1 {
			t.Errorf("Run() returned %v, want at most the one written frame", got.series)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancellation while the read was blocked")
	}
}

func TestNewValidation(t *testing.T) {
	if _, err := New(nil, 1); err == nil {
		t.Error("New(nil) expected error")
	}
	if _, err := New(newTestAnalyser(t), 0); err == nil {
		t.Error("New() with zero step expected error")
	}
}

func TestFrameReaderTruncated(t *testing.T) {
	fr, err := NewFrameReader(bytes.NewReader([]byte{1, 2, 3, 4, 5}), 4)
	if err != nil {
		t.Fatalf("NewFrameReader() error = %v", err)
	}
	if _, err := fr.Next(); err != nil {
		t.Fatalf("Next() error = %v", err)
	}
	if _, err := fr.Next(); !errors.Is(err, io.EOF) {
		t.Errorf("Next() error = %v, want io.EOF", err)
	}
	if fr.Frames() != 1 || fr.Truncated() != 1 {
		t.Errorf("Frames/Truncated = %d/%d, want 1/1", fr.Frames(), fr.Truncated())
	}
}
