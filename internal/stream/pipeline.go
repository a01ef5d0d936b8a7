package stream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"runtime"
	"sync"

	"github.com/hashicorp/go-hclog"

	"github.com/jmylchreest/hdrprobe/internal/hdr"
)

// Pipeline analyses a raw frame stream into an ordered series.
type Pipeline struct {
	analyser *hdr.Analyser
	step     float64
	workers  int
	logger   hclog.Logger
	onFrame  func(index int, m hdr.FrameMetrics)
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithWorkers sets the number of concurrent analysis workers. Values below
// 1 select runtime.NumCPU().
func WithWorkers(n int) Option {
	return func(p *Pipeline) {
		if n < 1 {
			n = runtime.NumCPU()
		}
		p.workers = n
	}
}

// WithLogger sets the logger.
func WithLogger(logger hclog.Logger) Option {
	return func(p *Pipeline) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithFrameCallback registers fn to be called for each record, in order,
// after it has been appended to the series.
func WithFrameCallback(fn func(index int, m hdr.FrameMetrics)) Option {
	return func(p *Pipeline) {
		p.onFrame = fn
	}
}

// New creates a pipeline. step is the time between sampled frames in seconds.
func New(analyser *hdr.Analyser, step float64, opts ...Option) (*Pipeline, error) {
	if analyser == nil {
		return nil, errors.New("analyser cannot be nil")
	}
	if !(step > 0) {
		return nil, fmt.Errorf("time step must be positive, got %g", step)
	}
	p := &Pipeline{
		analyser: analyser,
		step:     step,
		workers:  runtime.NumCPU(),
		logger:   hclog.NewNullLogger(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

type job struct {
	index int
	data  []byte
}

type result struct {
	index int
	res   hdr.FrameResult
	err   error
}

// Run reads frames from r until the stream ends and returns the series.
// A partial final frame ends the series without error. On cancellation or
// a failure the records completed so far, in order, are returned along
// with the error.
//
// Run returns promptly on cancellation even while a read from r is
// blocked. The reading goroutine then stays parked in that read until r
// delivers data or is closed by the caller.
func (p *Pipeline) Run(ctx context.Context, r io.Reader) (*hdr.Series, error) {
	reader, err := NewFrameReader(r, p.analyser.Config().FrameBytes())
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	jobs := make(chan job, p.workers)
	results := make(chan result, p.workers)

	// readErr and reader state are only read after readDone is closed.
	var readErr error
	readDone := make(chan struct{})

	// Single reader keeps frames in stream order. jobs is closed after
	// readDone, so workers draining jobs imply the reader has finished.
	go func() {
		defer close(jobs)
		defer close(readDone)
		for index := 0; ; index++ {
			data, err := reader.Next()
			if err != nil {
				if !errors.Is(err, io.EOF) {
					readErr = err
				}
				return
			}
			select {
			case jobs <- job{index: index, data: data}:
			case <-ctx.Done():
				return
			}
		}
	}()

	var workers sync.WaitGroup
	for range p.workers {
		workers.Add(1)
		go func() {
			defer workers.Done()
			for {
				var j job
				select {
				case <-ctx.Done():
					return
				case next, ok := <-jobs:
					if !ok {
						return
					}
					j = next
				}
				res, err := p.analyser.AnalyseRaw(j.data)
				select {
				case results <- result{index: j.index, res: res, err: err}:
				case <-ctx.Done():
					return
				}
			}
		}()
	}
	go func() {
		workers.Wait()
		close(results)
	}()

	series := hdr.NewSeries(0)
	pending := make(map[int]result)
	next := 0
	var runErr error
	for res := range results {
		if runErr != nil {
			continue
		}
		pending[res.index] = res
		for {
			ready, ok := pending[next]
			if !ok {
				break
			}
			delete(pending, next)
			if ready.err != nil {
				runErr = fmt.Errorf("failed to analyse frame %d: %w", next, ready.err)
				cancel()
				break
			}
			m := ready.res.Metrics(float64(next) * p.step)
			if err := series.Append(m); err != nil {
				runErr = err
				cancel()
				break
			}
			if p.onFrame != nil {
				p.onFrame(next, m)
			}
			next++
		}
	}

	// The reader may still be blocked if the run was cancelled.
	readerFinished := false
	select {
	case <-readDone:
		readerFinished = true
	default:
	}
	if runErr == nil && readerFinished {
		runErr = readErr
	}
	if runErr == nil && ctx.Err() != nil {
		runErr = ctx.Err()
	}
	if readerFinished {
		if n := reader.Truncated(); n > 0 {
			p.logger.Warn("discarded partial final frame", "bytes", n, "frame_bytes", p.analyser.Config().FrameBytes())
		}
	}
	p.logger.Debug("stream finished", "frames", series.Len(), "workers", p.workers)
	return series, runErr
}
