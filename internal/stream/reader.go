// Package stream reads raw frames from a byte stream and runs them through
// the analysis pipeline.
package stream

import (
	"errors"
	"fmt"
	"io"
)

// FrameReader reads fixed-size frames from a blocking byte stream.
type FrameReader struct {
	r          io.Reader
	frameBytes int
	frames     int
	truncated  int
}

// NewFrameReader creates a reader returning frames of exactly frameBytes.
func NewFrameReader(r io.Reader, frameBytes int) (*FrameReader, error) {
	if frameBytes <= 0 {
		return nil, fmt.Errorf("frame size must be positive, got %d", frameBytes)
	}
	return &FrameReader{r: r, frameBytes: frameBytes}, nil
}

// Next reads the next complete frame into a new buffer. It returns io.EOF
// when the stream ends, including when the final frame is incomplete; the
// partial bytes are discarded and reported by Truncated.
func (fr *FrameReader) Next() ([]byte, error) {
	buf := make([]byte, fr.frameBytes)
	n, err := io.ReadFull(fr.r, buf)
	switch {
	case err == nil:
		fr.frames++
		return buf, nil
	case errors.Is(err, io.EOF):
		return nil, io.EOF
	case errors.Is(err, io.ErrUnexpectedEOF):
		fr.truncated = n
		return nil, io.EOF
	default:
		return nil, fmt.Errorf("failed to read frame %d: %w", fr.frames, err)
	}
}

// Frames returns the number of complete frames read so far.
func (fr *FrameReader) Frames() int {
	return fr.frames
}

// Truncated returns the size of a discarded partial final frame, or 0.
func (fr *FrameReader) Truncated() int {
	return fr.truncated
}
