package decoder

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DefaultFrameStep is the time step used for every-frame sampling when the
// frame rate cannot be probed (24 fps).
const DefaultFrameStep = 0.0416

// Interval is the time between sampled frames. The zero value samples every
// decoded frame.
type Interval struct {
	Seconds float64
}

// EveryFrame samples every decoded frame.
var EveryFrame = Interval{}

// ParseInterval parses "frame", "1s", "2s", "500ms" or a number of seconds.
func ParseInterval(s string) (Interval, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	switch s {
	case "", "frame", "every", "all":
		return EveryFrame, nil
	}
	if d, err := time.ParseDuration(s); err == nil {
		if d < 0 {
			return Interval{}, fmt.Errorf("interval must not be negative: %s", s)
		}
		return Interval{Seconds: d.Seconds()}, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return Interval{}, fmt.Errorf("invalid interval %q (valid: frame, 1s, 2s, or seconds)", s)
	}
	if v < 0 {
		return Interval{}, fmt.Errorf("interval must not be negative: %s", s)
	}
	return Interval{Seconds: v}, nil
}

// IsEveryFrame reports whether no frame rate reduction is applied.
func (i Interval) IsEveryFrame() bool {
	return i.Seconds <= 0
}

// String returns the canonical form accepted by ParseInterval.
func (i Interval) String() string {
	if i.IsEveryFrame() {
		return "frame"
	}
	return strconv.FormatFloat(i.Seconds, 'g', -1, 64) + "s"
}

// Filter returns the ffmpeg fps filter for the interval, or "".
func (i Interval) Filter() string {
	if i.IsEveryFrame() {
		return ""
	}
	return "fps=" + strconv.FormatFloat(1/i.Seconds, 'g', -1, 64)
}

// Step returns the timestamp increment per sampled frame. frameRate is only
// used for every-frame sampling; non-positive values fall back to
// DefaultFrameStep.
func (i Interval) Step(frameRate float64) float64 {
	if !i.IsEveryFrame() {
		return i.Seconds
	}
	if frameRate > 0 {
		return 1 / frameRate
	}
	return DefaultFrameStep
}
