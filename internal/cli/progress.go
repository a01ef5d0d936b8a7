package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/hashicorp/go-hclog"
	"golang.org/x/term"

	"github.com/jmylchreest/hdrprobe/internal/hdr"
)

// progressLogInterval is the number of frames between progress log lines
// when stderr is not a terminal.
const progressLogInterval = 100

// progress reports analysis progress as a percentage of the input duration.
type progress struct {
	out      io.Writer
	duration float64
	tty      bool
	logger   hclog.Logger
	drawn    bool
}

// newProgress writes an in-place progress line to out when it is a terminal
// and falls back to debug logging otherwise.
func newProgress(out io.Writer, duration float64, quiet bool, logger hclog.Logger) *progress {
	p := &progress{out: out, duration: duration, logger: logger}
	if f, ok := out.(*os.File); ok && !quiet {
		p.tty = term.IsTerminal(int(f.Fd()))
	}
	return p
}

// Frame is a stream.WithFrameCallback handler.
func (p *progress) Frame(index int, m hdr.FrameMetrics) {
	if p.tty {
		if p.duration > 0 {
			fmt.Fprintf(p.out, "\rProgress: %5.1f%%  (%.1fs / %.1fs)  peak %.0f nits   ",
				percent(m.Time, p.duration), m.Time, p.duration, m.PeakNits)
		} else {
			fmt.Fprintf(p.out, "\rFrames: %d  (%.1fs)  peak %.0f nits   ", index+1, m.Time, m.PeakNits)
		}
		p.drawn = true
		return
	}
	if index%progressLogInterval == 0 {
		p.logger.Debug("progress", "frame", index, "time", m.Time, "percent", percent(m.Time, p.duration), "peak_nits", m.PeakNits)
	}
}

// Done terminates the progress line.
func (p *progress) Done() {
	if p.drawn {
		fmt.Fprintln(p.out)
		p.drawn = false
	}
}

func percent(t, duration float64) float64 {
	if duration <= 0 {
		return 0
	}
	return min(100, t/duration*100)
}
