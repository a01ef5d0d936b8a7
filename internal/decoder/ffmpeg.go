package decoder

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/hashicorp/go-hclog"
	"github.com/mitchellh/go-ps"
)

// ErrDecoderNotFound is returned when ffmpeg or ffprobe is not installed.
var ErrDecoderNotFound = errors.New("decoder executable not found")

// PixelFormat is the ffmpeg pixel format of the raw stream: planar G, B, R
// with 10-bit samples in little-endian 16-bit words.
const PixelFormat = "gbrp10le"

// FFmpeg produces raw frames by running ffmpeg as a child process.
type FFmpeg struct {
	FFmpegPath  string
	FFprobePath string

	// Width and Height are the padded output geometry.
	Width  int
	Height int

	Runner ProcessRunner
	Logger hclog.Logger
}

// NewFFmpeg creates a decoder with the default executables on PATH.
func NewFFmpeg(width, height int) *FFmpeg {
	return &FFmpeg{
		FFmpegPath:  "ffmpeg",
		FFprobePath: "ffprobe",
		Width:       width,
		Height:      height,
		Runner:      NewRealProcessRunner(),
		Logger:      hclog.NewNullLogger(),
	}
}

// Args returns the ffmpeg arguments that decode input into a raw stream.
// Frames are padded, never scaled, to the output geometry so that sample
// values reach the analysis untouched.
func (f *FFmpeg) Args(input string, interval Interval) []string {
	filters := []string{fmt.Sprintf("pad=%d:%d:(ow-iw)/2:(oh-ih)/2:black", f.Width, f.Height)}
	if fps := interval.Filter(); fps != "" {
		filters = append([]string{fps}, filters...)
	}
	return []string{
		"-v", "error",
		"-nostdin",
		"-i", input,
		"-vf", strings.Join(filters, ","),
		"-pix_fmt", PixelFormat,
		"-f", "rawvideo",
		"pipe:1",
	}
}

// ProbeResult holds container information reported by ffprobe.
type ProbeResult struct {
	// Duration in seconds, 0 if unknown.
	Duration float64
	// FrameRate of the first video stream, 0 if unknown.
	FrameRate float64
}

// Probe runs ffprobe to read the duration and frame rate of input.
func (f *FFmpeg) Probe(ctx context.Context, input string) (ProbeResult, error) {
	path, err := lookPath(f.FFprobePath)
	if err != nil {
		return ProbeResult{}, err
	}
	args := []string{
		"-v", "0",
		"-select_streams", "v:0",
		"-show_entries", "format=duration:stream=r_frame_rate",
		"-of", "default=noprint_wrappers=1",
		input,
	}
	stdout, stderr, err := f.Runner.Run(ctx, path, args, nil)
	if err != nil {
		return ProbeResult{}, fmt.Errorf("ffprobe failed: %w: %s", err, strings.TrimSpace(string(stderr)))
	}
	return parseProbeOutput(stdout)
}

func parseProbeOutput(out []byte) (ProbeResult, error) {
	var res ProbeResult
	scanner := bufio.NewScanner(bytes.NewReader(out))
	for scanner.Scan() {
		key, value, ok := strings.Cut(strings.TrimSpace(scanner.Text()), "=")
		if !ok || value == "N/A" {
			continue
		}
		switch key {
		case "duration":
			d, err := strconv.ParseFloat(value, 64)
			if err != nil {
				return res, fmt.Errorf("invalid duration %q: %w", value, err)
			}
			res.Duration = d
		case "r_frame_rate":
			res.FrameRate = parseRate(value)
		}
	}
	return res, scanner.Err()
}

// parseRate parses a rational such as "24000/1001".
func parseRate(s string) float64 {
	num, den, found := strings.Cut(s, "/")
	n, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return 0
	}
	if !found {
		return n
	}
	d, err := strconv.ParseFloat(den, 64)
	if err != nil || d == 0 {
		return 0
	}
	return n / d
}

// Open starts ffmpeg and returns its raw frame stream.
func (f *FFmpeg) Open(ctx context.Context, input string, interval Interval) (*Stream, error) {
	path, err := lookPath(f.FFmpegPath)
	if err != nil {
		return nil, err
	}
	args := f.Args(input, interval)
	cmd := exec.CommandContext(ctx, path, args...)
	stderr := &tailBuffer{max: 4096}
	cmd.Stderr = stderr

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to create decoder pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start decoder: %w", err)
	}
	logger := f.Logger
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	logger.Debug("decoder started", "path", path, "pid", cmd.Process.Pid, "args", strings.Join(args, " "))

	return &Stream{cmd: cmd, stdout: stdout, stderr: stderr, logger: logger}, nil
}

func lookPath(name string) (string, error) {
	path, err := exec.LookPath(name)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %w", ErrDecoderNotFound, name, err)
	}
	return path, nil
}

// Stream is the stdout of a running decoder process.
type Stream struct {
	cmd    *exec.Cmd
	stdout io.ReadCloser
	stderr *tailBuffer
	logger hclog.Logger
	eof    bool

	closeOnce sync.Once
	closeErr  error
}

// Read reads raw frame bytes from the decoder.
func (s *Stream) Read(p []byte) (int, error) {
	n, err := s.stdout.Read(p)
	if errors.Is(err, io.EOF) {
		s.eof = true
	}
	return n, err
}

// Close stops the decoder and waits for it to exit. A decoder that is still
// running because the reader stopped early is killed; one that ran to the
// end of its stream has its exit status reported.
func (s *Stream) Close() error {
	s.closeOnce.Do(func() {
		if !s.eof {
			s.kill()
			// Exit status of a killed decoder is not interesting.
			_ = s.cmd.Wait()
			return
		}
		if err := s.cmd.Wait(); err != nil {
			s.closeErr = fmt.Errorf("decoder exited with error: %w: %s", err, strings.TrimSpace(s.stderr.String()))
		}
	})
	return s.closeErr
}

// kill stops a decoder that is still producing output. go-ps resolves the
// executable name for the log line; a process that already exited on its
// own is not an error.
func (s *Stream) kill() {
	pid := s.cmd.Process.Pid
	executable := filepath.Base(s.cmd.Path)
	if proc, err := ps.FindProcess(pid); err == nil && proc != nil {
		executable = proc.Executable()
	}
	if err := s.cmd.Process.Kill(); err != nil {
		if !errors.Is(err, os.ErrProcessDone) {
			s.logger.Warn("failed to stop decoder", "pid", pid, "executable", executable, "error", err)
		}
		return
	}
	s.logger.Debug("decoder stopped before end of stream", "pid", pid, "executable", executable)
}

// tailBuffer keeps the last max bytes written to it.
type tailBuffer struct {
	mu  sync.Mutex
	max int
	buf []byte
}

func (t *tailBuffer) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.buf = append(t.buf, p...)
	if over := len(t.buf) - t.max; over > 0 {
		t.buf = append(t.buf[:0], t.buf[over:]...)
	}
	return len(p), nil
}

func (t *tailBuffer) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return string(t.buf)
}
