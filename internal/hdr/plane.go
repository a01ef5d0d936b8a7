package hdr

import (
	"encoding/binary"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrFrameSize is returned when a buffer does not match the frame geometry.
	ErrFrameSize = errors.New("frame size mismatch")

	// ErrInvalidStride is returned for a decimation stride below 1.
	ErrInvalidStride = errors.New("invalid decimation stride")
)

// BytesPerSample is the storage size of one sample in the raw stream.
const BytesPerSample = 2

// ChannelOrder describes the order in which colour planes are stored.
// Each position names the colour channel held by that plane.
type ChannelOrder [3]Channel

// Channel identifies a colour channel.
type Channel uint8

const (
	ChannelR Channel = iota
	ChannelG
	ChannelB
)

var (
	// OrderRGB is the canonical order expected by the analysis stages.
	OrderRGB = ChannelOrder{ChannelR, ChannelG, ChannelB}

	// OrderGBR is ffmpeg's planar gbrp order.
	OrderGBR = ChannelOrder{ChannelG, ChannelB, ChannelR}

	// OrderBGR stores blue first.
	OrderBGR = ChannelOrder{ChannelB, ChannelG, ChannelR}
)

// ParseChannelOrder parses strings such as "gbr" or "rgb".
func ParseChannelOrder(s string) (ChannelOrder, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if len(s) != 3 {
		return ChannelOrder{}, fmt.Errorf("invalid channel order %q: expected three letters", s)
	}
	var order ChannelOrder
	var seen [3]bool
	for i, c := range s {
		var ch Channel
		switch c {
		case 'r':
			ch = ChannelR
		case 'g':
			ch = ChannelG
		case 'b':
			ch = ChannelB
		default:
			return ChannelOrder{}, fmt.Errorf("invalid channel order %q: unknown channel %q", s, c)
		}
		if seen[ch] {
			return ChannelOrder{}, fmt.Errorf("invalid channel order %q: duplicate channel %q", s, c)
		}
		seen[ch] = true
		order[i] = ch
	}
	return order, nil
}

// String returns the lowercase channel letters, e.g. "gbr".
func (o ChannelOrder) String() string {
	letters := [3]byte{'r', 'g', 'b'}
	var b [3]byte
	for i, ch := range o {
		if int(ch) < len(letters) {
			b[i] = letters[ch]
		} else {
			b[i] = '?'
		}
	}
	return string(b[:])
}

// PlaneBuffer holds three planes of integer samples for one frame.
// Samples are indexed row-major: Planes[p][y*Width+x].
type PlaneBuffer struct {
	Width    int
	Height   int
	BitDepth int
	Order    ChannelOrder
	Planes   [3][]uint16
}

// FrameBytes returns the raw size of one frame of the given geometry.
func FrameBytes(width, height int) int {
	return width * height * 3 * BytesPerSample
}

// DecodePlanes parses one raw frame of little-endian 16-bit samples laid out
// plane after plane.
func DecodePlanes(data []byte, width, height, bitDepth int, order ChannelOrder) (*PlaneBuffer, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: invalid geometry %dx%d", ErrFrameSize, width, height)
	}
	if want := FrameBytes(width, height); len(data) != want {
		return nil, fmt.Errorf("%w: got %d bytes, want %d", ErrFrameSize, len(data), want)
	}
	n := width * height
	arena := make([]uint16, 3*n)
	for i := range arena {
		arena[i] = binary.LittleEndian.Uint16(data[i*BytesPerSample:])
	}
	return &PlaneBuffer{
		Width:    width,
		Height:   height,
		BitDepth: bitDepth,
		Order:    order,
		Planes:   [3][]uint16{arena[0:n:n], arena[n : 2*n : 2*n], arena[2*n : 3*n : 3*n]},
	}, nil
}

// Pixels returns the number of samples per plane.
func (b *PlaneBuffer) Pixels() int {
	return b.Width * b.Height
}

// Plane returns the samples of the given colour channel.
func (b *PlaneBuffer) Plane(ch Channel) []uint16 {
	for i, c := range b.Order {
		if c == ch {
			return b.Planes[i]
		}
	}
	return nil
}

// Canonical returns a view of the buffer with planes permuted to R, G, B.
// Sample data is shared, not copied.
func (b *PlaneBuffer) Canonical() *PlaneBuffer {
	if b.Order == OrderRGB {
		return b
	}
	return &PlaneBuffer{
		Width:    b.Width,
		Height:   b.Height,
		BitDepth: b.BitDepth,
		Order:    OrderRGB,
		Planes:   [3][]uint16{b.Plane(ChannelR), b.Plane(ChannelG), b.Plane(ChannelB)},
	}
}
