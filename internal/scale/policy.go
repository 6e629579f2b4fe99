// Package scale derives output geometry for a transcode job: the numeric
// long-side target, the ffmpeg scale-filter expression, the concrete rounded
// output size, and whether scaling is needed at all.
package scale

import (
	"fmt"
	"math"
	"strconv"

	"vidpress/internal/model"
)

// Original is the resolution setting that keeps each source's own long side.
const Original = "original"

// autoEven is ffmpeg's sentinel for "derive this dimension automatically,
// rounded to an even integer".
const autoEven = "-2"

// Size is a concrete output geometry in pixels.
type Size struct {
	Width  int
	Height int
}

// Policy computes output geometry from a configured resolution target.
// It is an immutable value; all methods are pure functions of the stream
// argument and safe for concurrent use.
type Policy struct {
	original bool
	target   int
}

// NewPolicy parses a resolution setting: the literal "original", or a base-10
// integer giving the desired long-side size in pixels. Anything else is a
// configuration error.
func NewPolicy(setting string) (Policy, error) {
	if setting == Original {
		return Policy{original: true}, nil
	}
	n, err := strconv.Atoi(setting)
	if err != nil {
		return Policy{}, fmt.Errorf("invalid resolution setting %q: want %q or a pixel count", setting, Original)
	}
	return Policy{target: n}, nil
}

// TargetResolution returns the long-side target for the given stream.
// Under the "original" setting it is max(width, height) of that specific
// stream, so differently oriented streams each resolve their own value.
func (p Policy) TargetResolution(st model.VideoStream) int {
	if p.original {
		return maxInt(st.Width, st.Height)
	}
	return p.target
}

// Filter returns the scale-filter expression for the stream, width slot first
// and height slot second. The long side gets the target, the short side the
// auto-compute sentinel: "720:-2" for landscape, "-2:720" for portrait.
// Sources with width == height count as landscape.
func (p Policy) Filter(st model.VideoStream) string {
	target := p.TargetResolution(st)
	if landscape(st) {
		return strconv.Itoa(target) + ":" + autoEven
	}
	return autoEven + ":" + strconv.Itoa(target)
}

// OutputSize returns the concrete output dimensions: the long side is the
// target exactly, the short side is derived from the source aspect ratio and
// forced even. Orientation is preserved.
func (p Policy) OutputSize(st model.VideoStream) Size {
	target := p.TargetResolution(st)
	large, small := st.Width, st.Height
	if !landscape(st) {
		large, small = st.Height, st.Width
	}
	derived := evenRound(float64(target) * float64(small) / float64(large))
	if landscape(st) {
		return Size{Width: target, Height: derived}
	}
	return Size{Width: derived, Height: target}
}

// ShouldScale reports whether the source exceeds the target and must be
// downscaled. A source exactly at the target passes through unscaled.
func (p Policy) ShouldScale(st model.VideoStream) bool {
	return maxInt(st.Width, st.Height) > p.TargetResolution(st)
}

// evenRound rounds to the nearest integer with ties going to the even value,
// then drops odd results to the next lower even integer. Chroma-subsampled
// encoders reject odd dimensions, so evenness is a hard post-condition.
func evenRound(v float64) int {
	n := int(math.RoundToEven(v))
	if n%2 != 0 {
		n--
	}
	return n
}

func landscape(st model.VideoStream) bool {
	return st.Width >= st.Height
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
