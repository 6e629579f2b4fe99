// Package probe extracts stream metadata from media files via ffprobe.
package probe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"vidpress/internal/model"
	"vidpress/internal/util"
)

// Options controls probing behavior.
type Options struct {
	FFprobePath string
	Verbose     bool
	Runner      util.CmdRunner // nil = default runner
}

// ErrNoVideoStream is returned when a file contains no usable video stream.
var ErrNoVideoStream = errors.New("no video stream found")

// Probe inspects the file at path and returns its parsed metadata.
// The primary video stream is the first one that is not an attached picture
// (cover art embedded in audio files shows up as a video stream).
func Probe(ctx context.Context, path string, opts Options) (model.SourceVideo, error) {
	if opts.FFprobePath == "" {
		return model.SourceVideo{}, errors.New("ffprobe path is required")
	}
	runner := opts.Runner
	if runner == nil {
		runner = util.NewDefaultRunner()
	}

	args := []string{
		"-v", "error",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		path,
	}
	res, runErr := runner.Run(ctx, util.CmdSpec{
		Path:          opts.FFprobePath,
		Args:          args,
		Verbose:       opts.Verbose,
		CaptureStdout: true,
	})
	if runErr != nil {
		return model.SourceVideo{}, fmt.Errorf("ffprobe failed: %w", runErr)
	}

	var out ffprobeOutput
	if err := json.Unmarshal(res.Stdout, &out); err != nil {
		return model.SourceVideo{}, fmt.Errorf("parse ffprobe JSON: %w", err)
	}

	return assemble(path, out)
}

func assemble(path string, out ffprobeOutput) (model.SourceVideo, error) {
	var video *ffprobeStream
	hasAudio := false
	for i := range out.Streams {
		st := &out.Streams[i]
		switch st.CodecType {
		case "video":
			if video == nil && st.Disposition.AttachedPic == 0 {
				video = st
			}
		case "audio":
			hasAudio = true
		}
	}
	if video == nil {
		return model.SourceVideo{}, fmt.Errorf("%w in %s", ErrNoVideoStream, path)
	}
	if video.Width <= 0 || video.Height <= 0 {
		return model.SourceVideo{}, fmt.Errorf("stream %d in %s has invalid dimensions %dx%d",
			video.Index, path, video.Width, video.Height)
	}

	return model.SourceVideo{
		InputPath:   path,
		DurationSec: parseFloat(out.Format.Duration),
		Container:   out.Format.FormatName,
		SizeBytes:   parseInt(out.Format.Size),
		HasAudio:    hasAudio,
		Stream: model.VideoStream{
			Index:       video.Index,
			Width:       video.Width,
			Height:      video.Height,
			Rotation:    rotationOf(video),
			FrameCount:  parseInt(video.NbFrames),
			IsHDR:       isHDR(video.ColorTransfer),
			BitRate:     parseInt(video.BitRate),
			PixelFormat: video.PixFmt,
		},
	}, nil
}

// rotationOf reads display rotation from the stream's display matrix side
// data, falling back to the legacy rotate tag. The value is metadata only;
// width/height stay as decoded.
func rotationOf(st *ffprobeStream) int {
	for _, sd := range st.SideDataList {
		if sd.SideDataType == "Display Matrix" {
			return int(sd.Rotation)
		}
	}
	if r, ok := st.Tags["rotate"]; ok {
		if n, err := strconv.Atoi(r); err == nil {
			return n
		}
	}
	return 0
}

func isHDR(colorTransfer string) bool {
	switch colorTransfer {
	case "smpte2084", "arib-std-b67":
		return true
	}
	return false
}

func parseFloat(s string) float64 {
	v, _ := strconv.ParseFloat(s, 64)
	return v
}

func parseInt(s string) int64 {
	v, _ := strconv.ParseInt(s, 10, 64)
	return v
}
