package encoder

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"vidpress/internal/model"
	"vidpress/internal/progress"
	"vidpress/internal/scale"
	"vidpress/internal/util"
)

// Options control ffmpeg execution.
type Options struct {
	FFmpegPath string
	Verbose    bool
	OutputPath string // Full path of desired output file (including extension)

	Reporter progress.Reporter // Optional; enables -progress parsing when set
	JobID    string
	Runner   util.CmdRunner // nil = default runner
}

// Encode transcodes the probed source according to the scale policy and
// encode options. It returns metadata about the resulting file on success.
func Encode(ctx context.Context, src model.SourceVideo, pol scale.Policy, enc model.EncodeOptions, opts Options) (model.OutputVideo, error) {
	if opts.FFmpegPath == "" {
		return model.OutputVideo{}, errors.New("ffmpeg path is required")
	}
	if opts.OutputPath == "" {
		return model.OutputVideo{}, errors.New("output path is required")
	}
	if !enc.ModeCRF && (src.DurationSec <= 0 || enc.MaxSizeMB <= 0) {
		return model.OutputVideo{}, errors.New("invalid bitrate mode inputs: missing duration or max size")
	}
	runner := opts.Runner
	if runner == nil {
		runner = util.NewDefaultRunner()
	}

	includeProgress := opts.Reporter != nil
	args, usedCRF, usedKbps := BuildVideoArgs(src, pol, enc, opts.OutputPath, includeProgress)

	if err := util.EnsureDir(filepath.Dir(opts.OutputPath)); err != nil {
		return model.OutputVideo{}, fmt.Errorf("ensure output dir: %w", err)
	}

	spec := util.CmdSpec{
		Path:    opts.FFmpegPath,
		Args:    args,
		Verbose: opts.Verbose,
	}
	if includeProgress {
		ps := &ProgressState{}
		spec.StdoutLine = func(line string) {
			if u, ok := ps.UpdateFromLine(line, opts.JobID, src.DurationSec); ok {
				opts.Reporter.Update(u)
			}
		}
		spec.StderrLine = func(line string) {
			opts.Reporter.Log(progress.Log{JobID: opts.JobID, Stream: progress.StreamStderr, Line: line})
		}
	}

	if _, runErr := runner.Run(ctx, spec); runErr != nil {
		// Delete incomplete file
		_ = util.RemoveIfExists(opts.OutputPath)
		return model.OutputVideo{}, fmt.Errorf("ffmpeg failed: %w", runErr)
	}

	fi, err := os.Stat(opts.OutputPath)
	if err != nil {
		return model.OutputVideo{}, fmt.Errorf("stat output: %w", err)
	}

	out := model.OutputVideo{
		OutputPath:      opts.OutputPath,
		Bytes:           fi.Size(),
		UsedCRF:         usedCRF,
		UsedBitrateKbps: usedKbps,
	}
	if pol.ShouldScale(src.Stream) {
		size := pol.OutputSize(src.Stream)
		out.Width, out.Height = size.Width, size.Height
		out.Scaled = true
	} else {
		out.Width, out.Height = src.Stream.Width, src.Stream.Height
	}
	return out, nil
}
