// Package pipeline provides planning and orchestration for the vidpress workflow.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"vidpress/internal/encoder"
	"vidpress/internal/model"
	"vidpress/internal/probe"
	"vidpress/internal/progress"
	"vidpress/internal/scale"
	"vidpress/internal/util"
	"vidpress/internal/util/bitrate"
	"vidpress/internal/util/format"
	"vidpress/internal/util/media"
)

// Sentinel errors letting callers map failures to exit codes.
var (
	ErrProbe  = errors.New("probe")
	ErrEncode = errors.New("encode")
)

// Service orchestrates the probe → plan → encode workflow.
type Service struct {
	ffprobePath string
	ffmpegPath  string
	opts        model.CLIOptions
	presetCRF   int
	runner      util.CmdRunner
	reporter    progress.Reporter
	jobID       string
}

// Option configures a Service.
type Option func(*Service)

// WithFFprobePath sets the ffprobe binary path.
func WithFFprobePath(p string) Option {
	return func(s *Service) {
		s.ffprobePath = p
	}
}

// WithFFmpegPath sets the ffmpeg binary path.
func WithFFmpegPath(p string) Option {
	return func(s *Service) {
		s.ffmpegPath = p
	}
}

// WithCLIOptions sets the CLI options used for planning and execution.
func WithCLIOptions(o model.CLIOptions) Option {
	return func(s *Service) {
		s.opts = o
	}
}

// WithPresetCRF overrides the default CRF derived from the quality preset.
func WithPresetCRF(crf int) Option {
	return func(s *Service) {
		s.presetCRF = crf
	}
}

// WithRunner injects a custom command runner (useful for testing).
func WithRunner(r util.CmdRunner) Option {
	return func(s *Service) {
		s.runner = r
	}
}

// WithReporter attaches a progress reporter (used by TUI).
func WithReporter(rp progress.Reporter) Option {
	return func(s *Service) {
		s.reporter = rp
	}
}

// WithJobID sets the job ID associated with reporter events.
func WithJobID(id string) Option {
	return func(s *Service) {
		s.jobID = id
	}
}

// NewService constructs a new Service with the provided options.
// It applies sensible defaults for missing components.
func NewService(opts ...Option) *Service {
	s := &Service{}
	for _, o := range opts {
		o(s)
	}
	if s.runner == nil {
		s.runner = util.NewDefaultRunner()
	}
	if s.presetCRF == 0 {
		s.presetCRF = DefaultCRF(s.opts.Quality)
	}
	return s
}

// Plan contains the computed plan for a job (primarily for dry-run/introspection).
type Plan struct {
	OutputPath          string
	Enc                 model.EncodeOptions
	EstVideoBitrateKbps int

	TargetResolution int
	ScaleExpression  string // empty when no scaling applies
	OutputSize       scale.Size
	WillScale        bool

	FFprobePath string
	FFmpegPath  string

	InputPath   string
	DurationSec float64
	SourceSize  scale.Size
}

// Result returns the outcome of RunJob.
type Result struct {
	InputPath      string
	Planned        bool
	Plan           *Plan
	Output         *model.OutputVideo
	Src            model.SourceVideo
	Overshot       bool
	OvershootRatio float64
}

// RunJob executes the full pipeline for a single input file.
// It never prints; when a Reporter is present, it emits progress and a final Result.
func (s *Service) RunJob(ctx context.Context, inputPath string) (Result, error) {
	var res Result
	res.InputPath = inputPath

	if s.ffprobePath == "" {
		return res, fmt.Errorf("ffprobe path is required")
	}
	if !s.opts.DryRun && s.ffmpegPath == "" {
		return res, fmt.Errorf("ffmpeg path is required")
	}

	// The resolution setting is validated here: a setting that is neither
	// "original" nor an integer aborts the job before any work happens.
	pol, perr := scale.NewPolicy(ResolutionSetting(s.opts))
	if perr != nil {
		return res, perr
	}

	s.emitStage(progress.StageProbing, "Probing "+filepath.Base(inputPath))
	src, derr := probe.Probe(ctx, inputPath, probe.Options{
		FFprobePath: s.ffprobePath,
		Verbose:     s.opts.Verbose,
		Runner:      s.runner,
	})
	if derr != nil {
		return res, fmt.Errorf("%w: %w", ErrProbe, derr)
	}
	res.Src = src

	enc, outputPath, estVideoKbps := s.plan(src, pol)

	if s.opts.DryRun {
		pl := &Plan{
			OutputPath:          outputPath,
			Enc:                 enc,
			EstVideoBitrateKbps: estVideoKbps,
			TargetResolution:    pol.TargetResolution(src.Stream),
			WillScale:           pol.ShouldScale(src.Stream),
			FFprobePath:         s.ffprobePath,
			FFmpegPath:          s.ffmpegPath,
			InputPath:           inputPath,
			DurationSec:         src.DurationSec,
			SourceSize:          scale.Size{Width: src.Stream.Width, Height: src.Stream.Height},
		}
		if pl.WillScale {
			pl.ScaleExpression = pol.Filter(src.Stream)
			pl.OutputSize = pol.OutputSize(src.Stream)
		} else {
			pl.OutputSize = pl.SourceSize
		}
		res.Planned = true
		res.Plan = pl

		s.emitPlanned(outputPath)
		return res, nil
	}

	s.emitStage(progress.StageEncoding, "Encoding "+filepath.Base(outputPath))
	out, eerr := encoder.Encode(ctx, src, pol, enc, encoder.Options{
		FFmpegPath: s.ffmpegPath,
		Verbose:    s.opts.Verbose,
		OutputPath: outputPath,
		Reporter:   s.reporter,
		JobID:      s.jobID,
		Runner:     s.runner,
	})
	if eerr != nil {
		return res, fmt.Errorf("%w: %w", ErrEncode, eerr)
	}

	s.emitSaved(out)

	if !s.opts.KeepSource {
		if rmErr := util.RemoveIfExists(inputPath); rmErr != nil && s.reporter != nil {
			s.reporter.Log(progress.Log{
				JobID:  s.jobID,
				Stream: progress.StreamStderr,
				Line:   fmt.Sprintf("could not remove source %s: %v", inputPath, rmErr),
			})
		}
	}

	overshot, ratio := s.checkOvershoot(out.Bytes)
	res.Output = &out
	res.Overshot = overshot
	res.OvershootRatio = ratio

	return res, nil
}

// plan computes encoding options, output path, and estimated bitrate (when applicable).
func (s *Service) plan(src model.SourceVideo, pol scale.Policy) (model.EncodeOptions, string, int) {
	enc := model.EncodeOptions{
		ModeCRF:          s.opts.MaxSizeMB == 0 || src.DurationSec <= 0,
		CRF:              s.presetCRF,
		MaxSizeMB:        s.opts.MaxSizeMB,
		AudioBitrateKbps: 96,
		VideoMinKbps:     500,
		VideoMaxKbps:     8000,
		Preset:           "veryfast",
		Profile:          "main",
		KeyInt:           48,
	}

	base := media.OutputBasename(src, pol.TargetResolution(src.Stream), pol.ShouldScale(src.Stream), s.opts.MaxSizeMB, enc)
	outPath := filepath.Join(s.opts.OutDir, base+".mp4")

	estKbps := 0
	if !enc.ModeCRF && s.opts.MaxSizeMB > 0 && src.DurationSec > 0 {
		audioKbps := 0
		if src.HasAudio {
			audioKbps = bitrate.SafeAudioKbps(enc.AudioBitrateKbps)
		}
		estKbps = bitrate.ComputeVideoKbps(s.opts.MaxSizeMB, src.DurationSec, audioKbps, enc.VideoMinKbps, enc.VideoMaxKbps)
	}

	return enc, outPath, estKbps
}

func (s *Service) emitStage(stage progress.Stage, msg string) {
	if s.reporter == nil {
		return
	}
	s.reporter.Update(progress.Update{
		JobID:   s.jobID,
		Stage:   stage,
		Percent: -1,
		Message: msg,
	})
}

// emitPlanned sends a final "planned" update and reporter result for TUI.
func (s *Service) emitPlanned(outPath string) {
	if s.reporter == nil {
		return
	}
	name := filepath.Base(outPath)
	s.reporter.Update(progress.Update{
		JobID:   s.jobID,
		Stage:   progress.StageCompleted,
		Percent: 100,
		Message: fmt.Sprintf("Planned: %s (dry-run)", name),
	})
	s.reporter.Result(progress.Result{
		JobID:      s.jobID,
		OutputPath: outPath,
		Bytes:      0,
		Err:        nil,
	})
}

// emitSaved sends a final "saved" update and reporter result for TUI.
func (s *Service) emitSaved(out model.OutputVideo) {
	if s.reporter == nil {
		return
	}
	name := filepath.Base(out.OutputPath)
	size := format.HumanizeBytes(out.Bytes)
	s.reporter.Update(progress.Update{
		JobID:   s.jobID,
		Stage:   progress.StageCompleted,
		Percent: 100,
		Message: fmt.Sprintf("Saved: %s (%s)", name, size),
	})
	s.reporter.Result(progress.Result{
		JobID:      s.jobID,
		OutputPath: out.OutputPath,
		Bytes:      out.Bytes,
		Err:        nil,
	})
}

// checkOvershoot determines whether the output size exceeds the max target by >10%.
func (s *Service) checkOvershoot(outBytes int64) (bool, float64) {
	if s.opts.MaxSizeMB <= 0 {
		return false, 0
	}
	maxBytes := int64(s.opts.MaxSizeMB) * 1024 * 1024
	ratio := float64(outBytes) / float64(maxBytes)
	return ratio > 1.10, ratio
}
