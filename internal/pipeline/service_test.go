package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"vidpress/internal/model"
	"vidpress/internal/progress"
	"vidpress/internal/scale"
	"vidpress/internal/util"
)

type recordingReporter struct {
	updates []progress.Update
	results []progress.Result
	logs    []progress.Log
}

func (r *recordingReporter) Update(u progress.Update) {
	r.updates = append(r.updates, u)
}
func (r *recordingReporter) Log(l progress.Log) {
	r.logs = append(r.logs, l)
}
func (r *recordingReporter) Result(res progress.Result) {
	r.results = append(r.results, res)
}

type fakeRunner struct {
	t                *testing.T
	ffprobePath      string
	ffmpegPath       string
	probeJSON        string
	ffmpegOutputSize int64
	ffmpegArgs       []string
}

// Run implements util.CmdRunner and simulates ffprobe and ffmpeg behavior.
func (f *fakeRunner) Run(ctx context.Context, spec util.CmdSpec) (util.CmdResult, error) {
	if spec.Path == f.ffprobePath {
		return util.CmdResult{Stdout: []byte(f.probeJSON)}, nil
	}

	if spec.Path == f.ffmpegPath {
		f.ffmpegArgs = spec.Args
		if len(spec.Args) == 0 {
			return util.CmdResult{}, errors.New("no args")
		}
		outputPath := spec.Args[len(spec.Args)-1]
		if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
			return util.CmdResult{}, err
		}
		size := f.ffmpegOutputSize
		if size <= 0 {
			size = 1024
		}
		if err := os.WriteFile(outputPath, make([]byte, size), 0o644); err != nil {
			return util.CmdResult{}, err
		}
		if spec.StdoutLine != nil {
			spec.StdoutLine("out_time_ms=30000000")
			spec.StdoutLine("speed=1.0x")
			spec.StdoutLine("progress=continue")
			spec.StdoutLine("out_time_ms=60000000")
			spec.StdoutLine("progress=end")
		}
		return util.CmdResult{}, nil
	}

	f.t.Fatalf("unexpected binary invoked: %q", spec.Path)
	return util.CmdResult{}, nil
}

func probeJSON(w, h int, durationSec float64) string {
	return fmt.Sprintf(`{
  "streams": [
    {"index": 0, "codec_type": "video", "codec_name": "h264",
     "width": %d, "height": %d, "pix_fmt": "yuv420p",
     "disposition": {"attached_pic": 0}},
    {"index": 1, "codec_type": "audio", "codec_name": "aac"}
  ],
  "format": {"format_name": "mov,mp4", "duration": "%f", "size": "10485760"}
}`, w, h, durationSec)
}

func newTestService(t *testing.T, runner *fakeRunner, opts model.CLIOptions, rep progress.Reporter) *Service {
	t.Helper()
	return NewService(
		WithFFprobePath(runner.ffprobePath),
		WithFFmpegPath(runner.ffmpegPath),
		WithCLIOptions(opts),
		WithRunner(runner),
		WithReporter(rep),
		WithJobID("job-0"),
	)
}

func TestRunJobDryRun(t *testing.T) {
	tests := []struct {
		name       string
		w, h       int
		resolution string
		wantExpr   string
		wantSize   scale.Size
		wantScale  bool
		wantTarget int
	}{
		{"landscape above target", 1920, 1080, "720", "720:-2", scale.Size{Width: 720, Height: 404}, true, 720},
		{"portrait above target", 1080, 1920, "720", "-2:720", scale.Size{Width: 404, Height: 720}, true, 720},
		{"under target passes through", 640, 480, "720", "", scale.Size{Width: 640, Height: 480}, false, 720},
		{"original keeps source", 1920, 1080, "original", "", scale.Size{Width: 1920, Height: 1080}, false, 1920},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := &fakeRunner{
				t:           t,
				ffprobePath: "/bin/ffprobe",
				ffmpegPath:  "/bin/ffmpeg",
				probeJSON:   probeJSON(tt.w, tt.h, 60),
			}
			svc := newTestService(t, runner, model.CLIOptions{
				OutDir:     t.TempDir(),
				Quality:    model.PresetMedium,
				Resolution: tt.resolution,
				DryRun:     true,
			}, nil)

			res, err := svc.RunJob(context.Background(), "clip.mp4")
			if err != nil {
				t.Fatalf("RunJob() error: %v", err)
			}
			if !res.Planned || res.Plan == nil {
				t.Fatal("RunJob() did not produce a plan")
			}

			pl := res.Plan
			if pl.TargetResolution != tt.wantTarget {
				t.Errorf("TargetResolution = %d, want %d", pl.TargetResolution, tt.wantTarget)
			}
			if pl.WillScale != tt.wantScale {
				t.Errorf("WillScale = %v, want %v", pl.WillScale, tt.wantScale)
			}
			if pl.ScaleExpression != tt.wantExpr {
				t.Errorf("ScaleExpression = %q, want %q", pl.ScaleExpression, tt.wantExpr)
			}
			if pl.OutputSize != tt.wantSize {
				t.Errorf("OutputSize = %v, want %v", pl.OutputSize, tt.wantSize)
			}
		})
	}
}

func TestRunJobEncodes(t *testing.T) {
	rep := &recordingReporter{}
	runner := &fakeRunner{
		t:                t,
		ffprobePath:      "/bin/ffprobe",
		ffmpegPath:       "/bin/ffmpeg",
		probeJSON:        probeJSON(1920, 1080, 60),
		ffmpegOutputSize: 2048,
	}
	outDir := t.TempDir()
	svc := newTestService(t, runner, model.CLIOptions{
		OutDir:     outDir,
		Quality:    model.PresetMedium,
		Resolution: "720",
		KeepSource: true,
	}, rep)

	res, err := svc.RunJob(context.Background(), "clip.mp4")
	if err != nil {
		t.Fatalf("RunJob() error: %v", err)
	}
	if res.Output == nil {
		t.Fatal("RunJob() returned no output")
	}
	if res.Output.Bytes != 2048 {
		t.Errorf("Output.Bytes = %d, want 2048", res.Output.Bytes)
	}
	if !res.Output.Scaled || res.Output.Width != 720 || res.Output.Height != 404 {
		t.Errorf("Output geometry = %dx%d scaled=%v, want 720x404 scaled",
			res.Output.Width, res.Output.Height, res.Output.Scaled)
	}

	args := strings.Join(runner.ffmpegArgs, " ")
	if !strings.Contains(args, "scale=720:-2") {
		t.Errorf("ffmpeg args missing scale filter: %v", runner.ffmpegArgs)
	}
	if !strings.Contains(filepath.Base(res.Output.OutputPath), "720p") {
		t.Errorf("output name %q missing resolution tag", res.Output.OutputPath)
	}

	if len(rep.results) != 1 || rep.results[0].Err != nil {
		t.Fatalf("reporter results = %+v, want one success", rep.results)
	}
	var sawEncoding, sawCompleted bool
	for _, u := range rep.updates {
		switch u.Stage {
		case progress.StageEncoding:
			sawEncoding = true
		case progress.StageCompleted:
			sawCompleted = true
		}
	}
	if !sawEncoding || !sawCompleted {
		t.Errorf("reporter missed stages: encoding=%v completed=%v", sawEncoding, sawCompleted)
	}
}

func TestRunJobRemovesSource(t *testing.T) {
	runner := &fakeRunner{
		t:           t,
		ffprobePath: "/bin/ffprobe",
		ffmpegPath:  "/bin/ffmpeg",
		probeJSON:   probeJSON(1920, 1080, 60),
	}
	srcDir := t.TempDir()
	input := filepath.Join(srcDir, "clip.mp4")
	if err := os.WriteFile(input, []byte("fake video"), 0o644); err != nil {
		t.Fatal(err)
	}
	svc := newTestService(t, runner, model.CLIOptions{
		OutDir:     t.TempDir(),
		Quality:    model.PresetMedium,
		Resolution: "720",
		KeepSource: false,
	}, nil)

	if _, err := svc.RunJob(context.Background(), input); err != nil {
		t.Fatalf("RunJob() error: %v", err)
	}
	if _, err := os.Stat(input); !os.IsNotExist(err) {
		t.Errorf("source %s still present after encode with keep-source disabled", input)
	}
}

func TestRunJobInvalidResolutionSetting(t *testing.T) {
	runner := &fakeRunner{
		t:           t,
		ffprobePath: "/bin/ffprobe",
		ffmpegPath:  "/bin/ffmpeg",
		probeJSON:   probeJSON(1920, 1080, 60),
	}
	svc := newTestService(t, runner, model.CLIOptions{
		OutDir:     t.TempDir(),
		Quality:    model.PresetMedium,
		Resolution: "720p",
	}, nil)

	if _, err := svc.RunJob(context.Background(), "clip.mp4"); err == nil {
		t.Error("RunJob() accepted an unparsable resolution setting")
	}
}

func TestRunJobOvershoot(t *testing.T) {
	runner := &fakeRunner{
		t:                t,
		ffprobePath:      "/bin/ffprobe",
		ffmpegPath:       "/bin/ffmpeg",
		probeJSON:        probeJSON(1920, 1080, 60),
		ffmpegOutputSize: 3 * 1024 * 1024,
	}
	svc := newTestService(t, runner, model.CLIOptions{
		OutDir:     t.TempDir(),
		Quality:    model.PresetMedium,
		Resolution: "720",
		MaxSizeMB:  2,
		KeepSource: true,
	}, nil)

	res, err := svc.RunJob(context.Background(), "clip.mp4")
	if err != nil {
		t.Fatalf("RunJob() error: %v", err)
	}
	if !res.Overshot {
		t.Error("Overshot = false for 3MB output with 2MB target")
	}
	if res.OvershootRatio <= 1.0 {
		t.Errorf("OvershootRatio = %v, want > 1", res.OvershootRatio)
	}
}
