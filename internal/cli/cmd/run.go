package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"

	"vidpress/internal/model"
	"vidpress/internal/pipeline"
	"vidpress/internal/scale"
	"vidpress/internal/ui"
	"vidpress/internal/util"
	"vidpress/internal/util/deps"
)

type runMode struct {
	ForceTUI   bool
	DryRunOnly bool
}

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "run [files...]",
		Short:         "Probe and compress video files",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.MinimumNArgs(1),
		PreRunE:       runPreRun,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExecute(cmd, args, runMode{
				ForceTUI:   false,
				DryRunOnly: false,
			})
		},
	}
	// Bind same flags as root for explicit subcommand usage
	bindRunFlags(cmd.Flags())
	_ = cmd.Flags().MarkDeprecated("dry-run", "use 'vidpress plan' instead")
	return cmd
}

type ctxKey string

const runInputsKey ctxKey = "runInputs"

type runInputs struct {
	Inputs    []string
	Options   model.CLIOptions
	PresetCRF int
}

func runPreRun(cmd *cobra.Command, args []string) error {
	inputs, opts, presetCRF, err := assembleRunInputs(cmd, args)
	if err != nil {
		return &ExitError{Code: ExitCLIError, Err: err}
	}
	ctx := context.WithValue(cmd.Context(), runInputsKey, runInputs{
		Inputs:    inputs,
		Options:   opts,
		PresetCRF: presetCRF,
	})
	cmd.SetContext(ctx)
	return nil
}

func assembleRunInputs(cmd *cobra.Command, args []string) ([]string, model.CLIOptions, int, error) {
	// Persistent options come through viper, which layers an explicit flag
	// over VIDPRESS_* env over the config file over the flag default.
	outDir := viper.GetString("out_dir")
	if outDir == "" {
		outDir = "."
	}
	verbose := viper.GetBool("verbose")
	ffmpegPath := viper.GetString("ffmpeg")
	jobs := viper.GetInt("jobs")
	if jobs <= 0 {
		jobs = 2
	}

	// Run flags
	maxSizeMB, _ := cmd.Flags().GetInt("max-size-mb")
	quality, _ := cmd.Flags().GetString("quality-preset")
	resolution, _ := cmd.Flags().GetString("resolution")
	keepSource, _ := cmd.Flags().GetBool("keep-source")
	dryRun, _ := cmd.Flags().GetBool("dry-run")
	noUI, _ := cmd.Flags().GetBool("no-ui")

	quality = strings.ToLower(quality)
	switch quality {
	case string(model.PresetLow), string(model.PresetMedium), string(model.PresetHigh):
	default:
		return nil, model.CLIOptions{}, 0, fmt.Errorf("invalid --quality-preset: %q (valid: low|medium|high)", quality)
	}

	// The resolution setting is a configuration value; reject bad ones before
	// touching any file.
	if resolution != "" {
		if _, err := scale.NewPolicy(resolution); err != nil {
			return nil, model.CLIOptions{}, 0, err
		}
	}

	// Input validation
	var inputs []string
	for _, raw := range args {
		if !util.IsRegularFile(raw) {
			return nil, model.CLIOptions{}, 0, fmt.Errorf("not a readable file: %q", raw)
		}
		inputs = append(inputs, raw)
	}

	if maxSizeMB < 0 {
		maxSizeMB = 0
	}

	outDir = filepath.Clean(outDir)

	preset := model.QualityPreset(quality)
	opts := model.CLIOptions{
		OutDir:     outDir,
		MaxSizeMB:  maxSizeMB,
		Quality:    preset,
		Resolution: resolution,
		KeepSource: keepSource,
		FFmpegPath: ffmpegPath,
		DryRun:     dryRun,
		Verbose:    verbose,
		NoUI:       noUI,
		Jobs:       jobs,
	}
	return inputs, opts, pipeline.DefaultCRF(preset), nil
}

func runExecute(cmd *cobra.Command, args []string, mode runMode) error {
	// Grab inputs from context; if not present (root directly called without PreRunE), assemble now.
	var in runInputs
	if v := cmd.Context().Value(runInputsKey); v != nil {
		in = v.(runInputs)
	} else {
		inputs, opts, presetCRF, err := assembleRunInputs(cmd, args)
		if err != nil {
			return &ExitError{Code: ExitCLIError, Err: err}
		}
		in = runInputs{Inputs: inputs, Options: opts, PresetCRF: presetCRF}
	}

	if err := ensureDir(in.Options.OutDir); err != nil {
		return &ExitError{Code: ExitCLIError, Err: fmt.Errorf("failed to create output dir: %v", err)}
	}

	// TUI path (forced or auto if TTY and not disabled)
	useTUI := mode.ForceTUI || (!in.Options.NoUI && isTerminal())
	if useTUI && !mode.DryRunOnly {
		if err := ui.Run(cmd.Context(), in.Inputs, in.Options); err != nil {
			return &ExitError{Code: ExitCLIError, Err: err}
		}
		return nil
	}

	// Non-UI path
	ffmpegPath, ferr := deps.FindFFmpeg(in.Options.FFmpegPath)
	if ferr != nil {
		return &ExitError{Code: ExitMissingDep, Err: ferr}
	}
	ffprobePath, perr := deps.FindFFprobe()
	if perr != nil {
		return &ExitError{Code: ExitMissingDep, Err: perr}
	}

	if mode.DryRunOnly {
		in.Options.DryRun = true
		in.Options.NoUI = true
	}

	for _, input := range in.Inputs {
		if err := processOne(cmd.Context(), input, in, ffprobePath, ffmpegPath); err != nil {
			var ee *ExitError
			if errors.As(err, &ee) {
				return ee
			}
			return &ExitError{Code: ExitCLIError, Err: err}
		}
	}
	return nil
}

func isTerminal() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

func processOne(ctx context.Context, input string, in runInputs, ffprobePath, ffmpegPath string) error {
	svc := pipeline.NewService(
		pipeline.WithFFprobePath(ffprobePath),
		pipeline.WithFFmpegPath(ffmpegPath),
		pipeline.WithCLIOptions(in.Options),
		pipeline.WithPresetCRF(in.PresetCRF),
	)

	res, err := svc.RunJob(ctx, input)
	if err != nil {
		switch {
		case errors.Is(err, pipeline.ErrProbe):
			return &ExitError{Code: ExitProbeError, Err: err}
		case errors.Is(err, pipeline.ErrEncode):
			return &ExitError{Code: ExitTranscodeError, Err: err}
		}
		return &ExitError{Code: ExitCLIError, Err: err}
	}

	if res.Planned {
		printPlan(res)
		return nil
	}

	if res.Overshot {
		fmt.Fprintf(os.Stderr, "warning: output size (%0.2f MB) exceeds target (%d MB). Consider lowering bitrate or preset.\n",
			float64(res.Output.Bytes)/(1024*1024), in.Options.MaxSizeMB)
	}

	fmt.Printf("Saved: %s (%0.2f MB)\n", res.Output.OutputPath, float64(res.Output.Bytes)/(1024*1024))
	return nil
}

// printPlan outputs a dry-run plan of actions without executing them.
func printPlan(res pipeline.Result) {
	pl := res.Plan
	fmt.Println("Dry-run plan:")
	fmt.Printf("- Input:           %s\n", pl.InputPath)
	fmt.Printf("- Source:          %dx%d (%.1fs)\n", pl.SourceSize.Width, pl.SourceSize.Height, pl.DurationSec)
	fmt.Printf("- FFprobe:         %s\n", pl.FFprobePath)
	fmt.Printf("- FFmpeg:          %s\n", pl.FFmpegPath)
	fmt.Printf("- Output path:     %s\n", pl.OutputPath)
	fmt.Printf("- Target:          %dp (long side)\n", pl.TargetResolution)
	if pl.WillScale {
		fmt.Printf("- Scale filter:    %s\n", pl.ScaleExpression)
		fmt.Printf("- Output size:     %dx%d\n", pl.OutputSize.Width, pl.OutputSize.Height)
	} else {
		fmt.Printf("- Scale filter:    none (source within target)\n")
	}
	if pl.Enc.ModeCRF {
		fmt.Printf("- Mode:            CRF %d\n", pl.Enc.CRF)
	} else {
		fmt.Printf("- Mode:            Size-constrained (target %d MB), est video bitrate ~ %d kbps\n", pl.Enc.MaxSizeMB, pl.EstVideoBitrateKbps)
	}
}
