package cmd

import (
	"context"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"vidpress/internal/config"
)

const (
	ExitOK             = 0
	ExitCLIError       = 1
	ExitMissingDep     = 2
	ExitProbeError     = 3
	ExitTranscodeError = 4
)

// ExitError wraps an error with a process exit code.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	if e.Err == nil {
		return ""
	}
	return e.Err.Error()
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "vidpress [files...]",
		Short:         "Shrink videos to a target resolution and size",
		Long:          "Vidpress compresses local video files with ffmpeg. Point it at one or more files and it probes each source, picks the output geometry for the configured resolution target, and transcodes to a compact H.264/AAC MP4 — by quality (CRF) or to fit a size budget.",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExecute(cmd, args, runMode{
				ForceTUI:   false,
				DryRunOnly: false,
			})
		},
	}

	// Persistent flags available to all subcommands
	root.PersistentFlags().StringP("out-dir", "o", ".", "Output directory")
	root.PersistentFlags().BoolP("verbose", "v", false, "Show full subprocess commands/output")
	root.PersistentFlags().String("ffmpeg", "", "Path to ffmpeg binary")
	root.PersistentFlags().Int("jobs", 2, "Max concurrent jobs in TUI")

	// Also bind run-specific flags on root, so `vidpress <file>` works directly.
	bindRunFlags(root.Flags())

	// Subcommands
	root.AddCommand(newRunCmd())
	root.AddCommand(newPlanCmd())
	root.AddCommand(newTuiCmd())
	root.AddCommand(newDoctorCmd())
	root.AddCommand(newCompletionCmd())

	return root
}

func bindRunFlags(fs *pflag.FlagSet) {
	fs.Int("max-size-mb", 0, "Target max size per video (MB). 0 uses CRF mode.")
	fs.String("quality-preset", "medium", "Quality preset: low, medium, high")
	fs.String("resolution", "", "Long-side resolution target in px (e.g., 540, 720, 1080), or 'original'; empty uses preset default")
	fs.Bool("keep-source", true, "Keep the source file after encoding")
	fs.Bool("dry-run", false, "Show plan without executing")
	fs.Bool("no-ui", false, "Disable TUI; use plain textual output")
}

// Execute runs the CLI with the provided context.
func Execute(ctx context.Context) error {
	root := newRootCmd()
	_ = config.Init(root)
	return root.ExecuteContext(ctx)
}

func ensureDir(path string) error {
	if path == "" {
		path = "."
	}
	return os.MkdirAll(filepath.Clean(path), 0o755)
}
