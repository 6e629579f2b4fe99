package model

// QualityPreset represents a named quality configuration.
type QualityPreset string

const (
	PresetLow    QualityPreset = "low"
	PresetMedium QualityPreset = "medium"
	PresetHigh   QualityPreset = "high"
)

// CLIOptions holds user-configurable runtime options as parsed from flags.
type CLIOptions struct {
	OutDir     string
	MaxSizeMB  int           // 0 disables size mode and forces CRF mode.
	Quality    QualityPreset // low | medium | high
	Resolution string        // Long-side target in px, or "original". Empty = preset default.
	KeepSource bool          // Do not delete the source after a successful encode (default true).
	FFmpegPath string        // Optional explicit path to ffmpeg.
	DryRun     bool
	Verbose    bool

	NoUI bool // Disable TUI when true
	Jobs int  // Max concurrent jobs for TUI
}

// VideoStream describes a single video stream as probed from the source.
// Width and Height are the decoded pixel dimensions; Rotation carries the
// display-rotation metadata in signed degrees and is not applied to them.
type VideoStream struct {
	Index       int
	Width       int // pixels, as decoded
	Height      int // pixels, as decoded
	Rotation    int // signed degrees of display rotation metadata
	FrameCount  int64
	IsHDR       bool
	BitRate     int64 // bits/sec; 0 if unknown
	PixelFormat string
}

// SourceVideo represents a probed input file.
type SourceVideo struct {
	InputPath   string
	DurationSec float64 // Seconds; may be 0 if unknown.
	Container   string
	SizeBytes   int64
	Stream      VideoStream // Primary video stream.
	HasAudio    bool
}

// EncodeOptions controls ffmpeg encoding strategy.
type EncodeOptions struct {
	ModeCRF          bool   // If true, use CRF; else size-constrained bitrate mode.
	CRF              int    // CRF value for quality mode.
	MaxSizeMB        int    // Target max size for size-constrained mode.
	AudioBitrateKbps int    // Audio bitrate in kbps.
	VideoMinKbps     int    // Clamp lower bound for video bitrate.
	VideoMaxKbps     int    // Clamp upper bound for video bitrate.
	Preset           string // x264 preset, e.g., "veryfast".
	Profile          string // H.264 profile, e.g., "main".
	KeyInt           int    // GOP size; 0 to omit.
}

// OutputVideo captures encoding results.
type OutputVideo struct {
	OutputPath      string
	Bytes           int64
	UsedCRF         int // 0 if bitrate mode
	UsedBitrateKbps int // 0 if CRF mode
	Width           int // output pixels; the source dimensions when passed through unscaled
	Height          int
	Scaled          bool
}
