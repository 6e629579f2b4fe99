package pipeline

import "vidpress/internal/model"

// ResolutionSetting returns the configured resolution target, falling back to
// the quality preset's default long side when unset. The returned string is
// what scale.NewPolicy consumes: "original" or a pixel count.
func ResolutionSetting(opts model.CLIOptions) string {
	if opts.Resolution != "" {
		return opts.Resolution
	}
	switch opts.Quality {
	case model.PresetLow:
		return "540"
	case model.PresetHigh:
		return "1080"
	case model.PresetMedium:
		fallthrough
	default:
		return "720"
	}
}

// DefaultCRF maps a quality preset to a default CRF.
func DefaultCRF(q model.QualityPreset) int {
	switch q {
	case model.PresetLow:
		return 26
	case model.PresetHigh:
		return 19
	case model.PresetMedium:
		fallthrough
	default:
		return 22
	}
}
