package encoder

import (
	"fmt"
	"strconv"

	"vidpress/internal/model"
	"vidpress/internal/scale"
	"vidpress/internal/util/bitrate"
)

// BuildVideoArgs constructs ffmpeg arguments for video encoding.
// The scale policy decides whether a scale filter is emitted at all; when it
// is, the policy's filter expression is embedded verbatim.
// Returns the arguments slice and the used CRF/bitrate values.
func BuildVideoArgs(src model.SourceVideo, pol scale.Policy, enc model.EncodeOptions, outputPath string, includeProgress bool) (args []string, usedCRF int, usedBitrateKbps int) {
	args = []string{
		"-y",
		"-i", src.InputPath,
	}

	if pol.ShouldScale(src.Stream) {
		args = append(args, "-vf", "scale="+pol.Filter(src.Stream))
	}

	args = append(args,
		"-c:v", "libx264",
		"-preset", valueOr(enc.Preset, "veryfast"),
		"-profile:v", valueOr(enc.Profile, "main"),
		"-pix_fmt", "yuv420p",
	)

	if src.HasAudio {
		args = append(args, "-c:a", "aac", "-b:a", fmt.Sprintf("%dk", bitrate.SafeAudioKbps(enc.AudioBitrateKbps)))
	} else {
		args = append(args, "-an")
	}
	args = append(args, "-movflags", "+faststart")

	if enc.KeyInt > 0 {
		args = append(args, "-g", strconv.Itoa(enc.KeyInt), "-keyint_min", strconv.Itoa(enc.KeyInt))
	}

	if enc.ModeCRF {
		usedCRF = nonZero(enc.CRF, 22)
		args = append(args, "-crf", strconv.Itoa(usedCRF))
	} else {
		// bitrate mode
		audioKbps := 0
		if src.HasAudio {
			audioKbps = bitrate.SafeAudioKbps(enc.AudioBitrateKbps)
		}
		kbps := bitrate.ComputeVideoKbps(enc.MaxSizeMB, src.DurationSec, audioKbps, enc.VideoMinKbps, enc.VideoMaxKbps)
		usedBitrateKbps = kbps
		args = append(args, "-b:v", fmt.Sprintf("%dk", kbps))
	}

	if includeProgress {
		args = append(args, "-progress", "pipe:1", "-nostats")
	}

	args = append(args, outputPath)
	return args, usedCRF, usedBitrateKbps
}

func valueOr(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

func nonZero(v int, def int) int {
	if v == 0 {
		return def
	}
	return v
}
