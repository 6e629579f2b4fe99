package encoder

import (
	"strings"
	"testing"

	"vidpress/internal/model"
	"vidpress/internal/scale"
)

func source(w, h int, durationSec float64, hasAudio bool) model.SourceVideo {
	return model.SourceVideo{
		InputPath:   "/tmp/input.mp4",
		DurationSec: durationSec,
		HasAudio:    hasAudio,
		Stream:      model.VideoStream{Width: w, Height: h},
	}
}

func TestBuildVideoArgs(t *testing.T) {
	tests := []struct {
		name            string
		src             model.SourceVideo
		resolution      string
		enc             model.EncodeOptions
		includeProgress bool
		wantCRF         int
		wantBitrate     int
		wantContains    []string
		wantNotContains []string
	}{
		{
			name:       "CRF mode with landscape downscale",
			src:        source(1920, 1080, 60, true),
			resolution: "720",
			enc: model.EncodeOptions{
				ModeCRF:          true,
				CRF:              23,
				AudioBitrateKbps: 128,
				Preset:           "fast",
				Profile:          "high",
			},
			wantCRF:         23,
			wantContains:    []string{"-vf", "scale=720:-2", "-crf", "23", "-preset", "fast", "-profile:v", "high", "-b:a", "128k"},
			wantNotContains: []string{"-b:v", "-progress", "-an"},
		},
		{
			name:       "portrait downscale places target in height slot",
			src:        source(1080, 1920, 60, true),
			resolution: "720",
			enc:        model.EncodeOptions{ModeCRF: true, CRF: 22, AudioBitrateKbps: 96},
			wantCRF:    22,
			wantContains: []string{
				"scale=-2:720",
			},
			wantNotContains: []string{"scale=720:-2"},
		},
		{
			name:            "source under target emits no scale filter",
			src:             source(640, 480, 60, true),
			resolution:      "720",
			enc:             model.EncodeOptions{ModeCRF: true, CRF: 22, AudioBitrateKbps: 96},
			wantCRF:         22,
			wantNotContains: []string{"-vf", "scale="},
		},
		{
			name:            "source exactly at target emits no scale filter",
			src:             source(720, 404, 60, true),
			resolution:      "720",
			enc:             model.EncodeOptions{ModeCRF: true, CRF: 22, AudioBitrateKbps: 96},
			wantCRF:         22,
			wantNotContains: []string{"-vf", "scale="},
		},
		{
			name:       "bitrate mode",
			src:        source(1280, 720, 60, true),
			resolution: "720",
			enc: model.EncodeOptions{
				ModeCRF:          false,
				MaxSizeMB:        50,
				AudioBitrateKbps: 128,
				VideoMinKbps:     500,
				VideoMaxKbps:     5000,
			},
			includeProgress: true,
			wantBitrate:     5000, // clamped to max
			wantContains:    []string{"-b:v", "5000k", "-progress", "pipe:1", "-nostats"},
			wantNotContains: []string{"-crf"},
		},
		{
			name:            "silent source drops audio",
			src:             source(1920, 1080, 60, false),
			resolution:      "720",
			enc:             model.EncodeOptions{ModeCRF: true, CRF: 22},
			wantCRF:         22,
			wantContains:    []string{"-an"},
			wantNotContains: []string{"-c:a", "-b:a"},
		},
		{
			name:       "keyframe interval",
			src:        source(1280, 720, 60, true),
			resolution: "720",
			enc:        model.EncodeOptions{ModeCRF: true, CRF: 22, AudioBitrateKbps: 128, KeyInt: 60},
			wantCRF:    22,
			wantContains: []string{
				"-g", "60", "-keyint_min", "60",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pol, err := scale.NewPolicy(tt.resolution)
			if err != nil {
				t.Fatalf("NewPolicy(%q) error: %v", tt.resolution, err)
			}

			args, gotCRF, gotBitrate := BuildVideoArgs(tt.src, pol, tt.enc, "/tmp/output.mp4", tt.includeProgress)

			if gotCRF != tt.wantCRF {
				t.Errorf("BuildVideoArgs() CRF = %v, want %v", gotCRF, tt.wantCRF)
			}
			if gotBitrate != tt.wantBitrate {
				t.Errorf("BuildVideoArgs() bitrate = %v, want %v", gotBitrate, tt.wantBitrate)
			}

			argsStr := strings.Join(args, " ")
			for _, want := range tt.wantContains {
				if !strings.Contains(argsStr, want) {
					t.Errorf("BuildVideoArgs() args missing %q, got: %v", want, args)
				}
			}
			for _, notWant := range tt.wantNotContains {
				if strings.Contains(argsStr, notWant) {
					t.Errorf("BuildVideoArgs() args should not contain %q, got: %v", notWant, args)
				}
			}

			if args[len(args)-1] != "/tmp/output.mp4" {
				t.Errorf("BuildVideoArgs() last arg = %v, want output path", args[len(args)-1])
			}
		})
	}
}
