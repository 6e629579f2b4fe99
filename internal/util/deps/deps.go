package deps

import (
	"fmt"
	"os"
	"os/exec"
)

// FindFFmpeg returns the path to ffmpeg. If customPath is non-empty, it tries
// that path directly or looks it up in PATH.
func FindFFmpeg(customPath string) (string, error) {
	if customPath != "" {
		if _, err := os.Stat(customPath); err == nil {
			return customPath, nil
		}
		if p, err := exec.LookPath(customPath); err == nil {
			return p, nil
		}
		return "", fmt.Errorf("could not find ffmpeg at %q", customPath)
	}
	if p, err := exec.LookPath("ffmpeg"); err == nil {
		return p, nil
	}
	return "", fmt.Errorf("could not find ffmpeg in PATH. Please install ffmpeg.")
}

// FindFFprobe returns the path to the ffprobe binary in PATH.
func FindFFprobe() (string, error) {
	if p, err := exec.LookPath("ffprobe"); err == nil {
		return p, nil
	}
	return "", fmt.Errorf("could not find ffprobe in PATH. It ships with ffmpeg.")
}
