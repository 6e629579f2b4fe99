// Package bitrate sizes the video stream against a file size budget.
package bitrate

// muxOverheadPct is the share of the size budget reserved for container
// overhead (moov atom, packet headers). Without it the mp4 routinely lands
// a percent or two over the requested cap.
const muxOverheadPct = 2

// ComputeVideoKbps calculates the video bitrate (kbps) that fits maxSizeMB
// after reserving mux overhead and the audio stream, clamped between
// vMinKbps and vMaxKbps. Unknown duration yields vMaxKbps.
func ComputeVideoKbps(maxSizeMB int, durationSec float64, audioKbps, vMinKbps, vMaxKbps int) int {
	if durationSec <= 0 {
		return vMaxKbps
	}
	budgetBits := float64(int64(maxSizeMB)*1024*1024*8) * (1 - muxOverheadPct/100.0)
	totalKbps := int(budgetBits / durationSec / 1000)
	return Clamp(totalKbps-audioKbps, vMinKbps, vMaxKbps)
}

// Clamp returns v constrained to [min, max].
func Clamp(v, min, max int) int {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

// SafeAudioKbps ensures audio bitrate is at least 64 kbps.
func SafeAudioKbps(v int) int {
	if v < 64 {
		return 64
	}
	return v
}
