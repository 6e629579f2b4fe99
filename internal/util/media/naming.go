package media

import (
	"fmt"
	"strings"

	"vidpress/internal/model"
	"vidpress/internal/util"
)

// OutputBasename builds a safe, informative base filename (without extension)
// derived from the source file and encoding options.
func OutputBasename(src model.SourceVideo, longSide int, scaled bool, maxSizeMB int, enc model.EncodeOptions) string {
	base := util.SanitizeFilename(util.BaseNoExt(src.InputPath))

	parts := []string{base}
	if scaled {
		parts = append(parts, fmt.Sprintf("%dp", longSide))
	}
	if enc.ModeCRF {
		parts = append(parts, fmt.Sprintf("CRF%d", enc.CRF))
	} else if maxSizeMB > 0 {
		parts = append(parts, fmt.Sprintf("%dMB", maxSizeMB))
	}
	return strings.Join(parts, "_")
}
