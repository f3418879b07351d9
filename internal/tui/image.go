package tui

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/webp"
)

// headerSample is enough base64 to cover the header of common formats.
const headerSample = 2048

// imageDimensions decodes only the image header. It returns 0, 0 when the
// data is not a recognised image.
func imageDimensions(data string) (w, h int) {
	sample := data
	if len(sample) > headerSample {
		sample = sample[:headerSample]
	}
	raw, err := base64.StdEncoding.DecodeString(sample)
	if err != nil {
		// A cut sample can end mid-quantum.
		raw, err = base64.RawStdEncoding.DecodeString(sample[:len(sample)/4*4])
		if err != nil {
			return 0, 0
		}
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(raw))
	if err != nil {
		return 0, 0
	}
	return cfg.Width, cfg.Height
}

func formatByteSize(n int) string {
	switch {
	case n >= 1_000_000:
		return fmt.Sprintf("%.1fMB", float64(n)/1_000_000)
	case n >= 1_000:
		return fmt.Sprintf("%.0fKB", float64(n)/1_000)
	default:
		return fmt.Sprintf("%dB", n)
	}
}

// imageSummary is the one-line placeholder for an image attachment.
func imageSummary(mimeType, data string) string {
	if mimeType == "" {
		mimeType = "image"
	}
	size := formatByteSize(base64.StdEncoding.DecodedLen(len(data)))
	if w, h := imageDimensions(data); w > 0 {
		return fmt.Sprintf("[%s %dx%d, %s]", mimeType, w, h, size)
	}
	return fmt.Sprintf("[%s %s]", mimeType, size)
}
