package dispatch

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"os"

	"golang.org/x/image/draw"

	"github.com/wethinkt/go-panes/internal/protocol"
)

// MaxImageEdge bounds the longer side of an attached image in pixels.
const MaxImageEdge = 2048

// LoadImage reads an image file and returns it as a prompt attachment.
// Images larger than MaxImageEdge on either side are scaled down. The
// attachment is always PNG.
func LoadImage(path string) (protocol.ImageAttachment, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return protocol.ImageAttachment{}, err
	}
	return EncodeImage(raw)
}

// EncodeImage decodes raw image bytes and re-encodes them as an attachment.
func EncodeImage(raw []byte) (protocol.ImageAttachment, error) {
	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return protocol.ImageAttachment{}, fmt.Errorf("image decode: %w", err)
	}
	img = downscale(img, MaxImageEdge)

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return protocol.ImageAttachment{}, fmt.Errorf("png encode: %w", err)
	}
	return protocol.ImageAttachment{
		Type:     "image",
		Data:     base64.StdEncoding.EncodeToString(buf.Bytes()),
		MimeType: "image/png",
	}, nil
}

func downscale(img image.Image, maxEdge int) image.Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= maxEdge && h <= maxEdge {
		return img
	}
	ratio := float64(maxEdge) / float64(max(w, h))
	newW := max(1, int(float64(w)*ratio))
	newH := max(1, int(float64(h)*ratio))
	dst := image.NewRGBA(image.Rect(0, 0, newW, newH))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Over, nil)
	return dst
}
