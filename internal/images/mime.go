package images

import (
	"io"
	"mime"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

const defaultExt = "jpg"

var extByMime = map[string]string{
	"image/jpeg":    "jpg",
	"image/jpg":     "jpg",
	"image/png":     "png",
	"image/webp":    "webp",
	"image/gif":     "gif",
	"image/svg+xml": "svg",
}

// extForContentType maps a Content-Type header to a file extension.
func extForContentType(value string) (string, bool) {
	mediaType, _, err := mime.ParseMediaType(strings.TrimSpace(value))
	if err != nil || mediaType == "" {
		return "", false
	}
	ext, ok := extByMime[strings.ToLower(mediaType)]
	return ext, ok
}

// sniffExt detects the extension from the leading bytes of body.
func sniffExt(body io.Reader) (string, bool) {
	detected, err := mimetype.DetectReader(body)
	if err != nil {
		return "", false
	}
	for m := detected; m != nil; m = m.Parent() {
		if ext, ok := extByMime[m.String()]; ok {
			return ext, true
		}
	}
	return "", false
}
