package download

import (
	"net/http"
	"strings"
)

// DetectContentType trusts an image/* header and sniffs data otherwise.
// Parameters are dropped and image/jpg is normalised to image/jpeg.
func DetectContentType(header string, data []byte) string {
	ct := mediaType(header)
	if !strings.HasPrefix(ct, "image/") {
		ct = mediaType(http.DetectContentType(data))
	}
	if ct == "image/jpg" {
		ct = "image/jpeg"
	}
	return ct
}

// Extension maps an image content type to the file extension used for
// local files and mirrored objects alike.
func Extension(contentType string) string {
	switch mediaType(contentType) {
	case "image/png":
		return ".png"
	case "image/jpeg", "image/jpg":
		return ".jpg"
	case "image/webp":
		return ".webp"
	case "image/gif":
		return ".gif"
	default:
		return ".bin"
	}
}

func mediaType(ct string) string {
	ct, _, _ = strings.Cut(ct, ";")
	return strings.ToLower(strings.TrimSpace(ct))
}
