// pkg/schema/media.go
package schema

import (
	"path/filepath"
	"strings"
)

// MediaKind is the caller-declared class of an uploaded drawing.
type MediaKind string

const (
	KindPaginated   MediaKind = "paginated-document"
	KindRaster      MediaKind = "raster-image"
	KindUnsupported MediaKind = "unsupported"
)

// PreviewMimeType is the only encoding previews are stored in.
const PreviewMimeType = "image/jpeg"

var rasterSubtypes = map[string]bool{
	"png":  true,
	"jpeg": true,
	"jpg":  true,
	"gif":  true,
	"webp": true,
	"bmp":  true,
	"tiff": true,
}

var rasterExtensions = map[string]bool{
	"png":  true,
	"jpg":  true,
	"jpeg": true,
	"gif":  true,
	"webp": true,
	"bmp":  true,
	"tif":  true,
	"tiff": true,
}

// ParseMediaKind classifies a declared type. It accepts the kind names
// themselves, MIME types ("application/pdf", "image/png") and bare
// extensions ("pdf", ".jpg"). Image MIME types outside the decodable set
// (svg, heic) are unsupported.
func ParseMediaKind(declared string) MediaKind {
	d := strings.ToLower(strings.TrimSpace(declared))
	d = strings.TrimPrefix(d, ".")

	switch {
	case d == "":
		return KindUnsupported
	case d == string(KindPaginated) || d == "pdf" || d == "application/pdf":
		return KindPaginated
	case d == string(KindRaster):
		return KindRaster
	case strings.HasPrefix(d, "image/"):
		if rasterSubtypes[strings.TrimPrefix(d, "image/")] {
			return KindRaster
		}
		return KindUnsupported
	case rasterExtensions[d]:
		return KindRaster
	default:
		return KindUnsupported
	}
}

// Supported reports whether previews can be derived for the kind.
func (k MediaKind) Supported() bool {
	return k == KindPaginated || k == KindRaster
}

// KindForDocument uses the stored file type first and falls back to the
// extension of the original file name.
func KindForDocument(fileType, fileName string) MediaKind {
	if kind := ParseMediaKind(fileType); kind.Supported() {
		return kind
	}
	return ParseMediaKind(Extension(fileName))
}

// Extension returns the lower-case extension of name without the dot.
func Extension(name string) string {
	return strings.TrimPrefix(strings.ToLower(filepath.Ext(name)), ".")
}

// FallbackIcon names the generic icon list views render when a drawing has
// no preview key.
func FallbackIcon(fileType string) string {
	switch ParseMediaKind(fileType) {
	case KindPaginated:
		return "pdf"
	case KindRaster:
		return "image"
	default:
		return "file"
	}
}
