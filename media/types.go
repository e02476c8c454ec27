package media

import (
	"path"
	"path/filepath"
	"strings"
)

// DefaultContentType is used for assets whose extension is not recognized.
const DefaultContentType = "application/octet-stream"

// ExtensionToContentType maps file extensions (without dot) to the content type
// sent when the file is streamed as a static asset.
var ExtensionToContentType = map[string]string{
	// Images
	"png": "image/png", "jpg": "image/jpeg", "jpeg": "image/jpeg",
	"gif": "image/gif", "svg": "image/svg+xml", "webp": "image/webp",
	"ico": "image/x-icon", "avif": "image/avif",
	// Documents
	"pdf": "application/pdf",
	// Media
	"mp4": "video/mp4", "webm": "video/webm",
	"mp3": "audio/mpeg", "wav": "audio/wav", "ogg": "audio/ogg",
	// Web
	"css": "text/css; charset=utf-8",
	"js":  "text/javascript; charset=utf-8", "mjs": "text/javascript; charset=utf-8",
	"json": "application/json", "map": "application/json",
	"html": "text/html; charset=utf-8", "htm": "text/html; charset=utf-8",
	"txt": "text/plain; charset=utf-8",
	"xml": "application/xml",
	// Fonts
	"woff": "font/woff", "woff2": "font/woff2", "ttf": "font/ttf", "otf": "font/otf",
	// Markup
	"md": "text/markdown; charset=utf-8", "markdown": "text/markdown; charset=utf-8",
	// Archives
	"zip": "application/zip", "gz": "application/gzip",
}

// ContentType returns the content type for a file path based on its extension.
// Returns DefaultContentType if the extension is not recognized.
func ContentType(filePath string) string {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(filePath), "."))
	if ext == "" {
		return DefaultContentType
	}
	if contentType, ok := ExtensionToContentType[ext]; ok {
		return contentType
	}
	return DefaultContentType
}

// PageExtension is the source extension of pages served under an html route.
const PageExtension = ".md"

// IsPageSource reports whether a slash-separated path names a page source.
// The match is case-sensitive since html routes map back to PageExtension
// only; other markdown files are streamed as assets.
func IsPageSource(relPath string) bool {
	return path.Ext(relPath) == PageExtension
}
