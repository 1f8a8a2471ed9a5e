// Package mimetype maps file extensions to content types for the retrieval
// protocol. The table is static; anything unknown is served as octet-stream.
package mimetype

import (
	"path/filepath"
	"strings"
)

const Fallback = "application/octet-stream"

var byExtension = map[string]string{
	".gmi":  "text/gemini",
	".txt":  "text/plain",
	".md":   "text/plain",
	".html": "text/html",
	".css":  "text/css",
	".js":   "application/javascript",
	".json": "application/json",
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".gif":  "image/gif",
	".webp": "image/webp",
	".pdf":  "application/pdf",
	".zip":  "application/zip",
	".gz":   "application/gzip",
	".mp3":  "audio/mpeg",
	".ogg":  "audio/ogg",
	".mp4":  "video/mp4",
}

// ForName returns the content type for a file name based on its extension.
func ForName(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	if ct, ok := byExtension[ext]; ok {
		return ct
	}
	return Fallback
}
