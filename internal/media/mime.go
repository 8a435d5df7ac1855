package media

import (
	"path/filepath"
	"strings"
)

// DefaultMime is used for unknown extensions.
const DefaultMime = "application/octet-stream"

var mimeByExtension = map[string]string{
	// images
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".bmp":  "image/bmp",
	".webp": "image/webp",
	".svg":  "image/svg+xml",
	".ico":  "image/x-icon",

	// documents
	".pdf":  "application/pdf",
	".doc":  "application/msword",
	".docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	".xls":  "application/vnd.ms-excel",
	".xlsx": "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	".ppt":  "application/vnd.ms-powerpoint",
	".pptx": "application/vnd.openxmlformats-officedocument.presentationml.presentation",
	".txt":  "text/plain",
	".rtf":  "application/rtf",
	".md":   "text/markdown",
	".csv":  "text/csv",

	// audio
	".mp3":  "audio/mpeg",
	".wav":  "audio/wav",
	".ogg":  "audio/ogg",
	".m4a":  "audio/mp4",
	".flac": "audio/flac",

	// video
	".mp4":  "video/mp4",
	".avi":  "video/x-msvideo",
	".mov":  "video/quicktime",
	".wmv":  "video/x-ms-wmv",
	".flv":  "video/x-flv",
	".webm": "video/webm",

	// archives
	".zip": "application/zip",
	".rar": "application/x-rar-compressed",
	".7z":  "application/x-7z-compressed",
	".tar": "application/x-tar",
	".gz":  "application/gzip",

	// source and markup
	".html": "text/html",
	".css":  "text/css",
	".js":   "application/javascript",
	".json": "application/json",
	".xml":  "application/xml",
	".py":   "text/x-python",
	".java": "text/x-java-source",
	".cpp":  "text/x-c++src",
	".c":    "text/x-csrc",

	// other
	".bin": "application/octet-stream",
	".exe": "application/x-msdownload",
	".dmg": "application/x-apple-diskimage",
}

// MimeByExtension resolves a MIME type from an extension with or without the
// leading dot. Unknown extensions map to DefaultMime.
func MimeByExtension(ext string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext == "" {
		return DefaultMime
	}
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	if mime, ok := mimeByExtension[ext]; ok {
		return mime
	}
	return DefaultMime
}

// MimeByPath resolves a MIME type from the extension of a file path.
func MimeByPath(path string) string {
	return MimeByExtension(filepath.Ext(path))
}
