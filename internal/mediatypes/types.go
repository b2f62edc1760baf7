package mediatypes

import (
	"path/filepath"
	"strings"
)

// FileType classifies a filesystem entry discovered by the scanner.
type FileType string

const (
	// FileTypeVideo represents a video file.
	FileTypeVideo FileType = "video"
	// FileTypeAudio represents an audio file.
	FileTypeAudio FileType = "audio"
	// FileTypeOther represents an unknown or unsupported file type.
	FileTypeOther FileType = "other"
)

// VideoExtensions maps file extensions to whether they are recognized video formats.
var VideoExtensions = map[string]bool{
	".mp4":  true,
	".mkv":  true,
	".avi":  true,
	".mov":  true,
	".wmv":  true,
	".flv":  true,
	".webm": true,
	".m4v":  true,
	".mpeg": true,
	".mpg":  true,
	".3gp":  true,
	".ts":   true,
}

// AudioExtensions maps file extensions to whether they are recognized audio formats.
var AudioExtensions = map[string]bool{
	".mp3": true,
	".wav": true,
	".m4a": true,
	".aac": true,
}

// streamMimeTypes is the wire-level table used when serving asset bytes.
// Anything not listed is served as video/mp4; players sniff the container
// from the payload, the type only has to be close enough.
var streamMimeTypes = map[string]string{
	".mp3":  "audio/mpeg",
	".wav":  "audio/wav",
	".m4a":  "audio/mp4",
	".aac":  "audio/aac",
	".mkv":  "video/x-matroska",
	".webm": "video/webm",
}

// DefaultStreamMime is the fallback MIME type for unrecognized extensions.
const DefaultStreamMime = "video/mp4"

// GetFileType returns the FileType for a given file extension.
// The extension should be lowercase and include the leading dot (e.g., ".mp4").
// Returns FileTypeOther if the extension is not recognized.
func GetFileType(ext string) FileType {
	if VideoExtensions[ext] {
		return FileTypeVideo
	}
	if AudioExtensions[ext] {
		return FileTypeAudio
	}
	return FileTypeOther
}

// IsMediaFile returns true if the extension represents a supported media file.
func IsMediaFile(ext string) bool {
	return GetFileType(ext) != FileTypeOther
}

// StreamMime returns the MIME type to use when streaming the file at path.
func StreamMime(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	if mime, ok := streamMimeTypes[ext]; ok {
		return mime
	}
	return DefaultStreamMime
}

// NormalizeExt lowercases ext and strips a leading dot, yielding the
// form used to key transcode profiles ("mkv", not ".MKV").
func NormalizeExt(ext string) string {
	return strings.TrimPrefix(strings.ToLower(ext), ".")
}

// ExtOf returns the normalized extension of path ("mkv"), or "" if none.
func ExtOf(path string) string {
	return NormalizeExt(filepath.Ext(path))
}
