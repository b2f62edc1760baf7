package transcode

import (
	"os"
	"path/filepath"

	"streampay/internal/logging"
)

// Candidate binary locations, checked in order. Synology package paths
// come first because DSM does not put ffmpeg on PATH.
var ffmpegSearchPaths = []string{
	"/volume1/@appstore/ffmpeg/bin/ffmpeg",
	"/volume1/@appstore/VideoStation/bin/ffmpeg",
	"/volume1/@appstore/MediaServer/bin/ffmpeg",
	"/usr/bin/ffmpeg",
	"/bin/ffmpeg",
}

var ffprobeSearchPaths = []string{
	"/volume1/@appstore/ffmpeg/bin/ffprobe",
	"/volume1/@appstore/VideoStation/bin/ffprobe",
	"/volume1/@appstore/MediaServer/bin/ffprobe",
	"/usr/bin/ffprobe",
	"/bin/ffprobe",
}

// FindBinaries locates the ffmpeg and ffprobe executables. The configured
// path wins when it is actually executable; otherwise well-known locations
// are probed, falling back to bare names resolved through PATH at exec
// time. ffprobe is first looked for next to whichever ffmpeg was chosen,
// since the two ship together.
func FindBinaries(configuredFFmpeg string) (ffmpeg, ffprobe string) {
	ffmpeg = "ffmpeg"
	ffprobe = "ffprobe"

	candidates := ffmpegSearchPaths
	if configuredFFmpeg != "" {
		candidates = append([]string{configuredFFmpeg}, candidates...)
	}
	for _, path := range candidates {
		if isExecutable(path) {
			ffmpeg = path
			break
		}
	}

	if nearby := filepath.Join(filepath.Dir(ffmpeg), "ffprobe"); isExecutable(nearby) {
		ffprobe = nearby
	} else {
		for _, path := range ffprobeSearchPaths {
			if isExecutable(path) {
				ffprobe = path
				break
			}
		}
	}

	logging.Debug("Resolved binaries: ffmpeg=%s ffprobe=%s", ffmpeg, ffprobe)
	return ffmpeg, ffprobe
}

func isExecutable(path string) bool {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return false
	}
	return info.Mode()&0o111 != 0
}
