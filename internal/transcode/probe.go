package transcode

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

// probeTimeout bounds a single ffprobe invocation.
const probeTimeout = 30 * time.Second

// FFProbe reports playback durations by shelling out to ffprobe.
type FFProbe struct {
	binary string
}

// NewFFProbe creates a prober using the given ffprobe binary.
func NewFFProbe(binary string) *FFProbe {
	return &FFProbe{binary: binary}
}

// Duration returns the playback duration of path in seconds.
//
// Container metadata is not always trustworthy: some muxers omit the
// format-level duration or write "N/A". The probe falls back from the
// format entry to the first video stream, then the first audio stream,
// and reports 0 when nothing yields a usable value.
func (p *FFProbe) Duration(ctx context.Context, path string) (float64, error) {
	if d, err := p.query(ctx, path, "-show_entries", "format=duration"); err == nil && d > 0 {
		return d, nil
	}
	if d, err := p.query(ctx, path, "-select_streams", "v:0", "-show_entries", "stream=duration"); err == nil && d > 0 {
		return d, nil
	}
	d, err := p.query(ctx, path, "-select_streams", "a:0", "-show_entries", "stream=duration")
	if err != nil {
		return 0, err
	}
	return d, nil
}

func (p *FFProbe) query(ctx context.Context, path string, entryArgs ...string) (float64, error) {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	args := append([]string{"-v", "error"}, entryArgs...)
	args = append(args, "-of", "default=noprint_wrappers=1:nokey=1", path)

	cmd := exec.CommandContext(ctx, p.binary, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return 0, fmt.Errorf("ffprobe error: %w - %s", err, strings.TrimSpace(stderr.String()))
	}

	out := strings.TrimSpace(stdout.String())
	if out == "" || strings.Contains(out, "N/A") {
		return 0, nil
	}

	duration, err := strconv.ParseFloat(out, 64)
	if err != nil {
		return 0, fmt.Errorf("ffprobe returned unparseable duration %q", out)
	}
	return duration, nil
}
