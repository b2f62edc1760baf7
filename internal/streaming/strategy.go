package streaming

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"

	"streampay/internal/logging"
	"streampay/internal/metrics"
)

// Strategy delivers the bytes of a resolved file to an HTTP client.
type Strategy interface {
	// Name identifies the strategy in logs and metrics.
	Name() string
	// Deliver writes the response for the file at path. The path has
	// already been canonicalized and checked by a Resolver.
	Deliver(w http.ResponseWriter, r *http.Request, filePath, mimeType string) error
}

// NewStrategy returns the Strategy for a delivery mode name: "inline",
// "nginx" (X-Accel-Redirect) or "sendfile" (X-Sendfile).
func NewStrategy(mode, internalMount, libraryRoot string) (Strategy, error) {
	switch mode {
	case "inline":
		return &Inline{}, nil
	case "nginx":
		return &AccelRedirect{Mount: internalMount, Root: libraryRoot}, nil
	case "sendfile":
		return &Sendfile{}, nil
	default:
		return nil, fmt.Errorf("unknown delivery mode %q", mode)
	}
}

func recordStream(mode string, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	metrics.StreamRequestsTotal.WithLabelValues(mode, status).Inc()
}

// Inline serves file bytes from this process with HTTP range support.
type Inline struct{}

// Name implements Strategy.
func (*Inline) Name() string { return "inline" }

// Deliver implements Strategy. Single byte ranges are honored with a 206;
// a syntactically valid but unsatisfiable range gets a 416 carrying the
// total size. HEAD responses send the headers and no body.
func (s *Inline) Deliver(w http.ResponseWriter, r *http.Request, filePath, mimeType string) (err error) {
	defer func() { recordStream(s.Name(), err) }()

	f, err := os.Open(filePath)
	if err != nil {
		http.Error(w, "file unavailable", http.StatusNotFound)
		return err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		http.Error(w, "file unavailable", http.StatusInternalServerError)
		return err
	}
	size := info.Size()

	w.Header().Set("Content-Type", mimeType)
	w.Header().Set("Accept-Ranges", "bytes")

	if r.Method == http.MethodHead {
		w.Header().Set("Content-Length", strconv.FormatInt(size, 10))
		w.WriteHeader(http.StatusOK)
		return nil
	}

	start, length := int64(0), size
	statusCode := http.StatusOK

	if rangeHeader := r.Header.Get("Range"); rangeHeader != "" {
		start, length, err = parseRange(rangeHeader, size)
		if err != nil {
			w.Header().Set("Content-Range", fmt.Sprintf("bytes */%d", size))
			w.WriteHeader(http.StatusRequestedRangeNotSatisfiable)
			return err
		}
		statusCode = http.StatusPartialContent
		w.Header().Set("Content-Range", fmt.Sprintf("bytes %d-%d/%d", start, start+length-1, size))
	}

	w.Header().Set("Content-Length", strconv.FormatInt(length, 10))
	w.WriteHeader(statusCode)

	if _, err = f.Seek(start, io.SeekStart); err != nil {
		return err
	}

	tw := newTimeoutWriter(r.Context(), w, defaultTimeoutWriterConfig())
	defer tw.Close()

	_, err = io.CopyN(tw, f, length)
	if errors.Is(err, ErrClientGone) {
		// Seeking players abandon streams constantly; not a failure.
		logging.Debug("Client disconnected streaming %s", filepath.Base(filePath))
		err = nil
	}

	bytesWritten, duration := tw.Stats()
	logging.Debug("Streamed %d bytes of %s in %v", bytesWritten, filepath.Base(filePath), duration)
	return err
}

// parseRange parses a single-range "bytes=" header against the file size,
// returning the start offset and length to serve.
func parseRange(header string, size int64) (start, length int64, err error) {
	spec, ok := strings.CutPrefix(header, "bytes=")
	if !ok {
		return 0, 0, fmt.Errorf("unsupported range unit in %q", header)
	}
	if strings.Contains(spec, ",") {
		return 0, 0, fmt.Errorf("multiple ranges not supported: %q", header)
	}

	first, last, ok := strings.Cut(spec, "-")
	if !ok {
		return 0, 0, fmt.Errorf("malformed range %q", header)
	}

	if first == "" {
		// Suffix range: last n bytes.
		n, parseErr := strconv.ParseInt(last, 10, 64)
		if parseErr != nil || n <= 0 {
			return 0, 0, fmt.Errorf("malformed suffix range %q", header)
		}
		if n > size {
			n = size
		}
		return size - n, n, nil
	}

	start, err = strconv.ParseInt(first, 10, 64)
	if err != nil || start < 0 {
		return 0, 0, fmt.Errorf("malformed range start %q", header)
	}
	if start >= size {
		return 0, 0, fmt.Errorf("range start %d beyond size %d", start, size)
	}

	end := size - 1
	if last != "" {
		end, err = strconv.ParseInt(last, 10, 64)
		if err != nil || end < start {
			return 0, 0, fmt.Errorf("malformed range end %q", header)
		}
		if end >= size {
			end = size - 1
		}
	}

	return start, end - start + 1, nil
}

// AccelRedirect hands delivery off to a fronting nginx via the
// X-Accel-Redirect header. The real file must be exposed to nginx under
// Mount (an internal location mapping to Root).
type AccelRedirect struct {
	Mount string
	Root  string
}

// Name implements Strategy.
func (*AccelRedirect) Name() string { return "nginx" }

// Deliver implements Strategy. No body is written and Range headers are
// ignored; nginx performs its own range handling on the real file. HEAD is
// answered directly with Content-Length so players can probe sizes without
// a redirect round-trip.
func (s *AccelRedirect) Deliver(w http.ResponseWriter, r *http.Request, filePath, mimeType string) (err error) {
	defer func() { recordStream(s.Name(), err) }()

	info, err := os.Stat(filePath)
	if err != nil {
		http.Error(w, "file unavailable", http.StatusNotFound)
		return err
	}

	w.Header().Set("Content-Type", mimeType)
	w.Header().Set("Accept-Ranges", "bytes")

	if r.Method == http.MethodHead {
		w.Header().Set("Content-Length", strconv.FormatInt(info.Size(), 10))
		w.WriteHeader(http.StatusOK)
		return nil
	}

	rel, err := filepath.Rel(s.Root, filePath)
	if err != nil || strings.HasPrefix(rel, "..") {
		http.Error(w, "file unavailable", http.StatusNotFound)
		return fmt.Errorf("path %s is not under delivery root %s", filePath, s.Root)
	}

	w.Header().Set("X-Accel-Redirect", path.Join(s.Mount, filepath.ToSlash(rel)))
	w.WriteHeader(http.StatusOK)
	return nil
}

// Sendfile hands delivery off to a fronting Apache/lighttpd via the
// X-Sendfile header.
type Sendfile struct{}

// Name implements Strategy.
func (*Sendfile) Name() string { return "sendfile" }

// Deliver implements Strategy. As with AccelRedirect, no body is written,
// Range headers are ignored, and HEAD is answered with Content-Length only.
func (s *Sendfile) Deliver(w http.ResponseWriter, r *http.Request, filePath, mimeType string) (err error) {
	defer func() { recordStream(s.Name(), err) }()

	info, err := os.Stat(filePath)
	if err != nil {
		http.Error(w, "file unavailable", http.StatusNotFound)
		return err
	}

	w.Header().Set("Content-Type", mimeType)
	w.Header().Set("Accept-Ranges", "bytes")

	if r.Method == http.MethodHead {
		w.Header().Set("Content-Length", strconv.FormatInt(info.Size(), 10))
		w.WriteHeader(http.StatusOK)
		return nil
	}

	w.Header().Set("X-Sendfile", filePath)
	w.WriteHeader(http.StatusOK)
	return nil
}
