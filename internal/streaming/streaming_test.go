package streaming

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, dir, name string, size int) string {
	t.Helper()

	data := make([]byte, size)
	for i := range data {
		data[i] = byte(i % 251)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("Failed to write %s: %v", name, err)
	}
	return path
}

func TestResolverAllowsPathsUnderRoot(t *testing.T) {
	root := t.TempDir()
	path := writeFile(t, root, "a.mp4", 10)

	r := NewResolver(root)
	resolved, err := r.Resolve(path)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if filepath.Base(resolved) != "a.mp4" {
		t.Errorf("Unexpected resolved path: %s", resolved)
	}
}

func TestResolverRejectsOutsideRoot(t *testing.T) {
	root := t.TempDir()
	other := t.TempDir()
	outside := writeFile(t, other, "secret.mp4", 10)

	r := NewResolver(root)
	if _, err := r.Resolve(outside); !errors.Is(err, ErrOutsideRoots) {
		t.Errorf("Expected ErrOutsideRoots, got %v", err)
	}
}

func TestResolverRejectsEscapingSymlink(t *testing.T) {
	root := t.TempDir()
	other := t.TempDir()
	target := writeFile(t, other, "secret.mp4", 10)

	link := filepath.Join(root, "innocent.mp4")
	if err := os.Symlink(target, link); err != nil {
		t.Skipf("Cannot create symlink: %v", err)
	}

	r := NewResolver(root)
	if _, err := r.Resolve(link); !errors.Is(err, ErrOutsideRoots) {
		t.Errorf("Expected symlink escape to be rejected, got %v", err)
	}
}

func TestResolverMissingFile(t *testing.T) {
	root := t.TempDir()
	r := NewResolver(root)

	_, err := r.Resolve(filepath.Join(root, "missing.mp4"))
	if err == nil {
		t.Error("Expected error for missing file")
	}
	if errors.Is(err, ErrOutsideRoots) {
		t.Error("Missing file should not be reported as outside roots")
	}
}

func TestParseRange(t *testing.T) {
	const size = 1000

	tests := []struct {
		name       string
		header     string
		wantStart  int64
		wantLength int64
		wantErr    bool
	}{
		{"Closed range", "bytes=100-199", 100, 100, false},
		{"Open-ended range", "bytes=900-", 900, 100, false},
		{"Suffix range", "bytes=-100", 900, 100, false},
		{"Suffix larger than file", "bytes=-5000", 0, 1000, false},
		{"End clamped to size", "bytes=990-2000", 990, 10, false},
		{"Full range", "bytes=0-999", 0, 1000, false},
		{"Start beyond size", "bytes=1000-", 0, 0, true},
		{"End before start", "bytes=200-100", 0, 0, true},
		{"Multiple ranges", "bytes=0-1,5-6", 0, 0, true},
		{"Wrong unit", "items=0-1", 0, 0, true},
		{"Garbage", "bytes=abc", 0, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start, length, err := parseRange(tt.header, size)
			if tt.wantErr {
				if err == nil {
					t.Errorf("parseRange(%q) expected error, got start=%d length=%d", tt.header, start, length)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseRange(%q) failed: %v", tt.header, err)
			}
			if start != tt.wantStart || length != tt.wantLength {
				t.Errorf("parseRange(%q) = (%d, %d), want (%d, %d)",
					tt.header, start, length, tt.wantStart, tt.wantLength)
			}
		})
	}
}

func TestInlineFullDelivery(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "a.mp4", 1000)

	req := httptest.NewRequest(http.MethodGet, "/stream", nil)
	rec := httptest.NewRecorder()

	s := &Inline{}
	if err := s.Deliver(rec, req, path, "video/mp4"); err != nil {
		t.Fatalf("Deliver failed: %v", err)
	}

	resp := rec.Result()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected 200, got %d", resp.StatusCode)
	}
	if got := resp.Header.Get("Content-Type"); got != "video/mp4" {
		t.Errorf("Expected video/mp4, got %s", got)
	}
	if got := resp.Header.Get("Accept-Ranges"); got != "bytes" {
		t.Errorf("Expected Accept-Ranges: bytes, got %q", got)
	}
	body, _ := io.ReadAll(resp.Body)
	if len(body) != 1000 {
		t.Errorf("Expected 1000 body bytes, got %d", len(body))
	}
}

func TestInlineRangeDelivery(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "a.mp4", 1000)

	req := httptest.NewRequest(http.MethodGet, "/stream", nil)
	req.Header.Set("Range", "bytes=100-199")
	rec := httptest.NewRecorder()

	s := &Inline{}
	if err := s.Deliver(rec, req, path, "video/mp4"); err != nil {
		t.Fatalf("Deliver failed: %v", err)
	}

	resp := rec.Result()
	if resp.StatusCode != http.StatusPartialContent {
		t.Errorf("Expected 206, got %d", resp.StatusCode)
	}
	if got := resp.Header.Get("Content-Range"); got != "bytes 100-199/1000" {
		t.Errorf("Expected Content-Range 'bytes 100-199/1000', got %q", got)
	}
	if got := resp.Header.Get("Content-Length"); got != "100" {
		t.Errorf("Expected Content-Length 100, got %q", got)
	}

	body, _ := io.ReadAll(resp.Body)
	if len(body) != 100 {
		t.Fatalf("Expected 100 body bytes, got %d", len(body))
	}
	// Verify the slice is the right window of the file.
	want := make([]byte, 100)
	for i := range want {
		want[i] = byte((100 + i) % 251)
	}
	if !bytes.Equal(body, want) {
		t.Error("Range body does not match the requested window")
	}
}

func TestInlineUnsatisfiableRange(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "a.mp4", 1000)

	req := httptest.NewRequest(http.MethodGet, "/stream", nil)
	req.Header.Set("Range", "bytes=5000-")
	rec := httptest.NewRecorder()

	s := &Inline{}
	if err := s.Deliver(rec, req, path, "video/mp4"); err == nil {
		t.Error("Expected error for unsatisfiable range")
	}

	resp := rec.Result()
	if resp.StatusCode != http.StatusRequestedRangeNotSatisfiable {
		t.Errorf("Expected 416, got %d", resp.StatusCode)
	}
	if got := resp.Header.Get("Content-Range"); got != "bytes */1000" {
		t.Errorf("Expected Content-Range 'bytes */1000', got %q", got)
	}
}

func TestInlineHead(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "a.mp4", 1000)

	req := httptest.NewRequest(http.MethodHead, "/stream", nil)
	rec := httptest.NewRecorder()

	s := &Inline{}
	if err := s.Deliver(rec, req, path, "video/mp4"); err != nil {
		t.Fatalf("Deliver failed: %v", err)
	}

	resp := rec.Result()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected 200, got %d", resp.StatusCode)
	}
	if got := resp.Header.Get("Content-Length"); got != "1000" {
		t.Errorf("Expected Content-Length 1000, got %q", got)
	}
	body, _ := io.ReadAll(resp.Body)
	if len(body) != 0 {
		t.Errorf("Expected empty body for HEAD, got %d bytes", len(body))
	}
}

func TestAccelRedirect(t *testing.T) {
	root := t.TempDir()
	path := writeFile(t, root, "movies_a.mkv", 10)

	req := httptest.NewRequest(http.MethodGet, "/stream", nil)
	req.Header.Set("Range", "bytes=0-5") // ignored in handoff mode
	rec := httptest.NewRecorder()

	s := &AccelRedirect{Mount: "/internal_media", Root: root}
	if err := s.Deliver(rec, req, path, "video/x-matroska"); err != nil {
		t.Fatalf("Deliver failed: %v", err)
	}

	resp := rec.Result()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected 200, got %d", resp.StatusCode)
	}
	if got := resp.Header.Get("X-Accel-Redirect"); got != "/internal_media/movies_a.mkv" {
		t.Errorf("Unexpected X-Accel-Redirect: %q", got)
	}
	if got := resp.Header.Get("Accept-Ranges"); got != "bytes" {
		t.Errorf("Expected Accept-Ranges bytes, got %q", got)
	}
	body, _ := io.ReadAll(resp.Body)
	if len(body) != 0 {
		t.Errorf("Expected no body in handoff mode, got %d bytes", len(body))
	}
}

func TestAccelRedirectOutsideRoot(t *testing.T) {
	root := t.TempDir()
	other := t.TempDir()
	path := writeFile(t, other, "x.mkv", 10)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/stream", nil)

	s := &AccelRedirect{Mount: "/internal_media", Root: root}
	if err := s.Deliver(rec, req, path, "video/x-matroska"); err == nil {
		t.Error("Expected error for path outside delivery root")
	}
	if rec.Result().StatusCode != http.StatusNotFound {
		t.Errorf("Expected 404, got %d", rec.Result().StatusCode)
	}
}

func TestSendfile(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "a.mp4", 10)

	req := httptest.NewRequest(http.MethodGet, "/stream", nil)
	rec := httptest.NewRecorder()

	s := &Sendfile{}
	if err := s.Deliver(rec, req, path, "video/mp4"); err != nil {
		t.Fatalf("Deliver failed: %v", err)
	}

	resp := rec.Result()
	if got := resp.Header.Get("X-Sendfile"); got != path {
		t.Errorf("Expected X-Sendfile %q, got %q", path, got)
	}
	if got := resp.Header.Get("Accept-Ranges"); got != "bytes" {
		t.Errorf("Expected Accept-Ranges bytes, got %q", got)
	}
	body, _ := io.ReadAll(resp.Body)
	if len(body) != 0 {
		t.Errorf("Expected no body in handoff mode, got %d bytes", len(body))
	}
}

func TestHandoffHead(t *testing.T) {
	root := t.TempDir()
	path := writeFile(t, root, "a.mp4", 10)

	tests := []struct {
		name           string
		strategy       Strategy
		redirectHeader string
	}{
		{"nginx", &AccelRedirect{Mount: "/internal_media", Root: root}, "X-Accel-Redirect"},
		{"sendfile", &Sendfile{}, "X-Sendfile"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodHead, "/stream", nil)
			rec := httptest.NewRecorder()

			if err := tt.strategy.Deliver(rec, req, path, "video/mp4"); err != nil {
				t.Fatalf("Deliver failed: %v", err)
			}

			resp := rec.Result()
			if resp.StatusCode != http.StatusOK {
				t.Errorf("Expected 200, got %d", resp.StatusCode)
			}
			if got := resp.Header.Get("Content-Length"); got != "10" {
				t.Errorf("Expected Content-Length 10, got %q", got)
			}
			if got := resp.Header.Get("Accept-Ranges"); got != "bytes" {
				t.Errorf("Expected Accept-Ranges bytes, got %q", got)
			}
			if got := resp.Header.Get(tt.redirectHeader); got != "" {
				t.Errorf("Expected no %s on HEAD, got %q", tt.redirectHeader, got)
			}
			body, _ := io.ReadAll(resp.Body)
			if len(body) != 0 {
				t.Errorf("Expected empty body on HEAD, got %d bytes", len(body))
			}
		})
	}
}

func TestHandoffMissingFile(t *testing.T) {
	root := t.TempDir()
	missing := filepath.Join(root, "gone.mp4")

	for _, s := range []Strategy{
		&AccelRedirect{Mount: "/internal_media", Root: root},
		&Sendfile{},
	} {
		t.Run(s.Name(), func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/stream", nil)
			rec := httptest.NewRecorder()

			if err := s.Deliver(rec, req, missing, "video/mp4"); err == nil {
				t.Error("Expected error for missing file")
			}
			if rec.Result().StatusCode != http.StatusNotFound {
				t.Errorf("Expected 404, got %d", rec.Result().StatusCode)
			}
		})
	}
}

func TestNewStrategy(t *testing.T) {
	for _, mode := range []string{"inline", "nginx", "sendfile"} {
		s, err := NewStrategy(mode, "/internal_media", "/library")
		if err != nil {
			t.Errorf("NewStrategy(%q) failed: %v", mode, err)
			continue
		}
		if s.Name() != mode {
			t.Errorf("NewStrategy(%q).Name() = %q", mode, s.Name())
		}
	}

	if _, err := NewStrategy("ftp", "", ""); err == nil {
		t.Error("Expected error for unknown mode")
	}
}
