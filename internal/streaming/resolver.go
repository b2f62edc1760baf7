package streaming

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"streampay/internal/metrics"
)

// ErrOutsideRoots indicates a path that canonicalizes outside every
// allow-listed root.
var ErrOutsideRoots = errors.New("path is outside the allowed roots")

// Resolver canonicalizes candidate file paths and enforces that they stay
// inside an allow-list of root directories.
type Resolver struct {
	roots []string
}

// NewResolver creates a Resolver for the given roots. Each root is
// canonicalized up front; roots that do not exist are kept as cleaned
// absolute paths so a root mounted later still works.
func NewResolver(roots ...string) *Resolver {
	resolved := make([]string, 0, len(roots))
	for _, root := range roots {
		if root == "" {
			continue
		}
		canonical, err := filepath.EvalSymlinks(root)
		if err != nil {
			canonical = filepath.Clean(root)
		}
		resolved = append(resolved, canonical)
	}
	return &Resolver{roots: resolved}
}

// Resolve canonicalizes path and returns it if it lies under one of the
// allowed roots. Symlinks are followed before the containment check, so a
// link pointing out of the library is rejected even though its own path
// looks contained.
func (r *Resolver) Resolve(path string) (string, error) {
	canonical, err := filepath.EvalSymlinks(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("file not found: %w", err)
		}
		return "", fmt.Errorf("failed to resolve path: %w", err)
	}

	for _, root := range r.roots {
		if canonical == root || strings.HasPrefix(canonical, root+string(filepath.Separator)) {
			return canonical, nil
		}
	}

	metrics.StreamPathRejections.Inc()
	return "", ErrOutsideRoots
}
