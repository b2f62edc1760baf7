package scanner

import "strings"

// cursorKey is the scan_state key holding the last-processed relative path.
const cursorKey = "scan_cursor"

// walkOrderLess reports whether path a is visited before path b by a
// deterministic depth-first walk. Paths are compared segment by segment;
// comparing the joined strings directly gets "a.b/c" vs "a/c" wrong
// because '.' sorts before '/'.
func walkOrderLess(a, b string) bool {
	as := strings.Split(a, "/")
	bs := strings.Split(b, "/")

	for i := 0; i < len(as) && i < len(bs); i++ {
		if as[i] != bs[i] {
			return as[i] < bs[i]
		}
	}
	// One is an ancestor of the other; the ancestor is visited first.
	return len(as) < len(bs)
}

// dirContains reports whether rel names the directory dir itself or a path
// inside it.
func dirContains(dir, rel string) bool {
	if dir == "." || dir == rel {
		return true
	}
	return strings.HasPrefix(rel, dir+"/")
}

// dirExhausted reports whether every path under dir was visited at or
// before cursor, meaning the walk can prune the whole subtree on resume.
func dirExhausted(dir, cursor string) bool {
	if cursor == "" || dir == "." {
		return false
	}
	if dirContains(dir, cursor) {
		// Cursor is inside this directory; later siblings of the cursor
		// path may remain.
		return false
	}
	// Cursor is elsewhere. Every descendant of dir compares to the cursor
	// the same way dir itself does, so the subtree is exhausted exactly
	// when dir precedes the cursor in walk order.
	return walkOrderLess(dir, cursor)
}
