package classify

import (
	"path"
	"regexp"
	"strings"
	"unicode"
)

const (
	// DefaultCategory is assigned when no path segment matches the hierarchy.
	DefaultCategory = "GENERAL"

	maxTitleLen = 250
	maxFieldLen = 95
)

// Category is one entry of the configured category hierarchy.
type Category struct {
	Name   string  `json:"name"`
	Price  float64 `json:"price"`
	Parent string  `json:"parent,omitempty"`

	// AutoSub treats directories nested under a matched category as
	// dynamic subcategories (one level) and collections (two levels).
	AutoSub bool `json:"autoSub,omitempty"`
}

// Result is the metadata inferred from a single file path.
type Result struct {
	Title          string
	Category       string
	ParentCategory string
	Collection     string
}

// junkTokens matches release tags that carry no title information:
// resolution markers, codec names and container extensions.
var junkTokens = regexp.MustCompile(`(?i)\b(1080p|720p|4k|x264|h264|bluray|web-dl|mkv|mp4)\b`)

var whitespace = regexp.MustCompile(`\s+`)

// Classify infers title, category, parent category and collection for the
// file at absPath against the given hierarchy. Matching scans path segments
// from deepest to shallowest, so the closest ancestor wins; hierarchy order
// is irrelevant.
func Classify(absPath string, hierarchy []Category) Result {
	normalized := strings.ReplaceAll(absPath, "\\", "/")
	base := path.Base(normalized)

	segments := splitSegments(normalized)

	res := Result{
		Title:    deriveTitle(base),
		Category: DefaultCategory,
	}

	// Deepest segment first. The filename itself never names a category.
scan:
	for i := len(segments) - 1; i >= 0; i-- {
		segment := strings.TrimSpace(segments[i])
		if segment == "" || segment == base {
			continue
		}
		for _, cat := range hierarchy {
			if !strings.EqualFold(segment, cat.Name) {
				continue
			}
			res.Category = cat.Name
			if cat.AutoSub {
				if i+1 < len(segments) && segments[i+1] != base {
					res.ParentCategory = cat.Name
					res.Category = segments[i+1]
					if i+2 < len(segments) && segments[i+2] != base {
						res.Collection = segments[i+1]
						res.Category = segments[i+2]
					}
				}
			}
			break scan
		}
	}

	res.Category = truncate(res.Category, maxFieldLen)
	res.ParentCategory = truncate(res.ParentCategory, maxFieldLen)
	res.Collection = truncate(res.Collection, maxFieldLen)
	return res
}

// deriveTitle turns a raw filename into a display title: extension and junk
// tokens removed, dots and underscores treated as spaces, title-cased.
func deriveTitle(filename string) string {
	name := strings.TrimSuffix(filename, path.Ext(filename))

	name = junkTokens.ReplaceAllString(name, " ")
	name = strings.NewReplacer(".", " ", "_", " ").Replace(name)
	name = strings.TrimSpace(whitespace.ReplaceAllString(name, " "))

	return truncate(titleCase(name), maxTitleLen)
}

// titleCase lowercases s and capitalizes the first letter of each word.
func titleCase(s string) string {
	words := strings.Fields(strings.ToLower(s))
	for i, w := range words {
		r := []rune(w)
		r[0] = unicode.ToUpper(r[0])
		words[i] = string(r)
	}
	return strings.Join(words, " ")
}

func splitSegments(p string) []string {
	parts := strings.Split(p, "/")
	segments := parts[:0]
	for _, part := range parts {
		if part != "" {
			segments = append(segments, part)
		}
	}
	return segments
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
