// Package classify infers structured asset metadata from filesystem paths.
//
// The library is organized as a plain directory tree; nothing but the path
// itself carries metadata. Classify derives a display title from the
// filename (junk release tags stripped, title-cased) and maps the directory
// segments against the configured category hierarchy, deepest match first.
// ResolvePrice maps a category name to its configured price with parent
// fallback.
//
// All functions are pure: no I/O, no errors, always a best-effort result.
package classify
