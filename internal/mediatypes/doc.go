// Package mediatypes provides shared media type definitions for the
// library engine.
//
// It exists as a dependency-free foundation that can be imported by the
// scanner, the transcode orchestrator and the streaming dispatcher without
// creating import cycles: extension recognition for library discovery and
// the fixed extension-to-MIME table used when serving asset bytes.
package mediatypes
