// Package handlers implements the HTTP API surface.
//
// The whole API lives under a single /api endpoint dispatched on the
// "action" query parameter, plus the usual health probe endpoints.
// Every action responds with a uniform JSON envelope:
//
//	{"success": true,  "data": ...}
//	{"success": false, "error": "message"}
//
// The one exception is the stream action, which hands the response off
// to a streaming delivery strategy and never writes JSON on success.
package handlers
