// Package database implements the persistent store for the library engine:
// media assets discovered by the scanner, transcode profiles and jobs, and
// the durable scan cursor.
//
// The store is a single SQLite file opened in WAL mode. Job claiming uses a
// compare-and-set update on the job status so concurrent workers never claim
// the same job, and asset paths carry a UNIQUE constraint so concurrent
// scanners never create duplicate rows for the same canonical path.
package database
