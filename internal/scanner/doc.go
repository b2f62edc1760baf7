/*
Package scanner discovers media files in the library directory and imports
them as classified assets.

Scans are resumable: the library is walked in deterministic order and
processed in bounded batches, with the last-processed path persisted after
every batch. A restart mid-scan picks up where the previous batch left off
instead of rewalking the whole tree. Already-imported paths are skipped by
the database's path uniqueness guarantee, so overlapping or repeated scans
never create duplicate assets.

The scanner also owns the library maintenance operations: re-classifying
assets against an updated category hierarchy and backfilling duration and
mime type for assets imported before probing was available.
*/
package scanner
