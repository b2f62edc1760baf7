/*
Package startup handles application initialization: environment-driven
configuration, directory validation, category hierarchy loading, and the
structured startup/shutdown logging format.

All configuration comes from environment variables with sensible defaults,
so the binary runs unconfigured in development and is fully tunable in a
container deployment. LoadConfig validates what it can and fails fast on
anything the server cannot run without (a writable database directory, a
recognized delivery mode, a parseable categories file).
*/
package startup
