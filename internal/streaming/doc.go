/*
Package streaming delivers asset bytes to clients.

Three delivery strategies implement the same interface: Inline serves the
file from this process with HTTP range support and timeout-protected
chunked writes; AccelRedirect and Sendfile hand the file off to a fronting
web server (nginx's X-Accel-Redirect and Apache's X-Sendfile respectively)
and send no body themselves. Handoff modes ignore Range headers because
the front end performs its own range handling on the real file. All three
modes advertise Accept-Ranges and answer HEAD with Content-Length only, so
players can probe sizes without caring which mode is configured.

Every delivery goes through the Resolver first, which canonicalizes the
stored path (following symlinks) and refuses anything that escapes the
allow-listed roots. Library paths are stored at scan time, but treating
them as trusted would let a row written through any other channel read
arbitrary files.
*/
package streaming
