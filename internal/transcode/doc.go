/*
Package transcode runs the background transcode pipeline: locating the
ffmpeg/ffprobe binaries, probing media durations, and working the durable
job queue.

Jobs move PENDING -> PROCESSING -> DONE or FAILED. A job is claimed with a
status-guarded update so multiple workers can share one queue, and claims
carry a lease: a worker that dies mid-job leaves a PROCESSING row behind,
which is returned to PENDING once the lease expires. Failed jobs keep their
diagnostic output and attempt count so an operator can inspect and retry
them in bulk.
*/
package transcode
