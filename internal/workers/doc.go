/*
Package workers provides utilities for determining worker pool sizes in
containerized environments.

Go 1.19+ sets GOMAXPROCS from container CPU limits, while runtime.NumCPU()
still reports the host machine's count. The helpers here size pools from
GOMAXPROCS so a pod limited to 2 cores does not spawn 64 probe workers:

	// CPU-heavy work (transcoding): 1 worker per CPU
	n := workers.ForCPU(4)

	// I/O-heavy work (ffprobe, file walks): 2 workers per CPU
	n := workers.ForIO(8)

	// Mixed workloads: 1.5 workers per CPU
	n := workers.ForMixed(6)

All helpers honor the PROBE_WORKERS environment variable as an operator
override, capped by the limit argument.
*/
package workers
