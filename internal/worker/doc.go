// Package worker implements the forensic container tasks.
//
// A [Worker] processes disk images suspected of containing containerd or
// Docker state. Each task (list, drift, export, extract) follows the same
// lifecycle per input image: the image is hard-linked into a
// worker-private staging directory, mounted read-only, containers are
// resolved and mounted as needed, artifacts are produced through the
// explorer binary, and everything is unwound in reverse acquisition
// order. Teardown is best-effort: failures are logged to the task's run
// log, never propagated, and a directory that is still a mount point is
// left in place rather than force-deleted.
//
// Failure scope is graded: a stage or disk-mount failure skips that image
// only, a resolution or export failure skips that container only, and a
// task returns an error only when it cannot create its output directory
// at all. Every run, including an empty one, yields a run-log artifact.
//
// Example usage:
//
//	w := worker.New(worker.Config{})
//	result, err := w.Export(ctx, worker.Request{
//	    InputFiles: []worker.InputFile{{ID: "disk-1", Path: "/evidence/disk.img"}},
//	    OutputDir:  "/var/lib/stevedore/output",
//	    WorkflowID: "wf-42",
//	})
package worker
