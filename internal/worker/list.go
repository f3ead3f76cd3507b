package worker

import (
	"context"
	"log/slog"
	"path/filepath"

	"github.com/harborlabs/stevedore/internal/explorer"
	"github.com/harborlabs/stevedore/internal/mount"
)

// Data type tag for container listing artifacts.
const listDataType = "container:list"

// Lists the containers found on the input disk images.
//
// Each disk yields one JSON artifact with the merged containerd and
// Docker listings. Disks without a recognizable container runtime are
// skipped with a log line. When any disk produced containers, a single
// human-readable report over all of them is added as a final artifact.
func (w *Worker) List(ctx context.Context, req Request) (*Result, error) {
	log, err := w.beginTask(req, "container_list")
	if err != nil {
		return nil, err
	}
	defer log.Close()

	result := &Result{WorkflowID: req.WorkflowID, Artifacts: []Artifact{log.artifact}}

	if len(req.InputFiles) == 0 {
		slog.Warn("no input files provided")
		log.Printf("No input files provided.")
		return result, nil
	}

	var all []explorer.Container
	for _, input := range req.InputFiles {
		slog.Info("listing containers", "disk", input.ID)
		containers, artifact := w.listDisk(ctx, req, input, log)
		if artifact != nil {
			result.Artifacts = append(result.Artifacts, *artifact)
			all = append(all, containers...)
		}
	}

	if len(all) > 0 {
		report, err := writeListingReport(req.OutputDir, all)
		if err != nil {
			slog.Error("cannot write listing report", "error", err)
			log.Printf("Error writing container listing report: %v", err)
		} else {
			result.Artifacts = append(result.Artifacts, report)
		}
	}

	return result, nil
}

// Lists the containers on one disk image. Returns the merged records and
// the listing artifact, or nil when the disk produced nothing.
func (w *Worker) listDisk(ctx context.Context, req Request, input InputFile, log *runLog) ([]explorer.Container, *Artifact) {
	s := w.newSession(log)
	defer s.teardown(ctx)

	diskMount, ok := w.prepareDisk(ctx, req, input, s, log)
	if !ok {
		return nil, nil
	}

	if !mount.HasContainerRoot(diskMount) {
		log.Printf("Container directory not found in disk %s", input.ID)
		return nil, nil
	}

	scratch := filepath.Join(req.OutputDir, shortID())
	if err := s.makeDir(scratch); err != nil {
		slog.Error("cannot create report directory", "disk", input.ID, "error", err)
		log.Printf("Error preparing report directory for disk %s", input.ID)
		return nil, nil
	}

	var containers []explorer.Container
	for _, family := range []explorer.Family{explorer.Containerd, explorer.Docker} {
		out := filepath.Join(scratch, string(family)+"_containers.json")
		if err := w.explorer.ListContainers(ctx, diskMount, out, family); err != nil {
			slog.Warn("listing failed", "disk", input.ID, "family", family, "error", err)
			continue
		}
		if list, ok := explorer.ReadReport[[]explorer.Container](out); ok {
			containers = append(containers, list...)
		}
	}

	if len(containers) == 0 {
		log.Printf("No containers found in disk %s", input.ID)
		return nil, nil
	}

	artifact, err := writeJSONArtifact(req.OutputDir, "container_list", listDataType, input.ID, containers)
	if err != nil {
		slog.Error("cannot write container listing", "disk", input.ID, "error", err)
		log.Printf("Error writing container listing for disk %s: %v", input.ID, err)
		return nil, nil
	}

	log.Printf("Found %d containers in disk %s", len(containers), input.ID)
	return containers, &artifact
}

// Stages and mounts one disk image, logging the failure modes that skip
// the disk. Shared by the read-only report tasks.
func (w *Worker) prepareDisk(ctx context.Context, req Request, input InputFile, s *session, log *runLog) (string, bool) {
	staged, err := s.stageDisk(req.OutputDir, input)
	if err != nil {
		slog.Error("cannot stage disk image", "disk", input.ID, "error", err)
		log.Printf("Failed to stage input file %s: %v", input.Path, err)
		return "", false
	}

	diskMount, err := s.mountDisk(ctx, staged, w.diskMountRoot)
	if err != nil {
		slog.Error("cannot mount disk image", "disk", input.ID, "error", err)
		log.Printf("Error mounting disk %s", input.ID)
		return "", false
	}

	return diskMount, true
}
