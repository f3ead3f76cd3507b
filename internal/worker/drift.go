package worker

import (
	"context"
	"log/slog"
	"path/filepath"

	"github.com/harborlabs/stevedore/internal/explorer"
	"github.com/harborlabs/stevedore/internal/mount"
)

// Data type tag for drift report artifacts.
const driftDataType = "container:drift"

// Detects filesystem drift in the containers on the input disk images.
//
// Drift is any file added to, modified in, or deleted from a container's
// writable layer since its image was unpacked. Each disk with findings
// yields a JSON artifact and a flattened CSV artifact; disks without a
// container runtime or without drift are logged and skipped.
func (w *Worker) DetectDrift(ctx context.Context, req Request) (*Result, error) {
	log, err := w.beginTask(req, "container_drift")
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

	for _, input := range req.InputFiles {
		slog.Info("detecting container drift", "disk", input.ID)
		result.Artifacts = append(result.Artifacts, w.driftDisk(ctx, req, input, log)...)
	}

	return result, nil
}

// Runs drift detection against one disk image.
func (w *Worker) driftDisk(ctx context.Context, req Request, input InputFile, log *runLog) []Artifact {
	s := w.newSession(log)
	defer s.teardown(ctx)

	diskMount, ok := w.prepareDisk(ctx, req, input, s, log)
	if !ok {
		return nil
	}

	if !mount.HasContainerRoot(diskMount) {
		log.Printf("Container directory not found in disk %s", input.ID)
		return nil
	}

	scratch := filepath.Join(req.OutputDir, shortID())
	if err := s.makeDir(scratch); err != nil {
		slog.Error("cannot create report directory", "disk", input.ID, "error", err)
		log.Printf("Error preparing report directory for disk %s", input.ID)
		return nil
	}

	var drifts []explorer.Drift
	for _, family := range []explorer.Family{explorer.Containerd, explorer.Docker} {
		out := filepath.Join(scratch, string(family)+"_drift.json")
		if err := w.explorer.Drift(ctx, diskMount, out, family); err != nil {
			slog.Warn("drift detection failed", "disk", input.ID, "family", family, "error", err)
			continue
		}
		if report, ok := explorer.ReadReport[[]explorer.Drift](out); ok {
			drifts = append(drifts, report...)
		}
	}

	records := flattenDrift(drifts)
	if len(records) == 0 {
		log.Printf("No container drift detected in disk %s", input.ID)
		return nil
	}

	var artifacts []Artifact

	jsonArtifact, err := writeJSONArtifact(req.OutputDir, "container_drift", driftDataType, input.ID, records)
	if err != nil {
		slog.Error("cannot write drift report", "disk", input.ID, "error", err)
		log.Printf("Error writing drift report for disk %s: %v", input.ID, err)
	} else {
		artifacts = append(artifacts, jsonArtifact)
	}

	csvArtifact, err := writeDriftCSV(req.OutputDir, input.ID, records)
	if err != nil {
		slog.Error("cannot write drift CSV", "disk", input.ID, "error", err)
		log.Printf("Error writing drift CSV for disk %s: %v", input.ID, err)
	} else {
		artifacts = append(artifacts, csvArtifact)
	}

	log.Printf("Found %d drifted files in disk %s", len(records), input.ID)
	return artifacts
}
