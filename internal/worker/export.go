package worker

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/harborlabs/stevedore/internal/mount"
)

// Data type tag for exported container filesystems.
const exportDataType = "image"

// Exports container filesystems from the input disk images as raw disk
// images or tar.gz archives.
//
// A request naming zero container IDs exports every container found on
// each disk. Per-container failures are logged and that container's
// artifact is omitted; per-disk failures skip the disk. The returned
// result always carries the run-log artifact.
func (w *Worker) Export(ctx context.Context, req Request) (*Result, error) {
	log, err := w.beginTask(req, "container_export")
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

	ids := req.Config.containerIDs()

	for _, input := range req.InputFiles {
		slog.Info("exporting containers", "disk", input.ID, "containers", describeSelection(ids))
		result.Artifacts = append(result.Artifacts, w.exportDisk(ctx, req, input, ids, log)...)
	}

	return result, nil
}

// Processes one disk image for export. All acquired resources are
// released before returning, whatever the outcome.
func (w *Worker) exportDisk(ctx context.Context, req Request, input InputFile, ids []string, log *runLog) []Artifact {
	s := w.newSession(log)
	defer s.teardown(ctx)

	staged, err := s.stageDisk(req.OutputDir, input)
	if err != nil {
		slog.Error("cannot stage disk image", "disk", input.ID, "error", err)
		log.Printf("Failed to stage input file %s: %v", input.Path, err)
		return nil
	}

	diskMount, err := s.mountDisk(ctx, staged, w.diskMountRoot)
	if err != nil {
		slog.Error("cannot mount disk image", "disk", input.ID, "error", err)
		log.Printf("Error mounting disk %s", input.ID)
		return nil
	}

	var artifacts []Artifact
	if len(ids) == 0 {
		artifacts = w.exportAll(ctx, req, input, s, diskMount, log)
	} else {
		for _, id := range ids {
			artifacts = append(artifacts, w.exportOne(ctx, req, input, s, diskMount, id, log)...)
		}
	}

	log.Printf("Exported %d container files.", len(artifacts))
	return artifacts
}

// Exports every container on the disk: a bulk mount resolves the
// container set, then one export-all invocation produces the artifacts.
func (w *Worker) exportAll(ctx context.Context, req Request, input InputFile, s *session, diskMount string, log *runLog) []Artifact {
	bulkRoot, err := s.containerMountDir(w.containerMountRoot)
	if err != nil {
		slog.Error("cannot create bulk mount root", "disk", input.ID, "error", err)
		log.Printf("Error preparing container mount root for disk %s", input.ID)
		return nil
	}

	mounted, err := w.resolver.MountAll(ctx, diskMount, bulkRoot, req.Config.ContainerRoot)
	if errors.Is(err, mount.ErrNotFound) {
		log.Printf("No container runtime root directories in disk %s", input.ID)
		return nil
	}
	for _, id := range mounted {
		s.trackMount(filepath.Join(bulkRoot, id))
	}

	if len(mounted) == 0 {
		log.Printf("No containers found in disk %s", input.ID)
		return nil
	}

	scratch := filepath.Join(req.OutputDir, shortID())
	if err := s.makeDir(scratch); err != nil {
		slog.Error("cannot create export scratch directory", "error", err)
		log.Printf("Error preparing export directory for disk %s", input.ID)
		return nil
	}

	if err := w.explorer.ExportAll(ctx, diskMount, scratch, req.Config.exportOptions()); err != nil {
		slog.Error("bulk export failed", "disk", input.ID, "error", err)
		log.Printf("Error exporting all containers in disk %s", filepath.Base(input.Path))
		return nil
	}

	return collectExports(scratch, req.OutputDir, input, log)
}

// Resolves and exports a single requested container. A container that
// cannot be mounted is skipped without affecting its siblings.
func (w *Worker) exportOne(ctx context.Context, req Request, input InputFile, s *session, diskMount, containerID string, log *runLog) []Artifact {
	mountDir, err := s.containerMountDir(w.containerMountRoot)
	if err != nil {
		slog.Error("cannot create container mount directory", "container", containerID, "error", err)
		log.Printf("Error preparing mount directory for container %s", containerID)
		return nil
	}

	if err := w.resolver.MountSingle(ctx, containerID, diskMount, mountDir, req.Config.ContainerRoot); err != nil {
		slog.Warn("container not mounted", "container", containerID, "disk", input.ID, "error", err)
		log.Printf("Unable to mount container %s.", containerID)
		return nil
	}
	s.trackMount(mountDir)

	scratch := filepath.Join(req.OutputDir, shortID())
	if err := s.makeDir(scratch); err != nil {
		slog.Error("cannot create export scratch directory", "error", err)
		log.Printf("Error preparing export directory for container %s", containerID)
		return nil
	}

	if err := w.explorer.Export(ctx, diskMount, containerID, scratch, req.Config.exportOptions()); err != nil {
		slog.Error("container export failed", "container", containerID, "error", err)
		log.Printf("Error exporting container %s in disk %s", containerID, filepath.Base(input.Path))
		return nil
	}

	return collectExports(scratch, req.OutputDir, input, log)
}

// Moves the files the explorer wrote into scratch to uniquely named
// output files, one artifact per exported container file.
func collectExports(scratch, outputDir string, input InputFile, log *runLog) []Artifact {
	entries, err := os.ReadDir(scratch)
	if err != nil {
		slog.Error("cannot read export directory", "path", scratch, "error", err)
		return nil
	}

	var artifacts []Artifact
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()

		dst := newOutputPath(outputDir, exportExt(name))
		if err := os.Rename(filepath.Join(scratch, name), dst); err != nil {
			slog.Error("cannot move exported file", "name", name, "error", err)
			log.Printf("Error collecting exported file %s", name)
			continue
		}

		log.Printf("Exported container %s as %s", exportContainerID(name), name)
		artifacts = append(artifacts, Artifact{
			Path:        dst,
			DisplayName: name,
			DataType:    exportDataType,
			SourceID:    input.ID,
		})
	}

	return artifacts
}

// Returns the extension of an exported file name ("img", "tar.gz").
func exportExt(name string) string {
	if _, ext, ok := strings.Cut(name, "."); ok {
		return ext
	}
	return ""
}

// Derives the container ID from an exported file name.
func exportContainerID(name string) string {
	id, _, _ := strings.Cut(name, ".")
	return id
}

// Formats the container selection for logging.
func describeSelection(ids []string) string {
	if len(ids) == 0 {
		return "all"
	}
	return strings.Join(ids, ",")
}
