package worker

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// Data type tag for files extracted out of a container filesystem.
const extractDataType = "container:file:extract"

// Extracts named files and directories from a container's filesystem.
//
// The request must name exactly one container; additional IDs are
// ignored with a log line. Paths are interpreted relative to the
// container's root. Files are copied out verbatim; directories are
// packed into tar.gz archives. Paths missing from the container are
// logged and skipped.
func (w *Worker) Extract(ctx context.Context, req Request) (*Result, error) {
	log, err := w.beginTask(req, "container_file_extract")
	if err != nil {
		return nil, err
	}
	defer log.Close()

	result := &Result{WorkflowID: req.WorkflowID, Artifacts: []Artifact{log.artifact}}

	ids := req.Config.containerIDs()
	if len(ids) == 0 {
		slog.Warn("no container ID provided")
		log.Printf("No container ID provided for file extraction.")
		return result, nil
	}
	if len(ids) > 1 {
		log.Printf("Multiple container IDs provided; using %s.", ids[0])
	}
	containerID := ids[0]

	files := req.Config.filepaths()
	if len(files) == 0 {
		slog.Warn("no filepaths provided")
		log.Printf("No filepaths provided for extraction.")
		return result, nil
	}

	if len(req.InputFiles) == 0 {
		slog.Warn("no input files provided")
		log.Printf("No input files provided.")
		return result, nil
	}

	for _, input := range req.InputFiles {
		slog.Info("extracting container files", "disk", input.ID, "container", containerID)
		result.Artifacts = append(result.Artifacts, w.extractDisk(ctx, req, input, containerID, files, log)...)
	}

	return result, nil
}

// Mounts the container on one disk image and extracts the requested
// paths from it.
func (w *Worker) extractDisk(ctx context.Context, req Request, input InputFile, containerID string, files []string, log *runLog) []Artifact {
	s := w.newSession(log)
	defer s.teardown(ctx)

	diskMount, ok := w.prepareDisk(ctx, req, input, s, log)
	if !ok {
		return nil
	}

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

	artifacts := w.extractFiles(req, input, mountDir, files, log)
	log.Printf("Extracted %d files from container %s.", len(artifacts), containerID)
	return artifacts
}

// Copies the requested paths out of the mounted container filesystem.
func (w *Worker) extractFiles(req Request, input InputFile, containerMount string, files []string, log *runLog) []Artifact {
	var artifacts []Artifact
	for _, fp := range files {
		inside := filepath.Join(containerMount, strings.TrimPrefix(fp, "/"))

		info, err := os.Lstat(inside)
		if err != nil {
			log.Printf("File %s does not exist in container.", fp)
			continue
		}

		switch {
		case info.IsDir():
			dst := newOutputPath(req.OutputDir, "tar.gz")
			if err := tarGzDir(inside, dst); err != nil {
				slog.Error("cannot archive directory", "path", fp, "error", err)
				log.Printf("Error archiving directory %s: %v", fp, err)
				continue
			}
			artifacts = append(artifacts, Artifact{
				Path:        dst,
				DisplayName: filepath.Base(inside) + ".tar.gz",
				DataType:    extractDataType,
				SourceID:    input.ID,
			})

		case info.Mode().IsRegular():
			dst := newOutputPath(req.OutputDir, "")
			if err := copyFile(inside, dst); err != nil {
				slog.Error("cannot copy file", "path", fp, "error", err)
				log.Printf("Error extracting file %s: %v", fp, err)
				continue
			}
			artifacts = append(artifacts, Artifact{
				Path:        dst,
				DisplayName: filepath.Base(fp),
				DataType:    extractDataType,
				SourceID:    input.ID,
			})

		default:
			log.Printf("Skipping %s: not a regular file or directory.", fp)
		}
	}
	return artifacts
}
