package worker

import (
	"strings"

	"github.com/harborlabs/stevedore/internal/explorer"
)

// An input disk image handed to a task by the queue.
type InputFile struct {
	ID   string `json:"id"`   // Opaque identifier assigned by the queue.
	Path string `json:"path"` // Path to the image. Never mutated by the worker.
}

// User-supplied task configuration, mirroring the queue's task_config
// mapping. All fields are optional.
type TaskConfig struct {
	ContainerIDs  string `json:"container_ids"`  // Comma-separated IDs; empty or "all" selects every container.
	ContainerID   string `json:"container_id"`   // Singular alias for ContainerIDs, accepted for compatibility.
	Filepaths     string `json:"filepaths"`      // Comma-separated absolute paths to extract.
	ContainerRoot string `json:"container_root"` // Custom runtime root relative to the disk mount. Disables default-root fallback.
	ExportImage   bool   `json:"export_image"`   // Export containers as raw disk images.
	ExportArchive bool   `json:"export_archive"` // Export containers as tar.gz archives.
}

// Returns the requested container IDs, or nil when every container is
// selected.
func (c TaskConfig) containerIDs() []string {
	raw := strings.TrimSpace(c.ContainerIDs)
	if raw == "" {
		raw = strings.TrimSpace(c.ContainerID)
	}
	if raw == "" || strings.EqualFold(raw, "all") {
		return nil
	}

	var ids []string
	for _, id := range strings.Split(raw, ",") {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}

// Returns the requested extraction paths.
func (c TaskConfig) filepaths() []string {
	var paths []string
	for _, p := range strings.Split(c.Filepaths, ",") {
		if p = strings.TrimSpace(p); p != "" {
			paths = append(paths, p)
		}
	}
	return paths
}

// Returns the export format selection for the explorer.
func (c TaskConfig) exportOptions() explorer.ExportOptions {
	return explorer.ExportOptions{Image: c.ExportImage, Archive: c.ExportArchive}
}

// One task invocation.
type Request struct {
	InputFiles []InputFile `json:"input_files"`
	OutputDir  string      `json:"output_dir"`
	WorkflowID string      `json:"workflow_id"` // Correlation ID, echoed back unchanged.
	Config     TaskConfig  `json:"config"`
}

// An artifact produced by a task.
type Artifact struct {
	Path        string `json:"path"`
	DisplayName string `json:"display_name"`
	DataType    string `json:"data_type"`
	SourceID    string `json:"source_id,omitempty"` // ID of the input file this artifact derives from.
}

// The outcome of a task invocation. A result is always produced, even
// when every image failed: the artifact list then holds only the run log.
type Result struct {
	WorkflowID string     `json:"workflow_id"`
	Artifacts  []Artifact `json:"artifacts"`
}
