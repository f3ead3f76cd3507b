package worker

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/harborlabs/stevedore/internal/explorer"
	"github.com/harborlabs/stevedore/internal/paths"
)

// Drift statuses assigned to flattened records.
const (
	driftStatusModified = "File added or modified"
	driftStatusDeleted  = "File deleted"
)

// One drifted file, flattened for tabular consumption. Inaccessible
// files surface as deletions; their metadata fields carry placeholders.
type DriftRecord struct {
	ContainerID   string `json:"container_id"`
	ContainerType string `json:"container_type"`
	DriftStatus   string `json:"drift_status"`
	FileName      string `json:"file_name"`
	FilePath      string `json:"file_path"`
	FileSize      int64  `json:"file_size"`
	FileType      string `json:"file_type"`
	FileModified  string `json:"file_modified"`
	FileAccessed  string `json:"file_accessed"`
	FileChanged   string `json:"file_changed"`
	FileBirth     string `json:"file_birth"`
	FileSHA256    string `json:"file_sha256"`
}

// Flattens per-container drift reports into one record per file.
func flattenDrift(drifts []explorer.Drift) []DriftRecord {
	var records []DriftRecord
	for _, d := range drifts {
		for _, f := range d.AddedOrModified {
			records = append(records, newDriftRecord(d, f, driftStatusModified))
		}
		for _, f := range d.InaccessibleFiles {
			records = append(records, newDriftRecord(d, f, driftStatusDeleted))
		}
	}
	return records
}

func newDriftRecord(d explorer.Drift, f explorer.DriftFile, status string) DriftRecord {
	return DriftRecord{
		ContainerID:   d.ContainerID,
		ContainerType: d.ContainerType,
		DriftStatus:   status,
		FileName:      orPlaceholder(f.FileName),
		FilePath:      orPlaceholder(f.FullPath),
		FileSize:      f.FileSize,
		FileType:      orPlaceholder(f.FileType),
		FileModified:  orPlaceholder(f.FileModified),
		FileAccessed:  orPlaceholder(f.FileAccessed),
		FileChanged:   orPlaceholder(f.FileChanged),
		FileBirth:     orPlaceholder(f.FileBirth),
		FileSHA256:    orPlaceholder(f.FileSHA256),
	}
}

// Substitutes a visible placeholder for fields the tool left empty, so
// spreadsheet consumers can tell "absent" from "blank".
func orPlaceholder(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// Column order of the drift CSV. Matches the DriftRecord JSON keys.
var driftCSVHeader = []string{
	"container_id", "container_type", "drift_status",
	"file_name", "file_path", "file_size", "file_type",
	"file_modified", "file_accessed", "file_changed", "file_birth",
	"file_sha256",
}

// Writes the flattened drift records as a CSV artifact.
func writeDriftCSV(dir, sourceID string, records []DriftRecord) (Artifact, error) {
	path := newOutputPath(dir, "csv")

	f, err := os.Create(path)
	if err != nil {
		return Artifact{}, fmt.Errorf("write drift CSV: %w", err)
	}

	cw := csv.NewWriter(f)
	if err := cw.Write(driftCSVHeader); err != nil {
		f.Close()
		return Artifact{}, fmt.Errorf("write drift CSV: %w", err)
	}
	for _, r := range records {
		row := []string{
			r.ContainerID, r.ContainerType, r.DriftStatus,
			r.FileName, r.FilePath, strconv.FormatInt(r.FileSize, 10), r.FileType,
			r.FileModified, r.FileAccessed, r.FileChanged, r.FileBirth,
			r.FileSHA256,
		}
		if err := cw.Write(row); err != nil {
			f.Close()
			return Artifact{}, fmt.Errorf("write drift CSV: %w", err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		f.Close()
		return Artifact{}, fmt.Errorf("write drift CSV: %w", err)
	}
	if err := f.Close(); err != nil {
		return Artifact{}, fmt.Errorf("write drift CSV: %w", err)
	}

	return Artifact{
		Path:        path,
		DisplayName: "container_drift.csv",
		DataType:    driftDataType,
		SourceID:    sourceID,
	}, nil
}

// Writes a Markdown table over every listed container, across all input
// disks, as the task-level report artifact.
func writeListingReport(dir string, containers []explorer.Container) (Artifact, error) {
	var b strings.Builder
	b.WriteString("# Containers\n\n")
	b.WriteString("| Namespace | ID | Hostname | Image | Container Runtime | Created | Updated |\n")
	b.WriteString("| --- | --- | --- | --- | --- | --- | --- |\n")
	for _, c := range containers {
		fmt.Fprintf(&b, "| %s | %s | %s | %s | %s | %s | %s |\n",
			mdCell(c.Namespace), mdCell(c.ID), mdCell(c.Hostname), mdCell(c.Image),
			mdCell(c.ContainerType), mdCell(c.CreatedAt), mdCell(c.UpdatedAt))
	}

	path := newOutputPath(dir, "md")
	if err := os.WriteFile(path, []byte(b.String()), paths.DefaultFileMode); err != nil {
		return Artifact{}, fmt.Errorf("write listing report: %w", err)
	}

	return Artifact{
		Path:        path,
		DisplayName: "container_list.md",
		DataType:    listDataType + ":report",
	}, nil
}

// Sanitizes a value for embedding in a Markdown table cell.
func mdCell(s string) string {
	if s == "" {
		return "-"
	}
	return strings.ReplaceAll(s, "|", "\\|")
}
