package explorer

import (
	"encoding/json"
	"log/slog"
	"os"
)

// A container record from a "list containers" report.
//
// Field names mirror the tool's JSON output. Unrecognized fields are
// dropped; the listing is carried forward as an artifact, not interpreted.
type Container struct {
	Namespace     string `json:"Namespace"`
	ID            string `json:"ID"`
	Hostname      string `json:"Hostname"`
	Image         string `json:"Image"`
	ContainerType string `json:"ContainerType"`
	CreatedAt     string `json:"CreatedAt"`
	UpdatedAt     string `json:"UpdatedAt"`
}

// A per-container record from a "drift" report.
type Drift struct {
	ContainerID       string      `json:"ContainerID"`
	ContainerType     string      `json:"ContainerType"`
	AddedOrModified   []DriftFile `json:"AddedOrModified"`
	InaccessibleFiles []DriftFile `json:"InaccessibleFiles"`
}

// A single file entry within a drift record.
type DriftFile struct {
	FileName     string `json:"file_name"`
	FullPath     string `json:"full_path"`
	FileSize     int64  `json:"file_size"`
	FileType     string `json:"file_type"`
	FileModified string `json:"file_modified"`
	FileAccessed string `json:"file_accessed"`
	FileChanged  string `json:"file_changed"`
	FileBirth    string `json:"file_birth"`
	FileSHA256   string `json:"file_sha256"`
}

// Decodes the JSON report the explorer wrote to path.
//
// A nominal tool success with a missing or malformed report is "no data",
// not a failure: the zero value is returned with ok == false and the
// condition is logged for the operator.
func ReadReport[T any](path string) (report T, ok bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			slog.Warn("cannot read explorer report", "path", path, "error", err)
		}
		return report, false
	}

	if err := json.Unmarshal(data, &report); err != nil {
		slog.Warn("malformed explorer report", "path", path, "error", err)
		var zero T
		return zero, false
	}

	return report, true
}
