package protocol

// An input disk image referenced by a task request.
type InputFile struct {
	ID   string `json:"id"`
	Path string `json:"path"`
}

// Task tuning options. All fields are optional.
type TaskConfig struct {
	ContainerIDs  string `json:"container_ids,omitempty"`
	ContainerID   string `json:"container_id,omitempty"` // Singular alias for ContainerIDs.
	Filepaths     string `json:"filepaths,omitempty"`
	ContainerRoot string `json:"container_root,omitempty"`
	ExportImage   bool   `json:"export_image,omitempty"`
	ExportArchive bool   `json:"export_archive,omitempty"`
}

// The payload of every task command.
type TaskRequest struct {
	InputFiles []InputFile `json:"input_files"`
	OutputDir  string      `json:"output_dir"`
	WorkflowID string      `json:"workflow_id,omitempty"`
	Config     TaskConfig  `json:"config"`
}

// One artifact in a task result.
type Artifact struct {
	Path        string `json:"path"`
	DisplayName string `json:"display_name"`
	DataType    string `json:"data_type"`
	SourceID    string `json:"source_id,omitempty"`
}

// The payload of an ok response to a task command.
type TaskResult struct {
	WorkflowID string     `json:"workflow_id,omitempty"`
	Artifacts  []Artifact `json:"artifacts"`
}

// The payload of an ok response to a status command.
type StatusResult struct {
	Running bool   `json:"running"`
	Version string `json:"version"`
	Pid     int    `json:"pid"`
	Uptime  string `json:"uptime"`
	Tasks   int    `json:"tasks"` // Total task commands processed since start.
}

// The payload of an error response.
type ErrorResult struct {
	Message string `json:"message"`
}
