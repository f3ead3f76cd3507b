package worker

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/harborlabs/stevedore/internal/paths"
)

// Returns a fresh unique identifier for worker-private directory and
// file names. Short on purpose: overlay mount options embed layer paths,
// and long mount roots can overflow the kernel's option page.
func shortID() string {
	return strings.ReplaceAll(uuid.New().String(), "-", "")[:6]
}

// Returns a collision-free file path in dir. The display name of the
// artifact is carried separately; the on-disk name only has to be unique.
func newOutputPath(dir, ext string) string {
	name := strings.ReplaceAll(uuid.New().String(), "-", "")
	if ext != "" {
		name += "." + ext
	}
	return filepath.Join(dir, name)
}

// Writes v to a fresh output file in dir as indented JSON and returns
// the artifact.
func writeJSONArtifact(dir, displayName, dataType, sourceID string, v any) (Artifact, error) {
	data, err := json.MarshalIndent(v, "", "    ")
	if err != nil {
		return Artifact{}, fmt.Errorf("encode %s: %w", displayName, err)
	}

	path := newOutputPath(dir, "json")
	if err := os.WriteFile(path, data, paths.DefaultFileMode); err != nil {
		return Artifact{}, fmt.Errorf("write %s: %w", displayName, err)
	}

	return Artifact{
		Path:        path,
		DisplayName: displayName + ".json",
		DataType:    dataType,
		SourceID:    sourceID,
	}, nil
}
