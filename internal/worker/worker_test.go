package worker

import (
	"archive/tar"
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/klauspost/compress/gzip"

	"github.com/harborlabs/stevedore/internal/explorer"
	"github.com/harborlabs/stevedore/internal/runner"
)

// Simulates everything a task drives externally: the mount and umount
// commands, the explorer binary, and the host mount table. Mounting a
// disk materializes the configured directory layout under the mount
// point; mounting a container materializes the configured file tree.
type fakeEnv struct {
	t *testing.T

	mu      sync.Mutex
	mounted map[string]bool
	calls   []string

	diskLayout    []string                               // Directories created under a disk mount point.
	containers    map[explorer.Family][]explorer.Container
	drift         map[explorer.Family][]explorer.Drift
	bulkIDs       []string          // Containers materialized by mount-all and export-all.
	containerTree map[string]string // Files created under a single-container mount, rel path to content.
	failMount     map[string]bool   // Container IDs whose mounts fail.
	failUmount    bool
}

func newFakeEnv(t *testing.T) *fakeEnv {
	return &fakeEnv{t: t, mounted: make(map[string]bool)}
}

func (e *fakeEnv) isMount(path string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.mounted[path]
}

func (e *fakeEnv) setMounted(path string, on bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if on {
		e.mounted[path] = true
	} else {
		delete(e.mounted, path)
	}
}

func (e *fakeEnv) activeMounts() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	var active []string
	for p := range e.mounted {
		active = append(active, p)
	}
	return active
}

func (e *fakeEnv) Run(_ context.Context, argv []string, _ time.Duration) (*runner.Result, error) {
	e.mu.Lock()
	e.calls = append(e.calls, strings.Join(argv, " "))
	e.mu.Unlock()

	switch argv[0] {
	case "mount":
		mountPoint := argv[len(argv)-1]
		e.setMounted(mountPoint, true)
		for _, dir := range e.diskLayout {
			if err := os.MkdirAll(filepath.Join(mountPoint, dir), 0o755); err != nil {
				e.t.Fatalf("populate disk: %v", err)
			}
		}
		return &runner.Result{}, nil

	case "umount":
		if e.failUmount {
			return &runner.Result{ExitCode: 32, Stderr: "target is busy"}, nil
		}
		e.setMounted(argv[1], false)
		return &runner.Result{}, nil

	case "ce":
		return e.runExplorer(argv[1:])
	}

	e.t.Fatalf("unexpected command: %v", argv)
	return nil, nil
}

func (e *fakeEnv) runExplorer(args []string) (*runner.Result, error) {
	dockerManaged := false
	flags := make(map[string]string)
	var positional []string
	for i := 0; i < len(args); i++ {
		switch {
		case args[i] == "--docker-managed":
			dockerManaged = true
		case args[i] == "--image" || args[i] == "--archive":
		case strings.HasPrefix(args[i], "--"):
			flags[args[i]] = args[i+1]
			i++
		default:
			positional = append(positional, args[i])
		}
	}

	family := explorer.Containerd
	if dockerManaged || flags["--docker-root"] != "" {
		family = explorer.Docker
	}

	switch positional[0] {
	case "list":
		return e.writeReport(flags["--output-file"], e.containers[family])
	case "drift":
		return e.writeReport(flags["--output-file"], e.drift[family])

	case "mount":
		id, dir := positional[1], positional[2]
		if e.failMount[id] {
			return &runner.Result{ExitCode: 1, Stderr: "container not found"}, nil
		}
		e.setMounted(dir, true)
		for rel, content := range e.containerTree {
			path := filepath.Join(dir, rel)
			if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
				e.t.Fatalf("populate container: %v", err)
			}
			if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
				e.t.Fatalf("populate container: %v", err)
			}
		}
		return &runner.Result{}, nil

	case "mount-all":
		for _, id := range e.bulkIDs {
			sub := filepath.Join(positional[1], id)
			if err := os.MkdirAll(sub, 0o755); err != nil {
				e.t.Fatalf("bulk mount: %v", err)
			}
			e.setMounted(sub, true)
		}
		return &runner.Result{}, nil

	case "export":
		return e.exportInto(positional[2], positional[1])
	case "export-all":
		for _, id := range e.bulkIDs {
			if res, err := e.exportInto(positional[1], id); err != nil || !res.Success() {
				return res, err
			}
		}
		return &runner.Result{}, nil
	}

	e.t.Fatalf("unexpected explorer invocation: %v", args)
	return nil, nil
}

func (e *fakeEnv) writeReport(path string, v any) (*runner.Result, error) {
	data, err := json.Marshal(v)
	if err != nil {
		e.t.Fatalf("encode report: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		e.t.Fatalf("write report: %v", err)
	}
	return &runner.Result{}, nil
}

func (e *fakeEnv) exportInto(dir, id string) (*runner.Result, error) {
	if err := os.WriteFile(filepath.Join(dir, id+".img"), []byte("raw image"), 0o644); err != nil {
		e.t.Fatalf("write export: %v", err)
	}
	return &runner.Result{}, nil
}

// Creates a worker wired to the fake environment, with private mount
// roots. Returns the worker and a fresh output directory.
func newTestWorker(t *testing.T, env *fakeEnv) (*Worker, string) {
	t.Helper()
	w := New(Config{
		ExplorerBinary:     "ce",
		DiskMountRoot:      t.TempDir(),
		ContainerMountRoot: t.TempDir(),
		Runner:             env,
		IsMount:            env.isMount,
	})
	return w, filepath.Join(t.TempDir(), "out")
}

func diskInput(t *testing.T, id string) InputFile {
	t.Helper()
	path := filepath.Join(t.TempDir(), id+".img")
	if err := os.WriteFile(path, []byte("disk image"), 0o644); err != nil {
		t.Fatalf("write disk fixture: %v", err)
	}
	return InputFile{ID: id, Path: path}
}

// Returns the contents of the run-log artifact.
func readRunLog(t *testing.T, result *Result) string {
	t.Helper()
	for _, a := range result.Artifacts {
		if a.DataType == "worker:log" {
			data, err := os.ReadFile(a.Path)
			if err != nil {
				t.Fatalf("read run log: %v", err)
			}
			return string(data)
		}
	}
	t.Fatalf("result has no run-log artifact")
	return ""
}

func artifactsOfType(result *Result, dataType string) []Artifact {
	var matched []Artifact
	for _, a := range result.Artifacts {
		if a.DataType == dataType {
			matched = append(matched, a)
		}
	}
	return matched
}

// Fails the test when a task left mounts active or scratch directories
// behind. Artifact files in the output directory are expected; anything
// else is a leak.
func assertCleanedUp(t *testing.T, env *fakeEnv, outputDir string) {
	t.Helper()

	if active := env.activeMounts(); len(active) != 0 {
		t.Errorf("mounts left active after task: %v", active)
	}

	entries, err := os.ReadDir(outputDir)
	if err != nil {
		t.Fatalf("read output dir: %v", err)
	}
	for _, entry := range entries {
		if entry.IsDir() {
			t.Errorf("scratch directory left in output dir: %s", entry.Name())
		}
	}
}

var containerdLayout = []string{"var/lib/containerd/io.containerd.snapshotter.v1.overlayfs"}
var dockerLayout = []string{"var/lib/docker/containers"}

func TestListFindsContainers(t *testing.T) {
	env := newFakeEnv(t)
	env.diskLayout = dockerLayout
	env.containers = map[explorer.Family][]explorer.Container{
		explorer.Docker: {
			{ID: "c1", Hostname: "web", Image: "nginx:latest", ContainerType: "docker"},
			{ID: "c2", Hostname: "db", Image: "postgres:16", ContainerType: "docker"},
		},
	}

	w, outputDir := newTestWorker(t, env)
	result, err := w.List(context.Background(), Request{
		InputFiles: []InputFile{diskInput(t, "disk1")},
		OutputDir:  outputDir,
		WorkflowID: "wf-42",
	})
	if err != nil {
		t.Fatalf("List: %v", err)
	}

	if result.WorkflowID != "wf-42" {
		t.Errorf("workflow ID = %q, want wf-42", result.WorkflowID)
	}

	listings := artifactsOfType(result, listDataType)
	if len(listings) != 1 {
		t.Fatalf("got %d listing artifacts, want 1", len(listings))
	}
	if listings[0].SourceID != "disk1" {
		t.Errorf("listing source = %q, want disk1", listings[0].SourceID)
	}

	data, err := os.ReadFile(listings[0].Path)
	if err != nil {
		t.Fatalf("read listing: %v", err)
	}
	var listed []explorer.Container
	if err := json.Unmarshal(data, &listed); err != nil {
		t.Fatalf("decode listing: %v", err)
	}
	if len(listed) != 2 || listed[0].ID != "c1" || listed[1].ID != "c2" {
		t.Errorf("unexpected listing contents: %+v", listed)
	}

	reports := artifactsOfType(result, listDataType+":report")
	if len(reports) != 1 {
		t.Fatalf("got %d report artifacts, want 1", len(reports))
	}
	report, err := os.ReadFile(reports[0].Path)
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	if !strings.Contains(string(report), "| c1 |") || !strings.Contains(string(report), "nginx:latest") {
		t.Errorf("report missing container rows:\n%s", report)
	}

	assertCleanedUp(t, env, outputDir)
}

func TestListSkipsDiskWithoutRuntime(t *testing.T) {
	env := newFakeEnv(t)
	env.diskLayout = []string{"home/user"}

	w, outputDir := newTestWorker(t, env)
	result, err := w.List(context.Background(), Request{
		InputFiles: []InputFile{diskInput(t, "plain")},
		OutputDir:  outputDir,
	})
	if err != nil {
		t.Fatalf("List: %v", err)
	}

	if len(result.Artifacts) != 1 {
		t.Fatalf("got %d artifacts, want only the run log", len(result.Artifacts))
	}
	if log := readRunLog(t, result); !strings.Contains(log, "Container directory not found in disk plain") {
		t.Errorf("run log missing skip line:\n%s", log)
	}

	for _, call := range env.calls {
		if strings.HasPrefix(call, "ce ") {
			t.Errorf("explorer invoked for a disk without runtime state: %s", call)
		}
	}

	assertCleanedUp(t, env, outputDir)
}

func TestDriftProducesJSONAndCSV(t *testing.T) {
	env := newFakeEnv(t)
	env.diskLayout = containerdLayout
	env.drift = map[explorer.Family][]explorer.Drift{
		explorer.Containerd: {{
			ContainerID:   "c1",
			ContainerType: "containerd",
			AddedOrModified: []explorer.DriftFile{{
				FileName: "sshd_config", FullPath: "/etc/ssh/sshd_config",
				FileSize: 1024, FileType: "file", FileSHA256: "abc123",
			}},
			InaccessibleFiles: []explorer.DriftFile{{
				FileName: "dropper.sh", FullPath: "/tmp/dropper.sh",
			}},
		}},
	}

	w, outputDir := newTestWorker(t, env)
	result, err := w.DetectDrift(context.Background(), Request{
		InputFiles: []InputFile{diskInput(t, "disk1")},
		OutputDir:  outputDir,
	})
	if err != nil {
		t.Fatalf("DetectDrift: %v", err)
	}

	found := artifactsOfType(result, driftDataType)
	if len(found) != 2 {
		t.Fatalf("got %d drift artifacts, want JSON and CSV", len(found))
	}

	var csvArtifact Artifact
	for _, a := range found {
		if strings.HasSuffix(a.Path, ".csv") {
			csvArtifact = a
		}
	}
	if csvArtifact.Path == "" {
		t.Fatalf("no CSV artifact in %+v", found)
	}

	data, err := os.ReadFile(csvArtifact.Path)
	if err != nil {
		t.Fatalf("read CSV: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 3 {
		t.Fatalf("CSV has %d lines, want header plus 2 records:\n%s", len(lines), data)
	}
	if lines[0] != strings.Join(driftCSVHeader, ",") {
		t.Errorf("CSV header = %q", lines[0])
	}
	if !strings.Contains(lines[1], driftStatusModified) || !strings.Contains(lines[1], "abc123") {
		t.Errorf("modified record = %q", lines[1])
	}
	if !strings.Contains(lines[2], driftStatusDeleted) || !strings.Contains(lines[2], "-") {
		t.Errorf("deleted record = %q", lines[2])
	}

	assertCleanedUp(t, env, outputDir)
}

func TestDriftNoFindings(t *testing.T) {
	env := newFakeEnv(t)
	env.diskLayout = containerdLayout

	w, outputDir := newTestWorker(t, env)
	result, err := w.DetectDrift(context.Background(), Request{
		InputFiles: []InputFile{diskInput(t, "disk1")},
		OutputDir:  outputDir,
	})
	if err != nil {
		t.Fatalf("DetectDrift: %v", err)
	}

	if len(result.Artifacts) != 1 {
		t.Fatalf("got %d artifacts, want only the run log", len(result.Artifacts))
	}
	if log := readRunLog(t, result); !strings.Contains(log, "No container drift detected in disk disk1") {
		t.Errorf("run log missing no-drift line:\n%s", log)
	}

	assertCleanedUp(t, env, outputDir)
}

func TestExportNamedContainer(t *testing.T) {
	env := newFakeEnv(t)
	env.diskLayout = containerdLayout

	w, outputDir := newTestWorker(t, env)
	result, err := w.Export(context.Background(), Request{
		InputFiles: []InputFile{diskInput(t, "disk1")},
		OutputDir:  outputDir,
		Config:     TaskConfig{ContainerIDs: "c7", ExportImage: true},
	})
	if err != nil {
		t.Fatalf("Export: %v", err)
	}

	exported := artifactsOfType(result, exportDataType)
	if len(exported) != 1 {
		t.Fatalf("got %d export artifacts, want 1", len(exported))
	}
	if exported[0].DisplayName != "c7.img" {
		t.Errorf("display name = %q, want c7.img", exported[0].DisplayName)
	}
	if data, err := os.ReadFile(exported[0].Path); err != nil || string(data) != "raw image" {
		t.Errorf("exported file content = %q, %v", data, err)
	}

	assertCleanedUp(t, env, outputDir)
}

func TestExportSkipsUnmountableContainer(t *testing.T) {
	env := newFakeEnv(t)
	env.diskLayout = containerdLayout
	env.failMount = map[string]bool{"c8": true}

	w, outputDir := newTestWorker(t, env)
	result, err := w.Export(context.Background(), Request{
		InputFiles: []InputFile{diskInput(t, "disk1")},
		OutputDir:  outputDir,
		Config:     TaskConfig{ContainerIDs: "c7, c8"},
	})
	if err != nil {
		t.Fatalf("Export: %v", err)
	}

	exported := artifactsOfType(result, exportDataType)
	if len(exported) != 1 || exported[0].DisplayName != "c7.img" {
		t.Fatalf("got export artifacts %+v, want only c7.img", exported)
	}
	if log := readRunLog(t, result); !strings.Contains(log, "Unable to mount container c8.") {
		t.Errorf("run log missing skip line:\n%s", log)
	}

	assertCleanedUp(t, env, outputDir)
}

func TestExportAllContainers(t *testing.T) {
	env := newFakeEnv(t)
	env.diskLayout = containerdLayout
	env.bulkIDs = []string{"c1", "c2", "c3"}

	w, outputDir := newTestWorker(t, env)
	result, err := w.Export(context.Background(), Request{
		InputFiles: []InputFile{diskInput(t, "disk1")},
		OutputDir:  outputDir,
		Config:     TaskConfig{ContainerIDs: "all"},
	})
	if err != nil {
		t.Fatalf("Export: %v", err)
	}

	exported := artifactsOfType(result, exportDataType)
	if len(exported) != 3 {
		t.Fatalf("got %d export artifacts, want 3", len(exported))
	}
	names := make(map[string]bool)
	for _, a := range exported {
		names[a.DisplayName] = true
	}
	for _, want := range []string{"c1.img", "c2.img", "c3.img"} {
		if !names[want] {
			t.Errorf("missing export artifact %s in %v", want, names)
		}
	}

	assertCleanedUp(t, env, outputDir)
}

func TestExportCustomRootMissing(t *testing.T) {
	env := newFakeEnv(t)
	env.diskLayout = containerdLayout
	env.bulkIDs = []string{"c1"}

	w, outputDir := newTestWorker(t, env)
	result, err := w.Export(context.Background(), Request{
		InputFiles: []InputFile{diskInput(t, "disk1")},
		OutputDir:  outputDir,
		Config:     TaskConfig{ContainerRoot: "opt/other/containerd"},
	})
	if err != nil {
		t.Fatalf("Export: %v", err)
	}

	if exported := artifactsOfType(result, exportDataType); len(exported) != 0 {
		t.Fatalf("custom root absent but containers exported: %+v", exported)
	}
	if log := readRunLog(t, result); !strings.Contains(log, "No container runtime root directories in disk disk1") {
		t.Errorf("run log missing custom-root line:\n%s", log)
	}

	// The default containerd root exists on the disk; a custom root must
	// keep resolution away from it.
	for _, call := range env.calls {
		if strings.Contains(call, "mount-all") {
			t.Errorf("resolution fell back to default roots: %s", call)
		}
	}

	assertCleanedUp(t, env, outputDir)
}

func TestExtractFilesAndDirectories(t *testing.T) {
	env := newFakeEnv(t)
	env.diskLayout = containerdLayout
	env.containerTree = map[string]string{
		"etc/hostname":   "webserver",
		"var/log/syslog": "log line",
	}

	w, outputDir := newTestWorker(t, env)
	result, err := w.Extract(context.Background(), Request{
		InputFiles: []InputFile{diskInput(t, "disk1")},
		OutputDir:  outputDir,
		Config: TaskConfig{
			ContainerIDs: "c1",
			Filepaths:    "/etc/hostname, /var/log, /missing.txt",
		},
	})
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}

	extracted := artifactsOfType(result, extractDataType)
	if len(extracted) != 2 {
		t.Fatalf("got %d extract artifacts, want 2", len(extracted))
	}

	byName := make(map[string]Artifact)
	for _, a := range extracted {
		byName[a.DisplayName] = a
	}

	file, ok := byName["hostname"]
	if !ok {
		t.Fatalf("no file artifact in %v", byName)
	}
	if data, err := os.ReadFile(file.Path); err != nil || string(data) != "webserver" {
		t.Errorf("extracted file content = %q, %v", data, err)
	}

	archive, ok := byName["log.tar.gz"]
	if !ok {
		t.Fatalf("no directory artifact in %v", byName)
	}
	entries := readTarGz(t, archive.Path)
	if entries["log/syslog"] != "log line" {
		t.Errorf("archive entries = %v", entries)
	}

	if log := readRunLog(t, result); !strings.Contains(log, "File /missing.txt does not exist in container.") {
		t.Errorf("run log missing missing-file line:\n%s", log)
	}

	assertCleanedUp(t, env, outputDir)
}

func TestExtractRequiresContainerID(t *testing.T) {
	env := newFakeEnv(t)

	w, outputDir := newTestWorker(t, env)
	result, err := w.Extract(context.Background(), Request{
		InputFiles: []InputFile{diskInput(t, "disk1")},
		OutputDir:  outputDir,
		Config:     TaskConfig{Filepaths: "/etc/passwd"},
	})
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}

	if len(result.Artifacts) != 1 {
		t.Fatalf("got %d artifacts, want only the run log", len(result.Artifacts))
	}
	if log := readRunLog(t, result); !strings.Contains(log, "No container ID provided") {
		t.Errorf("run log missing line:\n%s", log)
	}
	if len(env.calls) != 0 {
		t.Errorf("commands run without a container ID: %v", env.calls)
	}
}

func TestOutputDirRequired(t *testing.T) {
	env := newFakeEnv(t)

	w, _ := newTestWorker(t, env)
	_, err := w.List(context.Background(), Request{
		InputFiles: []InputFile{diskInput(t, "disk1")},
	})
	if !errors.Is(err, ErrOutput) {
		t.Fatalf("List error = %v, want ErrOutput", err)
	}
}

func TestTeardownLeavesResidualMount(t *testing.T) {
	env := newFakeEnv(t)
	env.diskLayout = dockerLayout
	env.failUmount = true

	w, outputDir := newTestWorker(t, env)
	result, err := w.List(context.Background(), Request{
		InputFiles: []InputFile{diskInput(t, "disk1")},
		OutputDir:  outputDir,
	})
	if err != nil {
		t.Fatalf("List: %v", err)
	}

	log := readRunLog(t, result)
	if !strings.Contains(log, "Error unmounting") {
		t.Errorf("run log missing unmount failure:\n%s", log)
	}
	if !strings.Contains(log, "Residual mount left in place:") {
		t.Errorf("run log missing residual line:\n%s", log)
	}

	active := env.activeMounts()
	if len(active) != 1 {
		t.Fatalf("active mounts = %v, want the stuck disk mount", active)
	}
	if _, err := os.Stat(active[0]); err != nil {
		t.Errorf("residual mount point was removed: %v", err)
	}
}

// Reads a tar.gz archive into a map of entry name to content.
func readTarGz(t *testing.T, path string) map[string]string {
	t.Helper()

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open archive: %v", err)
	}
	defer f.Close()

	gr, err := gzip.NewReader(f)
	if err != nil {
		t.Fatalf("open gzip: %v", err)
	}
	defer gr.Close()

	entries := make(map[string]string)
	tr := tar.NewReader(gr)
	for {
		hdr, err := tr.Next()
		if err != nil {
			break
		}
		if hdr.FileInfo().IsDir() {
			continue
		}
		var sb strings.Builder
		if _, err := io.Copy(&sb, tr); err != nil {
			t.Fatalf("read archive entry %s: %v", hdr.Name, err)
		}
		entries[hdr.Name] = sb.String()
	}
	return entries
}
