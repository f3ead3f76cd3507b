package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/harborlabs/stevedore/internal/paths"
	"github.com/harborlabs/stevedore/internal/worker"
)

// Represents the 'stevedore list' command.
type ListCmd struct {
	Images []string `arg:"" help:"Disk image files to analyze." type:"existingfile"`
}

// Executes the list command.
func (c *ListCmd) Run(ctx context.Context) error {
	w := taskWorker()
	return printResult(w.List(ctx, taskRequest(c.Images, worker.TaskConfig{})))
}

// Represents the 'stevedore drift' command.
type DriftCmd struct {
	Images []string `arg:"" help:"Disk image files to analyze." type:"existingfile"`
}

// Executes the drift command.
func (c *DriftCmd) Run(ctx context.Context) error {
	w := taskWorker()
	return printResult(w.DetectDrift(ctx, taskRequest(c.Images, worker.TaskConfig{})))
}

// Represents the 'stevedore export' command.
type ExportCmd struct {
	Containers    string   `short:"c" help:"Comma-separated container IDs, or 'all'." placeholder:"IDS"`
	ContainerRoot string   `help:"Custom container runtime root, relative to the disk root." placeholder:"DIR"`
	Image         bool     `help:"Export containers as raw disk images."`
	Archive       bool     `help:"Export containers as tar.gz archives."`
	Images        []string `arg:"" help:"Disk image files to analyze." type:"existingfile"`
}

// Executes the export command.
func (c *ExportCmd) Run(ctx context.Context) error {
	w := taskWorker()
	return printResult(w.Export(ctx, taskRequest(c.Images, worker.TaskConfig{
		ContainerIDs:  c.Containers,
		ContainerRoot: c.ContainerRoot,
		ExportImage:   c.Image,
		ExportArchive: c.Archive,
	})))
}

// Represents the 'stevedore extract' command.
type ExtractCmd struct {
	Container     string   `short:"c" required:"" help:"Container ID to extract from." placeholder:"ID"`
	Files         []string `short:"f" required:"" help:"Paths to extract, relative to the container root." placeholder:"PATH"`
	ContainerRoot string   `help:"Custom container runtime root, relative to the disk root." placeholder:"DIR"`
	Images        []string `arg:"" help:"Disk image files to analyze." type:"existingfile"`
}

// Executes the extract command.
func (c *ExtractCmd) Run(ctx context.Context) error {
	w := taskWorker()
	return printResult(w.Extract(ctx, taskRequest(c.Images, worker.TaskConfig{
		ContainerIDs:  c.Container,
		Filepaths:     strings.Join(c.Files, ","),
		ContainerRoot: c.ContainerRoot,
	})))
}

// Creates a worker from the root flags.
func taskWorker() *worker.Worker {
	return worker.New(worker.Config{
		ExplorerBinary: RootCmd.Explorer,
	})
}

// Builds a task request for the given disk images. Input IDs are derived
// from the image file names.
func taskRequest(images []string, cfg worker.TaskConfig) worker.Request {
	inputs := make([]worker.InputFile, 0, len(images))
	for _, path := range images {
		inputs = append(inputs, worker.InputFile{
			ID:   filepath.Base(path),
			Path: path,
		})
	}

	outputDir := RootCmd.Output
	if outputDir == "" {
		outputDir = paths.DefaultOutputDir()
	}

	return worker.Request{
		InputFiles: inputs,
		OutputDir:  outputDir,
		Config:     cfg,
	}
}

// Prints a task result to stdout as indented JSON.
func printResult(result *worker.Result, err error) error {
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(result, "", "    ")
	if err != nil {
		return err
	}

	fmt.Fprintln(os.Stdout, string(data))
	return nil
}
