package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net"
	"os"
	"time"

	"github.com/harborlabs/stevedore/internal"
	"github.com/harborlabs/stevedore/internal/protocol"
	"github.com/harborlabs/stevedore/internal/worker"
)

// A worker task method.
type taskFunc func(context.Context, worker.Request) (*worker.Result, error)

// Handles a task command.
//
// Decodes the request, runs the task, and responds with the artifact
// list. Task-internal failures are already folded into the run log; only
// a missing output directory surfaces as an error response.
func (s *Server) handleTask(ctx context.Context, conn net.Conn, payload json.RawMessage, run taskFunc) {
	req, err := protocol.DecodePayload[protocol.TaskRequest](payload)
	if err != nil {
		s.respond(conn, protocol.CmdError, &protocol.ErrorResult{Message: err.Error()})
		return
	}

	result, err := run(ctx, workerRequest(req))
	if err != nil {
		s.respond(conn, protocol.CmdError, &protocol.ErrorResult{Message: err.Error()})
		return
	}

	s.mu.Lock()
	s.tasks++
	s.mu.Unlock()

	s.respond(conn, protocol.CmdOK, taskResult(result))
}

// Handles a status command.
func (s *Server) handleStatus(conn net.Conn) {
	s.mu.Lock()
	tasks := s.tasks
	s.mu.Unlock()

	uptime := time.Since(s.startedAt).Truncate(time.Second)

	s.respond(conn, protocol.CmdOK, &protocol.StatusResult{
		Running: true,
		Version: internal.VersionString(),
		Pid:     os.Getpid(),
		Uptime:  uptime.String(),
		Tasks:   tasks,
	})
}

// Handles a shutdown command.
func (s *Server) handleShutdown(conn net.Conn) {
	s.respond(conn, protocol.CmdOK, nil)
	slog.Info("shutdown requested")

	go func() {
		s.Stop()
	}()
}

// Converts a wire request into a worker request.
func workerRequest(req protocol.TaskRequest) worker.Request {
	inputs := make([]worker.InputFile, 0, len(req.InputFiles))
	for _, f := range req.InputFiles {
		inputs = append(inputs, worker.InputFile{ID: f.ID, Path: f.Path})
	}

	return worker.Request{
		InputFiles: inputs,
		OutputDir:  req.OutputDir,
		WorkflowID: req.WorkflowID,
		Config: worker.TaskConfig{
			ContainerIDs:  req.Config.ContainerIDs,
			ContainerID:   req.Config.ContainerID,
			Filepaths:     req.Config.Filepaths,
			ContainerRoot: req.Config.ContainerRoot,
			ExportImage:   req.Config.ExportImage,
			ExportArchive: req.Config.ExportArchive,
		},
	}
}

// Converts a worker result into its wire form.
func taskResult(result *worker.Result) *protocol.TaskResult {
	artifacts := make([]protocol.Artifact, 0, len(result.Artifacts))
	for _, a := range result.Artifacts {
		artifacts = append(artifacts, protocol.Artifact{
			Path:        a.Path,
			DisplayName: a.DisplayName,
			DataType:    a.DataType,
			SourceID:    a.SourceID,
		})
	}

	return &protocol.TaskResult{
		WorkflowID: result.WorkflowID,
		Artifacts:  artifacts,
	}
}
