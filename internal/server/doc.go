// Package server implements the stevedore task daemon.
//
// The daemon listens on a Unix domain socket for JSON-encoded commands
// from the stevedore CLI or an orchestrator. Each connection carries a
// single request-response exchange: the client sends a newline-delimited
// JSON envelope, the server dispatches the command, and writes the
// result back before closing the connection.
//
// Supported commands cover the four forensic tasks (container listing,
// drift detection, container export, file extraction), querying worker
// status, and initiating shutdown. Task commands are delegated to the
// worker package, which drives the container-explorer binary and the
// host mount table.
//
// Example usage:
//
//	srv := server.New(server.Config{
//	    Worker: worker.Config{
//	        ExplorerBinary: "/opt/container-explorer/bin/ce",
//	    },
//	})
//
//	if err := srv.Start(); err != nil {
//	    return err
//	}
//	defer srv.Stop()
//
//	srv.Wait()
package server
