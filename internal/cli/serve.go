package cli

import (
	"context"
	"log/slog"

	"github.com/harborlabs/stevedore/internal/server"
	"github.com/harborlabs/stevedore/internal/worker"
)

// Represents the 'stevedore serve' command.
type ServeCmd struct {
	Socket string `short:"s" help:"Override the default Unix socket path." placeholder:"PATH"`
}

// Executes the serve command.
//
// Starts the task server on a Unix domain socket and blocks until the
// context is cancelled (e.g. via SIGINT or SIGTERM).
func (c *ServeCmd) Run(ctx context.Context) error {
	srv := server.New(server.Config{
		SocketPath: c.Socket,
		Worker: worker.Config{
			ExplorerBinary: RootCmd.Explorer,
		},
	})

	if err := srv.Start(); err != nil {
		return err
	}

	slog.Info("stevedore is running")

	<-ctx.Done()

	slog.Info("shutting down")
	return srv.Stop()
}
