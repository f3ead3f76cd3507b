package cli

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/lmittmann/tint"

	"github.com/harborlabs/stevedore/internal"
)

// Represents the root command for the stevedore worker.
var RootCmd struct {
	Quiet    bool   `short:"q" help:"Suppress informational output."`
	Verbose  bool   `short:"v" help:"Enable verbose output."`
	Debug    bool   `short:"d" help:"Enable debug output."`
	Explorer string `short:"e" help:"Path to the container-explorer binary." placeholder:"PATH"`
	Output   string `short:"o" help:"Output directory for task artifacts." placeholder:"DIR"`

	Serve   ServeCmd   `cmd:"" help:"Start the task daemon."`
	List    ListCmd    `cmd:"" help:"List containers found on disk images."`
	Drift   DriftCmd   `cmd:"" help:"Detect filesystem drift in containers on disk images."`
	Export  ExportCmd  `cmd:"" help:"Export container filesystems from disk images."`
	Extract ExtractCmd `cmd:"" help:"Extract files from a container on disk images."`
	Version VersionCmd `cmd:"" help:"Show version information."`
}

// Parses arguments, configures logging, and runs the selected subcommand.
func Execute() error {

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	kongCtx := kong.Parse(&RootCmd,
		kong.Name(internal.Name),
		kong.Description("Forensic container analysis worker.\n\nMounts disk images, resolves the container runtimes on them, and extracts container artifacts."),
		kong.UsageOnError(),
		kong.Vars{
			"version": internal.VersionString(),
		},
		kong.BindTo(ctx, (*context.Context)(nil)),
	)

	configureLogger()

	return kongCtx.Run()
}

// Configures the global logger based on CLI flags.
func configureLogger() {
	debug := RootCmd.Debug || internal.IsDebug()
	quiet := RootCmd.Quiet || internal.IsQuiet()

	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	} else if quiet {
		level = slog.LevelWarn
	}

	verbose := RootCmd.Verbose || internal.IsVerbose()

	handler := tint.NewHandler(os.Stderr, &tint.Options{
		Level:     level,
		AddSource: verbose,
		NoColor:   !isatty(os.Stderr),
	})
	slog.SetDefault(slog.New(handler))
}

// Whether the given file is an interactive terminal.
func isatty(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return (info.Mode() & os.ModeCharDevice) != 0
}
