package explorer

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/harborlabs/stevedore/internal/paths"
	"github.com/harborlabs/stevedore/internal/runner"
)

// Default deadline for a single explorer invocation. Exports of large
// containers dominate; mounts and listings finish far sooner.
const DefaultTimeout = 30 * time.Minute

// Maximum stderr length included in error messages.
const stderrExcerptLen = 512

// Identifies which container runtime's on-disk layout an operation
// targets.
type Family string

const (
	Containerd Family = "containerd"
	Docker     Family = "docker"
)

// Selects the export output format. The tool accepts both flags at once,
// producing one artifact per format. The zero value defaults to a raw
// disk image.
type ExportOptions struct {
	Image   bool // Export as a raw .img disk image.
	Archive bool // Export as a .tar.gz archive.
}

// Returns the flags selecting the export format.
func (o ExportOptions) flags() []string {
	var flags []string
	if o.Image {
		flags = append(flags, "--image")
	}
	if o.Archive {
		flags = append(flags, "--archive")
	}
	if len(flags) == 0 {
		flags = append(flags, "--image")
	}
	return flags
}

// Holds client configuration. Zero values select defaults, so test doubles
// can substitute a fake binary or runner without touching the environment.
type Config struct {
	Binary  string        // Path to the container-explorer binary. Empty uses [paths.DefaultExplorerBinary].
	Runner  runner.Runner // Command runner. Nil uses a local subprocess runner.
	Timeout time.Duration // Per-invocation deadline. Zero uses [DefaultTimeout].
}

// Invokes the container-explorer binary.
type Client struct {
	binary  string
	runner  runner.Runner
	timeout time.Duration
}

// Creates an explorer client.
func New(cfg Config) *Client {
	binary := cfg.Binary
	if binary == "" {
		binary = paths.DefaultExplorerBinary
	}

	r := cfg.Runner
	if r == nil {
		r = runner.New()
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	return &Client{binary: binary, runner: r, timeout: timeout}
}

// Writes a JSON listing of all containers under the disk mount to
// outputFile.
//
// The listing covers one runtime family per call: the tool defaults to
// containerd and switches to Docker-managed state with --docker-managed.
func (c *Client) ListContainers(ctx context.Context, imageRoot, outputFile string, family Family) error {
	argv := []string{c.binary}
	if family == Docker {
		argv = append(argv, "--docker-managed")
	}
	argv = append(argv,
		"--image-root", imageRoot,
		"--output-file", outputFile,
		"--output", "json",
		"list", "containers",
	)
	return c.run(ctx, argv)
}

// Writes a JSON drift report for all containers under the disk mount to
// outputFile. One runtime family per call, as with [Client.ListContainers].
func (c *Client) Drift(ctx context.Context, imageRoot, outputFile string, family Family) error {
	argv := []string{c.binary}
	if family == Docker {
		argv = append(argv, "--docker-managed")
	}
	argv = append(argv,
		"--image-root", imageRoot,
		"--output-file", outputFile,
		"--output", "json",
		"drift",
	)
	return c.run(ctx, argv)
}

// Mounts a single container's filesystem at mountDir.
//
// root is the runtime state directory on the mounted disk (e.g.
// <disk>/var/lib/containerd), passed as the family-specific root flag.
func (c *Client) Mount(ctx context.Context, family Family, root, containerID, mountDir string) error {
	return c.run(ctx, []string{
		c.binary,
		rootFlag(family), root,
		"mount", containerID, mountDir,
	})
}

// Mounts every container found under root, each into its own
// subdirectory of mountDir.
func (c *Client) MountAll(ctx context.Context, family Family, root, mountDir string) error {
	return c.run(ctx, []string{
		c.binary,
		rootFlag(family), root,
		"mount-all", mountDir,
	})
}

// Exports a single container into outputDir in the selected formats.
func (c *Client) Export(ctx context.Context, imageRoot, containerID, outputDir string, opts ExportOptions) error {
	argv := []string{
		c.binary,
		"--image-root", imageRoot,
		"export", containerID, outputDir,
	}
	argv = append(argv, opts.flags()...)
	return c.run(ctx, argv)
}

// Exports every container on the disk into outputDir in the selected
// formats. Artifacts are named <container-id>.img or <container-id>.tar.gz.
func (c *Client) ExportAll(ctx context.Context, imageRoot, outputDir string, opts ExportOptions) error {
	argv := []string{
		c.binary,
		"--image-root", imageRoot,
		"export-all", outputDir,
	}
	argv = append(argv, opts.flags()...)
	return c.run(ctx, argv)
}

// Returns the family-specific root flag for mount operations.
func rootFlag(family Family) string {
	if family == Docker {
		return "--docker-root"
	}
	return "--containerd-root"
}

// Runs an explorer command, translating every failure mode into [ErrTool].
//
// A non-zero exit carries a stderr excerpt; timeouts and spawn failures
// keep their runner sentinel in the chain so callers can distinguish them.
func (c *Client) run(ctx context.Context, argv []string) error {
	res, err := c.runner.Run(ctx, argv, c.timeout)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrTool, err)
	}
	if !res.Success() {
		return fmt.Errorf("%w: exit code %d: %s", ErrTool, res.ExitCode, excerpt(res.Stderr))
	}
	return nil
}

// Trims stderr to a single-line excerpt for error messages.
func excerpt(stderr string) string {
	s := strings.TrimSpace(stderr)
	s = strings.ReplaceAll(s, "\n", " | ")
	if len(s) > stderrExcerptLen {
		s = s[:stderrExcerptLen] + "..."
	}
	if s == "" {
		s = "(no stderr)"
	}
	return s
}
