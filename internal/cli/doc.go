// Parses flags and configures logging for the stevedore worker.
//
// The worker accepts the following global flags:
//
//	-q, --quiet      Suppress informational output.
//	-v, --verbose    Enable verbose output.
//	-d, --debug      Enable debug output.
//	-e, --explorer   Path to the container-explorer binary.
//	-o, --output     Output directory for task artifacts.
//
// Flags override build-time defaults set via linker flags. After parsing,
// the global logger is reconfigured to reflect the final level before a
// task or the server starts.
//
// The task subcommands (list, drift, export, extract) run one task
// in-process against the given disk images and print the resulting
// artifact list as JSON. The serve subcommand starts the Unix-socket
// daemon that accepts the same tasks over the wire.
package cli
