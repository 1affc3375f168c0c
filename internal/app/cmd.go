package app

// Command is the application run mode.
type Command string

const (
	// CommandServe starts the dashboard web server.
	CommandServe Command = "serve"
	// CommandReport analyzes one channel and prints the result to the terminal.
	CommandReport Command = "report"
	// CommandHealthcheck probes the local /health endpoint.
	// Used as the container health check where no shell is available.
	CommandHealthcheck Command = "healthcheck"
)

// ParseCommand reads the subcommand from the command-line arguments.
// No argument or an unknown one means CommandServe.
func ParseCommand(args []string) Command {
	if len(args) == 0 {
		return CommandServe
	}

	switch args[0] {
	case "serve":
		return CommandServe
	case "report":
		return CommandReport
	case "healthcheck":
		return CommandHealthcheck
	default:
		return CommandServe
	}
}
