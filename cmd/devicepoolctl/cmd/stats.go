package cmd

import "os"

const (
	StatsCommandDescription = "Print the current pool's stats snapshot"
	StatsCommandHelp        = "Initializes the chosen pool and prints its stats snapshot (request/driver counts, bytes, OOM count)."
)

// StatsCommand prints a pool's stats snapshot. With no prior workload to
// report on (this binary has no background daemon to attach to), it is
// most useful combined with --trace to inspect a freshly initialized
// pool's zero state, or piped after `run` in a script.
type StatsCommand struct {
	BaseCommand
}

func (c *StatsCommand) Execute(args []string) error {
	if err := c.setup(); err != nil {
		return err
	}
	defer c.teardown()

	return c.dispatcher.WriteSummary(os.Stdout)
}
