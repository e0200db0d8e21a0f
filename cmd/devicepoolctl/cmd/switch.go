package cmd

import (
	"fmt"
	"os"

	"github.com/vramkit/devicepool/pool"
)

const (
	SwitchCommandDescription = "Switch the active pool strategy"
	SwitchCommandHelp        = "Deinitializes the current pool and replaces it with a freshly initialized pool of the named strategy."
)

// SwitchCommand exercises Dispatcher.SwitchPool: it prints the summary
// before and after switching so the effect (caches reset, counters reset)
// is visible.
type SwitchCommand struct {
	BaseCommand

	To string `long:"to" required:"true" description:"pool to switch to: dummy, simple, or split"`
}

func (c *SwitchCommand) Execute(args []string) error {
	if err := c.setup(); err != nil {
		return err
	}
	defer c.teardown()

	fmt.Println("before:")
	if err := c.dispatcher.WriteSummary(os.Stdout); err != nil {
		return err
	}

	if err := c.dispatcher.SwitchPool(pool.Name(c.To)); err != nil {
		return err
	}

	fmt.Println("\nafter:")
	return c.dispatcher.WriteSummary(os.Stdout)
}
