package main

import (
	"fmt"
	"os"

	"github.com/jessevdk/go-flags"

	"github.com/vramkit/devicepool/cmd/devicepoolctl/cmd"
)

var (
	version = "undefined"
	build   = "undefined"
)

func main() {
	parser := flags.NewNamedParser("devicepoolctl", flags.Default)

	parser.AddCommand("run",
		cmd.RunCommandDescription, cmd.RunCommandHelp,
		&cmd.RunCommand{},
	)

	parser.AddCommand("stats",
		cmd.StatsCommandDescription, cmd.StatsCommandHelp,
		&cmd.StatsCommand{},
	)

	parser.AddCommand("switch",
		cmd.SwitchCommandDescription, cmd.SwitchCommandHelp,
		&cmd.SwitchCommand{},
	)

	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		} else {
			fmt.Println()
			parser.WriteHelp(os.Stdout)
			fmt.Printf("\nBuild information\n  commit: %s\n  date: %s\n", version, build)
			os.Exit(1)
		}
	}
}
