package cmd

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"time"

	"github.com/briandowns/spinner"

	"github.com/vramkit/devicepool/driver"
)

const (
	RunCommandDescription = "Drive a synthetic alloc/free workload against a pool"
	RunCommandHelp        = "Allocates and frees randomly-sized buffers against the chosen pool, then prints a stats summary."
)

// RunCommand drives a synthetic workload: repeatedly allocate a
// randomly-sized buffer, sometimes hold it, sometimes free it immediately,
// then free everything still outstanding at the end.
type RunCommand struct {
	BaseCommand

	Requests int    `long:"requests" default:"2000" description:"number of allocation requests to issue"`
	MinSize  uint64 `long:"min-size" default:"4096" description:"minimum request size in bytes"`
	MaxSize  uint64 `long:"max-size" default:"4194304" description:"maximum request size in bytes"`
	HoldPct  int    `long:"hold-percent" default:"30" description:"percent of allocations kept outstanding instead of freed immediately"`
}

func (c *RunCommand) Execute(args []string) error {
	if err := c.setup(); err != nil {
		return err
	}
	defer c.teardown()

	if c.MaxSize < c.MinSize {
		return fmt.Errorf("devicepoolctl: --max-size must be >= --min-size")
	}

	s := spinner.New(spinner.CharSets[9], 100*time.Millisecond)
	s.Suffix = " driving workload"
	s.Start()

	ctx := context.Background()
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	spread := c.MaxSize - c.MinSize + 1

	var held []driver.Handle
	var failures int
	for i := 0; i < c.Requests; i++ {
		nbytes := c.MinSize + uint64(rng.Int63n(int64(spread)))
		h, err := c.dispatcher.Alloc(ctx, nbytes)
		if err != nil {
			failures++
			continue
		}
		if rng.Intn(100) < c.HoldPct {
			held = append(held, h)
			continue
		}
		if err := c.dispatcher.Free(ctx, h); err != nil {
			failures++
		}
	}

	for _, h := range held {
		if err := c.dispatcher.Free(ctx, h); err != nil {
			failures++
		}
	}

	s.Stop()

	fmt.Printf("requests: %d, failures: %d\n\n", c.Requests, failures)
	return c.dispatcher.WriteSummary(os.Stdout)
}
