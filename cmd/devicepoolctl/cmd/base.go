package cmd

import (
	"io"
	"os"

	"github.com/opentracing/opentracing-go"
	jaegercfg "github.com/uber/jaeger-client-go/config"

	"github.com/vramkit/devicepool"
	"github.com/vramkit/devicepool/driver"
	"github.com/vramkit/devicepool/internal/fakedriver"
	"github.com/vramkit/devicepool/pool"
)

// defaultFakeCapacity is the in-memory fake driver's simulated device
// capacity for --fake runs.
const defaultFakeCapacity = 1 << 30 // 1 GiB

// BaseCommand holds the flags every subcommand shares: which pool to
// drive, how much memory to allow it, and the --fake flag naming the
// in-memory fake driver, which is the only backend and is used whether or
// not the flag is passed.
type BaseCommand struct {
	Pool     string `long:"pool" description:"pool strategy: dummy, simple, or split (default: DEVICEPOOL_POOL, else split)"`
	MemLimit string `long:"mem-limit" description:"byte budget, e.g. 2GiB; empty means unlimited"`
	Fake     bool   `long:"fake" description:"use the in-memory fake driver (the only backend; always used)"`
	Trace    bool   `long:"trace" description:"print the full stats snapshot as JSON after running"`

	dispatcher *devicepool.Dispatcher
	dev        driver.Device
	tracerDone io.Closer
}

// setup builds the Config from flags (falling back to DEVICEPOOL_* env
// vars for anything not passed), wires a tracer if JAEGER_AGENT_HOST is
// set, and constructs the Dispatcher.
func (c *BaseCommand) setup() error {
	cfg, err := devicepool.ConfigFromEnv()
	if err != nil {
		return err
	}
	if c.Pool != "" {
		cfg.PoolName = pool.Name(c.Pool)
	}
	if c.MemLimit != "" {
		limit, err := devicepool.ParseByteSize(c.MemLimit)
		if err != nil {
			return err
		}
		cfg.MemLimit = limit
	}
	if c.Trace {
		cfg.Trace = true
	}

	if done, err := setupTracer(); err == nil {
		c.tracerDone = done
	}

	// This demo binary has no real device client to dial; --fake is the
	// documented way to ask for the in-memory driver, and is also
	// currently the only backend available.
	c.dev = fakedriver.New(defaultFakeCapacity)

	d, err := devicepool.NewDispatcher(cfg, c.dev, driver.NoopGC)
	if err != nil {
		return err
	}
	c.dispatcher = d
	return nil
}

func (c *BaseCommand) teardown() {
	if c.tracerDone != nil {
		c.tracerDone.Close()
	}
}

// setupTracer wires a real Jaeger tracer as the opentracing global tracer
// when JAEGER_AGENT_HOST is set. Returns a nil closer (and no error) when
// tracing isn't configured.
func setupTracer() (io.Closer, error) {
	if os.Getenv("JAEGER_AGENT_HOST") == "" {
		return nil, nil
	}

	jcfg, err := jaegercfg.FromEnv()
	if err != nil {
		return nil, err
	}
	tracer, closer, err := jcfg.NewTracer()
	if err != nil {
		return nil, err
	}
	opentracing.SetGlobalTracer(tracer)
	return closer, nil
}
