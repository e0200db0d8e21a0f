package devicepool

import (
	"os"
	"strconv"

	"github.com/docker/go-units"
	"github.com/pkg/errors"

	"github.com/vramkit/devicepool/pool"
)

// Config is read once at process init (DEVICEPOOL_* env vars), following
// the same prefixed-env-var convention used to configure daemon scaling
// elsewhere in this style of service.
type Config struct {
	// PoolName selects which of the three strategies the dispatcher
	// routes through. Defaults to Split.
	PoolName pool.Name
	// MemLimit is the optional global byte budget forwarded to the
	// driver shim. Zero means unlimited.
	MemLimit uint64
	// Trace enables the verbose exit summary (full Stats as JSON).
	Trace bool
}

// ConfigFromEnv reads DEVICEPOOL_POOL, DEVICEPOOL_MEM_LIMIT and
// DEVICEPOOL_TRACE.
func ConfigFromEnv() (Config, error) {
	cfg := Config{PoolName: pool.Split}

	if v := os.Getenv("DEVICEPOOL_POOL"); v != "" {
		name, err := parsePoolName(v)
		if err != nil {
			return cfg, err
		}
		cfg.PoolName = name
	}

	if v := os.Getenv("DEVICEPOOL_MEM_LIMIT"); v != "" {
		n, err := units.RAMInBytes(v)
		if err != nil {
			return cfg, errors.Wrapf(err, "devicepool: parsing DEVICEPOOL_MEM_LIMIT=%q", v)
		}
		cfg.MemLimit = uint64(n)
	}

	if v := os.Getenv("DEVICEPOOL_TRACE"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return cfg, errors.Wrapf(err, "devicepool: parsing DEVICEPOOL_TRACE=%q", v)
		}
		cfg.Trace = b
	}

	return cfg, nil
}

// ParseByteSize parses a human byte size ("2GiB", "512000") the same way
// ConfigFromEnv parses DEVICEPOOL_MEM_LIMIT, exported for the CLI's
// --mem-limit flag.
func ParseByteSize(s string) (uint64, error) {
	n, err := units.RAMInBytes(s)
	if err != nil {
		return 0, errors.Wrapf(err, "devicepool: parsing byte size %q", s)
	}
	return uint64(n), nil
}

// parsePoolName maps the DEVICEPOOL_POOL string onto a pool.Name, giving a
// directed error for the out-of-scope "binned" strategy rather than a bare
// "unknown pool".
func parsePoolName(v string) (pool.Name, error) {
	switch v {
	case "binned":
		return "", errors.New(`devicepool: pool "binned" is out of scope; use "simple", "split", or "dummy"`)
	case string(pool.Simple):
		return pool.Simple, nil
	case string(pool.Split):
		return pool.Split, nil
	case string(pool.Dummy):
		return pool.Dummy, nil
	default:
		return "", errors.Errorf("devicepool: unknown pool %q", v)
	}
}
