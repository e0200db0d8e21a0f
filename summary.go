package devicepool

import (
	"fmt"
	"io"
	"strings"

	prettyjson "github.com/hokaccha/go-prettyjson"
	"github.com/olekukonko/tablewriter"
)

// WriteSummary renders a one-line-per-metric table of the dispatcher's
// current stats to w, the same shape cli/bblfshctl's status command
// prints for driver pools. When cfg.Trace is set, the full snapshot is
// additionally dumped as pretty JSON.
func (d *Dispatcher) WriteSummary(w io.Writer) error {
	snap := d.Stats()

	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"metric", "value"})
	table.Append([]string{"pool", string(d.cfg.PoolName)})
	table.Append([]string{"requests", fmt.Sprintf("%d", snap.Requests)})
	table.Append([]string{"frees", fmt.Sprintf("%d", snap.Frees)})
	table.Append([]string{"driver allocs", fmt.Sprintf("%d", snap.DriverAllocs)})
	table.Append([]string{"driver frees", fmt.Sprintf("%d", snap.DriverFrees)})
	table.Append([]string{"used bytes", fmt.Sprintf("%d", snap.UsedBytes)})
	table.Append([]string{"cached bytes", fmt.Sprintf("%d", snap.CachedBytes)})
	table.Append([]string{"oom count", fmt.Sprintf("%d", snap.OOMCount)})
	table.Render()

	if !d.cfg.Trace {
		return nil
	}

	pretty, err := prettyjson.Marshal(snap)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "\n%s\n", strings.TrimSpace(string(pretty)))
	return err
}
