package pool

import "fmt"

// formatEntry renders a single address/size pair as one line, used by the
// simpler pools' DumpState. SplittingPool's dump is richer (see
// splitting.go) and uses tablewriter instead.
func formatEntry(addr uintptr, size uint64) string {
	return fmt.Sprintf("  addr=0x%x size=%d\n", addr, size)
}
