package extension

import (
	"context"
	"fmt"

	"github.com/shirou/gopsutil/v4/process"
)

// LookupProcess returns the executable name of the process with the given
// pid from the host process table.
func LookupProcess(ctx context.Context, pid int32) (string, error) {
	proc, err := process.NewProcessWithContext(ctx, pid)
	if err != nil {
		return "", fmt.Errorf("failed to find process %d: %w", pid, err)
	}
	name, err := proc.NameWithContext(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to read process %d name: %w", pid, err)
	}
	return name, nil
}
