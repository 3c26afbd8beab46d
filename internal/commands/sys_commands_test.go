package commands

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProbe struct {
	procs int
	err   error
}

func (f fakeProbe) CPU(context.Context) (CPUStats, error) {
	return CPUStats{UsagePercent: 12.5, Cores: 8, FrequencyMHz: 2400}, f.err
}

func (f fakeProbe) Memory(context.Context) (MemoryStats, error) {
	return MemoryStats{UsedPercent: 50, Total: 16 * gib, Available: 8 * gib, Used: 8 * gib, SwapUsedPercent: 1.5}, f.err
}

func (f fakeProbe) Processes(context.Context) ([]ProcessInfo, error) {
	var out []ProcessInfo
	for i := f.procs; i > 0; i-- {
		out = append(out, ProcessInfo{PID: int32(i), Name: fmt.Sprintf("proc%d", i), CPUPercent: 0.5, MemoryPercent: 1})
	}
	return out, f.err
}

func (f fakeProbe) Disk(context.Context) (DiskStats, error) {
	return DiskStats{
		Total: 100 * gib, Used: 25 * gib, Free: 75 * gib,
		Partitions: []Partition{{Device: "/dev/sda1", Mountpoint: "/", Fstype: "ext4", Total: 100 * gib, Used: 25 * gib, Free: 75 * gib}},
	}, f.err
}

func TestCPU(t *testing.T) {
	out, err := cpuCommand{probe: fakeProbe{}}.Run(context.Background(), nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "CPU Usage: 12.5%\nCPU Cores: 8\nCPU Frequency: 2400.00 MHz\n", out)
}

func TestMem(t *testing.T) {
	out, err := memCommand{probe: fakeProbe{}}.Run(context.Background(), nil, nil)
	require.NoError(t, err)
	assert.Contains(t, out, "Memory Usage: 50.0%\n")
	assert.Contains(t, out, "Total Memory: 16.00 GB\n")
	assert.Contains(t, out, "Available Memory: 8.00 GB\n")
	assert.Contains(t, out, "Swap Usage: 1.5%\n")
}

func TestPs_SortedAndTruncated(t *testing.T) {
	out, err := psCommand{probe: fakeProbe{procs: 25}}.Run(context.Background(), nil, nil)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	// header, rule, 20 rows, trailer
	require.Len(t, lines, 23)
	assert.True(t, strings.HasPrefix(lines[0], "PID"))
	assert.True(t, strings.HasPrefix(lines[2], "1 "), lines[2])
	assert.True(t, strings.HasPrefix(lines[21], "20 "), lines[21])
	assert.Equal(t, "... and 5 more processes", lines[22])
}

func TestPs_Short(t *testing.T) {
	out, err := psCommand{probe: fakeProbe{procs: 3}}.Run(context.Background(), nil, nil)
	require.NoError(t, err)
	assert.NotContains(t, out, "more processes")
}

func TestDisk(t *testing.T) {
	out, err := diskCommand{probe: fakeProbe{}}.Run(context.Background(), nil, nil)
	require.NoError(t, err)
	assert.Contains(t, out, "Disk Usage (Root):\nTotal: 100.00 GB\nUsed: 25.00 GB\nFree: 75.00 GB\nUsage: 25.0%\n")
	assert.Contains(t, out, "/dev/sda1")
}

func TestSystemCommand_ProbeFailure(t *testing.T) {
	reg, err := NewDefaultRegistry(nil, fakeProbe{err: errors.New("unavailable")})
	require.NoError(t, err)

	res, err := reg.Execute(context.Background(), "mem", nil, NewEnv("/", "/", nil))
	assert.Error(t, err)
	assert.Equal(t, Result{Succeeded: false, Output: "mem: unavailable"}, res)
}

func TestHostProbe_Memory(t *testing.T) {
	stats, err := HostProbe{}.Memory(context.Background())
	if err != nil {
		t.Skipf("memory metrics unavailable: %v", err)
	}
	assert.Greater(t, stats.Total, uint64(0))
}
