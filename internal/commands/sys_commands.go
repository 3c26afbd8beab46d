package commands

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/process"

	"github.com/quocvuong92/ai-shell/internal/constants"
)

const gib = 1 << 30

// cpuSampleInterval is how long cpu usage is measured
const cpuSampleInterval = time.Second

// CPUStats is a point-in-time processor summary
type CPUStats struct {
	UsagePercent float64
	Cores        int
	FrequencyMHz float64 // zero when unknown
}

// MemoryStats summarizes virtual memory and swap
type MemoryStats struct {
	UsedPercent     float64
	Total           uint64
	Available       uint64
	Used            uint64
	SwapUsedPercent float64
}

// ProcessInfo is one row of the process listing
type ProcessInfo struct {
	PID           int32
	Name          string
	CPUPercent    float64
	MemoryPercent float64
}

// Partition is one mounted file system
type Partition struct {
	Device     string
	Mountpoint string
	Fstype     string
	Total      uint64
	Used       uint64
	Free       uint64
}

// DiskStats summarizes the root file system and all partitions
type DiskStats struct {
	Total      uint64
	Used       uint64
	Free       uint64
	Partitions []Partition
}

// SystemProbe reads host metrics
type SystemProbe interface {
	CPU(ctx context.Context) (CPUStats, error)
	Memory(ctx context.Context) (MemoryStats, error)
	Processes(ctx context.Context) ([]ProcessInfo, error)
	Disk(ctx context.Context) (DiskStats, error)
}

// HostProbe reads metrics of the local machine through gopsutil
type HostProbe struct{}

var _ SystemProbe = HostProbe{}

func (HostProbe) CPU(ctx context.Context) (CPUStats, error) {
	percents, err := cpu.PercentWithContext(ctx, cpuSampleInterval, false)
	if err != nil {
		return CPUStats{}, fmt.Errorf("cpu usage: %w", err)
	}
	cores, err := cpu.CountsWithContext(ctx, true)
	if err != nil {
		return CPUStats{}, fmt.Errorf("cpu count: %w", err)
	}
	stats := CPUStats{Cores: cores}
	if len(percents) > 0 {
		stats.UsagePercent = percents[0]
	}
	if infos, err := cpu.InfoWithContext(ctx); err == nil && len(infos) > 0 {
		stats.FrequencyMHz = infos[0].Mhz
	}
	return stats, nil
}

func (HostProbe) Memory(ctx context.Context) (MemoryStats, error) {
	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return MemoryStats{}, fmt.Errorf("memory info: %w", err)
	}
	stats := MemoryStats{
		UsedPercent: vm.UsedPercent,
		Total:       vm.Total,
		Available:   vm.Available,
		Used:        vm.Used,
	}
	if swap, err := mem.SwapMemoryWithContext(ctx); err == nil {
		stats.SwapUsedPercent = swap.UsedPercent
	}
	return stats, nil
}

func (HostProbe) Processes(ctx context.Context) ([]ProcessInfo, error) {
	procs, err := process.ProcessesWithContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("process list: %w", err)
	}
	out := make([]ProcessInfo, 0, len(procs))
	for _, p := range procs {
		name, err := p.NameWithContext(ctx)
		if err != nil {
			// exited or access denied
			continue
		}
		cpuPct, _ := p.CPUPercentWithContext(ctx)
		memPct, _ := p.MemoryPercentWithContext(ctx)
		out = append(out, ProcessInfo{
			PID:           p.Pid,
			Name:          name,
			CPUPercent:    cpuPct,
			MemoryPercent: float64(memPct),
		})
	}
	return out, nil
}

func (HostProbe) Disk(ctx context.Context) (DiskStats, error) {
	root, err := disk.UsageWithContext(ctx, "/")
	if err != nil {
		return DiskStats{}, fmt.Errorf("disk usage: %w", err)
	}
	stats := DiskStats{Total: root.Total, Used: root.Used, Free: root.Free}

	parts, err := disk.PartitionsWithContext(ctx, false)
	if err != nil {
		return stats, nil
	}
	for _, p := range parts {
		usage, err := disk.UsageWithContext(ctx, p.Mountpoint)
		if err != nil {
			continue
		}
		stats.Partitions = append(stats.Partitions, Partition{
			Device:     p.Device,
			Mountpoint: p.Mountpoint,
			Fstype:     p.Fstype,
			Total:      usage.Total,
			Used:       usage.Used,
			Free:       usage.Free,
		})
	}
	return stats, nil
}

func toGiB(b uint64) float64 {
	return float64(b) / gib
}

// cpu

type cpuCommand struct{ probe SystemProbe }

func (cpuCommand) Descriptor() Descriptor {
	return Descriptor{Name: "cpu", Description: "Show CPU usage", Usage: "cpu"}
}

func (c cpuCommand) Run(ctx context.Context, _ *Env, _ []string) (string, error) {
	stats, err := c.probe.CPU(ctx)
	if err != nil {
		return "", err
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "CPU Usage: %.1f%%\n", stats.UsagePercent)
	fmt.Fprintf(&sb, "CPU Cores: %d\n", stats.Cores)
	if stats.FrequencyMHz > 0 {
		fmt.Fprintf(&sb, "CPU Frequency: %.2f MHz\n", stats.FrequencyMHz)
	}
	return sb.String(), nil
}

// mem

type memCommand struct{ probe SystemProbe }

func (memCommand) Descriptor() Descriptor {
	return Descriptor{Name: "mem", Description: "Show memory usage", Usage: "mem"}
}

func (c memCommand) Run(ctx context.Context, _ *Env, _ []string) (string, error) {
	stats, err := c.probe.Memory(ctx)
	if err != nil {
		return "", err
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "Memory Usage: %.1f%%\n", stats.UsedPercent)
	fmt.Fprintf(&sb, "Total Memory: %.2f GB\n", toGiB(stats.Total))
	fmt.Fprintf(&sb, "Available Memory: %.2f GB\n", toGiB(stats.Available))
	fmt.Fprintf(&sb, "Used Memory: %.2f GB\n", toGiB(stats.Used))
	fmt.Fprintf(&sb, "Swap Usage: %.1f%%\n", stats.SwapUsedPercent)
	return sb.String(), nil
}

// ps

type psCommand struct{ probe SystemProbe }

func (psCommand) Descriptor() Descriptor {
	return Descriptor{Name: "ps", Description: "List running processes", Usage: "ps"}
}

func (c psCommand) Run(ctx context.Context, _ *Env, _ []string) (string, error) {
	procs, err := c.probe.Processes(ctx)
	if err != nil {
		return "", err
	}
	sort.Slice(procs, func(i, j int) bool { return procs[i].PID < procs[j].PID })

	var sb strings.Builder
	fmt.Fprintf(&sb, "%-8s %-20s %-8s %-10s\n", "PID", "Name", "CPU%", "Memory%")
	sb.WriteString(strings.Repeat("-", 50) + "\n")
	shown := procs
	if len(shown) > constants.MaxProcessListing {
		shown = shown[:constants.MaxProcessListing]
	}
	for _, p := range shown {
		fmt.Fprintf(&sb, "%-8d %-20s %-8.1f %-10.1f\n", p.PID, p.Name, p.CPUPercent, p.MemoryPercent)
	}
	if extra := len(procs) - len(shown); extra > 0 {
		fmt.Fprintf(&sb, "... and %d more processes\n", extra)
	}
	return sb.String(), nil
}

// disk

type diskCommand struct{ probe SystemProbe }

func (diskCommand) Descriptor() Descriptor {
	return Descriptor{Name: "disk", Description: "Show disk usage", Usage: "disk"}
}

func (c diskCommand) Run(ctx context.Context, _ *Env, _ []string) (string, error) {
	stats, err := c.probe.Disk(ctx)
	if err != nil {
		return "", err
	}
	var usage float64
	if stats.Total > 0 {
		usage = float64(stats.Used) / float64(stats.Total) * 100
	}

	var sb strings.Builder
	sb.WriteString("Disk Usage (Root):\n")
	fmt.Fprintf(&sb, "Total: %.2f GB\n", toGiB(stats.Total))
	fmt.Fprintf(&sb, "Used: %.2f GB\n", toGiB(stats.Used))
	fmt.Fprintf(&sb, "Free: %.2f GB\n", toGiB(stats.Free))
	fmt.Fprintf(&sb, "Usage: %.1f%%\n\n", usage)
	sb.WriteString("Partitions:\n")
	fmt.Fprintf(&sb, "%-15s %-20s %-10s %-12s %-12s %-12s\n", "Device", "Mountpoint", "Fstype", "Total", "Used", "Free")
	sb.WriteString(strings.Repeat("-", 80) + "\n")
	for _, p := range stats.Partitions {
		fmt.Fprintf(&sb, "%-15s %-20s %-10s %-12.1f %-12.1f %-12.1f\n",
			p.Device, p.Mountpoint, p.Fstype, toGiB(p.Total), toGiB(p.Used), toGiB(p.Free))
	}
	return sb.String(), nil
}
