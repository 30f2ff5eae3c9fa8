package tools

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/host"
	"github.com/shirou/gopsutil/v4/mem"
	gnet "github.com/shirou/gopsutil/v4/net"
	"github.com/shirou/gopsutil/v4/sensors"

	"jarvis/internal/tool"
)

func SystemInsights() tool.Spec {
	return tool.Spec{
		Name:        "system_insights",
		Description: "Report system health: CPU load and temperature, memory, uptime, and the primary IP address.",
		Parameters:  schema(nil),
		Handler: func(ctx context.Context, _ map[string]any) (string, error) {
			var parts []string
			parts = append(parts, cpuInfo(ctx))
			parts = append(parts, memInfo(ctx))
			if bat := batteryInfo(); bat != "" {
				parts = append(parts, bat)
			}
			parts = append(parts, uptimeInfo(ctx))
			parts = append(parts, ipInfo(ctx))
			return strings.Join(parts, "\n"), nil
		},
	}
}

func cpuInfo(ctx context.Context) string {
	percents, err := cpu.PercentWithContext(ctx, 200*time.Millisecond, false)
	if err != nil || len(percents) == 0 {
		return "CPU: n/a"
	}
	load := percents[0]

	if temps, err := sensors.TemperaturesWithContext(ctx); err == nil {
		for _, t := range temps {
			key := strings.ToLower(t.SensorKey)
			if strings.Contains(key, "coretemp") || strings.Contains(key, "cpu") {
				return fmt.Sprintf("CPU: %.0f%% @ %.0f°C", load, t.Temperature)
			}
		}
	}
	return fmt.Sprintf("CPU: %.0f%%", load)
}

func memInfo(ctx context.Context) string {
	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return "Memory: n/a"
	}
	return fmt.Sprintf("Memory: %.0f%% used (%.1f of %.1f GiB)",
		vm.UsedPercent,
		float64(vm.Used)/(1<<30),
		float64(vm.Total)/(1<<30))
}

// batteryInfo reads sysfs directly; gopsutil has no battery module.
// Empty on desktops without one.
func batteryInfo() string {
	dirs, err := filepath.Glob("/sys/class/power_supply/BAT*")
	if err != nil || len(dirs) == 0 {
		return ""
	}
	capRaw, err := os.ReadFile(filepath.Join(dirs[0], "capacity"))
	if err != nil {
		return ""
	}
	out := fmt.Sprintf("Battery: %s%%", strings.TrimSpace(string(capRaw)))
	if status, err := os.ReadFile(filepath.Join(dirs[0], "status")); err == nil {
		out += " (" + strings.ToLower(strings.TrimSpace(string(status))) + ")"
	}
	return out
}

func uptimeInfo(ctx context.Context) string {
	up, err := host.UptimeWithContext(ctx)
	if err != nil {
		return "Uptime: n/a"
	}
	d := time.Duration(up) * time.Second
	return fmt.Sprintf("Uptime: %s", d.Round(time.Minute))
}

func ipInfo(ctx context.Context) string {
	ifaces, err := gnet.InterfacesWithContext(ctx)
	if err != nil {
		return "IP: n/a"
	}
	for _, iface := range ifaces {
		if strings.HasPrefix(iface.Name, "lo") {
			continue
		}
		for _, addr := range iface.Addrs {
			ip := strings.Split(addr.Addr, "/")[0]
			if strings.Contains(ip, ".") && !strings.HasPrefix(ip, "127.") {
				return fmt.Sprintf("IP: %s (%s)", ip, iface.Name)
			}
		}
	}
	return "IP: n/a"
}
