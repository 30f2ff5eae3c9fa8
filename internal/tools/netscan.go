package tools

import (
	"context"
	"fmt"
	"os"
	"strings"

	"jarvis/internal/tool"
)

// arpTablePath is a var so tests can substitute a fixture.
var arpTablePath = "/proc/net/arp"

// NetworkDevices lists hosts the kernel currently knows about on the
// local network. No probing, just the ARP table.
func NetworkDevices() tool.Spec {
	return tool.Spec{
		Name:        "network_devices",
		Description: "List devices recently seen on the local network.",
		Parameters:  schema(nil),
		Handler: func(_ context.Context, _ map[string]any) (string, error) {
			data, err := os.ReadFile(arpTablePath)
			if err != nil {
				return "", fmt.Errorf("read arp table: %w", err)
			}

			lines := strings.Split(strings.TrimSpace(string(data)), "\n")
			if len(lines) <= 1 {
				return "No devices in the ARP table.", nil
			}

			var out []string
			for _, line := range lines[1:] { // header first
				fields := strings.Fields(line)
				if len(fields) < 6 {
					continue
				}
				ip, mac, dev := fields[0], fields[3], fields[5]
				if mac == "00:00:00:00:00:00" {
					continue
				}
				out = append(out, fmt.Sprintf("- %s (%s) via %s", ip, mac, dev))
			}
			if len(out) == 0 {
				return "No devices in the ARP table.", nil
			}
			return fmt.Sprintf("%d device(s):\n%s", len(out), strings.Join(out, "\n")), nil
		},
	}
}
