package tools

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const arpFixture = `IP address       HW type     Flags       HW address            Mask     Device
192.168.1.1      0x1         0x2         aa:bb:cc:dd:ee:ff     *        wlan0
192.168.1.50     0x1         0x0         00:00:00:00:00:00     *        wlan0
192.168.1.77     0x1         0x2         11:22:33:44:55:66     *        eth0
`

func withArpFixture(t *testing.T, content string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "arp")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	old := arpTablePath
	arpTablePath = path
	t.Cleanup(func() { arpTablePath = old })
}

func TestNetworkDevices(t *testing.T) {
	withArpFixture(t, arpFixture)

	out, err := NetworkDevices().Handler(context.Background(), nil)
	require.NoError(t, err)
	assert.Contains(t, out, "2 device(s)")
	assert.Contains(t, out, "192.168.1.1 (aa:bb:cc:dd:ee:ff) via wlan0")
	assert.Contains(t, out, "192.168.1.77")
	assert.NotContains(t, out, "192.168.1.50", "incomplete entries are skipped")
}

func TestNetworkDevicesEmptyTable(t *testing.T) {
	withArpFixture(t, "IP address       HW type     Flags       HW address            Mask     Device\n")

	out, err := NetworkDevices().Handler(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, "No devices in the ARP table.", out)
}

func TestNetworkDevicesMissingTable(t *testing.T) {
	old := arpTablePath
	arpTablePath = filepath.Join(t.TempDir(), "absent")
	t.Cleanup(func() { arpTablePath = old })

	_, err := NetworkDevices().Handler(context.Background(), nil)
	assert.Error(t, err)
}
