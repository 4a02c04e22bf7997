package scan

import (
	"context"
	"testing"
	"time"

	"github.com/trashytalk/piwardrive-go/internal/schedule"
)

const sampleIwlistOutput = `          Cell 01 - Address: AA:BB:CC:DD:EE:01
                    Channel:6
                    Frequency:2.437 GHz (Channel 6)
                    Quality=70/70  Signal level=-40 dBm
                    Encryption key:on
                    ESSID:"HomeNetwork"
                    IE: IEEE 802.11i/WPA2 Version 1
          Cell 02 - Address: AA:BB:CC:DD:EE:02
                    Channel:11
                    Frequency:2.462 GHz (Channel 11)
                    Quality=50/70  Signal level=-60 dBm
                    Encryption key:off
                    ESSID:"OpenGuest"
`

func TestParseIwlistOutput(t *testing.T) {
	cells := parseIwlistOutput(sampleIwlistOutput)
	if len(cells) != 2 {
		t.Fatalf("parseIwlistOutput() returned %d cells, want 2", len(cells))
	}

	if cells[0].bssid != "AA:BB:CC:DD:EE:01" || cells[0].ssid != "HomeNetwork" ||
		cells[0].channel != 6 || cells[0].signalDBM != -40 || cells[0].encryption != "WPA2" {
		t.Errorf("cell 0 = %+v, unexpected", cells[0])
	}
	if cells[1].bssid != "AA:BB:CC:DD:EE:02" || cells[1].ssid != "OpenGuest" ||
		cells[1].encryption != "OPEN" {
		t.Errorf("cell 1 = %+v, unexpected", cells[1])
	}
}

func TestParseIwlistOutput_Empty(t *testing.T) {
	if cells := parseIwlistOutput(""); len(cells) != 0 {
		t.Errorf("parseIwlistOutput(\"\") = %v, want empty", cells)
	}
}

func TestWifiExecutor_GateDenies(t *testing.T) {
	rules := schedule.NewRuleEvaluator(map[string]schedule.Rule{
		WifiScanType: {Enabled: false},
	})
	e := NewWifiExecutor("s1", rules, nil, nil, nil, nil)

	got := e.Scan(context.Background(), Options{Iface: "wlan0", Timeout: 100 * time.Millisecond})
	if got != nil {
		t.Errorf("Scan() with denying rule = %v, want nil", got)
	}
}
