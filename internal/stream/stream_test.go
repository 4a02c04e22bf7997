package stream

import (
	"context"
	"testing"
	"time"

	"github.com/trashytalk/piwardrive-go/pkg/models"
)

func newTestDetection(t *testing.T, bssid, ssid string) models.WifiDetection {
	t.Helper()
	d, err := models.NewWifiDetection("s1", bssid, time.Now())
	if err != nil {
		t.Fatalf("NewWifiDetection: %v", err)
	}
	d.SSID = ssid
	d.SignalDBM = -70 // keep SignalDBM <= -40 so the deauth heuristic doesn't also fire
	return d
}

func TestProcessor_WifiBroadcastCarriesFingerprintsAndSuspicious(t *testing.T) {
	p := NewProcessor(10, 10, 1000, nil) // high rate limit so the test doesn't wait on it
	sub := p.Subscribe("test")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	p.Start(ctx)
	defer p.Stop()

	p.PublishWifi([]models.WifiDetection{
		newTestDetection(t, "AA:BB:CC:DD:EE:01", ""), // hidden SSID -> suspicious finding
	})

	select {
	case msg := <-sub.C:
		if msg.Source != SourceWifi {
			t.Fatalf("msg.Source = %v, want wifi", msg.Source)
		}
		result, ok := msg.Records.(WifiResult)
		if !ok {
			t.Fatalf("msg.Records type = %T, want WifiResult", msg.Records)
		}
		if len(result.Fingerprints) != 1 {
			t.Errorf("len(Fingerprints) = %d, want 1", len(result.Fingerprints))
		}
		if len(result.Suspicious) != 1 {
			t.Errorf("len(Suspicious) = %d, want 1 (hidden SSID)", len(result.Suspicious))
		}
		if msg.Stats["wifi"] != 1 {
			t.Errorf("Stats[wifi] = %d, want 1", msg.Stats["wifi"])
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no message broadcast in time")
	}
}

func TestProcessor_EnqueueDropsOldestWhenFull(t *testing.T) {
	p := NewProcessor(2, 10, 1000, nil)
	p.enqueue(batch{source: SourceWifi, records: "first"})
	p.enqueue(batch{source: SourceWifi, records: "second"})
	p.enqueue(batch{source: SourceWifi, records: "third"})

	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.ingest) != 2 {
		t.Fatalf("len(ingest) = %d, want 2", len(p.ingest))
	}
	if p.ingest[0].records != "second" || p.ingest[1].records != "third" {
		t.Errorf("ingest = %v, want [second third]", p.ingest)
	}
}

func TestProcessor_SubscriberDropsOnFullQueue(t *testing.T) {
	p := NewProcessor(10, 1, 1000, nil)
	sub := p.Subscribe("slow")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	p.Start(ctx)
	defer p.Stop()

	p.PublishBluetooth([]models.BluetoothDetection{})
	p.PublishBluetooth([]models.BluetoothDetection{})
	p.PublishBluetooth([]models.BluetoothDetection{})

	time.Sleep(100 * time.Millisecond)
	// Drain whatever made it through; the point is this never blocks or
	// panics even though the subscriber never actively reads.
	select {
	case <-sub.C:
	default:
	}
}

func TestProcessor_Unsubscribe(t *testing.T) {
	p := NewProcessor(10, 10, 1000, nil)
	sub := p.Subscribe("temp")
	p.Unsubscribe(sub)

	if _, ok := <-sub.C; ok {
		t.Error("expected channel closed after Unsubscribe")
	}
}
