package agent

import (
	"sync"
	"testing"
	"time"

	"github.com/gosnmp/gosnmp"

	"github.com/awksedgreep/snmp-sim-go/internal/device"
	"github.com/awksedgreep/snmp-sim-go/internal/profile"
)

func newTestDevice(t *testing.T, port int, devType device.Type) *VirtualDevice {
	t.Helper()
	d, err := NewVirtualDevice(port, devType, Options{})
	if err != nil {
		t.Fatalf("NewVirtualDevice: %v", err)
	}
	t.Cleanup(d.Stop)
	return d
}

func TestHandlePacketConcurrently(t *testing.T) {
	d := newTestDevice(t, 30000, device.TypeCableModem)

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				if resp := d.HandlePacket([]byte{0x30, 0x00, 0x00, 0x00, 0x00, 0xA0, 0x00}); resp == nil {
					t.Error("nil response from live device")
					return
				}
				_ = d.Info()
			}
		}()
	}
	wg.Wait()

	info := d.Info()
	if info.PollCount != 800 {
		t.Fatalf("poll count = %d, want 800", info.PollCount)
	}
	if info.DeviceID == "" {
		t.Fatal("missing device id")
	}
}

func TestInfoUptimeAdvances(t *testing.T) {
	now := time.Date(2025, 6, 2, 12, 0, 0, 0, time.UTC)
	var mu sync.Mutex
	clock := func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return now
	}

	d, err := NewVirtualDevice(30001, device.TypeSwitch, Options{Now: clock})
	if err != nil {
		t.Fatalf("NewVirtualDevice: %v", err)
	}
	t.Cleanup(d.Stop)

	mu.Lock()
	now = now.Add(90 * time.Second)
	mu.Unlock()

	info := d.Info()
	if info.UptimeSeconds < 89 || info.UptimeSeconds > 91 {
		t.Fatalf("uptime = %.1f, want ~90", info.UptimeSeconds)
	}
}

func TestValueSimulatesThroughActor(t *testing.T) {
	d := newTestDevice(t, 30002, device.TypeCableModem)

	datum, ok := d.Value(profile.OIDSysUpTime)
	if !ok {
		t.Fatal("sysUpTime missing from default profile")
	}
	if datum.Type != gosnmp.TimeTicks {
		t.Fatalf("sysUpTime type = %v", datum.Type)
	}

	if _, ok := d.Value("9.9.9.9"); ok {
		t.Fatal("unexpected value for unknown oid")
	}
}

func TestTrafficCounterGrowsThroughActor(t *testing.T) {
	now := time.Date(2025, 6, 2, 12, 0, 0, 0, time.UTC)
	var mu sync.Mutex
	clock := func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return now
	}

	d, err := NewVirtualDevice(30003, device.TypeCableModem, Options{Now: clock})
	if err != nil {
		t.Fatalf("NewVirtualDevice: %v", err)
	}
	t.Cleanup(d.Stop)

	oid := "1.3.6.1.2.1.2.2.1.10.1"
	first, ok := d.Value(oid)
	if !ok {
		t.Fatalf("missing %s", oid)
	}

	mu.Lock()
	now = now.Add(time.Minute)
	mu.Unlock()

	second, _ := d.Value(oid)
	if second.Value.(uint32) < first.Value.(uint32) {
		t.Fatalf("octet counter ran backward: %d then %d", first.Value, second.Value)
	}
}

func TestLastActivityUpdatedByRequests(t *testing.T) {
	d := newTestDevice(t, 30004, device.TypeRouter)

	before := d.LastActivityNanos()
	time.Sleep(5 * time.Millisecond)
	d.HandlePacket([]byte{0x30, 0x00, 0x00, 0x00, 0x00, 0xA0, 0x00})
	if d.LastActivityNanos() <= before {
		t.Fatal("activity timestamp not advanced by request")
	}
}

func TestStopIsIdempotent(t *testing.T) {
	d := newTestDevice(t, 30005, device.TypeServer)

	d.Stop()
	d.Stop()

	select {
	case <-d.Done():
	default:
		t.Fatal("done not closed after stop")
	}
	if d.Alive() {
		t.Fatal("device still alive after stop")
	}
	if resp := d.HandlePacket([]byte{0x30, 0x00}); resp != nil {
		t.Fatal("stopped device answered a request")
	}
}

func TestKillTerminatesActor(t *testing.T) {
	d := newTestDevice(t, 30006, device.TypeCableModem)

	d.Kill()

	select {
	case <-d.Done():
	case <-time.After(time.Second):
		t.Fatal("done not closed after kill")
	}
	if d.Alive() {
		t.Fatal("device reports alive after crash")
	}
}

func TestSetRequestIsReadOnly(t *testing.T) {
	d := newTestDevice(t, 30007, device.TypeSwitch)

	// Byte 5 carries the PDU type tag; 0xA3 is SetRequest.
	resp := d.HandlePacket([]byte{0x30, 0x00, 0x00, 0x00, 0x00, 0xA3, 0x00})
	if resp == nil {
		t.Fatal("no response to set request")
	}
	pkt, err := gosnmp.Default.SnmpDecodePacket(resp)
	if err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if pkt.Error != gosnmp.ReadOnly {
		t.Fatalf("error status = %v, want readOnly", pkt.Error)
	}
}
