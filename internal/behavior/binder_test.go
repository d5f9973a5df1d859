package behavior

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/awksedgreep/snmp-sim-go/internal/device"
)

func TestBinderLongestPrefixWins(t *testing.T) {
	b, err := NewBinder([]bindingSpec{
		{Prefix: "1.3.6.1.2.1.2", Behavior: behaviorSpec{Type: "static_value"}},
		{Prefix: "1.3.6.1.2.1.2.2.1.10", Behavior: behaviorSpec{
			Type: "traffic_counter", RateRange: RateRange{Min: 1, Max: 2},
		}},
	})
	if err != nil {
		t.Fatalf("NewBinder: %v", err)
	}

	if _, ok := b.Resolve("1.3.6.1.2.1.2.2.1.10.1").(TrafficCounter); !ok {
		t.Fatal("expected traffic counter for interface octets")
	}
	if _, ok := b.Resolve("1.3.6.1.2.1.2.1.0").(StaticValue); !ok {
		t.Fatal("expected static for shorter prefix")
	}
	if _, ok := b.Resolve("1.3.6.1.9.9").(StaticValue); !ok {
		t.Fatal("expected static for unbound oid")
	}
}

func TestBinderUnknownTypeDegradesToStatic(t *testing.T) {
	b, err := NewBinder([]bindingSpec{
		{Prefix: "1.3.6", Behavior: behaviorSpec{Type: "quantum_flux"}},
	})
	if err != nil {
		t.Fatalf("NewBinder: %v", err)
	}
	if _, ok := b.Resolve("1.3.6.1").(StaticValue); !ok {
		t.Fatal("unknown behavior type should resolve to static")
	}
}

func TestBinderRequiresPrefix(t *testing.T) {
	_, err := NewBinder([]bindingSpec{{Behavior: behaviorSpec{Type: "static_value"}}})
	if err == nil {
		t.Fatal("expected error for missing prefix")
	}
}

func TestLoadBinderFromYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "behaviors.yaml")
	data := `bindings:
  - prefix: "1.3.6.1.2.1.2.2.1.10"
    behavior:
      type: traffic_counter
      rate_range: {min: 1000, max: 125000000}
      time_of_day_variation: true
      burst_probability: 0.1
  - prefix: "1.3.6.1.2.1.1.3"
    behavior:
      type: uptime_counter
      increment_rate: 100
      reset_probability: 0.0001
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("write yaml: %v", err)
	}

	b, err := LoadBinder(path)
	if err != nil {
		t.Fatalf("LoadBinder: %v", err)
	}

	tc, ok := b.Resolve("1.3.6.1.2.1.2.2.1.10.4").(TrafficCounter)
	if !ok {
		t.Fatal("expected traffic counter binding")
	}
	if tc.RateRange.Max != 125_000_000 || !tc.TimeOfDayVariation || tc.BurstProbability != 0.1 {
		t.Fatalf("traffic counter params wrong: %+v", tc)
	}

	uc, ok := b.Resolve("1.3.6.1.2.1.1.3.0").(UptimeCounter)
	if !ok {
		t.Fatal("expected uptime counter binding")
	}
	if uc.IncrementRate != 100 {
		t.Fatalf("increment rate = %v", uc.IncrementRate)
	}
}

func TestDefaultBinderCoversCoreObjects(t *testing.T) {
	b := DefaultBinder(device.TypeCableModem)

	if _, ok := b.Resolve("1.3.6.1.2.1.1.3.0").(UptimeCounter); !ok {
		t.Error("sysUpTime should bind to uptime counter")
	}
	if _, ok := b.Resolve("1.3.6.1.2.1.2.2.1.10.1").(TrafficCounter); !ok {
		t.Error("ifInOctets should bind to traffic counter")
	}
	if _, ok := b.Resolve("1.3.6.1.2.1.2.2.1.14.1").(ErrorCounter); !ok {
		t.Error("ifInErrors should bind to error counter")
	}
	if _, ok := b.Resolve("1.3.6.1.2.1.10.127.1.1.4.1.5.3").(SNRGauge); !ok {
		t.Error("cable modem should bind SNR gauge")
	}

	sw := DefaultBinder(device.TypeSwitch)
	if _, ok := sw.Resolve("1.3.6.1.2.1.10.127.1.1.4.1.5.3").(SNRGauge); ok {
		t.Error("switch should not bind SNR gauge")
	}
}
