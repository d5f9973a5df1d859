package profile

import (
	"strings"
	"testing"

	"github.com/gosnmp/gosnmp"
)

func TestParseSnmprec(t *testing.T) {
	data := `# system group
1.3.6.1.2.1.1.1.0|octetstring|Simulated Device
1.3.6.1.2.1.1.3.0|timeticks|12345
1.3.6.1.2.1.2.2.1.10.1|counter32|1000000
1.3.6.1.2.1.25.3.3.1.2.1|gauge32|15
1.3.6.1.2.1.1.7.0|integer|72
`
	store, err := ParseSnmprec(strings.NewReader(data))
	if err != nil {
		t.Fatalf("ParseSnmprec: %v", err)
	}
	if store.Len() != 5 {
		t.Fatalf("Len = %d, want 5", store.Len())
	}

	tests := []struct {
		oid      string
		wantType gosnmp.Asn1BER
	}{
		{"1.3.6.1.2.1.1.1.0", gosnmp.OctetString},
		{"1.3.6.1.2.1.1.3.0", gosnmp.TimeTicks},
		{"1.3.6.1.2.1.2.2.1.10.1", gosnmp.Counter32},
		{"1.3.6.1.2.1.25.3.3.1.2.1", gosnmp.Gauge32},
		{"1.3.6.1.2.1.1.7.0", gosnmp.Integer},
	}
	for _, tc := range tests {
		d, ok := store.Get(tc.oid)
		if !ok {
			t.Errorf("missing %s", tc.oid)
			continue
		}
		if d.Type != tc.wantType {
			t.Errorf("%s: type %v, want %v", tc.oid, d.Type, tc.wantType)
		}
	}
}

func TestParseSnmprecNumericTags(t *testing.T) {
	data := "1.3.6.1.2.1.1.5.0|4|gateway-1\n1.3.6.1.2.1.2.2.1.10.1|65|42\n"
	store, err := ParseSnmprec(strings.NewReader(data))
	if err != nil {
		t.Fatalf("ParseSnmprec: %v", err)
	}
	d, ok := store.Get("1.3.6.1.2.1.2.2.1.10.1")
	if !ok || d.Value.(uint32) != 42 {
		t.Fatalf("counter32 via numeric tag: %v %v", ok, d.Value)
	}
}

func TestParseSnmprecHexString(t *testing.T) {
	data := "1.3.6.1.2.1.2.2.1.6.1|4x|00155d0a1b2c\n"
	store, err := ParseSnmprec(strings.NewReader(data))
	if err != nil {
		t.Fatalf("ParseSnmprec: %v", err)
	}
	d, ok := store.Get("1.3.6.1.2.1.2.2.1.6.1")
	if !ok {
		t.Fatal("missing hex entry")
	}
	mac := d.Value.([]byte)
	if len(mac) != 6 || mac[0] != 0x00 || mac[1] != 0x15 {
		t.Fatalf("hex decode wrong: %x", mac)
	}
}

func TestParseSnmprecSkipsMalformedLines(t *testing.T) {
	data := `garbage line
1.3.6.1.2.1.1.1.0|octetstring|good
1.3.6.1.2.1.1.2.0|nosuchtype|bad
`
	store, err := ParseSnmprec(strings.NewReader(data))
	if err != nil {
		t.Fatalf("ParseSnmprec: %v", err)
	}
	if store.Len() != 1 {
		t.Fatalf("Len = %d, want 1 surviving record", store.Len())
	}
}

func TestStoreGetNextNumericOrder(t *testing.T) {
	store := NewStore()
	store.Insert("1.3.6.1.2.1.2.2.1.2.1", Datum{Type: gosnmp.OctetString, Value: []byte("eth0")})
	store.Insert("1.3.6.1.2.1.2.2.1.10.1", Datum{Type: gosnmp.Counter32, Value: uint32(1)})
	store.Insert("1.3.6.1.2.1.1.1.0", Datum{Type: gosnmp.OctetString, Value: []byte("x")})
	store.Sort()

	// Numeric order: .2.x sorts before .10.x even though "10" < "2"
	// lexically.
	next, _, ok := store.GetNext("1.3.6.1.2.1.2.2.1.2.1")
	if !ok || next != "1.3.6.1.2.1.2.2.1.10.1" {
		t.Fatalf("GetNext = %q (%v), want interface counter", next, ok)
	}

	next, _, ok = store.GetNext("1.3.6.1")
	if !ok || next != "1.3.6.1.2.1.1.1.0" {
		t.Fatalf("GetNext from root = %q, want sysDescr", next)
	}

	if _, _, ok := store.GetNext("1.3.6.1.2.1.2.2.1.10.1"); ok {
		t.Fatal("expected end of mib")
	}
}

func TestCompareOIDs(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"1.3.6", "1.3.6", 0},
		{"1.3.6.1.2.1.2", "1.3.6.1.2.1.10", -1},
		{"1.3.6.1.2.1.10", "1.3.6.1.2.1.2", 1},
		{"1.3.6", "1.3.6.1", -1},
	}
	for _, tc := range tests {
		if got := CompareOIDs(tc.a, tc.b); got != tc.want {
			t.Errorf("CompareOIDs(%s, %s) = %d, want %d", tc.a, tc.b, got, tc.want)
		}
	}
}

func TestBuildDefaultProfile(t *testing.T) {
	store := BuildDefault("cm-1", "DOCSIS 3.1 Cable Modem", 2, true)

	if _, ok := store.Get(OIDSysDescr); !ok {
		t.Error("missing sysDescr")
	}
	if _, ok := store.Get("1.3.6.1.2.1.2.2.1.10.2"); !ok {
		t.Error("missing second interface octet counter")
	}
	if _, ok := store.Get("1.3.6.1.2.1.2.2.1.10.3"); ok {
		t.Error("unexpected third interface")
	}
	if _, ok := store.Get("1.3.6.1.2.1.10.127.1.1.4.1.5.3"); !ok {
		t.Error("signal-monitoring device missing SNR object")
	}

	noSignal := BuildDefault("sw-1", "Switch", 48, false)
	if _, ok := noSignal.Get("1.3.6.1.2.1.10.127.1.1.4.1.5.3"); ok {
		t.Error("non-signal device should not carry SNR object")
	}
}
