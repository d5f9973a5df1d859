package profile

import (
	"fmt"

	"github.com/gosnmp/gosnmp"
)

// Well-known OIDs used by the built-in profiles.
const (
	OIDSysDescr    = "1.3.6.1.2.1.1.1.0"
	OIDSysObjectID = "1.3.6.1.2.1.1.2.0"
	OIDSysUpTime   = "1.3.6.1.2.1.1.3.0"
	OIDSysName     = "1.3.6.1.2.1.1.5.0"
	OIDSysLocation = "1.3.6.1.2.1.1.6.0"

	oidIfNumber      = "1.3.6.1.2.1.2.1.0"
	oidIfDescrBase   = "1.3.6.1.2.1.2.2.1.2"
	oidIfOperBase    = "1.3.6.1.2.1.2.2.1.8"
	oidIfInOctets    = "1.3.6.1.2.1.2.2.1.10"
	oidIfInErrors    = "1.3.6.1.2.1.2.2.1.14"
	oidIfOutOctets   = "1.3.6.1.2.1.2.2.1.16"
	oidIfOutErrors   = "1.3.6.1.2.1.2.2.1.20"
	oidHrCPULoad     = "1.3.6.1.2.1.25.3.3.1.2.1"
	oidEnvTempBase   = "1.3.6.1.4.1.9.9.13.1.3.1.3.1"
	oidDocsisSNRBase = "1.3.6.1.2.1.10.127.1.1.4.1.5.3"
	oidDocsisTxPower = "1.3.6.1.2.1.10.127.1.2.2.1.3.2"
)

// BuildDefault constructs a profile for a device with the given identity:
// system group, an interface table sized from the device's typical interface
// count, CPU and temperature objects, and signal objects when the type
// monitors plant signal. All values are static bases; the behavior binder
// decides which of them move.
func BuildDefault(sysName, sysDescr string, interfaces int, signalMonitoring bool) *Store {
	store := NewStore()

	store.Insert(OIDSysDescr, Datum{Type: gosnmp.OctetString, Value: []byte(sysDescr)})
	store.Insert(OIDSysObjectID, Datum{Type: gosnmp.ObjectIdentifier, Value: "1.3.6.1.4.1.8072.3.2.10"})
	store.Insert(OIDSysUpTime, Datum{Type: gosnmp.TimeTicks, Value: uint32(0)})
	store.Insert(OIDSysName, Datum{Type: gosnmp.OctetString, Value: []byte(sysName)})
	store.Insert(OIDSysLocation, Datum{Type: gosnmp.OctetString, Value: []byte("simulated-lab")})

	if interfaces < 1 {
		interfaces = 1
	}
	store.Insert(oidIfNumber, Datum{Type: gosnmp.Integer, Value: interfaces})
	for i := 1; i <= interfaces; i++ {
		store.Insert(fmt.Sprintf("%s.%d", oidIfDescrBase, i),
			Datum{Type: gosnmp.OctetString, Value: []byte(fmt.Sprintf("eth%d", i-1))})
		store.Insert(fmt.Sprintf("%s.%d", oidIfOperBase, i),
			Datum{Type: gosnmp.Integer, Value: 1})
		store.Insert(fmt.Sprintf("%s.%d", oidIfInOctets, i),
			Datum{Type: gosnmp.Counter32, Value: uint32(1_000_000)})
		store.Insert(fmt.Sprintf("%s.%d", oidIfOutOctets, i),
			Datum{Type: gosnmp.Counter32, Value: uint32(750_000)})
		store.Insert(fmt.Sprintf("%s.%d", oidIfInErrors, i),
			Datum{Type: gosnmp.Counter32, Value: uint32(0)})
		store.Insert(fmt.Sprintf("%s.%d", oidIfOutErrors, i),
			Datum{Type: gosnmp.Counter32, Value: uint32(0)})
	}

	store.Insert(oidHrCPULoad, Datum{Type: gosnmp.Gauge32, Value: int32(15)})
	store.Insert(oidEnvTempBase, Datum{Type: gosnmp.Gauge32, Value: int32(38)})

	if signalMonitoring {
		// DOCSIS downstream SNR in tenths of a dB and upstream transmit
		// power in tenths of a dBmV.
		store.Insert(oidDocsisSNRBase, Datum{Type: gosnmp.Gauge32, Value: int32(380)})
		store.Insert(oidDocsisTxPower, Datum{Type: gosnmp.Gauge32, Value: int32(450)})
	}

	store.Sort()
	return store
}
