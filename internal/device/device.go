// Package device models the simulated device population: device types,
// their static characteristics, named population mixes, and the mapping of
// UDP ports to device types.
package device

import "fmt"

// Type identifies a class of simulated network device.
type Type string

const (
	TypeCableModem Type = "cable_modem"
	TypeMTA        Type = "mta"
	TypeCMTS       Type = "cmts"
	TypeSwitch     Type = "switch"
	TypeRouter     Type = "router"
	TypeServer     Type = "server"

	// TypeUnassigned is returned when a port belongs to no assignment.
	TypeUnassigned Type = "unassigned"
)

// typeOrder fixes the order in which port slices are assigned. Assignments
// must be reproducible across runs, so this order never changes.
var typeOrder = []Type{
	TypeCableModem,
	TypeMTA,
	TypeCMTS,
	TypeSwitch,
	TypeRouter,
	TypeServer,
}

// AllTypes returns every known device type in assignment order.
func AllTypes() []Type {
	out := make([]Type, len(typeOrder))
	copy(out, typeOrder)
	return out
}

// Valid reports whether t is a known device type.
func (t Type) Valid() bool {
	for _, known := range typeOrder {
		if t == known {
			return true
		}
	}
	return false
}

// Characteristics holds the static per-type metadata that seeds device state
// and default profiles.
type Characteristics struct {
	TypicalInterfaces  int
	SignalMonitoring   bool
	ExpectedUptimeDays int
	SysDescrPrefix     string
}

var characteristics = map[Type]Characteristics{
	TypeCableModem: {
		TypicalInterfaces:  2,
		SignalMonitoring:   true,
		ExpectedUptimeDays: 30,
		SysDescrPrefix:     "DOCSIS 3.1 Cable Modem",
	},
	TypeMTA: {
		TypicalInterfaces:  1,
		SignalMonitoring:   true,
		ExpectedUptimeDays: 30,
		SysDescrPrefix:     "Embedded MTA",
	},
	TypeCMTS: {
		TypicalInterfaces:  16,
		SignalMonitoring:   true,
		ExpectedUptimeDays: 365,
		SysDescrPrefix:     "Cable Modem Termination System",
	},
	TypeSwitch: {
		TypicalInterfaces:  48,
		SignalMonitoring:   false,
		ExpectedUptimeDays: 180,
		SysDescrPrefix:     "48-Port Managed Switch",
	},
	TypeRouter: {
		TypicalInterfaces:  24,
		SignalMonitoring:   false,
		ExpectedUptimeDays: 365,
		SysDescrPrefix:     "Edge Router",
	},
	TypeServer: {
		TypicalInterfaces:  4,
		SignalMonitoring:   false,
		ExpectedUptimeDays: 90,
		SysDescrPrefix:     "Linux Server",
	},
}

// CharacteristicsFor returns the static metadata for a device type.
func CharacteristicsFor(t Type) (Characteristics, error) {
	c, ok := characteristics[t]
	if !ok {
		return Characteristics{}, fmt.Errorf("unknown device type %q", t)
	}
	return c, nil
}
