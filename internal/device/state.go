package device

import (
	"math/rand"
	"time"
)

// State is the mutable per-device simulation state. It is owned exclusively
// by the device's actor goroutine; nothing else may touch it.
type State struct {
	DeviceID   string
	Port       int
	DeviceType Type

	UptimeSeconds        float64
	InterfaceUtilization float64 // 0..1
	CPUUtilization       float64 // 0..1
	SignalQuality        float64 // 0..1
	TemperatureCelsius   float64
	HealthScore          float64 // 0..1
	ErrorRate            float64 // 0..1
	UtilizationBias      float64

	LastActivityNanos int64

	// CounterAccumulators holds true 64-bit cumulative growth per OID so
	// Counter32 wraps are computed against the accumulator, never re-derived
	// from uptime.
	CounterAccumulators map[string]uint64

	// LastSampleNanos records when each counter OID was last advanced.
	LastSampleNanos map[string]int64
}

// NewState seeds the simulation state for a device. The rng decides the
// device's individual personality: its bias, signal quality, and starting
// temperature, so a fleet of identical types does not answer in lockstep.
func NewState(deviceID string, port int, t Type, rng *rand.Rand, now time.Time) *State {
	st := &State{
		DeviceID:             deviceID,
		Port:                 port,
		DeviceType:           t,
		InterfaceUtilization: 0.2 + rng.Float64()*0.4,
		CPUUtilization:       0.1 + rng.Float64()*0.3,
		SignalQuality:        0.7 + rng.Float64()*0.3,
		TemperatureCelsius:   30 + rng.Float64()*15,
		HealthScore:          0.85 + rng.Float64()*0.15,
		ErrorRate:            rng.Float64() * 0.02,
		UtilizationBias:      0.8 + rng.Float64()*0.4,
		LastActivityNanos:    now.UnixNano(),
		CounterAccumulators:  make(map[string]uint64),
		LastSampleNanos:      make(map[string]int64),
	}
	if c, err := CharacteristicsFor(t); err == nil && c.SignalMonitoring {
		// Access devices see more plant noise than core gear.
		st.SignalQuality = 0.6 + rng.Float64()*0.4
	}
	return st
}
