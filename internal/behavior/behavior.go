// Package behavior implements the per-OID value simulation engine. A
// Descriptor says how an OID's value evolves over time; the Simulator turns a
// static profile base value plus the current device state into a live typed
// value.
package behavior

// Range bounds a gauge value, inclusive on both ends. Lo may be negative
// (power gauges straddle zero).
type Range struct {
	Lo float64 `yaml:"lo"`
	Hi float64 `yaml:"hi"`
}

// Mid returns the midpoint of the range.
func (r Range) Mid() float64 { return (r.Lo + r.Hi) / 2 }

// Width returns the span of the range.
func (r Range) Width() float64 { return r.Hi - r.Lo }

// RateRange bounds a sampled rate in native units per second.
type RateRange struct {
	Min float64 `yaml:"min"`
	Max float64 `yaml:"max"`
}

// Descriptor is the closed set of behavior variants. Exactly the types below
// implement it.
type Descriptor interface {
	behaviorKind() string
}

// TrafficCounter models interface octet counters: growth driven by a sampled
// bit-rate, modulated by time of day, interface utilization, and bursts.
type TrafficCounter struct {
	RateRange          RateRange // bits per second
	TimeOfDayVariation bool
	BurstProbability   float64
}

// UtilizationGauge models a bounded utilization percentage with a daily
// pattern peaking inside PeakHours.
type UtilizationGauge struct {
	Range     Range
	Pattern   string // "daily_variation" or ""
	PeakHours [2]int // local hours, start and end
}

// SNRGauge models signal-to-noise: mid-range baseline degraded by interface
// load.
type SNRGauge struct {
	Range             Range
	DegradationFactor float64
}

// PowerGauge models RF transmit/receive power centered at zero when the
// range straddles it, offset by signal quality and optionally weather.
type PowerGauge struct {
	Range              Range
	WeatherCorrelation bool
}

// ErrorCounter models error counters whose rate tracks signal quality and,
// optionally, interface utilization, with rare large bursts.
type ErrorCounter struct {
	RateRange                  RateRange // errors per second
	ErrorBurstProbability      float64
	CorrelationWithUtilization bool
}

// UptimeCounter models sysUpTime-style timeticks with a small chance of an
// agent-restart reset.
type UptimeCounter struct {
	IncrementRate    float64 // ticks per second of uptime
	ResetProbability float64
}

// StatusEnum models an operational status string derived from device health.
type StatusEnum struct{}

// TemperatureGauge models chassis temperature, optionally coupled to CPU
// load.
type TemperatureGauge struct {
	Range           Range
	LoadCorrelation bool
}

// StaticValue passes the profile base value through untouched.
type StaticValue struct{}

func (TrafficCounter) behaviorKind() string   { return "traffic_counter" }
func (UtilizationGauge) behaviorKind() string { return "utilization_gauge" }
func (SNRGauge) behaviorKind() string         { return "snr_gauge" }
func (PowerGauge) behaviorKind() string       { return "power_gauge" }
func (ErrorCounter) behaviorKind() string     { return "error_counter" }
func (UptimeCounter) behaviorKind() string    { return "uptime_counter" }
func (StatusEnum) behaviorKind() string       { return "status_enum" }
func (TemperatureGauge) behaviorKind() string { return "temperature_gauge" }
func (StaticValue) behaviorKind() string      { return "static_value" }
