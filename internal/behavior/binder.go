package behavior

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/awksedgreep/snmp-sim-go/internal/device"
)

// Binder attaches behavior descriptors to OID prefixes. Resolution is
// longest-prefix-wins, so a table column binding can override a subtree
// binding.
type Binder struct {
	bindings []prefixBinding
}

type prefixBinding struct {
	prefix string
	desc   Descriptor
}

type binderConfig struct {
	Bindings []bindingSpec `yaml:"bindings"`
}

type bindingSpec struct {
	Prefix   string       `yaml:"prefix"`
	Behavior behaviorSpec `yaml:"behavior"`
}

type behaviorSpec struct {
	Type string `yaml:"type"`

	RateRange RateRange `yaml:"rate_range"`
	Range     Range     `yaml:"range"`
	Pattern   string    `yaml:"pattern"`
	PeakHours [2]int    `yaml:"peak_hours"`

	TimeOfDayVariation         bool    `yaml:"time_of_day_variation"`
	BurstProbability           float64 `yaml:"burst_probability"`
	DegradationFactor          float64 `yaml:"degradation_factor"`
	WeatherCorrelation         bool    `yaml:"weather_correlation"`
	ErrorBurstProbability      float64 `yaml:"error_burst_probability"`
	CorrelationWithUtilization bool    `yaml:"correlation_with_utilization"`
	IncrementRate              float64 `yaml:"increment_rate"`
	ResetProbability           float64 `yaml:"reset_probability"`
	LoadCorrelation            bool    `yaml:"load_correlation"`
}

// NewBinder builds a binder from binding specs. Longer prefixes are tried
// first.
func NewBinder(specs []bindingSpec) (*Binder, error) {
	out := make([]prefixBinding, 0, len(specs))
	for i, spec := range specs {
		prefix := normalizePrefix(spec.Prefix)
		if prefix == "" {
			return nil, fmt.Errorf("binding %d: prefix is required", i)
		}
		desc := buildDescriptor(spec.Behavior)
		out = append(out, prefixBinding{prefix: prefix, desc: desc})
	}

	sort.SliceStable(out, func(i, j int) bool {
		return len(out[i].prefix) > len(out[j].prefix)
	})

	return &Binder{bindings: out}, nil
}

// LoadBinder reads binding specs from a YAML file.
func LoadBinder(path string) (*Binder, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read behavior file: %w", err)
	}
	var cfg binderConfig
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("parse behavior yaml: %w", err)
	}
	return NewBinder(cfg.Bindings)
}

// Resolve returns the descriptor bound to the longest matching prefix, or
// StaticValue when nothing matches.
func (b *Binder) Resolve(oid string) Descriptor {
	if b == nil {
		return StaticValue{}
	}
	oid = normalizePrefix(oid)
	for _, entry := range b.bindings {
		if oidWithin(oid, entry.prefix) {
			return entry.desc
		}
	}
	return StaticValue{}
}

// oidWithin reports whether oid equals prefix or sits beneath it in the
// tree. The "." guard keeps "1.3.6.1.2.1.10" from matching prefix
// "1.3.6.1.2.1.1".
func oidWithin(oid, prefix string) bool {
	return oid == prefix || strings.HasPrefix(oid, prefix+".")
}

func normalizePrefix(oid string) string {
	return strings.TrimPrefix(strings.TrimSpace(oid), ".")
}

// buildDescriptor maps a spec to its descriptor. Unrecognized types degrade
// to StaticValue rather than failing the whole binder: a half-valid behavior
// file should not take the fleet down.
func buildDescriptor(spec behaviorSpec) Descriptor {
	switch strings.ToLower(strings.TrimSpace(spec.Type)) {
	case "traffic_counter":
		return TrafficCounter{
			RateRange:          spec.RateRange,
			TimeOfDayVariation: spec.TimeOfDayVariation,
			BurstProbability:   spec.BurstProbability,
		}
	case "utilization_gauge":
		return UtilizationGauge{
			Range:     spec.Range,
			Pattern:   spec.Pattern,
			PeakHours: spec.PeakHours,
		}
	case "snr_gauge":
		return SNRGauge{
			Range:             spec.Range,
			DegradationFactor: spec.DegradationFactor,
		}
	case "power_gauge":
		return PowerGauge{
			Range:              spec.Range,
			WeatherCorrelation: spec.WeatherCorrelation,
		}
	case "error_counter":
		return ErrorCounter{
			RateRange:                  spec.RateRange,
			ErrorBurstProbability:      spec.ErrorBurstProbability,
			CorrelationWithUtilization: spec.CorrelationWithUtilization,
		}
	case "uptime_counter":
		return UptimeCounter{
			IncrementRate:    spec.IncrementRate,
			ResetProbability: spec.ResetProbability,
		}
	case "status_enum":
		return StatusEnum{}
	case "temperature_gauge":
		return TemperatureGauge{
			Range:           spec.Range,
			LoadCorrelation: spec.LoadCorrelation,
		}
	case "static_value":
		return StaticValue{}
	default:
		return StaticValue{}
	}
}

// DefaultBinder returns the built-in bindings for a device type, matching the
// OIDs of the default profiles: octet counters on the interface table, error
// counters on the error columns, uptime on sysUpTime, CPU and temperature
// gauges, and DOCSIS signal gauges for types that monitor plant signal.
func DefaultBinder(t device.Type) *Binder {
	specs := []bindingSpec{
		{Prefix: "1.3.6.1.2.1.1.3", Behavior: behaviorSpec{
			Type: "uptime_counter", IncrementRate: 100, ResetProbability: 0.0001,
		}},
		{Prefix: "1.3.6.1.2.1.2.2.1.10", Behavior: behaviorSpec{
			Type:      "traffic_counter",
			RateRange: RateRange{Min: 10_000, Max: 125_000_000},
			TimeOfDayVariation: true, BurstProbability: 0.05,
		}},
		{Prefix: "1.3.6.1.2.1.2.2.1.16", Behavior: behaviorSpec{
			Type:      "traffic_counter",
			RateRange: RateRange{Min: 5_000, Max: 25_000_000},
			TimeOfDayVariation: true, BurstProbability: 0.05,
		}},
		{Prefix: "1.3.6.1.2.1.2.2.1.14", Behavior: behaviorSpec{
			Type:      "error_counter",
			RateRange: RateRange{Min: 0, Max: 0.1},
			ErrorBurstProbability: 0.01, CorrelationWithUtilization: true,
		}},
		{Prefix: "1.3.6.1.2.1.2.2.1.20", Behavior: behaviorSpec{
			Type:      "error_counter",
			RateRange: RateRange{Min: 0, Max: 0.05},
			ErrorBurstProbability: 0.01, CorrelationWithUtilization: true,
		}},
		{Prefix: "1.3.6.1.2.1.2.2.1.8", Behavior: behaviorSpec{
			Type: "status_enum",
		}},
		{Prefix: "1.3.6.1.2.1.25.3.3.1.2", Behavior: behaviorSpec{
			Type: "utilization_gauge",
			Range: Range{Lo: 2, Hi: 95}, Pattern: "daily_variation",
			PeakHours: [2]int{9, 17},
		}},
		{Prefix: "1.3.6.1.4.1.9.9.13.1.3.1.3", Behavior: behaviorSpec{
			Type:  "temperature_gauge",
			Range: Range{Lo: 25, Hi: 85}, LoadCorrelation: true,
		}},
	}

	if c, err := device.CharacteristicsFor(t); err == nil && c.SignalMonitoring {
		specs = append(specs,
			bindingSpec{Prefix: "1.3.6.1.2.1.10.127.1.1.4.1.5", Behavior: behaviorSpec{
				Type:  "snr_gauge",
				Range: Range{Lo: 200, Hi: 450}, DegradationFactor: 0.15,
			}},
			bindingSpec{Prefix: "1.3.6.1.2.1.10.127.1.2.2.1.3", Behavior: behaviorSpec{
				Type:  "power_gauge",
				Range: Range{Lo: -150, Hi: 150}, WeatherCorrelation: true,
			}},
		)
	}

	b, _ := NewBinder(specs)
	return b
}
