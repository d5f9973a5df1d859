package device

import (
	"errors"
	"fmt"
	"sort"
)

// ErrInsufficientPorts is returned when a port range cannot hold the
// requested device mix.
var ErrInsufficientPorts = errors.New("port range too small for device mix")

// Mix maps device types to requested counts.
type Mix map[Type]int

// mixPresets are the named population presets.
var mixPresets = map[string]Mix{
	"small_test": {
		TypeCableModem: 8,
		TypeMTA:        2,
		TypeSwitch:     1,
		TypeRouter:     1,
	},
	"medium_test": {
		TypeCableModem: 80,
		TypeMTA:        10,
		TypeCMTS:       1,
		TypeSwitch:     5,
		TypeRouter:     2,
		TypeServer:     2,
	},
	"cable_network": {
		TypeCableModem: 700,
		TypeMTA:        250,
		TypeCMTS:       4,
		TypeRouter:     2,
	},
	"enterprise_network": {
		TypeSwitch: 40,
		TypeRouter: 8,
		TypeServer: 52,
	},
}

// GetDeviceMix returns a copy of a named mix preset.
func GetDeviceMix(name string) (Mix, error) {
	preset, ok := mixPresets[name]
	if !ok {
		return nil, fmt.Errorf("unknown device mix %q", name)
	}
	out := make(Mix, len(preset))
	for t, n := range preset {
		out[t] = n
	}
	return out, nil
}

// MixNames returns the available preset names, sorted.
func MixNames() []string {
	names := make([]string, 0, len(mixPresets))
	for name := range mixPresets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Total returns the sum of all counts in the mix.
func (m Mix) Total() int {
	total := 0
	for _, n := range m {
		total += n
	}
	return total
}

// Validate checks that all counts are non-negative and all types known.
func (m Mix) Validate() error {
	for t, n := range m {
		if !t.Valid() {
			return fmt.Errorf("unknown device type %q in mix", t)
		}
		if n < 0 {
			return fmt.Errorf("negative count %d for device type %q", n, t)
		}
	}
	return nil
}

// PortRange is a half-open candidate range [Start, End).
type PortRange struct {
	Start int
	End   int
}

// Size returns the number of ports in the range.
func (r PortRange) Size() int {
	if r.End <= r.Start {
		return 0
	}
	return r.End - r.Start
}

// Validate checks the range lies within the UDP port space.
func (r PortRange) Validate() error {
	if r.Start < 1 || r.End > 65536 || r.End <= r.Start {
		return fmt.Errorf("invalid port range %d-%d", r.Start, r.End)
	}
	return nil
}

// slice is one contiguous block of ports assigned to a type.
type slice struct {
	devType Type
	start   int // inclusive
	end     int // exclusive
}

// PortAssignments maps device types to disjoint contiguous port slices
// carved out of a candidate range. Slices are kept sorted by start port so a
// port classifies in O(log n).
type PortAssignments struct {
	universe PortRange
	slices   []slice
}

// TypeCount is one (device type, count) pair in an explicitly ordered
// population spec.
type TypeCount struct {
	Type  Type
	Count int
}

// BuildPortAssignments assigns, in the fixed type order, the first N ports of
// portRange to each type in the mix. It fails with ErrInsufficientPorts when
// the range cannot hold the whole mix.
func BuildPortAssignments(mix Mix, portRange PortRange) (*PortAssignments, error) {
	if err := mix.Validate(); err != nil {
		return nil, err
	}
	specs := make([]TypeCount, 0, len(mix))
	for _, t := range typeOrder {
		if mix[t] > 0 {
			specs = append(specs, TypeCount{Type: t, Count: mix[t]})
		}
	}
	return BuildPortAssignmentsInOrder(specs, portRange)
}

// BuildPortAssignmentsInOrder assigns consecutive port slices to each spec in
// the order given. Used by population startup, which partitions in spec
// order.
func BuildPortAssignmentsInOrder(specs []TypeCount, portRange PortRange) (*PortAssignments, error) {
	if err := portRange.Validate(); err != nil {
		return nil, err
	}
	total := 0
	for _, s := range specs {
		if !s.Type.Valid() {
			return nil, fmt.Errorf("unknown device type %q in spec", s.Type)
		}
		if s.Count < 0 {
			return nil, fmt.Errorf("negative count %d for device type %q", s.Count, s.Type)
		}
		total += s.Count
	}
	if total > portRange.Size() {
		return nil, fmt.Errorf("%w: need %d ports, range %d-%d has %d",
			ErrInsufficientPorts, total, portRange.Start, portRange.End, portRange.Size())
	}

	pa := &PortAssignments{universe: portRange}
	next := portRange.Start
	for _, s := range specs {
		if s.Count == 0 {
			continue
		}
		pa.slices = append(pa.slices, slice{devType: s.Type, start: next, end: next + s.Count})
		next += s.Count
	}
	return pa, nil
}

// Validate confirms pairwise disjointness and that every assigned port lies
// within the declared universe.
func (pa *PortAssignments) Validate() error {
	for i, s := range pa.slices {
		if s.start < pa.universe.Start || s.end > pa.universe.End {
			return fmt.Errorf("assignment for %q (%d-%d) outside universe %d-%d",
				s.devType, s.start, s.end, pa.universe.Start, pa.universe.End)
		}
		if i > 0 && s.start < pa.slices[i-1].end {
			return fmt.Errorf("assignments for %q and %q overlap",
				pa.slices[i-1].devType, s.devType)
		}
	}
	return nil
}

// DetermineDeviceType classifies a port into its device type, or
// TypeUnassigned when no slice contains it.
func (pa *PortAssignments) DetermineDeviceType(port int) Type {
	idx := sort.Search(len(pa.slices), func(i int) bool {
		return pa.slices[i].end > port
	})
	if idx < len(pa.slices) && port >= pa.slices[idx].start {
		return pa.slices[idx].devType
	}
	return TypeUnassigned
}

// Contains reports whether the port belongs to any assignment.
func (pa *PortAssignments) Contains(port int) bool {
	return pa.DetermineDeviceType(port) != TypeUnassigned
}

// Ports returns every port assigned to the given type, ascending.
func (pa *PortAssignments) Ports(t Type) []int {
	var out []int
	for _, s := range pa.slices {
		if s.devType != t {
			continue
		}
		for p := s.start; p < s.end; p++ {
			out = append(out, p)
		}
	}
	return out
}

// AllPorts returns every assigned port, ascending.
func (pa *PortAssignments) AllPorts() []int {
	var out []int
	for _, s := range pa.slices {
		for p := s.start; p < s.end; p++ {
			out = append(out, p)
		}
	}
	return out
}

// TotalDevices returns the number of assigned ports.
func (pa *PortAssignments) TotalDevices() int {
	total := 0
	for _, s := range pa.slices {
		total += s.end - s.start
	}
	return total
}

// DensityStats summarizes an assignment set.
type DensityStats struct {
	TotalDevices  int
	LargestType   Type
	LargestCount  int
	PerTypeCounts map[Type]int
}

// CalculateDensityStats computes per-type counts and the dominant type.
func (pa *PortAssignments) CalculateDensityStats() DensityStats {
	stats := DensityStats{PerTypeCounts: make(map[Type]int)}
	for _, s := range pa.slices {
		n := s.end - s.start
		stats.TotalDevices += n
		stats.PerTypeCounts[s.devType] += n
	}
	// Ties resolve in assignment order, which is deterministic.
	for _, t := range typeOrder {
		if n := stats.PerTypeCounts[t]; n > stats.LargestCount {
			stats.LargestCount = n
			stats.LargestType = t
		}
	}
	return stats
}
