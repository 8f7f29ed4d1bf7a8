package types

import "fmt"

// Destination is one monitored target, immutable after construction.
type Destination struct {
	SortKey      int
	Name         string
	TimeoutMS    int
	Warning      int
	Failure      int
	Reset        int
	IntervalSec  int
	HistoryCap   int
	Test         TestConfig
}

// NewDestination validates and constructs a Destination. Per SPEC_FULL.md's
// Open Question 1, warning > failure is rejected here rather than silently
// tolerated by the state machine.
func NewDestination(sortKey int, name string, timeoutMS, warning, failure, reset, intervalSec, historyCap int, test TestConfig) (Destination, error) {
	if name == "" {
		return Destination{}, fmt.Errorf("destination: name is required")
	}
	if timeoutMS <= 0 {
		return Destination{}, fmt.Errorf("destination %q: timeout_ms must be > 0, got %d", name, timeoutMS)
	}
	if warning <= 0 {
		return Destination{}, fmt.Errorf("destination %q: warning must be > 0, got %d", name, warning)
	}
	if failure <= 0 {
		return Destination{}, fmt.Errorf("destination %q: failure must be > 0, got %d", name, failure)
	}
	if reset <= 0 {
		return Destination{}, fmt.Errorf("destination %q: reset must be > 0, got %d", name, reset)
	}
	if intervalSec <= 0 {
		return Destination{}, fmt.Errorf("destination %q: interval_sec must be > 0, got %d", name, intervalSec)
	}
	if historyCap <= 0 {
		return Destination{}, fmt.Errorf("destination %q: history_cap must be > 0, got %d", name, historyCap)
	}
	if warning > failure {
		return Destination{}, fmt.Errorf("destination %q: warning (%d) must be <= failure (%d)", name, warning, failure)
	}
	return Destination{
		SortKey:     sortKey,
		Name:        name,
		TimeoutMS:   timeoutMS,
		Warning:     warning,
		Failure:     failure,
		Reset:       reset,
		IntervalSec: intervalSec,
		HistoryCap:  historyCap,
		Test:        test,
	}, nil
}

// EffectiveHistoryCap returns min(HistoryCap, 1000).
func (d Destination) EffectiveHistoryCap() int {
	if d.HistoryCap > 1000 {
		return 1000
	}
	return d.HistoryCap
}

// Group is an ordered set of destinations under a common display name.
// Sort keys define render order only; the engine does not use them.
type Group struct {
	SortKey      int
	GroupName    string
	Destinations []Destination
}

// NewGroup validates and constructs a Group.
func NewGroup(sortKey int, groupName string, destinations []Destination) (Group, error) {
	if groupName == "" {
		return Group{}, fmt.Errorf("group: group_name is required")
	}
	if len(destinations) == 0 {
		return Group{}, fmt.Errorf("group %q: must contain at least one destination", groupName)
	}
	return Group{SortKey: sortKey, GroupName: groupName, Destinations: destinations}, nil
}

// TestID returns the stable identifier "<group_sort>_<group_name>_<dest_sort>_<dest_name>"
// used as the suppression key and status entry id.
func TestID(group Group, dest Destination) string {
	return fmt.Sprintf("%d_%s_%d_%s", group.SortKey, group.GroupName, dest.SortKey, dest.Name)
}

// RegistryKey returns the "<group_name>:<destination_name>" key the
// registry uses to look up MonitorStates.
func RegistryKey(group Group, dest Destination) string {
	return fmt.Sprintf("%s:%s", group.GroupName, dest.Name)
}
