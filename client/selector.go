package client

import (
	"fmt"
	"strings"
)

// Selector produces the candidate resource names for a reservation attempt,
// in priority order. Implementations are pure: Select performs no I/O and
// never mutates the snapshot. Availability is deliberately not checked here;
// the reservation engine filters on free/reserved so selection policy stays
// orthogonal to availability.
//
// The set of selectors is closed: name, name list, and label cover the
// controller's selection semantics.
type Selector interface {
	Select(snap *Snapshot) []string
	// String renders the selection criterion for diagnostics, e.g. in
	// reservation timeout errors.
	String() string
}

type nameSelector struct {
	name string
}

// SelectName selects a single resource by exact name.
func SelectName(name string) Selector {
	return nameSelector{name: name}
}

func (s nameSelector) Select(*Snapshot) []string {
	return []string{s.name}
}

func (s nameSelector) String() string {
	return fmt.Sprintf("name[%q]", s.name)
}

type nameListSelector struct {
	names []string
}

// SelectNames selects from an ordered list of resource names; the first
// listed name has the highest priority.
func SelectNames(names ...string) Selector {
	copied := make([]string, len(names))
	copy(copied, names)
	return nameListSelector{names: copied}
}

func (s nameListSelector) Select(*Snapshot) []string {
	out := make([]string, len(s.names))
	copy(out, s.names)
	return out
}

func (s nameListSelector) String() string {
	quoted := make([]string, len(s.names))
	for i, name := range s.names {
		quoted[i] = fmt.Sprintf("%q", name)
	}
	return fmt.Sprintf("name-list[%s]", strings.Join(quoted, " "))
}

type labelSelector struct {
	label string
}

// SelectLabel selects every resource carrying the given label, in snapshot
// order. No ordering beyond that is guaranteed.
func SelectLabel(label string) Selector {
	return labelSelector{label: label}
}

func (s labelSelector) Select(snap *Snapshot) []string {
	var out []string
	for _, rec := range snap.records {
		if rec.HasLabel(s.label) {
			out = append(out, rec.Name)
		}
	}
	return out
}

func (s labelSelector) String() string {
	return fmt.Sprintf("label[%q]", s.label)
}
