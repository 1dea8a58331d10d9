// Package convert runs the two-pass GFF3 to BED conversion: pass one discovers
// the attribute schema across all filtered records, pass two emits rows in
// that fixed column order.
package convert

import (
	"slices"

	"github.com/annotatelab/g2b/internal/gff"
)

// DefaultPriority lists the attribute names emitted first, in this exact
// order, when present in the input. Everything else follows alphabetically.
var DefaultPriority = []string{
	"gene",
	"description",
	"gene_name",
	"gene_synonym",
	"gene_biotype",
	"ID",
	"db_xref",
	"extra_copy_number",
	"copy_num_ID",
}

// Registry accumulates the distinct attribute names seen during the
// discovery pass and freezes them into one deterministic column order.
// It has two lifecycle states: accumulating (Observe is legal) and frozen
// (after Finalize, Observe panics). One Registry serves exactly one run.
type Registry struct {
	priority []string
	names    map[string]struct{}
	frozen   bool
}

// NewRegistry returns an empty registry. A nil priority selects
// DefaultPriority.
func NewRegistry(priority []string) *Registry {
	if priority == nil {
		priority = DefaultPriority
	}

	return &Registry{
		priority: priority,
		names:    make(map[string]struct{}),
	}
}

// Observe records the attribute names of one filtered record. Only the set
// of names matters; observation order never influences the final schema.
func (r *Registry) Observe(rec *gff.Record) {
	if r.frozen {
		panic("convert: Observe called on frozen registry")
	}

	for name := range rec.Attributes {
		r.names[name] = struct{}{}
	}
}

// Len returns the number of distinct names observed so far.
func (r *Registry) Len() int {
	return len(r.names)
}

// Finalize freezes the registry and returns the authoritative column order:
// priority names that were observed, in priority order, then all remaining
// observed names sorted lexicographically. The result has no duplicates and
// exactly one entry per observed name.
func (r *Registry) Finalize() []string {
	r.frozen = true

	ordered := make([]string, 0, len(r.names))
	inPriority := make(map[string]struct{}, len(r.priority))

	for _, name := range r.priority {
		if _, dup := inPriority[name]; dup {
			continue
		}

		inPriority[name] = struct{}{}

		if _, seen := r.names[name]; seen {
			ordered = append(ordered, name)
		}
	}

	rest := make([]string, 0, len(r.names))

	for name := range r.names {
		if _, prioritized := inPriority[name]; !prioritized {
			rest = append(rest, name)
		}
	}

	slices.Sort(rest)

	return append(ordered, rest...)
}
