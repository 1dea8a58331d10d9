// Package filter parses inclusion/exclusion criteria and evaluates them
// against parsed annotation records. Criteria combine with AND; the values
// inside one criterion combine with OR.
package filter

import (
	"errors"
	"fmt"
	"strings"

	"github.com/annotatelab/g2b/internal/gff"
)

// Op is the comparison operator of a criterion.
type Op uint8

// Operator values.
const (
	OpInclude Op = iota // "=": keep records matching any value
	OpExclude           // "!=": drop records matching any value
)

// Error variables for criterion parsing.
var (
	ErrInvalidFilter = errors.New("invalid filter")
	ErrEmptyField    = errors.New("filter field cannot be empty")
)

// Criterion is one parsed filter rule. Column is the fixed-column index for
// "column0".."column8" fields and -1 when Field names an attribute.
type Criterion struct {
	Field  string
	Op     Op
	Values []string
	Column int
}

// Parse turns one filter string of the form "field=v1,v2" or "field!=v1,v2"
// into a Criterion. "!=" is checked before "=" so "a!=b" never parses as
// field "a!" equals "b". Field names matching column0 through column8 select
// a fixed column; anything else is an attribute name.
func Parse(spec string) (Criterion, error) {
	var field, value string

	var op Op

	switch {
	case strings.Contains(spec, "!="):
		field, value, _ = strings.Cut(spec, "!=")
		op = OpExclude
	case strings.Contains(spec, "="):
		field, value, _ = strings.Cut(spec, "=")
		op = OpInclude
	default:
		return Criterion{}, fmt.Errorf("%w: %q: expected 'field=value', 'field!=value', or 'field=v1,v2'", ErrInvalidFilter, spec)
	}

	if field == "" {
		return Criterion{}, fmt.Errorf("%w: %q: %w", ErrInvalidFilter, spec, ErrEmptyField)
	}

	values := strings.Split(value, ",")
	for i, v := range values {
		values[i] = strings.TrimSpace(v)
	}

	return Criterion{
		Field:  field,
		Op:     op,
		Values: values,
		Column: columnIndex(field),
	}, nil
}

// ParseAll parses every spec in order, failing on the first invalid one.
func ParseAll(specs []string) ([]Criterion, error) {
	criteria := make([]Criterion, 0, len(specs))

	for _, spec := range specs {
		c, err := Parse(spec)
		if err != nil {
			return nil, err
		}

		criteria = append(criteria, c)
	}

	return criteria, nil
}

// columnIndex resolves "column0".."column8" to a fixed field index.
// Any other name (including "column9" or "columnXY") is an attribute and
// yields -1.
func columnIndex(field string) int {
	digit, ok := strings.CutPrefix(field, "column")
	if !ok || len(digit) != 1 || digit[0] < '0' || digit[0] > '8' {
		return -1
	}

	return int(digit[0] - '0')
}

// Evaluate reports whether rec satisfies every criterion. It short-circuits
// on the first failing criterion; order does not change the outcome.
func Evaluate(rec *gff.Record, criteria []Criterion) bool {
	for _, c := range criteria {
		if !matches(rec, c) {
			return false
		}
	}

	return true
}

// matches evaluates one criterion. Fixed columns compare against the
// source's own text, so coordinate filters see the original 1-based values,
// never the translated ones. An absent attribute never equals anything:
// INCLUDE fails, EXCLUDE passes.
func matches(rec *gff.Record, c Criterion) bool {
	var got string

	if c.Column >= 0 {
		text, ok := rec.Column(c.Column)
		if !ok {
			return false
		}

		got = text
	} else {
		attr, ok := rec.Attributes[c.Field]
		if !ok {
			return c.Op == OpExclude
		}

		got = attr
	}

	anyMatch := false

	for _, v := range c.Values {
		if got == v {
			anyMatch = true

			break
		}
	}

	if c.Op == OpInclude {
		return anyMatch
	}

	return !anyMatch
}
