package convert

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/annotatelab/g2b/internal/filter"
	"github.com/annotatelab/g2b/internal/gff"
)

// Error variables for pipeline failures. All of these are fatal to the run;
// per-line parse failures are skipped and counted instead.
var (
	ErrInputUnavailable = errors.New("input unavailable")
	ErrWriteOutput      = errors.New("cannot write output")
)

// Fixed output header names preceding the attribute columns.
var fixedHeader = []string{"chrom", "start", "end", "source", "type", "score", "strand", "phase"}

// Some annotation sources carry very long attribute columns; the default
// bufio.Scanner limit of 64K is too small for them.
const maxLineBytes = 16 * 1024 * 1024

// Options configures one conversion run.
type Options struct {
	// Criteria are the parsed filter rules; empty means every well-formed
	// record passes.
	Criteria []filter.Criterion

	// Priority overrides the attribute column priority list. Nil selects
	// DefaultPriority.
	Priority []string

	// ErrOut receives per-line warnings during emission. Nil discards them.
	ErrOut io.Writer
}

// Stats summarizes one run for diagnostics.
type Stats struct {
	Columns   []string // finalized attribute column order
	Malformed int      // lines skipped during emission for too few columns or bad coordinates
	Filtered  int      // well-formed lines rejected by the criteria during emission
	Written   int      // data rows emitted (header excluded)
}

// Run converts src to BED-like rows on dst. Pass one parses and filters
// every line to collect the attribute schema; pass two re-reads the source
// and emits the header plus one row per surviving record, translating start
// to 0-based on the way out. The source must produce identical content for
// both opens.
func Run(dst io.Writer, src gff.Source, opts Options) (Stats, error) {
	registry := NewRegistry(opts.Priority)

	if err := discover(src, opts.Criteria, registry); err != nil {
		return Stats{}, err
	}

	columns := registry.Finalize()

	stats, err := emit(dst, src, opts, columns)
	if err != nil {
		return Stats{}, err
	}

	stats.Columns = columns

	return stats, nil
}

// discover is pass one: feed every filtered record to the registry.
// Malformed lines are skipped silently here; they are reported once, during
// emission.
func discover(src gff.Source, criteria []filter.Criterion, registry *Registry) error {
	in, err := src.Open()
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrInputUnavailable, src.Name(), err)
	}
	defer closeQuiet(in)

	scanner := newLineScanner(in)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if skippable(line) {
			continue
		}

		rec, err := gff.ParseLine(line)
		if err != nil {
			continue
		}

		if filter.Evaluate(rec, criteria) {
			registry.Observe(rec)
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrInputUnavailable, src.Name(), err)
	}

	return nil
}

// emit is pass two: re-read the source and write the header plus one row per
// record that passes the filter, with attribute cells in the finalized
// column order. Records repeat the exact parse+filter decisions of pass one,
// so the emitted set equals the observed set on a stable source.
func emit(dst io.Writer, src gff.Source, opts Options, columns []string) (Stats, error) {
	in, err := src.Open()
	if err != nil {
		return Stats{}, fmt.Errorf("%w: cannot re-read %s: %w", ErrInputUnavailable, src.Name(), err)
	}
	defer closeQuiet(in)

	out := bufio.NewWriter(dst)

	header := make([]string, 0, len(fixedHeader)+len(columns))
	header = append(header, fixedHeader...)
	header = append(header, columns...)

	if _, err := fmt.Fprintf(out, "#%s\n", strings.Join(header, "\t")); err != nil {
		return Stats{}, fmt.Errorf("%w: %w", ErrWriteOutput, err)
	}

	var stats Stats

	row := make([]string, 0, len(header))
	scanner := newLineScanner(in)
	lineNum := 0

	for scanner.Scan() {
		lineNum++

		line := strings.TrimSpace(scanner.Text())
		if skippable(line) {
			continue
		}

		rec, err := gff.ParseLine(line)
		if err != nil {
			stats.Malformed++
			warnf(opts.ErrOut, "warning: line %d skipped: %v", lineNum, err)

			continue
		}

		if !filter.Evaluate(rec, opts.Criteria) {
			stats.Filtered++

			continue
		}

		row = row[:0]
		end, _ := rec.Column(gff.FieldEnd)
		row = append(row,
			rec.Seqid,
			strconv.Itoa(rec.Start-1), // 1-based inclusive to 0-based half-open
			end,
			rec.Source,
			rec.Type,
			rec.Score,
			rec.Strand,
			rec.Phase,
		)

		for _, name := range columns {
			row = append(row, rec.Attributes[name]) // absent means empty cell
		}

		if _, err := out.WriteString(strings.Join(row, "\t") + "\n"); err != nil {
			return Stats{}, fmt.Errorf("%w: %w", ErrWriteOutput, err)
		}

		stats.Written++
	}

	if err := scanner.Err(); err != nil {
		return Stats{}, fmt.Errorf("%w: cannot re-read %s: %w", ErrInputUnavailable, src.Name(), err)
	}

	if err := out.Flush(); err != nil {
		return Stats{}, fmt.Errorf("%w: %w", ErrWriteOutput, err)
	}

	return stats, nil
}

// skippable reports whether a trimmed line carries no record: blank lines
// and "#" comments (the GFF3 "##" directives included).
func skippable(line string) bool {
	return line == "" || strings.HasPrefix(line, "#")
}

func newLineScanner(r io.Reader) *bufio.Scanner {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLineBytes)

	return scanner
}

func warnf(w io.Writer, format string, a ...any) {
	if w == nil {
		return
	}

	_, _ = fmt.Fprintf(w, format+"\n", a...)
}

func closeQuiet(c io.Closer) {
	_ = c.Close()
}
