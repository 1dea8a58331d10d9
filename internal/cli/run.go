// Package cli wires flags, config, and I/O around the conversion pipeline.
// Everything runs through Run with injected streams so tests can drive the
// full binary surface without a process boundary.
package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/natefinch/atomic"
	flag "github.com/spf13/pflag"

	"github.com/annotatelab/g2b/internal/convert"
	"github.com/annotatelab/g2b/internal/filter"
	"github.com/annotatelab/g2b/internal/gff"
)

// stdinName is the positional argument selecting stdin as input.
const stdinName = "-"

var errInputRequired = errors.New("exactly one input file is required")

// options holds the parsed command line.
type options struct {
	input            string
	output           string
	filters          []string
	configPath       string
	workDir          string
	quiet            bool
	noDefaultFilters bool
}

// Run is the main entry point. Returns exit code.
func Run(in io.Reader, out, errOut io.Writer, args []string, env map[string]string) int {
	opts, err := parseFlags(args[1:])
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			printUsage(out)

			return 0
		}

		fprintln(errOut, "error:", err)
		printUsage(errOut)

		return 1
	}

	if err := execute(in, out, errOut, opts, env); err != nil {
		fprintln(errOut, "error:", err)

		return 1
	}

	return 0
}

func parseFlags(args []string) (options, error) {
	var opts options

	flags := flag.NewFlagSet("g2b", flag.ContinueOnError)
	flags.SetOutput(io.Discard)

	flags.StringVarP(&opts.output, "output", "o", "", "Output BED file (default: input base name + output suffix)")
	flags.StringArrayVarP(&opts.filters, "filter", "f", nil, "Filter criteria, repeatable (AND between filters, OR within comma-separated values)")
	flags.StringVarP(&opts.configPath, "config", "c", "", "Use specified config file")
	flags.StringVarP(&opts.workDir, "cwd", "C", "", "Run as if started in this directory")
	flags.BoolVarP(&opts.quiet, "quiet", "q", false, "Suppress progress output on stderr")
	flags.BoolVar(&opts.noDefaultFilters, "no-default-filters", false, "Convert every record when no -f is given")

	if err := flags.Parse(args); err != nil {
		return options{}, err
	}

	positional := flags.Args()
	if len(positional) != 1 {
		return options{}, errInputRequired
	}

	opts.input = positional[0]

	return opts, nil
}

func execute(in io.Reader, out, errOut io.Writer, opts options, env map[string]string) error {
	workDir := opts.workDir
	if workDir == "" {
		var err error

		workDir, err = os.Getwd()
		if err != nil {
			return fmt.Errorf("cannot get working directory: %w", err)
		}
	}

	cfg, sources, err := LoadConfig(workDir, resolvePath(workDir, opts.configPath), env)
	if err != nil {
		return err
	}

	specs := opts.filters
	if len(specs) == 0 && !opts.noDefaultFilters {
		specs = cfg.DefaultFilters
	}

	criteria, err := filter.ParseAll(specs)
	if err != nil {
		return err
	}

	src, err := openSource(in, workDir, opts.input)
	if err != nil {
		return err
	}

	outPath := opts.output
	if outPath == "" {
		if opts.input == stdinName {
			outPath = stdinName
		} else {
			outPath = defaultOutputPath(opts.input, cfg.OutputSuffix)
		}
	}

	progress := errOut
	if opts.quiet {
		progress = nil
	}

	if sources.Project != "" {
		warnf(progress, "Config file: %s", sources.Project)
	}

	warnf(progress, "Input file: %s", src.Name())
	warnf(progress, "Output file: %s", displayName(outPath))
	warnf(progress, "Filters:")

	for _, spec := range specs {
		warnf(progress, "  - %s", spec)
	}

	warnf(progress, "Analyzing file structure...")

	pipelineOpts := convert.Options{
		Criteria: criteria,
		Priority: cfg.PriorityAttributes,
		ErrOut:   progress,
	}

	var stats convert.Stats

	if outPath == stdinName {
		stats, err = convert.Run(out, src, pipelineOpts)
	} else {
		stats, err = runToFile(resolvePath(workDir, outPath), src, pipelineOpts)
	}

	if err != nil {
		return err
	}

	if stats.Malformed > 0 {
		warnf(progress, "warning: %d malformed lines skipped", stats.Malformed)
	}

	if len(stats.Columns) == 0 {
		warnf(progress, "warning: no attribute names found in filtered rows")
	}

	warnf(progress, "Conversion complete. %d lines written to %s", stats.Written, displayName(outPath))

	return nil
}

// openSource builds the re-readable input. Files are re-opened per pass;
// stdin cannot be re-read, so it is buffered whole and both passes iterate
// the buffer.
func openSource(in io.Reader, workDir, input string) (gff.Source, error) {
	if input == stdinName {
		return gff.BufferAll("stdin", in)
	}

	path := resolvePath(workDir, input)

	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", convert.ErrInputUnavailable, input, err)
	}

	return gff.FileSource{Path: path}, nil
}

// runToFile writes the conversion into a temp file next to the destination
// and renames it into place on success, so a failed run never leaves a
// partial file at the target path.
func runToFile(path string, src gff.Source, opts convert.Options) (convert.Stats, error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".g2b-*")
	if err != nil {
		return convert.Stats{}, fmt.Errorf("%w: %w", convert.ErrWriteOutput, err)
	}

	tmpPath := tmp.Name()

	stats, runErr := convert.Run(tmp, src, opts)
	closeErr := tmp.Close()

	if runErr == nil && closeErr != nil {
		runErr = fmt.Errorf("%w: %w", convert.ErrWriteOutput, closeErr)
	}

	if runErr != nil {
		_ = os.Remove(tmpPath)

		return convert.Stats{}, runErr
	}

	if err := atomic.ReplaceFile(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)

		return convert.Stats{}, fmt.Errorf("%w: %w", convert.ErrWriteOutput, err)
	}

	return stats, nil
}

// defaultOutputPath derives the output name from the input: strip a ".gz"
// suffix, then a ".gff3" or ".gff" suffix, then append the configured
// suffix.
func defaultOutputPath(input, suffix string) string {
	base := strings.TrimSuffix(input, ".gz")

	if trimmed := strings.TrimSuffix(base, ".gff3"); trimmed != base {
		base = trimmed
	} else {
		base = strings.TrimSuffix(base, ".gff")
	}

	return base + suffix
}

func resolvePath(workDir, path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}

	return filepath.Join(workDir, path)
}

func displayName(path string) string {
	if path == stdinName {
		return "stdout"
	}

	return path
}

func fprintln(w io.Writer, a ...any) {
	_, _ = fmt.Fprintln(w, a...)
}

func warnf(w io.Writer, format string, a ...any) {
	if w == nil {
		return
	}

	_, _ = fmt.Fprintf(w, format+"\n", a...)
}

func printUsage(w io.Writer) {
	fprintln(w, `g2b - flexible GFF3 to BED converter

Usage: g2b [flags] <input.gff3[.gz] | ->

Converts GFF3 annotation to a BED-like table: 0-based start coordinates,
fixed columns first, then every attribute seen in the filtered records as
its own column. Reading from "-" buffers stdin and writes to stdout.

Flags:
  -o, --output <file>      Output BED file (default: input base + _filtered.bed)
  -f, --filter <expr>      Filter criteria, repeatable (AND between filters)
  -c, --config <file>      Use specified config file (default: .g2b.json)
  -C, --cwd <dir>          Run as if started in <dir>
  -q, --quiet              Suppress progress output on stderr
      --no-default-filters Convert every record when no -f is given

Filter syntax:
  key=value         Include rows where key equals value
  key!=value        Exclude rows where key equals value
  key=val1,val2     Include rows where key equals val1 OR val2

Keys "column0" through "column8" select fixed GFF3 columns; any other key
selects an attribute by name. Without -f the defaults are column2=gene and
gene_biotype=protein_coding.

Examples:
  g2b input.gff3
  g2b input.gff3.gz -f column2=exon
  g2b input.gff3 -f column2=gene -f gene_biotype!=pseudogene
  g2b input.gff3 -f column0=chr1,chr2,chrX -o selected.bed`)
}
