// Package gff parses GFF3 annotation lines into records with decoded
// attribute maps, and provides re-openable line sources for multi-pass
// processing (including transparent gzip decompression).
//
// http://www.sequenceontology.org/gff3.shtml
package gff

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Fixed column indexes of a GFF3 line.
const (
	FieldSeqid = iota
	FieldSource
	FieldType
	FieldStart
	FieldEnd
	FieldScore
	FieldStrand
	FieldPhase
	FieldAttributes

	// NumFields is the minimum column count of a well-formed line.
	NumFields = 9
)

// Error variables for record parsing.
var (
	ErrMalformedLine = errors.New("malformed line")
	ErrBadStartCoord = errors.New("start coordinate is not an integer")
	ErrBadEndCoord   = errors.New("end coordinate is not an integer")
)

// Record is one parsed annotation entry. Start and End carry the source's
// 1-based inclusive coordinates; the 0-based translation happens only when a
// BED row is emitted, never here. A Record is not mutated after ParseLine
// returns it.
type Record struct {
	Seqid  string
	Source string
	Type   string
	Start  int    // 1-based inclusive, as given in source
	End    int    // 1-based inclusive
	Score  string // numeric or "." sentinel, kept as text
	Strand string // "+", "-" or "."
	Phase  string // "0", "1", "2" or "."

	// Attributes maps decoded attribute names to decoded values. When one
	// name appears more than once in a line's attribute text, the last
	// value wins.
	Attributes map[string]string

	// raw column text, retained so column filters compare against the
	// source's own representation (1-based coordinates, undecoded
	// attribute text).
	raw []string
}

// ParseLine splits one non-blank, non-comment line on tabs and builds a
// Record. Lines with fewer than NumFields columns, or with non-integer
// start/end coordinates, fail with an error wrapping ErrMalformedLine.
func ParseLine(line string) (*Record, error) {
	fields := strings.Split(line, "\t")
	if len(fields) < NumFields {
		return nil, fmt.Errorf("%w: %d columns, want at least %d", ErrMalformedLine, len(fields), NumFields)
	}

	start, err := strconv.Atoi(fields[FieldStart])
	if err != nil {
		return nil, fmt.Errorf("%w: %w: %q", ErrMalformedLine, ErrBadStartCoord, fields[FieldStart])
	}

	end, err := strconv.Atoi(fields[FieldEnd])
	if err != nil {
		return nil, fmt.Errorf("%w: %w: %q", ErrMalformedLine, ErrBadEndCoord, fields[FieldEnd])
	}

	return &Record{
		Seqid:      fields[FieldSeqid],
		Source:     fields[FieldSource],
		Type:       fields[FieldType],
		Start:      start,
		End:        end,
		Score:      fields[FieldScore],
		Strand:     fields[FieldStrand],
		Phase:      fields[FieldPhase],
		Attributes: ParseAttributes(fields[FieldAttributes]),
		raw:        fields[:NumFields],
	}, nil
}

// Column returns the source text of a fixed column (FieldSeqid through
// FieldAttributes). Coordinates come back exactly as they appeared in the
// input, not post-translation. ok is false for an out-of-range index.
func (r *Record) Column(idx int) (string, bool) {
	if idx < 0 || idx >= len(r.raw) {
		return "", false
	}

	return r.raw[idx], true
}

// ParseAttributes decodes the semicolon-delimited attribute column into a
// name-to-value map. Each piece is split on its first "=", both halves are
// percent-decoded and trimmed of surrounding whitespace, and pieces without
// "=" are ignored. "." or empty input yields an empty map.
func ParseAttributes(text string) map[string]string {
	attrs := make(map[string]string)

	if text == "" || text == "." {
		return attrs
	}

	for _, piece := range strings.Split(text, ";") {
		piece = strings.TrimSpace(piece)
		if piece == "" {
			continue
		}

		name, value, ok := strings.Cut(piece, "=")
		if !ok {
			continue
		}

		name = strings.TrimSpace(percentDecode(name))
		value = strings.TrimSpace(percentDecode(value))
		attrs[name] = value
	}

	return attrs
}

// percentDecode resolves %XX escapes. A percent sign not followed by two hex
// digits passes through literally instead of failing, which is why
// net/url's escaping functions are not used here: they reject malformed
// escapes, and annotation sources contain them.
func percentDecode(s string) string {
	if !strings.ContainsRune(s, '%') {
		return s
	}

	var b strings.Builder
	b.Grow(len(s))

	for i := 0; i < len(s); i++ {
		if s[i] == '%' && i+2 < len(s) && isHex(s[i+1]) && isHex(s[i+2]) {
			b.WriteByte(unhex(s[i+1])<<4 | unhex(s[i+2]))
			i += 2

			continue
		}

		b.WriteByte(s[i])
	}

	return b.String()
}

func isHex(c byte) bool {
	switch {
	case '0' <= c && c <= '9':
		return true
	case 'a' <= c && c <= 'f':
		return true
	case 'A' <= c && c <= 'F':
		return true
	}

	return false
}

func unhex(c byte) byte {
	switch {
	case '0' <= c && c <= '9':
		return c - '0'
	case 'a' <= c && c <= 'f':
		return c - 'a' + 10
	default:
		return c - 'A' + 10
	}
}
