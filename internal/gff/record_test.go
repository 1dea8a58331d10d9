package gff_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/annotatelab/g2b/internal/gff"
)

const geneLine = "chr1\tRefSeq\tgene\t11874\t14409\t.\t+\t.\tID=g1;gene_biotype=protein_coding"

func Test_ParseLine_ReturnsRecord_When_LineWellFormed(t *testing.T) {
	t.Parallel()

	rec, err := gff.ParseLine(geneLine)
	require.NoError(t, err)

	assert.Equal(t, "chr1", rec.Seqid)
	assert.Equal(t, "RefSeq", rec.Source)
	assert.Equal(t, "gene", rec.Type)
	assert.Equal(t, 11874, rec.Start)
	assert.Equal(t, 14409, rec.End)
	assert.Equal(t, ".", rec.Score)
	assert.Equal(t, "+", rec.Strand)
	assert.Equal(t, ".", rec.Phase)
	assert.Equal(t, map[string]string{
		"ID":           "g1",
		"gene_biotype": "protein_coding",
	}, rec.Attributes)
}

func Test_ParseLine_Fails_When_LineMalformed(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		line string
	}{
		{name: "too few columns", line: "chr1\tRefSeq\tgene\t100\t200"},
		{name: "eight columns", line: strings.Join([]string{"chr1", "src", "gene", "1", "2", ".", "+", "."}, "\t")},
		{name: "non-integer start", line: "chr1\tsrc\tgene\tabc\t200\t.\t+\t.\tID=g1"},
		{name: "non-integer end", line: "chr1\tsrc\tgene\t100\txyz\t.\t+\t.\tID=g1"},
		{name: "empty line", line: ""},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			_, err := gff.ParseLine(tc.line)
			require.ErrorIs(t, err, gff.ErrMalformedLine)
		})
	}
}

func Test_ParseLine_KeepsExtraColumnsOutOfRecord(t *testing.T) {
	t.Parallel()

	rec, err := gff.ParseLine(geneLine + "\textra")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"ID": "g1", "gene_biotype": "protein_coding"}, rec.Attributes)
}

func Test_Column_ReturnsSourceText(t *testing.T) {
	t.Parallel()

	rec, err := gff.ParseLine(geneLine)
	require.NoError(t, err)

	start, ok := rec.Column(gff.FieldStart)
	require.True(t, ok)
	assert.Equal(t, "11874", start, "column filters must see the original 1-based coordinate")

	attrs, ok := rec.Column(gff.FieldAttributes)
	require.True(t, ok)
	assert.Equal(t, "ID=g1;gene_biotype=protein_coding", attrs)

	_, ok = rec.Column(9)
	assert.False(t, ok)

	_, ok = rec.Column(-1)
	assert.False(t, ok)
}

func Test_ParseAttributes_DecodesPairs(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		text string
		want map[string]string
	}{
		{
			name: "simple pairs",
			text: "ID=gene1;Name=DDX11L1",
			want: map[string]string{"ID": "gene1", "Name": "DDX11L1"},
		},
		{
			name: "percent decoding",
			text: "note=high%2Cconfidence",
			want: map[string]string{"note": "high,confidence"},
		},
		{
			name: "malformed escape passes through",
			text: "note=50%;desc=a%zz;tail=b%",
			want: map[string]string{"note": "50%", "desc": "a%zz", "tail": "b%"},
		},
		{
			name: "value keeps later equals signs",
			text: "formula=a=b",
			want: map[string]string{"formula": "a=b"},
		},
		{
			name: "pieces without equals ignored",
			text: "ID=g1;orphan;Name=x",
			want: map[string]string{"ID": "g1", "Name": "x"},
		},
		{
			name: "surrounding whitespace trimmed",
			text: " ID = g1 ; Name = x ",
			want: map[string]string{"ID": "g1", "Name": "x"},
		},
		{
			name: "duplicate name last wins",
			text: "tag=first;tag=second",
			want: map[string]string{"tag": "second"},
		},
		{
			name: "dot sentinel",
			text: ".",
			want: map[string]string{},
		},
		{
			name: "empty",
			text: "",
			want: map[string]string{},
		},
		{
			name: "trailing semicolon",
			text: "ID=g1;",
			want: map[string]string{"ID": "g1"},
		},
		{
			name: "empty value",
			text: "ID=",
			want: map[string]string{"ID": ""},
		},
		{
			name: "encoded name",
			text: "db%5Fxref=GeneID:1",
			want: map[string]string{"db_xref": "GeneID:1"},
		},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tc.want, gff.ParseAttributes(tc.text))
		})
	}
}
