package gff_test

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/annotatelab/g2b/internal/gff"
)

func Test_FileSource_ReadsSameContentAcrossOpens(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "in.gff3")
	require.NoError(t, os.WriteFile(path, []byte(geneLine+"\n"), 0o600))

	src := gff.FileSource{Path: path}

	first := readAll(t, src)
	second := readAll(t, src)

	assert.Equal(t, geneLine+"\n", first)
	assert.Equal(t, first, second)
}

func Test_FileSource_DecompressesGz(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "in.gff3.gz")

	f, err := os.Create(path)
	require.NoError(t, err)

	gz := gzip.NewWriter(f)
	_, err = gz.Write([]byte(geneLine + "\n"))
	require.NoError(t, err)
	require.NoError(t, gz.Close())
	require.NoError(t, f.Close())

	src := gff.FileSource{Path: path}

	assert.Equal(t, geneLine+"\n", readAll(t, src))
	assert.Equal(t, geneLine+"\n", readAll(t, src), "gz sources must survive a second open")
}

func Test_FileSource_Fails_When_FileMissing(t *testing.T) {
	t.Parallel()

	src := gff.FileSource{Path: filepath.Join(t.TempDir(), "missing.gff3")}

	_, err := src.Open()
	require.Error(t, err)
}

func Test_FileSource_Fails_When_GzCorrupt(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "bad.gff3.gz")
	require.NoError(t, os.WriteFile(path, []byte("not gzip at all"), 0o600))

	src := gff.FileSource{Path: path}

	_, err := src.Open()
	require.Error(t, err)
}

func Test_BufferAll_CapturesStreamOnce(t *testing.T) {
	t.Parallel()

	src, err := gff.BufferAll("stdin", strings.NewReader(geneLine+"\n"))
	require.NoError(t, err)

	assert.Equal(t, "stdin", src.Name())
	assert.Equal(t, geneLine+"\n", readAll(t, src))
	assert.Equal(t, geneLine+"\n", readAll(t, src), "buffered sources replay the captured bytes")
}

func readAll(t *testing.T, src gff.Source) string {
	t.Helper()

	rc, err := src.Open()
	require.NoError(t, err)

	defer func() { require.NoError(t, rc.Close()) }()

	data, err := io.ReadAll(rc)
	require.NoError(t, err)

	return string(data)
}
