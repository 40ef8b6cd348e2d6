package extract

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openwdl/conformance/internal/registry"
)

func specDocument(blocks ...Block) string {
	var b strings.Builder
	b.WriteString("# Example Specification\n\nSome prose before the examples.\n\n")
	for _, block := range blocks {
		b.WriteString(block.Text)
		b.WriteString("\n\nMore prose between examples.\n\n")
	}
	return b.String()
}

func TestExtract_Document(t *testing.T) {
	dir := t.TempDir()

	taskSource := "version 1.1\n\ntask mv {\n  command <<< mv a b >>>\n}"
	doc := specDocument(
		exampleBlock("hello.wdl", helloSource, `{}`, `{"hello.greeting": "hello"}`, ""),
		exampleBlock("mv_fail_task.wdl", taskSource, "", "", `{"returnCodes": 1}`),
	)

	reg, err := Extract(strings.NewReader(doc), Options{OutDir: dir, Version: "1.1"})
	require.NoError(t, err)
	require.Equal(t, 2, reg.Len())

	cases := reg.Cases()
	assert.Equal(t, "hello", cases[0].ID)
	assert.Equal(t, registry.TypeWorkflow, cases[0].Type)
	assert.Equal(t, map[string]any{"hello.greeting": "hello"}, cases[0].Output)

	assert.Equal(t, "mv", cases[1].ID)
	assert.Equal(t, registry.TypeTask, cases[1].Type)
	assert.True(t, cases[1].Fail)
	assert.Equal(t, []int{1}, cases[1].ReturnCodes.Codes())

	for _, tc := range cases {
		_, err := os.Stat(tc.Path)
		assert.NoError(t, err, tc.Path)
	}
}

func TestExtract_OrderPreserved(t *testing.T) {
	dir := t.TempDir()

	doc := specDocument(
		exampleBlock("zeta.wdl", helloSource, "", "", ""),
		exampleBlock("alpha.wdl", helloSource, "", "", ""),
	)

	reg, err := Extract(strings.NewReader(doc), Options{OutDir: dir, Version: "1.1"})
	require.NoError(t, err)

	cases := reg.Cases()
	require.Len(t, cases, 2)
	assert.Equal(t, "zeta", cases[0].ID)
	assert.Equal(t, "alpha", cases[1].ID)
}

func TestExtract_DuplicateTitleAborts(t *testing.T) {
	dir := t.TempDir()

	doc := specDocument(
		exampleBlock("hello.wdl", helloSource, "", "", ""),
		exampleBlock("hello.wdl", helloSource, "", "", ""),
	)

	_, err := Extract(strings.NewReader(doc), Options{OutDir: dir, Version: "1.1"})
	require.Error(t, err)
	assert.True(t, IsCode(err, ErrCodeDuplicateCase))
}

func TestExtract_FailFast(t *testing.T) {
	dir := t.TempDir()

	// The second block declares the wrong version; the third is well
	// formed but must never be reached.
	wrongVersion := "version 1.0\n\nworkflow old {\n}"
	doc := specDocument(
		exampleBlock("first.wdl", helloSource, "", "", ""),
		exampleBlock("old.wdl", wrongVersion, "", "", ""),
		exampleBlock("third.wdl", helloSource, "", "", ""),
	)

	_, err := Extract(strings.NewReader(doc), Options{OutDir: dir, Version: "1.1"})
	require.Error(t, err)
	assert.True(t, IsCode(err, ErrCodeVersion))

	_, statErr := os.Stat(filepath.Join(dir, "third.wdl"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestExtract_StrictUnclosed(t *testing.T) {
	dir := t.TempDir()

	doc := specDocument(exampleBlock("hello.wdl", helloSource, "", "", "")) +
		"<details>\nnever closed\n"

	_, err := Extract(strings.NewReader(doc), Options{
		OutDir:   dir,
		Version:  "1.1",
		Unclosed: StrictUnclosed,
	})
	require.Error(t, err)
	assert.True(t, IsCode(err, ErrCodeGrammar))
}

func TestExtract_RoundTrip(t *testing.T) {
	dir := t.TempDir()

	doc := specDocument(
		exampleBlock("hello.wdl", helloSource,
			`{"hello.name": "world"}`,
			`{"hello.greeting": "hello world"}`,
			`{"tags": ["examples"], "returnCodes": [0]}`),
	)

	reg, err := Extract(strings.NewReader(doc), Options{OutDir: dir, Version: "1.1"})
	require.NoError(t, err)

	path := filepath.Join(dir, "test_config.json")
	require.NoError(t, reg.Save(path))

	loaded, err := registry.Load(path)
	require.NoError(t, err)
	assert.Equal(t, reg.Cases(), loaded.Cases())
}

func TestExtractFile_MissingDocument(t *testing.T) {
	_, err := ExtractFile(filepath.Join(t.TempDir(), "nope.md"), Options{
		OutDir:  t.TempDir(),
		Version: "1.1",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to open")
}
