package registry

import (
	"bytes"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleCases(t *testing.T) *Registry {
	t.Helper()
	reg := New()
	require.NoError(t, reg.Add(TestCase{
		ID:          "hello",
		Path:        "tests/hello.wdl",
		Type:        TypeWorkflow,
		Target:      "hello",
		Priority:    PriorityRequired,
		ReturnCodes: AnyReturnCode(),
		Output:      map[string]any{"hello.greeting": "hello"},
	}))
	require.NoError(t, reg.Add(TestCase{
		ID:            "mv",
		Path:          "tests/mv_fail_task.wdl",
		Type:          TypeTask,
		Target:        "mv",
		Priority:      PriorityIgnore,
		Fail:          true,
		ExcludeOutput: []string{"mv.stdout"},
		ReturnCodes:   ReturnCodeList(1, 2),
		Dependencies:  []string{"docker"},
		Tags:          []string{"deprecated"},
		Input:         map[string]any{"mv.src": "a.txt"},
	}))
	return reg
}

func TestRegistry_Golden(t *testing.T) {
	reg := sampleCases(t)

	var buf bytes.Buffer
	require.NoError(t, reg.Write(&buf))

	g := goldie.New(t)
	g.Assert(t, "registry", buf.Bytes())
}

func TestRegistry_RoundTrip(t *testing.T) {
	reg := sampleCases(t)

	var buf bytes.Buffer
	require.NoError(t, reg.Write(&buf))

	loaded, err := Read(&buf)
	require.NoError(t, err)
	assert.Equal(t, reg.Cases(), loaded.Cases())

	// Serialization is stable: a second pass is byte-identical.
	var again bytes.Buffer
	require.NoError(t, loaded.Write(&again))

	var first bytes.Buffer
	require.NoError(t, reg.Write(&first))
	assert.Equal(t, first.String(), again.String())
}

func TestRegistry_DuplicatePath(t *testing.T) {
	reg := New()
	require.NoError(t, reg.Add(TestCase{ID: "a", Path: "tests/a.wdl"}))

	err := reg.Add(TestCase{ID: "b", Path: "tests/a.wdl"})
	require.Error(t, err)

	var dup *DuplicatePathError
	require.ErrorAs(t, err, &dup)
	assert.Equal(t, "tests/a.wdl", dup.Path)
	assert.Equal(t, 1, reg.Len())
}

func TestRegistry_CanonicalizesNilCollections(t *testing.T) {
	reg := New()
	require.NoError(t, reg.Add(TestCase{ID: "a", Path: "tests/a.wdl"}))

	tc := reg.Cases()[0]
	assert.Equal(t, []string{}, tc.ExcludeOutput)
	assert.Equal(t, []string{}, tc.Dependencies)
	assert.Equal(t, []string{}, tc.Tags)
	assert.Equal(t, map[string]any{}, tc.Input)
	assert.Equal(t, map[string]any{}, tc.Output)
}

func TestRegistry_EmptyWrite(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, New().Write(&buf))
	assert.Equal(t, "[]\n", buf.String())
}

func TestReturnCodes_Matches(t *testing.T) {
	assert.True(t, AnyReturnCode().Matches(0))
	assert.True(t, AnyReturnCode().Matches(127))

	rc := ReturnCodeList(0, 1)
	assert.True(t, rc.Matches(0))
	assert.True(t, rc.Matches(1))
	assert.False(t, rc.Matches(2))
}

func TestReturnCodes_String(t *testing.T) {
	assert.Equal(t, "*", AnyReturnCode().String())
	assert.Equal(t, "[0 1]", ReturnCodeList(0, 1).String())
}

func TestReturnCodesFromValue(t *testing.T) {
	tests := []struct {
		name     string
		value    any
		wildcard bool
		codes    []int
		wantErr  bool
	}{
		{name: "wildcard", value: "*", wildcard: true},
		{name: "numeric string", value: "1", codes: []int{1}},
		{name: "scalar", value: float64(1), codes: []int{1}},
		{name: "list", value: []any{float64(0), float64(1)}, codes: []int{0, 1}},
		{name: "string in list", value: []any{"2"}, codes: []int{2}},
		{name: "fractional", value: 1.5, wantErr: true},
		{name: "non-numeric string", value: "abc", wantErr: true},
		{name: "bool", value: true, wantErr: true},
		{name: "bool in list", value: []any{true}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rc, err := ReturnCodesFromValue(tt.value)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wildcard, rc.IsWildcard())
			if !tt.wildcard {
				assert.Equal(t, tt.codes, rc.Codes())
			}
		})
	}
}

func TestStringListFromValue(t *testing.T) {
	list, err := StringListFromValue("tags", "one")
	require.NoError(t, err)
	assert.Equal(t, []string{"one"}, list)

	list, err = StringListFromValue("tags", []any{"a", "b"})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, list)

	_, err = StringListFromValue("tags", []any{"a", float64(1)})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "tags[1]")

	_, err = StringListFromValue("tags", 42)
	require.Error(t, err)
}

func TestTestCase_Helpers(t *testing.T) {
	tc := TestCase{
		Tags:          []string{"deprecated"},
		ExcludeOutput: []string{"wf.stdout"},
	}
	assert.True(t, tc.HasTag("deprecated"))
	assert.False(t, tc.HasTag("slow"))
	assert.True(t, tc.Excludes("wf.stdout"))
	assert.False(t, tc.Excludes("wf.out"))
}
