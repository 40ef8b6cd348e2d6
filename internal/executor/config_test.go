package executor

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openwdl/conformance/internal/compare"
)

const minimalEngines = `engines:
  fake:
    binary: fakewdl
    path_policy: relative
    check_args: ["check", "{wdl}"]
    run_args: ["run", "{wdl}", "-i", "{inputs}", "-d", "{outdir}"]
    outputs_from: stdout
    outputs_key: outputs
`

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "engines.yaml")
	require.NoError(t, os.WriteFile(path, []byte(minimalEngines), 0644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	def, err := cfg.Engine("fake")
	require.NoError(t, err)
	assert.Equal(t, "fakewdl", def.Binary)
	assert.Equal(t, compare.PolicyRelative, def.PathPolicy)
	assert.Equal(t, "outputs", def.OutputsKey)
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read")
}

func TestParseConfig_RejectsUnknownFields(t *testing.T) {
	bad := `engines:
  fake:
    binary: fakewdl
    path_policy: relative
    run_args: ["run"]
    outputs_from: stdout
    extra_field: oops
`
	_, err := parseConfig([]byte(bad))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse")
}

func TestParseConfig_Validation(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{
			"missing binary",
			"engines:\n  e:\n    path_policy: relative\n    run_args: [\"run\"]\n    outputs_from: stdout\n",
			"binary is required",
		},
		{
			"missing run_args",
			"engines:\n  e:\n    binary: b\n    path_policy: relative\n    outputs_from: stdout\n",
			"run_args is required",
		},
		{
			"missing path_policy",
			"engines:\n  e:\n    binary: b\n    run_args: [\"run\"]\n    outputs_from: stdout\n",
			"path_policy is required",
		},
		{
			"bad path_policy",
			"engines:\n  e:\n    binary: b\n    path_policy: sideways\n    run_args: [\"run\"]\n    outputs_from: stdout\n",
			"unknown path_policy",
		},
		{
			"bad outputs_from",
			"engines:\n  e:\n    binary: b\n    path_policy: relative\n    run_args: [\"run\"]\n    outputs_from: pigeon\n",
			"outputs_from must be",
		},
		{
			"file without outputs_file",
			"engines:\n  e:\n    binary: b\n    path_policy: relative\n    run_args: [\"run\"]\n    outputs_from: file\n",
			"outputs_file is required",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseConfig([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg, err := DefaultConfig()
	require.NoError(t, err)

	for _, name := range []string{"miniwdl", "sprocket", "toil"} {
		def, err := cfg.Engine(name)
		require.NoError(t, err, name)
		assert.NotEmpty(t, def.Binary, name)
	}

	_, err = cfg.Engine("cromwell-from-the-future")
	assert.Error(t, err)
}

func TestExpandArgs(t *testing.T) {
	vars := map[string]string{
		"wdl":    "tests/hello.wdl",
		"inputs": "out/hello.inputs.json",
		"outdir": "out/hello",
		"target": "hello",
	}
	args := expandArgs([]string{"run", "{wdl}", "-i", "{inputs}", "--task", "{target}", "-d", "{outdir}/work"}, vars)
	assert.Equal(t, []string{
		"run", "tests/hello.wdl",
		"-i", "out/hello.inputs.json",
		"--task", "hello",
		"-d", "out/hello/work",
	}, args)
}

func TestExpand_UnknownPlaceholderLeftAlone(t *testing.T) {
	assert.Equal(t, "{mystery}", expand("{mystery}", map[string]string{"wdl": "x"}))
}
