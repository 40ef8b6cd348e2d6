package executor

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/openwdl/conformance/internal/compare"
)

//go:embed default_engines.yaml
var defaultEnginesYAML []byte

// OutputsFrom selects where an engine reports its structured outputs.
const (
	OutputsFromStdout = "stdout"
	OutputsFromFile   = "file"
)

// EngineDef describes one engine's command-line conventions. Argument
// templates may use the placeholders {wdl}, {inputs}, {outdir}, {target}
// and {id}.
type EngineDef struct {
	// Binary is the engine executable, resolved on the system path.
	Binary string `yaml:"binary"`

	// PathPolicy selects the normalization reduction for this engine.
	PathPolicy compare.PathPolicy `yaml:"path_policy"`

	// CheckArgs is the static-validation argument template.
	CheckArgs []string `yaml:"check_args"`

	// StrictArg, when set, is appended to CheckArgs for strict checks.
	StrictArg string `yaml:"strict_arg,omitempty"`

	// RunArgs is the execution argument template.
	RunArgs []string `yaml:"run_args"`

	// TaskArgs is appended to RunArgs for task-typed cases.
	TaskArgs []string `yaml:"task_args,omitempty"`

	// OutputsFrom is "stdout" or "file".
	OutputsFrom string `yaml:"outputs_from"`

	// OutputsFile is the outputs file template when OutputsFrom is
	// "file".
	OutputsFile string `yaml:"outputs_file,omitempty"`

	// OutputsKey is the envelope key holding the output mapping inside
	// the parsed JSON, e.g. "outputs". Empty means the document root.
	OutputsKey string `yaml:"outputs_key,omitempty"`
}

// Config is the engines configuration file.
type Config struct {
	Engines map[string]EngineDef `yaml:"engines"`
}

// LoadConfig reads an engines configuration file with strict field
// validation, so a typo in a definition fails loudly.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read engines config: %w", err)
	}
	return parseConfig(data)
}

// DefaultConfig returns the built-in engine definitions.
func DefaultConfig() (*Config, error) {
	return parseConfig(defaultEnginesYAML)
}

func parseConfig(data []byte) (*Config, error) {
	var cfg Config
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse engines config: %w", err)
	}
	for name, def := range cfg.Engines {
		if err := validateDef(name, def); err != nil {
			return nil, err
		}
	}
	return &cfg, nil
}

func validateDef(name string, def EngineDef) error {
	if def.Binary == "" {
		return fmt.Errorf("engine %s: binary is required", name)
	}
	if len(def.RunArgs) == 0 {
		return fmt.Errorf("engine %s: run_args is required", name)
	}
	switch def.PathPolicy {
	case compare.PolicyRelative, compare.PolicyBasename:
	case "":
		return fmt.Errorf("engine %s: path_policy is required (relative|basename)", name)
	default:
		return fmt.Errorf("engine %s: unknown path_policy %q", name, def.PathPolicy)
	}
	switch def.OutputsFrom {
	case OutputsFromStdout:
	case OutputsFromFile:
		if def.OutputsFile == "" {
			return fmt.Errorf("engine %s: outputs_file is required when outputs_from is file", name)
		}
	default:
		return fmt.Errorf("engine %s: outputs_from must be stdout or file", name)
	}
	return nil
}

// Engine looks up a definition by name.
func (c *Config) Engine(name string) (EngineDef, error) {
	def, ok := c.Engines[name]
	if !ok {
		return EngineDef{}, fmt.Errorf("engine %q is not defined", name)
	}
	return def, nil
}

// expandArgs substitutes placeholders in an argument template.
func expandArgs(args []string, vars map[string]string) []string {
	out := make([]string, len(args))
	for i, arg := range args {
		out[i] = expand(arg, vars)
	}
	return out
}

func expand(s string, vars map[string]string) string {
	for k, v := range vars {
		s = strings.ReplaceAll(s, "{"+k+"}", v)
	}
	return s
}
