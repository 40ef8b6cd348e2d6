package extract

import (
	_ "embed"
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
)

//go:embed config_schema.cue
var configSchemaCUE string

// configSchema validates test config sections against the embedded CUE
// schema before any defaulting is applied. Validation catches unknown
// keys and wrongly-typed known keys close to the authoring error.
type configSchema struct {
	schema cue.Value
}

func newConfigSchema() (*configSchema, error) {
	ctx := cuecontext.New()
	v := ctx.CompileString(configSchemaCUE, cue.Filename("config_schema.cue"))
	if err := v.Err(); err != nil {
		return nil, fmt.Errorf("failed to compile config schema: %w", err)
	}
	schema := v.LookupPath(cue.ParsePath("#TestConfig"))
	if err := schema.Err(); err != nil {
		return nil, fmt.Errorf("config schema has no #TestConfig definition: %w", err)
	}
	return &configSchema{schema: schema}, nil
}

// validate unifies raw JSON config text with the schema. JSON is a subset
// of CUE, so the section compiles directly.
func (cs *configSchema) validate(raw string) error {
	ctx := cs.schema.Context()
	data := ctx.CompileString(raw, cue.Filename("test config"))
	if err := data.Err(); err != nil {
		return fmt.Errorf("test config is not valid JSON: %w", err)
	}
	unified := cs.schema.Unify(data)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return err
	}
	return nil
}
