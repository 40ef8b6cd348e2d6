package cli

import (
	"github.com/spf13/cobra"

	"github.com/openwdl/conformance/internal/compare"
)

// CheckOptions holds flags for the check command.
type CheckOptions struct {
	*RootOptions
	TestDir            string
	Config             string
	Engine             string
	EnginesConfig      string
	NumTests           int
	Strict             bool
	NoWarn             bool
	DeprecatedOptional bool
}

// NewCheckCommand creates the check command.
func NewCheckCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CheckOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Statically validate every test case",
		Long: `Run the engine's static validation over every registered test case
without executing anything.

With --no-warn, a failed check of an expected-failure case is downgraded
to a warning; with --deprecated-optional, cases tagged "deprecated" are
downgraded too, so a strict conformance pass can tolerate deprecated but
still spec-valid constructs.

Exit codes:
  0 - All checks passed
  1 - One or more checks failed
  2 - Command error

Examples:
  wdltest check -T tests --engine miniwdl
  wdltest check -T tests --engine miniwdl --strict --no-warn`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(opts, cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.TestDir, "test-dir", "T", ".", "directory holding extracted tests")
	cmd.Flags().StringVarP(&opts.Config, "test-config", "c", "", "registry path (default <test-dir>/"+RegistryFileName+")")
	cmd.Flags().StringVar(&opts.Engine, "engine", "miniwdl", "engine to check with")
	cmd.Flags().StringVar(&opts.EnginesConfig, "engines-config", "", "engine definitions file (default built-in)")
	cmd.Flags().IntVarP(&opts.NumTests, "num-tests", "n", 0, "check only the first N cases")
	cmd.Flags().BoolVar(&opts.Strict, "strict", false, "enable the engine's strict mode")
	cmd.Flags().BoolVar(&opts.NoWarn, "no-warn", false, "downgrade expected-failure check errors to warnings")
	cmd.Flags().BoolVar(&opts.DeprecatedOptional, "deprecated-optional", false, "downgrade deprecated-construct failures to warnings")

	return cmd
}

func runCheck(opts *CheckOptions, cmd *cobra.Command) error {
	w := cmd.OutOrStdout()

	cases, exe, err := loadSuite(opts.TestDir, opts.Config, opts.NumTests, opts.Engine, opts.EnginesConfig)
	if err != nil {
		return err
	}

	flags := compare.Flags{
		NoWarn:             opts.NoWarn,
		DeprecatedOptional: opts.DeprecatedOptional,
	}

	results := make([]compare.Result, 0, len(cases))
	for _, tc := range cases {
		verboseLog(opts.RootOptions, w, cmd.ErrOrStderr(), "checking %s", tc.Path)

		outcome, err := exe.Check(cmd.Context(), tc, opts.Strict)
		if err != nil {
			return WrapExitError(ExitCommandError, "engine failure", err)
		}
		res := compare.EvaluateCheck(tc, outcome, flags)
		results = append(results, res)
		printResult(w, opts.RootOptions, res)
	}

	report := RunReport{Engine: exe.Name(), Summary: compare.Summarize(results), Results: results}
	return reportSuite(opts.RootOptions, cmd, report)
}
