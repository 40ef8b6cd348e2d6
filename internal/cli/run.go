package cli

import (
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/openwdl/conformance/internal/compare"
	"github.com/openwdl/conformance/internal/executor"
	"github.com/openwdl/conformance/internal/history"
	"github.com/openwdl/conformance/internal/registry"
)

// FailedTestsFileName is the plain-text artifact listing the path of
// every case that resolved to FAIL, one per line.
const FailedTestsFileName = "failed_tests.txt"

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	TestDir            string
	Config             string
	OutputDir          string
	Engine             string
	EnginesConfig      string
	HistoryDB          string
	NumTests           int
	NoWarn             bool
	DeprecatedOptional bool
	UnorderedDirs      bool
}

// RunReport is the JSON payload of a run.
type RunReport struct {
	Engine  string           `json:"engine"`
	RunID   string           `json:"run_id,omitempty"`
	Summary compare.Summary  `json:"summary"`
	Results []compare.Result `json:"results"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the conformance suite against an engine",
		Long: `Run every registered test case against an execution engine and judge
each result against the expected values recorded in the registry.

Cases are evaluated independently: one case's failure never prevents
evaluation of the remaining cases. Each case stages its outputs in a
private subdirectory of the output directory.

Exit codes:
  0 - All evaluated cases passed
  1 - One or more cases failed
  2 - Command error (missing registry, broken engine, etc.)

Examples:
  wdltest run -T tests --engine miniwdl
  wdltest run -T tests --engine sprocket -O results -n 10
  wdltest run -T tests --engine miniwdl --history-db runs.db`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSuite(opts, cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.TestDir, "test-dir", "T", ".", "directory holding extracted tests")
	cmd.Flags().StringVarP(&opts.Config, "test-config", "c", "", "registry path (default <test-dir>/"+RegistryFileName+")")
	cmd.Flags().StringVarP(&opts.OutputDir, "output-dir", "O", "", "output base directory (default <test-dir>/out)")
	cmd.Flags().StringVar(&opts.Engine, "engine", "miniwdl", "engine to run")
	cmd.Flags().StringVar(&opts.EnginesConfig, "engines-config", "", "engine definitions file (default built-in)")
	cmd.Flags().StringVar(&opts.HistoryDB, "history-db", "", "record results in this SQLite database")
	cmd.Flags().IntVarP(&opts.NumTests, "num-tests", "n", 0, "evaluate only the first N cases")
	cmd.Flags().BoolVar(&opts.NoWarn, "no-warn", false, "downgrade expected-failure check errors to warnings")
	cmd.Flags().BoolVar(&opts.DeprecatedOptional, "deprecated-optional", false, "downgrade deprecated-construct failures to warnings")
	cmd.Flags().BoolVar(&opts.UnorderedDirs, "unordered-dirs", false, "compare directory expansions order-insensitively")

	return cmd
}

func runSuite(opts *RunOptions, cmd *cobra.Command) error {
	w := cmd.OutOrStdout()

	cases, exe, err := loadSuite(opts.TestDir, opts.Config, opts.NumTests, opts.Engine, opts.EnginesConfig)
	if err != nil {
		return err
	}

	outputDir := opts.OutputDir
	if outputDir == "" {
		outputDir = filepath.Join(opts.TestDir, "out")
	}

	flags := compare.Flags{
		NoWarn:             opts.NoWarn,
		DeprecatedOptional: opts.DeprecatedOptional,
		UnorderedLists:     opts.UnorderedDirs,
	}

	started := time.Now()
	results := make([]compare.Result, 0, len(cases))
	for _, tc := range cases {
		// Private per-case staging area: two cases must never resolve
		// paths against the same base directory.
		caseDir := filepath.Join(outputDir, tc.ID)
		verboseLog(opts.RootOptions, w, cmd.ErrOrStderr(), "running %s", tc.Path)

		outcome, err := exe.Run(cmd.Context(), tc, caseDir)
		if err != nil {
			// Engine-level failure: fatal to the whole run, not one case.
			return WrapExitError(ExitCommandError, "engine failure", err)
		}

		norm := &compare.Normalizer{BaseDir: caseDir, Policy: exe.PathPolicy()}
		res := compare.Evaluate(tc, outcome, norm, flags)
		results = append(results, res)
		printResult(w, opts.RootOptions, res)
	}
	finished := time.Now()

	sum := compare.Summarize(results)
	if err := sum.SaveFailedList(filepath.Join(opts.TestDir, FailedTestsFileName)); err != nil {
		return WrapExitError(ExitCommandError, "failed to write failed-tests file", err)
	}

	report := RunReport{Engine: exe.Name(), Summary: sum, Results: results}
	if opts.HistoryDB != "" {
		runID, err := recordHistory(cmd, opts.HistoryDB, exe.Name(), started, finished, results)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to record run history", err)
		}
		report.RunID = runID
	}

	return reportSuite(opts.RootOptions, cmd, report)
}

// loadSuite loads the registry slice and builds the engine adapter.
func loadSuite(testDir, config string, numTests int, engine, enginesConfig string) ([]registry.TestCase, executor.Executor, error) {
	if config == "" {
		config = filepath.Join(testDir, RegistryFileName)
	}
	reg, err := registry.Load(config)
	if err != nil {
		return nil, nil, WrapExitError(ExitCommandError, "failed to load registry", err)
	}
	cases := reg.Cases()
	if numTests > 0 && numTests < len(cases) {
		cases = cases[:numTests]
	}

	cfg, err := loadEngines(enginesConfig)
	if err != nil {
		return nil, nil, WrapExitError(ExitCommandError, "failed to load engine definitions", err)
	}
	def, err := cfg.Engine(engine)
	if err != nil {
		return nil, nil, WrapExitError(ExitCommandError, "unknown engine", err)
	}
	exe, err := executor.NewCommandExecutor(engine, def)
	if err != nil {
		return nil, nil, WrapExitError(ExitCommandError, "engine unavailable", err)
	}
	return cases, exe, nil
}

func loadEngines(path string) (*executor.Config, error) {
	if path == "" {
		return executor.DefaultConfig()
	}
	return executor.LoadConfig(path)
}

func recordHistory(cmd *cobra.Command, dbPath, engine string, started, finished time.Time, results []compare.Result) (string, error) {
	store, err := history.Open(dbPath)
	if err != nil {
		return "", err
	}
	defer store.Close()
	return store.RecordRun(cmd.Context(), engine, started, finished, results)
}

// printResult writes one per-case line in text mode.
func printResult(w io.Writer, opts *RootOptions, res compare.Result) {
	if opts.Format == "json" {
		return
	}
	switch res.Verdict {
	case compare.Pass:
		fmt.Fprintf(w, "✓ %s\n", res.Path)
	case compare.Ignore:
		fmt.Fprintf(w, "- %s (ignored)\n", res.Path)
	case compare.Warn:
		fmt.Fprintf(w, "! %s (%s)\n", res.Path, res.Reason)
	default:
		fmt.Fprintf(w, "✗ %s (%s)\n", res.Path, res.Reason)
		for _, m := range res.Mismatches {
			fmt.Fprintf(w, "  %s\n", m)
		}
	}
}

// reportSuite emits the final report and maps failures to exit code 1.
func reportSuite(opts *RootOptions, cmd *cobra.Command, report RunReport) error {
	w := cmd.OutOrStdout()

	if opts.Format == "json" {
		resp := CLIResponse{Status: "ok", Data: report}
		if report.Summary.Failed > 0 {
			resp.Status = "error"
			resp.Error = &CLIError{
				Code:    "E_CONFORMANCE_FAILED",
				Message: fmt.Sprintf("%d case(s) failed", report.Summary.Failed),
			}
		}
		if err := writeJSON(w, resp); err != nil {
			return err
		}
	} else {
		fmt.Fprintln(w)
		report.Summary.Fprint(w)
	}

	if report.Summary.Failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d case(s) failed", report.Summary.Failed))
	}
	return nil
}
