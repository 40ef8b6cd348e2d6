package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/openwdl/conformance/internal/extract"
)

// RegistryFileName is the registry artifact written into the output
// directory. It is the sole contract between extraction and comparison.
const RegistryFileName = "test_config.json"

// ExtractOptions holds flags for the extract command.
type ExtractOptions struct {
	*RootOptions
	Input        string
	DataDir      string
	OutDir       string
	Version      string
	StrictBlocks bool
}

// ExtractResult is the JSON payload of a successful extraction.
type ExtractResult struct {
	Cases    int    `json:"cases"`
	Registry string `json:"registry"`
}

// NewExtractCommand creates the extract command.
func NewExtractCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ExtractOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "extract",
		Short: "Extract test cases from a specification document",
		Long: `Extract the runnable examples embedded in a Markdown specification into
a test directory and registry for use with the conformance harness.

Extraction is fail-fast: any malformed example aborts the whole batch and
no registry is written.

Exit codes:
  0 - Extraction succeeded
  2 - Command error or malformed specification

Examples:
  wdltest extract -i SPEC.md -O tests
  wdltest extract -i SPEC.md -O tests --wdl-version 1.2
  wdltest extract -i SPEC.md -O tests -d data --strict-blocks`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExtract(opts, cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Input, "input-file", "i", "SPEC.md", "path to the input Markdown file")
	cmd.Flags().StringVarP(&opts.DataDir, "data-dir", "d", "", "path to the test data directory (if any)")
	cmd.Flags().StringVarP(&opts.OutDir, "output-dir", "O", ".", "directory where test files will be written")
	cmd.Flags().StringVar(&opts.Version, "wdl-version", "1.1", "WDL version of extracted test files")
	cmd.Flags().BoolVar(&opts.StrictBlocks, "strict-blocks", false, "fail on a trailing unclosed example block instead of skipping it")

	return cmd
}

func runExtract(opts *ExtractOptions, cmd *cobra.Command) error {
	w := cmd.OutOrStdout()

	if !isValidVersion(opts.Version) {
		return NewExitError(ExitCommandError, fmt.Sprintf("invalid WDL version %q: must be one of %v", opts.Version, ValidVersions))
	}

	policy := extract.SkipUnclosed
	if opts.StrictBlocks {
		policy = extract.StrictUnclosed
	}

	reg, err := extract.ExtractFile(opts.Input, extract.Options{
		OutDir:   opts.OutDir,
		Version:  opts.Version,
		Unclosed: policy,
	})
	if err != nil {
		return WrapExitError(ExitCommandError, "extraction failed", err)
	}

	registryPath := filepath.Join(opts.OutDir, RegistryFileName)
	if err := reg.Save(registryPath); err != nil {
		return WrapExitError(ExitCommandError, "failed to write registry", err)
	}
	verboseLog(opts.RootOptions, w, cmd.ErrOrStderr(), "registry written to %s", registryPath)

	if opts.DataDir != "" {
		dest := filepath.Join(opts.OutDir, filepath.Base(opts.DataDir))
		if err := copyDataDir(opts.DataDir, dest); err != nil {
			return WrapExitError(ExitCommandError, "failed to copy data directory", err)
		}
		verboseLog(opts.RootOptions, w, cmd.ErrOrStderr(), "data directory copied to %s", dest)
	}

	if opts.Format == "json" {
		return writeJSON(w, CLIResponse{
			Status: "ok",
			Data:   ExtractResult{Cases: reg.Len(), Registry: registryPath},
		})
	}
	fmt.Fprintf(w, "Extracted %d test case(s)\n", reg.Len())
	fmt.Fprintf(w, "Registry written to %s\n", registryPath)
	return nil
}

// copyDataDir copies the shared test data tree into the output directory
// so extracted tests resolve relative data paths.
func copyDataDir(src, dest string) error {
	info, err := os.Stat(src)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("not a directory: %s", src)
	}
	if err := os.MkdirAll(dest, 0755); err != nil {
		return err
	}
	return os.CopyFS(dest, os.DirFS(src))
}
