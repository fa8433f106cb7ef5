package cli

import (
	"github.com/dl-alexandre/sheetmirror/internal/utils"
	"github.com/spf13/cobra"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Mirror every row of the sheet once",
	Long: `Run a single full pass: every row of the sheet is treated as changed and its
files are mirrored. Files already identical on the destination are skipped, so a
full pass is safe to repeat.

Exits non-zero when any file failed.`,
	Args: cobra.NoArgs,
	RunE: runSync,
}

func init() {
	rootCmd.AddCommand(syncCmd)
}

func runSync(cmd *cobra.Command, args []string) error {
	flags := GetGlobalFlags()
	out := NewOutputWriter(flags.OutputFormat, flags.Quiet, flags.Verbose)

	cfg, err := currentConfig()
	if err != nil {
		return out.Fail("sync", err)
	}
	engine, err := newEngine(cmd.Context(), cfg)
	if err != nil {
		return out.Fail("sync", err)
	}

	result, err := engine.RunAll(cmd.Context())
	if err != nil {
		return out.Fail("sync", err)
	}

	out.Log("%s", result.Summary())
	if result.Failed > 0 {
		out.AddWarning(utils.ErrCodeBatchPartialFailure, result.Summary(), "error")
	}
	if err := out.WriteSuccess("sync", result); err != nil {
		return err
	}
	if result.Failed > 0 {
		return &exitError{code: utils.ExitBatchPartialFailure}
	}
	return nil
}
