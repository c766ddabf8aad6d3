// Package cli wires the sedbatch command tree. Commands resolve
// configuration, then hand off to the batch orchestrator; no fitting
// logic lives here.
package cli

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/sedbatch/sedbatch/internal/logging"
)

// isTerminal checks if the given file is a terminal.
func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// logger is the package-level logger for CLI operations.
var logger zerolog.Logger //nolint:gochecknoglobals // Required for zerolog context integration

// NewRootCmd creates the root Cobra command for the sedbatch CLI.
func NewRootCmd(ver string) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "sedbatch",
		Short:   "Batch SED fitting orchestrator",
		Long:    "sedbatch: distribute spectral energy distribution fitting jobs across workers",
		Version: ver,
		Example: rootCmdExample,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			debug, _ := cmd.Flags().GetBool("debug")
			root := logging.New(debug)
			logger = logging.ComponentLogger(root, "cli")
			cmd.SetContext(logger.WithContext(cmd.Context()))
		},
	}

	cmd.PersistentFlags().Bool("debug", false, "enable debug logging")
	cmd.AddCommand(NewRunCmd())

	return cmd
}

const rootCmdExample = `  # Fit every galaxy listed in a manifest on a single worker
  sedbatch run --manifest targets.txt

  # Fit one dataset directly
  sedbatch run --source data/NGC1234.json

  # Take worker 2's share of a 16-way batch (one invocation per worker)
  sedbatch run --manifest targets.txt --worker-index 2 --worker-count 16

  # Run 4 workers in-process on one machine
  sedbatch run --manifest targets.txt --local-workers 4

  # Overlay an options file, then override pieces of it on the flag line
  sedbatch run --manifest targets.txt --options run.yaml --no-spectroscopy`
