package cli

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

// confirmBatch asks the user to confirm the batch before any job runs.
// In non-interactive (non-TTY) environments it declines immediately so
// scheduled runs never hang on a prompt; pass --yes to skip it there.
//
// The prompt defaults to "No" when the user presses Enter without input.
// Valid inputs for acceptance: "y", "yes" in any case.
func confirmBatch(cmd *cobra.Command, jobs int, engineName, modelType string) (bool, error) {
	if !isTerminal(os.Stdin) {
		fmt.Fprintln(cmd.ErrOrStderr(),
			"Warning: interactive confirmation requested on a non-terminal; pass --yes to proceed.")
		return false, nil
	}

	fmt.Fprintf(cmd.OutOrStdout(), "About to fit %d dataset(s) with %s (%s).\n",
		jobs, engineName, modelType)
	fmt.Fprint(cmd.OutOrStdout(), "? Proceed? [y/N] ")

	scanner := bufio.NewScanner(cmd.InOrStdin())
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return false, err
		}
		return false, nil
	}

	switch strings.ToLower(strings.TrimSpace(scanner.Text())) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}
