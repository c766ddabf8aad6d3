// Command sedbatch distributes SED fitting jobs across workers and
// isolates per-dataset failures so one bad galaxy never kills a batch.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/sedbatch/sedbatch/internal/cli"
	"github.com/sedbatch/sedbatch/pkg/version"
)

func main() {
	os.Exit(run())
}

// run executes the root command and maps the result to an exit code.
// Interrupts cancel the context so the orchestrator stops between jobs
// instead of mid-fit.
func run() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := cli.NewRootCmd(version.GetVersion())
	if err := root.ExecuteContext(ctx); err != nil {
		return 1
	}
	return 0
}
