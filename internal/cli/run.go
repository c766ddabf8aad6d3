package cli

import (
	"fmt"
	"strings"

	"github.com/oklog/ulid/v2"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/sedbatch/sedbatch/internal/batch"
	"github.com/sedbatch/sedbatch/internal/config"
	"github.com/sedbatch/sedbatch/internal/engine"
	"github.com/sedbatch/sedbatch/internal/model"
)

// runParams holds the single-valued flags for the run command. Tri-state
// boolean pairs are resolved separately through applyToggles.
type runParams struct {
	optionsFile string

	source         string
	manifest       string
	outDir         string
	logDir         string
	version        string
	dispersionFile string

	modelType         string
	ageBins           int
	metallicityInterp int
	redshift          float64

	livePoints      int
	sampleMethod    string
	targetEffective int
	dlogz           float64

	workerIndex  int
	workerCount  int
	localWorkers int
	yes          bool
}

// NewRunCmd creates the "run" subcommand that executes a batch of
// fitting jobs.
//
// Configuration resolves in three layers: built-in defaults, then the
// --options YAML file, then explicit flags. A flag only overrides when
// it was actually set, so an options file and the flag line compose.
//
// Worker geometry comes in two shapes: --worker-index/--worker-count for
// one externally scheduled worker per invocation, or --local-workers to
// run several workers concurrently inside this process.
func NewRunCmd() *cobra.Command {
	var params runParams
	var toggles []string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a batch of SED fitting jobs",
		Long: `Run a batch of SED fitting jobs.

Targets come from --source (a single dataset) or --manifest (one dataset
path per line, # comments allowed). Each worker derives its share of the
batch round-robin from its index and the worker count, so workers need
no coordination at runtime. A failing dataset is recorded and the batch
moves on; per-job failures never abort the run or change the exit code.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			opts, err := resolveOptions(cmd, &params, toggles)
			if err != nil {
				return err
			}
			return executeRun(cmd, opts, &params)
		},
	}

	cmd.Flags().StringVar(&params.optionsFile, "options", "", "YAML options file overlaid on the defaults")

	cmd.Flags().StringVar(&params.source, "source", "", "path to a single dataset file")
	cmd.Flags().StringVar(&params.manifest, "manifest", "", "file listing dataset paths, one per line")
	cmd.Flags().StringVar(&params.outDir, "out-dir", "", "directory for result files")
	cmd.Flags().StringVar(&params.logDir, "log-dir", "", "directory for per-dataset log files")
	cmd.Flags().StringVar(&params.version, "data-version", "", "version group to read from each dataset")
	cmd.Flags().StringVar(&params.dispersionFile, "dispersion-file", "", "instrument dispersion file")

	cmd.Flags().StringVar(&params.modelType, "model", "", "physical model variant (ContinuitySFH or ParametricSFH)")
	cmd.Flags().IntVar(&params.ageBins, "age-bins", 0, "number of star formation history age bins")
	cmd.Flags().IntVar(&params.metallicityInterp, "metallicity-interp", 0, "metallicity interpolation mode")
	cmd.Flags().Float64Var(&params.redshift, "redshift", 0, "redshift override, takes precedence over dataset metadata")

	cmd.Flags().IntVar(&params.livePoints, "live-points", 0, "nested sampling live points")
	cmd.Flags().StringVar(&params.sampleMethod, "sample-method", "", "nested sampling method")
	cmd.Flags().IntVar(&params.targetEffective, "target-effective", 0, "nested sampling effective sample target")
	cmd.Flags().Float64Var(&params.dlogz, "dlogz", 0, "nested sampling evidence tolerance")

	cmd.Flags().IntVar(&params.workerIndex, "worker-index", 0, "this worker's index in [0, worker-count)")
	cmd.Flags().IntVar(&params.workerCount, "worker-count", 1, "total number of workers in the batch")
	cmd.Flags().IntVar(&params.localWorkers, "local-workers", 0, "run this many workers concurrently in-process")
	cmd.Flags().BoolVar(&params.yes, "yes", false, "skip the interactive confirmation")

	for _, tg := range runToggles {
		toggles = append(toggles, registerToggle(cmd, tg.name, tg.usage))
	}
	return cmd
}

// runToggles lists every tri-state pair on the run command, in help
// order.
var runToggles = []struct {
	name  string
	usage string
}{
	{"photometry", "fitting the photometric data"},
	{"spectroscopy", "fitting the spectroscopic data"},
	{"filter-photometry", "masking non-finite photometric points"},
	{"filter-spectroscopy", "masking non-finite spectroscopic points"},
	{"stored-mask", "applying the mask stored in the dataset"},
	{"fit-outliers-phot", "the photometric outlier model"},
	{"fit-outliers-spec", "the spectroscopic outlier model"},
	{"fixed-redshift", "holding redshift fixed during the fit"},
	{"nebular", "nebular emission"},
	{"dust-emission", "dust emission"},
	{"birth-cloud-dust", "birth cloud dust attenuation"},
	{"agn", "the AGN component"},
	{"smoothing", "spectral smoothing"},
	{"optimize", "the optimization engine"},
	{"mcmc", "the MCMC engine"},
	{"nested", "the nested sampling engine"},
	{"verbose", "per-job model summaries"},
	{"log-to-file", "per-dataset log files"},
	{"interactive", "confirmation before starting"},
}

// runToggleNames returns the pair names in registration order.
func runToggleNames() []string {
	names := make([]string, len(runToggles))
	for i, tg := range runToggles {
		names[i] = tg.name
	}
	return names
}

// resolveOptions builds the final configuration: defaults, then the
// options file, then explicit flags on top.
func resolveOptions(cmd *cobra.Command, params *runParams, toggles []string) (*config.Options, error) {
	opts := config.Defaults()

	if params.optionsFile != "" {
		if err := opts.MergeFile(params.optionsFile); err != nil {
			return nil, err
		}
	}

	if err := applyToggles(cmd, opts, toggles); err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	setString := func(name string, dst *string, v string) {
		if flags.Changed(name) {
			*dst = v
		}
	}
	setInt := func(name string, dst *int, v int) {
		if flags.Changed(name) {
			*dst = v
		}
	}

	setString("source", &opts.Source, params.source)
	setString("manifest", &opts.Manifest, params.manifest)
	setString("out-dir", &opts.OutDir, params.outDir)
	setString("log-dir", &opts.LogDir, params.logDir)
	setString("data-version", &opts.Version, params.version)
	setString("dispersion-file", &opts.DispersionFile, params.dispersionFile)
	setString("model", &opts.ModelType, params.modelType)
	setString("sample-method", &opts.Sampler.SampleMethod, params.sampleMethod)

	setInt("age-bins", &opts.AgeBins, params.ageBins)
	setInt("metallicity-interp", &opts.MetallicityInterp, params.metallicityInterp)
	setInt("live-points", &opts.Sampler.LivePoints, params.livePoints)
	setInt("target-effective", &opts.Sampler.TargetEffective, params.targetEffective)

	if flags.Changed("redshift") {
		z := params.redshift
		opts.Redshift = &z
	}
	if flags.Changed("dlogz") {
		opts.Sampler.DLogZ = params.dlogz
	}

	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if !model.IsKnownVariant(opts.ModelType) {
		return nil, fmt.Errorf("%w: %q (known: %s)",
			config.ErrUnknownModel, opts.ModelType, strings.Join(model.Variants(), ", "))
	}
	return opts, nil
}

// executeRun confirms the batch if requested and dispatches it to one or
// more workers.
func executeRun(cmd *cobra.Command, opts *config.Options, params *runParams) error {
	targets, err := opts.Targets()
	if err != nil {
		return err
	}

	runID := ulid.Make().String()
	engineName := opts.EngineName()

	if opts.Interactive && !params.yes {
		accepted, err := confirmBatch(cmd, len(targets), engineName, opts.ModelType)
		if err != nil {
			return err
		}
		if !accepted {
			cmd.Println("Aborted.")
			return nil
		}
	}

	fitter, err := engine.New(engineName)
	if err != nil {
		return fmt.Errorf("available engines: %s: %w", strings.Join(engine.Names(), ", "), err)
	}

	if params.localWorkers > 0 {
		if cmd.Flags().Changed("worker-index") || cmd.Flags().Changed("worker-count") {
			return fmt.Errorf("--local-workers replaces --worker-index and --worker-count")
		}
		return runLocalWorkers(cmd, opts, fitter, runID, params.localWorkers)
	}

	orch := &batch.Orchestrator{
		Base:        opts,
		WorkerIndex: params.workerIndex,
		WorkerCount: params.workerCount,
		Fitter:      fitter,
		Logger:      logger,
		RunID:       runID,
	}
	summary, err := orch.Run(cmd.Context())
	if summary != nil {
		summary.Render(cmd.OutOrStdout())
	}
	return err
}

// runLocalWorkers runs the full batch inside this process, one goroutine
// per worker index. Per-job failures stay inside each worker's summary;
// only setup errors or cancellation propagate.
func runLocalWorkers(
	cmd *cobra.Command,
	opts *config.Options,
	fitter engine.Fitter,
	runID string,
	workers int,
) error {
	summaries := make([]*batch.Summary, workers)

	g, ctx := errgroup.WithContext(cmd.Context())
	for index := 0; index < workers; index++ {
		index := index
		g.Go(func() error {
			orch := &batch.Orchestrator{
				Base:        opts,
				WorkerIndex: index,
				WorkerCount: workers,
				Fitter:      fitter,
				Logger:      logger,
				RunID:       runID,
			}
			summary, err := orch.Run(ctx)
			summaries[index] = summary
			return err
		})
	}
	err := g.Wait()

	for _, summary := range summaries {
		if summary != nil {
			summary.Render(cmd.OutOrStdout())
		}
	}
	return err
}
