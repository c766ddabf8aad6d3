package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sedbatch/sedbatch/internal/config"
)

// registerToggle declares a tri-state boolean flag pair: --name forces
// true, --no-name forces false, and absence of both keeps whatever the
// resolved configuration already holds. This lets flag-line overrides
// compose with defaults and an options file without flags clobbering
// them.
func registerToggle(cmd *cobra.Command, name, usage string) string {
	cmd.Flags().Bool(name, false, "enable "+usage)
	cmd.Flags().Bool("no-"+name, false, "disable "+usage)
	return name
}

// applyToggles resolves every registered pair against the flags the user
// actually set. Setting both halves of a pair is a contradiction and is
// rejected.
func applyToggles(cmd *cobra.Command, opts *config.Options, names []string) error {
	for _, name := range names {
		on := cmd.Flags().Changed(name)
		off := cmd.Flags().Changed("no-" + name)
		switch {
		case on && off:
			return fmt.Errorf("--%s and --no-%s are mutually exclusive", name, name)
		case on:
			*toggleTarget(opts, name) = true
		case off:
			*toggleTarget(opts, name) = false
		}
	}
	return nil
}

// toggleTarget maps a toggle pair name to its field in the resolved
// configuration.
func toggleTarget(o *config.Options, name string) *bool {
	switch name {
	case "photometry":
		return &o.UsePhotometry
	case "spectroscopy":
		return &o.UseSpectroscopy
	case "filter-photometry":
		return &o.FilterPhotometry
	case "filter-spectroscopy":
		return &o.FilterSpectroscopy
	case "stored-mask":
		return &o.UseStoredMask
	case "fit-outliers-phot":
		return &o.FitOutliersPhotometry
	case "fit-outliers-spec":
		return &o.FitOutliersSpec
	case "fixed-redshift":
		return &o.FixedRedshift
	case "nebular":
		return &o.Nebular
	case "dust-emission":
		return &o.DustEmission
	case "birth-cloud-dust":
		return &o.BirthCloudDust
	case "agn":
		return &o.AGN
	case "smoothing":
		return &o.Smoothing
	case "optimize":
		return &o.Optimize
	case "mcmc":
		return &o.MCMC
	case "nested":
		return &o.NestedSampling
	case "verbose":
		return &o.Verbose
	case "log-to-file":
		return &o.LogToFile
	case "interactive":
		return &o.Interactive
	default:
		panic("unknown toggle " + name)
	}
}
