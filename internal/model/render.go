package model

import (
	"fmt"
	"io"
	"strings"

	"github.com/olekukonko/tablewriter"
)

// maxInitItems bounds how many initial values are printed per row before
// the list is elided.
const maxInitItems = 6

// Render writes the model parameter table to w. Used for verbose runs so
// the per-dataset log records exactly what was fit.
func Render(w io.Writer, m *PhysicalModel) {
	fmt.Fprintf(w, "%s model parameters (%d free)\n", m.Variant, m.FreeCount())

	table := tablewriter.NewWriter(w)
	table.Header("Parameter", "Init", "Free", "Prior", "Depends On", "Units")
	for _, p := range m.Parameters() {
		table.Append(p.Name, formatInit(p.Init), formatBool(p.Free),
			formatPrior(p.Prior), orNA(p.DependsOn), orNA(p.Units))
	}
	table.Render()
}

func formatInit(init []float64) string {
	if len(init) == 0 {
		return "N/A"
	}
	if len(init) == 1 {
		return trimFloat(init[0])
	}
	n := len(init)
	if n > maxInitItems {
		n = maxInitItems
	}
	parts := make([]string, 0, n+1)
	for _, v := range init[:n] {
		parts = append(parts, trimFloat(v))
	}
	if len(init) > maxInitItems {
		parts = append(parts, fmt.Sprintf("... (%d total)", len(init)))
	}
	return strings.Join(parts, ", ")
}

func formatBool(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

func formatPrior(p *Prior) string {
	if p == nil {
		return "N/A"
	}
	switch p.Kind {
	case "tophat":
		return fmt.Sprintf("tophat[%s, %s]", trimFloat(p.Min), trimFloat(p.Max))
	case "normal":
		return fmt.Sprintf("normal(%s, %s)", trimFloat(p.Mean), trimFloat(p.Sigma))
	case "clipped_normal":
		return fmt.Sprintf("clipped_normal(%s, %s)[%s, %s]",
			trimFloat(p.Mean), trimFloat(p.Sigma), trimFloat(p.Min), trimFloat(p.Max))
	default:
		return p.Kind
	}
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}

func trimFloat(v float64) string {
	s := fmt.Sprintf("%.4f", v)
	s = strings.TrimRight(s, "0")
	return strings.TrimRight(s, ".")
}
