package matrix

import (
	"time"

	"github.com/journalbrand/compliance/internal/ui"
)

// Generator runs one full aggregation pass over local documents.
type Generator struct {
	RequirementsPath string
	ComponentsDir    string
	ResultsDir       string
	Printer          *ui.Printer
}

// Generate loads the root requirements (fatal if missing), the optional
// per-component requirements, and all result documents under the results
// tree, then aggregates them into a fresh Matrix.
func (g *Generator) Generate(now time.Time) (*Matrix, error) {
	reqs, err := LoadRequirements(g.RequirementsPath)
	if err != nil {
		return nil, err
	}
	if g.ComponentsDir != "" {
		reqs = append(reqs, LoadComponentRequirements(g.ComponentsDir, g.Printer)...)
	}
	g.Printer.Debugf("found %d total requirements across all components", len(reqs))

	cases, components := CollectResults(g.ResultsDir, g.Printer)

	return Aggregate(AggregateInput{
		Requirements: reqs,
		TestCases:    cases,
		Components:   components,
	}, now), nil
}
