package matrix

import (
	"math"
	"time"
)

// Timestamp layout for the generated matrix: UTC, second precision.
const timestampLayout = "2006-01-02T15:04:05Z"

// AggregateInput carries the already-loaded source records for one
// aggregation pass.
type AggregateInput struct {
	Requirements []Requirement
	TestCases    []TestCase
	Components   []string
}

// Aggregate folds the input records into a fresh Matrix. The whole value is
// rebuilt on every call: Tested is recomputed on each requirement by raw
// string membership of its identifier in the set of all verifies values, and
// Statistics is derived from scratch. Identical inputs produce identical
// output apart from the timestamp.
func Aggregate(in AggregateInput, now time.Time) *Matrix {
	m := &Matrix{
		ID:           MatrixID,
		Type:         MatrixType,
		Name:         DefaultName,
		Description:  DefaultDescription,
		Timestamp:    now.UTC().Format(timestampLayout),
		Components:   append([]string{}, in.Components...),
		Requirements: append([]Requirement{}, in.Requirements...),
		TestCases:    append([]TestCase{}, in.TestCases...),
	}

	verified := make(map[string]bool, len(m.TestCases))
	for _, tc := range m.TestCases {
		verified[tc.Verifies] = true
	}
	for i := range m.Requirements {
		m.Requirements[i].Tested = verified[m.Requirements[i].ID]
	}

	m.Statistics = computeStatistics(m)
	return m
}

func computeStatistics(m *Matrix) Statistics {
	s := Statistics{
		TotalRequirements: len(m.Requirements),
		TotalTests:        len(m.TestCases),
	}

	for _, req := range m.Requirements {
		if req.Tested {
			s.TestedRequirements++
		}
	}
	s.UntestedRequirements = s.TotalRequirements - s.TestedRequirements

	if s.TotalRequirements > 0 {
		s.CoveragePercentage = round1(float64(s.TestedRequirements) * 100 / float64(s.TotalRequirements))
	}

	for _, tc := range m.TestCases {
		switch tc.Result {
		case "Pass", "Passed":
			s.PassingTests++
		case "Fail", "Failed":
			s.FailingTests++
		}
	}

	distinct := make(map[string]bool, len(m.Components))
	for _, c := range m.Components {
		distinct[c] = true
	}
	s.Components = len(distinct)

	return s
}

// round1 rounds to one decimal place, ties to even: 6.25 becomes 6.2,
// 18.75 becomes 18.8.
func round1(x float64) float64 {
	return math.RoundToEven(x*10) / 10
}
