package matrix

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/journalbrand/compliance/internal/ui"
)

// SystemComponent is the component name stamped on requirements from the
// root document.
const SystemComponent = "System"

// ErrRequirementsMissing indicates the root requirements document does not
// exist. This is the one fatal load error: without the root document there
// is nothing to aggregate.
var ErrRequirementsMissing = errors.New("system requirements document not found")

// RequirementsFileName is the per-component requirements document name.
const RequirementsFileName = "requirements.jsonld"

// LoadRequirements parses the root requirements document and returns every
// Requirement record scoped to the system (component "System" or unset),
// each stamped with component "System".
func LoadRequirements(path string) ([]Requirement, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrRequirementsMissing, path)
		}
		return nil, fmt.Errorf("matrix: read %s: %w", path, err)
	}

	var doc inputDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("matrix: parse %s: %w", path, err)
	}

	var reqs []Requirement
	for _, rec := range doc.Graph {
		if rec.typeTag() != "Requirement" {
			continue
		}
		if rec.Component != "" && rec.Component != SystemComponent {
			continue
		}
		reqs = append(reqs, rec.requirement(SystemComponent))
	}
	return reqs, nil
}

// LoadComponentRequirements scans the components directory for per-component
// requirements documents and returns all Requirement records found, each
// stamped with its component directory name. Components are processed in
// lexicographic order so output is stable across runs. A missing or
// malformed document is a warning, never an error.
func LoadComponentRequirements(componentsDir string, printer *ui.Printer) []Requirement {
	entries, err := os.ReadDir(componentsDir)
	if err != nil {
		printer.Warnf("components directory not readable: %s: %v", componentsDir, err)
		return nil
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	var reqs []Requirement
	for _, component := range names {
		path := filepath.Join(componentsDir, component, RequirementsFileName)
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				printer.Warnf("no %s found for component: %s", RequirementsFileName, component)
			} else {
				printer.Warnf("could not read %s: %v", path, err)
			}
			continue
		}

		var doc inputDocument
		if err := json.Unmarshal(data, &doc); err != nil {
			printer.Warnf("invalid JSON-LD in %s: %v", path, err)
			continue
		}

		for _, rec := range doc.Graph {
			if rec.typeTag() != "Requirement" {
				continue
			}
			reqs = append(reqs, rec.requirement(component))
		}
		printer.Debugf("loaded requirements for component %s", component)
	}
	return reqs
}

// CollectResults walks the results directory for *.jsonld documents and
// flattens their test suites into a flat TestCase list. The owning component
// is the name of each document's containing directory. Files are visited in
// lexicographic path order. Malformed documents are warned about and
// skipped; a parseable document with no extractable test cases still
// registers its component.
func CollectResults(resultsDir string, printer *ui.Printer) ([]TestCase, []string) {
	var paths []string
	err := filepath.WalkDir(resultsDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil // unreadable subtree: skip, non-fatal
		}
		if !d.IsDir() && strings.HasSuffix(d.Name(), ".jsonld") {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		printer.Warnf("could not scan results directory %s: %v", resultsDir, err)
	}
	sort.Strings(paths)

	var (
		cases      []TestCase
		components []string
		seen       = make(map[string]bool)
	)
	for _, path := range paths {
		component := filepath.Base(filepath.Dir(path))

		data, err := os.ReadFile(path)
		if err != nil {
			printer.Warnf("could not read %s: %v", path, err)
			continue
		}

		var doc inputDocument
		if err := json.Unmarshal(data, &doc); err != nil {
			printer.Warnf("invalid JSON-LD in %s: %v", path, err)
			continue
		}

		if !seen[component] {
			seen[component] = true
			components = append(components, component)
		}

		if len(doc.Graph) == 0 {
			printer.Warnf("could not extract test cases from %s: empty @graph", path)
			continue
		}

		extracted := 0
		for _, suite := range doc.Graph[0].TestSuites {
			for _, tc := range suite.TestCases {
				cases = append(cases, TestCase{
					ID:        tc.id(),
					Type:      "TestCase",
					Component: component,
					Name:      tc.Name,
					Verifies:  tc.Verifies,
					Result:    tc.Result,
				})
				extracted++
			}
		}
		if extracted == 0 {
			printer.Warnf("could not extract test cases from %s", path)
			continue
		}
		printer.Debugf("extracted %d test cases from %s", extracted, path)
	}
	return cases, components
}
