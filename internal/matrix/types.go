// Package matrix builds the merged compliance matrix document. It reads
// JSON-LD requirement and test-result documents, folds them into a single
// ComplianceMatrix with derived statistics, and writes it out atomically.
package matrix

// Context is the @context reference written into every generated matrix,
// relative to the dashboard directory where the document is served.
const Context = "../requirements/context/requirements-context.jsonld"

// FileName is the fixed name of the generated matrix document, appended when
// the caller supplies an output directory instead of a file path.
const FileName = "compliance_matrix.jsonld"

// MatrixID and MatrixType identify the single object in the output @graph.
const (
	MatrixID   = "compliance-matrix"
	MatrixType = "ComplianceMatrix"
)

// Default display metadata for the generated matrix.
const (
	DefaultName        = "journaltrove App Compliance Matrix"
	DefaultDescription = "Generated compliance matrix aggregating test results from all components"
)

// Requirement is one tracked obligation. Records are immutable once loaded;
// the aggregator only fills in the derived Tested field.
type Requirement struct {
	ID          string `json:"@id"`
	Type        string `json:"@type"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Component   string `json:"component"`
	Status      string `json:"status"`
	Priority    string `json:"priority"`
	Parent      string `json:"parent"`
	Tested      bool   `json:"tested"`
}

// TestCase is one recorded test execution, attributed to the component whose
// result document it came from. Verifies may reference a requirement that is
// not present in the current requirement set; that is tolerated, not an error.
type TestCase struct {
	ID        string `json:"@id"`
	Type      string `json:"@type"`
	Component string `json:"component"`
	Name      string `json:"name"`
	Verifies  string `json:"verifies"`
	Result    string `json:"result"`
}

// Statistics is the derived summary block, recomputed on every aggregation.
type Statistics struct {
	TotalRequirements    int     `json:"totalRequirements"`
	TestedRequirements   int     `json:"testedRequirements"`
	UntestedRequirements int     `json:"untestedRequirements"`
	CoveragePercentage   float64 `json:"coveragePercentage"`
	TotalTests           int     `json:"totalTests"`
	PassingTests         int     `json:"passingTests"`
	FailingTests         int     `json:"failingTests"`
	Components           int     `json:"components"`
}

// Matrix is the merged compliance report: all requirements, all test cases,
// the observed component names, and the derived statistics.
type Matrix struct {
	ID           string        `json:"@id"`
	Type         string        `json:"@type"`
	Name         string        `json:"name"`
	Description  string        `json:"description"`
	Timestamp    string        `json:"timestamp"`
	Components   []string      `json:"components"`
	Requirements []Requirement `json:"requirements"`
	TestCases    []TestCase    `json:"testCases"`
	Statistics   Statistics    `json:"statistics"`
}

// Document is the top-level output shape: an @context reference and a @graph
// holding exactly one Matrix.
type Document struct {
	Context string   `json:"@context"`
	Graph   []Matrix `json:"@graph"`
}

// graphRecord is the loosely-typed shape of one @graph entry in an input
// document. Source documents are inconsistent about @-prefixed keys, so both
// spellings of the id and type tags are accepted.
type graphRecord struct {
	AtID        string      `json:"@id"`
	PlainID     string      `json:"id"`
	AtType      string      `json:"@type"`
	PlainType   string      `json:"type"`
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Component   string      `json:"component"`
	Status      string      `json:"status"`
	Priority    string      `json:"priority"`
	Parent      string      `json:"parent"`
	TestSuites  []testSuite `json:"testSuites"`
}

// id returns the record identifier, preferring the @-prefixed spelling.
func (r graphRecord) id() string {
	if r.AtID != "" {
		return r.AtID
	}
	return r.PlainID
}

// typeTag returns the record type tag, preferring the @-prefixed spelling.
func (r graphRecord) typeTag() string {
	if r.AtType != "" {
		return r.AtType
	}
	return r.PlainType
}

// requirement converts an input record into a Requirement attributed to the
// given component, overriding any component field in the source.
func (r graphRecord) requirement(component string) Requirement {
	return Requirement{
		ID:          r.id(),
		Type:        "Requirement",
		Name:        r.Name,
		Description: r.Description,
		Component:   component,
		Status:      r.Status,
		Priority:    r.Priority,
		Parent:      r.Parent,
	}
}

// testSuite is the intermediate grouping level inside result documents. The
// nesting is positional, not typed: @graph[0].testSuites[].testCases[].
type testSuite struct {
	TestCases []testCaseRecord `json:"testCases"`
}

type testCaseRecord struct {
	AtID     string `json:"@id"`
	PlainID  string `json:"id"`
	Name     string `json:"name"`
	Verifies string `json:"verifies"`
	Result   string `json:"result"`
}

func (r testCaseRecord) id() string {
	if r.AtID != "" {
		return r.AtID
	}
	return r.PlainID
}

// inputDocument is the loosely-typed shape of any source document.
type inputDocument struct {
	Graph []graphRecord `json:"@graph"`
}
