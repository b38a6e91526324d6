package matrix

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/journalbrand/compliance/internal/ui"
)

// quiet is a nil printer; warnings become no-ops in tests.
var quiet *ui.Printer

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
}

const rootRequirementsDoc = `{
  "@context": "./context/requirements-context.jsonld",
  "@graph": [
    {"@id": "REQ-1", "@type": "Requirement", "name": "Store journals", "status": "Active", "priority": "High"},
    {"id": "REQ-2", "type": "Requirement", "component": "System", "name": "Sync journals", "parent": "REQ-1"},
    {"@id": "REQ-IOS-1", "@type": "Requirement", "component": "ios", "name": "iOS only"},
    {"@id": "compliance-matrix", "@type": "ComplianceMatrix", "name": "not a requirement"}
  ]
}`

func TestLoadRequirements_SystemScopedOnly(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "requirements.jsonld")
	writeFile(t, path, rootRequirementsDoc)

	reqs, err := LoadRequirements(path)
	if err != nil {
		t.Fatalf("LoadRequirements: %v", err)
	}

	if len(reqs) != 2 {
		t.Fatalf("expected 2 system requirements, got %d: %+v", len(reqs), reqs)
	}
	for _, req := range reqs {
		if req.Component != SystemComponent {
			t.Errorf("requirement %s: component = %q, want %q", req.ID, req.Component, SystemComponent)
		}
	}
	if reqs[0].ID != "REQ-1" || reqs[1].ID != "REQ-2" {
		t.Errorf("unexpected ids: %q, %q", reqs[0].ID, reqs[1].ID)
	}
	if reqs[1].Parent != "REQ-1" {
		t.Errorf("parent = %q, want REQ-1", reqs[1].Parent)
	}
}

func TestLoadRequirements_AcceptsBothTypeSpellings(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "requirements.jsonld")
	writeFile(t, path, `{"@graph": [
		{"id": "REQ-plain", "type": "Requirement"},
		{"@id": "REQ-at", "@type": "Requirement"}
	]}`)

	reqs, err := LoadRequirements(path)
	if err != nil {
		t.Fatalf("LoadRequirements: %v", err)
	}
	var ids []string
	for _, r := range reqs {
		ids = append(ids, r.ID)
	}
	if diff := cmp.Diff([]string{"REQ-plain", "REQ-at"}, ids); diff != "" {
		t.Errorf("ids mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadRequirements_MissingIsFatal(t *testing.T) {
	t.Parallel()
	_, err := LoadRequirements(filepath.Join(t.TempDir(), "requirements.jsonld"))
	if !errors.Is(err, ErrRequirementsMissing) {
		t.Fatalf("expected ErrRequirementsMissing, got: %v", err)
	}
}

func TestLoadRequirements_MalformedIsError(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "requirements.jsonld")
	writeFile(t, path, "{not json")

	if _, err := LoadRequirements(path); err == nil {
		t.Fatal("expected parse error for malformed root document")
	}
}

func TestLoadComponentRequirements_StampsDirectoryName(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	// Component field in the source is overridden by the directory name.
	writeFile(t, filepath.Join(dir, "ios", "requirements.jsonld"), `{"@graph": [
		{"@id": "REQ-IOS-1", "@type": "Requirement", "component": "something-else"}
	]}`)
	writeFile(t, filepath.Join(dir, "android", "requirements.jsonld"), `{"@graph": [
		{"@id": "REQ-AND-1", "@type": "Requirement"},
		{"@id": "REQ-AND-2", "@type": "Requirement"}
	]}`)

	reqs := LoadComponentRequirements(dir, quiet)

	// Lexicographic directory order: android before ios.
	var got [][2]string
	for _, r := range reqs {
		got = append(got, [2]string{r.ID, r.Component})
	}
	want := [][2]string{
		{"REQ-AND-1", "android"},
		{"REQ-AND-2", "android"},
		{"REQ-IOS-1", "ios"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("requirements mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadComponentRequirements_SkipsMissingAndMalformed(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "broken", "requirements.jsonld"), "{not json")
	if err := os.MkdirAll(filepath.Join(dir, "empty"), 0o755); err != nil {
		t.Fatal(err)
	}
	writeFile(t, filepath.Join(dir, "ok", "requirements.jsonld"), `{"@graph": [
		{"@id": "REQ-OK-1", "@type": "Requirement"}
	]}`)

	reqs := LoadComponentRequirements(dir, quiet)

	if len(reqs) != 1 || reqs[0].ID != "REQ-OK-1" {
		t.Fatalf("expected only the valid component's requirement, got %+v", reqs)
	}
}

func TestLoadComponentRequirements_NoDirectory(t *testing.T) {
	t.Parallel()
	reqs := LoadComponentRequirements(filepath.Join(t.TempDir(), "missing"), quiet)
	if reqs != nil {
		t.Errorf("expected nil for missing components directory, got %+v", reqs)
	}
}

const ipfsResultsDoc = `{
  "@graph": [
    {
      "@id": "ipfs-test-run",
      "testSuites": [
        {
          "name": "storage",
          "testCases": [
            {"@id": "TC-1", "name": "store journal", "verifies": "REQ-1", "result": "Pass"},
            {"@id": "TC-2", "name": "fetch journal", "verifies": "REQ-2", "result": "Fail"}
          ]
        },
        {
          "name": "network",
          "testCases": [
            {"@id": "TC-3", "name": "peer discovery", "verifies": "REQ-3", "result": "Passed"}
          ]
        }
      ]
    }
  ]
}`

func TestCollectResults_FlattensSuites(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "ipfs", "test-results.jsonld"), ipfsResultsDoc)

	cases, components := CollectResults(dir, quiet)

	if diff := cmp.Diff([]string{"ipfs"}, components); diff != "" {
		t.Errorf("components mismatch (-want +got):\n%s", diff)
	}
	if len(cases) != 3 {
		t.Fatalf("expected 3 flattened cases, got %d", len(cases))
	}
	for i, tc := range cases {
		if tc.Component != "ipfs" {
			t.Errorf("case %d: component = %q, want ipfs", i, tc.Component)
		}
		if tc.Type != "TestCase" {
			t.Errorf("case %d: type = %q, want TestCase", i, tc.Type)
		}
	}
	if cases[2].ID != "TC-3" || cases[2].Result != "Passed" {
		t.Errorf("unexpected final case: %+v", cases[2])
	}
}

func TestCollectResults_MalformedDocSkippedOthersMerged(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "android", "test-results.jsonld"), "{broken")
	writeFile(t, filepath.Join(dir, "ipfs", "test-results.jsonld"), ipfsResultsDoc)

	cases, components := CollectResults(dir, quiet)

	if diff := cmp.Diff([]string{"ipfs"}, components); diff != "" {
		t.Errorf("malformed doc must not register its component (-want +got):\n%s", diff)
	}
	if len(cases) != 3 {
		t.Errorf("expected the valid document's 3 cases, got %d", len(cases))
	}
}

func TestCollectResults_EmptyGraphRegistersComponent(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "ios", "test-results.jsonld"), `{"@graph": []}`)

	cases, components := CollectResults(dir, quiet)

	if diff := cmp.Diff([]string{"ios"}, components); diff != "" {
		t.Errorf("parseable doc should register its component (-want +got):\n%s", diff)
	}
	if len(cases) != 0 {
		t.Errorf("expected no cases, got %d", len(cases))
	}
}

func TestCollectResults_SortedPathOrder(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "zebra", "test-results.jsonld"), `{"@graph": [{"testSuites": [{"testCases": [{"@id": "TC-z", "verifies": "REQ-1", "result": "Pass"}]}]}]}`)
	writeFile(t, filepath.Join(dir, "alpha", "test-results.jsonld"), `{"@graph": [{"testSuites": [{"testCases": [{"@id": "TC-a", "verifies": "REQ-1", "result": "Pass"}]}]}]}`)

	cases, components := CollectResults(dir, quiet)

	if diff := cmp.Diff([]string{"alpha", "zebra"}, components); diff != "" {
		t.Errorf("components not in sorted path order (-want +got):\n%s", diff)
	}
	if cases[0].ID != "TC-a" || cases[1].ID != "TC-z" {
		t.Errorf("cases not in sorted path order: %+v", cases)
	}
}

func TestCollectResults_EmptyDirectory(t *testing.T) {
	t.Parallel()
	cases, components := CollectResults(t.TempDir(), quiet)
	if len(cases) != 0 || len(components) != 0 {
		t.Errorf("expected nothing from an empty tree, got %d cases, %d components", len(cases), len(components))
	}
}
