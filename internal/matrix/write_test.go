package matrix

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestResolveOutputPath(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name   string
		output string
		want   string
	}{
		{"jsonld file kept as-is", "out/matrix.jsonld", "out/matrix.jsonld"},
		{"directory gets fixed name", "out", filepath.Join("out", FileName)},
		{"dot directory", ".", filepath.Join(".", FileName)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ResolveOutputPath(tt.output); got != tt.want {
				t.Errorf("ResolveOutputPath(%q) = %q, want %q", tt.output, got, tt.want)
			}
		})
	}
}

func TestWriteDocument_RoundTrip(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "reports", FileName)

	m := Aggregate(AggregateInput{
		Requirements: []Requirement{{ID: "REQ-1", Component: SystemComponent}},
		TestCases:    []TestCase{{ID: "TC-1", Type: "TestCase", Component: "ipfs", Verifies: "REQ-1", Result: "Pass"}},
		Components:   []string{"ipfs"},
	}, testNow)

	if err := WriteDocument(m, path); err != nil {
		t.Fatalf("WriteDocument: %v", err)
	}

	got, err := ReadDocument(path)
	if err != nil {
		t.Fatalf("ReadDocument: %v", err)
	}
	if diff := cmp.Diff(m, got); diff != "" {
		t.Errorf("round trip mismatch (-wrote +read):\n%s", diff)
	}

	// No temp file may be left behind.
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Error("temp file left behind after rename")
	}
}

func TestWriteDocument_TopLevelShape(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), FileName)

	if err := WriteDocument(Aggregate(AggregateInput{}, testNow), path); err != nil {
		t.Fatalf("WriteDocument: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}

	var doc struct {
		Context string            `json:"@context"`
		Graph   []json.RawMessage `json:"@graph"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if doc.Context != Context {
		t.Errorf("@context = %q, want %q", doc.Context, Context)
	}
	if len(doc.Graph) != 1 {
		t.Fatalf("@graph length = %d, want exactly 1", len(doc.Graph))
	}

	// Empty collections must serialize as arrays, not null.
	s := string(data)
	for _, field := range []string{`"components": []`, `"requirements": []`, `"testCases": []`} {
		if !strings.Contains(s, field) {
			t.Errorf("expected %s in output, got:\n%s", field, s)
		}
	}
}

func TestWriteDocument_OverwritesCompletely(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), FileName)

	big := Aggregate(AggregateInput{
		Requirements: []Requirement{
			{ID: "REQ-1"}, {ID: "REQ-2"}, {ID: "REQ-3"},
		},
	}, testNow)
	if err := WriteDocument(big, path); err != nil {
		t.Fatalf("WriteDocument: %v", err)
	}

	small := Aggregate(AggregateInput{}, testNow)
	if err := WriteDocument(small, path); err != nil {
		t.Fatalf("WriteDocument: %v", err)
	}

	got, err := ReadDocument(path)
	if err != nil {
		t.Fatalf("ReadDocument: %v", err)
	}
	if len(got.Requirements) != 0 {
		t.Errorf("expected the smaller document to fully replace the larger one, got %d requirements", len(got.Requirements))
	}
}

func TestCopyFile(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	src := filepath.Join(dir, "src.jsonld")
	dst := filepath.Join(dir, "dashboard", "dst.jsonld")
	writeFile(t, src, `{"@graph": []}`)

	if err := CopyFile(src, dst); err != nil {
		t.Fatalf("CopyFile: %v", err)
	}

	srcData, _ := os.ReadFile(src)
	dstData, err := os.ReadFile(dst)
	if err != nil {
		t.Fatalf("ReadFile dst: %v", err)
	}
	if string(srcData) != string(dstData) {
		t.Error("destination bytes differ from source")
	}
}

func TestCopyFile_MissingSource(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	if err := CopyFile(filepath.Join(dir, "missing"), filepath.Join(dir, "dst")); err == nil {
		t.Fatal("expected error for missing source")
	}
}

func TestReadDocument_Errors(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	tests := []struct {
		name    string
		content string
	}{
		{"malformed", "{broken"},
		{"empty graph", `{"@context": "x", "@graph": []}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, strings.ReplaceAll(tt.name, " ", "_")+".jsonld")
			writeFile(t, path, tt.content)
			if _, err := ReadDocument(path); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}
