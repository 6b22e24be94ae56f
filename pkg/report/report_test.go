package report

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/promptqa/promptqa/pkg/schema"
)

func sampleRun() schema.RunSummary {
	return schema.RunSummary{
		RunID:      "run-1",
		URL:        "https://example.com",
		Prompt:     "log in | check dashboard",
		Summary:    schema.Pass,
		DurationMs: 1234,
		Steps: []schema.StepExecutionResult{
			{
				StepIndex:      0,
				Step:           schema.Step{Type: schema.KindGoto, Description: "open the app"},
				Success:        true,
				URL:            "https://example.com",
				ScreenshotPath: "screenshots/step-0.png",
				Evaluation:     &schema.EvaluationResult{Result: schema.Pass, Confidence: 0.95, Reason: "page loaded"},
			},
		},
	}
}

func TestGenerateJSONShape(t *testing.T) {
	record := GenerateJSON(sampleRun(), schema.ExitPass)
	if record["version"] != "1.0" {
		t.Fatalf("expected version 1.0, got %v", record["version"])
	}
	if record["runId"] != "run-1" {
		t.Fatalf("unexpected runId: %v", record["runId"])
	}
	steps, ok := record["steps"].([]interface{})
	if !ok || len(steps) != 1 {
		t.Fatalf("expected 1 step record, got %v", record["steps"])
	}
}

func TestSerializeJSONSortsKeysAndIsStable(t *testing.T) {
	record := GenerateJSON(sampleRun(), schema.ExitPass)

	first, err := SerializeJSON(record)
	if err != nil {
		t.Fatalf("SerializeJSON: %v", err)
	}
	second, err := SerializeJSON(record)
	if err != nil {
		t.Fatalf("SerializeJSON: %v", err)
	}
	if string(first) != string(second) {
		t.Fatal("expected identical output across calls")
	}

	var parsed map[string]interface{}
	if err := json.Unmarshal(first, &parsed); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	idxBugs := strings.Index(string(first), `"bugs"`)
	idxRunID := strings.Index(string(first), `"runId"`)
	idxVersion := strings.Index(string(first), `"version"`)
	if !(idxBugs < idxRunID && idxRunID < idxVersion) {
		t.Fatalf("expected lexicographic key order, got positions bugs=%d runId=%d version=%d", idxBugs, idxRunID, idxVersion)
	}
}

func TestGenerateMarkdownEscapesPipes(t *testing.T) {
	md := GenerateMarkdown(sampleRun(), schema.ExitPass)
	if !strings.Contains(md, "log in \\| check dashboard") {
		t.Fatalf("expected escaped pipe in prompt field, got:\n%s", md)
	}
	if !strings.Contains(md, "## Steps") {
		t.Fatal("expected a Steps section")
	}
}

func TestGenerateMarkdownIncludesBugSection(t *testing.T) {
	run := sampleRun()
	run.Bugs = []schema.BugReport{{StepIndex: 0, Description: "broken", Severity: schema.SeverityMajor, Evidence: []string{"Console error: x"}}}
	md := GenerateMarkdown(run, schema.ExitFail)
	if !strings.Contains(md, "## Bug Reports") {
		t.Fatal("expected a Bug Reports section")
	}
}

func TestGenerateMarkdownOmitsBugSectionWhenEmpty(t *testing.T) {
	md := GenerateMarkdown(sampleRun(), schema.ExitPass)
	if strings.Contains(md, "## Bug Reports") {
		t.Fatal("did not expect a Bug Reports section")
	}
}
