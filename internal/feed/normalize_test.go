package feed

import (
	"reflect"
	"testing"
)

func TestNormalizeDropsInvalidRows(t *testing.T) {
	t.Parallel()

	raw := map[string]any{
		"version": "2024-01-01",
		"rows": []any{
			map[string]any{"job_id": "J-1", "title": "Engineer"},
			map[string]any{"job_id": "   "},        // blank id after trim
			map[string]any{"title": "no id"},       // missing id
			"not an object",                        // wrong type
			map[string]any{"job_id": " J-2 "},      // id trims to non-empty
			42,                                     // wrong type
		},
	}

	doc := Normalize(raw)
	if doc.Version != "2024-01-01" {
		t.Fatalf("version = %q", doc.Version)
	}
	if len(doc.Rows) != 2 {
		t.Fatalf("expected 2 surviving rows, got %d", len(doc.Rows))
	}
	if doc.Rows[0].JobID() != "J-1" || doc.Rows[1].JobID() != "J-2" {
		t.Fatalf("order not preserved: %v", doc.Rows)
	}
	if doc.Total != len(doc.Rows) {
		t.Fatalf("total %d != rows %d", doc.Total, len(doc.Rows))
	}
}

func TestNormalizeMissingOrWrongRows(t *testing.T) {
	t.Parallel()

	for name, raw := range map[string]map[string]any{
		"absent":     {},
		"not a list": {"rows": "oops"},
		"null":       {"rows": nil},
	} {
		doc := Normalize(raw)
		if doc.Total != 0 || len(doc.Rows) != 0 {
			t.Errorf("%s: expected empty document, got %+v", name, doc)
		}
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	t.Parallel()

	raw := map[string]any{
		"version": "v7",
		"rows": []any{
			map[string]any{"job_id": "A"},
			map[string]any{"job_id": ""},
			map[string]any{"job_id": "B"},
		},
	}
	once := Normalize(raw)

	// Re-wrap the normalized output as input.
	rewrapped := map[string]any{"version": once.Version, "rows": make([]any, 0, len(once.Rows))}
	for _, r := range once.Rows {
		rewrapped["rows"] = append(rewrapped["rows"].([]any), map[string]any(r))
	}
	twice := Normalize(rewrapped)

	if !reflect.DeepEqual(once, twice) {
		t.Fatalf("normalize not idempotent:\n once=%+v\ntwice=%+v", once, twice)
	}
}

func TestFilter(t *testing.T) {
	t.Parallel()

	rows := []Row{
		{"job_id": "1", "title": "Backend Engineer", "country": "TH"},
		{"job_id": "2", "title": "Designer", "location": "Bangkok"},
		{"job_id": "3", "department": "Engineering", "level": "Senior"},
	}

	cases := []struct {
		q    string
		want []string
	}{
		{"", []string{"1", "2", "3"}},
		{"  ", []string{"1", "2", "3"}},
		{"ENGINEER", []string{"1", "3"}}, // case-insensitive, matches department too
		{"bangkok", []string{"2"}},
		{"senior", []string{"3"}},
		{"nothing matches", nil},
	}
	for _, tc := range cases {
		got := Filter(rows, tc.q)
		var ids []string
		for _, r := range got {
			ids = append(ids, r.JobID())
		}
		if !reflect.DeepEqual(ids, tc.want) {
			t.Errorf("Filter(q=%q) = %v, want %v", tc.q, ids, tc.want)
		}
	}
}
