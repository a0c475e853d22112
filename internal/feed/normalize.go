package feed

import "strings"

// Row is one job listing as the upstream feed publishes it. Beyond job_id the
// engine treats it as opaque; the remaining fields are only inspected for search.
type Row map[string]any

// Document is the normalized shape served and cached by the engine.
type Document struct {
	Version string `json:"version"`
	Rows    []Row  `json:"rows"`
	Total   int    `json:"total"`
}

// JobID returns the row's trimmed job_id, "" when absent or non-string.
func (r Row) JobID() string {
	return strings.TrimSpace(str(r["job_id"]))
}

// Str returns the named field as a string, "" for anything else.
func (r Row) Str(key string) string {
	return str(r[key])
}

func str(v any) string {
	s, _ := v.(string)
	return s
}

// Normalize turns a raw feed payload into a Document. Rows that are not objects
// or have a blank job_id are dropped; relative order is preserved; Total always
// equals the surviving row count. Pure function: it runs inside the cache's
// critical section.
func Normalize(raw map[string]any) Document {
	doc := Document{Version: str(raw["version"])}

	rows, _ := raw["rows"].([]any)
	for _, v := range rows {
		m, ok := v.(map[string]any)
		if !ok {
			continue
		}
		r := Row(m)
		if r.JobID() == "" {
			continue
		}
		doc.Rows = append(doc.Rows, r)
	}
	doc.Total = len(doc.Rows)
	return doc
}

// Filter returns the rows whose composed haystack (title, department, level,
// location, country) contains q case-insensitively. The upstream feed does not
// understand q, so this always runs in the serving layer.
func Filter(rows []Row, q string) []Row {
	q = strings.ToLower(strings.TrimSpace(q))
	if q == "" {
		return rows
	}
	out := make([]Row, 0, len(rows))
	for _, r := range rows {
		hay := strings.ToLower(strings.Join([]string{
			str(r["title"]), str(r["department"]), str(r["level"]),
			str(r["location"]), str(r["country"]),
		}, " "))
		if strings.Contains(hay, q) {
			out = append(out, r)
		}
	}
	return out
}
