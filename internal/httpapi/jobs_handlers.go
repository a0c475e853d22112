package httpapi

import (
	"net/http"
	"strings"

	"careers-engine/internal/feed"
)

type JobsHandler struct {
	Cache *feed.Cache
}

// List serves GET /jobs. The q search never reaches the upstream feed: it runs
// here, over the cached document, so a search miss cannot cause a fetch storm.
func (h JobsHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	doc, err := h.Cache.Get(r.Context(), feed.Key{
		Lang:       q.Get("lang"),
		Country:    q.Get("country"),
		Department: q.Get("department"),
		Level:      q.Get("level"),
	})
	if err != nil {
		WriteDomainError(w, r, err)
		return
	}

	rows := feed.Filter(doc.Rows, q.Get("q"))
	writeJSON(w, map[string]any{
		"ok":      true,
		"version": doc.Version,
		"rows":    rows,
		"total":   len(rows),
	})
}

// DetailByPath serves GET /jobs/{id}.
func (h JobsHandler) DetailByPath(w http.ResponseWriter, r *http.Request) {
	jobID := strings.TrimPrefix(r.URL.Path, "/jobs/")
	if jobID == "" || strings.Contains(jobID, "/") {
		WriteError(w, r, http.StatusBadRequest, "bad_request", "invalid job id")
		return
	}

	row, err := h.Cache.JobByID(r.Context(), jobID, r.URL.Query().Get("lang"))
	if err != nil {
		WriteDomainError(w, r, err)
		return
	}

	job := make(map[string]any, len(row)+1)
	for k, v := range row {
		job[k] = v
	}
	if txt := feed.DescriptionText(row); txt != "" {
		job["description_text"] = txt
	}
	writeJSON(w, map[string]any{"ok": true, "job": job})
}
