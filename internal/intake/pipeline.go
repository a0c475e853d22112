package intake

import (
	"context"
	"fmt"
	"log"
	"strings"

	"careers-engine/internal/feed"
)

// RowStore is the relational side of the storage gateway.
type RowStore interface {
	InsertOne(ctx context.Context, table string, row map[string]any) (map[string]any, error)
	InsertMany(ctx context.Context, table string, rows []map[string]any) error
	UpdateByID(ctx context.Context, table, id string, patch map[string]any) error
}

// BlobStore is the object side. Upload already carries the remove-and-retry
// policy; PublicURL reports ok=false for private buckets.
type BlobStore interface {
	Upload(ctx context.Context, path string, data []byte, contentType string) error
	PublicURL(path string) (string, bool)
}

// JobSource resolves a job against the authoritative feed.
type JobSource interface {
	JobByID(ctx context.Context, jobID, lang string) (feed.Row, error)
}

// Pipeline sequences one application submission: authoritative job lookup,
// validation, root insert, asset uploads, best-effort URL backfill, child
// inserts. Stages are strictly ordered and there is no rollback: a failure
// after the root insert leaves a partially recorded application by design,
// and the logs carry enough to reconcile later.
type Pipeline struct {
	Jobs  JobSource
	Rows  RowStore
	Blobs BlobStore

	// Publish receives the new application id on success (SSE hub); may be nil.
	Publish func(applicationID string)
}

// lookupLang pins the authoritative lookup to one language so the denormalized
// job context is stable regardless of what the applicant was browsing.
const lookupLang = "en"

// Submit runs the intake sequence and returns the new application id.
// Client-supplied job metadata is never trusted: country/department/level come
// from the feed row resolved here.
func (p *Pipeline) Submit(ctx context.Context, jobID string, req Request) (string, error) {
	// Stage 1: the job must exist in the feed right now.
	job, err := p.Jobs.JobByID(ctx, jobID, lookupLang)
	if err != nil {
		return "", err
	}

	// Stage 2: validate everything before the first write.
	v, err := validate(req)
	if err != nil {
		return "", err
	}

	// Stage 3: root record, asset URLs null. This is the commit point.
	row, err := p.Rows.InsertOne(ctx, "applications", map[string]any{
		"job_id":               jobID,
		"country":              strings.TrimSpace(job.Str("country")),
		"department":           strings.TrimSpace(job.Str("department")),
		"level":                strings.TrimSpace(job.Str("level")),
		"first_name":           strings.TrimSpace(req.FirstName),
		"last_name":            strings.TrimSpace(req.LastName),
		"email":                strings.TrimSpace(req.Email),
		"phone":                strings.TrimSpace(req.Phone),
		"address":              strings.TrimSpace(req.Address),
		"visa_required":        v.visaRequired,
		"available_start_date": nullIfEmpty(req.AvailableStartDate),
		"website_url":          strings.TrimSpace(req.WebsiteURL),
		"source_channel":       strings.TrimSpace(req.SourceChannel),
		"terms_accepted":       v.termsAccepted,
		"resume_url":           nil,
		"transcript_url":       nil,
	})
	if err != nil {
		return "", err
	}
	appID := fmt.Sprint(row["id"])
	basePath := "applications/" + appID

	// Stage 4: binary assets. Failures from here on abort the submission but
	// leave the root record in place.
	resumePath := basePath + "/resume_" + v.resume.Name
	if err := p.Blobs.Upload(ctx, resumePath, v.resume.Data, v.resume.ContentType); err != nil {
		return "", err
	}

	var transcriptPath string
	if v.transcript != nil {
		transcriptPath = basePath + "/transcript_" + v.transcript.Name
		if err := p.Blobs.Upload(ctx, transcriptPath, v.transcript.Data, v.transcript.ContentType); err != nil {
			return "", err
		}
	}

	// Stage 5: URL backfill, best-effort. The record keeps null URLs if this
	// update fails; the objects are still retrievable by path.
	patch := map[string]any{
		"resume_url":     assetURL(p.Blobs, resumePath),
		"transcript_url": nil,
	}
	if transcriptPath != "" {
		patch["transcript_url"] = assetURL(p.Blobs, transcriptPath)
	}
	if err := p.Rows.UpdateByID(ctx, "applications", appID, patch); err != nil {
		log.Printf("level=warn msg=\"update application urls failed\" application_id=%s err=%v", appID, err)
	}

	// Stage 6: child records, one batch each; empty batches are no-ops.
	eduRows := make([]map[string]any, 0, len(v.educations))
	for _, e := range v.educations {
		eduRows = append(eduRows, map[string]any{
			"application_id": appID,
			"degree_level":   pickStr(e, "degree_level", "level"),
			"institute":      pickStr(e, "institute", "school"),
			"program":        pickStr(e, "program", "major"),
			"start_month":    pickStr(e, "start_month", "start"),
			"end_month":      pickStr(e, "end_month", "end"),
			"degree_type":    pickStr(e, "degree_type"),
			"gpa":            pickStr(e, "gpa"),
		})
	}
	if err := p.Rows.InsertMany(ctx, "application_educations", eduRows); err != nil {
		return "", err
	}

	expRows := make([]map[string]any, 0, len(v.experiences))
	for _, e := range v.experiences {
		expRows = append(expRows, map[string]any{
			"application_id": appID,
			"company":        pickStr(e, "company"),
			"role":           pickStr(e, "role", "title"),
			"start_month":    pickStr(e, "start_month", "start"),
			"end_month":      pickStr(e, "end_month", "end"),
		})
	}
	if err := p.Rows.InsertMany(ctx, "application_experiences", expRows); err != nil {
		return "", err
	}

	skillRows := make([]map[string]any, 0, len(v.skills))
	for _, s := range v.skills {
		skillRows = append(skillRows, map[string]any{"application_id": appID, "skill": s})
	}
	if err := p.Rows.InsertMany(ctx, "application_skills", skillRows); err != nil {
		return "", err
	}

	// Stage 7: attachments, uploaded sequentially, then one batch insert.
	attRows := make([]map[string]any, 0, len(v.attachments))
	for _, a := range v.attachments {
		path := basePath + "/att_" + a.Name
		if err := p.Blobs.Upload(ctx, path, a.Data, a.ContentType); err != nil {
			return "", err
		}
		attRows = append(attRows, map[string]any{
			"application_id": appID,
			"file_name":      a.Name,
			"file_url":       assetURL(p.Blobs, path),
		})
	}
	if err := p.Rows.InsertMany(ctx, "application_attachments", attRows); err != nil {
		return "", err
	}

	if p.Publish != nil {
		p.Publish(appID)
	}
	return appID, nil
}

// assetURL prefers the public URL; private buckets get a storage-path sentinel
// so retrievability survives without fabricating a URL.
func assetURL(b BlobStore, path string) string {
	if u, ok := b.PublicURL(path); ok && u != "" {
		return u
	}
	return "storage:" + path
}

func nullIfEmpty(s string) any {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return s
}

func pickStr(m map[string]any, keys ...string) string {
	for _, k := range keys {
		if v, ok := m[k]; ok && v != nil {
			if s := strings.TrimSpace(fmt.Sprint(v)); s != "" {
				return s
			}
		}
	}
	return ""
}
