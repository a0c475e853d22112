package intake

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"careers-engine/internal/feed"
)

type fakeJobs struct {
	row feed.Row
	err error
}

func (f *fakeJobs) JobByID(_ context.Context, jobID, lang string) (feed.Row, error) {
	if lang != "en" {
		return nil, fmt.Errorf("lookup lang = %q", lang)
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.row, nil
}

type insertCall struct {
	table string
	rows  []map[string]any
}

type fakeRows struct {
	nextID    string
	inserts   []insertCall
	updates   []map[string]any
	updateErr error
}

func (f *fakeRows) InsertOne(_ context.Context, table string, row map[string]any) (map[string]any, error) {
	out := map[string]any{}
	for k, v := range row {
		out[k] = v
	}
	out["id"] = f.nextID
	f.inserts = append(f.inserts, insertCall{table: table, rows: []map[string]any{out}})
	return out, nil
}

func (f *fakeRows) InsertMany(_ context.Context, table string, rows []map[string]any) error {
	if len(rows) == 0 {
		return nil
	}
	f.inserts = append(f.inserts, insertCall{table: table, rows: rows})
	return nil
}

func (f *fakeRows) UpdateByID(_ context.Context, table, id string, patch map[string]any) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	p := map[string]any{"table": table, "id": id}
	for k, v := range patch {
		p[k] = v
	}
	f.updates = append(f.updates, p)
	return nil
}

type fakeBlobs struct {
	public  bool
	failOn  string
	uploads []string
}

func (f *fakeBlobs) Upload(_ context.Context, path string, _ []byte, _ string) error {
	if f.failOn != "" && path == f.failOn {
		return errors.New("upload blew up")
	}
	f.uploads = append(f.uploads, path)
	return nil
}

func (f *fakeBlobs) PublicURL(path string) (string, bool) {
	if !f.public {
		return "", false
	}
	return "https://cdn.example.com/" + path, true
}

func newPipeline(jobs *fakeJobs, rows *fakeRows, blobs *fakeBlobs) *Pipeline {
	return &Pipeline{Jobs: jobs, Rows: rows, Blobs: blobs}
}

func TestSubmitHappyPath(t *testing.T) {
	t.Parallel()

	jobs := &fakeJobs{row: feed.Row{
		"job_id": "J-7", "country": " Thailand ", "department": "Engineering", "level": "Senior",
	}}
	rows := &fakeRows{nextID: "app-1"}
	blobs := &fakeBlobs{public: true}

	var published string
	p := newPipeline(jobs, rows, blobs)
	p.Publish = func(id string) { published = id }

	req := baseRequest()
	req.Transcript = memFile("transcript.pdf", 50)
	req.Attachments = []*FileInput{memFile("portfolio.zip", 50)}
	req.EducationJSON = `[{"degree_level":"BSc","institute":"KMUTT"}]`
	req.ExperienceJSON = `[{"company":"Acme","title":"Engineer"}]`
	req.Skills = "Go, SQL"
	req.VisaRequired = "ต้องการ"
	req.AvailableStartDate = "  "

	id, err := p.Submit(context.Background(), "J-7", req)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if id != "app-1" {
		t.Fatalf("id = %q", id)
	}
	if published != "app-1" {
		t.Fatalf("published = %q", published)
	}

	root := rows.inserts[0]
	if root.table != "applications" {
		t.Fatalf("first insert into %q", root.table)
	}
	rr := root.rows[0]
	if rr["country"] != "Thailand" || rr["department"] != "Engineering" || rr["level"] != "Senior" {
		t.Fatalf("job context not denormalized from feed: %v", rr)
	}
	if rr["visa_required"] != true {
		t.Fatalf("visa_required = %v", rr["visa_required"])
	}
	if rr["available_start_date"] != nil {
		t.Fatalf("blank start date should be null, got %v", rr["available_start_date"])
	}
	if rr["resume_url"] != nil || rr["transcript_url"] != nil {
		t.Fatalf("asset URLs must start null: %v", rr)
	}

	wantUploads := []string{
		"applications/app-1/resume_resume.pdf",
		"applications/app-1/transcript_transcript.pdf",
		"applications/app-1/att_portfolio.zip",
	}
	if len(blobs.uploads) != len(wantUploads) {
		t.Fatalf("uploads = %v", blobs.uploads)
	}
	for i, w := range wantUploads {
		if blobs.uploads[i] != w {
			t.Fatalf("upload[%d] = %q, want %q", i, blobs.uploads[i], w)
		}
	}

	if len(rows.updates) != 1 {
		t.Fatalf("updates = %v", rows.updates)
	}
	up := rows.updates[0]
	if up["resume_url"] != "https://cdn.example.com/applications/app-1/resume_resume.pdf" {
		t.Fatalf("resume_url = %v", up["resume_url"])
	}
	if up["transcript_url"] != "https://cdn.example.com/applications/app-1/transcript_transcript.pdf" {
		t.Fatalf("transcript_url = %v", up["transcript_url"])
	}

	tables := map[string][]map[string]any{}
	for _, c := range rows.inserts[1:] {
		tables[c.table] = c.rows
	}
	if got := tables["application_educations"]; len(got) != 1 || got[0]["institute"] != "KMUTT" {
		t.Fatalf("educations = %v", got)
	}
	// "title" falls back into the role column.
	if got := tables["application_experiences"]; len(got) != 1 || got[0]["role"] != "Engineer" {
		t.Fatalf("experiences = %v", got)
	}
	if got := tables["application_skills"]; len(got) != 2 || got[0]["skill"] != "Go" {
		t.Fatalf("skills = %v", got)
	}
	if got := tables["application_attachments"]; len(got) != 1 || got[0]["file_name"] != "portfolio.zip" {
		t.Fatalf("attachments = %v", got)
	}
}

func TestSubmitUnknownJobWritesNothing(t *testing.T) {
	t.Parallel()

	jobs := &fakeJobs{err: feed.ErrJobNotFound}
	rows := &fakeRows{nextID: "app-1"}
	blobs := &fakeBlobs{}

	_, err := newPipeline(jobs, rows, blobs).Submit(context.Background(), "nope", baseRequest())
	if !errors.Is(err, feed.ErrJobNotFound) {
		t.Fatalf("err = %v", err)
	}
	if len(rows.inserts) != 0 || len(blobs.uploads) != 0 {
		t.Fatal("failed lookup must not write anything")
	}
}

func TestSubmitValidationFailureWritesNothing(t *testing.T) {
	t.Parallel()

	jobs := &fakeJobs{row: feed.Row{"job_id": "J-7"}}
	rows := &fakeRows{nextID: "app-1"}
	blobs := &fakeBlobs{}

	req := baseRequest()
	req.Attachments = []*FileInput{memFile("virus.exe", 10)}

	_, err := newPipeline(jobs, rows, blobs).Submit(context.Background(), "J-7", req)
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("err = %v", err)
	}
	if len(rows.inserts) != 0 || len(blobs.uploads) != 0 {
		t.Fatal("rejected submission must not write anything")
	}
}

func TestSubmitUploadFailureKeepsRootRecord(t *testing.T) {
	t.Parallel()

	jobs := &fakeJobs{row: feed.Row{"job_id": "J-7"}}
	rows := &fakeRows{nextID: "app-1"}
	blobs := &fakeBlobs{failOn: "applications/app-1/resume_resume.pdf"}

	_, err := newPipeline(jobs, rows, blobs).Submit(context.Background(), "J-7", baseRequest())
	if err == nil {
		t.Fatal("expected upload error")
	}
	// No rollback: the root insert stays.
	if len(rows.inserts) != 1 || rows.inserts[0].table != "applications" {
		t.Fatalf("inserts = %v", rows.inserts)
	}
	if len(rows.updates) != 0 {
		t.Fatalf("updates = %v", rows.updates)
	}
}

func TestSubmitBackfillFailureTolerated(t *testing.T) {
	t.Parallel()

	jobs := &fakeJobs{row: feed.Row{"job_id": "J-7"}}
	rows := &fakeRows{nextID: "app-1", updateErr: errors.New("db locked")}
	blobs := &fakeBlobs{}

	id, err := newPipeline(jobs, rows, blobs).Submit(context.Background(), "J-7", baseRequest())
	if err != nil {
		t.Fatalf("backfill failure must not abort: %v", err)
	}
	if id != "app-1" {
		t.Fatalf("id = %q", id)
	}
}

func TestSubmitPrivateBucketSentinel(t *testing.T) {
	t.Parallel()

	jobs := &fakeJobs{row: feed.Row{"job_id": "J-7"}}
	rows := &fakeRows{nextID: "app-1"}
	blobs := &fakeBlobs{public: false}

	if _, err := newPipeline(jobs, rows, blobs).Submit(context.Background(), "J-7", baseRequest()); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	up := rows.updates[0]
	if up["resume_url"] != "storage:applications/app-1/resume_resume.pdf" {
		t.Fatalf("resume_url = %v", up["resume_url"])
	}
}
