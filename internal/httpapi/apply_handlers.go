package httpapi

import (
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"careers-engine/internal/intake"
)

// multipartMemory is how much of the form stays in RAM before spilling to
// temp files; individual file caps are enforced downstream by the validator.
const multipartMemory = 16 << 20

type ApplyHandler struct {
	Pipeline *intake.Pipeline
}

// SubmitByPath serves POST /apply/{job_id} (multipart form).
func (h ApplyHandler) SubmitByPath(w http.ResponseWriter, r *http.Request) {
	jobID := strings.TrimPrefix(r.URL.Path, "/apply/")
	if jobID == "" || strings.Contains(jobID, "/") {
		WriteError(w, r, http.StatusBadRequest, "bad_request", "invalid job id")
		return
	}

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		WriteError(w, r, http.StatusBadRequest, "bad_request", "invalid multipart form: "+err.Error())
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	form := r.MultipartForm
	field := func(name string) string {
		if vs := form.Value[name]; len(vs) > 0 {
			return vs[0]
		}
		return ""
	}

	req := intake.Request{
		FirstName: field("first_name"),
		LastName:  field("last_name"),
		Email:     field("email"),
		Phone:     field("phone"),
		Address:   field("address"),

		VisaRequired:       field("visa_required"),
		AvailableStartDate: field("available_start_date"),
		WebsiteURL:         field("website_url"),
		SourceChannel:      field("source_channel"),
		TermsAccepted:      fieldOr(form, "terms_accepted", "true"),

		Skills:         field("skills"),
		EducationJSON:  field("education_json"),
		ExperienceJSON: field("experience_json"),
	}

	if fhs := form.File["resume"]; len(fhs) > 0 {
		req.Resume = fileInput(fhs[0])
	} else {
		WriteError(w, r, http.StatusBadRequest, "validation_failed", "Resume is required")
		return
	}
	if fhs := form.File["transcript"]; len(fhs) > 0 {
		req.Transcript = fileInput(fhs[0])
	}
	for _, fh := range form.File["attachments"] {
		req.Attachments = append(req.Attachments, fileInput(fh))
	}

	appID, err := h.Pipeline.Submit(r.Context(), jobID, req)
	if err != nil {
		WriteDomainError(w, r, err)
		return
	}
	writeJSON(w, map[string]any{"ok": true, "application_id": appID})
}

func fieldOr(form *multipart.Form, name, def string) string {
	if vs := form.Value[name]; len(vs) > 0 {
		return vs[0]
	}
	return def
}

func fileInput(fh *multipart.FileHeader) *intake.FileInput {
	return &intake.FileInput{
		Name:        fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Open: func() (io.ReadCloser, error) {
			return fh.Open()
		},
	}
}
