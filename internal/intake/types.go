package intake

import "io"

// FileInput is one uploaded part as received from the multipart form. Open is
// called at most once, during validation; the bytes are held in memory from
// then on (resume/transcript are capped at 2 MiB, attachments at 50 MiB total).
type FileInput struct {
	Name        string // client-declared filename, untrusted
	ContentType string
	Open        func() (io.ReadCloser, error)
}

// Request is the raw application submission before any validation.
type Request struct {
	FirstName string
	LastName  string
	Email     string
	Phone     string
	Address   string

	VisaRequired       string
	AvailableStartDate string
	WebsiteURL         string
	SourceChannel      string
	TermsAccepted      string

	Skills         string
	EducationJSON  string
	ExperienceJSON string

	Resume      *FileInput // required
	Transcript  *FileInput // optional
	Attachments []*FileInput
}

// Asset is a validated, fully-read upload ready for the object store.
type Asset struct {
	Name        string // sanitized
	ContentType string
	Data        []byte
}

// validated holds every normalized value the pipeline persists. Produced in
// full before the first write.
type validated struct {
	resume      Asset
	transcript  *Asset
	attachments []Asset

	educations  []map[string]any
	experiences []map[string]any
	skills      []string

	visaRequired  bool
	termsAccepted bool
}
