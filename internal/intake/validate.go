package intake

import (
	"encoding/json"
	"fmt"
	"io"
	"regexp"
	"strings"
)

// Size ceilings. Resume and transcript are capped individually; attachments
// share one cumulative budget checked as each file is read.
const (
	MaxAssetBytes       = 2 * 1024 * 1024
	MaxAttachTotalBytes = 50 * 1024 * 1024
)

var allowedResumeExt = map[string]bool{".pdf": true, ".doc": true, ".docx": true}

var allowedAttachExt = map[string]bool{
	".pdf": true, ".doc": true, ".docx": true, ".png": true, ".jpg": true,
	".jpeg": true, ".txt": true, ".html": true, ".ppt": true, ".pptx": true,
	".xls": true, ".xlsx": true, ".zip": true, ".rar": true,
}

// ValidationError means the submission was rejected before any persistence
// side effect. The message is caller-facing.
type ValidationError struct {
	msg string
}

func (e *ValidationError) Error() string { return e.msg }

func validationf(format string, args ...any) error {
	return &ValidationError{msg: fmt.Sprintf(format, args...)}
}

const keepChars = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789._-() "

var spaceRun = regexp.MustCompile(`\s+`)

// sanitizeFilename restricts a client filename to a safe character set,
// collapses whitespace and truncates to 180 chars. Never returns "".
func sanitizeFilename(name string) string {
	if name == "" {
		return "file"
	}
	var b strings.Builder
	for _, c := range name {
		if strings.ContainsRune(keepChars, c) {
			b.WriteRune(c)
		} else {
			b.WriteByte('_')
		}
	}
	cleaned := spaceRun.ReplaceAllString(strings.TrimSpace(b.String()), " ")
	if len(cleaned) > 180 {
		cleaned = cleaned[:180]
	}
	if cleaned == "" {
		return "file"
	}
	return cleaned
}

var extRe = regexp.MustCompile(`(\.[A-Za-z0-9]+)$`)

// fileExt returns the trailing extension lower-cased, "" when there is none.
func fileExt(name string) string {
	m := extRe.FindStringSubmatch(name)
	if m == nil {
		return ""
	}
	return strings.ToLower(m[1])
}

// parseJSONList parses an education/experience sub-payload. Blank input means
// an empty list; valid input must be a JSON array; elements that are not
// objects are silently dropped.
func parseJSONList(s, fieldName string) ([]map[string]any, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	var v any
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return nil, validationf("Invalid JSON for %s", fieldName)
	}
	arr, ok := v.([]any)
	if !ok {
		return nil, validationf("Invalid JSON for %s", fieldName)
	}
	var out []map[string]any
	for _, it := range arr {
		if m, ok := it.(map[string]any); ok {
			out = append(out, m)
		}
	}
	return out, nil
}

var skillSplit = regexp.MustCompile(`[,\n;]+`)

// parseSkills accepts either a JSON array of strings or a comma/semicolon/
// newline separated string. Malformed JSON falls back to delimiter parsing
// rather than failing. At most 8 skills survive, order preserved.
func parseSkills(s string) []string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	var arr []any
	if err := json.Unmarshal([]byte(s), &arr); err == nil {
		var out []string
		for _, v := range arr {
			t := strings.TrimSpace(fmt.Sprint(v))
			if t != "" {
				out = append(out, t)
			}
		}
		return capStrings(out, 8)
	}
	var out []string
	for _, p := range skillSplit.Split(s, -1) {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return capStrings(out, 8)
}

func capStrings(s []string, n int) []string {
	if len(s) > n {
		return s[:n]
	}
	return s
}

func capMaps(s []map[string]any, n int) []map[string]any {
	if len(s) > n {
		return s[:n]
	}
	return s
}

// visaTruthy includes the Thai token the bilingual apply form submits.
var visaTruthy = map[string]bool{
	"1": true, "true": true, "yes": true, "y": true, "ต้องการ": true, "need": true,
}

var termsTruthy = map[string]bool{"1": true, "true": true, "yes": true, "y": true}

func truthy(set map[string]bool, s string) bool {
	return set[strings.ToLower(strings.TrimSpace(s))]
}

// readDocument validates and reads a resume-class file (resume or transcript):
// pdf/doc/docx only, 2 MiB ceiling. A missing extension passes through.
func readDocument(f *FileInput, label, fallbackName string) (Asset, error) {
	name := sanitizeFilename(firstNonEmpty(f.Name, fallbackName))
	if ext := fileExt(name); ext != "" && !allowedResumeExt[ext] {
		return Asset{}, validationf("%s must be PDF/DOC/DOCX", label)
	}
	data, err := readCapped(f, MaxAssetBytes)
	if err != nil {
		return Asset{}, err
	}
	if data == nil {
		return Asset{}, validationf("%s must be <= 2MB", label)
	}
	return Asset{Name: name, ContentType: contentTypeOr(f.ContentType), Data: data}, nil
}

// validate applies every §intake rule and reads all file payloads. It runs to
// completion before the pipeline's first write; any error here guarantees
// nothing was persisted or uploaded.
func validate(req Request) (*validated, error) {
	if req.Resume == nil {
		return nil, validationf("Resume is required")
	}

	v := &validated{}

	resume, err := readDocument(req.Resume, "Resume", "resume")
	if err != nil {
		return nil, err
	}
	v.resume = resume

	if req.Transcript != nil {
		t, err := readDocument(req.Transcript, "Transcript", "transcript")
		if err != nil {
			return nil, err
		}
		v.transcript = &t
	}

	// Cumulative attachment budget: fail on the file that crosses the cap,
	// without reading the rest.
	total := 0
	for _, a := range req.Attachments {
		name := sanitizeFilename(firstNonEmpty(a.Name, "file"))
		if ext := fileExt(name); ext != "" && !allowedAttachExt[ext] {
			return nil, validationf("Attachment type not allowed: %s", ext)
		}
		data, err := readCapped(a, MaxAttachTotalBytes-total)
		if err != nil {
			return nil, err
		}
		if data == nil {
			return nil, validationf("Attachments total must be <= 50MB")
		}
		total += len(data)
		v.attachments = append(v.attachments, Asset{
			Name: name, ContentType: contentTypeOr(a.ContentType), Data: data,
		})
	}

	edu, err := parseJSONList(req.EducationJSON, "education_json")
	if err != nil {
		return nil, err
	}
	v.educations = capMaps(edu, 5)

	exp, err := parseJSONList(req.ExperienceJSON, "experience_json")
	if err != nil {
		return nil, err
	}
	v.experiences = capMaps(exp, 20)

	v.skills = parseSkills(req.Skills)
	v.visaRequired = truthy(visaTruthy, req.VisaRequired)
	v.termsAccepted = truthy(termsTruthy, req.TermsAccepted)

	return v, nil
}

// readCapped reads the whole file, returning nil (no error) when the payload
// exceeds limit — callers turn that into their own size message.
func readCapped(f *FileInput, limit int) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("read upload %q: %w", f.Name, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(io.LimitReader(rc, int64(limit)+1))
	if err != nil {
		return nil, fmt.Errorf("read upload %q: %w", f.Name, err)
	}
	if len(data) > limit {
		return nil, nil
	}
	return data, nil
}

func contentTypeOr(ct string) string {
	if ct == "" {
		return "application/octet-stream"
	}
	return ct
}

func firstNonEmpty(a, b string) string {
	if strings.TrimSpace(a) != "" {
		return a
	}
	return b
}
