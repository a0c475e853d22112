// Package blob talks to a Supabase-style storage API: upload-with-overwrite,
// remove, and public-URL derivation. It is the only writer of binary assets.
package blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// NotConfiguredError reports a missing storage setting. Checked on every call,
// not at startup, so a config reload or keychain write can fix it live.
type NotConfiguredError struct {
	Name string
}

func (e *NotConfiguredError) Error() string {
	return "Missing env var: " + e.Name
}

// UploadError is a storage write that failed even after the remove-and-retry.
type UploadError struct {
	Path string
	Err  error
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("Storage upload failed: %s: %v", e.Path, e.Err)
}

func (e *UploadError) Unwrap() error { return e.Err }

// Settings is the storage configuration as of one call.
type Settings struct {
	URL        string // project base URL
	ServiceKey string
	Bucket     string
	Public     bool // whether objects get a public URL
}

// Client is shared across requests; Settings is re-read per call so secrets
// set over the API take effect without a restart.
type Client struct {
	Settings func() Settings

	hc *http.Client
}

func NewClient(settings func() Settings, timeout time.Duration) *Client {
	return &Client{Settings: settings, hc: &http.Client{Timeout: timeout}}
}

func (c *Client) settings() (Settings, error) {
	s := c.Settings()
	s.URL = strings.TrimRight(strings.TrimSpace(s.URL), "/")
	switch {
	case s.URL == "":
		return s, &NotConfiguredError{Name: "SUPABASE_URL"}
	case strings.TrimSpace(s.ServiceKey) == "":
		return s, &NotConfiguredError{Name: "SUPABASE_SERVICE_ROLE_KEY"}
	case strings.TrimSpace(s.Bucket) == "":
		return s, &NotConfiguredError{Name: "SUPABASE_BUCKET"}
	}
	return s, nil
}

// Upload writes data at path with overwrite semantics. On failure it removes
// the path and retries exactly once (covers an object left in a conflicting
// state), then gives up with an UploadError. No transient/permanent
// distinction before the retry: a permanent failure just fails again.
func (c *Client) Upload(ctx context.Context, path string, data []byte, contentType string) error {
	s, err := c.settings()
	if err != nil {
		return err
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	if err := c.put(ctx, s, path, data, contentType); err != nil {
		_ = c.Remove(ctx, path)
		if err2 := c.put(ctx, s, path, data, contentType); err2 != nil {
			return &UploadError{Path: path, Err: err}
		}
	}
	return nil
}

func (c *Client) put(ctx context.Context, s Settings, path string, data []byte, contentType string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		s.URL+"/storage/v1/object/"+s.Bucket+"/"+escapePath(path), bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+s.ServiceKey)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("x-upsert", "true")

	res, err := c.hc.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.StatusCode < 200 || res.StatusCode > 299 {
		b, _ := io.ReadAll(io.LimitReader(res.Body, 300))
		return fmt.Errorf("status %d: %s", res.StatusCode, string(b))
	}
	return nil
}

// Remove deletes one object. Best-effort callers ignore the error.
func (c *Client) Remove(ctx context.Context, path string) error {
	s, err := c.settings()
	if err != nil {
		return err
	}

	body, _ := json.Marshal(map[string]any{"prefixes": []string{path}})
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete,
		s.URL+"/storage/v1/object/"+s.Bucket, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+s.ServiceKey)
	req.Header.Set("Content-Type", "application/json")

	res, err := c.hc.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.StatusCode < 200 || res.StatusCode > 299 {
		return fmt.Errorf("remove %s: status %d", path, res.StatusCode)
	}
	return nil
}

// PublicURL returns the browsable URL for a stored object, or ok=false when
// the bucket is private and no public URL exists. Callers fall back to a
// storage-path sentinel rather than fabricating a URL.
func (c *Client) PublicURL(path string) (string, bool) {
	s, err := c.settings()
	if err != nil || !s.Public {
		return "", false
	}
	return s.URL + "/storage/v1/object/public/" + s.Bucket + "/" + escapePath(path), true
}

// escapePath keeps slashes as segment separators while escaping each segment
// (sanitized filenames may contain spaces and parentheses).
func escapePath(p string) string {
	parts := strings.Split(p, "/")
	for i, seg := range parts {
		parts[i] = url.PathEscape(seg)
	}
	return strings.Join(parts, "/")
}
