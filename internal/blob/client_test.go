package blob

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"
)

type call struct {
	method string
	path   string
}

// storageStub plays the object API: it records calls and can be told to fail
// the first n uploads.
type storageStub struct {
	mu       sync.Mutex
	calls    []call
	failPuts int
	upsert   string
	auth     string
}

func (s *storageStub) handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.calls = append(s.calls, call{method: r.Method, path: r.URL.EscapedPath()})
		if r.Method == http.MethodPost {
			s.upsert = r.Header.Get("x-upsert")
			s.auth = r.Header.Get("Authorization")
			if s.failPuts > 0 {
				s.failPuts--
				http.Error(w, `{"error":"Duplicate"}`, http.StatusConflict)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
	})
}

func newTestClient(url string) *Client {
	return NewClient(func() Settings {
		return Settings{URL: url, ServiceKey: "svc-key", Bucket: "careers", Public: true}
	}, 5*time.Second)
}

func TestUploadSuccess(t *testing.T) {
	t.Parallel()

	stub := &storageStub{}
	srv := httptest.NewServer(stub.handler())
	defer srv.Close()
	c := newTestClient(srv.URL)

	err := c.Upload(context.Background(), "applications/a1/resume_my cv.pdf", []byte("data"), "application/pdf")
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if len(stub.calls) != 1 {
		t.Fatalf("calls = %v", stub.calls)
	}
	got := stub.calls[0]
	if got.method != http.MethodPost {
		t.Fatalf("method = %s", got.method)
	}
	// Spaces escaped per segment, slashes kept.
	if got.path != "/storage/v1/object/careers/applications/a1/resume_my%20cv.pdf" {
		t.Fatalf("path = %q", got.path)
	}
	if stub.upsert != "true" {
		t.Fatalf("x-upsert = %q", stub.upsert)
	}
	if stub.auth != "Bearer svc-key" {
		t.Fatalf("auth = %q", stub.auth)
	}
}

func TestUploadRetriesAfterRemove(t *testing.T) {
	t.Parallel()

	stub := &storageStub{failPuts: 1}
	srv := httptest.NewServer(stub.handler())
	defer srv.Close()
	c := newTestClient(srv.URL)

	if err := c.Upload(context.Background(), "a/b.pdf", []byte("x"), ""); err != nil {
		t.Fatalf("Upload: %v", err)
	}
	// put (409) -> remove -> put (ok)
	want := []call{
		{http.MethodPost, "/storage/v1/object/careers/a/b.pdf"},
		{http.MethodDelete, "/storage/v1/object/careers"},
		{http.MethodPost, "/storage/v1/object/careers/a/b.pdf"},
	}
	if len(stub.calls) != len(want) {
		t.Fatalf("calls = %v", stub.calls)
	}
	for i, w := range want {
		if stub.calls[i] != w {
			t.Fatalf("call[%d] = %v, want %v", i, stub.calls[i], w)
		}
	}
}

func TestUploadGivesUpAfterSecondFailure(t *testing.T) {
	t.Parallel()

	stub := &storageStub{failPuts: 2}
	srv := httptest.NewServer(stub.handler())
	defer srv.Close()
	c := newTestClient(srv.URL)

	err := c.Upload(context.Background(), "a/b.pdf", []byte("x"), "")
	var ue *UploadError
	if !errors.As(err, &ue) {
		t.Fatalf("expected UploadError, got %v", err)
	}
	if ue.Path != "a/b.pdf" {
		t.Fatalf("path = %q", ue.Path)
	}
	if len(stub.calls) != 3 {
		t.Fatalf("retry must happen exactly once: %v", stub.calls)
	}
}

func TestUploadNotConfigured(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		s    Settings
		want string
	}{
		{"no url", Settings{ServiceKey: "k", Bucket: "b"}, "SUPABASE_URL"},
		{"no key", Settings{URL: "http://x", Bucket: "b"}, "SUPABASE_SERVICE_ROLE_KEY"},
		{"no bucket", Settings{URL: "http://x", ServiceKey: "k"}, "SUPABASE_BUCKET"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			cl := NewClient(func() Settings { return c.s }, time.Second)
			err := cl.Upload(context.Background(), "p", nil, "")
			var nce *NotConfiguredError
			if !errors.As(err, &nce) || nce.Name != c.want {
				t.Fatalf("err = %v", err)
			}
			if nce.Error() != "Missing env var: "+c.want {
				t.Fatalf("message = %q", nce.Error())
			}
		})
	}
}

func TestPublicURL(t *testing.T) {
	t.Parallel()

	pub := NewClient(func() Settings {
		return Settings{URL: "https://proj.supabase.co/", ServiceKey: "k", Bucket: "careers", Public: true}
	}, time.Second)
	u, ok := pub.PublicURL("applications/a1/att_file (1).zip")
	if !ok {
		t.Fatal("public bucket must yield a URL")
	}
	want := "https://proj.supabase.co/storage/v1/object/public/careers/applications/a1/att_file%20%281%29.zip"
	if u != want {
		t.Fatalf("url = %q, want %q", u, want)
	}

	priv := NewClient(func() Settings {
		return Settings{URL: "https://proj.supabase.co", ServiceKey: "k", Bucket: "careers"}
	}, time.Second)
	if _, ok := priv.PublicURL("p"); ok {
		t.Fatal("private bucket must not yield a URL")
	}

	unset := NewClient(func() Settings { return Settings{} }, time.Second)
	if _, ok := unset.PublicURL("p"); ok {
		t.Fatal("unconfigured storage must not yield a URL")
	}
}
