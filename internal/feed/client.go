package feed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// ErrNotConfigured is returned when the feed URL has not been set. The check
// runs on every call rather than at startup so a config reload can fix it.
var ErrNotConfigured = errors.New("jobs feed URL not configured")

const bodySnippetMax = 300

// UpstreamError kinds.
const (
	KindRequest = "request" // transport failure (DNS, connect, timeout)
	KindStatus  = "status"  // non-200 final response
	KindDecode  = "decode"  // 200 but body is not JSON
)

// Hop is one redirect the upstream issued before the final response.
type Hop struct {
	Status   int    `json:"status"`
	Location string `json:"location"`
}

// UpstreamError carries feed failure diagnostics: the redirect chain, the final
// resolved URL and a truncated body snippet. It is never cached.
type UpstreamError struct {
	Kind     string
	Status   int
	Hops     []Hop
	FinalURL string
	Body     string
	Err      error
}

func (e *UpstreamError) Error() string {
	switch e.Kind {
	case KindStatus:
		return fmt.Sprintf("jobs feed HTTP %d; history=[%s]; final_url=%s; body=%s",
			e.Status, formatHops(e.Hops), e.FinalURL, e.Body)
	case KindDecode:
		return fmt.Sprintf("jobs feed non-JSON; final_url=%s; body=%s", e.FinalURL, e.Body)
	default:
		return fmt.Sprintf("jobs feed request error: %v", e.Err)
	}
}

func (e *UpstreamError) Unwrap() error { return e.Err }

func formatHops(hops []Hop) string {
	parts := make([]string, 0, len(hops))
	for _, h := range hops {
		parts = append(parts, fmt.Sprintf("%d:%s", h.Status, h.Location))
	}
	return strings.Join(parts, " -> ")
}

// hopRecorder travels in the request context so the shared client's
// CheckRedirect can record hops for exactly one in-flight request.
type hopRecorder struct{ hops []Hop }

type hopKey struct{}

// Client fetches the raw jobs feed. One Client is created at startup and shared
// by every request; the underlying transport keeps connections alive.
type Client struct {
	FeedURL func() string // re-read per call so config reloads apply

	hc  *http.Client
	lim *rate.Limiter
}

// NewClient builds the shared fetch client. timeout bounds the whole exchange
// including redirects; reqPerSec throttles calls to the upstream host.
func NewClient(feedURL func() string, timeout time.Duration, reqPerSec float64) *Client {
	return &Client{
		FeedURL: feedURL,
		hc: &http.Client{
			Timeout: timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 10 {
					return errors.New("stopped after 10 redirects")
				}
				if rec, ok := req.Context().Value(hopKey{}).(*hopRecorder); ok && req.Response != nil {
					rec.hops = append(rec.hops, Hop{
						Status:   req.Response.StatusCode,
						Location: req.Response.Header.Get("Location"),
					})
				}
				return nil
			},
		},
		lim: rate.NewLimiter(rate.Limit(reqPerSec), 2),
	}
}

// FetchRaw performs one GET against the feed with the key's query dimensions
// and returns the decoded JSON body. Redirects are followed transparently (the
// upstream commonly 302s to a content host); the final response is what gets
// validated. No retries here: retry policy belongs to the caller.
func (c *Client) FetchRaw(ctx context.Context, k Key) (map[string]any, error) {
	base := strings.TrimSpace(c.FeedURL())
	if base == "" {
		return nil, ErrNotConfigured
	}

	if err := c.lim.Wait(ctx); err != nil {
		return nil, &UpstreamError{Kind: KindRequest, Err: err}
	}

	params := url.Values{}
	params.Set("lang", k.Lang)
	if k.Country != "" {
		params.Set("country", k.Country)
	}
	if k.Department != "" {
		params.Set("department", k.Department)
	}
	if k.Level != "" {
		params.Set("level", k.Level)
	}

	rec := &hopRecorder{}
	ctx = context.WithValue(ctx, hopKey{}, rec)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+"?"+params.Encode(), nil)
	if err != nil {
		return nil, &UpstreamError{Kind: KindRequest, Err: err}
	}
	req.Header.Set("User-Agent", "careers-engine/1.0")
	req.Header.Set("Accept", "application/json,text/plain,*/*")

	res, err := c.hc.Do(req)
	if err != nil {
		return nil, &UpstreamError{Kind: KindRequest, Err: err}
	}
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, &UpstreamError{Kind: KindRequest, Err: err}
	}

	if res.StatusCode != http.StatusOK {
		return nil, &UpstreamError{
			Kind:     KindStatus,
			Status:   res.StatusCode,
			Hops:     rec.hops,
			FinalURL: res.Request.URL.String(),
			Body:     snippet(body),
		}
	}

	var raw map[string]any
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, &UpstreamError{
			Kind:     KindDecode,
			Hops:     rec.hops,
			FinalURL: res.Request.URL.String(),
			Body:     snippet(body),
			Err:      err,
		}
	}
	return raw, nil
}

func snippet(b []byte) string {
	if len(b) > bodySnippetMax {
		b = b[:bodySnippetMax]
	}
	return string(b)
}
