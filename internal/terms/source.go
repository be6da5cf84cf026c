// internal/terms/source.go
//
// Remote term source client. The source is an external paginated API:
//   GET {base}?category=<cat>&cursor=<opaque>&limit=<n>
// responding with {"terms":[...],"nextCursor":"...","hasMore":true}.
// Every call is bounded by the client timeout; callers treat any error as
// "source unavailable" and fall back to the embedded pool.

package terms

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/mfreitag/hilo-server/internal/game"
)

// Page is one batch of terms from the source. An empty NextCursor with
// HasMore=false means the category is exhausted.
type Page struct {
	Terms      []game.Term `json:"terms"`
	NextCursor string      `json:"nextCursor"`
	HasMore    bool        `json:"hasMore"`
}

// Source fetches candidate terms for a category. cursor is an opaque token
// from a previous Page; empty for the first fetch.
type Source interface {
	Fetch(ctx context.Context, category, cursor string, limit int) (Page, error)
}

// HTTPSource implements Source against the external term API.
type HTTPSource struct {
	base   string
	client *http.Client
}

// NewHTTPSource constructs a client with a bounded per-request timeout.
func NewHTTPSource(base string, timeout time.Duration) *HTTPSource {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &HTTPSource{base: base, client: &http.Client{Timeout: timeout}}
}

func (s *HTTPSource) Fetch(ctx context.Context, category, cursor string, limit int) (Page, error) {
	q := url.Values{}
	q.Set("category", category)
	q.Set("limit", strconv.Itoa(limit))
	if cursor != "" {
		q.Set("cursor", cursor)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.base+"?"+q.Encode(), nil)
	if err != nil {
		return Page{}, fmt.Errorf("build terms request: %w", err)
	}
	res, err := s.client.Do(req)
	if err != nil {
		return Page{}, fmt.Errorf("fetch terms: %w", err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		return Page{}, fmt.Errorf("fetch terms: unexpected status %d", res.StatusCode)
	}
	var page Page
	if err := json.NewDecoder(res.Body).Decode(&page); err != nil {
		return Page{}, fmt.Errorf("decode terms response: %w", err)
	}
	return page, nil
}
