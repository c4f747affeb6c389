package collab

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var _ Searcher = (*WikipediaSearcher)(nil)

// WikipediaSearcher queries the MediaWiki search API and returns one
// "Title: snippet" line per hit.
type WikipediaSearcher struct {
	endpoint string
	limit    int
	http     *http.Client
}

// NewWikipediaSearcher creates a searcher against endpoint, e.g.
// https://en.wikipedia.org/w/api.php.
func NewWikipediaSearcher(endpoint string, limit int, hc *http.Client) *WikipediaSearcher {
	if hc == nil {
		hc = &http.Client{Timeout: 15 * time.Second}
	}
	if limit < 1 {
		limit = 1
	}
	return &WikipediaSearcher{endpoint: endpoint, limit: limit, http: hc}
}

type wikiSearchResponse struct {
	Query struct {
		Search []struct {
			Title   string `json:"title"`
			Snippet string `json:"snippet"`
		} `json:"search"`
	} `json:"query"`
}

var markup = regexp.MustCompile(`<[^>]*>`)

// Search runs one list=search query.
func (w *WikipediaSearcher) Search(ctx context.Context, query string) (string, error) {
	params := url.Values{}
	params.Set("action", "query")
	params.Set("list", "search")
	params.Set("format", "json")
	params.Set("srsearch", query)
	params.Set("srlimit", strconv.Itoa(w.limit))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, w.endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return "", fmt.Errorf("wikipedia: create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "historicalcourt/1.0")

	resp, err := w.http.Do(req)
	if err != nil {
		return "", &ServiceError{Service: "wikipedia", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", &ServiceError{Service: "wikipedia", Err: fmt.Errorf("HTTP %d", resp.StatusCode)}
	}

	var decoded wikiSearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", fmt.Errorf("wikipedia: decode response: %w", err)
	}

	lines := make([]string, 0, len(decoded.Query.Search))
	for _, hit := range decoded.Query.Search {
		snippet := html.UnescapeString(markup.ReplaceAllString(hit.Snippet, ""))
		lines = append(lines, fmt.Sprintf("%s: %s", hit.Title, strings.Join(strings.Fields(snippet), " ")))
	}
	return strings.Join(lines, "\n"), nil
}
