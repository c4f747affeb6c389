//go:build e2e

package e2e

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dusk-indust/historicalcourt/internal/collab"
	"github.com/dusk-indust/historicalcourt/internal/config"
	"github.com/dusk-indust/historicalcourt/internal/court"
	"github.com/dusk-indust/historicalcourt/internal/docket"
	"github.com/dusk-indust/historicalcourt/internal/export"
	"github.com/dusk-indust/historicalcourt/internal/orchestrator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var update = flag.Bool("update", false, "update golden files")

func goldenPath(name string) string {
	return filepath.Join("..", "..", "testdata", "golden", name)
}

// chatServer is an OpenAI-compatible endpoint that answers by the ROLE line
// of the user message. The judge rules sufficient on its second call.
type chatServer struct {
	mu       sync.Mutex
	calls    map[string]int
	requests []string
}

func (c *chatServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Messages []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.Messages) == 0 {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	user := req.Messages[len(req.Messages)-1].Content
	role := strings.TrimPrefix(strings.SplitN(user, "\n", 2)[0], "ROLE: ")

	c.mu.Lock()
	c.calls[role]++
	n := c.calls[role]
	c.requests = append(c.requests, user)
	c.mu.Unlock()

	var reply string
	switch role {
	case "defense":
		reply = fmt.Sprintf("Founded %d schools.", n)
	case "prosecution":
		reply = fmt.Sprintf("Suppressed %d newspapers.", n)
	case "judge":
		reply = "RULING: CONTINUE\nThe prosecution case is thin."
		if n >= 2 {
			reply = "RULING: SUFFICIENT\nBoth sides are documented."
		}
	case "verdict":
		reply = "I. PREAMBLE\nThe court convened.\n\nVI. VERDICT\nThe record is balanced."
	case "sentencing":
		reply = "VII. SENTENCING\nNo sentence is imposed.\n\nVIII. CLOSING\nSo ordered."
	default:
		http.Error(w, "unknown role "+role, http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"choices": []map[string]any{{"message": map[string]string{"role": "assistant", "content": reply}}},
	})
}

func wikiServer() *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query().Get("srsearch")
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"query":{"search":[{"title":"Example Figure","snippet":"<span class=\"searchmatch\">%s</span> in the archives"}]}}`, query)
	}))
}

func runCourt(t *testing.T) (*court.Result, *chatServer, config.Config) {
	t.Helper()

	chat := &chatServer{calls: make(map[string]int)}
	chatSrv := httptest.NewServer(chat)
	t.Cleanup(chatSrv.Close)
	wiki := wikiServer()
	t.Cleanup(wiki.Close)

	cfg := config.Default()
	cfg.OutputDir = t.TempDir()
	cfg.Docket = "HC-2026-001"
	cfg.Generator.BaseURL = chatSrv.URL + "/v1"
	cfg.Lookup.BaseURL = wiki.URL
	cfg.Retry.InitialDelay = time.Millisecond

	hearing := time.Date(2026, time.October, 16, 10, 0, 0, 0, time.UTC)
	engine := court.NewEngine(cfg,
		collab.NewChatGenerator(cfg.Generator.BaseURL, cfg.Model, "", chatSrv.Client()),
		collab.NewWikipediaSearcher(cfg.Lookup.BaseURL, cfg.Lookup.Limit, wiki.Client()),
		collab.FSPersister{},
		court.WithClock(func() time.Time { return hearing }),
	)

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	res, err := engine.Convene(ctx, "Example Figure")
	require.NoError(t, err)
	return res, chat, cfg
}

// TestGolden compares the filed report against testdata/golden.
func TestGolden(t *testing.T) {
	res, _, _ := runCourt(t)

	got, err := os.ReadFile(res.ReportPath)
	require.NoError(t, err)

	path := goldenPath("example_figure_report.txt")
	if *update {
		require.NoError(t, os.WriteFile(path, got, 0o644))
		return
	}
	want, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		t.Skipf("golden file %s missing; run with -update", path)
	}
	require.NoError(t, err)
	assert.Equal(t, string(want), string(got))
}

func TestCourt_E2E(t *testing.T) {
	res, chat, cfg := runCourt(t)

	assert.Equal(t, orchestrator.LoopTerminatedBySignal, res.Trial.Loop)
	assert.Equal(t, 2, res.Trial.Iterations)
	assert.Equal(t, filepath.Join(cfg.OutputDir, "Example Figure"+court.ReportSuffix), res.ReportPath)

	assert.Equal(t, []string{"Founded 1 schools.", "Founded 2 schools."}, res.Record.PosData)
	assert.Equal(t, []string{"Suppressed 1 newspapers.", "Suppressed 2 newspapers."}, res.Record.NegData)
	assert.Equal(t, []string{"Both sides are documented."}, res.Record.Verdict)

	chat.mu.Lock()
	var sawReference bool
	for _, req := range chat.requests {
		if strings.HasPrefix(req, "ROLE: defense") && strings.Contains(req, "Example Figure: Example Figure achievements in the archives") {
			sawReference = true
		}
	}
	chat.mu.Unlock()
	assert.True(t, sawReference, "defense prompt should carry lookup references")

	entries, err := docket.List(cfg.OutputDir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "Example Figure", entries[0].Title)
	assert.Equal(t, "HC-2026-001", entries[0].Docket)
	assert.Equal(t, "16 October 2026", entries[0].Date)

	transcript := export.FromResult(res, time.Date(2026, time.October, 16, 11, 0, 0, 0, time.UTC))
	assert.Equal(t, "terminated-by-signal", transcript.Trial.State)
	assert.Contains(t, export.GenerateMermaid(res), "trial_loop: 2 iteration(s), terminated-by-signal")
}
