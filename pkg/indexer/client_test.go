package indexer_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/quantulabs/openrep/pkg/indexer"
)

// ── Stub server ─────────────────────────────────────────────────────────

func stubIndexerServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()

	mux.HandleFunc("/v1/agents/42/reputation", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Request-ID") == "" {
			http.Error(w, `{"error":"missing request id"}`, http.StatusBadRequest)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"agent_id":         42,
			"feedback_count":   7,
			"average_score":    86.5,
			"validation_count": 3,
			"validations_ok":   2,
			"last_activity":    time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
		})
	})

	mux.HandleFunc("/v1/agents/42/feedback", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("cursor") == "page2" {
			json.NewEncoder(w).Encode(map[string]any{
				"entries": []map[string]any{
					{"agent_id": 42, "client": "9xQe...", "score": 70, "slot": 100},
				},
			})
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"entries": []map[string]any{
				{"agent_id": 42, "client": "9xQe...", "score": 90, "tag": "translation", "slot": 200},
				{"agent_id": 42, "client": "3fTw...", "score": 85, "slot": 150},
			},
			"cursor": "page2",
		})
	})

	mux.HandleFunc("/v1/agents/404/reputation", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"unknown agent"}`, http.StatusNotFound)
	})

	mux.HandleFunc("/v1/agents/search", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("q") == "" {
			http.Error(w, `{"error":"missing query"}`, http.StatusBadRequest)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"agents": []map[string]any{
				{"agent_id": 42, "mint": "So11111111111111111111111111111111111111112", "average_score": 86.5},
			},
		})
	})

	return httptest.NewServer(mux)
}

func TestReputationSummary(t *testing.T) {
	srv := stubIndexerServer(t)
	defer srv.Close()
	c := indexer.New(srv.URL)

	summary, err := c.ReputationSummary(context.Background(), 42)
	if err != nil {
		t.Fatalf("ReputationSummary: %v", err)
	}
	if summary.FeedbackCount != 7 || summary.AverageScore != 86.5 {
		t.Fatalf("summary = %+v", summary)
	}
}

func TestReputationSummaryNotFound(t *testing.T) {
	srv := stubIndexerServer(t)
	defer srv.Close()
	c := indexer.New(srv.URL)

	_, err := c.ReputationSummary(context.Background(), 404)
	if !errors.Is(err, indexer.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestFeedbackHistoryPagination(t *testing.T) {
	srv := stubIndexerServer(t)
	defer srv.Close()
	c := indexer.New(srv.URL)

	page, err := c.FeedbackHistory(context.Background(), 42, 2, "")
	if err != nil {
		t.Fatalf("FeedbackHistory: %v", err)
	}
	if len(page.Entries) != 2 || page.Cursor != "page2" {
		t.Fatalf("first page = %+v", page)
	}
	if page.Entries[0].Score != 90 || page.Entries[0].Tag != "translation" {
		t.Fatalf("first entry = %+v", page.Entries[0])
	}

	next, err := c.FeedbackHistory(context.Background(), 42, 2, page.Cursor)
	if err != nil {
		t.Fatalf("FeedbackHistory (page 2): %v", err)
	}
	if len(next.Entries) != 1 || next.Cursor != "" {
		t.Fatalf("second page = %+v", next)
	}
}

func TestSearchAgents(t *testing.T) {
	srv := stubIndexerServer(t)
	defer srv.Close()
	c := indexer.New(srv.URL)

	agents, err := c.SearchAgents(context.Background(), "translator", 10)
	if err != nil {
		t.Fatalf("SearchAgents: %v", err)
	}
	if len(agents) != 1 || agents[0].AgentID != 42 {
		t.Fatalf("agents = %+v", agents)
	}
}
