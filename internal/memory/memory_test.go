package memory

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return &Client{
		baseURL: srv.URL,
		userID:  "tester",
		http:    &http.Client{Timeout: time.Second},
	}
}

type item struct {
	agent string
	text  string
}

func memoriesJSON(items ...item) []byte {
	results := make([]memoryItem, 0, len(items))
	for i, it := range items {
		m := memoryItem{ID: string(rune('a' + i)), Memory: it.text}
		m.Metadata.Agent = it.agent
		results = append(results, m)
	}
	out, _ := json.Marshal(map[string]any{"results": results})
	return out
}

func TestRecallMergesAndDedupes(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/search":
			w.Write(memoriesJSON(item{"diet", "likes pizza"}, item{"diet", "works from home"}))
		case r.Method == http.MethodGet && r.URL.Path == "/memories":
			w.Write(memoriesJSON(item{"diet", "likes pizza"}, item{"diet", "sleeps late"}))
		default:
			http.NotFound(w, r)
		}
	})

	block := client.Recall(context.Background(), "dinner plans", "diet")
	assert.Contains(t, block, "## What I remember")
	assert.Contains(t, block, "- likes pizza")
	assert.Contains(t, block, "- works from home")
	assert.Contains(t, block, "- sleeps late")
	assert.Equal(t, 1, countOccurrences(block, "likes pizza"), "duplicates collapse")
}

func TestRecallScopedToAgent(t *testing.T) {
	mixed := memoriesJSON(
		item{"diet", "likes pizza"},
		item{"budget", "owes rent"},
		item{"default", "lives in berlin"},
	)
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write(mixed)
	})

	block := client.Recall(context.Background(), "anything", "diet")
	assert.Contains(t, block, "likes pizza")
	assert.NotContains(t, block, "owes rent", "other agents' memories stay out")
	assert.NotContains(t, block, "lives in berlin")

	block = client.Recall(context.Background(), "anything", "default")
	assert.Contains(t, block, "lives in berlin")
	assert.NotContains(t, block, "likes pizza")
}

func TestRecallOneFailedLegKeepsTheOther(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/search" {
			http.Error(w, "boom", http.StatusInternalServerError)
			return
		}
		w.Write(memoriesJSON(item{"diet", "sleeps late"}))
	})

	block := client.Recall(context.Background(), "anything", "diet")
	assert.Contains(t, block, "- sleeps late", "recent leg survives a failed search")
}

func TestRecallUnreachableServerIsSilent(t *testing.T) {
	client := &Client{
		baseURL: "http://127.0.0.1:1",
		userID:  "tester",
		http:    &http.Client{Timeout: 100 * time.Millisecond},
	}
	assert.Empty(t, client.Recall(context.Background(), "anything", "default"))
}

func TestRecallNilClient(t *testing.T) {
	var client *Client
	assert.Empty(t, client.Recall(context.Background(), "anything", "default"))
	assert.NoError(t, client.SaveExchange(context.Background(), "default", "q", "a"))
}

func TestSaveExchangeStampsAgentMetadata(t *testing.T) {
	var got map[string]any
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/memories", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusCreated)
	})

	require.NoError(t, client.SaveExchange(context.Background(), "diet", "what did I eat", "pizza"))
	assert.Equal(t, "tester", got["user_id"])
	msgs, ok := got["messages"].([]any)
	require.True(t, ok)
	assert.Len(t, msgs, 2)

	meta, ok := got["metadata"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "diet", meta["agent"])
	assert.Equal(t, "conversation", meta["type"])
	assert.Equal(t, time.Now().Format("2006-01-02"), meta["date"])
}

func countOccurrences(s, sub string) int {
	n := 0
	for i := 0; i+len(sub) <= len(s); i++ {
		if s[i:i+len(sub)] == sub {
			n++
		}
	}
	return n
}
