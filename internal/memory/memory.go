// Package memory talks to a self-hosted mem0 server. Before each Claude
// call the gateway fetches semantically relevant memories plus the most
// recent ones, merges them into a context block; after a response the
// exchange is written back for future recall. Memories are scoped per
// agent through metadata so agents never see each other's pool.
package memory

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
)

// Client is a thin mem0 REST client. Nil-safe: a nil client recalls
// nothing and saves nothing, so the gateway works without a memory
// server.
type Client struct {
	baseURL string
	userID  string
	http    *http.Client
}

// NewFromEnv returns nil when MEM0_BASE_URL is unset.
func NewFromEnv() *Client {
	base := strings.TrimRight(os.Getenv("MEM0_BASE_URL"), "/")
	if base == "" {
		return nil
	}
	userID := os.Getenv("MEM0_USER_ID")
	if userID == "" {
		userID = "voxgate"
	}
	return &Client{
		baseURL: base,
		userID:  userID,
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

type memoryItem struct {
	ID       string `json:"id"`
	Memory   string `json:"memory"`
	Metadata struct {
		Agent string `json:"agent"`
	} `json:"metadata"`
}

// Recall fetches memories relevant to the query in parallel with the
// most recent ones, keeps only the given agent's pool, deduplicates, and
// renders a markdown block ready to prepend to the prompt. Each leg
// degrades to empty on its own failure; the other still contributes.
// Empty string when nothing is known or the server is unreachable.
func (c *Client) Recall(ctx context.Context, query, agent string) string {
	if c == nil {
		return ""
	}

	var relevant, recent []memoryItem
	g := new(errgroup.Group)
	g.Go(func() error {
		relevant = c.search(ctx, query, agent, 5)
		return nil
	})
	g.Go(func() error {
		recent = c.recent(ctx, agent, 3)
		return nil
	})
	g.Wait()

	seen := make(map[string]bool)
	var lines []string
	for _, item := range append(relevant, recent...) {
		text := strings.TrimSpace(item.Memory)
		if text == "" || seen[text] {
			continue
		}
		seen[text] = true
		lines = append(lines, "- "+text)
	}
	if len(lines) == 0 {
		return ""
	}
	return "## What I remember\n\n" + strings.Join(lines, "\n") + "\n"
}

func (c *Client) search(ctx context.Context, query, agent string, limit int) []memoryItem {
	body := map[string]any{
		"query":   query,
		"user_id": c.userID,
		"limit":   limit,
	}
	var result struct {
		Results []memoryItem `json:"results"`
	}
	if err := c.post(ctx, "/search", body, &result); err != nil {
		return nil
	}
	return filterByAgent(result.Results, agent, limit)
}

func (c *Client) recent(ctx context.Context, agent string, limit int) []memoryItem {
	// Over-fetch: the server cannot filter by metadata, we do.
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		fmt.Sprintf("%s/memories?user_id=%s&limit=%d", c.baseURL, c.userID, limit*3), nil)
	if err != nil {
		return nil
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil
	}
	var result struct {
		Results []memoryItem `json:"results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil
	}
	return filterByAgent(result.Results, agent, limit)
}

func filterByAgent(items []memoryItem, agent string, limit int) []memoryItem {
	var out []memoryItem
	for _, item := range items {
		if item.Metadata.Agent != agent {
			continue
		}
		out = append(out, item)
		if len(out) == limit {
			break
		}
	}
	return out
}

// SaveExchange records one user/assistant round trip into the agent's
// pool. Errors are returned for logging but never block the voice
// response.
func (c *Client) SaveExchange(ctx context.Context, agent, userText, assistantText string) error {
	if c == nil {
		return nil
	}
	body := map[string]any{
		"messages": []map[string]string{
			{"role": "user", "content": userText},
			{"role": "assistant", "content": assistantText},
		},
		"user_id": c.userID,
		"metadata": map[string]string{
			"agent": agent,
			"type":  "conversation",
			"date":  time.Now().Format("2006-01-02"),
		},
	}
	return c.post(ctx, "/memories", body, nil)
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("mem0 %s: status %d", path, resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
