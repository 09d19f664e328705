package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"sentimentwatch/pkg/classify"
	"sentimentwatch/pkg/llm"
	"sentimentwatch/pkg/search"

	"golang.org/x/sync/errgroup"
)

const (
	EventContent        = "content"
	EventSearchStart    = "search_start"
	EventSearchComplete = "search_complete"
	EventDone           = "done"
	EventError          = "error"
)

const (
	maxHistory        = 20
	maxSearches       = 3
	defaultNumResults = 10
	minNumResults     = 3
	maxNumResults     = 20
	searchWindow      = 336 * time.Hour
	resultTextLen     = 1500

	searchToolName = "web_search"
)

const systemPrompt = `You are an AI sentiment analyst specializing in the Claude/Anthropic vs OpenAI/ChatGPT landscape. You help users understand community sentiment, opinions, and trends about these AI companies and their products.

When answering questions:
- Be specific and reference actual data points and sources when available
- Compare and contrast Claude and OpenAI when relevant
- Stay scoped to AI topics (Claude, Anthropic, OpenAI, ChatGPT, GPT, coding assistants, AI agents, etc.)
- If the question is off-topic, politely redirect to AI sentiment topics
- Use a confident, editorial tone, like a Bloomberg tech analyst

If you use web search results, cite your sources with [Title](URL) format.`

var searchTool = llm.Tool{
	Name:        searchToolName,
	Description: "Search the web for recent information about AI companies, models, and sentiment. Use for any question requiring current data.",
	Parameters: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"searches": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"query": map[string]any{
							"type":        "string",
							"description": "Natural language search query about AI topics",
						},
						"numResults": map[string]any{
							"type":        "number",
							"description": "Number of results (5-10)",
							"default":     defaultNumResults,
						},
					},
					"required": []string{"query"},
				},
				"maxItems": maxSearches,
			},
		},
		"required": []string{"searches"},
	},
}

type Request struct {
	Message string            `json:"message"`
	History []llm.ChatMessage `json:"history"`
}

// Emit sends one named event to the client. An error stops the exchange.
type Emit func(event string, data any) error

type payload = map[string]any

type Source struct {
	Title string `json:"title"`
	URL   string `json:"url"`
	Date  string `json:"date"`
}

type SearchSummary struct {
	Query   string   `json:"query"`
	Sources []Source `json:"sources"`
}

type searchRequest struct {
	Query      string  `json:"query"`
	NumResults float64 `json:"numResults"`
}

type searchOutcome struct {
	query   string
	results []search.Result
}

type Assistant struct {
	model    llm.ChatModel
	searcher search.Searcher
	now      func() time.Time
}

func NewAssistant(model llm.ChatModel, searcher search.Searcher) *Assistant {
	return &Assistant{model: model, searcher: searcher, now: time.Now}
}

// Respond answers one user message, streaming events through emit. Model
// failures are reported to the client as an error event; the returned
// error is only non-nil when emit itself failed.
func (a *Assistant) Respond(ctx context.Context, req Request, emit Emit) error {
	session := a.model.NewSession(systemPrompt, recentHistory(req.History), req.Message, []llm.Tool{searchTool})

	onDelta := func(delta string) error {
		return emit(EventContent, payload{"content": delta})
	}

	calls, err := session.Stream(ctx, true, onDelta)
	if err != nil {
		return a.fail(ctx, emit, err)
	}

	if len(calls) == 0 {
		return emit(EventDone, payload{"exaUsed": false})
	}

	var searches []searchRequest
	for _, call := range calls {
		if call.Name != searchToolName {
			continue
		}
		searches = append(searches, parseSearches(call.Arguments)...)
	}
	searches = searches[:min(maxSearches, len(searches))]

	if len(searches) == 0 {
		return emit(EventDone, payload{"exaUsed": false})
	}

	queries := make([]string, len(searches))
	for i, s := range searches {
		queries[i] = s.Query
	}
	if err := emit(EventSearchStart, payload{"queries": queries}); err != nil {
		return err
	}

	outcomes := a.runSearches(ctx, searches)

	total := 0
	summaries := make([]SearchSummary, len(outcomes))
	for i, o := range outcomes {
		total += len(o.results)
		summaries[i] = SearchSummary{Query: o.query, Sources: make([]Source, 0, len(o.results))}
		for _, r := range o.results {
			summaries[i].Sources = append(summaries[i].Sources, Source{Title: r.Title, URL: r.URL, Date: r.PublishedDate})
		}
	}

	if err := emit(EventSearchComplete, payload{"totalSources": total, "searches": summaries}); err != nil {
		return err
	}

	resultsText := formatResults(outcomes)
	for _, call := range calls {
		session.AddToolResult(call.ID, resultsText)
	}

	if _, err := session.Stream(ctx, false, onDelta); err != nil {
		return a.fail(ctx, emit, err)
	}

	return emit(EventDone, payload{"exaUsed": true, "totalSources": total})
}

func (a *Assistant) fail(ctx context.Context, emit Emit, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	slog.Error("chat model error", "error", err)
	return emit(EventError, payload{"error": err.Error()})
}

// runSearches runs every search concurrently. A failed search yields no
// results rather than failing the exchange.
func (a *Assistant) runSearches(ctx context.Context, searches []searchRequest) []searchOutcome {
	outcomes := make([]searchOutcome, len(searches))
	since := a.now().Add(-searchWindow)

	var g errgroup.Group
	for i, s := range searches {
		outcomes[i].query = s.Query
		g.Go(func() error {
			results, err := a.searcher.Search(ctx, search.Query{
				Text:           s.Query,
				NumResults:     clampResults(s.NumResults),
				StartPublished: since,
			})
			if err != nil {
				slog.Warn("chat search failed", "query", s.Query, "error", err)
				return nil
			}
			for j := range results {
				results[j].Text = classify.Prefix(results[j].Text, resultTextLen)
			}
			outcomes[i].results = results
			return nil
		})
	}
	g.Wait()

	return outcomes
}

func recentHistory(history []llm.ChatMessage) []llm.ChatMessage {
	if len(history) > maxHistory {
		history = history[len(history)-maxHistory:]
	}
	out := make([]llm.ChatMessage, 0, len(history))
	for _, m := range history {
		if m.Role == llm.RoleUser || m.Role == llm.RoleAssistant {
			out = append(out, m)
		}
	}
	return out
}

// parseSearches accepts {"searches":[...]}, {"searches":{...}} or a bare
// {"query":...}. Blank queries are dropped; malformed arguments yield none.
func parseSearches(arguments string) []searchRequest {
	var args struct {
		Searches   json.RawMessage `json:"searches"`
		Query      string          `json:"query"`
		NumResults float64         `json:"numResults"`
	}
	if err := json.Unmarshal([]byte(arguments), &args); err != nil {
		return nil
	}

	var list []searchRequest
	raw := bytes.TrimSpace(args.Searches)
	switch {
	case bytes.HasPrefix(raw, []byte("[")):
		if err := json.Unmarshal(raw, &list); err != nil {
			return nil
		}
	case bytes.HasPrefix(raw, []byte("{")):
		var one searchRequest
		if err := json.Unmarshal(raw, &one); err != nil {
			return nil
		}
		list = []searchRequest{one}
	case args.Query != "":
		list = []searchRequest{{Query: args.Query, NumResults: args.NumResults}}
	}

	out := list[:0]
	for _, s := range list {
		s.Query = strings.TrimSpace(s.Query)
		if s.Query != "" {
			out = append(out, s)
		}
	}
	return out
}

func clampResults(n float64) int {
	if n <= 0 {
		return defaultNumResults
	}
	return max(minNumResults, min(maxNumResults, int(n)))
}

func formatResults(outcomes []searchOutcome) string {
	blocks := make([]string, 0, len(outcomes))
	for _, o := range outcomes {
		if len(o.results) == 0 {
			blocks = append(blocks, fmt.Sprintf("[%s]\nNo results found.", o.query))
			continue
		}
		lines := make([]string, 0, len(o.results))
		for _, r := range o.results {
			date := ""
			if r.PublishedDate != "" {
				date = " | " + classify.Prefix(r.PublishedDate, 10)
			}
			lines = append(lines, fmt.Sprintf("- %s%s\n  %s\n  %s", r.Title, date, r.URL, r.Text))
		}
		blocks = append(blocks, fmt.Sprintf("[%s]\n%s", o.query, strings.Join(lines, "\n")))
	}
	return strings.Join(blocks, "\n\n")
}
