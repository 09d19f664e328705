package pipeline

import (
	"strings"
	"time"

	"sentimentwatch/pkg/search"
)

const categoryTweet = "tweet"

var (
	twitterDomains = []string{"twitter.com", "x.com"}
	redditDomains  = []string{"reddit.com", "old.reddit.com"}
	hnDomains      = []string{"news.ycombinator.com"}
)

type querySpec struct {
	text       string
	numResults int
	category   string
	domains    []string
}

// battery is the fixed discovery query set, in the order results are kept
// when two queries return the same URL.
var battery = []querySpec{
	// Claude / Anthropic
	{text: "Claude Opus model", numResults: 30, category: categoryTweet},
	{text: "Claude Sonnet impressions", numResults: 30, category: categoryTweet},
	{text: "Claude coding benchmark performance", numResults: 25, category: categoryTweet},
	{text: "Claude vs GPT comparison", numResults: 25, category: categoryTweet},
	{text: "Claude Code agentic", numResults: 25, category: categoryTweet},
	{text: "Anthropic Claude new model today", numResults: 25, category: categoryTweet},
	{text: "Claude best model ever", numResults: 20, category: categoryTweet},
	{text: "Claude disappointing mid overrated", numResults: 20, category: categoryTweet},
	{text: "Claude upgrade experience developer", numResults: 20, category: categoryTweet},
	{text: "Anthropic Claude benchmark SWE-bench", numResults: 20, category: categoryTweet},
	{text: "Claude coding agent terminal", numResults: 20, category: categoryTweet},
	{text: "Claude reasoning thinking model", numResults: 15, category: categoryTweet},
	{text: "Anthropic Claude beats OpenAI", numResults: 15, category: categoryTweet},
	{text: "Claude Code review first impressions engineer", numResults: 15, category: categoryTweet},

	// OpenAI
	{text: "OpenAI Codex release agent", numResults: 30, category: categoryTweet},
	{text: "Codex coding agent cloud", numResults: 25, category: categoryTweet},
	{text: "OpenAI Codex impressions review", numResults: 25, category: categoryTweet},
	{text: "Codex vs Claude Code comparison", numResults: 25, category: categoryTweet},
	{text: "OpenAI Codex benchmark performance", numResults: 20, category: categoryTweet},
	{text: "GPT o3 o4-mini model", numResults: 20, category: categoryTweet},
	{text: "OpenAI Codex disappointing underwhelming", numResults: 20, category: categoryTweet},
	{text: "OpenAI Codex amazing impressive", numResults: 20, category: categoryTweet},
	{text: "Codex agent sandbox environment coding", numResults: 15, category: categoryTweet},
	{text: "OpenAI developer tools API launch", numResults: 15, category: categoryTweet},
	{text: "Sam Altman Codex announcement", numResults: 15, category: categoryTweet},

	// head to head
	{text: "Claude vs Codex which is better", numResults: 25, category: categoryTweet},
	{text: "Claude vs ChatGPT coding", numResults: 20, category: categoryTweet},
	{text: "Claude Code vs Cursor vs Copilot", numResults: 20, category: categoryTweet},
	{text: "Anthropic vs OpenAI AI models", numResults: 15, category: categoryTweet},
	{text: "best AI coding model right now", numResults: 15, category: categoryTweet},

	// the tweet category misses some posts that a domain filter finds
	{text: "Claude Opus Anthropic", numResults: 20, domains: twitterDomains},
	{text: "Codex OpenAI agent", numResults: 20, domains: twitterDomains},
	{text: "Claude Code developer", numResults: 15, domains: twitterDomains},
	{text: "AI coding model comparison today", numResults: 15, domains: twitterDomains},

	{text: "Claude Opus review impressions", numResults: 20, domains: redditDomains},
	{text: "OpenAI Codex review impressions agent", numResults: 20, domains: redditDomains},
	{text: "Claude Code vs Cursor vs Copilot", numResults: 15, domains: redditDomains},
	{text: "Codex vs Claude Code comparison", numResults: 15, domains: redditDomains},
	{text: "best AI coding model 2025", numResults: 10, domains: redditDomains},
	{text: "Anthropic OpenAI announcement today", numResults: 10, domains: redditDomains},

	{text: "Claude Opus Anthropic", numResults: 15, domains: hnDomains},
	{text: "OpenAI Codex agent coding", numResults: 15, domains: hnDomains},

	{text: "Claude Opus release review technical analysis", numResults: 15},
	{text: "OpenAI Codex launch review hands-on developer", numResults: 15},
	{text: "Anthropic Claude Code developer tools launch", numResults: 10},
	{text: "Claude vs OpenAI comparison benchmark analysis", numResults: 10},
}

// Low-quality aggregators and SEO farms, matched as substrings of the
// lowercased URL.
var denylist = []string{
	"composio.dev",
	"toolify.ai",
	"theresanaiforthat.com",
	"aimodels.fyi",
	"gptstore.ai",
	"opentools.ai",
	"aiparabellum.com",
	"marktechpost.com",
	"analyticsinsight.net",
	"decrypt.co",
	"yahoo.com/lifestyle",
	"medium.com/@",
	"aiskill.market",
	"claudefa.st",
	"datacamp.com",
	"geeksforgeeks.org",
	"zapier.com/blog",
}

func isDenied(rawURL string) bool {
	lower := strings.ToLower(rawURL)
	for _, d := range denylist {
		if strings.Contains(lower, d) {
			return true
		}
	}
	return false
}

// startOfYesterday is the lower publish bound for every discovery query.
func startOfYesterday(now time.Time) time.Time {
	u := now.UTC()
	return time.Date(u.Year(), u.Month(), u.Day()-1, 0, 0, 0, 0, time.UTC)
}

func (q querySpec) toQuery(since time.Time) search.Query {
	return search.Query{
		Text:           q.text,
		NumResults:     q.numResults,
		Category:       q.category,
		IncludeDomains: q.domains,
		StartPublished: since,
	}
}
