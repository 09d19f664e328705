package classify

import (
	"testing"

	"github.com/go-playground/assert/v2"
)

func TestHashURLNormalizes(t *testing.T) {
	a := HashURL("https://x.com/karpathy/status/1")
	b := HashURL("  HTTPS://X.com/karpathy/status/1/ ")
	c := HashURL("https://x.com/karpathy/status/2")

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Equal(t, 64, len(a))
}

func TestSourceType(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{"https://x.com/sama/status/123", SourceSocial},
		{"twitter.com/sama/status/123", SourceSocial},
		{"https://mobile.twitter.com/sama", SourceSocial},
		{"https://nitter.net/sama", SourceSocial},
		{"https://www.reddit.com/r/ClaudeAI/comments/abc", SourceForum},
		{"https://news.ycombinator.com/item?id=1", SourceForum},
		{"https://community.openai.com/t/topic", SourceForum},
		{"https://techcrunch.com/2026/01/01/story", SourceNews},
		{"https://www.bbc.co.uk/news/tech", SourceNews},
		{"https://dropbox.com/blog/post", SourceBlog},
		{"https://simonwillison.net/2026/Jan/1/", SourceBlog},
		{"", SourceBlog},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			assert.Equal(t, tt.want, SourceType(tt.url))
		})
	}
}

func TestSubject(t *testing.T) {
	tests := []struct {
		name    string
		title   string
		snippet string
		want    string
	}{
		{"claude only", "Claude Code shipped", "", SubjectClaude},
		{"openai only", "", "ChatGPT got a new voice", SubjectOpenAI},
		{"both", "Opus vs Codex", "", SubjectBoth},
		{"neither", "weather report", "sunny", SubjectBoth},
		{"case insensitive", "ANTHROPIC raises", "", SubjectClaude},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Subject(tt.title, tt.snippet))
		})
	}
}

func TestMentions(t *testing.T) {
	assert.Equal(t, true, Mentions("OpenAI signs a deal"))
	assert.Equal(t, false, Mentions("Fed holds rates steady"))
}

func TestDomain(t *testing.T) {
	assert.Equal(t, "techcrunch.com", Domain("https://www.techcrunch.com/2025/a"))
	assert.Equal(t, "x.com", Domain("x.com/karpathy/status/1"))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", Truncate("short", 10))
	assert.Equal(t, "abcde...", Truncate("abcdefgh", 5))
	// "é" is two bytes; the cut must not split it.
	assert.Equal(t, "a...", Truncate("aéb", 2))
}

func TestCleanHandle(t *testing.T) {
	assert.Equal(t, "karpathy", CleanHandle("@@karpathy"))
	assert.Equal(t, "sama", CleanHandle("sama"))
}
