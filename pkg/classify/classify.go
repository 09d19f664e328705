package classify

import (
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"strings"
)

const (
	SourceSocial = "social"
	SourceForum  = "forum"
	SourceNews   = "news"
	SourceBlog   = "blog"

	SubjectClaude = "claude"
	SubjectOpenAI = "openai"
	SubjectBoth   = "both"
)

var claudeKeywords = []string{
	"claude",
	"anthropic",
	"sonnet",
	"opus",
	"haiku",
	"constitutional ai",
	"claude code",
}

var openaiKeywords = []string{
	"openai",
	"chatgpt",
	"gpt-4",
	"gpt-5",
	"gpt4",
	"gpt5",
	"gpt-4.1",
	"dall-e",
	"dalle",
	"sora",
	"sam altman",
	"o1",
	"o3",
	"o4",
	"codex",
}

var forumHosts = []string{
	"reddit.com",
	"news.ycombinator.com",
	"lobste.rs",
	"community.openai.com",
	"community.anthropic.com",
	"discourse",
	"forum",
}

var newsHosts = []string{
	"techcrunch.com",
	"theverge.com",
	"arstechnica.com",
	"reuters.com",
	"bloomberg.com",
	"cnbc.com",
	"bbc.",
	"nytimes.com",
	"washingtonpost.com",
	"wired.com",
	"cnn.com",
	"zdnet.com",
	"venturebeat.com",
	"semafor.com",
	"9to5mac.com",
	"9to5google.com",
	"engadget.com",
	"tomsguide.com",
	"businessinsider.com",
	"fortune.com",
	"theinformation.com",
}

// NormalizeURL is the dedup key for a discovered URL.
func NormalizeURL(raw string) string {
	n := strings.ToLower(strings.TrimSpace(raw))
	return strings.TrimRight(n, "/")
}

// HashURL returns the hex sha256 of the normalized URL. It is the item id.
func HashURL(raw string) string {
	sum := sha256.Sum256([]byte(NormalizeURL(raw)))
	return hex.EncodeToString(sum[:])
}

// Hostname parses raw (adding a scheme when missing) and returns the
// lowercased host without a leading "www.". Unparsable input yields "".
func Hostname(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if !strings.HasPrefix(strings.ToLower(raw), "http") {
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
}

// Domain is the display form of a URL's host.
func Domain(raw string) string {
	return Hostname(raw)
}

func IsTwitterHost(host string) bool {
	for _, h := range []string{"twitter.com", "x.com"} {
		if host == h || strings.HasSuffix(host, "."+h) {
			return true
		}
	}
	return strings.Contains(host, "nitter")
}

func SourceType(raw string) string {
	host := Hostname(raw)
	if host == "" {
		return SourceBlog
	}

	if IsTwitterHost(host) {
		return SourceSocial
	}
	if containsAny(host, forumHosts) {
		return SourceForum
	}
	if containsAny(host, newsHosts) {
		return SourceNews
	}
	return SourceBlog
}

// Subject labels text as claude, openai or both. Text matching neither
// keyword list is also labelled both.
func Subject(title, snippet string) string {
	text := strings.ToLower(title + " " + snippet)
	hasClaude := containsAny(text, claudeKeywords)
	hasOpenAI := containsAny(text, openaiKeywords)

	switch {
	case hasClaude && !hasOpenAI:
		return SubjectClaude
	case hasOpenAI && !hasClaude:
		return SubjectOpenAI
	default:
		return SubjectBoth
	}
}

// Mentions reports whether text names either tracked subject.
func Mentions(text string) bool {
	text = strings.ToLower(text)
	return containsAny(text, claudeKeywords) || containsAny(text, openaiKeywords)
}

// Truncate cuts s to max bytes on a rune boundary and marks the cut.
func Truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return Prefix(s, max) + "..."
}

// Prefix returns at most max bytes of s without splitting a rune.
func Prefix(s string, max int) string {
	if max <= 0 {
		return ""
	}
	if len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !isRuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

// CleanHandle strips leading @ characters from an author handle.
func CleanHandle(author string) string {
	return strings.TrimLeft(strings.TrimSpace(author), "@")
}

func isRuneStart(b byte) bool {
	return b&0xC0 != 0x80
}

func containsAny(s string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}
