package engagement

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"sentimentwatch/pkg/classify"

	"golang.org/x/time/rate"
)

var ErrMissingAPIKey = errors.New("twitterapi.io key not set")

const (
	tweetsURL = "https://api.twitterapi.io/twitter/tweets"
	// MaxBatch is the most ids one lookup accepts.
	MaxBatch = 100
)

var statusPath = regexp.MustCompile(`/status(?:es)?/(\d+)`)

// Counts is the engagement snapshot for one tweet.
type Counts struct {
	Likes     int
	Reshares  int
	Replies   int
	Views     int
	Quotes    int
	Bookmarks int
	MediaURL  string
}

type Lookup interface {
	Lookup(ctx context.Context, tweetIDs []string) (map[string]Counts, error)
}

type TwitterAPIClient struct {
	apiKey     string
	httpClient *http.Client
	limiter    *rate.Limiter
}

func NewTwitterAPIClient(apiKey string) *TwitterAPIClient {
	return &TwitterAPIClient{
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		limiter:    rate.NewLimiter(rate.Every(200*time.Millisecond), 1),
	}
}

type apiMedia struct {
	MediaURLHTTPS string `json:"media_url_https"`
	Type          string `json:"type"`
}

type apiTweet struct {
	ID               string     `json:"id"`
	LikeCount        int        `json:"likeCount"`
	RetweetCount     int        `json:"retweetCount"`
	ReplyCount       int        `json:"replyCount"`
	QuoteCount       int        `json:"quoteCount"`
	ViewCount        int        `json:"viewCount"`
	BookmarkCount    int        `json:"bookmarkCount"`
	Media            []apiMedia `json:"media"`
	ExtendedEntities *struct {
		Media []apiMedia `json:"media"`
	} `json:"extendedEntities"`
}

type apiResponse struct {
	Tweets []apiTweet `json:"tweets"`
	Status string     `json:"status"`
}

// Lookup fetches counts for up to MaxBatch tweet ids. Ids the service
// does not know are absent from the returned map.
func (c *TwitterAPIClient) Lookup(ctx context.Context, tweetIDs []string) (map[string]Counts, error) {
	if c.apiKey == "" {
		return nil, ErrMissingAPIKey
	}
	if len(tweetIDs) == 0 {
		return map[string]Counts{}, nil
	}
	if len(tweetIDs) > MaxBatch {
		return nil, fmt.Errorf("twitterapi lookup: %d ids exceeds batch size %d", len(tweetIDs), MaxBatch)
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("twitterapi rate limiter: %w", err)
	}

	endpoint := tweetsURL + "?" + url.Values{"tweet_ids": {strings.Join(tweetIDs, ",")}}.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("twitterapi request: %w", err)
	}
	req.Header.Set("X-API-Key", c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("twitterapi fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("twitterapi responded %d: %s", resp.StatusCode, bytes.TrimSpace(msg))
	}

	var raw apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("twitterapi decode: %w", err)
	}

	out := make(map[string]Counts, len(raw.Tweets))
	for _, t := range raw.Tweets {
		out[t.ID] = Counts{
			Likes:     t.LikeCount,
			Reshares:  t.RetweetCount,
			Replies:   t.ReplyCount,
			Views:     t.ViewCount,
			Quotes:    t.QuoteCount,
			Bookmarks: t.BookmarkCount,
			MediaURL:  firstMediaURL(t),
		}
	}
	return out, nil
}

func firstMediaURL(t apiTweet) string {
	media := t.Media
	if len(media) == 0 && t.ExtendedEntities != nil {
		media = t.ExtendedEntities.Media
	}
	for _, m := range media {
		if m.MediaURLHTTPS != "" {
			return m.MediaURLHTTPS
		}
	}
	return ""
}

// ExtractTweetID returns the numeric status id of a twitter.com / x.com URL.
func ExtractTweetID(raw string) (string, bool) {
	if !classify.IsTwitterHost(classify.Hostname(raw)) {
		return "", false
	}

	normalized := strings.TrimSpace(raw)
	if !strings.HasPrefix(strings.ToLower(normalized), "http") {
		normalized = "https://" + normalized
	}
	u, err := url.Parse(normalized)
	if err != nil {
		return "", false
	}

	m := statusPath.FindStringSubmatch(u.Path)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// FormatCount renders 1234 as "1.2k" and 2500000 as "2.5M".
func FormatCount(n int) string {
	switch {
	case n >= 1_000_000:
		return fmt.Sprintf("%.1fM", float64(n)/1_000_000)
	case n >= 1_000:
		return fmt.Sprintf("%.1fk", float64(n)/1_000)
	default:
		return fmt.Sprintf("%d", n)
	}
}

// Summary renders the counters that matter to a reader, e.g.
// "1.2k likes, 80 RTs, 45.0k views". Nil counters are skipped.
func Summary(likes, reshares, views *int) string {
	var parts []string
	if likes != nil && *likes > 0 {
		parts = append(parts, FormatCount(*likes)+" likes")
	}
	if reshares != nil && *reshares > 0 {
		parts = append(parts, FormatCount(*reshares)+" RTs")
	}
	if views != nil && *views > 0 {
		parts = append(parts, FormatCount(*views)+" views")
	}
	return strings.Join(parts, ", ")
}
