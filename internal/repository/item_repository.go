package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"sentimentwatch/internal/model"
	"sentimentwatch/pkg/classify"

	sq "github.com/Masterminds/squirrel"
	"github.com/lib/pq"
)

const itemColumns = `id, url, title, snippet, source_type, subject, sentiment, sentiment_score,
	author, published_at, discovered_at, run_id, importance_score, take, image_url,
	likes, reshares, replies, views, quotes, bookmarks, engagement_fetched_at`

const uniqueViolation = "23505"

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// Official and company accounts never shown in the tweet lists.
var corporateAuthors = []string{
	"claudeai", "anthropicai", "openai", "openaidevs", "chatgpt", "openaieng",
	"cursor_ai", "code", "github", "googledeepmind", "googleai",
}

// Accounts excluded from use-case tweets on top of corporateAuthors.
var promoAuthors = []string{
	"sama", "gaborcselle", "gdb", "maboroshi", "supabase", "vibecodeapp", "amanrsanger",
}

var headToHeadKeywords = []string{
	"vs", "compar", "switch", "tried both", "tested", "same prompt",
	"head to head", "better than", "outperform", "benchmark",
}

var useCaseKeywords = []string{
	"built", "shipped", "created", "compiler", "workflow", "from scratch",
	"autonomous", "project", "my app", "made a", "i used", "just built", "minutes",
}

type ItemRepository struct {
	db *sql.DB
}

func NewItemRepository(db *sql.DB) *ItemRepository {
	return &ItemRepository{db: db}
}

// InsertItem stores item unless its id or url already exists. It reports
// whether a row was written.
func (r *ItemRepository) InsertItem(ctx context.Context, item *model.Item) (bool, error) {
	var id string
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO items(id, url, title, snippet, source_type, subject, author,
			published_at, discovered_at, run_id, image_url)
		VALUES($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT DO NOTHING
		RETURNING id
	`, item.ID, item.URL, item.Title, item.Snippet, item.SourceType, item.Subject, item.Author,
		item.PublishedAt, item.DiscoveredAt, item.RunID, item.ImageURL).Scan(&id)

	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return false, nil
	}

	if err != nil {
		return false, err
	}

	return true, nil
}

func (r *ItemRepository) ListWithoutEngagement(ctx context.Context, limit int) ([]model.Item, error) {
	return r.queryItems(ctx, `
		SELECT `+itemColumns+`
		FROM items
		WHERE source_type = $1 AND engagement_fetched_at IS NULL
		ORDER BY discovered_at DESC
		LIMIT $2
	`, classify.SourceSocial, limit)
}

// UpdateEngagement stores fetched counters. imageURL only fills an empty
// image_url.
func (r *ItemRepository) UpdateEngagement(ctx context.Context, id string, c model.EngagementCounts, imageURL string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE items SET likes = $1, reshares = $2, replies = $3, views = $4, quotes = $5, bookmarks = $6,
			engagement_fetched_at = NOW(),
			image_url = COALESCE(image_url, NULLIF($7, ''))
		WHERE id = $8
	`, c.Likes, c.Reshares, c.Replies, c.Views, c.Quotes, c.Bookmarks, imageURL, id)
	return err
}

func (r *ItemRepository) MarkEngagementChecked(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := r.db.ExecContext(ctx, `
		UPDATE items SET engagement_fetched_at = NOW() WHERE id = ANY($1)
	`, pq.Array(ids))
	return err
}

func (r *ItemRepository) UpdateImage(ctx context.Context, id, imageURL string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE items SET image_url = $1 WHERE id = $2
	`, imageURL, id)
	return err
}

func (r *ItemRepository) ListMissingImages(ctx context.Context, limit int) ([]model.Item, error) {
	return r.queryItems(ctx, `
		SELECT `+itemColumns+`
		FROM items
		WHERE source_type <> $1 AND (image_url IS NULL OR image_url = '')
		ORDER BY discovered_at DESC
		LIMIT $2
	`, classify.SourceSocial, limit)
}

func (r *ItemRepository) ListUnscored(ctx context.Context, limit int) ([]model.Item, error) {
	return r.queryItems(ctx, `
		SELECT `+itemColumns+`
		FROM items
		WHERE source_type = $1 AND snippet <> '' AND importance_score = 0
		ORDER BY discovered_at DESC
		LIMIT $2
	`, classify.SourceSocial, limit)
}

func (r *ItemRepository) UpdateImportance(ctx context.Context, id string, score int) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE items SET importance_score = $1 WHERE id = $2
	`, score, id)
	return err
}

func (r *ItemRepository) ListNeedingTakes(ctx context.Context, limit int) ([]model.Item, error) {
	return r.queryItems(ctx, `
		SELECT `+itemColumns+`
		FROM items
		WHERE source_type = $1 AND snippet <> ''
			AND importance_score >= 6 AND take IS NULL
			AND (views IS NULL OR views >= 5000)
		ORDER BY importance_score DESC
		LIMIT $2
	`, classify.SourceSocial, limit)
}

func (r *ItemRepository) UpdateTake(ctx context.Context, id, take string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE items SET take = $1 WHERE id = $2
	`, take, id)
	return err
}

func (r *ItemRepository) ListTopWithTakes(ctx context.Context, limit int) ([]model.Item, error) {
	return r.queryItems(ctx, `
		SELECT `+itemColumns+`
		FROM items
		WHERE source_type = $1 AND take IS NOT NULL
			AND (views >= 5000 OR likes >= 200)
		ORDER BY likes DESC NULLS LAST, importance_score DESC
		LIMIT $2
	`, classify.SourceSocial, limit)
}

// ListUnclassified returns items whose sentiment score has never been set.
func (r *ItemRepository) ListUnclassified(ctx context.Context, limit int) ([]model.Item, error) {
	return r.queryItems(ctx, `
		SELECT `+itemColumns+`
		FROM items
		WHERE sentiment_score IS NULL
		ORDER BY discovered_at DESC
		LIMIT $1
	`, limit)
}

func (r *ItemRepository) UpdateSentiment(ctx context.Context, id, sentiment string, score int) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE items SET sentiment = $1, sentiment_score = $2 WHERE id = $3
	`, sentiment, score, id)
	return err
}

func (r *ItemRepository) ListForSummary(ctx context.Context, limit int) ([]model.Item, error) {
	return r.queryItems(ctx, `
		SELECT `+itemColumns+`
		FROM items
		WHERE source_type = $1 AND snippet <> ''
		ORDER BY importance_score DESC, discovered_at DESC
		LIMIT $2
	`, classify.SourceSocial, limit)
}

func (r *ItemRepository) ListDisplayedTweets(ctx context.Context, limit int) ([]model.Item, error) {
	query, args, err := buildDisplayedTweetsQuery(limit).ToSql()
	if err != nil {
		return nil, err
	}
	return r.queryItems(ctx, query, args...)
}

func (r *ItemRepository) HeadToHead(ctx context.Context, limit int) ([]model.Item, error) {
	query, args, err := buildHeadToHeadQuery(limit).ToSql()
	if err != nil {
		return nil, err
	}
	return r.queryItems(ctx, query, args...)
}

func (r *ItemRepository) UseCases(ctx context.Context, subject string, limit int) ([]model.Item, error) {
	query, args, err := buildUseCaseQuery(subject, limit).ToSql()
	if err != nil {
		return nil, err
	}
	return r.queryItems(ctx, query, args...)
}

func (r *ItemRepository) GetFeed(ctx context.Context, q FeedQuery) ([]model.Item, error) {
	query, args, err := buildFeedQuery(q).ToSql()
	if err != nil {
		return nil, err
	}
	return r.queryItems(ctx, query, args...)
}

func (r *ItemRepository) CountFeed(ctx context.Context, q FeedQuery) (int, error) {
	query, args, err := buildFeedCountQuery(q).ToSql()
	if err != nil {
		return 0, err
	}

	var total int
	err = r.db.QueryRowContext(ctx, query, args...).Scan(&total)
	return total, err
}

// ImageURLsFor maps each stored url to its non-empty image_url.
func (r *ItemRepository) ImageURLsFor(ctx context.Context, urls []string) (map[string]string, error) {
	result := make(map[string]string)
	if len(urls) == 0 {
		return result, nil
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT url, image_url FROM items
		WHERE url = ANY($1) AND image_url IS NOT NULL AND image_url <> ''
	`, pq.Array(urls))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var url, image string
		if err := rows.Scan(&url, &image); err != nil {
			return nil, err
		}
		result[url] = image
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

// ResetScores clears importance and takes on social items so the next
// run scores them from scratch.
func (r *ItemRepository) ResetScores(ctx context.Context) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE items SET importance_score = 0, take = NULL WHERE source_type = $1
	`, classify.SourceSocial)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *ItemRepository) CountAll(ctx context.Context) (int, error) {
	var total int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM items`).Scan(&total)
	return total, err
}

func (r *ItemRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *ItemRepository) queryItems(ctx context.Context, query string, args ...any) ([]model.Item, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []model.Item
	for rows.Next() {
		var it model.Item
		err := rows.Scan(
			&it.ID, &it.URL, &it.Title, &it.Snippet, &it.SourceType, &it.Subject, &it.Sentiment, &it.SentimentScore,
			&it.Author, &it.PublishedAt, &it.DiscoveredAt, &it.RunID, &it.ImportanceScore, &it.Take, &it.ImageURL,
			&it.Likes, &it.Reshares, &it.Replies, &it.Views, &it.Quotes, &it.Bookmarks, &it.EngagementFetchedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		items = append(items, it)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return items, nil
}

const (
	FeedAll       = "all"
	FeedClaude    = "claude"
	FeedOpenAI    = "openai"
	FeedPolarized = "polarized"
)

type FeedQuery struct {
	Filter string
	Limit  int
	Offset int
	Since  *time.Time
}

// ParseFeedFilter maps unknown filters to FeedAll.
func ParseFeedFilter(s string) string {
	switch s {
	case FeedClaude, FeedOpenAI, FeedPolarized:
		return s
	}
	return FeedAll
}

func feedConditions(q FeedQuery) sq.And {
	var cond sq.And

	switch q.Filter {
	case FeedClaude:
		cond = append(cond, sq.Eq{"subject": []string{classify.SubjectClaude, classify.SubjectBoth}})
	case FeedOpenAI:
		cond = append(cond, sq.Eq{"subject": []string{classify.SubjectOpenAI, classify.SubjectBoth}})
	case FeedPolarized:
		cond = append(cond, sq.Or{sq.Lt{"sentiment_score": -50}, sq.Gt{"sentiment_score": 50}})
	}

	if q.Since != nil {
		cond = append(cond, sq.Gt{"discovered_at": *q.Since})
	}

	return cond
}

func buildFeedQuery(q FeedQuery) sq.SelectBuilder {
	b := psql.Select(itemColumns).From("items")

	if cond := feedConditions(q); len(cond) > 0 {
		b = b.Where(cond)
	}

	if q.Filter == FeedPolarized {
		b = b.OrderBy("ABS(sentiment_score) DESC")
	} else {
		b = b.OrderBy("discovered_at DESC")
	}

	return b.Limit(uint64(q.Limit)).Offset(uint64(q.Offset))
}

func buildFeedCountQuery(q FeedQuery) sq.SelectBuilder {
	b := psql.Select("COUNT(*)").From("items")
	if cond := feedConditions(q); len(cond) > 0 {
		b = b.Where(cond)
	}
	return b
}

func keywordMatch(column string, keywords []string) sq.Or {
	or := make(sq.Or, 0, len(keywords))
	for _, k := range keywords {
		or = append(or, sq.ILike{column: "%" + k + "%"})
	}
	return or
}

func socialWithSnippet() sq.SelectBuilder {
	return psql.Select(itemColumns).
		From("items").
		Where(sq.Eq{"source_type": classify.SourceSocial}).
		Where(sq.NotEq{"snippet": ""})
}

func buildDisplayedTweetsQuery(limit int) sq.SelectBuilder {
	return socialWithSnippet().
		Where(sq.Or{sq.GtOrEq{"views": 5000}, sq.GtOrEq{"likes": 200}}).
		Where(sq.NotEq{"LOWER(author)": corporateAuthors}).
		OrderBy("likes DESC NULLS LAST", "importance_score DESC").
		Limit(uint64(limit))
}

func buildHeadToHeadQuery(limit int) sq.SelectBuilder {
	return socialWithSnippet().
		Where(sq.Eq{"subject": classify.SubjectBoth}).
		Where(sq.Or{sq.GtOrEq{"likes": 40}, sq.GtOrEq{"views": 3000}}).
		Where(keywordMatch("snippet", headToHeadKeywords)).
		OrderBy("likes DESC NULLS LAST").
		Limit(uint64(limit))
}

func buildUseCaseQuery(subject string, limit int) sq.SelectBuilder {
	excluded := append(append([]string{}, corporateAuthors...), promoAuthors...)

	return socialWithSnippet().
		Where(sq.Eq{"subject": strings.ToLower(subject)}).
		Where(sq.Or{sq.GtOrEq{"likes": 50}, sq.GtOrEq{"views": 5000}}).
		Where(keywordMatch("snippet", useCaseKeywords)).
		Where(sq.NotEq{"LOWER(author)": excluded}).
		OrderBy("likes DESC NULLS LAST").
		Limit(uint64(limit))
}
