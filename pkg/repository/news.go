package repository

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/umputun/newspulse/pkg/domain"
	"github.com/umputun/newspulse/pkg/pool"
)

// DayLayout is the calendar date format used by queries and the API
const DayLayout = "2006-01-02"

// timestamps are stored as local wall clock, so DATE() gives the same day in every dialect
const storeLayout = "2006-01-02 15:04:05"

// NewsRepository handles news table operations
type NewsRepository struct {
	db Executor
}

// NewNewsRepository creates a news repository over the pool
func NewNewsRepository(db Executor) *NewsRepository {
	return &NewsRepository{db: db}
}

// Insert stores a news item. Title is required and trimmed to the column size, description is optional.
// Returns the number of inserted rows.
func (r *NewsRepository) Insert(ctx context.Context, title string, description *string, published time.Time) (int64, error) {
	title = domain.TrimTitle(title)
	if title == "" {
		return 0, ErrEmptyTitle
	}
	if published.IsZero() {
		published = time.Now()
	}

	var desc any
	if description != nil {
		desc = *description
	}

	res, err := r.db.Execute(ctx, "INSERT INTO news (title, description, published_at) VALUES (?, ?, ?)",
		[]any{title, desc, published.Local().Format(storeLayout)}, pool.ModeExec)
	if err != nil {
		return 0, fmt.Errorf("insert news: %w", err)
	}
	if res.Err != nil {
		return 0, fmt.Errorf("insert news: %w", res.Err)
	}
	return res.Affected, nil
}

// ByDate returns items published on the given calendar day, newest first
func (r *NewsRepository) ByDate(ctx context.Context, day time.Time) ([]domain.NewsItem, error) {
	query := `
		SELECT id, title, description, published_at
		FROM news
		WHERE DATE(published_at) = ?
		ORDER BY published_at DESC, id DESC
	`
	res, err := r.db.Execute(ctx, query, []any{day.Format(DayLayout)}, pool.ModeFetch)
	if err != nil {
		return nil, fmt.Errorf("get news by date: %w", err)
	}
	if res.Err != nil {
		return nil, fmt.Errorf("get news by date: %w", res.Err)
	}

	items := make([]domain.NewsItem, 0, len(res.Rows))
	for _, row := range res.Rows {
		item, err := toNewsItem(row)
		if err != nil {
			return nil, fmt.Errorf("convert news row: %w", err)
		}
		items = append(items, item)
	}
	return items, nil
}

// DeleteByDate removes all items published on the given calendar day, the time part is ignored
func (r *NewsRepository) DeleteByDate(ctx context.Context, day time.Time) (int64, error) {
	res, err := r.db.Execute(ctx, "DELETE FROM news WHERE DATE(published_at) = ?",
		[]any{day.Format(DayLayout)}, pool.ModeExec)
	if err != nil {
		return 0, fmt.Errorf("delete news by date: %w", err)
	}
	if res.Err != nil {
		return 0, fmt.Errorf("delete news by date: %w", res.Err)
	}
	return res.Affected, nil
}

// Count returns the total number of stored items
func (r *NewsRepository) Count(ctx context.Context) (int64, error) {
	res, err := r.db.Execute(ctx, "SELECT COUNT(*) AS cnt FROM news", nil, pool.ModeFetch)
	if err != nil {
		return 0, fmt.Errorf("count news: %w", err)
	}
	if res.Err != nil {
		return 0, fmt.Errorf("count news: %w", res.Err)
	}
	if len(res.Rows) == 0 {
		return 0, nil
	}
	return asInt64(res.Rows[0]["cnt"])
}

// toNewsItem converts a generic row, drivers differ in the types they return
func toNewsItem(row pool.Row) (domain.NewsItem, error) {
	id, err := asInt64(row["id"])
	if err != nil {
		return domain.NewsItem{}, fmt.Errorf("id: %w", err)
	}
	published, err := asTime(row["published_at"])
	if err != nil {
		return domain.NewsItem{}, fmt.Errorf("published_at: %w", err)
	}

	item := domain.NewsItem{ID: id, Title: asString(row["title"]), PublishedAt: published}
	if v := row["description"]; v != nil {
		desc := asString(v)
		item.Description = &desc
	}
	return item, nil
}

func asInt64(v any) (int64, error) {
	switch val := v.(type) {
	case int64:
		return val, nil
	case int32:
		return int64(val), nil
	case int:
		return int64(val), nil
	case uint64:
		return int64(val), nil //nolint:gosec // ids and counters fit
	case float64:
		return int64(val), nil
	case string:
		return strconv.ParseInt(val, 10, 64)
	case []byte:
		return strconv.ParseInt(string(val), 10, 64)
	default:
		return 0, fmt.Errorf("unexpected type %T", v)
	}
}

func asString(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case []byte:
		return string(val)
	default:
		return fmt.Sprint(val)
	}
}

var timeLayouts = []string{
	storeLayout,
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.999999999-07:00",
	time.RFC3339Nano,
}

// asTime accepts driver time values and text timestamps, text without zone is local time
func asTime(v any) (time.Time, error) {
	switch val := v.(type) {
	case time.Time:
		return val, nil
	case string:
		return parseTime(val)
	case []byte:
		return parseTime(string(val))
	default:
		return time.Time{}, fmt.Errorf("unexpected type %T", v)
	}
}

func parseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timeLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("can't parse time %q", s)
}
