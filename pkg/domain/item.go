package domain

import (
	"strings"
	"time"
)

// MaxTitleLength is the limit of the stored title, in characters
const MaxTitleLength = 255

// NewsItem represents a persisted news article
type NewsItem struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Description *string   `json:"description"`
	PublishedAt time.Time `json:"published_at"`
}

// TrimTitle cuts the title to MaxTitleLength characters
func TrimTitle(title string) string {
	title = strings.TrimSpace(title)
	if r := []rune(title); len(r) > MaxTitleLength {
		return string(r[:MaxTitleLength])
	}
	return title
}
