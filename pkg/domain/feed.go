package domain

import (
	"strings"
	"time"
)

// Article represents a single entry returned by a feed provider
type Article struct {
	Title       string
	Description *string
	URL         string
	Source      string
	Published   time.Time
}

// HasTitle reports whether the article carries a usable title, the only required field
func (a Article) HasTitle() bool {
	return strings.TrimSpace(a.Title) != ""
}
