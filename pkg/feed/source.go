// Package feed implements clients of the news feed providers
package feed

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"

	"github.com/umputun/newspulse/pkg/domain"
)

// ErrUpstream is the sentinel of all feed provider failures
var ErrUpstream = errors.New("feed provider error")

// Source returns the current list of articles of a feed provider
type Source interface {
	Articles(ctx context.Context) ([]domain.Article, error)
}

// UpstreamError describes a failed call to the feed provider
type UpstreamError struct {
	URL        string
	StatusCode int // zero if the request didn't get a response
	Message    string
	Err        error
}

func (e *UpstreamError) Error() string {
	var sb strings.Builder
	sb.WriteString("feed request to " + e.URL + " failed")
	if e.StatusCode != 0 {
		sb.WriteString(fmt.Sprintf(", status %d", e.StatusCode))
	}
	if e.Message != "" {
		sb.WriteString(", " + e.Message)
	}
	if e.Err != nil {
		sb.WriteString(": " + e.Err.Error())
	}
	return sb.String()
}

// Unwrap returns the sentinel and the wrapped cause
func (e *UpstreamError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrUpstream}
	}
	return []error{ErrUpstream, e.Err}
}

// sanitizer strips all html from provider texts
var sanitizer = bluemonday.StrictPolicy()

// cleanText drops markup and returns plain text, the sanitizer output is html-escaped
func cleanText(s string) string {
	return strings.TrimSpace(html.UnescapeString(sanitizer.Sanitize(s)))
}

// cleanOptional keeps nil as nil, an empty text after cleaning becomes nil too
func cleanOptional(s *string) *string {
	if s == nil {
		return nil
	}
	res := cleanText(*s)
	if res == "" {
		return nil
	}
	return &res
}
