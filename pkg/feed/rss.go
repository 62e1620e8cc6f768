package feed

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/umputun/newspulse/pkg/domain"
)

// RSS reads articles from an RSS, Atom or JSON feed
type RSS struct {
	url       string
	userAgent string
	timeout   time.Duration
	client    *http.Client
}

// NewRSS makes a feed reader for the given url
func NewRSS(feedURL, userAgent string, timeout time.Duration) *RSS {
	if userAgent == "" {
		userAgent = "newspulse/1.0"
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &RSS{
		url:       feedURL,
		userAgent: userAgent,
		timeout:   timeout,
		client: &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:        10,
				MaxIdleConnsPerHost: 2,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
}

// Articles fetches and parses the feed
func (r *RSS) Articles(ctx context.Context) ([]domain.Article, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.url, http.NoBody)
	if err != nil {
		return nil, &UpstreamError{URL: r.url, Message: "can't make request", Err: err}
	}
	addBrowserHeaders(req, r.userAgent, acceptFeed)

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, &UpstreamError{URL: r.url, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &UpstreamError{URL: r.url, StatusCode: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
	}

	parsed, err := gofeed.NewParser().Parse(resp.Body)
	if err != nil {
		return nil, &UpstreamError{URL: r.url, StatusCode: resp.StatusCode, Message: "can't parse feed", Err: err}
	}

	res := make([]domain.Article, 0, len(parsed.Items))
	for _, item := range parsed.Items {
		article := domain.Article{
			Title:  cleanText(item.Title),
			URL:    item.Link,
			Source: parsed.Title,
		}
		if item.Description != "" {
			article.Description = cleanOptional(&item.Description)
		}

		// set published time
		switch {
		case item.PublishedParsed != nil:
			article.Published = *item.PublishedParsed
		case item.UpdatedParsed != nil:
			article.Published = *item.UpdatedParsed
		}
		res = append(res, article)
	}
	return res, nil
}

// String returns the feed url, used in logs
func (r *RSS) String() string {
	return fmt.Sprintf("rss %s", r.url)
}
