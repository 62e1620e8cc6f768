package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/umputun/newspulse/pkg/domain"
)

// DefaultNewsAPIEndpoint is the top headlines endpoint of newsapi.org
const DefaultNewsAPIEndpoint = "https://newsapi.org/v2/top-headlines"

const maxBodySize = 10 * 1024 * 1024

// NewsAPI fetches top headlines from a newsapi.org compatible endpoint
type NewsAPI struct {
	endpoint  string
	apiKey    string
	country   string
	userAgent string
	timeout   time.Duration
	client    *http.Client
}

// NewsAPIParams defines NewsAPI client settings, zero values get defaults
type NewsAPIParams struct {
	Endpoint  string
	APIKey    string
	Country   string
	UserAgent string
	Timeout   time.Duration
	Client    *http.Client
}

// newsAPIResponse is the provider payload, only the used fields
type newsAPIResponse struct {
	Status       string `json:"status"`
	Code         string `json:"code"`
	Message      string `json:"message"`
	TotalResults int    `json:"totalResults"`
	Articles     []struct {
		Source struct {
			Name string `json:"name"`
		} `json:"source"`
		Title       *string `json:"title"`
		Description *string `json:"description"`
		URL         string  `json:"url"`
		PublishedAt string  `json:"publishedAt"`
	} `json:"articles"`
}

// NewNewsAPI makes a client for the top headlines endpoint
func NewNewsAPI(params NewsAPIParams) *NewsAPI {
	res := &NewsAPI{
		endpoint:  params.Endpoint,
		apiKey:    params.APIKey,
		country:   params.Country,
		userAgent: params.UserAgent,
		timeout:   params.Timeout,
		client:    params.Client,
	}
	if res.endpoint == "" {
		res.endpoint = DefaultNewsAPIEndpoint
	}
	if res.country == "" {
		res.country = "us"
	}
	if res.userAgent == "" {
		res.userAgent = "newspulse/1.0"
	}
	if res.timeout <= 0 {
		res.timeout = 10 * time.Second
	}
	if res.client == nil {
		res.client = &http.Client{}
	}
	return res
}

// Articles requests the current headlines. Any non-2xx status or provider error payload is an *UpstreamError.
func (n *NewsAPI) Articles(ctx context.Context) ([]domain.Article, error) {
	u, err := url.Parse(n.endpoint)
	if err != nil {
		return nil, &UpstreamError{URL: n.endpoint, Message: "invalid endpoint", Err: err}
	}
	q := u.Query()
	q.Set("country", n.country)
	q.Set("apiKey", n.apiKey)
	u.RawQuery = q.Encode()

	ctx, cancel := context.WithTimeout(ctx, n.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), http.NoBody)
	if err != nil {
		return nil, &UpstreamError{URL: n.endpoint, Message: "can't make request", Err: err}
	}
	addBrowserHeaders(req, n.userAgent, acceptJSON)

	resp, err := n.client.Do(req)
	if err != nil {
		return nil, &UpstreamError{URL: n.endpoint, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, &UpstreamError{URL: n.endpoint, StatusCode: resp.StatusCode, Message: "can't read body", Err: err}
	}

	var payload newsAPIResponse
	decodeErr := json.Unmarshal(body, &payload)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := http.StatusText(resp.StatusCode)
		if decodeErr == nil && payload.Message != "" {
			msg = payload.Message
		}
		return nil, &UpstreamError{URL: n.endpoint, StatusCode: resp.StatusCode, Message: msg}
	}
	if decodeErr != nil {
		return nil, &UpstreamError{URL: n.endpoint, StatusCode: resp.StatusCode, Message: "can't decode response", Err: decodeErr}
	}
	if payload.Status == "error" {
		return nil, &UpstreamError{URL: n.endpoint, StatusCode: resp.StatusCode,
			Message: fmt.Sprintf("%s: %s", payload.Code, payload.Message)}
	}

	res := make([]domain.Article, 0, len(payload.Articles))
	for _, a := range payload.Articles {
		article := domain.Article{
			Description: cleanOptional(a.Description),
			URL:         a.URL,
			Source:      a.Source.Name,
		}
		if a.Title != nil {
			article.Title = cleanText(*a.Title)
		}
		if ts, err := time.Parse(time.RFC3339, a.PublishedAt); err == nil {
			article.Published = ts
		}
		res = append(res, article)
	}
	return res, nil
}

// String returns the endpoint without credentials, used in logs
func (n *NewsAPI) String() string {
	return "newsapi " + n.endpoint
}
