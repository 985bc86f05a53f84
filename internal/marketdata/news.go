package marketdata

import (
	"context"
	"encoding/xml"
	"fmt"
	"net/http"
	"time"
)

// NewsItem is one RSS entry. Consumed only by the external Spec
// Producer's own context-gathering, never by the core engine (spec
// §6.2: "News/RSS fetcher ... not consumed by the core engine").
type NewsItem struct {
	Title       string
	Description string
	Link        string
	PublishedAt time.Time
}

type rssFeed struct {
	Channel struct {
		Items []rssItem `xml:"item"`
	} `xml:"channel"`
}

type rssItem struct {
	Title       string `xml:"title"`
	Description string `xml:"description"`
	Link        string `xml:"link"`
	PubDate     string `xml:"pubDate"`
}

// NewsReader fetches and parses RSS feeds.
type NewsReader struct {
	HTTPClient *http.Client
}

func NewNewsReader() *NewsReader {
	return &NewsReader{HTTPClient: &http.Client{Timeout: 15 * time.Second}}
}

// FetchFeed reads feedURL and returns its items in document order.
func (r *NewsReader) FetchFeed(ctx context.Context, feedURL string) ([]NewsItem, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feedURL, nil)
	if err != nil {
		return nil, err
	}

	resp, err := r.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching rss feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("rss feed %s returned status %d", feedURL, resp.StatusCode)
	}

	var feed rssFeed
	if err := xml.NewDecoder(resp.Body).Decode(&feed); err != nil {
		return nil, fmt.Errorf("decoding rss feed: %w", err)
	}

	items := make([]NewsItem, 0, len(feed.Channel.Items))
	for _, it := range feed.Channel.Items {
		item := NewsItem{Title: it.Title, Description: it.Description, Link: it.Link}
		if t, err := time.Parse(time.RFC1123Z, it.PubDate); err == nil {
			item.PublishedAt = t
		}
		items = append(items, item)
	}
	return items, nil
}
