package marketdata

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetchFeed_ParsesItemsInOrder(t *testing.T) {
	body := `<?xml version="1.0"?>
<rss version="2.0"><channel>
<title>Example Feed</title>
<item><title>First</title><description>d1</description><link>http://a</link><pubDate>Mon, 02 Jan 2006 15:04:05 -0700</pubDate></item>
<item><title>Second</title><description>d2</description><link>http://b</link><pubDate>Tue, 03 Jan 2006 15:04:05 -0700</pubDate></item>
</channel></rss>`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/xml")
		w.Write([]byte(body))
	}))
	defer srv.Close()

	r := NewNewsReader()
	items, err := r.FetchFeed(context.Background(), srv.URL)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "First", items[0].Title)
	assert.Equal(t, "Second", items[1].Title)
	assert.False(t, items[0].PublishedAt.IsZero())
}

func TestFetchFeed_NonOKStatusIsAnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	r := NewNewsReader()
	_, err := r.FetchFeed(context.Background(), srv.URL)
	require.Error(t, err)
}
