package gazette

import (
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/legistrack/internal/config"
	"git.home.luguber.info/inful/legistrack/internal/fetch"
	"git.home.luguber.info/inful/legistrack/internal/regulation"
	"git.home.luguber.info/inful/legistrack/internal/retry"
)

const part1 = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0" xmlns:dc="http://purl.org/dc/elements/1.1/"><channel>
<title>Canada Gazette Part I</title>
<item>
  <title>Regulations Amending the Vessel Pollution and Dangerous Chemicals Regulations</title>
  <link>https://gazette.gc.ca/rp-pr/p1/2024/vessel.html</link>
  <description>Made under the Canada Shipping Act, 2001. Department of Transport.</description>
  <pubDate>Sat, 02 Mar 2024 00:00:00 -0500</pubDate>
</item>
</channel></rss>`

const part2 = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0" xmlns:dc="http://purl.org/dc/elements/1.1/"><channel>
<title>Canada Gazette Part II</title>
<item>
  <title>Regulations Amending the Vessel Pollution and Dangerous Chemicals Regulations</title>
  <link>https://gazette.gc.ca/rp-pr/p2/2024/sor-2024-55.html</link>
  <description>SOR/2024-55 pursuant to the Canada Shipping Act, 2001</description>
  <pubDate>Wed, 12 Jun 2024 00:00:00 -0400</pubDate>
  <dc:creator>Transport Canada</dc:creator>
</item>
<item>
  <title>Order Fixing the Day on Which the Act Comes into Force</title>
  <link>https://gazette.gc.ca/rp-pr/p2/2024/si-2024-12.html</link>
  <description>SI/2024-12</description>
  <pubDate>not a date</pubDate>
</item>
</channel></rss>`

func TestParseFeed_RSS(t *testing.T) {
	entries, err := ParseFeed([]byte(part2))
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "Transport Canada", entries[0].Author)
	assert.Equal(t, "https://gazette.gc.ca/rp-pr/p2/2024/sor-2024-55.html", entries[0].GUID)
}

func TestParseFeed_Atom(t *testing.T) {
	doc := `<feed xmlns="http://www.w3.org/2005/Atom"><entry><id>urn:1</id><title>Order X</title>
<link rel="alternate" href="https://example.test/x"/><updated>2024-01-02T00:00:00Z</updated>
<author><name>Health Canada</name></author></entry></feed>`
	entries, err := ParseFeed([]byte(doc))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "https://example.test/x", entries[0].Link)
	assert.Equal(t, "2024-01-02T00:00:00Z", entries[0].Published)
	assert.Equal(t, "Health Canada", entries[0].Author)
}

func TestParseFeed_Rejects(t *testing.T) {
	_, err := ParseFeed(nil)
	require.Error(t, err)
	_, err = ParseFeed([]byte("<html></html>"))
	require.Error(t, err)
}

func newScanner(t *testing.T, handler http.HandlerFunc) (*Scanner, *regulation.Store, string) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	path := filepath.Join(t.TempDir(), "regulations.json")
	store, err := regulation.Open(path, nil)
	require.NoError(t, err)

	hc := fetch.New(fetch.Options{Retry: retry.NewPolicy(config.RetryBackoffFixed, time.Millisecond, time.Millisecond, 0)})
	s := NewScanner(hc, store, []Feed{
		{URL: srv.URL + "/p1", Stage: regulation.StageProposed},
		{URL: srv.URL + "/p2", Stage: regulation.StageEnacted},
	}, nil, nil)
	s.now = func() time.Time { return time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC) }
	return s, store, path
}

func TestScan_RecordsAndPromotes(t *testing.T) {
	s, store, path := newScanner(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/p1":
			_, _ = w.Write([]byte(part1))
		case "/p2":
			_, _ = w.Write([]byte(part2))
		}
	})

	report, err := s.Scan(t.Context())
	require.NoError(t, err)
	assert.Equal(t, 3, report.Seen)
	assert.Equal(t, 2, report.Added)
	assert.Equal(t, 1, report.Replaced, "the identified Part II notice replaces the unidentified proposal")

	got, ok := store.Get("SOR/2024-55")
	require.True(t, ok)
	assert.Equal(t, regulation.StageEnacted, got.Stage)
	assert.Equal(t, "Canada Shipping Act", got.EnablingAct)
	assert.Equal(t, "Transport Canada", got.Sponsor)

	si, ok := store.Get("SI/2024-12")
	require.True(t, ok)
	assert.Equal(t, time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC), si.Published)

	reopened, err := regulation.Open(path, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, reopened.Len())

	again, err := s.Scan(t.Context())
	require.NoError(t, err)
	assert.False(t, again.Changed())
	assert.Equal(t, 3, again.Duplicates)
}

func TestScan_PartialFeedFailure(t *testing.T) {
	s, store, _ := newScanner(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/p1" {
			http.Error(w, "gone", http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte(part2))
	})

	report, err := s.Scan(t.Context())
	require.NoError(t, err)
	assert.Equal(t, 1, report.FeedErrors)
	assert.Equal(t, 2, store.Len())
}

func TestScan_AllFeedsFail(t *testing.T) {
	s, _, _ := newScanner(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("<html/>"))
	})
	_, err := s.Scan(t.Context())
	require.Error(t, err)
}
