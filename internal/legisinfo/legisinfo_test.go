package legisinfo

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/legistrack/internal/bill"
	"git.home.luguber.info/inful/legistrack/internal/config"
	"git.home.luguber.info/inful/legistrack/internal/fetch"
	ferrors "git.home.luguber.info/inful/legistrack/internal/foundation/errors"
	"git.home.luguber.info/inful/legistrack/internal/retry"
	"git.home.luguber.info/inful/legistrack/internal/tracker"
)

func fixture(t *testing.T) []byte {
	t.Helper()
	data, err := os.ReadFile("testdata/bills.xml")
	require.NoError(t, err)
	return data
}

func TestParse_Fixture(t *testing.T) {
	obs, err := Parse(fixture(t))
	require.NoError(t, err)
	require.Len(t, obs, 3)

	c11 := obs[0]
	assert.Equal(t, "C-11", c11.ID)
	assert.Equal(t, "44-1", c11.Session)
	assert.Equal(t, "An Act to amend the Broadcasting Act", c11.Title)
	assert.Equal(t, "60140", c11.StatusCode)
	assert.Equal(t, bill.ChamberHouse, c11.Chamber)
	assert.Equal(t, "https://www.parl.ca/legisinfo/en/bill/44-1/C-11", c11.SourceURL)
	assert.Equal(t, "Hon. Pablo Rodriguez", c11.Sponsor)
	require.NotNil(t, c11.PublicationCount)
	assert.Equal(t, 3, *c11.PublicationCount)
	require.NotNil(t, c11.SpecialAssentDate)
	assert.Equal(t, time.Date(2023, 4, 27, 0, 0, 0, 0, time.UTC), *c11.SpecialAssentDate)
	assert.True(t, *c11.HasSpecialRecommendation)

	s5 := obs[1]
	assert.Equal(t, bill.ChamberSenate, s5.Chamber)
	assert.Equal(t, "At consideration in committee in the House of Commons", s5.StatusText)
	assert.Equal(t, unknownStatusCode, s5.StatusCode)
	assert.Nil(t, s5.PublicationCount, "no publication data means unknown, not zero")
	assert.True(t, *s5.HasSpecialRecommendation, "government bill type")

	c234 := obs[2]
	assert.Equal(t, "C-234", c234.ID)
	assert.Equal(t, "Second reading", c234.StatusText)
	assert.Equal(t, bill.ChamberHouse, c234.Chamber)
	assert.False(t, *c234.HasSpecialRecommendation)
}

func TestParse_Defaults(t *testing.T) {
	obs, err := Parse([]byte(`<Bills><Bill><BillNumberFormatted>C-1</BillNumberFormatted><ParlSessionCode>44-1</ParlSessionCode></Bill></Bills>`))
	require.NoError(t, err)
	require.Len(t, obs, 1)
	assert.Equal(t, unknownStatus, obs[0].StatusText)
	assert.Equal(t, unknownChamber, obs[0].Chamber)
	assert.Empty(t, obs[0].Title, "absent title never erases a known one")
}

func TestParse_NamespacedAndLatin1(t *testing.T) {
	doc := "<?xml version=\"1.0\" encoding=\"ISO-8859-1\"?>" +
		"<b:Bills xmlns:b=\"urn:x\"><b:Bill><b:BillNumberFormatted>C-7</b:BillNumberFormatted>" +
		"<b:ParlSessionCode>44-1</b:ParlSessionCode><b:LongTitleEn>Loi sur l'\xe9nergie</b:LongTitleEn></b:Bill></b:Bills>"
	obs, err := Parse([]byte(doc))
	require.NoError(t, err)
	require.Len(t, obs, 1)
	assert.Equal(t, "Loi sur l'énergie", obs[0].Title)
}

func TestParseExport_CountsIncompleteRecords(t *testing.T) {
	doc := `<Bills>
<Bill><BillNumberFormatted>C-1</BillNumberFormatted><ParlSessionCode>44-1</ParlSessionCode></Bill>
<Bill><BillNumberFormatted>C-2</BillNumberFormatted></Bill>
<Bill><ParlSessionCode>44-1</ParlSessionCode><LongTitleEn>No number</LongTitleEn></Bill>
<Bill><LongTitleEn>Neither</LongTitleEn></Bill>
</Bills>`
	export, err := ParseExport([]byte(doc))
	require.NoError(t, err)
	require.Len(t, export.Observations, 1)
	assert.Equal(t, "C-1", export.Observations[0].ID)
	assert.Equal(t, 2, export.Skipped)

	export, err = ParseExport(fixture(t))
	require.NoError(t, err)
	assert.Zero(t, export.Skipped, "wrapper and field elements are not records")
}

func TestClient_LogsSkippedRecords(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelWarn}))
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`<Bills><Bill><BillNumberFormatted>C-2</BillNumberFormatted></Bill></Bills>`))
	}))
	t.Cleanup(srv.Close)
	hc := fetch.New(fetch.Options{
		UserAgent: "legistrack-test",
		Retry:     retry.NewPolicy(config.RetryBackoffFixed, time.Millisecond, time.Millisecond, 0),
	})
	c := NewClient(hc, srv.URL+"/legisinfo/en/bills/xml", 44, logger)

	obs, err := c.FetchCurrent(context.Background())
	require.NoError(t, err)
	assert.Empty(t, obs)
	assert.Contains(t, buf.String(), "Skipped bills without number or session")
	assert.Contains(t, buf.String(), `"count":1`)
}

func TestParse_Malformed(t *testing.T) {
	_, err := Parse([]byte("<Bills><Bill>"))
	require.Error(t, err)
	assert.True(t, ferrors.HasCategory(err, ferrors.CategoryTransport))

	_, err = Parse(nil)
	require.Error(t, err)
}

func newClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	hc := fetch.New(fetch.Options{
		UserAgent: "legistrack-test",
		CacheTTL:  time.Minute,
		Retry:     retry.NewPolicy(config.RetryBackoffFixed, time.Millisecond, time.Millisecond, 0),
	})
	return NewClient(hc, srv.URL+"/legisinfo/en/bills/xml", 44, nil), srv
}

func TestClient_FetchCurrent(t *testing.T) {
	data := fixture(t)
	c, _ := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.URL.Query().Get("parlsession"))
		_, _ = w.Write(data)
	})
	obs, err := c.FetchCurrent(context.Background())
	require.NoError(t, err)
	assert.Len(t, obs, 3)
}

func TestClient_FetchPartition(t *testing.T) {
	var hits atomic.Int32
	c, _ := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		switch r.URL.Query().Get("parlsession") {
		case "38-1":
			_, _ = w.Write([]byte(`<Bills><Bill><BillNumberFormatted>C-2</BillNumberFormatted><ParlSessionCode>38-1</ParlSessionCode></Bill></Bills>`))
		default:
			http.NotFound(w, r)
		}
	})

	obs, err := c.FetchPartition(context.Background(), tracker.Partition{Parliament: 38, Session: 1})
	require.NoError(t, err)
	require.Len(t, obs, 1)
	assert.Equal(t, "38-1", obs[0].Session)

	_, err = c.FetchPartition(context.Background(), tracker.Partition{Parliament: 38, Session: 1})
	require.NoError(t, err)
	assert.Equal(t, int32(1), hits.Load(), "archival partitions are cached")

	_, err = c.FetchPartition(context.Background(), tracker.Partition{Parliament: 38, Session: 5})
	require.Error(t, err)
	assert.True(t, ferrors.HasCategory(err, ferrors.CategoryNotFound))
}

func TestClient_PartitionURL(t *testing.T) {
	c := NewClient(nil, "https://www.parl.ca/legisinfo/en/bills/xml", 44, nil)
	u, err := c.PartitionURL(tracker.Partition{Parliament: 44, Session: 1})
	require.NoError(t, err)
	assert.Equal(t, "https://www.parl.ca/legisinfo/en/bills/xml?parlsession=44-1", u)
}
