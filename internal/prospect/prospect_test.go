package prospect

import (
	"context"
	"math/rand/v2"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const constituentsPage = `<html><body>
<table class="wikitable" id="other"><tr><th>Ticker</th></tr><tr><td>NOPE</td></tr></table>
<table class="wikitable sortable" id="constituents">
<tbody>
<tr><th>Company</th><th>Ticker</th><th>GICS Sector</th><th>GICS Sub-Industry</th></tr>
<tr><td><a href="/wiki/Adobe">Adobe Inc.</a></td><td>ADBE</td><td>Information Technology</td><td>Application Software</td></tr>
<tr><td>Amazon</td><td> amzn </td><td>Consumer Discretionary</td><td>Broadline Retail</td></tr>
<tr><td>Broken row</td></tr>
</tbody></table>
</body></html>`

func serve(t *testing.T, status int, body string) string {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv.URL + "/wiki/Nasdaq-100"
}

func TestConstituentsParsesTable(t *testing.T) {
	s := NewScraper(serve(t, http.StatusOK, constituentsPage), 0)

	rows, err := s.Constituents(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, Constituent{
		Ticker:      "ADBE",
		Company:     "Adobe Inc.",
		Sector:      "Information Technology",
		SubIndustry: "Application Software",
	}, rows[0])
	assert.Equal(t, "AMZN", rows[1].Ticker)
}

func TestConstituentsMissingTable(t *testing.T) {
	s := NewScraper(serve(t, http.StatusOK, `<html><body><p>moved</p></body></html>`), 0)
	_, err := s.Constituents(context.Background())
	assert.ErrorIs(t, err, ErrNoConstituents)
}

func TestConstituentsHTTPError(t *testing.T) {
	s := NewScraper(serve(t, http.StatusNotFound, "gone"), 0)
	_, err := s.Constituents(context.Background())
	assert.Error(t, err)
}

func TestPick(t *testing.T) {
	rows := []Constituent{{Ticker: "A"}, {Ticker: "B"}, {Ticker: "C"}}
	r := rand.New(rand.NewPCG(1, 2))

	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		c, err := Pick(rows, r)
		require.NoError(t, err)
		seen[c.Ticker] = true
	}
	assert.Len(t, seen, 3)

	_, err := Pick(nil, r)
	assert.ErrorIs(t, err, ErrNoConstituents)
}

func TestMarkerRoundTrip(t *testing.T) {
	m := NewMarker(filepath.Join(t.TempDir(), "data", "current_stock.txt"))

	_, err := m.Read()
	assert.ErrorIs(t, err, ErrNoCurrentStock)

	require.NoError(t, m.Write(" msft "))
	got, err := m.Read()
	require.NoError(t, err)
	assert.Equal(t, "MSFT", got)

	assert.Error(t, m.Write("  "))
}
