package flows

import (
	"context"
	"errors"
	"math/rand/v2"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"humpday-trader/internal/prospect"
	"humpday-trader/internal/types"
)

func newProspector(t *testing.T, data *fakeData, n *recordingNotifier, ticker string) (*Prospector, *prospect.Marker) {
	t.Helper()
	marker := prospect.NewMarker(filepath.Join(t.TempDir(), "current_stock.txt"))
	pr := NewProspector(ProspectorParams{
		Source: fakeSource{rows: []prospect.Constituent{
			{Ticker: "ADBE", Company: "Adobe Inc.", Sector: "Information Technology", SubIndustry: "Application Software"},
		}},
		Marker:   marker,
		Data:     data,
		Notifier: n,
		Channel:  "bot-test",
		Ticker:   ticker,
		Rand:     rand.New(rand.NewPCG(1, 2)),
	})
	pr.now = func() time.Time { return time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC) }
	return pr, marker
}

func TestProspectorPostsReportAndCharts(t *testing.T) {
	data := &fakeData{
		quotes: map[string]float64{"ADBE": 512.3},
		insider: []types.InsiderTransaction{
			{Change: -1000, TransactionCode: "S", TransactionDate: "2024-01-10", Price: 600},
			{Change: -300, TransactionCode: "S", TransactionDate: "2024-03-02", Price: 550},
		},
		recs: []types.RecommendationTrend{{Period: "2024-05-01", StrongBuy: 10, Buy: 12, Hold: 5}},
	}
	n := &recordingNotifier{}
	pr, marker := newProspector(t, data, n, "")

	research, err := pr.Prospect(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ADBE", research.Symbol)
	assert.Equal(t, time.Date(2021, 6, 1, 12, 0, 0, 0, time.UTC), data.from)

	current, err := marker.Read()
	require.NoError(t, err)
	assert.Equal(t, "ADBE", current)

	msgs := n.messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "ADBE Corp (ADBE)", msgs[0].Header)
	assert.Contains(t, msgs[0].Body, "Application Software")

	imgs := n.images()
	require.Len(t, imgs, 2)
	assert.Equal(t, "ADBE_insiders.png", imgs[0].Filename)
	assert.Equal(t, "ADBE_analysts.png", imgs[1].Filename)
	for _, p := range n.posts {
		assert.Equal(t, "bot-test", p.channel)
	}
}

func TestProspectorSkipsChartsWithoutData(t *testing.T) {
	data := &fakeData{quotes: map[string]float64{"NVDA": 120}}
	n := &recordingNotifier{}
	pr, marker := newProspector(t, data, n, "nvda")

	_, err := pr.Prospect(context.Background())
	require.NoError(t, err)

	current, err := marker.Read()
	require.NoError(t, err)
	assert.Equal(t, "NVDA", current)
	assert.Len(t, n.messages(), 1)
	assert.Empty(t, n.images())
}

func TestProspectorFailsOnUnknownQuote(t *testing.T) {
	n := &recordingNotifier{}
	pr, _ := newProspector(t, &fakeData{}, n, "")

	_, err := pr.Prospect(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "quote ADBE")
	assert.Empty(t, n.posts)
}

func TestProspectorConstituentsError(t *testing.T) {
	n := &recordingNotifier{}
	pr, _ := newProspector(t, &fakeData{}, n, "")
	pr.p.Source = fakeSource{err: prospect.ErrNoConstituents}

	err := pr.Run(context.Background())
	assert.True(t, errors.Is(err, prospect.ErrNoConstituents))
}
