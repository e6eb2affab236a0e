package flows

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"humpday-trader/internal/interfaces"
	"humpday-trader/internal/prospect"
	"humpday-trader/internal/types"
)

type fakeData struct {
	quotes  map[string]float64
	insider []types.InsiderTransaction
	recs    []types.RecommendationTrend
	from    time.Time
}

var _ interfaces.Fundamentals = (*fakeData)(nil)

func (f *fakeData) Quote(_ context.Context, symbol string) (*types.Quote, error) {
	p, ok := f.quotes[symbol]
	if !ok {
		return nil, errors.New("unknown symbol")
	}
	return &types.Quote{Symbol: symbol, Current: decimal.NewFromFloat(p), PercentChange: decimal.NewFromFloat(1.5)}, nil
}

func (f *fakeData) Profile(_ context.Context, symbol string) (*types.CompanyProfile, error) {
	return &types.CompanyProfile{Ticker: symbol, Name: symbol + " Corp"}, nil
}

func (f *fakeData) BasicFinancials(_ context.Context, symbol string) (*types.BasicFinancials, error) {
	return &types.BasicFinancials{Symbol: symbol, WeekHigh52: 600, WeekLow52: 400}, nil
}

func (f *fakeData) InsiderTransactions(_ context.Context, _ string, from, _ time.Time) ([]types.InsiderTransaction, error) {
	f.from = from
	return f.insider, nil
}

func (f *fakeData) RecommendationTrends(context.Context, string) ([]types.RecommendationTrend, error) {
	return f.recs, nil
}

type fakeTrading struct {
	positions []types.BrokerPosition
	submitted []types.OrderRequest
	submitErr error
	// simulate answers like a gateway configured for dry runs.
	simulate  bool
}

var _ interfaces.TradingGateway = (*fakeTrading)(nil)

func (f *fakeTrading) GetAccount(context.Context) (*types.Account, error) {
	return &types.Account{}, nil
}

func (f *fakeTrading) GetAllPositions(context.Context) ([]types.BrokerPosition, error) {
	return f.positions, nil
}

func (f *fakeTrading) SubmitOrder(_ context.Context, req types.OrderRequest) (*types.Order, error) {
	if f.submitErr != nil {
		return nil, f.submitErr
	}
	if f.simulate {
		return &types.Order{
			ID:            "dry-" + req.ClientOrderID,
			ClientOrderID: req.ClientOrderID,
			Symbol:        req.Symbol,
			Side:          req.Side,
			Type:          req.Type,
			Qty:           req.Qty,
			Status:        types.OrderStatusSimulated,
		}, nil
	}
	f.submitted = append(f.submitted, req)
	return &types.Order{
		ID:            "ord-" + req.Symbol,
		ClientOrderID: req.ClientOrderID,
		Symbol:        req.Symbol,
		Side:          req.Side,
		Type:          req.Type,
		Qty:           req.Qty,
		Status:        "accepted",
	}, nil
}

func (f *fakeTrading) GetOpenOrders(context.Context, string) ([]types.Order, error) {
	return nil, nil
}

type post struct {
	channel string
	msg     *types.Message
	img     *types.Image
}

type recordingNotifier struct {
	mu     sync.Mutex
	posts  []post
	msgErr error
}

var _ interfaces.Notifier = (*recordingNotifier)(nil)

func (n *recordingNotifier) PostMessage(_ context.Context, channel string, msg types.Message) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.posts = append(n.posts, post{channel: channel, msg: &msg})
	return n.msgErr
}

func (n *recordingNotifier) PostImage(_ context.Context, channel string, img types.Image) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.posts = append(n.posts, post{channel: channel, img: &img})
	return nil
}

func (n *recordingNotifier) messages() []types.Message {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []types.Message
	for _, p := range n.posts {
		if p.msg != nil {
			out = append(out, *p.msg)
		}
	}
	return out
}

func (n *recordingNotifier) images() []types.Image {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []types.Image
	for _, p := range n.posts {
		if p.img != nil {
			out = append(out, *p.img)
		}
	}
	return out
}

type fakeSource struct {
	rows []prospect.Constituent
	err  error
}

func (f fakeSource) Constituents(context.Context) ([]prospect.Constituent, error) {
	return f.rows, f.err
}

type fakeFlow struct {
	name  string
	err   error
	calls *[]string
}

func (f fakeFlow) Name() string { return f.name }

func (f fakeFlow) Run(context.Context) error {
	*f.calls = append(*f.calls, f.name)
	return f.err
}

type fakeEoD struct {
	sum *types.EodSummary
}

func (f fakeEoD) SummarizeDay(context.Context, time.Time) (*types.EodSummary, error) { return f.sum, nil }
func (f fakeEoD) SummarizeToday(context.Context) (*types.EodSummary, error)          { return f.sum, nil }

type fakeEngine struct {
	res *types.RebalanceResult
	err error
	req types.RebalanceRequest
}

func (f *fakeEngine) Rebalance(_ context.Context, req types.RebalanceRequest) (*types.RebalanceResult, error) {
	f.req = req
	return f.res, f.err
}
