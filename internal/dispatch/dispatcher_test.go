package dispatch

import (
	"context"
	"errors"
	"io"
	"log"
	"sync"
	"testing"

	"pump-agent/internal/domain"
	"pump-agent/internal/eligibility"
	"pump-agent/internal/solana"
	"pump-agent/internal/storage"
	"pump-agent/internal/storage/memory"
)

const (
	testMint  = "So11111111111111111111111111111111111111112"
	testCurve = "TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA"
)

func quietLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

type fakeResolver struct {
	mu    sync.Mutex
	calls int
	set   domain.HolderSet
	err   error
}

func (f *fakeResolver) Resolve(ctx context.Context, mint string) (domain.HolderSet, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.set, f.err
}

func (f *fakeResolver) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeMetadata struct {
	meta *domain.TokenMetadata
	err  error
}

func (f *fakeMetadata) FetchMetadata(ctx context.Context, uri string) (*domain.TokenMetadata, error) {
	return f.meta, f.err
}

type fakeTrader struct {
	mu     sync.Mutex
	orders []domain.TradeOrder
	err    error
}

func (f *fakeTrader) Execute(ctx context.Context, order domain.TradeOrder) (*domain.TradeResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.orders = append(f.orders, order)
	if f.err != nil {
		return &domain.TradeResult{Fee: domain.Fee(order.Quantity)}, f.err
	}
	return &domain.TradeResult{TxSignature: "txbuy", Fee: domain.Fee(order.Quantity)}, nil
}

func (f *fakeTrader) buys() []domain.TradeOrder {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.TradeOrder, len(f.orders))
	copy(out, f.orders)
	return out
}

type fakeWatcher struct {
	mu        sync.Mutex
	positions []domain.WatchedPosition
	err       error
}

func (f *fakeWatcher) Watch(ctx context.Context, position domain.WatchedPosition) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.positions = append(f.positions, position)
	return nil
}

func (f *fakeWatcher) watched() []domain.WatchedPosition {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.WatchedPosition, len(f.positions))
	copy(out, f.positions)
	return out
}

type pipeline struct {
	dispatcher *Dispatcher
	resolver   *fakeResolver
	metadata   *fakeMetadata
	trader     *fakeTrader
	watcher    *fakeWatcher
	verdicts   *memory.VerdictStore
}

func newTestPipeline(t *testing.T) *pipeline {
	t.Helper()

	p := &pipeline{
		resolver: &fakeResolver{
			set: domain.HolderSet{
				// Bonding curve holds 50M (5%, excluded), a user holds 30M (3%)
				{TokenAccount: "acctA", Owner: testCurve, Balance: 50_000_000},
				{TokenAccount: "acctB", Owner: "userX", Balance: 30_000_000},
			},
		},
		metadata: &fakeMetadata{
			meta: &domain.TokenMetadata{
				Twitter:  "https://x.com/t",
				Telegram: "https://t.me/t",
				Website:  "https://t.example",
			},
		},
		trader:   &fakeTrader{},
		watcher:  &fakeWatcher{},
		verdicts: memory.NewVerdictStore(),
	}

	d, err := NewDispatcher(Options{
		Resolver:    p.resolver,
		Evaluator:   eligibility.NewEvaluator(),
		Metadata:    p.metadata,
		Trader:      p.trader,
		Watcher:     p.watcher,
		Verdicts:    p.verdicts,
		BuyQuantity: 1000,
		Logger:      quietLogger(),
	})
	if err != nil {
		t.Fatalf("NewDispatcher: %v", err)
	}
	p.dispatcher = d
	return p
}

// run feeds the events through Run and returns once every screening
// goroutine has finished.
func (p *pipeline) run(events ...domain.TokenEvent) {
	ch := make(chan domain.TokenEvent, len(events))
	for _, ev := range events {
		ch <- ev
	}
	close(ch)
	p.dispatcher.Run(context.Background(), ch)
}

func passingEvent() domain.TokenEvent {
	return domain.TokenEvent{
		Mint:         testMint,
		Name:         "Good Token",
		Symbol:       "GOOD",
		BondingCurve: testCurve,
		MetadataURI:  "https://meta.example/1.json",
		MarketCap:    15_000,
		Volume:       50,
		WalletDistribution: []domain.WalletShare{
			{Address: "w1", Percent: 1.0},
			{Address: "w2", Percent: 2.0},
		},
	}
}

func TestDispatcher_EligibleTokenBoughtAndWatched(t *testing.T) {
	p := newTestPipeline(t)

	p.run(passingEvent())

	buys := p.trader.buys()
	if len(buys) != 1 {
		t.Fatalf("expected 1 buy, got %d", len(buys))
	}
	if buys[0].Side != domain.SideBuy || buys[0].Mint != testMint {
		t.Errorf("unexpected order %+v", buys[0])
	}
	if buys[0].Quantity != 1000 {
		t.Errorf("expected quantity 1000, got %f", buys[0].Quantity)
	}

	watched := p.watcher.watched()
	if len(watched) != 1 {
		t.Fatalf("expected 1 watched position, got %d", len(watched))
	}
	if watched[0].Mint != testMint || watched[0].Quantity != 1000 {
		t.Errorf("unexpected position %+v", watched[0])
	}

	v, err := p.verdicts.GetByMint(context.Background(), testMint)
	if err != nil {
		t.Fatalf("expected journaled verdict: %v", err)
	}
	if !v.Eligible || v.Stage != domain.StageTrade {
		t.Errorf("unexpected verdict %+v", v)
	}
	if len(v.Reasons) != 0 {
		t.Errorf("expected no reasons, got %v", v.Reasons)
	}
}

func TestDispatcher_LaunchFilterRejection(t *testing.T) {
	p := newTestPipeline(t)

	ev := passingEvent()
	ev.MarketCap = 9_000
	p.run(ev)

	if len(p.trader.buys()) != 0 {
		t.Error("expected no buy for rejected token")
	}
	// Rejection happens before any ledger traffic
	if p.resolver.callCount() != 0 {
		t.Errorf("expected no resolver calls, got %d", p.resolver.callCount())
	}

	v, err := p.verdicts.GetByMint(context.Background(), testMint)
	if err != nil {
		t.Fatalf("expected journaled verdict: %v", err)
	}
	if v.Eligible || v.Stage != domain.StageLaunchFilter {
		t.Errorf("unexpected verdict %+v", v)
	}
	if len(v.Reasons) == 0 {
		t.Error("expected rejection reasons")
	}
}

func TestDispatcher_ConcentrationRejection(t *testing.T) {
	p := newTestPipeline(t)
	p.resolver.set = domain.HolderSet{
		{TokenAccount: "acctA", Owner: testCurve, Balance: 50_000_000},
		{TokenAccount: "acctB", Owner: "whale", Balance: 41_000_000}, // 4.1%
	}

	p.run(passingEvent())

	if len(p.trader.buys()) != 0 {
		t.Error("expected no buy for concentrated token")
	}

	v, err := p.verdicts.GetByMint(context.Background(), testMint)
	if err != nil {
		t.Fatalf("expected journaled verdict: %v", err)
	}
	if v.Stage != domain.StageConcentration {
		t.Errorf("expected concentration stage, got %s", v.Stage)
	}
}

func TestDispatcher_HolderResolutionFailure(t *testing.T) {
	p := newTestPipeline(t)
	p.resolver.set = nil
	p.resolver.err = errors.New("no holders resolved")

	p.run(passingEvent())

	if len(p.trader.buys()) != 0 {
		t.Error("expected no buy when holders cannot be resolved")
	}

	v, err := p.verdicts.GetByMint(context.Background(), testMint)
	if err != nil {
		t.Fatalf("expected journaled verdict: %v", err)
	}
	if v.Eligible || v.Stage != domain.StageHolders {
		t.Errorf("unexpected verdict %+v", v)
	}
}

func TestDispatcher_SocialsRejection(t *testing.T) {
	p := newTestPipeline(t)
	p.metadata.meta = &domain.TokenMetadata{
		Twitter: "https://x.com/t",
		Website: "https://t.example",
		// no telegram
	}

	p.run(passingEvent())

	if len(p.trader.buys()) != 0 {
		t.Error("expected no buy without full socials")
	}

	v, err := p.verdicts.GetByMint(context.Background(), testMint)
	if err != nil {
		t.Fatalf("expected journaled verdict: %v", err)
	}
	if v.Stage != domain.StageSocials {
		t.Errorf("expected socials stage, got %s", v.Stage)
	}
}

func TestDispatcher_MissingMetadataURIFailsSocials(t *testing.T) {
	p := newTestPipeline(t)

	ev := passingEvent()
	ev.MetadataURI = ""
	p.run(ev)

	if len(p.trader.buys()) != 0 {
		t.Error("expected no buy without metadata")
	}

	v, err := p.verdicts.GetByMint(context.Background(), testMint)
	if err != nil {
		t.Fatalf("expected journaled verdict: %v", err)
	}
	if v.Stage != domain.StageSocials {
		t.Errorf("expected socials stage, got %s", v.Stage)
	}
}

func TestDispatcher_DuplicateMintSkipped(t *testing.T) {
	p := newTestPipeline(t)

	seed := &domain.VerdictRecord{
		Mint:       testMint,
		Eligible:   false,
		Stage:      domain.StageLaunchFilter,
		ScreenedAt: 1700000000000,
	}
	if err := p.verdicts.Insert(context.Background(), seed); err != nil {
		t.Fatalf("seed verdict: %v", err)
	}

	p.run(passingEvent())

	if p.resolver.callCount() != 0 {
		t.Error("expected re-announced mint to skip screening")
	}
	if len(p.trader.buys()) != 0 {
		t.Error("expected no buy for re-announced mint")
	}
}

func TestDispatcher_BuyFailureSkipsWatch(t *testing.T) {
	p := newTestPipeline(t)
	p.trader.err = errors.New("trade submission failed")

	p.run(passingEvent())

	if len(p.watcher.watched()) != 0 {
		t.Error("expected no watch registration after failed buy")
	}

	v, err := p.verdicts.GetByMint(context.Background(), testMint)
	if err != nil {
		t.Fatalf("expected journaled verdict: %v", err)
	}
	if !v.Eligible || v.Stage != domain.StageTrade {
		t.Errorf("unexpected verdict %+v", v)
	}
	if len(v.Reasons) == 0 {
		t.Error("expected the trade failure to be recorded")
	}
}

func TestDispatcher_MalformedEventDropped(t *testing.T) {
	p := newTestPipeline(t)

	ev := passingEvent()
	ev.Mint = "not-base58!"
	p.run(ev)

	if p.resolver.callCount() != 0 {
		t.Error("expected malformed event to be dropped before screening")
	}
	if _, err := p.verdicts.GetByMint(context.Background(), testMint); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected no verdict for malformed event, got %v", err)
	}
}

func TestDispatcher_DerivesBondingCurveWhenMissing(t *testing.T) {
	p := newTestPipeline(t)

	derived, err := solana.BondingCurveAddress(testMint)
	if err != nil {
		t.Fatalf("BondingCurveAddress: %v", err)
	}

	// The curve account holds 50M (5%); without the derived exclusion the
	// concentration rule would reject this token
	p.resolver.set = domain.HolderSet{
		{TokenAccount: "acctA", Owner: derived, Balance: 50_000_000},
		{TokenAccount: "acctB", Owner: "userX", Balance: 30_000_000},
	}

	ev := passingEvent()
	ev.BondingCurve = ""
	p.run(ev)

	if len(p.trader.buys()) != 1 {
		t.Fatalf("expected 1 buy with derived curve exclusion, got %d", len(p.trader.buys()))
	}
}

func TestDispatcher_IndependentEvents(t *testing.T) {
	p := newTestPipeline(t)

	good := passingEvent()
	bad := passingEvent()
	bad.Mint = testCurve // a second valid address
	bad.MarketCap = 25_000

	p.run(good, bad)

	buys := p.trader.buys()
	if len(buys) != 1 {
		t.Fatalf("expected exactly 1 buy, got %d", len(buys))
	}
	if buys[0].Mint != testMint {
		t.Errorf("expected buy for %s, got %s", testMint, buys[0].Mint)
	}
}
