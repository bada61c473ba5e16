package oracle

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"

	"github.com/daveandrewz81-eng/solana-paper-grid/internal/domain"
	"github.com/daveandrewz81-eng/solana-paper-grid/internal/infra"
)

// binanceTradeMsg is one trade event from the combined stream. Price
// arrives as a string.
type binanceTradeMsg struct {
	EventType string `json:"e"`
	Price     string `json:"p"`
	TradeTime int64  `json:"T"`
}

// BinanceStreamProvider caches the last trade price from the Binance
// SOLUSDT trade stream. It satisfies Provider so the chain can consult
// it first, and infra.StreamHandler so a WSWorker can drive it. A cached
// price older than maxAge is treated as no price at all.
type BinanceStreamProvider struct {
	url    string
	maxAge time.Duration

	mu       sync.RWMutex
	price    float64
	updated  time.Time
	hasPrice bool
}

// NewBinanceStreamProvider creates the provider for the given stream URL,
// e.g. wss://stream.binance.com:9443/ws/solusdt@trade.
func NewBinanceStreamProvider(url string, maxAge time.Duration) *BinanceStreamProvider {
	if maxAge <= 0 {
		maxAge = 10 * time.Second
	}
	return &BinanceStreamProvider{url: url, maxAge: maxAge}
}

func (p *BinanceStreamProvider) Name() string { return "binance-ws" }

// Fetch returns the cached stream price if it is fresh enough. It never
// blocks on the network; staleness falls through to the REST providers.
func (p *BinanceStreamProvider) Fetch(ctx context.Context) (domain.Quote, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if !p.hasPrice {
		return domain.Quote{}, domain.ErrPriceUnavailable
	}
	if time.Since(p.updated) > p.maxAge {
		return domain.Quote{}, domain.ErrPriceUnavailable
	}
	return domain.Quote{
		PriceUSD: p.price,
		Source:   p.Name(),
		TsUnixM:  p.updated.UnixMicro(),
	}, nil
}

// StreamHandler implementation.

func (p *BinanceStreamProvider) ID() string     { return p.Name() }
func (p *BinanceStreamProvider) GetURL() string { return p.url }

func (p *BinanceStreamProvider) OnConnect(ctx context.Context, conn *websocket.Conn) error {
	// The single-stream endpoint starts pushing trades immediately,
	// no subscription frame needed.
	return nil
}

func (p *BinanceStreamProvider) OnMessage(ctx context.Context, msg []byte) {
	var trade binanceTradeMsg
	if err := json.Unmarshal(msg, &trade); err != nil {
		slog.Debug("stream message not a trade", slog.Any("error", err))
		return
	}
	if trade.EventType != "trade" || trade.Price == "" {
		return
	}

	price, err := decimal.NewFromString(trade.Price)
	if err != nil {
		slog.Warn("stream price parse failed",
			slog.String("raw", trade.Price),
			slog.Any("error", err))
		return
	}

	p.mu.Lock()
	p.price = price.InexactFloat64()
	p.updated = time.Now()
	p.hasPrice = true
	p.mu.Unlock()
}

// NewStreamWorker is a small convenience wrapper so callers don't import
// infra just to start the feed.
func NewStreamWorker(p *BinanceStreamProvider) *infra.WSWorker {
	return infra.NewWSWorker(p)
}
