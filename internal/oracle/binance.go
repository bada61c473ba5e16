package oracle

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/daveandrewz81-eng/solana-paper-grid/internal/domain"
)

type binanceTickerResponse struct {
	Symbol string `json:"symbol"`
	Price  string `json:"price"`
}

// BinanceProvider fetches the SOLUSDT last price from the Binance REST
// ticker endpoint. USDT is treated as USD for simulation purposes.
type BinanceProvider struct {
	url    string
	client *http.Client
}

func NewBinanceProvider(url string) *BinanceProvider {
	return &BinanceProvider{
		url:    url,
		client: newHTTPClient(),
	}
}

func (p *BinanceProvider) Name() string { return "binance" }

func (p *BinanceProvider) Fetch(ctx context.Context) (domain.Quote, error) {
	var data binanceTickerResponse
	if err := getJSON(ctx, p.client, p.url, &data); err != nil {
		return domain.Quote{}, err
	}

	if data.Price == "" {
		return domain.Quote{}, fmt.Errorf("binance: empty price")
	}
	price, err := decimal.NewFromString(data.Price)
	if err != nil {
		return domain.Quote{}, fmt.Errorf("binance: parse price %q: %w", data.Price, err)
	}

	return domain.Quote{
		PriceUSD: price.InexactFloat64(),
		Source:   p.Name(),
		TsUnixM:  time.Now().UnixMicro(),
	}, nil
}
