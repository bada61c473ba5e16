package oracle

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/daveandrewz81-eng/solana-paper-grid/internal/domain"
)

// CoinGeckoProvider fetches the solana/usd simple price. CoinGecko returns
// plain JSON numbers, so no string parsing is needed here.
type CoinGeckoProvider struct {
	url    string
	client *http.Client
}

func NewCoinGeckoProvider(url string) *CoinGeckoProvider {
	return &CoinGeckoProvider{
		url:    url,
		client: newHTTPClient(),
	}
}

func (p *CoinGeckoProvider) Name() string { return "coingecko" }

func (p *CoinGeckoProvider) Fetch(ctx context.Context) (domain.Quote, error) {
	var data map[string]map[string]float64
	if err := getJSON(ctx, p.client, p.url, &data); err != nil {
		return domain.Quote{}, err
	}

	sol, ok := data["solana"]
	if !ok {
		return domain.Quote{}, fmt.Errorf("coingecko: missing solana entry")
	}
	price, ok := sol["usd"]
	if !ok {
		return domain.Quote{}, fmt.Errorf("coingecko: missing usd price")
	}

	return domain.Quote{
		PriceUSD: price,
		Source:   p.Name(),
		TsUnixM:  time.Now().UnixMicro(),
	}, nil
}
