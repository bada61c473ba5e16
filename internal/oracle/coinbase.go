package oracle

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/daveandrewz81-eng/solana-paper-grid/internal/domain"
)

// coinbaseSpotResponse is the Coinbase v2 spot price shape. The amount
// comes back as a string and is parsed exactly before any float math.
type coinbaseSpotResponse struct {
	Data struct {
		Amount   string `json:"amount"`
		Currency string `json:"currency"`
	} `json:"data"`
}

// CoinbaseProvider fetches the SOL-USD spot price from the public
// Coinbase API. No authentication required for spot quotes.
type CoinbaseProvider struct {
	url    string
	client *http.Client
}

// NewCoinbaseProvider creates the provider for the given spot endpoint.
func NewCoinbaseProvider(url string) *CoinbaseProvider {
	return &CoinbaseProvider{
		url:    url,
		client: newHTTPClient(),
	}
}

func (p *CoinbaseProvider) Name() string { return "coinbase" }

func (p *CoinbaseProvider) Fetch(ctx context.Context) (domain.Quote, error) {
	var data coinbaseSpotResponse
	if err := getJSON(ctx, p.client, p.url, &data); err != nil {
		return domain.Quote{}, err
	}

	if data.Data.Amount == "" {
		return domain.Quote{}, fmt.Errorf("coinbase: empty amount")
	}
	price, err := decimal.NewFromString(data.Data.Amount)
	if err != nil {
		return domain.Quote{}, fmt.Errorf("coinbase: parse amount %q: %w", data.Data.Amount, err)
	}

	return domain.Quote{
		PriceUSD: price.InexactFloat64(),
		Source:   p.Name(),
		TsUnixM:  time.Now().UnixMicro(),
	}, nil
}
