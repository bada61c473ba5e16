package domain

// Quote is one observed market price with its provenance.
// Providers are interchangeable; only the price and the source label matter
// past the oracle boundary.
type Quote struct {
	PriceUSD float64 `json:"price_usd"`
	Source   string  `json:"source"`
	TsUnixM  int64   `json:"ts"`
}
