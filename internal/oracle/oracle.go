// Package oracle turns an ordered list of interchangeable quote providers
// into the single "fetch current price" capability the engine consumes.
// Retry, fallback order, rate limits and circuit breaking all live here;
// the engine only ever sees one quote or one aggregate failure per tick.
package oracle

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/daveandrewz81-eng/solana-paper-grid/internal/domain"
	"github.com/daveandrewz81-eng/solana-paper-grid/internal/infra"
	"github.com/daveandrewz81-eng/solana-paper-grid/pkg/safe"
)

// Provider is one quote source. Implementations must be safe for use from
// the single engine goroutine plus their own background workers.
type Provider interface {
	Name() string
	Fetch(ctx context.Context) (domain.Quote, error)
}

// Chain tries providers in order under a shared time budget. Each provider
// gets its own circuit breaker and token bucket; a tripped breaker or dry
// bucket just skips to the next provider.
type Chain struct {
	providers []Provider
	breakers  map[string]*infra.CircuitBreaker
	limiters  map[string]*infra.RateLimiter
	budget    time.Duration
}

// NewChain builds the fallback chain. budget caps one whole FetchPrice call
// across all providers.
func NewChain(budget time.Duration, providers ...Provider) *Chain {
	c := &Chain{
		providers: providers,
		breakers:  make(map[string]*infra.CircuitBreaker, len(providers)),
		limiters:  make(map[string]*infra.RateLimiter, len(providers)),
		budget:    budget,
	}
	for _, p := range providers {
		c.breakers[p.Name()] = infra.NewCircuitBreaker(p.Name(), 3, 1, 60*time.Second)
		// Free-tier APIs: small burst, ~1 request per 2s sustained.
		c.limiters[p.Name()] = infra.NewRateLimiter(3, 0.5)
	}
	return c
}

// FetchPrice walks the chain and returns the first usable quote.
// A quote with a non-finite or non-positive price counts as a provider
// failure; the engine never sees it. All providers exhausted means
// domain.ErrPriceUnavailable.
func (c *Chain) FetchPrice(ctx context.Context) (domain.Quote, error) {
	ctx, cancel := context.WithTimeout(ctx, c.budget)
	defer cancel()

	var lastErr error
	for _, p := range c.providers {
		if ctx.Err() != nil {
			break
		}

		br := c.breakers[p.Name()]
		if !br.Allow() {
			slog.Debug("provider skipped: breaker open", slog.String("provider", p.Name()))
			continue
		}
		if !c.limiters[p.Name()].TryAcquire() {
			slog.Debug("provider skipped: rate limited", slog.String("provider", p.Name()))
			continue
		}

		quote, err := p.Fetch(ctx)
		if err != nil {
			br.RecordFailure()
			lastErr = err
			slog.Warn("quote fetch failed",
				slog.String("provider", p.Name()),
				slog.Any("error", err))
			continue
		}
		if !safe.FinitePositive(quote.PriceUSD) {
			br.RecordFailure()
			lastErr = fmt.Errorf("provider %s returned unusable price %v", p.Name(), quote.PriceUSD)
			continue
		}

		br.RecordSuccess()
		return quote, nil
	}

	if lastErr != nil {
		return domain.Quote{}, fmt.Errorf("%w: %v", domain.ErrPriceUnavailable, lastErr)
	}
	return domain.Quote{}, domain.ErrPriceUnavailable
}
