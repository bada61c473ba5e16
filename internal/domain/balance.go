package domain

import (
	"fmt"
)

// Balances holds the simulated cash and asset inventory.
// Mutated only by the fill simulator; a fill that would drive either side
// negative is rejected before any debit happens, so the panics below are
// invariant backstops, not expected control flow.
type Balances struct {
	CashUSD  float64 `json:"cash_usd"`
	AssetQty float64 `json:"asset_qty"`
}

// DebitCash removes USD. Panics if the balance would go negative.
func (b *Balances) DebitCash(amount float64) {
	if amount > b.CashUSD {
		panic(fmt.Sprintf("CORE_CASH_UNDERFLOW: debit %.8f > balance %.8f", amount, b.CashUSD))
	}
	b.CashUSD -= amount
}

// CreditCash adds USD.
func (b *Balances) CreditCash(amount float64) {
	b.CashUSD += amount
}

// DebitAsset removes asset quantity. Panics if the balance would go negative.
func (b *Balances) DebitAsset(qty float64) {
	if qty > b.AssetQty {
		panic(fmt.Sprintf("CORE_ASSET_UNDERFLOW: debit %.8f > balance %.8f", qty, b.AssetQty))
	}
	b.AssetQty -= qty
}

// CreditAsset adds asset quantity.
func (b *Balances) CreditAsset(qty float64) {
	b.AssetQty += qty
}

// PortfolioValueUSD values the whole account at the given mark price.
func (b *Balances) PortfolioValueUSD(markPrice float64) float64 {
	return b.CashUSD + b.AssetQty*markPrice
}

// VerifyInvariant panics if either balance is negative.
func (b *Balances) VerifyInvariant() {
	if b.CashUSD < 0 {
		panic(fmt.Sprintf("CORE_BALANCE_INVARIANT: negative cash %.8f", b.CashUSD))
	}
	if b.AssetQty < 0 {
		panic(fmt.Sprintf("CORE_BALANCE_INVARIANT: negative asset qty %.8f", b.AssetQty))
	}
}
