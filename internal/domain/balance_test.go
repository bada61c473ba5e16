package domain

import (
	"testing"
)

func TestBalances_CreditDebit(t *testing.T) {
	b := &Balances{CashUSD: 100}

	b.DebitCash(25.5)
	if b.CashUSD != 74.5 {
		t.Errorf("expected 74.5, got %v", b.CashUSD)
	}

	b.CreditAsset(0.25)
	if b.AssetQty != 0.25 {
		t.Errorf("expected 0.25, got %v", b.AssetQty)
	}

	b.DebitAsset(0.25)
	b.CreditCash(26.0)
	if b.AssetQty != 0 {
		t.Errorf("expected flat asset, got %v", b.AssetQty)
	}
	if b.CashUSD != 100.5 {
		t.Errorf("expected 100.5, got %v", b.CashUSD)
	}

	b.VerifyInvariant()
}

func TestBalances_DebitPanic_InsufficientCash(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Error("expected panic for insufficient cash")
		}
	}()

	b := &Balances{CashUSD: 10}
	b.DebitCash(10.01)
}

func TestBalances_DebitPanic_InsufficientAsset(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Error("expected panic for insufficient asset")
		}
	}()

	b := &Balances{AssetQty: 0.5}
	b.DebitAsset(0.6)
}

func TestBalances_InvariantPanic_NegativeCash(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Error("expected panic for negative cash")
		}
	}()

	b := &Balances{CashUSD: -1}
	b.VerifyInvariant()
}

func TestBalances_PortfolioValue(t *testing.T) {
	b := &Balances{CashUSD: 100, AssetQty: 2}
	if got := b.PortfolioValueUSD(50); got != 200 {
		t.Errorf("PortfolioValueUSD(50) = %v, want 200", got)
	}
}
