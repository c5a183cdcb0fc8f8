package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// ZakatRequest is the calculator input. Monetary figures are decimals;
// weights are grams.
type ZakatRequest struct {
	CashInHand         decimal.Decimal `json:"cash_in_hand"`
	CashInBank         decimal.Decimal `json:"cash_in_bank"`
	GoldInGrams        decimal.Decimal `json:"gold_in_grams"`
	SilverInGrams      decimal.Decimal `json:"silver_in_grams"`
	Investments        decimal.Decimal `json:"investments"`
	BusinessAssets     decimal.Decimal `json:"business_assets"`
	PropertyForTrading decimal.Decimal `json:"property_for_trading"`
	Loans              decimal.Decimal `json:"loans"`
	Bills              decimal.Decimal `json:"bills"`
	Wages              decimal.Decimal `json:"wages"`
	Currency           string          `json:"currency"`
	HeldForOneYear     bool            `json:"held_for_one_year"`
}

// ZakatResult is the calculator output.
type ZakatResult struct {
	TotalAssets        decimal.Decimal `json:"total_assets"`
	TotalLiabilities   decimal.Decimal `json:"total_liabilities"`
	NetWealth          decimal.Decimal `json:"net_wealth"`
	NisabThreshold     decimal.Decimal `json:"nisab_threshold"`
	MeetsNisab         bool            `json:"meets_nisab"`
	ZakatDue           decimal.Decimal `json:"zakat_due"`
	Currency           string          `json:"currency"`
	CalculationDate    time.Time       `json:"calculation_date"`
	GoldPricePerGram   decimal.Decimal `json:"gold_price_per_gram"`
	SilverPricePerGram decimal.Decimal `json:"silver_price_per_gram"`
}

// ZakatCalculation is the persisted audit row: inputs, results, and
// request metadata. UserID is nil for anonymous calculations.
type ZakatCalculation struct {
	ID        string
	UserID    *string
	Request   ZakatRequest
	Result    ZakatResult
	ClientIP  string
	UserAgent string
	CreatedAt time.Time
}

// MetalPrices is a gold/silver quote in USD per gram. Fallback marks
// static prices served because the live source was unreachable.
type MetalPrices struct {
	Gold     decimal.Decimal `json:"gold"`
	Silver   decimal.Decimal `json:"silver"`
	Fallback bool            `json:"fallback"`
}
