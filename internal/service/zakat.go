package service

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/nisabwisdom/backend/internal/logger"
	"github.com/nisabwisdom/backend/internal/model"
)

// Nisab thresholds from Islamic law: 20 mithqal of gold, 200 dirhams
// of silver, 2.5% due on wealth held for one lunar year.
var (
	nisabGoldGrams   = decimal.RequireFromString("87.48")
	nisabSilverGrams = decimal.RequireFromString("612.36")
	zakatRate        = decimal.RequireFromString("0.025")
)

// CalculationRepository persists calculation audit rows.
type CalculationRepository interface {
	Create(ctx context.Context, calc *model.ZakatCalculation) error
}

// PriceSource supplies current gold/silver prices in USD per gram.
type PriceSource interface {
	GetPrices(ctx context.Context) model.MetalPrices
}

// Zakat computes Zakat liability and records an audit row per
// calculation. Anonymous callers are served; their rows carry no user.
type Zakat struct {
	prices PriceSource
	calcs  CalculationRepository
	log    *logger.Logger
	now    func() time.Time
}

// NewZakat wires the Zakat service.
func NewZakat(prices PriceSource, calcs CalculationRepository, log *logger.Logger) *Zakat {
	return &Zakat{prices: prices, calcs: calcs, log: log, now: time.Now}
}

// Calculate fetches prices, runs the formula, and stores the audit row.
// A failed audit write is logged but never fails the calculation.
func (z *Zakat) Calculate(ctx context.Context, req model.ZakatRequest, userID *string, clientIP, userAgent string) (*model.ZakatResult, error) {
	prices := z.prices.GetPrices(ctx)

	result := Compute(req, prices.Gold, prices.Silver, z.now())

	calc := &model.ZakatCalculation{
		UserID:    userID,
		Request:   req,
		Result:    result,
		ClientIP:  clientIP,
		UserAgent: userAgent,
	}
	if err := z.calcs.Create(ctx, calc); err != nil {
		z.log.Warn("failed to store calculation record", "error", err)
	}

	return &result, nil
}

// NisabThresholds returns the current monetary thresholds alongside the
// prices used to derive them.
func (z *Zakat) NisabThresholds(ctx context.Context) (gold, silver decimal.Decimal, prices model.MetalPrices) {
	prices = z.prices.GetPrices(ctx)
	gold = nisabGoldGrams.Mul(prices.Gold)
	silver = nisabSilverGrams.Mul(prices.Silver)
	return gold, silver, prices
}

// Compute runs the Zakat formula over decimal inputs. The nisab
// threshold is the lower of the gold and silver thresholds; Zakat is
// due only on wealth at or above nisab held for one lunar year.
func Compute(req model.ZakatRequest, goldPrice, silverPrice decimal.Decimal, at time.Time) model.ZakatResult {
	goldValue := req.GoldInGrams.Mul(goldPrice)
	silverValue := req.SilverInGrams.Mul(silverPrice)

	totalAssets := req.CashInHand.
		Add(req.CashInBank).
		Add(goldValue).
		Add(silverValue).
		Add(req.Investments).
		Add(req.BusinessAssets).
		Add(req.PropertyForTrading)

	totalLiabilities := req.Loans.Add(req.Bills).Add(req.Wages)
	netWealth := totalAssets.Sub(totalLiabilities)

	goldNisab := nisabGoldGrams.Mul(goldPrice)
	silverNisab := nisabSilverGrams.Mul(silverPrice)
	nisabThreshold := decimal.Min(goldNisab, silverNisab)

	meetsNisab := netWealth.GreaterThanOrEqual(nisabThreshold) && req.HeldForOneYear

	zakatDue := decimal.Zero
	if meetsNisab {
		zakatDue = netWealth.Mul(zakatRate)
	}

	return model.ZakatResult{
		TotalAssets:        totalAssets.Round(2),
		TotalLiabilities:   totalLiabilities.Round(2),
		NetWealth:          netWealth.Round(2),
		NisabThreshold:     nisabThreshold.Round(2),
		MeetsNisab:         meetsNisab,
		ZakatDue:           zakatDue.Round(2),
		Currency:           req.Currency,
		CalculationDate:    at,
		GoldPricePerGram:   goldPrice,
		SilverPricePerGram: silverPrice,
	}
}
