package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nisabwisdom/backend/internal/model"
)

// CalculationRepository stores Zakat calculation audit rows.
type CalculationRepository struct {
	pool *pgxpool.Pool
}

// NewCalculationRepository creates a CalculationRepository.
func NewCalculationRepository(pool *pgxpool.Pool) *CalculationRepository {
	return &CalculationRepository{pool: pool}
}

// Create inserts one audit row. Anonymous calculations carry a NULL
// user_id.
func (r *CalculationRepository) Create(ctx context.Context, calc *model.ZakatCalculation) error {
	if calc.ID == "" {
		calc.ID = uuid.NewString()
	}

	query := `INSERT INTO zakat_calculations (
				id, user_id,
				cash_in_hand, cash_in_bank, gold_in_grams, silver_in_grams,
				investments, business_assets, property_for_trading,
				loans, bills, wages, currency, held_for_one_year,
				total_assets, total_liabilities, net_wealth, nisab_threshold,
				meets_nisab, zakat_due, gold_price_per_gram, silver_price_per_gram,
				client_ip, user_agent
			  ) VALUES (
				$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14,
				$15, $16, $17, $18, $19, $20, $21, $22, $23, $24
			  ) RETURNING created_at`

	err := r.pool.QueryRow(ctx, query,
		calc.ID, calc.UserID,
		calc.Request.CashInHand, calc.Request.CashInBank,
		calc.Request.GoldInGrams, calc.Request.SilverInGrams,
		calc.Request.Investments, calc.Request.BusinessAssets, calc.Request.PropertyForTrading,
		calc.Request.Loans, calc.Request.Bills, calc.Request.Wages,
		calc.Request.Currency, calc.Request.HeldForOneYear,
		calc.Result.TotalAssets, calc.Result.TotalLiabilities,
		calc.Result.NetWealth, calc.Result.NisabThreshold,
		calc.Result.MeetsNisab, calc.Result.ZakatDue,
		calc.Result.GoldPricePerGram, calc.Result.SilverPricePerGram,
		nullableString(calc.ClientIP), nullableString(calc.UserAgent),
	).Scan(&calc.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create calculation record: %w", err)
	}

	return nil
}

func nullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
