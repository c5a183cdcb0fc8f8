package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/shopspring/decimal"

	"github.com/nisabwisdom/backend/internal/logger"
	"github.com/nisabwisdom/backend/internal/model"
)

// ouncesToGrams converts troy-ounce quotes to per-gram prices.
var ouncesToGrams = decimal.RequireFromString("31.1035")

// Static USD-per-gram prices served when the live source is down.
var (
	fallbackGold   = decimal.RequireFromString("75.00")
	fallbackSilver = decimal.RequireFromString("0.95")
)

// PriceConfig holds the live price source parameters.
type PriceConfig struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// PriceClient fetches gold and silver quotes with a bounded timeout and
// degrades to static fallback prices on any failure.
type PriceClient struct {
	config PriceConfig
	client *http.Client
	log    *logger.Logger
}

// NewPriceClient creates a PriceClient; a zero timeout selects 10s.
func NewPriceClient(cfg PriceConfig, log *logger.Logger) *PriceClient {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &PriceClient{
		config: cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		log:    log,
	}
}

type quoteResponse struct {
	Gold struct {
		USD float64 `json:"usd"`
	} `json:"gold"`
	Silver struct {
		USD float64 `json:"usd"`
	} `json:"silver"`
}

// GetPrices returns current USD-per-gram prices. Never fails: when the
// source is unreachable or returns garbage the fallback quote is
// served with Fallback set.
func (p *PriceClient) GetPrices(ctx context.Context) model.MetalPrices {
	prices, err := p.fetch(ctx)
	if err != nil {
		p.log.Warn("failed to fetch live prices, using fallback", "error", err)
		return model.MetalPrices{Gold: fallbackGold, Silver: fallbackSilver, Fallback: true}
	}
	return prices
}

func (p *PriceClient) fetch(ctx context.Context) (model.MetalPrices, error) {
	endpoint := p.config.BaseURL + "/simple/price?" + url.Values{
		"ids":           {"gold,silver"},
		"vs_currencies": {"usd"},
	}.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return model.MetalPrices{}, err
	}
	if p.config.APIKey != "" {
		req.Header.Set("X-CG-Pro-API-Key", p.config.APIKey)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return model.MetalPrices{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return model.MetalPrices{}, fmt.Errorf("price source returned %d", resp.StatusCode)
	}

	var quote quoteResponse
	if err := json.NewDecoder(resp.Body).Decode(&quote); err != nil {
		return model.MetalPrices{}, err
	}
	if quote.Gold.USD <= 0 || quote.Silver.USD <= 0 {
		return model.MetalPrices{}, fmt.Errorf("invalid price data received")
	}

	gold := decimal.NewFromFloat(quote.Gold.USD).Div(ouncesToGrams)
	silver := decimal.NewFromFloat(quote.Silver.USD).Div(ouncesToGrams)

	return model.MetalPrices{
		Gold:   gold.Round(2),
		Silver: silver.Round(4),
	}, nil
}
