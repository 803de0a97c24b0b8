package provider

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"moneyrates-service/internal/application"
	"moneyrates-service/internal/domain"
	"moneyrates-service/internal/infrastructure/httpx"

	"go.uber.org/zap"
)

// BinanceProvider looks up spot ticker prices for a fixed list of crypto
// symbols. Each symbol fails independently; partial results are expected.
// No caching, prices are always live.
type BinanceProvider struct {
	BaseURL string
	Symbols []string
	// QuoteTicker is appended to each symbol to form the trading pair.
	QuoteTicker string
	Source      string
	Client      *httpx.Client
	Log         *zap.Logger
}

var _ application.CryptoSource = (*BinanceProvider)(nil)

type tickerPrice struct {
	Symbol string `json:"symbol"`
	Price  string `json:"price"`
}

func (p *BinanceProvider) Rates(ctx context.Context, baseRate float64) map[string]domain.RawQuote {
	log := p.logger()
	out := make(map[string]domain.RawQuote, len(p.Symbols))

	for _, sym := range p.Symbols {
		pair := sym + p.quote()
		price, err := p.price(ctx, pair)
		if err != nil {
			log.Warn("binance_fetch_failed", zap.String("pair", pair), zap.Error(err))
			continue
		}
		out[sym] = domain.RawQuote{
			Rate:    price * baseRate,
			Nominal: 1,
			Source:  p.Source,
		}
	}
	return out
}

func (p *BinanceProvider) price(ctx context.Context, pair string) (float64, error) {
	u, err := url.Parse(p.BaseURL)
	if err != nil {
		return 0, fmt.Errorf("binance: invalid base url: %w", err)
	}
	q := u.Query()
	q.Set("symbol", pair)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return 0, fmt.Errorf("binance: create request: %w", err)
	}

	client := p.Client
	if client == nil {
		client = &httpx.Client{}
	}
	var body tickerPrice
	if err := client.DoJSON(ctx, req, &body); err != nil {
		return 0, err
	}
	if body.Price == "" {
		return 0, fmt.Errorf("binance: missing price for %s", pair)
	}
	price, err := strconv.ParseFloat(body.Price, 64)
	if err != nil {
		return 0, fmt.Errorf("binance: bad price %q for %s", body.Price, pair)
	}
	return price, nil
}

func (p *BinanceProvider) quote() string {
	if p.QuoteTicker == "" {
		return "USDT"
	}
	return p.QuoteTicker
}

func (p *BinanceProvider) logger() *zap.Logger {
	if p.Log == nil {
		return zap.NewNop()
	}
	return p.Log
}
