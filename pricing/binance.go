package pricing

import (
	"context"
	"fmt"
	"strings"

	"github.com/adshao/go-binance/v2"
	"github.com/shopspring/decimal"
)

// PriceLister returns the last traded price of one exchange symbol as the
// exchange formats it.
type PriceLister func(ctx context.Context, symbol string) (string, error)

// Binance resolves spot prices from the public Binance ticker endpoint.
// App symbols such as "BTC", "BTC-USD" or "ETHUSDT" are mapped onto the
// configured quote asset.
type Binance struct {
	QuoteAsset string
	list       PriceLister
}

// NewBinance uses client for lookups. No API key is needed for tickers.
func NewBinance(client *binance.Client, quoteAsset string) *Binance {
	return &Binance{
		QuoteAsset: quoteAsset,
		list: func(ctx context.Context, symbol string) (string, error) {
			prices, err := client.NewListPricesService().Symbol(symbol).Do(ctx)
			if err != nil {
				return "", err
			}
			for _, p := range prices {
				if p.Symbol == symbol {
					return p.Price, nil
				}
			}
			return "", fmt.Errorf("symbol %s not in ticker response", symbol)
		},
	}
}

// NewBinanceWithLister is used when the ticker call is provided elsewhere.
func NewBinanceWithLister(list PriceLister, quoteAsset string) *Binance {
	return &Binance{QuoteAsset: quoteAsset, list: list}
}

// ExchangeSymbol maps an app symbol to a Binance pair.
func (b *Binance) ExchangeSymbol(symbol string) string {
	quote := strings.ToUpper(b.QuoteAsset)
	if quote == "" {
		quote = "USDT"
	}

	s := strings.ToUpper(strings.TrimSpace(symbol))
	s = strings.NewReplacer("-", "", "/", "", "_", "").Replace(s)
	if strings.HasSuffix(s, quote) {
		return s
	}
	s = strings.TrimSuffix(s, "USD")
	return s + quote
}

func (b *Binance) Resolve(ctx context.Context, symbol string) (decimal.Decimal, error) {
	pair := b.ExchangeSymbol(symbol)

	raw, err := b.list(ctx, pair)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: binance %s: %w", ErrUnavailable, pair, err)
	}
	p, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: binance %s: bad price %q", ErrUnavailable, pair, raw)
	}
	return p, nil
}
