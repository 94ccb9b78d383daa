// Package coingecko implements a treasury.PriceOracle on the CoinGecko
// simple price API.
package coingecko

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PaesslerAG/jsonpath"
	"github.com/etnz/treasury"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// DefaultEndpoint is the public simple price endpoint.
const DefaultEndpoint = "https://api.coingecko.com/api/v3/simple/price"

// DefaultTTL is how long a price is reused before the API is queried again.
const DefaultTTL = time.Minute

// Oracle returns the price of one coin in one fiat currency.
//
// The response of the API looks like {"solana":{"usd":171.23}}; the price is
// located in it with a JSONPath expression.
type Oracle struct {
	coin     string // coingecko coin id, e.g. "solana"
	currency string // ISO code, e.g. "USD"
	endpoint string
	path     string
	client   *http.Client
	cache    *expirable.LRU[string, treasury.Money]
}

// Option configures an Oracle.
type Option func(*Oracle)

// WithEndpoint overrides the API endpoint.
func WithEndpoint(endpoint string) Option { return func(o *Oracle) { o.endpoint = endpoint } }

// WithPath overrides the JSONPath of the price, "$.<coin>.<currency>" by default.
func WithPath(path string) Option { return func(o *Oracle) { o.path = path } }

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(c *http.Client) Option { return func(o *Oracle) { o.client = c } }

// WithTTL sets how long a price is cached. Zero disables the cache.
func WithTTL(ttl time.Duration) Option {
	return func(o *Oracle) {
		if ttl <= 0 {
			o.cache = nil
			return
		}
		o.cache = expirable.NewLRU[string, treasury.Money](16, nil, ttl)
	}
}

// WithLogger logs HTTP round trips to log.
func WithLogger(log logrus.FieldLogger) Option {
	return func(o *Oracle) {
		base := o.client.Transport
		if base == nil {
			base = http.DefaultTransport
		}
		c := *o.client
		c.Transport = &logTransport{base: base, log: log.WithField("pkg", "coingecko")}
		o.client = &c
	}
}

// New returns an Oracle for coin priced in currency.
func New(coin, currency string, opts ...Option) *Oracle {
	o := &Oracle{
		coin:     strings.ToLower(coin),
		currency: strings.ToUpper(currency),
		endpoint: DefaultEndpoint,
		client:   &http.Client{Timeout: 30 * time.Second},
		cache:    expirable.NewLRU[string, treasury.Money](16, nil, DefaultTTL),
	}
	o.path = fmt.Sprintf("$.%s.%s", o.coin, strings.ToLower(o.currency))
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Price returns the current price. Any failure is reported as
// treasury.ErrPriceUnavailable.
func (o *Oracle) Price(ctx context.Context) (treasury.Money, error) {
	key := o.coin + "/" + o.currency
	if o.cache != nil {
		if m, ok := o.cache.Get(key); ok {
			return m, nil
		}
	}
	m, err := o.fetch(ctx)
	if err != nil {
		return treasury.Money{}, fmt.Errorf("%w: %s in %s: %w", treasury.ErrPriceUnavailable, o.coin, o.currency, err)
	}
	if o.cache != nil {
		o.cache.Add(key, m)
	}
	return m, nil
}

func (o *Oracle) fetch(ctx context.Context) (treasury.Money, error) {
	q := url.Values{}
	q.Set("ids", o.coin)
	q.Set("vs_currencies", strings.ToLower(o.currency))
	doc, err := getJSON(ctx, o.client, o.endpoint+"?"+q.Encode())
	if err != nil {
		return treasury.Money{}, err
	}
	v, err := jsonpath.Get(o.path, doc)
	if err != nil {
		return treasury.Money{}, err
	}
	price, err := decimal.NewFromString(fmt.Sprint(v))
	if err != nil {
		return treasury.Money{}, fmt.Errorf("price at %s is not a number: %v", o.path, v)
	}
	if price.IsNegative() {
		return treasury.Money{}, fmt.Errorf("negative price %v", price)
	}
	return treasury.M(price, o.currency), nil
}
