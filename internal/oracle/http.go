package oracle

import (
	"context"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"net/url"
	"time"

	"github.com/shopspring/decimal"
	"github.com/tidwall/gjson"
)

// HTTPFeed reads a price quote from a JSON REST endpoint.
type HTTPFeed struct {
	URL    string
	APIKey string
	// PricePath is a gjson path to the price, e.g. "data.price".
	PricePath string
	// DecimalsPath, when set and present in the response, marks the price as an
	// integer already scaled by that many decimals.
	DecimalsPath string
	// Decimals scales a plain decimal price such as "4000.25" into an integer.
	Decimals uint8
	Client   *http.Client
}

// NewHTTPFeed creates a feed with optional proxy support.
func NewHTTPFeed(endpoint, apiKey, pricePath string, decimals uint8, proxyURL string) *HTTPFeed {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	if pricePath == "" {
		pricePath = "price"
	}
	return &HTTPFeed{
		URL:       endpoint,
		APIKey:    apiKey,
		PricePath: pricePath,
		Decimals:  decimals,
		Client: &http.Client{
			Timeout:   30 * time.Second,
			Transport: transport,
		},
	}
}

func (f *HTTPFeed) Name() string { return "http" }

func (f *HTTPFeed) LatestAnswer(ctx context.Context) (Answer, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.URL, nil)
	if err != nil {
		return Answer{}, err
	}
	if f.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+f.APIKey)
	}
	resp, err := f.Client.Do(req)
	if err != nil {
		return Answer{}, fmt.Errorf("fetch price: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Answer{}, fmt.Errorf("read price: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return Answer{}, fmt.Errorf("fetch price: status %d, body: %s", resp.StatusCode, string(body))
	}
	if !gjson.ValidBytes(body) {
		return Answer{}, fmt.Errorf("decode price: invalid json")
	}
	return f.parse(body)
}

func (f *HTTPFeed) parse(body []byte) (Answer, error) {
	res := gjson.GetBytes(body, f.PricePath)
	if !res.Exists() {
		return Answer{}, fmt.Errorf("decode price: path %q not found", f.PricePath)
	}
	ans := Answer{UpdatedAt: time.Now()}

	if f.DecimalsPath != "" {
		if d := gjson.GetBytes(body, f.DecimalsPath); d.Exists() {
			if d.Uint() > 77 {
				return Answer{}, fmt.Errorf("decode price: decimals %d out of range", d.Uint())
			}
			raw, ok := new(big.Int).SetString(res.String(), 10)
			if !ok {
				return Answer{}, fmt.Errorf("decode price: %q is not an integer", res.String())
			}
			ans.Price = raw
			ans.Decimals = uint8(d.Uint())
			return ans, nil
		}
	}

	d, err := decimal.NewFromString(res.String())
	if err != nil {
		return Answer{}, fmt.Errorf("decode price: %w", err)
	}
	ans.Price = d.Shift(int32(f.Decimals)).BigInt()
	ans.Decimals = f.Decimals
	return ans, nil
}
