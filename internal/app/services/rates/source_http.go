package rates

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/tidwall/gjson"

	"github.com/bazarion/market_engine/pkg/logger"
)

// HTTPSource polls a JSON endpoint for the USD-per-native rate. The rate is
// addressed inside the response body by a gjson path, e.g.
// "market_data.current_price.usd".
type HTTPSource struct {
	client   *http.Client
	endpoint *url.URL
	jsonPath string
	apiKey   string
	log      *logger.Logger
}

// NewHTTPSource constructs a source for the given endpoint and JSON path.
func NewHTTPSource(client *http.Client, endpoint, jsonPath, apiKey string, log *logger.Logger) (*HTTPSource, error) {
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		return nil, fmt.Errorf("rate endpoint required")
	}
	parsed, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("parse rate endpoint: %w", err)
	}
	jsonPath = strings.TrimSpace(jsonPath)
	if jsonPath == "" {
		return nil, fmt.Errorf("rate json path required")
	}
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Second}
	}
	if log == nil {
		log = logger.NewDefault("rates-http")
	}
	return &HTTPSource{
		client:   client,
		endpoint: parsed,
		jsonPath: jsonPath,
		apiKey:   strings.TrimSpace(apiKey),
		log:      log,
	}, nil
}

func (s *HTTPSource) Rate(ctx context.Context) (decimal.Decimal, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.endpoint.String(), nil)
	if err != nil {
		return decimal.Zero, fmt.Errorf("build rate request: %w", err)
	}
	if s.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.apiKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return decimal.Zero, fmt.Errorf("fetch rate: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return decimal.Zero, fmt.Errorf("rate endpoint returned %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return decimal.Zero, fmt.Errorf("read rate response: %w", err)
	}

	value := gjson.GetBytes(body, s.jsonPath)
	if !value.Exists() {
		return decimal.Zero, fmt.Errorf("rate path %q missing in response", s.jsonPath)
	}

	rate, err := decimal.NewFromString(value.String())
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse rate %q: %w", value.String(), err)
	}
	if rate.Sign() <= 0 {
		return decimal.Zero, fmt.Errorf("non-positive rate %s", rate)
	}
	return rate, nil
}
