package billing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/affirmly/affirmly-backend/internal/pkg/env"
)

// HistoryClient talks to the legacy billing system that predates the relay.
// It only serves the read-only history view and never feeds entitlement
// decisions.
type HistoryClient struct {
	BaseURL string
	APIKey  string

	HTTPClient *http.Client
}

// LegacyPayment is one historical payment item from the legacy system.
type LegacyPayment struct {
	Reference   string `json:"reference"`
	Description string `json:"description"`
	AmountCents int64  `json:"amount_cents"`
	Currency    string `json:"currency"`
	PaidAtMs    int64  `json:"paid_at_ms"`
}

// NewHistoryClientFromEnv builds a client from LEGACY_BILLING_* env vars.
// Returns nil when no base URL is configured, meaning no legacy history.
func NewHistoryClientFromEnv() *HistoryClient {
	base := strings.TrimRight(strings.TrimSpace(env.GetEnv("LEGACY_BILLING_URL", "")), "/")
	if base == "" {
		return nil
	}
	return &HistoryClient{
		BaseURL: base,
		APIKey:  strings.TrimSpace(env.GetEnv("LEGACY_BILLING_API_KEY", "")),
		HTTPClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// FetchHistory returns the historical payment items for an app user id.
func (c *HistoryClient) FetchHistory(ctx context.Context, appUserID string) ([]LegacyPayment, error) {
	id := strings.TrimSpace(appUserID)
	if id == "" {
		return nil, errors.New("app user id is required")
	}

	u, err := url.Parse(c.BaseURL + "/v1/payments")
	if err != nil {
		return nil, err
	}
	q := u.Query()
	q.Set("app_user_id", id)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	if c.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.APIKey)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("legacy billing lookup failed: status=%d body=%s", resp.StatusCode, string(body))
	}

	var out struct {
		Payments []LegacyPayment `json:"payments"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, err
	}
	return out.Payments, nil
}
