package billing

import (
	"encoding/json"
	"errors"
	"math"
	"strings"
	"time"
)

// Event is the validated, provider-agnostic shape of one billing lifecycle
// event. Webhook deliveries are parsed into it by ParseRelayEvent; the
// client activation endpoint synthesizes one directly.
type Event struct {
	Type                  string
	AppUserID             string
	ProductID             string
	TransactionID         string
	OriginalTransactionID string
	Store                 string
	Provider              string
	Platform              string
	CancelReason          string
	DeclaredPlan          string
	PurchasedAt           *time.Time
	ExpiresAt             *time.Time
	AmountCents           int64
	Currency              string
	RawPayloadJSON        string
}

// relayEnvelope mirrors the wire shape sent by the billing relay.
type relayEnvelope struct {
	Event *relayEvent `json:"event"`
}

type relayEvent struct {
	Type                  string  `json:"type"`
	ID                    string  `json:"id"`
	AppUserID             string  `json:"app_user_id"`
	ProductID             string  `json:"product_id"`
	TransactionID         string  `json:"transaction_id"`
	OriginalTransactionID string  `json:"original_transaction_id"`
	Store                 string  `json:"store"`
	CancelReason          string  `json:"cancel_reason"`
	ExpirationAtMs        int64   `json:"expiration_at_ms"`
	PurchasedAtMs         int64   `json:"purchased_at_ms"`
	Currency              string  `json:"currency"`
	Price                 float64 `json:"price"`
}

var ErrInvalidPayload = errors.New("invalid relay payload")

// ParseRelayEvent turns a raw webhook body into a validated Event. It fails
// only on malformed JSON or a missing event object/type; unknown event types
// parse fine and are classified as ignorable later.
func ParseRelayEvent(body []byte) (*Event, error) {
	var env relayEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, ErrInvalidPayload
	}
	if env.Event == nil || strings.TrimSpace(env.Event.Type) == "" {
		return nil, ErrInvalidPayload
	}
	raw := env.Event

	provider := InferProvider(raw.Store)
	ev := &Event{
		Type:                  strings.ToUpper(strings.TrimSpace(raw.Type)),
		AppUserID:             strings.TrimSpace(raw.AppUserID),
		ProductID:             strings.TrimSpace(raw.ProductID),
		TransactionID:         strings.TrimSpace(raw.TransactionID),
		OriginalTransactionID: strings.TrimSpace(raw.OriginalTransactionID),
		Store:                 strings.TrimSpace(raw.Store),
		Provider:              provider,
		Platform:              PlatformForProvider(provider),
		CancelReason:          strings.ToUpper(strings.TrimSpace(raw.CancelReason)),
		PurchasedAt:           msToTime(raw.PurchasedAtMs),
		ExpiresAt:             msToTime(raw.ExpirationAtMs),
		AmountCents:           priceToCents(raw.Price),
		Currency:              normalizeCurrency(raw.Currency),
		RawPayloadJSON:        string(body),
	}
	return ev, nil
}

// RelayEventID extracts the provider event id used for webhook deduplication.
func RelayEventID(body []byte) string {
	var env relayEnvelope
	if err := json.Unmarshal(body, &env); err != nil || env.Event == nil {
		return ""
	}
	return strings.TrimSpace(env.Event.ID)
}

func msToTime(ms int64) *time.Time {
	if ms <= 0 {
		return nil
	}
	t := time.UnixMilli(ms).UTC()
	return &t
}

func priceToCents(price float64) int64 {
	if price <= 0 || math.IsNaN(price) || math.IsInf(price, 0) {
		return 0
	}
	return int64(math.Round(price * 100))
}

func normalizeCurrency(currency string) string {
	c := strings.ToUpper(strings.TrimSpace(currency))
	if c == "" {
		return "USD"
	}
	return c
}
