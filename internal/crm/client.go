// Package crm provides a client for the LeadConnector v2 REST API.
package crm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/gyeh/billsync/internal/model"
)

const (
	defaultBaseURL = "https://services.leadconnectorhq.com"

	// versionHeader pins the v2 API surface; required on every call.
	versionHeader = "2021-07-28"

	// anchorDomain hosts the synthetic upsert-anchor emails. Nothing is ever
	// delivered there; the address only makes repeat upserts idempotent.
	anchorDomain = "patients.local"
)

// APIError is a non-2xx/3xx response from the CRM, with the body attached so
// failures can be diagnosed without rerunning.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("crm: status %d: %s", e.StatusCode, e.Body)
}

// Config holds CRM connection settings.
type Config struct {
	Token      string
	LocationID string
	BaseURL    string // defaults to the hosted service

	// UpsertInterval is the minimum spacing between successive contact
	// upserts, to stay inside the service rate limit.
	UpsertInterval time.Duration
}

// Client wraps LeadConnector API interactions for one location.
type Client struct {
	baseURL    string
	token      string
	locationID string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewClient validates the config and returns a ready client.
func NewClient(cfg Config) (*Client, error) {
	if cfg.Token == "" {
		return nil, fmt.Errorf("missing CRM token")
	}
	if cfg.LocationID == "" {
		return nil, fmt.Errorf("missing CRM location id")
	}
	base := cfg.BaseURL
	if base == "" {
		base = defaultBaseURL
	}
	interval := cfg.UpsertInterval
	if interval <= 0 {
		interval = 100 * time.Millisecond
	}
	return &Client{
		baseURL:    strings.TrimSuffix(base, "/"),
		token:      cfg.Token,
		locationID: cfg.LocationID,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		limiter:    rate.NewLimiter(rate.Every(interval), 1),
	}, nil
}

// LocationID returns the configured location id.
func (c *Client) LocationID() string {
	return c.locationID
}

// AnchorEmail derives the deterministic upsert-anchor address for an account.
func AnchorEmail(accountID string) string {
	return accountID + "@" + anchorDomain
}

// do issues an authenticated request and returns the response body.
// Responses of 300 and above come back as *APIError.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, payload any) ([]byte, error) {
	fullURL := c.baseURL + path
	if len(query) > 0 {
		fullURL += "?" + query.Encode()
	}

	var body io.Reader = http.NoBody
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, fullURL, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Version", versionHeader)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode >= 300 {
		return nil, &APIError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}
	return respBody, nil
}

type customFieldValue struct {
	ID    string `json:"id"`
	Value any    `json:"value"`
}

type upsertPayload struct {
	LocationID   string             `json:"locationId"`
	FirstName    string             `json:"firstName"`
	LastName     string             `json:"lastName"`
	Email        string             `json:"email"`
	CustomFields []customFieldValue `json:"customFields"`
}

// UpsertContact creates or updates the contact anchored to the record's
// account id and returns the remote contact id. The account id and the
// cumulative amount are always sent; descriptor fields only when the source
// carried a value for them.
func (c *Client) UpsertContact(ctx context.Context, rec *model.AccountRecord, ids FieldIDs) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limiter wait: %w", err)
	}

	payload := upsertPayload{
		LocationID: c.locationID,
		FirstName:  rec.FirstName,
		LastName:   rec.LastName,
		Email:      AnchorEmail(rec.AccountID),
		CustomFields: []customFieldValue{
			{ID: ids[KeyPatientAccount], Value: rec.AccountID},
			{ID: ids[KeyTotalAmountPaid], Value: rec.TotalPaid},
		},
	}
	for _, opt := range []struct {
		key    string
		column string
	}{
		{KeyLocationName, "LOCATION NAME"},
		{KeyInsuranceName, "INSURANCE NAME"},
		{KeyPatientName, "PATIENT NAME"},
	} {
		if v := rec.Descriptor(opt.column); v != "" {
			payload.CustomFields = append(payload.CustomFields, customFieldValue{ID: ids[opt.key], Value: v})
		}
	}

	body, err := c.do(ctx, http.MethodPost, "/contacts/upsert", nil, payload)
	if err != nil {
		return "", fmt.Errorf("upsert contact %s: %w", rec.AccountID, err)
	}

	var out struct {
		Contact struct {
			ID string `json:"id"`
		} `json:"contact"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return "", fmt.Errorf("decode upsert response: %w", err)
	}
	return out.Contact.ID, nil
}

// VerifyContact queries the CRM by anchor email and returns the raw response.
// Used only as a post-run readback; callers treat failure as a warning.
func (c *Client) VerifyContact(ctx context.Context, email string) (json.RawMessage, error) {
	q := url.Values{}
	q.Set("locationId", c.locationID)
	q.Set("query", email)

	body, err := c.do(ctx, http.MethodGet, "/contacts/", q, nil)
	if err != nil {
		return nil, fmt.Errorf("verify contact %s: %w", email, err)
	}
	return json.RawMessage(body), nil
}
