// Package billing is the HTTP client for the carrier billing API: quota
// details, balance, package details and balance settlement.
package billing

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/j-veylop/quota-autopay/internal/logger"
	"github.com/j-veylop/quota-autopay/internal/models"
	"github.com/j-veylop/quota-autopay/internal/version"
)

const (
	quotaDetailsPath  = "api/v8/packages/quota-details"
	balancePath       = "api/v8/packages/balance-and-credit"
	packageDetailPath = "api/v8/xl-stores/options/detail"
	settlementPath    = "api/v8/payments/settlement-balance"

	statusSuccess = "SUCCESS"
)

// ErrUnauthorized is returned when the API rejects the session tokens.
var ErrUnauthorized = errors.New("unauthorized: session tokens rejected")

// envelope wraps every API response.
type envelope struct {
	Status  string          `json:"status"`
	Message string          `json:"message,omitempty"`
	Data    json.RawMessage `json:"data"`
}

// PackageRef identifies one package of a catalog offer.
type PackageRef struct {
	FamilyCode   string `json:"family_code"`
	VariantCode  string `json:"variant_code"`
	Order        int    `json:"order"`
	IsEnterprise bool   `json:"is_enterprise"`
}

// PackageOption is the purchasable option nested in a package detail.
type PackageOption struct {
	Code              string `json:"code"`
	PackageOptionCode string `json:"package_option_code"`
	Name              string `json:"name"`
	Price             int64  `json:"price"`
	TokenConfirmation string `json:"token_confirmation"`
}

// PackageDetail is the detail record of one package.
type PackageDetail struct {
	PackageOption     *PackageOption `json:"package_option"`
	PackageOptionCode string         `json:"package_option_code"`
	OptionCode        string         `json:"option_code"`
	Name              string         `json:"name"`
	Price             int64          `json:"price"`
	TokenConfirmation string         `json:"token_confirmation"`
}

// Client talks to the billing API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
}

// New creates a billing client.
func New(baseURL, apiKey string) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
	}
}

// SetHTTPClient replaces the underlying HTTP client.
func (c *Client) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}

// APIKey returns the configured API key.
func (c *Client) APIKey() string {
	return c.apiKey
}

// post sends payload to path and decodes the data field of a successful
// envelope into out. out may be nil.
func (c *Client) post(ctx context.Context, apiKey, path, idToken string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/"+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", version.UserAgent())
	req.Header.Set("x-api-key", apiKey)
	if idToken != "" {
		req.Header.Set("Authorization", "Bearer "+idToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			logger.Error("failed to close response body", "error", err)
		}
	}()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode == http.StatusUnauthorized {
		return ErrUnauthorized
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("request failed (status %d): %s", resp.StatusCode, string(respBody))
	}

	var env envelope
	if err := json.Unmarshal(respBody, &env); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}

	if env.Status != statusSuccess {
		return fmt.Errorf("api returned status %q: %s", env.Status, env.Message)
	}

	if out == nil || len(env.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("failed to parse response data: %w", err)
	}
	return nil
}

// QuotaDetails returns the raw quota records of the account. Records are left
// undecoded because their field names vary between API versions.
func (c *Client) QuotaDetails(ctx context.Context, tokens models.TokenBundle) ([]json.RawMessage, error) {
	payload := map[string]any{
		"is_enterprise":    false,
		"lang":             "en",
		"family_member_id": "",
	}

	var data struct {
		Quotas []json.RawMessage `json:"quotas"`
	}
	if err := c.post(ctx, c.apiKey, quotaDetailsPath, tokens.IDToken, payload, &data); err != nil {
		return nil, fmt.Errorf("quota details: %w", err)
	}
	return data.Quotas, nil
}

// Balance returns the remaining prepaid balance.
func (c *Client) Balance(ctx context.Context, tokens models.TokenBundle) (int64, error) {
	var data struct {
		Balance struct {
			Remaining int64 `json:"remaining"`
		} `json:"balance"`
	}
	if err := c.post(ctx, c.apiKey, balancePath, tokens.IDToken, map[string]any{"is_enterprise": false, "lang": "en"}, &data); err != nil {
		return 0, fmt.Errorf("balance: %w", err)
	}
	return data.Balance.Remaining, nil
}

// PackageDetail fetches the detail record of one catalog package.
func (c *Client) PackageDetail(ctx context.Context, tokens models.TokenBundle, ref PackageRef) (*PackageDetail, error) {
	payload := map[string]any{
		"family_code":   ref.FamilyCode,
		"variant_code":  ref.VariantCode,
		"order":         ref.Order,
		"is_enterprise": ref.IsEnterprise,
		"lang":          "en",
	}

	var detail PackageDetail
	if err := c.post(ctx, c.apiKey, packageDetailPath, tokens.IDToken, payload, &detail); err != nil {
		return nil, fmt.Errorf("package detail %s: %w", ref.FamilyCode, err)
	}
	return &detail, nil
}

type settlementRequest struct {
	Items           []models.PaymentLineItem `json:"items"`
	PaymentFor      string                   `json:"payment_for"`
	PaymentMethod   string                   `json:"payment_method"`
	TotalAmount     int64                    `json:"total_amount"`
	Overwrite       bool                     `json:"is_overwrite"`
	OverwriteAmount string                   `json:"overwrite_amount,omitempty"`
	AccessToken     string                   `json:"access_token"`
}

// Settle pays for items from the account balance. When overwrite is set the
// charged amount is replaced by overwriteAmount.
func (c *Client) Settle(ctx context.Context, apiKey string, tokens models.TokenBundle, items []models.PaymentLineItem, paymentFor string, overwrite bool, overwriteAmount string) error {
	if len(items) == 0 {
		return errors.New("settlement: no items")
	}

	plan := models.PurchasePlan{Items: items}
	req := settlementRequest{
		Items:           items,
		PaymentFor:      paymentFor,
		PaymentMethod:   "BALANCE",
		TotalAmount:     plan.TotalPrice(),
		Overwrite:       overwrite,
		OverwriteAmount: overwriteAmount,
		AccessToken:     tokens.AccessToken,
	}

	if err := c.post(ctx, apiKey, settlementPath, tokens.IDToken, req, nil); err != nil {
		return fmt.Errorf("settlement: %w", err)
	}
	return nil
}
