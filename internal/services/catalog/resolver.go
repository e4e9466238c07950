// Package catalog resolves a named offer from the public catalog into a
// purchase plan with one line item per package.
package catalog

import (
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
	"github.com/j-veylop/quota-autopay/internal/services/billing"
	"github.com/j-veylop/quota-autopay/internal/services/session"
	"github.com/j-veylop/quota-autopay/internal/version"
)

var (
	// ErrCatalogUnavailable means the catalog could not be fetched or was not a non-empty list.
	ErrCatalogUnavailable = errors.New("catalog unavailable")
	// ErrOfferNotFound means no offer name matched.
	ErrOfferNotFound = errors.New("offer not found in catalog")
	// ErrEmptyOffer means the matched offer lists no packages.
	ErrEmptyOffer = errors.New("offer has no packages")
	// ErrDetailUnavailable means a package detail lookup failed; the whole plan is discarded.
	ErrDetailUnavailable = errors.New("package detail unavailable")
)

const (
	defaultPaymentFor = "BUY_PACKAGE"
	unknownItemName   = "Unknown"
)

// DetailFetcher looks up the purchasable detail of one package.
type DetailFetcher interface {
	PackageDetail(ctx context.Context, tokens models.TokenBundle, ref billing.PackageRef) (*billing.PackageDetail, error)
}

// offer is one catalog entry. Optional fields are pointers so absent values
// can take their defaults.
type offer struct {
	Name                 string               `json:"name"`
	Packages             []billing.PackageRef `json:"packages"`
	PaymentFor           *string              `json:"payment_for"`
	AskOverwrite         *bool                `json:"ask_overwrite"`
	OverwriteAmount      *int64               `json:"overwrite_amount"`
	TokenConfirmationIdx *int                 `json:"token_confirmation_idx"`
	AmountIdx            *int                 `json:"amount_idx"`
}

// Resolver builds purchase plans from the catalog.
type Resolver struct {
	httpClient *http.Client
	details    DetailFetcher
	sessions   session.Provider
	url        string
}

// NewResolver creates a resolver reading the catalog at url.
func NewResolver(url string, details DetailFetcher, sessions session.Provider) *Resolver {
	return &Resolver{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		details:    details,
		sessions:   sessions,
		url:        url,
	}
}

// SetHTTPClient replaces the catalog HTTP client.
func (r *Resolver) SetHTTPClient(client *http.Client) {
	r.httpClient = client
}

// ResolveByName finds the offer whose name equals name, ignoring case and
// surrounding whitespace, and resolves every package into a line item. Any
// failure yields no plan.
func (r *Resolver) ResolveByName(ctx context.Context, name string) (*models.PurchasePlan, error) {
	if err := session.Acquire(r.sessions).Err(); err != nil {
		return nil, err
	}

	offers, err := r.fetchCatalog(ctx)
	if err != nil {
		return nil, err
	}

	target := strings.ToLower(strings.TrimSpace(name))
	var selected *offer
	for i := range offers {
		if strings.ToLower(strings.TrimSpace(offers[i].Name)) == target {
			selected = &offers[i]
			break
		}
	}
	if selected == nil {
		return nil, fmt.Errorf("%w: %q", ErrOfferNotFound, name)
	}
	if len(selected.Packages) == 0 {
		return nil, fmt.Errorf("%w: %q", ErrEmptyOffer, selected.Name)
	}

	items := make([]models.PaymentLineItem, 0, len(selected.Packages))
	for _, ref := range selected.Packages {
		res := session.Acquire(r.sessions)
		if err := res.Err(); err != nil {
			return nil, err
		}

		detail, err := r.details.PackageDetail(ctx, res.Tokens, ref)
		if err != nil || detail == nil {
			logger.Warn("package detail failed", "family_code", ref.FamilyCode, "error", err)
			return nil, fmt.Errorf("%w: family %s", ErrDetailUnavailable, ref.FamilyCode)
		}
		items = append(items, lineItem(detail))
	}

	return buildPlan(selected, name, items), nil
}

func (r *Resolver) fetchCatalog(ctx context.Context) ([]offer, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCatalogUnavailable, err)
	}
	req.Header.Set("User-Agent", version.UserAgent())

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCatalogUnavailable, err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			logger.Error("failed to close response body", "error", err)
		}
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCatalogUnavailable, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: status %d", ErrCatalogUnavailable, resp.StatusCode)
	}

	var offers []offer
	if err := json.Unmarshal(body, &offers); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCatalogUnavailable, err)
	}
	if len(offers) == 0 {
		return nil, fmt.Errorf("%w: empty list", ErrCatalogUnavailable)
	}
	return offers, nil
}

// lineItem normalises a package detail, preferring the nested option's fields.
func lineItem(d *billing.PackageDetail) models.PaymentLineItem {
	opt := d.PackageOption
	if opt == nil {
		opt = &billing.PackageOption{}
	}

	name := firstNonEmpty(opt.Name, d.Name)
	if name == "" {
		name = unknownItemName
	}
	price := opt.Price
	if price == 0 {
		price = d.Price
	}

	return models.PaymentLineItem{
		ItemCode:          firstNonEmpty(opt.Code, opt.PackageOptionCode, d.PackageOptionCode, d.OptionCode),
		ItemName:          name,
		ItemPrice:         price,
		TokenConfirmation: firstNonEmpty(d.TokenConfirmation, opt.TokenConfirmation),
	}
}

func buildPlan(o *offer, requested string, items []models.PaymentLineItem) *models.PurchasePlan {
	plan := &models.PurchasePlan{
		SelectedName:         o.Name,
		Items:                items,
		PaymentFor:           defaultPaymentFor,
		AskOverwrite:         true,
		OverwriteAmount:      -1,
		TokenConfirmationIdx: 0,
		AmountIdx:            -1,
	}
	if plan.SelectedName == "" {
		plan.SelectedName = requested
	}
	if o.PaymentFor != nil {
		plan.PaymentFor = *o.PaymentFor
	}
	if o.AskOverwrite != nil {
		plan.AskOverwrite = *o.AskOverwrite
	}
	if o.OverwriteAmount != nil {
		plan.OverwriteAmount = *o.OverwriteAmount
	}
	if o.TokenConfirmationIdx != nil {
		plan.TokenConfirmationIdx = *o.TokenConfirmationIdx
	}
	if o.AmountIdx != nil {
		plan.AmountIdx = *o.AmountIdx
	}
	return plan
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
