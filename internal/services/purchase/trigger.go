// Package purchase turns a resolved catalog offer into a balance settlement.
package purchase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/j-veylop/quota-autopay/internal/logger"
	"github.com/j-veylop/quota-autopay/internal/models"
	"github.com/j-veylop/quota-autopay/internal/services/notify"
	"github.com/j-veylop/quota-autopay/internal/services/session"
)

// ErrNoItems is returned when a resolved plan has nothing to buy.
var ErrNoItems = errors.New("purchase plan has no items")

// Resolver builds a purchase plan for a named offer.
type Resolver interface {
	ResolveByName(ctx context.Context, name string) (*models.PurchasePlan, error)
}

// Settler pays for line items from the account balance.
type Settler interface {
	Settle(ctx context.Context, apiKey string, tokens models.TokenBundle, items []models.PaymentLineItem, paymentFor string, overwrite bool, overwriteAmount string) error
}

// Outcome describes a trigger whose plan was resolved. Settlement is
// fire-and-continue: SettleErr only reports whether the request was accepted
// by the transport, not whether the purchase went through.
type Outcome struct {
	Plan      *models.PurchasePlan
	SettleErr error
}

// Submitted reports whether settlement was sent without error.
func (o *Outcome) Submitted() bool {
	return o != nil && o.SettleErr == nil
}

// Preview returns one line per item: name, code and price.
func (o *Outcome) Preview() []string {
	if o == nil || o.Plan == nil {
		return nil
	}
	lines := make([]string, 0, len(o.Plan.Items))
	for _, it := range o.Plan.Items {
		lines = append(lines, fmt.Sprintf("%s | code=%s | price=%d", it.ItemName, it.ItemCode, it.ItemPrice))
	}
	return lines
}

// ItemCodes joins the item codes of the plan.
func (o *Outcome) ItemCodes() string {
	if o == nil || o.Plan == nil {
		return ""
	}
	codes := make([]string, 0, len(o.Plan.Items))
	for _, it := range o.Plan.Items {
		codes = append(codes, it.ItemCode)
	}
	return strings.Join(codes, ",")
}

// Trigger resolves and settles an offer.
type Trigger struct {
	resolver Resolver
	settler  Settler
	sessions session.Provider
	notifier notify.Notifier
	apiKey   string
}

// NewTrigger creates a Trigger. notifier may be nil.
func NewTrigger(resolver Resolver, settler Settler, sessions session.Provider, apiKey string, notifier notify.Notifier) *Trigger {
	return &Trigger{
		resolver: resolver,
		settler:  settler,
		sessions: sessions,
		notifier: notifier,
		apiKey:   apiKey,
	}
}

// Fire resolves offerName and submits settlement with overwrite disabled.
// A resolve failure or an empty plan returns an error and nothing is paid;
// there is no retry within the call. A settlement failure is reported in the
// Outcome and does not produce an error.
func (t *Trigger) Fire(ctx context.Context, offerName string) (*Outcome, error) {
	plan, err := t.resolver.ResolveByName(ctx, offerName)
	if err != nil {
		logger.Warn("failed to prepare payment items", "offer", offerName, "error", err)
		return nil, fmt.Errorf("resolve %q: %w", offerName, err)
	}
	if plan == nil || len(plan.Items) == 0 {
		logger.Warn("failed to prepare payment items", "offer", offerName, "error", ErrNoItems)
		return nil, ErrNoItems
	}

	outcome := &Outcome{Plan: plan}
	logger.Info("purchasing offer", "offer", plan.SelectedName, "items", len(plan.Items), "total", plan.TotalPrice())
	for _, line := range outcome.Preview() {
		logger.Info("purchase item", "item", line)
	}

	res := session.Acquire(t.sessions)
	if err := res.Err(); err != nil {
		return nil, err
	}

	outcome.SettleErr = t.settler.Settle(ctx, t.apiKey, res.Tokens, plan.Items, plan.PaymentFor, false, "")
	if outcome.SettleErr != nil {
		logger.Error("settlement failed", "offer", plan.SelectedName, "error", outcome.SettleErr)
		notify.Send(t.notifier, "Auto payment failed", fmt.Sprintf("%s: %v", plan.SelectedName, outcome.SettleErr))
		return outcome, nil
	}

	logger.Info("settlement submitted", "offer", plan.SelectedName)
	notify.Send(t.notifier, "Auto payment submitted",
		fmt.Sprintf("%s (Rp %s)", plan.SelectedName, humanize.Comma(plan.TotalPrice())))
	return outcome, nil
}
