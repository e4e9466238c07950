// Package connectivity decides whether the network is usable before any
// network-dependent step and waits for it to come back when it is not.
package connectivity

import (
	"context"
	"net/http"
	"time"

	"github.com/j-veylop/quota-autopay/internal/clock"
	"github.com/j-veylop/quota-autopay/internal/logger"
)

// Gate probes a fixed list of endpoints.
type Gate struct {
	client *http.Client
	clock  clock.Clock
	urls   []string
}

// New creates a Gate probing urls in order with the given per-request timeout.
func New(urls []string, timeout time.Duration, clk clock.Clock) *Gate {
	if clk == nil {
		clk = clock.Real{}
	}
	return &Gate{
		client: &http.Client{Timeout: timeout},
		clock:  clk,
		urls:   urls,
	}
}

// SetHTTPClient replaces the probe client.
func (g *Gate) SetHTTPClient(client *http.Client) {
	g.client = client
}

// IsReachable reports whether any probe endpoint answers 200 or 204.
// Endpoints are tried in order; a failing one falls through to the next.
func (g *Gate) IsReachable(ctx context.Context) bool {
	for _, u := range g.urls {
		if ctx.Err() != nil {
			return false
		}
		if g.probe(ctx, u) {
			return true
		}
	}
	return false
}

func (g *Gate) probe(ctx context.Context, u string) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		logger.Debug("invalid probe url", "url", u, "error", err)
		return false
	}

	resp, err := g.client.Do(req)
	if err != nil {
		logger.Debug("probe failed", "url", u, "error", err)
		return false
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			logger.Error("failed to close response body", "error", err)
		}
	}()

	return resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusNoContent
}

// AwaitRecovery probes until the network is reachable, waiting interval
// between attempts in one-second steps. It returns false once ctx is cancelled.
func (g *Gate) AwaitRecovery(ctx context.Context, interval time.Duration) bool {
	logger.Warn("network unreachable, waiting for recovery")
	for {
		if ctx.Err() != nil {
			return false
		}
		if g.IsReachable(ctx) {
			logger.Info("network recovered")
			return true
		}
		if !clock.Sleep(ctx, g.clock, interval) {
			return false
		}
	}
}

// Ensure probes once and only waits for recovery on failure. onOffline, when
// set, is called before the wait starts.
func (g *Gate) Ensure(ctx context.Context, interval time.Duration, onOffline func()) bool {
	if ctx.Err() != nil {
		return false
	}
	if g.IsReachable(ctx) {
		return true
	}
	if onOffline != nil {
		onOffline()
	}
	return g.AwaitRecovery(ctx, interval)
}
