// Package quota fetches quota snapshots and interprets them.
package quota

import (
	"context"
	"encoding/json"

	"github.com/j-veylop/quota-autopay/internal/models"
	"github.com/j-veylop/quota-autopay/internal/services/session"
)

// Client is the subset of the billing API used for snapshots.
type Client interface {
	QuotaDetails(ctx context.Context, tokens models.TokenBundle) ([]json.RawMessage, error)
	Balance(ctx context.Context, tokens models.TokenBundle) (int64, error)
}

// Service fetches quota snapshots with a fresh session per call.
type Service struct {
	client   Client
	sessions session.Provider
}

// New creates a quota service.
func New(client Client, sessions session.Provider) *Service {
	return &Service{client: client, sessions: sessions}
}

// FetchQuotas returns the active quota entries of the account. It returns
// session.ErrExpired when there is no session; any other error means no data
// this cycle.
func (s *Service) FetchQuotas(ctx context.Context) ([]models.QuotaEntry, error) {
	res := session.Acquire(s.sessions)
	if err := res.Err(); err != nil {
		return nil, err
	}

	raws, err := s.client.QuotaDetails(ctx, res.Tokens)
	if err != nil {
		return nil, err
	}
	return ParseEntries(raws), nil
}

// FetchBalance returns the prepaid balance.
func (s *Service) FetchBalance(ctx context.Context) (int64, error) {
	res := session.Acquire(s.sessions)
	if err := res.Err(); err != nil {
		return 0, err
	}
	return s.client.Balance(ctx, res.Tokens)
}
