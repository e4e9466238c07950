package db

import (
	"context"
	"database/sql"
	"fmt"
	"slices"
	"time"

	"github.com/j-veylop/quota-autopay/internal/models"
)

const timeFormat = "2006-01-02 15:04:05"

// InsertPoll records one quota observation.
func (db *DB) InsertPoll(p *models.PollRecord) error {
	query := `
		INSERT INTO quota_polls (
			timestamp, run_id, entry_name, benefit_name, remaining, total,
			balance, threshold, status
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	timestamp := p.Timestamp
	if timestamp.IsZero() {
		timestamp = time.Now()
	}

	result, err := db.ExecContext(context.Background(), query,
		timestamp.UTC().Format(timeFormat),
		p.RunID,
		p.EntryName,
		p.BenefitName,
		p.Remaining,
		p.Total,
		p.Balance,
		p.Threshold,
		p.Status,
	)
	if err != nil {
		return fmt.Errorf("failed to insert poll: %w", err)
	}

	id, err := result.LastInsertId()
	if err == nil {
		p.ID = id
	}

	return nil
}

// RecentPolls returns up to limit polls of a run, oldest first.
func (db *DB) RecentPolls(runID string, limit int) ([]models.PollRecord, error) {
	query := `
		SELECT id, timestamp, run_id, entry_name, benefit_name, remaining,
			   total, balance, threshold, status
		FROM quota_polls
		WHERE run_id = ?
		ORDER BY timestamp DESC, id DESC
		LIMIT ?
	`

	rows, err := db.QueryContext(context.Background(), query, runID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query polls: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var polls []models.PollRecord
	for rows.Next() {
		var p models.PollRecord
		if err := rows.Scan(
			&p.ID,
			&p.Timestamp,
			&p.RunID,
			&p.EntryName,
			&p.BenefitName,
			&p.Remaining,
			&p.Total,
			&p.Balance,
			&p.Threshold,
			&p.Status,
		); err != nil {
			return nil, fmt.Errorf("failed to scan poll: %w", err)
		}
		polls = append(polls, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Oldest first
	slices.Reverse(polls)
	return polls, nil
}

// InsertPurchase records one trigger attempt.
func (db *DB) InsertPurchase(p *models.PurchaseRecord) error {
	query := `
		INSERT INTO purchases (
			timestamp, run_id, mode, offer_name, item_codes, item_count,
			total_price, status, error
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	timestamp := p.Timestamp
	if timestamp.IsZero() {
		timestamp = time.Now()
	}

	result, err := db.ExecContext(context.Background(), query,
		timestamp.UTC().Format(timeFormat),
		p.RunID,
		p.Mode,
		p.OfferName,
		p.ItemCodes,
		p.ItemCount,
		p.TotalPrice,
		string(p.Status),
		nullString(p.Error),
	)
	if err != nil {
		return fmt.Errorf("failed to insert purchase: %w", err)
	}

	id, err := result.LastInsertId()
	if err == nil {
		p.ID = id
	}

	return nil
}

// RecentPurchases returns the most recent trigger attempts, newest first.
func (db *DB) RecentPurchases(limit int) ([]models.PurchaseRecord, error) {
	query := `
		SELECT id, timestamp, run_id, mode, offer_name, item_codes, item_count,
			   total_price, status, error
		FROM purchases
		ORDER BY timestamp DESC, id DESC
		LIMIT ?
	`

	rows, err := db.QueryContext(context.Background(), query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query purchases: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var purchases []models.PurchaseRecord
	for rows.Next() {
		var p models.PurchaseRecord
		var status string
		var errStr sql.NullString

		if err := rows.Scan(
			&p.ID,
			&p.Timestamp,
			&p.RunID,
			&p.Mode,
			&p.OfferName,
			&p.ItemCodes,
			&p.ItemCount,
			&p.TotalPrice,
			&status,
			&errStr,
		); err != nil {
			return nil, fmt.Errorf("failed to scan purchase: %w", err)
		}
		p.Status = models.PurchaseStatus(status)
		p.Error = errStr.String
		purchases = append(purchases, p)
	}

	return purchases, rows.Err()
}

// PurchaseStats summarises submitted purchases since a point in time.
type PurchaseStats struct {
	Count      int
	TotalSpent int64
}

// SubmittedSince returns the number and value of submitted purchases since t.
func (db *DB) SubmittedSince(t time.Time) (*PurchaseStats, error) {
	query := `
		SELECT COUNT(*), COALESCE(SUM(total_price), 0)
		FROM purchases
		WHERE status = ? AND timestamp >= ?
	`

	var stats PurchaseStats
	err := db.QueryRowContext(context.Background(), query,
		string(models.PurchaseSubmitted), t.UTC().Format(timeFormat),
	).Scan(&stats.Count, &stats.TotalSpent)
	if err != nil {
		return nil, fmt.Errorf("failed to query purchase stats: %w", err)
	}
	return &stats, nil
}

// PurgePollsBefore deletes polls older than t and returns the number removed.
func (db *DB) PurgePollsBefore(t time.Time) (int64, error) {
	result, err := db.ExecContext(context.Background(),
		"DELETE FROM quota_polls WHERE timestamp < ?", t.UTC().Format(timeFormat))
	if err != nil {
		return 0, fmt.Errorf("failed to purge polls: %w", err)
	}
	return result.RowsAffected()
}

// nullString returns a sql.NullString from a string.
func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
