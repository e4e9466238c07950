package models

import "time"

// PollRecord is one quota observation made by a monitoring run (DB model).
type PollRecord struct {
	Timestamp   time.Time
	RunID       string
	EntryName   string
	BenefitName string
	Status      string
	ID          int64
	Remaining   int64
	Total       int64
	Balance     int64
	Threshold   int64
}
