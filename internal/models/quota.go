// Package models defines data structures and domain types.
package models

import "fmt"

// Benefit is one allowance component inside a quota entry, e.g. main data or bonus data.
type Benefit struct {
	Name      string `json:"name"`
	Category  string `json:"category"`
	DataType  string `json:"dataType"`
	Remaining int64  `json:"remaining"`
	Total     int64  `json:"total"`
}

// QuotaEntry is one active package instance on the account. Entries are
// produced fresh on every poll and never mutated.
type QuotaEntry struct {
	Name       string    `json:"name"`
	Code       string    `json:"code"`
	GroupCode  string    `json:"groupCode,omitempty"`
	FamilyCode string    `json:"familyCode,omitempty"`
	Benefits   []Benefit `json:"benefits,omitempty"`

	// Remaining and Total are only meaningful for entries without benefits.
	Remaining int64 `json:"remaining,omitempty"`
	Total     int64 `json:"total,omitempty"`
}

// MainBenefit is the allowance judged to be the primary data pool of an entry.
type MainBenefit struct {
	Name      string
	Remaining int64
	Total     int64
}

// MonitorTarget identifies the entry being watched. It is captured once at
// setup and used for best-effort re-matching against fresh snapshots.
type MonitorTarget struct {
	Name       string
	Code       string
	FamilyCode string
	Ordinal    int // 1-based position in the snapshot at setup time
}

// TargetFromEntry captures an entry at the given 1-based position.
func TargetFromEntry(entry QuotaEntry, ordinal int) MonitorTarget {
	return MonitorTarget{
		Name:       entry.Name,
		Code:       entry.Code,
		FamilyCode: entry.FamilyCode,
		Ordinal:    ordinal,
	}
}

// MatchKind records how a target was located in a snapshot.
type MatchKind int

const (
	// MatchNone means the placeholder entry was used.
	MatchNone MatchKind = iota
	// MatchByName means the entry name matched exactly.
	MatchByName
	// MatchByCode means the quota code matched.
	MatchByCode
	// MatchByOrdinal means the captured position was used.
	MatchByOrdinal
)

// String returns the string representation of a MatchKind.
func (k MatchKind) String() string {
	switch k {
	case MatchByName:
		return "name"
	case MatchByCode:
		return "code"
	case MatchByOrdinal:
		return "ordinal"
	default:
		return "none"
	}
}

// Locate finds the target in entries by name, then code, then ordinal
// position. When every strategy fails it returns an empty placeholder entry,
// which reads as zero remaining.
func (t MonitorTarget) Locate(entries []QuotaEntry) (QuotaEntry, MatchKind) {
	if t.Name != "" {
		for _, e := range entries {
			if e.Name == t.Name {
				return e, MatchByName
			}
		}
	}
	if t.Code != "" {
		for _, e := range entries {
			if e.Code == t.Code {
				return e, MatchByCode
			}
		}
	}
	if idx := t.Ordinal - 1; idx >= 0 && idx < len(entries) {
		return entries[idx], MatchByOrdinal
	}
	return QuotaEntry{}, MatchNone
}

// Label returns the entry name, or a positional placeholder for unnamed entries.
func (e QuotaEntry) Label(ordinal int) string {
	if e.Name != "" {
		return e.Name
	}
	return fmt.Sprintf("Paket %d", ordinal)
}
