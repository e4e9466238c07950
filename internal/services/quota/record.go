package quota

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/j-veylop/quota-autopay/internal/models"
)

// flexInt decodes integers that may arrive as numbers, numeric strings or null.
// Anything unparsable reads as zero.
type flexInt int64

func (f *flexInt) UnmarshalJSON(b []byte) error {
	s := strings.Trim(strings.TrimSpace(string(b)), `"`)
	if s == "" || s == "null" {
		*f = 0
		return nil
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		*f = flexInt(n)
		return nil
	}
	if v, err := strconv.ParseFloat(s, 64); err == nil {
		*f = flexInt(int64(v))
		return nil
	}
	*f = 0
	return nil
}

// rawBenefit accepts both spellings of the data type tag.
type rawBenefit struct {
	Name      string  `json:"name"`
	Category  string  `json:"category"`
	DataType  string  `json:"data_type"`
	DataTypeC string  `json:"dataType"`
	Remaining flexInt `json:"remaining"`
	Total     flexInt `json:"total"`
}

// rawEntry accepts both the current and legacy field names of a quota record.
type rawEntry struct {
	Name          string       `json:"name"`
	QuotaName     string       `json:"quota_name"`
	Code          string       `json:"code"`
	QuotaCode     string       `json:"quota_code"`
	GroupCode     string       `json:"group_code"`
	FamilyCode    string       `json:"family_code"`
	Benefits      []rawBenefit `json:"benefits"`
	QuotaBenefits []rawBenefit `json:"quota_benefits"`
	Remaining     flexInt      `json:"remaining"`
	Total         flexInt      `json:"total"`
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// ParseEntry converts one raw quota record into a QuotaEntry.
func ParseEntry(raw json.RawMessage) (models.QuotaEntry, error) {
	var r rawEntry
	if err := json.Unmarshal(raw, &r); err != nil {
		return models.QuotaEntry{}, fmt.Errorf("failed to parse quota record: %w", err)
	}

	benefits := r.Benefits
	if len(benefits) == 0 {
		benefits = r.QuotaBenefits
	}

	entry := models.QuotaEntry{
		Name:       firstNonEmpty(r.Name, r.QuotaName),
		Code:       firstNonEmpty(r.QuotaCode, r.Code),
		GroupCode:  r.GroupCode,
		FamilyCode: r.FamilyCode,
		Remaining:  int64(r.Remaining),
		Total:      int64(r.Total),
	}
	for _, b := range benefits {
		entry.Benefits = append(entry.Benefits, models.Benefit{
			Name:      b.Name,
			Category:  b.Category,
			DataType:  firstNonEmpty(b.DataType, b.DataTypeC),
			Remaining: int64(b.Remaining),
			Total:     int64(b.Total),
		})
	}
	return entry, nil
}

// ParseEntries converts raw records, keeping their order. Malformed records
// become empty entries so ordinals stay aligned with the API response.
func ParseEntries(raws []json.RawMessage) []models.QuotaEntry {
	entries := make([]models.QuotaEntry, 0, len(raws))
	for _, raw := range raws {
		entry, err := ParseEntry(raw)
		if err != nil {
			entry = models.QuotaEntry{}
		}
		entries = append(entries, entry)
	}
	return entries
}
