package quota

import (
	"fmt"
	"strings"

	"github.com/j-veylop/quota-autopay/internal/models"
)

const (
	mainBenefitName = "Kuota Utama"
	entryTotalName  = "Kuota"
)

var byteUnits = []string{"B", "KB", "MB", "GB", "TB"}

func benefitScore(b models.Benefit) int64 {
	var s int64
	name := strings.ToLower(b.Name)
	if strings.Contains(name, "utama") || strings.Contains(name, "main") || strings.Contains(name, "regular") {
		s += 3
	}
	if strings.ToUpper(b.DataType) == "DATA" {
		s += 2
	}
	if strings.Contains(strings.ToUpper(b.Category), "MAIN") {
		s += 2
	}
	s += b.Total / (1 << 20)
	return s
}

// SelectMain picks the benefit most likely to be the primary data pool. The
// highest score wins and the first occurrence breaks ties. An entry without
// benefits reports its own counters.
func SelectMain(entry models.QuotaEntry) models.MainBenefit {
	if len(entry.Benefits) == 0 {
		return models.MainBenefit{
			Name:      entryTotalName,
			Remaining: entry.Remaining,
			Total:     entry.Total,
		}
	}

	best := entry.Benefits[0]
	bestScore := benefitScore(best)
	for _, b := range entry.Benefits[1:] {
		if s := benefitScore(b); s > bestScore {
			best, bestScore = b, s
		}
	}

	name := best.Name
	if name == "" {
		name = mainBenefitName
	}
	return models.MainBenefit{Name: name, Remaining: best.Remaining, Total: best.Total}
}

// FormatBytes scales n by 1024 until it is below 1024 or reaches TB.
func FormatBytes(n int64) (float64, string) {
	v := float64(n)
	i := 0
	for v >= 1024 && i < len(byteUnits)-1 {
		v /= 1024
		i++
	}
	return v, byteUnits[i]
}

// FormatQuota renders "remaining / total". Values in MB and GB are both shown
// in GB so they compare at a glance.
func FormatQuota(remaining, total int64) string {
	rv, ru := FormatBytes(remaining)
	tv, tu := FormatBytes(total)
	if ru == tu {
		return fmt.Sprintf("%.2f %s / %.2f %s", rv, ru, tv, tu)
	}
	if isMBOrGB(ru) && isMBOrGB(tu) {
		const gb = 1 << 30
		return fmt.Sprintf("%.2f GB / %.2f GB", float64(remaining)/gb, float64(total)/gb)
	}
	return fmt.Sprintf("%.2f %s / %.2f %s", rv, ru, tv, tu)
}

func isMBOrGB(unit string) bool {
	return unit == "MB" || unit == "GB"
}
