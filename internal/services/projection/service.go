// Package projection estimates when the watched quota will fall below the
// purchase threshold, from the polls of the current run.
package projection

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/j-veylop/quota-autopay/internal/logger"
	"github.com/j-veylop/quota-autopay/internal/models"
)

const (
	lowConfThreshold = 6
	medConfThreshold = 24

	// Polls further apart than this are not treated as continuous consumption.
	maxGap = 10 * time.Minute
	// Window of recent polls considered.
	pollWindow = 90

	warningHours = 6.0
)

// PollSource supplies recorded polls of a run, oldest first.
type PollSource interface {
	RecentPolls(runID string, limit int) ([]models.PollRecord, error)
}

// Service calculates and caches projections per run.
type Service struct {
	mu     sync.RWMutex
	source PollSource
	cache  map[string]*models.DepletionProjection
}

// New creates a projection service.
func New(source PollSource) *Service {
	return &Service{
		source: source,
		cache:  make(map[string]*models.DepletionProjection),
	}
}

// Calculate loads the recent polls of runID and estimates depletion against threshold bytes.
func (s *Service) Calculate(runID string, threshold int64, now time.Time) (*models.DepletionProjection, error) {
	polls, err := s.source.RecentPolls(runID, pollWindow)
	if err != nil {
		logger.Error("failed to load polls", "run", runID, "error", err)
		return nil, fmt.Errorf("failed to load polls: %w", err)
	}

	proj := Estimate(polls, threshold, now)

	s.mu.Lock()
	s.cache[runID] = proj
	s.mu.Unlock()

	return proj, nil
}

// Cached returns the last projection calculated for runID.
func (s *Service) Cached(runID string) *models.DepletionProjection {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cache[runID]
}

// Estimate derives the consumption rate from consecutive drops in remaining
// bytes. Increases are top-ups and are ignored, as are pairs separated by a
// long gap.
func Estimate(polls []models.PollRecord, threshold int64, now time.Time) *models.DepletionProjection {
	proj := &models.DepletionProjection{
		Status:     models.ProjectionUnknown,
		Confidence: confidence(len(polls)),
		DataPoints: len(polls),
		HoursLeft:  math.Inf(1),
	}
	if len(polls) == 0 {
		return proj
	}

	latest := polls[len(polls)-1]
	if latest.Remaining < threshold {
		proj.Status = models.ProjectionCritical
		proj.HoursLeft = 0
		proj.CrossAt = now
		return proj
	}
	if len(polls) < 2 {
		return proj
	}

	var consumed float64
	var elapsed time.Duration
	for i := 1; i < len(polls); i++ {
		gap := polls[i].Timestamp.Sub(polls[i-1].Timestamp)
		if gap <= 0 || gap > maxGap {
			continue
		}
		drop := polls[i-1].Remaining - polls[i].Remaining
		if drop < 0 {
			continue
		}
		consumed += float64(drop)
		elapsed += gap
	}

	if elapsed <= 0 {
		return proj
	}

	proj.RatePerHour = consumed / elapsed.Hours()
	if proj.RatePerHour <= 0 {
		proj.Status = models.ProjectionSafe
		return proj
	}

	proj.HoursLeft = float64(latest.Remaining-threshold) / proj.RatePerHour
	proj.CrossAt = now.Add(time.Duration(proj.HoursLeft * float64(time.Hour)))

	switch {
	case proj.HoursLeft < 1:
		proj.Status = models.ProjectionCritical
	case proj.HoursLeft < warningHours:
		proj.Status = models.ProjectionWarning
	default:
		proj.Status = models.ProjectionSafe
	}
	return proj
}

func confidence(dataPoints int) string {
	if dataPoints < lowConfThreshold {
		return "low"
	} else if dataPoints < medConfThreshold {
		return "medium"
	}
	return "high"
}
