package models

import "time"

// ProjectionStatus indicates how close the watched quota is to the threshold.
type ProjectionStatus string

const (
	ProjectionSafe     ProjectionStatus = "SAFE"
	ProjectionWarning  ProjectionStatus = "WARNING"
	ProjectionCritical ProjectionStatus = "CRITICAL"
	ProjectionUnknown  ProjectionStatus = "UNKNOWN"
)

// DepletionProjection estimates when the main benefit will cross the threshold.
type DepletionProjection struct {
	CrossAt     time.Time
	Status      ProjectionStatus
	Confidence  string  // "low", "medium", "high"
	RatePerHour float64 // bytes consumed per hour
	HoursLeft   float64
	DataPoints  int
}
