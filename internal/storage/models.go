// Package storage provides database models and repositories for the
// progress engine.
package storage

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Project is a construction project with an ingested element catalog.
type Project struct {
	ID            uuid.UUID
	Name          string
	TotalElements int
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Analysis is one persisted analysis run. DetectedElements and Comparison
// are stored as JSON; they are read back whole, never queried by field.
type Analysis struct {
	ID               uuid.UUID
	ProjectID        uuid.UUID
	Description      string
	OverallProgress  float64
	ConfidenceScore  float64
	Degraded         bool
	DetectedElements json.RawMessage
	Comparison       json.RawMessage
	AnalyzedAt       time.Time
	CreatedAt        time.Time
}

// AlertRecord is a persisted construction alert with its workflow state.
type AlertRecord struct {
	ID         uuid.UUID
	ProjectID  uuid.UUID
	AnalysisID uuid.UUID
	AlertType  string
	Severity   string
	Message    string
	ElementID  string
	Resolved   bool
	ResolvedAt *time.Time
	CreatedAt  time.Time
}
