package storage

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound marks a lookup that matched no record.
var ErrNotFound = errors.New("record not found")

// DB represents a database connection interface.
type DB interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// ProjectRepository handles project CRUD operations.
type ProjectRepository struct {
	db DB
}

// NewProjectRepository creates a new project repository.
func NewProjectRepository(db DB) *ProjectRepository {
	return &ProjectRepository{db: db}
}

// Create creates a new project.
func (r *ProjectRepository) Create(ctx context.Context, project *Project) error {
	if project.ID == uuid.Nil {
		project.ID = uuid.New()
	}
	project.CreatedAt = time.Now()
	project.UpdatedAt = project.CreatedAt

	query := `
		INSERT INTO projects (id, name, total_elements, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := r.db.ExecContext(ctx, query,
		project.ID.String(), project.Name, project.TotalElements,
		project.CreatedAt, project.UpdatedAt,
	)
	return err
}

// GetByID retrieves a project by ID.
func (r *ProjectRepository) GetByID(ctx context.Context, id uuid.UUID) (*Project, error) {
	query := `
		SELECT id, name, total_elements, created_at, updated_at
		FROM projects WHERE id = $1
	`
	project := &Project{}
	var rawID string
	err := r.db.QueryRowContext(ctx, query, id.String()).Scan(
		&rawID, &project.Name, &project.TotalElements,
		&project.CreatedAt, &project.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	project.ID, err = uuid.Parse(rawID)
	return project, err
}

// UpdateTotalElements records the catalog size after ingestion.
func (r *ProjectRepository) UpdateTotalElements(ctx context.Context, id uuid.UUID, total int) error {
	query := `UPDATE projects SET total_elements = $1, updated_at = $2 WHERE id = $3`
	res, err := r.db.ExecContext(ctx, query, total, time.Now(), id.String())
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// AnalysisRepository handles persisted analyses.
type AnalysisRepository struct {
	db DB
}

// NewAnalysisRepository creates a new analysis repository.
func NewAnalysisRepository(db DB) *AnalysisRepository {
	return &AnalysisRepository{db: db}
}

// Create persists one analysis.
func (r *AnalysisRepository) Create(ctx context.Context, a *Analysis) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	a.CreatedAt = time.Now()
	if a.AnalyzedAt.IsZero() {
		a.AnalyzedAt = a.CreatedAt
	}

	query := `
		INSERT INTO analyses (id, project_id, description, overall_progress,
			confidence_score, degraded, detected_elements, comparison,
			analyzed_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := r.db.ExecContext(ctx, query,
		a.ID.String(), a.ProjectID.String(), a.Description, a.OverallProgress,
		a.ConfidenceScore, a.Degraded, string(a.DetectedElements), nullableJSON(a.Comparison),
		a.AnalyzedAt, a.CreatedAt,
	)
	return err
}

// GetByID retrieves one analysis.
func (r *AnalysisRepository) GetByID(ctx context.Context, id uuid.UUID) (*Analysis, error) {
	query := `
		SELECT id, project_id, description, overall_progress, confidence_score,
			degraded, detected_elements, comparison, analyzed_at, created_at
		FROM analyses WHERE id = $1
	`
	return r.scanOne(r.db.QueryRowContext(ctx, query, id.String()))
}

// MostRecent returns the latest analysis for a project by analysis time.
func (r *AnalysisRepository) MostRecent(ctx context.Context, projectID uuid.UUID) (*Analysis, error) {
	query := `
		SELECT id, project_id, description, overall_progress, confidence_score,
			degraded, detected_elements, comparison, analyzed_at, created_at
		FROM analyses
		WHERE project_id = $1
		ORDER BY analyzed_at DESC
		LIMIT 1
	`
	return r.scanOne(r.db.QueryRowContext(ctx, query, projectID.String()))
}

// ListByProject returns analyses newest first, up to limit.
func (r *AnalysisRepository) ListByProject(ctx context.Context, projectID uuid.UUID, limit int) ([]*Analysis, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT id, project_id, description, overall_progress, confidence_score,
			degraded, detected_elements, comparison, analyzed_at, created_at
		FROM analyses
		WHERE project_id = $1
		ORDER BY analyzed_at DESC
		LIMIT $2
	`
	rows, err := r.db.QueryContext(ctx, query, projectID.String(), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var analyses []*Analysis
	for rows.Next() {
		a, err := scanAnalysis(rows.Scan)
		if err != nil {
			return nil, err
		}
		analyses = append(analyses, a)
	}
	return analyses, rows.Err()
}

func (r *AnalysisRepository) scanOne(row *sql.Row) (*Analysis, error) {
	a, err := scanAnalysis(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return a, err
}

func scanAnalysis(scan func(dest ...interface{}) error) (*Analysis, error) {
	a := &Analysis{}
	var rawID, rawProjectID, detected string
	var comparisonJSON sql.NullString

	err := scan(
		&rawID, &rawProjectID, &a.Description, &a.OverallProgress,
		&a.ConfidenceScore, &a.Degraded, &detected, &comparisonJSON,
		&a.AnalyzedAt, &a.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if a.ID, err = uuid.Parse(rawID); err != nil {
		return nil, err
	}
	if a.ProjectID, err = uuid.Parse(rawProjectID); err != nil {
		return nil, err
	}

	a.DetectedElements = []byte(detected)
	if comparisonJSON.Valid {
		a.Comparison = []byte(comparisonJSON.String)
	}

	return a, nil
}

func nullableJSON(raw []byte) interface{} {
	if len(raw) == 0 {
		return nil
	}
	return string(raw)
}

// AlertRepository handles persisted alerts.
type AlertRepository struct {
	db DB
}

// NewAlertRepository creates a new alert repository.
func NewAlertRepository(db DB) *AlertRepository {
	return &AlertRepository{db: db}
}

// CreateBatch persists every alert of an analysis.
func (r *AlertRepository) CreateBatch(ctx context.Context, alerts []*AlertRecord) error {
	query := `
		INSERT INTO alerts (id, project_id, analysis_id, alert_type, severity,
			message, element_id, resolved, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	now := time.Now()
	for _, a := range alerts {
		if a.ID == uuid.Nil {
			a.ID = uuid.New()
		}
		a.CreatedAt = now

		_, err := r.db.ExecContext(ctx, query,
			a.ID.String(), a.ProjectID.String(), a.AnalysisID.String(),
			a.AlertType, a.Severity, a.Message, a.ElementID, a.Resolved, a.CreatedAt,
		)
		if err != nil {
			return err
		}
	}
	return nil
}

// ListByProject returns a project's alerts, newest first. With onlyOpen set
// the resolved ones are filtered out.
func (r *AlertRepository) ListByProject(ctx context.Context, projectID uuid.UUID, onlyOpen bool) ([]*AlertRecord, error) {
	query := `
		SELECT id, project_id, analysis_id, alert_type, severity, message,
			element_id, resolved, resolved_at, created_at
		FROM alerts
		WHERE project_id = $1
	`
	if onlyOpen {
		query += ` AND resolved = FALSE`
	}
	query += ` ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, projectID.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var alerts []*AlertRecord
	for rows.Next() {
		a := &AlertRecord{}
		var rawID, rawProjectID, rawAnalysisID string
		var resolvedAt sql.NullTime

		err := rows.Scan(
			&rawID, &rawProjectID, &rawAnalysisID, &a.AlertType, &a.Severity,
			&a.Message, &a.ElementID, &a.Resolved, &resolvedAt, &a.CreatedAt,
		)
		if err != nil {
			return nil, err
		}

		if a.ID, err = uuid.Parse(rawID); err != nil {
			return nil, err
		}
		if a.ProjectID, err = uuid.Parse(rawProjectID); err != nil {
			return nil, err
		}
		if a.AnalysisID, err = uuid.Parse(rawAnalysisID); err != nil {
			return nil, err
		}
		if resolvedAt.Valid {
			t := resolvedAt.Time
			a.ResolvedAt = &t
		}

		alerts = append(alerts, a)
	}
	return alerts, rows.Err()
}

// Resolve marks one alert as handled.
func (r *AlertRepository) Resolve(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE alerts SET resolved = TRUE, resolved_at = $1 WHERE id = $2`
	res, err := r.db.ExecContext(ctx, query, time.Now(), id.String())
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}
