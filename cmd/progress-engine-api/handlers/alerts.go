package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/sitelens-ai/sitelens/libs/progress-engine/internal/observability"
	"github.com/sitelens-ai/sitelens/libs/progress-engine/internal/storage"
)

// AlertHandler serves the alert workflow endpoints.
type AlertHandler struct {
	logger *observability.Logger
	alerts *storage.AlertRepository
}

// NewAlertHandler creates a new alert handler.
func NewAlertHandler(logger *observability.Logger, alerts *storage.AlertRepository) *AlertHandler {
	return &AlertHandler{logger: logger, alerts: alerts}
}

// AlertDTO represents a stored alert in API responses.
type AlertDTO struct {
	AlertID    string     `json:"alert_id"`
	AnalysisID string     `json:"analysis_id"`
	AlertType  string     `json:"alert_type"`
	Severity   string     `json:"severity"`
	Message    string     `json:"message"`
	ElementID  string     `json:"element_id,omitempty"`
	Resolved   bool       `json:"resolved"`
	ResolvedAt *time.Time `json:"resolved_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

// ListAlerts handles GET /projects/{projectId}/alerts. The open=true query
// parameter filters to unresolved alerts.
func (h *AlertHandler) ListAlerts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	projectID, err := uuid.Parse(chi.URLParam(r, "projectId"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid project id", err.Error())
		return
	}

	onlyOpen := r.URL.Query().Get("open") == "true"

	records, err := h.alerts.ListByProject(ctx, projectID, onlyOpen)
	if err != nil {
		h.logger.Error().Err(err).Msg("Alert listing failed")
		writeError(w, http.StatusInternalServerError, "alert listing failed", err.Error())
		return
	}

	alerts := make([]AlertDTO, 0, len(records))
	for _, rec := range records {
		alerts = append(alerts, AlertDTO{
			AlertID:    rec.ID.String(),
			AnalysisID: rec.AnalysisID.String(),
			AlertType:  rec.AlertType,
			Severity:   rec.Severity,
			Message:    rec.Message,
			ElementID:  rec.ElementID,
			Resolved:   rec.Resolved,
			ResolvedAt: rec.ResolvedAt,
			CreatedAt:  rec.CreatedAt,
		})
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"alerts": alerts})
}

// ResolveAlert handles POST /alerts/{alertId}/resolve.
func (h *AlertHandler) ResolveAlert(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	alertID, err := uuid.Parse(chi.URLParam(r, "alertId"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid alert id", err.Error())
		return
	}

	if err := h.alerts.Resolve(ctx, alertID); err != nil {
		if err == storage.ErrNotFound {
			writeError(w, http.StatusNotFound, "alert not found", "")
			return
		}
		h.logger.Error().Err(err).Msg("Alert resolution failed")
		writeError(w, http.StatusInternalServerError, "alert resolution failed", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "resolved"})
}
