// Package engine provides the public Go SDK for the Progress Engine API.
package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// Client is the public SDK client for the Progress Engine.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

// ClientConfig holds client configuration.
type ClientConfig struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// NewClient creates a new Progress Engine client.
func NewClient(cfg ClientConfig) (*Client, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "http://localhost:8087"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}

	return &Client{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		http:    &http.Client{Timeout: cfg.Timeout},
	}, nil
}

// Element is one catalog element to match against.
type Element struct {
	ElementID   string            `json:"element_id"`
	ElementType string            `json:"element_type"`
	Name        string            `json:"name"`
	Description string            `json:"description,omitempty"`
	Level       string            `json:"level,omitempty"`
	Materials   []string          `json:"materials,omitempty"`
	Properties  map[string]string `json:"properties,omitempty"`
}

// DetectedElement is one element found in an analyzed image.
type DetectedElement struct {
	ElementID   string  `json:"element_id"`
	ElementType string  `json:"element_type"`
	ElementName string  `json:"element_name"`
	Status      string  `json:"status"`
	Confidence  float64 `json:"confidence"`
	Source      string  `json:"source"`
	Description string  `json:"description,omitempty"`
	Deviation   string  `json:"deviation,omitempty"`
}

// ProgressMetrics summarizes detection counts and weighted progress.
type ProgressMetrics struct {
	OverallProgress float64 `json:"overall_progress"`
	TotalElements   int     `json:"total_elements"`
	DetectedCount   int     `json:"detected_count"`
	CompletedCount  int     `json:"completed_count"`
	InProgressCount int     `json:"in_progress_count"`
	NotStartedCount int     `json:"not_started_count"`
}

// Alert is one generated construction alert.
type Alert struct {
	AlertID   string `json:"alert_id"`
	AlertType string `json:"alert_type"`
	Severity  string `json:"severity"`
	Message   string `json:"message"`
	ElementID string `json:"element_id,omitempty"`
}

// StatusChange records one element whose status moved between analyses.
type StatusChange struct {
	ElementID      string `json:"element_id"`
	ElementType    string `json:"element_type,omitempty"`
	PreviousStatus string `json:"previous_status"`
	CurrentStatus  string `json:"current_status"`
}

// Comparison is the temporal diff against the previous analysis.
type Comparison struct {
	PreviousAnalysisID string         `json:"previous_analysis_id"`
	ProgressChange     float64        `json:"progress_change"`
	ElementsAdded      []string       `json:"elements_added,omitempty"`
	ElementsRemoved    []string       `json:"elements_removed,omitempty"`
	StatusChanges      []StatusChange `json:"status_changes,omitempty"`
	DaysBetween        float64        `json:"days_between"`
	Velocity           *float64       `json:"velocity,omitempty"`
}

// AnalyzeRequest is one image analysis request.
type AnalyzeRequest struct {
	ProjectID        string    `json:"project_id"`
	ImageBase64      string    `json:"image_base64,omitempty"`
	ImageEmbedding   []float32 `json:"image_embedding,omitempty"`
	Description      string    `json:"description,omitempty"`
	Elements         []Element `json:"elements"`
	TargetElementIDs []string  `json:"target_element_ids,omitempty"`
}

// AnalyzeResponse is the engine's output for one image.
type AnalyzeResponse struct {
	AnalysisID           string            `json:"analysis_id"`
	ProjectID            string            `json:"project_id"`
	Description          string            `json:"description,omitempty"`
	DetectedElements     []DetectedElement `json:"detected_elements"`
	Progress             ProgressMetrics   `json:"progress"`
	Alerts               []Alert           `json:"alerts,omitempty"`
	Comparison           *Comparison       `json:"comparison,omitempty"`
	ConfidenceScore      float64           `json:"confidence_score"`
	CrossModalSimilarity float64           `json:"cross_modal_similarity"`
	Degraded             bool              `json:"degraded"`
	AnalyzedAt           time.Time         `json:"analyzed_at"`
	ProcessingMS         int64             `json:"processing_ms"`
}

// Analyze runs one image analysis.
func (c *Client) Analyze(ctx context.Context, req AnalyzeRequest) (*AnalyzeResponse, error) {
	var resp AnalyzeResponse
	if err := c.doJSON(ctx, http.MethodPost, "/api/v1/analysis/analyze", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// BatchItem is one slot of a batch response, in request order.
type BatchItem struct {
	Index  int              `json:"index"`
	Result *AnalyzeResponse `json:"result,omitempty"`
	Error  string           `json:"error,omitempty"`
}

// AnalyzeBatch runs several analyses in one request.
func (c *Client) AnalyzeBatch(ctx context.Context, reqs []AnalyzeRequest) ([]BatchItem, error) {
	body := map[string]interface{}{"requests": reqs}
	var resp struct {
		Results []BatchItem `json:"results"`
	}
	if err := c.doJSON(ctx, http.MethodPost, "/api/v1/analysis/batch", body, &resp); err != nil {
		return nil, err
	}
	return resp.Results, nil
}

// Project is a construction project.
type Project struct {
	ProjectID     string `json:"project_id"`
	Name          string `json:"name"`
	TotalElements int    `json:"total_elements"`
}

// CreateProject registers a new project.
func (c *Client) CreateProject(ctx context.Context, name string) (*Project, error) {
	var resp Project
	err := c.doJSON(ctx, http.MethodPost, "/api/v1/projects", map[string]string{"name": name}, &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// IngestResult reports how much of a submitted catalog was indexed.
type IngestResult struct {
	ProjectID        string `json:"project_id"`
	ReceivedElements int    `json:"received_elements"`
	IndexedElements  int    `json:"indexed_elements"`
}

// IngestCatalog uploads and indexes a project's element catalog.
func (c *Client) IngestCatalog(ctx context.Context, projectID string, elements []Element) (*IngestResult, error) {
	body := map[string]interface{}{"elements": elements}
	var resp IngestResult
	path := fmt.Sprintf("/api/v1/projects/%s/catalog", url.PathEscape(projectID))
	if err := c.doJSON(ctx, http.MethodPost, path, body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// StoredAlert is a persisted alert with its workflow state.
type StoredAlert struct {
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

// ListAlerts returns a project's alerts. With onlyOpen the resolved ones are
// filtered out.
func (c *Client) ListAlerts(ctx context.Context, projectID string, onlyOpen bool) ([]StoredAlert, error) {
	path := fmt.Sprintf("/api/v1/projects/%s/alerts", url.PathEscape(projectID))
	if onlyOpen {
		path += "?open=true"
	}
	var resp struct {
		Alerts []StoredAlert `json:"alerts"`
	}
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Alerts, nil
}

// ResolveAlert marks one alert as handled.
func (c *Client) ResolveAlert(ctx context.Context, alertID string) error {
	path := fmt.Sprintf("/api/v1/alerts/%s/resolve", url.PathEscape(alertID))
	return c.doJSON(ctx, http.MethodPost, path, nil, nil)
}

// AnalysisSummary is one stored analysis in list responses.
type AnalysisSummary struct {
	AnalysisID      string    `json:"analysis_id"`
	OverallProgress float64   `json:"overall_progress"`
	ConfidenceScore float64   `json:"confidence_score"`
	Degraded        bool      `json:"degraded"`
	AnalyzedAt      time.Time `json:"analyzed_at"`
}

// ListAnalyses returns a project's stored analyses, newest first.
func (c *Client) ListAnalyses(ctx context.Context, projectID string, limit int) ([]AnalysisSummary, error) {
	path := fmt.Sprintf("/api/v1/projects/%s/analyses", url.PathEscape(projectID))
	if limit > 0 {
		path += fmt.Sprintf("?limit=%d", limit)
	}
	var resp struct {
		Analyses []AnalysisSummary `json:"analyses"`
	}
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Analyses, nil
}

// CompareResult pairs the compared analysis IDs with their temporal diff.
type CompareResult struct {
	From       string      `json:"from"`
	To         string      `json:"to"`
	Comparison *Comparison `json:"comparison"`
}

// Compare recomputes the temporal comparison between two stored analyses.
// Empty from/to compares the project's two most recent analyses.
func (c *Client) Compare(ctx context.Context, projectID, from, to string) (*CompareResult, error) {
	path := fmt.Sprintf("/api/v1/projects/%s/compare", url.PathEscape(projectID))
	if from != "" && to != "" {
		path += fmt.Sprintf("?from=%s&to=%s", url.QueryEscape(from), url.QueryEscape(to))
	}
	var resp CompareResult
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Health checks the service health.
func (c *Client) Health(ctx context.Context) error {
	return c.doJSON(ctx, http.MethodGet, "/health", nil, nil)
}

// APIError is a non-2xx response from the service.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("progress engine: %d %s", e.StatusCode, e.Message)
}

func (c *Client) doJSON(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var apiErr struct {
			Error string `json:"error"`
		}
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		if err := json.Unmarshal(data, &apiErr); err != nil || apiErr.Error == "" {
			apiErr.Error = http.StatusText(resp.StatusCode)
		}
		return &APIError{StatusCode: resp.StatusCode, Message: apiErr.Error}
	}

	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
