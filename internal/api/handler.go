package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/disputegrid/kestrel/internal/classify"
	"github.com/disputegrid/kestrel/internal/domain"
	"github.com/disputegrid/kestrel/internal/pipeline"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// Handler holds dependencies for API handlers.
type Handler struct {
	repo     domain.Repository
	cache    domain.Cache
	bus      domain.EventBus
	pipeline *pipeline.Pipeline
	version  string
}

// NewHandler creates a new API handler.
func NewHandler(repo domain.Repository, cache domain.Cache, bus domain.EventBus, p *pipeline.Pipeline, version string) *Handler {
	return &Handler{
		repo:     repo,
		cache:    cache,
		bus:      bus,
		pipeline: p,
		version:  version,
	}
}

// GlobalTenantID is used for rules and lexicons that apply to all tenants.
const GlobalTenantID = "*"

// analysisCacheTTL is how long completed analyses stay cached for re-reads.
const analysisCacheTTL = time.Hour

// AnalyzeRequest is the request body for POST /analyze.
type AnalyzeRequest struct {
	// BatchID identifies the batch for caching and later retrieval. Generated
	// when omitted.
	BatchID string `json:"batchId,omitempty"`

	// Accounts are the raw per-bureau records to reconcile.
	Accounts []domain.AccountRecord `json:"accounts"`

	// Async queues the batch for the worker instead of analyzing inline.
	Async bool `json:"async,omitempty"`
}

// Analyze handles POST /analyze requests.
func (h *Handler) Analyze(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := GetTenantID(ctx)
	traceID := GetTraceID(ctx)

	var req AnalyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid JSON request body",
		})
		return
	}

	if len(req.Accounts) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "accounts are required",
		})
		return
	}

	batchID := req.BatchID
	if batchID == "" {
		batchID = uuid.New().String()
	}

	// Persist the raw batch so async workers and reprocessing can reach it.
	if h.repo != nil {
		batch := &domain.Batch{
			ID:        batchID,
			TenantID:  tenantID,
			Accounts:  req.Accounts,
			CreatedAt: time.Now().UTC(),
		}
		if err := h.repo.SaveBatch(ctx, tenantID, batch); err != nil {
			slog.Error("failed to save batch", "batch_id", batchID, "error", err)
		}
	}

	if req.Async {
		if h.bus == nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"error": "async processing not available",
			})
			return
		}

		payload, _ := json.Marshal(map[string]string{
			"batchId":  batchID,
			"tenantId": tenantID,
			"traceId":  traceID,
		})
		if err := h.bus.Publish(ctx, tenantID, domain.TopicBatchIngested, payload); err != nil {
			slog.Error("failed to queue batch", "batch_id", batchID, "error", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{
				"error": "failed to queue batch",
			})
			return
		}

		writeJSON(w, http.StatusAccepted, map[string]string{
			"batchId": batchID,
			"status":  "queued",
		})
		return
	}

	analysis := h.pipeline.Analyze(ctx, req.Accounts)
	analysis.TenantID = tenantID
	analysis.BatchID = batchID
	analysis.Metadata.TraceID = traceID

	if h.repo != nil {
		if err := h.repo.SaveAnalysis(ctx, tenantID, analysis); err != nil {
			slog.Error("failed to save analysis", "analysis_id", analysis.ID, "error", err)
		}
	}

	if h.cache != nil {
		if err := h.cache.SetAnalysis(ctx, tenantID, batchID, analysis, analysisCacheTTL); err != nil {
			slog.Warn("failed to cache analysis", "batch_id", batchID, "error", err)
		}
	}

	if h.bus != nil {
		if payload, err := json.Marshal(analysis); err == nil {
			if err := h.bus.Publish(ctx, tenantID, domain.TopicAnalysisCompleted, payload); err != nil {
				slog.Warn("failed to publish analysis", "batch_id", batchID, "error", err)
			}
			if len(analysis.RoundOneTargets) > 0 {
				if err := h.bus.Publish(ctx, tenantID, domain.TopicDisputeShortlist, payload); err != nil {
					slog.Warn("failed to publish shortlist", "batch_id", batchID, "error", err)
				}
			}
		}
	}

	writeJSON(w, http.StatusOK, analysis)
}

// Health returns server health status.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	status := "healthy"

	// Check repository health
	if h.repo != nil {
		if err := h.repo.Ping(r.Context()); err != nil {
			status = "degraded"
		}
	}

	// Check cache health
	if h.cache != nil {
		if err := h.cache.Ping(r.Context()); err != nil {
			status = "degraded"
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status":  status,
		"version": h.version,
	})
}

// Ready returns whether the server is ready to accept traffic.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"ready": "true",
	})
}

// GetAnalysis retrieves an analysis by ID.
func (h *Handler) GetAnalysis(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := GetTenantID(ctx)
	analysisID := chi.URLParam(r, "id")

	if analysisID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "analysis id is required",
		})
		return
	}

	if h.repo == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error": "repository not available",
		})
		return
	}

	analysis, err := h.repo.GetAnalysis(ctx, tenantID, analysisID)
	if err != nil {
		slog.Error("failed to get analysis", "id", analysisID, "error", err)
		writeJSON(w, http.StatusNotFound, map[string]string{
			"error": "analysis not found",
		})
		return
	}

	writeJSON(w, http.StatusOK, analysis)
}

// GetAnalysisByBatch retrieves the latest analysis for a batch, checking the
// cache before the repository.
func (h *Handler) GetAnalysisByBatch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := GetTenantID(ctx)
	batchID := chi.URLParam(r, "id")

	if batchID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "batch id is required",
		})
		return
	}

	if h.cache != nil {
		analysis, err := h.cache.GetAnalysis(ctx, tenantID, batchID)
		if err != nil {
			slog.Warn("analysis cache read failed", "batch_id", batchID, "error", err)
		}
		if analysis != nil {
			writeJSON(w, http.StatusOK, analysis)
			return
		}
	}

	if h.repo == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error": "repository not available",
		})
		return
	}

	analysis, err := h.repo.GetAnalysisByBatch(ctx, tenantID, batchID)
	if err != nil {
		slog.Error("failed to get analysis by batch", "batch_id", batchID, "error", err)
		writeJSON(w, http.StatusNotFound, map[string]string{
			"error": "analysis not found",
		})
		return
	}

	if h.cache != nil {
		_ = h.cache.SetAnalysis(ctx, tenantID, batchID, analysis, analysisCacheTTL)
	}

	writeJSON(w, http.StatusOK, analysis)
}

// ListRules returns all custom conflict rules loaded in the engine.
// Rules are loaded from the database at startup and can be reloaded via POST /rules/reload.
func (h *Handler) ListRules(w http.ResponseWriter, r *http.Request) {
	engine := h.pipeline.CustomRules()
	if engine == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error": "rule engine not available",
		})
		return
	}

	loadedRules := engine.Rules()

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"rules":  loadedRules,
		"count":  len(loadedRules),
		"source": "database",
	})
}

// GetRule retrieves a custom conflict rule by ID from the loaded engine rules.
func (h *Handler) GetRule(w http.ResponseWriter, r *http.Request) {
	ruleID := chi.URLParam(r, "id")

	if ruleID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "rule id is required",
		})
		return
	}

	engine := h.pipeline.CustomRules()
	if engine == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error": "rule engine not available",
		})
		return
	}

	for _, rule := range engine.Rules() {
		if rule.ID == ruleID {
			writeJSON(w, http.StatusOK, rule)
			return
		}
	}

	writeJSON(w, http.StatusNotFound, map[string]string{
		"error": "rule not found",
	})
}

// CreateRuleRequest is the request body for creating a custom conflict rule.
type CreateRuleRequest struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Expression  string `json:"expression"`
	Severity    int    `json:"severity"`
	Enabled     bool   `json:"enabled"`
}

// CreateRule creates a new custom conflict rule and saves it to the database.
// Rules are saved globally (tenant_id = "*") so they apply to all tenants.
// After saving, call POST /rules/reload to hot-reload into the engine.
func (h *Handler) CreateRule(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req CreateRuleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid JSON request body",
		})
		return
	}

	// Validate
	if req.ID == "" || req.Name == "" || req.Expression == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "id, name, and expression are required",
		})
		return
	}

	engine := h.pipeline.CustomRules()
	if engine == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error": "rule engine not available",
		})
		return
	}

	rule := &domain.ConflictRule{
		ID:          req.ID,
		TenantID:    GlobalTenantID,
		Name:        req.Name,
		Description: req.Description,
		Version:     "1.0.0",
		Expression:  req.Expression,
		Severity:    req.Severity,
		Enabled:     req.Enabled,
	}

	// Validate CEL expression by attempting to compile
	if err := engine.ValidateRule(rule); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid CEL expression: " + err.Error(),
		})
		return
	}

	// Persist to repository (global tenant ID)
	if h.repo != nil {
		if err := h.repo.SaveConflictRule(ctx, GlobalTenantID, rule); err != nil {
			slog.Error("failed to save conflict rule", "id", rule.ID, "error", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{
				"error": "failed to save rule",
			})
			return
		}
	}

	slog.Info("conflict rule created", "id", rule.ID, "name", rule.Name)
	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"rule":    rule,
		"message": "Rule created. Call POST /rules/reload to apply changes.",
	})
}

// DeleteRule soft-deletes a custom conflict rule and auto-reloads the engine.
func (h *Handler) DeleteRule(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ruleID := chi.URLParam(r, "id")

	if ruleID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "rule id is required",
		})
		return
	}

	if h.repo != nil {
		if err := h.repo.DeleteConflictRule(ctx, GlobalTenantID, ruleID); err != nil {
			slog.Error("failed to delete conflict rule", "id", ruleID, "error", err)
			writeJSON(w, http.StatusNotFound, map[string]string{
				"error": "rule not found",
			})
			return
		}

		// Auto-reload the engine after delete
		if engine := h.pipeline.CustomRules(); engine != nil {
			dbRules, err := h.repo.ListConflictRules(ctx, GlobalTenantID)
			if err != nil {
				slog.Error("failed to reload rules after delete", "error", err)
			} else if err := engine.ReloadRules(dbRules); err != nil {
				slog.Error("failed to reload rules after delete", "error", err)
			} else {
				slog.Info("rules auto-reloaded after delete", "count", len(dbRules))
			}
		}
	}

	slog.Info("conflict rule deleted", "id", ruleID)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Rule deleted and engine reloaded.",
	})
}

// ReloadRules reloads all custom conflict rules from the database into the
// engine. This enables hot-reloading without server restart.
func (h *Handler) ReloadRules(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if h.repo == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error": "repository not available",
		})
		return
	}

	engine := h.pipeline.CustomRules()
	if engine == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error": "rule engine not available",
		})
		return
	}

	// Load rules from database (global rules)
	dbRules, err := h.repo.ListConflictRules(ctx, GlobalTenantID)
	if err != nil {
		slog.Error("failed to list rules from database", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to load rules from database",
		})
		return
	}

	// Reload into engine
	if err := engine.ReloadRules(dbRules); err != nil {
		slog.Error("failed to reload rules into engine", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to reload rules: " + err.Error(),
		})
		return
	}

	slog.Info("rules reloaded from database", "count", len(dbRules))
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "rules reloaded successfully",
		"count":   len(dbRules),
	})
}

// ListLexicons returns all stored lexicon versions plus the active version.
func (h *Handler) ListLexicons(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if h.repo == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error": "repository not available",
		})
		return
	}

	lexicons, err := h.repo.ListLexicons(ctx, GlobalTenantID)
	if err != nil {
		slog.Error("failed to list lexicons", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to load lexicons",
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"lexicons": lexicons,
		"count":    len(lexicons),
		"active":   h.pipeline.Classifier().Lexicon().Version,
	})
}

// GetLexicon retrieves a lexicon version.
func (h *Handler) GetLexicon(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	version := chi.URLParam(r, "version")

	if version == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "lexicon version is required",
		})
		return
	}

	// The built-in default is always addressable, even without a repository.
	if version == classify.DefaultLexiconVersion {
		writeJSON(w, http.StatusOK, classify.DefaultLexicon())
		return
	}

	if h.repo == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error": "repository not available",
		})
		return
	}

	lex, err := h.repo.GetLexicon(ctx, GlobalTenantID, version)
	if err != nil {
		slog.Error("failed to get lexicon", "version", version, "error", err)
		writeJSON(w, http.StatusNotFound, map[string]string{
			"error": "lexicon not found",
		})
		return
	}

	writeJSON(w, http.StatusOK, lex)
}

// CreateLexicon stores a new lexicon version. The stored version becomes
// active only after POST /lexicons/reload.
func (h *Handler) CreateLexicon(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var lex domain.Lexicon
	if err := json.NewDecoder(r.Body).Decode(&lex); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid JSON request body",
		})
		return
	}

	if lex.Version == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "version is required",
		})
		return
	}

	lex.TenantID = GlobalTenantID
	lex.Enabled = true

	if h.repo == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error": "repository not available",
		})
		return
	}

	if err := h.repo.SaveLexicon(ctx, GlobalTenantID, &lex); err != nil {
		slog.Error("failed to save lexicon", "version", lex.Version, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to save lexicon",
		})
		return
	}

	slog.Info("lexicon created", "version", lex.Version)
	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"lexicon": lex,
		"message": "Lexicon stored. Call POST /lexicons/reload to activate it.",
	})
}

// ReloadLexiconRequest selects the lexicon version to activate.
type ReloadLexiconRequest struct {
	Version string `json:"version"`
}

// ReloadLexicon hot-swaps the classifier's lexicon to a stored version.
func (h *Handler) ReloadLexicon(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req ReloadLexiconRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid JSON request body",
		})
		return
	}

	if req.Version == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "version is required",
		})
		return
	}

	var lex *domain.Lexicon
	if req.Version == classify.DefaultLexiconVersion {
		lex = classify.DefaultLexicon()
	} else {
		if h.repo == nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"error": "repository not available",
			})
			return
		}

		stored, err := h.repo.GetLexicon(ctx, GlobalTenantID, req.Version)
		if err != nil {
			slog.Error("failed to load lexicon", "version", req.Version, "error", err)
			writeJSON(w, http.StatusNotFound, map[string]string{
				"error": "lexicon not found",
			})
			return
		}
		lex = stored
	}

	h.pipeline.Classifier().Reload(lex)

	slog.Info("lexicon reloaded", "version", lex.Version)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "lexicon reloaded successfully",
		"version": lex.Version,
	})
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
