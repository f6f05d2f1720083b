package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/disputegrid/kestrel/internal/bus"
	"github.com/disputegrid/kestrel/internal/cache"
	"github.com/disputegrid/kestrel/internal/classify"
	"github.com/disputegrid/kestrel/internal/conflict"
	"github.com/disputegrid/kestrel/internal/domain"
	"github.com/disputegrid/kestrel/internal/pipeline"
	"github.com/disputegrid/kestrel/internal/repository"
)

// createTestServer wires a server over a throwaway sqlite file, an in-process
// LRU cache, and a channel bus.
func createTestServer(t *testing.T) *Server {
	t.Helper()

	cfg := domain.ServerConfig{
		Host:         "localhost",
		Port:         8080,
		ReadTimeout:  30,
		WriteTimeout: 30,
	}

	repo, err := repository.New(domain.RepositoryConfig{
		Driver:     "sqlite",
		SQLitePath: filepath.Join(t.TempDir(), "kestrel.db"),
	})
	if err != nil {
		t.Fatalf("failed to create repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })

	engine, err := conflict.NewRuleEngine()
	if err != nil {
		t.Fatalf("failed to create rule engine: %v", err)
	}

	p := pipeline.New(nil, nil, nil, engine, nil)

	return NewServer(cfg, repo, cache.NewLRUCache(100), bus.NewChannelBus(16), p, "test-v1")
}

// conflictBatch is two bureaus disagreeing on the same charged-off tradeline.
func conflictBatch() []domain.AccountRecord {
	return []domain.AccountRecord{
		{
			Name:          "WELLS FARGO",
			AccountNumber: "XXXX4401",
			Balance:       "$3,200",
			Status:        "Charged off",
			Bureau:        domain.BureauExperian,
		},
		{
			Name:          "WELLS FARGO",
			AccountNumber: "****4401",
			Balance:       "$3,200",
			Status:        "Open - current",
			Bureau:        domain.BureauEquifax,
		},
	}
}

func postAnalyze(t *testing.T, server *Server, req AnalyzeRequest) *httptest.ResponseRecorder {
	t.Helper()

	body, _ := json.Marshal(req)
	httpReq := httptest.NewRequest(http.MethodPost, "/analyze", bytes.NewBuffer(body))
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-Tenant-ID", "tenant-001")

	rr := httptest.NewRecorder()
	server.Router().ServeHTTP(rr, httpReq)
	return rr
}

func TestAnalyzeEndpoint(t *testing.T) {
	server := createTestServer(t)

	t.Run("SuccessfulAnalysis", func(t *testing.T) {
		rr := postAnalyze(t, server, AnalyzeRequest{Accounts: conflictBatch()})

		if rr.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
		}

		var analysis domain.Analysis
		if err := json.Unmarshal(rr.Body.Bytes(), &analysis); err != nil {
			t.Fatalf("failed to parse response: %v", err)
		}

		if analysis.ID == "" {
			t.Error("expected analysis id in response")
		}
		if analysis.BatchID == "" {
			t.Error("expected generated batchId in response")
		}
		if analysis.TenantID != "tenant-001" {
			t.Errorf("expected tenantId tenant-001, got %s", analysis.TenantID)
		}
		if analysis.TotalNegatives != 1 {
			t.Errorf("expected 1 negative tradeline, got %d", analysis.TotalNegatives)
		}
		if analysis.Metadata.RecordCount != 2 {
			t.Errorf("expected recordCount 2, got %d", analysis.Metadata.RecordCount)
		}
		if analysis.Metadata.TraceID == "" {
			t.Error("expected traceId in metadata")
		}
	})

	t.Run("PreservesCallerBatchID", func(t *testing.T) {
		rr := postAnalyze(t, server, AnalyzeRequest{
			BatchID:  "batch-keep-001",
			Accounts: conflictBatch(),
		})

		if rr.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d", rr.Code)
		}

		var analysis domain.Analysis
		json.Unmarshal(rr.Body.Bytes(), &analysis)
		if analysis.BatchID != "batch-keep-001" {
			t.Errorf("expected batchId batch-keep-001, got %s", analysis.BatchID)
		}
	})

	t.Run("AsyncQueuesBatch", func(t *testing.T) {
		rr := postAnalyze(t, server, AnalyzeRequest{
			Accounts: conflictBatch(),
			Async:    true,
		})

		if rr.Code != http.StatusAccepted {
			t.Fatalf("expected status 202, got %d: %s", rr.Code, rr.Body.String())
		}

		var resp map[string]string
		json.Unmarshal(rr.Body.Bytes(), &resp)
		if resp["status"] != "queued" {
			t.Errorf("expected status queued, got %s", resp["status"])
		}
		if resp["batchId"] == "" {
			t.Error("expected batchId in async response")
		}
	})

	t.Run("MissingTenantID", func(t *testing.T) {
		body, _ := json.Marshal(AnalyzeRequest{Accounts: conflictBatch()})
		req := httptest.NewRequest(http.MethodPost, "/analyze", bytes.NewBuffer(body))
		req.Header.Set("Content-Type", "application/json")
		// No X-Tenant-ID header

		rr := httptest.NewRecorder()
		server.Router().ServeHTTP(rr, req)

		if rr.Code != http.StatusBadRequest {
			t.Errorf("expected status 400, got %d", rr.Code)
		}
	})

	t.Run("InvalidJSON", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/analyze", bytes.NewBufferString("not-json"))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Tenant-ID", "tenant-001")

		rr := httptest.NewRecorder()
		server.Router().ServeHTTP(rr, req)

		if rr.Code != http.StatusBadRequest {
			t.Errorf("expected status 400, got %d", rr.Code)
		}
	})

	t.Run("EmptyAccounts", func(t *testing.T) {
		rr := postAnalyze(t, server, AnalyzeRequest{Accounts: nil})

		if rr.Code != http.StatusBadRequest {
			t.Errorf("expected status 400, got %d", rr.Code)
		}
	})

	t.Run("ResponseHeaders", func(t *testing.T) {
		rr := postAnalyze(t, server, AnalyzeRequest{Accounts: conflictBatch()})

		if rr.Header().Get("X-Request-ID") == "" {
			t.Error("expected X-Request-ID header in response")
		}
		if rr.Header().Get("X-Trace-ID") == "" {
			t.Error("expected X-Trace-ID header in response")
		}
		if rr.Header().Get("Content-Type") != "application/json" {
			t.Error("expected Content-Type: application/json")
		}
	})
}

func TestAnalysisRetrieval(t *testing.T) {
	server := createTestServer(t)

	rr := postAnalyze(t, server, AnalyzeRequest{
		BatchID:  "batch-ret-001",
		Accounts: conflictBatch(),
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("analyze failed: %d: %s", rr.Code, rr.Body.String())
	}

	var created domain.Analysis
	json.Unmarshal(rr.Body.Bytes(), &created)

	t.Run("GetByID", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/analyses/"+created.ID, nil)
		req.Header.Set("X-Tenant-ID", "tenant-001")

		rec := httptest.NewRecorder()
		server.Router().ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
		}

		var got domain.Analysis
		json.Unmarshal(rec.Body.Bytes(), &got)
		if got.ID != created.ID {
			t.Errorf("expected analysis %s, got %s", created.ID, got.ID)
		}
	})

	t.Run("GetByBatch", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/batches/batch-ret-001/analysis", nil)
		req.Header.Set("X-Tenant-ID", "tenant-001")

		rec := httptest.NewRecorder()
		server.Router().ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
		}

		var got domain.Analysis
		json.Unmarshal(rec.Body.Bytes(), &got)
		if got.BatchID != "batch-ret-001" {
			t.Errorf("expected batchId batch-ret-001, got %s", got.BatchID)
		}
	})

	t.Run("TenantIsolation", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/analyses/"+created.ID, nil)
		req.Header.Set("X-Tenant-ID", "tenant-002")

		rec := httptest.NewRecorder()
		server.Router().ServeHTTP(rec, req)

		if rec.Code != http.StatusNotFound {
			t.Errorf("expected status 404 for other tenant, got %d", rec.Code)
		}
	})

	t.Run("NotFound", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/analyses/nonexistent", nil)
		req.Header.Set("X-Tenant-ID", "tenant-001")

		rec := httptest.NewRecorder()
		server.Router().ServeHTTP(rec, req)

		if rec.Code != http.StatusNotFound {
			t.Errorf("expected status 404, got %d", rec.Code)
		}
	})
}

func TestRuleEndpoints(t *testing.T) {
	server := createTestServer(t)

	doJSON := func(method, path string, payload interface{}) *httptest.ResponseRecorder {
		var body bytes.Buffer
		if payload != nil {
			json.NewEncoder(&body).Encode(payload)
		}
		req := httptest.NewRequest(method, path, &body)
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Tenant-ID", "tenant-001")

		rr := httptest.NewRecorder()
		server.Router().ServeHTTP(rr, req)
		return rr
	}

	t.Run("CreateValidatesExpression", func(t *testing.T) {
		rr := doJSON(http.MethodPost, "/rules", CreateRuleRequest{
			ID:         "bad-rule",
			Name:       "Bad Rule",
			Expression: "coverage >>> nonsense",
			Severity:   5,
			Enabled:    true,
		})

		if rr.Code != http.StatusBadRequest {
			t.Errorf("expected status 400 for bad CEL, got %d: %s", rr.Code, rr.Body.String())
		}
	})

	t.Run("CreateAndReload", func(t *testing.T) {
		rr := doJSON(http.MethodPost, "/rules", CreateRuleRequest{
			ID:         "wide-spread",
			Name:       "Wide Balance Spread",
			Expression: "coverage >= 2 && max_balance - min_balance > 500.0",
			Severity:   6,
			Enabled:    true,
		})
		if rr.Code != http.StatusCreated {
			t.Fatalf("expected status 201, got %d: %s", rr.Code, rr.Body.String())
		}

		// Not active until reloaded.
		rr = doJSON(http.MethodGet, "/rules", nil)
		var listResp struct {
			Count int `json:"count"`
		}
		json.Unmarshal(rr.Body.Bytes(), &listResp)
		if listResp.Count != 0 {
			t.Errorf("expected 0 loaded rules before reload, got %d", listResp.Count)
		}

		rr = doJSON(http.MethodPost, "/rules/reload", nil)
		if rr.Code != http.StatusOK {
			t.Fatalf("reload failed: %d: %s", rr.Code, rr.Body.String())
		}

		rr = doJSON(http.MethodGet, "/rules/wide-spread", nil)
		if rr.Code != http.StatusOK {
			t.Fatalf("expected rule after reload, got %d", rr.Code)
		}

		var rule domain.ConflictRule
		json.Unmarshal(rr.Body.Bytes(), &rule)
		if rule.Severity != 6 {
			t.Errorf("expected severity 6, got %d", rule.Severity)
		}
	})

	t.Run("DeleteReloadsEngine", func(t *testing.T) {
		rr := doJSON(http.MethodDelete, "/rules/wide-spread", nil)
		if rr.Code != http.StatusOK {
			t.Fatalf("delete failed: %d: %s", rr.Code, rr.Body.String())
		}

		rr = doJSON(http.MethodGet, "/rules/wide-spread", nil)
		if rr.Code != http.StatusNotFound {
			t.Errorf("expected 404 after delete, got %d", rr.Code)
		}
	})

	t.Run("MissingFields", func(t *testing.T) {
		rr := doJSON(http.MethodPost, "/rules", CreateRuleRequest{ID: "only-id"})
		if rr.Code != http.StatusBadRequest {
			t.Errorf("expected status 400, got %d", rr.Code)
		}
	})
}

func TestLexiconEndpoints(t *testing.T) {
	server := createTestServer(t)

	doJSON := func(method, path string, payload interface{}) *httptest.ResponseRecorder {
		var body bytes.Buffer
		if payload != nil {
			json.NewEncoder(&body).Encode(payload)
		}
		req := httptest.NewRequest(method, path, &body)
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Tenant-ID", "tenant-001")

		rr := httptest.NewRecorder()
		server.Router().ServeHTTP(rr, req)
		return rr
	}

	t.Run("GetBuiltinLexicon", func(t *testing.T) {
		rr := doJSON(http.MethodGet, "/lexicons/"+classify.DefaultLexiconVersion, nil)
		if rr.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d", rr.Code)
		}

		var lex domain.Lexicon
		json.Unmarshal(rr.Body.Bytes(), &lex)
		if len(lex.NegativeStatuses) == 0 {
			t.Error("expected builtin lexicon to carry negative statuses")
		}
	})

	t.Run("CreateAndActivate", func(t *testing.T) {
		custom := domain.Lexicon{
			Version:            "2025.2-test",
			NegativeStatuses:   []string{"charged off", "collection", "repossession"},
			PositiveStatuses:   []string{"current", "paid as agreed"},
			CollectionKeywords: []string{"collection"},
			ChargeOffKeywords:  []string{"charged off"},
		}

		rr := doJSON(http.MethodPost, "/lexicons", custom)
		if rr.Code != http.StatusCreated {
			t.Fatalf("expected status 201, got %d: %s", rr.Code, rr.Body.String())
		}

		rr = doJSON(http.MethodPost, "/lexicons/reload", ReloadLexiconRequest{Version: "2025.2-test"})
		if rr.Code != http.StatusOK {
			t.Fatalf("reload failed: %d: %s", rr.Code, rr.Body.String())
		}

		rr = doJSON(http.MethodGet, "/lexicons", nil)
		var listResp struct {
			Count  int    `json:"count"`
			Active string `json:"active"`
		}
		json.Unmarshal(rr.Body.Bytes(), &listResp)
		if listResp.Active != "2025.2-test" {
			t.Errorf("expected active lexicon 2025.2-test, got %s", listResp.Active)
		}
		if listResp.Count != 1 {
			t.Errorf("expected 1 stored lexicon, got %d", listResp.Count)
		}
	})

	t.Run("ReloadUnknownVersion", func(t *testing.T) {
		rr := doJSON(http.MethodPost, "/lexicons/reload", ReloadLexiconRequest{Version: "no-such"})
		if rr.Code != http.StatusNotFound {
			t.Errorf("expected status 404, got %d", rr.Code)
		}
	})

	t.Run("MissingVersion", func(t *testing.T) {
		rr := doJSON(http.MethodPost, "/lexicons", domain.Lexicon{})
		if rr.Code != http.StatusBadRequest {
			t.Errorf("expected status 400, got %d", rr.Code)
		}
	})
}

func TestHealthEndpoint(t *testing.T) {
	server := createTestServer(t)

	t.Run("HealthCheck", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/health", nil)

		rr := httptest.NewRecorder()
		server.Router().ServeHTTP(rr, req)

		if rr.Code != http.StatusOK {
			t.Errorf("expected status 200, got %d", rr.Code)
		}

		var resp map[string]string
		json.Unmarshal(rr.Body.Bytes(), &resp)

		if resp["status"] != "healthy" {
			t.Errorf("expected status 'healthy', got '%s'", resp["status"])
		}
		if resp["version"] != "test-v1" {
			t.Errorf("expected version 'test-v1', got '%s'", resp["version"])
		}
	})

	t.Run("ReadyCheck", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/ready", nil)

		rr := httptest.NewRecorder()
		server.Router().ServeHTTP(rr, req)

		if rr.Code != http.StatusOK {
			t.Errorf("expected status 200, got %d", rr.Code)
		}
	})
}

func TestMiddleware(t *testing.T) {
	t.Run("TenantMiddlewareExtractsID", func(t *testing.T) {
		var capturedTenantID string

		handler := TenantMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			capturedTenantID = GetTenantID(r.Context())
			w.WriteHeader(http.StatusOK)
		}))

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-Tenant-ID", "my-tenant-123")

		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)

		if capturedTenantID != "my-tenant-123" {
			t.Errorf("expected tenant ID 'my-tenant-123', got '%s'", capturedTenantID)
		}
	})

	t.Run("TracingMiddlewareSetsRequestID", func(t *testing.T) {
		var capturedRequestID string

		handler := TracingMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if v, ok := r.Context().Value(RequestIDKey).(string); ok {
				capturedRequestID = v
			}
			w.WriteHeader(http.StatusOK)
		}))

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)

		if capturedRequestID == "" {
			t.Error("expected request ID to be set")
		}

		if rr.Header().Get("X-Request-ID") == "" {
			t.Error("expected X-Request-ID response header")
		}
	})

	t.Run("RecoverMiddlewareHandlesPanic", func(t *testing.T) {
		handler := RecoverMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			panic("test panic")
		}))

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		rr := httptest.NewRecorder()

		// Should not panic
		handler.ServeHTTP(rr, req)

		if rr.Code != http.StatusInternalServerError {
			t.Errorf("expected status 500, got %d", rr.Code)
		}
	})
}
