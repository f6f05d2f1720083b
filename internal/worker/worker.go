// Package worker provides async batch processing for the Pro tier.
package worker

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/disputegrid/kestrel/internal/domain"
	"github.com/disputegrid/kestrel/internal/pipeline"
)

// Worker processes ingested batches asynchronously from the EventBus.
type Worker struct {
	bus      domain.EventBus
	repo     domain.Repository
	cache    domain.Cache
	pipeline *pipeline.Pipeline

	subscriptions []domain.Subscription
	wg            sync.WaitGroup
	ctx           context.Context
	cancel        context.CancelFunc
}

// Config holds worker configuration.
type Config struct {
	// TenantIDs is the list of tenants to process (empty = all via wildcard if supported)
	TenantIDs []string

	// AnalysisTTL is how long completed analyses stay cached.
	AnalysisTTL time.Duration
}

// NewWorker creates a new async worker.
func NewWorker(bus domain.EventBus, repo domain.Repository, cache domain.Cache, p *pipeline.Pipeline) *Worker {
	ctx, cancel := context.WithCancel(context.Background())
	return &Worker{
		bus:      bus,
		repo:     repo,
		cache:    cache,
		pipeline: p,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Start begins processing batches for the given tenants.
func (w *Worker) Start(cfg Config) error {
	if len(cfg.TenantIDs) == 0 {
		return w.startGlobalWorker(cfg)
	}

	for _, tenantID := range cfg.TenantIDs {
		if err := w.startTenantWorker(tenantID, cfg); err != nil {
			slog.Error("failed to start worker for tenant",
				"tenant_id", tenantID,
				"error", err,
			)
			continue
		}
	}

	slog.Info("workers started",
		"tenant_count", len(cfg.TenantIDs),
	)

	return nil
}

// startGlobalWorker starts a worker that processes all tenants (for testing/dev).
func (w *Worker) startGlobalWorker(cfg Config) error {
	sub, err := w.bus.Subscribe(w.ctx, "_global", domain.TopicBatchIngested, func(ctx context.Context, msg *domain.Message) error {
		return w.processBatch(ctx, msg.TenantID, msg, cfg)
	})
	if err != nil {
		return err
	}
	w.subscriptions = append(w.subscriptions, sub)

	slog.Info("global worker started")
	return nil
}

// startTenantWorker starts a worker for a specific tenant.
func (w *Worker) startTenantWorker(tenantID string, cfg Config) error {
	sub, err := w.bus.Subscribe(w.ctx, tenantID, domain.TopicBatchIngested, func(ctx context.Context, msg *domain.Message) error {
		return w.processBatch(ctx, tenantID, msg, cfg)
	})
	if err != nil {
		return err
	}
	w.subscriptions = append(w.subscriptions, sub)

	slog.Info("tenant worker started",
		"tenant_id", tenantID,
		"topic", domain.TopicBatchIngested,
	)

	return nil
}

// BatchMessage is the payload for batch processing. Accounts may be carried
// inline; otherwise the batch is loaded from the repository by ID.
type BatchMessage struct {
	BatchID  string                 `json:"batchId"`
	TenantID string                 `json:"tenantId"`
	TraceID  string                 `json:"traceId,omitempty"`
	Accounts []domain.AccountRecord `json:"accounts,omitempty"`
}

// processBatch runs one batch through the reconciliation pipeline.
func (w *Worker) processBatch(ctx context.Context, tenantID string, msg *domain.Message, cfg Config) error {
	start := time.Now()

	var batchMsg BatchMessage
	if err := json.Unmarshal(msg.Payload, &batchMsg); err != nil {
		slog.Error("failed to parse batch message",
			"message_id", msg.ID,
			"error", err,
		)
		return err
	}

	// Use message tenant if provided
	if batchMsg.TenantID != "" {
		tenantID = batchMsg.TenantID
	}

	traceID := batchMsg.TraceID
	if traceID == "" {
		traceID = msg.ID
	}

	slog.Debug("processing batch",
		"batch_id", batchMsg.BatchID,
		"tenant_id", tenantID,
		"trace_id", traceID,
	)

	accounts := batchMsg.Accounts
	if len(accounts) == 0 && w.repo != nil {
		batch, err := w.repo.GetBatch(ctx, tenantID, batchMsg.BatchID)
		if err != nil {
			slog.Error("failed to load batch",
				"batch_id", batchMsg.BatchID,
				"tenant_id", tenantID,
				"error", err,
			)
			return err
		}
		accounts = batch.Accounts
	}

	analysis := w.pipeline.Analyze(ctx, accounts)
	analysis.TenantID = tenantID
	analysis.BatchID = batchMsg.BatchID
	analysis.Metadata.TraceID = traceID

	if w.repo != nil {
		if err := w.repo.SaveAnalysis(ctx, tenantID, analysis); err != nil {
			slog.Error("failed to save analysis",
				"batch_id", batchMsg.BatchID,
				"error", err,
			)
		}
	}

	if w.cache != nil && batchMsg.BatchID != "" {
		ttl := cfg.AnalysisTTL
		if ttl == 0 {
			ttl = time.Hour
		}
		if err := w.cache.SetAnalysis(ctx, tenantID, batchMsg.BatchID, analysis, ttl); err != nil {
			slog.Warn("failed to cache analysis",
				"batch_id", batchMsg.BatchID,
				"error", err,
			)
		}
	}

	resultPayload, _ := json.Marshal(analysis)
	if err := w.bus.Publish(ctx, tenantID, domain.TopicAnalysisCompleted, resultPayload); err != nil {
		slog.Error("failed to publish analysis",
			"batch_id", batchMsg.BatchID,
			"error", err,
		)
	}

	if len(analysis.RoundOneTargets) > 0 {
		shortlist, _ := json.Marshal(analysis.RoundOneTargets)
		if err := w.bus.Publish(ctx, tenantID, domain.TopicDisputeShortlist, shortlist); err != nil {
			slog.Error("failed to publish dispute shortlist",
				"batch_id", batchMsg.BatchID,
				"error", err,
			)
		}
	}

	slog.Info("batch processed",
		"batch_id", batchMsg.BatchID,
		"tenant_id", tenantID,
		"total_negatives", analysis.TotalNegatives,
		"shortlist_size", len(analysis.RoundOneTargets),
		"duration_ms", time.Since(start).Milliseconds(),
	)

	return nil
}

// Stop gracefully stops all workers.
func (w *Worker) Stop() error {
	w.cancel()

	// Unsubscribe all
	for _, sub := range w.subscriptions {
		if err := sub.Unsubscribe(); err != nil {
			slog.Error("failed to unsubscribe",
				"topic", sub.Topic(),
				"error", err,
			)
		}
	}
	w.subscriptions = nil

	w.wg.Wait()

	slog.Info("workers stopped")
	return nil
}

// Stats returns worker statistics.
type Stats struct {
	SubscriptionCount int      `json:"subscriptionCount"`
	Topics            []string `json:"topics"`
}

// GetStats returns current worker statistics.
func (w *Worker) GetStats() Stats {
	topics := make([]string, len(w.subscriptions))
	for i, sub := range w.subscriptions {
		topics[i] = sub.Topic()
	}
	return Stats{
		SubscriptionCount: len(w.subscriptions),
		Topics:            topics,
	}
}
