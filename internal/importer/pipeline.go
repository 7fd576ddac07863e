package importer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"github.com/legacy-compass/farm-ingest/internal/ingest"
	"github.com/legacy-compass/farm-ingest/internal/models"
	"github.com/legacy-compass/farm-ingest/internal/opportunity"
	"github.com/legacy-compass/farm-ingest/internal/repository"
	"github.com/legacy-compass/farm-ingest/internal/schema"
)

// BatchStore persists import batch state.
type BatchStore interface {
	UpdateStatus(ctx context.Context, batchID uuid.UUID, status string, lastError *string) error
	UpdateProgress(ctx context.Context, batchID uuid.UUID, current, total, percent int) error
	IncrementAttempt(ctx context.Context, batchID uuid.UUID) error
	Complete(ctx context.Context, batchID uuid.UUID, outcome repository.BatchOutcome) error
}

// PropertyStore persists canonical records.
type PropertyStore interface {
	GetByPropertyIDs(ctx context.Context, tenantID uuid.UUID, propertyIDs []string) (map[string]models.CanonicalProperty, error)
	BulkUpsert(ctx context.Context, records []models.PropertyRecord) error
	UpsertOne(ctx context.Context, record models.PropertyRecord) error
}

// RoleConfigStore loads stored column-role pattern configs.
type RoleConfigStore interface {
	GetGlobalActive(ctx context.Context) (*models.RoleConfig, error)
	GetTenantActive(ctx context.Context, tenantID uuid.UUID) (*models.RoleConfig, error)
}

// maxBackoff caps the wait between attempts.
const maxBackoff = 5 * time.Minute

// idScopeLen is how many content hash characters scope synthesized ids.
const idScopeLen = 8

// Pipeline runs uploaded CSV files through the ingest engine and stores the
// resulting records.
type Pipeline struct {
	batches       BatchStore
	properties    PropertyStore
	roleConfigs   RoleConfigStore
	resolver      *schema.Resolver
	engine        *ingest.Engine
	insertSize    int
	maxRetries    int
	retryBaseWait time.Duration
	now           func() time.Time
}

// Options configure a Pipeline.
type Options struct {
	InsertSize    int
	MaxRetries    int
	RetryBaseWait time.Duration
	// Now pins the clock handed to the engine. Nil means time.Now.
	Now func() time.Time
}

// NewPipeline creates a new import pipeline
func NewPipeline(
	batches BatchStore,
	properties PropertyStore,
	roleConfigs RoleConfigStore,
	resolver *schema.Resolver,
	engine *ingest.Engine,
	opts Options,
) *Pipeline {
	if opts.InsertSize <= 0 {
		opts.InsertSize = 1000
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if resolver == nil {
		resolver = schema.NewResolver()
	}
	if engine == nil {
		engine = ingest.NewEngine(nil, 0)
	}
	return &Pipeline{
		batches:       batches,
		properties:    properties,
		roleConfigs:   roleConfigs,
		resolver:      resolver,
		engine:        engine,
		insertSize:    opts.InsertSize,
		maxRetries:    opts.MaxRetries,
		retryBaseWait: opts.RetryBaseWait,
		now:           opts.Now,
	}
}

func (p *Pipeline) logger(batch *models.ImportBatch) *slog.Logger {
	return slog.Default().With(
		slog.String("service", "import-pipeline"),
		slog.String("tenant_id", batch.TenantID.String()),
		slog.String("batch_id", batch.ID.String()),
	)
}

// Execute runs one import attempt.
// Steps:
// a. Updates batch status to "running"
// b. Resolves role patterns (global + tenant, built-in defaults when none stored)
// c. Parses the CSV, persisting progress
// d. Compares each chunk with stored records, then upserts it, falling back
//    to one-by-one for failed chunks
// e. Stores stats, changes and warnings and marks the batch "succeeded"
// On error: updates batch status to "failed" with last_error
func (p *Pipeline) Execute(ctx context.Context, batch *models.ImportBatch, csvText string) (*ingest.Result, error) {
	startTime := time.Now()
	logger := p.logger(batch)

	stepLogger := logger.With(slog.String("step", "update_status_running"))
	stepLogger.Info("updating batch status to running")

	if err := p.batches.UpdateStatus(ctx, batch.ID, models.BatchRunning, nil); err != nil {
		stepLogger.Error("failed to update batch status", slog.String("error", err.Error()))
		return nil, p.handleExecutionError(ctx, logger, batch, err)
	}

	stepLogger = logger.With(slog.String("step", "resolve_role_patterns"))
	stepLogger.Info("resolving column role patterns")

	patterns, err := p.ResolvePatterns(ctx, batch.TenantID)
	if err != nil {
		stepLogger.Error("failed to resolve role patterns", slog.String("error", err.Error()))
		return nil, p.handleExecutionError(ctx, logger, batch, err)
	}

	stepLogger = logger.With(slog.String("step", "parse_csv"))
	stepLogger.Info("parsing csv", slog.Int("limit", batch.RowLimit), slog.Int("offset", batch.RowOffset))

	result, err := p.engine.WithPatterns(patterns).ParseBatch(csvText, nil, ingest.Options{
		Limit:      batch.RowLimit,
		Offset:     batch.RowOffset,
		SourceFile: batch.SourceFile,
		IDScope:    idScope(batch),
		Tenant:     batch.TenantID.String(),
		Now:        p.now(),
		OnProgress: func(pr ingest.Progress) {
			if err := p.batches.UpdateProgress(ctx, batch.ID, pr.Current, pr.Total, pr.Percent); err != nil {
				stepLogger.Warn("failed to store progress", slog.String("error", err.Error()))
			}
		},
	})
	if err != nil {
		stepLogger.Error("failed to parse csv", slog.String("error", err.Error()))
		return nil, p.handleExecutionError(ctx, logger, batch, err)
	}

	stepLogger.Info("csv parsed",
		slog.Int("parsed", result.Stats.Parsed),
		slog.Int("rejected", result.Stats.Rejected),
		slog.Int("collisions_resolved", result.Stats.CollisionsResolved),
		slog.Bool("has_coordinates", result.HasCoordinates))

	stepLogger = logger.With(slog.String("step", "upsert_properties"))
	stepLogger.Info("storing properties", slog.Int("count", len(result.Records)))

	changes, failed := p.storeRecords(ctx, stepLogger, batch, result.Records)
	if failed > 0 && failed == len(result.Records) {
		err := fmt.Errorf("failed to store all %d records", failed)
		stepLogger.Error("no records stored", slog.String("error", err.Error()))
		return nil, p.handleExecutionError(ctx, logger, batch, err)
	}

	warnings := result.Warnings
	if failed > 0 {
		warnings = append(warnings, fmt.Sprintf("%d of %d records could not be stored", failed, len(result.Records)))
	}

	stepLogger = logger.With(slog.String("step", "update_status_succeeded"))
	stepLogger.Info("updating batch status to succeeded")

	duration := int(time.Since(startTime).Milliseconds())
	outcome := repository.BatchOutcome{
		Stats:          result.Stats,
		Changes:        changes,
		Warnings:       warnings,
		HasCoordinates: result.HasCoordinates,
		TotalInBatch:   result.TotalInBatch,
		NextOffset:     result.NextOffset,
		DurationMs:     duration,
	}
	if err := p.batches.Complete(ctx, batch.ID, outcome); err != nil {
		stepLogger.Error("failed to store batch outcome", slog.String("error", err.Error()))
		return nil, p.handleExecutionError(ctx, logger, batch, err)
	}
	result.Warnings = warnings

	logger.Info("import pipeline completed successfully",
		slog.Int("duration_ms", duration),
		slog.Int("stored", len(result.Records)-failed),
		slog.Int("failed", failed),
		slog.Int("new", changes.New),
		slog.Int("title_transfers", changes.TitleTransfers),
		slog.Int("value_changes", changes.ValueChanges))

	return result, nil
}

// ResolvePatterns merges the stored global and tenant role configs, falling
// back to the built-in patterns when neither is stored.
func (p *Pipeline) ResolvePatterns(ctx context.Context, tenantID uuid.UUID) (*schema.ResolvedPatterns, error) {
	var global, tenant json.RawMessage

	globalConfig, err := p.roleConfigs.GetGlobalActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("get global role config: %w", err)
	}
	if globalConfig != nil {
		global = globalConfig.Config
	}

	tenantConfig, err := p.roleConfigs.GetTenantActive(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("get tenant role config: %w", err)
	}
	if tenantConfig != nil {
		tenant = tenantConfig.Config
	}

	return p.resolver.Resolve(ctx, global, tenant)
}

// idScope returns the content hash prefix used to keep synthesized ids of
// same-named files apart, or "" when the batch has no hash.
func idScope(batch *models.ImportBatch) string {
	if batch.ContentHash == nil {
		return ""
	}
	hash := *batch.ContentHash
	if len(hash) > idScopeLen {
		hash = hash[:idScopeLen]
	}
	return hash
}

// storeRecords upserts in chunks of insertSize. Each chunk is first compared
// with the records already stored for the tenant. A failed chunk is retried
// one record at a time; the number of records that still failed is returned
// with the change summary.
func (p *Pipeline) storeRecords(ctx context.Context, logger *slog.Logger, batch *models.ImportBatch, records []models.CanonicalProperty) (models.ChangeSummary, int) {
	now := time.Now()
	failed := 0
	var changes models.ChangeSummary

	for start := 0; start < len(records); start += p.insertSize {
		end := start + p.insertSize
		if end > len(records) {
			end = len(records)
		}

		ids := make([]string, 0, end-start)
		for _, r := range records[start:end] {
			ids = append(ids, r.ID)
		}
		stored, err := p.properties.GetByPropertyIDs(ctx, batch.TenantID, ids)
		if err != nil {
			logger.Warn("failed to load stored properties, chunk changes not counted",
				slog.Int("chunk_start", start),
				slog.String("error", err.Error()))
		} else {
			changes.Add(opportunity.CountChanges(stored, records[start:end]))
		}

		chunk := make([]models.PropertyRecord, 0, end-start)
		for _, r := range records[start:end] {
			chunk = append(chunk, models.PropertyRecord{
				ID:        uuid.New(),
				BatchID:   batch.ID,
				TenantID:  batch.TenantID,
				Property:  r,
				CreatedAt: now,
				UpdatedAt: now,
			})
		}

		if err := p.properties.BulkUpsert(ctx, chunk); err != nil {
			logger.Warn("chunk upsert failed, retrying records individually",
				slog.Int("chunk_start", start),
				slog.Int("chunk_size", len(chunk)),
				slog.String("error", err.Error()))

			for _, rec := range chunk {
				if err := p.properties.UpsertOne(ctx, rec); err != nil {
					failed++
					logger.Warn("failed to store property",
						slog.String("property_id", rec.Property.ID),
						slog.String("error", err.Error()))
				}
			}
		}

		logger.Info("upsert progress", slog.Int("stored", end), slog.Int("total", len(records)))
	}

	return changes, failed
}

// ExecuteWithRetry wraps Execute with exponential backoff + jitter retry logic.
// Engine errors are not retried since the input will not change.
func (p *Pipeline) ExecuteWithRetry(ctx context.Context, batch *models.ImportBatch, csvText string) (*ingest.Result, error) {
	logger := p.logger(batch)

	var lastErr error

	for attempt := 0; attempt <= p.maxRetries; attempt++ {
		logger.Info("executing import pipeline",
			slog.Int("attempt", attempt+1),
			slog.Int("max_retries", p.maxRetries))

		if err := p.batches.IncrementAttempt(ctx, batch.ID); err != nil {
			logger.Error("failed to increment attempt counter", slog.String("error", err.Error()))
		}

		result, err := p.Execute(ctx, batch, csvText)
		if err == nil {
			return result, nil
		}

		lastErr = err
		logger.Warn("import pipeline failed",
			slog.String("error", err.Error()),
			slog.Int("attempt", attempt+1))

		if ingest.IsEngineError(err) || attempt >= p.maxRetries {
			break
		}

		backoff := p.calculateBackoff(attempt)

		logger.Info("retrying after backoff",
			slog.Int("backoff_ms", int(backoff.Milliseconds())),
			slog.Int("next_attempt", attempt+2))

		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			logger.Info("context cancelled, stopping retries")
			return nil, ctx.Err()
		}
	}

	errorMsg := fmt.Sprintf("import failed after %d attempts: %v", p.maxRetries+1, lastErr)
	if ingest.IsEngineError(lastErr) {
		errorMsg = fmt.Sprintf("import failed: %v", lastErr)
	}
	logger.Error("import abandoned", slog.String("error", errorMsg))

	if err := p.batches.UpdateStatus(ctx, batch.ID, models.BatchFailed, &errorMsg); err != nil {
		logger.Error("failed to update failed status", slog.String("error", err.Error()))
	}

	return nil, fmt.Errorf("import failed: %w", lastErr)
}

// calculateBackoff calculates exponential backoff with jitter
// Formula: min(baseWait * 2^attempt + random jitter, maxBackoff)
func (p *Pipeline) calculateBackoff(attempt int) time.Duration {
	exponentialMs := p.retryBaseWait.Milliseconds() * int64(math.Pow(2, float64(attempt)))
	if exponentialMs < 0 || exponentialMs > maxBackoff.Milliseconds() {
		exponentialMs = maxBackoff.Milliseconds()
	}

	// jitter: up to 10% of the exponential wait
	jitterMs := rand.Int63n(exponentialMs/10 + 1)

	totalMs := exponentialMs + jitterMs
	if totalMs > maxBackoff.Milliseconds() {
		totalMs = maxBackoff.Milliseconds()
	}

	return time.Duration(totalMs) * time.Millisecond
}

// handleExecutionError updates batch status to "failed" and returns the error
func (p *Pipeline) handleExecutionError(
	ctx context.Context,
	logger *slog.Logger,
	batch *models.ImportBatch,
	err error,
) error {
	errorMsg := err.Error()
	logger.Error("execution error occurred", slog.String("error", errorMsg))

	if updateErr := p.batches.UpdateStatus(ctx, batch.ID, models.BatchFailed, &errorMsg); updateErr != nil {
		logger.Error("failed to update batch status to failed",
			slog.String("update_error", updateErr.Error()))
	}

	return err
}
