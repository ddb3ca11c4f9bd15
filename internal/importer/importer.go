package importer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"product-importer/internal/domain"
	"product-importer/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// EventPublisher receives lifecycle events after the producing transaction
// has committed. Implementations must never fail the caller.
type EventPublisher interface {
	Publish(ctx context.Context, event domain.Event)
}

// Importer runs CSV import jobs: it streams the spooled upload twice,
// first to validate the header and fix totals, then to upsert the
// deduplicated records batch by batch.
type Importer struct {
	jobs        repository.ImportJobRepository
	products    repository.ProductRepository
	publisher   EventPublisher
	logger      *zap.Logger
	batchSize   int
	maxFileSize int64
}

// New creates an Importer. batchSize bounds the blast radius of a single
// failed commit; maxFileSize fails oversized spools fast.
func New(
	jobs repository.ImportJobRepository,
	products repository.ProductRepository,
	publisher EventPublisher,
	logger *zap.Logger,
	batchSize int,
	maxFileSize int64,
) *Importer {
	if batchSize <= 0 {
		batchSize = 1000
	}
	return &Importer{
		jobs:        jobs,
		products:    products,
		publisher:   publisher,
		logger:      logger,
		batchSize:   batchSize,
		maxFileSize: maxFileSize,
	}
}

// Run executes one import job against the spooled CSV file. The spool is
// removed when the run finishes, whatever the outcome. Errors are absorbed
// into the job record; Run only returns an error when the job itself could
// not be loaded or updated.
func (im *Importer) Run(ctx context.Context, jobID uuid.UUID, filePath string) error {
	defer func() {
		if err := os.Remove(filePath); err != nil && !os.IsNotExist(err) {
			im.logger.Warn("Failed to remove import spool file",
				zap.String("path", filePath),
				zap.Error(err),
			)
		}
	}()

	log := im.logger.With(zap.String("import_id", jobID.String()))

	if err := im.jobs.Transition(ctx, jobID, domain.ImportStatusParsing); err != nil {
		return fmt.Errorf("failed to start import job: %w", err)
	}
	log.Info("Import started", zap.String("file", filePath))

	if info, err := os.Stat(filePath); err != nil {
		return im.fail(ctx, jobID, fmt.Sprintf("failed to open uploaded file: %v", err))
	} else if im.maxFileSize > 0 && info.Size() > im.maxFileSize {
		return im.fail(ctx, jobID, fmt.Sprintf("file size %d exceeds maximum of %d bytes", info.Size(), im.maxFileSize))
	}

	// Pass 1: validate the header, count data rows, and record the last
	// occurrence per case-insensitive SKU. Only line numbers are kept in
	// memory, one entry per distinct SKU.
	total, winners, err := im.scan(filePath)
	if err != nil {
		return im.fail(ctx, jobID, err.Error())
	}

	// Bookkeeping failures still fail the job: a poller must never see it
	// parked in a non-terminal status.
	if err := im.jobs.SetTotalRecords(ctx, jobID, total); err != nil {
		return im.fail(ctx, jobID, fmt.Sprintf("failed to record totals: %v", err))
	}
	if err := im.jobs.Transition(ctx, jobID, domain.ImportStatusValidating); err != nil {
		return im.fail(ctx, jobID, err.Error())
	}
	if err := im.jobs.Transition(ctx, jobID, domain.ImportStatusImporting); err != nil {
		return im.fail(ctx, jobID, err.Error())
	}
	log.Info("Import parsed", zap.Int("total_records", total), zap.Int("distinct_skus", len(winners)))

	// Pass 2: stream again, keep only winning occurrences, upsert in
	// atomic batches.
	summary, err := im.apply(ctx, jobID, filePath, total, winners)
	if err != nil {
		return im.fail(ctx, jobID, err.Error())
	}

	if err := im.jobs.Transition(ctx, jobID, domain.ImportStatusCompleted); err != nil {
		return im.fail(ctx, jobID, err.Error())
	}

	im.publisher.Publish(ctx, domain.NewEvent(domain.EventImportCompleted, map[string]any{
		"import_id":         jobID.String(),
		"total_records":     total,
		"processed_records": summary.processed,
		"created":           summary.created,
		"updated":           summary.updated,
		"skipped":           summary.skipped,
	}))

	log.Info("Import completed",
		zap.Int("total_records", total),
		zap.Int("created", summary.created),
		zap.Int("updated", summary.updated),
		zap.Int("skipped", summary.skipped),
	)

	return nil
}

// fail marks the job failed with the given message. Prior committed
// batches are retained: partial progress is not rolled back.
func (im *Importer) fail(ctx context.Context, jobID uuid.UUID, message string) error {
	im.logger.Error("Import failed",
		zap.String("import_id", jobID.String()),
		zap.String("error", message),
	)
	if err := im.jobs.Fail(ctx, jobID, message); err != nil {
		return fmt.Errorf("failed to record import failure: %w", err)
	}
	return nil
}

// scan is the first pass: header validation, row count, and the winning
// line per dedup key (last occurrence in file order wins).
func (im *Importer) scan(filePath string) (int, map[string]int, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to open uploaded file: %w", err)
	}
	defer f.Close()

	reader, err := NewReader(f)
	if err != nil {
		return 0, nil, err
	}

	total := 0
	winners := make(map[string]int)

	for {
		row, err := reader.Next()
		if err == io.EOF {
			break
		}

		var rowErr *RowError
		if errors.As(err, &rowErr) {
			total++
			continue
		}
		if err != nil {
			return 0, nil, err
		}

		total++
		// Clean identically to Normalize so both passes agree on the key.
		// Rows Normalize would reject never claim the winner slot; an
		// earlier valid occurrence of the same SKU must survive pass 2.
		key := domain.NormalizeSKU(cleanField(row.Fields["sku"]))
		if key == "" || cleanField(row.Fields["name"]) == "" {
			continue
		}
		winners[key] = row.Line
	}

	return total, winners, nil
}

type importSummary struct {
	processed int
	created   int
	updated   int
	skipped   int
}

// apply is the second pass: normalize winning rows, group into batches,
// commit each batch atomically, and publish events only after the owning
// batch has committed.
func (im *Importer) apply(ctx context.Context, jobID uuid.UUID, filePath string, total int, winners map[string]int) (*importSummary, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to reopen uploaded file: %w", err)
	}
	defer f.Close()

	reader, err := NewReader(f)
	if err != nil {
		return nil, err
	}

	summary := &importSummary{}
	batch := make([]*domain.Product, 0, im.batchSize)
	consumed := 0

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		// Cooperative cancellation, checked at the batch boundary.
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("import canceled: %w", err)
		}

		result, err := im.products.UpsertBatch(ctx, batch)
		if err != nil {
			return err
		}

		summary.created += len(result.Created)
		summary.updated += len(result.Updated)
		summary.processed = consumed
		batch = batch[:0]

		// Progress only ever advances after the batch commit.
		if err := im.jobs.SetProcessedRecords(ctx, jobID, summary.processed); err != nil {
			im.logger.Warn("Failed to persist import progress",
				zap.String("import_id", jobID.String()),
				zap.Error(err),
			)
		}

		// Events describe committed state, never uncommitted writes.
		for _, p := range result.Created {
			im.publisher.Publish(ctx, domain.NewEvent(domain.EventProductCreated, productEventData(jobID, p)))
		}
		for _, p := range result.Updated {
			im.publisher.Publish(ctx, domain.NewEvent(domain.EventProductUpdated, productEventData(jobID, p)))
		}

		return nil
	}

	for {
		row, err := reader.Next()
		if err == io.EOF {
			break
		}

		var rowErr *RowError
		if errors.As(err, &rowErr) {
			consumed++
			summary.skipped++
			im.logger.Warn("Skipping import row",
				zap.String("import_id", jobID.String()),
				zap.Int("line", rowErr.Line),
				zap.String("reason", rowErr.Reason),
			)
			continue
		}
		if err != nil {
			return nil, err
		}

		consumed++

		record, err := Normalize(row)
		if errors.As(err, &rowErr) {
			summary.skipped++
			im.logger.Warn("Skipping import row",
				zap.String("import_id", jobID.String()),
				zap.Int("line", rowErr.Line),
				zap.String("reason", rowErr.Reason),
			)
			continue
		}
		if err != nil {
			return nil, err
		}

		// Intra-file dedup: only the last occurrence of each
		// case-insensitive SKU is written.
		if winners[record.DedupKey()] != record.Line {
			summary.skipped++
			continue
		}

		batch = append(batch, record.Product())
		if len(batch) >= im.batchSize {
			if err := flush(); err != nil {
				return nil, err
			}
		}
	}

	if err := flush(); err != nil {
		return nil, err
	}

	summary.processed = consumed
	if err := im.jobs.SetProcessedRecords(ctx, jobID, summary.processed); err != nil {
		im.logger.Warn("Failed to persist import progress",
			zap.String("import_id", jobID.String()),
			zap.Error(err),
		)
	}

	if summary.processed != total {
		im.logger.Warn("Row count drifted between passes",
			zap.String("import_id", jobID.String()),
			zap.Int("expected", total),
			zap.Int("consumed", summary.processed),
		)
	}

	return summary, nil
}

func productEventData(jobID uuid.UUID, p *domain.Product) map[string]any {
	return map[string]any{
		"product_id": p.ID.String(),
		"sku":        p.SKU,
		"name":       p.Name,
		"import_id":  jobID.String(),
	}
}
