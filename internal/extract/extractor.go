package extract

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/tenderworks/boqd/internal/chunker"
	"github.com/tenderworks/boqd/internal/document"
)

// Completer is the remote model collaborator.
type Completer interface {
	Complete(ctx context.Context, system, user string) ([]byte, error)
}

// Extractor feeds chunks and tables to the model and collects candidate
// items. Calls are sequential so item order is reproducible for the same
// input; a failed call is recorded and skipped without aborting the batch.
type Extractor struct {
	client Completer
	log    *slog.Logger
	stats  *Stats
}

func NewExtractor(client Completer, log *slog.Logger, stats *Stats) *Extractor {
	if log == nil {
		log = slog.Default()
	}
	return &Extractor{client: client, log: log, stats: stats}
}

// ExtractSegments runs extraction over ordered text segments. Cancellation
// stops issuing new calls; results gathered so far remain valid.
func (e *Extractor) ExtractSegments(ctx context.Context, segments []chunker.Segment, pctx Context) Result {
	result := Result{TotalChunks: len(segments)}
	var confidences []float64

	for _, seg := range segments {
		if err := ctx.Err(); err != nil {
			result.FailedChunks++
			result.Errors = append(result.Errors, fmt.Sprintf("chunk %d: %s", seg.Index, err))
			continue
		}

		segCtx := pctx
		segCtx.ChunkIndex = seg.Index
		segCtx.TotalChunks = seg.TotalSegments

		items, meta, err := e.call(ctx, SystemPrompt, BuildTextPrompt(seg.Text, segCtx))
		if err != nil {
			e.log.Error("chunk extraction failed", "chunk", seg.Index, "error", err)
			result.FailedChunks++
			result.Errors = append(result.Errors, fmt.Sprintf("chunk %d: %s", seg.Index, err))
			continue
		}

		for i := range items {
			items[i].SourceChunk = seg.Index
			items[i].SourcePage = seg.SourcePage
		}
		result.Items = append(result.Items, items...)
		result.SuccessfulChunks++
		confidences = append(confidences, meta.Confidence)
	}

	result.AverageConfidence = mean(confidences)
	return result
}

// ExtractTable runs extraction over one parsed table.
func (e *Extractor) ExtractTable(ctx context.Context, table *document.Table, pctx Context) Result {
	result := Result{TotalChunks: 1}

	items, meta, err := e.call(ctx, SystemPrompt, BuildTablePrompt(table, pctx))
	if err != nil {
		e.log.Error("table extraction failed", "page", table.PageNumber, "error", err)
		result.FailedChunks = 1
		result.Errors = append(result.Errors, fmt.Sprintf("table p.%d: %s", table.PageNumber, err))
		return result
	}

	for i := range items {
		items[i].SourcePage = table.PageNumber
	}
	result.Items = items
	result.SuccessfulChunks = 1
	result.AverageConfidence = meta.Confidence
	return result
}

// ExtractTables runs extraction over tables in order, isolating failures
// the same way the segment path does.
func (e *Extractor) ExtractTables(ctx context.Context, tables []document.Table, pctx Context) Result {
	var result Result
	for i := range tables {
		if err := ctx.Err(); err != nil {
			result.TotalChunks++
			result.FailedChunks++
			result.Errors = append(result.Errors, fmt.Sprintf("table %d: %s", i, err))
			continue
		}
		result.Merge(e.ExtractTable(ctx, &tables[i], pctx))
	}
	return result
}

// call issues a single model request with retry on transient failures,
// then parses the reply.
func (e *Extractor) call(ctx context.Context, system, user string) ([]Item, Metadata, error) {
	var raw []byte
	var err error
	for attempt := 0; attempt < MaxRetries; attempt++ {
		start := time.Now()
		raw, err = e.client.Complete(ctx, system, user)
		if e.stats != nil {
			e.stats.Record(time.Since(start).Milliseconds())
		}
		if err == nil || !IsRetryable(err) {
			break
		}
		e.log.Warn("retryable extraction error", "attempt", attempt, "error", err)
		select {
		case <-time.After(Backoff(attempt)):
		case <-ctx.Done():
			return nil, Metadata{}, ctx.Err()
		}
	}
	if err != nil {
		return nil, Metadata{}, err
	}
	return ParseResponse(raw)
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}
