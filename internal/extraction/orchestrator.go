package extraction

import (
	"context"
	"fmt"
	"time"

	"github.com/garyjia/expense-refund-pipeline/internal/domain/entity"
	"go.uber.org/zap"
)

// Job is one queued file, addressed by its stable batch index
type Job struct {
	Index int
	File  *entity.UploadedFile
}

// Sink receives per-item status updates as the queue progresses. The wizard
// session implements it; the orchestrator never touches session state
// directly.
type Sink interface {
	MarkExtracting(index int)
	MarkExtracted(index int, fields *entity.RawFields)
	MarkError(index int, message string)
}

// Orchestrator processes a queue of files strictly one at a time. The
// extraction service is rate-limited, so sequencing plus the fixed
// inter-call delay is a correctness requirement, not an optimization.
type Orchestrator struct {
	extractor   Extractor
	callTimeout time.Duration
	delay       time.Duration
	logger      *zap.Logger
}

// NewOrchestrator creates a new extraction orchestrator
func NewOrchestrator(extractor Extractor, callTimeout, delay time.Duration, logger *zap.Logger) *Orchestrator {
	if callTimeout <= 0 {
		callTimeout = 60 * time.Second
	}
	if delay < 0 {
		delay = 0
	}

	return &Orchestrator{
		extractor:   extractor,
		callTimeout: callTimeout,
		delay:       delay,
		logger:      logger,
	}
}

// Run processes the jobs in order. A failed extraction is reported through
// the sink and never aborts the remaining queue. After every job except the
// last, Run waits the configured inter-call delay. Run returns early only
// when ctx is cancelled.
func (o *Orchestrator) Run(ctx context.Context, jobs []Job, sink Sink) {
	for i, job := range jobs {
		if ctx.Err() != nil {
			o.logger.Debug("Extraction queue cancelled",
				zap.Int("remaining", len(jobs)-i))
			return
		}

		o.processOne(ctx, job, sink)

		if i < len(jobs)-1 {
			select {
			case <-ctx.Done():
				return
			case <-time.After(o.delay):
			}
		}
	}
}

// processOne drives a single file through the extraction service
func (o *Orchestrator) processOne(ctx context.Context, job Job, sink Sink) {
	sink.MarkExtracting(job.Index)

	o.logger.Info("Extracting receipt",
		zap.Int("index", job.Index),
		zap.String("file_name", job.File.Name),
		zap.Int64("size", job.File.Size))

	callCtx, cancel := context.WithTimeout(ctx, o.callTimeout)
	defer cancel()

	fields, err := o.extractor.Extract(callCtx, job.File)
	if err != nil {
		o.logger.Warn("Extraction failed for file",
			zap.Int("index", job.Index),
			zap.String("file_name", job.File.Name),
			zap.Error(err))
		sink.MarkError(job.Index, fmt.Sprintf("extraction failed: %v", err))
		return
	}

	o.logger.Info("Receipt extracted",
		zap.Int("index", job.Index),
		zap.String("file_name", job.File.Name),
		zap.String("store", fields.Store),
		zap.String("total", fields.TotalPrice))

	sink.MarkExtracted(job.Index, fields)
}
