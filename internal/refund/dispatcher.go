package refund

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/garyjia/expense-refund-pipeline/internal/domain/entity"
	"go.uber.org/zap"
)

// ErrNoItemsSelected is returned when the dispatcher is invoked with an
// empty selection
var ErrNoItemsSelected = errors.New("no items selected for submission")

// Submission pairs one selected line item with its receipt file. Index is
// the item's stable position in the batch.
type Submission struct {
	Index   int
	Item    *entity.LineItem
	Receipt *entity.UploadedFile
}

// ItemResult is the per-item submission outcome
type ItemResult struct {
	Index    int
	RefundID string
	Err      error
}

// Result aggregates the outcome of one dispatched batch. Per-item results
// are tracked individually so partial success is reported accurately instead
// of collapsing into a single all-or-nothing flag.
type Result struct {
	Results   map[int]ItemResult
	Succeeded int
	Failed    int
}

// AllSucceeded reports whether every submission in the batch succeeded
func (r *Result) AllSucceeded() bool {
	return r.Failed == 0 && r.Succeeded > 0
}

// Dispatcher fires one independent submission per selected item, all
// concurrently. The refund backend has no documented rate limit.
type Dispatcher struct {
	submitter Submitter
	logger    *zap.Logger
}

// NewDispatcher creates a new submission dispatcher
func NewDispatcher(submitter Submitter, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{
		submitter: submitter,
		logger:    logger,
	}
}

// Dispatch submits every entry concurrently and waits for all of them.
// An empty selection fails fast before anything is dispatched. The returned
// error is non-nil when at least one item failed; the Result still carries
// every per-item outcome, including the ones that succeeded server-side.
func (d *Dispatcher) Dispatch(ctx context.Context, submissions []Submission) (*Result, error) {
	if len(submissions) == 0 {
		return nil, ErrNoItemsSelected
	}

	d.logger.Info("Dispatching refund submissions",
		zap.Int("count", len(submissions)))

	result := &Result{Results: make(map[int]ItemResult, len(submissions))}

	var mu sync.Mutex
	var wg sync.WaitGroup
	for _, sub := range submissions {
		wg.Add(1)
		go func(sub Submission) {
			defer wg.Done()

			refundID, err := d.submitter.Submit(ctx, sub.Item, sub.Receipt)

			mu.Lock()
			defer mu.Unlock()
			result.Results[sub.Index] = ItemResult{
				Index:    sub.Index,
				RefundID: refundID,
				Err:      err,
			}
			if err != nil {
				result.Failed++
			} else {
				result.Succeeded++
			}
		}(sub)
	}
	wg.Wait()

	if result.Failed > 0 {
		d.logger.Warn("Refund batch completed with failures",
			zap.Int("succeeded", result.Succeeded),
			zap.Int("failed", result.Failed))
		return result, fmt.Errorf("%d of %d submissions failed", result.Failed, len(submissions))
	}

	d.logger.Info("Refund batch submitted",
		zap.Int("count", result.Succeeded))
	return result, nil
}
