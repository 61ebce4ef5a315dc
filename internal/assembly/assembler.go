// Package assembly converts extraction records into editable line items
// once the extraction queue has drained.
package assembly

import (
	"context"
	"sync"
	"time"

	"github.com/garyjia/expense-refund-pipeline/internal/domain/entity"
	"github.com/garyjia/expense-refund-pipeline/internal/normalize"
	"go.uber.org/zap"
)

// RateResolver resolves a canonical currency code to a USD exchange rate string
type RateResolver interface {
	Resolve(ctx context.Context, code string) string
}

// Assembler builds exactly one line item per extraction record
type Assembler struct {
	resolver RateResolver
	now      func() time.Time
	logger   *zap.Logger
}

// NewAssembler creates a new form assembler
func NewAssembler(resolver RateResolver, logger *zap.Logger) *Assembler {
	return &Assembler{
		resolver: resolver,
		now:      time.Now,
		logger:   logger,
	}
}

// SetClock overrides the current-time source (for testing)
func (a *Assembler) SetClock(now func() time.Time) {
	a.now = now
}

// Assemble builds a line item for every record, in record order. Rate
// lookups fan out concurrently across items; the rate service is not
// rate-limited the way the extraction service is. The rate is always
// resolved from the normalized currency, never from the raw extracted token,
// and any exchangeRate embedded in the extraction payload is ignored.
func (a *Assembler) Assemble(ctx context.Context, records []*entity.ExtractionRecord, ownerEmail string) []*entity.LineItem {
	items := make([]*entity.LineItem, len(records))
	today := a.now().Format(normalize.ISODate)

	var wg sync.WaitGroup
	for i, record := range records {
		wg.Add(1)
		go func(i int, record *entity.ExtractionRecord) {
			defer wg.Done()
			items[i] = a.assembleOne(ctx, record, ownerEmail, today)
		}(i, record)
	}
	wg.Wait()

	return items
}

// assembleOne builds a single line item from one record
func (a *Assembler) assembleOne(ctx context.Context, record *entity.ExtractionRecord, ownerEmail, today string) *entity.LineItem {
	currency, recognized := normalize.LookupCurrency(record.Fields.Currency)
	if !recognized && record.Fields.Currency != "" {
		a.logger.Debug("Unrecognized currency token, defaulting",
			zap.String("file_name", record.FileName),
			zap.String("raw", record.Fields.Currency),
			zap.String("currency", currency))
	}

	date := normalize.Date(record.Fields.Date)
	if date == "" {
		date = today
	}

	return &entity.LineItem{
		Title:         record.Fields.Store,
		Description:   record.Fields.Concept,
		Amount:        record.Fields.TotalPrice,
		Currency:      currency,
		Concept:       record.Fields.Concept,
		SubmittedDate: date,
		ExchangeRate:  a.resolver.Resolve(ctx, currency),
		Selected:      record.Status == entity.ExtractionExtracted,
		OwnerEmail:    ownerEmail,
	}
}
