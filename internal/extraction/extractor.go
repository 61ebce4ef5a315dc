// Package extraction drives receipt files through the document-extraction
// service one at a time and records the per-file outcome.
package extraction

import (
	"context"

	"github.com/garyjia/expense-refund-pipeline/internal/domain/entity"
)

// Extractor submits one document to an extraction backend and returns the
// best-effort structured fields. Implementations must treat every output
// field as optional.
type Extractor interface {
	Extract(ctx context.Context, file *entity.UploadedFile) (*entity.RawFields, error)
}
