// Package report renders a per-batch Excel summary after submission.
package report

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/garyjia/expense-refund-pipeline/internal/domain/entity"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

const sheetName = "Submissions"

var headers = []string{
	"File", "Title", "Amount", "Currency", "Exchange Rate",
	"Concept", "Date", "Owner", "Status", "Refund ID", "Error",
}

// Writer renders a batch report workbook to an output directory
type Writer struct {
	outputDir string
	logger    *zap.Logger
}

// NewWriter creates a report writer
func NewWriter(outputDir string, logger *zap.Logger) *Writer {
	return &Writer{
		outputDir: outputDir,
		logger:    logger,
	}
}

// Write renders one workbook for a submitted batch and returns its path.
// The file name carries the session id and a timestamp so repeated batches
// never overwrite each other.
func (w *Writer) Write(sessionID string, records []*entity.SubmissionRecord) (string, error) {
	if err := os.MkdirAll(w.outputDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create report directory: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(sheetName)
	if err != nil {
		return "", fmt.Errorf("failed to create sheet: %w", err)
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		w.logger.Warn("Failed to remove default sheet", zap.Error(err))
	}

	for col, header := range headers {
		w.setCell(f, cellRef(col, 1), header)
	}

	totalUSD := 0.0
	for row, record := range records {
		values := []any{
			record.FileName,
			record.Title,
			record.Amount,
			record.Currency,
			record.ExchangeRate,
			record.Concept,
			record.SubmittedDate,
			record.OwnerEmail,
			record.Status,
			record.RefundID,
			record.ErrorMessage,
		}
		for col, value := range values {
			w.setCell(f, cellRef(col, row+2), value)
		}

		if record.Status == entity.SubmissionSucceeded {
			totalUSD += usdAmount(record)
		}
	}

	summaryRow := len(records) + 3
	w.setCell(f, cellRef(0, summaryRow), "Total submitted (USD)")
	w.setCell(f, cellRef(2, summaryRow), fmt.Sprintf("%.2f", totalUSD))

	name := fmt.Sprintf("batch_%s_%s.xlsx", sessionID, time.Now().Format("20060102_150405"))
	path := filepath.Join(w.outputDir, name)
	if err := f.SaveAs(path); err != nil {
		return "", fmt.Errorf("failed to save report: %w", err)
	}

	w.logger.Info("Batch report written",
		zap.String("session_id", sessionID),
		zap.String("path", path),
		zap.Int("records", len(records)))

	return path, nil
}

func (w *Writer) setCell(f *excelize.File, cell string, value any) {
	if err := f.SetCellValue(sheetName, cell, value); err != nil {
		w.logger.Warn("Failed to set cell value",
			zap.String("cell", cell),
			zap.Error(err))
	}
}

// cellRef converts zero-based column and one-based row to an A1 reference
func cellRef(col, row int) string {
	ref, err := excelize.CoordinatesToCellName(col+1, row)
	if err != nil {
		return fmt.Sprintf("A%d", row)
	}
	return ref
}

// usdAmount converts a record's amount to USD using its exchange rate.
// Unparseable values contribute zero instead of failing the report.
func usdAmount(record *entity.SubmissionRecord) float64 {
	amount, err := strconv.ParseFloat(record.Amount, 64)
	if err != nil {
		return 0
	}
	rate, err := strconv.ParseFloat(record.ExchangeRate, 64)
	if err != nil || rate <= 0 {
		return 0
	}
	return amount / rate
}
