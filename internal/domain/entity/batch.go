package entity

// UploadedFile is a user-supplied receipt blob held in memory for the
// lifetime of a wizard session.
type UploadedFile struct {
	Name     string
	MIMEType string
	Size     int64
	Content  []byte
}

// ExtractionStatus tracks the lifecycle of one file in the extraction queue
type ExtractionStatus string

const (
	ExtractionPending    ExtractionStatus = "PENDING"
	ExtractionExtracting ExtractionStatus = "EXTRACTING"
	ExtractionExtracted  ExtractionStatus = "EXTRACTED"
	ExtractionError      ExtractionStatus = "ERROR"
)

// String returns the string representation of the status
func (s ExtractionStatus) String() string {
	return string(s)
}

// RawFields holds the best-effort output of the extraction service.
// Every field is optional; the service may omit any of them, so consumers
// must treat the empty string as absent.
type RawFields struct {
	TotalPrice   string `json:"totalPrice,omitempty"`
	Store        string `json:"store,omitempty"`
	Tax          string `json:"tax,omitempty"`
	Currency     string `json:"currency,omitempty"`
	Concept      string `json:"concept,omitempty"`
	ExchangeRate string `json:"exchangeRate,omitempty"`
	Date         string `json:"date,omitempty"`
}

// ExtractionRecord is the per-file extraction outcome. Exactly one record
// exists per uploaded file and is mutated in place as the queue progresses.
type ExtractionRecord struct {
	FileName     string
	Status       ExtractionStatus
	ErrorMessage string
	Fields       RawFields
}

// LineItem is an editable expense-refund candidate derived from one
// extraction record.
type LineItem struct {
	Title         string `json:"title"`
	Description   string `json:"description"`
	Amount        string `json:"amount"`
	Currency      string `json:"currency"`
	Concept       string `json:"concept"`
	SubmittedDate string `json:"submittedDate"`
	ExchangeRate  string `json:"exchangeRate"`
	Selected      bool   `json:"selected"`
	OwnerEmail    string `json:"ownerEmail"`
}

// BatchItem keeps one file, its extraction record and its line item together.
// Mutating the batch through this aggregate is what preserves the index
// alignment the pipeline depends on.
type BatchItem struct {
	File   *UploadedFile
	Record *ExtractionRecord
	Line   *LineItem
}
