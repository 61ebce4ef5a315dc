package entity

// Batch limits enforced at the upload gate
const (
	// MaxBatchFiles is the maximum number of files in one wizard session
	MaxBatchFiles = 10

	// MaxFileSize is the per-file size ceiling (5 MiB)
	MaxFileSize = 5 * 1024 * 1024
)

// allowedMIMETypes are the receipt formats the pipeline accepts
var allowedMIMETypes = map[string]bool{
	"application/pdf": true,
	"image/jpeg":      true,
	"image/png":       true,
}

// IsAllowedMIMEType reports whether the given MIME type may enter the batch
func IsAllowedMIMEType(mimeType string) bool {
	return allowedMIMETypes[mimeType]
}

// Expense concept codes
const (
	ConceptMeals         = "MEALS"
	ConceptTransport     = "TRANSPORT"
	ConceptAccommodation = "ACCOMMODATION"
	ConceptOfficeSupply  = "OFFICE_SUPPLY"
	ConceptSoftware      = "SOFTWARE"
	ConceptOther         = "OTHER"
)
