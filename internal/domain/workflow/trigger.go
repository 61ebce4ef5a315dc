package workflow

// Trigger represents an event that can cause a wizard transition
type Trigger string

const (
	// TriggerFilesAccepted fires when at least one valid file passes the
	// upload gate. Firing it from EXTRACTION is a self-transition used when
	// files are appended mid-session.
	TriggerFilesAccepted Trigger = "FILES_ACCEPTED"

	// TriggerReview advances from extraction to the review stage
	TriggerReview Trigger = "REVIEW"

	// TriggerConfirm advances from review to confirmation
	TriggerConfirm Trigger = "CONFIRM"

	// TriggerBack steps one stage backwards
	TriggerBack Trigger = "BACK"

	// TriggerStartOver resets the wizard to the upload stage from any state
	TriggerStartOver Trigger = "START_OVER"
)

// String returns the string representation of the trigger
func (t Trigger) String() string {
	return string(t)
}
