package workflow

// State represents a stage of the refund submission wizard
type State string

const (
	StateUpload       State = "UPLOAD"
	StateExtraction   State = "EXTRACTION"
	StateReview       State = "REVIEW"
	StateConfirmation State = "CONFIRMATION"
)

var validStates = map[State]bool{
	StateUpload:       true,
	StateExtraction:   true,
	StateReview:       true,
	StateConfirmation: true,
}

// String returns the string representation of the state
func (s State) String() string {
	return string(s)
}

// IsValid returns true if the state is a valid wizard state
func (s State) IsValid() bool {
	return validStates[s]
}
