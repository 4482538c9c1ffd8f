package models

// ResultState is the lifecycle state of a single summarization attempt.
type ResultState string

const (
	StateIdle    ResultState = "idle"
	StateLoading ResultState = "loading"
	StateSuccess ResultState = "success"
	StateFailure ResultState = "failure"
)

// ProcessingFailedMessage is the only failure text ever shown to the user.
const ProcessingFailedMessage = "Failed to process video. Please try again."

// SubmissionResult is a tagged variant: Summary is set only in StateSuccess and
// Error only in StateFailure.
type SubmissionResult struct {
	State   ResultState `json:"state"`
	Summary string      `json:"summary,omitempty"`
	Error   string      `json:"error,omitempty"`
}

func IdleResult() SubmissionResult {
	return SubmissionResult{State: StateIdle}
}

func LoadingResult() SubmissionResult {
	return SubmissionResult{State: StateLoading}
}

func SuccessResult(summary string) SubmissionResult {
	return SubmissionResult{State: StateSuccess, Summary: summary}
}

func FailureResult() SubmissionResult {
	return SubmissionResult{State: StateFailure, Error: ProcessingFailedMessage}
}

func (r SubmissionResult) Loading() bool {
	return r.State == StateLoading
}

// Resolved reports whether the result is a terminal outcome of an attempt.
func (r SubmissionResult) Resolved() bool {
	return r.State == StateSuccess || r.State == StateFailure
}
