package transcription

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a job id does not exist.
	ErrNotFound = errors.New("job not found")

	// ErrDuplicateJob is returned when creating a job whose id already exists.
	ErrDuplicateJob = errors.New("job already exists")

	// ErrAlreadySubmitted is returned when a job is submitted while it is
	// already queued for or undergoing background execution.
	ErrAlreadySubmitted = errors.New("job already submitted")

	// ErrStaleStatus is returned when a status-guarded write finds the job in
	// a different status than expected, e.g. a result arriving after cancel.
	ErrStaleStatus = errors.New("job status changed concurrently")
)

// InvalidTransitionError reports an illegal lifecycle transition.
type InvalidTransitionError struct {
	JobID string
	From  Status
	To    Status
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid transition for job %s: %s -> %s", e.JobID, e.From, e.To)
}

// validTransition enforces the allowed state machine edges.
func validTransition(from, to Status) bool {
	switch from {
	case StatusPending:
		return to == StatusProcessing || to == StatusCancelled
	case StatusProcessing:
		return to == StatusCompleted || to == StatusFailed || to == StatusCancelled
	case StatusFailed:
		return to == StatusPending
	default:
		return false
	}
}
