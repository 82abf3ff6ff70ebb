package types

type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"     // Accepted by the backend, not yet running
	JobStatusInProgress JobStatus = "in_progress" // Running or winding down
	JobStatusCompleted  JobStatus = "completed"   // Finished, outputs are available
	JobStatusFailed     JobStatus = "failed"      // Finished without usable outputs
	JobStatusStopped    JobStatus = "stopped"     // Stopped by an operator before finishing
)

// Once a job reaches a terminal status it never leaves it
func (s JobStatus) IsTerminal() bool {
	switch s {
	case JobStatusCompleted, JobStatusFailed, JobStatusStopped:
		return true
	default:
		return false
	}
}

func (s JobStatus) String() string {
	return string(s)
}

const (
	ExitNormal    int = 0
	ExitErrored   int = 1
	ExitJobFailed int = 2 // Remote job ended failed or stopped
	ExitNoResults int = 3 // Job completed but produced no result files
)
