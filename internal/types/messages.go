package types

import "time"

type (
	MsgType string

	// Notification published once a run reaches an end state
	RunMsg struct {
		MsgType    MsgType       `json:"msg_type"`
		FinishedAt time.Time     `json:"finished_at"`
		Report     *MetricReport `json:"report,omitempty"`
		RunID      string        `json:"run_id"  validate:"uuid_rfc4122"`
		JobID      string        `json:"job_id"  validate:"required"`
		Status     JobStatus     `json:"status"  validate:"required"`
		Error      string        `json:"error,omitempty"`
	}
)

const (
	MsgTypeRunCompleted MsgType = "run_completed"
	MsgTypeRunFailed    MsgType = "run_failed"
)

func NewRunCompletedMsg(runID, jobID string, report MetricReport, at time.Time) RunMsg {
	return RunMsg{
		MsgType:    MsgTypeRunCompleted,
		RunID:      runID,
		JobID:      jobID,
		Status:     JobStatusCompleted,
		Report:     &report,
		FinishedAt: at,
	}
}

func NewRunFailedMsg(runID, jobID string, status JobStatus, err error, at time.Time) RunMsg {
	msg := RunMsg{
		MsgType:    MsgTypeRunFailed,
		RunID:      runID,
		JobID:      jobID,
		Status:     status,
		FinishedAt: at,
	}
	if err != nil {
		msg.Error = err.Error()
	}

	return msg
}

// Milliseconds since the unix epoch
type UnixMilli int64

func NewUnixMilli(t time.Time) UnixMilli {
	return UnixMilli(t.UTC().UnixMilli())
}
