package evalerrors

import (
	"errors"
	"fmt"

	"github.com/summarybench/batcheval/internal/types"
)

// Carries an exit code along with an error so the app can exit correctly
type ExitError struct {
	Err  error
	Code int
}

func (e ExitError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%d", e.Code)
	}

	return fmt.Sprintf("%d: %s", e.Code, e.Err.Error())
}

func (e ExitError) Unwrap() error {
	return e.Err
}

// Wrap an error with an exit code
func ExitErrorWrap(code int, err error) error {
	return ExitError{Code: code, Err: err}
}

// Invalid configuration, credentials or permissions. Nothing was submitted.
type SetupError struct {
	Err error
}

func (e SetupError) Error() string {
	return fmt.Sprintf("setup: %s", e.Err.Error())
}

func (e SetupError) Unwrap() error {
	return e.Err
}

func SetupErrorWrap(err error) error {
	return SetupError{Err: err}
}

// The backend rejected or could not receive a job. Never retried automatically.
type SubmissionError struct {
	Err     error
	JobName string
}

func (e SubmissionError) Error() string {
	return fmt.Sprintf("submitting job %s: %s", e.JobName, e.Err.Error())
}

func (e SubmissionError) Unwrap() error {
	return e.Err
}

func SubmissionErrorWrap(jobName string, err error) error {
	return SubmissionError{JobName: jobName, Err: err}
}

// Status queries kept failing after the allowed retries, or the wait was cancelled
type PollingError struct {
	Err   error
	JobID string
}

func (e PollingError) Error() string {
	return fmt.Sprintf("polling job %s: %s", e.JobID, e.Err.Error())
}

func (e PollingError) Unwrap() error {
	return e.Err
}

func PollingErrorWrap(jobID string, err error) error {
	return PollingError{JobID: jobID, Err: err}
}

// The job reached a terminal status other than completed
type JobStatusError struct {
	JobID   string
	Status  types.JobStatus
	Message string
}

func (e JobStatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("job %s ended %s", e.JobID, e.Status)
	}

	return fmt.Sprintf("job %s ended %s: %s", e.JobID, e.Status, e.Message)
}

// Listing or download failed. Files holds the local paths that were retrieved before the failure.
type FetchError struct {
	Err      error
	Location string
	Files    []string
}

func (e FetchError) Error() string {
	return fmt.Sprintf(
		"fetching results from %s (%d files retrieved): %s",
		e.Location,
		len(e.Files),
		e.Err.Error(),
	)
}

func (e FetchError) Unwrap() error {
	return e.Err
}

func FetchErrorWrap(location string, files []string, err error) error {
	return FetchError{Location: location, Files: files, Err: err}
}

// A result line that could not be decoded. Line is 1-based.
type ParseError struct {
	Err  error
	File string
	Line int
}

func (e ParseError) Error() string {
	return fmt.Sprintf("%s:%d: %s", e.File, e.Line, e.Err.Error())
}

func (e ParseError) Unwrap() error {
	return e.Err
}

func ParseErrorWrap(file string, line int, err error) error {
	return ParseError{File: file, Line: line, Err: err}
}

// Degenerate scoring input. Scores are still produced so callers may treat this as a warning.
type ScoringError struct {
	Err error
}

func (e ScoringError) Error() string {
	return fmt.Sprintf("scoring: %s", e.Err.Error())
}

func (e ScoringError) Unwrap() error {
	return e.Err
}

func ScoringErrorWrap(err error) error {
	return ScoringError{Err: err}
}

// Used in logs and the run history to classify a failure
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case as[SetupError](err):
		return "setup"
	case as[SubmissionError](err):
		return "submission"
	case as[PollingError](err):
		return "polling"
	case as[JobStatusError](err):
		return "job"
	case as[FetchError](err):
		return "fetch"
	case as[ParseError](err):
		return "parse"
	case as[ScoringError](err):
		return "scoring"
	default:
		return "internal"
	}
}

func as[T error](err error) bool {
	var target T
	return errors.As(err, &target)
}
