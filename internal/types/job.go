package types

import (
	"maps"
	"strings"
)

type (
	// Everything needed to create one remote batch inference job. Build with NewJobSpec so the
	// tag map is not shared with the caller.
	JobSpec struct {
		Tags map[string]string `json:"tags,omitempty" yaml:"tags,omitempty"`
		// Unique, human readable name of the remote job
		JobName string `json:"job_name"        yaml:"job_name"        validate:"required,max=63"`
		ModelID string `json:"model_id"        yaml:"model_id"        validate:"required"`
		// Object storage URI of the NDJSON batch input
		InputLocation string `json:"input_location"  yaml:"input_location"  validate:"required,location"`
		// Object storage URI prefix the backend writes results under
		OutputLocation string `json:"output_location" yaml:"output_location" validate:"required,location"`
		// Role / service account the backend assumes. Backends that need one reject an empty value.
		ExecutionRole string `json:"execution_role"  yaml:"execution_role"`
	}

	// Opaque reference to a submitted job. ID is the short form used for naming local and remote artifacts.
	JobHandle struct {
		Identifier string `json:"identifier" yaml:"identifier"`
		ID         string `json:"id"         yaml:"id"`
	}

	// One observation of a remote job as reported by a backend
	StatusReport struct {
		Status         JobStatus `json:"status"`
		OutputLocation string    `json:"output_location,omitempty"`
		FailureMessage string    `json:"failure_message,omitempty"`
	}

	// Terminal state of a job
	JobOutcome struct {
		Status         JobStatus `json:"status"`
		OutputLocation string    `json:"output_location,omitempty"`
		FailureMessage string    `json:"failure_message,omitempty"`
	}
)

func NewJobSpec(
	jobName, modelID, inputLocation, outputLocation, executionRole string,
	tags map[string]string,
) JobSpec {
	return JobSpec{
		JobName:        jobName,
		ModelID:        modelID,
		InputLocation:  inputLocation,
		OutputLocation: outputLocation,
		ExecutionRole:  executionRole,
		Tags:           maps.Clone(tags),
	}
}

// Derives the short id from the final "/" separated segment of the identifier
//
// arn:aws:bedrock:us-east-1:123456789012:model-invocation-job/j45wouwjfza7 -> j45wouwjfza7
func NewJobHandle(identifier string) JobHandle {
	id := identifier
	if i := strings.LastIndex(identifier, "/"); i >= 0 {
		id = identifier[i+1:]
	}

	return JobHandle{Identifier: identifier, ID: id}
}

func (h JobHandle) String() string {
	return h.ID
}

func (o JobOutcome) Succeeded() bool {
	return o.Status == JobStatusCompleted
}
