package store

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/summarybench/batcheval/internal/types"
)

// Derived from gorm.Model
type Model struct {
	CreatedAt time.Time
	UpdatedAt time.Time
	ID        uuid.UUID `gorm:"primaryKey;default:run_id_v7()"`
}

// One submit/evaluate cycle of a remote job
type EvaluationRun struct {
	Model

	JobID          string
	JobIdentifier  string
	JobName        string
	ModelID        string
	Status         types.JobStatus `gorm:"type:text;default:'pending'"`
	OutputLocation datatypes.Null[string]
	FailureMessage datatypes.Null[string]

	NumSamples datatypes.Null[int64]
	Rouge1     datatypes.Null[float64]
	Rouge2     datatypes.Null[float64]
	RougeL     datatypes.Null[float64]
	Report     *types.MetricReport `gorm:"type:jsonb;serializer:json"`
	Manifest   datatypes.JSON      `gorm:"type:jsonb"`
}

func (EvaluationRun) TableName() string {
	return "evaluation_run"
}

func (r EvaluationRun) GetID() uuid.UUID {
	return r.ID
}

// Maps a [datatypes.Null] back into a pointer
func PtrFromNull[T any](d datatypes.Null[T]) *T {
	if !d.Valid {
		return nil
	}

	return &d.V
}

func nullString(s string) datatypes.Null[string] {
	if s == "" {
		return datatypes.Null[string]{}
	}

	return datatypes.NewNull(s)
}
