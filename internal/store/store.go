package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	sloggorm "github.com/orandin/slog-gorm"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormtracing "gorm.io/plugin/opentelemetry/tracing"

	"github.com/summarybench/batcheval/internal/config"
	"github.com/summarybench/batcheval/internal/logger"
	"github.com/summarybench/batcheval/internal/store/migrations"
	"github.com/summarybench/batcheval/internal/types"
)

var tracer = otel.Tracer("github.com/summarybench/batcheval/internal/store")

var ErrRunNotFound = errors.New("evaluation run not found")

//go:generate mockgen -destination ./mock/mock.go -package mock . RunStore

// History of evaluation runs
type RunStore interface {
	// Records a run for a submitted job and returns its id
	Start(ctx context.Context, handle types.JobHandle, jobName, modelID string) (uuid.UUID, error)
	// Records the terminal status the job reached
	Finish(ctx context.Context, runID uuid.UUID, outcome types.JobOutcome) error
	// Records the scores of a completed run. manifest may be nil.
	RecordScores(
		ctx context.Context,
		runID uuid.UUID,
		report types.MetricReport,
		manifest *types.JobManifest,
	) error
	ByID(ctx context.Context, runID uuid.UUID) (*EvaluationRun, error)
	// Most recent run of a job
	LatestByJobID(ctx context.Context, jobID string) (*EvaluationRun, error)
}

// Ensure GormRunStore implements RunStore interface.
var _ RunStore = (*GormRunStore)(nil)

type GormRunStore struct {
	db *gorm.DB
}

func NewGormRunStore(db *gorm.DB) *GormRunStore {
	return &GormRunStore{db: db}
}

// Connects to postgres, installs tracing and brings migrations up
func Open(
	ctx context.Context,
	dsn string,
	dbConfig config.DatabaseConfig,
	logConfig config.GormLogConfig,
) (*gorm.DB, error) {
	ctx, span := tracer.Start(ctx, "Open")
	defer span.End()

	gormLogger := slog.New(logger.Handler)

	options := []sloggorm.Option{
		sloggorm.WithHandler(gormLogger.Handler()),
		sloggorm.SetLogLevel(sloggorm.DefaultLogType, slog.Level(logConfig.Level)),
	}
	if logConfig.TraceQueries {
		options = append(options, sloggorm.WithTraceAll())
	}
	sg := sloggorm.New(options...)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:         sg,
		TranslateError: true,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to open database connection")
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to acquire underlying database connection")
		return nil, fmt.Errorf("failed to acquire underlying database connection: %w", err)
	}

	sqlDB.SetMaxIdleConns(dbConfig.MaxIdleConnections)
	sqlDB.SetMaxOpenConns(dbConfig.MaxOpenConnections)
	sqlDB.SetConnMaxLifetime(dbConfig.ConnectionTTL)

	span.AddEvent("initialized database connection")

	if err := db.Use(gormtracing.NewPlugin()); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to add otel plugin to gorm")
		return nil, fmt.Errorf("failed to add otel plugin to gorm: %w", err)
	}

	if err := migrations.Up(ctx, db); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to run migrations")
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	span.RecordError(nil)
	span.SetStatus(codes.Ok, "opened database")
	return db, nil
}

func (s *GormRunStore) Start(
	ctx context.Context,
	handle types.JobHandle,
	jobName, modelID string,
) (uuid.UUID, error) {
	ctx, span := tracer.Start(ctx, "Start")
	defer span.End()

	span.SetAttributes(
		attribute.String("job_id", handle.ID),
		attribute.String("job_name", jobName),
	)

	run := EvaluationRun{
		JobID:         handle.ID,
		JobIdentifier: handle.Identifier,
		JobName:       jobName,
		ModelID:       modelID,
		Status:        types.JobStatusPending,
	}
	if err := s.db.WithContext(ctx).Create(&run).Error; err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to create evaluation run")
		return uuid.Nil, fmt.Errorf("failed to create evaluation run: %w", err)
	}

	span.SetAttributes(attribute.String("run_id", run.ID.String()))
	span.RecordError(nil)
	span.SetStatus(codes.Ok, "created evaluation run")
	return run.ID, nil
}

func (s *GormRunStore) Finish(ctx context.Context, runID uuid.UUID, outcome types.JobOutcome) error {
	ctx, span := tracer.Start(ctx, "Finish")
	defer span.End()

	span.SetAttributes(
		attribute.String("run_id", runID.String()),
		attribute.String("status", outcome.Status.String()),
	)

	err := s.update(ctx, runID, map[string]any{
		"status":          outcome.Status,
		"output_location": nullString(outcome.OutputLocation),
		"failure_message": nullString(outcome.FailureMessage),
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to record run outcome")
		return err
	}

	span.RecordError(nil)
	span.SetStatus(codes.Ok, "recorded run outcome")
	return nil
}

func (s *GormRunStore) RecordScores(
	ctx context.Context,
	runID uuid.UUID,
	report types.MetricReport,
	manifest *types.JobManifest,
) error {
	ctx, span := tracer.Start(ctx, "RecordScores")
	defer span.End()

	span.SetAttributes(attribute.String("run_id", runID.String()))

	updates := map[string]any{
		"num_samples": datatypes.NewNull(int64(report.NumSamples)),
		"rouge1":      datatypes.NewNull(report.Rouge1),
		"rouge2":      datatypes.NewNull(report.Rouge2),
		"rouge_l":     datatypes.NewNull(report.RougeL),
		"report":      datatypes.NewJSONType(report),
	}
	if manifest != nil {
		raw, err := json.Marshal(manifest)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "failed to marshal manifest")
			return fmt.Errorf("failed to marshal manifest: %w", err)
		}
		updates["manifest"] = datatypes.JSON(raw)
	}

	if err := s.update(ctx, runID, updates); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to record run scores")
		return err
	}

	span.RecordError(nil)
	span.SetStatus(codes.Ok, "recorded run scores")
	return nil
}

func (s *GormRunStore) update(ctx context.Context, runID uuid.UUID, updates map[string]any) error {
	result := s.db.WithContext(ctx).
		Model(&EvaluationRun{}).
		Where("id = ?", runID).
		Updates(updates)
	if result.Error != nil {
		return fmt.Errorf("failed to update evaluation run: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}

	return nil
}

func (s *GormRunStore) ByID(ctx context.Context, runID uuid.UUID) (*EvaluationRun, error) {
	ctx, span := tracer.Start(ctx, "ByID")
	defer span.End()

	span.SetAttributes(attribute.String("run_id", runID.String()))

	var run EvaluationRun
	err := s.db.WithContext(ctx).First(&run, "id = ?", runID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			err = fmt.Errorf("%w: %s", ErrRunNotFound, runID)
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to get evaluation run")
		return nil, err
	}

	span.RecordError(nil)
	span.SetStatus(codes.Ok, "got evaluation run")
	return &run, nil
}

func (s *GormRunStore) LatestByJobID(ctx context.Context, jobID string) (*EvaluationRun, error) {
	ctx, span := tracer.Start(ctx, "LatestByJobID")
	defer span.End()

	span.SetAttributes(attribute.String("job_id", jobID))

	var run EvaluationRun
	err := s.db.WithContext(ctx).
		Where("job_id = ?", jobID).
		Order("id DESC").
		First(&run).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			err = fmt.Errorf("%w: job %s", ErrRunNotFound, jobID)
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to get evaluation run")
		return nil, err
	}

	span.RecordError(nil)
	span.SetStatus(codes.Ok, "got evaluation run")
	return &run, nil
}
