package migrations

import (
	"context"
	"database/sql"

	"github.com/pressly/goose/v3"
)

func init() {
	goose.AddMigrationContext(Up0002, Down0002)
}

func Up0002(ctx context.Context, tx *sql.Tx) error {
	return execStatements(ctx, tx,
		`
CREATE TABLE evaluation_run (
	id UUID PRIMARY KEY DEFAULT run_id_v7(),
	created_at TIMESTAMP WITH TIME ZONE DEFAULT current_timestamp,
	updated_at TIMESTAMP WITH TIME ZONE DEFAULT current_timestamp,

	job_id TEXT NOT NULL,
	job_identifier TEXT NOT NULL,
	job_name TEXT NOT NULL,
	model_id TEXT NOT NULL,
	status TEXT NOT NULL DEFAULT 'pending'
		CHECK (status IN ('pending', 'in_progress', 'completed', 'failed', 'stopped')),
	output_location TEXT,
	failure_message TEXT,

	num_samples INTEGER,
	rouge1 DOUBLE PRECISION,
	rouge2 DOUBLE PRECISION,
	rouge_l DOUBLE PRECISION,
	report JSONB,
	manifest JSONB
);`,
		`CREATE INDEX evaluation_run_job_id_idx ON evaluation_run (job_id);`,
	)
}

func Down0002(ctx context.Context, tx *sql.Tx) error {
	return execStatements(ctx, tx,
		`DROP INDEX evaluation_run_job_id_idx;`,
		`DROP TABLE evaluation_run;`,
	)
}
