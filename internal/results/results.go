package results

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	evalerrors "github.com/summarybench/batcheval/internal/eval_errors"
	"github.com/summarybench/batcheval/internal/types"
)

var tracer = otel.Tracer("github.com/summarybench/batcheval/internal/results")

const (
	PredictionsSuffix = "_predictions.jsonl"
	MetricsSuffix     = "_metrics.json"

	maxLineSize = 16 * 1024 * 1024
)

// Local files produced for one job
type Artifacts struct {
	Dir         string
	Predictions string
	Metrics     string
}

// <resultsDir>/<jobID>/<jobID>_predictions.jsonl and <jobID>_metrics.json
func Paths(resultsDir, jobID string) Artifacts {
	dir := filepath.Join(resultsDir, jobID)
	return Artifacts{
		Dir:         dir,
		Predictions: filepath.Join(dir, jobID+PredictionsSuffix),
		Metrics:     filepath.Join(dir, jobID+MetricsSuffix),
	}
}

// Files in the artifact set, predictions first
func (a Artifacts) Files() []string {
	return []string{a.Predictions, a.Metrics}
}

// One JSON object per pair, in pair order
func WriteCorrelated(ctx context.Context, path string, pairs []types.CorrelatedPair) error {
	ctx, span := tracer.Start(ctx, "WriteCorrelated", trace.WithAttributes(
		attribute.String("path", path),
		attribute.Int("pairs", len(pairs)),
	))
	defer span.End()

	err := writeAtomic(ctx, path, func(w io.Writer) error {
		enc := json.NewEncoder(w)
		enc.SetEscapeHTML(false)
		for _, pair := range pairs {
			if err := enc.Encode(pair); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to write predictions")
		return err
	}

	span.RecordError(nil)
	span.SetStatus(codes.Ok, "wrote predictions")
	return nil
}

// Indented JSON document
func WriteReport(ctx context.Context, path string, report types.MetricReport) error {
	ctx, span := tracer.Start(ctx, "WriteReport", trace.WithAttributes(
		attribute.String("path", path),
	))
	defer span.End()

	err := writeAtomic(ctx, path, func(w io.Writer) error {
		enc := json.NewEncoder(w)
		enc.SetEscapeHTML(false)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to write metrics")
		return err
	}

	span.RecordError(nil)
	span.SetStatus(codes.Ok, "wrote metrics")
	return nil
}

// Reads a file written by WriteCorrelated. Blank lines are skipped.
func ReadCorrelated(ctx context.Context, path string) ([]types.CorrelatedPair, error) {
	_, span := tracer.Start(ctx, "ReadCorrelated", trace.WithAttributes(
		attribute.String("path", path),
	))
	defer span.End()

	f, err := os.Open(path)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to open predictions")
		return nil, err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)

	pairs := []types.CorrelatedPair{}
	line := 0
	for scanner.Scan() {
		line++
		if strings.TrimSpace(scanner.Text()) == "" {
			continue
		}

		var pair types.CorrelatedPair
		if err := json.Unmarshal(scanner.Bytes(), &pair); err != nil {
			err = evalerrors.ParseErrorWrap(path, line, err)
			span.RecordError(err)
			span.SetStatus(codes.Error, "failed to decode pair")
			return nil, err
		}
		pairs = append(pairs, pair)
	}
	if err := scanner.Err(); err != nil {
		err = evalerrors.ParseErrorWrap(path, line+1, err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to read predictions")
		return nil, err
	}

	span.SetAttributes(attribute.Int("pairs", len(pairs)))
	span.RecordError(nil)
	span.SetStatus(codes.Ok, "read predictions")
	return pairs, nil
}

// Readers of path see either the old content or all of the new content
func writeAtomic(ctx context.Context, path string, write func(w io.Writer) error) error {
	_, span := tracer.Start(ctx, "writeAtomic")
	defer span.End()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to create directory")
		return err
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.part")
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to create temp file")
		return err
	}
	defer os.Remove(tmp.Name())
	defer tmp.Close()

	buffered := bufio.NewWriter(tmp)
	if err := write(buffered); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to encode")
		return err
	}
	if err := buffered.Flush(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to flush")
		return err
	}

	if err := tmp.Sync(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to sync temp file")
		return err
	}
	if err := tmp.Close(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to close temp file")
		return err
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to set permissions")
		return err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to move file into place")
		return err
	}

	span.RecordError(nil)
	span.SetStatus(codes.Ok, "wrote file")
	return nil
}
