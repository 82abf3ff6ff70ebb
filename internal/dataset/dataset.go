package dataset

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	evalerrors "github.com/summarybench/batcheval/internal/eval_errors"
	"github.com/summarybench/batcheval/internal/fetch"
	"github.com/summarybench/batcheval/internal/logger"
	"github.com/summarybench/batcheval/internal/types"
)

var tracer = otel.Tracer("github.com/summarybench/batcheval/internal/dataset")

const maxLineSize = 16 * 1024 * 1024

var (
	ErrMissingField = errors.New("record is missing a mapped field")
	ErrFieldType    = errors.New("mapped field is not a string")
)

// Names of the record fields holding the model input and the reference output
type FieldMap struct {
	Input  string
	Output string
}

//go:generate mockgen -destination ./mock/mock.go -package mock . Provider

// Ordered reference records of a dataset split. Position i is recordId i+1.
type Provider interface {
	References(ctx context.Context, split string) ([]types.ReferenceRecord, error)
}

// Ensure JSONLProvider implements Provider interface.
var _ Provider = (*JSONLProvider)(nil)

// Reads <location>/<split>.jsonl, one JSON object per line
type JSONLProvider struct {
	fetcher  fetch.Fetcher
	location string
	fields   FieldMap
}

func NewJSONLProvider(fetcher fetch.Fetcher, location string, fields FieldMap) *JSONLProvider {
	return &JSONLProvider{
		fetcher:  fetcher,
		location: location,
		fields:   fields,
	}
}

func (p *JSONLProvider) SplitURL(split string) string {
	name := split + ".jsonl"
	if strings.Contains(p.location, "://") {
		return strings.TrimSuffix(p.location, "/") + "/" + name
	}

	return filepath.Join(p.location, name)
}

func (p *JSONLProvider) References(ctx context.Context, split string) ([]types.ReferenceRecord, error) {
	url := p.SplitURL(split)
	ctx, span := tracer.Start(ctx, "JSONLProvider.References", trace.WithAttributes(
		attribute.String("split", split),
		attribute.String("url", url),
	))
	defer span.End()

	body, err := p.fetcher.Fetch(ctx, url)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to fetch split")
		return nil, fmt.Errorf("failed to fetch split %s: %w", split, err)
	}
	defer body.Close()

	refs, err := ReadReferences(body, url, p.fields)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to read split")
		return nil, err
	}

	logger.Logger.InfoContext(ctx, "loaded references", "split", split, "count", len(refs))

	span.SetAttributes(attribute.Int("references", len(refs)))
	span.RecordError(nil)
	span.SetStatus(codes.Ok, "loaded references")
	return refs, nil
}

// Blank lines are skipped and do not consume a position
func ReadReferences(r io.Reader, name string, fields FieldMap) ([]types.ReferenceRecord, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)

	refs := []types.ReferenceRecord{}
	line := 0
	for scanner.Scan() {
		line++
		raw := scanner.Bytes()
		if len(strings.TrimSpace(string(raw))) == 0 {
			continue
		}

		var record map[string]json.RawMessage
		if err := json.Unmarshal(raw, &record); err != nil {
			return nil, evalerrors.ParseErrorWrap(name, line, err)
		}

		input, err := field(record, fields.Input)
		if err != nil {
			return nil, evalerrors.ParseErrorWrap(name, line, err)
		}
		output, err := field(record, fields.Output)
		if err != nil {
			return nil, evalerrors.ParseErrorWrap(name, line, err)
		}

		refs = append(refs, types.ReferenceRecord{InputText: input, ReferenceText: output})
	}
	if err := scanner.Err(); err != nil {
		return nil, evalerrors.ParseErrorWrap(name, line+1, err)
	}

	return refs, nil
}

func field(record map[string]json.RawMessage, name string) (string, error) {
	raw, ok := record[name]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrMissingField, name)
	}

	var value string
	if err := json.Unmarshal(raw, &value); err != nil {
		return "", fmt.Errorf("%w: %q", ErrFieldType, name)
	}

	return value, nil
}
