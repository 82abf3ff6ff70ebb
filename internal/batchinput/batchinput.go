package batchinput

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/summarybench/batcheval/internal/dataset"
	"github.com/summarybench/batcheval/internal/hash"
	"github.com/summarybench/batcheval/internal/logger"
	"github.com/summarybench/batcheval/internal/storage"
	"github.com/summarybench/batcheval/internal/types"
)

var tracer = otel.Tracer("github.com/summarybench/batcheval/internal/batchinput")

type GenerationParams struct {
	MaxGenLen   int
	Temperature float64
	TopP        float64
}

var DefaultGenerationParams = GenerationParams{
	MaxGenLen:   512,
	Temperature: 0.7,
	TopP:        0.9,
}

type ModelInput struct {
	Prompt      string  `json:"prompt"`
	MaxGenLen   int     `json:"max_gen_len"`
	Temperature float64 `json:"temperature"`
	TopP        float64 `json:"top_p"`
}

// One line of the batch input file
type Record struct {
	RecordID   string     `json:"recordId"`
	ModelInput ModelInput `json:"modelInput"`
}

// 1-based, zero padded to the 11 characters bedrock batch inference expects
func RecordID(position int) string {
	return fmt.Sprintf("%011d", position)
}

// Llama 3 chat template around a single user turn
func Prompt(instruction, dialogue string) string {
	return "<|begin_of_text|><|start_header_id|>user<|end_header_id|>\n" +
		instruction + "\n\n## Dialogue:\n" + dialogue + "\n## Summary:\n" +
		"<|eot_id|>\n<|start_header_id|>assistant<|end_header_id|>\n"
}

// Writes one record per reference, in reference order
func Render(
	w io.Writer,
	refs []types.ReferenceRecord,
	instruction string,
	params GenerationParams,
) (int, error) {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)

	for i, ref := range refs {
		err := enc.Encode(Record{
			RecordID: RecordID(i + 1),
			ModelInput: ModelInput{
				Prompt:      Prompt(instruction, ref.InputText),
				MaxGenLen:   params.MaxGenLen,
				Temperature: params.Temperature,
				TopP:        params.TopP,
			},
		})
		if err != nil {
			return i, err
		}
	}

	return len(refs), nil
}

type PrepareResult struct {
	Location string `json:"location" yaml:"location"`
	Records  int    `json:"records"  yaml:"records"`
	// The object already existed and was left alone
	Skipped bool `json:"skipped" yaml:"skipped"`
}

// Renders a dataset split as batch input and uploads it
type Preparer struct {
	provider    dataset.Provider
	backend     storage.Backend
	instruction string
	params      GenerationParams
}

func NewPreparer(
	provider dataset.Provider,
	backend storage.Backend,
	instruction string,
	params GenerationParams,
) *Preparer {
	return &Preparer{
		provider:    provider,
		backend:     backend,
		instruction: instruction,
		params:      params,
	}
}

// Uploads <split>.jsonl under dir. An existing object is kept unless force is set.
func (p *Preparer) Prepare(
	ctx context.Context,
	split string,
	dir storage.Location,
	force bool,
) (PrepareResult, error) {
	dest := dir.Join(split + ".jsonl")
	ctx, span := tracer.Start(ctx, "Preparer.Prepare", trace.WithAttributes(
		attribute.String("split", split),
		attribute.String("location", dest.String()),
		attribute.Bool("force", force),
	))
	defer span.End()

	ident, err := p.backend.StoreIdentifier(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to get store identifier")
		return PrepareResult{}, err
	}
	if ident != dest.Bucket {
		err = fmt.Errorf("%w: %s is not in %s", storage.ErrLocationMismatch, dest, ident)
		span.RecordError(err)
		span.SetStatus(codes.Error, "location is not in this store")
		return PrepareResult{}, err
	}

	if !force {
		exists, err := p.backend.Exists(ctx, dest.Prefix)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "failed to check for existing input")
			return PrepareResult{}, err
		}
		if exists {
			logger.Logger.InfoContext(ctx, "batch input already exists", "location", dest.String())
			span.RecordError(nil)
			span.SetStatus(codes.Ok, "batch input already exists")
			return PrepareResult{Location: dest.String(), Skipped: true}, nil
		}
	}

	refs, err := p.provider.References(ctx, split)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to load references")
		return PrepareResult{}, err
	}

	var buf bytes.Buffer
	n, err := Render(&buf, refs, p.instruction, p.params)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to render batch input")
		return PrepareResult{}, err
	}

	err = p.backend.Upload(ctx, bytes.NewReader(buf.Bytes()), int64(buf.Len()), dest.Prefix)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to upload batch input")
		return PrepareResult{}, err
	}

	logger.Logger.InfoContext(ctx, "uploaded batch input",
		"location", dest.String(),
		"records", n,
		"sha256", hash.Bytes(buf.Bytes()).SHA256,
	)

	span.SetAttributes(attribute.Int("records", n))
	span.RecordError(nil)
	span.SetStatus(codes.Ok, "uploaded batch input")
	return PrepareResult{Location: dest.String(), Records: n}, nil
}
